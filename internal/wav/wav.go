// Package wav encodes raw PCM into RIFF/WAVE containers and loads container
// files back into memory.
package wav

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"time"
)

// Errors
var (
	ErrFileNotFound = errors.New("file not found")
	ErrIO           = errors.New("i/o error")
	ErrMalformed    = errors.New("malformed wav data")
)

// Extension is appended to every base name handed to ReadFile and WriteFile.
const Extension = ".wav"

// HeaderSize is the length of the three chunk headers Encode writes in front
// of the payload.
const HeaderSize = 44

const (
	formatPCM  = 1
	fmtBodyLen = 16
)

type riffHeader struct {
	ID   [4]byte
	Size int32
	Wave [4]byte
}

type fmtChunk struct {
	ID             [4]byte
	Size           int32
	FormatTag      uint16
	Channels       uint16
	SampleRate     uint32
	AvgBytesPerSec uint32
	BlockAlign     uint16
	BitsPerSample  uint16
}

type dataHeader struct {
	ID   [4]byte
	Size int32
}

// Header describes the PCM stream stored in a container.
type Header struct {
	Channels   int
	BitDepth   int
	SampleRate int
	BlockAlign int
	DataLength int
}

// BytesPerSecond is the average byte rate of the stream.
func (h Header) BytesPerSecond() int {
	return h.SampleRate * h.Channels * h.BitDepth / 8
}

// Duration is the play length declared by the data chunk.
func (h Header) Duration() time.Duration {
	bps := h.BytesPerSecond()
	if bps <= 0 {
		return 0
	}
	return time.Duration(int64(h.DataLength) * int64(time.Second) / int64(bps))
}

// FileName returns the on-disk name for a user supplied base name.
func FileName(base string) string {
	if strings.HasSuffix(strings.ToLower(base), Extension) {
		return base
	}
	return base + Extension
}

// Encode builds a complete container for pcm. The output is always
// HeaderSize+len(pcm) bytes and depends only on its arguments.
func Encode(pcm []byte, channels, bitDepth, sampleRate int) []byte {
	var buf bytes.Buffer
	buf.Grow(HeaderSize + len(pcm))
	// Writes to a bytes.Buffer cannot fail.
	_ = Write(&buf, pcm, channels, bitDepth, sampleRate)
	return buf.Bytes()
}

// Write streams the container for pcm to w.
func Write(w io.Writer, pcm []byte, channels, bitDepth, sampleRate int) error {
	blockAlign := channels * bitDepth / 8

	fc := fmtChunk{
		ID:             [4]byte{'f', 'm', 't', ' '},
		Size:           fmtBodyLen,
		FormatTag:      formatPCM,
		Channels:       uint16(channels),
		SampleRate:     uint32(sampleRate),
		AvgBytesPerSec: uint32(sampleRate * blockAlign),
		BlockAlign:     uint16(blockAlign),
		BitsPerSample:  uint16(bitDepth),
	}
	dh := dataHeader{
		ID:   [4]byte{'d', 'a', 't', 'a'},
		Size: int32(len(pcm)),
	}
	// The RIFF size counts the fmt chunk, the data chunk header and the
	// payload. Readers locate chunks by walking them, not by this field.
	rh := riffHeader{
		ID:   [4]byte{'R', 'I', 'F', 'F'},
		Size: int32(binary.Size(fc) + binary.Size(dh) + len(pcm)),
		Wave: [4]byte{'W', 'A', 'V', 'E'},
	}

	for _, chunk := range []any{rh, fc, dh} {
		if err := binary.Write(w, binary.LittleEndian, chunk); err != nil {
			return fmt.Errorf("%w: write header: %v", ErrIO, err)
		}
	}
	if _, err := w.Write(pcm); err != nil {
		return fmt.Errorf("%w: write data: %v", ErrIO, err)
	}
	return nil
}

// WriteFile encodes pcm into FileName(base) and returns the path written.
func WriteFile(base string, pcm []byte, channels, bitDepth, sampleRate int) (string, error) {
	path := FileName(base)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrIO, err)
	}
	if err := Write(f, pcm, channels, bitDepth, sampleRate); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrIO, err)
	}
	return path, nil
}

// ReadFile loads FileName(base) verbatim. Interpreting the bytes is left to
// the caller.
func ReadFile(base string) ([]byte, error) {
	path := FileName(base)

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrFileNotFound, path, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrIO, path, err)
	}
	return data, nil
}

// ParseHeader locates the fmt and data chunks of a container. Unknown chunks
// are skipped. A data chunk that declares more bytes than are present is
// truncated to what is there.
func ParseHeader(data []byte) (Header, []byte, error) {
	var h Header

	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return h, nil, fmt.Errorf("%w: missing RIFF/WAVE tag", ErrMalformed)
	}

	haveFmt := false
	pos := 12
	for pos+8 <= len(data) {
		id := string(data[pos : pos+4])
		size := int(binary.LittleEndian.Uint32(data[pos+4 : pos+8]))
		body := pos + 8

		switch id {
		case "fmt ":
			if size < fmtBodyLen || body+fmtBodyLen > len(data) {
				return h, nil, fmt.Errorf("%w: short fmt chunk", ErrMalformed)
			}
			if tag := binary.LittleEndian.Uint16(data[body:]); tag != formatPCM {
				return h, nil, fmt.Errorf("%w: format tag %d is not PCM", ErrMalformed, tag)
			}
			h.Channels = int(binary.LittleEndian.Uint16(data[body+2:]))
			h.SampleRate = int(binary.LittleEndian.Uint32(data[body+4:]))
			h.BlockAlign = int(binary.LittleEndian.Uint16(data[body+12:]))
			h.BitDepth = int(binary.LittleEndian.Uint16(data[body+14:]))
			haveFmt = true

		case "data":
			if !haveFmt {
				return h, nil, fmt.Errorf("%w: data chunk before fmt chunk", ErrMalformed)
			}
			end := body + size
			if end > len(data) || end < body {
				end = len(data)
			}
			h.DataLength = end - body
			return h, data[body:end], nil
		}

		// chunks are word aligned
		pos = body + size + size%2
	}

	return h, nil, fmt.Errorf("%w: no data chunk", ErrMalformed)
}
