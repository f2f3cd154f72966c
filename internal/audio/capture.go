package audio

import (
	"errors"
	"fmt"
	"time"
)

// Errors
var (
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrEngineInit          = errors.New("audio engine initialization failed")
	ErrEngineVersionTooLow = errors.New("audio engine version too low")
	ErrCaptureStart        = errors.New("capture start failed")
	ErrCaptureStop         = errors.New("capture stop failed")
	ErrPlaybackStart       = errors.New("playback start failed")
	ErrDriverEnumeration   = errors.New("driver enumeration failed")
	ErrSpectrumUnavailable = errors.New("spectrum unavailable")
)

// Format describes interleaved PCM samples
type Format struct {
	Channels   int
	BitDepth   int
	SampleRate int
}

// BytesPerSample returns the size of one sample of one channel
func (f Format) BytesPerSample() int {
	return f.BitDepth / 8
}

// FrameSize returns the size of one sample across all channels
func (f Format) FrameSize() int {
	return f.Channels * f.BytesPerSample()
}

// BytesPerSecond returns the byte rate of the stream
func (f Format) BytesPerSecond() int {
	return f.SampleRate * f.FrameSize()
}

// BufferLength returns the number of bytes needed to hold seconds of audio
func (f Format) BufferLength(seconds int) int {
	return f.SampleRate * f.BytesPerSample() * f.Channels * seconds
}

// Duration returns how long n bytes of audio play for
func (f Format) Duration(n int) time.Duration {
	bps := f.BytesPerSecond()
	if bps <= 0 {
		return 0
	}
	return time.Duration(int64(n) * int64(time.Second) / int64(bps))
}

// Validate checks that the format can describe a PCM stream
func (f Format) Validate() error {
	switch {
	case f.Channels <= 0:
		return fmt.Errorf("%w: channels must be positive, got %d", ErrInvalidArgument, f.Channels)
	case f.BitDepth <= 0 || f.BitDepth%8 != 0:
		return fmt.Errorf("%w: bit depth must be a positive multiple of 8, got %d", ErrInvalidArgument, f.BitDepth)
	case f.SampleRate <= 0:
		return fmt.Errorf("%w: sample rate must be positive, got %d", ErrInvalidArgument, f.SampleRate)
	}
	return nil
}

// Channel identifies a running capture or playback stream
type Channel uint32

// NoChannel is never handed out by an engine
const NoChannel Channel = 0

// Engine is the audio device layer the recorder drives. Start and stop calls
// return without waiting for the device; audio moves in the background.
type Engine interface {
	// CreateCaptureBuffer allocates a buffer big enough for maxSeconds of audio
	CreateCaptureBuffer(format Format, maxSeconds int) (*Buffer, error)

	// BeginCapture starts recording from the input driver into buf
	BeginCapture(driver int, buf *Buffer) (Channel, error)

	// EndCapture stops recording on the input driver
	EndCapture(driver int) error

	// Play starts playing buf on the output driver
	Play(driver int, buf *Buffer) (Channel, error)

	// Stop stops a playback channel
	Stop(ch Channel) error

	// Spectrum returns the magnitude spectrum of the audio most recently
	// moved through ch
	Spectrum(ch Channel, bins int, window WindowFunc) (*Spectrum, error)

	// Drivers lists capture or playback driver names in index order
	Drivers(capture bool) ([]string, error)

	// LoadSound creates a playable buffer from an in-memory container
	LoadSound(data []byte) (*Buffer, error)

	// Close stops all streams and releases the engine
	Close() error
}
