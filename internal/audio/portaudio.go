package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/0xlemi/tunerec/internal/wav"
	"github.com/gordonklaus/portaudio"
)

// minPortAudioVersion is v19.6.0 in Pa_GetVersion encoding
const minPortAudioVersion = 19<<16 | 6<<8

// paStream is one open capture or playback stream
type paStream struct {
	stream  *portaudio.Stream
	buffer  *Buffer
	driver  int
	capture bool

	mu   sync.Mutex // guards ring and pos; taken from the device callback
	ring *sampleRing
	pos  int
}

// processCapture is the PortAudio callback for capture streams
func (s *paStream) processCapture(in []int16) {
	// Drop what does not fit; the session stops the stream at the bound.
	_, _ = s.buffer.WriteView(len(in)*2, func(view []byte) error {
		for i := 0; i < len(view)/2; i++ {
			binary.LittleEndian.PutUint16(view[2*i:], uint16(in[i]))
		}
		return nil
	})

	s.mu.Lock()
	s.ring.pushFrames(in, s.buffer.Format().Channels)
	s.mu.Unlock()
}

// processPlayback is the PortAudio callback for playback streams
func (s *paStream) processPlayback(out []int16) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, _ := s.buffer.ReadView(s.pos, len(out)*2, func(view []byte) error {
		for i := 0; i < len(view)/2; i++ {
			out[i] = int16(binary.LittleEndian.Uint16(view[2*i:]))
		}
		return nil
	})
	for i := n / 2; i < len(out); i++ {
		out[i] = 0
	}
	s.pos += n
	s.ring.pushFrames(out[:n/2], s.buffer.Format().Channels)
}

// close stops and closes the underlying stream, returning the first error
func (s *paStream) close() error {
	err := s.stream.Stop()
	if cerr := s.stream.Close(); err == nil {
		err = cerr
	}
	return err
}

// PortAudioEngine implements Engine on top of PortAudio. It handles 16-bit
// PCM only.
type PortAudioEngine struct {
	mu              sync.Mutex
	log             *slog.Logger
	framesPerBuffer int
	ringSize        int
	nextChannel     Channel
	streams         map[Channel]*paStream
}

// NewPortAudioEngine initializes PortAudio. spectrumBins sizes the sample
// history kept per stream for Spectrum.
func NewPortAudioEngine(log *slog.Logger, framesPerBuffer, spectrumBins int) (*PortAudioEngine, error) {
	if log == nil {
		log = slog.Default()
	}
	if spectrumBins <= 0 {
		spectrumBins = DefaultSpectrumBins
	}

	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEngineInit, err)
	}
	if v := portaudio.Version(); v < minPortAudioVersion {
		portaudio.Terminate()
		return nil, fmt.Errorf("%w: have %s", ErrEngineVersionTooLow, portaudio.VersionText())
	}
	log.Debug("portaudio initialized", "version", portaudio.VersionText())

	return &PortAudioEngine{
		log:             log,
		framesPerBuffer: framesPerBuffer,
		ringSize:        2 * spectrumBins,
		streams:         make(map[Channel]*paStream),
	}, nil
}

// devices returns the capture or playback devices in index order
func (e *PortAudioEngine) devices(capture bool) ([]*portaudio.DeviceInfo, error) {
	all, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDriverEnumeration, err)
	}

	var out []*portaudio.DeviceInfo
	for _, d := range all {
		if capture && d.MaxInputChannels > 0 || !capture && d.MaxOutputChannels > 0 {
			out = append(out, d)
		}
	}
	return out, nil
}

func (e *PortAudioEngine) device(capture bool, driver int) (*portaudio.DeviceInfo, error) {
	devs, err := e.devices(capture)
	if err != nil {
		return nil, err
	}
	if driver < 0 || driver >= len(devs) {
		return nil, fmt.Errorf("%w: driver %d out of range (have %d)", ErrInvalidArgument, driver, len(devs))
	}
	return devs[driver], nil
}

// Drivers lists capture or playback driver names
func (e *PortAudioEngine) Drivers(capture bool) ([]string, error) {
	devs, err := e.devices(capture)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(devs))
	for i, d := range devs {
		names[i] = d.Name
	}
	return names, nil
}

// CreateCaptureBuffer allocates room for maxSeconds of audio
func (e *PortAudioEngine) CreateCaptureBuffer(format Format, maxSeconds int) (*Buffer, error) {
	if err := checkFormat(format); err != nil {
		return nil, err
	}
	if maxSeconds <= 0 {
		return nil, fmt.Errorf("%w: capture length must be positive, got %d", ErrInvalidArgument, maxSeconds)
	}
	return NewBuffer(format, format.BufferLength(maxSeconds)), nil
}

// LoadSound parses an in-memory container into a playable buffer
func (e *PortAudioEngine) LoadSound(data []byte) (*Buffer, error) {
	h, payload, err := wav.ParseHeader(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	format := Format{Channels: h.Channels, BitDepth: h.BitDepth, SampleRate: h.SampleRate}
	if err := checkFormat(format); err != nil {
		return nil, err
	}
	return NewBufferFrom(format, payload), nil
}

// BeginCapture opens the input driver and records into buf
func (e *PortAudioEngine) BeginCapture(driver int, buf *Buffer) (Channel, error) {
	if buf == nil {
		return NoChannel, fmt.Errorf("%w: %w: nil buffer", ErrCaptureStart, ErrInvalidArgument)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	for _, s := range e.streams {
		if s.capture && s.driver == driver {
			return NoChannel, fmt.Errorf("%w: driver %d already capturing", ErrCaptureStart, driver)
		}
	}

	dev, err := e.device(true, driver)
	if err != nil {
		return NoChannel, fmt.Errorf("%w: %w", ErrCaptureStart, err)
	}

	format := buf.Format()
	params := portaudio.LowLatencyParameters(dev, nil)
	params.Input.Channels = format.Channels
	params.SampleRate = float64(format.SampleRate)
	params.FramesPerBuffer = e.framesPerBuffer

	s := &paStream{
		buffer:  buf,
		driver:  driver,
		capture: true,
		ring:    newSampleRing(e.ringSize),
	}
	if s.stream, err = portaudio.OpenStream(params, s.processCapture); err != nil {
		return NoChannel, fmt.Errorf("%w: open %q: %v", ErrCaptureStart, dev.Name, err)
	}
	if err := s.stream.Start(); err != nil {
		s.stream.Close()
		return NoChannel, fmt.Errorf("%w: start %q: %v", ErrCaptureStart, dev.Name, err)
	}

	ch := e.register(s)
	e.log.Debug("capture started", "driver", dev.Name, "channel", ch, "bytes", buf.Cap())
	return ch, nil
}

// EndCapture stops the capture stream on driver
func (e *PortAudioEngine) EndCapture(driver int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for ch, s := range e.streams {
		if !s.capture || s.driver != driver {
			continue
		}
		delete(e.streams, ch)
		if err := s.close(); err != nil {
			return fmt.Errorf("%w: %v", ErrCaptureStop, err)
		}
		e.log.Debug("capture stopped", "channel", ch, "bytes", s.buffer.Len())
		return nil
	}
	return fmt.Errorf("%w: driver %d is not capturing", ErrCaptureStop, driver)
}

// Play opens the output driver and plays buf from the start
func (e *PortAudioEngine) Play(driver int, buf *Buffer) (Channel, error) {
	if buf == nil {
		return NoChannel, fmt.Errorf("%w: %w: nil buffer", ErrPlaybackStart, ErrInvalidArgument)
	}
	if err := checkFormat(buf.Format()); err != nil {
		return NoChannel, fmt.Errorf("%w: %w", ErrPlaybackStart, err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	dev, err := e.device(false, driver)
	if err != nil {
		return NoChannel, fmt.Errorf("%w: %w", ErrPlaybackStart, err)
	}

	format := buf.Format()
	params := portaudio.LowLatencyParameters(nil, dev)
	params.Output.Channels = format.Channels
	params.SampleRate = float64(format.SampleRate)
	params.FramesPerBuffer = e.framesPerBuffer

	s := &paStream{
		buffer: buf,
		driver: driver,
		ring:   newSampleRing(e.ringSize),
	}
	if s.stream, err = portaudio.OpenStream(params, s.processPlayback); err != nil {
		return NoChannel, fmt.Errorf("%w: open %q: %v", ErrPlaybackStart, dev.Name, err)
	}
	if err := s.stream.Start(); err != nil {
		s.stream.Close()
		return NoChannel, fmt.Errorf("%w: start %q: %v", ErrPlaybackStart, dev.Name, err)
	}

	ch := e.register(s)
	e.log.Debug("playback started", "driver", dev.Name, "channel", ch, "bytes", buf.Len())
	return ch, nil
}

// Stop stops a playback channel
func (e *PortAudioEngine) Stop(ch Channel) error {
	e.mu.Lock()
	s, ok := e.streams[ch]
	if ok && !s.capture {
		delete(e.streams, ch)
	}
	e.mu.Unlock()

	if !ok || s.capture {
		return fmt.Errorf("%w: no playback channel %d", ErrInvalidArgument, ch)
	}
	if err := s.close(); err != nil {
		return fmt.Errorf("stop channel %d: %w", ch, err)
	}
	e.log.Debug("playback stopped", "channel", ch)
	return nil
}

// Spectrum analyses the newest samples that moved through ch
func (e *PortAudioEngine) Spectrum(ch Channel, bins int, wf WindowFunc) (*Spectrum, error) {
	e.mu.Lock()
	s, ok := e.streams[ch]
	e.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: no channel %d", ErrSpectrumUnavailable, ch)
	}

	s.mu.Lock()
	samples := s.ring.snapshot()
	s.mu.Unlock()
	if len(samples) == 0 {
		return nil, fmt.Errorf("%w: no audio yet on channel %d", ErrSpectrumUnavailable, ch)
	}

	sp, err := ComputeSpectrum(samples, s.buffer.Format().SampleRate, bins, wf)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSpectrumUnavailable, err)
	}
	return sp, nil
}

// Close stops every stream and terminates PortAudio
func (e *PortAudioEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	var errs []error
	for ch, s := range e.streams {
		if err := s.close(); err != nil {
			errs = append(errs, fmt.Errorf("channel %d: %w", ch, err))
		}
		delete(e.streams, ch)
	}
	if err := portaudio.Terminate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// register stores s under a fresh channel handle. e.mu must be held.
func (e *PortAudioEngine) register(s *paStream) Channel {
	e.nextChannel++
	if e.nextChannel == NoChannel {
		e.nextChannel++
	}
	e.streams[e.nextChannel] = s
	return e.nextChannel
}

// checkFormat rejects formats the PortAudio callbacks cannot move
func checkFormat(f Format) error {
	if err := f.Validate(); err != nil {
		return err
	}
	if f.BitDepth != 16 {
		return fmt.Errorf("%w: only 16-bit PCM is supported, got %d", ErrInvalidArgument, f.BitDepth)
	}
	return nil
}

var _ Engine = (*PortAudioEngine)(nil)
