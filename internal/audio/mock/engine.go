// Package mock provides an in-memory [audio.Engine] for tests.
//
// Set the exported result and error fields before use and inspect the call
// counters afterwards. All methods are safe for concurrent use.
//
//	eng := mock.NewEngine()
//	eng.BeginCaptureErr = errors.New("device busy")
//	sess := session.New(eng, pitch.NewSpectrumDetector())
package mock

import (
	"fmt"
	"sync"

	"github.com/0xlemi/tunerec/internal/audio"
	"github.com/0xlemi/tunerec/internal/wav"
)

// Engine is a mock implementation of [audio.Engine]
type Engine struct {
	mu sync.Mutex

	// InputDrivers and OutputDrivers are returned by Drivers.
	InputDrivers  []string
	OutputDrivers []string

	// SpectrumResult is returned by Spectrum when SpectrumErr is nil. When
	// both are nil Spectrum fails with audio.ErrSpectrumUnavailable.
	SpectrumResult *audio.Spectrum

	// LoadSoundFormat is the format given to buffers built by LoadSound.
	LoadSoundFormat audio.Format

	// Errors returned by the matching methods when non-nil.
	CreateBufferErr error
	BeginCaptureErr error
	EndCaptureErr   error
	PlayErr         error
	StopErr         error
	SpectrumErr     error
	DriversErr      error
	LoadSoundErr    error

	// Call counters.
	CallCountCreateBuffer int
	CallCountBeginCapture int
	CallCountEndCapture   int
	CallCountPlay         int
	CallCountStop         int
	CallCountSpectrum     int
	CallCountLoadSound    int

	// Recorded arguments of the last call.
	LastCaptureDriver int
	LastPlayDriver    int
	LastBuffer        *audio.Buffer
	LastSpectrumBins  int

	// Closed is set by Close.
	Closed bool

	next     audio.Channel
	active   map[audio.Channel]bool
	captures map[int]audio.Channel
}

// NewEngine returns a mock with one input and one output driver
func NewEngine() *Engine {
	return &Engine{
		InputDrivers:    []string{"mock input"},
		OutputDrivers:   []string{"mock output"},
		LoadSoundFormat: audio.Format{Channels: 1, BitDepth: 16, SampleRate: 44100},
		active:          make(map[audio.Channel]bool),
		captures:        make(map[int]audio.Channel),
	}
}

// Active reports whether ch is running
func (e *Engine) Active(ch audio.Channel) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active[ch]
}

func (e *Engine) open() audio.Channel {
	e.next++
	e.active[e.next] = true
	return e.next
}

// CreateCaptureBuffer implements [audio.Engine]
func (e *Engine) CreateCaptureBuffer(format audio.Format, maxSeconds int) (*audio.Buffer, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.CallCountCreateBuffer++
	if e.CreateBufferErr != nil {
		return nil, e.CreateBufferErr
	}
	if err := format.Validate(); err != nil {
		return nil, err
	}
	return audio.NewBuffer(format, format.BufferLength(maxSeconds)), nil
}

// BeginCapture implements [audio.Engine]
func (e *Engine) BeginCapture(driver int, buf *audio.Buffer) (audio.Channel, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.CallCountBeginCapture++
	e.LastCaptureDriver = driver
	e.LastBuffer = buf
	if e.BeginCaptureErr != nil {
		return audio.NoChannel, e.BeginCaptureErr
	}
	if driver < 0 || driver >= len(e.InputDrivers) {
		return audio.NoChannel, fmt.Errorf("%w: %w: driver %d", audio.ErrCaptureStart, audio.ErrInvalidArgument, driver)
	}
	ch := e.open()
	e.captures[driver] = ch
	return ch, nil
}

// EndCapture implements [audio.Engine]
func (e *Engine) EndCapture(driver int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.CallCountEndCapture++
	if ch, ok := e.captures[driver]; ok {
		delete(e.captures, driver)
		delete(e.active, ch)
	}
	return e.EndCaptureErr
}

// Play implements [audio.Engine]
func (e *Engine) Play(driver int, buf *audio.Buffer) (audio.Channel, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.CallCountPlay++
	e.LastPlayDriver = driver
	e.LastBuffer = buf
	if e.PlayErr != nil {
		return audio.NoChannel, e.PlayErr
	}
	if buf == nil {
		return audio.NoChannel, fmt.Errorf("%w: %w: nil buffer", audio.ErrPlaybackStart, audio.ErrInvalidArgument)
	}
	return e.open(), nil
}

// Stop implements [audio.Engine]
func (e *Engine) Stop(ch audio.Channel) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.CallCountStop++
	delete(e.active, ch)
	return e.StopErr
}

// Spectrum implements [audio.Engine]
func (e *Engine) Spectrum(ch audio.Channel, bins int, _ audio.WindowFunc) (*audio.Spectrum, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.CallCountSpectrum++
	e.LastSpectrumBins = bins
	if e.SpectrumErr != nil {
		return nil, e.SpectrumErr
	}
	if !e.active[ch] || e.SpectrumResult == nil {
		return nil, fmt.Errorf("%w: channel %d", audio.ErrSpectrumUnavailable, ch)
	}
	return e.SpectrumResult, nil
}

// Drivers implements [audio.Engine]
func (e *Engine) Drivers(capture bool) ([]string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.DriversErr != nil {
		return nil, e.DriversErr
	}
	if capture {
		return append([]string(nil), e.InputDrivers...), nil
	}
	return append([]string(nil), e.OutputDrivers...), nil
}

// LoadSound implements [audio.Engine]. Containers are parsed; anything else
// is taken as raw PCM in LoadSoundFormat.
func (e *Engine) LoadSound(data []byte) (*audio.Buffer, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.CallCountLoadSound++
	if e.LoadSoundErr != nil {
		return nil, e.LoadSoundErr
	}
	if h, payload, err := wav.ParseHeader(data); err == nil {
		format := audio.Format{Channels: h.Channels, BitDepth: h.BitDepth, SampleRate: h.SampleRate}
		return audio.NewBufferFrom(format, payload), nil
	}
	return audio.NewBufferFrom(e.LoadSoundFormat, data), nil
}

// Close implements [audio.Engine]
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Closed = true
	clear(e.active)
	clear(e.captures)
	return nil
}

var _ audio.Engine = (*Engine)(nil)
