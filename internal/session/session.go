// Package session drives the record/playback lifecycle: it starts and stops
// the audio engine, tracks elapsed time on every tick, stops automatically at
// the length bound and runs pitch detection while audio is flowing.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/0xlemi/tunerec/internal/audio"
	"github.com/0xlemi/tunerec/internal/pitch"
	"github.com/0xlemi/tunerec/internal/wav"
)

// Errors
var (
	ErrBusy     = errors.New("session is not idle")
	ErrNoBuffer = fmt.Errorf("%w: nothing recorded or loaded", audio.ErrInvalidArgument)
)

// DefaultFormat matches the 16-bit 44.1 kHz mono stream the recorder uses
// unless configured otherwise.
var DefaultFormat = audio.Format{Channels: 1, BitDepth: 16, SampleRate: 44100}

// Option configures a Session
type Option func(*Session)

// WithFormat sets the capture format
func WithFormat(f audio.Format) Option {
	return func(s *Session) { s.format = f }
}

// WithClock replaces the system clock
func WithClock(c Clock) Option {
	return func(s *Session) { s.clock = c }
}

// WithSpectrum sets the bin count and window used for pitch detection
func WithSpectrum(bins int, window audio.WindowFunc) Option {
	return func(s *Session) {
		s.bins = bins
		s.window = window
	}
}

// WithCaptureMonitoring enables pitch detection while recording
func WithCaptureMonitoring(on bool) Option {
	return func(s *Session) { s.monitor = on }
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.log = l }
}

// Session owns the active audio buffer and the engine streams reading or
// writing it. All transitions and ticks are serialized on one mutex.
type Session struct {
	engine   audio.Engine
	detector pitch.Detector
	clock    Clock
	log      *slog.Logger
	format   audio.Format
	bins     int
	window   audio.WindowFunc
	monitor  bool

	mu           sync.Mutex
	state        State
	buffer       *audio.Buffer
	channel      audio.Channel
	started      time.Time
	elapsed      time.Duration
	bound        time.Duration
	target       time.Duration
	inputDriver  int
	outputDriver int

	subMu   sync.Mutex
	subs    map[int]func(Event)
	nextSub int
}

// New creates an idle session
func New(engine audio.Engine, detector pitch.Detector, opts ...Option) *Session {
	s := &Session{
		engine:   engine,
		detector: detector,
		clock:    systemClock{},
		log:      slog.Default(),
		format:   DefaultFormat,
		bins:     audio.DefaultSpectrumBins,
		subs:     make(map[int]func(Event)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Subscribe registers fn for state change events. Events are delivered after
// the session lock is released, so fn may call back into the session.
func (s *Session) Subscribe(fn func(Event)) (cancel func()) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		delete(s.subs, id)
	}
}

func (s *Session) emit(ev *Event) {
	if ev == nil {
		return
	}
	s.subMu.Lock()
	fns := make([]func(Event), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn(*ev)
	}
}

// State returns the current state
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Status returns the state as of the last tick or transition
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statusLocked(nil)
}

func (s *Session) statusLocked(est *pitch.Estimate) Status {
	return Status{State: s.state, Elapsed: s.elapsed, Target: s.target, Pitch: est}
}

// HasBuffer reports whether there is audio to play or save
func (s *Session) HasBuffer() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buffer != nil
}

// Format returns the capture format
func (s *Session) Format() audio.Format {
	return s.format
}

// Drivers lists the engine's capture or playback drivers
func (s *Session) Drivers(capture bool) ([]string, error) {
	names, err := s.engine.Drivers(capture)
	if err != nil {
		return nil, wrap(audio.ErrDriverEnumeration, err)
	}
	return names, nil
}

// InputDriver returns the selected capture driver index
func (s *Session) InputDriver() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inputDriver
}

// OutputDriver returns the selected playback driver index
func (s *Session) OutputDriver() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outputDriver
}

// SelectInputDriver picks the capture driver used by the next StartCapture
func (s *Session) SelectInputDriver(i int) error {
	return s.selectDriver(&s.inputDriver, i)
}

// SelectOutputDriver picks the playback driver used by the next StartPlayback
func (s *Session) SelectOutputDriver(i int) error {
	return s.selectDriver(&s.outputDriver, i)
}

func (s *Session) selectDriver(dst *int, i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Idle {
		return fmt.Errorf("%w: %s", ErrBusy, s.state)
	}
	if i < 0 {
		return fmt.Errorf("%w: driver index %d", audio.ErrInvalidArgument, i)
	}
	*dst = i
	return nil
}

// StartCapture records up to seconds of audio from the selected input
// driver. Any previous buffer is released first. On failure the session
// stays idle.
func (s *Session) StartCapture(seconds int) error {
	ev, err := s.startCapture(seconds)
	s.emit(ev)
	return err
}

func (s *Session) startCapture(seconds int) (*Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Idle {
		return nil, fmt.Errorf("%w: %s", ErrBusy, s.state)
	}
	if seconds <= 0 {
		return nil, fmt.Errorf("%w: %w: capture length %ds", audio.ErrCaptureStart, audio.ErrInvalidArgument, seconds)
	}

	s.releaseLocked()

	buf, err := s.engine.CreateCaptureBuffer(s.format, seconds)
	if err != nil {
		s.log.Warn("capture buffer allocation failed", "seconds", seconds, "err", err)
		return nil, wrap(audio.ErrCaptureStart, err)
	}
	ch, err := s.engine.BeginCapture(s.inputDriver, buf)
	if err != nil {
		buf.Release()
		s.log.Warn("capture start failed", "driver", s.inputDriver, "err", err)
		return nil, wrap(audio.ErrCaptureStart, err)
	}

	s.buffer = buf
	s.channel = ch
	s.bound = time.Duration(seconds) * time.Second
	s.target = 0
	s.elapsed = 0
	s.started = s.clock.Now()
	s.log.Info("recording", "driver", s.inputDriver, "seconds", seconds, "bytes", buf.Cap())
	return s.transitionLocked(Recording, nil), nil
}

// Load reads base.wav into memory through the engine. The session must be
// idle; on failure the current buffer is kept.
func (s *Session) Load(base string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Idle {
		return fmt.Errorf("%w: %s", ErrBusy, s.state)
	}

	data, err := wav.ReadFile(base)
	if err != nil {
		s.log.Warn("load failed", "file", wav.FileName(base), "err", err)
		return err
	}
	buf, err := s.engine.LoadSound(data)
	if err != nil {
		s.log.Warn("sound creation failed", "file", wav.FileName(base), "err", err)
		return err
	}

	s.releaseLocked()
	s.buffer = buf
	s.target = buf.Duration()
	s.elapsed = 0
	s.log.Info("loaded", "file", wav.FileName(base), "bytes", buf.Len(), "length", s.target)
	return nil
}

// Save writes the recorded audio to base.wav and returns the path
func (s *Session) Save(base string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Idle {
		return "", fmt.Errorf("%w: %s", ErrBusy, s.state)
	}
	if s.buffer == nil {
		return "", ErrNoBuffer
	}

	f := s.buffer.Format()
	path, err := wav.WriteFile(base, s.buffer.Bytes(), f.Channels, f.BitDepth, f.SampleRate)
	if err != nil {
		s.log.Warn("save failed", "file", wav.FileName(base), "err", err)
		return "", err
	}
	s.log.Info("saved", "file", path, "bytes", s.buffer.Len())
	return path, nil
}

// StartPlayback plays the current buffer on the selected output driver. It
// stops by itself once the last recorded or loaded length has elapsed.
func (s *Session) StartPlayback() error {
	ev, err := s.startPlayback()
	s.emit(ev)
	return err
}

func (s *Session) startPlayback() (*Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Idle {
		return nil, fmt.Errorf("%w: %s", ErrBusy, s.state)
	}
	if s.buffer == nil {
		return nil, wrap(audio.ErrPlaybackStart, ErrNoBuffer)
	}

	ch, err := s.engine.Play(s.outputDriver, s.buffer)
	if err != nil {
		s.log.Warn("playback start failed", "driver", s.outputDriver, "err", err)
		return nil, wrap(audio.ErrPlaybackStart, err)
	}

	if s.target <= 0 {
		s.target = s.buffer.Duration()
	}
	s.channel = ch
	s.elapsed = 0
	s.started = s.clock.Now()
	s.log.Info("playing", "driver", s.outputDriver, "length", s.target)
	return s.transitionLocked(Playing, nil), nil
}

// Stop ends recording or playback. The session is idle afterwards even if
// the engine reports an error, which is returned. Stop on an idle session
// does nothing.
func (s *Session) Stop() error {
	ev := s.stop()
	s.emit(ev)
	if ev == nil {
		return nil
	}
	return ev.Err
}

func (s *Session) stop() *Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Idle {
		return nil
	}
	s.elapsed = s.clock.Now().Sub(s.started)
	return s.stopLocked()
}

// stopLocked stops the engine and moves to Idle. s.mu must be held.
func (s *Session) stopLocked() *Event {
	var err error
	switch s.state {
	case Recording:
		if err = s.engine.EndCapture(s.inputDriver); err != nil {
			err = wrap(audio.ErrCaptureStop, err)
			s.log.Warn("capture stop failed", "driver", s.inputDriver, "err", err)
		}
		// tick granularity may overshoot the bound
		s.target = min(s.elapsed, s.bound)
		s.log.Info("recording stopped", "length", s.target, "bytes", s.buffer.Len())

	case Playing:
		if err = s.engine.Stop(s.channel); err != nil {
			s.log.Warn("playback stop failed", "channel", s.channel, "err", err)
		}
		s.log.Info("playback stopped", "elapsed", s.elapsed)
	}

	s.channel = audio.NoChannel
	return s.transitionLocked(Idle, err)
}

func (s *Session) transitionLocked(to State, err error) *Event {
	ev := &Event{From: s.state, To: to, Elapsed: s.elapsed, Target: s.target, Err: err}
	s.state = to
	return ev
}

// releaseLocked drops the current buffer. s.mu must be held.
func (s *Session) releaseLocked() {
	if s.buffer != nil {
		s.buffer.Release()
		s.buffer = nil
	}
	s.target = 0
}

// Tick advances the elapsed time, applies the automatic stop rules and, while
// audio is flowing, estimates the pitch. A missing spectrum only skips the
// estimate for this tick.
func (s *Session) Tick() Status {
	st, ev := s.tick()
	s.emit(ev)
	return st
}

func (s *Session) tick() (Status, *Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == Idle {
		return s.statusLocked(nil), nil
	}
	s.elapsed = s.clock.Now().Sub(s.started)

	var est *pitch.Estimate
	switch s.state {
	case Recording:
		if s.elapsed >= s.bound {
			ev := s.stopLocked()
			return s.statusLocked(nil), ev
		}
		if s.monitor {
			est = s.detectLocked()
		}

	case Playing:
		if s.elapsed > s.target {
			ev := s.stopLocked()
			return s.statusLocked(nil), ev
		}
		est = s.detectLocked()
	}
	return s.statusLocked(est), nil
}

func (s *Session) detectLocked() *pitch.Estimate {
	sp, err := s.engine.Spectrum(s.channel, s.bins, s.window)
	if err != nil {
		if errors.Is(err, audio.ErrSpectrumUnavailable) {
			s.log.Debug("no spectrum this tick", "err", err)
		} else {
			s.log.Warn("spectrum query failed", "err", err)
		}
		return nil
	}
	est, err := s.detector.DetectPitch(sp)
	if err != nil {
		s.log.Debug("pitch detection skipped", "err", err)
		return nil
	}
	return est
}

// Run ticks every period until the session is idle again, passing each status
// to fn. Cancelling ctx stops the session.
func (s *Session) Run(ctx context.Context, period time.Duration, fn func(Status)) error {
	if period <= 0 {
		return fmt.Errorf("%w: tick period %v", audio.ErrInvalidArgument, period)
	}

	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return errors.Join(ctx.Err(), s.Stop())
		case <-ticker.C:
			st := s.Tick()
			if fn != nil {
				fn(st)
			}
			if st.State == Idle {
				return nil
			}
		}
	}
}

// Close stops any running stream and releases the buffer
func (s *Session) Close() error {
	err := s.Stop()

	s.mu.Lock()
	s.releaseLocked()
	s.mu.Unlock()
	return err
}

// wrap tags err with kind unless it already carries it
func wrap(kind, err error) error {
	if errors.Is(err, kind) {
		return err
	}
	return fmt.Errorf("%w: %w", kind, err)
}
