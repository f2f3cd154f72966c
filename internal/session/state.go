package session

import (
	"time"

	"github.com/0xlemi/tunerec/internal/pitch"
)

// State is the phase of a session
type State int

const (
	Idle State = iota
	Recording
	Playing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Recording:
		return "recording"
	case Playing:
		return "playing"
	default:
		return "unknown"
	}
}

// Event is delivered to subscribers on every state change
type Event struct {
	From    State
	To      State
	Elapsed time.Duration
	Target  time.Duration
	Err     error // engine error raised while leaving From, if any
}

// Status is the outcome of one tick
type Status struct {
	State   State
	Elapsed time.Duration
	Target  time.Duration
	Pitch   *pitch.Estimate // nil when no estimate was made this tick
}

// Progress returns playback progress in [0, 1], or 0 when not playing
func (s Status) Progress() float64 {
	if s.State != Playing || s.Target <= 0 {
		return 0
	}
	return min(float64(s.Elapsed)/float64(s.Target), 1)
}

// Clock supplies monotonic timestamps
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }
