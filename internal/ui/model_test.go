package ui

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/0xlemi/tunerec/internal/audio"
	"github.com/0xlemi/tunerec/internal/audio/mock"
	"github.com/0xlemi/tunerec/internal/pitch"
	"github.com/0xlemi/tunerec/internal/session"
	"github.com/0xlemi/tunerec/internal/wav"
)

func newTestModel(t *testing.T) (Model, *session.Session, *mock.Engine) {
	t.Helper()
	eng := mock.NewEngine()
	eng.InputDrivers = []string{"mic", "line in"}
	sess := session.New(eng, pitch.NewSpectrumDetector())
	m := NewModel(sess, Options{
		FileName:   filepath.Join(t.TempDir(), "take"),
		Seconds:    5,
		TickPeriod: 76 * time.Millisecond,
	})
	return m, sess, eng
}

func press(t *testing.T, m Model, k string) Model {
	t.Helper()
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)})
	return next.(Model)
}

func TestRecordAndStopKeys(t *testing.T) {
	m, sess, _ := newTestModel(t)

	m = press(t, m, "r")
	if sess.State() != session.Recording {
		t.Fatalf("state after r = %s, want recording", sess.State())
	}
	if !strings.Contains(m.View(), "RECORDING") {
		t.Errorf("view does not show recording:\n%s", m.View())
	}

	m = press(t, m, "s")
	if sess.State() != session.Idle {
		t.Fatalf("state after s = %s, want idle", sess.State())
	}
	if m.err != nil {
		t.Errorf("err = %v", m.err)
	}
}

func TestPlayWithoutFileShowsError(t *testing.T) {
	m, sess, eng := newTestModel(t)

	m = press(t, m, "p")
	if !errors.Is(m.err, wav.ErrFileNotFound) {
		t.Errorf("err = %v, want ErrFileNotFound", m.err)
	}
	if sess.State() != session.Idle || eng.CallCountPlay != 0 {
		t.Errorf("state = %s, play calls = %d", sess.State(), eng.CallCountPlay)
	}
	if !strings.Contains(m.View(), "error:") {
		t.Errorf("view does not show the error:\n%s", m.View())
	}
}

func TestWriteThenPlayFromFile(t *testing.T) {
	m, _, eng := newTestModel(t)

	m = press(t, m, "r")
	if _, err := eng.LastBuffer.WriteView(4, func(v []byte) error {
		copy(v, []byte{1, 0, 2, 0})
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	m = press(t, m, "s")
	m = press(t, m, "w")
	if m.err != nil {
		t.Fatalf("write: %v", m.err)
	}
	if !strings.HasPrefix(m.message, "saved ") {
		t.Errorf("message = %q", m.message)
	}

	// a fresh session has nothing in memory and loads the saved file
	fresh := session.New(eng, pitch.NewSpectrumDetector())
	m2 := NewModel(fresh, m.opts)
	m2 = press(t, m2, "p")
	if m2.err != nil {
		t.Fatalf("play: %v", m2.err)
	}
	if fresh.State() != session.Playing {
		t.Errorf("state = %s, want playing", fresh.State())
	}
	if eng.CallCountLoadSound != 1 {
		t.Errorf("LoadSound called %d times, want 1", eng.CallCountLoadSound)
	}
}

func TestCycleInputDriver(t *testing.T) {
	m, sess, _ := newTestModel(t)

	m = press(t, m, "i")
	if sess.InputDriver() != 1 {
		t.Errorf("input driver = %d, want 1", sess.InputDriver())
	}
	if !strings.Contains(m.View(), "line in") {
		t.Errorf("view does not name the driver:\n%s", m.View())
	}
	press(t, m, "i")
	if sess.InputDriver() != 0 {
		t.Errorf("input driver = %d, want wrap to 0", sess.InputDriver())
	}
}

func TestTickShowsPitch(t *testing.T) {
	eng := mock.NewEngine()
	mags := make([]float64, audio.DefaultSpectrumBins)
	mags[163] = 0.8
	eng.SpectrumResult = &audio.Spectrum{Magnitudes: mags, SampleRate: 44100}
	sess := session.New(eng, pitch.NewSpectrumDetector(), session.WithCaptureMonitoring(true))
	m := NewModel(sess, Options{FileName: "take", Seconds: 5, TickPeriod: 76 * time.Millisecond})

	m = press(t, m, "r")

	next, cmd := m.Update(TickMsg(time.Now()))
	m = next.(Model)
	if cmd == nil {
		t.Error("tick did not schedule the next tick")
	}
	if m.note == nil || m.note.NoteName != "A4" {
		t.Fatalf("note = %+v, want A4", m.note)
	}
	if !strings.Contains(m.View(), "Cents") {
		t.Errorf("view missing pitch line:\n%s", m.View())
	}
}

func TestStateMsgReportsRecordedLength(t *testing.T) {
	m, _, _ := newTestModel(t)

	next, cmd := m.Update(StateMsg{From: session.Recording, To: session.Idle, Target: 3 * time.Second})
	m = next.(Model)
	if cmd == nil {
		t.Error("state message did not re-arm the event wait")
	}
	if m.message != "recorded 3.0s" {
		t.Errorf("message = %q", m.message)
	}
}

func TestQuitStopsSession(t *testing.T) {
	m, sess, _ := newTestModel(t)

	m = press(t, m, "r")
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatal("q returned no command")
	}
	if sess.State() != session.Idle {
		t.Errorf("state after quit = %s, want idle", sess.State())
	}
}

func TestRenderNoteSharp(t *testing.T) {
	n, err := pitch.NoteAt(49) // C#4
	if err != nil {
		t.Fatal(err)
	}
	out := renderNote(n)
	if !strings.Contains(out, "C") || !strings.Contains(out, "#4") {
		t.Errorf("renderNote(C#4) = %q", out)
	}
}
