package audio

import (
	"bytes"
	"errors"
	"testing"
	"time"
)

var mono16 = Format{Channels: 1, BitDepth: 16, SampleRate: 44100}

func TestFormatBufferLength(t *testing.T) {
	f := Format{Channels: 3, BitDepth: 16, SampleRate: 44100}
	if got, want := f.BufferLength(5), 44100*2*3*5; got != want {
		t.Errorf("BufferLength(5) = %d, want %d", got, want)
	}
	if got := f.Duration(f.BytesPerSecond() * 2); got != 2*time.Second {
		t.Errorf("Duration = %v, want 2s", got)
	}
}

func TestFormatValidate(t *testing.T) {
	bad := []Format{
		{Channels: 0, BitDepth: 16, SampleRate: 44100},
		{Channels: 1, BitDepth: 12, SampleRate: 44100},
		{Channels: 1, BitDepth: 16, SampleRate: 0},
	}
	for _, f := range bad {
		if err := f.Validate(); !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("Validate(%+v) = %v, want ErrInvalidArgument", f, err)
		}
	}
	if err := mono16.Validate(); err != nil {
		t.Errorf("Validate(mono16) = %v", err)
	}
}

func TestBufferWriteView(t *testing.T) {
	b := NewBuffer(mono16, 10)

	n, err := b.WriteView(6, func(view []byte) error {
		copy(view, "abcdef")
		return nil
	})
	if err != nil || n != 6 {
		t.Fatalf("first WriteView = %d, %v", n, err)
	}

	// clamped to the 4 remaining bytes
	n, err = b.WriteView(6, func(view []byte) error {
		if len(view) != 4 {
			t.Errorf("view length = %d, want 4", len(view))
		}
		copy(view, "ghij")
		return nil
	})
	if err != nil || n != 4 {
		t.Fatalf("second WriteView = %d, %v", n, err)
	}

	called := false
	n, _ = b.WriteView(6, func([]byte) error {
		called = true
		return nil
	})
	if n != 0 || called {
		t.Errorf("WriteView on full buffer = %d, called=%v", n, called)
	}

	if got := b.Bytes(); !bytes.Equal(got, []byte("abcdefghij")) {
		t.Errorf("Bytes = %q", got)
	}
}

func TestBufferWriteViewErrorKeepsCursor(t *testing.T) {
	b := NewBuffer(mono16, 8)
	boom := errors.New("boom")

	if _, err := b.WriteView(4, func([]byte) error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	if b.Len() != 0 {
		t.Errorf("Len = %d after failed view, want 0", b.Len())
	}

	// the lock was released on the error path
	if _, err := b.WriteView(4, func([]byte) error { return nil }); err != nil {
		t.Fatalf("WriteView after error: %v", err)
	}
	if b.Len() != 4 {
		t.Errorf("Len = %d, want 4", b.Len())
	}
}

func TestBufferReadView(t *testing.T) {
	b := NewBufferFrom(mono16, []byte("0123456789"))

	var got []byte
	n, err := b.ReadView(8, 6, func(view []byte) error {
		got = append(got, view...)
		return nil
	})
	if err != nil || n != 2 || string(got) != "89" {
		t.Errorf("ReadView = %d, %q, %v", n, got, err)
	}

	n, err = b.ReadView(10, 4, func([]byte) error {
		t.Error("fn called past end")
		return nil
	})
	if n != 0 || err != nil {
		t.Errorf("ReadView past end = %d, %v", n, err)
	}
}

func TestBufferRelease(t *testing.T) {
	b := NewBufferFrom(mono16, []byte{1, 2, 3, 4})
	b.Release()

	if !b.Released() || b.Len() != 0 {
		t.Errorf("Released = %v, Len = %d", b.Released(), b.Len())
	}
	if _, err := b.ReadView(0, 2, func([]byte) error { return nil }); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("ReadView after release = %v", err)
	}
	if _, err := b.WriteView(2, func([]byte) error { return nil }); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("WriteView after release = %v", err)
	}
}

func TestBufferDuration(t *testing.T) {
	b := NewBufferFrom(mono16, make([]byte, 44100))
	if got := b.Duration(); got != 500*time.Millisecond {
		t.Errorf("Duration = %v, want 500ms", got)
	}
}
