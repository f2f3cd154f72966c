package pitch

import (
	"errors"
	"testing"
)

func TestNoteTableStrictlyIncreasing(t *testing.T) {
	notes := Notes()
	if len(notes) != NoteCount {
		t.Fatalf("len = %d, want %d", len(notes), NoteCount)
	}
	for i := 0; i+1 < len(notes); i++ {
		if notes[i].Frequency >= notes[i+1].Frequency {
			t.Errorf("note %d (%s %.2f) >= note %d (%s %.2f)",
				i, notes[i], notes[i].Frequency, i+1, notes[i+1], notes[i+1].Frequency)
		}
	}
}

func TestNoteTableReferenceValues(t *testing.T) {
	tests := []struct {
		index int
		name  string
		freq  float64
	}{
		{0, "C0", 16.35},
		{1, "C#0", 17.32},
		{9, "A0", 27.50},
		{48, "C4", 261.63},
		{49, "C#4", 277.18},
		{57, "A4", 440.00},
		{69, "A5", 880.00},
		{119, "B9", 15804.27},
	}
	for _, tt := range tests {
		n, err := NoteAt(tt.index)
		if err != nil {
			t.Fatalf("NoteAt(%d): %v", tt.index, err)
		}
		if n.String() != tt.name {
			t.Errorf("NoteAt(%d) = %s, want %s", tt.index, n, tt.name)
		}
		if n.Frequency != tt.freq {
			t.Errorf("NoteAt(%d).Frequency = %.2f, want %.2f", tt.index, n.Frequency, tt.freq)
		}
	}
}

func TestNoteAtOutOfRange(t *testing.T) {
	for _, i := range []int{-1, NoteCount} {
		if _, err := NoteAt(i); !errors.Is(err, ErrNoteIndex) {
			t.Errorf("NoteAt(%d) err = %v, want ErrNoteIndex", i, err)
		}
	}
}

func TestNotesReturnsCopy(t *testing.T) {
	notes := Notes()
	notes[0].Frequency = 1
	if n, _ := NoteAt(0); n.Frequency != 16.35 {
		t.Errorf("table modified through Notes(): %.2f", n.Frequency)
	}
}
