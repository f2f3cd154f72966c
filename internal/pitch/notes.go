package pitch

import (
	"errors"
	"fmt"
	"math"
)

// NoteCount is the number of notes in the table: ten octaves from C0 to B9
const NoteCount = 120

// ErrNoteIndex is returned for indices outside the note table
var ErrNoteIndex = errors.New("note index out of range")

// Note represents a musical note
type Note struct {
	Name      string  // e.g., "A", "A#", "B"
	Octave    int     // e.g., 4 for middle C (C4)
	Frequency float64 // Reference frequency in Hz
}

// String returns the note with its octave, e.g. "C#4"
func (n Note) String() string {
	return fmt.Sprintf("%s%d", n.Name, n.Octave)
}

// All note names in chromatic order
var noteNames = []string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// noteTable is built once and never modified
var noteTable = buildNoteTable()

// buildNoteTable tunes every semitone against A4 = 440 Hz (index 57) and rounds
// to hundredths, which gives the usual printed table starting at C0 = 16.35 Hz.
func buildNoteTable() [NoteCount]Note {
	var table [NoteCount]Note
	for i := range table {
		freq := 440 * math.Pow(2, float64(i-57)/12)
		table[i] = Note{
			Name:      noteNames[i%12],
			Octave:    i / 12,
			Frequency: math.Round(freq*100) / 100,
		}
	}
	return table
}

// NoteAt returns the note at index i
func NoteAt(i int) (Note, error) {
	if i < 0 || i >= NoteCount {
		return Note{}, fmt.Errorf("%w: %d", ErrNoteIndex, i)
	}
	return noteTable[i], nil
}

// Notes returns a copy of the whole table in ascending order
func Notes() []Note {
	return append([]Note(nil), noteTable[:]...)
}
