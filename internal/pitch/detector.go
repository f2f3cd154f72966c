package pitch

import (
	"fmt"
	"math"

	"github.com/0xlemi/tunerec/internal/audio"
)

// DefaultNoiseFloor is the magnitude a bin must exceed to count as signal
const DefaultNoiseFloor = 0.01

// Estimate is the pitch read from one spectrum snapshot
type Estimate struct {
	DominantFrequency float64 // Hz, 0 when no bin cleared the noise floor
	NoteIndex         int     // Index into the note table
	NoteName          string  // e.g. "A4"
	NoteFrequency     float64 // Reference frequency of the note in Hz
	Cents             float64 // Deviation from the note (-50 to +50), 0 for silence
}

// Detector defines the interface for pitch detection
type Detector interface {
	// DetectPitch estimates the note closest to the dominant frequency
	DetectPitch(spectrum *audio.Spectrum) (*Estimate, error)
}

// SpectrumDetector picks the strongest bin of a spectrum and maps it to the
// nearest note.
type SpectrumDetector struct {
	noiseFloor float64
	notes      []Note
}

// NewSpectrumDetector creates a detector using the default noise floor
func NewSpectrumDetector() *SpectrumDetector {
	return &SpectrumDetector{
		noiseFloor: DefaultNoiseFloor,
		notes:      noteTable[:],
	}
}

// SetNoiseFloor sets the minimum magnitude for a bin to be considered
func (d *SpectrumDetector) SetNoiseFloor(floor float64) {
	if floor < 0 {
		floor = 0
	}
	d.noiseFloor = floor
}

// DetectPitch analyzes a spectrum and returns the detected note. Silence
// yields a zero dominant frequency and the lowest note.
func (d *SpectrumDetector) DetectPitch(spectrum *audio.Spectrum) (*Estimate, error) {
	if spectrum == nil || len(spectrum.Magnitudes) == 0 {
		return nil, fmt.Errorf("%w: empty spectrum", audio.ErrSpectrumUnavailable)
	}

	bin := dominantBin(spectrum.Magnitudes, d.noiseFloor)
	freq := 0.0
	if bin >= 0 {
		freq = float64(bin) * spectrum.BinSize()
	}

	idx := nearestNote(d.notes, freq)
	note := d.notes[idx]

	est := &Estimate{
		DominantFrequency: freq,
		NoteIndex:         idx,
		NoteName:          note.String(),
		NoteFrequency:     note.Frequency,
	}
	if freq > 0 {
		est.Cents = 1200 * math.Log2(freq/note.Frequency)
	}
	return est, nil
}

// dominantBin returns the first bin holding the largest magnitude above
// floor, or -1 if none clears it.
func dominantBin(mags []float64, floor float64) int {
	best := -1
	peak := floor
	for i, m := range mags {
		if m > peak {
			peak = m
			best = i
		}
	}
	return best
}

// nearestNote finds the pair of neighbouring notes around freq and returns
// the closer one, preferring the lower on a tie. Frequencies outside the
// table clamp to its ends.
func nearestNote(notes []Note, freq float64) int {
	if freq < notes[0].Frequency {
		return 0
	}
	for i := 0; i+1 < len(notes); i++ {
		lo, hi := notes[i].Frequency, notes[i+1].Frequency
		if freq >= lo && freq < hi {
			if freq-lo <= hi-freq {
				return i
			}
			return i + 1
		}
	}
	return len(notes) - 1
}

var _ Detector = (*SpectrumDetector)(nil)
