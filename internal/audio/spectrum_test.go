package audio

import (
	"errors"
	"math"
	"testing"
)

func sine(n int, freq, rate, amp float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = amp * math.Sin(2*math.Pi*freq*float64(i)/rate)
	}
	return out
}

func peakBin(mags []float64) int {
	best := 0
	for i, m := range mags {
		if m > mags[best] {
			best = i
		}
	}
	return best
}

func TestComputeSpectrumPeak(t *testing.T) {
	const (
		bins = 1024
		rate = 44100
		bin  = 40
	)
	freq := float64(bin) * rate / 2 / bins

	for _, name := range []string{"rect", "hann", "hamming", "blackman"} {
		wf, err := WindowByName(name)
		if err != nil {
			t.Fatal(err)
		}
		sp, err := ComputeSpectrum(sine(2*bins, freq, rate, 0.5), rate, bins, wf)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if len(sp.Magnitudes) != bins {
			t.Fatalf("%s: %d bins, want %d", name, len(sp.Magnitudes), bins)
		}
		if got := peakBin(sp.Magnitudes); got != bin {
			t.Errorf("%s: peak at bin %d, want %d", name, got, bin)
		}
		if m := sp.Magnitudes[bin]; math.Abs(m-0.5) > 0.05 {
			t.Errorf("%s: peak magnitude %.3f, want ~0.5", name, m)
		}
	}
}

func TestComputeSpectrumShortInput(t *testing.T) {
	sp, err := ComputeSpectrum(nil, 44100, 256, nil)
	if err != nil {
		t.Fatal(err)
	}
	for i, m := range sp.Magnitudes {
		if m != 0 {
			t.Fatalf("bin %d = %v for silent input", i, m)
		}
	}
	if got, want := sp.BinSize(), 44100.0/2/256; got != want {
		t.Errorf("BinSize = %v, want %v", got, want)
	}
}

func TestComputeSpectrumInvalid(t *testing.T) {
	if _, err := ComputeSpectrum(nil, 44100, 0, nil); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("bins=0: %v", err)
	}
	if _, err := ComputeSpectrum(nil, 0, 16, nil); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("rate=0: %v", err)
	}
}

func TestWindowByName(t *testing.T) {
	for _, name := range WindowNames() {
		if _, err := WindowByName(name); err != nil {
			t.Errorf("WindowByName(%q): %v", name, err)
		}
	}
	if _, err := WindowByName("kaiser"); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("unknown window: %v", err)
	}
}

func TestSampleRing(t *testing.T) {
	r := newSampleRing(4)
	r.pushFrames([]int16{16384, 16384, -16384, -16384}, 2)
	if got := r.snapshot(); len(got) != 2 || got[0] != 0.5 || got[1] != -0.5 {
		t.Fatalf("snapshot = %v", got)
	}

	r.pushFrames([]int16{0, 8192, 16384, 32767 / 2}, 1)
	got := r.snapshot()
	if len(got) != 4 {
		t.Fatalf("len = %d, want 4", len(got))
	}
	// oldest two stereo frames were overwritten
	if got[0] != 0 || got[1] != 0.25 || got[2] != 0.5 {
		t.Errorf("snapshot = %v", got)
	}
}
