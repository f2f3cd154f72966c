package audio

import (
	"fmt"
	"math/cmplx"
	"sort"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"
)

// DefaultSpectrumBins is the number of bins in a spectrum snapshot
const DefaultSpectrumBins = 8192

// WindowFunc returns window coefficients for a frame of the given length
type WindowFunc func(int) []float64

var windows = map[string]WindowFunc{
	"rect":     window.Rectangular,
	"triangle": window.Bartlett,
	"hamming":  window.Hamming,
	"hann":     window.Hann,
	"blackman": window.Blackman,
	"flattop":  window.FlatTop,
}

// WindowByName looks up a window function
func WindowByName(name string) (WindowFunc, error) {
	w, ok := windows[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown window %q", ErrInvalidArgument, name)
	}
	return w, nil
}

// WindowNames lists the known window names in sorted order
func WindowNames() []string {
	names := make([]string, 0, len(windows))
	for name := range windows {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Spectrum is a magnitude spectrum covering 0 Hz up to half the sample rate
// in equally wide bins.
type Spectrum struct {
	Magnitudes []float64
	SampleRate int
}

// BinSize returns the width of one bin in Hz
func (s *Spectrum) BinSize() float64 {
	if len(s.Magnitudes) == 0 {
		return 0
	}
	return float64(s.SampleRate) / 2 / float64(len(s.Magnitudes))
}

// ComputeSpectrum analyses the newest 2*bins samples. Shorter input is
// zero-padded at the front. Magnitudes are scaled by the window's coherent
// gain so a sine of amplitude A centred on a bin reads A.
func ComputeSpectrum(samples []float64, sampleRate, bins int, wf WindowFunc) (*Spectrum, error) {
	if bins <= 0 || sampleRate <= 0 {
		return nil, fmt.Errorf("%w: bins=%d sample rate=%d", ErrInvalidArgument, bins, sampleRate)
	}
	if wf == nil {
		wf = window.Rectangular
	}

	size := 2 * bins
	frame := make([]float64, size)
	if len(samples) > size {
		samples = samples[len(samples)-size:]
	}
	copy(frame[size-len(samples):], samples)

	coeffs := wf(size)
	gain := 0.0
	for i := range frame {
		frame[i] *= coeffs[i]
		gain += coeffs[i]
	}
	if gain == 0 {
		return nil, fmt.Errorf("%w: window has zero gain", ErrInvalidArgument)
	}

	out := fft.FFTReal(frame)

	mags := make([]float64, bins)
	for i := range mags {
		mags[i] = 2 * cmplx.Abs(out[i]) / gain
	}

	return &Spectrum{Magnitudes: mags, SampleRate: sampleRate}, nil
}

// sampleRing keeps the newest mono samples that moved through a stream.
// Callers serialize access.
type sampleRing struct {
	buf  []float64
	pos  int
	full bool
}

func newSampleRing(size int) *sampleRing {
	return &sampleRing{buf: make([]float64, size)}
}

// pushFrames downmixes interleaved 16-bit frames and appends them
func (r *sampleRing) pushFrames(samples []int16, channels int) {
	if channels <= 0 || len(r.buf) == 0 {
		return
	}
	for i := 0; i+channels <= len(samples); i += channels {
		sum := 0.0
		for ch := 0; ch < channels; ch++ {
			sum += float64(samples[i+ch])
		}
		r.buf[r.pos] = sum / float64(channels) / 32768
		r.pos++
		if r.pos == len(r.buf) {
			r.pos = 0
			r.full = true
		}
	}
}

// snapshot returns the stored samples oldest first
func (r *sampleRing) snapshot() []float64 {
	if !r.full {
		return append([]float64(nil), r.buf[:r.pos]...)
	}
	out := make([]float64, 0, len(r.buf))
	out = append(out, r.buf[r.pos:]...)
	return append(out, r.buf[:r.pos]...)
}
