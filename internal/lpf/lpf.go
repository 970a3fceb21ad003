// Package lpf band-limits the line-coded square wave with a single-pole IIR
// low-pass filter so it survives a D/A → A/D audio path.
package lpf

import (
	"fmt"
	"math"
)

// Seed is the filter's initial output: mid-scale for 8-bit unsigned audio.
const Seed = 127.0

// Filter is a running single-pole low-pass filter.
type Filter struct {
	alpha float64
	value float64
}

// New returns a filter for the given cutoff and sample rate in Hz.
func New(cutoff, sampleRate float64) (*Filter, error) {
	if cutoff <= 0 || sampleRate <= 0 {
		return nil, fmt.Errorf("invalid filter parameters: cutoff %g Hz, sample rate %g Hz", cutoff, sampleRate)
	}

	rc := 1 / (2 * math.Pi * cutoff)
	dt := 1 / sampleRate

	return &Filter{
		alpha: dt / (dt + rc),
		value: Seed,
	}, nil
}

// Alpha returns the smoothing factor dt/(dt+rc).
func (f *Filter) Alpha() float64 {
	return f.alpha
}

// Next filters one sample.
func (f *Filter) Next(s byte) byte {
	f.value += f.alpha * (float64(s) - f.value)
	return quantize(f.value)
}

// Process filters src into dst (which may alias src) and returns dst.
func (f *Filter) Process(dst, src []byte) []byte {
	if cap(dst) < len(src) {
		dst = make([]byte, len(src))
	}
	dst = dst[:len(src)]
	for i, s := range src {
		dst[i] = f.Next(s)
	}
	return dst
}

// Apply filters samples with a fresh filter.
func Apply(samples []byte, cutoff, sampleRate float64) ([]byte, error) {
	f, err := New(cutoff, sampleRate)
	if err != nil {
		return nil, err
	}
	return f.Process(nil, samples), nil
}

// quantize truncates to uint8, saturating at the rails.
func quantize(v float64) byte {
	switch {
	case v <= 0:
		return 0
	case v >= 255:
		return 255
	default:
		return byte(v)
	}
}
