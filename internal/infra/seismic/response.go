package seismic

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
)

// PreFilter is a four-corner cosine window applied to the spectrum
// before sensitivity division, suppressing the bands where the
// instrument response is unconstrained.
type PreFilter struct {
	F1, F2, F3, F4 float64
}

// DefaultPreFilter scales the standard corner fractions by the trace
// Nyquist frequency.
func DefaultPreFilter(nyquist float64) PreFilter {
	return PreFilter{
		F1: 0.01 * nyquist,
		F2: 0.02 * nyquist,
		F3: 0.8 * nyquist,
		F4: 0.9 * nyquist,
	}
}

// weight evaluates the window at frequency f.
func (p PreFilter) weight(f float64) float64 {
	switch {
	case f <= p.F1 || f >= p.F4:
		return 0
	case f < p.F2:
		return 0.5 * (1 - math.Cos(math.Pi*(f-p.F1)/(p.F2-p.F1)))
	case f <= p.F3:
		return 1
	default:
		return 0.5 * (1 + math.Cos(math.Pi*(f-p.F3)/(p.F4-p.F3)))
	}
}

// RemoveResponse converts raw counts to ground velocity in place by
// windowing the spectrum with pre and dividing by the overall
// instrument sensitivity.
func RemoveResponse(samples []float64, sampleRate, sensitivity float64, pre PreFilter) error {
	if sensitivity == 0 {
		return fmt.Errorf("response: zero instrument sensitivity")
	}
	n := len(samples)
	if n == 0 {
		return nil
	}
	if pre.F1 >= pre.F2 || pre.F2 > pre.F3 || pre.F3 >= pre.F4 {
		return fmt.Errorf("response: bad pre-filter corners [%g %g %g %g]", pre.F1, pre.F2, pre.F3, pre.F4)
	}

	fft := fourier.NewFFT(n)
	coeffs := fft.Coefficients(nil, samples)
	for i := range coeffs {
		f := fft.Freq(i) * sampleRate
		coeffs[i] *= complex(pre.weight(f)/sensitivity, 0)
	}
	restored := fft.Sequence(nil, coeffs)
	scale := 1 / float64(n)
	for i := range samples {
		samples[i] = restored[i] * scale
	}
	return nil
}
