package seismic

import (
	"fmt"
	"math"
	"math/cmplx"
)

// bandpassOrder is the prototype order; the bandpass transform doubles
// it, giving a four-pole filter.
const bandpassOrder = 2

// Bandpass designs and applies a Butterworth bandpass filter between
// low and high Hz. Corners at or beyond Nyquist are rejected.
func Bandpass(samples []float64, sampleRate, low, high float64) error {
	filt, err := newBandpassFilter(sampleRate, low, high)
	if err != nil {
		return err
	}
	filt.apply(samples)
	return nil
}

// iirFilter holds direct-form transfer function coefficients with a0
// normalized to one.
type iirFilter struct {
	b []float64
	a []float64
}

// newBandpassFilter builds the digital filter via the analog
// Butterworth prototype, the lowpass to bandpass transform, and the
// bilinear transform with frequency prewarping.
func newBandpassFilter(sampleRate, low, high float64) (*iirFilter, error) {
	nyquist := sampleRate / 2
	if low <= 0 || high <= low {
		return nil, fmt.Errorf("bandpass: bad corners [%g, %g]", low, high)
	}
	if high >= nyquist {
		return nil, fmt.Errorf("bandpass: corner %g Hz at or above Nyquist %g Hz", high, nyquist)
	}

	fs := sampleRate
	w1 := 2 * fs * math.Tan(math.Pi*low/fs)
	w2 := 2 * fs * math.Tan(math.Pi*high/fs)
	w0 := math.Sqrt(w1 * w2)
	bw := w2 - w1

	// Analog prototype poles on the unit circle, left half-plane.
	prototype := make([]complex128, 0, bandpassOrder)
	for k := 0; k < bandpassOrder; k++ {
		theta := math.Pi * float64(2*k+bandpassOrder+1) / float64(2*bandpassOrder)
		prototype = append(prototype, cmplx.Exp(complex(0, theta)))
	}

	// Lowpass to bandpass: each prototype pole spawns two.
	analogPoles := make([]complex128, 0, 2*bandpassOrder)
	for _, p := range prototype {
		pb := p * complex(bw/2, 0)
		disc := cmplx.Sqrt(pb*pb - complex(w0*w0, 0))
		analogPoles = append(analogPoles, pb+disc, pb-disc)
	}

	// Bilinear transform. The bandpass zeros sit at the analog origin
	// and at infinity, mapping to z=1 and z=-1 respectively.
	k2 := complex(2*fs, 0)
	digitalPoles := make([]complex128, len(analogPoles))
	for i, s := range analogPoles {
		digitalPoles[i] = (k2 + s) / (k2 - s)
	}
	digitalZeros := make([]complex128, 0, 2*bandpassOrder)
	for i := 0; i < bandpassOrder; i++ {
		digitalZeros = append(digitalZeros, complex(1, 0), complex(-1, 0))
	}

	b := polyFromRoots(digitalZeros)
	a := polyFromRoots(digitalPoles)

	// Normalize to unit gain at the warped center frequency.
	f0 := fs / math.Pi * math.Atan(w0/(2*fs))
	z := cmplx.Exp(complex(0, 2*math.Pi*f0/fs))
	gain := cmplx.Abs(evalPoly(b, z)) / cmplx.Abs(evalPoly(a, z))
	if gain == 0 || math.IsNaN(gain) || math.IsInf(gain, 0) {
		return nil, fmt.Errorf("bandpass: degenerate design for corners [%g, %g] at %g Hz", low, high, sampleRate)
	}
	for i := range b {
		b[i] /= gain
	}
	return &iirFilter{b: b, a: a}, nil
}

// apply runs the filter in direct form II transposed, in place.
func (f *iirFilter) apply(samples []float64) {
	order := len(f.a) - 1
	state := make([]float64, order)
	for i, x := range samples {
		y := f.b[0]*x + state[0]
		for j := 0; j < order; j++ {
			var next float64
			if j+1 < order {
				next = state[j+1]
			}
			state[j] = f.b[j+1]*x - f.a[j+1]*y + next
		}
		samples[i] = y
	}
}

// polyFromRoots expands a monic polynomial from its roots, returning
// real coefficients in descending-power order. Complex roots are
// assumed to come in conjugate pairs.
func polyFromRoots(roots []complex128) []float64 {
	coeffs := []complex128{1}
	for _, r := range roots {
		next := make([]complex128, len(coeffs)+1)
		for i, c := range coeffs {
			next[i] += c
			next[i+1] -= c * r
		}
		coeffs = next
	}
	out := make([]float64, len(coeffs))
	for i, c := range coeffs {
		out[i] = real(c)
	}
	return out
}

// evalPoly evaluates descending-power coefficients at z.
func evalPoly(coeffs []float64, z complex128) complex128 {
	var acc complex128
	for _, c := range coeffs {
		acc = acc*z + complex(c, 0)
	}
	return acc
}
