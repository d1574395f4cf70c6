// Package seismic implements the waveform processing pipeline: trend
// removal, tapering, Butterworth bandpass filtering, instrument
// response removal, STA/LTA phase picking, and record section plots.
package seismic

import (
	"math"
)

// Demean subtracts the mean in place.
func Demean(samples []float64) {
	if len(samples) == 0 {
		return
	}
	var sum float64
	for _, s := range samples {
		sum += s
	}
	mean := sum / float64(len(samples))
	for i := range samples {
		samples[i] -= mean
	}
}

// DetrendLinear removes the least-squares straight line in place.
func DetrendLinear(samples []float64) {
	n := len(samples)
	if n < 2 {
		Demean(samples)
		return
	}
	// Closed-form simple linear regression over x = 0..n-1.
	var sumY, sumXY float64
	for i, s := range samples {
		sumY += s
		sumXY += float64(i) * s
	}
	fn := float64(n)
	sumX := fn * (fn - 1) / 2
	sumXX := fn * (fn - 1) * (2*fn - 1) / 6
	denom := fn*sumXX - sumX*sumX
	if denom == 0 {
		Demean(samples)
		return
	}
	slope := (fn*sumXY - sumX*sumY) / denom
	intercept := (sumY - slope*sumX) / fn
	for i := range samples {
		samples[i] -= intercept + slope*float64(i)
	}
}

// CosineTaper applies a Hann-flanked taper in place. fraction is the
// total tapered share of the trace, split evenly between the ends.
func CosineTaper(samples []float64, fraction float64) {
	n := len(samples)
	if n == 0 || fraction <= 0 {
		return
	}
	if fraction > 1 {
		fraction = 1
	}
	width := int(math.Floor(fraction * float64(n) / 2.0))
	if width < 1 {
		return
	}
	for i := 0; i < width; i++ {
		w := 0.5 * (1 - math.Cos(math.Pi*float64(i)/float64(width)))
		samples[i] *= w
		samples[n-1-i] *= w
	}
}

// StdDev returns the population standard deviation.
func StdDev(samples []float64) float64 {
	n := len(samples)
	if n == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += s
	}
	mean := sum / float64(n)
	var sq float64
	for _, s := range samples {
		d := s - mean
		sq += d * d
	}
	return math.Sqrt(sq / float64(n))
}
