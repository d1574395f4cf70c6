package seismic

import "fmt"

// SNR estimates signal-to-noise as the ratio of standard deviations
// between a signal span (25% to 50% of the trace) and a leading noise
// span (first 10%).
func SNR(samples []float64) (float64, error) {
	n := len(samples)
	if n < 20 {
		return 0, fmt.Errorf("snr: trace too short (%d samples)", n)
	}
	noise := samples[:n/10]
	signal := samples[n/4 : n/2]

	noiseStd := StdDev(noise)
	if noiseStd == 0 {
		return 0, fmt.Errorf("snr: silent noise window")
	}
	return StdDev(signal) / noiseStd, nil
}
