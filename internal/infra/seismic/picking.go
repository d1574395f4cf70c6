package seismic

import (
	"time"

	"seismcp/internal/domain"
	"seismcp/internal/infra/mseed"
)

// Classic STA/LTA trigger parameters.
const (
	STAWindowSeconds = 1.0
	LTAWindowSeconds = 20.0
	TriggerOn        = 3.5
	TriggerOff       = 1.0
)

// ClassicSTALTA computes the ratio of short-term to long-term moving
// averages of the squared signal. The first nlta-1 outputs are zero
// while the long window fills.
func ClassicSTALTA(samples []float64, nsta, nlta int) []float64 {
	n := len(samples)
	ratio := make([]float64, n)
	if nsta < 1 || nlta < nsta || n < nlta {
		return ratio
	}

	sq := make([]float64, n)
	for i, s := range samples {
		sq[i] = s * s
	}

	var staSum, ltaSum float64
	for i := 0; i < n; i++ {
		staSum += sq[i]
		if i >= nsta {
			staSum -= sq[i-nsta]
		}
		ltaSum += sq[i]
		if i >= nlta {
			ltaSum -= sq[i-nlta]
		}
		if i < nlta-1 {
			continue
		}
		lta := ltaSum / float64(nlta)
		if lta <= 0 {
			continue
		}
		ratio[i] = (staSum / float64(nsta)) / lta
	}
	return ratio
}

// TriggerOnset scans a characteristic function for threshold
// crossings, returning the indices where the ratio first exceeds on
// after having been below off.
func TriggerOnset(ratio []float64, on, off float64) []int {
	var onsets []int
	armed := true
	for i, r := range ratio {
		if armed && r > on {
			onsets = append(onsets, i)
			armed = false
		} else if !armed && r < off {
			armed = true
		}
	}
	return onsets
}

// Pick runs the classic STA/LTA detector over one trace and converts
// the first onset to an absolute time. The boolean reports whether any
// trigger fired.
func Pick(tr *mseed.Trace) (domain.Pick, bool) {
	if tr.SampleRate <= 0 {
		return domain.Pick{}, false
	}
	nsta := int(STAWindowSeconds * tr.SampleRate)
	nlta := int(LTAWindowSeconds * tr.SampleRate)
	ratio := ClassicSTALTA(tr.Samples, nsta, nlta)
	onsets := TriggerOnset(ratio, TriggerOn, TriggerOff)
	if len(onsets) == 0 {
		return domain.Pick{}, false
	}
	offset := time.Duration(float64(onsets[0]) / tr.SampleRate * float64(time.Second))
	return domain.Pick{
		TraceID: tr.ID(),
		Time:    tr.Start.Add(offset),
	}, true
}
