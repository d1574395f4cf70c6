// Package mseed reads and writes miniSEED, the FDSN dataselect wire
// format: fixed 48-byte record headers, blockette 1000 describing
// encoding and record length, and Steim1/Steim2 compressed or plain
// integer/float sample payloads.
package mseed

import (
	"fmt"
	"strings"
	"time"

	"seismcp/internal/domain"
)

// Trace is one continuous series of samples for a single channel.
// Samples are held as float64 regardless of wire encoding so the
// processing pipeline can operate in place.
type Trace struct {
	Network    string
	Station    string
	Location   string
	Channel    string
	Start      time.Time
	SampleRate float64
	Samples    []float64
}

// ID returns the canonical NET.STA.LOC.CHA identifier.
func (t *Trace) ID() string {
	return fmt.Sprintf("%s.%s.%s.%s", t.Network, t.Station, t.Location, t.Channel)
}

// Npts returns the sample count.
func (t *Trace) Npts() int {
	return len(t.Samples)
}

// End returns the time of the last sample.
func (t *Trace) End() time.Time {
	if len(t.Samples) == 0 || t.SampleRate <= 0 {
		return t.Start
	}
	span := float64(len(t.Samples)-1) / t.SampleRate
	return t.Start.Add(time.Duration(span * float64(time.Second)))
}

// Nyquist returns half the sampling rate.
func (t *Trace) Nyquist() float64 {
	return t.SampleRate / 2.0
}

// Stream is an ordered collection of traces from one download.
type Stream struct {
	Traces []*Trace
}

// Stats computes the authoritative post-download statistics used by
// limit enforcement.
func (s *Stream) Stats() domain.StreamStats {
	var total int64
	for _, tr := range s.Traces {
		total += int64(len(tr.Samples))
	}
	return domain.StreamStats{
		TraceCount:     len(s.Traces),
		TotalSamples:   total,
		EstimatedBytes: total * domain.BytesPerSample,
	}
}

// Previews returns per-trace digests capped at max entries.
func (s *Stream) Previews(max int) []domain.TracePreview {
	n := len(s.Traces)
	if n > max {
		n = max
	}
	previews := make([]domain.TracePreview, 0, n)
	for _, tr := range s.Traces[:n] {
		previews = append(previews, domain.TracePreview{
			ID:         tr.ID(),
			Npts:       tr.Npts(),
			SampleRate: tr.SampleRate,
		})
	}
	return previews
}

// sourceKey groups records into traces.
func sourceKey(network, station, location, channel string) string {
	return strings.Join([]string{network, station, location, channel}, ".")
}
