package seismic

import (
	"go.uber.org/zap"

	"seismcp/internal/domain"
	"seismcp/internal/infra/mseed"
	"seismcp/internal/infra/stationxml"
)

// Bandpass corners in Hz, fixed for the teleseismic processing chain.
const (
	BandpassLowHz  = 0.01
	BandpassHighHz = 1.0
)

// Result summarizes one pipeline run.
type Result struct {
	Picks       []domain.Pick
	Corrected   int
	Uncorrected []string
	Dropped     []string
}

// Pipeline applies the fixed processing chain to a stream in place:
// demean and linear detrend, 5% cosine taper, Butterworth bandpass,
// instrument response removal, then STA/LTA picking per trace.
type Pipeline struct {
	logger *zap.Logger
}

// NewPipeline builds a pipeline with the given logger.
func NewPipeline(logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{logger: logger.Named("pipeline")}
}

// Run processes every trace. Traces whose bandpass corners collide
// with their Nyquist frequency are dropped from the stream; traces
// with no sensitivity in the inventory stay in counts and are listed
// as uncorrected.
func (p *Pipeline) Run(stream *mseed.Stream, inv *stationxml.Inventory) (Result, error) {
	var res Result
	kept := stream.Traces[:0]

	for _, tr := range stream.Traces {
		if tr.Npts() == 0 || tr.SampleRate <= 0 {
			res.Dropped = append(res.Dropped, tr.ID())
			continue
		}

		DetrendLinear(tr.Samples)
		CosineTaper(tr.Samples, 0.05)

		if err := Bandpass(tr.Samples, tr.SampleRate, BandpassLowHz, BandpassHighHz); err != nil {
			p.logger.Warn("dropping trace, bandpass corners unusable",
				zap.String("trace", tr.ID()),
				zap.Float64("sample_rate", tr.SampleRate),
				zap.Error(err))
			res.Dropped = append(res.Dropped, tr.ID())
			continue
		}

		corrected := false
		if inv != nil {
			if sens, ok := inv.Sensitivity(tr.Network, tr.Station, tr.Location, tr.Channel); ok && sens.Value != 0 {
				pre := DefaultPreFilter(tr.Nyquist())
				if err := RemoveResponse(tr.Samples, tr.SampleRate, sens.Value, pre); err != nil {
					return res, err
				}
				corrected = true
			}
		}
		if corrected {
			res.Corrected++
		} else {
			res.Uncorrected = append(res.Uncorrected, tr.ID())
		}

		if pick, ok := Pick(tr); ok {
			res.Picks = append(res.Picks, pick)
		}
		kept = append(kept, tr)
	}

	stream.Traces = kept
	p.logger.Info("pipeline complete",
		zap.Int("traces", len(stream.Traces)),
		zap.Int("corrected", res.Corrected),
		zap.Int("picks", len(res.Picks)),
		zap.Int("dropped", len(res.Dropped)))
	return res, nil
}
