package seismic

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"seismcp/internal/domain"
	"seismcp/internal/infra/mseed"
)

const (
	plotMaxPoints   = 3000
	traceOffsetGap  = 2.5
	plotWidthInches = 12
)

// SavePlot renders a record section PNG: each trace normalized to unit
// amplitude and stacked with a fixed offset, picks marked as points.
func SavePlot(path, title string, stream *mseed.Stream, picks []domain.Pick) error {
	if len(stream.Traces) == 0 {
		return fmt.Errorf("plot: empty stream")
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "seconds"
	p.Y.Label.Text = "trace"

	t0 := stream.Traces[0].Start
	for _, tr := range stream.Traces {
		if tr.Start.Before(t0) {
			t0 = tr.Start
		}
	}

	pickTimes := make(map[string]time.Time, len(picks))
	for _, pk := range picks {
		pickTimes[pk.TraceID] = pk.Time
	}

	var marks plotter.XYs
	for i, tr := range stream.Traces {
		offset := float64(i) * traceOffsetGap
		line, err := plotter.NewLine(traceXYs(tr, t0, offset))
		if err != nil {
			return fmt.Errorf("plot: %w", err)
		}
		p.Add(line)
		p.Legend.Add(tr.ID(), line)

		if pt, ok := pickTimes[tr.ID()]; ok {
			marks = append(marks, plotter.XY{X: pt.Sub(t0).Seconds(), Y: offset})
		}
	}
	if len(marks) > 0 {
		scatter, err := plotter.NewScatter(marks)
		if err != nil {
			return fmt.Errorf("plot: %w", err)
		}
		p.Add(scatter)
	}

	height := vg.Length(2+len(stream.Traces)) * vg.Inch
	if height > 24*vg.Inch {
		height = 24 * vg.Inch
	}
	if err := p.Save(plotWidthInches*vg.Inch, height, path); err != nil {
		return fmt.Errorf("plot: %w", err)
	}
	return nil
}

// traceXYs normalizes and decimates a trace for plotting.
func traceXYs(tr *mseed.Trace, t0 time.Time, offset float64) plotter.XYs {
	var peak float64
	for _, s := range tr.Samples {
		if a := math.Abs(s); a > peak {
			peak = a
		}
	}
	if peak == 0 {
		peak = 1
	}

	step := 1
	if tr.Npts() > plotMaxPoints {
		step = tr.Npts() / plotMaxPoints
	}
	startOffset := tr.Start.Sub(t0).Seconds()

	xys := make(plotter.XYs, 0, tr.Npts()/step+1)
	for i := 0; i < tr.Npts(); i += step {
		xys = append(xys, plotter.XY{
			X: startOffset + float64(i)/tr.SampleRate,
			Y: offset + tr.Samples[i]/peak,
		})
	}
	return xys
}
