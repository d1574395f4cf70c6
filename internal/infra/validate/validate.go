// Package validate bounds waveform downloads before and after they
// happen. The pre-download check works from a size ballpark; the
// post-download check re-validates the actual stream against the same
// limits. Both honor the override contract: a caller may force
// acceptance only with a non-empty justification, and the estimate is
// still computed and returned.
package validate

import (
	"fmt"
	"strings"
	"time"

	"seismcp/internal/domain"
)

// Options carries the caller-controlled knobs shared by every check.
type Options struct {
	// SampleRateHint overrides the assumed sampling rate used by the
	// byte estimate. Zero means domain.DefaultAssumedSampleRate.
	SampleRateHint float64
	// TraceCountHint overrides the assumed trace count. Zero means
	// domain.DefaultAssumedTraces.
	TraceCountHint int
	// Override forces acceptance of a limit breach. Requires Reason.
	Override bool
	// Reason is the justification recorded alongside an override.
	Reason string
}

func (o Options) sampleRate() float64 {
	if o.SampleRateHint > 0 {
		return o.SampleRateHint
	}
	return domain.DefaultAssumedSampleRate
}

func (o Options) traceCount() int {
	if o.TraceCountHint > 0 {
		return o.TraceCountHint
	}
	return domain.DefaultAssumedTraces
}

// requireOverride converts a limit breach into either an override
// acceptance or a structured rejection. The breach error is returned
// unless the caller both requested an override and justified it.
func requireOverride(opts Options, breach *domain.Error) error {
	if !opts.Override {
		return breach
	}
	if strings.TrimSpace(opts.Reason) == "" {
		return domain.E(domain.CodeOverrideReasonMissing, breach.Op,
			breach.Message+" override requested without a justification", nil)
	}
	return nil
}

// Request runs the pre-download check for a single waveform window and
// returns the computed estimate. The estimate is returned even when the
// request is only accepted via override.
func Request(start, end time.Time, opts Options, limits domain.Limits) (domain.Estimate, error) {
	const op = "validate.Request"

	if start.IsZero() || end.IsZero() {
		return domain.Estimate{}, domain.E(domain.CodeMalformedWindow, op,
			"waveform request must include starttime and endtime", nil)
	}
	if !end.After(start) {
		return domain.Estimate{}, domain.E(domain.CodeMalformedWindow, op,
			"endtime must be strictly after starttime", nil)
	}

	duration := end.Sub(start).Seconds()
	rate := opts.sampleRate()
	traces := opts.traceCount()
	est := domain.Estimate{
		DurationSeconds:   duration,
		AssumedSampleRate: rate,
		AssumedTraceCount: traces,
		EstimatedBytes:    EstimateBytes(traces, duration, rate),
	}

	if duration > float64(limits.MaxSeconds) {
		breach := domain.E(domain.CodeDurationExceeded, op,
			fmt.Sprintf("requested duration %.0fs exceeds max_seconds=%d.", duration, limits.MaxSeconds), nil)
		if err := requireOverride(opts, breach); err != nil {
			return est, err
		}
	}
	if est.EstimatedBytes > limits.MaxEstimatedBytes {
		breach := domain.E(domain.CodeSizeExceeded, op,
			fmt.Sprintf("estimated size %.1fMB exceeds max_estimated_bytes=%.1fMB.",
				float64(est.EstimatedBytes)/1024/1024, float64(limits.MaxEstimatedBytes)/1024/1024), nil)
		if err := requireOverride(opts, breach); err != nil {
			return est, err
		}
	}

	return est, nil
}

// Stream runs the authoritative post-download check against the actual
// stream statistics, using the same override contract as Request.
func Stream(stats domain.StreamStats, opts Options, limits domain.Limits) error {
	const op = "validate.Stream"

	if stats.TraceCount > limits.MaxTraces {
		breach := domain.E(domain.CodeTraceCountExceeded, op,
			fmt.Sprintf("downloaded trace_count %d exceeds max_traces=%d.", stats.TraceCount, limits.MaxTraces), nil)
		if err := requireOverride(opts, breach); err != nil {
			return err
		}
	}
	if stats.TotalSamples > limits.MaxTotalSamples {
		breach := domain.E(domain.CodeSampleCountExceeded, op,
			fmt.Sprintf("downloaded total_samples %d exceeds max_total_samples=%d.", stats.TotalSamples, limits.MaxTotalSamples), nil)
		if err := requireOverride(opts, breach); err != nil {
			return err
		}
	}
	if stats.EstimatedBytes > limits.MaxEstimatedBytes {
		breach := domain.E(domain.CodeSizeExceeded, op,
			fmt.Sprintf("downloaded bytes %d exceed max_estimated_bytes=%d.", stats.EstimatedBytes, limits.MaxEstimatedBytes), nil)
		if err := requireOverride(opts, breach); err != nil {
			return err
		}
	}
	return nil
}

// BulkLine is one normalized [net, sta, loc, cha, start, end] request.
type BulkLine struct {
	Network  string
	Station  string
	Location string
	Channel  string
	Start    time.Time
	End      time.Time
}

// BulkEstimate summarizes a validated bulk request.
type BulkEstimate struct {
	LineCount         int     `json:"bulk_count"`
	TotalSeconds      float64 `json:"total_seconds_sum"`
	AssumedSampleRate float64 `json:"sampling_rate_assumed_hz"`
	EstimatedBytes    int64   `json:"estimated_bytes"`
}

// Bulk validates each line's window individually and the aggregate size
// estimate, treating every line as one expected trace.
func Bulk(lines []BulkLine, opts Options, limits domain.Limits) (BulkEstimate, error) {
	const op = "validate.Bulk"

	if len(lines) == 0 {
		return BulkEstimate{}, domain.E(domain.CodeBadRequest, op, "bulk_lines is empty", nil)
	}
	if len(lines) > limits.MaxTraces {
		breach := domain.E(domain.CodeTraceCountExceeded, op,
			fmt.Sprintf("bulk_lines count %d exceeds max_traces=%d.", len(lines), limits.MaxTraces), nil)
		if err := requireOverride(opts, breach); err != nil {
			return BulkEstimate{}, err
		}
	}

	var totalSeconds float64
	for i, line := range lines {
		if line.Start.IsZero() || line.End.IsZero() || !line.End.After(line.Start) {
			return BulkEstimate{}, domain.E(domain.CodeMalformedWindow, op,
				fmt.Sprintf("bulk_lines[%d] endtime must be strictly after starttime", i), nil)
		}
		duration := line.End.Sub(line.Start).Seconds()
		if duration > float64(limits.MaxSeconds) {
			breach := domain.E(domain.CodeDurationExceeded, op,
				fmt.Sprintf("bulk_lines[%d] duration %.0fs exceeds max_seconds=%d.", i, duration, limits.MaxSeconds), nil)
			if err := requireOverride(opts, breach); err != nil {
				return BulkEstimate{}, err
			}
		}
		totalSeconds += duration
	}

	rate := opts.sampleRate()
	avgSeconds := totalSeconds / float64(len(lines))
	est := BulkEstimate{
		LineCount:         len(lines),
		TotalSeconds:      totalSeconds,
		AssumedSampleRate: rate,
		EstimatedBytes:    EstimateBytes(len(lines), avgSeconds, rate),
	}

	if est.EstimatedBytes > limits.MaxEstimatedBytes {
		breach := domain.E(domain.CodeSizeExceeded, op,
			fmt.Sprintf("estimated size %.1fMB exceeds max_estimated_bytes=%.1fMB.",
				float64(est.EstimatedBytes)/1024/1024, float64(limits.MaxEstimatedBytes)/1024/1024), nil)
		if err := requireOverride(opts, breach); err != nil {
			return est, err
		}
	}

	return est, nil
}

// EstimateBytes is the shared size heuristic: samples × 4 bytes.
func EstimateBytes(traceCount int, seconds, sampleRate float64) int64 {
	totalSamples := int64(seconds * sampleRate * float64(traceCount))
	return totalSamples * domain.BytesPerSample
}
