package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"seismcp/internal/domain"
)

// Params tune the research workflow. Zero values fall back to the
// survey defaults: strong recent teleseisms recorded on nearby
// broadband channels.
type Params struct {
	Provider         string
	MinMagnitude     float64
	LookbackDays     int
	RadiusDeg        float64
	Channel          string
	MaxStations      int
	PreEventSeconds  int
	PostEventSeconds int
	Now              time.Time
}

func (p Params) withDefaults() Params {
	if p.MinMagnitude <= 0 {
		p.MinMagnitude = 7.0
	}
	if p.LookbackDays <= 0 {
		p.LookbackDays = 90
	}
	if p.RadiusDeg <= 0 {
		p.RadiusDeg = 2.0
	}
	if p.Channel == "" {
		p.Channel = "BH?"
	}
	if p.MaxStations <= 0 {
		p.MaxStations = 25
	}
	if p.PreEventSeconds <= 0 {
		p.PreEventSeconds = 300
	}
	if p.PostEventSeconds <= 0 {
		p.PostEventSeconds = 1800
	}
	if p.Now.IsZero() {
		p.Now = time.Now().UTC()
	}
	return p
}

// Attempt records one station try.
type Attempt struct {
	Station string `json:"station"`
	Outcome string `json:"outcome"`
	Detail  string `json:"detail,omitempty"`
}

// RunSummary is the machine-readable record of one workflow run, also
// fed to the narrator.
type RunSummary struct {
	Provider   string                 `json:"provider"`
	Event      map[string]any         `json:"event,omitempty"`
	Candidates []domain.StationSummary `json:"station_candidates,omitempty"`
	Attempts   []Attempt              `json:"attempts,omitempty"`
	Processed  map[string]any         `json:"processed,omitempty"`
	Narrative  string                 `json:"narrative,omitempty"`
}

// Workflow runs the fixed acquisition recipe: find a strong recent
// event, find nearby broadband stations, validate the download
// window, then process the first station that yields usable data.
type Workflow struct {
	caller   ToolCaller
	narrator *Narrator
	logger   *zap.Logger
	params   Params
}

// NewWorkflow builds a workflow. narrator may be nil, which skips the
// prose report.
func NewWorkflow(caller ToolCaller, narrator *Narrator, logger *zap.Logger, params Params) *Workflow {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Workflow{
		caller:   caller,
		narrator: narrator,
		logger:   logger.Named("workflow"),
		params:   params.withDefaults(),
	}
}

// providerOrder is the fallback sequence: the requested provider
// first, then the well-known data centers.
func providerOrder(requested string) []string {
	order := []string{}
	seen := map[string]bool{}
	for _, p := range []string{requested, "IRIS", "USGS", "EMSC"} {
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		order = append(order, p)
	}
	return order
}

// Run executes the workflow end to end.
func (w *Workflow) Run(ctx context.Context) (*RunSummary, error) {
	summary := &RunSummary{}

	event, provider, err := w.findEvent(ctx, summary)
	if err != nil {
		return summary, err
	}
	summary.Provider = provider
	summary.Event = event

	candidates, err := w.findStations(ctx, provider, event)
	if err != nil {
		return summary, err
	}
	summary.Candidates = candidates
	if len(candidates) == 0 {
		return summary, fmt.Errorf("no stations within %.1f degrees of the event", w.params.RadiusDeg)
	}

	if err := w.acquire(ctx, provider, event, candidates, summary); err != nil {
		return summary, err
	}

	if w.narrator != nil {
		raw, merr := json.Marshal(summary)
		if merr == nil {
			narrative, nerr := w.narrator.Narrate(ctx, string(raw))
			if nerr != nil {
				w.logger.Warn("narration failed", zap.Error(nerr))
			} else {
				summary.Narrative = narrative
			}
		}
	}
	return summary, nil
}

// findEvent walks the provider fallback chain until a catalog returns
// at least one matching event, then picks the strongest.
func (w *Workflow) findEvent(ctx context.Context, summary *RunSummary) (map[string]any, string, error) {
	start := w.params.Now.AddDate(0, 0, -w.params.LookbackDays)
	var lastErr string

	for _, provider := range providerOrder(w.params.Provider) {
		payload, err := w.caller.CallTool(ctx, "search_events", map[string]any{
			"provider":      provider,
			"starttime":     start.Format("2006-01-02T15:04:05"),
			"endtime":       w.params.Now.Format("2006-01-02T15:04:05"),
			"min_magnitude": w.params.MinMagnitude,
		})
		if err != nil {
			return nil, "", err
		}
		if !payloadOK(payload) {
			lastErr = payloadError(payload)
			w.logger.Warn("event search failed, trying next provider",
				zap.String("provider", provider), zap.String("error", lastErr))
			summary.Attempts = append(summary.Attempts, Attempt{
				Station: "", Outcome: "provider_failed",
				Detail: provider + ": " + lastErr,
			})
			continue
		}

		events, _ := payload["events"].([]any)
		if len(events) == 0 {
			w.logger.Info("no matching events, trying next provider", zap.String("provider", provider))
			continue
		}
		return strongestEvent(events), provider, nil
	}
	return nil, "", fmt.Errorf("no provider returned events (last error: %s)", lastErr)
}

// strongestEvent returns the event with the largest magnitude.
func strongestEvent(events []any) map[string]any {
	var best map[string]any
	bestMag := -1.0
	for _, raw := range events {
		event, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		mag, _ := event["magnitude"].(float64)
		if mag > bestMag {
			best = event
			bestMag = mag
		}
	}
	return best
}

// findStations lists broadband stations near the event.
func (w *Workflow) findStations(ctx context.Context, provider string, event map[string]any) ([]domain.StationSummary, error) {
	payload, err := w.caller.CallTool(ctx, "search_stations", map[string]any{
		"provider":       provider,
		"latitude":       event["latitude"],
		"longitude":      event["longitude"],
		"max_radius_deg": w.params.RadiusDeg,
		"channel":        w.params.Channel,
	})
	if err != nil {
		return nil, err
	}
	if !payloadOK(payload) {
		return nil, fmt.Errorf("station search failed: %s", payloadError(payload))
	}

	rawStations, _ := payload["stations"].([]any)
	stations := make([]domain.StationSummary, 0, len(rawStations))
	for _, raw := range rawStations {
		entry, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		network, _ := entry["network"].(string)
		station, _ := entry["station"].(string)
		lat, _ := entry["latitude"].(float64)
		lon, _ := entry["longitude"].(float64)
		stations = append(stations, domain.StationSummary{
			Network: network, Station: station, Latitude: lat, Longitude: lon,
		})
		if len(stations) == w.params.MaxStations {
			break
		}
	}
	return stations, nil
}

// acquire validates and processes station candidates in order until
// one yields a processed stream.
func (w *Workflow) acquire(ctx context.Context, provider string, event map[string]any, candidates []domain.StationSummary, summary *RunSummary) error {
	eventTime, err := eventTimeOf(event)
	if err != nil {
		return err
	}
	windowStart := eventTime.Add(-time.Duration(w.params.PreEventSeconds) * time.Second)
	windowEnd := eventTime.Add(time.Duration(w.params.PostEventSeconds) * time.Second)

	for _, candidate := range candidates {
		label := candidate.Network + "." + candidate.Station

		check, err := w.caller.CallTool(ctx, "validate_only", map[string]any{
			"starttime": windowStart.Format("2006-01-02T15:04:05"),
			"endtime":   windowEnd.Format("2006-01-02T15:04:05"),
		})
		if err != nil {
			return err
		}
		if !payloadOK(check) {
			summary.Attempts = append(summary.Attempts, Attempt{
				Station: label, Outcome: "rejected", Detail: payloadError(check),
			})
			w.logger.Warn("window rejected by limits, skipping station",
				zap.String("station", label), zap.String("detail", payloadError(check)))
			continue
		}

		processed, err := w.caller.CallTool(ctx, "full_process", map[string]any{
			"provider":  provider,
			"network":   candidate.Network,
			"station":   candidate.Station,
			"channel":   w.params.Channel,
			"starttime": windowStart.Format("2006-01-02T15:04:05"),
			"endtime":   windowEnd.Format("2006-01-02T15:04:05"),
		})
		if err != nil {
			return err
		}
		if !payloadOK(processed) {
			summary.Attempts = append(summary.Attempts, Attempt{
				Station: label, Outcome: "failed", Detail: payloadError(processed),
			})
			w.logger.Warn("processing failed, trying next station",
				zap.String("station", label), zap.String("detail", payloadError(processed)))
			continue
		}

		summary.Attempts = append(summary.Attempts, Attempt{Station: label, Outcome: "processed"})
		summary.Processed = processed
		w.logger.Info("station processed", zap.String("station", label))
		return nil
	}
	return fmt.Errorf("no station candidate produced usable data")
}

// eventTimeOf parses the event time field returned by search_events.
func eventTimeOf(event map[string]any) (time.Time, error) {
	raw, _ := event["time"].(string)
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("event has no parseable time: %q", raw)
}
