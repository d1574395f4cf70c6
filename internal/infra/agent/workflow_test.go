package agent

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCaller scripts tool responses and records the calls it sees.
type fakeCaller struct {
	calls     []string
	responses map[string][]map[string]any
	offsets   map[string]int
}

func newFakeCaller() *fakeCaller {
	return &fakeCaller{
		responses: map[string][]map[string]any{},
		offsets:   map[string]int{},
	}
}

func (f *fakeCaller) on(tool string, payloads ...map[string]any) {
	f.responses[tool] = append(f.responses[tool], payloads...)
}

func (f *fakeCaller) CallTool(_ context.Context, name string, _ map[string]any) (map[string]any, error) {
	f.calls = append(f.calls, name)
	queue := f.responses[name]
	i := f.offsets[name]
	if i >= len(queue) {
		return map[string]any{"ok": false, "error": "INTERNAL", "message": "unscripted call"}, nil
	}
	f.offsets[name]++
	return queue[i], nil
}

func event(id string, mag float64) map[string]any {
	return map[string]any{
		"id": id, "magnitude": mag,
		"time":     "2024-01-01T07:10:09Z",
		"latitude": 37.5, "longitude": 137.3,
	}
}

func okEvents(events ...map[string]any) map[string]any {
	list := make([]any, len(events))
	for i, e := range events {
		list[i] = e
	}
	return map[string]any{"ok": true, "count": float64(len(events)), "events": list}
}

func okStations(names ...string) map[string]any {
	list := make([]any, len(names))
	for i, name := range names {
		list[i] = map[string]any{
			"network": "IU", "station": name,
			"latitude": 37.0, "longitude": 137.0,
		}
	}
	return map[string]any{"ok": true, "stations": list}
}

func TestProviderOrder(t *testing.T) {
	assert.Equal(t, []string{"IRIS", "USGS", "EMSC"}, providerOrder(""))
	assert.Equal(t, []string{"GEOFON", "IRIS", "USGS", "EMSC"}, providerOrder("GEOFON"))
	assert.Equal(t, []string{"USGS", "IRIS", "EMSC"}, providerOrder("USGS"))
}

func TestWorkflowHappyPath(t *testing.T) {
	caller := newFakeCaller()
	caller.on("search_events", okEvents(event("ev1", 7.2), event("ev2", 7.8)))
	caller.on("search_stations", okStations("ANMO", "COLA"))
	caller.on("validate_only", map[string]any{"ok": true})
	caller.on("full_process", map[string]any{"ok": true, "artifact_id": "abc123"})

	wf := NewWorkflow(caller, nil, nil, Params{
		Now: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
	})
	summary, err := wf.Run(context.Background())
	require.NoError(t, err)

	// The strongest event wins, not the first.
	assert.Equal(t, "ev2", summary.Event["id"])
	assert.Len(t, summary.Candidates, 2)
	require.NotNil(t, summary.Processed)
	assert.Equal(t, "abc123", summary.Processed["artifact_id"])
	require.Len(t, summary.Attempts, 1)
	assert.Equal(t, "processed", summary.Attempts[0].Outcome)
}

func TestWorkflowProviderFallback(t *testing.T) {
	caller := newFakeCaller()
	// First provider errors, second has no events, third delivers.
	caller.on("search_events",
		map[string]any{"ok": false, "error": "UPSTREAM_PROVIDER_ERROR", "message": "down"},
		okEvents(),
		okEvents(event("ev9", 7.5)))
	caller.on("search_stations", okStations("ANMO"))
	caller.on("validate_only", map[string]any{"ok": true})
	caller.on("full_process", map[string]any{"ok": true})

	wf := NewWorkflow(caller, nil, nil, Params{Now: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)})
	summary, err := wf.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "EMSC", summary.Provider)
}

func TestWorkflowSkipsFailingStations(t *testing.T) {
	caller := newFakeCaller()
	caller.on("search_events", okEvents(event("ev1", 7.1)))
	caller.on("search_stations", okStations("BAD1", "BAD2", "GOOD"))
	caller.on("validate_only",
		map[string]any{"ok": true},
		map[string]any{"ok": true},
		map[string]any{"ok": true})
	caller.on("full_process",
		map[string]any{"ok": false, "error": "UPSTREAM_PROVIDER_ERROR", "message": "no data"},
		map[string]any{"ok": false, "error": "UPSTREAM_PROVIDER_ERROR", "message": "no data"},
		map[string]any{"ok": true, "artifact_id": "ok1"})

	wf := NewWorkflow(caller, nil, nil, Params{Now: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)})
	summary, err := wf.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, summary.Attempts, 3)
	assert.Equal(t, "failed", summary.Attempts[0].Outcome)
	assert.Equal(t, "failed", summary.Attempts[1].Outcome)
	assert.Equal(t, "processed", summary.Attempts[2].Outcome)
	assert.Equal(t, "IU.GOOD", summary.Attempts[2].Station)
}

func TestWorkflowRejectedWindowSkipsStation(t *testing.T) {
	caller := newFakeCaller()
	caller.on("search_events", okEvents(event("ev1", 7.1)))
	caller.on("search_stations", okStations("ONLY"))
	caller.on("validate_only",
		map[string]any{"ok": false, "error": "DURATION_EXCEEDED", "message": "too long"})

	wf := NewWorkflow(caller, nil, nil, Params{Now: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)})
	summary, err := wf.Run(context.Background())
	require.Error(t, err)
	require.Len(t, summary.Attempts, 1)
	assert.Equal(t, "rejected", summary.Attempts[0].Outcome)
	// full_process was never reached.
	assert.NotContains(t, caller.calls, "full_process")
}

func TestWorkflowNoEventsAnywhere(t *testing.T) {
	caller := newFakeCaller()
	caller.on("search_events", okEvents(), okEvents(), okEvents())

	wf := NewWorkflow(caller, nil, nil, Params{Now: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)})
	_, err := wf.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no provider returned events")
}

func TestWorkflowDefaults(t *testing.T) {
	p := Params{}.withDefaults()
	assert.Equal(t, 7.0, p.MinMagnitude)
	assert.Equal(t, 90, p.LookbackDays)
	assert.Equal(t, 2.0, p.RadiusDeg)
	assert.Equal(t, "BH?", p.Channel)
	assert.Equal(t, 25, p.MaxStations)
	assert.Equal(t, 300, p.PreEventSeconds)
	assert.Equal(t, 1800, p.PostEventSeconds)
	assert.False(t, p.Now.IsZero())
}
