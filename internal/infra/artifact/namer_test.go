package artifact

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seismcp/internal/domain"
)

func TestHashRequestKeyOrderIndependent(t *testing.T) {
	a := map[string]any{"starttime": "2024-01-01T00:00:00", "station": "A"}
	b := map[string]any{"station": "A", "starttime": "2024-01-01T00:00:00"}

	ha, err := HashRequest(a)
	require.NoError(t, err)
	hb, err := HashRequest(b)
	require.NoError(t, err)

	assert.Equal(t, ha, hb)
	assert.Len(t, ha, 12)
}

func TestHashRequestTimeRepresentationIndependent(t *testing.T) {
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	asString, err := HashRequest(map[string]any{"starttime": "2024-01-01T00:00:00", "station": "A"})
	require.NoError(t, err)
	asStruct, err := HashRequest(map[string]any{"starttime": ts, "station": "A"})
	require.NoError(t, err)
	asZoned, err := HashRequest(map[string]any{"starttime": "2024-01-01T00:00:00Z", "station": "A"})
	require.NoError(t, err)

	assert.Equal(t, asString, asStruct)
	assert.Equal(t, asString, asZoned)
}

func TestHashRequestDistinguishesRequests(t *testing.T) {
	ha, err := HashRequest(map[string]any{"station": "ANMO"})
	require.NoError(t, err)
	hb, err := HashRequest(map[string]any{"station": "COLA"})
	require.NoError(t, err)
	assert.NotEqual(t, ha, hb)
}

func TestNormalizeNested(t *testing.T) {
	in := map[string]any{
		"kwargs": map[string]any{
			"endtime": "2024-06-01T12:30:00",
			"list":    []any{map[string]any{"time": "2024-06-01"}},
		},
	}
	out, ok := Normalize(in).(map[string]any)
	require.True(t, ok)
	kwargs := out["kwargs"].(map[string]any)
	assert.Equal(t, "2024-06-01T12:30:00Z", kwargs["endtime"])
	inner := kwargs["list"].([]any)[0].(map[string]any)
	assert.Equal(t, "2024-06-01T00:00:00Z", inner["time"])
}

func TestParseTimeRejectsGarbage(t *testing.T) {
	_, err := ParseTime("not-a-time")
	assert.Error(t, err)
}

func TestExtension(t *testing.T) {
	tests := []struct {
		kind   domain.ArtifactKind
		format domain.OutputFormat
		want   string
	}{
		{domain.ArtifactEvents, domain.FormatQuakeML, "xml"},
		{domain.ArtifactEvents, domain.FormatJSON, "json"},
		{domain.ArtifactStations, domain.FormatStationXML, "xml"},
		{domain.ArtifactStations, "csv", "json"},
		{domain.ArtifactWaveforms, domain.FormatMiniSEED, "mseed"},
		{domain.ArtifactWaveforms, domain.FormatSAC, "sac"},
		{domain.ArtifactWaveforms, "avro", "json"},
		{domain.ArtifactProcessed, domain.FormatMiniSEED, "mseed"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, Extension(tc.kind, tc.format), "%s/%s", tc.kind, tc.format)
	}
}

func TestNamerPaths(t *testing.T) {
	n := NewNamer("/data")
	assert.Equal(t, filepath.Join("/data", "waveforms_IRIS_abc123def456.mseed"),
		n.ArtifactPath("waveforms_IRIS", "abc123def456", "mseed"))
	assert.Equal(t, filepath.Join("/data", "waveforms_IRIS_abc123def456.manifest.json"),
		n.ManifestPath("waveforms_IRIS", "abc123def456"))
}

func TestSafeName(t *testing.T) {
	assert.Equal(t, "events_USGS", SafeName("events_USGS"))
	assert.Equal(t, "a_b_c.d-e", SafeName("a b/c.d-e"))
}

func TestIndexRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	idx, err := OpenIndex(path)
	require.NoError(t, err)
	defer idx.Close()

	entry := Entry{
		ID:        "abc123def456",
		Kind:      domain.ArtifactWaveforms,
		Tool:      "download_waveforms",
		Provider:  "IRIS",
		Path:      "/data/waveforms_abc123def456.mseed",
		CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, idx.Put(entry))
	// Idempotent overwrite.
	require.NoError(t, idx.Put(entry))

	entries, err := idx.List()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, entry.ID, entries[0].ID)
	assert.Equal(t, entry.Path, entries[0].Path)
}
