package domain

import "time"

// Limits caps waveform downloads. Immutable after construction; callers
// receive it by value and never mutate it.
type Limits struct {
	MaxSeconds        int   `json:"max_seconds"`
	MaxTraces         int   `json:"max_traces"`
	MaxTotalSamples   int64 `json:"max_total_samples"`
	MaxEstimatedBytes int64 `json:"max_estimated_bytes"`
}

// WaveformRequest is the ephemeral per-call download request. Only its
// hash and the derived artifact survive the call.
type WaveformRequest struct {
	Network  string
	Station  string
	Location string
	Channel  string
	Start    time.Time
	End      time.Time
}

// Duration returns the requested window length.
func (r WaveformRequest) Duration() time.Duration {
	return r.End.Sub(r.Start)
}

// Estimate is the pre-download size ballpark returned by validation.
type Estimate struct {
	DurationSeconds   float64 `json:"duration_seconds"`
	AssumedSampleRate float64 `json:"sampling_rate_assumed_hz"`
	AssumedTraceCount int     `json:"assumed_trace_count_for_estimate"`
	EstimatedBytes    int64   `json:"estimated_bytes"`
}

// StreamStats are the authoritative post-download numbers.
type StreamStats struct {
	TraceCount     int   `json:"trace_count"`
	TotalSamples   int64 `json:"total_samples"`
	EstimatedBytes int64 `json:"estimated_bytes"`
}

// EventSummary is the compact event record returned to the agent.
type EventSummary struct {
	ID            string  `json:"id"`
	Time          string  `json:"time"`
	Latitude      float64 `json:"latitude"`
	Longitude     float64 `json:"longitude"`
	DepthKm       float64 `json:"depth_km"`
	Magnitude     float64 `json:"magnitude"`
	MagnitudeType string  `json:"magnitude_type,omitempty"`
	Description   string  `json:"description,omitempty"`
}

// StationSummary is the compact station record returned to the agent.
type StationSummary struct {
	Network    string  `json:"network"`
	Station    string  `json:"station"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	ElevationM float64 `json:"elevation_m"`
}

// TracePreview is the per-trace digest included in download responses.
type TracePreview struct {
	ID         string  `json:"id"`
	Npts       int     `json:"npts"`
	SampleRate float64 `json:"sr"`
}

// Pick is a detected phase onset for one trace.
type Pick struct {
	TraceID string    `json:"trace_id"`
	Time    time.Time `json:"time"`
}

// ArtifactKind prefixes output filenames.
type ArtifactKind string

const (
	ArtifactEvents    ArtifactKind = "events"
	ArtifactStations  ArtifactKind = "stations"
	ArtifactWaveforms ArtifactKind = "waveforms"
	ArtifactBulk      ArtifactKind = "waveforms_bulk"
	ArtifactProcessed ArtifactKind = "processed"
)

// OutputFormat selects the on-disk representation of an artifact.
type OutputFormat string

const (
	FormatMiniSEED   OutputFormat = "mseed"
	FormatSAC        OutputFormat = "sac"
	FormatQuakeML    OutputFormat = "quakeml"
	FormatStationXML OutputFormat = "stationxml"
	FormatJSON       OutputFormat = "json"
)

// Manifest is the write-once provenance sidecar stored next to every
// artifact.
type Manifest struct {
	RunID           string         `json:"run_id"`
	Tool            string         `json:"tool"`
	Provider        string         `json:"provider"`
	RequestKwargs   map[string]any `json:"request_kwargs,omitempty"`
	BulkLines       [][]any        `json:"bulk_lines,omitempty"`
	OutFormat       string         `json:"out_format,omitempty"`
	OutputFile      string         `json:"output_file"`
	Limits          *Limits        `json:"limits,omitempty"`
	Override        bool           `json:"override,omitempty"`
	OverrideReason  string         `json:"override_reason,omitempty"`
	DownloadSeconds float64        `json:"download_seconds"`
	StreamStats     *StreamStats   `json:"stream_stats,omitempty"`
	EventCount      int            `json:"event_count,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
}
