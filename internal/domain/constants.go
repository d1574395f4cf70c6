package domain

// Default limits, matching the documented environment defaults.
const (
	DefaultMaxSeconds        = 3600
	DefaultMaxTraces         = 300
	DefaultMaxTotalSamples   = 50_000_000
	DefaultMaxEstimatedBytes = 300 * 1024 * 1024
)

// Estimation defaults for pre-download validation: a three-component
// broadband station recording at 100 Hz with 4-byte samples.
const (
	DefaultAssumedSampleRate = 100.0
	DefaultAssumedTraces     = 3
	BytesPerSample           = 4
)

const (
	DefaultDataDir            = "data"
	DefaultProvider           = "IRIS"
	DefaultFDSNTimeoutSeconds = 60
	DefaultMetricsListen      = ""
)

// Station list responses are capped to keep tool outputs manageable.
const MaxStationResults = 200

// Download responses include at most this many per-trace previews.
const MaxTracePreviews = 20
