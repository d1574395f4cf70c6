package facade

import (
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// NewServer builds an MCP server exposing the full toolbox.
func (s *Service) NewServer(version string) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "seismcp",
		Version: version,
	}, &mcp.ServerOptions{
		HasTools: true,
	})
	s.Register(server)
	return server
}

// Register attaches every tool to the server.
func (s *Service) Register(server *mcp.Server) {
	for _, def := range s.toolDefinitions() {
		tool := def.tool
		server.AddTool(&tool, s.handler(tool.Name, def.fn))
	}
}

type toolDef struct {
	tool mcp.Tool
	fn   func(ctx context.Context, raw json.RawMessage) (any, error)
}

func (s *Service) toolDefinitions() []toolDef {
	return []toolDef{
		{listServicesTool(), s.listServices},
		{searchEventsTool(), s.searchEvents},
		{searchStationsTool(), s.searchStations},
		{validateOnlyTool(), s.validateOnly},
		{downloadEventsTool(), s.downloadEvents},
		{downloadStationsTool(), s.downloadStations},
		{downloadWaveformsTool(), s.downloadWaveforms},
		{downloadWaveformsBulkTool(), s.downloadWaveformsBulk},
		{fullProcessTool(), s.fullProcess},
		{listArtifactsTool(), s.listArtifacts},
	}
}

func listServicesTool() mcp.Tool {
	return mcp.Tool{
		Name:        "list_fdsn_services",
		Description: "List the known FDSN data centers and the configured default provider.",
		InputSchema: map[string]any{"type": "object", "properties": map[string]any{}},
	}
}

func searchEventsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_events",
		Description: "Search an FDSN event catalog. Returns event summaries inline without writing artifacts.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"provider":       providerProp(),
				"starttime":      timeProp("Window start"),
				"endtime":        timeProp("Window end"),
				"min_magnitude":  map[string]any{"type": "number", "description": "Minimum magnitude filter."},
				"latitude":       map[string]any{"type": "number"},
				"longitude":      map[string]any{"type": "number"},
				"max_radius_deg": map[string]any{"type": "number", "description": "Radial search around latitude/longitude, in degrees."},
				"limit":          map[string]any{"type": "integer"},
			},
			"required": []any{"starttime", "endtime"},
		},
	}
}

func searchStationsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_stations",
		Description: "Search FDSN station metadata. Returns station summaries inline without writing artifacts.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"provider":       providerProp(),
				"network":        map[string]any{"type": "string", "description": "SEED network code, wildcards allowed."},
				"station":        map[string]any{"type": "string"},
				"location":       map[string]any{"type": "string"},
				"channel":        map[string]any{"type": "string", "description": "Channel pattern such as BH?."},
				"starttime":      timeProp("Operating window start"),
				"endtime":        timeProp("Operating window end"),
				"latitude":       map[string]any{"type": "number"},
				"longitude":      map[string]any{"type": "number"},
				"max_radius_deg": map[string]any{"type": "number"},
			},
		},
	}
}

func validateOnlyTool() mcp.Tool {
	return mcp.Tool{
		Name:        "validate_only",
		Description: "Check a waveform or bulk request against the configured limits without downloading anything. Returns the size estimate and the limits.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"starttime":             timeProp("Window start for a single request"),
				"endtime":               timeProp("Window end for a single request"),
				"bulk":                  bulkProp(),
				"sampling_rate_hint_hz": samplingHintProp(),
				"override":              overrideProp(),
				"override_reason":       overrideReasonProp(),
			},
		},
	}
}

func downloadEventsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "download_events",
		Description: "Download an event catalog to the data directory as QuakeML (default) or a JSON summary, with a provenance manifest.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"provider":       providerProp(),
				"starttime":      timeProp("Window start"),
				"endtime":        timeProp("Window end"),
				"min_magnitude":  map[string]any{"type": "number"},
				"latitude":       map[string]any{"type": "number"},
				"longitude":      map[string]any{"type": "number"},
				"max_radius_deg": map[string]any{"type": "number"},
				"limit":          map[string]any{"type": "integer"},
				"out_format":     map[string]any{"type": "string", "enum": []any{"quakeml", "json"}},
				"save_manifest":  saveManifestProp(),
			},
			"required": []any{"starttime", "endtime"},
		},
	}
}

func downloadStationsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "download_stations",
		Description: "Download station metadata to the data directory, response level StationXML by default so the result can drive instrument correction.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"provider":       providerProp(),
				"network":        map[string]any{"type": "string"},
				"station":        map[string]any{"type": "string"},
				"location":       map[string]any{"type": "string"},
				"channel":        map[string]any{"type": "string"},
				"starttime":      timeProp("Operating window start"),
				"endtime":        timeProp("Operating window end"),
				"latitude":       map[string]any{"type": "number"},
				"longitude":      map[string]any{"type": "number"},
				"max_radius_deg": map[string]any{"type": "number"},
				"out_format":     map[string]any{"type": "string", "enum": []any{"stationxml", "json"}},
				"save_manifest":  saveManifestProp(),
			},
		},
	}
}

func downloadWaveformsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "download_waveforms",
		Description: "Download waveforms for one channel selection. The window is validated against the configured limits before any network call; the downloaded stream is checked again before it is written. Set dry_run to preview the estimate and target path.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"provider":              providerProp(),
				"network":               map[string]any{"type": "string"},
				"station":               map[string]any{"type": "string"},
				"location":              map[string]any{"type": "string"},
				"channel":               map[string]any{"type": "string"},
				"starttime":             timeProp("Window start"),
				"endtime":               timeProp("Window end"),
				"sampling_rate_hint_hz": samplingHintProp(),
				"override":              overrideProp(),
				"override_reason":       overrideReasonProp(),
				"dry_run":               dryRunProp(),
				"out_format":            map[string]any{"type": "string", "enum": []any{"mseed", "json"}},
				"save_manifest":         saveManifestProp(),
			},
			"required": []any{"network", "station", "channel", "starttime", "endtime"},
		},
	}
}

func downloadWaveformsBulkTool() mcp.Tool {
	return mcp.Tool{
		Name:        "download_waveforms_bulk",
		Description: "Download many waveform windows in one dataselect request. The summed duration is validated before the call; the combined stream is checked again before writing.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"provider":              providerProp(),
				"bulk":                  bulkProp(),
				"sampling_rate_hint_hz": samplingHintProp(),
				"override":              overrideProp(),
				"override_reason":       overrideReasonProp(),
				"dry_run":               dryRunProp(),
				"out_format":            map[string]any{"type": "string", "enum": []any{"mseed", "json"}},
				"save_manifest":         saveManifestProp(),
			},
			"required": []any{"bulk"},
		},
	}
}

func fullProcessTool() mcp.Tool {
	return mcp.Tool{
		Name:        "full_process",
		Description: "Download, validate, and process waveforms in one call: detrend, taper, bandpass, remove the instrument response, pick arrivals with STA/LTA, and save the processed stream plus a record section plot.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"provider":              providerProp(),
				"network":               map[string]any{"type": "string"},
				"station":               map[string]any{"type": "string"},
				"location":              map[string]any{"type": "string"},
				"channel":               map[string]any{"type": "string"},
				"starttime":             timeProp("Window start"),
				"endtime":               timeProp("Window end"),
				"sampling_rate_hint_hz": samplingHintProp(),
				"override":              overrideProp(),
				"override_reason":       overrideReasonProp(),
				"dry_run":               dryRunProp(),
				"save_manifest":         saveManifestProp(),
			},
			"required": []any{"network", "station", "channel", "starttime", "endtime"},
		},
	}
}

func listArtifactsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "list_artifacts",
		Description: "List artifacts previously written to the data directory, with their manifests.",
		InputSchema: map[string]any{"type": "object", "properties": map[string]any{}},
	}
}

func providerProp() map[string]any {
	return map[string]any{
		"type":        "string",
		"description": "FDSN provider name (IRIS, USGS, EMSC) or a service root URL. Defaults to the configured provider.",
	}
}

func timeProp(desc string) map[string]any {
	return map[string]any{
		"type":        "string",
		"description": desc + ", ISO-8601 (e.g. 2024-01-01T00:00:00).",
	}
}

func bulkProp() map[string]any {
	return map[string]any{
		"type":        "array",
		"description": "Request lines, each [network, station, location, channel, starttime, endtime].",
		"items": map[string]any{
			"type":     "array",
			"items":    map[string]any{"type": "string"},
			"minItems": 6,
			"maxItems": 6,
		},
	}
}

func samplingHintProp() map[string]any {
	return map[string]any{
		"type":        "number",
		"description": "Expected sampling rate in Hz, used only to sharpen the size estimate.",
	}
}

func overrideProp() map[string]any {
	return map[string]any{
		"type":        "boolean",
		"description": "Accept a request that breaches the limits. Requires override_reason.",
	}
}

func overrideReasonProp() map[string]any {
	return map[string]any{
		"type":        "string",
		"description": "Justification recorded in the manifest when override is set.",
	}
}

func dryRunProp() map[string]any {
	return map[string]any{
		"type":        "boolean",
		"description": "Validate and report the target path without downloading.",
	}
}

func saveManifestProp() map[string]any {
	return map[string]any{
		"type":        "boolean",
		"description": "Write the provenance manifest sidecar. Defaults to true.",
	}
}
