package facade

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"seismcp/internal/domain"
	"seismcp/internal/infra/artifact"
	"seismcp/internal/infra/mseed"
	"seismcp/internal/infra/validate"
)

// normalizeWaveformFormat maps the requested output format to one the
// writer supports, falling back to a JSON digest otherwise.
func normalizeWaveformFormat(requested string) (domain.OutputFormat, bool) {
	switch domain.OutputFormat(requested) {
	case "", domain.FormatMiniSEED:
		return domain.FormatMiniSEED, false
	default:
		return domain.FormatJSON, true
	}
}

// downloadEvents persists an event catalog as QuakeML or a JSON
// summary.
func (s *Service) downloadEvents(ctx context.Context, raw json.RawMessage) (any, error) {
	const op = "facade.downloadEvents"
	var args eventArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	query, err := args.query(op)
	if err != nil {
		return nil, err
	}
	client, err := s.clientFor(args.Provider)
	if err != nil {
		return nil, err
	}

	kwargs := args.kwargs()
	id, err := artifact.HashRequest(kwargs)
	if err != nil {
		return nil, domain.E(domain.CodeInternal, op, "hash request", err)
	}

	format := domain.FormatQuakeML
	if domain.OutputFormat(args.OutFormat) == domain.FormatJSON {
		format = domain.FormatJSON
	}

	started := time.Now()
	var body []byte
	var count int
	if format == domain.FormatQuakeML {
		body, err = client.QueryEventsXML(ctx, query)
		if err != nil {
			return nil, err
		}
		count = -1
	} else {
		events, qerr := client.QueryEvents(ctx, query)
		if qerr != nil {
			return nil, qerr
		}
		count = len(events)
		body, err = json.MarshalIndent(map[string]any{"events": events}, "", "  ")
		if err != nil {
			return nil, domain.E(domain.CodeInternal, op, "encode events", err)
		}
	}
	s.observeBytes(len(body))

	prefix := string(domain.ArtifactEvents) + "_" + client.Provider()
	path := s.namer.ArtifactPath(prefix, id, artifact.Extension(domain.ArtifactEvents, format))
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return nil, domain.E(domain.CodeInternal, op, "write artifact", err)
	}

	manifestPath := ""
	if args.SaveManifest == nil || *args.SaveManifest {
		manifest := s.newManifest("download_events", client.Provider(), kwargs)
		manifest.OutFormat = string(format)
		manifest.OutputFile = path
		manifest.DownloadSeconds = time.Since(started).Seconds()
		if count >= 0 {
			manifest.EventCount = count
		}
		manifestPath = s.namer.ManifestPath(prefix, id)
		if err := artifact.WriteManifest(manifestPath, manifest); err != nil {
			return nil, domain.E(domain.CodeInternal, op, "write manifest", err)
		}
	}
	s.recordArtifact(domain.ArtifactEvents, "download_events", client.Provider(), id, path, manifestPath)

	payload := map[string]any{
		"ok":            true,
		"artifact_id":   id,
		"provider":      client.Provider(),
		"output_file":   path,
		"manifest_file": manifestPath,
		"format":        format,
	}
	if count >= 0 {
		payload["count"] = count
	}
	return payload, nil
}

// downloadStations persists station metadata, response level by
// default so the result can drive instrument correction.
func (s *Service) downloadStations(ctx context.Context, raw json.RawMessage) (any, error) {
	const op = "facade.downloadStations"
	var args stationArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	query, err := args.query(op)
	if err != nil {
		return nil, err
	}
	client, err := s.clientFor(args.Provider)
	if err != nil {
		return nil, err
	}

	kwargs := args.kwargs()
	id, err := artifact.HashRequest(kwargs)
	if err != nil {
		return nil, domain.E(domain.CodeInternal, op, "hash request", err)
	}

	format := domain.FormatStationXML
	if domain.OutputFormat(args.OutFormat) == domain.FormatJSON {
		format = domain.FormatJSON
	}

	started := time.Now()
	var body []byte
	if format == domain.FormatStationXML {
		body, err = client.FetchStationXML(ctx, query)
		if err != nil {
			return nil, err
		}
	} else {
		stations, qerr := client.QueryStations(ctx, query)
		if qerr != nil {
			return nil, qerr
		}
		body, err = json.MarshalIndent(map[string]any{"stations": stations}, "", "  ")
		if err != nil {
			return nil, domain.E(domain.CodeInternal, op, "encode stations", err)
		}
	}
	s.observeBytes(len(body))

	prefix := string(domain.ArtifactStations) + "_" + client.Provider()
	path := s.namer.ArtifactPath(prefix, id, artifact.Extension(domain.ArtifactStations, format))
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return nil, domain.E(domain.CodeInternal, op, "write artifact", err)
	}

	manifestPath := ""
	if args.SaveManifest == nil || *args.SaveManifest {
		manifest := s.newManifest("download_stations", client.Provider(), kwargs)
		manifest.OutFormat = string(format)
		manifest.OutputFile = path
		manifest.DownloadSeconds = time.Since(started).Seconds()
		manifestPath = s.namer.ManifestPath(prefix, id)
		if err := artifact.WriteManifest(manifestPath, manifest); err != nil {
			return nil, domain.E(domain.CodeInternal, op, "write manifest", err)
		}
	}
	s.recordArtifact(domain.ArtifactStations, "download_stations", client.Provider(), id, path, manifestPath)

	return map[string]any{
		"ok":            true,
		"artifact_id":   id,
		"provider":      client.Provider(),
		"output_file":   path,
		"manifest_file": manifestPath,
		"format":        format,
	}, nil
}

// downloadWaveforms validates the request window, fetches miniSEED,
// enforces limits against the actual stream, and persists the result
// with a provenance manifest.
func (s *Service) downloadWaveforms(ctx context.Context, raw json.RawMessage) (any, error) {
	const op = "facade.downloadWaveforms"
	var args waveformArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	req, err := args.request(op)
	if err != nil {
		return nil, err
	}
	opts := args.options()

	estimate, err := validate.Request(req.Start, req.End, opts, s.cfg.Limits)
	if err != nil {
		return nil, err
	}

	client, err := s.clientFor(args.Provider)
	if err != nil {
		return nil, err
	}
	kwargs := args.kwargs()
	id, err := artifact.HashRequest(kwargs)
	if err != nil {
		return nil, domain.E(domain.CodeInternal, op, "hash request", err)
	}

	format, fallback := normalizeWaveformFormat(args.OutFormat)
	prefix := string(domain.ArtifactWaveforms) + "_" + client.Provider()
	path := s.namer.ArtifactPath(prefix, id, artifact.Extension(domain.ArtifactWaveforms, format))

	if args.DryRun {
		return map[string]any{
			"ok":          true,
			"dry_run":     true,
			"artifact_id": id,
			"provider":    client.Provider(),
			"would_write": path,
			"estimate":    estimate,
			"limits":      s.cfg.Limits,
		}, nil
	}

	started := time.Now()
	body, err := client.FetchWaveforms(ctx, req)
	if err != nil {
		return nil, err
	}
	downloadSeconds := time.Since(started).Seconds()
	s.observeBytes(len(body))

	stream, err := mseed.Decode(body)
	if err != nil {
		return nil, domain.E(domain.CodeUpstreamProvider, op, "undecodable miniSEED from provider", err)
	}
	stats := stream.Stats()
	if err := validate.Stream(stats, opts, s.cfg.Limits); err != nil {
		return nil, err
	}

	if err := s.writeWaveformArtifact(path, format, body, stream); err != nil {
		return nil, domain.E(domain.CodeInternal, op, "write artifact", err)
	}

	manifestPath := ""
	if args.saveManifest() {
		manifest := s.newManifest("download_waveforms", client.Provider(), kwargs)
		manifest.OutFormat = string(format)
		manifest.OutputFile = path
		manifest.Override = args.Override
		manifest.OverrideReason = args.OverrideReason
		manifest.DownloadSeconds = downloadSeconds
		manifest.StreamStats = &stats
		manifestPath = s.namer.ManifestPath(prefix, id)
		if err := artifact.WriteManifest(manifestPath, manifest); err != nil {
			return nil, domain.E(domain.CodeInternal, op, "write manifest", err)
		}
	}
	s.recordArtifact(domain.ArtifactWaveforms, "download_waveforms", client.Provider(), id, path, manifestPath)

	payload := map[string]any{
		"ok":               true,
		"artifact_id":      id,
		"provider":         client.Provider(),
		"output_file":      path,
		"manifest_file":    manifestPath,
		"format":           format,
		"format_fallback":  fallback,
		"traces":           stats.TraceCount,
		"total_samples":    stats.TotalSamples,
		"estimated_bytes":  stats.EstimatedBytes,
		"download_seconds": downloadSeconds,
		"traces_preview":   stream.Previews(domain.MaxTracePreviews),
	}
	if args.Override {
		payload["override"] = true
		payload["override_reason"] = args.OverrideReason
	}
	return payload, nil
}

// downloadWaveformsBulk validates and fetches many windows in one
// dataselect POST.
func (s *Service) downloadWaveformsBulk(ctx context.Context, raw json.RawMessage) (any, error) {
	const op = "facade.downloadWaveformsBulk"
	var args bulkArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	requests, checks, err := args.lines(op)
	if err != nil {
		return nil, err
	}
	opts := args.options()

	estimate, err := validate.Bulk(checks, opts, s.cfg.Limits)
	if err != nil {
		return nil, err
	}

	client, err := s.clientFor(args.Provider)
	if err != nil {
		return nil, err
	}
	kwargs := args.kwargs()
	id, err := artifact.HashRequest(kwargs)
	if err != nil {
		return nil, domain.E(domain.CodeInternal, op, "hash request", err)
	}

	format, fallback := normalizeWaveformFormat(args.OutFormat)
	prefix := string(domain.ArtifactBulk) + "_" + client.Provider()
	path := s.namer.ArtifactPath(prefix, id, artifact.Extension(domain.ArtifactBulk, format))

	if args.DryRun {
		return map[string]any{
			"ok":          true,
			"dry_run":     true,
			"artifact_id": id,
			"provider":    client.Provider(),
			"would_write": path,
			"estimate":    estimate,
			"limits":      s.cfg.Limits,
		}, nil
	}

	started := time.Now()
	body, err := client.FetchWaveformsBulk(ctx, requests)
	if err != nil {
		return nil, err
	}
	downloadSeconds := time.Since(started).Seconds()
	s.observeBytes(len(body))

	stream, err := mseed.Decode(body)
	if err != nil {
		return nil, domain.E(domain.CodeUpstreamProvider, op, "undecodable miniSEED from provider", err)
	}
	stats := stream.Stats()
	if err := validate.Stream(stats, opts, s.cfg.Limits); err != nil {
		return nil, err
	}

	if err := s.writeWaveformArtifact(path, format, body, stream); err != nil {
		return nil, domain.E(domain.CodeInternal, op, "write artifact", err)
	}

	manifestPath := ""
	if args.saveManifest() {
		manifest := s.newManifest("download_waveforms_bulk", client.Provider(), kwargs)
		manifest.BulkLines = kwargs["bulk"].([][]any)
		manifest.OutFormat = string(format)
		manifest.OutputFile = path
		manifest.Override = args.Override
		manifest.OverrideReason = args.OverrideReason
		manifest.DownloadSeconds = downloadSeconds
		manifest.StreamStats = &stats
		manifestPath = s.namer.ManifestPath(prefix, id)
		if err := artifact.WriteManifest(manifestPath, manifest); err != nil {
			return nil, domain.E(domain.CodeInternal, op, "write manifest", err)
		}
	}
	s.recordArtifact(domain.ArtifactBulk, "download_waveforms_bulk", client.Provider(), id, path, manifestPath)

	return map[string]any{
		"ok":               true,
		"artifact_id":      id,
		"provider":         client.Provider(),
		"output_file":      path,
		"manifest_file":    manifestPath,
		"format":           format,
		"format_fallback":  fallback,
		"bulk_count":       len(requests),
		"traces":           stats.TraceCount,
		"total_samples":    stats.TotalSamples,
		"estimated_bytes":  stats.EstimatedBytes,
		"download_seconds": downloadSeconds,
		"traces_preview":   stream.Previews(domain.MaxTracePreviews),
	}, nil
}

// writeWaveformArtifact writes raw miniSEED bytes through unchanged,
// or a JSON digest for fallback formats.
func (s *Service) writeWaveformArtifact(path string, format domain.OutputFormat, body []byte, stream *mseed.Stream) error {
	if format == domain.FormatMiniSEED {
		return os.WriteFile(path, body, 0o644)
	}
	stats := stream.Stats()
	digest, err := json.MarshalIndent(map[string]any{
		"traces":         stats.TraceCount,
		"total_samples":  stats.TotalSamples,
		"traces_preview": stream.Previews(domain.MaxTracePreviews),
	}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, digest, 0o644)
}
