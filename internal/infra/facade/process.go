package facade

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"seismcp/internal/domain"
	"seismcp/internal/infra/artifact"
	"seismcp/internal/infra/fdsn"
	"seismcp/internal/infra/mseed"
	"seismcp/internal/infra/seismic"
	"seismcp/internal/infra/stationxml"
	"seismcp/internal/infra/validate"
)

// traceReport is the per-trace summary returned by full_process.
type traceReport struct {
	ID   string  `json:"id"`
	Npts int     `json:"npts"`
	SNR  float64 `json:"snr,omitempty"`
}

// fullProcess runs the complete chain: validate, download waveforms
// and response metadata, detrend, taper, bandpass, remove the
// instrument response, pick arrivals, and persist the processed
// stream with a record section plot.
func (s *Service) fullProcess(ctx context.Context, raw json.RawMessage) (any, error) {
	const op = "facade.fullProcess"
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

	prefix := string(domain.ArtifactProcessed) + "_" + client.Provider()
	processedPath := s.namer.ArtifactPath(prefix, id, "mseed")
	plotPath := s.namer.ArtifactPath(prefix, id, "png")

	if args.DryRun {
		return map[string]any{
			"ok":          true,
			"dry_run":     true,
			"artifact_id": id,
			"provider":    client.Provider(),
			"would_write": []string{processedPath, plotPath},
			"estimate":    estimate,
			"limits":      s.cfg.Limits,
		}, nil
	}

	started := time.Now()
	body, err := client.FetchWaveforms(ctx, req)
	if err != nil {
		return nil, err
	}
	s.observeBytes(len(body))

	stream, err := mseed.Decode(body)
	if err != nil {
		return nil, domain.E(domain.CodeUpstreamProvider, op, "undecodable miniSEED from provider", err)
	}
	stats := stream.Stats()
	if err := validate.Stream(stats, opts, s.cfg.Limits); err != nil {
		return nil, err
	}

	// Response metadata is best effort: traces stay in counts when the
	// provider has no response-level StationXML for them.
	var inv *stationxml.Inventory
	xmlBody, xmlErr := client.FetchStationXML(ctx, stationQueryFor(req))
	if xmlErr != nil {
		s.logger.Warn("station metadata unavailable, skipping response removal",
			zap.Error(xmlErr))
	} else {
		s.observeBytes(len(xmlBody))
		inv, xmlErr = stationxml.Parse(xmlBody)
		if xmlErr != nil {
			s.logger.Warn("unparseable StationXML, skipping response removal",
				zap.Error(xmlErr))
			inv = nil
		}
	}

	result, err := seismic.NewPipeline(s.logger).Run(stream, inv)
	if err != nil {
		return nil, domain.E(domain.CodeInternal, op, "processing pipeline", err)
	}
	if len(stream.Traces) == 0 {
		return nil, domain.E(domain.CodeUpstreamProvider, op,
			"no usable traces after processing", nil)
	}

	if err := mseed.WriteFile(processedPath, stream); err != nil {
		return nil, domain.E(domain.CodeInternal, op, "write processed stream", err)
	}
	plotTitle := fmt.Sprintf("%s.%s %s", req.Network, req.Station,
		req.Start.UTC().Format("2006-01-02 15:04:05"))
	if err := seismic.SavePlot(plotPath, plotTitle, stream, result.Picks); err != nil {
		return nil, domain.E(domain.CodeInternal, op, "write plot", err)
	}

	reports := make([]traceReport, 0, len(stream.Traces))
	for _, tr := range stream.Traces {
		report := traceReport{ID: tr.ID(), Npts: tr.Npts()}
		if snr, serr := seismic.SNR(tr.Samples); serr == nil {
			report.SNR = snr
		}
		reports = append(reports, report)
	}

	manifestPath := ""
	if args.saveManifest() {
		manifest := s.newManifest("full_process", client.Provider(), kwargs)
		manifest.OutFormat = string(domain.FormatMiniSEED)
		manifest.OutputFile = processedPath
		manifest.Override = args.Override
		manifest.OverrideReason = args.OverrideReason
		manifest.DownloadSeconds = time.Since(started).Seconds()
		manifest.StreamStats = &stats
		manifestPath = s.namer.ManifestPath(prefix, id)
		if err := artifact.WriteManifest(manifestPath, manifest); err != nil {
			return nil, domain.E(domain.CodeInternal, op, "write manifest", err)
		}
	}
	s.recordArtifact(domain.ArtifactProcessed, "full_process", client.Provider(), id, processedPath, manifestPath)

	return map[string]any{
		"ok":             true,
		"artifact_id":    id,
		"provider":       client.Provider(),
		"processed_file": processedPath,
		"plot_file":      plotPath,
		"manifest_file":  manifestPath,
		"traces":         len(stream.Traces),
		"corrected":      result.Corrected,
		"uncorrected":    result.Uncorrected,
		"dropped":        result.Dropped,
		"picks":          result.Picks,
		"trace_reports":  reports,
	}, nil
}

// stationQueryFor asks for the response metadata matching a waveform
// request.
func stationQueryFor(req domain.WaveformRequest) fdsn.StationQuery {
	return fdsn.StationQuery{
		Network:  req.Network,
		Station:  req.Station,
		Location: req.Location,
		Channel:  req.Channel,
		Start:    req.Start,
		End:      req.End,
	}
}
