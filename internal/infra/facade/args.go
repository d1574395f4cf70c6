package facade

import (
	"strings"
	"time"

	"seismcp/internal/domain"
	"seismcp/internal/infra/artifact"
	"seismcp/internal/infra/fdsn"
	"seismcp/internal/infra/validate"
)

// eventArgs select an event catalog window.
type eventArgs struct {
	Provider     string   `json:"provider,omitempty"`
	Start        string   `json:"starttime"`
	End          string   `json:"endtime"`
	MinMagnitude float64  `json:"min_magnitude,omitempty"`
	Latitude     *float64 `json:"latitude,omitempty"`
	Longitude    *float64 `json:"longitude,omitempty"`
	MaxRadiusDeg *float64 `json:"max_radius_deg,omitempty"`
	Limit        int      `json:"limit,omitempty"`
	OutFormat    string   `json:"out_format,omitempty"`
	SaveManifest *bool    `json:"save_manifest,omitempty"`
}

func (a eventArgs) query(op string) (fdsn.EventQuery, error) {
	var q fdsn.EventQuery
	start, end, err := parseWindow(op, a.Start, a.End)
	if err != nil {
		return q, err
	}
	q = fdsn.EventQuery{
		Start:        start,
		End:          end,
		MinMagnitude: a.MinMagnitude,
		Latitude:     a.Latitude,
		Longitude:    a.Longitude,
		MaxRadiusDeg: a.MaxRadiusDeg,
		Limit:        a.Limit,
	}
	return q, nil
}

func (a eventArgs) kwargs() map[string]any {
	kw := map[string]any{"starttime": a.Start, "endtime": a.End}
	if a.MinMagnitude > 0 {
		kw["min_magnitude"] = a.MinMagnitude
	}
	if a.Latitude != nil && a.Longitude != nil && a.MaxRadiusDeg != nil {
		kw["latitude"] = *a.Latitude
		kw["longitude"] = *a.Longitude
		kw["max_radius_deg"] = *a.MaxRadiusDeg
	}
	if a.Limit > 0 {
		kw["limit"] = a.Limit
	}
	return kw
}

// stationArgs select station metadata.
type stationArgs struct {
	Provider     string   `json:"provider,omitempty"`
	Network      string   `json:"network,omitempty"`
	Station      string   `json:"station,omitempty"`
	Location     string   `json:"location,omitempty"`
	Channel      string   `json:"channel,omitempty"`
	Start        string   `json:"starttime,omitempty"`
	End          string   `json:"endtime,omitempty"`
	Latitude     *float64 `json:"latitude,omitempty"`
	Longitude    *float64 `json:"longitude,omitempty"`
	MaxRadiusDeg *float64 `json:"max_radius_deg,omitempty"`
	OutFormat    string   `json:"out_format,omitempty"`
	SaveManifest *bool    `json:"save_manifest,omitempty"`
}

func (a stationArgs) query(op string) (fdsn.StationQuery, error) {
	var start, end time.Time
	var err error
	if a.Start != "" {
		if start, err = artifact.ParseTime(a.Start); err != nil {
			return fdsn.StationQuery{}, domain.E(domain.CodeMalformedWindow, op, "bad starttime", err)
		}
	}
	if a.End != "" {
		if end, err = artifact.ParseTime(a.End); err != nil {
			return fdsn.StationQuery{}, domain.E(domain.CodeMalformedWindow, op, "bad endtime", err)
		}
	}
	return fdsn.StationQuery{
		Network:      a.Network,
		Station:      a.Station,
		Location:     a.Location,
		Channel:      a.Channel,
		Start:        start,
		End:          end,
		Latitude:     a.Latitude,
		Longitude:    a.Longitude,
		MaxRadiusDeg: a.MaxRadiusDeg,
	}, nil
}

func (a stationArgs) kwargs() map[string]any {
	kw := map[string]any{}
	for key, val := range map[string]string{
		"network": a.Network, "station": a.Station,
		"location": a.Location, "channel": a.Channel,
		"starttime": a.Start, "endtime": a.End,
	} {
		if val != "" {
			kw[key] = val
		}
	}
	if a.Latitude != nil && a.Longitude != nil && a.MaxRadiusDeg != nil {
		kw["latitude"] = *a.Latitude
		kw["longitude"] = *a.Longitude
		kw["max_radius_deg"] = *a.MaxRadiusDeg
	}
	return kw
}

// waveformArgs drive the dataselect tools and the processing chain.
type waveformArgs struct {
	Provider       string  `json:"provider,omitempty"`
	Network        string  `json:"network"`
	Station        string  `json:"station"`
	Location       string  `json:"location,omitempty"`
	Channel        string  `json:"channel"`
	Start          string  `json:"starttime"`
	End            string  `json:"endtime"`
	SampleRateHint float64 `json:"sampling_rate_hint_hz,omitempty"`
	TraceCountHint int     `json:"trace_count_hint,omitempty"`
	Override       bool    `json:"override,omitempty"`
	OverrideReason string  `json:"override_reason,omitempty"`
	DryRun         bool    `json:"dry_run,omitempty"`
	OutFormat      string  `json:"out_format,omitempty"`
	SaveManifest   *bool   `json:"save_manifest,omitempty"`
}

func (a waveformArgs) request(op string) (domain.WaveformRequest, error) {
	start, end, err := parseWindow(op, a.Start, a.End)
	if err != nil {
		return domain.WaveformRequest{}, err
	}
	if strings.TrimSpace(a.Network) == "" || strings.TrimSpace(a.Station) == "" ||
		strings.TrimSpace(a.Channel) == "" {
		return domain.WaveformRequest{}, domain.E(domain.CodeBadRequest, op,
			"network, station, and channel are required", nil)
	}
	return domain.WaveformRequest{
		Network:  a.Network,
		Station:  a.Station,
		Location: a.Location,
		Channel:  a.Channel,
		Start:    start,
		End:      end,
	}, nil
}

func (a waveformArgs) options() validate.Options {
	return validate.Options{
		SampleRateHint: a.SampleRateHint,
		TraceCountHint: a.TraceCountHint,
		Override:       a.Override,
		Reason:         a.OverrideReason,
	}
}

func (a waveformArgs) kwargs() map[string]any {
	kw := map[string]any{
		"network":   a.Network,
		"station":   a.Station,
		"channel":   a.Channel,
		"starttime": a.Start,
		"endtime":   a.End,
	}
	if a.Location != "" {
		kw["location"] = a.Location
	}
	return kw
}

func (a waveformArgs) saveManifest() bool {
	return a.SaveManifest == nil || *a.SaveManifest
}

// bulkArgs carry multiple dataselect lines in one call. Each line is
// [network, station, location, channel, starttime, endtime].
type bulkArgs struct {
	Provider       string     `json:"provider,omitempty"`
	Bulk           [][]string `json:"bulk"`
	SampleRateHint float64    `json:"sampling_rate_hint_hz,omitempty"`
	Override       bool       `json:"override,omitempty"`
	OverrideReason string     `json:"override_reason,omitempty"`
	DryRun         bool       `json:"dry_run,omitempty"`
	OutFormat      string     `json:"out_format,omitempty"`
	SaveManifest   *bool      `json:"save_manifest,omitempty"`
}

func (a bulkArgs) lines(op string) ([]domain.WaveformRequest, []validate.BulkLine, error) {
	if len(a.Bulk) == 0 {
		return nil, nil, domain.E(domain.CodeBadRequest, op, "bulk must contain at least one line", nil)
	}
	requests := make([]domain.WaveformRequest, 0, len(a.Bulk))
	checks := make([]validate.BulkLine, 0, len(a.Bulk))
	for _, line := range a.Bulk {
		if len(line) != 6 {
			return nil, nil, domain.E(domain.CodeBadRequest, op,
				"each bulk line needs [network, station, location, channel, starttime, endtime]", nil)
		}
		start, end, err := parseWindow(op, line[4], line[5])
		if err != nil {
			return nil, nil, domain.Wrap(domain.CodeFrom(err), op, err)
		}
		req := domain.WaveformRequest{
			Network:  line[0],
			Station:  line[1],
			Location: line[2],
			Channel:  line[3],
			Start:    start,
			End:      end,
		}
		requests = append(requests, req)
		checks = append(checks, validate.BulkLine{
			Network:  req.Network,
			Station:  req.Station,
			Location: req.Location,
			Channel:  req.Channel,
			Start:    start,
			End:      end,
		})
	}
	return requests, checks, nil
}

func (a bulkArgs) options() validate.Options {
	return validate.Options{
		SampleRateHint: a.SampleRateHint,
		Override:       a.Override,
		Reason:         a.OverrideReason,
	}
}

func (a bulkArgs) kwargs() map[string]any {
	lines := make([][]any, 0, len(a.Bulk))
	for _, line := range a.Bulk {
		row := make([]any, len(line))
		for i, field := range line {
			row[i] = field
		}
		lines = append(lines, row)
	}
	return map[string]any{"bulk": lines}
}

func (a bulkArgs) saveManifest() bool {
	return a.SaveManifest == nil || *a.SaveManifest
}

// parseWindow parses and orders a required time window.
func parseWindow(op, startRaw, endRaw string) (time.Time, time.Time, error) {
	if strings.TrimSpace(startRaw) == "" || strings.TrimSpace(endRaw) == "" {
		return time.Time{}, time.Time{}, domain.E(domain.CodeMalformedWindow, op,
			"starttime and endtime are required", nil)
	}
	start, err := artifact.ParseTime(startRaw)
	if err != nil {
		return time.Time{}, time.Time{}, domain.E(domain.CodeMalformedWindow, op, "bad starttime", err)
	}
	end, err := artifact.ParseTime(endRaw)
	if err != nil {
		return time.Time{}, time.Time{}, domain.E(domain.CodeMalformedWindow, op, "bad endtime", err)
	}
	if !end.After(start) {
		return time.Time{}, time.Time{}, domain.E(domain.CodeMalformedWindow, op,
			"endtime must be after starttime", nil)
	}
	return start, end, nil
}
