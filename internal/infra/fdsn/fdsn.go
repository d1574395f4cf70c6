// Package fdsn talks to FDSN web services: event and station catalog
// queries in the text interchange format, dataselect for raw miniSEED,
// and StationXML at response level.
package fdsn

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"seismcp/internal/domain"
)

// Providers maps data center names to their FDSN service roots.
var Providers = map[string]string{
	"IRIS": "https://service.iris.edu",
	"USGS": "https://earthquake.usgs.gov",
	"EMSC": "https://www.seismicportal.eu",
}

// ProviderNames returns the registry keys in sorted order.
func ProviderNames() []string {
	names := make([]string, 0, len(Providers))
	for name := range Providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// BaseURL resolves a provider name to its service root. Unknown names
// that look like URLs are passed through so custom data centers work.
func BaseURL(provider string) (string, error) {
	if base, ok := Providers[strings.ToUpper(provider)]; ok {
		return base, nil
	}
	if strings.HasPrefix(provider, "http://") || strings.HasPrefix(provider, "https://") {
		return strings.TrimRight(provider, "/"), nil
	}
	return "", domain.E(domain.CodeBadRequest, "fdsn.BaseURL",
		fmt.Sprintf("unknown FDSN provider %q (known: %s)", provider, strings.Join(ProviderNames(), ", ")), nil)
}

// Client issues requests against one provider's FDSN services.
type Client struct {
	provider string
	base     string
	http     *http.Client
	logger   *zap.Logger
}

// NewClient builds a client for the named provider.
func NewClient(provider string, timeout time.Duration, logger *zap.Logger) (*Client, error) {
	base, err := BaseURL(provider)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		provider: provider,
		base:     base,
		http:     &http.Client{Timeout: timeout},
		logger:   logger.Named("fdsn"),
	}, nil
}

// Provider returns the name this client was built for.
func (c *Client) Provider() string {
	return c.provider
}

// EventQuery selects events from the catalog service.
type EventQuery struct {
	Start        time.Time
	End          time.Time
	MinMagnitude float64
	Latitude     *float64
	Longitude    *float64
	MaxRadiusDeg *float64
	Limit        int
}

// StationQuery selects stations from the metadata service.
type StationQuery struct {
	Network      string
	Station      string
	Location     string
	Channel      string
	Start        time.Time
	End          time.Time
	Latitude     *float64
	Longitude    *float64
	MaxRadiusDeg *float64
	Level        string
}

// QueryEvents fetches and parses a text-format event catalog.
func (c *Client) QueryEvents(ctx context.Context, q EventQuery) ([]domain.EventSummary, error) {
	const op = "fdsn.QueryEvents"
	params := url.Values{}
	params.Set("format", "text")
	if !q.Start.IsZero() {
		params.Set("starttime", fdsnTime(q.Start))
	}
	if !q.End.IsZero() {
		params.Set("endtime", fdsnTime(q.End))
	}
	if q.MinMagnitude > 0 {
		params.Set("minmagnitude", trimFloat(q.MinMagnitude))
	}
	setRadius(params, q.Latitude, q.Longitude, q.MaxRadiusDeg)
	if q.Limit > 0 {
		params.Set("limit", fmt.Sprintf("%d", q.Limit))
	}
	params.Set("orderby", "time")

	body, err := c.get(ctx, op, "/fdsnws/event/1/query", params)
	if err != nil {
		return nil, err
	}
	events, err := parseEventText(body)
	if err != nil {
		return nil, domain.E(domain.CodeUpstreamProvider, op, "unparseable event catalog", err)
	}
	c.logger.Debug("event query complete",
		zap.String("provider", c.provider), zap.Int("events", len(events)))
	return events, nil
}

// QueryEventsXML fetches the raw QuakeML document for the same query.
func (c *Client) QueryEventsXML(ctx context.Context, q EventQuery) ([]byte, error) {
	const op = "fdsn.QueryEventsXML"
	params := url.Values{}
	params.Set("format", "xml")
	if !q.Start.IsZero() {
		params.Set("starttime", fdsnTime(q.Start))
	}
	if !q.End.IsZero() {
		params.Set("endtime", fdsnTime(q.End))
	}
	if q.MinMagnitude > 0 {
		params.Set("minmagnitude", trimFloat(q.MinMagnitude))
	}
	setRadius(params, q.Latitude, q.Longitude, q.MaxRadiusDeg)
	if q.Limit > 0 {
		params.Set("limit", fmt.Sprintf("%d", q.Limit))
	}
	return c.get(ctx, op, "/fdsnws/event/1/query", params)
}

// QueryStations fetches and parses a text-format station listing.
func (c *Client) QueryStations(ctx context.Context, q StationQuery) ([]domain.StationSummary, error) {
	const op = "fdsn.QueryStations"
	params := c.stationParams(q)
	params.Set("format", "text")
	params.Set("level", "station")

	body, err := c.get(ctx, op, "/fdsnws/station/1/query", params)
	if err != nil {
		return nil, err
	}
	stations, err := parseStationText(body)
	if err != nil {
		return nil, domain.E(domain.CodeUpstreamProvider, op, "unparseable station listing", err)
	}
	c.logger.Debug("station query complete",
		zap.String("provider", c.provider), zap.Int("stations", len(stations)))
	return stations, nil
}

// FetchStationXML fetches the full StationXML document at response
// level, as required for instrument correction.
func (c *Client) FetchStationXML(ctx context.Context, q StationQuery) ([]byte, error) {
	const op = "fdsn.FetchStationXML"
	params := c.stationParams(q)
	params.Set("level", "response")
	return c.get(ctx, op, "/fdsnws/station/1/query", params)
}

func (c *Client) stationParams(q StationQuery) url.Values {
	params := url.Values{}
	if q.Network != "" {
		params.Set("network", q.Network)
	}
	if q.Station != "" {
		params.Set("station", q.Station)
	}
	if q.Location != "" {
		params.Set("location", q.Location)
	}
	if q.Channel != "" {
		params.Set("channel", q.Channel)
	}
	if !q.Start.IsZero() {
		params.Set("starttime", fdsnTime(q.Start))
	}
	if !q.End.IsZero() {
		params.Set("endtime", fdsnTime(q.End))
	}
	setRadius(params, q.Latitude, q.Longitude, q.MaxRadiusDeg)
	return params
}

// FetchWaveforms pulls raw miniSEED from the dataselect service.
func (c *Client) FetchWaveforms(ctx context.Context, req domain.WaveformRequest) ([]byte, error) {
	const op = "fdsn.FetchWaveforms"
	params := url.Values{}
	params.Set("network", req.Network)
	params.Set("station", req.Station)
	params.Set("location", locOrDashes(req.Location))
	params.Set("channel", req.Channel)
	params.Set("starttime", fdsnTime(req.Start))
	params.Set("endtime", fdsnTime(req.End))
	return c.get(ctx, op, "/fdsnws/dataselect/1/query", params)
}

// FetchWaveformsBulk POSTs a bulk request body to dataselect. Each
// line is "NET STA LOC CHA START END" with "--" for blank locations.
func (c *Client) FetchWaveformsBulk(ctx context.Context, lines []domain.WaveformRequest) ([]byte, error) {
	const op = "fdsn.FetchWaveformsBulk"
	var body strings.Builder
	for _, line := range lines {
		fmt.Fprintf(&body, "%s %s %s %s %s %s\n",
			line.Network, line.Station, locOrDashes(line.Location), line.Channel,
			fdsnTime(line.Start), fdsnTime(line.End))
	}

	endpoint := c.base + "/fdsnws/dataselect/1/query"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(body.String()))
	if err != nil {
		return nil, domain.E(domain.CodeInternal, op, "build bulk request", err)
	}
	httpReq.Header.Set("Content-Type", "text/plain")
	return c.do(op, httpReq)
}

func (c *Client) get(ctx context.Context, op, path string, params url.Values) ([]byte, error) {
	endpoint := c.base + path + "?" + params.Encode()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, domain.E(domain.CodeInternal, op, "build request", err)
	}
	return c.do(op, httpReq)
}

func (c *Client) do(op string, req *http.Request) ([]byte, error) {
	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, domain.E(domain.CodeUpstreamProvider, op,
			fmt.Sprintf("%s request failed", c.provider), err)
	}
	defer resp.Body.Close()

	c.logger.Debug("fdsn request",
		zap.String("provider", c.provider),
		zap.String("url", req.URL.Path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(started)))

	if resp.StatusCode == http.StatusNoContent {
		return nil, domain.E(domain.CodeUpstreamProvider, op,
			fmt.Sprintf("%s returned no data for this request", c.provider), nil)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, domain.E(domain.CodeUpstreamProvider, op,
			fmt.Sprintf("%s returned HTTP %d: %s", c.provider, resp.StatusCode,
				strings.TrimSpace(string(snippet))), nil)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.E(domain.CodeUpstreamProvider, op, "read response body", err)
	}
	if len(body) == 0 {
		return nil, domain.E(domain.CodeUpstreamProvider, op,
			fmt.Sprintf("%s returned an empty body", c.provider), nil)
	}
	return body, nil
}

func setRadius(params url.Values, lat, lon, radius *float64) {
	if lat == nil || lon == nil || radius == nil {
		return
	}
	params.Set("latitude", trimFloat(*lat))
	params.Set("longitude", trimFloat(*lon))
	params.Set("maxradius", trimFloat(*radius))
}

func fdsnTime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05")
}

func trimFloat(v float64) string {
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.6f", v), "0"), ".")
}

func locOrDashes(loc string) string {
	if strings.TrimSpace(loc) == "" {
		return "--"
	}
	return loc
}
