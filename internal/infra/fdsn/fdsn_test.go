package fdsn

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seismcp/internal/domain"
)

const stationText = `#Network|Station|Latitude|Longitude|Elevation|SiteName|StartTime|EndTime
IU|ANMO|34.946|-106.457|1850.0|Albuquerque|1989-08-29T00:00:00|
IU|COLA|64.874|-147.862|200.0|College Outpost|1996-07-01T00:00:00|2599-12-31T23:59:59
`

func TestQueryEvents(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/fdsnws/event/1/query", r.URL.Path)
		assert.Equal(t, "text", r.URL.Query().Get("format"))
		assert.Equal(t, "7", r.URL.Query().Get("minmagnitude"))
		w.Write([]byte(`#EventID|Time|Latitude|Longitude|Depth/km|Author|Catalog|Contributor|ContributorID|MagType|Magnitude|MagAuthor|EventLocationName
ev1|2024-01-01T07:10:09.163|37.487|137.271|10.0|ISC|ISC|ISC|1|MW|7.5|GCMT|NEAR WEST COAST OF HONSHU
`))
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL, 5*time.Second, nil)
	require.NoError(t, err)

	events, err := client.QueryEvents(context.Background(), EventQuery{
		Start:        time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		End:          time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		MinMagnitude: 7,
	})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "ev1", events[0].ID)
	assert.InDelta(t, 7.5, events[0].Magnitude, 1e-9)
	assert.Equal(t, "MW", events[0].MagnitudeType)
	assert.Equal(t, "NEAR WEST COAST OF HONSHU", events[0].Description)
	assert.Equal(t, "2024-01-01T07:10:09Z", events[0].Time)
}

func TestQueryStations(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/fdsnws/station/1/query", r.URL.Path)
		assert.Equal(t, "station", r.URL.Query().Get("level"))
		w.Write([]byte(stationText))
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL, 5*time.Second, nil)
	require.NoError(t, err)

	stations, err := client.QueryStations(context.Background(), StationQuery{
		Network: "IU", Channel: "BH?",
	})
	require.NoError(t, err)
	require.Len(t, stations, 2)
	assert.Equal(t, "ANMO", stations[0].Station)
	assert.InDelta(t, 64.874, stations[1].Latitude, 1e-9)
}

func TestFetchWaveformsNoContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL, 5*time.Second, nil)
	require.NoError(t, err)

	_, err = client.FetchWaveforms(context.Background(), domain.WaveformRequest{
		Network: "IU", Station: "ANMO", Channel: "BHZ",
		Start: time.Now().Add(-time.Hour), End: time.Now(),
	})
	require.Error(t, err)
	assert.Equal(t, domain.CodeUpstreamProvider, domain.CodeFrom(err))
}

func TestFetchWaveformsBlankLocation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "--", r.URL.Query().Get("location"))
		w.Write([]byte{0x30, 0x30})
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL, 5*time.Second, nil)
	require.NoError(t, err)

	body, err := client.FetchWaveforms(context.Background(), domain.WaveformRequest{
		Network: "IU", Station: "ANMO", Channel: "BHZ",
		Start: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 1, 1, 0, 5, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Len(t, body, 2)
}

func TestFetchWaveformsBulk(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, "IU ANMO -- BHZ 2024-01-01T00:00:00 2024-01-01T00:05:00\n", string(body))
		w.Write([]byte{0x30})
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL, 5*time.Second, nil)
	require.NoError(t, err)

	_, err = client.FetchWaveformsBulk(context.Background(), []domain.WaveformRequest{{
		Network: "IU", Station: "ANMO", Channel: "BHZ",
		Start: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 1, 1, 0, 5, 0, 0, time.UTC),
	}})
	require.NoError(t, err)
}

func TestUpstreamHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad request: starttime is required", http.StatusBadRequest)
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL, 5*time.Second, nil)
	require.NoError(t, err)

	_, err = client.QueryStations(context.Background(), StationQuery{Network: "IU"})
	require.Error(t, err)
	assert.Equal(t, domain.CodeUpstreamProvider, domain.CodeFrom(err))
	assert.Contains(t, err.Error(), "HTTP 400")
}

func TestBaseURL(t *testing.T) {
	base, err := BaseURL("IRIS")
	require.NoError(t, err)
	assert.Equal(t, "https://service.iris.edu", base)

	base, err = BaseURL("iris")
	require.NoError(t, err)
	assert.Equal(t, "https://service.iris.edu", base)

	base, err = BaseURL("https://my.datacenter.example/")
	require.NoError(t, err)
	assert.Equal(t, "https://my.datacenter.example", base)

	_, err = BaseURL("NOPE")
	require.Error(t, err)
	assert.Equal(t, domain.CodeBadRequest, domain.CodeFrom(err))
}

func TestParseEventTextRejectsShortLines(t *testing.T) {
	_, err := parseEventText([]byte("ev1|2024-01-01T00:00:00|1.0\n"))
	assert.Error(t, err)
}

func TestParseStationTextSkipsComments(t *testing.T) {
	stations, err := parseStationText([]byte(stationText))
	require.NoError(t, err)
	assert.Len(t, stations, 2)
}

func TestParseStationTextMinimumColumns(t *testing.T) {
	// Five fields are enough; some data centers omit the trailing
	// site name and time columns.
	stations, err := parseStationText([]byte("IU|ANMO|34.9|-106.5|1850.0\n"))
	require.NoError(t, err)
	require.Len(t, stations, 1)
	assert.Equal(t, "ANMO", stations[0].Station)
	assert.InDelta(t, 1850.0, stations[0].ElevationM, 1e-9)

	_, err = parseStationText([]byte("IU|ANMO|34.9|-106.5\n"))
	assert.Error(t, err)
}
