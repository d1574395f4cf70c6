package fdsn

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"seismcp/internal/domain"
)

// Text-format column counts. Event listings carry 13 pipe-separated
// fields; station listings carry 8, but only the first 5 are needed
// for a summary and some data centers omit the trailing ones.
const (
	eventColumns      = 13
	stationMinColumns = 5
)

// parseEventText decodes the pipe-separated event listing:
// EventID|Time|Latitude|Longitude|Depth/km|Author|Catalog|Contributor|
// ContributorID|MagType|Magnitude|MagAuthor|EventLocationName
func parseEventText(body []byte) ([]domain.EventSummary, error) {
	var events []domain.EventSummary
	scanner := bufio.NewScanner(bytes.NewReader(body))
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(line, "|")
		if len(fields) < eventColumns {
			return nil, fmt.Errorf("line %d: want %d fields, got %d", lineNo, eventColumns, len(fields))
		}

		eventTime, err := parseCatalogTime(fields[1])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		lat, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: latitude: %w", lineNo, err)
		}
		lon, err := strconv.ParseFloat(fields[3], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: longitude: %w", lineNo, err)
		}
		depth, err := strconv.ParseFloat(fields[4], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: depth: %w", lineNo, err)
		}
		mag, err := strconv.ParseFloat(fields[10], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: magnitude: %w", lineNo, err)
		}

		events = append(events, domain.EventSummary{
			ID:            strings.TrimSpace(fields[0]),
			Time:          eventTime.Format(time.RFC3339),
			Latitude:      lat,
			Longitude:     lon,
			DepthKm:       depth,
			Magnitude:     mag,
			MagnitudeType: strings.TrimSpace(fields[9]),
			Description:   strings.TrimSpace(fields[12]),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

// parseStationText decodes the pipe-separated station listing:
// Network|Station|Latitude|Longitude|Elevation|SiteName|StartTime|EndTime
func parseStationText(body []byte) ([]domain.StationSummary, error) {
	var stations []domain.StationSummary
	scanner := bufio.NewScanner(bytes.NewReader(body))
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(line, "|")
		if len(fields) < stationMinColumns {
			return nil, fmt.Errorf("line %d: want at least %d fields, got %d", lineNo, stationMinColumns, len(fields))
		}

		lat, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: latitude: %w", lineNo, err)
		}
		lon, err := strconv.ParseFloat(fields[3], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: longitude: %w", lineNo, err)
		}
		elev, err := strconv.ParseFloat(fields[4], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: elevation: %w", lineNo, err)
		}

		stations = append(stations, domain.StationSummary{
			Network:    strings.TrimSpace(fields[0]),
			Station:    strings.TrimSpace(fields[1]),
			Latitude:   lat,
			Longitude:  lon,
			ElevationM: elev,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return stations, nil
}

// parseCatalogTime accepts the timestamp shapes data centers emit in
// text listings.
func parseCatalogTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05.999999999",
		"2006-01-02T15:04:05",
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized catalog time %q", s)
}
