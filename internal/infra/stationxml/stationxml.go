// Package stationxml parses FDSN StationXML documents far enough to
// recover station coordinates and the overall instrument sensitivity
// needed for response removal. The full response chain (poles, zeros,
// per-stage gains) is out of scope.
package stationxml

import (
	"encoding/xml"
	"fmt"
	"os"
	"strings"

	"seismcp/internal/domain"
)

type document struct {
	XMLName  xml.Name  `xml:"FDSNStationXML"`
	Networks []network `xml:"Network"`
}

type network struct {
	Code     string    `xml:"code,attr"`
	Stations []station `xml:"Station"`
}

type station struct {
	Code      string    `xml:"code,attr"`
	Latitude  float64   `xml:"Latitude"`
	Longitude float64   `xml:"Longitude"`
	Elevation float64   `xml:"Elevation"`
	Channels  []channel `xml:"Channel"`
}

type channel struct {
	Code         string    `xml:"code,attr"`
	LocationCode string    `xml:"locationCode,attr"`
	SampleRate   float64   `xml:"SampleRate"`
	Response     *response `xml:"Response"`
}

type response struct {
	Sensitivity *sensitivity `xml:"InstrumentSensitivity"`
}

type sensitivity struct {
	Value      float64 `xml:"Value"`
	Frequency  float64 `xml:"Frequency"`
	InputUnits struct {
		Name string `xml:"Name"`
	} `xml:"InputUnits"`
}

// Sensitivity is the overall scalar gain of one channel's response.
type Sensitivity struct {
	Value      float64
	Frequency  float64
	InputUnits string
}

// Inventory holds the parsed metadata keyed for channel lookup.
type Inventory struct {
	stations      []domain.StationSummary
	sensitivities map[string]Sensitivity
}

// Parse decodes a StationXML document.
func Parse(data []byte) (*Inventory, error) {
	var doc document
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("stationxml: %w", err)
	}

	inv := &Inventory{sensitivities: make(map[string]Sensitivity)}
	for _, net := range doc.Networks {
		for _, sta := range net.Stations {
			inv.stations = append(inv.stations, domain.StationSummary{
				Network:    net.Code,
				Station:    sta.Code,
				Latitude:   sta.Latitude,
				Longitude:  sta.Longitude,
				ElevationM: sta.Elevation,
			})
			for _, cha := range sta.Channels {
				if cha.Response == nil || cha.Response.Sensitivity == nil {
					continue
				}
				s := cha.Response.Sensitivity
				key := channelKey(net.Code, sta.Code, cha.LocationCode, cha.Code)
				inv.sensitivities[key] = Sensitivity{
					Value:      s.Value,
					Frequency:  s.Frequency,
					InputUnits: s.InputUnits.Name,
				}
			}
		}
	}
	return inv, nil
}

// ParseFile decodes the StationXML file at path.
func ParseFile(path string) (*Inventory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("stationxml: %w", err)
	}
	return Parse(data)
}

// Stations returns the station summaries in document order.
func (inv *Inventory) Stations() []domain.StationSummary {
	return inv.stations
}

// Sensitivity looks up the overall gain for one channel. An empty
// location code matches both "" and "--".
func (inv *Inventory) Sensitivity(network, station, location, channel string) (Sensitivity, bool) {
	s, ok := inv.sensitivities[channelKey(network, station, location, channel)]
	return s, ok
}

// channelKey normalizes the "--" blank-location convention so keys
// built from documents and keys built from lookups agree.
func channelKey(network, station, location, channel string) string {
	if location == "--" {
		location = ""
	}
	return strings.Join([]string{network, station, location, channel}, ".")
}
