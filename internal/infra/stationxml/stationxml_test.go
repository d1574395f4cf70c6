package stationxml

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDoc = `<?xml version="1.0" encoding="UTF-8"?>
<FDSNStationXML xmlns="http://www.fdsn.org/xml/station/1" schemaVersion="1.1">
  <Network code="IU">
    <Station code="ANMO">
      <Latitude>34.946</Latitude>
      <Longitude>-106.457</Longitude>
      <Elevation>1850.0</Elevation>
      <Channel code="BHZ" locationCode="00">
        <SampleRate>40.0</SampleRate>
        <Response>
          <InstrumentSensitivity>
            <Value>3.4e9</Value>
            <Frequency>0.02</Frequency>
            <InputUnits><Name>m/s</Name></InputUnits>
          </InstrumentSensitivity>
        </Response>
      </Channel>
      <Channel code="LHZ" locationCode="00">
        <SampleRate>1.0</SampleRate>
      </Channel>
    </Station>
  </Network>
</FDSNStationXML>`

func TestParseInventory(t *testing.T) {
	inv, err := Parse([]byte(sampleDoc))
	require.NoError(t, err)

	stations := inv.Stations()
	require.Len(t, stations, 1)
	assert.Equal(t, "IU", stations[0].Network)
	assert.Equal(t, "ANMO", stations[0].Station)
	assert.InDelta(t, 34.946, stations[0].Latitude, 1e-9)
	assert.InDelta(t, 1850.0, stations[0].ElevationM, 1e-9)

	s, ok := inv.Sensitivity("IU", "ANMO", "00", "BHZ")
	require.True(t, ok)
	assert.InDelta(t, 3.4e9, s.Value, 1)
	assert.InDelta(t, 0.02, s.Frequency, 1e-9)
	assert.Equal(t, "m/s", s.InputUnits)

	// Channel without a response stanza has no sensitivity.
	_, ok = inv.Sensitivity("IU", "ANMO", "00", "LHZ")
	assert.False(t, ok)
}

func TestSensitivityBlankLocation(t *testing.T) {
	doc := `<FDSNStationXML><Network code="XX"><Station code="TEST">
      <Latitude>0</Latitude><Longitude>0</Longitude><Elevation>0</Elevation>
      <Channel code="BHZ" locationCode="">
        <Response><InstrumentSensitivity><Value>1000</Value><Frequency>1</Frequency>
        <InputUnits><Name>m/s</Name></InputUnits></InstrumentSensitivity></Response>
      </Channel></Station></Network></FDSNStationXML>`
	inv, err := Parse([]byte(doc))
	require.NoError(t, err)

	_, ok := inv.Sensitivity("XX", "TEST", "--", "BHZ")
	assert.True(t, ok)
	_, ok = inv.Sensitivity("XX", "TEST", "", "BHZ")
	assert.True(t, ok)
}

func TestSensitivityDashedLocationInDocument(t *testing.T) {
	// Some data centers emit "--" for blank locations in the document
	// itself; both spellings must find the channel.
	doc := `<FDSNStationXML><Network code="XX"><Station code="TEST">
      <Latitude>0</Latitude><Longitude>0</Longitude><Elevation>0</Elevation>
      <Channel code="BHZ" locationCode="--">
        <Response><InstrumentSensitivity><Value>1000</Value><Frequency>1</Frequency>
        <InputUnits><Name>m/s</Name></InputUnits></InstrumentSensitivity></Response>
      </Channel></Station></Network></FDSNStationXML>`
	inv, err := Parse([]byte(doc))
	require.NoError(t, err)

	_, ok := inv.Sensitivity("XX", "TEST", "", "BHZ")
	assert.True(t, ok)
	_, ok = inv.Sensitivity("XX", "TEST", "--", "BHZ")
	assert.True(t, ok)
}

func TestParseRejectsMalformed(t *testing.T) {
	_, err := Parse([]byte("<FDSNStationXML><unclosed"))
	assert.Error(t, err)
}
