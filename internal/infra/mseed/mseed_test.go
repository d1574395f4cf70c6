package mseed

import (
	"encoding/binary"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	start := time.Date(2024, 3, 15, 6, 30, 0, 0, time.UTC)
	samples := make([]float64, 2500)
	for i := range samples {
		samples[i] = float64(i % 97)
	}
	stream := &Stream{Traces: []*Trace{{
		Network:    "IU",
		Station:    "ANMO",
		Location:   "00",
		Channel:    "BHZ",
		Start:      start,
		SampleRate: 40,
		Samples:    samples,
	}}}

	data, err := Encode(stream)
	require.NoError(t, err)
	// 2500 samples at 1008 per record is three records.
	assert.Len(t, data, 3*writeRecordLen)

	decoded, err := Decode(data)
	require.NoError(t, err)
	require.Len(t, decoded.Traces, 1)

	tr := decoded.Traces[0]
	assert.Equal(t, "IU.ANMO.00.BHZ", tr.ID())
	assert.Equal(t, 40.0, tr.SampleRate)
	assert.True(t, tr.Start.Equal(start))
	require.Equal(t, len(samples), tr.Npts())
	for i, want := range samples {
		require.Equal(t, want, tr.Samples[i], "sample %d", i)
	}
}

func TestEncodeMultipleTraces(t *testing.T) {
	start := time.Date(2024, 3, 15, 6, 30, 0, 0, time.UTC)
	stream := &Stream{Traces: []*Trace{
		{Network: "IU", Station: "ANMO", Channel: "BHZ", Start: start, SampleRate: 20, Samples: []float64{1, 2, 3}},
		{Network: "IU", Station: "ANMO", Channel: "BHN", Start: start, SampleRate: 20, Samples: []float64{4, 5, 6}},
	}}

	data, err := Encode(stream)
	require.NoError(t, err)

	decoded, err := Decode(data)
	require.NoError(t, err)
	require.Len(t, decoded.Traces, 2)
	assert.Equal(t, "IU.ANMO..BHZ", decoded.Traces[0].ID())
	assert.Equal(t, "IU.ANMO..BHN", decoded.Traces[1].ID())
	assert.Equal(t, []float64{4, 5, 6}, decoded.Traces[1].Samples)
}

func TestSampleRateConversion(t *testing.T) {
	tests := []struct {
		factor, multiplier int16
		want               float64
	}{
		{40, 1, 40},
		{100, 1, 100},
		{40, -2, 20},
		{-10, 1, 0.1},
		{-2, -5, 0.1},
		{0, 0, 0},
	}
	for _, tc := range tests {
		assert.InDelta(t, tc.want, sampleRate(tc.factor, tc.multiplier), 1e-9,
			"factor=%d multiplier=%d", tc.factor, tc.multiplier)
	}
}

func TestSampleRateFields(t *testing.T) {
	f, m, err := sampleRateFields(40)
	require.NoError(t, err)
	assert.InDelta(t, 40.0, sampleRate(f, m), 1e-9)

	f, m, err = sampleRateFields(0.1)
	require.NoError(t, err)
	assert.InDelta(t, 0.1, sampleRate(f, m), 1e-9)

	f, m, err = sampleRateFields(12.5)
	require.NoError(t, err)
	assert.InDelta(t, 12.5, sampleRate(f, m), 1e-9)
}

// buildSteimRecord wraps a single compressed frame in a 4096-byte
// record with a blockette 1000 naming the given encoding.
func buildSteimRecord(t *testing.T, frame []byte, numSamples, encoding int) []byte {
	t.Helper()
	require.Len(t, frame, steimFrameLen)

	record := make([]byte, writeRecordLen)
	copy(record[0:6], "000001")
	record[6] = 'D'
	copy(record[8:13], "TEST ")
	copy(record[15:18], "BHZ")
	copy(record[18:20], "XX")

	binary.BigEndian.PutUint16(record[20:22], 2024)
	binary.BigEndian.PutUint16(record[22:24], 75)
	binary.BigEndian.PutUint16(record[30:32], uint16(numSamples))
	binary.BigEndian.PutUint16(record[32:34], uint16(int16(20)))
	binary.BigEndian.PutUint16(record[34:36], 1)
	record[39] = 1
	binary.BigEndian.PutUint16(record[44:46], writeDataOffset)
	binary.BigEndian.PutUint16(record[46:48], writeBlkOffset)

	binary.BigEndian.PutUint16(record[writeBlkOffset:], 1000)
	record[writeBlkOffset+4] = byte(encoding)
	record[writeBlkOffset+5] = 1
	record[writeBlkOffset+6] = writeRecLenPow

	copy(record[writeDataOffset:], frame)
	return record
}

func TestDecodeSteim1(t *testing.T) {
	// Samples 10, 11, 13, 10: differences 0 (skipped), 1, 2, -3 packed
	// as four 8-bit values in word 3.
	frame := make([]byte, steimFrameLen)
	binary.BigEndian.PutUint32(frame[0:4], 1<<(2*(15-3)))
	binary.BigEndian.PutUint32(frame[4:8], 10)   // x0
	binary.BigEndian.PutUint32(frame[8:12], 10)  // xn
	frame[12] = 0
	frame[13] = 1
	frame[14] = 2
	frame[15] = 0xFD // -3

	record := buildSteimRecord(t, frame, 4, encodingSteim1)
	stream, err := Decode(record)
	require.NoError(t, err)
	require.Len(t, stream.Traces, 1)
	assert.Equal(t, []float64{10, 11, 13, 10}, stream.Traces[0].Samples)
}

func TestDecodeSteim2TwoFifteenBit(t *testing.T) {
	// Samples 5, 1005, 5: the differences 1000 and -1000 need 15-bit
	// fields, exercising the dnib path.
	negDiff := int32(-1000)
	word3 := uint32(2)<<30 | uint32(0)<<15 | uint32(1000)&0x7FFF
	word4 := uint32(2)<<30 | (uint32(negDiff)&0x7FFF)<<15

	frame := make([]byte, steimFrameLen)
	control := uint32(2)<<(2*(15-3)) | uint32(2)<<(2*(15-4))
	binary.BigEndian.PutUint32(frame[0:4], control)
	binary.BigEndian.PutUint32(frame[4:8], 5)  // x0
	binary.BigEndian.PutUint32(frame[8:12], 5) // xn
	binary.BigEndian.PutUint32(frame[12:16], word3)
	binary.BigEndian.PutUint32(frame[16:20], word4)

	record := buildSteimRecord(t, frame, 3, encodingSteim2)
	stream, err := Decode(record)
	require.NoError(t, err)
	require.Len(t, stream.Traces, 1)
	assert.Equal(t, []float64{5, 1005, 5}, stream.Traces[0].Samples)
}

func TestDecodeSteim2SevenFourBit(t *testing.T) {
	// Seven samples ramping by one: seven 4-bit differences in a single
	// nibble-3 word with dnib 2. The first difference is skipped, so
	// only fields one through six carry the ramp.
	word3 := uint32(2) << 30
	for i := 1; i <= 6; i++ {
		word3 |= uint32(1) << uint(24-4*i)
	}

	frame := make([]byte, steimFrameLen)
	binary.BigEndian.PutUint32(frame[0:4], uint32(3)<<(2*(15-3)))
	binary.BigEndian.PutUint32(frame[4:8], 0)  // x0
	binary.BigEndian.PutUint32(frame[8:12], 6) // xn
	binary.BigEndian.PutUint32(frame[12:16], word3)

	record := buildSteimRecord(t, frame, 7, encodingSteim2)
	stream, err := Decode(record)
	require.NoError(t, err)
	require.Len(t, stream.Traces, 1)
	assert.Equal(t, []float64{0, 1, 2, 3, 4, 5, 6}, stream.Traces[0].Samples)
}

func TestDecodeSteim1ReverseIntegrationMismatch(t *testing.T) {
	frame := make([]byte, steimFrameLen)
	binary.BigEndian.PutUint32(frame[0:4], 1<<(2*(15-3)))
	binary.BigEndian.PutUint32(frame[4:8], 10)
	binary.BigEndian.PutUint32(frame[8:12], 999) // wrong xn
	frame[13] = 1
	frame[14] = 1
	frame[15] = 1

	record := buildSteimRecord(t, frame, 4, encodingSteim1)
	_, err := Decode(record)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reverse integration")
}

func TestDecodeRejectsTruncated(t *testing.T) {
	_, err := Decode(make([]byte, 20))
	assert.Error(t, err)

	_, err = Decode(nil)
	assert.Error(t, err)
}

func TestDecodeRejectsBadDataOffset(t *testing.T) {
	stream := &Stream{Traces: []*Trace{{
		Network: "IU", Station: "ANMO", Channel: "BHZ",
		Start:      time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		SampleRate: 20,
		Samples:    []float64{1, 2, 3, 4},
	}}}
	data, err := Encode(stream)
	require.NoError(t, err)

	// A data offset past the record end must fail cleanly, not panic.
	corrupt := append([]byte(nil), data...)
	binary.BigEndian.PutUint16(corrupt[44:46], uint16(writeRecordLen+904))
	_, err = Decode(corrupt)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "data offset")

	// So must one pointing inside the fixed header.
	binary.BigEndian.PutUint16(corrupt[44:46], 8)
	_, err = Decode(corrupt)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "data offset")
}

func TestStreamStatsAndPreviews(t *testing.T) {
	stream := &Stream{Traces: []*Trace{
		{Network: "IU", Station: "ANMO", Channel: "BHZ", SampleRate: 20, Samples: make([]float64, 100)},
		{Network: "IU", Station: "ANMO", Channel: "BHN", SampleRate: 20, Samples: make([]float64, 50)},
	}}

	stats := stream.Stats()
	assert.Equal(t, 2, stats.TraceCount)
	assert.Equal(t, int64(150), stats.TotalSamples)
	assert.Equal(t, int64(600), stats.EstimatedBytes)

	previews := stream.Previews(1)
	require.Len(t, previews, 1)
	assert.Equal(t, "IU.ANMO..BHZ", previews[0].ID)
	assert.Equal(t, 100, previews[0].Npts)
}

func TestTraceEnd(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tr := &Trace{Start: start, SampleRate: 10, Samples: make([]float64, 101)}
	assert.True(t, tr.End().Equal(start.Add(10*time.Second)))
	assert.InDelta(t, 5.0, tr.Nyquist(), 1e-9)
}

func TestEncodeBTimeFraction(t *testing.T) {
	b := make([]byte, 10)
	ts := time.Date(2024, 7, 4, 12, 0, 0, 123_400_000, time.UTC)
	require.NoError(t, encodeBTime(b, ts))
	decoded, err := parseBTime(b)
	require.NoError(t, err)
	assert.True(t, decoded.Equal(ts), "got %v", decoded)
}
