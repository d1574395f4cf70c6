package mseed

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"strings"
	"time"
)

// Sample encodings from the SEED manual, appendix A.
const (
	encodingASCII   = 0
	encodingInt16   = 1
	encodingInt32   = 3
	encodingFloat32 = 4
	encodingFloat64 = 5
	encodingSteim1  = 10
	encodingSteim2  = 11
)

const fixedHeaderLen = 48

// recordHeader is the decoded fixed section of a data record.
type recordHeader struct {
	station    string
	location   string
	channel    string
	network    string
	start      time.Time
	numSamples int
	sampleRate float64
	numBlk     int
	dataOffset int
	blkOffset  int
}

// Decode parses a complete miniSEED byte stream and assembles records
// into traces in file order. Records sharing a source identifier are
// concatenated; gap handling is out of scope for this reader.
func Decode(data []byte) (*Stream, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("mseed: empty input")
	}

	stream := &Stream{}
	traces := make(map[string]*Trace)

	offset := 0
	for offset < len(data) {
		if len(data)-offset < fixedHeaderLen {
			return nil, fmt.Errorf("mseed: truncated record header at offset %d", offset)
		}
		record := data[offset:]

		hdr, err := parseHeader(record)
		if err != nil {
			return nil, fmt.Errorf("mseed: offset %d: %w", offset, err)
		}

		encoding, recLen, err := parseBlockette1000(record, hdr)
		if err != nil {
			return nil, fmt.Errorf("mseed: offset %d: %w", offset, err)
		}
		if len(data)-offset < recLen {
			return nil, fmt.Errorf("mseed: truncated record body at offset %d", offset)
		}
		if hdr.dataOffset < fixedHeaderLen || hdr.dataOffset > recLen {
			return nil, fmt.Errorf("mseed: offset %d: data offset %d outside record of length %d",
				offset, hdr.dataOffset, recLen)
		}

		samples, err := decodePayload(record[hdr.dataOffset:recLen], encoding, hdr.numSamples)
		if err != nil {
			return nil, fmt.Errorf("mseed: offset %d: %w", offset, err)
		}

		key := sourceKey(hdr.network, hdr.station, hdr.location, hdr.channel)
		if tr, ok := traces[key]; ok {
			tr.Samples = append(tr.Samples, samples...)
		} else {
			tr := &Trace{
				Network:    hdr.network,
				Station:    hdr.station,
				Location:   hdr.location,
				Channel:    hdr.channel,
				Start:      hdr.start,
				SampleRate: hdr.sampleRate,
				Samples:    samples,
			}
			traces[key] = tr
			stream.Traces = append(stream.Traces, tr)
		}

		offset += recLen
	}

	return stream, nil
}

// ReadFile decodes the miniSEED file at path.
func ReadFile(path string) (*Stream, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("mseed: %w", err)
	}
	return Decode(data)
}

func parseHeader(record []byte) (recordHeader, error) {
	var hdr recordHeader

	quality := record[6]
	switch quality {
	case 'D', 'R', 'Q', 'M':
	default:
		return hdr, fmt.Errorf("bad data quality indicator %q", quality)
	}

	hdr.station = strings.TrimSpace(string(record[8:13]))
	hdr.location = strings.TrimSpace(string(record[13:15]))
	hdr.channel = strings.TrimSpace(string(record[15:18]))
	hdr.network = strings.TrimSpace(string(record[18:20]))

	start, err := parseBTime(record[20:30])
	if err != nil {
		return hdr, err
	}
	hdr.start = start

	hdr.numSamples = int(binary.BigEndian.Uint16(record[30:32]))
	factor := int16(binary.BigEndian.Uint16(record[32:34]))
	multiplier := int16(binary.BigEndian.Uint16(record[34:36]))
	hdr.sampleRate = sampleRate(factor, multiplier)

	hdr.numBlk = int(record[39])
	hdr.dataOffset = int(binary.BigEndian.Uint16(record[44:46]))
	hdr.blkOffset = int(binary.BigEndian.Uint16(record[46:48]))
	return hdr, nil
}

// parseBTime decodes the 10-byte BTIME structure (year, day-of-year,
// h, m, s, and ten-thousandths of a second).
func parseBTime(b []byte) (time.Time, error) {
	year := int(binary.BigEndian.Uint16(b[0:2]))
	doy := int(binary.BigEndian.Uint16(b[2:4]))
	hour := int(b[4])
	minute := int(b[5])
	sec := int(b[6])
	fract := int(binary.BigEndian.Uint16(b[8:10]))

	if year < 1900 || year > 2500 || doy < 1 || doy > 366 {
		return time.Time{}, fmt.Errorf("bad record start time year=%d doy=%d", year, doy)
	}
	base := time.Date(year, 1, 1, hour, minute, sec, fract*100_000, time.UTC)
	return base.AddDate(0, 0, doy-1), nil
}

// sampleRate converts the factor/multiplier pair into samples per second.
func sampleRate(factor, multiplier int16) float64 {
	f := float64(factor)
	m := float64(multiplier)
	switch {
	case factor > 0 && multiplier > 0:
		return f * m
	case factor > 0 && multiplier < 0:
		return f / -m
	case factor < 0 && multiplier > 0:
		return m / -f
	case factor < 0 && multiplier < 0:
		return 1.0 / (f * m)
	default:
		return 0
	}
}

// parseBlockette1000 walks the blockette chain until it finds the data
// only SEED blockette, which carries the encoding and record length.
func parseBlockette1000(record []byte, hdr recordHeader) (encoding int, recLen int, err error) {
	offset := hdr.blkOffset
	for i := 0; i < hdr.numBlk; i++ {
		if offset <= 0 || offset+4 > len(record) {
			break
		}
		blkType := int(binary.BigEndian.Uint16(record[offset : offset+2]))
		next := int(binary.BigEndian.Uint16(record[offset+2 : offset+4]))
		if blkType == 1000 {
			if offset+7 > len(record) {
				return 0, 0, fmt.Errorf("truncated blockette 1000")
			}
			encoding = int(record[offset+4])
			recLen = 1 << int(record[offset+6])
			if recLen < 128 || recLen > 65536 {
				return 0, 0, fmt.Errorf("implausible record length %d", recLen)
			}
			return encoding, recLen, nil
		}
		if next == 0 {
			break
		}
		offset = next
	}
	return 0, 0, fmt.Errorf("missing blockette 1000")
}

func decodePayload(payload []byte, encoding, numSamples int) ([]float64, error) {
	switch encoding {
	case encodingInt16:
		return decodeInt16(payload, numSamples)
	case encodingInt32:
		return decodeInt32(payload, numSamples)
	case encodingFloat32:
		return decodeFloat32(payload, numSamples)
	case encodingFloat64:
		return decodeFloat64(payload, numSamples)
	case encodingSteim1:
		return decodeSteim(payload, numSamples, 1)
	case encodingSteim2:
		return decodeSteim(payload, numSamples, 2)
	default:
		return nil, fmt.Errorf("unsupported encoding %d", encoding)
	}
}

func decodeInt16(payload []byte, n int) ([]float64, error) {
	if len(payload) < 2*n {
		return nil, fmt.Errorf("int16 payload too short for %d samples", n)
	}
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = float64(int16(binary.BigEndian.Uint16(payload[2*i:])))
	}
	return out, nil
}

func decodeInt32(payload []byte, n int) ([]float64, error) {
	if len(payload) < 4*n {
		return nil, fmt.Errorf("int32 payload too short for %d samples", n)
	}
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = float64(int32(binary.BigEndian.Uint32(payload[4*i:])))
	}
	return out, nil
}

func decodeFloat32(payload []byte, n int) ([]float64, error) {
	if len(payload) < 4*n {
		return nil, fmt.Errorf("float32 payload too short for %d samples", n)
	}
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = float64(math.Float32frombits(binary.BigEndian.Uint32(payload[4*i:])))
	}
	return out, nil
}

func decodeFloat64(payload []byte, n int) ([]float64, error) {
	if len(payload) < 8*n {
		return nil, fmt.Errorf("float64 payload too short for %d samples", n)
	}
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = math.Float64frombits(binary.BigEndian.Uint64(payload[8*i:]))
	}
	return out, nil
}
