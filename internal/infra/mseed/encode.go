package mseed

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"time"
)

const (
	writeRecordLen   = 4096
	writeRecLenPow   = 12
	writeDataOffset  = 64
	writeBlkOffset   = 48
	samplesPerRecord = (writeRecordLen - writeDataOffset) / 4
)

// Encode serializes the stream as big-endian float32 records with a
// single blockette 1000 per record. Traces are written in order, each
// starting a fresh record.
func Encode(stream *Stream) ([]byte, error) {
	var buf bytes.Buffer
	sequence := 1
	for _, tr := range stream.Traces {
		if tr.SampleRate <= 0 {
			return nil, fmt.Errorf("mseed: trace %s has non-positive sample rate", tr.ID())
		}
		written := 0
		for written < len(tr.Samples) {
			chunk := len(tr.Samples) - written
			if chunk > samplesPerRecord {
				chunk = samplesPerRecord
			}
			start := tr.Start.Add(time.Duration(float64(written) / tr.SampleRate * float64(time.Second)))
			record, err := encodeRecord(tr, start, tr.Samples[written:written+chunk], sequence)
			if err != nil {
				return nil, err
			}
			buf.Write(record)
			written += chunk
			sequence++
		}
	}
	return buf.Bytes(), nil
}

// WriteFile encodes the stream and writes it to path.
func WriteFile(path string, stream *Stream) error {
	data, err := Encode(stream)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("mseed: %w", err)
	}
	return nil
}

func encodeRecord(tr *Trace, start time.Time, samples []float64, sequence int) ([]byte, error) {
	record := make([]byte, writeRecordLen)

	copy(record[0:6], fmt.Sprintf("%06d", sequence%1_000_000))
	record[6] = 'D'
	record[7] = ' '
	copy(record[8:13], padField(tr.Station, 5))
	copy(record[13:15], padField(tr.Location, 2))
	copy(record[15:18], padField(tr.Channel, 3))
	copy(record[18:20], padField(tr.Network, 2))

	if err := encodeBTime(record[20:30], start); err != nil {
		return nil, fmt.Errorf("mseed: trace %s: %w", tr.ID(), err)
	}

	binary.BigEndian.PutUint16(record[30:32], uint16(len(samples)))
	factor, multiplier, err := sampleRateFields(tr.SampleRate)
	if err != nil {
		return nil, fmt.Errorf("mseed: trace %s: %w", tr.ID(), err)
	}
	binary.BigEndian.PutUint16(record[32:34], uint16(factor))
	binary.BigEndian.PutUint16(record[34:36], uint16(multiplier))

	record[39] = 1 // one blockette follows
	binary.BigEndian.PutUint16(record[44:46], writeDataOffset)
	binary.BigEndian.PutUint16(record[46:48], writeBlkOffset)

	// Blockette 1000: encoding, word order (big-endian), record length.
	binary.BigEndian.PutUint16(record[writeBlkOffset:writeBlkOffset+2], 1000)
	binary.BigEndian.PutUint16(record[writeBlkOffset+2:writeBlkOffset+4], 0)
	record[writeBlkOffset+4] = encodingFloat32
	record[writeBlkOffset+5] = 1
	record[writeBlkOffset+6] = writeRecLenPow

	for i, s := range samples {
		binary.BigEndian.PutUint32(record[writeDataOffset+4*i:], math.Float32bits(float32(s)))
	}
	return record, nil
}

func encodeBTime(b []byte, t time.Time) error {
	t = t.UTC()
	year := t.Year()
	if year < 1900 || year > 2500 {
		return fmt.Errorf("start time year %d out of range", year)
	}
	binary.BigEndian.PutUint16(b[0:2], uint16(year))
	binary.BigEndian.PutUint16(b[2:4], uint16(t.YearDay()))
	b[4] = byte(t.Hour())
	b[5] = byte(t.Minute())
	b[6] = byte(t.Second())
	b[7] = 0
	binary.BigEndian.PutUint16(b[8:10], uint16(t.Nanosecond()/100_000))
	return nil
}

// sampleRateFields picks a factor/multiplier pair. Integral rates use a
// positive factor; sub-hertz rates use a negative factor for seconds
// per sample.
func sampleRateFields(rate float64) (int16, int16, error) {
	if rate >= 1.0 {
		rounded := math.Round(rate)
		if math.Abs(rate-rounded) < 1e-6 && rounded <= math.MaxInt16 {
			return int16(rounded), 1, nil
		}
		// Non-integral rate: scale by 100 and divide back out.
		scaled := math.Round(rate * 100)
		if math.Abs(rate*100-scaled) < 1e-4 && scaled <= math.MaxInt16 {
			return int16(scaled), -100, nil
		}
		return 0, 0, fmt.Errorf("sample rate %g not representable", rate)
	}
	period := math.Round(1.0 / rate)
	if math.Abs(1.0/rate-period) < 1e-6 && period <= math.MaxInt16 {
		return int16(-period), 1, nil
	}
	return 0, 0, fmt.Errorf("sample rate %g not representable", rate)
}

func padField(s string, width int) []byte {
	b := make([]byte, width)
	for i := range b {
		b[i] = ' '
	}
	copy(b, s)
	return b
}
