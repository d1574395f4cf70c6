package mseed

import (
	"encoding/binary"
	"fmt"
)

const steimFrameLen = 64

// decodeSteim unpacks Steim1 or Steim2 compressed payloads. Both pack
// first differences into 64-byte frames whose leading control word
// holds sixteen 2-bit nibbles, one per word. Frame one carries the
// forward and reverse integration constants in words one and two.
func decodeSteim(payload []byte, numSamples, version int) ([]float64, error) {
	if numSamples == 0 {
		return nil, nil
	}
	if len(payload) < steimFrameLen {
		return nil, fmt.Errorf("steim%d payload shorter than one frame", version)
	}

	diffs := make([]int32, 0, numSamples)
	var x0, xn int32
	haveConstants := false

	for frameStart := 0; frameStart+steimFrameLen <= len(payload); frameStart += steimFrameLen {
		frame := payload[frameStart : frameStart+steimFrameLen]
		control := binary.BigEndian.Uint32(frame[0:4])

		for w := 1; w < 16; w++ {
			word := frame[4*w : 4*w+4]
			nibble := (control >> uint(2*(15-w))) & 0x3

			if frameStart == 0 && w == 1 {
				x0 = int32(binary.BigEndian.Uint32(word))
				haveConstants = true
				continue
			}
			if frameStart == 0 && w == 2 {
				xn = int32(binary.BigEndian.Uint32(word))
				continue
			}

			switch nibble {
			case 0: // non-data word
			case 1: // four 8-bit differences
				for i := 0; i < 4; i++ {
					diffs = append(diffs, int32(int8(word[i])))
				}
			case 2:
				if version == 1 {
					diffs = append(diffs,
						int32(int16(binary.BigEndian.Uint16(word[0:2]))),
						int32(int16(binary.BigEndian.Uint16(word[2:4]))))
				} else {
					diffs = append(diffs, steim2Nibble2(binary.BigEndian.Uint32(word))...)
				}
			case 3:
				if version == 1 {
					diffs = append(diffs, int32(binary.BigEndian.Uint32(word)))
				} else {
					d, err := steim2Nibble3(binary.BigEndian.Uint32(word))
					if err != nil {
						return nil, err
					}
					diffs = append(diffs, d...)
				}
			}

			if len(diffs) >= numSamples {
				break
			}
		}
		if len(diffs) >= numSamples {
			break
		}
	}

	if !haveConstants {
		return nil, fmt.Errorf("steim%d payload missing integration constants", version)
	}
	if len(diffs) < numSamples {
		return nil, fmt.Errorf("steim%d decoded %d differences, want %d samples", version, len(diffs), numSamples)
	}

	out := make([]float64, numSamples)
	current := x0
	out[0] = float64(current)
	// The first difference reconstructs sample zero from the previous
	// record and is skipped; x0 is authoritative.
	for i := 1; i < numSamples; i++ {
		current += diffs[i]
		out[i] = float64(current)
	}
	if current != xn {
		return nil, fmt.Errorf("steim%d reverse integration mismatch: got %d want %d", version, current, xn)
	}
	return out, nil
}

// steim2Nibble2 expands a nibble-2 word using the embedded dnib: one
// 30-bit, two 15-bit, or three 10-bit differences.
func steim2Nibble2(word uint32) []int32 {
	dnib := word >> 30
	switch dnib {
	case 1:
		return []int32{signExtend(word&0x3FFFFFFF, 30)}
	case 2:
		return []int32{
			signExtend((word>>15)&0x7FFF, 15),
			signExtend(word&0x7FFF, 15),
		}
	case 3:
		return []int32{
			signExtend((word>>20)&0x3FF, 10),
			signExtend((word>>10)&0x3FF, 10),
			signExtend(word&0x3FF, 10),
		}
	}
	return nil
}

// steim2Nibble3 expands a nibble-3 word: five 6-bit, six 5-bit, or
// seven 4-bit differences in the low 28 bits.
func steim2Nibble3(word uint32) ([]int32, error) {
	dnib := word >> 30
	switch dnib {
	case 0:
		out := make([]int32, 5)
		for i := 0; i < 5; i++ {
			out[i] = signExtend((word>>uint(24-6*i))&0x3F, 6)
		}
		return out, nil
	case 1:
		out := make([]int32, 6)
		for i := 0; i < 6; i++ {
			out[i] = signExtend((word>>uint(25-5*i))&0x1F, 5)
		}
		return out, nil
	case 2:
		out := make([]int32, 7)
		for i := 0; i < 7; i++ {
			out[i] = signExtend((word>>uint(24-4*i))&0xF, 4)
		}
		return out, nil
	}
	return nil, fmt.Errorf("steim2 nibble 3 with reserved dnib %d", dnib)
}

func signExtend(v uint32, bits uint) int32 {
	shift := 32 - bits
	return int32(v<<shift) >> shift
}
