// Package encoding packs tree shape bitmaps for snapshots.
package encoding

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"fmt"
)

// maxRun caps a single run so decoders can bound allocation per pair.
const maxRun = 1 << 31

// EncodeRLE encodes values as base64 of (value, run_len) uvarint pairs.
func EncodeRLE(vals []uint16) string {
	var buf bytes.Buffer
	var tmp [binary.MaxVarintLen64]byte

	for i := 0; i < len(vals); {
		v := vals[i]
		run := 1
		for j := i + 1; j < len(vals) && vals[j] == v && run < maxRun; j++ {
			run++
		}

		n := binary.PutUvarint(tmp[:], uint64(v))
		buf.Write(tmp[:n])
		n = binary.PutUvarint(tmp[:], uint64(run))
		buf.Write(tmp[:n])

		i += run
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

// DecodeRLE reverses EncodeRLE. limit bounds the decoded length; zero means
// no bound.
func DecodeRLE(b64 string, limit int) ([]uint16, error) {
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, err
	}
	var out []uint16
	for i := 0; i < len(raw); {
		v, n := binary.Uvarint(raw[i:])
		if n <= 0 {
			return nil, fmt.Errorf("bad varint at %d", i)
		}
		i += n
		run, n := binary.Uvarint(raw[i:])
		if n <= 0 {
			return nil, fmt.Errorf("bad varint at %d", i)
		}
		i += n
		if v > 0xFFFF {
			return nil, fmt.Errorf("value too large: %d", v)
		}
		if run == 0 || run > maxRun {
			return nil, fmt.Errorf("bad run length %d", run)
		}
		if limit > 0 && len(out)+int(run) > limit {
			return nil, fmt.Errorf("decoded length exceeds %d", limit)
		}
		for k := uint64(0); k < run; k++ {
			out = append(out, uint16(v))
		}
	}
	return out, nil
}

// EncodeBits encodes a bitmap; long all-leaf stretches collapse to one pair.
func EncodeBits(bits []bool) string {
	vals := make([]uint16, len(bits))
	for i, b := range bits {
		if b {
			vals[i] = 1
		}
	}
	return EncodeRLE(vals)
}

func DecodeBits(b64 string, limit int) ([]bool, error) {
	vals, err := DecodeRLE(b64, limit)
	if err != nil {
		return nil, err
	}
	out := make([]bool, len(vals))
	for i, v := range vals {
		switch v {
		case 0:
		case 1:
			out[i] = true
		default:
			return nil, fmt.Errorf("bit %d has value %d", i, v)
		}
	}
	return out, nil
}
