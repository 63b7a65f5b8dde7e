package materials

import (
	"encoding/binary"
	"math"
)

// EncodeEmbedding packs a float32 vector into little-endian bytes for the
// ent schema's raw Bytes column (§4.6).
func EncodeEmbedding(v []float32) []byte {
	buf := make([]byte, 4*len(v))

	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}

	return buf
}

// DecodeEmbedding unpacks EncodeEmbedding's byte layout back into a float32
// vector. Returns nil for an empty or malformed (non-multiple-of-4) input.
func DecodeEmbedding(b []byte) []float32 {
	if len(b) == 0 || len(b)%4 != 0 {
		return nil
	}

	v := make([]float32, len(b)/4)

	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}

	return v
}
