// Package vectormath provides the similarity primitives shared by the
// embedding store, the vector index and the clustering service: exact
// cosine similarity over fixed-length float32 vectors and a lossless
// byte codec for durable storage.
package vectormath

import (
	"encoding/binary"
	"math"

	"github.com/kestrel-labs/mnemo-cli/internal/core/domain"
)

// CosineSimilarity computes the cosine similarity between two vectors.
// Returns domain.ErrDimensionMismatch when the lengths differ.
// When either vector has zero magnitude the result is 0, not NaN.
// The result is always in [-1, 1].
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, domain.ErrDimensionMismatch
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0, nil
	}

	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))

	// Guard against floating point drift outside the legal range.
	if sim > 1 {
		sim = 1
	} else if sim < -1 {
		sim = -1
	}

	return sim, nil
}

// Normalize scales v to unit length in place. Zero vectors are left
// unchanged. The embedding pool normalizes every vector it returns, so
// stored vectors can be compared by dot product and L2-based index
// distances convert exactly to cosine similarity.
func Normalize(v []float32) {
	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	if norm == 0 {
		return
	}
	inv := 1 / math.Sqrt(norm)
	for i := range v {
		v[i] = float32(float64(v[i]) * inv)
	}
}

// VectorToBytes converts a vector to its little-endian byte encoding
// for BLOB storage. Round-tripping through BytesToVector reproduces
// the exact input bit pattern.
func VectorToBytes(v []float32) []byte {
	if len(v) == 0 {
		return nil
	}
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// BytesToVector decodes a little-endian byte encoding back to a vector.
// Trailing bytes that do not form a full float32 are ignored.
func BytesToVector(data []byte) []float32 {
	if len(data) < 4 {
		return nil
	}
	v := make([]float32, len(data)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return v
}
