// Package static provides a deterministic, offline embedding model.
// Vectors come from hashed bag-of-words features, so similar texts get
// similar vectors without any network or model weights. Quality is far
// below a neural model; it exists for offline use and tests.
package static

import (
	"context"
	"hash/fnv"
	"strings"

	"github.com/kestrel-labs/mnemo-cli/internal/adapters/driven/embedding"
	"github.com/kestrel-labs/mnemo-cli/internal/vectormath"
)

// Ensure Model implements the interface.
var _ embedding.Model = (*Model)(nil)

// DefaultDimensions keeps static vectors small; they carry no learned
// structure, so a large dimension buys nothing.
const DefaultDimensions = 256

// Model is a hashed bag-of-words embedder.
type Model struct {
	dimensions int
}

// New creates a static model. A non-positive dimension selects the default.
func New(dimensions int) *Model {
	if dimensions <= 0 {
		dimensions = DefaultDimensions
	}
	return &Model{dimensions: dimensions}
}

// Load is a no-op; there are no weights to load.
func (m *Model) Load(_ context.Context) error {
	return nil
}

// Embed produces one vector per text. Each token hashes to a bucket
// whose weight accumulates; the result is unit-normalized.
func (m *Model) Embed(_ context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		v := make([]float32, m.dimensions)
		for _, token := range strings.Fields(strings.ToLower(text)) {
			h := fnv.New32a()
			_, _ = h.Write([]byte(token))
			sum := h.Sum32()
			bucket := int(sum % uint32(m.dimensions))
			// The high bit decides the sign so unrelated tokens can cancel.
			if sum&0x80000000 != 0 {
				v[bucket]--
			} else {
				v[bucket]++
			}
		}
		vectormath.Normalize(v)
		vectors[i] = v
	}
	return vectors, nil
}

// Dimensions returns the embedding vector size.
func (m *Model) Dimensions() int {
	return m.dimensions
}

// Name returns the model identifier.
func (m *Model) Name() string {
	return "static-hash"
}

// Close is a no-op.
func (m *Model) Close() error {
	return nil
}
