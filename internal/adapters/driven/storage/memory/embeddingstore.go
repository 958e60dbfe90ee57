package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/kestrel-labs/mnemo-cli/internal/core/domain"
	"github.com/kestrel-labs/mnemo-cli/internal/core/ports/driven"
	"github.com/kestrel-labs/mnemo-cli/internal/vectormath"
)

// Ensure EmbeddingStore implements the interface.
var _ driven.EmbeddingStore = (*EmbeddingStore)(nil)

// EmbeddingStore is an in-memory implementation of driven.EmbeddingStore
// for one entity kind. Search is always an exact scan; there is no
// accelerated index to mirror.
type EmbeddingStore struct {
	mu         sync.RWMutex
	kind       domain.EntityKind
	dimensions int
	embedder   driven.EmbeddingService
	records    map[string]domain.EmbeddingRecord
}

// NewEmbeddingStore creates an in-memory embedding store. The embedder
// is optional; without one Store always reports false.
func NewEmbeddingStore(kind domain.EntityKind, embedder driven.EmbeddingService, dimensions int) *EmbeddingStore {
	return &EmbeddingStore{
		kind:       kind,
		dimensions: dimensions,
		embedder:   embedder,
		records:    make(map[string]domain.EmbeddingRecord),
	}
}

// Store generates the embedding for text and upserts the record.
// Returns false when generation fails.
func (s *EmbeddingStore) Store(ctx context.Context, entityID, text string) bool {
	if s.embedder == nil {
		return false
	}
	vector, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return false
	}
	return s.StoreVector(ctx, entityID, vector) == nil
}

// StoreVector upserts a pre-computed vector for the entity.
func (s *EmbeddingStore) StoreVector(_ context.Context, entityID string, vector []float32) error {
	if len(vector) != s.dimensions {
		return domain.ErrDimensionMismatch
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[entityID] = domain.EmbeddingRecord{
		EntityID:  entityID,
		Vector:    vector,
		CreatedAt: time.Now().UTC(),
	}
	return nil
}

// Delete removes the entity's embedding record.
func (s *EmbeddingStore) Delete(_ context.Context, entityID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, entityID)
	return nil
}

// Has reports whether the entity has a stored embedding.
func (s *EmbeddingStore) Has(_ context.Context, entityID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.records[entityID]
	return ok, nil
}

// Get returns the entity's vector, or nil when missing.
func (s *EmbeddingStore) Get(_ context.Context, entityID string) ([]float32, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[entityID]
	if !ok {
		return nil, nil
	}
	return rec.Vector, nil
}

// GetAll enumerates stored embedding records. The project filter is
// ignored; the in-memory store holds no ownership information.
func (s *EmbeddingStore) GetAll(_ context.Context, _ *driven.EmbeddingFilter) ([]domain.EmbeddingRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]domain.EmbeddingRecord, 0, len(s.records))
	for _, rec := range s.records {
		result = append(result, rec)
	}
	return result, nil
}

// Count returns the number of stored embedding records.
func (s *EmbeddingStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records), nil
}

// Search scans every stored vector with exact cosine similarity.
func (s *EmbeddingStore) Search(_ context.Context, query []float32, opts driven.VectorSearchOptions) ([]driven.VectorHit, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var hits []driven.VectorHit
	for id, rec := range s.records {
		sim, err := vectormath.CosineSimilarity(query, rec.Vector)
		if err != nil {
			continue
		}
		if sim < opts.MinSimilarity {
			continue
		}
		hits = append(hits, driven.VectorHit{EntityID: id, Similarity: sim})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Similarity == hits[j].Similarity {
			return hits[i].EntityID < hits[j].EntityID
		}
		return hits[i].Similarity > hits[j].Similarity
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// Rebuild is a no-op: there is no accelerated index to mirror.
func (s *EmbeddingStore) Rebuild(_ context.Context) (int, error) {
	return 0, domain.ErrVectorIndexUnavailable
}

// Kind returns the entity kind this store is scoped to.
func (s *EmbeddingStore) Kind() domain.EntityKind {
	return s.kind
}
