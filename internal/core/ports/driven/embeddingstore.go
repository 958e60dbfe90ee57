package driven

import (
	"context"

	"github.com/kestrel-labs/mnemo-cli/internal/core/domain"
)

// EmbeddingStore persists one fixed-length vector per entity for a single
// entity kind. Safe for concurrent reads; writes for different entity ids
// may proceed concurrently.
type EmbeddingStore interface {
	// Store generates the embedding for text and upserts the record.
	// Returns false, without an error, when generation or the write
	// fails: embedding failures never block the record-creation path,
	// the backfill runner fills the gap later.
	Store(ctx context.Context, entityID, text string) bool

	// StoreVector upserts a pre-computed vector for the entity.
	StoreVector(ctx context.Context, entityID string, vector []float32) error

	// Delete removes the entity's embedding record.
	Delete(ctx context.Context, entityID string) error

	// Has reports whether the entity has a stored embedding.
	Has(ctx context.Context, entityID string) (bool, error)

	// Get returns the entity's vector, or nil when the record is missing
	// or its decoded length differs from the configured dimension.
	Get(ctx context.Context, entityID string) ([]float32, error)

	// GetAll enumerates embedding records, optionally scoped by filter.
	GetAll(ctx context.Context, filter *EmbeddingFilter) ([]domain.EmbeddingRecord, error)

	// Count returns the number of stored embedding records.
	Count(ctx context.Context) (int, error)

	// Search returns the entities most similar to the query vector.
	// Uses the accelerated index when available, otherwise an exhaustive
	// exact-cosine scan. Result shape is identical either way.
	Search(ctx context.Context, query []float32, opts VectorSearchOptions) ([]VectorHit, error)

	// Rebuild re-mirrors every stored vector into the accelerated
	// index and returns the mirrored count. Returns
	// ErrVectorIndexUnavailable when no index is configured.
	Rebuild(ctx context.Context) (int, error)

	// Kind returns the entity kind this store is scoped to.
	Kind() domain.EntityKind
}

// EmbeddingFilter restricts a bulk enumeration.
type EmbeddingFilter struct {
	// ProjectID limits records to entities owned by one project.
	ProjectID string
}

// VectorSearchOptions configures a similarity search.
type VectorSearchOptions struct {
	// Limit is the maximum number of hits. Defaults to 10 when zero.
	Limit int

	// MinSimilarity drops hits scoring below this value.
	MinSimilarity float64

	// ProjectID restricts hits to entities owned by one project.
	ProjectID string
}

// VectorHit represents a similarity search result.
type VectorHit struct {
	// EntityID is the matched entity.
	EntityID string

	// Similarity is the cosine similarity score (0-1).
	Similarity float64
}
