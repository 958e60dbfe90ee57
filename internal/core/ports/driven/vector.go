package driven

import "context"

// VectorIndex provides accelerated nearest-neighbour search. It is a
// derived, rebuildable projection of the EmbeddingStore's records,
// never a source of truth. Availability is probed once per store and
// cached; when the index is unavailable the store scans exhaustively.
type VectorIndex interface {
	// Add mirrors a vector into the index under the entity id.
	Add(ctx context.Context, entityID string, vector []float32) error

	// Delete removes a vector from the index.
	Delete(ctx context.Context, entityID string) error

	// Search finds the k nearest neighbours to the query vector,
	// ordered by similarity descending.
	Search(ctx context.Context, query []float32, k int) ([]VectorHit, error)

	// Count returns the number of indexed vectors.
	Count() int

	// Close releases resources.
	Close() error
}
