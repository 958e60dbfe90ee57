package chromem

import (
	"context"
	"fmt"

	chromem "github.com/philippgille/chromem-go"

	"github.com/kestrel-labs/mnemo-cli/internal/core/domain"
	"github.com/kestrel-labs/mnemo-cli/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// Index provides accelerated vector similarity search backed by
// chromem-go, a pure Go embedded vector database. The index lives in
// memory and is rebuilt from the embedding store at startup; it is
// never the source of truth.
type Index struct {
	dimension  int
	collection *chromem.Collection
}

// New creates an in-memory index for one entity kind. Vectors must be
// unit-normalized and dimension-long.
func New(kind domain.EntityKind, dimension int) (*Index, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: unknown entity kind %q", domain.ErrInvalidInput, kind)
	}
	if dimension <= 0 {
		return nil, fmt.Errorf("%w: dimension must be positive", domain.ErrInvalidInput)
	}

	db := chromem.NewDB()
	// Embeddings are always supplied by the caller, so no embedding
	// function is configured; the default cosine distance applies.
	col, err := db.CreateCollection(string(kind), nil, nil)
	if err != nil {
		return nil, fmt.Errorf("create collection %q: %w", kind, err)
	}

	return &Index{dimension: dimension, collection: col}, nil
}

// Add mirrors a vector into the index under the entity id. Re-adding
// an existing id replaces the previous vector.
func (idx *Index) Add(ctx context.Context, entityID string, vector []float32) error {
	if entityID == "" {
		return fmt.Errorf("%w: entity id is required", domain.ErrInvalidInput)
	}
	if len(vector) != idx.dimension {
		return fmt.Errorf("%w: got %d dimensions, index expects %d",
			domain.ErrDimensionMismatch, len(vector), idx.dimension)
	}

	doc := chromem.Document{
		ID:        entityID,
		Content:   entityID,
		Embedding: vector,
	}
	if err := idx.collection.AddDocument(ctx, doc); err != nil {
		return fmt.Errorf("index vector for %s: %w", entityID, err)
	}
	return nil
}

// Delete removes a vector from the index. Deleting an absent id is
// not an error.
func (idx *Index) Delete(ctx context.Context, entityID string) error {
	if entityID == "" {
		return fmt.Errorf("%w: entity id is required", domain.ErrInvalidInput)
	}
	if err := idx.collection.Delete(ctx, nil, nil, entityID); err != nil {
		return fmt.Errorf("delete vector for %s: %w", entityID, err)
	}
	return nil
}

// Search finds the k nearest neighbours to the query vector, best
// first. Returns fewer than k hits when the index holds fewer vectors.
func (idx *Index) Search(ctx context.Context, query []float32, k int) ([]driven.VectorHit, error) {
	if len(query) != idx.dimension {
		return nil, fmt.Errorf("%w: got %d dimensions, index expects %d",
			domain.ErrDimensionMismatch, len(query), idx.dimension)
	}

	// chromem rejects nResults larger than the collection size.
	if count := idx.collection.Count(); k > count {
		k = count
	}
	if k <= 0 {
		return []driven.VectorHit{}, nil
	}

	results, err := idx.collection.QueryEmbedding(ctx, query, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("query index: %w", err)
	}

	hits := make([]driven.VectorHit, 0, len(results))
	for _, r := range results {
		hits = append(hits, driven.VectorHit{
			EntityID:   r.ID,
			Similarity: float64(r.Similarity),
		})
	}
	return hits, nil
}

// Count returns the number of indexed vectors.
func (idx *Index) Count() int {
	return idx.collection.Count()
}

// Close releases resources. The in-memory index has nothing to flush.
func (idx *Index) Close() error {
	return nil
}
