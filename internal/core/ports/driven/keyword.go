package driven

import (
	"context"

	"github.com/kestrel-labs/mnemo-cli/internal/core/domain"
)

// KeywordIndex provides full-text relevance search over memories.
// Backed by SQLite FTS5 with BM25 ranking.
type KeywordIndex interface {
	// Index adds or updates a memory in the keyword index.
	Index(ctx context.Context, memory domain.Memory) error

	// Delete removes a memory from the keyword index.
	Delete(ctx context.Context, id string) error

	// Search returns memories matching the query with raw relevance
	// scores, best first. ProjectID narrows the scope when non-empty.
	Search(ctx context.Context, query string, limit int, projectID string) ([]domain.KeywordHit, error)
}
