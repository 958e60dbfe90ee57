package driven

import (
	"context"

	"github.com/kestrel-labs/mnemo-cli/internal/core/domain"
)

// MemoryStore persists memory records.
type MemoryStore interface {
	// Save stores or updates a memory.
	Save(ctx context.Context, memory domain.Memory) error

	// Get retrieves a memory by ID.
	Get(ctx context.Context, id string) (*domain.Memory, error)

	// GetBatch retrieves multiple memories by ID. Missing ids are
	// skipped, not errored.
	GetBatch(ctx context.Context, ids []string) ([]domain.Memory, error)

	// Delete removes a memory.
	Delete(ctx context.Context, id string) error

	// List returns memories, scoped to a project when projectID is
	// non-empty, newest first.
	List(ctx context.Context, projectID string) ([]domain.Memory, error)
}

// Backlog enumerates entities of one kind that are still missing
// embeddings. The backfill runner consumes it in bounded batches.
type Backlog interface {
	// Kind returns the entity kind this backlog covers.
	Kind() domain.EntityKind

	// CountMissing returns how many entities lack an embedding.
	CountMissing(ctx context.Context) (int, error)

	// ListMissing returns up to limit entities lacking an embedding.
	ListMissing(ctx context.Context, limit int) ([]domain.Embeddable, error)
}
