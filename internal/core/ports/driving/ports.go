// Package driving defines interfaces that external actors (CLI, host
// process) use to interact with core services. These are the "driving"
// ports in hexagonal architecture terminology - they drive the application.
//
// Implementations of these interfaces live in internal/core/services.
package driving

import (
	"context"

	"github.com/kestrel-labs/mnemo-cli/internal/core/domain"
)

// MemoryService manages the lifecycle of memory records.
type MemoryService interface {
	// Remember saves a memory, indexes it for keyword search and
	// attempts inline embedding. The returned bool reports whether the
	// embedding was generated; a false value is not an error, the
	// backfill runner covers the gap.
	Remember(ctx context.Context, memory domain.Memory) (domain.Memory, bool, error)

	// Forget removes a memory and its index entries.
	Forget(ctx context.Context, id string) error
}

// SearchService provides hybrid retrieval over stored records.
type SearchService interface {
	// Search performs hybrid (keyword + vector) search, degrading to
	// keyword-only when embeddings are unavailable.
	Search(ctx context.Context, query string, opts domain.SearchOptions) ([]domain.SearchResult, error)
}

// BackfillService embeds every entity that is still missing a vector.
type BackfillService interface {
	// Migrate runs the backfill to completion, reporting progress after
	// each successfully embedded entity. Idempotent: a second run with
	// nothing missing processes zero entities. Concurrent callers join
	// the same in-flight run.
	Migrate(ctx context.Context, onProgress func(processed, total int)) (domain.BackfillResult, error)

	// EnsureMigrated starts Migrate in the background if it is not
	// already running or complete, and returns immediately.
	EnsureMigrated()

	// MissingCount reports how many entities still lack embeddings.
	MissingCount(ctx context.Context) (int, error)

	// Missing returns up to limit entities still lacking embeddings.
	Missing(ctx context.Context, limit int) ([]domain.Embeddable, error)
}

// PatternService detects repeated patterns across stored memories.
type PatternService interface {
	// Clusters groups memories by blended lexical and semantic
	// similarity, largest cluster first.
	Clusters(ctx context.Context, threshold float64) ([]domain.SimilarityCluster, error)

	// SkillCandidates returns clusters large enough to promote into a
	// durable skill definition.
	SkillCandidates(ctx context.Context, minSize int) ([]domain.SimilarityCluster, error)
}
