package driven

import (
	"context"
	"time"
)

// EmbeddingService generates vector embeddings from text.
// This is an optional service - when nil, vector/semantic search is disabled.
//
// Implementations isolate a potentially slow-to-load model behind a worker
// goroutine: the caller never performs inference on its own goroutine. All
// methods are safe for concurrent use; concurrent requests are multiplexed
// by correlation id and may complete out of order.
type EmbeddingService interface {
	// Initialize loads the model, blocking until it is ready. If a load
	// is already in progress the call joins it instead of starting a
	// second one. A load failure is recoverable - callers may retry.
	Initialize(ctx context.Context) error

	// InitializeAsync starts loading in the background. Safe to call
	// redundantly; failures are recorded and surfaced on Status.
	InitializeAsync()

	// Embed generates a vector embedding for the given text,
	// auto-initializing on first use. Returned vectors are unit-normalized.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts. Output order
	// matches input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding vector size (e.g., 384, 768, 1536).
	// This must match the EmbeddingStore and VectorIndex configuration.
	Dimensions() int

	// ModelName returns the name of the embedding model being used.
	ModelName() string

	// Status returns a side-effect-free snapshot of the pool state.
	Status() PoolStatus

	// Release tears down the worker and frees model resources. Safe to
	// call when already released. The next Embed call re-initializes.
	Release()
}

// PoolStatus describes the embedding pool at one instant.
type PoolStatus struct {
	// Ready is true when the model is loaded and serving requests.
	Ready bool

	// Loading is true while a load is in progress.
	Loading bool

	// Err holds the last load or worker failure, empty when healthy.
	Err string

	// LastUsedAt is the time of the most recent request, zero when the
	// pool has never served one.
	LastUsedAt time.Time
}
