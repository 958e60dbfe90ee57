package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/kestrel-labs/mnemo-cli/internal/core/domain"
	"github.com/kestrel-labs/mnemo-cli/internal/core/ports/driven"
	"github.com/kestrel-labs/mnemo-cli/internal/core/ports/driving"
	"github.com/kestrel-labs/mnemo-cli/internal/logger"
)

var _ driving.BackfillService = (*BackfillService)(nil)

// BackfillBatchSize is how many missing entities one batch fetches.
const BackfillBatchSize = 50

// backfillInterval paces batch processing so a large backfill does not
// monopolize the embedding worker.
const backfillInterval = 100 * time.Millisecond

// BackfillService embeds every entity of one kind that is still missing
// a vector. One instance exists per entity kind; concurrent Migrate
// calls for the same kind join a single in-flight run.
type BackfillService struct {
	backlog    driven.Backlog
	embeddings driven.EmbeddingStore

	group   singleflight.Group
	limiter *rate.Limiter

	mu       sync.Mutex
	complete bool
	started  bool
}

// NewBackfillService creates a backfill runner for one entity kind.
func NewBackfillService(backlog driven.Backlog, embeddings driven.EmbeddingStore) *BackfillService {
	return &BackfillService{
		backlog:    backlog,
		embeddings: embeddings,
		limiter:    rate.NewLimiter(rate.Every(backfillInterval), 1),
	}
}

// Migrate embeds all missing entities in bounded batches. Idempotent:
// once a run finishes with nothing left missing, later calls return
// immediately with zero counts. Per-entity embedding failures are
// logged and skipped; they do not abort the run and the run does not
// mark itself complete while any entity remains missing.
func (s *BackfillService) Migrate(
	ctx context.Context, onProgress func(processed, total int),
) (domain.BackfillResult, error) {
	s.mu.Lock()
	if s.complete {
		s.mu.Unlock()
		return domain.BackfillResult{}, nil
	}
	s.mu.Unlock()

	key := string(s.backlog.Kind())
	v, err, _ := s.group.Do(key, func() (any, error) {
		return s.run(ctx, onProgress)
	})
	if err != nil {
		return domain.BackfillResult{}, err
	}
	return v.(domain.BackfillResult), nil
}

// run is the single-flight body of Migrate.
func (s *BackfillService) run(
	ctx context.Context, onProgress func(processed, total int),
) (domain.BackfillResult, error) {
	kind := s.backlog.Kind()
	logger.Section(fmt.Sprintf("Embedding Backfill: %s", kind))

	total, err := s.backlog.CountMissing(ctx)
	if err != nil {
		return domain.BackfillResult{}, fmt.Errorf("count missing %s: %w", kind, err)
	}
	logger.Info("Missing embeddings: %d", total)

	result := domain.BackfillResult{Total: total}
	if total == 0 {
		s.markComplete()
		return result, nil
	}

	// Entities that failed this run. Without this, a permanently
	// unembeddable entity would keep reappearing in ListMissing and
	// the loop would never terminate.
	failed := make(map[string]bool)

	for {
		if err := s.limiter.Wait(ctx); err != nil {
			return result, fmt.Errorf("backfill %s: %w", kind, err)
		}

		batch, err := s.backlog.ListMissing(ctx, BackfillBatchSize)
		if err != nil {
			return result, fmt.Errorf("list missing %s: %w", kind, err)
		}

		progressed := false
		for _, entity := range batch {
			id := entity.EmbedID()
			if failed[id] {
				continue
			}
			if s.embeddings.Store(ctx, id, entity.EmbedText()) {
				result.Processed++
				progressed = true
				if onProgress != nil {
					onProgress(result.Processed, total)
				}
			} else {
				logger.Warn("Skipping %s %s: embedding failed", kind, id)
				failed[id] = true
			}
		}

		if len(batch) == 0 || !progressed {
			break
		}
	}

	remaining, err := s.backlog.CountMissing(ctx)
	if err != nil {
		return result, fmt.Errorf("recount missing %s: %w", kind, err)
	}
	if remaining == 0 {
		s.markComplete()
	} else {
		logger.Warn("Backfill for %s finished with %d entities still missing", kind, remaining)
	}

	logger.Info("Backfill complete: %d/%d embedded", result.Processed, total)
	return result, nil
}

// EnsureMigrated starts the backfill in the background if it is not
// already running or finished. Returns immediately.
func (s *BackfillService) EnsureMigrated() {
	s.mu.Lock()
	if s.complete || s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			s.started = false
			s.mu.Unlock()
		}()
		if _, err := s.Migrate(context.Background(), nil); err != nil {
			logger.Warn("Background backfill failed: %v", err)
		}
	}()
}

// MissingCount reports how many entities still lack embeddings.
func (s *BackfillService) MissingCount(ctx context.Context) (int, error) {
	return s.backlog.CountMissing(ctx)
}

// Missing returns up to limit entities still lacking embeddings.
func (s *BackfillService) Missing(ctx context.Context, limit int) ([]domain.Embeddable, error) {
	if limit <= 0 {
		limit = BackfillBatchSize
	}
	return s.backlog.ListMissing(ctx, limit)
}

func (s *BackfillService) markComplete() {
	s.mu.Lock()
	s.complete = true
	s.mu.Unlock()
}

// resetForTest clears the completion marker so tests can re-run a
// backfill after mutating the backlog.
func (s *BackfillService) resetForTest() {
	s.mu.Lock()
	s.complete = false
	s.mu.Unlock()
}
