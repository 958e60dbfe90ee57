// Package memory provides in-memory implementations of driven port
// interfaces. Used in tests and as an ephemeral backend when no
// database path is available.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/kestrel-labs/mnemo-cli/internal/core/domain"
	"github.com/kestrel-labs/mnemo-cli/internal/core/ports/driven"
)

// Ensure MemoryStore implements the interfaces.
var (
	_ driven.MemoryStore = (*MemoryStore)(nil)
	_ driven.Backlog     = (*MemoryStore)(nil)
)

// MemoryStore is an in-memory implementation of driven.MemoryStore.
// It doubles as the backfill backlog for the records it holds: an
// attached EmbeddingStore decides which records count as missing.
type MemoryStore struct {
	mu        sync.RWMutex
	memories  map[string]domain.Memory
	embedding driven.EmbeddingStore
}

// NewMemoryStore creates a new in-memory memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{memories: make(map[string]domain.Memory)}
}

// AttachEmbeddingStore wires the embedding store the backlog checks
// records against. Without one, every record counts as missing.
func (s *MemoryStore) AttachEmbeddingStore(es driven.EmbeddingStore) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.embedding = es
}

// Save stores or updates a memory.
func (s *MemoryStore) Save(_ context.Context, memory domain.Memory) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.memories[memory.ID] = memory
	return nil
}

// Get retrieves a memory by ID.
func (s *MemoryStore) Get(_ context.Context, id string) (*domain.Memory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.memories[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &m, nil
}

// GetBatch retrieves multiple memories by ID, skipping missing ids.
func (s *MemoryStore) GetBatch(_ context.Context, ids []string) ([]domain.Memory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]domain.Memory, 0, len(ids))
	for _, id := range ids {
		if m, ok := s.memories[id]; ok {
			result = append(result, m)
		}
	}
	return result, nil
}

// Delete removes a memory.
func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.memories, id)
	return nil
}

// List returns memories, newest first, scoped to a project when
// projectID is non-empty.
func (s *MemoryStore) List(_ context.Context, projectID string) ([]domain.Memory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []domain.Memory
	for _, m := range s.memories {
		if projectID != "" && m.ProjectID != projectID {
			continue
		}
		result = append(result, m)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

// Kind returns the entity kind this backlog covers.
func (s *MemoryStore) Kind() domain.EntityKind {
	return domain.KindMemory
}

// CountMissing returns how many records lack an embedding.
func (s *MemoryStore) CountMissing(ctx context.Context) (int, error) {
	missing, err := s.missing(ctx, 0)
	return len(missing), err
}

// ListMissing returns up to limit records lacking an embedding,
// oldest first.
func (s *MemoryStore) ListMissing(ctx context.Context, limit int) ([]domain.Embeddable, error) {
	return s.missing(ctx, limit)
}

func (s *MemoryStore) missing(ctx context.Context, limit int) ([]domain.Embeddable, error) {
	s.mu.RLock()
	records := make([]domain.Memory, 0, len(s.memories))
	for _, m := range s.memories {
		records = append(records, m)
	}
	es := s.embedding
	s.mu.RUnlock()

	sort.Slice(records, func(i, j int) bool {
		if records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].ID < records[j].ID
		}
		return records[i].CreatedAt.Before(records[j].CreatedAt)
	})

	var result []domain.Embeddable
	for _, m := range records {
		if es != nil {
			has, err := es.Has(ctx, m.ID)
			if err != nil {
				return nil, err
			}
			if has {
				continue
			}
		}
		result = append(result, m)
		if limit > 0 && len(result) == limit {
			break
		}
	}
	return result, nil
}

// tokenize lowercases and splits text into terms.
func tokenize(text string) []string {
	return strings.Fields(strings.ToLower(text))
}
