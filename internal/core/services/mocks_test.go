package services

import (
	"context"
	"sync"
	"time"

	"github.com/kestrel-labs/mnemo-cli/internal/core/domain"
	"github.com/kestrel-labs/mnemo-cli/internal/core/ports/driven"
)

// --- Mock implementations ---

// mockMemoryStore implements driven.MemoryStore for testing.
type mockMemoryStore struct {
	mu       sync.Mutex
	memories map[string]domain.Memory
	order    []string
	saveErr  error
	listErr  error
}

func newMockMemoryStore(memories ...domain.Memory) *mockMemoryStore {
	s := &mockMemoryStore{memories: make(map[string]domain.Memory)}
	for _, m := range memories {
		s.memories[m.ID] = m
		s.order = append(s.order, m.ID)
	}
	return s
}

func (s *mockMemoryStore) Save(_ context.Context, memory domain.Memory) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.memories[memory.ID]; !ok {
		s.order = append(s.order, memory.ID)
	}
	s.memories[memory.ID] = memory
	return nil
}

func (s *mockMemoryStore) Get(_ context.Context, id string) (*domain.Memory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.memories[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &m, nil
}

func (s *mockMemoryStore) GetBatch(_ context.Context, ids []string) ([]domain.Memory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Memory
	for _, id := range ids {
		if m, ok := s.memories[id]; ok {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *mockMemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.memories, id)
	return nil
}

func (s *mockMemoryStore) List(_ context.Context, projectID string) ([]domain.Memory, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Memory
	for _, id := range s.order {
		m, ok := s.memories[id]
		if !ok {
			continue
		}
		if projectID != "" && m.ProjectID != projectID {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

// mockKeywordIndex implements driven.KeywordIndex for testing.
type mockKeywordIndex struct {
	mu        sync.Mutex
	hits      []domain.KeywordHit
	indexed   []string
	deleted   []string
	searchErr error
	indexErr  error
}

func (k *mockKeywordIndex) Index(_ context.Context, memory domain.Memory) error {
	if k.indexErr != nil {
		return k.indexErr
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	k.indexed = append(k.indexed, memory.ID)
	return nil
}

func (k *mockKeywordIndex) Delete(_ context.Context, id string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.deleted = append(k.deleted, id)
	return nil
}

func (k *mockKeywordIndex) Search(_ context.Context, _ string, limit int, _ string) ([]domain.KeywordHit, error) {
	if k.searchErr != nil {
		return nil, k.searchErr
	}
	if limit < len(k.hits) {
		return k.hits[:limit], nil
	}
	return k.hits, nil
}

// mockEmbeddingStore implements driven.EmbeddingStore for testing.
type mockEmbeddingStore struct {
	mu         sync.Mutex
	vectors    map[string][]float32
	hits       []driven.VectorHit
	storeFails map[string]bool // entity ids whose Store always fails
	stored     []string
	deleted    []string
	searchErr  error
}

func newMockEmbeddingStore() *mockEmbeddingStore {
	return &mockEmbeddingStore{
		vectors:    make(map[string][]float32),
		storeFails: make(map[string]bool),
	}
}

func (e *mockEmbeddingStore) Store(_ context.Context, entityID, _ string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.storeFails[entityID] {
		return false
	}
	e.vectors[entityID] = []float32{1, 0, 0}
	e.stored = append(e.stored, entityID)
	return true
}

func (e *mockEmbeddingStore) StoreVector(_ context.Context, entityID string, vector []float32) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.vectors[entityID] = vector
	return nil
}

func (e *mockEmbeddingStore) Delete(_ context.Context, entityID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.vectors, entityID)
	e.deleted = append(e.deleted, entityID)
	return nil
}

func (e *mockEmbeddingStore) Has(_ context.Context, entityID string) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.vectors[entityID]
	return ok, nil
}

func (e *mockEmbeddingStore) Get(_ context.Context, entityID string) ([]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.vectors[entityID], nil
}

func (e *mockEmbeddingStore) GetAll(_ context.Context, _ *driven.EmbeddingFilter) ([]domain.EmbeddingRecord, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []domain.EmbeddingRecord
	for id, v := range e.vectors {
		out = append(out, domain.EmbeddingRecord{EntityID: id, Vector: v})
	}
	return out, nil
}

func (e *mockEmbeddingStore) Count(_ context.Context) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.vectors), nil
}

func (e *mockEmbeddingStore) Search(_ context.Context, _ []float32, opts driven.VectorSearchOptions) ([]driven.VectorHit, error) {
	if e.searchErr != nil {
		return nil, e.searchErr
	}
	if opts.Limit > 0 && opts.Limit < len(e.hits) {
		return e.hits[:opts.Limit], nil
	}
	return e.hits, nil
}

func (e *mockEmbeddingStore) Rebuild(_ context.Context) (int, error) {
	return len(e.vectors), nil
}

func (e *mockEmbeddingStore) Kind() domain.EntityKind {
	return domain.KindMemory
}

// has reports, without a context, whether an id was embedded.
func (e *mockEmbeddingStore) has(entityID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.vectors[entityID]
	return ok
}

// mockEmbedder implements driven.EmbeddingService for testing.
type mockEmbedder struct {
	vector   []float32
	embedErr error
}

func (m *mockEmbedder) Initialize(_ context.Context) error { return nil }
func (m *mockEmbedder) InitializeAsync()                   {}

func (m *mockEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	return m.vector, nil
}

func (m *mockEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = m.vector
	}
	return out, nil
}

func (m *mockEmbedder) Dimensions() int           { return len(m.vector) }
func (m *mockEmbedder) ModelName() string         { return "mock" }
func (m *mockEmbedder) Status() driven.PoolStatus { return driven.PoolStatus{Ready: true} }
func (m *mockEmbedder) Release()                  {}

// mockBacklog implements driven.Backlog backed by a mockEmbeddingStore:
// entities disappear from the backlog as the store embeds them.
type mockBacklog struct {
	mu        sync.Mutex
	entities  []domain.Memory
	store     *mockEmbeddingStore
	listCalls []int // limit passed to each ListMissing call
}

func (b *mockBacklog) Kind() domain.EntityKind { return domain.KindMemory }

func (b *mockBacklog) CountMissing(_ context.Context) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	count := 0
	for _, e := range b.entities {
		if !b.store.has(e.ID) {
			count++
		}
	}
	return count, nil
}

func (b *mockBacklog) ListMissing(_ context.Context, limit int) ([]domain.Embeddable, error) {
	b.mu.Lock()
	b.listCalls = append(b.listCalls, limit)
	b.mu.Unlock()

	var out []domain.Embeddable
	for _, e := range b.entities {
		if b.store.has(e.ID) {
			continue
		}
		out = append(out, e)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// waitFor polls cond until it is true or the deadline passes.
func waitFor(cond func() bool, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}
