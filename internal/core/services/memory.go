package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kestrel-labs/mnemo-cli/internal/core/domain"
	"github.com/kestrel-labs/mnemo-cli/internal/core/ports/driven"
	"github.com/kestrel-labs/mnemo-cli/internal/core/ports/driving"
	"github.com/kestrel-labs/mnemo-cli/internal/logger"
)

var _ driving.MemoryService = (*MemoryService)(nil)

// MemoryService coordinates the record store, the keyword index and
// the embedding store for memory writes.
type MemoryService struct {
	memories   driven.MemoryStore
	keyword    driven.KeywordIndex
	embeddings driven.EmbeddingStore
}

// NewMemoryService creates a memory lifecycle service. The embeddings
// store is optional.
func NewMemoryService(
	memories driven.MemoryStore,
	keyword driven.KeywordIndex,
	embeddings driven.EmbeddingStore,
) *MemoryService {
	return &MemoryService{memories: memories, keyword: keyword, embeddings: embeddings}
}

// Remember saves and indexes a memory. The record and its keyword
// index entry are required; the embedding is best-effort and the
// second return value reports whether it was generated.
func (s *MemoryService) Remember(ctx context.Context, memory domain.Memory) (domain.Memory, bool, error) {
	if strings.TrimSpace(memory.Content) == "" {
		return domain.Memory{}, false, fmt.Errorf("%w: memory content is required", domain.ErrInvalidInput)
	}

	now := time.Now().UTC()
	if memory.ID == "" {
		memory.ID = uuid.NewString()
		memory.CreatedAt = now
	}
	memory.UpdatedAt = now

	if err := s.memories.Save(ctx, memory); err != nil {
		return domain.Memory{}, false, fmt.Errorf("save memory: %w", err)
	}
	if err := s.keyword.Index(ctx, memory); err != nil {
		return domain.Memory{}, false, fmt.Errorf("index memory: %w", err)
	}

	embedded := false
	if s.embeddings != nil {
		embedded = s.embeddings.Store(ctx, memory.EmbedID(), memory.EmbedText())
		if !embedded {
			logger.Debug("Inline embedding skipped for %s, backfill will cover it", memory.ID)
		}
	}

	logger.Info("Saved memory %s (embedded: %t)", memory.ID, embedded)
	return memory, embedded, nil
}

// Forget removes a memory along with its keyword and embedding entries.
func (s *MemoryService) Forget(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("%w: memory id is required", domain.ErrInvalidInput)
	}
	if err := s.memories.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete memory: %w", err)
	}
	if err := s.keyword.Delete(ctx, id); err != nil {
		return fmt.Errorf("deindex memory: %w", err)
	}
	if s.embeddings != nil {
		if err := s.embeddings.Delete(ctx, id); err != nil {
			logger.Warn("Failed to delete embedding for %s: %v", id, err)
		}
	}
	return nil
}
