package sqlite

import (
	"context"
	"fmt"

	"github.com/kestrel-labs/mnemo-cli/internal/core/domain"
	"github.com/kestrel-labs/mnemo-cli/internal/core/ports/driven"
)

// memoryBacklog implements driven.Backlog over memories that have no
// embedding record yet.
type memoryBacklog struct {
	store *Store
}

var _ driven.Backlog = (*memoryBacklog)(nil)

// Kind returns the entity kind this backlog covers.
func (b *memoryBacklog) Kind() domain.EntityKind {
	return domain.KindMemory
}

// CountMissing returns how many memories lack an embedding.
func (b *memoryBacklog) CountMissing(ctx context.Context) (int, error) {
	var count int
	err := b.store.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM memories m
		WHERE NOT EXISTS (
			SELECT 1 FROM memories_embeddings e WHERE e.entity_id = m.id
		)
	`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting missing embeddings: %w", err)
	}
	return count, nil
}

// ListMissing returns up to limit memories lacking an embedding,
// oldest first so the backlog drains in insertion order.
func (b *memoryBacklog) ListMissing(ctx context.Context, limit int) ([]domain.Embeddable, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := b.store.db.QueryContext(ctx, `
		SELECT id, project_id, title, content, category, created_at, updated_at
		FROM memories m
		WHERE NOT EXISTS (
			SELECT 1 FROM memories_embeddings e WHERE e.entity_id = m.id
		)
		ORDER BY created_at ASC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying missing embeddings: %w", err)
	}
	defer rows.Close()

	memories, err := scanMemories(rows)
	if err != nil {
		return nil, err
	}

	entities := make([]domain.Embeddable, len(memories))
	for i, m := range memories {
		entities[i] = m
	}
	return entities, nil
}
