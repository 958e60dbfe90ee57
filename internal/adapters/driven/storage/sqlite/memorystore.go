package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/kestrel-labs/mnemo-cli/internal/core/domain"
	"github.com/kestrel-labs/mnemo-cli/internal/core/ports/driven"
)

// memoryStore implements driven.MemoryStore.
type memoryStore struct {
	store *Store
}

var _ driven.MemoryStore = (*memoryStore)(nil)

// Save stores or updates a memory.
func (s *memoryStore) Save(ctx context.Context, memory domain.Memory) error {
	if memory.ID == "" {
		return domain.ErrInvalidInput
	}

	now := time.Now().UTC()
	if memory.CreatedAt.IsZero() {
		memory.CreatedAt = now
	}
	memory.UpdatedAt = now

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO memories (id, project_id, title, content, category, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			project_id = excluded.project_id,
			title = excluded.title,
			content = excluded.content,
			category = excluded.category,
			updated_at = excluded.updated_at
	`, memory.ID, memory.ProjectID, memory.Title, memory.Content, memory.Category,
		memory.CreatedAt, memory.UpdatedAt)

	if err != nil {
		return fmt.Errorf("saving memory: %w", err)
	}
	return nil
}

// Get retrieves a memory by ID.
func (s *memoryStore) Get(ctx context.Context, id string) (*domain.Memory, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, project_id, title, content, category, created_at, updated_at
		FROM memories WHERE id = ?
	`, id)

	memory, err := scanMemoryRow(row)
	if err != nil {
		return nil, err
	}
	return memory, nil
}

// GetBatch retrieves multiple memories by ID. Missing ids are skipped.
func (s *memoryStore) GetBatch(ctx context.Context, ids []string) ([]domain.Memory, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := strings.Repeat("?,", len(ids)-1) + "?"
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, project_id, title, content, category, created_at, updated_at
		FROM memories WHERE id IN (`+placeholders+`)
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("querying memories: %w", err)
	}
	defer rows.Close()

	return scanMemories(rows)
}

// Delete removes a memory.
func (s *memoryStore) Delete(ctx context.Context, id string) error {
	_, err := s.store.db.ExecContext(ctx, "DELETE FROM memories WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting memory: %w", err)
	}
	return nil
}

// List returns memories, scoped to a project when projectID is
// non-empty, newest first.
func (s *memoryStore) List(ctx context.Context, projectID string) ([]domain.Memory, error) {
	query := `
		SELECT id, project_id, title, content, category, created_at, updated_at
		FROM memories`
	var args []any
	if projectID != "" {
		query += " WHERE project_id = ?"
		args = append(args, projectID)
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying memories: %w", err)
	}
	defer rows.Close()

	return scanMemories(rows)
}

// scanMemoryRow scans a single memory row.
func scanMemoryRow(row *sql.Row) (*domain.Memory, error) {
	var m domain.Memory
	var createdAt, updatedAt sql.NullTime
	if err := row.Scan(&m.ID, &m.ProjectID, &m.Title, &m.Content, &m.Category,
		&createdAt, &updatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning memory: %w", err)
	}
	if createdAt.Valid {
		m.CreatedAt = createdAt.Time
	}
	if updatedAt.Valid {
		m.UpdatedAt = updatedAt.Time
	}
	return &m, nil
}

// scanMemories scans multiple memory rows.
func scanMemories(rows *sql.Rows) ([]domain.Memory, error) {
	var memories []domain.Memory //nolint:prealloc // size unknown from query
	for rows.Next() {
		var m domain.Memory
		var createdAt, updatedAt sql.NullTime
		if err := rows.Scan(&m.ID, &m.ProjectID, &m.Title, &m.Content, &m.Category,
			&createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scanning memory: %w", err)
		}
		if createdAt.Valid {
			m.CreatedAt = createdAt.Time
		}
		if updatedAt.Valid {
			m.UpdatedAt = updatedAt.Time
		}
		memories = append(memories, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating memories: %w", err)
	}

	return memories, nil
}
