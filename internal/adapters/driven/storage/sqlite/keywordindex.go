package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/kestrel-labs/mnemo-cli/internal/core/domain"
	"github.com/kestrel-labs/mnemo-cli/internal/core/ports/driven"
)

// keywordIndex implements driven.KeywordIndex over an FTS5 virtual
// table mirroring the memories table.
type keywordIndex struct {
	store *Store
}

var _ driven.KeywordIndex = (*keywordIndex)(nil)

// Index adds or updates a memory in the keyword index. FTS5 has no
// upsert, so the row is deleted and re-inserted.
func (k *keywordIndex) Index(ctx context.Context, memory domain.Memory) error {
	if memory.ID == "" {
		return domain.ErrInvalidInput
	}

	if _, err := k.store.db.ExecContext(ctx,
		"DELETE FROM memories_fts WHERE id = ?", memory.ID); err != nil {
		return fmt.Errorf("clearing fts row: %w", err)
	}

	if _, err := k.store.db.ExecContext(ctx, `
		INSERT INTO memories_fts (id, title, content) VALUES (?, ?, ?)
	`, memory.ID, memory.Title, memory.Content); err != nil {
		return fmt.Errorf("indexing memory: %w", err)
	}

	return nil
}

// Delete removes a memory from the keyword index.
func (k *keywordIndex) Delete(ctx context.Context, id string) error {
	if _, err := k.store.db.ExecContext(ctx,
		"DELETE FROM memories_fts WHERE id = ?", id); err != nil {
		return fmt.Errorf("deleting fts row: %w", err)
	}
	return nil
}

// Search returns memories matching the query with BM25 relevance
// scores, best first.
func (k *keywordIndex) Search(
	ctx context.Context, query string, limit int, projectID string,
) ([]domain.KeywordHit, error) {
	match := ftsQuery(query)
	if match == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 20
	}

	// bm25() returns lower-is-better negative scores; negate so callers
	// see an unbounded positive relevance.
	sql := `
		SELECT m.id, m.project_id, m.title, m.content, m.category,
		       m.created_at, m.updated_at, -bm25(memories_fts) AS relevance
		FROM memories_fts
		JOIN memories m ON m.id = memories_fts.id
		WHERE memories_fts MATCH ?`
	args := []any{match}
	if projectID != "" {
		sql += " AND m.project_id = ?"
		args = append(args, projectID)
	}
	sql += " ORDER BY relevance DESC LIMIT ?"
	args = append(args, limit)

	rows, err := k.store.db.QueryContext(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("keyword search: %w", err)
	}
	defer rows.Close()

	var hits []domain.KeywordHit //nolint:prealloc // size unknown from query
	for rows.Next() {
		var hit domain.KeywordHit
		if err := rows.Scan(&hit.Memory.ID, &hit.Memory.ProjectID, &hit.Memory.Title,
			&hit.Memory.Content, &hit.Memory.Category,
			&hit.Memory.CreatedAt, &hit.Memory.UpdatedAt, &hit.Relevance); err != nil {
			return nil, fmt.Errorf("scanning keyword hit: %w", err)
		}
		hits = append(hits, hit)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating keyword hits: %w", err)
	}

	return hits, nil
}

// ftsQuery converts free text into a safe FTS5 MATCH expression: each
// term quoted and OR-joined, so user punctuation cannot break the
// query syntax.
func ftsQuery(query string) string {
	terms := strings.Fields(query)
	quoted := make([]string, 0, len(terms))
	for _, term := range terms {
		term = strings.ReplaceAll(term, `"`, "")
		if term == "" {
			continue
		}
		quoted = append(quoted, `"`+term+`"`)
	}
	return strings.Join(quoted, " OR ")
}
