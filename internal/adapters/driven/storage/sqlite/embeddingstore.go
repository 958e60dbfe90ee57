package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/kestrel-labs/mnemo-cli/internal/core/domain"
	"github.com/kestrel-labs/mnemo-cli/internal/core/ports/driven"
	"github.com/kestrel-labs/mnemo-cli/internal/logger"
	"github.com/kestrel-labs/mnemo-cli/internal/vectormath"
)

// embeddingStore implements driven.EmbeddingStore for one entity kind.
// The table name is derived from the kind registry, never from caller
// input, so it is safe to interpolate.
type embeddingStore struct {
	store      *Store
	kind       domain.EntityKind
	table      string
	embedder   driven.EmbeddingService
	index      driven.VectorIndex
	useIndex   bool
	dimensions int
}

var _ driven.EmbeddingStore = (*embeddingStore)(nil)

// Kind returns the entity kind this store is scoped to.
func (s *embeddingStore) Kind() domain.EntityKind {
	return s.kind
}

// Store generates the embedding for text and upserts the record.
// Returns false on any failure: embedding is best-effort and never
// blocks the record-creation path.
func (s *embeddingStore) Store(ctx context.Context, entityID, text string) bool {
	if s.embedder == nil {
		logger.Debug("embedding store %s: no embedder configured, skipping %s", s.kind, entityID)
		return false
	}

	vector, err := s.embedder.Embed(ctx, text)
	if err != nil {
		logger.Warn("embedding store %s: embed %s: %v", s.kind, entityID, err)
		return false
	}

	if err := s.StoreVector(ctx, entityID, vector); err != nil {
		logger.Warn("embedding store %s: store %s: %v", s.kind, entityID, err)
		return false
	}
	return true
}

// StoreVector upserts a pre-computed vector. The write is a single
// upsert statement: all-or-nothing, never partial. When the
// accelerated index is available the vector is mirrored into it;
// mirror failures are logged, the durable record is the source of
// truth and the index can be rebuilt.
func (s *embeddingStore) StoreVector(ctx context.Context, entityID string, vector []float32) error {
	if entityID == "" {
		return domain.ErrInvalidInput
	}
	if len(vector) != s.dimensions {
		return fmt.Errorf("%w: got %d, expected %d", domain.ErrDimensionMismatch, len(vector), s.dimensions)
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO `+s.table+` (entity_id, vector, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT(entity_id) DO UPDATE SET
			vector = excluded.vector,
			created_at = excluded.created_at
	`, entityID, vectormath.VectorToBytes(vector), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("saving embedding: %w", err)
	}

	if s.useIndex {
		if err := s.index.Add(ctx, entityID, vector); err != nil {
			logger.Warn("embedding store %s: index mirror %s: %v", s.kind, entityID, err)
		}
	}

	return nil
}

// Delete removes the entity's embedding record and its index mirror.
func (s *embeddingStore) Delete(ctx context.Context, entityID string) error {
	_, err := s.store.db.ExecContext(ctx,
		"DELETE FROM "+s.table+" WHERE entity_id = ?", entityID)
	if err != nil {
		return fmt.Errorf("deleting embedding: %w", err)
	}

	if s.useIndex {
		if err := s.index.Delete(ctx, entityID); err != nil {
			logger.Debug("embedding store %s: index delete %s: %v", s.kind, entityID, err)
		}
	}

	return nil
}

// Has reports whether the entity has a stored embedding.
func (s *embeddingStore) Has(ctx context.Context, entityID string) (bool, error) {
	var count int
	err := s.store.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM "+s.table+" WHERE entity_id = ?", entityID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("checking embedding: %w", err)
	}
	return count > 0, nil
}

// Get returns the entity's vector, or nil when the record is missing
// or its decoded length differs from the configured dimension.
func (s *embeddingStore) Get(ctx context.Context, entityID string) ([]float32, error) {
	var blob []byte
	err := s.store.db.QueryRowContext(ctx,
		"SELECT vector FROM "+s.table+" WHERE entity_id = ?", entityID).Scan(&blob)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("querying embedding: %w", err)
	}

	vector := vectormath.BytesToVector(blob)
	if len(vector) != s.dimensions {
		return nil, nil
	}
	return vector, nil
}

// GetAll enumerates embedding records, optionally scoped by filter.
// Records with a mismatched dimension are excluded, not fatal.
func (s *embeddingStore) GetAll(ctx context.Context, filter *driven.EmbeddingFilter) ([]domain.EmbeddingRecord, error) {
	query := "SELECT entity_id, vector, created_at FROM " + s.table
	var args []any
	if clause, arg, ok := s.scopeClause(filter); ok {
		query += " WHERE " + clause
		args = append(args, arg)
	}

	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying embeddings: %w", err)
	}
	defer rows.Close()

	var records []domain.EmbeddingRecord //nolint:prealloc // size unknown from query
	for rows.Next() {
		var rec domain.EmbeddingRecord
		var blob []byte
		var createdAt sql.NullTime
		if err := rows.Scan(&rec.EntityID, &blob, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning embedding: %w", err)
		}
		rec.Vector = vectormath.BytesToVector(blob)
		if len(rec.Vector) != s.dimensions {
			continue
		}
		if createdAt.Valid {
			rec.CreatedAt = createdAt.Time
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating embeddings: %w", err)
	}

	return records, nil
}

// Count returns the number of stored embedding records.
func (s *embeddingStore) Count(ctx context.Context) (int, error) {
	var count int
	err := s.store.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+s.table).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting embeddings: %w", err)
	}
	return count, nil
}

// Search returns the entities most similar to the query vector. The
// accelerated index serves unscoped searches; scoped searches and the
// no-index case use an exhaustive exact-cosine scan. Both paths return
// the same result shape.
func (s *embeddingStore) Search(
	ctx context.Context, query []float32, opts driven.VectorSearchOptions,
) ([]driven.VectorHit, error) {
	if len(query) != s.dimensions {
		return nil, fmt.Errorf("%w: query has %d dimensions, expected %d",
			domain.ErrDimensionMismatch, len(query), s.dimensions)
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}

	if s.useIndex {
		hits, err := s.indexSearch(ctx, query, limit, opts)
		if err == nil {
			return hits, nil
		}
		logger.Warn("embedding store %s: index search failed, scanning: %v", s.kind, err)
	}

	return s.scanSearch(ctx, query, limit, opts)
}

// indexSearch queries the accelerated index and applies the scope
// filter afterwards against the relational store.
func (s *embeddingStore) indexSearch(
	ctx context.Context, query []float32, limit int, opts driven.VectorSearchOptions,
) ([]driven.VectorHit, error) {
	// Over-fetch so post-filtering can still fill the limit.
	k := limit
	if opts.ProjectID != "" {
		k = limit * 4
	}

	raw, err := s.index.Search(ctx, query, k)
	if err != nil {
		return nil, err
	}

	hits := make([]driven.VectorHit, 0, limit)
	for _, hit := range raw {
		if hit.Similarity < opts.MinSimilarity {
			continue
		}
		if opts.ProjectID != "" {
			ok, err := s.inScope(ctx, hit.EntityID, opts.ProjectID)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
		}
		hits = append(hits, hit)
		if len(hits) >= limit {
			break
		}
	}
	return hits, nil
}

// scanSearch decodes every stored vector and computes exact cosine
// similarity. Vectors whose decoded length differs from the configured
// dimension are skipped.
func (s *embeddingStore) scanSearch(
	ctx context.Context, query []float32, limit int, opts driven.VectorSearchOptions,
) ([]driven.VectorHit, error) {
	var filter *driven.EmbeddingFilter
	if opts.ProjectID != "" {
		filter = &driven.EmbeddingFilter{ProjectID: opts.ProjectID}
	}

	records, err := s.GetAll(ctx, filter)
	if err != nil {
		return nil, err
	}

	hits := make([]driven.VectorHit, 0, len(records))
	for _, rec := range records {
		sim, err := vectormath.CosineSimilarity(query, rec.Vector)
		if err != nil {
			continue
		}
		if sim < opts.MinSimilarity {
			continue
		}
		hits = append(hits, driven.VectorHit{EntityID: rec.EntityID, Similarity: sim})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Similarity > hits[j].Similarity
	})

	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// scopeClause translates a filter into a storage-level restriction.
// Only memories carry a project scope; other kinds ignore the filter.
func (s *embeddingStore) scopeClause(filter *driven.EmbeddingFilter) (string, any, bool) {
	if filter == nil || filter.ProjectID == "" || s.kind != domain.KindMemory {
		return "", nil, false
	}
	return "EXISTS (SELECT 1 FROM memories m WHERE m.id = entity_id AND m.project_id = ?)",
		filter.ProjectID, true
}

// inScope reports whether the entity belongs to the project.
func (s *embeddingStore) inScope(ctx context.Context, entityID, projectID string) (bool, error) {
	if s.kind != domain.KindMemory {
		return true, nil
	}
	var count int
	err := s.store.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM memories WHERE id = ? AND project_id = ?",
		entityID, projectID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("checking scope: %w", err)
	}
	return count > 0, nil
}

// Rebuild re-mirrors every stored vector into the accelerated index.
// The index is a derived projection; this restores it after a restart.
func (s *embeddingStore) Rebuild(ctx context.Context) (int, error) {
	if !s.useIndex {
		return 0, domain.ErrVectorIndexUnavailable
	}

	records, err := s.GetAll(ctx, nil)
	if err != nil {
		return 0, err
	}

	mirrored := 0
	for _, rec := range records {
		if err := s.index.Add(ctx, rec.EntityID, rec.Vector); err != nil {
			logger.Warn("embedding store %s: rebuild %s: %v", s.kind, rec.EntityID, err)
			continue
		}
		mirrored++
	}
	return mirrored, nil
}
