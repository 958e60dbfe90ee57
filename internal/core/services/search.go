package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/kestrel-labs/mnemo-cli/internal/core/domain"
	"github.com/kestrel-labs/mnemo-cli/internal/core/ports/driven"
	"github.com/kestrel-labs/mnemo-cli/internal/core/ports/driving"
	"github.com/kestrel-labs/mnemo-cli/internal/logger"
)

// Ensure SearchService implements the interface.
var _ driving.SearchService = (*SearchService)(nil)

// Default ranking configuration.
const (
	DefaultLimit          = 20
	DefaultMinSimilarity  = 0.3
	DefaultBM25Weight     = 0.5
	DefaultSemanticWeight = 0.5
)

// SearchService provides hybrid search over memories.
type SearchService struct {
	memories   driven.MemoryStore
	keyword    driven.KeywordIndex
	embeddings driven.EmbeddingStore
	embedder   driven.EmbeddingService
	backfill   driving.BackfillService
}

// NewSearchService creates a new search service. The embeddings,
// embedder and backfill parameters are optional (can be nil); search
// degrades to keyword-only without them.
func NewSearchService(
	memories driven.MemoryStore,
	keyword driven.KeywordIndex,
	embeddings driven.EmbeddingStore,
	embedder driven.EmbeddingService,
	backfill driving.BackfillService,
) *SearchService {
	return &SearchService{
		memories:   memories,
		keyword:    keyword,
		embeddings: embeddings,
		embedder:   embedder,
		backfill:   backfill,
	}
}

// Search performs hybrid search across stored memories. The keyword
// and semantic sides run in parallel and degrade independently; the
// call fails only when both sides are unusable.
func (s *SearchService) Search(
	ctx context.Context, query string, opts domain.SearchOptions,
) ([]domain.SearchResult, error) {
	logger.Section("Search Execution")
	logger.Debug("Query: %q", query)

	query = strings.TrimSpace(query)
	if query == "" {
		logger.Debug("Empty query, returning no results")
		return []domain.SearchResult{}, nil
	}

	opts = withDefaults(opts)
	logger.Debug("Limit: %d, MinSimilarity: %.2f, Weights: bm25=%.2f semantic=%.2f",
		opts.Limit, opts.MinSimilarity, opts.BM25Weight, opts.SemanticWeight)

	semantic := s.canSemantic(opts)
	logger.Debug("Services available: keyword=%t, semantic=%t", s.keyword != nil, semantic)

	// Trigger the backfill lazily; this search uses whatever
	// embeddings currently exist and accepts partial coverage.
	if semantic && s.backfill != nil {
		s.backfill.EnsureMigrated()
	}

	// Request more results internally to account for merge filtering.
	internalLimit := opts.Limit * 2

	var keywordHits []domain.KeywordHit
	var vectorHits []driven.VectorHit

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hits, err := s.keyword.Search(gctx, query, internalLimit, opts.ProjectID)
		if err != nil {
			logger.Warn("Keyword search failed: %v", err)
			return fmt.Errorf("keyword search: %w", err)
		}
		keywordHits = hits
		return nil
	})
	if semantic {
		g.Go(func() error {
			hits, err := s.vectorSearch(gctx, query, internalLimit, opts)
			if err != nil {
				// Semantic failures degrade to keyword-only, never
				// fail the user-visible call.
				logger.Warn("Semantic search degraded: %v", err)
				return nil
			}
			vectorHits = hits
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if len(vectorHits) == 0 {
			return nil, fmt.Errorf("search: %w", err)
		}
		logger.Warn("Keyword side failed, continuing with semantic results only")
		keywordHits = nil
	}

	logger.Debug("Raw results: %d keyword, %d semantic", len(keywordHits), len(vectorHits))

	results, err := s.mergeHybrid(ctx, keywordHits, vectorHits, opts)
	if err != nil {
		return nil, fmt.Errorf("merge results: %w", err)
	}

	logger.Info("Final results: %d", len(results))
	return results, nil
}

// canSemantic reports whether the semantic side can run at all.
func (s *SearchService) canSemantic(opts domain.SearchOptions) bool {
	return !opts.KeywordOnly && s.embedder != nil && s.embeddings != nil
}

// vectorSearch embeds the query and searches the embedding store.
func (s *SearchService) vectorSearch(
	ctx context.Context, query string, limit int, opts domain.SearchOptions,
) ([]driven.VectorHit, error) {
	logger.Debug("Generating query embedding...")
	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("generate query embedding: %w", err)
	}
	logger.Debug("Query embedding: %d dimensions", len(vector))

	hits, err := s.embeddings.Search(ctx, vector, driven.VectorSearchOptions{
		Limit:         limit,
		MinSimilarity: opts.MinSimilarity,
		ProjectID:     opts.ProjectID,
	})
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	logger.Debug("Vector search: %d hits", len(hits))
	return hits, nil
}

// scored is an intermediate merge entry.
type scored struct {
	memory     domain.Memory
	bm25       float64 // normalized to [0,1]
	similarity float64
	hasKeyword bool
	hasVector  bool
	order      int // position in the keyword input, for stable ties
}

// mergeHybrid merges keyword-relevance and vector-similarity results
// into one ranked list via weighted linear combination.
//
// Keyword scores are normalized by the maximum score present, so the
// best keyword match contributes exactly bm25Weight. Semantic results
// below the similarity floor are dropped; semantic-only hits are
// materialized from the memory store and dropped when the record no
// longer exists. With SemanticWeight zero the output reproduces the
// keyword input ordering exactly.
func (s *SearchService) mergeHybrid(
	ctx context.Context,
	keywordHits []domain.KeywordHit,
	vectorHits []driven.VectorHit,
	opts domain.SearchOptions,
) ([]domain.SearchResult, error) {
	// No semantic side: the keyword list is already ranked.
	if len(vectorHits) == 0 {
		results := make([]domain.SearchResult, 0, min(len(keywordHits), opts.Limit))
		for i, hit := range keywordHits {
			if i >= opts.Limit {
				break
			}
			results = append(results, domain.SearchResult{
				Memory:  hit.Memory,
				Score:   hit.Relevance,
				Matched: "keyword",
			})
		}
		return results, nil
	}

	entries := make(map[string]*scored)

	var maxRelevance float64
	for _, hit := range keywordHits {
		if hit.Relevance > maxRelevance {
			maxRelevance = hit.Relevance
		}
	}
	for i, hit := range keywordHits {
		norm := 0.0
		if maxRelevance > 0 {
			norm = hit.Relevance / maxRelevance
		}
		entries[hit.Memory.ID] = &scored{
			memory:     hit.Memory,
			bm25:       norm,
			hasKeyword: true,
			order:      i,
		}
	}

	var semanticOnly []string
	for _, hit := range vectorHits {
		if hit.Similarity < opts.MinSimilarity {
			continue
		}
		if entry, ok := entries[hit.EntityID]; ok {
			entry.similarity = hit.Similarity
			entry.hasVector = true
			continue
		}
		entries[hit.EntityID] = &scored{
			similarity: hit.Similarity,
			hasVector:  true,
			order:      len(keywordHits) + len(semanticOnly),
		}
		semanticOnly = append(semanticOnly, hit.EntityID)
	}

	// Materialize semantic-only hits; entries whose record vanished
	// are dropped, not errored.
	if len(semanticOnly) > 0 {
		memories, err := s.memories.GetBatch(ctx, semanticOnly)
		if err != nil {
			return nil, fmt.Errorf("materialize semantic hits: %w", err)
		}
		found := make(map[string]domain.Memory, len(memories))
		for _, m := range memories {
			found[m.ID] = m
		}
		for _, id := range semanticOnly {
			m, ok := found[id]
			if !ok {
				logger.Debug("Dropping semantic hit %s: record not found", id)
				delete(entries, id)
				continue
			}
			entries[id].memory = m
		}
	}

	results := make([]domain.SearchResult, 0, len(entries))
	for _, entry := range entries {
		score := (entry.bm25*opts.BM25Weight + entry.similarity*opts.SemanticWeight) * 100
		results = append(results, domain.SearchResult{
			Memory:  entry.memory,
			Score:   score,
			Matched: matchedLabel(entry),
		})
	}

	// Stable by keyword input order, then by score: equal scores keep
	// the original keyword ordering.
	byID := entries
	sort.SliceStable(results, func(i, j int) bool {
		return byID[results[i].Memory.ID].order < byID[results[j].Memory.ID].order
	})
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if len(results) > opts.Limit {
		results = results[:opts.Limit]
	}
	return results, nil
}

// matchedLabel names which sides produced the hit.
func matchedLabel(entry *scored) string {
	switch {
	case entry.hasKeyword && entry.hasVector:
		return "hybrid"
	case entry.hasVector:
		return "semantic"
	default:
		return "keyword"
	}
}

// withDefaults fills unset options.
func withDefaults(opts domain.SearchOptions) domain.SearchOptions {
	if opts.Limit <= 0 {
		opts.Limit = DefaultLimit
	}
	if opts.MinSimilarity <= 0 {
		opts.MinSimilarity = DefaultMinSimilarity
	}
	if opts.BM25Weight == 0 && opts.SemanticWeight == 0 {
		opts.BM25Weight = DefaultBM25Weight
		opts.SemanticWeight = DefaultSemanticWeight
	}
	return opts
}
