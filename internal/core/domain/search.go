package domain

// SearchOptions configures a search query.
type SearchOptions struct {
	// Limit is the maximum number of results. Defaults to 20.
	Limit int

	// ProjectID restricts results to one project when set.
	ProjectID string

	// MinSimilarity drops semantic candidates scoring below this value.
	// Defaults to 0.3 when zero.
	MinSimilarity float64

	// BM25Weight is the keyword-relevance weight in the hybrid score.
	// Defaults to 0.5 when both weights are zero.
	BM25Weight float64

	// SemanticWeight is the vector-similarity weight in the hybrid
	// score. Defaults to 0.5 when both weights are zero.
	SemanticWeight float64

	// KeywordOnly skips the semantic side entirely.
	KeywordOnly bool
}

// SearchResult is a single ranked hit.
type SearchResult struct {
	// Memory is the matched record.
	Memory Memory

	// Score is the final hybrid score (0-100 scale).
	Score float64

	// Matched records which sides produced the hit:
	// "keyword", "semantic" or "hybrid".
	Matched string
}

// KeywordHit is one keyword-relevance result before merging.
type KeywordHit struct {
	// Memory is the matched record.
	Memory Memory

	// Relevance is the raw BM25-style score, unbounded and positive.
	Relevance float64
}
