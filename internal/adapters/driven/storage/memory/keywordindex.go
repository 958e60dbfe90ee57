package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/kestrel-labs/mnemo-cli/internal/core/domain"
	"github.com/kestrel-labs/mnemo-cli/internal/core/ports/driven"
)

// Ensure KeywordIndex implements the interface.
var _ driven.KeywordIndex = (*KeywordIndex)(nil)

// KeywordIndex is an in-memory implementation of driven.KeywordIndex
// using simple term-frequency scoring. No persistence, no stemming;
// good enough for tests and the ephemeral backend.
type KeywordIndex struct {
	mu      sync.RWMutex
	entries map[string]indexEntry
}

type indexEntry struct {
	memory domain.Memory
	terms  map[string]int
}

// NewKeywordIndex creates a new in-memory keyword index.
func NewKeywordIndex() *KeywordIndex {
	return &KeywordIndex{entries: make(map[string]indexEntry)}
}

// Index adds or updates a memory in the index.
func (k *KeywordIndex) Index(_ context.Context, memory domain.Memory) error {
	terms := make(map[string]int)
	for _, t := range tokenize(memory.Title + " " + memory.Content) {
		terms[t]++
	}

	k.mu.Lock()
	defer k.mu.Unlock()
	k.entries[memory.ID] = indexEntry{memory: memory, terms: terms}
	return nil
}

// Delete removes a memory from the index.
func (k *KeywordIndex) Delete(_ context.Context, id string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	delete(k.entries, id)
	return nil
}

// Search returns memories matching any query term, best first.
func (k *KeywordIndex) Search(_ context.Context, query string, limit int, projectID string) ([]domain.KeywordHit, error) {
	queryTerms := tokenize(query)
	if len(queryTerms) == 0 {
		return nil, nil
	}

	k.mu.RLock()
	defer k.mu.RUnlock()

	var hits []domain.KeywordHit
	for _, entry := range k.entries {
		if projectID != "" && entry.memory.ProjectID != projectID {
			continue
		}
		score := 0.0
		for _, t := range queryTerms {
			score += float64(entry.terms[t])
		}
		if score > 0 {
			hits = append(hits, domain.KeywordHit{Memory: entry.memory, Relevance: score})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Relevance == hits[j].Relevance {
			return hits[i].Memory.ID < hits[j].Memory.ID
		}
		return hits[i].Relevance > hits[j].Relevance
	})
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}
