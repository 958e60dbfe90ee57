package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/kestrel-labs/mnemo-cli/internal/core/domain"
	"github.com/kestrel-labs/mnemo-cli/internal/core/ports/driven"
	"github.com/kestrel-labs/mnemo-cli/internal/core/ports/driving"
	"github.com/kestrel-labs/mnemo-cli/internal/logger"
	"github.com/kestrel-labs/mnemo-cli/internal/vectormath"
)

var _ driving.PatternService = (*PatternService)(nil)

// Clustering defaults.
const (
	DefaultClusterThreshold = 0.6
	DefaultSkillMinSize     = 5

	// Blend weights when both records carry an embedding.
	clusterTextWeight   = 0.4
	clusterVectorWeight = 0.6

	// Within the lexical score, titles dominate descriptions.
	titleWeight       = 0.6
	descriptionWeight = 0.4
)

// PatternService detects repeated patterns across stored memories by
// greedy similarity clustering.
type PatternService struct {
	memories   driven.MemoryStore
	embeddings driven.EmbeddingStore
}

// NewPatternService creates a pattern detector. The embeddings store is
// optional; without it clustering falls back to lexical similarity only.
func NewPatternService(memories driven.MemoryStore, embeddings driven.EmbeddingStore) *PatternService {
	return &PatternService{memories: memories, embeddings: embeddings}
}

// Clusters groups all memories by blended similarity, largest first.
func (s *PatternService) Clusters(ctx context.Context, threshold float64) ([]domain.SimilarityCluster, error) {
	logger.Section("Pattern Detection")
	if threshold <= 0 {
		threshold = DefaultClusterThreshold
	}

	records, err := s.memories.List(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("list memories: %w", err)
	}
	logger.Debug("Clustering %d memories, threshold %.2f", len(records), threshold)

	vectors := s.loadVectors(ctx, records)
	clusters := ClusterMemories(records, vectors, threshold)
	logger.Info("Found %d clusters", len(clusters))
	return clusters, nil
}

// SkillCandidates returns clusters with at least minSize members.
func (s *PatternService) SkillCandidates(ctx context.Context, minSize int) ([]domain.SimilarityCluster, error) {
	if minSize <= 0 {
		minSize = DefaultSkillMinSize
	}
	clusters, err := s.Clusters(ctx, DefaultClusterThreshold)
	if err != nil {
		return nil, err
	}
	return FilterSkillCandidates(clusters, minSize), nil
}

// loadVectors fetches embeddings for each record. Missing or
// mismatched vectors are simply absent from the map.
func (s *PatternService) loadVectors(ctx context.Context, records []domain.Memory) map[string][]float32 {
	vectors := make(map[string][]float32, len(records))
	if s.embeddings == nil {
		return vectors
	}
	for _, m := range records {
		v, err := s.embeddings.Get(ctx, m.ID)
		if err != nil {
			logger.Debug("Skipping embedding for %s: %v", m.ID, err)
			continue
		}
		if v != nil {
			vectors[m.ID] = v
		}
	}
	return vectors
}

// ClusterMemories greedily groups records whose pairwise similarity to
// a cluster's centroid meets threshold. The first record of each new
// cluster becomes its centroid. Output is sorted by size, largest
// first, with ties keeping discovery order.
func ClusterMemories(records []domain.Memory, vectors map[string][]float32, threshold float64) []domain.SimilarityCluster {
	var clusters []domain.SimilarityCluster

	for _, record := range records {
		placed := false
		for i := range clusters {
			centroid := clusters[i].Centroid
			if recordSimilarity(centroid, record, vectors) >= threshold {
				clusters[i].Members = append(clusters[i].Members, record)
				placed = true
				break
			}
		}
		if !placed {
			clusters = append(clusters, domain.SimilarityCluster{
				Centroid: record,
				Members:  []domain.Memory{record},
				Label:    record.Title,
			})
		}
	}

	sort.SliceStable(clusters, func(i, j int) bool {
		return clusters[i].Size() > clusters[j].Size()
	})
	return clusters
}

// FilterSkillCandidates keeps clusters with at least minSize members.
func FilterSkillCandidates(clusters []domain.SimilarityCluster, minSize int) []domain.SimilarityCluster {
	candidates := make([]domain.SimilarityCluster, 0, len(clusters))
	for _, c := range clusters {
		if c.Size() >= minSize {
			candidates = append(candidates, c)
		}
	}
	return candidates
}

// recordSimilarity scores two records. Lexical similarity always
// contributes; when both records have an embedding the score blends in
// cosine similarity, weighted toward the semantic side.
func recordSimilarity(a, b domain.Memory, vectors map[string][]float32) float64 {
	text := textSimilarity(a, b)

	va, okA := vectors[a.ID]
	vb, okB := vectors[b.ID]
	if !okA || !okB {
		return text
	}
	cos, err := vectormath.CosineSimilarity(va, vb)
	if err != nil {
		return text
	}
	return clusterTextWeight*text + clusterVectorWeight*cos
}

// textSimilarity is the weighted Jaccard overlap of title and content
// word sets.
func textSimilarity(a, b domain.Memory) float64 {
	title := jaccard(significantWords(a.Title), significantWords(b.Title))
	desc := jaccard(significantWords(a.Content), significantWords(b.Content))
	return titleWeight*title + descriptionWeight*desc
}

// significantWords lowercases and splits text, dropping words of two
// characters or fewer.
func significantWords(text string) map[string]bool {
	words := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		w = strings.Trim(w, ".,;:!?\"'()[]{}")
		if len(w) > 2 {
			words[w] = true
		}
	}
	return words
}

// jaccard computes intersection-over-union of two word sets. Two empty
// sets score zero.
func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	intersection := 0
	for w := range a {
		if b[w] {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}
