package cli

import (
	"context"

	"github.com/kestrel-labs/mnemo-cli/internal/core/domain"
)

// --- Mock services for command tests ---

type mockMemoryService struct {
	saved     []domain.Memory
	forgotten []string
	embedded  bool
	err       error
}

func (m *mockMemoryService) Remember(_ context.Context, memory domain.Memory) (domain.Memory, bool, error) {
	if m.err != nil {
		return domain.Memory{}, false, m.err
	}
	if memory.ID == "" {
		memory.ID = "generated-id"
	}
	m.saved = append(m.saved, memory)
	return memory, m.embedded, nil
}

func (m *mockMemoryService) Forget(_ context.Context, id string) error {
	if m.err != nil {
		return m.err
	}
	m.forgotten = append(m.forgotten, id)
	return nil
}

type mockSearchService struct {
	results  []domain.SearchResult
	lastOpts domain.SearchOptions
	err      error
}

func (m *mockSearchService) Search(_ context.Context, _ string, opts domain.SearchOptions) ([]domain.SearchResult, error) {
	m.lastOpts = opts
	if m.err != nil {
		return nil, m.err
	}
	return m.results, nil
}

type mockBackfillCmdService struct {
	result  domain.BackfillResult
	missing int
	err     error
}

func (m *mockBackfillCmdService) Migrate(_ context.Context, onProgress func(processed, total int)) (domain.BackfillResult, error) {
	if m.err != nil {
		return domain.BackfillResult{}, m.err
	}
	if onProgress != nil {
		for i := 1; i <= m.result.Processed; i++ {
			onProgress(i, m.result.Total)
		}
	}
	return m.result, nil
}

func (m *mockBackfillCmdService) EnsureMigrated() {}

func (m *mockBackfillCmdService) MissingCount(_ context.Context) (int, error) {
	return m.missing, m.err
}

func (m *mockBackfillCmdService) Missing(_ context.Context, _ int) ([]domain.Embeddable, error) {
	return nil, nil
}

type mockPatternCmdService struct {
	clusters []domain.SimilarityCluster
	err      error
}

func (m *mockPatternCmdService) Clusters(_ context.Context, _ float64) ([]domain.SimilarityCluster, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.clusters, nil
}

func (m *mockPatternCmdService) SkillCandidates(_ context.Context, minSize int) ([]domain.SimilarityCluster, error) {
	var out []domain.SimilarityCluster
	for _, c := range m.clusters {
		if c.Size() >= minSize {
			out = append(out, c)
		}
	}
	return out, m.err
}

// setupTestServices swaps package-level services for mocks and returns
// a cleanup restoring the previous values.
func setupTestServices() func() {
	oldMemory := memoryService
	oldSearch := searchService
	oldBackfill := backfillService
	oldPattern := patternService

	memoryService = &mockMemoryService{embedded: true}
	searchService = &mockSearchService{results: []domain.SearchResult{
		{
			Memory:  domain.Memory{ID: "m-1", Title: "Mock Memory", Content: "mock content"},
			Score:   95.0,
			Matched: "hybrid",
		},
	}}
	backfillService = &mockBackfillCmdService{}
	patternService = &mockPatternCmdService{}

	return func() {
		memoryService = oldMemory
		searchService = oldSearch
		backfillService = oldBackfill
		patternService = oldPattern
	}
}
