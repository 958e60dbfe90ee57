package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrel-labs/mnemo-cli/internal/core/domain"
	"github.com/kestrel-labs/mnemo-cli/internal/core/ports/driven"
)

func testMemory(id, title string, createdAt time.Time) domain.Memory {
	return domain.Memory{ID: id, Title: title, Content: title + " details", CreatedAt: createdAt}
}

func TestMemoryStore_CRUD(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	m := testMemory("m1", "use table driven tests", time.Now())
	require.NoError(t, store.Save(ctx, m))

	got, err := store.Get(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, "use table driven tests", got.Title)

	_, err = store.Get(ctx, "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, store.Delete(ctx, "m1"))
	_, err = store.Get(ctx, "m1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMemoryStore_ListNewestFirst(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	base := time.Now()

	require.NoError(t, store.Save(ctx, testMemory("old", "old", base.Add(-time.Hour))))
	require.NoError(t, store.Save(ctx, testMemory("new", "new", base)))

	list, err := store.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "new", list[0].ID)
	assert.Equal(t, "old", list[1].ID)
}

func TestMemoryStore_ListScopedByProject(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	a := testMemory("a", "a", time.Now())
	a.ProjectID = "proj-1"
	b := testMemory("b", "b", time.Now())
	b.ProjectID = "proj-2"
	require.NoError(t, store.Save(ctx, a))
	require.NoError(t, store.Save(ctx, b))

	list, err := store.List(ctx, "proj-1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "a", list[0].ID)
}

func TestMemoryStore_GetBatchSkipsMissing(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, testMemory("a", "a", time.Now())))

	got, err := store.GetBatch(ctx, []string{"a", "ghost"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].ID)
}

func TestMemoryStore_BacklogTracksEmbeddingStore(t *testing.T) {
	store := NewMemoryStore()
	es := NewEmbeddingStore(domain.KindMemory, nil, 3)
	store.AttachEmbeddingStore(es)
	ctx := context.Background()
	base := time.Now()

	require.NoError(t, store.Save(ctx, testMemory("first", "first", base.Add(-2*time.Hour))))
	require.NoError(t, store.Save(ctx, testMemory("second", "second", base.Add(-time.Hour))))
	require.NoError(t, store.Save(ctx, testMemory("third", "third", base)))

	n, err := store.CountMissing(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	// Embedding one record shrinks the backlog.
	require.NoError(t, es.StoreVector(ctx, "second", []float32{1, 0, 0}))

	n, err = store.CountMissing(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// Oldest first, bounded by limit.
	missing, err := store.ListMissing(ctx, 1)
	require.NoError(t, err)
	require.Len(t, missing, 1)
	assert.Equal(t, "first", missing[0].EmbedID())

	assert.Equal(t, domain.KindMemory, store.Kind())
}

func TestKeywordIndex_SearchRanksByTermFrequency(t *testing.T) {
	idx := NewKeywordIndex()
	ctx := context.Background()

	require.NoError(t, idx.Index(ctx, domain.Memory{
		ID: "rich", Title: "sqlite sqlite sqlite", Content: "sqlite tuning notes",
	}))
	require.NoError(t, idx.Index(ctx, domain.Memory{
		ID: "poor", Title: "general notes", Content: "mentions sqlite once",
	}))
	require.NoError(t, idx.Index(ctx, domain.Memory{
		ID: "unrelated", Title: "docker compose", Content: "ports and volumes",
	}))

	hits, err := idx.Search(ctx, "sqlite", 10, "")
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "rich", hits[0].Memory.ID)
	assert.Greater(t, hits[0].Relevance, hits[1].Relevance)
}

func TestKeywordIndex_DeleteRemovesFromResults(t *testing.T) {
	idx := NewKeywordIndex()
	ctx := context.Background()

	require.NoError(t, idx.Index(ctx, domain.Memory{ID: "m", Title: "kafka", Content: "brokers"}))
	require.NoError(t, idx.Delete(ctx, "m"))

	hits, err := idx.Search(ctx, "kafka", 10, "")
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestEmbeddingStore_SearchExactCosine(t *testing.T) {
	es := NewEmbeddingStore(domain.KindMemory, nil, 3)
	ctx := context.Background()

	require.NoError(t, es.StoreVector(ctx, "x", []float32{1, 0, 0}))
	require.NoError(t, es.StoreVector(ctx, "y", []float32{0, 1, 0}))
	require.NoError(t, es.StoreVector(ctx, "mix", []float32{0.6, 0.8, 0}))

	hits, err := es.Search(ctx, []float32{1, 0, 0}, driven.VectorSearchOptions{Limit: 2, MinSimilarity: 0.3})
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "x", hits[0].EntityID)
	assert.InDelta(t, 1.0, hits[0].Similarity, 1e-6)
	assert.Equal(t, "mix", hits[1].EntityID)
	assert.InDelta(t, 0.6, hits[1].Similarity, 1e-6)
}

func TestEmbeddingStore_RejectsWrongDimension(t *testing.T) {
	es := NewEmbeddingStore(domain.KindMemory, nil, 3)
	err := es.StoreVector(context.Background(), "bad", []float32{1, 0})
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
}

func TestEmbeddingStore_RebuildUnavailable(t *testing.T) {
	es := NewEmbeddingStore(domain.KindMemory, nil, 3)
	_, err := es.Rebuild(context.Background())
	assert.ErrorIs(t, err, domain.ErrVectorIndexUnavailable)
}
