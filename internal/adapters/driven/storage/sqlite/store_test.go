package sqlite

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrel-labs/mnemo-cli/internal/core/domain"
	"github.com/kestrel-labs/mnemo-cli/internal/core/ports/driven"
)

// setupTestStore creates a temporary SQLite store for testing.
func setupTestStore(t *testing.T) (*Store, func()) {
	t.Helper()

	tempDir, err := os.MkdirTemp("", "mnemo-test-*")
	require.NoError(t, err)

	store, err := NewStore(tempDir)
	require.NoError(t, err)
	require.NotNil(t, store)

	cleanup := func() {
		assert.NoError(t, store.Close())
		assert.NoError(t, os.RemoveAll(tempDir))
	}

	return store, cleanup
}

func testMemory(id, title, content string) domain.Memory {
	now := time.Now().UTC().Truncate(time.Second)
	return domain.Memory{
		ID:        id,
		Title:     title,
		Content:   content,
		Category:  "note",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestNewStore_CreatesDatabase(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	assert.FileExists(t, store.Path())
}

func TestNewStore_MigrationIsIdempotent(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "mnemo-test-*")
	require.NoError(t, err)
	defer os.RemoveAll(tempDir)

	store1, err := NewStore(tempDir)
	require.NoError(t, err)
	require.NoError(t, store1.MemoryStore().Save(context.Background(), testMemory("m1", "t", "c")))
	require.NoError(t, store1.Close())

	// Reopening re-runs migrate against the same file; existing data
	// must survive.
	store2, err := NewStore(tempDir)
	require.NoError(t, err)
	defer store2.Close()

	got, err := store2.MemoryStore().Get(context.Background(), "m1")
	require.NoError(t, err)
	assert.Equal(t, "t", got.Title)
}

func TestMemoryStore_SaveAndGet(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	m := testMemory("m1", "prefer context timeouts", "wrap outbound calls in context.WithTimeout")
	m.ProjectID = "proj-1"
	require.NoError(t, store.MemoryStore().Save(ctx, m))

	got, err := store.MemoryStore().Get(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, m.Title, got.Title)
	assert.Equal(t, m.Content, got.Content)
	assert.Equal(t, "proj-1", got.ProjectID)
	assert.Equal(t, "note", got.Category)
}

func TestMemoryStore_GetNotFound(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	_, err := store.MemoryStore().Get(context.Background(), "ghost")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMemoryStore_SaveUpserts(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	m := testMemory("m1", "v1", "first")
	require.NoError(t, store.MemoryStore().Save(ctx, m))

	m.Title = "v2"
	m.Content = "second"
	require.NoError(t, store.MemoryStore().Save(ctx, m))

	got, err := store.MemoryStore().Get(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, "v2", got.Title)
	assert.Equal(t, "second", got.Content)
}

func TestMemoryStore_GetBatchSkipsMissing(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, store.MemoryStore().Save(ctx, testMemory("a", "a", "a")))
	require.NoError(t, store.MemoryStore().Save(ctx, testMemory("b", "b", "b")))

	got, err := store.MemoryStore().GetBatch(ctx, []string{"a", "ghost", "b"})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = store.MemoryStore().GetBatch(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestMemoryStore_ListScopedAndOrdered(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	older := testMemory("old", "old", "old")
	older.CreatedAt = older.CreatedAt.Add(-time.Hour)
	older.ProjectID = "p"
	newer := testMemory("new", "new", "new")
	newer.ProjectID = "p"
	other := testMemory("other", "other", "other")
	other.ProjectID = "q"

	for _, m := range []domain.Memory{older, newer, other} {
		require.NoError(t, store.MemoryStore().Save(ctx, m))
	}

	list, err := store.MemoryStore().List(ctx, "p")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "new", list[0].ID)
	assert.Equal(t, "old", list[1].ID)
}

func TestKeywordIndex_SearchRanksMatches(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	memories := []domain.Memory{
		testMemory("dense", "sqlite pragmas", "sqlite journal sqlite busy timeout sqlite"),
		testMemory("sparse", "general notes", "one mention of sqlite"),
		testMemory("none", "docker compose", "ports and volumes"),
	}
	for _, m := range memories {
		require.NoError(t, store.MemoryStore().Save(ctx, m))
		require.NoError(t, store.KeywordIndex().Index(ctx, m))
	}

	hits, err := store.KeywordIndex().Search(ctx, "sqlite", 10, "")
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "dense", hits[0].Memory.ID)
	assert.Positive(t, hits[0].Relevance)
	assert.Greater(t, hits[0].Relevance, hits[1].Relevance)
}

func TestKeywordIndex_QuotesSpecialCharacters(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	m := testMemory("m", "error wrapping", "use errors.Is for sentinel checks")
	require.NoError(t, store.MemoryStore().Save(ctx, m))
	require.NoError(t, store.KeywordIndex().Index(ctx, m))

	// FTS operators in user input must not produce a syntax error.
	_, err := store.KeywordIndex().Search(ctx, `errors.Is AND NOT ("`, 10, "")
	assert.NoError(t, err)
}

func TestKeywordIndex_DeleteRemovesEntry(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	m := testMemory("m", "kafka", "broker settings")
	require.NoError(t, store.MemoryStore().Save(ctx, m))
	require.NoError(t, store.KeywordIndex().Index(ctx, m))
	require.NoError(t, store.KeywordIndex().Delete(ctx, "m"))

	hits, err := store.KeywordIndex().Search(ctx, "kafka", 10, "")
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestEmbeddingStore_StoreVectorAndGet(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	es, err := store.EmbeddingStore(domain.KindMemory, nil, nil, 3)
	require.NoError(t, err)

	require.NoError(t, es.StoreVector(ctx, "m1", []float32{0.6, 0.8, 0}))

	has, err := es.Has(ctx, "m1")
	require.NoError(t, err)
	assert.True(t, has)

	vector, err := es.Get(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.6, 0.8, 0}, vector)

	count, err := es.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestEmbeddingStore_StoreVectorRejectsWrongDimension(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	es, err := store.EmbeddingStore(domain.KindMemory, nil, nil, 3)
	require.NoError(t, err)

	err = es.StoreVector(context.Background(), "m1", []float32{1, 0})
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
}

func TestEmbeddingStore_ScanSearchExactCosine(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	// No index configured: Search must fall back to the exhaustive scan.
	es, err := store.EmbeddingStore(domain.KindMemory, nil, nil, 3)
	require.NoError(t, err)

	require.NoError(t, es.StoreVector(ctx, "exact", []float32{1, 0, 0}))
	require.NoError(t, es.StoreVector(ctx, "partial", []float32{0.6, 0.8, 0}))
	require.NoError(t, es.StoreVector(ctx, "orthogonal", []float32{0, 0, 1}))

	hits, err := es.Search(ctx, []float32{1, 0, 0}, driven.VectorSearchOptions{
		Limit:         10,
		MinSimilarity: 0.3,
	})
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "exact", hits[0].EntityID)
	assert.InDelta(t, 1.0, hits[0].Similarity, 1e-6)
	assert.Equal(t, "partial", hits[1].EntityID)
	assert.InDelta(t, 0.6, hits[1].Similarity, 1e-6)
}

func TestEmbeddingStore_SearchExcludesMismatchedDimensions(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	es3, err := store.EmbeddingStore(domain.KindMemory, nil, nil, 3)
	require.NoError(t, err)
	require.NoError(t, es3.StoreVector(ctx, "ok", []float32{1, 0, 0}))

	// A store configured for a different model dimension sees the
	// stored record but must exclude it from similarity computation.
	es4, err := store.EmbeddingStore(domain.KindMemory, nil, nil, 4)
	require.NoError(t, err)

	hits, err := es4.Search(ctx, []float32{1, 0, 0, 0}, driven.VectorSearchOptions{Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, hits)

	vector, err := es4.Get(ctx, "ok")
	require.NoError(t, err)
	assert.Nil(t, vector, "mismatched record reads as missing")
}

func TestEmbeddingStore_KindsAreIsolated(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	mems, err := store.EmbeddingStore(domain.KindMemory, nil, nil, 3)
	require.NoError(t, err)
	skills, err := store.EmbeddingStore(domain.KindSkill, nil, nil, 3)
	require.NoError(t, err)

	require.NoError(t, mems.StoreVector(ctx, "shared-id", []float32{1, 0, 0}))

	has, err := skills.Has(ctx, "shared-id")
	require.NoError(t, err)
	assert.False(t, has)
}

func TestEmbeddingStore_RejectsUnknownKind(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	_, err := store.EmbeddingStore("bogus", nil, nil, 3)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestEmbeddingStore_RebuildWithoutIndex(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	es, err := store.EmbeddingStore(domain.KindMemory, nil, nil, 3)
	require.NoError(t, err)

	_, err = es.Rebuild(context.Background())
	assert.ErrorIs(t, err, domain.ErrVectorIndexUnavailable)
}

func TestMemoryBacklog_TracksMissingEmbeddings(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	older := testMemory("older", "a", "a")
	older.CreatedAt = older.CreatedAt.Add(-time.Hour)
	newer := testMemory("newer", "b", "b")
	require.NoError(t, store.MemoryStore().Save(ctx, older))
	require.NoError(t, store.MemoryStore().Save(ctx, newer))

	backlog := store.MemoryBacklog()
	assert.Equal(t, domain.KindMemory, backlog.Kind())

	n, err := backlog.CountMissing(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	missing, err := backlog.ListMissing(ctx, 1)
	require.NoError(t, err)
	require.Len(t, missing, 1)
	assert.Equal(t, "older", missing[0].EmbedID(), "oldest first")

	// Embedding a record removes it from the backlog.
	es, err := store.EmbeddingStore(domain.KindMemory, nil, nil, 3)
	require.NoError(t, err)
	require.NoError(t, es.StoreVector(ctx, "older", []float32{1, 0, 0}))

	n, err = backlog.CountMissing(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestEmbeddingStore_DeleteRemovesRecord(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	es, err := store.EmbeddingStore(domain.KindMemory, nil, nil, 3)
	require.NoError(t, err)

	require.NoError(t, es.StoreVector(ctx, "m", []float32{1, 0, 0}))
	require.NoError(t, es.Delete(ctx, "m"))

	has, err := es.Has(ctx, "m")
	require.NoError(t, err)
	assert.False(t, has)
}
