package chromem

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrel-labs/mnemo-cli/internal/core/domain"
)

func newTestIndex(t *testing.T) *Index {
	t.Helper()
	idx, err := New(domain.KindMemory, 3)
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func TestNew_RejectsInvalidInput(t *testing.T) {
	_, err := New("bogus", 3)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = New(domain.KindMemory, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestIndex_AddAndSearch(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.Add(ctx, "x", []float32{1, 0, 0}))
	require.NoError(t, idx.Add(ctx, "y", []float32{0, 1, 0}))
	require.NoError(t, idx.Add(ctx, "diag", []float32{0.7071, 0.7071, 0}))
	assert.Equal(t, 3, idx.Count())

	hits, err := idx.Search(ctx, []float32{1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "x", hits[0].EntityID)
	assert.InDelta(t, 1.0, hits[0].Similarity, 1e-4)
	assert.Equal(t, "diag", hits[1].EntityID)
	assert.InDelta(t, 0.7071, hits[1].Similarity, 1e-4)
}

func TestIndex_SearchClampsToCollectionSize(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.Add(ctx, "only", []float32{1, 0, 0}))

	hits, err := idx.Search(ctx, []float32{1, 0, 0}, 10)
	require.NoError(t, err)
	assert.Len(t, hits, 1)
}

func TestIndex_SearchEmpty(t *testing.T) {
	idx := newTestIndex(t)

	hits, err := idx.Search(context.Background(), []float32{1, 0, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestIndex_AddReplacesExisting(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.Add(ctx, "x", []float32{1, 0, 0}))
	require.NoError(t, idx.Add(ctx, "x", []float32{0, 1, 0}))
	assert.Equal(t, 1, idx.Count())

	hits, err := idx.Search(ctx, []float32{0, 1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.InDelta(t, 1.0, hits[0].Similarity, 1e-4)
}

func TestIndex_Delete(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.Add(ctx, "x", []float32{1, 0, 0}))
	require.NoError(t, idx.Delete(ctx, "x"))
	assert.Equal(t, 0, idx.Count())
}

func TestIndex_DimensionMismatch(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	err := idx.Add(ctx, "bad", []float32{1, 0})
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)

	_, err = idx.Search(ctx, []float32{1, 0, 0, 0}, 1)
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
}
