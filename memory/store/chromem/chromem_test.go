package chromem_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/becomeliminal/salesdesk/core"
	"github.com/becomeliminal/salesdesk/memory"
	"github.com/becomeliminal/salesdesk/memory/store/chromem"
)

func meta(names ...string) []core.Document {
	out := make([]core.Document, len(names))
	for i, n := range names {
		out[i] = core.MustDocument(map[string]any{"name": n})
	}
	return out
}

func TestIndex_AddAndSearch(t *testing.T) {
	ctx := context.Background()
	ix, err := chromem.New(3)
	require.NoError(t, err)
	assert.Equal(t, memory.MetricCosine, ix.Metric())
	assert.Equal(t, 3, ix.Dimension())

	ids, err := ix.Add(ctx, [][]float32{{1, 0, 0}, {0, 1, 0}, {1, 1, 0}}, meta("acme", "globex", "initech"))
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, ids)
	assert.Equal(t, 3, ix.Len())

	got, err := ix.Search(ctx, []float32{1, 0.1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 0, got[0].ID)
	assert.Equal(t, "acme", got[0].Metadata.Field("name"))
	assert.Equal(t, 2, got[1].ID)
	assert.Greater(t, got[0].Score, got[1].Score)
}

func TestIndex_EmptySearch(t *testing.T) {
	ix, err := chromem.New(2)
	require.NoError(t, err)

	got, err := ix.Search(context.Background(), []float32{1, 0}, 3)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestIndex_TiesBreakByID(t *testing.T) {
	ctx := context.Background()
	ix, err := chromem.New(2)
	require.NoError(t, err)

	_, err = ix.Add(ctx, [][]float32{{2, 0}, {1, 0}, {3, 0}}, meta("a", "b", "c"))
	require.NoError(t, err)

	got, err := ix.Search(ctx, []float32{1, 0}, 3)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, []int{got[0].ID, got[1].ID, got[2].ID})
}

func TestIndex_RejectsInvalidBatches(t *testing.T) {
	ctx := context.Background()
	ix, err := chromem.New(2)
	require.NoError(t, err)

	_, err = ix.Add(ctx, [][]float32{{1, 0}, {1, 0, 0}}, meta("a", "b"))
	assert.ErrorIs(t, err, memory.ErrDimensionMismatch)

	_, err = ix.Add(ctx, [][]float32{{1, 0}, {0, 0}}, meta("a", "b"))
	assert.ErrorIs(t, err, chromem.ErrZeroVector)

	assert.Zero(t, ix.Len())

	_, err = ix.Search(ctx, []float32{0, 0}, 1)
	assert.ErrorIs(t, err, chromem.ErrZeroVector)

	_, err = ix.Search(ctx, []float32{1, 0}, 0)
	assert.ErrorIs(t, err, memory.ErrInvalidK)
}

func TestNew_InvalidDimension(t *testing.T) {
	_, err := chromem.New(0)
	assert.ErrorIs(t, err, memory.ErrInvalidConfig)
}
