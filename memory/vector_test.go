package memory_test

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/becomeliminal/salesdesk/core"
	"github.com/becomeliminal/salesdesk/memory"
)

func docs(n int, kind string) []core.Document {
	out := make([]core.Document, n)
	for i := range out {
		out[i] = core.MustDocument(map[string]any{"type": kind, "n": float64(i)})
	}
	return out
}

func TestFlatIndex_SelfMatch(t *testing.T) {
	ctx := context.Background()

	for _, metric := range []memory.Metric{memory.MetricCosine, memory.MetricL2} {
		t.Run(string(metric), func(t *testing.T) {
			ix, err := memory.NewFlatIndex(4, metric)
			require.NoError(t, err)

			vectors := [][]float32{
				{0.1, 0.2, 0.3, 0.4},
				{0.5, 0.6, 0.7, 0.8},
				{-1, 0, 0, 0},
				{0, 0, 1, 0},
			}
			ids, err := ix.Add(ctx, vectors, docs(4, "lead"))
			require.NoError(t, err)
			assert.Equal(t, []int{0, 1, 2, 3}, ids)

			for i, v := range vectors {
				got, err := ix.Search(ctx, v, 1)
				require.NoError(t, err)
				require.Len(t, got, 1)
				assert.Equal(t, i, got[0].ID)
				assert.Equal(t, float64(i), got[0].Metadata.Field("n"))
			}
		})
	}
}

func TestFlatIndex_SelfMatch_Collinear(t *testing.T) {
	ctx := context.Background()
	vectors := [][]float32{{2, 0, 0}, {1, 0, 0}, {0, 3, 0}, {0, 1, 0}}

	m := memory.DefaultConfig()
	require.Equal(t, memory.MetricL2, m.Metric)
	ix, err := memory.NewFlatIndex(3, m.Metric)
	require.NoError(t, err)
	_, err = ix.Add(ctx, vectors, docs(len(vectors), "lead"))
	require.NoError(t, err)

	for i, v := range vectors {
		got, err := ix.Search(ctx, v, 1)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, i, got[0].ID)
		assert.Zero(t, got[0].Score)
	}
}

// Cosine cannot tell a vector from its positive multiples; the lower id wins.
func TestFlatIndex_CosineCollinearTie(t *testing.T) {
	ctx := context.Background()
	ix, err := memory.NewFlatIndex(3, memory.MetricCosine)
	require.NoError(t, err)
	_, err = ix.Add(ctx, [][]float32{{2, 0, 0}, {1, 0, 0}}, docs(2, "lead"))
	require.NoError(t, err)

	got, err := ix.Search(ctx, []float32{1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 0, got[0].ID)
	assert.InDelta(t, 1.0, got[0].Score, 1e-9)
	assert.InDelta(t, 1.0, got[1].Score, 1e-9)
}

func TestFlatIndex_EmptyIndexReturnsEmpty(t *testing.T) {
	ix, err := memory.NewFlatIndex(3, memory.MetricCosine)
	require.NoError(t, err)

	got, err := ix.Search(context.Background(), []float32{1, 2, 3}, 5)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestFlatIndex_KLargerThanCount(t *testing.T) {
	ctx := context.Background()
	ix, err := memory.NewFlatIndex(2, memory.MetricL2)
	require.NoError(t, err)

	_, err = ix.Add(ctx, [][]float32{{0, 0}, {3, 4}, {1, 0}}, docs(3, "lead"))
	require.NoError(t, err)

	got, err := ix.Search(ctx, []float32{0, 0}, 10)
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, []int{0, 2, 1}, []int{got[0].ID, got[1].ID, got[2].ID})
	assert.Equal(t, []float64{0, 1, 25}, []float64{got[0].Score, got[1].Score, got[2].Score})
}

func TestFlatIndex_CosineOrdering(t *testing.T) {
	ctx := context.Background()
	ix, err := memory.NewFlatIndex(2, memory.MetricCosine)
	require.NoError(t, err)

	_, err = ix.Add(ctx, [][]float32{{0, 1}, {1, 1}, {1, 0}, {0, 0}}, docs(4, "lead"))
	require.NoError(t, err)

	got, err := ix.Search(ctx, []float32{2, 0}, 4)
	require.NoError(t, err)

	assert.Equal(t, []int{2, 1, 0, 3}, []int{got[0].ID, got[1].ID, got[2].ID, got[3].ID})
	assert.InDelta(t, 1.0, got[0].Score, 1e-9)
	assert.InDelta(t, 1/math.Sqrt2, got[1].Score, 1e-9)
	assert.Zero(t, got[3].Score, "zero vector scores 0")
}

func TestFlatIndex_TiesBreakByID(t *testing.T) {
	ctx := context.Background()
	ix, err := memory.NewFlatIndex(2, memory.MetricL2)
	require.NoError(t, err)

	_, err = ix.Add(ctx, [][]float32{{1, 0}, {0, 1}, {-1, 0}, {0, -1}}, docs(4, "lead"))
	require.NoError(t, err)

	got, err := ix.Search(ctx, []float32{0, 0}, 3)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, []int{got[0].ID, got[1].ID, got[2].ID})
}

func TestFlatIndex_AddIsAtomic(t *testing.T) {
	ctx := context.Background()
	ix, err := memory.NewFlatIndex(3, memory.MetricCosine)
	require.NoError(t, err)

	_, err = ix.Add(ctx, [][]float32{{1, 0, 0}}, docs(1, "lead"))
	require.NoError(t, err)

	tests := []struct {
		name     string
		vectors  [][]float32
		metadata []core.Document
		want     error
	}{
		{
			name:     "wrong length in the middle",
			vectors:  [][]float32{{1, 1, 1}, {1, 1}, {0, 0, 1}},
			metadata: docs(3, "lead"),
			want:     memory.ErrDimensionMismatch,
		},
		{
			name:     "metadata count differs",
			vectors:  [][]float32{{1, 1, 1}, {0, 1, 0}},
			metadata: docs(1, "lead"),
			want:     memory.ErrDimensionMismatch,
		},
		{
			name:     "empty batch",
			vectors:  nil,
			metadata: nil,
			want:     memory.ErrEmptyBatch,
		},
		{
			name:     "NaN component",
			vectors:  [][]float32{{float32(math.NaN()), 0, 0}},
			metadata: docs(1, "lead"),
			want:     memory.ErrInvalidVector,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ids, err := ix.Add(ctx, tt.vectors, tt.metadata)
			assert.ErrorIs(t, err, tt.want)
			assert.Nil(t, ids)
			assert.Equal(t, 1, ix.Len())
		})
	}

	ids, err := ix.Add(ctx, [][]float32{{0, 1, 0}}, docs(1, "lead"))
	require.NoError(t, err)
	assert.Equal(t, []int{1}, ids, "failed batches must not consume ids")
}

func TestFlatIndex_DimensionMismatchDetails(t *testing.T) {
	ix, err := memory.NewFlatIndex(3, memory.MetricCosine)
	require.NoError(t, err)

	_, err = ix.Add(context.Background(), [][]float32{{1, 2, 3}, {1, 2}}, docs(2, "lead"))

	var dm *memory.DimensionMismatchError
	require.ErrorAs(t, err, &dm)
	assert.Equal(t, 3, dm.Expected)
	assert.Equal(t, 2, dm.Got)
	assert.Equal(t, 1, dm.Position)
}

func TestFlatIndex_SearchValidation(t *testing.T) {
	ix, err := memory.NewFlatIndex(3, memory.MetricCosine)
	require.NoError(t, err)

	_, err = ix.Search(context.Background(), []float32{1, 2}, 1)
	assert.ErrorIs(t, err, memory.ErrDimensionMismatch)

	_, err = ix.Search(context.Background(), []float32{1, 2, 3}, 0)
	assert.ErrorIs(t, err, memory.ErrInvalidK)
}

func TestFlatIndex_CopiesVectors(t *testing.T) {
	ctx := context.Background()
	ix, err := memory.NewFlatIndex(2, memory.MetricL2)
	require.NoError(t, err)

	v := []float32{1, 1}
	_, err = ix.Add(ctx, [][]float32{v}, docs(1, "lead"))
	require.NoError(t, err)
	v[0] = 100

	got, err := ix.Search(ctx, []float32{1, 1}, 1)
	require.NoError(t, err)
	assert.Zero(t, got[0].Score)
}

func TestNewFlatIndex_Invalid(t *testing.T) {
	_, err := memory.NewFlatIndex(0, memory.MetricCosine)
	assert.ErrorIs(t, err, memory.ErrInvalidConfig)

	_, err = memory.NewFlatIndex(4, memory.Metric("manhattan"))
	assert.ErrorIs(t, err, memory.ErrUnknownMetric)
}

func TestNewFlatIndex_MetricAliases(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name memory.Metric
		want memory.Metric
		top  int
	}{
		{"", memory.MetricL2, 1},
		{"euclidean", memory.MetricL2, 1},
		{"L2", memory.MetricL2, 1},
		{" cosine ", memory.MetricCosine, 0},
		{"COSINE", memory.MetricCosine, 0},
	}
	for _, tt := range tests {
		t.Run(string(tt.name), func(t *testing.T) {
			ix, err := memory.NewFlatIndex(2, tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ix.Metric())

			_, err = ix.Add(ctx, [][]float32{{10, 0}, {1, 0}}, docs(2, "lead"))
			require.NoError(t, err)

			got, err := ix.Search(ctx, []float32{1, 0}, 2)
			require.NoError(t, err)
			require.Len(t, got, 2)
			assert.Equal(t, tt.top, got[0].ID)
		})
	}
}

func TestParseMetric(t *testing.T) {
	m, err := memory.ParseMetric("")
	require.NoError(t, err)
	assert.Equal(t, memory.MetricL2, m)

	m, err = memory.ParseMetric("Euclidean")
	require.NoError(t, err)
	assert.Equal(t, memory.MetricL2, m)
	assert.False(t, m.HigherIsBetter())
}
