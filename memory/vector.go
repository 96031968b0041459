package memory

import (
	"context"
	"fmt"
	"math"
	"slices"
	"sync"

	"github.com/becomeliminal/salesdesk/core"
)

// FlatIndex is an exact, brute-force VectorIndex. Every search scores every
// record, which is fine for the few thousand leads a sales team tracks.
// All methods are safe for concurrent use.
type FlatIndex struct {
	dim    int
	metric Metric

	mu      sync.RWMutex
	records []flatRecord
}

type flatRecord struct {
	vector   []float32
	norm     float64
	metadata core.Document
}

// NewFlatIndex creates an empty index for vectors of length dim.
func NewFlatIndex(dim int, metric Metric) (*FlatIndex, error) {
	if dim < 1 {
		return nil, fmt.Errorf("%w: dimension must be positive, got %d", ErrInvalidConfig, dim)
	}
	m, err := ParseMetric(string(metric))
	if err != nil {
		return nil, err
	}
	return &FlatIndex{dim: dim, metric: m}, nil
}

func (ix *FlatIndex) Dimension() int { return ix.dim }

func (ix *FlatIndex) Metric() Metric { return ix.metric }

func (ix *FlatIndex) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.records)
}

// Add appends the batch atomically. Vectors are copied.
func (ix *FlatIndex) Add(ctx context.Context, vectors [][]float32, metadata []core.Document) ([]int, error) {
	if err := ValidateBatch(ix.dim, vectors, metadata); err != nil {
		return nil, err
	}

	batch := make([]flatRecord, len(vectors))
	for i, v := range vectors {
		batch[i] = flatRecord{
			vector:   slices.Clone(v),
			norm:     norm(v),
			metadata: metadata[i],
		}
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	start := len(ix.records)
	ix.records = append(ix.records, batch...)

	ids := make([]int, len(batch))
	for i := range ids {
		ids[i] = start + i
	}
	return ids, nil
}

// Search scores every record against query and returns the best k.
func (ix *FlatIndex) Search(ctx context.Context, query []float32, k int) ([]SearchResult, error) {
	if err := ValidateQuery(ix.dim, query, k); err != nil {
		return nil, err
	}
	qnorm := norm(query)

	ix.mu.RLock()
	results := make([]SearchResult, len(ix.records))
	for id, r := range ix.records {
		results[id] = SearchResult{
			ID:       id,
			Metadata: r.metadata,
			Score:    ix.score(query, qnorm, r),
		}
	}
	ix.mu.RUnlock()

	SortResults(ix.metric, results)
	if k < len(results) {
		results = results[:k]
	}
	return results, nil
}

func (ix *FlatIndex) score(query []float32, qnorm float64, r flatRecord) float64 {
	if ix.metric == MetricL2 {
		return squaredL2(query, r.vector)
	}
	if qnorm == 0 || r.norm == 0 {
		return 0
	}
	return dot(query, r.vector) / (qnorm * r.norm)
}

// ValidateBatch checks an Add batch against dim without touching any index.
func ValidateBatch(dim int, vectors [][]float32, metadata []core.Document) error {
	if len(vectors) == 0 {
		return ErrEmptyBatch
	}
	if len(vectors) != len(metadata) {
		return &DimensionMismatchError{Expected: len(vectors), Got: len(metadata), Position: -1, Metadata: true}
	}
	for i, v := range vectors {
		if len(v) != dim {
			return &DimensionMismatchError{Expected: dim, Got: len(v), Position: i}
		}
		if !finite(v) {
			return fmt.Errorf("%w: vector %d contains NaN or Inf", ErrInvalidVector, i)
		}
	}
	return nil
}

// ValidateQuery checks a Search query against dim.
func ValidateQuery(dim int, query []float32, k int) error {
	if k < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidK, k)
	}
	if len(query) != dim {
		return &DimensionMismatchError{Expected: dim, Got: len(query), Position: -1}
	}
	if !finite(query) {
		return fmt.Errorf("%w: query contains NaN or Inf", ErrInvalidVector)
	}
	return nil
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func norm(v []float32) float64 {
	return math.Sqrt(dot(v, v))
}

func squaredL2(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}

func finite(v []float32) bool {
	for _, x := range v {
		f := float64(x)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}
