package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/becomeliminal/salesdesk/core"
)

// VectorIndex stores fixed-dimension vectors and answers nearest-neighbor
// queries. Implementations: FlatIndex (this package), chromem.Index.
//
// Record ids are zero-based insertion positions, assigned at Add time and
// never reused. The index is append-only.
type VectorIndex interface {
	// Dimension returns the length every vector must have.
	Dimension() int

	// Metric returns the scoring function used by Search.
	Metric() Metric

	// Len returns the number of records.
	Len() int

	// Add appends a batch of vectors with one metadata document each and
	// returns the assigned ids, in order. The batch is all-or-nothing: on
	// error the index is unchanged.
	Add(ctx context.Context, vectors [][]float32, metadata []core.Document) ([]int, error)

	// Search returns up to k records, most similar first. Ties are broken by
	// ascending record id. An empty index yields an empty result.
	Search(ctx context.Context, query []float32, k int) ([]SearchResult, error)
}

// SearchResult is one hit returned by VectorIndex.Search.
type SearchResult struct {
	ID       int           `json:"record_id"`
	Metadata core.Document `json:"metadata"`

	// Score is a cosine similarity (higher is closer) or a squared Euclidean
	// distance (lower is closer), depending on the index metric.
	Score float64 `json:"score"`
}

// Embedder converts text to embedding vectors.
// Implementations: mock.Embedder (hash based), ollama.Embedder, cache.Embedder.
type Embedder interface {
	// Embed converts a single text to an embedding vector.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the embedding vector size.
	Dimensions() int
}

// Metric selects how vectors are compared.
type Metric string

const (
	// MetricCosine ranks by cosine similarity, highest first.
	MetricCosine Metric = "cosine"

	// MetricL2 ranks by squared Euclidean distance, lowest first.
	MetricL2 Metric = "l2"
)

// ParseMetric validates a metric name. The empty string means l2.
func ParseMetric(name string) (Metric, error) {
	switch Metric(strings.ToLower(strings.TrimSpace(name))) {
	case MetricCosine:
		return MetricCosine, nil
	case "", MetricL2, "euclidean":
		return MetricL2, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMetric, name)
	}
}

// HigherIsBetter reports whether larger scores mean closer vectors.
func (m Metric) HigherIsBetter() bool {
	return m != MetricL2
}

// SortResults orders results best first, breaking ties by ascending id.
func SortResults(m Metric, results []SearchResult) {
	slices.SortFunc(results, func(a, b SearchResult) int {
		if a.Score != b.Score {
			if m.HigherIsBetter() {
				return cmp.Compare(b.Score, a.Score)
			}
			return cmp.Compare(a.Score, b.Score)
		}
		return cmp.Compare(a.ID, b.ID)
	})
}
