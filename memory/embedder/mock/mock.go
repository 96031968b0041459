// Package mock provides a deterministic, offline Embedder.
//
// Vectors carry no semantic meaning: the same text always maps to the same
// unit vector, and different texts map to unrelated ones. It serves as the
// fallback when a real embedder is unavailable and as the test embedder.
package mock

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
)

// Embedder hashes text into a pseudo-random unit vector.
type Embedder struct {
	dimensions int
}

// New creates a hash embedder producing vectors of the given length.
func New(dimensions int) *Embedder {
	if dimensions < 1 {
		dimensions = 768
	}
	return &Embedder{dimensions: dimensions}
}

// Embed creates a deterministic embedding from text. Case and surrounding
// whitespace are ignored.
func (m *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	h := fnv.New64a()
	h.Write([]byte(strings.ToLower(strings.TrimSpace(text))))
	seed := h.Sum64()

	embedding := make([]float32, m.dimensions)
	for i := range embedding {
		// Linear congruential step, mapped into [-1, 1].
		seed = seed*6364136223846793005 + 1442695040888963407
		embedding[i] = float32(int64(seed)) / float32(math.MaxInt64)
	}

	return normalize(embedding), nil
}

// Dimensions returns the embedding size.
func (m *Embedder) Dimensions() int {
	return m.dimensions
}

func normalize(vec []float32) []float32 {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return vec
	}

	n := float32(math.Sqrt(sum))
	for i := range vec {
		vec[i] /= n
	}
	return vec
}
