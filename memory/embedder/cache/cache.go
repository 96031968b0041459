// Package cache memoizes an Embedder with a ristretto cache.
//
// Agents embed the same strings repeatedly (a lead description when it is
// indexed and again when it is recommended), and remote embedders are slow.
// The cache is lossy by design of ristretto: a miss simply re-embeds.
package cache

import (
	"context"
	"fmt"
	"slices"

	"github.com/dgraph-io/ristretto"

	"github.com/becomeliminal/salesdesk/memory"
)

// Embedder wraps another Embedder with a bounded cache keyed by text.
type Embedder struct {
	next  memory.Embedder
	cache *ristretto.Cache
}

// New wraps next with a cache holding roughly maxEntries vectors.
func New(next memory.Embedder, maxEntries int64) (*Embedder, error) {
	if maxEntries < 1 {
		maxEntries = 10_000
	}
	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: maxEntries * 10,
		MaxCost:     maxEntries,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("create embedding cache: %w", err)
	}
	return &Embedder{next: next, cache: c}, nil
}

// Embed returns the cached vector for text, embedding it on a miss.
// Returned slices are copies.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if v, ok := e.cache.Get(text); ok {
		if vec, ok := v.([]float32); ok {
			return slices.Clone(vec), nil
		}
	}

	vec, err := e.next.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	e.cache.Set(text, slices.Clone(vec), 1)
	return vec, nil
}

// Dimensions returns the wrapped embedder's dimension.
func (e *Embedder) Dimensions() int {
	return e.next.Dimensions()
}

// Wait blocks until pending cache writes are applied.
func (e *Embedder) Wait() {
	e.cache.Wait()
}

// Close releases the cache.
func (e *Embedder) Close() {
	e.cache.Close()
}
