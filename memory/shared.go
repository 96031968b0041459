package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/becomeliminal/salesdesk/core"
)

// SharedMemory is the blackboard every agent reads and writes.
//
// It composes one ContextStore and one VectorIndex and pins the embedding
// dimension chosen at construction. Construct one per process and pass it to
// each agent; the type holds no global state.
type SharedMemory struct {
	config  Config
	index   VectorIndex
	context *ContextStore
	clock   func() time.Time
	log     *log.Logger
}

// Option configures a SharedMemory.
type Option func(*SharedMemory)

// WithIndex replaces the default FlatIndex. The index dimension must match
// Config.Dimension.
func WithIndex(ix VectorIndex) Option {
	return func(m *SharedMemory) {
		m.index = ix
	}
}

// WithClock sets the clock used to timestamp context entries.
func WithClock(now func() time.Time) Option {
	return func(m *SharedMemory) {
		m.clock = now
	}
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(m *SharedMemory) {
		m.log = l
	}
}

// New creates a SharedMemory from cfg.
func New(cfg Config, opts ...Option) (*SharedMemory, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	m := &SharedMemory{config: cfg}
	for _, opt := range opts {
		opt(m)
	}
	if m.log == nil {
		m.log = log.Default().WithPrefix("memory")
	}

	if m.index == nil {
		ix, err := NewFlatIndex(cfg.Dimension, cfg.Metric)
		if err != nil {
			return nil, err
		}
		m.index = ix
	} else if m.index.Dimension() != cfg.Dimension {
		return nil, fmt.Errorf("%w: index dimension %d does not match configured dimension %d",
			ErrInvalidConfig, m.index.Dimension(), cfg.Dimension)
	}

	m.context = NewContextStore(m.clock)

	m.log.Debug("shared memory ready", "dimension", cfg.Dimension, "metric", m.index.Metric())
	return m, nil
}

// Dimension returns the configured embedding length.
func (m *SharedMemory) Dimension() int {
	return m.config.Dimension
}

// Metric returns the metric of the underlying index.
func (m *SharedMemory) Metric() Metric {
	return m.index.Metric()
}

// StoreContext publishes doc under key, replacing any earlier value.
func (m *SharedMemory) StoreContext(key string, doc core.Document) {
	m.context.Store(key, doc)
	m.log.Debug("stored context", "key", key)
}

// GetContext returns the latest document under key. The second result is
// false when the key was never stored (or has been evicted).
func (m *SharedMemory) GetContext(key string) (core.Document, bool) {
	return m.context.Get(key)
}

// ContextEntry returns the document under key along with its timestamp.
func (m *SharedMemory) ContextEntry(key string) (ContextEntry, bool) {
	return m.context.Entry(key)
}

// ContextKeys returns all stored context keys, sorted.
func (m *SharedMemory) ContextKeys() []string {
	return m.context.Keys()
}

// EvictContexts removes context entries older than maxAge.
func (m *SharedMemory) EvictContexts(maxAge time.Duration) int {
	n := m.context.EvictOlderThan(maxAge)
	if n > 0 {
		m.log.Info("evicted stale context", "count", n, "max_age", maxAge)
	}
	return n
}

// EvictStaleContexts applies Config.ContextMaxAge. It is a no-op when the
// configured age is zero.
func (m *SharedMemory) EvictStaleContexts() int {
	if m.config.ContextMaxAge <= 0 {
		return 0
	}
	return m.EvictContexts(m.config.ContextMaxAge)
}

// AddVectors appends a batch of embeddings with their metadata and returns
// the assigned record ids. Once started, the append is not cancelled by ctx.
func (m *SharedMemory) AddVectors(ctx context.Context, vectors [][]float32, metadata []core.Document) ([]int, error) {
	ids, err := m.index.Add(context.WithoutCancel(ctx), vectors, metadata)
	if err != nil {
		return nil, fmt.Errorf("add vectors: %w", err)
	}
	m.log.Debug("added vectors", "count", len(ids), "first_id", ids[0])
	return ids, nil
}

// SearchVectors returns up to k nearest records to query, best first.
func (m *SharedMemory) SearchVectors(ctx context.Context, query []float32, k int) ([]SearchResult, error) {
	results, err := m.index.Search(ctx, query, k)
	if err != nil {
		return nil, fmt.Errorf("search vectors: %w", err)
	}
	return results, nil
}

// VectorCount returns the number of indexed vectors.
func (m *SharedMemory) VectorCount() int {
	return m.index.Len()
}
