// Package chromem provides a memory.VectorIndex backed by chromem-go, a pure
// Go embedded vector database.
//
// chromem-go normalizes every embedding and ranks by dot product, so this
// index always uses the cosine metric and rejects zero vectors.
package chromem

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"sync"

	"github.com/charmbracelet/log"
	chromem "github.com/philippgille/chromem-go"

	"github.com/becomeliminal/salesdesk/core"
	"github.com/becomeliminal/salesdesk/memory"
)

// ErrZeroVector is returned for all-zero vectors, which have no direction.
var ErrZeroVector = errors.New("zero vector has no direction")

const collectionName = "vectors"

// Index wraps a chromem collection.
//
// Only vectors live in chromem. Metadata stays in a slice indexed by record
// id, and that slice's length is the committed record count: documents that
// chromem accepted during a failed batch sit beyond it, are never returned,
// and are overwritten by the next batch that reuses their ids.
type Index struct {
	dim int
	db  *chromem.DB
	col *chromem.Collection
	log *log.Logger

	mu       sync.RWMutex
	metadata []core.Document
}

// New creates an empty in-memory index for vectors of length dim.
func New(dim int) (*Index, error) {
	if dim < 1 {
		return nil, fmt.Errorf("%w: dimension must be positive, got %d", memory.ErrInvalidConfig, dim)
	}

	db := chromem.NewDB()
	// No embedding func: callers always supply vectors.
	col, err := db.CreateCollection(collectionName, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}

	return &Index{
		dim: dim,
		db:  db,
		col: col,
		log: log.Default().WithPrefix("chromem"),
	}, nil
}

func (ix *Index) Dimension() int { return ix.dim }

func (ix *Index) Metric() memory.Metric { return memory.MetricCosine }

func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.metadata)
}

// Add stores the batch in chromem and commits its metadata only when every
// document was accepted.
func (ix *Index) Add(ctx context.Context, vectors [][]float32, metadata []core.Document) ([]int, error) {
	if err := memory.ValidateBatch(ix.dim, vectors, metadata); err != nil {
		return nil, err
	}
	for i, v := range vectors {
		if isZero(v) {
			return nil, fmt.Errorf("%w: vector %d", ErrZeroVector, i)
		}
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	start := len(ix.metadata)
	docs := make([]chromem.Document, len(vectors))
	ids := make([]int, len(vectors))
	for i, v := range vectors {
		ids[i] = start + i
		embedding := make([]float32, len(v))
		copy(embedding, v)
		id := strconv.Itoa(ids[i])
		docs[i] = chromem.Document{
			ID:        id,
			Content:   id,
			Embedding: embedding,
		}
	}

	if err := ix.col.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return nil, fmt.Errorf("add documents: %w", err)
	}

	ix.metadata = append(ix.metadata, metadata...)
	ix.log.Debug("stored vectors", "count", len(ids), "total", len(ix.metadata))
	return ids, nil
}

// Search queries every committed document and re-sorts so equal scores are
// ordered by ascending id, which chromem does not guarantee.
func (ix *Index) Search(ctx context.Context, query []float32, k int) ([]memory.SearchResult, error) {
	if err := memory.ValidateQuery(ix.dim, query, k); err != nil {
		return nil, err
	}
	if isZero(query) {
		return nil, fmt.Errorf("%w: query", ErrZeroVector)
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	committed := len(ix.metadata)
	if committed == 0 {
		return []memory.SearchResult{}, nil
	}

	// chromem requires nResults <= collection size; stray documents from a
	// failed batch can make Count larger than committed.
	raw, err := ix.col.QueryEmbedding(ctx, query, ix.col.Count(), nil, nil)
	if err != nil {
		return nil, fmt.Errorf("chromem query: %w", err)
	}

	results := make([]memory.SearchResult, 0, committed)
	for _, r := range raw {
		id, err := strconv.Atoi(r.ID)
		if err != nil || id < 0 || id >= committed {
			continue
		}
		results = append(results, memory.SearchResult{
			ID:       id,
			Metadata: ix.metadata[id],
			Score:    float64(r.Similarity),
		})
	}

	memory.SortResults(memory.MetricCosine, results)
	if k < len(results) {
		results = results[:k]
	}
	return results, nil
}

func isZero(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}
