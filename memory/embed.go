package memory

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
)

// FallbackEmbedder tries Primary first and falls back to Fallback when the
// primary errors or returns a vector of the wrong length. Fallback must be
// infallible in practice (the hash embedder is).
type FallbackEmbedder struct {
	Primary  Embedder
	Fallback Embedder
	log      *log.Logger
}

// NewFallbackEmbedder wraps primary with fallback. A nil primary means every
// call goes straight to the fallback.
func NewFallbackEmbedder(primary, fallback Embedder) *FallbackEmbedder {
	return &FallbackEmbedder{
		Primary:  primary,
		Fallback: fallback,
		log:      log.Default().WithPrefix("embed"),
	}
}

// Embed converts text to a vector of length Dimensions().
func (e *FallbackEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if e.Primary != nil {
		vec, err := e.Primary.Embed(ctx, text)
		switch {
		case err != nil:
			e.log.Warn("primary embedder failed, using fallback", "error", err)
		case len(vec) != e.Fallback.Dimensions():
			e.log.Warn("primary embedder returned wrong length, using fallback",
				"got", len(vec), "want", e.Fallback.Dimensions())
		default:
			return vec, nil
		}
	}

	vec, err := e.Fallback.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("fallback embed: %w", err)
	}
	return vec, nil
}

// Dimensions returns the fallback's dimension, which both sides must share.
func (e *FallbackEmbedder) Dimensions() int {
	return e.Fallback.Dimensions()
}
