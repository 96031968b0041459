// Package ollama provides an Embedder backed by a local Ollama server.
package ollama

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/ollama/ollama/api"
)

// ErrNoEmbedding is returned when the server answers without a vector.
var ErrNoEmbedding = errors.New("ollama returned no embedding")

// Config configures the Ollama embedder.
type Config struct {
	// BaseURL is the Ollama server, e.g. "http://localhost:11434".
	// Empty uses OLLAMA_HOST or the Ollama default.
	BaseURL string

	// Model is the embedding model, e.g. "nomic-embed-text".
	Model string

	// Dimensions is the expected vector length.
	Dimensions int

	// Timeout bounds a single request. Default: 30s.
	Timeout time.Duration
}

// Embedder calls the /api/embed endpoint.
type Embedder struct {
	client     *api.Client
	model      string
	dimensions int
}

// New creates an Ollama embedder.
func New(cfg Config) (*Embedder, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("model is required")
	}
	if cfg.Dimensions < 1 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	var client *api.Client
	if cfg.BaseURL == "" {
		var err error
		client, err = api.ClientFromEnvironment()
		if err != nil {
			return nil, fmt.Errorf("ollama client from environment: %w", err)
		}
	} else {
		base, err := url.Parse(cfg.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("parse ollama url: %w", err)
		}
		client = api.NewClient(base, &http.Client{Timeout: cfg.Timeout})
	}

	return &Embedder{
		client:     client,
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
	}, nil
}

// Embed converts text to an embedding vector.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.client.Embed(ctx, &api.EmbedRequest{
		Model: e.model,
		Input: text,
	})
	if err != nil {
		return nil, fmt.Errorf("ollama embed: %w", err)
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0]) == 0 {
		return nil, ErrNoEmbedding
	}
	vec := resp.Embeddings[0]
	if len(vec) != e.dimensions {
		return nil, fmt.Errorf("ollama embed: model %s returned %d dimensions, expected %d",
			e.model, len(vec), e.dimensions)
	}
	return vec, nil
}

// Dimensions returns the embedding vector size.
func (e *Embedder) Dimensions() int {
	return e.dimensions
}
