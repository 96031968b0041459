// Package llm provides the text generation client agents prompt.
//
// Two backends are available: Anthropic's Messages API and a local Ollama
// server. Both implement Client. Func adapts a plain function, which is what
// tests use.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrEmptyResponse is returned when the model answers with no text.
var ErrEmptyResponse = errors.New("model returned an empty response")

// Client sends a single prompt and returns the model's text reply.
type Client interface {
	Query(ctx context.Context, prompt string) (string, error)
}

// Func adapts a function to Client.
type Func func(ctx context.Context, prompt string) (string, error)

// Query calls f.
func (f Func) Query(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// Provider names a backend.
type Provider string

const (
	ProviderOllama    Provider = "ollama"
	ProviderAnthropic Provider = "anthropic"
)

// Config selects and configures a backend.
type Config struct {
	Provider Provider

	// Model defaults per provider: llama3.2:latest for Ollama,
	// claude-sonnet-4-20250514 for Anthropic.
	Model string

	// BaseURL overrides the provider endpoint.
	BaseURL string

	// APIKey is required for Anthropic.
	APIKey string

	// Timeout bounds a single query. Default: 60s.
	Timeout time.Duration

	// MaxTokens caps the reply length. Default: 1024.
	MaxTokens int64
}

// New creates the client named by cfg.Provider.
func New(cfg Config) (Client, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 1024
	}

	switch Provider(strings.ToLower(string(cfg.Provider))) {
	case ProviderOllama, "":
		return NewOllama(cfg)
	case ProviderAnthropic:
		return NewAnthropic(cfg)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}
