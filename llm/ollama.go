package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"
)

const defaultOllamaModel = "llama3.2:latest"

// Ollama queries a local Ollama server through /api/generate.
type Ollama struct {
	client *api.Client
	model  string
}

// NewOllama creates an Ollama client. An empty BaseURL uses OLLAMA_HOST or
// the Ollama default.
func NewOllama(cfg Config) (*Ollama, error) {
	model := cfg.Model
	if model == "" {
		model = defaultOllamaModel
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

	return &Ollama{client: client, model: model}, nil
}

// Query generates a completion for prompt without streaming.
func (o *Ollama) Query(ctx context.Context, prompt string) (string, error) {
	stream := false
	req := &api.GenerateRequest{
		Model:  o.model,
		Prompt: prompt,
		Stream: &stream,
	}

	var sb strings.Builder
	respFunc := func(resp api.GenerateResponse) error {
		sb.WriteString(resp.Response)
		return nil
	}

	if err := o.client.Generate(ctx, req, respFunc); err != nil {
		return "", fmt.Errorf("ollama generate: %w", err)
	}

	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}
