package transcribe

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// WhisperConfig configures the OpenAI transcription backend.
type WhisperConfig struct {
	APIKey  string
	BaseURL string

	// Model defaults to whisper-1.
	Model string
}

// Whisper transcribes audio with OpenAI's transcription endpoint.
type Whisper struct {
	client openai.Client
	model  openai.AudioModel
	log    *log.Logger
}

// NewWhisper creates a Whisper transcriber.
func NewWhisper(cfg WhisperConfig) (*Whisper, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai api key is required")
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	model := openai.AudioModelWhisper1
	if cfg.Model != "" {
		model = openai.AudioModel(cfg.Model)
	}

	return &Whisper{
		client: openai.NewClient(opts...),
		model:  model,
		log:    log.Default().WithPrefix("transcribe"),
	}, nil
}

// Transcribe uploads the file at path and returns the recognized text.
// WAV files are checked locally first.
func (w *Whisper) Transcribe(ctx context.Context, path string) (string, error) {
	if strings.EqualFold(filepath.Ext(path), ".wav") {
		if _, err := ValidateWAV(path); err != nil {
			return "", err
		}
	}

	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open audio: %w", err)
	}
	defer f.Close()

	w.log.Debug("transcribing", "path", path, "model", w.model)
	tr, err := w.client.Audio.Transcriptions.New(ctx, openai.AudioTranscriptionNewParams{
		Model: w.model,
		File:  f,
	})
	if err != nil {
		return "", fmt.Errorf("transcription request: %w", err)
	}

	text := strings.TrimSpace(tr.Text)
	if text == "" {
		return "", ErrEmptyTranscript
	}
	return text, nil
}
