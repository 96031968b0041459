// Package transcribe converts meeting recordings to text.
package transcribe

import (
	"context"
	"errors"
)

var (
	// ErrUnsupportedAudio is returned for WAV files that are not 16-bit mono PCM.
	ErrUnsupportedAudio = errors.New("audio must be mono PCM WAV format")

	// ErrEmptyAudio is returned for recordings with no samples.
	ErrEmptyAudio = errors.New("audio contains no samples")

	// ErrEmptyTranscript is returned when recognition produced no text.
	ErrEmptyTranscript = errors.New("transcript is empty")
)

// Transcriber turns an audio file into text.
type Transcriber interface {
	Transcribe(ctx context.Context, path string) (string, error)
}

// Func adapts a function to Transcriber.
type Func func(ctx context.Context, path string) (string, error)

// Transcribe calls f.
func (f Func) Transcribe(ctx context.Context, path string) (string, error) {
	return f(ctx, path)
}
