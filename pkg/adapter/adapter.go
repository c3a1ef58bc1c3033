// Package adapter wraps the external AI providers behind two small
// interfaces: audio transcription and text generation.
package adapter

import (
	"context"

	"github.com/minbar-app/minbar/pkg/transcript"
)

// Usage captures normalized token usage for a text-generation call.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// GenerateResult is the output of one text-generation call.
type GenerateResult struct {
	Text  string
	Usage Usage
}

// TextGenerator is the interface for LLM provider adapters.
type TextGenerator interface {
	// Generate sends a prompt to the model and returns the response text
	// with token usage.
	Generate(ctx context.Context, model string, prompt string) (*GenerateResult, error)

	// Name returns the adapter's identifier.
	Name() string
}

// Transcription is the output of one speech-to-text call.
type Transcription struct {
	Text         string
	Segments     []transcript.Segment
	AudioSeconds float64
}

// TranscribeOptions configures a transcription call.
type TranscribeOptions struct {
	Language   string
	Timestamps bool
}

// Transcriber is the interface for speech-to-text providers.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string, opts TranscribeOptions) (*Transcription, error)
	Name() string
}
