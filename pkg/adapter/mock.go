package adapter

import (
	"context"

	"github.com/minbar-app/minbar/pkg/transcript"
)

// MockGenerator returns scripted responses for local runs and tests.
type MockGenerator struct {
	Response string
	Usage    Usage
	Err      error
	Prompts  []string
}

// Name returns the adapter identifier.
func (m *MockGenerator) Name() string {
	return "mock"
}

// Generate records the prompt and returns the scripted response.
func (m *MockGenerator) Generate(_ context.Context, _ string, prompt string) (*GenerateResult, error) {
	m.Prompts = append(m.Prompts, prompt)
	if m.Err != nil {
		return nil, m.Err
	}
	return &GenerateResult{Text: m.Response, Usage: m.Usage}, nil
}

// MockTranscriber returns a scripted transcription.
type MockTranscriber struct {
	Text         string
	Segments     []transcript.Segment
	AudioSeconds float64
	Err          error
	Calls        int
}

// Name returns the adapter identifier.
func (m *MockTranscriber) Name() string {
	return "mock"
}

// Transcribe returns the scripted transcription.
func (m *MockTranscriber) Transcribe(_ context.Context, _ string, _ TranscribeOptions) (*Transcription, error) {
	m.Calls++
	if m.Err != nil {
		return nil, m.Err
	}
	return &Transcription{
		Text:         m.Text,
		Segments:     append([]transcript.Segment(nil), m.Segments...),
		AudioSeconds: m.AudioSeconds,
	}, nil
}
