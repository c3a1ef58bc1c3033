package adapter

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

// GoogleGenerator implements TextGenerator for Gemini models.
type GoogleGenerator struct {
	client *genai.Client
}

// NewGoogleGenerator creates a new Google Gemini adapter.
func NewGoogleGenerator(apiKey string) (*GoogleGenerator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("google API key is required")
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create google client: %w", err)
	}

	return &GoogleGenerator{client: client}, nil
}

// Name returns the adapter identifier.
func (g *GoogleGenerator) Name() string {
	return "google"
}

// Generate sends a prompt to Gemini and returns the response text.
func (g *GoogleGenerator) Generate(ctx context.Context, model string, prompt string) (*GenerateResult, error) {
	resp, err := g.client.Models.GenerateContent(ctx, model, genai.Text(prompt), nil)
	if err != nil {
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			return nil, &ProviderError{Status: apiErr.Code, Detail: apiErr.Message, Err: err}
		}
		return nil, fmt.Errorf("google API error: %w", err)
	}

	if resp == nil || len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("google returned no candidates")
	}

	var content string
	if resp.Candidates[0].Content != nil {
		for _, part := range resp.Candidates[0].Content.Parts {
			if part.Text != "" {
				content += part.Text
			}
		}
	}

	result := &GenerateResult{Text: content}
	if resp.UsageMetadata != nil {
		result.Usage = Usage{
			InputTokens:  int(resp.UsageMetadata.PromptTokenCount),
			OutputTokens: int(resp.UsageMetadata.CandidatesTokenCount),
		}
	}
	return result, nil
}
