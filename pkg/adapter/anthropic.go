package adapter

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicGenerator implements TextGenerator for Claude models.
type AnthropicGenerator struct {
	client anthropic.Client
}

// NewAnthropicGenerator creates a new Anthropic adapter.
func NewAnthropicGenerator(apiKey string) (*AnthropicGenerator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic API key is required")
	}

	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &AnthropicGenerator{client: client}, nil
}

// Name returns the adapter identifier.
func (a *AnthropicGenerator) Name() string {
	return "anthropic"
}

// Generate sends a prompt to Claude and returns the response text.
func (a *AnthropicGenerator) Generate(ctx context.Context, model string, prompt string) (*GenerateResult, error) {
	resp, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: 8192,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("anthropic API error: %w", err)
	}

	var content string
	for _, block := range resp.Content {
		if block.Type == "text" {
			content += block.Text
		}
	}

	return &GenerateResult{
		Text: content,
		Usage: Usage{
			InputTokens:  int(resp.Usage.InputTokens),
			OutputTokens: int(resp.Usage.OutputTokens),
		},
	}, nil
}
