package codeflow

import (
	"context"
	"fmt"
	"os"

	llm "github.com/randalmurphal/llmkit/claude"
	"github.com/tmc/langchaingo/llms/googleai"
)

// GoogleClient adapts langchaingo's Gemini client to the llm.Client interface.
type GoogleClient struct {
	client *googleai.GoogleAI
	model  string
}

// NewGoogleClient creates a Gemini-backed client. The API key falls back to
// the GOOGLE_API_KEY environment variable.
func NewGoogleClient(ctx context.Context, cfg ProviderConfig) (*GoogleClient, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("GOOGLE_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("google: missing API key")
	}

	model := cfg.Model
	if model == "" {
		model = defaultGoogleModel
	}

	client, err := googleai.New(ctx,
		googleai.WithAPIKey(apiKey),
		googleai.WithDefaultModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("google: creating client: %w", err)
	}

	return &GoogleClient{client: client, model: model}, nil
}

// Complete sends a completion request.
func (c *GoogleClient) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	resp, err := c.client.GenerateContent(ctx, toLangchainMessages(req))
	if err != nil {
		return nil, fmt.Errorf("google: %w", err)
	}
	return fromLangchainResponse(resp), nil
}

// Model returns the configured model name.
func (c *GoogleClient) Model() string {
	return c.model
}
