package codeflow

import (
	"context"
	"fmt"
	"os"

	llm "github.com/randalmurphal/llmkit/claude"
	"github.com/tmc/langchaingo/llms/openai"
)

// OpenAIClient adapts langchaingo's OpenAI client to the llm.Client interface
// the executor expects. It also works against OpenAI-compatible endpoints via
// ProviderConfig.BaseURL.
type OpenAIClient struct {
	client *openai.LLM
	model  string
}

// NewOpenAIClient creates an OpenAI-backed client. The API key falls back to
// the OPENAI_API_KEY environment variable.
func NewOpenAIClient(cfg ProviderConfig) (*OpenAIClient, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("openai: missing API key")
	}

	model := cfg.Model
	if model == "" {
		model = defaultOpenAIModel
	}

	opts := []openai.Option{
		openai.WithToken(apiKey),
		openai.WithModel(model),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}

	client, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("openai: creating client: %w", err)
	}

	return &OpenAIClient{client: client, model: model}, nil
}

// Complete sends a completion request.
func (c *OpenAIClient) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	resp, err := c.client.GenerateContent(ctx, toLangchainMessages(req))
	if err != nil {
		return nil, fmt.Errorf("openai: %w", err)
	}
	return fromLangchainResponse(resp), nil
}

// Model returns the configured model name.
func (c *OpenAIClient) Model() string {
	return c.model
}
