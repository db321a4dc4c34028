package codeflow

import (
	"context"
	"fmt"

	llm "github.com/randalmurphal/llmkit/claude"
	"github.com/randalmurphal/llmkit/model"
)

// Provider names accepted by NewClient.
const (
	ProviderOpenAI = "openai"
	ProviderGoogle = "google"
)

const (
	defaultOpenAIModel = "gpt-5-mini"
	defaultGoogleModel = "gemini-2.5-flash"
)

// ProviderConfig configures a provider-backed LLM client.
type ProviderConfig struct {
	APIKey  string
	Model   string
	BaseURL string // OpenAI-compatible endpoints only
}

// NewClient creates an llm.Client for the named provider.
func NewClient(ctx context.Context, provider string, cfg ProviderConfig) (llm.Client, error) {
	switch provider {
	case ProviderOpenAI, "":
		return NewOpenAIClient(cfg)
	case ProviderGoogle:
		return NewGoogleClient(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown provider %q", provider)
	}
}

// DefaultModelForTier maps a model tier to the provider's default model for
// that tier. Analysis and review run on the thinking tier, coding on the
// default tier, and artifact generation on the fast tier.
func DefaultModelForTier(provider string, tier model.Tier) string {
	switch provider {
	case ProviderGoogle:
		switch tier {
		case model.TierThinking:
			return "gemini-2.5-pro"
		case model.TierFast:
			return "gemini-2.5-flash-lite"
		default:
			return "gemini-2.5-flash"
		}
	default:
		switch tier {
		case model.TierThinking:
			return "gpt-5"
		case model.TierFast:
			return "gpt-5-nano"
		default:
			return "gpt-5-mini"
		}
	}
}
