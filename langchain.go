package codeflow

import (
	llm "github.com/randalmurphal/llmkit/claude"
	"github.com/tmc/langchaingo/llms"
)

// toLangchainMessages converts a completion request to langchaingo message
// content. The system prompt, when present, becomes a leading system message.
func toLangchainMessages(req llm.CompletionRequest) []llms.MessageContent {
	result := make([]llms.MessageContent, 0, len(req.Messages)+1)

	if req.SystemPrompt != "" {
		result = append(result, llms.MessageContent{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(req.SystemPrompt)},
		})
	}

	for _, msg := range req.Messages {
		var role llms.ChatMessageType
		switch msg.Role {
		case llm.RoleSystem:
			role = llms.ChatMessageTypeSystem
		case llm.RoleAssistant:
			role = llms.ChatMessageTypeAI
		default:
			role = llms.ChatMessageTypeHuman
		}
		result = append(result, llms.MessageContent{
			Role:  role,
			Parts: []llms.ContentPart{llms.TextPart(msg.Content)},
		})
	}

	return result
}

// fromLangchainResponse converts a langchaingo response to the client
// response type, pulling token usage out of the generation info when the
// provider reports it.
func fromLangchainResponse(resp *llms.ContentResponse) *llm.CompletionResponse {
	out := &llm.CompletionResponse{}
	if resp == nil || len(resp.Choices) == 0 {
		return out
	}

	choice := resp.Choices[0]
	out.Content = choice.Content

	if info := choice.GenerationInfo; info != nil {
		out.Usage.InputTokens = intFromInfo(info, "PromptTokens", "input_tokens", "prompt_tokens")
		out.Usage.OutputTokens = intFromInfo(info, "CompletionTokens", "output_tokens", "completion_tokens")
	}

	return out
}

// intFromInfo reads the first matching key from generation info. Providers
// disagree on both key names and numeric types.
func intFromInfo(info map[string]any, keys ...string) int {
	for _, key := range keys {
		switch v := info[key].(type) {
		case int:
			return v
		case int32:
			return int(v)
		case int64:
			return int(v)
		case float64:
			return int(v)
		}
	}
	return 0
}
