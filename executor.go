package codeflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/randalmurphal/codeflow/prompt"
	"github.com/randalmurphal/codeflow/transcript"
	llm "github.com/randalmurphal/llmkit/claude"
)

// Prompt template IDs. Each maps to a template file in the prompt loader.
const (
	TemplateAnalyze = "analyze-requirement"
	TemplateCode    = "generate-code"
	TemplateReview  = "review-code"
	TemplateDocs    = "write-docs"
	TemplateTests   = "generate-tests"
	TemplateDeploy  = "deployment-config"
)

// templateVars lists the context keys each template requires. Execute fails
// with a MissingContextError if any is absent or empty.
var templateVars = map[string][]string{
	TemplateAnalyze: {"user_input"},
	TemplateCode:    {"refined_requirement"},
	TemplateReview:  {"refined_requirement", "code"},
	TemplateDocs:    {"refined_requirement", "code"},
	TemplateTests:   {"refined_requirement", "code"},
	TemplateDeploy:  {"refined_requirement", "code"},
}

// DefaultCallTimeout bounds a single model call.
const DefaultCallTimeout = 2 * time.Minute

// Executor renders a named prompt template and issues exactly one model call.
// It enforces required context keys, wraps the call in a caller-visible
// timeout, and classifies network failures as transient. It never retries;
// retry policy belongs to the caller.
type Executor struct {
	client  llm.Client
	clients map[string]llm.Client // per-template overrides
	prompts *prompt.Loader
	timeout time.Duration
}

// NewExecutor creates a prompt executor backed by the given default client.
// A zero timeout uses DefaultCallTimeout.
func NewExecutor(client llm.Client, prompts *prompt.Loader, timeout time.Duration) *Executor {
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	return &Executor{
		client:  client,
		clients: make(map[string]llm.Client),
		prompts: prompts,
		timeout: timeout,
	}
}

// WithClientFor routes calls for one template to a specific client, so
// individual nodes can use different models or providers.
func (e *Executor) WithClientFor(templateID string, client llm.Client) *Executor {
	e.clients[templateID] = client
	return e
}

// clientFor returns the client for a template, falling back to the default.
func (e *Executor) clientFor(templateID string) llm.Client {
	if c, ok := e.clients[templateID]; ok && c != nil {
		return c
	}
	return e.client
}

// Execute renders templateID with vars and sends the result as a single user
// message. The response is returned raw; structural parsing is the caller's
// responsibility.
func (e *Executor) Execute(ctx context.Context, templateID string, vars map[string]any) (*llm.CompletionResponse, error) {
	if err := checkVars(templateID, vars); err != nil {
		return nil, err
	}

	text, err := e.prompts.Render(templateID, vars)
	if err != nil {
		return nil, fmt.Errorf("prompt %s: %w", templateID, err)
	}

	client := e.clientFor(templateID)
	if client == nil {
		return nil, fmt.Errorf("prompt %s: no llm client configured", templateID)
	}

	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	start := time.Now()
	result, err := client.Complete(callCtx, llm.CompletionRequest{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: text}},
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || IsTransient(err) {
			return nil, &TransientError{Node: templateID, Err: err}
		}
		return nil, fmt.Errorf("prompt %s: %w", templateID, err)
	}

	if ts := TranscriptsFromContext(ctx); ts != nil {
		if runID := runIDFromContext(ctx); runID != "" {
			_ = ts.RecordCall(runID, transcript.Call{
				Node:      templateID,
				Prompt:    text,
				Response:  result.Content,
				TokensIn:  result.Usage.InputTokens,
				TokensOut: result.Usage.OutputTokens,
				Duration:  time.Since(start),
			})
		}
	}

	return result, nil
}

// checkVars verifies the required context keys for a template are present
// and non-empty. Keys a template marks optional are simply not listed.
func checkVars(templateID string, vars map[string]any) error {
	for _, key := range templateVars[templateID] {
		v, ok := vars[key]
		if !ok {
			return &MissingContextError{Template: templateID, Key: key}
		}
		if s, isStr := v.(string); isStr && s == "" {
			return &MissingContextError{Template: templateID, Key: key}
		}
	}
	return nil
}
