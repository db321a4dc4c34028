// Package testutil provides helpers for testing workflow code: a scripted
// LLM client that answers each agent role with canned output, and small
// context and fixture utilities.
package testutil

import (
	"context"
	"encoding/json"
	"strings"

	llm "github.com/randalmurphal/llmkit/claude"
)

// Token counts reported by every scripted completion.
const (
	ScriptTokensIn  = 100
	ScriptTokensOut = 50
)

// Default outputs used when a Script field is left empty.
const (
	DefaultAnalysis = `Purpose
A small utility program.

Operations
- run

Inputs
Command-line arguments.

Outputs
Text on stdout.

Error Handling
Invalid input prints a usage message.

Assumptions
Single user.

Non-goals
No persistence.`

	DefaultCode = `def main():
    print("hello")


if __name__ == "__main__":
    main()
`

	DefaultDocs = "# Utility\n\nA small utility program.\n"

	DefaultTests = "def test_main():\n    main()\n"
)

// Script holds canned agent outputs for a scripted workflow client. Zero
// values fall back to sensible defaults, so tests only set the fields they
// assert on.
type Script struct {
	Analysis string
	Code     string

	// Revisions are returned, in order, for prompts that carry review
	// feedback. When exhausted the last one repeats; when empty, Code is
	// reused.
	Revisions []string

	// Rejections holds reviewer feedback returned before the reviewer
	// approves. len(Rejections) review calls are rejected, every later one
	// approved.
	Rejections []string

	Docs       string
	Tests      string
	Deployment string

	// Err, when set, fails every completion.
	Err error
}

// NewScriptedClient builds a mock client that dispatches on the agent role
// named in each rendered prompt. Review calls are counted so tests can drive
// the reject/approve loop deterministically.
func NewScriptedClient(script Script) *llm.MockClient {
	reviews := 0
	revisions := 0

	return llm.NewMockClient("").WithCompleteFunc(func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
		if script.Err != nil {
			return nil, script.Err
		}

		text := req.Messages[len(req.Messages)-1].Content
		var content string
		switch {
		case strings.Contains(text, "Code Review Agent"):
			reviews++
			if reviews <= len(script.Rejections) {
				content = rejectionJSON(script.Rejections[reviews-1])
			} else {
				content = `{"approved": true, "feedback": ""}`
			}
		case strings.Contains(text, "Deployment Configuration Agent"):
			content = orDefault(script.Deployment, `{"requirements": "", "run_script": "#!/bin/sh\npython app.py"}`)
		case strings.Contains(text, "Test Case Generation Agent"):
			content = orDefault(script.Tests, DefaultTests)
		case strings.Contains(text, "Documentation Agent"):
			content = orDefault(script.Docs, DefaultDocs)
		case strings.Contains(text, "Review Feedback:"):
			content = revision(script, revisions)
			revisions++
		case strings.Contains(text, "Coding Agent"):
			content = orDefault(script.Code, DefaultCode)
		default:
			content = orDefault(script.Analysis, DefaultAnalysis)
		}

		resp := &llm.CompletionResponse{Content: content}
		resp.Usage.InputTokens = ScriptTokensIn
		resp.Usage.OutputTokens = ScriptTokensOut
		return resp, nil
	})
}

// ApprovedClient returns a client whose reviewer approves the first
// submission.
func ApprovedClient() *llm.MockClient {
	return NewScriptedClient(Script{})
}

// RejectingClient returns a client whose reviewer rejects every submission
// with the given feedback. Runs against it always exhaust the iteration
// bound.
func RejectingClient(feedback string) *llm.MockClient {
	return llm.NewMockClient("").WithCompleteFunc(func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
		text := req.Messages[len(req.Messages)-1].Content
		var content string
		switch {
		case strings.Contains(text, "Code Review Agent"):
			content = rejectionJSON(feedback)
		case strings.Contains(text, "Deployment Configuration Agent"):
			content = `{"requirements": "", "run_script": "#!/bin/sh\npython app.py"}`
		case strings.Contains(text, "Test Case Generation Agent"):
			content = DefaultTests
		case strings.Contains(text, "Documentation Agent"):
			content = DefaultDocs
		case strings.Contains(text, "Review Feedback:"):
			content = DefaultCode
		case strings.Contains(text, "Coding Agent"):
			content = DefaultCode
		default:
			content = DefaultAnalysis
		}
		resp := &llm.CompletionResponse{Content: content}
		resp.Usage.InputTokens = ScriptTokensIn
		resp.Usage.OutputTokens = ScriptTokensOut
		return resp, nil
	})
}

func revision(script Script, n int) string {
	if len(script.Revisions) == 0 {
		return orDefault(script.Code, DefaultCode)
	}
	if n >= len(script.Revisions) {
		n = len(script.Revisions) - 1
	}
	return script.Revisions[n]
}

func rejectionJSON(feedback string) string {
	out, _ := json.Marshal(map[string]any{
		"approved": false,
		"feedback": feedback,
	})
	return string(out)
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
