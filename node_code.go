package codeflow

import (
	"strings"

	"github.com/randalmurphal/flowgraph/pkg/flowgraph"
)

// GenerateCodeNode produces a self-contained source module from the refined
// requirement. On retry iterations the previous code and review feedback are
// included in the prompt; the node always overwrites state.Code whole, never
// a partial diff.
//
// Prerequisites: state.RefinedRequirement must be set
// Updates: state.Code, state.CodeTokensIn/Out
func GenerateCodeNode(ctx flowgraph.Context, state State) (State, error) {
	if err := state.Validate(RequireRefined); err != nil {
		return state, err
	}

	exec := ExecutorFromContext(ctx)
	if exec == nil {
		return state, ErrNoExecutor
	}

	result, err := exec.Execute(ctx, TemplateCode, map[string]any{
		"refined_requirement":   state.RefinedRequirement,
		"review_feedback_block": feedbackBlock(state),
	})
	if err != nil {
		state.SetError(err)
		return state, err
	}

	state.Code = stripCodeFence(result.Content)
	state.CodeTokensIn = result.Usage.InputTokens
	state.CodeTokensOut = result.Usage.OutputTokens
	state.AddTokens(result.Usage.InputTokens, result.Usage.OutputTokens)

	if artifacts := ArtifactsFromContext(ctx); artifacts != nil {
		_ = artifacts.SaveCode(state.RunID, state.Code)
	}

	state.Phase = PhaseReviewing
	return state, nil
}

// feedbackBlock formats prior review feedback for a retry iteration.
// Empty on iteration 0.
func feedbackBlock(state State) string {
	if state.Iterations == 0 || state.ReviewFeedback == "" {
		return ""
	}

	var b strings.Builder
	b.WriteString("Review Feedback:\n")
	b.WriteString(state.ReviewFeedback)
	b.WriteString("\n\nPrevious Code:\n")
	b.WriteString(state.Code)
	return b.String()
}

// stripCodeFence removes a surrounding markdown code fence, if present.
// Models asked for bare code still wrap it often enough to handle here.
func stripCodeFence(output string) string {
	text := strings.TrimSpace(output)
	if !strings.HasPrefix(text, "```") {
		return text
	}

	lines := strings.Split(text, "\n")
	if len(lines) < 2 {
		return text
	}

	// Drop the opening fence (with optional language tag) and a closing
	// fence if one terminates the block.
	lines = lines[1:]
	for i := len(lines) - 1; i >= 0; i-- {
		if strings.TrimSpace(lines[i]) == "```" {
			lines = lines[:i]
			break
		}
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
