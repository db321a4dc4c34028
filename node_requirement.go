package codeflow

import (
	"fmt"
	"strings"
	"time"

	"github.com/randalmurphal/codeflow/event"
	"github.com/randalmurphal/flowgraph/pkg/flowgraph"
)

// requirementSections are the section headings the analysis prompt asks for.
// Their absence is surfaced as a warning, never a failure: the model output
// is trusted, checked lightly.
var requirementSections = []string{
	"Purpose",
	"Operations",
	"Inputs",
	"Outputs",
	"Error Handling",
	"Assumptions",
	"Non-goals",
}

// AnalyzeRequirementNode refines the raw user requirement into a structured,
// implementation-ready requirement. Runs exactly once per workflow.
//
// Prerequisites: state.RawRequirement must be set
// Updates: state.RefinedRequirement, state.AnalyzedAt, state.MissingSections
func AnalyzeRequirementNode(ctx flowgraph.Context, state State) (State, error) {
	if err := state.Validate(RequireRaw); err != nil {
		return state, err
	}

	exec := ExecutorFromContext(ctx)
	if exec == nil {
		return state, ErrNoExecutor
	}

	result, err := exec.Execute(ctx, TemplateAnalyze, map[string]any{
		"user_input": state.RawRequirement,
	})
	if err != nil {
		state.SetError(err)
		return state, err
	}

	state.RefinedRequirement = strings.TrimSpace(result.Content)
	state.AnalyzedAt = time.Now()
	state.AddTokens(result.Usage.InputTokens, result.Usage.OutputTokens)

	if missing := missingSections(state.RefinedRequirement); len(missing) > 0 {
		state.MissingSections = missing
		event.Emit(ctx, event.Event{
			Type:     event.NodeCompleted,
			RunID:    state.RunID,
			FlowID:   state.FlowID,
			NodeID:   NodeIDAnalyze,
			Message:  fmt.Sprintf("refined requirement missing sections: %s", strings.Join(missing, ", ")),
			Severity: event.SeverityWarning,
		})
	}

	if artifacts := ArtifactsFromContext(ctx); artifacts != nil {
		_ = artifacts.SaveRequirement(state.RunID, state.RefinedRequirement)
	}

	state.Phase = PhaseCoding
	return state, nil
}

// missingSections reports which expected requirement sections are absent
// from the refined text. Matching is case-insensitive.
func missingSections(text string) []string {
	lower := strings.ToLower(text)
	var missing []string
	for _, section := range requirementSections {
		if !strings.Contains(lower, strings.ToLower(section)) {
			missing = append(missing, section)
		}
	}
	return missing
}
