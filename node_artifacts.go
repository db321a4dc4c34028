package codeflow

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/randalmurphal/codeflow/event"
	"github.com/randalmurphal/flowgraph/pkg/flowgraph"
	"golang.org/x/sync/errgroup"
)

// Artifact names used in error reporting and snapshots.
const (
	artifactDocs   = "documentation"
	artifactTests  = "tests"
	artifactDeploy = "deployment"
)

// WriteDocsNode generates Markdown documentation for the final code.
//
// Prerequisites: state.RefinedRequirement, state.Code
// Updates: state.Documentation
func WriteDocsNode(ctx flowgraph.Context, state State) (State, error) {
	if err := state.Validate(RequireRefined, RequireCode); err != nil {
		return state, err
	}

	exec := ExecutorFromContext(ctx)
	if exec == nil {
		return state, ErrNoExecutor
	}

	result, err := exec.Execute(ctx, TemplateDocs, map[string]any{
		"refined_requirement": state.RefinedRequirement,
		"code":                state.Code,
	})
	if err != nil {
		return state, err
	}

	state.Documentation = strings.TrimSpace(result.Content)
	state.AddTokens(result.Usage.InputTokens, result.Usage.OutputTokens)

	if artifacts := ArtifactsFromContext(ctx); artifacts != nil {
		_ = artifacts.SaveDocumentation(state.RunID, state.Documentation)
	}

	return state, nil
}

// GenerateTestsNode generates a test file for the final code.
//
// Prerequisites: state.RefinedRequirement, state.Code
// Updates: state.Tests
func GenerateTestsNode(ctx flowgraph.Context, state State) (State, error) {
	if err := state.Validate(RequireRefined, RequireCode); err != nil {
		return state, err
	}

	exec := ExecutorFromContext(ctx)
	if exec == nil {
		return state, ErrNoExecutor
	}

	result, err := exec.Execute(ctx, TemplateTests, map[string]any{
		"refined_requirement": state.RefinedRequirement,
		"code":                state.Code,
	})
	if err != nil {
		return state, err
	}

	state.Tests = stripCodeFence(result.Content)
	state.AddTokens(result.Usage.InputTokens, result.Usage.OutputTokens)

	if artifacts := ArtifactsFromContext(ctx); artifacts != nil {
		_ = artifacts.SaveTests(state.RunID, state.Tests)
	}

	return state, nil
}

// DeploymentNode generates the structured deployment artifact: a dependency
// list and a run script, parsed from constrained JSON output.
//
// Prerequisites: state.RefinedRequirement, state.Code
// Updates: state.Deployment
func DeploymentNode(ctx flowgraph.Context, state State) (State, error) {
	if err := state.Validate(RequireRefined, RequireCode); err != nil {
		return state, err
	}

	exec := ExecutorFromContext(ctx)
	if exec == nil {
		return state, ErrNoExecutor
	}

	result, err := exec.Execute(ctx, TemplateDeploy, map[string]any{
		"refined_requirement": state.RefinedRequirement,
		"code":                state.Code,
	})
	if err != nil {
		return state, err
	}

	deploy, err := parseDeployment(result.Content)
	if err != nil {
		return state, err
	}

	state.Deployment = deploy
	state.AddTokens(result.Usage.InputTokens, result.Usage.OutputTokens)

	if artifacts := ArtifactsFromContext(ctx); artifacts != nil {
		_ = artifacts.SaveDeployment(state.RunID, deploy.Requirements, deploy.RunScript)
	}

	return state, nil
}

// parseDeployment extracts the deployment config from model output.
func parseDeployment(output string) (*DeploymentConfig, error) {
	text := strings.TrimSpace(output)

	if start := strings.Index(text, "```json"); start != -1 {
		start += 7
		if end := strings.Index(text[start:], "```"); end != -1 {
			text = strings.TrimSpace(text[start : start+end])
		}
	} else if start := strings.Index(text, "```"); start != -1 {
		start += 3
		if end := strings.Index(text[start:], "```"); end != -1 {
			text = strings.TrimSpace(text[start : start+end])
		}
	}

	var raw struct {
		Requirements string `json:"requirements"`
		RunScript    string `json:"run_script"`
	}
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nil, fmt.Errorf("unparseable deployment config: %w", err)
	}

	return &DeploymentConfig{
		Requirements: strings.TrimSpace(raw.Requirements),
		RunScript:    strings.TrimSpace(raw.RunScript),
	}, nil
}

// NewArtifactsNode returns the fan-out node that runs documentation, test,
// and deployment generation concurrently once the loop has exited. The three
// read the same finalized document and write disjoint fields, so no ordering
// is needed; a failure in one is recorded per artifact and never blocks the
// siblings.
//
// When the loop exited via PhaseMaxIterations, artifacts are still produced
// against the best-so-far code, marked degraded, with a warning surfaced.
func NewArtifactsNode(cfg Config) NodeFunc {
	cfg = cfg.withDefaults()

	return func(ctx flowgraph.Context, state State) (State, error) {
		if err := state.Validate(RequireRefined, RequireCode); err != nil {
			return state, err
		}

		if state.Phase == PhaseMaxIterations {
			state.Degraded = true
			event.Emit(ctx, event.Event{
				Type:     event.RunDegraded,
				RunID:    state.RunID,
				FlowID:   state.FlowID,
				NodeID:   NodeIDArtifacts,
				Message:  "generating artifacts against best-so-far code",
				Severity: event.SeverityWarning,
			})
		}

		type artifactJob struct {
			name string
			fn   NodeFunc
			// merge copies the job's disjoint field into the canonical state.
			merge func(dst *State, src State)
		}

		jobs := []artifactJob{
			{artifactDocs, WriteDocsNode, func(dst *State, src State) { dst.Documentation = src.Documentation }},
			{artifactTests, GenerateTestsNode, func(dst *State, src State) { dst.Tests = src.Tests }},
			{artifactDeploy, DeploymentNode, func(dst *State, src State) { dst.Deployment = src.Deployment }},
		}

		base := state
		var mu sync.Mutex
		g := new(errgroup.Group)

		for _, job := range jobs {
			job := job
			fn := WithRetry(job.fn, cfg.RetryAttempts, cfg.RetryBackoff)
			g.Go(func() error {
				result, err := fn(ctx, base)

				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					if state.ArtifactErrors == nil {
						state.ArtifactErrors = make(map[string]string)
					}
					artErr := &ArtifactError{Artifact: job.name, Err: err}
					state.ArtifactErrors[job.name] = artErr.Error()
					event.Emit(ctx, event.Event{
						Type:     event.NodeFailed,
						RunID:    state.RunID,
						FlowID:   state.FlowID,
						NodeID:   NodeIDArtifacts,
						Message:  artErr.Error(),
						Severity: event.SeverityError,
					})
					// Per-artifact failures never abort the siblings.
					return nil
				}
				job.merge(&state, result)
				state.AddTokens(result.TotalTokensIn-base.TotalTokensIn, result.TotalTokensOut-base.TotalTokensOut)
				return nil
			})
		}

		_ = g.Wait()

		if state.Phase == PhaseApproved {
			state.Phase = PhaseDone
		}
		return state, nil
	}
}
