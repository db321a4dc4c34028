package codeflow

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/randalmurphal/codeflow/event"
	"github.com/randalmurphal/flowgraph/pkg/flowgraph"
)

// reviewVerdict is the constrained response schema the review prompt asks
// for. The loop transition depends on this parse, never on prose.
type reviewVerdict struct {
	Approved bool   `json:"approved"`
	Feedback string `json:"feedback"`
}

// NewReviewNode returns the review node for the given config. It is the sole
// decision point of the loop: it sets the verdict and drives the phase
// machine.
//
// Transitions out of reviewing:
//   - approved                                      -> PhaseApproved
//   - needs_revision, iterations < MaxIterations    -> PhaseCoding
//   - needs_revision, iterations >= MaxIterations   -> PhaseMaxIterations
//
// Prerequisites: state.RefinedRequirement and state.Code must be set
// Updates: state.Verdict, state.ReviewFeedback, state.Iterations, state.Phase
func NewReviewNode(cfg Config) NodeFunc {
	cfg = cfg.withDefaults()

	return func(ctx flowgraph.Context, state State) (State, error) {
		if err := state.Validate(RequireRefined, RequireCode); err != nil {
			return state, err
		}

		exec := ExecutorFromContext(ctx)
		if exec == nil {
			return state, ErrNoExecutor
		}

		// One coding->review cycle completes here.
		state.Iterations++

		result, err := exec.Execute(ctx, TemplateReview, map[string]any{
			"refined_requirement": state.RefinedRequirement,
			"code":                state.Code,
		})
		if err != nil {
			state.SetError(err)
			return state, err
		}

		verdict, parseErr := parseVerdict(result.Content)
		if parseErr != nil {
			// An unparseable verdict is treated as a rejection carrying the
			// whole response as feedback, so the loop stays bounded instead
			// of guessing at approval.
			verdict = &reviewVerdict{Approved: false, Feedback: strings.TrimSpace(result.Content)}
		}

		state.AddTokens(result.Usage.InputTokens, result.Usage.OutputTokens)

		if artifacts := ArtifactsFromContext(ctx); artifacts != nil {
			if data, err := json.Marshal(verdict); err == nil {
				_ = artifacts.SaveReview(state.RunID, string(data))
			}
		}

		if verdict.Approved {
			state.Verdict = VerdictApproved
			state.ReviewFeedback = ""
			state.Phase = PhaseApproved
			event.Emit(ctx, event.Event{
				Type:    event.ReviewApproved,
				RunID:   state.RunID,
				FlowID:  state.FlowID,
				NodeID:  NodeIDReview,
				Message: fmt.Sprintf("code approved after %d iteration(s)", state.Iterations),
			})
			return state, nil
		}

		state.Verdict = VerdictNeedsRevision
		state.ReviewFeedback = verdict.Feedback
		if state.ReviewFeedback == "" {
			state.ReviewFeedback = "code rejected without specific feedback; re-check the requirement"
		}

		if state.Iterations >= cfg.MaxIterations {
			state.Phase = PhaseMaxIterations
			event.Emit(ctx, event.Event{
				Type:     event.RunDegraded,
				RunID:    state.RunID,
				FlowID:   state.FlowID,
				NodeID:   NodeIDReview,
				Message:  fmt.Sprintf("review loop exhausted after %d iterations", state.Iterations),
				Severity: event.SeverityWarning,
			})
			return state, nil
		}

		state.Phase = PhaseCoding
		event.Emit(ctx, event.Event{
			Type:     event.ReviewRejected,
			RunID:    state.RunID,
			FlowID:   state.FlowID,
			NodeID:   NodeIDReview,
			Message:  fmt.Sprintf("issues found (iteration %d of %d), retrying coding", state.Iterations, cfg.MaxIterations),
			Severity: event.SeverityWarning,
		})
		return state, nil
	}
}

// ReviewRouter returns the conditional-edge router for the review node.
// It only reads the phase the review node already decided.
func ReviewRouter(cfg Config) func(ctx flowgraph.Context, state State) string {
	return func(ctx flowgraph.Context, state State) string {
		switch state.Phase {
		case PhaseCoding:
			return NodeIDCode
		case PhaseApproved, PhaseMaxIterations:
			return NodeIDArtifacts
		default:
			return flowgraph.END
		}
	}
}

// parseVerdict extracts the constrained review verdict from model output.
// Accepts a JSON object, optionally inside a code fence, with a plain
// "VERDICT: APPROVED|NEEDS_REVISION" line as fallback.
func parseVerdict(output string) (*reviewVerdict, error) {
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

	if strings.HasPrefix(text, "{") {
		var verdict reviewVerdict
		if err := json.Unmarshal([]byte(text), &verdict); err == nil {
			return &verdict, nil
		}
	}

	// Token fallback: first line carries the verdict, rest is feedback.
	line, rest, _ := strings.Cut(text, "\n")
	if v, ok := strings.CutPrefix(strings.ToUpper(strings.TrimSpace(line)), "VERDICT:"); ok {
		switch strings.TrimSpace(v) {
		case "APPROVED", "APPROVE":
			return &reviewVerdict{Approved: true}, nil
		case "NEEDS_REVISION", "REQUEST_CHANGES":
			return &reviewVerdict{Approved: false, Feedback: strings.TrimSpace(rest)}, nil
		}
	}

	return nil, fmt.Errorf("unparseable review verdict")
}
