package codeflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/randalmurphal/codeflow/event"
	"github.com/randalmurphal/codeflow/transcript"
	"github.com/randalmurphal/flowgraph/pkg/flowgraph"
)

// Node identifiers. These double as edge targets for the review router.
const (
	NodeIDAnalyze   = "analyze-requirement"
	NodeIDCode      = "generate-code"
	NodeIDReview    = "review-code"
	NodeIDArtifacts = "artifacts"
)

// Run executes the full workflow for a raw requirement:
//
//	analyze-requirement -> generate-code -> review-code
//	                            ^               |
//	                            +--- revise ----+--> artifacts -> END
//
// The review router sends rejected code back to generate-code until the
// iteration bound is hit, after which artifacts run in degraded mode. The
// returned state is always the best available document, including on error.
//
// The context must carry an Executor (see WithExecutor); an artifact manager
// and event notifier are optional.
func Run(ctx context.Context, raw string, cfg Config) (State, error) {
	cfg = cfg.withDefaults()

	if strings.TrimSpace(raw) == "" {
		return State{}, ErrEmptyRequirement
	}

	state := NewState(cfg.FlowID).WithRequirement(raw)

	ts := TranscriptsFromContext(ctx)
	if ts != nil {
		if err := ts.StartRun(state.RunID, state.FlowID); err != nil {
			return state, fmt.Errorf("starting transcript: %w", err)
		}
		ctx = withRunID(ctx, state.RunID)
	}

	wrap := func(node NodeFunc, nodeID string) flowgraph.NodeFunc[State] {
		return flowgraph.NodeFunc[State](WithEvents(WithTiming(WithRetry(node, cfg.RetryAttempts, cfg.RetryBackoff)), nodeID))
	}

	graph := flowgraph.NewGraph[State]().
		AddNode(NodeIDAnalyze, wrap(AnalyzeRequirementNode, NodeIDAnalyze)).
		AddNode(NodeIDCode, wrap(GenerateCodeNode, NodeIDCode)).
		AddNode(NodeIDReview, wrap(NewReviewNode(cfg), NodeIDReview)).
		// The artifacts node retries its fan-out jobs individually.
		AddNode(NodeIDArtifacts, flowgraph.NodeFunc[State](WithEvents(WithTiming(NewArtifactsNode(cfg)), NodeIDArtifacts))).
		AddEdge(NodeIDAnalyze, NodeIDCode).
		AddEdge(NodeIDCode, NodeIDReview).
		AddConditionalEdge(NodeIDReview, ReviewRouter(cfg)).
		AddEdge(NodeIDArtifacts, flowgraph.END).
		SetEntry(NodeIDAnalyze)

	compiled, err := graph.Compile()
	if err != nil {
		return state, fmt.Errorf("compiling workflow graph: %w", err)
	}

	event.Emit(ctx, event.Event{
		Type:    event.RunStarted,
		RunID:   state.RunID,
		FlowID:  state.FlowID,
		Message: fmt.Sprintf("run %s started", state.RunID),
	})

	result, err := compiled.Run(flowgraph.NewContext(ctx), state)
	if err != nil {
		// Keep whatever the graph produced before failing.
		if result.RunID == "" {
			result = state
		}
		result.SetError(err)
		result.FinalizeDuration()
		if ts != nil {
			_ = ts.EndRunWithError(result.RunID, err)
		}
		event.Emit(ctx, event.Event{
			Type:     event.RunFailed,
			RunID:    result.RunID,
			FlowID:   result.FlowID,
			Message:  fmt.Sprintf("run %s failed: %v", result.RunID, err),
			Severity: event.SeverityError,
		})
		return result, err
	}

	result.FinalizeDuration()
	if ts != nil {
		_ = ts.EndRun(result.RunID, transcript.RunStatusCompleted)
	}
	event.Emit(ctx, event.Event{
		Type:    event.RunCompleted,
		RunID:   result.RunID,
		FlowID:  result.FlowID,
		Message: result.Summary(),
	})
	return result, nil
}
