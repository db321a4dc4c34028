package codeflow

import (
	"context"
	"testing"
	"time"

	"github.com/randalmurphal/codeflow/artifact"
	"github.com/randalmurphal/codeflow/testutil"
	"github.com/randalmurphal/flowgraph/pkg/flowgraph"
	llm "github.com/randalmurphal/llmkit/claude"
)

// nodeContext builds a flowgraph context carrying an executor backed by the
// given client.
func nodeContext(t *testing.T, client llm.Client) flowgraph.Context {
	t.Helper()

	exec := NewExecutor(client, testLoader(t), time.Second)
	return flowgraph.NewContext(WithExecutor(context.Background(), exec))
}

func TestAnalyzeRequirementNode(t *testing.T) {
	ctx := nodeContext(t, testutil.ApprovedClient())
	state := NewState("test").WithRequirement("build a url shortener")

	result, err := AnalyzeRequirementNode(ctx, state)
	if err != nil {
		t.Fatalf("node failed: %v", err)
	}

	if result.RefinedRequirement != testutil.DefaultAnalysis {
		t.Errorf("RefinedRequirement = %q", result.RefinedRequirement)
	}
	if result.Phase != PhaseCoding {
		t.Errorf("Phase = %q, want %q", result.Phase, PhaseCoding)
	}
	if result.AnalyzedAt.IsZero() {
		t.Error("AnalyzedAt should be set")
	}
	if len(result.MissingSections) != 0 {
		t.Errorf("MissingSections = %v, want none", result.MissingSections)
	}
	if result.TotalTokensIn != testutil.ScriptTokensIn {
		t.Errorf("TotalTokensIn = %d", result.TotalTokensIn)
	}
}

func TestAnalyzeRequirementNode_MissingRaw(t *testing.T) {
	ctx := nodeContext(t, testutil.ApprovedClient())

	if _, err := AnalyzeRequirementNode(ctx, NewState("test")); err == nil {
		t.Error("expected error without raw requirement")
	}
}

func TestAnalyzeRequirementNode_NoExecutor(t *testing.T) {
	ctx := flowgraph.NewContext(context.Background())
	state := NewState("test").WithRequirement("x")

	if _, err := AnalyzeRequirementNode(ctx, state); err != ErrNoExecutor {
		t.Errorf("err = %v, want ErrNoExecutor", err)
	}
}

func TestAnalyzeRequirementNode_FlagsMissingSections(t *testing.T) {
	ctx := nodeContext(t, testutil.NewScriptedClient(testutil.Script{
		Analysis: "Purpose\nA tool.\n\nOperations\n- run\n",
	}))
	state := NewState("test").WithRequirement("x")

	result, err := AnalyzeRequirementNode(ctx, state)
	if err != nil {
		t.Fatalf("node failed: %v", err)
	}

	// Incomplete output is a warning, never a failure.
	if len(result.MissingSections) == 0 {
		t.Error("expected missing sections to be flagged")
	}
	for _, section := range result.MissingSections {
		if section == "Purpose" || section == "Operations" {
			t.Errorf("section %q is present, should not be flagged", section)
		}
	}
}

func TestAnalyzeRequirementNode_SavesSnapshot(t *testing.T) {
	mgr := artifact.NewManager(t.TempDir())
	exec := NewExecutor(testutil.ApprovedClient(), testLoader(t), time.Second)

	base := WithExecutor(context.Background(), exec)
	base = WithArtifacts(base, mgr)
	state := NewState("test").WithRequirement("x")

	result, err := AnalyzeRequirementNode(flowgraph.NewContext(base), state)
	if err != nil {
		t.Fatalf("node failed: %v", err)
	}

	saved, err := mgr.Load(result.RunID, artifact.FileRequirement)
	if err != nil {
		t.Fatalf("snapshot missing: %v", err)
	}
	if saved != result.RefinedRequirement {
		t.Error("snapshot should match the refined requirement")
	}
}

func TestMissingSections(t *testing.T) {
	complete := testutil.DefaultAnalysis
	if got := missingSections(complete); len(got) != 0 {
		t.Errorf("missingSections(complete) = %v", got)
	}

	got := missingSections("Purpose\nsomething")
	if len(got) != len(requirementSections)-1 {
		t.Errorf("missingSections = %v", got)
	}
}
