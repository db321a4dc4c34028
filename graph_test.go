package codeflow

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/randalmurphal/codeflow/testutil"
	llm "github.com/randalmurphal/llmkit/claude"
)

func graphConfig() Config {
	return Config{
		FlowID:        "test",
		MaxIterations: 3,
		RetryAttempts: 1,
		RetryBackoff:  time.Millisecond,
	}
}

func TestRun_FullLoop(t *testing.T) {
	exec := NewExecutor(testutil.NewScriptedClient(testutil.Script{
		Rejections: []string{"handle the error path"},
		Revisions:  []string{"def main():\n    pass  # fixed\n"},
	}), testLoader(t), time.Second)
	ctx := WithExecutor(context.Background(), exec)

	state, err := Run(ctx, "build a converter", graphConfig())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if state.Phase != PhaseDone {
		t.Errorf("Phase = %q", state.Phase)
	}
	if state.Iterations != 2 {
		t.Errorf("Iterations = %d, want 2", state.Iterations)
	}
	if state.Code != "def main():\n    pass  # fixed" {
		t.Errorf("Code = %q, want the revision", state.Code)
	}
	if state.RawRequirement != "build a converter" {
		t.Errorf("RawRequirement = %q", state.RawRequirement)
	}
	if state.TotalDuration <= 0 {
		t.Error("TotalDuration should be finalized")
	}
}

func TestRun_ExhaustionKeepsLastAttempt(t *testing.T) {
	const firstAttempt = "def convert(x):\n    pass  # first attempt"
	const secondAttempt = "def convert(x):\n    return x  # second attempt"

	scripted := testutil.NewScriptedClient(testutil.Script{
		Code:       firstAttempt,
		Revisions:  []string{secondAttempt},
		Rejections: []string{"convert does nothing", "still does nothing"},
	})

	// Capture every coding prompt so the loop's inputs can be checked, not
	// just its outputs.
	var codingPrompts []string
	client := llm.NewMockClient("").WithCompleteFunc(func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
		text := req.Messages[len(req.Messages)-1].Content
		if strings.Contains(text, "Coding Agent") {
			codingPrompts = append(codingPrompts, text)
		}
		return scripted.Complete(ctx, req)
	})

	cfg := graphConfig()
	cfg.MaxIterations = 2
	exec := NewExecutor(client, testLoader(t), time.Second)
	ctx := WithExecutor(context.Background(), exec)

	state, err := Run(ctx, "build a converter", cfg)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if state.Phase != PhaseMaxIterations {
		t.Errorf("Phase = %q, want %q", state.Phase, PhaseMaxIterations)
	}
	if state.Iterations != 2 {
		t.Errorf("Iterations = %d, want 2", state.Iterations)
	}
	if !state.Degraded {
		t.Error("exhausted run should be degraded")
	}
	if state.Code != secondAttempt {
		t.Errorf("Code = %q, want the second attempt", state.Code)
	}
	if state.ReviewFeedback != "still does nothing" {
		t.Errorf("ReviewFeedback = %q, want the final rejection", state.ReviewFeedback)
	}

	if len(codingPrompts) != 2 {
		t.Fatalf("coding was prompted %d times, want 2", len(codingPrompts))
	}
	if !strings.Contains(codingPrompts[0], testutil.DefaultAnalysis) {
		t.Error("first coding prompt should embed the refined requirement verbatim")
	}
	if strings.Contains(codingPrompts[0], "Review Feedback:") {
		t.Error("first coding prompt must not carry review feedback")
	}
	if !strings.Contains(codingPrompts[1], "convert does nothing") {
		t.Error("retry prompt should carry the rejection feedback")
	}
	if !strings.Contains(codingPrompts[1], firstAttempt) {
		t.Error("retry prompt should carry the previous attempt's code")
	}
}

func TestRun_EmptyRequirement(t *testing.T) {
	exec := NewExecutor(testutil.ApprovedClient(), testLoader(t), time.Second)
	ctx := WithExecutor(context.Background(), exec)

	if _, err := Run(ctx, "  \n ", graphConfig()); !errors.Is(err, ErrEmptyRequirement) {
		t.Errorf("err = %v, want ErrEmptyRequirement", err)
	}
}

func TestRun_NoExecutor(t *testing.T) {
	state, err := Run(context.Background(), "build something", graphConfig())
	if err == nil {
		t.Fatal("expected error without an executor")
	}
	if !state.HasError() {
		t.Error("state should carry the failure")
	}
}

func TestRun_KeepsPartialStateOnFailure(t *testing.T) {
	// Analysis succeeds, coding fails permanently.
	exec := NewExecutor(testutil.ApprovedClient(), testLoader(t), time.Second).
		WithClientFor(TemplateCode, testutil.NewScriptedClient(testutil.Script{
			Err: errors.New("invalid api key"),
		}))

	ctx := WithExecutor(context.Background(), exec)
	state, err := Run(ctx, "build a converter", graphConfig())
	if err == nil {
		t.Fatal("expected failure")
	}

	if state.RefinedRequirement == "" {
		t.Error("analysis result should survive the later failure")
	}
	if !state.HasError() {
		t.Error("state should record the error")
	}
}
