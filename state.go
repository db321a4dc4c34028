package codeflow

import (
	"fmt"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// =============================================================================
// Verdict and Phase
// =============================================================================

// Verdict is the review decision for the current code iteration.
type Verdict string

const (
	VerdictNone          Verdict = ""
	VerdictApproved      Verdict = "approved"
	VerdictNeedsRevision Verdict = "needs_revision"
)

// Phase tracks where a run is in the coding/review loop.
type Phase string

const (
	PhaseAnalyzing Phase = "analyzing"
	PhaseCoding    Phase = "coding"
	PhaseReviewing Phase = "reviewing"

	// PhaseApproved is terminal for the loop; artifact generation follows.
	PhaseApproved Phase = "approved"

	// PhaseMaxIterations is terminal and degraded: the loop did not converge
	// within the configured iteration budget.
	PhaseMaxIterations Phase = "max_iterations_reached"

	PhaseDone Phase = "done"
)

// Terminal reports whether the loop has exited.
func (p Phase) Terminal() bool {
	return p == PhaseApproved || p == PhaseMaxIterations
}

// =============================================================================
// Embeddable State Components
// =============================================================================

// RequirementState tracks requirement ingestion and analysis.
type RequirementState struct {
	RawRequirement     string    `json:"rawRequirement"`
	RefinedRequirement string    `json:"refinedRequirement,omitempty"`
	AnalyzedAt         time.Time `json:"analyzedAt,omitempty"`
	MissingSections    []string  `json:"missingSections,omitempty"`
}

// CodeState tracks code generation. Code is overwritten on each retry
// iteration and frozen once the review approves it.
type CodeState struct {
	Code          string `json:"code,omitempty"`
	CodeTokensIn  int    `json:"codeTokensIn,omitempty"`
	CodeTokensOut int    `json:"codeTokensOut,omitempty"`
}

// ReviewState tracks the review loop. Verdict always refers to the Code value
// present at the time of review.
type ReviewState struct {
	Verdict        Verdict `json:"verdict,omitempty"`
	ReviewFeedback string  `json:"reviewFeedback,omitempty"`
	Iterations     int     `json:"iterations"`
}

// DeploymentConfig holds the structured deployment artifact: a dependency
// list and a run script.
type DeploymentConfig struct {
	Requirements string `json:"requirements"`
	RunScript    string `json:"runScript"`
}

// ArtifactState tracks the three post-approval artifacts. Each field is
// written exactly once, by its own node; failures are recorded per artifact
// and never block the siblings.
type ArtifactState struct {
	Documentation  string            `json:"documentation,omitempty"`
	Tests          string            `json:"tests,omitempty"`
	Deployment     *DeploymentConfig `json:"deployment,omitempty"`
	ArtifactErrors map[string]string `json:"artifactErrors,omitempty"`

	// Degraded marks artifacts produced against best-so-far code after the
	// review loop hit its iteration budget.
	Degraded bool `json:"degraded,omitempty"`
}

// MetricsState tracks execution metrics.
type MetricsState struct {
	TotalTokensIn  int           `json:"totalTokensIn"`
	TotalTokensOut int           `json:"totalTokensOut"`
	TotalCost      float64       `json:"totalCost"`
	StartTime      time.Time     `json:"startTime"`
	TotalDuration  time.Duration `json:"totalDuration"`
}

// =============================================================================
// State - Full Workflow Document
// =============================================================================

// State is the shared document threaded through every node. Nodes receive it
// by value and return an updated copy; the graph merges, so a node only ever
// touches the fields it owns.
type State struct {
	RunID  string `json:"runId"`
	FlowID string `json:"flowId"`

	Phase Phase `json:"phase"`

	RequirementState
	CodeState
	ReviewState
	ArtifactState
	MetricsState

	// Error tracking
	Error string `json:"error,omitempty"`
}

// NewState creates a new workflow document.
func NewState(flowID string) State {
	return State{
		RunID:  generateRunID(flowID),
		FlowID: flowID,
		Phase:  PhaseAnalyzing,
		MetricsState: MetricsState{
			StartTime: time.Now(),
		},
	}
}

// WithRunID sets a custom run ID.
func (s State) WithRunID(runID string) State {
	s.RunID = runID
	return s
}

// WithRequirement sets the raw requirement text. Set once at ingestion;
// immutable afterwards.
func (s State) WithRequirement(raw string) State {
	s.RawRequirement = raw
	return s
}

// AddTokens updates token metrics.
// Rough cost estimate ($2.50/1M in, $10/1M out for gpt-4o class models).
func (s *State) AddTokens(in, out int) {
	s.TotalTokensIn += in
	s.TotalTokensOut += out
	s.TotalCost += (float64(in) * 0.0000025) + (float64(out) * 0.00001)
}

// FinalizeDuration sets total duration from start time.
func (s *State) FinalizeDuration() {
	s.TotalDuration = time.Since(s.StartTime)
}

// SetError sets the error state.
func (s *State) SetError(err error) {
	if err != nil {
		s.Error = err.Error()
	}
}

// HasError returns true if state has an error.
func (s State) HasError() bool {
	return s.Error != ""
}

// =============================================================================
// State Validation
// =============================================================================

// Requirement defines a state prerequisite a node can declare.
type Requirement string

const (
	RequireRaw     Requirement = "raw_requirement"
	RequireRefined Requirement = "refined_requirement"
	RequireCode    Requirement = "code"
	RequireVerdict Requirement = "verdict"
)

// Validate checks if state has required fields.
func (s State) Validate(requirements ...Requirement) error {
	for _, req := range requirements {
		switch req {
		case RequireRaw:
			if s.RawRequirement == "" {
				return fmt.Errorf("raw requirement required")
			}
		case RequireRefined:
			if s.RefinedRequirement == "" {
				return fmt.Errorf("refined requirement required")
			}
		case RequireCode:
			if s.Code == "" {
				return fmt.Errorf("code required")
			}
		case RequireVerdict:
			if s.Verdict == VerdictNone {
				return fmt.Errorf("verdict required")
			}
		default:
			return fmt.Errorf("unknown requirement: %s", req)
		}
	}
	return nil
}

// =============================================================================
// Review Routing
// =============================================================================

// NeedsRevision returns true if the latest review rejected the code.
func (s State) NeedsRevision() bool {
	return s.Verdict == VerdictNeedsRevision
}

// CanRetry returns true if another coding iteration fits in the budget.
func (s State) CanRetry(maxIterations int) bool {
	return s.Iterations < maxIterations
}

// Approved returns true once the review has approved the code. After this
// point Code is never modified.
func (s State) Approved() bool {
	return s.Verdict == VerdictApproved
}

// =============================================================================
// Helper Functions
// =============================================================================

const runIDAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// generateRunID creates a unique run ID.
func generateRunID(flowID string) string {
	timestamp := time.Now().Format("2006-01-02")
	suffix, err := gonanoid.Generate(runIDAlphabet, 8)
	if err != nil {
		// gonanoid only fails if the random source does
		suffix = fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return fmt.Sprintf("%s-%s-%s", timestamp, flowID, suffix)
}

// =============================================================================
// State Summary
// =============================================================================

// Summary returns a human-readable summary of the state.
func (s State) Summary() string {
	var status string
	switch {
	case s.Error != "":
		status = "failed"
	case s.Phase == PhaseDone && s.Degraded:
		status = "completed (degraded)"
	case s.Phase == PhaseDone:
		status = "completed"
	case s.Phase == PhaseMaxIterations:
		status = "max iterations reached"
	case s.Approved():
		status = "approved"
	case s.Code != "":
		status = "coded"
	case s.RefinedRequirement != "":
		status = "analyzed"
	default:
		status = "pending"
	}

	return fmt.Sprintf("Run %s [%s]: %s after %d review iteration(s) (tokens: %d in, %d out, cost: $%.4f)",
		s.RunID, status, s.FlowID, s.Iterations,
		s.TotalTokensIn, s.TotalTokensOut, s.TotalCost)
}
