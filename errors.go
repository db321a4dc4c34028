package codeflow

import (
	"errors"
	"fmt"
	"strings"
)

// Workflow errors
var (
	// ErrEmptyRequirement indicates the raw requirement text was empty.
	ErrEmptyRequirement = errors.New("requirement text is empty")

	// ErrNoExecutor indicates no prompt executor was found in the context.
	ErrNoExecutor = errors.New("prompt executor not found in context")

	// ErrMissingContext indicates a node referenced a context key that was
	// not yet populated. This is a programming error: it cannot occur when
	// the graph order is correct.
	ErrMissingContext = errors.New("missing prompt context")

	// ErrMaxIterations indicates the review loop did not converge within
	// the configured iteration budget. Not fatal; the workflow degrades.
	ErrMaxIterations = errors.New("max review iterations reached")
)

// MissingContextError reports a template variable that was absent or empty
// when a prompt was rendered.
type MissingContextError struct {
	Template string // Template ID being rendered
	Key      string // Context key that was missing
}

func (e *MissingContextError) Error() string {
	return fmt.Sprintf("prompt %s: missing context key %q", e.Template, e.Key)
}

func (e *MissingContextError) Unwrap() error {
	return ErrMissingContext
}

// TransientError wraps a recoverable model-call failure (network, timeout).
// The caller decides whether to retry; the executor never retries itself.
type TransientError struct {
	Node string // Node or template that made the call
	Err  error  // Underlying error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("%s: transient call failure: %v", e.Node, e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// ArtifactError reports a failure producing one post-approval artifact.
// It is attached to the specific artifact and never aborts the siblings.
type ArtifactError struct {
	Artifact string // "documentation", "tests", or "deployment"
	Err      error
}

func (e *ArtifactError) Error() string {
	return fmt.Sprintf("%s artifact: %v", e.Artifact, e.Err)
}

func (e *ArtifactError) Unwrap() error {
	return e.Err
}

// MaxIterationsError carries the iteration count at loop exhaustion.
type MaxIterationsError struct {
	Iterations int
}

func (e *MaxIterationsError) Error() string {
	return fmt.Sprintf("review loop exhausted after %d iterations", e.Iterations)
}

func (e *MaxIterationsError) Unwrap() error {
	return ErrMaxIterations
}

// =============================================================================
// Predicates
// =============================================================================

// IsTransient checks if an error is a recoverable model-call failure.
// Matches explicit TransientError wrappers plus common network and timeout
// error text from provider SDKs.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var te *TransientError
	if errors.As(err, &te) {
		return true
	}

	errStr := strings.ToLower(err.Error())
	if strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "deadline exceeded") {
		return true
	}
	if strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "no such host") ||
		strings.Contains(errStr, "dial tcp") {
		return true
	}
	// Provider-side throttling and overload
	if strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "overloaded") ||
		strings.Contains(errStr, "503") {
		return true
	}
	return false
}

// IsMissingContext checks if an error is a missing prompt-context failure.
func IsMissingContext(err error) bool {
	return errors.Is(err, ErrMissingContext)
}

// IsMaxIterations checks if an error is review-loop exhaustion.
func IsMaxIterations(err error) bool {
	return errors.Is(err, ErrMaxIterations)
}
