package event

import (
	"context"
	"time"
)

// =============================================================================
// Event Types
// =============================================================================

// Type represents the type of workflow event.
type Type string

// Event type constants.
const (
	RunStarted     Type = "run_started"
	RunCompleted   Type = "run_completed"
	RunFailed      Type = "run_failed"
	NodeStarted    Type = "node_started"
	NodeCompleted  Type = "node_completed"
	NodeFailed     Type = "node_failed"
	ReviewApproved Type = "review_approved"
	ReviewRejected Type = "review_rejected"
	RunDegraded    Type = "run_degraded"
)

// Severity constants.
const (
	SeverityInfo    = "info"
	SeverityWarning = "warning"
	SeverityError   = "error"
)

// Event describes a workflow progress event. It is a side channel for the
// presentation layer and carries no document data beyond metadata.
type Event struct {
	Type      Type           `json:"type"`
	RunID     string         `json:"run_id"`
	FlowID    string         `json:"flow_id"`
	NodeID    string         `json:"node_id,omitempty"`
	Message   string         `json:"message"`
	Severity  string         `json:"severity"`
	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// =============================================================================
// Notifier Interface
// =============================================================================

// Notifier receives workflow events. Implementations should be fast and
// handle their own errors gracefully (log, don't crash).
type Notifier interface {
	Notify(ctx context.Context, event Event) error
}

// =============================================================================
// Context Injection
// =============================================================================

type serviceContextKey string

const notifierServiceKey serviceContextKey = "codeflow.notifier"

// WithNotifier adds a Notifier to the context.
func WithNotifier(ctx context.Context, n Notifier) context.Context {
	return context.WithValue(ctx, notifierServiceKey, n)
}

// FromContext extracts the Notifier from context.
// Returns nil if no notifier is configured.
func FromContext(ctx context.Context) Notifier {
	if n, ok := ctx.Value(notifierServiceKey).(Notifier); ok {
		return n
	}
	return nil
}

// Emit sends an event through the context's notifier, if one is configured.
// Timestamp and severity are defaulted when unset.
func Emit(ctx context.Context, ev Event) {
	n := FromContext(ctx)
	if n == nil {
		return
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	if ev.Severity == "" {
		ev.Severity = SeverityInfo
	}
	_ = n.Notify(ctx, ev)
}
