package codeflow

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/randalmurphal/codeflow/event"
	"github.com/randalmurphal/flowgraph/pkg/flowgraph"
)

// =============================================================================
// Node Types
// =============================================================================

// NodeFunc is a function that processes state and returns updated state.
// This signature is compatible with flowgraph's NodeFunc[State].
type NodeFunc func(ctx flowgraph.Context, state State) (State, error)

// Config configures workflow behavior. All loop and retry bounds are explicit
// here; there are no hidden constants.
type Config struct {
	FlowID        string        // Flow identifier used in run IDs (default: "dev")
	MaxIterations int           // Max coding/review cycles (default: 3)
	RetryAttempts int           // Attempts per node on transient call failure (default: 2)
	RetryBackoff  time.Duration // Base backoff between attempts (default: 2s)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		FlowID:        "dev",
		MaxIterations: 3,
		RetryAttempts: 2,
		RetryBackoff:  2 * time.Second,
	}
}

// withDefaults fills zero fields.
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.FlowID == "" {
		c.FlowID = def.FlowID
	}
	if c.MaxIterations <= 0 {
		c.MaxIterations = def.MaxIterations
	}
	if c.RetryAttempts <= 0 {
		c.RetryAttempts = def.RetryAttempts
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = def.RetryBackoff
	}
	return c
}

// =============================================================================
// Node Wrappers
// =============================================================================

// WithRetry wraps a node with bounded retry on transient call failures.
// Non-transient errors surface immediately; backoff grows linearly per
// attempt and aborts if the context is cancelled.
func WithRetry(node NodeFunc, maxAttempts int, backoff time.Duration) NodeFunc {
	return func(ctx flowgraph.Context, state State) (State, error) {
		var lastErr error
		for attempt := 1; attempt <= maxAttempts; attempt++ {
			result, err := node(ctx, state)
			if err == nil {
				return result, nil
			}
			if !IsTransient(err) {
				return state, err
			}
			lastErr = err
			if attempt < maxAttempts {
				select {
				case <-ctx.Done():
					return state, ctx.Err()
				case <-time.After(backoff * time.Duration(attempt)):
				}
			}
		}
		return state, fmt.Errorf("after %d attempts: %w", maxAttempts, lastErr)
	}
}

// WithEvents wraps a node with progress events. It also checks for
// cancellation at the node boundary, so a cancelled workflow stops between
// nodes and keeps the best-available partial document.
func WithEvents(node NodeFunc, nodeID string) NodeFunc {
	return func(ctx flowgraph.Context, state State) (State, error) {
		if err := ctx.Err(); err != nil {
			return state, err
		}

		event.Emit(ctx, event.Event{
			Type:    event.NodeStarted,
			RunID:   state.RunID,
			FlowID:  state.FlowID,
			NodeID:  nodeID,
			Message: fmt.Sprintf("node %s started", nodeID),
		})

		result, err := node(ctx, state)
		if err != nil {
			event.Emit(ctx, event.Event{
				Type:     event.NodeFailed,
				RunID:    state.RunID,
				FlowID:   state.FlowID,
				NodeID:   nodeID,
				Message:  fmt.Sprintf("node %s failed: %v", nodeID, err),
				Severity: event.SeverityError,
			})
			return result, err
		}

		event.Emit(ctx, event.Event{
			Type:    event.NodeCompleted,
			RunID:   state.RunID,
			FlowID:  state.FlowID,
			NodeID:  nodeID,
			Message: fmt.Sprintf("node %s completed", nodeID),
		})
		return result, nil
	}
}

// WithTiming wraps a node with timing metrics.
func WithTiming(node NodeFunc) NodeFunc {
	return func(ctx flowgraph.Context, state State) (State, error) {
		start := time.Now()
		result, err := node(ctx, state)
		duration := time.Since(start)
		slog.Debug("node execution completed", "runId", state.RunID, "duration", duration)
		return result, err
	}
}
