package event

import (
	"context"
	"log/slog"
)

// =============================================================================
// MultiNotifier
// =============================================================================

// MultiNotifier delivers every event to each of its notifiers in turn. One
// failing sink never blocks the rest; failures are logged and the last error
// is returned so callers can still observe that delivery was incomplete.
type MultiNotifier struct {
	Notifiers []Notifier
	Logger    *slog.Logger
}

// NewMultiNotifier creates a notifier that fans out to the given notifiers.
func NewMultiNotifier(notifiers ...Notifier) *MultiNotifier {
	return &MultiNotifier{
		Notifiers: notifiers,
		Logger:    slog.Default(),
	}
}

// Notify implements Notifier.
func (n *MultiNotifier) Notify(ctx context.Context, event Event) error {
	var lastErr error
	for i, sink := range n.Notifiers {
		err := sink.Notify(ctx, event)
		if err == nil {
			continue
		}
		lastErr = err
		if n.Logger != nil {
			n.Logger.Warn("notifier failed",
				"notifier", i,
				"event_type", event.Type,
				"run_id", event.RunID,
				"error", err,
			)
		}
	}
	return lastErr
}

// =============================================================================
// NopNotifier
// =============================================================================

// NopNotifier discards every event. It stands in wherever progress reporting
// is switched off.
type NopNotifier struct{}

// Notify implements Notifier.
func (NopNotifier) Notify(ctx context.Context, event Event) error {
	return nil
}
