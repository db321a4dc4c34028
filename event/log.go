package event

import (
	"context"
	"log/slog"
)

// =============================================================================
// LogNotifier
// =============================================================================

// LogNotifier writes events to a slog logger, mapping event severity onto
// the log level. It is the default sink for CLI runs.
type LogNotifier struct {
	Logger *slog.Logger
}

// NewLogNotifier creates a notifier backed by the given logger. A nil logger
// falls back to slog.Default.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{Logger: logger}
}

// Notify implements Notifier.
func (n *LogNotifier) Notify(ctx context.Context, event Event) error {
	attrs := []any{
		"type", event.Type,
		"run_id", event.RunID,
	}
	if event.FlowID != "" {
		attrs = append(attrs, "flow_id", event.FlowID)
	}
	if event.NodeID != "" {
		attrs = append(attrs, "node_id", event.NodeID)
	}

	n.Logger.Log(ctx, levelFor(event.Severity), event.Message, attrs...)
	return nil
}

// levelFor maps an event severity onto a slog level.
func levelFor(severity string) slog.Level {
	switch severity {
	case SeverityError:
		return slog.LevelError
	case SeverityWarning:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}
