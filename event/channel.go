package event

import (
	"context"
	"sync"
)

// =============================================================================
// ChannelNotifier
// =============================================================================

// ChannelNotifier delivers events on a channel so a presentation layer can
// subscribe to workflow progress. Delivery is non-blocking: if the subscriber
// falls behind, events are dropped rather than stalling a node.
type ChannelNotifier struct {
	ch        chan Event
	closeOnce sync.Once
}

// NewChannelNotifier creates a channel notifier with the given buffer size.
// A buffer of 0 defaults to 16.
func NewChannelNotifier(buffer int) *ChannelNotifier {
	if buffer <= 0 {
		buffer = 16
	}
	return &ChannelNotifier{ch: make(chan Event, buffer)}
}

// Events returns the receive side of the event stream.
func (n *ChannelNotifier) Events() <-chan Event {
	return n.ch
}

// Close closes the event stream. Call only after the workflow has returned.
// Safe to call more than once.
func (n *ChannelNotifier) Close() {
	n.closeOnce.Do(func() { close(n.ch) })
}

// Notify implements Notifier.
func (n *ChannelNotifier) Notify(ctx context.Context, event Event) error {
	select {
	case n.ch <- event:
	default:
		// Subscriber is behind; drop rather than block the workflow.
	}
	return nil
}
