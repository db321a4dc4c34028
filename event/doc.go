// Package event provides the structured progress stream for workflow runs.
//
// Nodes emit typed events (node started, node completed, review rejected,
// and so on) with run ID, node ID, and timestamp. The presentation layer
// subscribes to this stream instead of scraping log output, and the stream
// never carries document data.
//
// Implementations:
//   - LogNotifier: Logs events via slog
//   - WebhookNotifier: Posts events to an HTTP webhook
//   - ChannelNotifier: Streams events on a Go channel
//   - MultiNotifier: Fans out to multiple notifiers
//   - NopNotifier: Discards events
//
// Example usage:
//
//	stream := event.NewChannelNotifier(32)
//	ctx := event.WithNotifier(ctx, stream)
//	go func() {
//	    for ev := range stream.Events() {
//	        fmt.Printf("[%s] %s\n", ev.NodeID, ev.Message)
//	    }
//	}()
package event
