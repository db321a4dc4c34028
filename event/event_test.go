package event

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// =============================================================================
// Event Type Tests
// =============================================================================

func TestEventTypes(t *testing.T) {
	// Verify all event types are unique
	types := []Type{
		RunStarted,
		RunCompleted,
		RunFailed,
		NodeStarted,
		NodeCompleted,
		NodeFailed,
		ReviewApproved,
		ReviewRejected,
		RunDegraded,
	}

	seen := make(map[Type]bool)
	for _, et := range types {
		if seen[et] {
			t.Errorf("duplicate event type: %s", et)
		}
		seen[et] = true
	}
}

func TestSeverityLevels(t *testing.T) {
	levels := []string{SeverityInfo, SeverityWarning, SeverityError}

	seen := make(map[string]bool)
	for _, s := range levels {
		if seen[s] {
			t.Errorf("duplicate severity: %s", s)
		}
		seen[s] = true
	}
}

// =============================================================================
// Context / Emit Tests
// =============================================================================

type recordingNotifier struct {
	events []Event
	err    error
}

func (n *recordingNotifier) Notify(ctx context.Context, event Event) error {
	n.events = append(n.events, event)
	return n.err
}

func TestFromContext(t *testing.T) {
	if got := FromContext(context.Background()); got != nil {
		t.Errorf("FromContext on bare context = %v, want nil", got)
	}

	rec := &recordingNotifier{}
	ctx := WithNotifier(context.Background(), rec)
	if got := FromContext(ctx); got != Notifier(rec) {
		t.Error("FromContext did not return the configured notifier")
	}
}

func TestEmit_Defaults(t *testing.T) {
	rec := &recordingNotifier{}
	ctx := WithNotifier(context.Background(), rec)

	Emit(ctx, Event{Type: NodeStarted, RunID: "run-1", Message: "analyzing"})

	if len(rec.events) != 1 {
		t.Fatalf("got %d events, want 1", len(rec.events))
	}
	ev := rec.events[0]
	if ev.Timestamp.IsZero() {
		t.Error("Emit should default the timestamp")
	}
	if ev.Severity != SeverityInfo {
		t.Errorf("Severity = %s, want %s", ev.Severity, SeverityInfo)
	}
}

func TestEmit_PreservesExplicitFields(t *testing.T) {
	rec := &recordingNotifier{}
	ctx := WithNotifier(context.Background(), rec)
	ts := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)

	Emit(ctx, Event{Type: NodeFailed, Severity: SeverityError, Timestamp: ts})

	ev := rec.events[0]
	if ev.Severity != SeverityError {
		t.Errorf("Severity = %s, want %s", ev.Severity, SeverityError)
	}
	if !ev.Timestamp.Equal(ts) {
		t.Errorf("Timestamp = %v, want %v", ev.Timestamp, ts)
	}
}

func TestEmit_NoNotifier(t *testing.T) {
	// Must not panic when no notifier is configured.
	Emit(context.Background(), Event{Type: RunStarted})
}

// =============================================================================
// NopNotifier Tests
// =============================================================================

func TestNopNotifier(t *testing.T) {
	n := NopNotifier{}

	err := n.Notify(context.Background(), Event{
		Type:    RunStarted,
		Message: "test",
	})

	if err != nil {
		t.Errorf("NopNotifier.Notify() error = %v, want nil", err)
	}
}

// =============================================================================
// LogNotifier Tests
// =============================================================================

func TestLogNotifier(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	n := NewLogNotifier(logger)

	event := Event{
		Type:      RunCompleted,
		RunID:     "run-123",
		FlowID:    "dev-pipeline",
		Message:   "Workflow completed",
		Severity:  SeverityInfo,
		Timestamp: time.Now(),
	}

	if err := n.Notify(context.Background(), event); err != nil {
		t.Errorf("LogNotifier.Notify() error = %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "Workflow completed") {
		t.Errorf("Log output missing message: %s", output)
	}
	if !strings.Contains(output, "run-123") {
		t.Errorf("Log output missing run_id: %s", output)
	}
}

func TestLogNotifier_Severity(t *testing.T) {
	tests := []struct {
		severity string
		wantLog  string
	}{
		{SeverityInfo, "level=INFO"},
		{SeverityWarning, "level=WARN"},
		{SeverityError, "level=ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.severity, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&buf, nil))
			n := NewLogNotifier(logger)

			err := n.Notify(context.Background(), Event{
				Type:     RunStarted,
				Message:  "test",
				Severity: tt.severity,
			})
			if err != nil {
				t.Errorf("Notify() error = %v", err)
			}

			if !strings.Contains(buf.String(), tt.wantLog) {
				t.Errorf("Log output = %q, want to contain %q", buf.String(), tt.wantLog)
			}
		})
	}
}

func TestLogNotifier_NilLogger(t *testing.T) {
	n := NewLogNotifier(nil)
	if n.Logger == nil {
		t.Error("NewLogNotifier should use default logger when nil")
	}
}

// =============================================================================
// MultiNotifier Tests
// =============================================================================

func TestMultiNotifier(t *testing.T) {
	a := &recordingNotifier{}
	b := &recordingNotifier{}

	n := NewMultiNotifier(a, b)
	if err := n.Notify(context.Background(), Event{Type: RunStarted}); err != nil {
		t.Errorf("Notify() error = %v", err)
	}

	if len(a.events) != 1 || len(b.events) != 1 {
		t.Errorf("fan-out incomplete: a=%d b=%d", len(a.events), len(b.events))
	}
}

func TestMultiNotifier_ContinuesOnError(t *testing.T) {
	failing := &recordingNotifier{err: errors.New("boom")}
	ok := &recordingNotifier{}

	var buf bytes.Buffer
	n := NewMultiNotifier(failing, ok)
	n.Logger = slog.New(slog.NewTextHandler(&buf, nil))

	err := n.Notify(context.Background(), Event{Type: NodeCompleted})
	if err == nil {
		t.Error("Notify() should return the last error")
	}
	if len(ok.events) != 1 {
		t.Error("healthy notifier should still receive the event")
	}
	if !strings.Contains(buf.String(), "notifier failed") {
		t.Errorf("failure not logged: %s", buf.String())
	}
}

// =============================================================================
// ChannelNotifier Tests
// =============================================================================

func TestChannelNotifier(t *testing.T) {
	n := NewChannelNotifier(4)

	want := Event{Type: NodeStarted, RunID: "run-1", NodeID: "generate-code"}
	if err := n.Notify(context.Background(), want); err != nil {
		t.Fatalf("Notify() error = %v", err)
	}
	n.Close()

	var got []Event
	for ev := range n.Events() {
		got = append(got, ev)
	}
	if len(got) != 1 || got[0].NodeID != "generate-code" {
		t.Errorf("received %v, want one node_started event", got)
	}
}

func TestChannelNotifier_DropsWhenFull(t *testing.T) {
	n := NewChannelNotifier(1)

	for i := 0; i < 5; i++ {
		if err := n.Notify(context.Background(), Event{Type: NodeStarted}); err != nil {
			t.Fatalf("Notify() error = %v", err)
		}
	}
	n.Close()

	count := 0
	for range n.Events() {
		count++
	}
	if count != 1 {
		t.Errorf("delivered %d events, want 1 (rest dropped)", count)
	}
}

func TestChannelNotifier_CloseIdempotent(t *testing.T) {
	n := NewChannelNotifier(1)
	n.Close()
	n.Close() // must not panic
}

// =============================================================================
// WebhookNotifier Tests
// =============================================================================

func TestWebhookNotifier(t *testing.T) {
	var receivedBody []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Method = %s, want POST", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %s, want application/json", ct)
		}
		receivedBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	n := NewWebhookNotifier(server.URL, nil)

	event := Event{
		Type:      RunCompleted,
		RunID:     "run-123",
		FlowID:    "dev-pipeline",
		Message:   "Webhook test",
		Severity:  SeverityInfo,
		Timestamp: time.Now(),
	}

	if err := n.Notify(context.Background(), event); err != nil {
		t.Errorf("WebhookNotifier.Notify() error = %v", err)
	}

	var parsed Event
	if err := json.Unmarshal(receivedBody, &parsed); err != nil {
		t.Errorf("Failed to parse received body: %v", err)
	}
	if parsed.RunID != "run-123" {
		t.Errorf("Received RunID = %s, want run-123", parsed.RunID)
	}
}

func TestWebhookNotifier_CustomHeaders(t *testing.T) {
	var receivedAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		receivedAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	headers := map[string]string{
		"Authorization": "Bearer test-token",
	}
	n := NewWebhookNotifier(server.URL, headers)

	if err := n.Notify(context.Background(), Event{Type: RunStarted}); err != nil {
		t.Errorf("Notify() error = %v", err)
	}

	if receivedAuth != "Bearer test-token" {
		t.Errorf("Authorization header = %q, want 'Bearer test-token'", receivedAuth)
	}
}

func TestWebhookNotifier_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	n := NewWebhookNotifier(server.URL, nil)
	err := n.Notify(context.Background(), Event{Type: RunStarted})

	if err == nil {
		t.Error("Notify() should return error for 404 status")
	}
}

// =============================================================================
// SlackNotifier Tests
// =============================================================================

func TestSlackNotifier(t *testing.T) {
	var receivedPayload slackPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &receivedPayload)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	n := NewSlackNotifier(server.URL,
		WithSlackChannel("#builds"),
		WithSlackUsername("testbot"),
	)

	event := Event{
		Type:      RunCompleted,
		RunID:     "run-123",
		FlowID:    "dev-pipeline",
		Message:   "Workflow completed after 1 review iteration",
		Severity:  SeverityInfo,
		Timestamp: time.Now(),
		Metadata: map[string]any{
			"iterations": 1,
		},
	}

	if err := n.Notify(context.Background(), event); err != nil {
		t.Errorf("SlackNotifier.Notify() error = %v", err)
	}

	if receivedPayload.Channel != "#builds" {
		t.Errorf("Channel = %s, want #builds", receivedPayload.Channel)
	}
	if receivedPayload.Username != "testbot" {
		t.Errorf("Username = %s, want testbot", receivedPayload.Username)
	}
	if len(receivedPayload.Attachments) == 0 {
		t.Fatal("Missing attachments")
	}

	att := receivedPayload.Attachments[0]
	if att.Title != string(RunCompleted) {
		t.Errorf("Title = %s, want %s", att.Title, RunCompleted)
	}
	if att.Footer != "Flow: dev-pipeline | Run: run-123" {
		t.Errorf("Footer = %s", att.Footer)
	}
	if len(att.Fields) != 1 || att.Fields[0].Title != "iterations" {
		t.Errorf("Fields = %v, want metadata field", att.Fields)
	}
}

func TestColorForSeverity(t *testing.T) {
	tests := []struct {
		severity  string
		wantColor string
	}{
		{SeverityInfo, "good"},
		{SeverityWarning, "warning"},
		{SeverityError, "danger"},
		{"", "good"},
	}

	for _, tt := range tests {
		t.Run(tt.severity, func(t *testing.T) {
			if color := colorForSeverity(tt.severity); color != tt.wantColor {
				t.Errorf("colorForSeverity() = %s, want %s", color, tt.wantColor)
			}
		})
	}
}

func TestFieldsFromMetadata_Empty(t *testing.T) {
	if got := fieldsFromMetadata(nil); got != nil {
		t.Errorf("fieldsFromMetadata(nil) = %v, want nil", got)
	}
}
