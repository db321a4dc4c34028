package integrationtest

import (
	"context"
	"testing"
	"time"

	"github.com/randalmurphal/codeflow"
	"github.com/randalmurphal/codeflow/artifact"
	"github.com/randalmurphal/codeflow/event"
	"github.com/randalmurphal/codeflow/prompt"
	"github.com/randalmurphal/codeflow/testutil"
	"github.com/randalmurphal/codeflow/transcript"
	llm "github.com/randalmurphal/llmkit/claude"
)

const requirement = `Build a command-line todo list. Users can add a task,
list open tasks, and mark a task done. Tasks persist to a JSON file.`

// services bundles everything a full workflow run needs.
type services struct {
	ctx         context.Context
	artifacts   *artifact.Manager
	transcripts *transcript.FileStore
	events      *event.ChannelNotifier
}

// setupServices wires an executor, artifact manager, transcript store, and
// channel notifier into a context ready for a workflow run.
func setupServices(t *testing.T, client llm.Client) *services {
	t.Helper()

	exec := codeflow.NewExecutor(client, prompt.NewLoader(t.TempDir()), 10*time.Second)
	artifacts := artifact.NewManager(t.TempDir())

	transcripts, err := transcript.NewFileStore(transcript.StoreConfig{BaseDir: t.TempDir()})
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	events := event.NewChannelNotifier(256)
	t.Cleanup(events.Close)

	ctx := codeflow.WithExecutor(testutil.TestContext(t), exec)
	ctx = codeflow.WithArtifacts(ctx, artifacts)
	ctx = codeflow.WithTranscripts(ctx, transcripts)
	ctx = event.WithNotifier(ctx, events)

	return &services{
		ctx:         ctx,
		artifacts:   artifacts,
		transcripts: transcripts,
		events:      events,
	}
}

// drainEvents closes the notifier and collects everything it buffered.
func (s *services) drainEvents() []event.Event {
	s.events.Close()

	var out []event.Event
	for ev := range s.events.Events() {
		out = append(out, ev)
	}
	return out
}

// testConfig returns a workflow config with fast retry backoff for tests.
func testConfig(maxIterations int) codeflow.Config {
	return codeflow.Config{
		FlowID:        "it",
		MaxIterations: maxIterations,
		RetryAttempts: 2,
		RetryBackoff:  time.Millisecond,
	}
}
