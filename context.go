package codeflow

import (
	"context"

	"github.com/randalmurphal/codeflow/artifact"
	"github.com/randalmurphal/codeflow/transcript"
)

// =============================================================================
// Context Injection Helpers
// =============================================================================
// These helpers allow codeflow services to be injected into context.Context
// for use by workflow nodes.

// serviceContextKey is a private type for context keys to avoid collisions
type serviceContextKey string

// Context keys for codeflow services
const (
	executorServiceKey   serviceContextKey = "codeflow.executor"
	artifactServiceKey   serviceContextKey = "codeflow.artifacts"
	transcriptServiceKey serviceContextKey = "codeflow.transcripts"
	runIDKey             serviceContextKey = "codeflow.runID"
)

// WithExecutor adds a prompt Executor to the context.
func WithExecutor(ctx context.Context, exec *Executor) context.Context {
	return context.WithValue(ctx, executorServiceKey, exec)
}

// ExecutorFromContext extracts the Executor from context.
func ExecutorFromContext(ctx context.Context) *Executor {
	if exec, ok := ctx.Value(executorServiceKey).(*Executor); ok {
		return exec
	}
	return nil
}

// MustExecutorFromContext extracts the Executor or panics.
func MustExecutorFromContext(ctx context.Context) *Executor {
	exec := ExecutorFromContext(ctx)
	if exec == nil {
		panic("codeflow: Executor not found in context")
	}
	return exec
}

// WithArtifacts adds an artifact Manager to the context.
func WithArtifacts(ctx context.Context, mgr *artifact.Manager) context.Context {
	return context.WithValue(ctx, artifactServiceKey, mgr)
}

// ArtifactsFromContext extracts the artifact Manager from context.
// Returns nil if no manager is configured; snapshot saving is optional.
func ArtifactsFromContext(ctx context.Context) *artifact.Manager {
	if mgr, ok := ctx.Value(artifactServiceKey).(*artifact.Manager); ok {
		return mgr
	}
	return nil
}

// WithTranscripts adds a transcript store to the context. When present, the
// executor records every LLM call for the run.
func WithTranscripts(ctx context.Context, store *transcript.FileStore) context.Context {
	return context.WithValue(ctx, transcriptServiceKey, store)
}

// TranscriptsFromContext extracts the transcript store from context.
// Returns nil if transcript recording is not configured.
func TranscriptsFromContext(ctx context.Context) *transcript.FileStore {
	if store, ok := ctx.Value(transcriptServiceKey).(*transcript.FileStore); ok {
		return store
	}
	return nil
}

// withRunID tags the context with the active run, so services that record
// per-run data can find it.
func withRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey, runID)
}

func runIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(runIDKey).(string); ok {
		return id
	}
	return ""
}
