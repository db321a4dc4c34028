// Package codeflow turns a natural-language software requirement into code,
// a review verdict, documentation, tests, and a deployment script by running
// a fixed graph of LLM-backed nodes with a bounded coding/review loop.
//
// The package is organized into subpackages by domain:
//
//   - prompt: Prompt template loading and rendering
//   - event: Structured workflow progress events (log, webhook, channel)
//   - artifact: Write-once run snapshots and the final report
//   - transcript: Per-run records of every LLM call, searchable and exportable
//   - config: Hierarchical configuration (defaults, YAML, environment)
//
// # Quick Start
//
//	import (
//	    "context"
//
//	    "github.com/randalmurphal/codeflow"
//	    "github.com/randalmurphal/codeflow/prompt"
//	)
//
//	client, _ := codeflow.NewOpenAIClient(codeflow.ProviderConfig{})
//	exec := codeflow.NewExecutor(client, prompt.NewLoader("."), 0)
//
//	ctx := codeflow.WithExecutor(context.Background(), exec)
//	final, err := codeflow.Run(ctx, "Build an in-memory contact book", codeflow.DefaultConfig())
//
// The returned State carries every field produced so far, including a partial
// document when the run fails or is cancelled between nodes.
package codeflow
