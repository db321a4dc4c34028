// Package transcript records the LLM traffic of workflow runs: every call's
// prompt, response, token usage, and timing, grouped per run.
//
// Core types:
//   - Transcript: a recorded run with metadata and calls
//   - Call: a single LLM request/response pair
//   - FileStore: file-based transcript storage
//   - Searcher: content search over saved transcripts
//   - Viewer: display and export
//
// Example usage:
//
//	store, err := transcript.NewFileStore(transcript.StoreConfig{
//	    BaseDir: ".codeflow/transcripts",
//	})
//	err = store.StartRun("run-123", "dev")
//	err = store.RecordCall("run-123", transcript.Call{
//	    Node:     "generate-code",
//	    Prompt:   "...",
//	    Response: "...",
//	})
//	err = store.EndRun("run-123", transcript.RunStatusCompleted)
package transcript
