// Package artifact provides storage and lifecycle management for run
// artifacts: the refined requirement, generated code, review verdicts,
// documentation, tests, deployment files, and the final report.
//
// Core types:
//   - Manager: saves and loads per-run artifacts atomically
//   - Lifecycle: archives and deletes old runs per retention policy
//
// Example usage:
//
//	mgr := artifact.NewManager(".codeflow/artifacts")
//	err := mgr.SaveCode("run-123", code)
//	code, err := mgr.Load("run-123", artifact.FileCode)
package artifact
