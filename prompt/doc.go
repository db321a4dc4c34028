// Package prompt provides prompt template loading and rendering for the
// workflow agents.
//
// Templates are plain text/template files named <id>.txt. Project-local
// copies under .codeflow/prompts/ or prompts/ override the embedded
// defaults, so the agent instructions can be tuned without rebuilding.
//
// Example usage:
//
//	loader := prompt.NewLoader(".")
//	text, err := loader.Render("generate-code", map[string]any{
//	    "refined_requirement": req,
//	    "review_feedback_block": "",
//	})
package prompt
