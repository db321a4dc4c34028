package codeflow

import (
	"fmt"
	"strings"
)

const reportRule = 100

// Report renders the final sectioned run report from a terminal state. The
// report is self-contained plain text: every section prints a fallback line
// when its artifact is missing, so a degraded run still produces a complete
// document.
func Report(state State) string {
	var b strings.Builder

	heavy := strings.Repeat("=", reportRule)
	light := strings.Repeat("-", reportRule)

	section := func(title string) {
		b.WriteString("\n\n" + heavy + "\n")
		b.WriteString(title + "\n")
		b.WriteString(heavy + "\n")
	}

	b.WriteString(heavy + "\n")
	b.WriteString("SOFTWARE DEVELOPMENT WORKFLOW - OUTPUT REPORT\n")
	b.WriteString(heavy + "\n\n")

	status := "Not Approved"
	if state.Approved() {
		status = "Approved"
	}

	b.WriteString("EXECUTION SUMMARY\n")
	b.WriteString(light + "\n")
	fmt.Fprintf(&b, "Run ID:               %s\n", state.RunID)
	fmt.Fprintf(&b, "Review Iterations:    %d\n", state.Iterations)
	fmt.Fprintf(&b, "Code Status:          %s\n", status)
	fmt.Fprintf(&b, "Code Size:            %d lines\n", lineCount(state.Code))
	fmt.Fprintf(&b, "Documentation Size:   %d lines\n", lineCount(state.Documentation))
	fmt.Fprintf(&b, "Test Suite Size:      %d lines\n", lineCount(state.Tests))
	fmt.Fprintf(&b, "Tokens:               %d in / %d out\n", state.TotalTokensIn, state.TotalTokensOut)
	if state.Degraded {
		b.WriteString("Note:                 artifacts generated from unapproved code\n")
	}

	section("SECTION 1: REFINED REQUIREMENTS")
	b.WriteString(orFallback(state.RefinedRequirement, "Not generated") + "\n")

	section("SECTION 2: GENERATED CODE")
	b.WriteString(orFallback(state.Code, "No code was generated") + "\n")

	if state.ReviewFeedback != "" {
		section("SECTION 3: CODE REVIEW FEEDBACK")
		b.WriteString(state.ReviewFeedback + "\n")
	}

	section("SECTION 4: DOCUMENTATION")
	b.WriteString(orFallback(state.Documentation, "No documentation was generated") + "\n")

	section("SECTION 5: TEST CASES")
	b.WriteString(orFallback(state.Tests, "No test cases were generated") + "\n")

	section("SECTION 6: DEPLOYMENT CONFIGURATION")
	if state.Deployment != nil {
		b.WriteString("\n--- File: requirements.txt ---\n")
		b.WriteString(orFallback(state.Deployment.Requirements, "# No external dependencies required") + "\n")
		b.WriteString("\n--- File: run.sh ---\n")
		b.WriteString(orFallback(state.Deployment.RunScript, "# No deployment script generated") + "\n")
	} else {
		b.WriteString("No deployment files were generated\n")
	}

	if len(state.ArtifactErrors) > 0 {
		section("SECTION 7: ARTIFACT ERRORS")
		for _, name := range []string{artifactDocs, artifactTests, artifactDeploy} {
			if msg, ok := state.ArtifactErrors[name]; ok {
				fmt.Fprintf(&b, "%s: %s\n", name, msg)
			}
		}
	}

	b.WriteString("\n\n" + heavy + "\n")
	b.WriteString("END OF REPORT\n")
	b.WriteString(heavy + "\n")

	return b.String()
}

func lineCount(s string) int {
	if s == "" {
		return 0
	}
	return strings.Count(s, "\n") + 1
}

func orFallback(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}
