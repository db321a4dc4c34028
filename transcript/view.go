package transcript

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"
)

// Viewer renders transcripts for terminal display and export.
type Viewer struct{}

// NewViewer creates a viewer.
func NewViewer() *Viewer {
	return &Viewer{}
}

// ViewFull writes the complete transcript.
func (v *Viewer) ViewFull(w io.Writer, t *Transcript) error {
	v.writeHeader(w, t)
	for _, call := range t.Calls {
		v.writeCall(w, call)
	}
	return nil
}

// ViewSummary writes a one-line-per-call overview.
func (v *Viewer) ViewSummary(w io.Writer, t *Transcript) error {
	v.writeHeader(w, t)

	fmt.Fprintln(w, "\nCalls:")
	for _, call := range t.Calls {
		preview := strings.ReplaceAll(call.Response, "\n", " ")
		if len(preview) > 100 {
			preview = preview[:100] + "..."
		}
		fmt.Fprintf(w, "  [%d] %s: %s\n", call.ID, call.Node, preview)
	}
	return nil
}

func (v *Viewer) writeHeader(w io.Writer, t *Transcript) {
	sep := strings.Repeat("=", 60)

	fmt.Fprintln(w, sep)
	fmt.Fprintf(w, "Run: %s\n", t.RunID)
	fmt.Fprintf(w, "Flow: %s | Status: %s\n", t.Metadata.FlowID, t.Metadata.Status)
	fmt.Fprintf(w, "Started: %s\n", t.Metadata.StartedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "Tokens: %d in / %d out | Calls: %d\n",
		t.Metadata.TotalTokensIn, t.Metadata.TotalTokensOut, t.Metadata.CallCount)
	if t.Metadata.Error != "" {
		fmt.Fprintf(w, "Error: %s\n", t.Metadata.Error)
	}
	fmt.Fprintln(w, sep)
}

func (v *Viewer) writeCall(w io.Writer, call Call) {
	fmt.Fprintln(w)

	header := fmt.Sprintf("[%d] %s (%s)", call.ID, call.Node, call.Timestamp.Format("15:04:05"))
	if call.TokensIn > 0 || call.TokensOut > 0 {
		header += fmt.Sprintf(" [%d in / %d out]", call.TokensIn, call.TokensOut)
	}
	if call.Duration > 0 {
		header += fmt.Sprintf(" [%s]", call.Duration.Round(time.Millisecond))
	}
	fmt.Fprintln(w, header)
	fmt.Fprintln(w, strings.Repeat("-", 60))
	fmt.Fprintln(w, call.Response)
}

// ExportMarkdown exports the transcript to Markdown.
func (v *Viewer) ExportMarkdown(w io.Writer, t *Transcript) error {
	fmt.Fprintf(w, "# Transcript: %s\n\n", t.RunID)

	fmt.Fprintf(w, "## Metadata\n\n")
	fmt.Fprintf(w, "| Field | Value |\n")
	fmt.Fprintf(w, "|-------|-------|\n")
	fmt.Fprintf(w, "| Flow | %s |\n", t.Metadata.FlowID)
	fmt.Fprintf(w, "| Status | %s |\n", t.Metadata.Status)
	fmt.Fprintf(w, "| Started | %s |\n", t.Metadata.StartedAt.Format(time.RFC3339))
	if !t.Metadata.EndedAt.IsZero() {
		fmt.Fprintf(w, "| Ended | %s |\n", t.Metadata.EndedAt.Format(time.RFC3339))
	}
	fmt.Fprintf(w, "| Tokens In | %d |\n", t.Metadata.TotalTokensIn)
	fmt.Fprintf(w, "| Tokens Out | %d |\n", t.Metadata.TotalTokensOut)
	if t.Metadata.Error != "" {
		fmt.Fprintf(w, "| Error | %s |\n", t.Metadata.Error)
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "## Calls\n\n")
	for _, call := range t.Calls {
		fmt.Fprintf(w, "### %s (Call %d)\n\n", call.Node, call.ID)
		fmt.Fprintf(w, "**Prompt:**\n\n```\n%s\n```\n\n", call.Prompt)
		fmt.Fprintf(w, "**Response:**\n\n```\n%s\n```\n\n", call.Response)
	}
	return nil
}

// ExportJSON exports the transcript as indented JSON.
func (v *Viewer) ExportJSON(w io.Writer, t *Transcript) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(t)
}

// FormatMetaList renders a run listing table.
func (v *Viewer) FormatMetaList(w io.Writer, metas []Meta) error {
	if len(metas) == 0 {
		fmt.Fprintln(w, "No runs found.")
		return nil
	}

	fmt.Fprintf(w, "%-30s %-12s %-18s %12s %6s\n",
		"RUN ID", "STATUS", "STARTED", "TOKENS", "CALLS")
	fmt.Fprintln(w, strings.Repeat("-", 82))

	for _, m := range metas {
		fmt.Fprintf(w, "%-30s %-12s %-18s %12s %6d\n",
			truncate(m.RunID, 30),
			m.Status,
			m.StartedAt.Format("2006-01-02 15:04"),
			fmt.Sprintf("%d/%d", m.TotalTokensIn, m.TotalTokensOut),
			m.CallCount)
	}

	fmt.Fprintf(w, "\nTotal: %d runs\n", len(metas))
	return nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}
