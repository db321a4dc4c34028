package main

import (
	"fmt"
	"os"

	"github.com/randalmurphal/codeflow/config"
	"github.com/randalmurphal/codeflow/transcript"
	"github.com/spf13/cobra"
)

var transcriptCmd = &cobra.Command{
	Use:   "transcript",
	Short: "Inspect recorded LLM call transcripts",
}

var transcriptListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openTranscriptStore()
		if err != nil {
			return err
		}

		filter := transcript.ListFilter{}
		filter.FlowID, _ = cmd.Flags().GetString("flow")
		if status, _ := cmd.Flags().GetString("status"); status != "" {
			filter.Status = transcript.RunStatus(status)
		}
		filter.Limit, _ = cmd.Flags().GetInt("limit")

		metas, err := store.List(filter)
		if err != nil {
			return err
		}
		return transcript.NewViewer().FormatMetaList(cmd.OutOrStdout(), metas)
	},
}

var transcriptViewCmd = &cobra.Command{
	Use:   "view <run-id>",
	Short: "Show the calls of a run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openTranscriptStore()
		if err != nil {
			return err
		}

		t, err := store.Load(args[0])
		if err != nil {
			return fmt.Errorf("loading transcript %s: %w", args[0], err)
		}

		viewer := transcript.NewViewer()
		if summary, _ := cmd.Flags().GetBool("summary"); summary {
			return viewer.ViewSummary(cmd.OutOrStdout(), t)
		}
		return viewer.ViewFull(cmd.OutOrStdout(), t)
	},
}

var transcriptSearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search prompts and responses across runs",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openTranscriptStore()
		if err != nil {
			return err
		}

		opts := transcript.SearchOptions{}
		opts.CaseSensitive, _ = cmd.Flags().GetBool("case-sensitive")
		opts.FlowID, _ = cmd.Flags().GetString("flow")
		opts.NodeID, _ = cmd.Flags().GetString("node")
		opts.MaxResults, _ = cmd.Flags().GetInt("limit")

		results, err := transcript.NewSearcher(store).Search(args[0], opts)
		if err != nil {
			return err
		}
		if len(results) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No matches found.")
			return nil
		}
		for _, r := range results {
			fmt.Fprintf(cmd.OutOrStdout(), "%s [%d] %s (%s): %s\n",
				r.RunID, r.CallID, r.Node, r.Field, r.Line)
		}
		return nil
	},
}

var transcriptExportCmd = &cobra.Command{
	Use:   "export <run-id>",
	Short: "Export a run's transcript as markdown or JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openTranscriptStore()
		if err != nil {
			return err
		}

		t, err := store.Load(args[0])
		if err != nil {
			return fmt.Errorf("loading transcript %s: %w", args[0], err)
		}

		out := cmd.OutOrStdout()
		if file, _ := cmd.Flags().GetString("output"); file != "" {
			f, err := os.Create(file)
			if err != nil {
				return err
			}
			defer f.Close()
			out = f
		}

		viewer := transcript.NewViewer()
		format, _ := cmd.Flags().GetString("format")
		switch format {
		case "json":
			return viewer.ExportJSON(out, t)
		case "markdown", "md":
			return viewer.ExportMarkdown(out, t)
		default:
			return fmt.Errorf("unknown format %q, want markdown or json", format)
		}
	},
}

func init() {
	rootCmd.AddCommand(transcriptCmd)
	transcriptCmd.AddCommand(transcriptListCmd, transcriptViewCmd, transcriptSearchCmd, transcriptExportCmd)

	transcriptListCmd.Flags().String("flow", "", "Only runs for this flow")
	transcriptListCmd.Flags().String("status", "", "Filter by status (running, completed, failed)")
	transcriptListCmd.Flags().Int("limit", 0, "Maximum runs to list")

	transcriptViewCmd.Flags().Bool("summary", false, "One line per call")

	transcriptSearchCmd.Flags().Bool("case-sensitive", false, "Match case exactly")
	transcriptSearchCmd.Flags().String("flow", "", "Only runs for this flow")
	transcriptSearchCmd.Flags().String("node", "", "Only calls from this node")
	transcriptSearchCmd.Flags().Int("limit", 50, "Maximum matches")

	transcriptExportCmd.Flags().String("format", "markdown", "Export format: markdown or json")
	transcriptExportCmd.Flags().StringP("output", "o", "", "Write to a file instead of stdout")
}

func openTranscriptStore() (*transcript.FileStore, error) {
	settings, err := config.NewResolver().Resolve().Parse()
	if err != nil {
		return nil, err
	}
	return transcript.NewFileStore(transcript.StoreConfig{BaseDir: settings.ArtifactsDir})
}
