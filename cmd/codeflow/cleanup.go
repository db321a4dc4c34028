package main

import (
	"fmt"

	"github.com/randalmurphal/codeflow/artifact"
	"github.com/randalmurphal/codeflow/config"
	"github.com/spf13/cobra"
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Archive and delete old run artifacts per retention policy",
	RunE: func(cmd *cobra.Command, args []string) error {
		resolved := config.NewResolver().Resolve()
		mgr := artifact.NewManager(resolved.Get(config.KeyArtifactsDir))
		lifecycle := artifact.NewLifecycle(mgr, artifact.DefaultRetentionConfig())

		dryRun, _ := cmd.Flags().GetBool("dry-run")

		result, err := lifecycle.Cleanup(dryRun)
		if err != nil {
			return err
		}
		archResult, err := lifecycle.CleanupArchives(dryRun)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if dryRun {
			fmt.Fprintln(out, "Dry run: no changes made")
		}
		fmt.Fprintf(out, "Archived: %d runs\n", len(result.Archived))
		fmt.Fprintf(out, "Deleted:  %d runs, %d archives\n", len(result.Deleted), len(archResult.Deleted))
		fmt.Fprintf(out, "Kept:     %d runs\n", len(result.Kept))
		fmt.Fprintf(out, "Saved:    %d bytes\n", result.SpaceSaved+archResult.SpaceSaved)
		for _, msg := range append(result.Errors, archResult.Errors...) {
			fmt.Fprintf(out, "Error:    %s\n", msg)
		}

		return nil
	},
}

var usageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Show disk usage for run artifacts and archives",
	RunE: func(cmd *cobra.Command, args []string) error {
		resolved := config.NewResolver().Resolve()
		mgr := artifact.NewManager(resolved.Get(config.KeyArtifactsDir))
		lifecycle := artifact.NewLifecycle(mgr, artifact.DefaultRetentionConfig())

		stats, err := lifecycle.DiskUsage()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Runs:     %d (%d bytes)\n", stats.RunCount, stats.ActiveSize)
		fmt.Fprintf(out, "Archives: %d (%d bytes)\n", stats.ArchiveCount, stats.ArchiveSize)
		fmt.Fprintf(out, "Total:    %d bytes\n", stats.TotalSize)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cleanupCmd, usageCmd)
	cleanupCmd.Flags().Bool("dry-run", false, "Report what would happen without changing anything")
}
