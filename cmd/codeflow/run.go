package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/randalmurphal/codeflow"
	"github.com/randalmurphal/codeflow/artifact"
	"github.com/randalmurphal/codeflow/config"
	"github.com/randalmurphal/codeflow/event"
	"github.com/randalmurphal/codeflow/prompt"
	"github.com/randalmurphal/codeflow/transcript"
	"github.com/randalmurphal/llmkit/model"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run [requirement]",
	Short: "Run the development workflow for a requirement",
	Long: `Runs requirement analysis, code generation, the review loop, and artifact
generation for the given requirement. The requirement is read from the
argument, from --file, or from stdin.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWorkflow,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().String("provider", "", "LLM provider (openai, google)")
	runCmd.Flags().String("model", "", "Model for code generation (overrides provider default)")
	runCmd.Flags().String("file", "", "Read the requirement from a file")
	runCmd.Flags().Int("max-iterations", 0, "Maximum review iterations")
	runCmd.Flags().String("artifacts-dir", "", "Artifact output directory")
	runCmd.Flags().String("webhook-url", "", "POST workflow events to this URL")
	runCmd.Flags().Bool("no-report", false, "Suppress the final report on stdout")
}

func runWorkflow(cmd *cobra.Command, args []string) error {
	raw, err := readRequirement(cmd, args)
	if err != nil {
		return err
	}

	settings, err := resolveSettings(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// One client per tier: analysis/review think harder, artifacts run fast.
	baseClient, err := codeflow.NewClient(ctx, settings.Provider, codeflow.ProviderConfig{
		Model:   modelOrDefault(settings.Model, settings.Provider, model.TierDefault),
		BaseURL: settings.BaseURL,
	})
	if err != nil {
		return err
	}
	thinkingClient, err := codeflow.NewClient(ctx, settings.Provider, codeflow.ProviderConfig{
		Model:   modelOrDefault(settings.ModelThinking, settings.Provider, model.TierThinking),
		BaseURL: settings.BaseURL,
	})
	if err != nil {
		return err
	}
	fastClient, err := codeflow.NewClient(ctx, settings.Provider, codeflow.ProviderConfig{
		Model:   modelOrDefault(settings.ModelFast, settings.Provider, model.TierFast),
		BaseURL: settings.BaseURL,
	})
	if err != nil {
		return err
	}

	prompts := prompt.NewLoader(".")
	exec := codeflow.NewExecutor(baseClient, prompts, settings.CallTimeout).
		WithClientFor(codeflow.TemplateAnalyze, thinkingClient).
		WithClientFor(codeflow.TemplateReview, thinkingClient).
		WithClientFor(codeflow.TemplateDocs, fastClient).
		WithClientFor(codeflow.TemplateTests, fastClient).
		WithClientFor(codeflow.TemplateDeploy, fastClient)

	notifiers := []event.Notifier{event.NewLogNotifier(slog.Default())}
	if settings.WebhookURL != "" {
		notifiers = append(notifiers, event.NewWebhookNotifier(settings.WebhookURL, nil))
	}
	if settings.SlackWebhook != "" {
		notifiers = append(notifiers, event.NewSlackNotifier(settings.SlackWebhook))
	}

	artifacts := artifact.NewManager(settings.ArtifactsDir)
	transcripts, err := transcript.NewFileStore(transcript.StoreConfig{BaseDir: settings.ArtifactsDir})
	if err != nil {
		return fmt.Errorf("initializing transcript store: %w", err)
	}

	ctx = codeflow.WithExecutor(ctx, exec)
	ctx = codeflow.WithArtifacts(ctx, artifacts)
	ctx = codeflow.WithTranscripts(ctx, transcripts)
	ctx = event.WithNotifier(ctx, event.NewMultiNotifier(notifiers...))

	startedAt := time.Now()
	state, runErr := codeflow.Run(ctx, raw, codeflow.Config{
		FlowID:        settings.FlowID,
		MaxIterations: settings.MaxIterations,
		RetryAttempts: settings.RetryAttempts,
	})

	if state.RunID != "" {
		status := string(state.Phase)
		if runErr != nil {
			status = "failed"
		}
		meta := artifact.RunMeta{
			RunID:      state.RunID,
			FlowID:     state.FlowID,
			Status:     status,
			Iterations: state.Iterations,
			Degraded:   state.Degraded,
			StartedAt:  startedAt,
			EndedAt:    time.Now(),
		}
		if err := artifacts.SaveMeta(meta); err != nil {
			slog.Warn("saving run metadata failed", "error", err)
		}

		report := codeflow.Report(state)
		if err := artifacts.SaveReport(state.RunID, report); err != nil {
			slog.Warn("saving report failed", "error", err)
		}
		if noReport, _ := cmd.Flags().GetBool("no-report"); !noReport {
			fmt.Fprintln(cmd.OutOrStdout(), report)
		}
		slog.Info("artifacts written", "dir", artifacts.RunDir(state.RunID))
	}

	return runErr
}

func readRequirement(cmd *cobra.Command, args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	if file, _ := cmd.Flags().GetString("file"); file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("reading requirement file: %w", err)
		}
		return string(data), nil
	}

	stat, err := os.Stdin.Stat()
	if err == nil && stat.Mode()&os.ModeCharDevice == 0 {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("reading requirement from stdin: %w", err)
		}
		return string(data), nil
	}

	return "", fmt.Errorf("no requirement given: pass it as an argument, via --file, or on stdin")
}

func resolveSettings(cmd *cobra.Command) (config.Settings, error) {
	flags := map[string]string{}
	if v, _ := cmd.Flags().GetString("provider"); v != "" {
		flags[config.KeyProvider] = v
	}
	if v, _ := cmd.Flags().GetString("model"); v != "" {
		flags[config.KeyModel] = v
	}
	if v, _ := cmd.Flags().GetInt("max-iterations"); v > 0 {
		flags[config.KeyMaxIterations] = fmt.Sprint(v)
	}
	if v, _ := cmd.Flags().GetString("artifacts-dir"); v != "" {
		flags[config.KeyArtifactsDir] = v
	}
	if v, _ := cmd.Flags().GetString("webhook-url"); v != "" {
		flags[config.KeyWebhookURL] = v
	}

	resolver := config.NewResolver()
	resolved := resolver.ResolveWithFlags(flags)
	settings, err := resolved.Parse()
	if err != nil {
		return settings, err
	}
	settings.Provider = strings.ToLower(settings.Provider)
	return settings, nil
}

func modelOrDefault(configured, provider string, tier model.Tier) string {
	if configured != "" {
		return configured
	}
	return codeflow.DefaultModelForTier(provider, tier)
}
