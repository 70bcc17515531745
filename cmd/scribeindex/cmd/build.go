package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/scribeindex/internal/builder"
	"github.com/Aman-CERP/scribeindex/internal/ui"
)

func newBuildCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "build <tool>",
		Short: "Build the index for one tool",
		Long: `Scan content/<tool>/, extract every supported file, and write
index/<tool>.json. Files that fail to process are reported and skipped.`,
		Example: `  scribeindex build notes
  scribeindex build codex --plain`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuilds(cmd, func(ctx context.Context, o *builder.Orchestrator) ([]*builder.BuildResult, error) {
				res, _ := o.BuildTool(ctx, args[0])
				return []*builder.BuildResult{res}, nil
			})
		},
	}
}

func newBuildAllCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "build-all",
		Short: "Build the index of every configured tool",
		Long: `Build each tool listed under "tools" in the configuration. A tool
that fails does not stop the others; the command exits non-zero if any
failed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBuilds(cmd, func(ctx context.Context, o *builder.Orchestrator) ([]*builder.BuildResult, error) {
				return o.BuildAll(ctx), nil
			})
		},
	}
}

func newRebuildCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rebuild <tool>",
		Short: "Back up and rebuild the index for one tool",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuilds(cmd, func(ctx context.Context, o *builder.Orchestrator) ([]*builder.BuildResult, error) {
				res, _ := o.Rebuild(ctx, args[0])
				return []*builder.BuildResult{res}, nil
			})
		},
	}
}

// buildFunc runs one or more builds. A non-nil error means nothing ran.
type buildFunc func(context.Context, *builder.Orchestrator) ([]*builder.BuildResult, error)

// runBuilds runs fn with a progress renderer attached and fails when any
// returned build failed.
func runBuilds(cmd *cobra.Command, fn buildFunc) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := openApp(nil)
	if err != nil {
		return err
	}
	defer a.Close()

	renderer := newRenderer(cmd)
	if err := renderer.Start(ctx); err != nil {
		return fmt.Errorf("failed to start progress display: %w", err)
	}
	a.orch.SetReporter(ui.Bridge(renderer))

	results, err := fn(ctx, a.orch)
	if err != nil {
		_ = renderer.Stop()
		return err
	}

	renderer.Complete(ui.Summarize(results))
	_ = renderer.Stop()

	return failedBuilds(results)
}

// failedBuilds returns an error naming the failed tools, if any.
func failedBuilds(results []*builder.BuildResult) error {
	var failed []string
	for _, r := range results {
		if r != nil && !r.Success {
			failed = append(failed, r.ToolType)
		}
	}
	switch len(failed) {
	case 0:
		return nil
	case 1:
		return fmt.Errorf("build failed for %s", failed[0])
	default:
		return fmt.Errorf("%d builds failed: %v", len(failed), failed)
	}
}
