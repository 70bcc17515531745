package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Aman-CERP/scribeindex/internal/builder"
	"github.com/Aman-CERP/scribeindex/internal/watcher"
)

func newWatchCmd() *cobra.Command {
	var forcePolling bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Keep indexes current as content files change",
		Long: `Watch content/ for created, modified, and deleted files and apply
each debounced batch to the affected tools' indexes. Large batches, or
any batch when incremental updates are disabled, trigger a full rebuild.

Stop with Ctrl+C.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runWatch(ctx, cmd.OutOrStdout(), forcePolling)
		},
	}

	cmd.Flags().BoolVar(&forcePolling, "poll", false, "Use polling instead of filesystem notifications")
	return cmd
}

func runWatch(ctx context.Context, out io.Writer, forcePolling bool) error {
	a, err := openApp(nil)
	if err != nil {
		return err
	}
	defer a.Close()

	debounce, err := a.cfg.Watch.DebounceDuration()
	if err != nil {
		return fmt.Errorf("invalid watch.debounce: %w", err)
	}

	w, err := watcher.NewContentWatcher(watcher.Options{
		DebounceWindow: debounce,
		ForcePolling:   forcePolling,
	})
	if err != nil {
		return err
	}
	root := filepath.Join(a.dir, "content")
	if err := w.Start(ctx, root); err != nil {
		return err
	}
	defer func() { _ = w.Stop() }()

	mode := "fsnotify"
	if !w.UsingFsnotify() {
		mode = "polling"
	}
	_, _ = fmt.Fprintf(out, "Watching %s (%s). Press Ctrl+C to stop.\n", root, mode)

	coord := builder.NewCoordinator(a.orch)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case batch, ok := <-w.Events():
				if !ok {
					return nil
				}
				for _, res := range coord.HandleBatch(gctx, batch) {
					printWatchResult(out, res)
				}
			}
		}
	})

	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case err, ok := <-w.Errors():
				if !ok {
					return nil
				}
				slog.Warn("watcher_error", slog.String("error", err.Error()))
			}
		}
	})

	err = g.Wait()
	_, _ = fmt.Fprintln(out, "Stopped.")
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func printWatchResult(out io.Writer, res *builder.BuildResult) {
	if res == nil {
		return
	}
	status := "ok"
	if !res.Success {
		status = "failed"
	}
	_, _ = fmt.Fprintf(out, "[%s] %s %s: %d documents, %d errors\n",
		res.ToolType, res.Operation, status, res.Statistics.ItemsIndexed, len(res.Errors))
	for _, e := range res.Errors {
		if e.FilePath != "" {
			_, _ = fmt.Fprintf(out, "  ERROR: %s: %s\n", e.FilePath, e.Message)
		} else {
			_, _ = fmt.Fprintf(out, "  ERROR: %s\n", e.Message)
		}
	}
}
