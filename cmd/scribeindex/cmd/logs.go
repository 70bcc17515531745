package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"regexp"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/scribeindex/internal/config"
	"github.com/Aman-CERP/scribeindex/internal/logging"
)

func newLogsCmd() *cobra.Command {
	var (
		follow  bool
		lines   int
		level   string
		filter  string
		logFile string
	)

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "View the scribeindex log file",
		Long: `Show the last lines of the JSON log written when logging.file is set
or --debug is used. Use -f to follow new entries.`,
		Example: `  scribeindex logs -n 100
  scribeindex logs --level warn
  scribeindex logs -f --filter build_`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := logFile
			if path == "" {
				if cfg, err := config.Load(projectDir()); err == nil && cfg.Logging.File != "" {
					path = cfg.Logging.File
				} else {
					path = logging.DefaultLogPath()
				}
			}

			var pattern *regexp.Regexp
			if filter != "" {
				var err error
				pattern, err = regexp.Compile(filter)
				if err != nil {
					return fmt.Errorf("invalid filter pattern: %w", err)
				}
			}

			viewer := logging.NewViewer(logging.ViewerConfig{
				Level:   level,
				Pattern: pattern,
				NoColor: noColorMode,
			}, cmd.OutOrStdout())

			if follow {
				ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
				defer stop()
				return followLog(ctx, cmd, viewer, path)
			}

			entries, err := viewer.Tail(path, lines)
			if err != nil {
				return err
			}
			viewer.Print(entries)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Follow log output (like tail -f)")
	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of lines to show")
	cmd.Flags().StringVar(&level, "level", "", "Minimum level to show (debug|info|warn|error)")
	cmd.Flags().StringVar(&filter, "filter", "", "Only show lines matching this regular expression")
	cmd.Flags().StringVar(&logFile, "file", "", "Log file to read")
	return cmd
}

func followLog(ctx context.Context, cmd *cobra.Command, viewer *logging.Viewer, path string) error {
	entries := make(chan logging.LogEntry, 100)
	errCh := make(chan error, 1)
	go func() {
		errCh <- viewer.Follow(ctx, path, entries)
	}()

	for {
		select {
		case entry := <-entries:
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), viewer.FormatEntry(entry))
		case err := <-errCh:
			return err
		case <-ctx.Done():
			return nil
		}
	}
}
