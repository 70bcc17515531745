// Package cmd provides the CLI commands for scribeindex.
package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/scribeindex/internal/builder"
	"github.com/Aman-CERP/scribeindex/internal/config"
	ierrors "github.com/Aman-CERP/scribeindex/internal/errors"
	"github.com/Aman-CERP/scribeindex/internal/history"
	"github.com/Aman-CERP/scribeindex/internal/logging"
	"github.com/Aman-CERP/scribeindex/internal/metrics"
	"github.com/Aman-CERP/scribeindex/internal/profiling"
	"github.com/Aman-CERP/scribeindex/internal/ui"
	"github.com/Aman-CERP/scribeindex/pkg/version"
)

// Global flags
var (
	projectFlag    string
	debugMode      bool
	plainMode      bool
	noColorMode    bool
	loggingCleanup func()
)

// Profiling flags
var (
	profileCPU   string
	profileMem   string
	profileTrace string
	profiler     *profiling.Session
)

// NewRootCmd creates the root command for the scribeindex CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scribeindex",
		Short: "Build and maintain search indexes over writing-tool content",
		Long: `scribeindex turns the files under content/<tool>/ into an inverted
search index per tool, stored under index/<tool>_index.json.

Indexes can be built once, kept current with incremental updates or
watch mode, validated, merged, and served to AI assistants over MCP.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetVersionTemplate("scribeindex version {{.Version}}\n")

	cmd.PersistentFlags().StringVarP(&projectFlag, "project", "p", ".", "Project directory containing content/ and index/")
	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging to stderr and the log file")
	cmd.PersistentFlags().BoolVar(&plainMode, "plain", false, "Disable the interactive progress display")
	cmd.PersistentFlags().BoolVar(&noColorMode, "no-color", false, "Disable colored output")

	cmd.PersistentFlags().StringVar(&profileCPU, "profile-cpu", "", "Write CPU profile to file")
	cmd.PersistentFlags().StringVar(&profileMem, "profile-mem", "", "Write memory profile to file")
	cmd.PersistentFlags().StringVar(&profileTrace, "profile-trace", "", "Write execution trace to file")

	cmd.PersistentPreRunE = startProfilingAndLogging
	cmd.PersistentPostRunE = stopProfilingAndLogging

	cmd.AddCommand(newBuildCmd())
	cmd.AddCommand(newBuildAllCmd())
	cmd.AddCommand(newRebuildCmd())
	cmd.AddCommand(newUpdateCmd())
	cmd.AddCommand(newValidateCmd())
	cmd.AddCommand(newMergeCmd())
	cmd.AddCommand(newCleanupCmd())
	cmd.AddCommand(newStatsCmd())
	cmd.AddCommand(newHistoryCmd())
	cmd.AddCommand(newBackupsCmd())
	cmd.AddCommand(newRestoreCmd())
	cmd.AddCommand(newWatchCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newInitCmd())
	cmd.AddCommand(newLogsCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command and prints any error to stderr.
func Execute() error {
	err := NewRootCmd().Execute()
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, ierrors.FormatForCLI(err))
	}
	return err
}

// startProfilingAndLogging starts any requested profiles, then logging.
func startProfilingAndLogging(cmd *cobra.Command, args []string) error {
	// A failed earlier run in this process skips the post hook.
	_ = profiler.Stop()
	profiler = nil

	opts := profiling.Options{CPU: profileCPU, Heap: profileMem, Trace: profileTrace}
	if opts.Enabled() {
		s, err := profiling.Start(opts)
		if err != nil {
			return err
		}
		profiler = s
	}
	return startLogging(cmd, args)
}

// stopProfilingAndLogging flushes profiles and closes the log file.
func stopProfilingAndLogging(cmd *cobra.Command, args []string) error {
	err := profiler.Stop()
	profiler = nil
	if logErr := stopLogging(cmd, args); logErr != nil && err == nil {
		err = logErr
	}
	if err != nil {
		return fmt.Errorf("failed to write profile: %w", err)
	}
	return nil
}

// startLogging configures slog from the project configuration. Without a
// log file or --debug only warnings reach stderr, keeping stdout clean
// for MCP and command output.
func startLogging(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load(projectDir())
	if err != nil {
		// Commands report configuration errors themselves.
		cfg = config.NewConfig()
	}

	logCfg := logging.Config{
		Level:     cfg.Server.LogLevel,
		FilePath:  cfg.Logging.File,
		MaxSizeMB: cfg.Logging.MaxSizeMB,
		MaxFiles:  cfg.Logging.MaxFiles,
	}
	switch {
	case debugMode:
		logCfg.Level = "debug"
		logCfg.WriteToStderr = true
		if logCfg.FilePath == "" {
			logCfg.FilePath = logging.DefaultLogPath()
		}
	case logCfg.FilePath == "":
		logCfg.Level = "warn"
		logCfg.WriteToStderr = true
	}

	cleanup, err := logging.SetupDefault(logCfg)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	loggingCleanup = cleanup
	slog.Debug("logging_configured",
		slog.String("level", logCfg.Level),
		slog.String("log_file", logCfg.FilePath),
		slog.String("version", version.Version))
	return nil
}

func stopLogging(_ *cobra.Command, _ []string) error {
	if loggingCleanup != nil {
		loggingCleanup()
		loggingCleanup = nil
	}
	return nil
}

// projectDir resolves --project to an absolute path.
func projectDir() string {
	dir := projectFlag
	if dir == "" {
		dir = "."
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return dir
	}
	return abs
}

// app bundles what most commands need for one invocation.
type app struct {
	dir     string
	cfg     *config.Config
	orch    *builder.Orchestrator
	history *history.Store
	metrics *metrics.Recorder
}

// openApp loads configuration and wires an Orchestrator with history and
// metrics. Close must be called when done.
func openApp(reporter builder.ProgressReporter) (*app, error) {
	dir := projectDir()
	cfg, err := config.Load(dir)
	if err != nil {
		return nil, err
	}

	a := &app{dir: dir, cfg: cfg, metrics: metrics.New()}

	deps := builder.Dependencies{
		ProjectDir: dir,
		Config:     &cfg.Builder,
		Tools:      cfg.Tools,
		Metrics:    a.metrics,
		Reporter:   reporter,
	}
	if cfg.History.Enabled {
		h, err := history.Open(cfg.HistoryPath(builder.IndexDir(dir)))
		if err != nil {
			slog.Warn("history_unavailable", slog.String("error", err.Error()))
		} else {
			a.history = h
			deps.History = h
		}
	}

	orch, err := builder.New(deps)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.orch = orch
	return a, nil
}

// Close releases the history database.
func (a *app) Close() {
	if a.history != nil {
		_ = a.history.Close()
	}
}

// newRenderer picks the progress renderer for cmd's output.
func newRenderer(cmd *cobra.Command) ui.Renderer {
	return ui.NewRenderer(ui.NewConfig(cmd.OutOrStdout(),
		ui.WithForcePlain(plainMode),
		ui.WithNoColor(noColorMode || ui.DetectNoColor()),
		ui.WithProjectDir(projectDir()),
	))
}
