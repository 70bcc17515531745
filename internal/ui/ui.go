// Package ui renders build progress in the terminal: a plain line-based
// renderer for pipes and CI, and a bubbletea TUI for interactive use.
package ui

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/Aman-CERP/scribeindex/internal/builder"
)

// ProgressEvent is one progress update for a tool build.
type ProgressEvent struct {
	Tool        string
	Phase       builder.Phase
	Current     int
	Total       int
	CurrentFile string
	Message     string
}

// ErrorEvent is a file error or warning raised during a build.
type ErrorEvent struct {
	Tool   string
	File   string
	Err    error
	IsWarn bool
}

// CompletionStats summarizes a finished run of one or more builds.
type CompletionStats struct {
	Tools     int
	Failed    int
	Files     int
	Documents int
	SizeBytes int64
	Duration  time.Duration
	Errors    int
	Warnings  int
}

// Summarize folds build results into CompletionStats.
func Summarize(results []*builder.BuildResult) CompletionStats {
	var s CompletionStats
	for _, r := range results {
		if r == nil {
			continue
		}
		s.Tools++
		if !r.Success {
			s.Failed++
		}
		s.Files += r.Statistics.FilesProcessed
		s.Documents += r.Statistics.ItemsIndexed
		s.SizeBytes += r.Statistics.IndexSizeBytes
		s.Duration += r.Duration
		s.Errors += len(r.Errors)
		s.Warnings += len(r.Warnings)
	}
	return s
}

// Renderer displays build progress.
type Renderer interface {
	// Start initializes the renderer.
	Start(ctx context.Context) error

	// UpdateProgress updates the progress display.
	UpdateProgress(event ProgressEvent)

	// AddError records an error or warning.
	AddError(event ErrorEvent)

	// Complete shows the final summary.
	Complete(stats CompletionStats)

	// Stop stops the renderer and restores the terminal.
	Stop() error
}

// Config configures a renderer.
type Config struct {
	Output     io.Writer
	ForcePlain bool
	NoColor    bool
	ProjectDir string
}

// ConfigOption modifies Config.
type ConfigOption func(*Config)

// WithForcePlain forces plain text output.
func WithForcePlain(force bool) ConfigOption {
	return func(c *Config) {
		c.ForcePlain = force
	}
}

// WithNoColor disables color output.
func WithNoColor(noColor bool) ConfigOption {
	return func(c *Config) {
		c.NoColor = noColor
	}
}

// WithProjectDir sets the project directory shown in the TUI header.
func WithProjectDir(dir string) ConfigOption {
	return func(c *Config) {
		c.ProjectDir = dir
	}
}

// NewConfig creates a Config writing to output.
func NewConfig(output io.Writer, opts ...ConfigOption) Config {
	cfg := Config{Output: output}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// NewRenderer returns a TUI renderer for interactive terminals and a
// plain renderer for pipes, CI, or when plain output is forced.
func NewRenderer(cfg Config) Renderer {
	if cfg.ForcePlain || !IsTTY(cfg.Output) || DetectCI() {
		return NewPlainRenderer(cfg)
	}

	tui, err := NewTUIRenderer(cfg)
	if err != nil {
		return NewPlainRenderer(cfg)
	}
	return tui
}

// IsTTY checks if output is a terminal.
func IsTTY(w io.Writer) bool {
	if w == nil {
		return false
	}
	if f, ok := w.(*os.File); ok {
		return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return false
}

// DetectNoColor checks if the NO_COLOR environment variable is set.
func DetectNoColor() bool {
	_, exists := os.LookupEnv("NO_COLOR")
	return exists
}

// DetectCI checks if running in a CI environment.
func DetectCI() bool {
	ciVars := []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL", "TRAVIS"}
	for _, v := range ciVars {
		if _, exists := os.LookupEnv(v); exists {
			return true
		}
	}
	return false
}
