package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/scribeindex/internal/builder"
	"github.com/Aman-CERP/scribeindex/internal/config"
)

// ProjectConfigName is the file written by init.
const ProjectConfigName = ".scribeindex.yaml"

func newInitCmd() *cobra.Command {
	var (
		force bool
		tools []string
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a project layout and configuration",
		Long: `Write .scribeindex.yaml with default settings and create
content/<tool>/ for every tool plus the index/ directory. Existing
content is never touched.`,
		Example: `  scribeindex init
  scribeindex init --tools notes,plot
  scribeindex init --force`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dir := projectDir()
			path := filepath.Join(dir, ProjectConfigName)
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}

			cfg := config.NewConfig()
			if len(tools) > 0 {
				cfg.Tools = tools
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			for _, tool := range cfg.Tools {
				if err := os.MkdirAll(builder.ContentDir(dir, tool), 0o755); err != nil {
					return fmt.Errorf("failed to create content directory: %w", err)
				}
			}
			if err := os.MkdirAll(builder.IndexDir(dir), 0o755); err != nil {
				return fmt.Errorf("failed to create index directory: %w", err)
			}
			if err := cfg.WriteYAML(path); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "Wrote %s\n", path)
			for _, tool := range cfg.Tools {
				_, _ = fmt.Fprintf(out, "  content/%s/\n", tool)
			}
			_, _ = fmt.Fprintln(out, "\nAdd files, then run: scribeindex build-all")
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing configuration")
	cmd.Flags().StringSliceVar(&tools, "tools", nil, "Tools to configure (default: the built-in tool list)")
	return cmd
}
