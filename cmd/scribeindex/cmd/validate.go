package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newValidateCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "validate <tool>",
		Short: "Check a tool's index for corruption",
		Long: `Load index/<tool>_index.json and verify that it holds documents or
postings, that each document record is stored under its own id, and that
every posting points at an existing document. The index is never
modified; rebuild it if validation fails.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(nil)
			if err != nil {
				return err
			}
			defer a.Close()

			report, err := a.orch.Validate(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Index %s is valid: %d documents, %d terms, %d postings\n",
				report.ToolType, report.Documents, report.Terms, report.Postings)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the report as JSON")
	return cmd
}

func newCleanupCmd() *cobra.Command {
	var maxAgeDays int

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Remove old index files",
		Long: `Delete *.json index files under index/ whose modification time is
older than --max-age-days. Backups (*.json.bak.<timestamp>) are left alone;
they are pruned to builder.max_backups on every rebuild. Does nothing when
builder.cleanup_old_indexes is disabled.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if maxAgeDays < 0 {
				return fmt.Errorf("--max-age-days must be non-negative, got %d", maxAgeDays)
			}
			a, err := openApp(nil)
			if err != nil {
				return err
			}
			defer a.Close()

			removed, err := a.orch.CleanupOldIndexes(time.Duration(maxAgeDays) * 24 * time.Hour)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, path := range removed {
				_, _ = fmt.Fprintf(out, "removed %s\n", path)
			}
			_, _ = fmt.Fprintf(out, "Removed %d file(s)\n", len(removed))
			return nil
		},
	}

	cmd.Flags().IntVar(&maxAgeDays, "max-age-days", 30, "Remove files older than this many days")
	return cmd
}
