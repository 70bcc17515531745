package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/scribeindex/internal/config"
	"github.com/Aman-CERP/scribeindex/internal/history"
	"github.com/Aman-CERP/scribeindex/internal/ui"
)

func newStatsCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "stats <tool>",
		Short: "Show index status and the last recorded build",
		Long: `Show document, term, and posting counts of a tool's index together
with the most recent build recorded in the history ledger.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tool := args[0]
			if err := config.ValidateToolName(tool); err != nil {
				return err
			}
			a, err := openApp(nil)
			if err != nil {
				return err
			}
			defer a.Close()

			info, err := statusFor(cmd, a, tool)
			if err != nil {
				return err
			}

			r := ui.NewStatusRenderer(cmd.OutOrStdout(), noColorMode || ui.DetectNoColor())
			if jsonOutput {
				return r.RenderJSON(info)
			}
			return r.Render(info)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

// statusFor collects the persisted state of tool's index. Build
// statistics come from this process when present, otherwise from history.
func statusFor(cmd *cobra.Command, a *app, tool string) (ui.StatusInfo, error) {
	info := ui.StatusInfo{Tool: tool}
	st := a.orch.Store()

	if st.Exists(tool) {
		idx, err := st.Load(tool)
		if err != nil {
			return info, err
		}
		info.Exists = true
		info.Documents = idx.DocumentCount()
		info.Terms = idx.TermCount()
		info.Postings = idx.PostingCount()
		info.LastUpdated = idx.LastUpdated
		if fi, err := os.Stat(st.IndexPath(tool)); err == nil {
			info.SizeBytes = fi.Size()
		}
	}
	if backups, err := st.ListBackups(tool); err == nil {
		info.Backups = len(backups)
	}

	if stats, ok := a.orch.Statistics(tool); ok {
		info.LastBuild = &ui.LastBuild{
			Operation: "in-process",
			Success:   true,
			Duration:  stats.TotalBuildTime,
			Errors:    stats.ErrorsCount,
			Warnings:  stats.WarningsCount,
		}
		return info, nil
	}
	if a.history == nil {
		return info, nil
	}
	records, err := a.history.ForTool(cmd.Context(), tool, 1)
	if err != nil {
		return info, err
	}
	if len(records) > 0 {
		info.LastBuild = lastBuildFrom(records[0])
	}
	return info, nil
}

func lastBuildFrom(r history.Record) *ui.LastBuild {
	return &ui.LastBuild{
		BuildID:   r.BuildID,
		Operation: r.Operation,
		Success:   r.Success,
		Duration:  r.Duration,
		Errors:    r.ErrorsCount,
		Warnings:  r.WarningsCount,
		CreatedAt: r.CreatedAt,
	}
}

func newHistoryCmd() *cobra.Command {
	var (
		tool  string
		limit int
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded builds, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(nil)
			if err != nil {
				return err
			}
			defer a.Close()
			if a.history == nil {
				return fmt.Errorf("build history is disabled")
			}

			var records []history.Record
			if tool != "" {
				records, err = a.history.ForTool(cmd.Context(), tool, limit)
			} else {
				records, err = a.history.Recent(cmd.Context(), limit)
			}
			if err != nil {
				return err
			}
			if len(records) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No builds recorded.")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "WHEN\tTOOL\tOPERATION\tSTATUS\tFILES\tDOCS\tERRORS\tDURATION")
			_, _ = fmt.Fprintln(w, "----\t----\t---------\t------\t-----\t----\t------\t--------")
			for _, r := range records {
				status := "ok"
				if !r.Success {
					status = "failed"
				}
				_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
					r.CreatedAt.Local().Format("2006-01-02 15:04:05"),
					r.ToolType, r.Operation, status,
					r.FilesProcessed, r.ItemsIndexed, r.ErrorsCount,
					r.Duration.Round(time.Millisecond))
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&tool, "tool", "", "Only show builds of this tool")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of builds to show")
	return cmd
}
