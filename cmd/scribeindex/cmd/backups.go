package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/scribeindex/internal/config"
)

func newBackupsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backups <tool>",
		Short: "List backups of a tool's index, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.ValidateToolName(args[0]); err != nil {
				return err
			}
			a, err := openApp(nil)
			if err != nil {
				return err
			}
			defer a.Close()

			backups, err := a.orch.Store().ListBackups(args[0])
			if err != nil {
				return err
			}
			if len(backups) == 0 {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "No backups for %s.\n", args[0])
				return nil
			}
			for _, b := range backups {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), filepath.Base(b))
			}
			return nil
		},
	}
}

func newRestoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restore <tool> <backup>",
		Short: "Replace a tool's index with one of its backups",
		Long: `Restore index/<tool>.json from a backup listed by "scribeindex backups".
The backup may be given as a file name or a path.`,
		Args: cobra.ExactArgs(2),
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

			st := a.orch.Store()
			backup := args[1]
			if !filepath.IsAbs(backup) && filepath.Dir(backup) == "." {
				backup = filepath.Join(st.Dir(), backup)
			}

			release, err := st.LockTool(cmd.Context(), tool)
			if err != nil {
				return err
			}
			defer release()

			if err := st.RestoreBackup(tool, backup); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Restored %s from %s\n", tool, filepath.Base(backup))
			return nil
		},
	}
}
