package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/scribeindex/internal/builder"
	ierrors "github.com/Aman-CERP/scribeindex/internal/errors"
	"github.com/Aman-CERP/scribeindex/internal/index"
)

func newUpdateCmd() *cobra.Command {
	var (
		adds    []string
		updates []string
		removes []string
	)

	cmd := &cobra.Command{
		Use:   "update <tool>",
		Short: "Apply incremental changes to a tool's index",
		Long: `Add, replace, or remove documents in an existing index without a
full rebuild. Changes are applied in the order add, update, remove.`,
		Example: `  scribeindex update notes --add content/notes/new.md
  scribeindex update notes --update 3f2a...=content/notes/a.md
  scribeindex update notes --remove 3f2a...`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tool := args[0]
			if len(adds)+len(updates)+len(removes) == 0 {
				return ierrors.New(ierrors.ErrCodeInvalidInput, "no changes given", nil).
					WithSuggestion("use --add, --update, or --remove")
			}
			return runBuilds(cmd, func(ctx context.Context, o *builder.Orchestrator) ([]*builder.BuildResult, error) {
				changes, err := parseChanges(ctx, o, tool, adds, updates, removes)
				if err != nil {
					return nil, err
				}
				res, _ := o.IncrementalUpdate(ctx, tool, changes)
				return []*builder.BuildResult{res}, nil
			})
		},
	}

	cmd.Flags().StringArrayVar(&adds, "add", nil, "File to add as a new document (repeatable)")
	cmd.Flags().StringArrayVar(&updates, "update", nil, "ID=FILE replacing document ID with FILE (repeatable)")
	cmd.Flags().StringArrayVar(&removes, "remove", nil, "Document ID to remove (repeatable)")

	return cmd
}

func parseChanges(ctx context.Context, o *builder.Orchestrator, tool string, adds, updates, removes []string) ([]index.Change, error) {
	changes := make([]index.Change, 0, len(adds)+len(updates)+len(removes))

	for _, path := range adds {
		entry, err := o.EntryFromFile(ctx, tool, path)
		if err != nil {
			return nil, err
		}
		changes = append(changes, index.AddDocument(entry))
	}
	for _, arg := range updates {
		id, path, ok := strings.Cut(arg, "=")
		if !ok || id == "" || path == "" {
			return nil, ierrors.New(ierrors.ErrCodeInvalidInput, fmt.Sprintf("invalid --update %q, want ID=FILE", arg), nil)
		}
		entry, err := o.EntryFromFile(ctx, tool, path)
		if err != nil {
			return nil, err
		}
		changes = append(changes, index.UpdateDocument(id, entry))
	}
	for _, id := range removes {
		changes = append(changes, index.RemoveDocument(id))
	}
	return changes, nil
}

func newMergeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "merge <target> <source>...",
		Short: "Merge the indexes of source tools into target",
		Long: `Copy every document of each source index into the target index,
keeping document ids. The target is created if it does not exist.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuilds(cmd, func(ctx context.Context, o *builder.Orchestrator) ([]*builder.BuildResult, error) {
				res, _ := o.MergeIndexes(ctx, args[0], args[1:]...)
				return []*builder.BuildResult{res}, nil
			})
		},
	}
}
