package builder

import (
	"context"
	"log/slog"
	"path/filepath"
	"sort"

	"github.com/Aman-CERP/scribeindex/internal/index"
	"github.com/Aman-CERP/scribeindex/internal/scanner"
	"github.com/Aman-CERP/scribeindex/internal/watcher"
)

// Coordinator turns watcher batches into index updates.
type Coordinator struct {
	o *Orchestrator
}

// NewCoordinator creates a Coordinator driving o.
func NewCoordinator(o *Orchestrator) *Coordinator {
	return &Coordinator{o: o}
}

// Run applies batches until ctx is done or events is closed.
func (c *Coordinator) Run(ctx context.Context, events <-chan []watcher.FileEvent) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case batch, ok := <-events:
			if !ok {
				return nil
			}
			c.HandleBatch(ctx, batch)
		}
	}
}

// HandleBatch groups a batch by tool and updates each tool's index,
// either incrementally or with a full rebuild. Failures are logged and
// returned in the results; they never stop the remaining tools.
func (c *Coordinator) HandleBatch(ctx context.Context, batch []watcher.FileEvent) []*BuildResult {
	byTool := make(map[string][]watcher.FileEvent)
	for _, ev := range batch {
		if ev.Tool == "" {
			continue
		}
		byTool[ev.Tool] = append(byTool[ev.Tool], ev)
	}
	tools := make([]string, 0, len(byTool))
	for tool := range byTool {
		tools = append(tools, tool)
	}
	sort.Strings(tools)

	var results []*BuildResult
	for _, tool := range tools {
		if ctx.Err() != nil {
			break
		}
		if res := c.handleTool(ctx, tool, byTool[tool]); res != nil {
			results = append(results, res)
		}
	}
	return results
}

func (c *Coordinator) handleTool(ctx context.Context, tool string, events []watcher.FileEvent) *BuildResult {
	rebuild := !c.o.cfg.EnableIncrementalUpdates
	if !rebuild {
		should, err := c.o.ShouldRebuild(tool, len(events))
		if err != nil {
			slog.Warn("watch_threshold_check_failed",
				slog.String("tool", tool),
				slog.String("error", err.Error()))
		}
		rebuild = should || err != nil
	}

	if rebuild {
		slog.Info("watch_rebuild",
			slog.String("tool", tool),
			slog.Int("events", len(events)))
		res, err := c.o.Rebuild(ctx, tool)
		if err != nil {
			slog.Warn("watch_rebuild_failed",
				slog.String("tool", tool),
				slog.String("error", err.Error()))
		}
		return res
	}

	changes, err := c.changesFor(ctx, tool, events)
	if err != nil {
		slog.Warn("watch_changes_failed",
			slog.String("tool", tool),
			slog.String("error", err.Error()))
		return nil
	}
	if len(changes) == 0 {
		return nil
	}

	slog.Info("watch_incremental_update",
		slog.String("tool", tool),
		slog.Int("changes", len(changes)))
	res, err := c.o.IncrementalUpdate(ctx, tool, changes)
	if err != nil {
		slog.Warn("watch_update_failed",
			slog.String("tool", tool),
			slog.String("error", err.Error()))
	}
	return res
}

// changesFor maps events onto the stored index by source path. Files that
// fail to process are logged and skipped, as are files excluded by the
// tool's ignore file.
func (c *Coordinator) changesFor(ctx context.Context, tool string, events []watcher.FileEvent) ([]index.Change, error) {
	idx, err := c.o.store.LoadOrEmpty(tool)
	if err != nil {
		return nil, err
	}

	dir := ContentDir(c.o.projectDir, tool)
	ignore, err := scanner.LoadIgnoreFile(filepath.Join(dir, scanner.IgnoreFileName))
	if err != nil {
		return nil, err
	}

	var changes []index.Change
	for _, ev := range events {
		id, known := idx.FindBySourcePath(ev.Path)

		if ev.Operation == watcher.OpDelete {
			if known {
				changes = append(changes, index.RemoveDocument(id))
			}
			continue
		}

		if rel, relErr := filepath.Rel(dir, ev.Path); relErr == nil && ignore.Match(rel, false) {
			continue
		}

		entry, err := c.o.EntryFromFile(ctx, tool, ev.Path)
		if err != nil {
			slog.Warn("file_processing_failed",
				slog.String("tool", tool),
				slog.String("path", ev.Path),
				slog.String("error", err.Error()))
			continue
		}
		if known {
			changes = append(changes, index.UpdateDocument(id, entry))
		} else {
			changes = append(changes, index.AddDocument(entry))
		}
	}
	return changes, nil
}
