package builder

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Aman-CERP/scribeindex/internal/config"
	ierrors "github.com/Aman-CERP/scribeindex/internal/errors"
	"github.com/Aman-CERP/scribeindex/internal/index"
)

// EntryFromFile processes one file into an index entry for tool.
func (o *Orchestrator) EntryFromFile(ctx context.Context, tool, path string) (*index.IndexEntry, error) {
	pc, err := o.extractor.Process(ctx, path)
	if err != nil {
		return nil, err
	}
	return o.entries.Build(pc, tool), nil
}

// IncrementalUpdate loads the index for tool (or starts empty), applies
// changes in order, recomputes all postings, and persists the result.
func (o *Orchestrator) IncrementalUpdate(ctx context.Context, tool string, changes []index.Change) (*BuildResult, error) {
	st, ctx := o.begin(ctx, OpIncrementalUpdate, tool)
	res := &BuildResult{}
	err := o.applyUpdate(ctx, st, res, tool, changes)
	if err != nil {
		o.fail(st, st.currentPhase(), "", err)
	}
	o.finish(ctx, st, res, err)
	return res, err
}

func (o *Orchestrator) applyUpdate(ctx context.Context, st *buildState, res *BuildResult, tool string, changes []index.Change) error {
	if err := config.ValidateToolName(tool); err != nil {
		return err
	}
	unlock, err := o.store.LockTool(ctx, tool)
	if err != nil {
		return ierrors.Storage("failed to lock index for "+tool, err)
	}
	defer unlock()

	o.update(st, func(p *BuildProgress) {
		p.TotalItems = len(changes)
	})

	o.enterPhase(st, PhaseBuildingIndexes)
	idx, err := o.store.LoadOrEmpty(tool)
	if err != nil {
		return err
	}
	if err := index.ApplyChanges(idx, changes); err != nil {
		return ierrors.New(ierrors.ErrCodeInvalidInput, err.Error(), err)
	}
	o.update(st, func(p *BuildProgress) {
		p.ProcessedItems = len(changes)
	})

	if o.cfg.ValidateIndexIntegrity && idx.DocumentCount() > 0 {
		o.enterPhase(st, PhaseValidating)
		if err := index.Validate(idx); err != nil {
			return err
		}
	}

	o.enterPhase(st, PhaseFinalizing)
	if err := ctx.Err(); err != nil {
		return ierrors.Cancelled(st.progress.BuildID)
	}
	out, err := o.store.Save(idx)
	if err != nil {
		return err
	}

	res.OutputPath = out
	res.Statistics.FilesProcessed = len(changes)
	res.Statistics.ItemsIndexed = idx.DocumentCount()
	res.Statistics.IndexSizeBytes = index.EstimateSize(idx)
	res.Statistics.CompressionRatio = 1.0
	return nil
}

// MergeIndexes copies the documents of every source index into target,
// retagged with the target tool type, and persists the combined index.
// Document ids are preserved, so a document present in several indexes
// appears once.
func (o *Orchestrator) MergeIndexes(ctx context.Context, target string, sources ...string) (*BuildResult, error) {
	st, ctx := o.begin(ctx, OpMergeIndexes, target)
	res := &BuildResult{}
	err := o.merge(ctx, st, res, target, sources)
	if err != nil {
		o.fail(st, st.currentPhase(), "", err)
	}
	o.finish(ctx, st, res, err)
	return res, err
}

func (o *Orchestrator) merge(ctx context.Context, st *buildState, res *BuildResult, target string, sources []string) error {
	if len(sources) == 0 {
		return ierrors.New(ierrors.ErrCodeInvalidInput, "merge requires at least one source index", nil)
	}
	for _, t := range append([]string{target}, sources...) {
		if err := config.ValidateToolName(t); err != nil {
			return err
		}
	}

	unlock, err := o.store.LockTool(ctx, target)
	if err != nil {
		return ierrors.Storage("failed to lock index for "+target, err)
	}
	defer unlock()

	o.update(st, func(p *BuildProgress) {
		p.TotalItems = len(sources)
	})
	o.enterPhase(st, PhaseBuildingIndexes)
	dst, err := o.store.LoadOrEmpty(target)
	if err != nil {
		return err
	}
	merged := 0
	for i, src := range sources {
		if src == target {
			continue
		}
		idx, err := o.store.Load(src)
		if err != nil {
			return err
		}
		merged += index.Merge(dst, idx)
		o.update(st, func(p *BuildProgress) {
			p.ProcessedItems = i + 1
		})
	}
	dst.RebuildPostings()

	o.enterPhase(st, PhaseOptimizing)
	index.Optimize(dst, index.OptimizeOptions{
		Compress: o.cfg.EnableCompression,
		Stem:     o.cfg.EnableStemming,
	})

	o.enterPhase(st, PhaseValidating)
	if err := index.Validate(dst); err != nil {
		return err
	}

	o.enterPhase(st, PhaseFinalizing)
	out, err := o.store.Save(dst)
	if err != nil {
		return err
	}

	slog.Info("indexes_merged",
		slog.String("target", target),
		slog.Any("sources", sources),
		slog.Int("documents_merged", merged))

	res.OutputPath = out
	res.Statistics.ItemsIndexed = dst.DocumentCount()
	res.Statistics.IndexSizeBytes = index.EstimateSize(dst)
	res.Statistics.CompressionRatio = 1.0
	return nil
}

// Validate loads the persisted index for tool and checks its structure.
// It never repairs; callers decide whether to rebuild.
func (o *Orchestrator) Validate(ctx context.Context, tool string) (*ValidationReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := config.ValidateToolName(tool); err != nil {
		return nil, err
	}
	idx, err := o.store.Load(tool)
	if err != nil {
		return nil, err
	}
	if err := index.Validate(idx); err != nil {
		slog.Warn("index_validation_failed",
			slog.String("tool", tool),
			slog.String("error", err.Error()))
		return nil, err
	}
	return &ValidationReport{
		ToolType:    idx.ToolType,
		Documents:   idx.DocumentCount(),
		Terms:       idx.TermCount(),
		Postings:    idx.PostingCount(),
		LastUpdated: idx.LastUpdated,
	}, nil
}

// ShouldRebuild reports whether changeCount changes against tool's index
// reach the rebuild threshold. An index with no documents always
// rebuilds.
func (o *Orchestrator) ShouldRebuild(tool string, changeCount int) (bool, error) {
	idx, err := o.store.LoadOrEmpty(tool)
	if err != nil {
		return false, err
	}
	docs := idx.DocumentCount()
	if docs == 0 {
		return true, nil
	}
	return float64(changeCount)/float64(docs) >= o.cfg.RebuildThreshold, nil
}

// CleanupOldIndexes removes index files older than maxAge. It does
// nothing when cleanup is disabled in the configuration.
func (o *Orchestrator) CleanupOldIndexes(maxAge time.Duration) ([]string, error) {
	if !o.cfg.CleanupOldIndexes {
		slog.Info("index_cleanup_disabled")
		return nil, nil
	}
	if maxAge < 0 {
		return nil, ierrors.New(ierrors.ErrCodeInvalidInput, fmt.Sprintf("max age must be non-negative, got %s", maxAge), nil)
	}
	removed, err := o.store.CleanupOlderThan(maxAge)
	if err != nil {
		return nil, err
	}
	slog.Info("index_cleanup_completed",
		slog.Int("removed", len(removed)),
		slog.Duration("max_age", maxAge))
	return removed, nil
}
