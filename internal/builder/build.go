package builder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Aman-CERP/scribeindex/internal/config"
	"github.com/Aman-CERP/scribeindex/internal/content"
	ierrors "github.com/Aman-CERP/scribeindex/internal/errors"
	"github.com/Aman-CERP/scribeindex/internal/index"
	"github.com/Aman-CERP/scribeindex/internal/profiling"
	"github.com/Aman-CERP/scribeindex/internal/scanner"
)

// BuildTool scans, processes, and indexes the content directory of tool
// and persists the result. The returned result is never nil; err is set
// when the build failed.
func (o *Orchestrator) BuildTool(ctx context.Context, tool string) (*BuildResult, error) {
	return o.runFull(ctx, OpBuildToolIndex, tool, false)
}

// Rebuild is BuildTool preceded by a backup of the existing index file.
func (o *Orchestrator) Rebuild(ctx context.Context, tool string) (*BuildResult, error) {
	return o.runFull(ctx, OpRebuildIndex, tool, true)
}

// BuildAll builds every configured tool independently. A failing tool
// does not stop the others; results follow the tool order.
func (o *Orchestrator) BuildAll(ctx context.Context) []*BuildResult {
	results := make([]*BuildResult, 0, len(o.tools))
	for _, tool := range o.tools {
		res, err := o.runFull(ctx, OpBuildAllIndexes, tool, false)
		if err != nil {
			slog.Warn("tool_build_failed",
				slog.String("tool", tool),
				slog.String("error", err.Error()))
		}
		results = append(results, res)
	}
	return results
}

// fileOutcome is the processing result for one scanned file.
type fileOutcome struct {
	entry   *index.IndexEntry
	err     error
	elapsed time.Duration
}

func (o *Orchestrator) runFull(ctx context.Context, op Operation, tool string, backup bool) (*BuildResult, error) {
	st, ctx := o.begin(ctx, op, tool)
	res := &BuildResult{}
	err := o.fullBuild(ctx, st, res, tool, backup)
	if err != nil && ctx.Err() != nil && !ierrors.IsKind(err, ierrors.KindBuildCancelled) {
		err = ierrors.Cancelled(st.progress.BuildID)
	}
	if err != nil {
		o.fail(st, st.currentPhase(), "", err)
	}
	o.finish(ctx, st, res, err)
	return res, err
}

func (o *Orchestrator) fullBuild(ctx context.Context, st *buildState, res *BuildResult, tool string, backup bool) error {
	if err := config.ValidateToolName(tool); err != nil {
		return err
	}

	unlock, err := o.store.LockTool(ctx, tool)
	if err != nil {
		return ierrors.Storage("failed to lock index for "+tool, err)
	}
	defer unlock()

	// Scanning
	o.enterPhase(st, PhaseScanningFiles)
	dir := ContentDir(o.projectDir, tool)
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return ierrors.FileProcessing(dir, "tool directory not found: "+dir, err)
	}
	files, err := o.scanner.Collect(ctx, &scanner.ScanOptions{
		RootDir: dir,
		OnOversized: func(relPath string, size int64) {
			o.warn(st, fmt.Sprintf("skipped %s: %d bytes exceeds the %d byte file limit",
				relPath, size, scanner.DefaultMaxFileSize))
		},
	})
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ierrors.FileProcessing(dir, "failed to scan tool directory", err)
	}
	o.update(st, func(p *BuildProgress) {
		p.TotalFiles = len(files)
		p.TotalItems = len(files)
	})

	// Processing
	o.enterPhase(st, PhaseProcessingContent)
	entries, processingTime, err := o.processFiles(ctx, st, tool, files)
	if err != nil {
		return err
	}
	res.Statistics.FilesProcessed = len(files)
	if len(files) > 0 {
		res.Statistics.AverageProcessingTime = processingTime / time.Duration(len(files))
	}

	// Indexing
	o.enterPhase(st, PhaseBuildingIndexes)
	idx := index.Assemble(tool, entries)

	o.enterPhase(st, PhaseOptimizing)
	index.Optimize(idx, index.OptimizeOptions{
		Compress: o.cfg.EnableCompression,
		Stem:     o.cfg.EnableStemming,
	})

	o.enterPhase(st, PhaseValidating)
	if idx.DocumentCount() == 0 {
		o.warn(st, fmt.Sprintf("no documents indexed for %s", tool))
	} else if o.cfg.ValidateIndexIntegrity {
		if err := index.Validate(idx); err != nil {
			return err
		}
	}

	// Finalizing
	o.enterPhase(st, PhaseFinalizing)
	if err := ctx.Err(); err != nil {
		return err
	}
	if backup {
		path, err := o.store.Backup(tool)
		if err != nil {
			return err
		}
		if path != "" {
			slog.Info("index_backup_created", slog.String("tool", tool), slog.String("path", path))
		}
	}
	out, err := o.store.Save(idx)
	if err != nil {
		return err
	}

	o.sampleMemory(st)
	res.OutputPath = out
	res.Statistics.ItemsIndexed = idx.DocumentCount()
	res.Statistics.IndexSizeBytes = index.EstimateSize(idx)
	res.Statistics.CompressionRatio = 1.0
	return nil
}

// processFiles runs the extractor over files in batches of BatchSize.
// Within a batch up to MaxConcurrentFiles files run at once. Per-file
// failures are recorded and never stop the build. Entries keep scan order.
func (o *Orchestrator) processFiles(ctx context.Context, st *buildState, tool string, files []scanner.FileInfo) ([]*index.IndexEntry, time.Duration, error) {
	limit := 1
	if o.cfg.ParallelProcessing {
		limit = o.cfg.MaxConcurrentFiles
	}

	var (
		entries []*index.IndexEntry
		total   time.Duration
		done    int
		doneMu  sync.Mutex
	)

	for start := 0; start < len(files); start += o.cfg.BatchSize {
		end := min(start+o.cfg.BatchSize, len(files))
		batch := files[start:end]
		outcomes := make([]fileOutcome, len(batch))

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(limit)
		for i, f := range batch {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				began := time.Now()
				pc, err := o.extractor.Process(gctx, f.Path)
				if err == nil {
					outcomes[i].entry = o.entries.Build(pc, tool)
				} else {
					outcomes[i].err = err
				}
				outcomes[i].elapsed = time.Since(began)

				doneMu.Lock()
				done++
				n := done
				doneMu.Unlock()
				o.update(st, func(p *BuildProgress) {
					p.ProcessedItems = n
					p.CurrentFile = f.RelPath
					p.Percentage = percentage(n, p.TotalItems)
					p.EstimatedCompletion = estimate(p.StartTime, n, p.TotalItems)
				})
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, 0, err
		}
		if err := ctx.Err(); err != nil {
			return nil, 0, err
		}

		for i, out := range outcomes {
			if out.err != nil {
				if errors.Is(out.err, context.Canceled) {
					return nil, 0, out.err
				}
				o.recordFileFailure(st, batch[i].Path, out.err)
				continue
			}
			entries = append(entries, out.entry)
			total += out.elapsed
		}
		o.sampleMemory(st)
		slog.Debug("batch_processed",
			slog.String("build_id", st.progress.BuildID),
			slog.Int("start", start),
			slog.Int("size", len(batch)))
	}

	return entries, total, nil
}

// recordFileFailure logs a failed file and records it. Files without an
// extractor are warnings; everything else is an error.
func (o *Orchestrator) recordFileFailure(st *buildState, path string, err error) {
	slog.Warn("file_processing_failed",
		slog.String("build_id", st.progress.BuildID),
		slog.String("path", path),
		slog.String("error", err.Error()))

	if errors.Is(err, content.ErrNoProcessor) {
		o.warn(st, fmt.Sprintf("%s: %s", path, messageOf(err)))
		return
	}
	o.update(st, func(p *BuildProgress) {
		p.Errors = append(p.Errors, BuildError{
			Phase:       PhaseProcessingContent,
			FilePath:    path,
			Message:     messageOf(err),
			Recoverable: false,
		})
	})
}

func (o *Orchestrator) warn(st *buildState, msg string) {
	o.update(st, func(p *BuildProgress) {
		p.Warnings = append(p.Warnings, msg)
	})
}

// sampleMemory records peak heap usage and warns once when it exceeds
// the advisory limit.
func (o *Orchestrator) sampleMemory(st *buildState) {
	mb := profiling.HeapAllocMB()

	st.mu.Lock()
	first := st.peakMB <= float64(o.cfg.MemoryLimitMB)
	if mb > st.peakMB {
		st.peakMB = mb
	}
	exceeded := o.cfg.MemoryLimitMB > 0 && first && st.peakMB > float64(o.cfg.MemoryLimitMB)
	st.mu.Unlock()

	if exceeded {
		err := ierrors.New(ierrors.ErrCodeMemoryLimit,
			fmt.Sprintf("heap usage %.1f MB exceeds advisory limit %d MB", mb, o.cfg.MemoryLimitMB), nil)
		slog.Warn("memory_limit_exceeded",
			slog.String("build_id", st.progress.BuildID),
			slog.Float64("heap_mb", mb),
			slog.Int("limit_mb", o.cfg.MemoryLimitMB))
		o.warn(st, err.Error())
	}
}

func (st *buildState) currentPhase() Phase {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.progress.Phase
}

func percentage(done, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(done) / float64(total) * 100
}

// estimate extrapolates linearly from elapsed time and items done.
func estimate(start time.Time, done, total int) *time.Time {
	if done <= 0 || total <= 0 {
		return nil
	}
	elapsed := time.Since(start)
	eta := start.Add(time.Duration(float64(elapsed) / float64(done) * float64(total)))
	return &eta
}

// messageOf returns the message of an IndexError, or err.Error().
func messageOf(err error) string {
	if ie, ok := ierrors.As(err); ok {
		return ie.Message
	}
	return err.Error()
}
