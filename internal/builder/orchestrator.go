// Package builder drives index builds: it scans a tool's content
// directory, processes files in bounded batches, assembles and optimizes
// the inverted index, validates it, and persists it. It also applies
// incremental change sets, merges indexes, and tracks live progress and
// per-tool statistics for every build it runs.
package builder

import (
	"context"
	"log/slog"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Aman-CERP/scribeindex/internal/config"
	"github.com/Aman-CERP/scribeindex/internal/content"
	ierrors "github.com/Aman-CERP/scribeindex/internal/errors"
	"github.com/Aman-CERP/scribeindex/internal/history"
	"github.com/Aman-CERP/scribeindex/internal/index"
	"github.com/Aman-CERP/scribeindex/internal/metrics"
	"github.com/Aman-CERP/scribeindex/internal/scanner"
	"github.com/Aman-CERP/scribeindex/internal/store"
)

// HistoryWriter persists finished builds.
type HistoryWriter interface {
	Append(ctx context.Context, r history.Record) error
}

// Dependencies configures an Orchestrator. Only ProjectDir is required.
type Dependencies struct {
	// ProjectDir holds content/<tool> directories and the index directory.
	ProjectDir string

	// Config is the builder configuration. Zero values fall back to
	// config.NewConfig defaults.
	Config *config.BuilderConfig

	// Tools is the tool list used by BuildAll.
	Tools []string

	Store     *store.Store
	Extractor content.Extractor
	Scanner   *scanner.Scanner
	History   HistoryWriter
	Metrics   *metrics.Recorder
	Reporter  ProgressReporter
}

// Orchestrator runs builds and owns their progress and statistics.
// It is safe for concurrent use.
type Orchestrator struct {
	projectDir string
	cfg        config.BuilderConfig
	tools      []string
	store      *store.Store
	extractor  content.Extractor
	scanner    *scanner.Scanner
	entries    *index.EntryBuilder
	history    HistoryWriter
	metrics    *metrics.Recorder
	reporter   ProgressReporter

	mu     sync.RWMutex
	active map[string]*buildState
	stats  map[string]BuildStatistics
}

// buildState is the mutable record behind one active build.
type buildState struct {
	mu       sync.Mutex
	progress BuildProgress
	cancel   context.CancelFunc
	peakMB   float64
}

// New creates an Orchestrator.
func New(deps Dependencies) (*Orchestrator, error) {
	if deps.ProjectDir == "" {
		return nil, ierrors.InvalidConfig("project directory is required")
	}

	defaults := config.NewConfig()
	cfg := defaults.Builder
	if deps.Config != nil {
		cfg = *deps.Config
	}
	probe := *defaults
	probe.Builder = cfg
	if err := probe.Validate(); err != nil {
		return nil, err
	}

	tools := deps.Tools
	if len(tools) == 0 {
		tools = config.DefaultTools
	}

	o := &Orchestrator{
		projectDir: deps.ProjectDir,
		cfg:        cfg,
		tools:      append([]string(nil), tools...),
		store:      deps.Store,
		extractor:  deps.Extractor,
		scanner:    deps.Scanner,
		entries:    index.NewEntryBuilder(),
		history:    deps.History,
		metrics:    deps.Metrics,
		reporter:   deps.Reporter,
		active:     make(map[string]*buildState),
		stats:      make(map[string]BuildStatistics),
	}

	if o.store == nil {
		o.store = store.New(IndexDir(deps.ProjectDir), store.WithMaxBackups(cfg.MaxBackups))
	}
	if o.scanner == nil {
		o.scanner = scanner.New()
	}
	if o.extractor == nil {
		ext, err := content.NewCachedProcessor(content.NewProcessor(), cfg.ContentCacheSize)
		if err != nil {
			return nil, ierrors.InternalError("failed to create content cache", err)
		}
		if cached, ok := ext.(*content.CachedProcessor); ok && o.metrics != nil {
			cached.Observe(o.metrics.CacheLookup)
		}
		o.extractor = ext
	}

	return o, nil
}

// ContentDir returns the content directory for tool under projectDir.
func ContentDir(projectDir, tool string) string {
	return filepath.Join(projectDir, "content", tool)
}

// IndexDir returns the index directory under projectDir.
func IndexDir(projectDir string) string {
	return filepath.Join(projectDir, "index")
}

// Store returns the index store.
func (o *Orchestrator) Store() *store.Store {
	return o.store
}

// Tools returns the tool list used by BuildAll.
func (o *Orchestrator) Tools() []string {
	return append([]string(nil), o.tools...)
}

// Config returns the builder configuration.
func (o *Orchestrator) Config() config.BuilderConfig {
	return o.cfg
}

// SetReporter replaces the progress callback.
func (o *Orchestrator) SetReporter(r ProgressReporter) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.reporter = r
}

// Progress returns a copy of an active build's progress.
func (o *Orchestrator) Progress(buildID string) (BuildProgress, bool) {
	o.mu.RLock()
	st, ok := o.active[buildID]
	o.mu.RUnlock()
	if !ok {
		return BuildProgress{}, false
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.progress.clone(), true
}

// ActiveBuilds returns copies of all active builds ordered by start time.
func (o *Orchestrator) ActiveBuilds() []BuildProgress {
	o.mu.RLock()
	states := make([]*buildState, 0, len(o.active))
	for _, st := range o.active {
		states = append(states, st)
	}
	o.mu.RUnlock()

	out := make([]BuildProgress, 0, len(states))
	for _, st := range states {
		st.mu.Lock()
		out = append(out, st.progress.clone())
		st.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartTime.Equal(out[j].StartTime) {
			return out[i].BuildID < out[j].BuildID
		}
		return out[i].StartTime.Before(out[j].StartTime)
	})
	return out
}

// Cancel stops an active build. Its progress is marked failed and
// dropped; files already written are left in place.
func (o *Orchestrator) Cancel(buildID string) error {
	o.mu.Lock()
	st, ok := o.active[buildID]
	if ok {
		delete(o.active, buildID)
	}
	o.mu.Unlock()
	if !ok {
		return ierrors.New(ierrors.ErrCodeBuildNotFound, "no active build "+buildID, nil).
			WithDetail("build_id", buildID)
	}

	st.mu.Lock()
	st.progress.Phase = PhaseFailed
	snapshot := st.progress.clone()
	cancel := st.cancel
	st.mu.Unlock()

	cancel()
	slog.Info("build_cancelled",
		slog.String("build_id", buildID),
		slog.String("tool", snapshot.ToolType))
	o.report(snapshot)
	return nil
}

// Statistics returns the last successful build statistics for tool.
func (o *Orchestrator) Statistics(tool string) (BuildStatistics, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	s, ok := o.stats[tool]
	return s, ok
}

// AllStatistics returns a copy of the statistics map.
func (o *Orchestrator) AllStatistics() map[string]BuildStatistics {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make(map[string]BuildStatistics, len(o.stats))
	for k, v := range o.stats {
		out[k] = v
	}
	return out
}

// begin registers a new build and returns its state and derived context.
func (o *Orchestrator) begin(ctx context.Context, op Operation, tool string) (*buildState, context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	st := &buildState{
		cancel: cancel,
		progress: BuildProgress{
			BuildID:   uuid.NewString(),
			Operation: op,
			Phase:     PhaseInitializing,
			ToolType:  tool,
			StartTime: time.Now(),
		},
	}

	o.mu.Lock()
	o.active[st.progress.BuildID] = st
	o.mu.Unlock()

	o.metrics.BuildStarted()
	slog.Info("build_started",
		slog.String("build_id", st.progress.BuildID),
		slog.String("operation", string(op)),
		slog.String("tool", tool))
	o.report(st.progress.clone())
	return st, ctx
}

// update mutates a build's progress and reports the result.
func (o *Orchestrator) update(st *buildState, fn func(p *BuildProgress)) {
	st.mu.Lock()
	fn(&st.progress)
	snapshot := st.progress.clone()
	st.mu.Unlock()
	o.report(snapshot)
}

// enterPhase moves a build to phase and samples memory.
func (o *Orchestrator) enterPhase(st *buildState, phase Phase) {
	o.sampleMemory(st)
	o.update(st, func(p *BuildProgress) {
		p.Phase = phase
		p.CurrentFile = ""
		if phase != PhaseProcessingContent {
			p.Percentage = phase.milestone()
		}
	})
	slog.Debug("build_phase",
		slog.String("build_id", st.progress.BuildID),
		slog.String("phase", phase.String()))
}

func (o *Orchestrator) report(p BuildProgress) {
	o.mu.RLock()
	r := o.reporter
	o.mu.RUnlock()
	if r != nil {
		r(p)
	}
}

// finish closes out a build: it records terminal state, statistics,
// metrics, and history, and removes the build from the active map.
func (o *Orchestrator) finish(ctx context.Context, st *buildState, res *BuildResult, buildErr error) {
	st.mu.Lock()
	if buildErr != nil {
		st.progress.Phase = PhaseFailed
	} else {
		st.progress.Phase = PhaseCompleted
		st.progress.Percentage = 100
	}
	st.progress.CurrentFile = ""
	res.BuildID = st.progress.BuildID
	res.Operation = st.progress.Operation
	res.ToolType = st.progress.ToolType
	res.Success = buildErr == nil
	res.CreatedAt = time.Now().UTC()
	res.Duration = time.Since(st.progress.StartTime)
	res.Errors = append(res.Errors, st.progress.Errors...)
	res.Warnings = append(res.Warnings, st.progress.Warnings...)
	res.Statistics.TotalBuildTime = res.Duration
	res.Statistics.PeakMemoryUsageMB = st.peakMB
	res.Statistics.ErrorsCount = len(res.Errors)
	res.Statistics.WarningsCount = len(res.Warnings)
	if res.Statistics.CompressionRatio == 0 {
		res.Statistics.CompressionRatio = 1.0
	}
	snapshot := st.progress.clone()
	st.mu.Unlock()
	st.cancel()

	o.mu.Lock()
	delete(o.active, res.BuildID)
	if res.Success && res.Operation != OpValidateIndex {
		o.stats[res.ToolType] = res.Statistics
	}
	o.mu.Unlock()

	o.report(snapshot)

	o.metrics.BuildFinished(metrics.BuildOutcome{
		Tool:      res.ToolType,
		Operation: string(res.Operation),
		Success:   res.Success,
		Duration:  res.Duration,
		Files:     res.Statistics.FilesProcessed,
		Errors:    res.Statistics.ErrorsCount,
		Documents: res.Statistics.ItemsIndexed,
		SizeBytes: res.Statistics.IndexSizeBytes,
	})

	if o.history != nil {
		rec := history.Record{
			BuildID:        res.BuildID,
			ToolType:       res.ToolType,
			Operation:      string(res.Operation),
			Success:        res.Success,
			FilesProcessed: res.Statistics.FilesProcessed,
			ItemsIndexed:   res.Statistics.ItemsIndexed,
			IndexSizeBytes: res.Statistics.IndexSizeBytes,
			ErrorsCount:    res.Statistics.ErrorsCount,
			WarningsCount:  res.Statistics.WarningsCount,
			Duration:       res.Duration,
			CreatedAt:      res.CreatedAt,
		}
		if err := o.history.Append(context.WithoutCancel(ctx), rec); err != nil {
			slog.Warn("history_write_failed",
				slog.String("build_id", res.BuildID),
				slog.String("error", err.Error()))
		}
	}

	if buildErr != nil {
		attrs := []any{
			slog.String("build_id", res.BuildID),
			slog.String("tool", res.ToolType),
			slog.String("operation", string(res.Operation)),
		}
		for _, a := range ierrors.LogAttrs(buildErr) {
			attrs = append(attrs, a)
		}
		slog.Error("build_failed", attrs...)
		return
	}
	slog.Info("build_completed",
		slog.String("build_id", res.BuildID),
		slog.String("tool", res.ToolType),
		slog.String("operation", string(res.Operation)),
		slog.Int("items_indexed", res.Statistics.ItemsIndexed),
		slog.Int("errors", res.Statistics.ErrorsCount),
		slog.Int("warnings", res.Statistics.WarningsCount),
		slog.Duration("duration", res.Duration))
}

// fail records a build-level error on the progress record.
func (o *Orchestrator) fail(st *buildState, phase Phase, path string, err error) {
	o.update(st, func(p *BuildProgress) {
		p.Errors = append(p.Errors, BuildError{
			Phase:       phase,
			FilePath:    path,
			Message:     err.Error(),
			Recoverable: ierrors.IsRecoverable(err),
		})
	})
}
