package builder

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/scribeindex/internal/config"
	ierrors "github.com/Aman-CERP/scribeindex/internal/errors"
	"github.com/Aman-CERP/scribeindex/internal/history"
	"github.com/Aman-CERP/scribeindex/internal/metrics"
	"github.com/Aman-CERP/scribeindex/internal/scanner"
)

// writeContent creates project/content/<tool>/<name> with body.
func writeContent(t testing.TB, project, tool, name, body string) string {
	t.Helper()
	path := filepath.Join(ContentDir(project, tool), name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func testConfig() *config.BuilderConfig {
	cfg := config.NewConfig().Builder
	cfg.BatchSize = 2
	cfg.MaxConcurrentFiles = 2
	return &cfg
}

func newTestOrchestrator(t testing.TB, project string, mutate func(d *Dependencies)) *Orchestrator {
	t.Helper()
	deps := Dependencies{
		ProjectDir: project,
		Config:     testConfig(),
		Tools:      []string{"notes"},
	}
	if mutate != nil {
		mutate(&deps)
	}
	o, err := New(deps)
	require.NoError(t, err)
	return o
}

// fakeHistory collects appended records.
type fakeHistory struct {
	mu      sync.Mutex
	records []history.Record
}

func (f *fakeHistory) Append(_ context.Context, r history.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, r)
	return nil
}

func TestNew_RequiresProjectDir(t *testing.T) {
	_, err := New(Dependencies{})

	require.Error(t, err)
	assert.True(t, ierrors.IsKind(err, ierrors.KindInvalidConfiguration))
}

func TestNew_RejectsInvalidBuilderConfig(t *testing.T) {
	cfg := testConfig()
	cfg.BatchSize = 0

	_, err := New(Dependencies{ProjectDir: t.TempDir(), Config: cfg})

	require.Error(t, err)
	assert.True(t, ierrors.IsKind(err, ierrors.KindInvalidConfiguration))
}

func TestBuildTool_IndexesAllSupportedFiles(t *testing.T) {
	// Given: a notes directory with markdown, text and JSON content
	project := t.TempDir()
	writeContent(t, project, "notes", "a.md", "# Dragons\n\nDragons guard the mountain pass.")
	writeContent(t, project, "notes", "b.txt", "Harbor\nShips wait for morning tide.")
	writeContent(t, project, "notes", "sub/c.json", `{"title":"Council","content":"The council meets at dawn."}`)
	o := newTestOrchestrator(t, project, nil)

	// When: the tool is built
	res, err := o.BuildTool(context.Background(), "notes")

	// Then: every file is indexed and persisted
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.True(t, res.Success)
	assert.Equal(t, OpBuildToolIndex, res.Operation)
	assert.Equal(t, "notes", res.ToolType)
	assert.NotEmpty(t, res.BuildID)
	assert.Equal(t, 3, res.Statistics.FilesProcessed)
	assert.Equal(t, 3, res.Statistics.ItemsIndexed)
	assert.Greater(t, res.Statistics.IndexSizeBytes, int64(0))
	assert.InDelta(t, 1.0, res.Statistics.CompressionRatio, 1e-9)
	assert.Empty(t, res.Errors)
	assert.FileExists(t, res.OutputPath)

	idx, err := o.Store().Load("notes")
	require.NoError(t, err)
	assert.Equal(t, 3, idx.DocumentCount())
	assert.NotEmpty(t, idx.Lookup("dragons"))

	stats, ok := o.Statistics("notes")
	require.True(t, ok)
	assert.Equal(t, 3, stats.ItemsIndexed)
	assert.Empty(t, o.ActiveBuilds())
}

func TestBuildTool_HonorsIgnoreFile(t *testing.T) {
	// Given: a notes directory whose ignore file excludes drafts and *.txt
	project := t.TempDir()
	writeContent(t, project, "notes", ".scribeignore", "# local only\ndrafts/\n*.txt\n")
	writeContent(t, project, "notes", "keep.md", "# Keep\n\nlantern")
	writeContent(t, project, "notes", "scratch.txt", "scratch")
	writeContent(t, project, "notes", "drafts/wip.md", "# WIP")
	o := newTestOrchestrator(t, project, nil)

	// When: the tool is built
	res, err := o.BuildTool(context.Background(), "notes")

	// Then: only the unignored file is indexed
	require.NoError(t, err)
	assert.Equal(t, 1, res.Statistics.FilesProcessed)
	idx, err := o.Store().Load("notes")
	require.NoError(t, err)
	assert.Equal(t, 1, idx.DocumentCount())
}

func TestBuildTool_OversizedFile_IsWarning(t *testing.T) {
	// Given: one normal note and one file over the size limit
	project := t.TempDir()
	writeContent(t, project, "notes", "a.md", "# Keep\n\nlantern")
	big := writeContent(t, project, "notes", "huge.txt", "")
	require.NoError(t, os.Truncate(big, scanner.DefaultMaxFileSize+1))
	o := newTestOrchestrator(t, project, nil)

	// When: the tool is built
	res, err := o.BuildTool(context.Background(), "notes")

	// Then: the large file is skipped with a warning naming it
	require.NoError(t, err)
	assert.Equal(t, 1, res.Statistics.ItemsIndexed)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "huge.txt")
	assert.Contains(t, res.Warnings[0], "file limit")
}

func TestBuildTool_FilesProcessedCountsFailures(t *testing.T) {
	// Given: one valid note and one malformed JSON record
	project := t.TempDir()
	writeContent(t, project, "notes", "a.md", "# Keep\n\nlantern")
	writeContent(t, project, "notes", "bad.json", "{not json")
	o := newTestOrchestrator(t, project, nil)

	// When: the tool is built
	res, err := o.BuildTool(context.Background(), "notes")

	// Then: both files count as processed, one is indexed
	require.NoError(t, err)
	assert.Equal(t, 2, res.Statistics.FilesProcessed)
	assert.Equal(t, 1, res.Statistics.ItemsIndexed)
	assert.Equal(t, 1, res.Statistics.ErrorsCount)
}

func TestBuildAll_MissingToolDirectory_OtherToolsSucceed(t *testing.T) {
	// Given: notes has content but codex has no directory
	project := t.TempDir()
	writeContent(t, project, "notes", "a.md", "# Title\n\nSome words here.")
	o := newTestOrchestrator(t, project, func(d *Dependencies) {
		d.Tools = []string{"notes", "codex"}
	})

	// When: all tools are built
	results := o.BuildAll(context.Background())

	// Then: notes succeeds and codex fails with a file processing error
	require.Len(t, results, 2)
	assert.Equal(t, "notes", results[0].ToolType)
	assert.True(t, results[0].Success)
	assert.Equal(t, OpBuildAllIndexes, results[0].Operation)

	assert.Equal(t, "codex", results[1].ToolType)
	assert.False(t, results[1].Success)
	require.NotEmpty(t, results[1].Errors)
	assert.Contains(t, results[1].Errors[0].Message, ierrors.ErrCodeFileProcessing)
	assert.Contains(t, results[1].Errors[0].Message, "tool directory not found")

	_, ok := o.Statistics("codex")
	assert.False(t, ok)
}

func TestBuildTool_MissingDirectory_ReturnsFileProcessingError(t *testing.T) {
	o := newTestOrchestrator(t, t.TempDir(), nil)

	res, err := o.BuildTool(context.Background(), "notes")

	require.Error(t, err)
	assert.True(t, ierrors.IsKind(err, ierrors.KindFileProcessing))
	require.NotNil(t, res)
	assert.False(t, res.Success)
}

func TestBuildTool_InvalidToolName(t *testing.T) {
	o := newTestOrchestrator(t, t.TempDir(), nil)

	res, err := o.BuildTool(context.Background(), "../escape")

	require.Error(t, err)
	assert.True(t, ierrors.IsKind(err, ierrors.KindInvalidConfiguration))
	assert.False(t, res.Success)
}

func TestBuildTool_UnsupportedFormat_IsWarning(t *testing.T) {
	// Given: a tool directory with one markdown file and one rtf file
	project := t.TempDir()
	writeContent(t, project, "notes", "a.md", "# Keep\n\nThis one stays.")
	rtf := writeContent(t, project, "notes", "b.rtf", `{\rtf1 hello}`)
	o := newTestOrchestrator(t, project, nil)

	// When: built
	res, err := o.BuildTool(context.Background(), "notes")

	// Then: the rtf file is a warning, not an error, and is not indexed
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Empty(t, res.Errors)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], rtf)
	assert.Equal(t, 1, res.Statistics.ItemsIndexed)
	assert.Equal(t, 1, res.Statistics.WarningsCount)
}

func TestBuildTool_MalformedFile_RecordedAndSkipped(t *testing.T) {
	// Given: one valid and one malformed JSON file
	project := t.TempDir()
	writeContent(t, project, "notes", "good.json", `{"title":"Good","content":"valid content here"}`)
	bad := writeContent(t, project, "notes", "bad.json", `{"title":`)
	o := newTestOrchestrator(t, project, nil)

	// When: built
	res, err := o.BuildTool(context.Background(), "notes")

	// Then: the build succeeds with one non-recoverable file error
	require.NoError(t, err)
	assert.True(t, res.Success)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, bad, res.Errors[0].FilePath)
	assert.Equal(t, PhaseProcessingContent, res.Errors[0].Phase)
	assert.False(t, res.Errors[0].Recoverable)
	assert.Equal(t, 1, res.Statistics.ItemsIndexed)
	assert.Equal(t, 1, res.Statistics.ErrorsCount)
}

func TestBuildTool_EmptyDirectory_SucceedsWithWarning(t *testing.T) {
	project := t.TempDir()
	require.NoError(t, os.MkdirAll(ContentDir(project, "notes"), 0o755))
	o := newTestOrchestrator(t, project, nil)

	res, err := o.BuildTool(context.Background(), "notes")

	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 0, res.Statistics.ItemsIndexed)
	assert.Contains(t, res.Warnings, "no documents indexed for notes")
}

func TestBuildTool_ReportsPhasesInOrder(t *testing.T) {
	// Given: an orchestrator with a recording reporter
	project := t.TempDir()
	for _, name := range []string{"a.md", "b.md", "c.md"} {
		writeContent(t, project, "notes", name, "# "+name+"\n\nShared content words.")
	}

	var (
		mu      sync.Mutex
		phases  []Phase
		maxDone int
	)
	o := newTestOrchestrator(t, project, func(d *Dependencies) {
		d.Reporter = func(p BuildProgress) {
			mu.Lock()
			defer mu.Unlock()
			if len(phases) == 0 || phases[len(phases)-1] != p.Phase {
				phases = append(phases, p.Phase)
			}
			if p.ProcessedItems > maxDone {
				maxDone = p.ProcessedItems
			}
		}
	})

	// When: built
	_, err := o.BuildTool(context.Background(), "notes")

	// Then: phases arrive in pipeline order and every file is counted
	require.NoError(t, err)
	assert.Equal(t, []Phase{
		PhaseInitializing,
		PhaseScanningFiles,
		PhaseProcessingContent,
		PhaseBuildingIndexes,
		PhaseOptimizing,
		PhaseValidating,
		PhaseFinalizing,
		PhaseCompleted,
	}, phases)
	assert.Equal(t, 3, maxDone)
}

func TestBuildTool_CancelledContext(t *testing.T) {
	// Given: a context cancelled as soon as processing starts
	project := t.TempDir()
	writeContent(t, project, "notes", "a.md", "# A\n\nwords words words")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	o := newTestOrchestrator(t, project, func(d *Dependencies) {
		d.Reporter = func(p BuildProgress) {
			if p.Phase == PhaseProcessingContent {
				cancel()
			}
		}
	})

	// When: built
	res, err := o.BuildTool(ctx, "notes")

	// Then: the build reports cancellation and stores no statistics
	require.Error(t, err)
	assert.True(t, ierrors.IsKind(err, ierrors.KindBuildCancelled))
	assert.False(t, res.Success)
	_, ok := o.Statistics("notes")
	assert.False(t, ok)
	assert.False(t, o.Store().Exists("notes"))
}

func TestCancel_ActiveBuild(t *testing.T) {
	// Given: a reporter that cancels the build by id while it scans
	project := t.TempDir()
	writeContent(t, project, "notes", "a.md", "# A\n\nwords words words")

	var (
		o    *Orchestrator
		once sync.Once
		cerr error
	)
	o = newTestOrchestrator(t, project, func(d *Dependencies) {
		d.Reporter = func(p BuildProgress) {
			if p.Phase == PhaseScanningFiles {
				once.Do(func() { cerr = o.Cancel(p.BuildID) })
			}
		}
	})

	// When: built
	res, err := o.BuildTool(context.Background(), "notes")

	// Then: the build is cancelled and no longer active
	require.NoError(t, cerr)
	require.Error(t, err)
	assert.True(t, ierrors.IsKind(err, ierrors.KindBuildCancelled))
	assert.False(t, res.Success)
	assert.Empty(t, o.ActiveBuilds())
}

func TestCancel_UnknownBuild(t *testing.T) {
	o := newTestOrchestrator(t, t.TempDir(), nil)

	err := o.Cancel("missing")

	require.Error(t, err)
	assert.Equal(t, ierrors.ErrCodeBuildNotFound, ierrors.GetCode(err))
}

func TestBuildTool_AppendsHistoryAndMetrics(t *testing.T) {
	// Given: history and metrics sinks
	project := t.TempDir()
	writeContent(t, project, "notes", "a.md", "# A\n\nalpha beta gamma")
	hist := &fakeHistory{}
	rec := metrics.New()
	o := newTestOrchestrator(t, project, func(d *Dependencies) {
		d.History = hist
		d.Metrics = rec
	})

	// When: one successful and one failed build run
	res, err := o.BuildTool(context.Background(), "notes")
	require.NoError(t, err)
	_, err = o.BuildTool(context.Background(), "codex")
	require.Error(t, err)

	// Then: both are recorded
	require.Len(t, hist.records, 2)
	assert.Equal(t, res.BuildID, hist.records[0].BuildID)
	assert.True(t, hist.records[0].Success)
	assert.Equal(t, 1, hist.records[0].ItemsIndexed)
	assert.Equal(t, "codex", hist.records[1].ToolType)
	assert.False(t, hist.records[1].Success)

	assert.Equal(t, 1.0, testutil.ToFloat64(rec.BuildsTotal.WithLabelValues("notes", "build_tool_index", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.BuildsTotal.WithLabelValues("codex", "build_tool_index", "failure")))
	assert.Equal(t, 0.0, testutil.ToFloat64(rec.ActiveBuilds))
}

func TestRebuild_BacksUpPreviousIndex(t *testing.T) {
	// Given: an existing index
	project := t.TempDir()
	writeContent(t, project, "notes", "a.md", "# A\n\nfirst version")
	o := newTestOrchestrator(t, project, nil)
	_, err := o.BuildTool(context.Background(), "notes")
	require.NoError(t, err)

	// When: more content arrives and the tool is rebuilt
	writeContent(t, project, "notes", "b.md", "# B\n\nsecond file")
	res, err := o.Rebuild(context.Background(), "notes")

	// Then: the old index is backed up and the new one has both files
	require.NoError(t, err)
	assert.Equal(t, OpRebuildIndex, res.Operation)
	assert.Equal(t, 2, res.Statistics.ItemsIndexed)

	backups, err := o.Store().ListBackups("notes")
	require.NoError(t, err)
	assert.Len(t, backups, 1)
}

func TestBuildTool_SequentialProcessingMatchesParallel(t *testing.T) {
	project := t.TempDir()
	for _, name := range []string{"a.md", "b.md", "c.md", "d.md", "e.md"} {
		writeContent(t, project, "notes", name, "# "+name+"\n\nsteady common words")
	}

	cfg := testConfig()
	cfg.ParallelProcessing = false
	o := newTestOrchestrator(t, project, func(d *Dependencies) { d.Config = cfg })

	res, err := o.BuildTool(context.Background(), "notes")

	require.NoError(t, err)
	assert.Equal(t, 5, res.Statistics.ItemsIndexed)
	idx, err := o.Store().Load("notes")
	require.NoError(t, err)
	assert.Len(t, idx.Lookup("steady"), 5)
}

func TestPercentageAndEstimate(t *testing.T) {
	assert.Equal(t, 0.0, percentage(1, 0))
	assert.Equal(t, 50.0, percentage(1, 2))
	assert.Nil(t, estimate(time.Now(), 0, 10))
	assert.NotNil(t, estimate(time.Now(), 1, 10))
}
