package store

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/scribeindex/internal/content"
	ierrors "github.com/Aman-CERP/scribeindex/internal/errors"
	"github.com/Aman-CERP/scribeindex/internal/index"
)

func sampleIndex(tool string, bodies ...string) *index.InvertedIndex {
	entries := make([]*index.IndexEntry, 0, len(bodies))
	for _, b := range bodies {
		entries = append(entries, index.BuildEntry(&content.ProcessedContent{
			ContentType: "text",
			Body:        b,
			Metadata:    map[string]any{},
		}, tool))
	}
	idx := index.Assemble(tool, entries)
	index.Optimize(idx, index.OptimizeOptions{})
	return idx
}

// fixedClock returns a clock that advances one second per call.
func fixedClock(start time.Time) func() time.Time {
	var mu sync.Mutex
	t := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now := t
		t = t.Add(time.Second)
		return now
	}
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	// Given a populated index
	s := New(filepath.Join(t.TempDir(), "index"))
	idx := sampleIndex("notes", "hello hello world", "another document")

	// When saved and loaded
	path, err := s.Save(idx)
	require.NoError(t, err)
	loaded, err := s.Load("notes")
	require.NoError(t, err)

	// Then the path is deterministic and content survives
	assert.Equal(t, filepath.Join(s.Dir(), "notes_index.json"), path)
	assert.Equal(t, idx.ToolType, loaded.ToolType)
	assert.Len(t, loaded.Documents, 2)
	assert.Equal(t, idx.Postings, loaded.Postings)
	assert.True(t, s.Exists("notes"))
	assert.NoError(t, index.Validate(loaded))
}

func TestSave_LeavesNoTempFiles(t *testing.T) {
	s := New(t.TempDir())

	_, err := s.Save(sampleIndex("codex", "first body"))
	require.NoError(t, err)
	_, err = s.Save(sampleIndex("codex", "second body"))
	require.NoError(t, err)

	entries, err := os.ReadDir(s.Dir())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "codex_index.json", entries[0].Name())
}

func TestLoad_Missing(t *testing.T) {
	s := New(t.TempDir())

	_, err := s.Load("plot")

	require.Error(t, err)
	assert.Equal(t, ierrors.ErrCodeIndexNotFound, ierrors.GetCode(err))
}

func TestLoad_InvalidJSON(t *testing.T) {
	s := New(t.TempDir())
	require.NoError(t, os.WriteFile(s.IndexPath("plot"), []byte("{not json"), 0o644))

	_, err := s.Load("plot")

	require.Error(t, err)
	assert.True(t, ierrors.IsKind(err, ierrors.KindIndexCorruption))
}

func TestLoad_NullDocumentIsCorruption(t *testing.T) {
	// Given: an index file with a null document record
	s := New(t.TempDir())
	require.NoError(t, os.WriteFile(s.IndexPath("notes"),
		[]byte(`{"tool_type":"notes","documents":{"x":null},"postings":{}}`), 0o644))

	// When: loading, directly or through LoadOrEmpty
	_, err := s.Load("notes")
	_, emptyErr := s.LoadOrEmpty("notes")

	// Then: both report corruption
	require.Error(t, err)
	assert.True(t, ierrors.IsKind(err, ierrors.KindIndexCorruption))
	require.Error(t, emptyErr)
	assert.True(t, ierrors.IsKind(emptyErr, ierrors.KindIndexCorruption))
}

func TestLoadOrEmpty(t *testing.T) {
	s := New(t.TempDir())

	idx, err := s.LoadOrEmpty("research")

	require.NoError(t, err)
	assert.Equal(t, "research", idx.ToolType)
	assert.Empty(t, idx.Documents)
	assert.NotNil(t, idx.Postings)
}

func TestTools(t *testing.T) {
	s := New(t.TempDir())
	_, err := s.Save(sampleIndex("plot", "story arc"))
	require.NoError(t, err)
	_, err = s.Save(sampleIndex("codex", "character sheet"))
	require.NoError(t, err)

	tools, err := s.Tools()

	require.NoError(t, err)
	assert.Equal(t, []string{"codex", "plot"}, tools)
}

func TestBackup_PrunesToMax(t *testing.T) {
	// Given a store keeping two backups
	s := New(t.TempDir(), WithMaxBackups(2), WithClock(fixedClock(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))))
	_, err := s.Save(sampleIndex("notes", "body text"))
	require.NoError(t, err)

	// When three backups are taken
	var paths []string
	for i := 0; i < 3; i++ {
		p, err := s.Backup("notes")
		require.NoError(t, err)
		paths = append(paths, p)
	}

	// Then only the newest two remain, newest first
	backups, err := s.ListBackups("notes")
	require.NoError(t, err)
	assert.Equal(t, []string{paths[2], paths[1]}, backups)
	assert.Equal(t, "notes_index.json.bak.20240301-120002", filepath.Base(paths[2]))
}

func TestBackup_SameSecond(t *testing.T) {
	frozen := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	s := New(t.TempDir(), WithClock(func() time.Time { return frozen }))
	_, err := s.Save(sampleIndex("notes", "body text"))
	require.NoError(t, err)

	first, err := s.Backup("notes")
	require.NoError(t, err)
	second, err := s.Backup("notes")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	backups, err := s.ListBackups("notes")
	require.NoError(t, err)
	assert.Equal(t, []string{second, first}, backups)
}

func TestBackup_NoIndex(t *testing.T) {
	s := New(t.TempDir())

	path, err := s.Backup("notes")

	require.NoError(t, err)
	assert.Empty(t, path)
}

func TestRestoreBackup(t *testing.T) {
	// Given a backup of an older index and a newer saved index
	s := New(t.TempDir(), WithClock(fixedClock(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))))
	old := sampleIndex("notes", "original words")
	_, err := s.Save(old)
	require.NoError(t, err)
	backup, err := s.Backup("notes")
	require.NoError(t, err)
	_, err = s.Save(sampleIndex("notes", "replacement words", "more words"))
	require.NoError(t, err)

	// When restored
	require.NoError(t, s.RestoreBackup("notes", backup))

	// Then the old documents are back
	loaded, err := s.Load("notes")
	require.NoError(t, err)
	assert.Len(t, loaded.Documents, 1)
	assert.NotNil(t, loaded.Lookup("original"))
}

func TestRestoreBackup_WrongTool(t *testing.T) {
	s := New(t.TempDir())

	err := s.RestoreBackup("notes", filepath.Join(s.Dir(), "plot_index.json.bak.20240101-000000"))

	require.Error(t, err)
	assert.Equal(t, ierrors.ErrCodeInvalidInput, ierrors.GetCode(err))
}

func TestCleanupOlderThan(t *testing.T) {
	// Given one stale and one fresh index file
	now := time.Now()
	s := New(t.TempDir(), WithClock(func() time.Time { return now }))
	stale, err := s.Save(sampleIndex("plot", "old plot"))
	require.NoError(t, err)
	fresh, err := s.Save(sampleIndex("notes", "new note"))
	require.NoError(t, err)
	require.NoError(t, os.Chtimes(stale, now.Add(-48*time.Hour), now.Add(-48*time.Hour)))
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), "history.db"), []byte("x"), 0o644))
	require.NoError(t, os.Chtimes(filepath.Join(s.Dir(), "history.db"), now.Add(-48*time.Hour), now.Add(-48*time.Hour)))

	// When cleaning up files older than a day
	removed, err := s.CleanupOlderThan(24 * time.Hour)

	// Then only the stale index is removed
	require.NoError(t, err)
	assert.Equal(t, []string{stale}, removed)
	assert.FileExists(t, fresh)
	assert.FileExists(t, filepath.Join(s.Dir(), "history.db"))
}

func TestCleanupOlderThan_MissingDir(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "absent"))

	removed, err := s.CleanupOlderThan(time.Hour)

	require.NoError(t, err)
	assert.Empty(t, removed)
}

func TestLockTool_Serializes(t *testing.T) {
	// Given concurrent writers for one tool
	s := New(t.TempDir())
	var active, maxActive atomic.Int32
	var wg sync.WaitGroup

	// When each holds the lock briefly
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := s.LockTool(context.Background(), "notes")
			if !assert.NoError(t, err) {
				return
			}
			n := active.Add(1)
			for {
				m := maxActive.Load()
				if n <= m || maxActive.CompareAndSwap(m, n) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			active.Add(-1)
			unlock()
		}()
	}
	wg.Wait()

	// Then at most one held it at a time
	assert.Equal(t, int32(1), maxActive.Load())
	assert.FileExists(t, s.LockPath("notes"))
}

func TestLockTool_ContextCancelled(t *testing.T) {
	s := New(t.TempDir())
	unlock, err := s.LockTool(context.Background(), "notes")
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = s.LockTool(ctx, "notes")

	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLockTool_DifferentToolsIndependent(t *testing.T) {
	s := New(t.TempDir())
	unlockA, err := s.LockTool(context.Background(), "notes")
	require.NoError(t, err)
	defer unlockA()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	unlockB, err := s.LockTool(ctx, "plot")

	require.NoError(t, err)
	unlockB()
}
