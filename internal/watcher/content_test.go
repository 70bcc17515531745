package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newContentRoot(t *testing.T) string {
	t.Helper()
	root := filepath.Join(t.TempDir(), "content")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "notes"), 0o755))
	return root
}

// waitForEvent drains batches until one contains an event matching match.
func waitForEvent(t *testing.T, ch <-chan []FileEvent, timeout time.Duration, match func(FileEvent) bool) FileEvent {
	t.Helper()
	deadline := time.After(timeout)
	for {
		select {
		case batch, ok := <-ch:
			if !ok {
				t.Fatal("events channel closed")
			}
			for _, ev := range batch {
				if match(ev) {
					return ev
				}
			}
		case <-deadline:
			t.Fatal("timeout waiting for event")
		}
	}
}

func TestContentWatcher_NewFile_EmitsCreateWithTool(t *testing.T) {
	// Given: a running watcher over a content root
	root := newContentRoot(t)
	w, err := NewContentWatcher(Options{DebounceWindow: 50 * time.Millisecond})
	require.NoError(t, err)
	defer func() { _ = w.Stop() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Start(ctx, root) }()
	time.Sleep(100 * time.Millisecond)

	// When: a markdown file is written in the notes tool directory
	path := filepath.Join(root, "notes", "a.md")
	require.NoError(t, os.WriteFile(path, []byte("# A"), 0o644))

	// Then: an event tagged with the tool arrives
	ev := waitForEvent(t, w.Events(), 2*time.Second, func(ev FileEvent) bool {
		return filepath.Base(ev.Path) == "a.md"
	})
	assert.Equal(t, "notes", ev.Tool)
	assert.Contains(t, []Operation{OpCreate, OpModify}, ev.Operation)
}

func TestContentWatcher_IgnoresHiddenAndUnsupported(t *testing.T) {
	// Given: a running watcher
	root := newContentRoot(t)
	w, err := NewContentWatcher(Options{DebounceWindow: 50 * time.Millisecond})
	require.NoError(t, err)
	defer func() { _ = w.Stop() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Start(ctx, root) }()
	time.Sleep(100 * time.Millisecond)

	// When: ignored files are written, then a supported one
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes", ".swp.md"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes", "pic.png"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "top.md"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes", "ok.txt"), []byte("x"), 0o644))

	// Then: only the supported file inside a tool directory is reported
	deadline := time.After(2 * time.Second)
	for {
		select {
		case batch := <-w.Events():
			for _, ev := range batch {
				assert.Equal(t, "ok.txt", filepath.Base(ev.Path))
			}
			return
		case <-deadline:
			t.Fatal("timeout waiting for event")
		}
	}
}

func TestContentWatcher_NewToolDirectory_IsWatched(t *testing.T) {
	// Given: a running watcher
	root := newContentRoot(t)
	w, err := NewContentWatcher(Options{DebounceWindow: 50 * time.Millisecond})
	require.NoError(t, err)
	defer func() { _ = w.Stop() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Start(ctx, root) }()
	time.Sleep(100 * time.Millisecond)

	// When: a new tool directory appears and a file is written into it
	dir := filepath.Join(root, "journal")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "day.md"), []byte("# Day"), 0o644))

	// Then: the event is tagged with the new tool
	ev := waitForEvent(t, w.Events(), 2*time.Second, func(ev FileEvent) bool {
		return filepath.Base(ev.Path) == "day.md"
	})
	assert.Equal(t, "journal", ev.Tool)
}

func TestContentWatcher_MissingRoot_Errors(t *testing.T) {
	w, err := NewContentWatcher(DefaultOptions())
	require.NoError(t, err)
	defer func() { _ = w.Stop() }()

	err = w.Start(context.Background(), filepath.Join(t.TempDir(), "absent"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "content root not found")
}

func TestContentWatcher_StopClosesChannels(t *testing.T) {
	// Given: a watcher
	w, err := NewContentWatcher(DefaultOptions())
	require.NoError(t, err)

	// When: stopped twice
	require.NoError(t, w.Stop())
	require.NoError(t, w.Stop())

	// Then: both channels are closed
	_, ok := <-w.Events()
	assert.False(t, ok)
	_, ok = <-w.Errors()
	assert.False(t, ok)
}
