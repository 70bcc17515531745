package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ContentWatcher watches a content root (<project>/content) and emits
// debounced event batches for supported files inside tool directories.
type ContentWatcher struct {
	fsWatcher      *fsnotify.Watcher
	pollWatcher    *PollingWatcher
	useFsnotify    bool
	debouncer      *Debouncer
	events         chan []FileEvent
	errors         chan error
	stopCh         chan struct{}
	rootPath       string
	opts           Options
	mu             sync.RWMutex
	stopped        bool
	droppedBatches atomic.Uint64
}

// NewContentWatcher creates a watcher. fsnotify is tried first and polling
// is used when it cannot be created or ForcePolling is set.
func NewContentWatcher(opts Options) (*ContentWatcher, error) {
	opts = opts.WithDefaults()

	w := &ContentWatcher{
		debouncer: NewDebouncer(opts.DebounceWindow),
		events:    make(chan []FileEvent, opts.EventBufferSize),
		errors:    make(chan error, 10),
		stopCh:    make(chan struct{}),
		opts:      opts,
	}

	if !opts.ForcePolling {
		fsw, err := fsnotify.NewWatcher()
		if err == nil {
			w.fsWatcher = fsw
			w.useFsnotify = true
			return w, nil
		}
		slog.Warn("fsnotify_unavailable", slog.String("error", err.Error()))
	}
	w.pollWatcher = NewPollingWatcher(opts.PollInterval)
	return w, nil
}

// UsingFsnotify reports whether native notifications are in use.
func (w *ContentWatcher) UsingFsnotify() bool {
	return w.useFsnotify
}

// Start watches root until ctx is done or Stop is called.
func (w *ContentWatcher) Start(ctx context.Context, root string) error {
	absPath, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("resolve absolute path: %w", err)
	}
	if info, err := os.Stat(absPath); err != nil || !info.IsDir() {
		return fmt.Errorf("content root not found: %s", absPath)
	}
	w.rootPath = absPath

	go w.forwardDebouncedEvents(ctx)

	if w.useFsnotify {
		return w.startFsnotify(ctx)
	}
	return w.startPolling(ctx)
}

func (w *ContentWatcher) startFsnotify(ctx context.Context) error {
	if err := w.addRecursive(w.rootPath); err != nil {
		return fmt.Errorf("add directories to watcher: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			_ = w.Stop()
			return ctx.Err()
		case <-w.stopCh:
			return nil
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return nil
			}
			w.handleFsnotifyEvent(event)
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return nil
			}
			w.emitError(err)
		}
	}
}

func (w *ContentWatcher) startPolling(ctx context.Context) error {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-w.stopCh:
				return
			case event, ok := <-w.pollWatcher.Events():
				if !ok {
					return
				}
				w.debouncer.Add(event)
			}
		}
	}()

	return w.pollWatcher.Start(ctx, w.rootPath)
}

// handleFsnotifyEvent converts and filters an fsnotify event.
func (w *ContentWatcher) handleFsnotifyEvent(event fsnotify.Event) {
	relPath, err := filepath.Rel(w.rootPath, event.Name)
	if err != nil {
		return
	}

	if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
		if event.Op&fsnotify.Create != 0 && !isHidden(relPath) {
			if err := w.addRecursive(event.Name); err != nil {
				w.emitError(err)
			}
		}
		return
	}

	if !relevant(relPath) {
		return
	}

	var op Operation
	switch {
	case event.Op&fsnotify.Create != 0:
		op = OpCreate
	case event.Op&fsnotify.Write != 0:
		op = OpModify
	case event.Op&fsnotify.Remove != 0, event.Op&fsnotify.Rename != 0:
		// the new name of a rename arrives as its own Create
		op = OpDelete
	default:
		return
	}

	w.debouncer.Add(FileEvent{
		Path:      event.Name,
		Tool:      toolOf(relPath),
		Operation: op,
		Timestamp: time.Now(),
	})
}

func (w *ContentWatcher) forwardDebouncedEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case events, ok := <-w.debouncer.Output():
			if !ok {
				return
			}
			if len(events) == 0 {
				continue
			}
			w.emitEvents(events)
		}
	}
}

// addRecursive adds root and every non-hidden directory under it.
func (w *ContentWatcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		rel, _ := filepath.Rel(w.rootPath, path)
		if rel != "." && isHidden(rel) {
			return filepath.SkipDir
		}
		return w.fsWatcher.Add(path)
	})
}

func (w *ContentWatcher) emitEvents(events []FileEvent) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.stopped {
		return
	}

	select {
	case w.events <- events:
	default:
		dropped := w.droppedBatches.Add(1)
		slog.Warn("watcher_batch_dropped",
			slog.Int("batch_size", len(events)),
			slog.Uint64("total_dropped", dropped))
	}
}

func (w *ContentWatcher) emitError(err error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.stopped {
		return
	}

	select {
	case w.errors <- err:
	default:
		slog.Warn("watcher_error_dropped", slog.String("error", err.Error()))
	}
}

// Events returns the channel of debounced batches.
func (w *ContentWatcher) Events() <-chan []FileEvent {
	return w.events
}

// Errors returns the channel of watcher errors.
func (w *ContentWatcher) Errors() <-chan error {
	return w.errors
}

// DroppedBatches returns how many batches were dropped on a full channel.
func (w *ContentWatcher) DroppedBatches() uint64 {
	return w.droppedBatches.Load()
}

// Stop stops watching and closes both channels. Safe to call multiple times.
func (w *ContentWatcher) Stop() error {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return nil
	}
	w.stopped = true
	close(w.stopCh)
	w.mu.Unlock()

	w.debouncer.Stop()

	var err error
	if w.fsWatcher != nil {
		err = w.fsWatcher.Close()
	}
	if w.pollWatcher != nil {
		_ = w.pollWatcher.Stop()
	}

	w.mu.Lock()
	close(w.events)
	close(w.errors)
	w.mu.Unlock()
	return err
}
