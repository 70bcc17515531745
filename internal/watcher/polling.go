package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sync"
	"time"
)

// PollingWatcher detects content changes by rescanning the content root.
type PollingWatcher struct {
	interval time.Duration
	state    map[string]fileSnapshot
	events   chan FileEvent
	stopCh   chan struct{}
	mu       sync.Mutex
	stopped  bool
	rootPath string
}

type fileSnapshot struct {
	modTime time.Time
	size    int64
}

// NewPollingWatcher creates a polling watcher.
func NewPollingWatcher(interval time.Duration) *PollingWatcher {
	return &PollingWatcher{
		interval: interval,
		state:    make(map[string]fileSnapshot),
		events:   make(chan FileEvent, 100),
		stopCh:   make(chan struct{}),
	}
}

// Start records a baseline and polls until ctx is done or Stop is called.
func (p *PollingWatcher) Start(ctx context.Context, root string) error {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("resolve absolute path: %w", err)
	}

	p.mu.Lock()
	p.rootPath = absRoot
	p.state = p.snapshot()
	p.mu.Unlock()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = p.Stop()
			return ctx.Err()
		case <-p.stopCh:
			return nil
		case <-ticker.C:
			p.detectChanges()
		}
	}
}

// snapshot walks the root. Must be called with lock held.
func (p *PollingWatcher) snapshot() map[string]fileSnapshot {
	files := make(map[string]fileSnapshot)
	_ = filepath.WalkDir(p.rootPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(p.rootPath, path)
		if err != nil || !relevant(rel) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		files[path] = fileSnapshot{modTime: info.ModTime(), size: info.Size()}
		return nil
	})
	return files
}

func (p *PollingWatcher) detectChanges() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped {
		return
	}

	current := p.snapshot()
	now := time.Now()
	for path, snap := range current {
		prev, ok := p.state[path]
		switch {
		case !ok:
			p.emit(path, OpCreate, now)
		case prev != snap:
			p.emit(path, OpModify, now)
		}
	}
	for path := range p.state {
		if _, ok := current[path]; !ok {
			p.emit(path, OpDelete, now)
		}
	}
	p.state = current
}

// emit sends an event. Must be called with lock held.
func (p *PollingWatcher) emit(path string, op Operation, now time.Time) {
	rel, _ := filepath.Rel(p.rootPath, path)
	ev := FileEvent{Path: path, Tool: toolOf(rel), Operation: op, Timestamp: now}
	select {
	case p.events <- ev:
	default:
		slog.Warn("polling_buffer_full",
			slog.String("path", path),
			slog.String("op", op.String()))
	}
}

// Events returns the channel of individual events.
func (p *PollingWatcher) Events() <-chan FileEvent {
	return p.events
}

// Stop stops polling. Safe to call multiple times.
func (p *PollingWatcher) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped {
		return nil
	}
	p.stopped = true
	close(p.stopCh)
	close(p.events)
	return nil
}
