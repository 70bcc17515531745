package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

const lockRetryDelay = 50 * time.Millisecond

// LockPath returns the cross-process lock file for tool.
func (s *Store) LockPath(tool string) string {
	return filepath.Join(s.dir, "."+tool+".lock")
}

// LockTool serializes writers of one tool's index, both within this
// process and across processes sharing the index directory. It blocks
// until the lock is held or ctx is done. The returned func releases it.
func (s *Store) LockTool(ctx context.Context, tool string) (func(), error) {
	sem := s.toolSemaphore(tool)
	select {
	case sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		<-sem
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}

	fl := flock.New(s.LockPath(tool))
	locked, err := fl.TryLockContext(ctx, lockRetryDelay)
	if err != nil || !locked {
		<-sem
		if err == nil {
			err = fmt.Errorf("lock for %s not acquired", tool)
		}
		return nil, fmt.Errorf("failed to acquire lock: %w", err)
	}

	return func() {
		_ = fl.Unlock()
		<-sem
	}, nil
}

func (s *Store) toolSemaphore(tool string) chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	sem, ok := s.locks[tool]
	if !ok {
		sem = make(chan struct{}, 1)
		s.locks[tool] = sem
	}
	return sem
}
