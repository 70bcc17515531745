// Package store persists per-tool inverted indexes as JSON files under a
// single index directory. Writes are atomic (temp file + rename), prior
// versions can be kept as timestamped backups, and builds for one tool are
// serialized through LockTool.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	ierrors "github.com/Aman-CERP/scribeindex/internal/errors"
	"github.com/Aman-CERP/scribeindex/internal/index"
)

const (
	// IndexSuffix is appended to the tool name to form the index file name.
	IndexSuffix = "_index.json"

	// BackupSuffix separates an index file name from its backup timestamp.
	BackupSuffix = ".bak."

	// DefaultMaxBackups is the number of backups kept per tool.
	DefaultMaxBackups = 3

	backupTimeFormat = "20060102-150405"
)

// Store reads and writes index files in one directory.
type Store struct {
	dir        string
	maxBackups int
	now        func() time.Time

	mu    sync.Mutex
	locks map[string]chan struct{}
}

// Option configures a Store.
type Option func(*Store)

// WithMaxBackups sets how many backups are kept per tool. Zero disables
// pruning.
func WithMaxBackups(n int) Option {
	return func(s *Store) {
		s.maxBackups = n
	}
}

// WithClock overrides the time source used for backup names and cleanup.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// New creates a Store rooted at dir. The directory is created on first
// write.
func New(dir string, opts ...Option) *Store {
	s := &Store{
		dir:        dir,
		maxBackups: DefaultMaxBackups,
		now:        time.Now,
		locks:      make(map[string]chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dir returns the index directory.
func (s *Store) Dir() string {
	return s.dir
}

// IndexPath returns the deterministic index file path for tool.
func (s *Store) IndexPath(tool string) string {
	return filepath.Join(s.dir, tool+IndexSuffix)
}

// Exists reports whether an index file exists for tool.
func (s *Store) Exists(tool string) bool {
	_, err := os.Stat(s.IndexPath(tool))
	return err == nil
}

// Tools lists tools that have an index file, sorted by name.
func (s *Store) Tools() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, ierrors.Storage("failed to list index directory", err)
	}
	var tools []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, IndexSuffix) {
			continue
		}
		tools = append(tools, strings.TrimSuffix(name, IndexSuffix))
	}
	sort.Strings(tools)
	return tools, nil
}

// Save writes idx atomically and returns the index path.
func (s *Store) Save(idx *index.InvertedIndex) (string, error) {
	data, err := json.Marshal(idx)
	if err != nil {
		return "", ierrors.Storage("failed to encode index", err)
	}
	path := s.IndexPath(idx.ToolType)
	if err := writeAtomic(path, data); err != nil {
		return "", ierrors.Storage("failed to write index", err).WithDetail("path", path)
	}
	return path, nil
}

// Load reads the index for tool. A missing file yields an
// ERR_204_INDEX_NOT_FOUND error; undecodable content is corruption.
func (s *Store) Load(tool string) (*index.InvertedIndex, error) {
	path := s.IndexPath(tool)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ierrors.New(ierrors.ErrCodeIndexNotFound, "no index for tool "+tool, err).
				WithDetail("path", path).
				WithSuggestion(fmt.Sprintf("build it first with `scribeindex build %s`", tool))
		}
		if os.IsPermission(err) {
			return nil, ierrors.Permission(path, err)
		}
		return nil, ierrors.Storage("failed to read index", err).WithDetail("path", path)
	}

	var idx index.InvertedIndex
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, ierrors.Corruption("index file is not valid JSON", err).WithDetail("path", path)
	}
	if idx.Documents == nil {
		idx.Documents = make(map[string]*index.IndexEntry)
	}
	if idx.Postings == nil {
		idx.Postings = make(map[string][]index.Posting)
	}
	if idx.ToolType == "" {
		idx.ToolType = tool
	}
	if err := index.CheckDocuments(&idx); err != nil {
		if ie, ok := ierrors.As(err); ok {
			ie.WithDetail("path", path)
		}
		return nil, err
	}
	return &idx, nil
}

// LoadOrEmpty loads the index for tool, or returns an empty one if none
// has been written.
func (s *Store) LoadOrEmpty(tool string) (*index.InvertedIndex, error) {
	idx, err := s.Load(tool)
	if err != nil {
		if ierrors.GetCode(err) == ierrors.ErrCodeIndexNotFound {
			return index.New(tool), nil
		}
		return nil, err
	}
	return idx, nil
}

// writeAtomic writes data to a temp file in the target directory, syncs
// it, and renames it over path.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}
