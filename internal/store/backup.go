package store

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	ierrors "github.com/Aman-CERP/scribeindex/internal/errors"
)

// Backup copies the current index for tool to a timestamped backup and
// prunes old backups. It returns "" when there is no index to back up.
func (s *Store) Backup(tool string) (string, error) {
	src := s.IndexPath(tool)
	data, err := os.ReadFile(src)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", ierrors.Storage("failed to read index for backup", err).WithDetail("path", src)
	}

	base := src + BackupSuffix + s.now().Format(backupTimeFormat)
	backupPath := base
	for i := 1; fileExists(backupPath); i++ {
		backupPath = fmt.Sprintf("%s-%d", base, i)
	}

	if err := writeAtomic(backupPath, data); err != nil {
		return "", ierrors.Storage("failed to write backup", err).WithDetail("path", backupPath)
	}

	if err := s.pruneBackups(tool); err != nil {
		slog.Warn("backup_prune_failed",
			slog.String("tool", tool),
			slog.String("error", err.Error()))
	}

	slog.Debug("index_backed_up", slog.String("tool", tool), slog.String("path", backupPath))
	return backupPath, nil
}

// ListBackups returns backup paths for tool, newest first.
func (s *Store) ListBackups(tool string) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, ierrors.Storage("failed to list index directory", err)
	}

	prefix := tool + IndexSuffix + BackupSuffix
	var backups []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), prefix) || strings.Contains(e.Name(), ".tmp-") {
			continue
		}
		backups = append(backups, filepath.Join(s.dir, e.Name()))
	}

	// Timestamp suffixes sort lexically in time order.
	sort.Sort(sort.Reverse(sort.StringSlice(backups)))
	return backups, nil
}

func (s *Store) pruneBackups(tool string) error {
	if s.maxBackups <= 0 {
		return nil
	}
	backups, err := s.ListBackups(tool)
	if err != nil {
		return err
	}
	if len(backups) <= s.maxBackups {
		return nil
	}
	for _, b := range backups[s.maxBackups:] {
		if err := os.Remove(b); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

// RestoreBackup replaces the index for tool with the contents of
// backupPath. The current index is backed up first. The backup must
// belong to tool and decode as an index.
func (s *Store) RestoreBackup(tool, backupPath string) error {
	if !strings.HasPrefix(filepath.Base(backupPath), tool+IndexSuffix+BackupSuffix) {
		return ierrors.New(ierrors.ErrCodeInvalidInput,
			fmt.Sprintf("%s is not a backup of %s", filepath.Base(backupPath), tool), nil)
	}
	data, err := os.ReadFile(backupPath)
	if err != nil {
		return ierrors.Storage("failed to read backup", err).WithDetail("path", backupPath)
	}
	if _, err := s.Backup(tool); err != nil {
		return err
	}
	if err := writeAtomic(s.IndexPath(tool), data); err != nil {
		return ierrors.Storage("failed to restore backup", err).WithDetail("path", backupPath)
	}
	if _, err := s.Load(tool); err != nil {
		return err
	}
	return nil
}

// CleanupOlderThan removes index files (*.json) in the index directory
// whose modification time is older than maxAge. It returns the removed
// paths.
func (s *Store) CleanupOlderThan(maxAge time.Duration) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, ierrors.Storage("failed to list index directory", err)
	}

	cutoff := s.now().Add(-maxAge)
	var removed []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}
		path := filepath.Join(s.dir, e.Name())
		if err := os.Remove(path); err != nil {
			slog.Warn("index_cleanup_failed", slog.String("path", path), slog.String("error", err.Error()))
			continue
		}
		removed = append(removed, path)
	}
	sort.Strings(removed)
	return removed, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
