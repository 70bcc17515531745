package scanner

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
)

// Scanner walks a directory tree and reports supported content files.
type Scanner struct{}

// New creates a Scanner.
func New() *Scanner {
	return &Scanner{}
}

// Scan streams supported files under opts.RootDir in directory-entry order.
// Directories that cannot be read are skipped. The channel is closed when
// the walk finishes or ctx is cancelled.
func (s *Scanner) Scan(ctx context.Context, opts *ScanOptions) (<-chan ScanResult, error) {
	if opts == nil || opts.RootDir == "" {
		return nil, fmt.Errorf("scan root is required")
	}

	absRoot, err := filepath.Abs(opts.RootDir)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to stat root directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root path is not a directory: %s", absRoot)
	}

	maxFileSize := opts.MaxFileSize
	if maxFileSize <= 0 {
		maxFileSize = DefaultMaxFileSize
	}

	ignore := opts.Ignore
	if ignore == nil {
		ignore, err = LoadIgnoreFile(filepath.Join(absRoot, IgnoreFileName))
		if err != nil {
			return nil, err
		}
	}

	results := make(chan ScanResult, 64)
	go func() {
		defer close(results)
		s.walk(ctx, absRoot, opts, ignore, maxFileSize, results)
	}()

	return results, nil
}

// Collect runs Scan and gathers the files in order.
func (s *Scanner) Collect(ctx context.Context, opts *ScanOptions) ([]FileInfo, error) {
	ch, err := s.Scan(ctx, opts)
	if err != nil {
		return nil, err
	}

	var files []FileInfo
	for r := range ch {
		if r.Error != nil {
			return files, r.Error
		}
		files = append(files, *r.File)
	}
	if err := ctx.Err(); err != nil {
		return files, err
	}
	return files, nil
}

func (s *Scanner) walk(ctx context.Context, absRoot string, opts *ScanOptions, ignore *IgnoreRules, maxFileSize int64, results chan<- ScanResult) {
	err := filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err != nil {
			slog.Debug("scan_entry_skipped",
				slog.String("path", path),
				slog.String("error", err.Error()))
			if d != nil && d.IsDir() && path != absRoot {
				return filepath.SkipDir
			}
			return nil
		}

		relPath, err := filepath.Rel(absRoot, path)
		if err != nil {
			relPath = path
		}

		if d.IsDir() {
			if path != absRoot && ignore.Match(relPath, true) {
				return filepath.SkipDir
			}
			return nil
		}
		if ignore.Match(relPath, false) {
			return nil
		}

		if d.Type()&fs.ModeSymlink != 0 {
			if !opts.FollowSymlinks {
				return nil
			}
			target, statErr := os.Stat(path)
			if statErr != nil || target.IsDir() {
				return nil
			}
		}

		if !IsSupported(path) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}
		if info.Size() > maxFileSize {
			slog.Warn("scan_file_too_large",
				slog.String("path", path),
				slog.Int64("size", info.Size()),
				slog.Int64("limit", maxFileSize))
			if opts.OnOversized != nil {
				opts.OnOversized(relPath, info.Size())
			}
			return nil
		}

		file := &FileInfo{
			Path:      path,
			RelPath:   relPath,
			Extension: Extension(path),
			Size:      info.Size(),
			ModTime:   info.ModTime(),
		}

		select {
		case results <- ScanResult{File: file}:
		case <-ctx.Done():
			return ctx.Err()
		}
		return nil
	})

	if err != nil && err != context.Canceled && err != context.DeadlineExceeded {
		select {
		case results <- ScanResult{Error: err}:
		case <-ctx.Done():
		}
	}
}
