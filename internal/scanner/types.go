// Package scanner discovers indexable content files under a tool's
// content directory.
package scanner

import (
	"path/filepath"
	"strings"
	"time"
)

// SupportedExtensions lists the file extensions (lowercase, no dot) the
// scanner reports.
var SupportedExtensions = []string{"json", "md", "markdown", "txt", "rtf"}

var supported = func() map[string]struct{} {
	m := make(map[string]struct{}, len(SupportedExtensions))
	for _, ext := range SupportedExtensions {
		m[ext] = struct{}{}
	}
	return m
}()

// Extension returns the lowercase extension of path without the dot.
func Extension(path string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
}

// IsSupported reports whether path has a scannable extension.
func IsSupported(path string) bool {
	_, ok := supported[Extension(path)]
	return ok
}

// FileInfo describes a discovered content file.
type FileInfo struct {
	Path      string // Absolute path
	RelPath   string // Path relative to the scan root
	Extension string // Lowercase, no dot
	Size      int64
	ModTime   time.Time
}

// ScanOptions configures the scanner.
type ScanOptions struct {
	// RootDir is the directory to scan.
	RootDir string

	// FollowSymlinks includes symlinked files. Default false.
	FollowSymlinks bool

	// MaxFileSize skips larger files (0 = DefaultMaxFileSize).
	MaxFileSize int64

	// Ignore excludes matching paths. Nil loads IgnoreFileName from RootDir.
	Ignore *IgnoreRules

	// OnOversized is called from the walking goroutine for each supported
	// file skipped for exceeding MaxFileSize.
	OnOversized func(relPath string, size int64)
}

// ScanResult is returned from the scanner channel.
type ScanResult struct {
	File  *FileInfo
	Error error
}

// DefaultMaxFileSize is the default maximum file size (10MB).
const DefaultMaxFileSize = 10 * 1024 * 1024
