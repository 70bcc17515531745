package watcher

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/Aman-CERP/scribeindex/internal/scanner"
)

// Operation is a content file change.
type Operation int

const (
	// OpCreate indicates a new file.
	OpCreate Operation = iota
	// OpModify indicates an existing file changed.
	OpModify
	// OpDelete indicates a file was removed or renamed away.
	OpDelete
)

// String returns the operation name.
func (op Operation) String() string {
	switch op {
	case OpCreate:
		return "CREATE"
	case OpModify:
		return "MODIFY"
	case OpDelete:
		return "DELETE"
	default:
		return "UNKNOWN"
	}
}

// FileEvent is a change to one content file.
type FileEvent struct {
	// Path is the absolute file path.
	Path string

	// Tool is the tool type, the first directory under the content root.
	Tool string

	Operation Operation
	Timestamp time.Time
}

// Options configures a ContentWatcher.
type Options struct {
	// DebounceWindow is how long to wait for quiet before emitting a
	// batch. Default: 300ms
	DebounceWindow time.Duration

	// PollInterval is the scan interval of the polling fallback.
	// Default: 5s
	PollInterval time.Duration

	// EventBufferSize is the batch channel capacity. Default: 100
	EventBufferSize int

	// ForcePolling skips fsnotify.
	ForcePolling bool
}

// DefaultOptions returns the default watcher options.
func DefaultOptions() Options {
	return Options{
		DebounceWindow:  300 * time.Millisecond,
		PollInterval:    5 * time.Second,
		EventBufferSize: 100,
	}
}

// WithDefaults fills zero values from DefaultOptions.
func (o Options) WithDefaults() Options {
	d := DefaultOptions()
	if o.DebounceWindow <= 0 {
		o.DebounceWindow = d.DebounceWindow
	}
	if o.PollInterval <= 0 {
		o.PollInterval = d.PollInterval
	}
	if o.EventBufferSize <= 0 {
		o.EventBufferSize = d.EventBufferSize
	}
	return o
}

// toolOf returns the tool directory of relPath, or "" when relPath is not
// inside one.
func toolOf(relPath string) string {
	parts := strings.SplitN(filepath.ToSlash(relPath), "/", 2)
	if len(parts) < 2 || parts[0] == "" || parts[0] == "." || parts[0] == ".." {
		return ""
	}
	return parts[0]
}

// isHidden reports whether any element of relPath starts with a dot.
func isHidden(relPath string) bool {
	for _, part := range strings.Split(filepath.ToSlash(relPath), "/") {
		if strings.HasPrefix(part, ".") && part != "." {
			return true
		}
	}
	return false
}

// relevant reports whether a file path under the content root should
// produce events.
func relevant(relPath string) bool {
	return toolOf(relPath) != "" && !isHidden(relPath) && scanner.IsSupported(relPath)
}
