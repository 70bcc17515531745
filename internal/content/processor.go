package content

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	ierrors "github.com/Aman-CERP/scribeindex/internal/errors"
	"github.com/Aman-CERP/scribeindex/internal/scanner"
)

// ErrNoProcessor is the cause of the error returned for scannable files
// that have no extractor.
var ErrNoProcessor = errors.New("no processor for file type")

// Processor reads a file and runs the extractor for its extension.
type Processor struct{}

// NewProcessor creates a Processor.
func NewProcessor() *Processor {
	return &Processor{}
}

// Process extracts ProcessedContent from path. Failures are returned as
// FileProcessing or PermissionDenied IndexErrors carrying the path.
func (p *Processor) Process(ctx context.Context, path string) (*ProcessedContent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ext := scanner.Extension(path)
	kind, ok := KindForExtension(ext)
	if !ok {
		return nil, ierrors.FileProcessing(path, fmt.Sprintf("no processor available for file type: %s", ext), ErrNoProcessor)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsPermission(err) {
			return nil, ierrors.Permission(path, err)
		}
		return nil, ierrors.FileProcessing(path, "failed to read file: "+err.Error(), err)
	}

	var pc *ProcessedContent
	switch kind {
	case KindJSON:
		pc, err = extractJSON(data)
	case KindMarkdown:
		pc = extractMarkdown(data)
	case KindPlainText:
		pc = extractText(data)
	}
	if err != nil {
		return nil, ierrors.FileProcessing(path, err.Error(), err)
	}

	pc.SourcePath = path
	pc.ContentType = kind.String()
	pc.WordCount = len(strings.Fields(pc.Body))
	pc.CharacterCount = len(pc.Body)
	if pc.Metadata == nil {
		pc.Metadata = map[string]any{}
	}
	if info, statErr := os.Stat(path); statErr == nil {
		mod := info.ModTime()
		pc.ModifiedAt = &mod
	}

	return pc, nil
}

// firstLine returns the text before the first newline, without a
// trailing carriage return.
func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSuffix(s, "\r")
}

// stringList converts a decoded JSON or YAML value into a string slice.
// A single string becomes a one-element slice; other values are dropped.
func stringList(v any) []string {
	switch t := v.(type) {
	case string:
		if t == "" {
			return nil
		}
		return []string{t}
	case []string:
		return t
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
