// Package content extracts titles, body text, and metadata from content
// files. The set of extractors is closed: JSON, Markdown, and plain text,
// selected by file extension.
package content

import (
	"time"

	"github.com/Aman-CERP/scribeindex/internal/scanner"
)

// Kind identifies a content extractor.
type Kind int

const (
	// KindJSON is a structured JSON record.
	KindJSON Kind = iota
	// KindMarkdown is a Markdown note.
	KindMarkdown
	// KindPlainText is an unformatted text file.
	KindPlainText
)

// String returns the content-type tag stored on processed content.
func (k Kind) String() string {
	switch k {
	case KindJSON:
		return "json"
	case KindMarkdown:
		return "markdown"
	case KindPlainText:
		return "text"
	default:
		return "unknown"
	}
}

// KindForExtension maps a lowercase extension (no dot) to its extractor.
// Scannable extensions without an extractor, such as rtf, report false.
func KindForExtension(ext string) (Kind, bool) {
	switch ext {
	case "json":
		return KindJSON, true
	case "md", "markdown":
		return KindMarkdown, true
	case "txt":
		return KindPlainText, true
	default:
		return 0, false
	}
}

// KindForPath maps a file path to its extractor.
func KindForPath(path string) (Kind, bool) {
	return KindForExtension(scanner.Extension(path))
}

// ProcessedContent is the extraction result for one file. It is not
// modified after Process returns and may be shared between entries.
type ProcessedContent struct {
	SourcePath     string         `json:"source_path"`
	ContentType    string         `json:"content_type"`
	Title          string         `json:"title,omitempty"`
	Body           string         `json:"body_text"`
	Metadata       map[string]any `json:"metadata"`
	Keywords       []string       `json:"keywords"`
	Tags           []string       `json:"tags"`
	References     []string       `json:"references"`
	WordCount      int            `json:"word_count"`
	CharacterCount int            `json:"character_count"`
	CreatedAt      *time.Time     `json:"created_at,omitempty"`
	ModifiedAt     *time.Time     `json:"modified_at,omitempty"`
}

// HasTitle reports whether a title was extracted.
func (c *ProcessedContent) HasTitle() bool {
	return c.Title != ""
}
