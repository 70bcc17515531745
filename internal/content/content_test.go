package content

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ierrors "github.com/Aman-CERP/scribeindex/internal/errors"
)

func writeTemp(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestKindForExtension(t *testing.T) {
	tests := []struct {
		ext  string
		want Kind
		ok   bool
	}{
		{"json", KindJSON, true},
		{"md", KindMarkdown, true},
		{"markdown", KindMarkdown, true},
		{"txt", KindPlainText, true},
		{"rtf", 0, false},
		{"go", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.ext, func(t *testing.T) {
			got, ok := KindForExtension(tt.ext)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestProcess_JSONRecord(t *testing.T) {
	// Given a JSON record with title and content
	path := writeTemp(t, "note.json", `{"title":"T","content":"abc"}`)

	// When processed
	pc, err := NewProcessor().Process(context.Background(), path)

	// Then title, body, and counts come from the record
	require.NoError(t, err)
	assert.Equal(t, "T", pc.Title)
	assert.Equal(t, "abc", pc.Body)
	assert.Equal(t, 1, pc.WordCount)
	assert.Equal(t, 3, pc.CharacterCount)
	assert.Equal(t, "json", pc.ContentType)
	assert.Equal(t, path, pc.SourcePath)
	assert.Equal(t, "T", pc.Metadata["title"])
	assert.NotNil(t, pc.ModifiedAt)
}

func TestProcess_JSONTagsAndDate(t *testing.T) {
	path := writeTemp(t, "tagged.json",
		`{"title":"Tagged","content":"body words","tags":["alpha","beta"],"keywords":"gamma","created_at":"2024-01-15"}`)

	pc, err := NewProcessor().Process(context.Background(), path)

	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "beta"}, pc.Tags)
	assert.Equal(t, []string{"gamma"}, pc.Keywords)
	require.NotNil(t, pc.CreatedAt)
	assert.Equal(t, time.January, pc.CreatedAt.Month())
	assert.Equal(t, 15, pc.CreatedAt.Day())
}

func TestProcess_JSONNonObject(t *testing.T) {
	path := writeTemp(t, "list.json", `[1,2,3]`)

	pc, err := NewProcessor().Process(context.Background(), path)

	require.NoError(t, err)
	assert.False(t, pc.HasTitle())
	assert.Empty(t, pc.Body)
	assert.NotNil(t, pc.Metadata)
}

func TestProcess_MalformedJSON(t *testing.T) {
	path := writeTemp(t, "bad.json", `{"title":`)

	_, err := NewProcessor().Process(context.Background(), path)

	require.Error(t, err)
	assert.True(t, ierrors.IsKind(err, ierrors.KindFileProcessing))
}

func TestProcess_MarkdownHeading(t *testing.T) {
	// Given markdown with a heading, emphasis, a link and a wiki link
	src := "# Hello World\n\nSome *bold* text with [link](https://example.com) and [[Other Note|alias]].\n"
	path := writeTemp(t, "note.md", src)

	// When processed
	pc, err := NewProcessor().Process(context.Background(), path)

	// Then the heading becomes the title and markup is stripped
	require.NoError(t, err)
	assert.Equal(t, "Hello World", pc.Title)
	assert.Equal(t, "markdown", pc.ContentType)
	assert.NotContains(t, pc.Body, "#")
	assert.NotContains(t, pc.Body, "*")
	assert.NotContains(t, pc.Body, "[")
	assert.Contains(t, pc.Body, "bold")
	assert.Equal(t, []string{"https://example.com", "Other Note"}, pc.References)
}

func TestProcess_MarkdownFrontMatter(t *testing.T) {
	src := "---\ntitle: From Front Matter\ntags: [go, search]\nkeywords: index\n---\nBody text here\n"
	path := writeTemp(t, "fm.markdown", src)

	pc, err := NewProcessor().Process(context.Background(), path)

	require.NoError(t, err)
	assert.Equal(t, "From Front Matter", pc.Title)
	assert.Equal(t, []string{"go", "search"}, pc.Tags)
	assert.Equal(t, []string{"index"}, pc.Keywords)
	assert.Equal(t, "Body text here\n", pc.Body)
	assert.Equal(t, "From Front Matter", pc.Metadata["title"])
}

func TestProcess_MarkdownHeadingBeatsFrontMatter(t *testing.T) {
	src := "---\ntitle: Meta\n---\n# Heading\ncontent\n"
	path := writeTemp(t, "both.md", src)

	pc, err := NewProcessor().Process(context.Background(), path)

	require.NoError(t, err)
	assert.Equal(t, "Heading", pc.Title)
}

func TestProcess_MarkdownInvalidFrontMatter(t *testing.T) {
	// Given front matter that is not valid YAML
	src := "---\nkey: [unclosed\n---\nplain words\n"
	path := writeTemp(t, "broken.md", src)

	// When processed
	pc, err := NewProcessor().Process(context.Background(), path)

	// Then the whole file is treated as the body
	require.NoError(t, err)
	assert.Empty(t, pc.Metadata)
	assert.Contains(t, pc.Body, "plain words")
	assert.Contains(t, pc.Body, "unclosed")
}

func TestProcess_MarkdownWithoutTitle(t *testing.T) {
	path := writeTemp(t, "plain.md", "just a paragraph\n")

	pc, err := NewProcessor().Process(context.Background(), path)

	require.NoError(t, err)
	assert.False(t, pc.HasTitle())
}

func TestProcess_Text(t *testing.T) {
	path := writeTemp(t, "notes.txt", "First line\nsecond line\r\nthird")

	pc, err := NewProcessor().Process(context.Background(), path)

	require.NoError(t, err)
	assert.Equal(t, "First line", pc.Title)
	assert.Equal(t, "First line\nsecond line\r\nthird", pc.Body)
	assert.Equal(t, 5, pc.WordCount)
	assert.Equal(t, "text", pc.ContentType)
}

func TestProcess_EmptyText(t *testing.T) {
	path := writeTemp(t, "empty.txt", "")

	pc, err := NewProcessor().Process(context.Background(), path)

	require.NoError(t, err)
	assert.False(t, pc.HasTitle())
	assert.Equal(t, 0, pc.WordCount)
}

func TestProcess_UnsupportedExtension(t *testing.T) {
	path := writeTemp(t, "doc.rtf", `{\rtf1 hello}`)

	_, err := NewProcessor().Process(context.Background(), path)

	require.Error(t, err)
	assert.True(t, ierrors.IsKind(err, ierrors.KindFileProcessing))
	assert.Contains(t, err.Error(), "no processor available for file type: rtf")
}

func TestProcess_MissingFile(t *testing.T) {
	_, err := NewProcessor().Process(context.Background(), filepath.Join(t.TempDir(), "gone.txt"))

	require.Error(t, err)
	assert.True(t, ierrors.IsRecoverable(err))
}

func TestProcess_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewProcessor().Process(ctx, writeTemp(t, "a.txt", "x"))

	assert.ErrorIs(t, err, context.Canceled)
}

func TestCachedProcessor(t *testing.T) {
	// Given a cached processor and an unchanged file
	path := writeTemp(t, "cached.txt", "Cached title\nbody")
	ext, err := NewCachedProcessor(NewProcessor(), 8)
	require.NoError(t, err)
	cp := ext.(*CachedProcessor)

	// When processed twice
	first, err := cp.Process(context.Background(), path)
	require.NoError(t, err)
	second, err := cp.Process(context.Background(), path)
	require.NoError(t, err)

	// Then the second call is a hit with equal content
	hits, misses := cp.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)
	assert.Equal(t, first.Title, second.Title)

	// When the file changes size
	require.NoError(t, os.WriteFile(path, []byte("New title\nlonger body text"), 0o644))
	third, err := cp.Process(context.Background(), path)

	// Then it is re-extracted
	require.NoError(t, err)
	assert.Equal(t, "New title", third.Title)
	_, misses = cp.Stats()
	assert.Equal(t, int64(2), misses)
}

func TestNewCachedProcessor_Disabled(t *testing.T) {
	p := NewProcessor()
	ext, err := NewCachedProcessor(p, 0)

	require.NoError(t, err)
	assert.Same(t, p, ext)
}
