package index

import (
	"sort"

	"github.com/google/uuid"

	"github.com/Aman-CERP/scribeindex/internal/content"
)

// EntryBuilder turns processed content into index entries.
type EntryBuilder struct {
	tokenizer *Tokenizer
	stem      func(string) string
}

// EntryOption configures an EntryBuilder.
type EntryOption func(*EntryBuilder)

// WithStemmer installs a term normalization hook applied after
// tokenization. The default is the identity function.
func WithStemmer(stem func(string) string) EntryOption {
	return func(b *EntryBuilder) {
		if stem != nil {
			b.stem = stem
		}
	}
}

// NewEntryBuilder creates an EntryBuilder.
func NewEntryBuilder(opts ...EntryOption) *EntryBuilder {
	b := &EntryBuilder{
		tokenizer: NewTokenizer(),
		stem:      func(s string) string { return s },
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build creates an entry with a fresh id. The vocabulary covers title,
// body, keywords, and tags; frequencies and positions cover the body only.
func (b *EntryBuilder) Build(pc *content.ProcessedContent, tool string) *IndexEntry {
	title := pc.Title
	if title == "" {
		title = UntitledTitle
	}

	entry := &IndexEntry{
		ID:              uuid.NewString(),
		ToolType:        tool,
		ContentType:     pc.ContentType,
		Title:           title,
		Content:         pc.Body,
		Processed:       pc,
		TermFrequencies: make(map[string]int),
		Positions:       make(map[string][]int),
	}

	vocab := make(map[string]struct{})
	addAll := func(text string) {
		for _, term := range b.tokenizer.Terms(text) {
			vocab[b.stem(term)] = struct{}{}
		}
	}
	addAll(pc.Title)
	addAll(pc.Body)
	for _, kw := range pc.Keywords {
		addAll(kw)
	}
	for _, tag := range pc.Tags {
		addAll(tag)
	}

	entry.SearchTerms = make([]string, 0, len(vocab))
	for term := range vocab {
		entry.SearchTerms = append(entry.SearchTerms, term)
	}
	sort.Strings(entry.SearchTerms)

	for _, term := range b.tokenizer.Terms(pc.Body) {
		entry.TermFrequencies[b.stem(term)]++
	}

	if pc.Body != "" {
		lowered := lowerRunes(pc.Body)
		for _, term := range entry.SearchTerms {
			if positions := termPositions(lowered, term); len(positions) > 0 {
				entry.Positions[term] = positions
			}
		}
	}

	return entry
}

var defaultBuilder = NewEntryBuilder()

// BuildEntry builds an entry with the default EntryBuilder.
func BuildEntry(pc *content.ProcessedContent, tool string) *IndexEntry {
	return defaultBuilder.Build(pc, tool)
}
