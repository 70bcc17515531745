// Package index holds the inverted index data model and the pure
// operations over it: entry construction, postings assembly, optimization,
// change application, and structural validation. Persistence lives in
// internal/store; orchestration lives in internal/builder.
package index

import (
	"sort"
	"time"

	"github.com/Aman-CERP/scribeindex/internal/content"
)

// UntitledTitle is used when processed content carries no title.
const UntitledTitle = "Untitled"

// IndexEntry is the forward record for one indexed document.
type IndexEntry struct {
	ID              string                    `json:"id"`
	ToolType        string                    `json:"tool_type"`
	ContentType     string                    `json:"content_type"`
	Title           string                    `json:"title"`
	Content         string                    `json:"content"`
	Processed       *content.ProcessedContent `json:"processed_content"`
	SearchTerms     []string                  `json:"search_terms"`
	TermFrequencies map[string]int            `json:"term_frequencies"`
	Positions       map[string][]int          `json:"positions"`
}

// SourcePath returns the file the entry was built from, or "".
func (e *IndexEntry) SourcePath() string {
	if e.Processed == nil {
		return ""
	}
	return e.Processed.SourcePath
}

// Posting records one document's occurrences of a term.
type Posting struct {
	DocumentID string `json:"document_id"`
	Frequency  int    `json:"frequency"`
	Positions  []int  `json:"positions"`
}

// InvertedIndex is the persisted index for one tool type.
//
// Every document id referenced by a posting exists in Documents, and a
// term has postings iff at least one document lists it in SearchTerms.
type InvertedIndex struct {
	ToolType    string                 `json:"tool_type"`
	Documents   map[string]*IndexEntry `json:"documents"`
	Postings    map[string][]Posting   `json:"postings"`
	LastUpdated time.Time              `json:"last_updated"`
}

// New returns an empty index for tool.
func New(tool string) *InvertedIndex {
	return &InvertedIndex{
		ToolType:    tool,
		Documents:   make(map[string]*IndexEntry),
		Postings:    make(map[string][]Posting),
		LastUpdated: time.Now().UTC(),
	}
}

// Lookup returns the postings for term. An unknown term yields nil.
func (idx *InvertedIndex) Lookup(term string) []Posting {
	return idx.Postings[term]
}

// DocumentCount returns the number of forward records.
func (idx *InvertedIndex) DocumentCount() int {
	return len(idx.Documents)
}

// TermCount returns the number of distinct indexed terms.
func (idx *InvertedIndex) TermCount() int {
	return len(idx.Postings)
}

// PostingCount returns the total number of postings across all terms.
func (idx *InvertedIndex) PostingCount() int {
	n := 0
	for _, list := range idx.Postings {
		n += len(list)
	}
	return n
}

// FindBySourcePath returns the id of the document built from path.
func (idx *InvertedIndex) FindBySourcePath(path string) (string, bool) {
	for _, id := range idx.sortedIDs() {
		if idx.Documents[id].SourcePath() == path {
			return id, true
		}
	}
	return "", false
}

func (idx *InvertedIndex) sortedIDs() []string {
	ids := make([]string, 0, len(idx.Documents))
	for id := range idx.Documents {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
