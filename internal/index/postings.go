package index

import (
	"encoding/json"
	"sort"
	"strconv"
	"time"
)

// Assemble builds an index for tool from entries in the given order.
// Entries sharing an id keep the last one.
func Assemble(tool string, entries []*IndexEntry) *InvertedIndex {
	idx := New(tool)
	for _, e := range entries {
		idx.Documents[e.ID] = e
	}
	for _, e := range entries {
		if idx.Documents[e.ID] == e {
			appendPostings(idx.Postings, e)
		}
	}
	return idx
}

// RebuildPostings discards all postings and recomputes them from
// Documents, visiting documents in id order.
func (idx *InvertedIndex) RebuildPostings() {
	postings := make(map[string][]Posting)
	for _, id := range idx.sortedIDs() {
		appendPostings(postings, idx.Documents[id])
	}
	idx.Postings = postings
	idx.LastUpdated = time.Now().UTC()
}

func appendPostings(postings map[string][]Posting, e *IndexEntry) {
	for _, term := range e.SearchTerms {
		postings[term] = append(postings[term], Posting{
			DocumentID: e.ID,
			Frequency:  e.TermFrequencies[term],
			Positions:  e.Positions[term],
		})
	}
}

// OptimizeOptions selects optional post-processing hooks. Both hooks
// leave postings unchanged.
type OptimizeOptions struct {
	Compress bool
	Stem     bool
}

// Optimize orders every postings list by descending frequency, breaking
// ties by document id. Running it twice is the same as running it once.
func Optimize(idx *InvertedIndex, opts OptimizeOptions) {
	for term, list := range idx.Postings {
		sort.SliceStable(list, func(i, j int) bool {
			if list[i].Frequency != list[j].Frequency {
				return list[i].Frequency > list[j].Frequency
			}
			return list[i].DocumentID < list[j].DocumentID
		})
		idx.Postings[term] = list
	}
	if opts.Compress {
		compressPostings(idx)
	}
	if opts.Stem {
		stemTerms(idx)
	}
}

func compressPostings(*InvertedIndex) {}

func stemTerms(*InvertedIndex) {}

// pointerSize is the per-position cost used by EstimateSize.
const pointerSize = strconv.IntSize / 8

// EstimateSize approximates the in-memory size of idx in bytes. It is used
// for statistics only.
func EstimateSize(idx *InvertedIndex) int64 {
	var size int64
	for _, doc := range idx.Documents {
		size += int64(len(doc.Content) + len(doc.Title))
		if doc.Processed != nil {
			if meta, err := json.Marshal(doc.Processed.Metadata); err == nil {
				size += int64(len(meta))
			}
		}
	}
	for _, list := range idx.Postings {
		for _, p := range list {
			size += int64(len(p.DocumentID) + len(p.Positions)*pointerSize)
		}
	}
	return size
}
