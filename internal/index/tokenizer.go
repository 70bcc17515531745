package index

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/character"
)

// StopWords are dropped from every token stream.
var StopWords = []string{
	"the", "a", "an", "and", "or", "but",
	"in", "on", "at", "to", "for", "of", "with", "by",
}

// MinTermLength is the shortest token kept, in characters.
const MinTermLength = 3

// Tokenizer splits text on whitespace, lowercases, and drops stop words
// and short tokens.
type Tokenizer struct {
	split     analysis.Tokenizer
	lower     analysis.TokenFilter
	stopWords map[string]struct{}
}

// NewTokenizer creates a Tokenizer with the default stop word list.
func NewTokenizer() *Tokenizer {
	stop := make(map[string]struct{}, len(StopWords))
	for _, w := range StopWords {
		stop[w] = struct{}{}
	}
	return &Tokenizer{
		split: character.NewCharacterTokenizer(func(r rune) bool {
			return !unicode.IsSpace(r)
		}),
		lower:     lowercase.NewLowerCaseFilter(),
		stopWords: stop,
	}
}

// Tokenize implements analysis.Tokenizer. Start and End are byte offsets
// into input.
func (t *Tokenizer) Tokenize(input []byte) analysis.TokenStream {
	stream := t.lower.Filter(t.split.Tokenize(input))
	kept := stream[:0]
	for _, tok := range stream {
		if t.keep(string(tok.Term)) {
			kept = append(kept, tok)
		}
	}
	return kept
}

// Terms returns the kept tokens of text in order, with repeats.
func (t *Tokenizer) Terms(text string) []string {
	if text == "" {
		return nil
	}
	stream := t.Tokenize([]byte(text))
	terms := make([]string, 0, len(stream))
	for _, tok := range stream {
		terms = append(terms, string(tok.Term))
	}
	return terms
}

func (t *Tokenizer) keep(term string) bool {
	if utf8.RuneCountInString(term) < MinTermLength {
		return false
	}
	_, stop := t.stopWords[term]
	return !stop
}

// termPositions returns zero-based character offsets of term in lowered,
// scanning left to right without overlap. Matches are substring matches.
func termPositions(lowered, term string) []int {
	var positions []int
	offset, chars := 0, 0
	termChars := utf8.RuneCountInString(term)
	for {
		i := strings.Index(lowered[offset:], term)
		if i < 0 {
			return positions
		}
		chars += utf8.RuneCountInString(lowered[offset : offset+i])
		positions = append(positions, chars)
		chars += termChars
		offset += i + len(term)
	}
}

// lowerRunes lowercases s rune for rune, so character offsets in the
// result match those in s.
func lowerRunes(s string) string {
	return strings.Map(unicode.ToLower, s)
}

var _ analysis.Tokenizer = (*Tokenizer)(nil)
