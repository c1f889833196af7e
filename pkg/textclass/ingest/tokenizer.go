package ingest

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MinTokenLength is the shortest token, in runes, the tokenizer keeps.
const MinTokenLength = 2

// Tokenizer handles text tokenization and normalization.
// It is safe for concurrent Tokenize calls as long as the stopword
// list is not modified at the same time.
type Tokenizer struct {
	stopwords map[string]struct{}
}

// NewTokenizer creates a new tokenizer with the given stopword list
func NewTokenizer(stopwords []string) *Tokenizer {
	stops := make(map[string]struct{}, len(stopwords))
	for _, w := range stopwords {
		stops[strings.ToLower(w)] = struct{}{}
	}
	return &Tokenizer{stopwords: stops}
}

// Tokenize lower-cases text, strips punctuation, splits on whitespace and
// drops short tokens and stopwords. Punctuation inside a word is removed
// rather than treated as a separator, so "don't" becomes "dont".
func (t *Tokenizer) Tokenize(text string) []string {
	var tokens []string
	var current strings.Builder

	flush := func() {
		if current.Len() == 0 {
			return
		}
		if word := t.processToken(current.String()); word != "" {
			tokens = append(tokens, word)
		}
		current.Reset()
	}

	for _, r := range text {
		switch {
		case unicode.IsLetter(r) || unicode.IsNumber(r):
			current.WriteRune(unicode.ToLower(r))
		case unicode.IsSpace(r):
			flush()
		}
	}
	flush()

	return tokens
}

// processToken applies length and stopword filtering.
func (t *Tokenizer) processToken(word string) string {
	if utf8.RuneCountInString(word) < MinTokenLength {
		return ""
	}
	if t.isStopword(word) {
		return ""
	}
	return word
}

func (t *Tokenizer) isStopword(word string) bool {
	_, ok := t.stopwords[word]
	return ok
}

// Stopwords returns the configured stopword list, sorted.
func (t *Tokenizer) Stopwords() []string {
	out := make([]string, 0, len(t.stopwords))
	for w := range t.stopwords {
		out = append(out, w)
	}
	sort.Strings(out)
	return out
}

// AddStopword adds a word to the stopword list
func (t *Tokenizer) AddStopword(word string) {
	t.stopwords[strings.ToLower(word)] = struct{}{}
}

// RemoveStopword removes a word from the stopword list
func (t *Tokenizer) RemoveStopword(word string) {
	delete(t.stopwords, strings.ToLower(word))
}
