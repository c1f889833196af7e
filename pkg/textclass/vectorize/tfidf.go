package vectorize

import (
	"fmt"
	"math"
	"sort"

	"github.com/cognicore/textclass/pkg/textclass/internalerr"
)

// Vocabulary maps terms to stable indices in first-seen order and carries the
// document frequencies and IDF values frozen at fit time.
type Vocabulary struct {
	terms []string
	index map[string]int
	df    []int
	docs  int
	idf   []float64
}

// Snapshot is the persisted form of a vocabulary. IDF is derived, not stored.
type Snapshot struct {
	Terms []string `json:"terms"`
	DF    []int    `json:"df"`
	Docs  int      `json:"docs"`
}

// IDF computes ln(N / (1 + df)), clamped at zero so a term present in every
// document weighs nothing instead of a negative amount.
func IDF(n, df int) float64 {
	if n <= 0 {
		return 0
	}
	v := math.Log(float64(n) / (1 + float64(df)))
	if v < 0 {
		return 0
	}
	return v
}

// Fit builds a vocabulary from tokenized documents. Document frequency
// counts each term once per document.
func Fit(docs [][]string) *Vocabulary {
	v := &Vocabulary{
		index: make(map[string]int),
		docs:  len(docs),
	}
	for _, tokens := range docs {
		seen := make(map[int]struct{}, len(tokens))
		for _, tok := range tokens {
			if tok == "" {
				continue
			}
			idx, ok := v.index[tok]
			if !ok {
				idx = len(v.terms)
				v.index[tok] = idx
				v.terms = append(v.terms, tok)
				v.df = append(v.df, 0)
			}
			if _, dup := seen[idx]; dup {
				continue
			}
			seen[idx] = struct{}{}
			v.df[idx]++
		}
	}
	v.computeIDF()
	return v
}

func (v *Vocabulary) computeIDF() {
	v.idf = make([]float64, len(v.terms))
	for i, df := range v.df {
		v.idf[i] = IDF(v.docs, df)
	}
}

// Len returns the vocabulary size, the dimensionality of every vector.
func (v *Vocabulary) Len() int { return len(v.terms) }

// Docs returns the size of the training corpus the vocabulary was fit on.
func (v *Vocabulary) Docs() int { return v.docs }

// Index returns the position of a term.
func (v *Vocabulary) Index(term string) (int, bool) {
	idx, ok := v.index[term]
	return idx, ok
}

// Term returns the term at a position.
func (v *Vocabulary) Term(index int) string { return v.terms[index] }

// Terms returns all terms in index order.
func (v *Vocabulary) Terms() []string {
	out := make([]string, len(v.terms))
	copy(out, v.terms)
	return out
}

// DF returns the training document frequency of a term, 0 if unknown.
func (v *Vocabulary) DF(term string) int {
	if idx, ok := v.index[term]; ok {
		return v.df[idx]
	}
	return 0
}

// IDF returns the frozen IDF for a term, 0 if unknown.
func (v *Vocabulary) IDF(term string) float64 {
	if idx, ok := v.index[term]; ok {
		return v.idf[idx]
	}
	return 0
}

// Transform converts tokens into a TF-IDF vector where tf is the raw count of
// the term in tokens. Out-of-vocabulary tokens are dropped.
func (v *Vocabulary) Transform(tokens []string) Vector {
	tf := make(map[int]int, len(tokens))
	for _, tok := range tokens {
		if idx, ok := v.index[tok]; ok {
			tf[idx]++
		}
	}
	if len(tf) == 0 {
		return Vector{}
	}

	indices := make([]int, 0, len(tf))
	for idx := range tf {
		indices = append(indices, idx)
	}
	sort.Ints(indices)

	weights := make([]float64, len(indices))
	for i, idx := range indices {
		weights[i] = float64(tf[idx]) * v.idf[idx]
	}
	return Vector{Indices: indices, Weights: weights}
}

// Presence returns the set of vocabulary indices present in tokens.
func (v *Vocabulary) Presence(tokens []string) map[int]struct{} {
	set := make(map[int]struct{}, len(tokens))
	for _, tok := range tokens {
		if idx, ok := v.index[tok]; ok {
			set[idx] = struct{}{}
		}
	}
	return set
}

// Snapshot returns the persisted form of the vocabulary.
func (v *Vocabulary) Snapshot() Snapshot {
	s := Snapshot{
		Terms: make([]string, len(v.terms)),
		DF:    make([]int, len(v.df)),
		Docs:  v.docs,
	}
	copy(s.Terms, v.terms)
	copy(s.DF, v.df)
	return s
}

// Restore rebuilds a vocabulary from a snapshot, recomputing IDF.
func Restore(s Snapshot) (*Vocabulary, error) {
	if len(s.Terms) != len(s.DF) {
		return nil, fmt.Errorf("%w: vocabulary has %d terms but %d df entries",
			internalerr.ErrCorruptModelRecord, len(s.Terms), len(s.DF))
	}
	if s.Docs < 0 || (len(s.Terms) > 0 && s.Docs == 0) {
		return nil, fmt.Errorf("%w: vocabulary corpus size %d", internalerr.ErrCorruptModelRecord, s.Docs)
	}

	v := &Vocabulary{
		terms: make([]string, len(s.Terms)),
		index: make(map[string]int, len(s.Terms)),
		df:    make([]int, len(s.DF)),
		docs:  s.Docs,
	}
	for i, term := range s.Terms {
		if term == "" {
			return nil, fmt.Errorf("%w: empty term at index %d", internalerr.ErrCorruptModelRecord, i)
		}
		if _, dup := v.index[term]; dup {
			return nil, fmt.Errorf("%w: duplicate term %q", internalerr.ErrCorruptModelRecord, term)
		}
		if s.DF[i] < 1 || s.DF[i] > s.Docs {
			return nil, fmt.Errorf("%w: df %d for term %q", internalerr.ErrCorruptModelRecord, s.DF[i], term)
		}
		v.terms[i] = term
		v.index[term] = i
		v.df[i] = s.DF[i]
	}
	v.computeIDF()
	return v, nil
}
