// Package analytics aggregates corpus statistics used to tune the
// stop-word list: document frequency per token and how evenly each token
// spreads over the labels.
package analytics

import (
	"math"
	"sort"

	"github.com/cognicore/textclass/pkg/textclass/stoplist"
)

// Analyzer aggregates document-level token/label stats.
type Analyzer struct {
	totalDocs   int64
	tokenDF     map[string]int64
	tokenLabels map[string]map[string]int64
	labelDocs   map[string]int64
}

// NewAnalyzer creates an empty analyzer.
func NewAnalyzer() *Analyzer {
	return &Analyzer{
		tokenDF:     make(map[string]int64),
		tokenLabels: make(map[string]map[string]int64),
		labelDocs:   make(map[string]int64),
	}
}

// Process consumes one document's tokens and label. Each token counts once
// per document.
func (a *Analyzer) Process(tokens []string, label string) {
	a.totalDocs++
	if label != "" {
		a.labelDocs[label]++
	}

	seen := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		if tok == "" {
			continue
		}
		if _, ok := seen[tok]; ok {
			continue
		}
		seen[tok] = struct{}{}
		a.tokenDF[tok]++
		if label == "" {
			continue
		}
		if a.tokenLabels[tok] == nil {
			a.tokenLabels[tok] = make(map[string]int64)
		}
		a.tokenLabels[tok][label]++
	}
}

// Stats exposes the aggregated counts.
type Stats struct {
	TotalDocs   int64
	TokenDF     map[string]int64
	TokenLabels map[string]map[string]int64
	LabelDocs   map[string]int64
}

// Snapshot returns a copy of the accumulated statistics.
func (a *Analyzer) Snapshot() Stats {
	copyLabels := make(map[string]map[string]int64, len(a.tokenLabels))
	for tok, labels := range a.tokenLabels {
		copyLabels[tok] = make(map[string]int64, len(labels))
		for label, count := range labels {
			copyLabels[tok][label] = count
		}
	}
	copyDF := make(map[string]int64, len(a.tokenDF))
	for tok, count := range a.tokenDF {
		copyDF[tok] = count
	}
	copyDocs := make(map[string]int64, len(a.labelDocs))
	for label, count := range a.labelDocs {
		copyDocs[label] = count
	}
	return Stats{
		TotalDocs:   a.totalDocs,
		TokenDF:     copyDF,
		TokenLabels: copyLabels,
		LabelDocs:   copyDocs,
	}
}

// Labels returns the labels seen so far, sorted.
func (s Stats) Labels() []string {
	out := make([]string, 0, len(s.LabelDocs))
	for label := range s.LabelDocs {
		out = append(out, label)
	}
	sort.Strings(out)
	return out
}

// StopwordStats converts corpus stats into the format expected by
// stoplist.Manager.SuggestCandidates, sorted by token. Label entropy is
// normalized by log2 of the number of labels in the corpus, so 1 means the
// token is spread perfectly evenly.
func (s Stats) StopwordStats() []stoplist.Stats {
	if s.TotalDocs == 0 {
		return nil
	}
	out := make([]stoplist.Stats, 0, len(s.TokenDF))
	for tok, df := range s.TokenDF {
		idf := math.Log(float64(s.TotalDocs) / (1 + float64(df)))
		if idf < 0 {
			idf = 0
		}
		out = append(out, stoplist.Stats{
			Token:        tok,
			DF:           df,
			DFPercent:    100 * (float64(df) / float64(s.TotalDocs)),
			IDF:          idf,
			LabelEntropy: normalizedEntropy(s.TokenLabels[tok], len(s.LabelDocs)),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Token < out[j].Token })
	return out
}

func normalizedEntropy(counts map[string]int64, labels int) float64 {
	if labels < 2 || len(counts) == 0 {
		return 0
	}
	var total float64
	for _, c := range counts {
		total += float64(c)
	}
	if total == 0 {
		return 0
	}
	// Sum in key order so the result does not depend on map iteration.
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var h float64
	for _, k := range keys {
		p := float64(counts[k]) / total
		if p > 0 {
			h -= p * math.Log2(p)
		}
	}
	return h / math.Log2(float64(labels))
}
