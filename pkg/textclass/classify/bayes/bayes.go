// Package bayes implements a multinomial Naive Bayes classifier over raw
// term counts with add-one smoothing.
package bayes

import (
	"fmt"
	"math"

	"github.com/cognicore/textclass/pkg/textclass/classify"
	"github.com/cognicore/textclass/pkg/textclass/internalerr"
	"github.com/cognicore/textclass/pkg/textclass/vectorize"
)

// State is the trained parameter set. Counts rather than probabilities are
// kept so a persisted model reproduces its scores bit for bit.
type State struct {
	Classes    []string      `json:"classes"`     // first-seen order
	DocCounts  []int         `json:"doc_counts"`  // documents per class
	TermCounts []map[int]int `json:"term_counts"` // per class: vocabulary index → occurrences
}

// Classifier is a multinomial Naive Bayes model bound to a vocabulary.
type Classifier struct {
	vocab *vectorize.Vocabulary
	state State

	totalDocs int
	logDenom  []float64 // log(total_term_count(c) + |V|)
}

var _ classify.Classifier = (*Classifier)(nil)

// New creates an untrained classifier over vocab.
func New(vocab *vectorize.Vocabulary) *Classifier {
	return &Classifier{vocab: vocab}
}

// FromState rebuilds a trained classifier from persisted state.
func FromState(vocab *vectorize.Vocabulary, s State) (*Classifier, error) {
	if err := validate(vocab, s); err != nil {
		return nil, err
	}
	c := New(vocab)
	c.state = s
	c.prepare()
	return c, nil
}

// Kind implements classify.Classifier.
func (c *Classifier) Kind() classify.Kind { return classify.NaiveBayes }

// State returns the trained parameters.
func (c *Classifier) State() State { return c.state }

// Train counts documents per class and term occurrences per class. Tokens
// outside the vocabulary are ignored.
func (c *Classifier) Train(examples []classify.Example) error {
	if len(examples) == 0 {
		return classify.ErrNoExamples
	}

	order, counts := classify.Labels(examples)
	pos := make(map[string]int, len(order))
	s := State{
		Classes:    order,
		DocCounts:  make([]int, len(order)),
		TermCounts: make([]map[int]int, len(order)),
	}
	for i, label := range order {
		pos[label] = i
		s.DocCounts[i] = counts[label]
		s.TermCounts[i] = make(map[int]int)
	}

	for _, ex := range examples {
		ci := pos[ex.Label]
		for _, tok := range ex.Tokens {
			if idx, ok := c.vocab.Index(tok); ok {
				s.TermCounts[ci][idx]++
			}
		}
	}

	c.state = s
	c.prepare()
	return nil
}

func (c *Classifier) prepare() {
	v := float64(c.vocab.Len())
	c.totalDocs = 0
	c.logDenom = make([]float64, len(c.state.Classes))
	for i := range c.state.Classes {
		c.totalDocs += c.state.DocCounts[i]
		total := 0
		for _, n := range c.state.TermCounts[i] {
			total += n
		}
		c.logDenom[i] = math.Log(float64(total) + v)
	}
}

// LogScores returns log P(c) + Σ log P(t|c) for every class in class order.
func (c *Classifier) LogScores(tokens []string) []float64 {
	scores := make([]float64, len(c.state.Classes))
	for i := range c.state.Classes {
		if c.state.DocCounts[i] == 0 {
			scores[i] = math.Inf(-1)
			continue
		}
		s := math.Log(float64(c.state.DocCounts[i]) / float64(c.totalDocs))
		for _, tok := range tokens {
			idx, ok := c.vocab.Index(tok)
			if !ok {
				continue
			}
			s += math.Log(float64(c.state.TermCounts[i][idx]+1)) - c.logDenom[i]
		}
		scores[i] = s
	}
	return scores
}

// Predict picks the class with the highest log score. Ties go to the class
// seen first during training. Confidence is the softmax posterior of the
// winner; Scores carries the posterior of every class.
func (c *Classifier) Predict(q classify.Query) (classify.Result, error) {
	if len(c.state.Classes) == 0 || c.totalDocs == 0 {
		return classify.Result{}, classify.ErrUntrained
	}

	scores := c.LogScores(q.Tokens)
	best := 0
	for i := 1; i < len(scores); i++ {
		if scores[i] > scores[best] {
			best = i
		}
	}

	posteriors := softmax(scores, scores[best])
	out := classify.Result{
		Label:      c.state.Classes[best],
		Confidence: posteriors[best],
		Scores:     make(map[string]float64, len(scores)),
	}
	for i, label := range c.state.Classes {
		out.Scores[label] = posteriors[i]
	}
	return out, nil
}

func softmax(scores []float64, top float64) []float64 {
	out := make([]float64, len(scores))
	var sum float64
	for i, s := range scores {
		if math.IsInf(s, -1) {
			continue
		}
		out[i] = math.Exp(s - top)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

func validate(vocab *vectorize.Vocabulary, s State) error {
	n := len(s.Classes)
	if n == 0 {
		return fmt.Errorf("%w: naive bayes state has no classes", internalerr.ErrCorruptModelRecord)
	}
	if len(s.DocCounts) != n || len(s.TermCounts) != n {
		return fmt.Errorf("%w: naive bayes state has mismatched class tables", internalerr.ErrCorruptModelRecord)
	}
	seen := make(map[string]struct{}, n)
	total := 0
	for i, label := range s.Classes {
		if label == "" {
			return fmt.Errorf("%w: empty class label", internalerr.ErrCorruptModelRecord)
		}
		if _, dup := seen[label]; dup {
			return fmt.Errorf("%w: duplicate class %q", internalerr.ErrCorruptModelRecord, label)
		}
		seen[label] = struct{}{}
		if s.DocCounts[i] < 0 {
			return fmt.Errorf("%w: negative document count for %q", internalerr.ErrCorruptModelRecord, label)
		}
		total += s.DocCounts[i]
		for idx, cnt := range s.TermCounts[i] {
			if idx < 0 || idx >= vocab.Len() || cnt < 0 {
				return fmt.Errorf("%w: bad term count %d→%d for %q", internalerr.ErrCorruptModelRecord, idx, cnt, label)
			}
		}
	}
	if total == 0 {
		return fmt.Errorf("%w: naive bayes state has no documents", internalerr.ErrCorruptModelRecord)
	}
	return nil
}
