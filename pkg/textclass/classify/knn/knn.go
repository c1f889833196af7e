// Package knn implements a k-nearest-neighbours classifier over cosine
// similarity of TF-IDF vectors. Prediction cost grows linearly with the
// number of stored training documents.
package knn

import (
	"fmt"

	"github.com/cognicore/textclass/pkg/textclass/classify"
	"github.com/cognicore/textclass/pkg/textclass/internalerr"
	"github.com/cognicore/textclass/pkg/textclass/similarity"
	"github.com/cognicore/textclass/pkg/textclass/vectorize"
)

// DefaultK is the neighbourhood size used when none is configured.
const DefaultK = 5

// State holds every training vector and label verbatim.
type State struct {
	K       int                `json:"k"`
	Vectors []vectorize.Vector `json:"vectors"`
	Labels  []string           `json:"labels"`
}

// Classifier is a KNN model.
type Classifier struct {
	state State
}

var _ classify.Classifier = (*Classifier)(nil)

// New creates an untrained classifier. k <= 0 selects DefaultK.
func New(k int) *Classifier {
	if k <= 0 {
		k = DefaultK
	}
	return &Classifier{state: State{K: k}}
}

// FromState rebuilds a trained classifier, checking every stored vector
// against the vocabulary dimension.
func FromState(vocab *vectorize.Vocabulary, s State) (*Classifier, error) {
	if s.K <= 0 {
		return nil, fmt.Errorf("%w: knn k=%d", internalerr.ErrCorruptModelRecord, s.K)
	}
	if len(s.Vectors) == 0 || len(s.Vectors) != len(s.Labels) {
		return nil, fmt.Errorf("%w: knn has %d vectors and %d labels",
			internalerr.ErrCorruptModelRecord, len(s.Vectors), len(s.Labels))
	}
	for i, v := range s.Vectors {
		if !v.Valid(vocab.Len()) {
			return nil, fmt.Errorf("%w: knn vector %d is malformed", internalerr.ErrCorruptModelRecord, i)
		}
		if s.Labels[i] == "" {
			return nil, fmt.Errorf("%w: knn label %d is empty", internalerr.ErrCorruptModelRecord, i)
		}
	}
	return &Classifier{state: s}, nil
}

// Kind implements classify.Classifier.
func (c *Classifier) Kind() classify.Kind { return classify.KNN }

// K returns the neighbourhood size.
func (c *Classifier) K() int { return c.state.K }

// State returns the stored training set.
func (c *Classifier) State() State { return c.state }

// Train stores the vectors and labels of examples.
func (c *Classifier) Train(examples []classify.Example) error {
	if len(examples) == 0 {
		return classify.ErrNoExamples
	}
	vectors := make([]vectorize.Vector, len(examples))
	labels := make([]string, len(examples))
	for i, ex := range examples {
		vectors[i] = ex.Vector
		labels[i] = ex.Label
	}
	c.state.Vectors = vectors
	c.state.Labels = labels
	return nil
}

// Predict takes a majority vote among the k most similar training vectors.
// A vote tie goes to the label of the most similar neighbour among the tied
// labels. Confidence is the winning share of the votes.
func (c *Classifier) Predict(q classify.Query) (classify.Result, error) {
	if len(c.state.Vectors) == 0 {
		return classify.Result{}, classify.ErrUntrained
	}

	neighbors := similarity.Nearest(q.Vector, c.state.Vectors, c.state.K)

	var order []string
	votes := make(map[string]int)
	for _, n := range neighbors {
		label := c.state.Labels[n.Index]
		if _, ok := votes[label]; !ok {
			order = append(order, label)
		}
		votes[label]++
	}

	// order is by first appearance in the ranking, so a strict comparison
	// leaves ties with the most similar neighbour's label.
	winner := order[0]
	for _, label := range order[1:] {
		if votes[label] > votes[winner] {
			winner = label
		}
	}

	total := float64(len(neighbors))
	scores := make(map[string]float64, len(votes))
	for label, n := range votes {
		scores[label] = float64(n) / total
	}
	return classify.Result{
		Label:      winner,
		Confidence: scores[winner],
		Scores:     scores,
	}, nil
}

// Neighbors returns the k nearest training documents for a query, for
// nearest-document lookups.
func (c *Classifier) Neighbors(q classify.Query) []similarity.Neighbor {
	return similarity.Nearest(q.Vector, c.state.Vectors, c.state.K)
}
