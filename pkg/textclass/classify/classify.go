// Package classify defines the trainable classifier capability shared by
// the Naive Bayes, KNN and Decision Tree variants.
package classify

import (
	"errors"
	"fmt"

	"github.com/cognicore/textclass/pkg/textclass/internalerr"
	"github.com/cognicore/textclass/pkg/textclass/vectorize"
)

// Kind names a classifier variant. The string form is what gets persisted.
type Kind string

const (
	NaiveBayes   Kind = "naive_bayes"
	KNN          Kind = "knn"
	DecisionTree Kind = "decision_tree"
)

// Kinds lists every supported variant.
func Kinds() []Kind {
	return []Kind{NaiveBayes, KNN, DecisionTree}
}

// ParseKind validates a kind name.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds() {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", internalerr.ErrUnsupportedModelType, s)
}

// Example is one vectorized training document.
type Example struct {
	Tokens []string
	Vector vectorize.Vector
	Label  string
}

// Query is a vectorized document to classify.
type Query struct {
	Tokens []string
	Vector vectorize.Vector
}

// Result is a predicted label with its confidence in [0,1]. Scores holds
// the per-label breakdown the variant computed, when it has one.
type Result struct {
	Label      string
	Confidence float64
	Scores     map[string]float64
}

// Classifier is the polymorphic train/predict capability.
// Implementations own their trained state and are not safe for concurrent
// Train calls; Predict on a trained classifier does not mutate state.
type Classifier interface {
	Kind() Kind
	Train(examples []Example) error
	Predict(q Query) (Result, error)
}

// Labels returns the distinct labels of examples in first-seen order with
// their counts.
func Labels(examples []Example) ([]string, map[string]int) {
	var order []string
	counts := make(map[string]int)
	for _, ex := range examples {
		if _, ok := counts[ex.Label]; !ok {
			order = append(order, ex.Label)
		}
		counts[ex.Label]++
	}
	return order, counts
}

// ErrUntrained is returned by Predict before Train succeeded.
var ErrUntrained = errors.New("classifier is not trained")

// ErrNoExamples is returned by Train for an empty example set.
var ErrNoExamples = fmt.Errorf("%w: no training examples", internalerr.ErrInsufficientData)
