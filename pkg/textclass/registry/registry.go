// Package registry turns trained classifiers into store records and back.
package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cognicore/textclass/pkg/textclass/classify"
	"github.com/cognicore/textclass/pkg/textclass/classify/bayes"
	"github.com/cognicore/textclass/pkg/textclass/classify/knn"
	"github.com/cognicore/textclass/pkg/textclass/classify/tree"
	"github.com/cognicore/textclass/pkg/textclass/internalerr"
	"github.com/cognicore/textclass/pkg/textclass/store"
	"github.com/cognicore/textclass/pkg/textclass/vectorize"
)

// Params are the per-kind hyperparameters. Fields that do not apply to a
// kind are ignored; zero values select defaults.
type Params struct {
	K          int `json:"k,omitempty" yaml:"k"`
	MaxDepth   int `json:"max_depth,omitempty" yaml:"max_depth"`
	MinSamples int `json:"min_samples,omitempty" yaml:"min_samples"`
}

// Model is a trained classifier together with the vocabulary it was fit on.
type Model struct {
	ID         int64
	Kind       classify.Kind
	Vocabulary *vectorize.Vocabulary
	Classifier classify.Classifier
	CreatedAt  time.Time
	Accuracy   *float64
	Documents  int
	Labels     []string
}

// New returns an untrained classifier of the given kind.
func New(kind classify.Kind, vocab *vectorize.Vocabulary, p Params) (classify.Classifier, error) {
	switch kind {
	case classify.NaiveBayes:
		return bayes.New(vocab), nil
	case classify.KNN:
		return knn.New(p.K), nil
	case classify.DecisionTree:
		return tree.New(vocab, tree.Params{MaxDepth: p.MaxDepth, MinSamples: p.MinSamples}), nil
	default:
		return nil, fmt.Errorf("%w: %q", internalerr.ErrUnsupportedModelType, kind)
	}
}

// Encode serializes m. The record id is left for the store to assign.
func Encode(m Model) (store.ModelRecord, error) {
	if m.Vocabulary == nil || m.Classifier == nil {
		return store.ModelRecord{}, fmt.Errorf("%w: model has no vocabulary or classifier", internalerr.ErrInvalidInput)
	}
	vocab, err := json.Marshal(m.Vocabulary.Snapshot())
	if err != nil {
		return store.ModelRecord{}, fmt.Errorf("encode vocabulary: %w", err)
	}

	var state any
	switch c := m.Classifier.(type) {
	case *bayes.Classifier:
		state = c.State()
	case *knn.Classifier:
		state = c.State()
	case *tree.Classifier:
		state = c.State()
	default:
		return store.ModelRecord{}, fmt.Errorf("%w: %T", internalerr.ErrUnsupportedModelType, m.Classifier)
	}
	raw, err := json.Marshal(state)
	if err != nil {
		return store.ModelRecord{}, fmt.Errorf("encode %s state: %w", m.Classifier.Kind(), err)
	}

	return store.ModelRecord{
		Kind:       string(m.Classifier.Kind()),
		Vocabulary: vocab,
		State:      raw,
		CreatedAt:  m.CreatedAt,
		Accuracy:   m.Accuracy,
		Documents:  m.Documents,
		Labels:     m.Labels,
	}, nil
}

// Decode rebuilds a model from its record.
func Decode(rec store.ModelRecord) (Model, error) {
	kind, err := classify.ParseKind(rec.Kind)
	if err != nil {
		return Model{}, fmt.Errorf("model %d: %w", rec.ID, err)
	}

	var snap vectorize.Snapshot
	if err := json.Unmarshal(rec.Vocabulary, &snap); err != nil {
		return Model{}, fmt.Errorf("%w: model %d vocabulary: %v", internalerr.ErrCorruptModelRecord, rec.ID, err)
	}
	vocab, err := vectorize.Restore(snap)
	if err != nil {
		return Model{}, fmt.Errorf("model %d: %w", rec.ID, err)
	}

	c, err := decodeState(kind, vocab, rec.State)
	if err != nil {
		return Model{}, fmt.Errorf("model %d: %w", rec.ID, err)
	}

	return Model{
		ID:         rec.ID,
		Kind:       kind,
		Vocabulary: vocab,
		Classifier: c,
		CreatedAt:  rec.CreatedAt,
		Accuracy:   rec.Accuracy,
		Documents:  rec.Documents,
		Labels:     rec.Labels,
	}, nil
}

func decodeState(kind classify.Kind, vocab *vectorize.Vocabulary, raw json.RawMessage) (classify.Classifier, error) {
	corrupt := func(err error) error {
		return fmt.Errorf("%w: %s state: %v", internalerr.ErrCorruptModelRecord, kind, err)
	}
	switch kind {
	case classify.NaiveBayes:
		var s bayes.State
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, corrupt(err)
		}
		return bayes.FromState(vocab, s)
	case classify.KNN:
		var s knn.State
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, corrupt(err)
		}
		return knn.FromState(vocab, s)
	case classify.DecisionTree:
		var s tree.State
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, corrupt(err)
		}
		return tree.FromState(vocab, s)
	}
	return nil, fmt.Errorf("%w: %q", internalerr.ErrUnsupportedModelType, kind)
}

// Registry saves and loads models through a ModelStore.
type Registry struct {
	store store.ModelStore
}

// NewRegistry returns a registry over ms.
func NewRegistry(ms store.ModelStore) *Registry {
	return &Registry{store: ms}
}

// Save encodes and inserts m, returning the id the store assigned.
func (r *Registry) Save(ctx context.Context, m Model) (int64, error) {
	rec, err := Encode(m)
	if err != nil {
		return 0, err
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	id, err := r.store.InsertModel(ctx, rec)
	if err != nil {
		return 0, fmt.Errorf("save model: %w", err)
	}
	return id, nil
}

// Load fetches and decodes model id.
func (r *Registry) Load(ctx context.Context, id int64) (Model, error) {
	rec, err := r.store.GetModel(ctx, id)
	if errors.Is(err, internalerr.ErrNotFound) {
		return Model{}, fmt.Errorf("%w: %d", internalerr.ErrModelNotFound, id)
	}
	if err != nil {
		return Model{}, fmt.Errorf("load model %d: %w", id, err)
	}
	return Decode(rec)
}

// List returns stored model summaries ordered by id.
func (r *Registry) List(ctx context.Context) ([]store.ModelSummary, error) {
	return r.store.ListModels(ctx)
}
