package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cognicore/textclass/pkg/textclass/ingest"
	"github.com/cognicore/textclass/pkg/textclass/internalerr"
	"github.com/cognicore/textclass/pkg/textclass/store"
)

// Store is an in-memory implementation of store.Store for tests.
type Store struct {
	mu               sync.RWMutex
	nextModelID      int64
	nextPredictionID int64
	docs             []ingest.Document
	models           map[int64]store.ModelRecord
	predictions      []store.Prediction
	now              func() time.Time
}

var _ store.Store = (*Store)(nil)

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		nextModelID:      1,
		nextPredictionID: 1,
		models:           make(map[int64]store.ModelRecord),
		now:              time.Now,
	}
}

// Close implements store.Store.
func (s *Store) Close() error { return nil }

// InsertDocuments appends validated documents and returns how many were
// stored.
func (s *Store) InsertDocuments(ctx context.Context, docs []ingest.Document) (int, error) {
	for i := range docs {
		if err := docs[i].Validate(); err != nil {
			return 0, fmt.Errorf("document %d: %w", i, err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs = append(s.docs, docs...)
	return len(docs), nil
}

// Documents returns every document in insertion order.
func (s *Store) Documents(ctx context.Context) ([]ingest.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]ingest.Document, len(s.docs))
	copy(out, s.docs)
	return out, nil
}

// InsertModel stores a model record under a fresh id.
func (s *Store) InsertModel(ctx context.Context, m store.ModelRecord) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m = store.CopyModel(m)
	m.ID = s.nextModelID
	s.nextModelID++
	if m.CreatedAt.IsZero() {
		m.CreatedAt = s.now().UTC()
	}
	s.models[m.ID] = m
	return m.ID, nil
}

// GetModel returns a model by ID.
func (s *Store) GetModel(ctx context.Context, id int64) (store.ModelRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.models[id]
	if !ok {
		return store.ModelRecord{}, fmt.Errorf("model %d: %w", id, internalerr.ErrNotFound)
	}
	return store.CopyModel(m), nil
}

// ListModels returns summaries ordered by id.
func (s *Store) ListModels(ctx context.Context) ([]store.ModelSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]store.ModelSummary, 0, len(s.models))
	for _, m := range s.models {
		out = append(out, m.Summary())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// InsertPrediction appends a prediction audit row.
func (s *Store) InsertPrediction(ctx context.Context, p store.Prediction) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p.ID = s.nextPredictionID
	s.nextPredictionID++
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.now().UTC()
	}
	s.predictions = append(s.predictions, p)
	return p.ID, nil
}

// ListPredictions returns the predictions made with modelID, oldest first.
func (s *Store) ListPredictions(ctx context.Context, modelID int64) ([]store.Prediction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []store.Prediction
	for _, p := range s.predictions {
		if p.ModelID == modelID {
			out = append(out, p)
		}
	}
	return out, nil
}
