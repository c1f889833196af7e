// Package badger implements store.Store on BadgerDB through badgerhold.
// Ids come from per-type badgerhold sequences, which start at zero; public
// ids are the key plus one so that zero never names a record.
package badger

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/timshannon/badgerhold/v4"

	"github.com/cognicore/textclass/pkg/textclass/ingest"
	"github.com/cognicore/textclass/pkg/textclass/internalerr"
	"github.com/cognicore/textclass/pkg/textclass/store"
)

func toID(key uint64) int64 { return int64(key) + 1 }

func toKey(id int64) uint64 { return uint64(id - 1) }

type documentEntry struct {
	ID     uint64 `badgerhold:"key"`
	Text   string
	Label  string
	Source string
}

type modelEntry struct {
	ID         uint64 `badgerhold:"key"`
	Kind       string
	Vocabulary []byte
	State      []byte
	CreatedAt  time.Time
	Accuracy   *float64
	Documents  int
	Labels     []string
}

func (e modelEntry) record() store.ModelRecord {
	return store.ModelRecord{
		ID:         toID(e.ID),
		Kind:       e.Kind,
		Vocabulary: e.Vocabulary,
		State:      e.State,
		CreatedAt:  e.CreatedAt,
		Accuracy:   e.Accuracy,
		Documents:  e.Documents,
		Labels:     e.Labels,
	}
}

type predictionEntry struct {
	ID             uint64 `badgerhold:"key"`
	ModelID        int64  `badgerholdIndex:"ModelID"`
	InputText      string
	PredictedLabel string
	Confidence     float64
	CreatedAt      time.Time
}

// Store is a badgerhold-backed store.Store.
type Store struct {
	db *badgerhold.Store
}

var _ store.Store = (*Store)(nil)

// Open opens (creating if needed) a Badger database in dir.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	options := badgerhold.DefaultOptions
	options.Dir = dir
	options.ValueDir = dir
	options.Logger = nil

	db, err := badgerhold.Open(options)
	if err != nil {
		return nil, fmt.Errorf("%w: open badger %s: %v", internalerr.ErrStoreUnavailable, dir, err)
	}
	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// InsertDocuments stores validated documents.
func (s *Store) InsertDocuments(ctx context.Context, docs []ingest.Document) (int, error) {
	for i := range docs {
		if err := docs[i].Validate(); err != nil {
			return 0, fmt.Errorf("document %d: %w", i, err)
		}
	}
	for i, d := range docs {
		entry := &documentEntry{Text: d.Text, Label: d.Label, Source: d.Source}
		if err := s.db.Insert(badgerhold.NextSequence(), entry); err != nil {
			return i, fmt.Errorf("failed to save document: %w", err)
		}
	}
	return len(docs), nil
}

// Documents returns every document in insertion order.
func (s *Store) Documents(ctx context.Context) ([]ingest.Document, error) {
	var entries []documentEntry
	if err := s.db.Find(&entries, nil); err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })

	out := make([]ingest.Document, len(entries))
	for i, e := range entries {
		out[i] = ingest.Document{Text: e.Text, Label: e.Label, Source: e.Source}
	}
	return out, nil
}

// InsertModel stores a model record under the next sequence id.
func (s *Store) InsertModel(ctx context.Context, m store.ModelRecord) (int64, error) {
	m = store.CopyModel(m)
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	entry := &modelEntry{
		Kind:       m.Kind,
		Vocabulary: m.Vocabulary,
		State:      m.State,
		CreatedAt:  m.CreatedAt,
		Accuracy:   m.Accuracy,
		Documents:  m.Documents,
		Labels:     m.Labels,
	}
	if err := s.db.Insert(badgerhold.NextSequence(), entry); err != nil {
		return 0, fmt.Errorf("failed to save model: %w", err)
	}
	return toID(entry.ID), nil
}

// GetModel returns a model by ID.
func (s *Store) GetModel(ctx context.Context, id int64) (store.ModelRecord, error) {
	if id < 1 {
		return store.ModelRecord{}, fmt.Errorf("model %d: %w", id, internalerr.ErrNotFound)
	}
	var entry modelEntry
	if err := s.db.Get(toKey(id), &entry); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return store.ModelRecord{}, fmt.Errorf("model %d: %w", id, internalerr.ErrNotFound)
		}
		return store.ModelRecord{}, fmt.Errorf("failed to get model: %w", err)
	}
	entry.ID = toKey(id)
	return entry.record(), nil
}

// ListModels returns summaries ordered by id.
func (s *Store) ListModels(ctx context.Context) ([]store.ModelSummary, error) {
	var entries []modelEntry
	if err := s.db.Find(&entries, nil); err != nil {
		return nil, fmt.Errorf("failed to list models: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })

	out := make([]store.ModelSummary, len(entries))
	for i, e := range entries {
		out[i] = e.record().Summary()
	}
	return out, nil
}

// InsertPrediction appends a prediction audit row.
func (s *Store) InsertPrediction(ctx context.Context, p store.Prediction) (int64, error) {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	entry := &predictionEntry{
		ModelID:        p.ModelID,
		InputText:      p.InputText,
		PredictedLabel: p.PredictedLabel,
		Confidence:     p.Confidence,
		CreatedAt:      p.CreatedAt,
	}
	if err := s.db.Insert(badgerhold.NextSequence(), entry); err != nil {
		return 0, fmt.Errorf("failed to save prediction: %w", err)
	}
	return toID(entry.ID), nil
}

// ListPredictions returns the predictions made with modelID, oldest first.
func (s *Store) ListPredictions(ctx context.Context, modelID int64) ([]store.Prediction, error) {
	var entries []predictionEntry
	if err := s.db.Find(&entries, badgerhold.Where("ModelID").Eq(modelID).Index("ModelID")); err != nil {
		return nil, fmt.Errorf("failed to list predictions: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })

	out := make([]store.Prediction, len(entries))
	for i, e := range entries {
		out[i] = store.Prediction{
			ID:             toID(e.ID),
			InputText:      e.InputText,
			ModelID:        e.ModelID,
			PredictedLabel: e.PredictedLabel,
			Confidence:     e.Confidence,
			CreatedAt:      e.CreatedAt,
		}
	}
	return out, nil
}
