package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cognicore/textclass/pkg/textclass/ingest"
)

// DocumentSource yields the labelled documents a model is trained on, in a
// stable order.
type DocumentSource interface {
	Documents(ctx context.Context) ([]ingest.Document, error)
}

// DocumentStore is a DocumentSource that can also be written to.
type DocumentStore interface {
	DocumentSource
	InsertDocuments(ctx context.Context, docs []ingest.Document) (int, error)
}

// ModelStore persists trained models. Records are immutable once inserted.
type ModelStore interface {
	InsertModel(ctx context.Context, m ModelRecord) (int64, error)
	// GetModel returns internalerr.ErrNotFound for unknown ids.
	GetModel(ctx context.Context, id int64) (ModelRecord, error)
	ListModels(ctx context.Context) ([]ModelSummary, error)
}

// PredictionStore keeps the insert-only prediction audit trail.
type PredictionStore interface {
	InsertPrediction(ctx context.Context, p Prediction) (int64, error)
	ListPredictions(ctx context.Context, modelID int64) ([]Prediction, error)
}

// Store is the main interface for persisting and querying textclass data
type Store interface {
	Close() error

	DocumentStore
	ModelStore
	PredictionStore
}

// ModelRecord is the persisted form of a trained model. Vocabulary and
// State are JSON payloads owned by the registry.
type ModelRecord struct {
	ID         int64
	Kind       string
	Vocabulary json.RawMessage
	State      json.RawMessage
	CreatedAt  time.Time
	Accuracy   *float64
	Documents  int
	Labels     []string
}

// Summary returns the list view of the record.
func (m ModelRecord) Summary() ModelSummary {
	return ModelSummary{
		ID:        m.ID,
		Kind:      m.Kind,
		CreatedAt: m.CreatedAt,
		Accuracy:  m.Accuracy,
		Documents: m.Documents,
		Labels:    append([]string(nil), m.Labels...),
	}
}

// ModelSummary describes a stored model without its payloads.
type ModelSummary struct {
	ID        int64
	Kind      string
	CreatedAt time.Time
	Accuracy  *float64
	Documents int
	Labels    []string
}

// Prediction is one audited prediction.
type Prediction struct {
	ID             int64
	InputText      string
	ModelID        int64
	PredictedLabel string
	Confidence     float64
	CreatedAt      time.Time
}

// CopyModel returns a deep copy of m.
func CopyModel(m ModelRecord) ModelRecord {
	out := m
	out.Vocabulary = append(json.RawMessage(nil), m.Vocabulary...)
	out.State = append(json.RawMessage(nil), m.State...)
	out.Labels = append([]string(nil), m.Labels...)
	if m.Accuracy != nil {
		acc := *m.Accuracy
		out.Accuracy = &acc
	}
	return out
}
