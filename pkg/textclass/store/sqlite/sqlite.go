package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/cognicore/textclass/pkg/textclass/ingest"
	"github.com/cognicore/textclass/pkg/textclass/internalerr"
	"github.com/cognicore/textclass/pkg/textclass/store"
)

//go:embed migrations/*.sql
var migrations embed.FS

const timeLayout = time.RFC3339Nano

func init() {
	// modernc registers as "sqlite", which sqlx does not know by name.
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// Store implements store.Store on a SQLite database.
type Store struct {
	db *sqlx.DB
}

var _ store.Store = (*Store)(nil)

// Open opens a SQLite database with WAL mode enabled and applies pending
// migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", internalerr.ErrStoreUnavailable, path, err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%w: %s: %v", internalerr.ErrStoreUnavailable, pragma, err)
		}
	}

	if err := Migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Migrate runs the embedded schema migrations. It is safe to call on an
// up-to-date database.
func Migrate(db *sqlx.DB) error {
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}
	driver, err := migratesqlite.WithInstance(db.DB, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	// m.Close would also close db, so only the source is released.
	defer src.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

// DB exposes the underlying handle, e.g. for content tables read through
// QuerySource.
func (s *Store) DB() *sqlx.DB { return s.db }

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

type documentRow struct {
	Text   string `db:"text"`
	Label  string `db:"label"`
	Source string `db:"source"`
}

// InsertDocuments stores validated documents in one transaction.
func (s *Store) InsertDocuments(ctx context.Context, docs []ingest.Document) (int, error) {
	for i := range docs {
		if err := docs[i].Validate(); err != nil {
			return 0, fmt.Errorf("document %d: %w", i, err)
		}
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareNamedContext(ctx,
		`INSERT INTO documents (text, label, source) VALUES (:text, :label, :source)`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	for _, d := range docs {
		row := documentRow{Text: d.Text, Label: d.Label, Source: d.Source}
		if _, err := stmt.ExecContext(ctx, row); err != nil {
			return 0, fmt.Errorf("insert document: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(docs), nil
}

// Documents returns the documents table in insertion order.
func (s *Store) Documents(ctx context.Context) ([]ingest.Document, error) {
	var rows []documentRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT text, label, source FROM documents ORDER BY id`); err != nil {
		return nil, fmt.Errorf("select documents: %w", err)
	}
	out := make([]ingest.Document, len(rows))
	for i, r := range rows {
		out[i] = ingest.Document{Text: r.Text, Label: r.Label, Source: r.Source}
	}
	return out, nil
}

type modelRow struct {
	ID         int64           `db:"id"`
	Kind       string          `db:"kind"`
	Vocabulary string          `db:"vocabulary"`
	State      string          `db:"state"`
	Labels     string          `db:"labels"`
	Accuracy   sql.NullFloat64 `db:"accuracy"`
	Documents  int             `db:"documents"`
	CreatedAt  string          `db:"created_at"`
}

func (r modelRow) record() (store.ModelRecord, error) {
	m := store.ModelRecord{
		ID:         r.ID,
		Kind:       r.Kind,
		Vocabulary: json.RawMessage(r.Vocabulary),
		State:      json.RawMessage(r.State),
		Documents:  r.Documents,
	}
	if r.Accuracy.Valid {
		acc := r.Accuracy.Float64
		m.Accuracy = &acc
	}
	if r.Labels != "" {
		if err := json.Unmarshal([]byte(r.Labels), &m.Labels); err != nil {
			return store.ModelRecord{}, fmt.Errorf("%w: model %d labels: %v", internalerr.ErrCorruptModelRecord, r.ID, err)
		}
	}
	created, err := time.Parse(timeLayout, r.CreatedAt)
	if err != nil {
		return store.ModelRecord{}, fmt.Errorf("%w: model %d created_at: %v", internalerr.ErrCorruptModelRecord, r.ID, err)
	}
	m.CreatedAt = created
	return m, nil
}

// InsertModel stores a model record and returns its id.
func (s *Store) InsertModel(ctx context.Context, m store.ModelRecord) (int64, error) {
	labels, err := json.Marshal(m.Labels)
	if err != nil {
		return 0, err
	}
	if m.Labels == nil {
		labels = []byte("[]")
	}
	created := m.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	var acc sql.NullFloat64
	if m.Accuracy != nil {
		acc = sql.NullFloat64{Float64: *m.Accuracy, Valid: true}
	}

	var id int64
	err = s.db.QueryRowxContext(ctx, `
INSERT INTO models (kind, vocabulary, state, labels, accuracy, documents, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
RETURNING id`,
		m.Kind, string(m.Vocabulary), string(m.State), string(labels), acc, m.Documents,
		created.UTC().Format(timeLayout),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert model: %w", err)
	}
	return id, nil
}

// GetModel returns a model by ID.
func (s *Store) GetModel(ctx context.Context, id int64) (store.ModelRecord, error) {
	var row modelRow
	err := s.db.GetContext(ctx, &row, `
SELECT id, kind, vocabulary, state, labels, accuracy, documents, created_at
FROM models WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return store.ModelRecord{}, fmt.Errorf("model %d: %w", id, internalerr.ErrNotFound)
	}
	if err != nil {
		return store.ModelRecord{}, fmt.Errorf("get model %d: %w", id, err)
	}
	return row.record()
}

// ListModels returns summaries ordered by id.
func (s *Store) ListModels(ctx context.Context) ([]store.ModelSummary, error) {
	var rows []modelRow
	err := s.db.SelectContext(ctx, &rows, `
SELECT id, kind, '' AS vocabulary, '' AS state, labels, accuracy, documents, created_at
FROM models ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}
	out := make([]store.ModelSummary, 0, len(rows))
	for _, r := range rows {
		m, err := r.record()
		if err != nil {
			return nil, err
		}
		out = append(out, m.Summary())
	}
	return out, nil
}

type predictionRow struct {
	ID             int64   `db:"id"`
	ModelID        int64   `db:"model_id"`
	InputText      string  `db:"input_text"`
	PredictedLabel string  `db:"predicted_label"`
	Confidence     float64 `db:"confidence"`
	CreatedAt      string  `db:"created_at"`
}

// InsertPrediction appends a prediction audit row.
func (s *Store) InsertPrediction(ctx context.Context, p store.Prediction) (int64, error) {
	created := p.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	var id int64
	err := s.db.QueryRowxContext(ctx, `
INSERT INTO predictions (model_id, input_text, predicted_label, confidence, created_at)
VALUES (?, ?, ?, ?, ?)
RETURNING id`,
		p.ModelID, p.InputText, p.PredictedLabel, p.Confidence, created.UTC().Format(timeLayout),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert prediction: %w", err)
	}
	return id, nil
}

// ListPredictions returns the predictions made with modelID, oldest first.
func (s *Store) ListPredictions(ctx context.Context, modelID int64) ([]store.Prediction, error) {
	var rows []predictionRow
	err := s.db.SelectContext(ctx, &rows, `
SELECT id, model_id, input_text, predicted_label, confidence, created_at
FROM predictions WHERE model_id = ? ORDER BY id`, modelID)
	if err != nil {
		return nil, fmt.Errorf("list predictions: %w", err)
	}
	out := make([]store.Prediction, 0, len(rows))
	for _, r := range rows {
		created, err := time.Parse(timeLayout, r.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("prediction %d created_at: %w", r.ID, err)
		}
		out = append(out, store.Prediction{
			ID:             r.ID,
			InputText:      r.InputText,
			ModelID:        r.ModelID,
			PredictedLabel: r.PredictedLabel,
			Confidence:     r.Confidence,
			CreatedAt:      created,
		})
	}
	return out, nil
}
