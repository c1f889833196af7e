package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/cognicore/textclass/pkg/textclass/ingest"
	"github.com/cognicore/textclass/pkg/textclass/internalerr"
	"github.com/cognicore/textclass/pkg/textclass/store"
)

func openTemp(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "textclass.db")
	st, err := Open(context.Background(), path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st, path
}

func TestMigrationsIdempotent(t *testing.T) {
	ctx := context.Background()
	st, path := openTemp(t)

	if _, err := st.InsertDocuments(ctx, []ingest.Document{{Text: "api broken", Label: "api"}}); err != nil {
		t.Fatalf("InsertDocuments: %v", err)
	}
	if err := Migrate(st.DB()); err != nil {
		t.Fatalf("second Migrate: %v", err)
	}
	st.Close()

	// Reopen runs migrations again against the existing file.
	st2, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer st2.Close()

	docs, err := st2.Documents(ctx)
	if err != nil {
		t.Fatalf("Documents: %v", err)
	}
	if len(docs) != 1 || docs[0].Label != "api" {
		t.Fatalf("data lost across reopen: %+v", docs)
	}

	var tables int
	err = st2.DB().GetContext(ctx, &tables,
		`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name IN ('documents','models','predictions')`)
	if err != nil {
		t.Fatalf("count tables: %v", err)
	}
	if tables != 3 {
		t.Errorf("expected 3 tables, got %d", tables)
	}
}

func TestDocumentsRoundTrip(t *testing.T) {
	ctx := context.Background()
	st, _ := openTemp(t)

	in := []ingest.Document{
		{Text: "add dark mode to the dashboard", Label: "feature", Source: "post"},
		{Text: "login page crashes", Label: "bug", Source: "comment"},
		{Text: "export to csv", Label: "feature"},
	}
	n, err := st.InsertDocuments(ctx, in)
	if err != nil {
		t.Fatalf("InsertDocuments: %v", err)
	}
	if n != 3 {
		t.Fatalf("inserted %d", n)
	}

	out, err := st.Documents(ctx)
	if err != nil {
		t.Fatalf("Documents: %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("got %d documents", len(out))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Errorf("document %d = %+v, want %+v", i, out[i], in[i])
		}
	}
}

func TestInsertDocumentsRejectsInvalid(t *testing.T) {
	ctx := context.Background()
	st, _ := openTemp(t)

	_, err := st.InsertDocuments(ctx, []ingest.Document{
		{Text: "fine", Label: "ok"},
		{Text: "missing label"},
	})
	if !errors.Is(err, internalerr.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	docs, _ := st.Documents(ctx)
	if len(docs) != 0 {
		t.Fatalf("no document should be stored, got %d", len(docs))
	}
}

func TestModelRoundTrip(t *testing.T) {
	ctx := context.Background()
	st, _ := openTemp(t)

	acc := 0.875
	created := time.Date(2026, 3, 1, 12, 30, 0, 123456789, time.UTC)
	rec := store.ModelRecord{
		Kind:       "naive_bayes",
		Vocabulary: []byte(`{"terms":["api"],"df":[1],"docs":1}`),
		State:      []byte(`{"classes":["api"]}`),
		CreatedAt:  created,
		Accuracy:   &acc,
		Documents:  8,
		Labels:     []string{"api", "ui"},
	}
	id, err := st.InsertModel(ctx, rec)
	if err != nil {
		t.Fatalf("InsertModel: %v", err)
	}

	got, err := st.GetModel(ctx, id)
	if err != nil {
		t.Fatalf("GetModel: %v", err)
	}
	if got.ID != id || got.Kind != rec.Kind || got.Documents != 8 {
		t.Errorf("unexpected record: %+v", got)
	}
	if string(got.Vocabulary) != string(rec.Vocabulary) || string(got.State) != string(rec.State) {
		t.Errorf("payloads changed: %s / %s", got.Vocabulary, got.State)
	}
	if got.Accuracy == nil || *got.Accuracy != acc {
		t.Errorf("accuracy = %v", got.Accuracy)
	}
	if !got.CreatedAt.Equal(created) {
		t.Errorf("created_at = %v, want %v", got.CreatedAt, created)
	}
	if len(got.Labels) != 2 || got.Labels[1] != "ui" {
		t.Errorf("labels = %v", got.Labels)
	}

	noAcc, err := st.InsertModel(ctx, store.ModelRecord{Kind: "knn", Vocabulary: []byte(`{}`), State: []byte(`{}`)})
	if err != nil {
		t.Fatalf("InsertModel: %v", err)
	}
	list, err := st.ListModels(ctx)
	if err != nil {
		t.Fatalf("ListModels: %v", err)
	}
	if len(list) != 2 || list[0].ID != id || list[1].ID != noAcc {
		t.Fatalf("unexpected list: %+v", list)
	}
	if list[1].Accuracy != nil {
		t.Errorf("accuracy should be nil, got %v", *list[1].Accuracy)
	}
}

func TestGetModelNotFound(t *testing.T) {
	st, _ := openTemp(t)
	_, err := st.GetModel(context.Background(), 42)
	if !errors.Is(err, internalerr.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPredictions(t *testing.T) {
	ctx := context.Background()
	st, _ := openTemp(t)

	id, err := st.InsertModel(ctx, store.ModelRecord{Kind: "knn", Vocabulary: []byte(`{}`), State: []byte(`{}`)})
	if err != nil {
		t.Fatalf("InsertModel: %v", err)
	}
	for _, text := range []string{"first", "second"} {
		if _, err := st.InsertPrediction(ctx, store.Prediction{
			ModelID: id, InputText: text, PredictedLabel: "x", Confidence: 0.5,
		}); err != nil {
			t.Fatalf("InsertPrediction: %v", err)
		}
	}

	got, err := st.ListPredictions(ctx, id)
	if err != nil {
		t.Fatalf("ListPredictions: %v", err)
	}
	if len(got) != 2 || got[0].InputText != "first" || got[1].InputText != "second" {
		t.Fatalf("unexpected predictions: %+v", got)
	}
	if got[0].CreatedAt.IsZero() {
		t.Error("created_at should be set")
	}

	if _, err := st.InsertPrediction(ctx, store.Prediction{ModelID: 999, InputText: "x", PredictedLabel: "x"}); err == nil {
		t.Error("prediction for unknown model should violate the foreign key")
	}
}

func TestQuerySource(t *testing.T) {
	ctx := context.Background()
	st, _ := openTemp(t)

	_, err := st.DB().ExecContext(ctx, `
CREATE TABLE posts (id INTEGER PRIMARY KEY, body TEXT, category TEXT);
INSERT INTO posts (body, category) VALUES ('dashboard is slow', 'ui'), ('api timeout', 'api'), ('no label', NULL);`)
	if err != nil {
		t.Fatalf("create posts: %v", err)
	}

	docs, err := st.QuerySource(`SELECT body, category, 'post' FROM posts ORDER BY id`).Documents(ctx)
	if err != nil {
		t.Fatalf("Documents: %v", err)
	}
	if len(docs) != 3 {
		t.Fatalf("got %d documents", len(docs))
	}
	if docs[0].Text != "dashboard is slow" || docs[0].Label != "ui" || docs[0].Source != "post" {
		t.Errorf("unexpected first document: %+v", docs[0])
	}
	if docs[2].Label != "" {
		t.Errorf("NULL label should read as empty, got %q", docs[2].Label)
	}

	filtered, err := st.QuerySource(`SELECT body, category FROM posts WHERE category = ?`, "api").Documents(ctx)
	if err != nil {
		t.Fatalf("Documents: %v", err)
	}
	if len(filtered) != 1 || filtered[0].Label != "api" {
		t.Fatalf("unexpected filtered documents: %+v", filtered)
	}

	_, err = st.QuerySource(`SELECT body FROM posts`).Documents(ctx)
	if !errors.Is(err, internalerr.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig for one column, got %v", err)
	}
}
