package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/cognicore/textclass/pkg/textclass/ingest"
	"github.com/cognicore/textclass/pkg/textclass/internalerr"
	"github.com/cognicore/textclass/pkg/textclass/store"
)

// QuerySource reads training documents from an arbitrary SELECT. The query
// must return text and label columns, optionally followed by a source
// column. NULL values read as empty strings.
type QuerySource struct {
	db    *sqlx.DB
	query string
	args  []any
}

var _ store.DocumentSource = (*QuerySource)(nil)

// QuerySource returns a DocumentSource backed by query against this
// database, e.g. "SELECT body, category, 'post' FROM posts ORDER BY id".
func (s *Store) QuerySource(query string, args ...any) *QuerySource {
	return &QuerySource{db: s.db, query: query, args: args}
}

// Documents runs the query.
func (q *QuerySource) Documents(ctx context.Context) ([]ingest.Document, error) {
	rows, err := q.db.QueryxContext(ctx, q.query, q.args...)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	if len(cols) != 2 && len(cols) != 3 {
		return nil, fmt.Errorf("%w: document query returns %d columns, want text, label[, source]",
			internalerr.ErrInvalidConfig, len(cols))
	}

	var docs []ingest.Document
	for rows.Next() {
		var text, label, source sql.NullString
		dest := []any{&text, &label}
		if len(cols) == 3 {
			dest = append(dest, &source)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, ingest.Document{Text: text.String, Label: label.String, Source: source.String})
	}
	return docs, rows.Err()
}
