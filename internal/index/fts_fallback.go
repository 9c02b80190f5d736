//go:build !sqlite_fts5

package index

import (
	"context"
	"database/sql"

	"github.com/starford/laguz/internal/apperr"
)

func initFTS(_ *sql.DB) error {
	// FTS5 not compiled in; search falls back to LIKE over the documents
	// table, which already stores the body.
	return nil
}

func ftsUpsert(_ *sql.Tx, _ context.Context, _, _, _ string, _ []string) error {
	return nil
}

func ftsDelete(_ *sql.Tx, _ context.Context, _ string) {}

// Search performs a LIKE-based substring search over title, body, and tag
// associations (fallback when FTS5 is not compiled in). Scores are flat;
// results are ordered by recency.
func (db *DB) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	like := "%" + query + "%"
	rows, err := db.conn.QueryContext(ctx, `
		SELECT d.id, d.title, substr(d.body, 1, 200)
		FROM documents d
		WHERE d.title LIKE ? OR d.body LIKE ?
		   OR EXISTS (SELECT 1 FROM document_tags dt WHERE dt.document_id = d.id AND dt.tag LIKE ?)
		ORDER BY d.updated_at DESC
		LIMIT ?
	`, like, like, like, limit)
	if err != nil {
		return nil, apperr.Storage("search", err)
	}
	defer rows.Close()

	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.ID, &r.Title, &r.Snippet); err != nil {
			return nil, apperr.Storage("scan search hit", err)
		}
		r.Score = 1
		out = append(out, r)
	}
	return out, rows.Err()
}
