//go:build sqlite_fts5

package index

import (
	"context"
	"database/sql"
	"strings"

	"github.com/starford/laguz/internal/apperr"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS documents_fts USING fts5(
			id UNINDEXED,
			title,
			body,
			tags,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

func ftsUpsert(tx *sql.Tx, ctx context.Context, id, title, body string, tags []string) error {
	_, _ = tx.ExecContext(ctx, `DELETE FROM documents_fts WHERE id = ?`, id)
	_, err := tx.ExecContext(ctx, `INSERT INTO documents_fts (id, title, body, tags) VALUES (?, ?, ?, ?)`,
		id, title, body, strings.Join(tags, " "))
	if err != nil {
		return apperr.Storage("upsert fts", err)
	}
	return nil
}

func ftsDelete(tx *sql.Tx, ctx context.Context, id string) {
	_, _ = tx.ExecContext(ctx, `DELETE FROM documents_fts WHERE id = ?`, id)
}

// Search performs an FTS5 full-text match ranked by bm25 and returns
// highlighted snippets. Score is the negated rank so higher means more
// relevant.
func (db *DB) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id,
		       title,
		       -rank,
		       snippet(documents_fts, 2, '<b>', '</b>', '...', 64)
		FROM documents_fts
		WHERE documents_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`, query, limit)
	if err != nil {
		return nil, apperr.Storage("search", err)
	}
	defer rows.Close()

	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.ID, &r.Title, &r.Score, &r.Snippet); err != nil {
			return nil, apperr.Storage("scan search hit", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
