package index

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/starford/laguz/internal/apperr"
	"github.com/starford/laguz/internal/models"
)

// DocumentRow represents a row in the documents table.
type DocumentRow struct {
	ID          string              `json:"id"`
	Title       string              `json:"title"`
	Checksum    string              `json:"checksum"`
	Frontmatter *models.Frontmatter `json:"frontmatter,omitempty"`
	Tags        []string            `json:"tags,omitempty"`
	WordCount   int                 `json:"word_count"`
	ReadingTime int                 `json:"reading_time"`
	Degraded    bool                `json:"degraded,omitempty"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

// DocumentRef is a lightweight (id, title) pair used by link resolution.
type DocumentRef struct {
	ID    string
	Title string
}

// LinkRow represents a row in the links table. Resolved is empty for
// broken links.
type LinkRow struct {
	Source      string
	Target      string
	Resolved    string
	Kind        string
	Anchor      string
	Occurrences int
}

// SearchResult represents one ranked search hit.
type SearchResult struct {
	ID      string  `json:"id"`
	Title   string  `json:"title"`
	Score   float64 `json:"score"`
	Snippet string  `json:"snippet"`
}

// ListFilter narrows ListDocuments results.
type ListFilter struct {
	Tag      string
	Prefix   string
	Degraded bool
	Sort     string // "updated_at" (default), "title", "id"
	Limit    int
	Offset   int
}

// UpsertDocument replaces a document, its FTS entry, its outgoing links,
// and its tag associations in one transaction. A reader never observes a
// half-updated document.
func (db *DB) UpsertDocument(ctx context.Context, d DocumentRow, body string, links []LinkRow, tags []string) error {
	return withRetry(func() error { return db.upsertDocument(ctx, d, body, links, tags) })
}

func (db *DB) upsertDocument(ctx context.Context, d DocumentRow, body string, links []LinkRow, tags []string) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return apperr.Storage("begin tx", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	fmJSON := []byte("{}")
	if d.Frontmatter != nil {
		fmJSON, _ = json.Marshal(d.Frontmatter)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO documents (id, title, checksum, frontmatter, body, word_count, reading_time, degraded, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title        = excluded.title,
			checksum     = excluded.checksum,
			frontmatter  = excluded.frontmatter,
			body         = excluded.body,
			word_count   = excluded.word_count,
			reading_time = excluded.reading_time,
			degraded     = excluded.degraded,
			updated_at   = excluded.updated_at
	`, d.ID, d.Title, d.Checksum, string(fmJSON), body, d.WordCount, d.ReadingTime, boolInt(d.Degraded), d.UpdatedAt)
	if err != nil {
		return apperr.Storage("upsert document", err)
	}

	// FTS upsert (no-op when the FTS5 tag is absent).
	if err := ftsUpsert(tx, ctx, d.ID, d.Title, body, tags); err != nil {
		return err
	}

	// Replace outgoing links: delete old set then bulk insert the new one.
	if _, err := tx.ExecContext(ctx, `DELETE FROM links WHERE source = ?`, d.ID); err != nil {
		return apperr.Storage("clear links", err)
	}
	if len(links) > 0 {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT OR IGNORE INTO links (source, target, resolved, kind, anchor, occurrences)
			VALUES (?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return apperr.Storage("prepare link insert", err)
		}
		defer stmt.Close()
		for _, l := range links {
			kind := l.Kind
			if kind == "" {
				kind = KindReference
			}
			if _, err := stmt.ExecContext(ctx, d.ID, l.Target, l.Resolved, kind, l.Anchor, l.Occurrences); err != nil {
				return apperr.Storage("insert link", err)
			}
		}
	}

	// Replace tag associations.
	if _, err := tx.ExecContext(ctx, `DELETE FROM document_tags WHERE document_id = ?`, d.ID); err != nil {
		return apperr.Storage("clear tags", err)
	}
	for _, t := range tags {
		if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO document_tags (document_id, tag) VALUES (?, ?)`, d.ID, t); err != nil {
			return apperr.Storage("insert tag", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return apperr.Storage("commit", err)
	}
	return nil
}

// DeleteDocument removes a document, its FTS entry, outgoing links, and
// tag associations.
func (db *DB) DeleteDocument(ctx context.Context, id string) error {
	return withRetry(func() error {
		tx, err := db.conn.BeginTx(ctx, nil)
		if err != nil {
			return apperr.Storage("begin tx", err)
		}
		defer tx.Rollback() //nolint:errcheck

		ftsDelete(tx, ctx, id)
		_, _ = tx.ExecContext(ctx, `DELETE FROM links WHERE source = ?`, id)
		_, _ = tx.ExecContext(ctx, `DELETE FROM document_tags WHERE document_id = ?`, id)
		_, _ = tx.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)

		if err := tx.Commit(); err != nil {
			return apperr.Storage("commit delete", err)
		}
		return nil
	})
}

// GetDocument returns a document row with its tag associations, or
// apperr.ErrNotFound.
func (db *DB) GetDocument(ctx context.Context, id string) (*DocumentRow, error) {
	var (
		d      DocumentRow
		fmJSON string
		deg    int
	)
	err := db.conn.QueryRowContext(ctx, `
		SELECT id, title, checksum, frontmatter, word_count, reading_time, degraded, updated_at
		FROM documents WHERE id = ?
	`, id).Scan(&d.ID, &d.Title, &d.Checksum, &fmJSON, &d.WordCount, &d.ReadingTime, &deg, &d.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, apperr.Storage("get document", err)
	}
	d.Degraded = deg != 0
	if fmJSON != "" && fmJSON != "{}" {
		var fm models.Frontmatter
		if json.Unmarshal([]byte(fmJSON), &fm) == nil {
			d.Frontmatter = &fm
		}
	}

	tags, err := db.tagsOf(ctx, id)
	if err != nil {
		return nil, err
	}
	d.Tags = tags
	return &d, nil
}

func (db *DB) tagsOf(ctx context.Context, id string) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT tag FROM document_tags WHERE document_id = ? ORDER BY tag`, id)
	if err != nil {
		return nil, apperr.Storage("document tags", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, apperr.Storage("scan tag", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// ListDocuments returns documents matching the filter plus the unfiltered
// match count.
func (db *DB) ListDocuments(ctx context.Context, f ListFilter) ([]DocumentRow, int, error) {
	where := []string{"1=1"}
	var args []any
	if f.Tag != "" {
		where = append(where, `d.id IN (SELECT document_id FROM document_tags WHERE tag = ?)`)
		args = append(args, f.Tag)
	}
	if f.Prefix != "" {
		where = append(where, `d.id LIKE ?`)
		args = append(args, f.Prefix+"%")
	}
	if f.Degraded {
		where = append(where, `d.degraded = 1`)
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := db.conn.QueryRowContext(ctx, `SELECT count(*) FROM documents d WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, apperr.Storage("count documents", err)
	}

	order := "d.updated_at DESC"
	switch f.Sort {
	case "title":
		order = "d.title ASC"
	case "id":
		order = "d.id ASC"
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}

	rows, err := db.conn.QueryContext(ctx, `
		SELECT d.id, d.title, d.checksum, d.word_count, d.reading_time, d.degraded, d.updated_at
		FROM documents d WHERE `+cond+` ORDER BY `+order+` LIMIT ? OFFSET ?`,
		append(args, limit, f.Offset)...)
	if err != nil {
		return nil, 0, apperr.Storage("list documents", err)
	}
	defer rows.Close()

	var out []DocumentRow
	for rows.Next() {
		var (
			d   DocumentRow
			deg int
		)
		if err := rows.Scan(&d.ID, &d.Title, &d.Checksum, &d.WordCount, &d.ReadingTime, &deg, &d.UpdatedAt); err != nil {
			return nil, 0, apperr.Storage("scan document", err)
		}
		d.Degraded = deg != 0
		out = append(out, d)
	}
	return out, total, rows.Err()
}

// GetChecksum returns the stored checksum for a document, or empty string
// if not indexed.
func (db *DB) GetChecksum(ctx context.Context, id string) (string, error) {
	var cs string
	err := db.conn.QueryRowContext(ctx, `SELECT checksum FROM documents WHERE id = ?`, id).Scan(&cs)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", apperr.Storage("get checksum", err)
	}
	return cs, nil
}

// AllChecksums returns id → checksum for every indexed document.
func (db *DB) AllChecksums(ctx context.Context) (map[string]string, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT id, checksum FROM documents`)
	if err != nil {
		return nil, apperr.Storage("all checksums", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var id, cs string
		if err := rows.Scan(&id, &cs); err != nil {
			return nil, apperr.Storage("scan checksum", err)
		}
		out[id] = cs
	}
	return out, rows.Err()
}

// AllDocuments returns (id, title) for every indexed document, the
// namespace link resolution matches against.
func (db *DB) AllDocuments(ctx context.Context) ([]DocumentRef, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT id, title FROM documents ORDER BY id`)
	if err != nil {
		return nil, apperr.Storage("all documents", err)
	}
	defer rows.Close()
	var out []DocumentRef
	for rows.Next() {
		var r DocumentRef
		if err := rows.Scan(&r.ID, &r.Title); err != nil {
			return nil, apperr.Storage("scan ref", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// DocumentTagPairs enumerates every document↔tag association, the source
// of truth the tag hierarchy is rebuilt from.
func (db *DB) DocumentTagPairs(ctx context.Context) ([]models.TagPair, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT document_id, tag FROM document_tags ORDER BY document_id, tag`)
	if err != nil {
		return nil, apperr.Storage("tag pairs", err)
	}
	defer rows.Close()
	var out []models.TagPair
	for rows.Next() {
		var p models.TagPair
		if err := rows.Scan(&p.DocumentID, &p.Tag); err != nil {
			return nil, apperr.Storage("scan pair", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
