package index

import (
	"context"
	"strings"

	"github.com/starford/laguz/internal/apperr"
	"github.com/starford/laguz/internal/models"
)

// Backlinks returns all resolved incoming references to id with their
// aggregated occurrence counts. A link only counts while both endpoints
// still exist, so backlinks of a deleted document are empty even before
// its referrers re-index.
func (db *DB) Backlinks(ctx context.Context, id string) ([]models.BacklinkEntry, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT l.source, l.anchor, l.occurrences
		FROM links l
		JOIN documents t ON t.id = l.resolved
		WHERE l.resolved = ? AND l.kind = ?
		ORDER BY l.source
	`, id, KindReference)
	if err != nil {
		return nil, apperr.Storage("backlinks", err)
	}
	defer rows.Close()

	var out []models.BacklinkEntry
	for rows.Next() {
		var e models.BacklinkEntry
		if err := rows.Scan(&e.Source, &e.Anchor, &e.Occurrences); err != nil {
			return nil, apperr.Storage("scan backlink", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// BrokenLinks returns every reference in the corpus whose target does not
// resolve to an existing document: never resolved, or resolved to a
// document that has since disappeared.
func (db *DB) BrokenLinks(ctx context.Context) ([]models.BrokenLink, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT l.source, l.target, l.anchor, l.occurrences
		FROM links l
		WHERE l.kind = ?
		  AND (l.resolved = '' OR NOT EXISTS (SELECT 1 FROM documents d WHERE d.id = l.resolved))
		ORDER BY l.source, l.target
	`, KindReference)
	if err != nil {
		return nil, apperr.Storage("broken links", err)
	}
	defer rows.Close()

	var out []models.BrokenLink
	for rows.Next() {
		var b models.BrokenLink
		if err := rows.Scan(&b.Source, &b.Target, &b.Anchor, &b.Occurrences); err != nil {
			return nil, apperr.Storage("scan broken link", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// Orphaned returns ids of documents with no resolved incoming and no
// resolved outgoing references.
func (db *DB) Orphaned(ctx context.Context) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT doc.id FROM documents doc
		WHERE NOT EXISTS (
			SELECT 1 FROM links l JOIN documents t ON t.id = l.resolved
			WHERE l.source = doc.id AND l.kind = ?
		)
		AND NOT EXISTS (
			SELECT 1 FROM links l
			WHERE l.resolved = doc.id AND l.kind = ?
		)
		ORDER BY doc.id
	`, KindReference, KindReference)
	if err != nil {
		return nil, apperr.Storage("orphaned", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, apperr.Storage("scan orphan", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// ResolvedTargets returns ids of existing documents the source currently
// references.
func (db *DB) ResolvedTargets(ctx context.Context, source string) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT DISTINCT l.resolved
		FROM links l
		JOIN documents t ON t.id = l.resolved
		WHERE l.source = ? AND l.kind = ?
	`, source, KindReference)
	if err != nil {
		return nil, apperr.Storage("resolved targets", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, apperr.Storage("scan target", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// DocumentTags returns the tag associations of one document.
func (db *DB) DocumentTags(ctx context.Context, id string) ([]string, error) {
	return db.tagsOf(ctx, id)
}

// SimilarityCandidates returns ids of documents (excluding exclude) that
// share at least one resolved link target or tag with the given sets.
// This is the bounded neighborhood similarity scoring works over; it
// never expands transitively.
func (db *DB) SimilarityCandidates(ctx context.Context, targets, tags []string, exclude string) ([]string, error) {
	seen := map[string]struct{}{exclude: {}}
	var out []string

	collect := func(query string, args []any) error {
		rows, err := db.conn.QueryContext(ctx, query, args...)
		if err != nil {
			return apperr.Storage("similarity candidates", err)
		}
		defer rows.Close()
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				return apperr.Storage("scan candidate", err)
			}
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
		return rows.Err()
	}

	if len(targets) > 0 {
		q := `
			SELECT DISTINCT l.source FROM links l
			JOIN documents s ON s.id = l.source
			WHERE l.kind = '` + KindReference + `' AND l.resolved IN (` + placeholders(len(targets)) + `)`
		if err := collect(q, anySlice(targets)); err != nil {
			return nil, err
		}
	}
	if len(tags) > 0 {
		q := `
			SELECT DISTINCT dt.document_id FROM document_tags dt
			JOIN documents d ON d.id = dt.document_id
			WHERE dt.tag IN (` + placeholders(len(tags)) + `)`
		if err := collect(q, anySlice(tags)); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func anySlice(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
