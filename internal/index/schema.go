// Package index provides the SQLite-backed persistent document index with
// optional FTS5 full-text search. It is the single authority for document,
// link, and tag-association state; all mutations pass through its
// transactional upsert/delete.
package index

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"
)

const coreSchemaSQL = `
CREATE TABLE IF NOT EXISTS documents (
	id           TEXT PRIMARY KEY,
	title        TEXT NOT NULL DEFAULT '',
	checksum     TEXT NOT NULL DEFAULT '',
	frontmatter  TEXT NOT NULL DEFAULT '{}',
	body         TEXT NOT NULL DEFAULT '',
	word_count   INTEGER NOT NULL DEFAULT 0,
	reading_time INTEGER NOT NULL DEFAULT 0,
	degraded     INTEGER NOT NULL DEFAULT 0,
	updated_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS links (
	source      TEXT NOT NULL,
	target      TEXT NOT NULL,
	resolved    TEXT NOT NULL DEFAULT '',
	kind        TEXT NOT NULL DEFAULT 'reference',
	anchor      TEXT NOT NULL DEFAULT '',
	occurrences INTEGER NOT NULL DEFAULT 1,
	UNIQUE(source, target, kind)
);

CREATE INDEX IF NOT EXISTS idx_links_source   ON links(source);
CREATE INDEX IF NOT EXISTS idx_links_resolved ON links(resolved);

CREATE TABLE IF NOT EXISTS document_tags (
	document_id TEXT NOT NULL,
	tag         TEXT NOT NULL,
	UNIQUE(document_id, tag)
);

CREATE INDEX IF NOT EXISTS idx_document_tags_tag ON document_tags(tag);
`

// KindReference is the link kind for explicit [[wikilink]] references.
// Similarity edges are derived at query time and never stored.
const KindReference = "reference"

// DB wraps a sql.DB with index-specific operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
// WAL mode plus a busy timeout keeps readers consistent while the
// coordinator writes.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("index: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: ping: %w", err)
	}
	if _, err := conn.Exec(coreSchemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: apply core schema: %w", err)
	}
	if err := initFTS(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: apply fts schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// isTransient reports whether err is a transient SQLite contention error
// worth one retry.
func isTransient(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.Code == sqlite3.ErrBusy || se.Code == sqlite3.ErrLocked
	}
	return false
}

// withRetry runs fn, retrying once after a short backoff when the first
// attempt fails with transient contention.
func withRetry(fn func() error) error {
	err := fn()
	if err != nil && isTransient(err) {
		time.Sleep(50 * time.Millisecond)
		err = fn()
	}
	return err
}
