// Package testutil provides shared test helpers for setting up
// workspaces, databases, and engines.
package testutil

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/laguz/internal/engine"
	"github.com/starford/laguz/internal/index"
	"github.com/starford/laguz/internal/storage"
	"github.com/starford/laguz/internal/tags"
)

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	db, err := index.Open(filepath.Join(t.TempDir(), "laguz-test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestWorkspace creates a temporary workspace directory seeded with the
// given files (workspace-relative path -> content) and returns it with a
// storage provider.
func TestWorkspace(t *testing.T, files map[string]string) (string, *storage.FS) {
	t.Helper()
	dir := t.TempDir()
	for rel, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	store, err := storage.NewFS(dir, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	return dir, store
}

// TestEngine builds a quiet engine over a seeded workspace and runs the
// initial rebuild.
func TestEngine(t *testing.T, files map[string]string, opts ...engine.Option) *engine.Engine {
	t.Helper()
	_, store := TestWorkspace(t, files)
	db := TestDB(t)

	base := []engine.Option{
		engine.WithLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))),
	}
	eng := engine.New(store, db, tags.NewHierarchy(), append(base, opts...)...)
	t.Cleanup(eng.Close)

	if _, err := eng.Rebuild(context.Background()); err != nil {
		t.Fatal(err)
	}
	return eng
}
