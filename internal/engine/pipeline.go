package engine

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/starford/laguz/internal/apperr"
	"github.com/starford/laguz/internal/graph"
	"github.com/starford/laguz/internal/index"
	"github.com/starford/laguz/internal/parser"
	"github.com/starford/laguz/internal/storage"
	"github.com/starford/laguz/internal/tags"
)

// process is the queue's work function: read the file, parse, resolve,
// upsert (or delete when the file is gone), update the tag hierarchy,
// then emit an event.
func (e *Engine) process(id string) {
	ctx, cancel := e.storageCtx(context.Background())
	defer cancel()

	data, err := e.store.Read(id)
	switch {
	case err == nil:
		indexed, created, _ := e.indexFile(ctx, id, data, true)
		if indexed && created {
			// A new document may satisfy references that were broken
			// before it existed.
			e.reresolveBroken(ctx, id)
		}
	case errors.Is(err, fs.ErrNotExist):
		e.removeFile(ctx, id)
	default:
		e.log.Warn("pipeline: read failed", slog.String("id", id), slog.String("error", err.Error()))
	}
}

// indexFile parses data and upserts it. When skipUnchanged is set, a
// matching stored checksum short-circuits the run.
func (e *Engine) indexFile(ctx context.Context, id string, data []byte, skipUnchanged bool) (indexed, created, degraded bool) {
	cs := storage.Checksum(data)
	prev, err := e.idx.GetChecksum(ctx, id)
	if err != nil {
		e.log.Warn("pipeline: checksum lookup failed", slog.String("id", id), slog.String("error", err.Error()))
		return false, false, false
	}
	if skipUnchanged && prev == cs {
		return false, false, false
	}

	res, perr := parser.Parse(data)
	if perr != nil && !apperr.IsParseError(perr) {
		e.log.Warn("pipeline: parse failed", slog.String("id", id), slog.String("error", perr.Error()))
		return false, false, false
	}

	row := index.DocumentRow{
		ID:        id,
		Checksum:  cs,
		UpdatedAt: time.Now().UTC(),
	}
	var (
		body     string
		links    []index.LinkRow
		expanded []string
	)
	if perr != nil {
		// Unparseable content degrades to a placeholder entry instead of
		// vanishing from the index.
		row.Title = titleFallback("", id)
		row.Degraded = true
		e.log.Warn("pipeline: degraded", slog.String("id", id), slog.String("error", perr.Error()))
	} else {
		row.Title = titleFallback(res.Title, id)
		row.Frontmatter = res.Frontmatter
		row.WordCount = res.WordCount
		row.ReadingTime = res.ReadingTime
		body = res.Body
		links = e.resolveLinks(ctx, id, row.Title, res.Links)
		expanded = tags.ExpandAll(res.Tags)
	}

	if err := e.idx.UpsertDocument(ctx, row, body, links, expanded); err != nil {
		e.log.Error("pipeline: upsert failed", slog.String("id", id), slog.String("error", err.Error()))
		return false, false, false
	}
	e.hier.SetDocumentTags(id, expanded)

	switch {
	case row.Degraded:
		e.emit(EventDegraded, id)
	case prev == "":
		e.emit(EventCreated, id)
	default:
		e.emit(EventUpdated, id)
	}
	e.log.Debug("pipeline: indexed", slog.String("id", id), slog.Bool("degraded", row.Degraded))
	return true, prev == "", row.Degraded
}

// reresolveBroken re-indexes every source document that currently holds a
// broken reference, so links waiting on a just-created target resolve
// without the source file changing. exclude is the document that
// triggered the pass.
func (e *Engine) reresolveBroken(ctx context.Context, exclude string) {
	broken, err := e.idx.BrokenLinks(ctx)
	if err != nil {
		e.log.Warn("pipeline: broken link scan failed", slog.String("error", err.Error()))
		return
	}
	seen := map[string]bool{exclude: true}
	for _, b := range broken {
		if seen[b.Source] {
			continue
		}
		seen[b.Source] = true
		data, err := e.store.Read(b.Source)
		if err != nil {
			continue
		}
		e.indexFile(ctx, b.Source, data, false)
	}
}

// removeFile deletes a vanished document from the index and hierarchy.
func (e *Engine) removeFile(ctx context.Context, id string) bool {
	prev, err := e.idx.GetChecksum(ctx, id)
	if err != nil || prev == "" {
		return false
	}
	if err := e.idx.DeleteDocument(ctx, id); err != nil {
		e.log.Error("pipeline: delete failed", slog.String("id", id), slog.String("error", err.Error()))
		return false
	}
	e.hier.RemoveDocument(id)
	e.emit(EventDeleted, id)
	e.log.Debug("pipeline: removed", slog.String("id", id))
	return true
}

// resolveLinks maps parsed references to document ids against the
// current namespace. The document being indexed is part of its own
// namespace so self-referencing ids resolve even on first index.
func (e *Engine) resolveLinks(ctx context.Context, id, title string, refs []parser.LinkRef) []index.LinkRow {
	if len(refs) == 0 {
		return nil
	}
	docs, err := e.idx.AllDocuments(ctx)
	if err != nil {
		e.log.Warn("pipeline: namespace load failed", slog.String("error", err.Error()))
	}
	grefs := make([]graph.Ref, 0, len(docs)+1)
	seen := false
	for _, d := range docs {
		if d.ID == id {
			seen = true
			grefs = append(grefs, graph.Ref{ID: id, Title: title})
			continue
		}
		grefs = append(grefs, graph.Ref{ID: d.ID, Title: d.Title})
	}
	if !seen {
		grefs = append(grefs, graph.Ref{ID: id, Title: title})
	}
	resolver := graph.NewResolver(grefs, e.log)

	out := make([]index.LinkRow, 0, len(refs))
	for _, r := range refs {
		out = append(out, index.LinkRow{
			Source:      id,
			Target:      r.Target,
			Resolved:    resolver.Resolve(r.Target),
			Kind:        index.KindReference,
			Anchor:      r.Anchor,
			Occurrences: r.Occurrences,
		})
	}
	return out
}

// titleFallback returns the parsed title or, when empty, the filename
// stem.
func titleFallback(title, id string) string {
	if title != "" {
		return title
	}
	return strings.TrimSuffix(path.Base(id), ".md")
}
