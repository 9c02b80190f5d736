// Package engine coordinates the indexing pipeline: it owns the debounce
// queue, runs parse/resolve/upsert for changed files, keeps the tag
// hierarchy in sync, and serves every read operation the boundary
// adapters expose.
package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/starford/laguz/internal/graph"
	"github.com/starford/laguz/internal/index"
	"github.com/starford/laguz/internal/models"
	"github.com/starford/laguz/internal/parser"
	"github.com/starford/laguz/internal/storage"
	"github.com/starford/laguz/internal/tags"
)

// Event kinds emitted after index mutations.
const (
	EventCreated  = "document.created"
	EventUpdated  = "document.updated"
	EventDeleted  = "document.deleted"
	EventDegraded = "document.degraded"
)

// Event describes one index mutation.
type Event struct {
	Kind string `json:"kind"`
	ID   string `json:"id"`
}

// NotifyFunc receives events after each successful mutation. It must not
// block; the SSE broker's publish is non-blocking by construction.
type NotifyFunc func(Event)

// Engine ties storage, index, and tag hierarchy together.
type Engine struct {
	store  storage.Provider
	idx    index.DocumentIndex
	hier   *tags.Hierarchy
	log    *slog.Logger
	notify NotifyFunc

	debounce       time.Duration
	workers        int
	storageTimeout time.Duration

	queue *queue
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithDebounce sets the per-path debounce window.
func WithDebounce(d time.Duration) Option {
	return func(e *Engine) { e.debounce = d }
}

// WithWorkers bounds concurrent pipeline runs.
func WithWorkers(n int) Option {
	return func(e *Engine) { e.workers = n }
}

// WithStorageTimeout bounds each index operation.
func WithStorageTimeout(d time.Duration) Option {
	return func(e *Engine) { e.storageTimeout = d }
}

// WithNotify sets the mutation event sink.
func WithNotify(fn NotifyFunc) Option {
	return func(e *Engine) { e.notify = fn }
}

// New creates an Engine with default tuning: 300ms debounce, 4 workers,
// 5s storage timeout.
func New(store storage.Provider, idx index.DocumentIndex, hier *tags.Hierarchy, opts ...Option) *Engine {
	e := &Engine{
		store:          store,
		idx:            idx,
		hier:           hier,
		log:            slog.Default(),
		debounce:       300 * time.Millisecond,
		workers:        4,
		storageTimeout: 5 * time.Second,
	}
	for _, o := range opts {
		o(e)
	}
	e.queue = newQueue(e.debounce, e.workers, e.process)
	return e
}

// Enqueue schedules a path for (re)indexing after the debounce window.
// The pipeline decides between upsert and delete by checking the disk,
// so create, write, remove, and rename all funnel through here.
func (e *Engine) Enqueue(id string) {
	if !e.store.Tracks(id) {
		return
	}
	e.queue.enqueue(id)
}

// Close drains the queue and stops accepting work.
func (e *Engine) Close() {
	e.queue.close()
}

// storageCtx derives a bounded context for one index operation.
func (e *Engine) storageCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, e.storageTimeout)
}

// emit sends an event to the notify sink if one is configured.
func (e *Engine) emit(kind, id string) {
	if e.notify != nil {
		e.notify(Event{Kind: kind, ID: id})
	}
}

// GetDocument returns an indexed document or apperr.ErrNotFound.
func (e *Engine) GetDocument(ctx context.Context, id string) (*index.DocumentRow, error) {
	sctx, cancel := e.storageCtx(ctx)
	defer cancel()
	return e.idx.GetDocument(sctx, id)
}

// ListDocuments returns documents matching the filter and the total count.
func (e *Engine) ListDocuments(ctx context.Context, f index.ListFilter) ([]index.DocumentRow, int, error) {
	sctx, cancel := e.storageCtx(ctx)
	defer cancel()
	return e.idx.ListDocuments(sctx, f)
}

// Search runs a ranked full-text query.
func (e *Engine) Search(ctx context.Context, query string, limit int) ([]index.SearchResult, error) {
	sctx, cancel := e.storageCtx(ctx)
	defer cancel()
	return e.idx.Search(sctx, query, limit)
}

// Backlinks returns resolved incoming references to id.
func (e *Engine) Backlinks(ctx context.Context, id string) ([]models.BacklinkEntry, error) {
	sctx, cancel := e.storageCtx(ctx)
	defer cancel()
	return e.idx.Backlinks(sctx, id)
}

// BrokenLinks returns every unresolvable reference in the corpus.
func (e *Engine) BrokenLinks(ctx context.Context) ([]models.BrokenLink, error) {
	sctx, cancel := e.storageCtx(ctx)
	defer cancel()
	return e.idx.BrokenLinks(sctx)
}

// Orphans returns ids of documents with no resolved references either way.
func (e *Engine) Orphans(ctx context.Context) ([]string, error) {
	sctx, cancel := e.storageCtx(ctx)
	defer cancel()
	return e.idx.Orphaned(sctx)
}

// Similar returns the top-n documents by link/tag overlap with id.
func (e *Engine) Similar(ctx context.Context, id string, n int) ([]models.SimilarEntry, error) {
	sctx, cancel := e.storageCtx(ctx)
	defer cancel()
	if _, err := e.idx.GetDocument(sctx, id); err != nil {
		return nil, err
	}
	return graph.Similar(sctx, e.idx, id, n)
}

// Tags returns the tag hierarchy facade. All hierarchy reads are served
// from memory and need no context.
func (e *Engine) Tags() *tags.Hierarchy {
	return e.hier
}

// RebuildTagHierarchy replaces the tag hierarchy from the given
// document↔tag pairs, or from the index's stored associations when
// pairs is empty.
func (e *Engine) RebuildTagHierarchy(ctx context.Context, pairs []models.TagPair) error {
	if len(pairs) == 0 {
		sctx, cancel := e.storageCtx(ctx)
		defer cancel()
		var err error
		pairs, err = e.idx.DocumentTagPairs(sctx)
		if err != nil {
			return err
		}
	}
	e.hier.Rebuild(pairs)
	return nil
}

// ExtractTags extracts and normalizes inline tags from arbitrary text
// without touching the index.
func (e *Engine) ExtractTags(text string) []string {
	return parser.ExtractTags(text)
}
