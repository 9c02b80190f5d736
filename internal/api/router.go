package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/starford/laguz/internal/engine"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(eng *engine.Engine, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(eng)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Documents (read-only; the file system is the write surface).
	r.Get("/documents", h.ListDocuments)
	r.Get("/documents/*", h.GetDocument)

	// Search.
	r.Get("/search", h.Search)

	// Graph queries.
	r.Get("/backlinks/*", h.Backlinks)
	r.Get("/similar/*", h.Similar)
	r.Get("/broken-links", h.BrokenLinks)
	r.Get("/orphans", h.Orphans)

	// Tag hierarchy. Tag names contain slashes, so tree lookups take the
	// name as a query parameter rather than a path segment.
	r.Get("/tags", h.ListTags)
	r.Get("/tags/roots", h.TagRoots)
	r.Get("/tags/popular", h.PopularTags)
	r.Get("/tags/children", h.TagChildren)
	r.Get("/tags/ancestors", h.TagAncestors)
	r.Get("/tags/descendants", h.TagDescendants)
	r.Post("/tags/parse", h.ParseTags)
	r.Post("/tags/rebuild", h.RebuildTags)
	r.Post("/tags/cleanup", h.CleanupTags)

	// Utilities.
	r.Post("/extract-tags", h.ExtractTags)
	r.Post("/rebuild", h.Rebuild)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
