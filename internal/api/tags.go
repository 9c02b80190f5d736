package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/starford/laguz/internal/models"
)

// ListTags handles GET /api/tags. An optional q parameter switches to
// substring search.
func (h *Handler) ListTags(w http.ResponseWriter, r *http.Request) {
	hier := h.eng.Tags()
	if q := r.URL.Query().Get("q"); q != "" {
		writeJSON(w, http.StatusOK, map[string]any{"tags": hier.Search(q)})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tags": hier.All()})
}

// TagRoots handles GET /api/tags/roots.
func (h *Handler) TagRoots(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"tags": h.eng.Tags().Roots()})
}

// PopularTags handles GET /api/tags/popular.
func (h *Handler) PopularTags(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 10
	}
	writeJSON(w, http.StatusOK, map[string]any{"tags": h.eng.Tags().MostUsed(limit)})
}

// TagChildren handles GET /api/tags/children?name=.
func (h *Handler) TagChildren(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'name' is required"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tags": h.eng.Tags().Children(name)})
}

// TagAncestors handles GET /api/tags/ancestors?name=.
func (h *Handler) TagAncestors(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'name' is required"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tags": h.eng.Tags().Ancestors(name)})
}

// TagDescendants handles GET /api/tags/descendants?name=.
func (h *Handler) TagDescendants(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'name' is required"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tags": h.eng.Tags().Descendants(name)})
}

// RebuildTags handles POST /api/tags/rebuild: replaces the tag hierarchy
// from the supplied document↔tag pairs, or from the index's stored
// associations when no pairs are given.
func (h *Handler) RebuildTags(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Pairs []models.TagPair `json:"pairs"`
	}
	if r.ContentLength != 0 {
		r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
			return
		}
	}
	if err := h.eng.RebuildTagHierarchy(r.Context(), req.Pairs); err != nil {
		slog.Error("tag hierarchy rebuild failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"count": len(h.eng.Tags().All())})
}

// CleanupTags handles POST /api/tags/cleanup: removes tags no document
// uses any more.
func (h *Handler) CleanupTags(w http.ResponseWriter, r *http.Request) {
	removed := h.eng.Tags().CleanupUnused()
	writeJSON(w, http.StatusOK, map[string]any{"removed": removed})
}
