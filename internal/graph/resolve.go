// Package graph derives the reference graph: wikilink target resolution
// and query-time document similarity. Nothing here is persisted; the
// index stores resolved edges, the graph package decides what they
// resolve to.
package graph

import (
	"log/slog"
	"path"
	"sort"
	"strings"
)

// Ref is one (id, title) entry in the resolution namespace.
type Ref struct {
	ID    string
	Title string
}

// Resolver maps raw wikilink text to document ids. Matching is
// case-insensitive and tried in order: exact id, id without the .md
// extension, base filename, then title. The first stage with any match
// wins; within a stage ties break to the lexicographically smallest id.
type Resolver struct {
	byID    map[string][]string
	byNoExt map[string][]string
	byBase  map[string][]string
	byTitle map[string][]string
	log     *slog.Logger
}

// NewResolver builds a resolver over the given namespace.
func NewResolver(refs []Ref, log *slog.Logger) *Resolver {
	if log == nil {
		log = slog.Default()
	}
	r := &Resolver{
		byID:    make(map[string][]string),
		byNoExt: make(map[string][]string),
		byBase:  make(map[string][]string),
		byTitle: make(map[string][]string),
		log:     log,
	}
	for _, ref := range refs {
		id := ref.ID
		lower := strings.ToLower(id)
		r.byID[lower] = append(r.byID[lower], id)

		noExt := strings.TrimSuffix(lower, ".md")
		if noExt != lower {
			r.byNoExt[noExt] = append(r.byNoExt[noExt], id)
		}

		base := strings.TrimSuffix(path.Base(lower), ".md")
		if base != "" {
			r.byBase[base] = append(r.byBase[base], id)
		}

		if t := strings.ToLower(strings.TrimSpace(ref.Title)); t != "" {
			r.byTitle[t] = append(r.byTitle[t], id)
		}
	}
	for _, m := range []map[string][]string{r.byID, r.byNoExt, r.byBase, r.byTitle} {
		for _, ids := range m {
			sort.Strings(ids)
		}
	}
	return r
}

// Resolve returns the document id the raw link text refers to, or empty
// string if nothing matches. Ambiguous matches resolve to the smallest
// id and are logged.
func (r *Resolver) Resolve(raw string) string {
	key := strings.ToLower(strings.TrimSpace(raw))
	if key == "" {
		return ""
	}
	for _, m := range []map[string][]string{r.byID, r.byNoExt, r.byBase, r.byTitle} {
		if ids, ok := m[key]; ok && len(ids) > 0 {
			if len(ids) > 1 {
				r.log.Warn("ambiguous link target",
					slog.String("target", raw),
					slog.Int("candidates", len(ids)),
					slog.String("resolved", ids[0]))
			}
			return ids[0]
		}
	}
	return ""
}
