// Package tags maintains the in-memory hierarchical tag tree. Slash
// separates levels (proj/core/api); every ancestor of a used tag exists
// implicitly. Usage counts are derived from document associations: a
// document carrying any descendant of a tag counts once toward it.
package tags

import (
	"sort"
	"strings"
	"sync"

	"github.com/starford/laguz/internal/models"
	"github.com/starford/laguz/internal/parser"
)

type node struct {
	name     string
	parent   string
	level    int
	children map[string]struct{}
	docs     map[string]struct{}
}

// Hierarchy is a thread-safe tag tree rebuilt from (and incrementally
// synced with) the index's document↔tag associations.
type Hierarchy struct {
	mu      sync.RWMutex
	nodes   map[string]*node
	docTags map[string]map[string]struct{}
}

// NewHierarchy creates an empty hierarchy.
func NewHierarchy() *Hierarchy {
	return &Hierarchy{
		nodes:   make(map[string]*node),
		docTags: make(map[string]map[string]struct{}),
	}
}

// Expand normalizes a raw tag and returns it with all its ancestors,
// or nil if the tag normalizes to nothing.
func Expand(raw string) []string {
	norm := parser.NormalizeTag(raw)
	if norm == "" {
		return nil
	}
	parts := strings.Split(norm, "/")
	out := make([]string, 0, len(parts))
	for i := range parts {
		out = append(out, strings.Join(parts[:i+1], "/"))
	}
	return out
}

// ExpandAll expands every raw tag and returns the deduplicated,
// sorted union including ancestors.
func ExpandAll(raw []string) []string {
	set := make(map[string]struct{})
	for _, r := range raw {
		for _, t := range Expand(r) {
			set[t] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// ensure returns the node for name, creating it and its ancestors.
// Caller holds the write lock.
func (h *Hierarchy) ensure(name string) *node {
	if n, ok := h.nodes[name]; ok {
		return n
	}
	parts := strings.Split(name, "/")
	parent := ""
	if len(parts) > 1 {
		parent = strings.Join(parts[:len(parts)-1], "/")
		p := h.ensure(parent)
		p.children[name] = struct{}{}
	}
	n := &node{
		name:     name,
		parent:   parent,
		level:    len(parts) - 1,
		children: make(map[string]struct{}),
		docs:     make(map[string]struct{}),
	}
	h.nodes[name] = n
	return n
}

// ParseAndRegister normalizes raw tags, creates any missing nodes
// including ancestors, and returns the canonical expanded list sorted.
// Newly registered tags start with zero usage until a document carries
// them.
func (h *Hierarchy) ParseAndRegister(raw []string) []string {
	expanded := ExpandAll(raw)
	h.mu.Lock()
	for _, t := range expanded {
		h.ensure(t)
	}
	h.mu.Unlock()
	return expanded
}

// SetDocumentTags replaces a document's tag set. expanded must already
// include ancestors (ExpandAll output, matching what the index stores).
func (h *Hierarchy) SetDocumentTags(docID string, expanded []string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.detach(docID)
	if len(expanded) == 0 {
		return
	}
	set := make(map[string]struct{}, len(expanded))
	for _, t := range expanded {
		set[t] = struct{}{}
		h.ensure(t).docs[docID] = struct{}{}
	}
	h.docTags[docID] = set
}

// RemoveDocument drops a document's associations.
func (h *Hierarchy) RemoveDocument(docID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.detach(docID)
}

func (h *Hierarchy) detach(docID string) {
	for t := range h.docTags[docID] {
		if n, ok := h.nodes[t]; ok {
			delete(n.docs, docID)
		}
	}
	delete(h.docTags, docID)
}

// Rebuild replaces the whole hierarchy from document↔tag pairs. Each
// pair is expanded with its ancestors, so counts derive correctly even
// from leaf-only input. The result is identical regardless of pair
// order, so a rebuild after incremental updates is idempotent.
func (h *Hierarchy) Rebuild(pairs []models.TagPair) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nodes = make(map[string]*node)
	h.docTags = make(map[string]map[string]struct{})
	for _, p := range pairs {
		expanded := Expand(p.Tag)
		if len(expanded) == 0 {
			continue
		}
		set := h.docTags[p.DocumentID]
		if set == nil {
			set = make(map[string]struct{})
			h.docTags[p.DocumentID] = set
		}
		for _, t := range expanded {
			set[t] = struct{}{}
			h.ensure(t).docs[p.DocumentID] = struct{}{}
		}
	}
}

// CleanupUnused removes leaf tags with zero usage, repeating until no
// removable leaf remains, and returns the removed names sorted.
func (h *Hierarchy) CleanupUnused() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	var removed []string
	for {
		var batch []string
		for name, n := range h.nodes {
			if len(n.children) == 0 && len(n.docs) == 0 {
				batch = append(batch, name)
			}
		}
		if len(batch) == 0 {
			break
		}
		for _, name := range batch {
			n := h.nodes[name]
			if n.parent != "" {
				if p, ok := h.nodes[n.parent]; ok {
					delete(p.children, name)
				}
			}
			delete(h.nodes, name)
		}
		removed = append(removed, batch...)
	}
	sort.Strings(removed)
	return removed
}

// Get returns one tag with its usage count, or false if absent.
func (h *Hierarchy) Get(name string) (models.Tag, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n, ok := h.nodes[parser.NormalizeTag(name)]
	if !ok {
		return models.Tag{}, false
	}
	return h.toTag(n), true
}

// All returns every known tag sorted by name.
func (h *Hierarchy) All() []models.Tag {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]models.Tag, 0, len(h.nodes))
	for _, n := range h.nodes {
		out = append(out, h.toTag(n))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Roots returns the top-level tags sorted by name.
func (h *Hierarchy) Roots() []models.Tag {
	h.mu.RLock()
	defer h.mu.RUnlock()
	var out []models.Tag
	for _, n := range h.nodes {
		if n.parent == "" {
			out = append(out, h.toTag(n))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Children returns the direct children of a tag sorted by name.
func (h *Hierarchy) Children(name string) []models.Tag {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n, ok := h.nodes[parser.NormalizeTag(name)]
	if !ok {
		return nil
	}
	var out []models.Tag
	for c := range n.children {
		if cn, ok := h.nodes[c]; ok {
			out = append(out, h.toTag(cn))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Ancestors returns the chain from root to the tag's direct parent.
func (h *Hierarchy) Ancestors(name string) []models.Tag {
	h.mu.RLock()
	defer h.mu.RUnlock()
	norm := parser.NormalizeTag(name)
	if _, ok := h.nodes[norm]; !ok {
		return nil
	}
	parts := strings.Split(norm, "/")
	var out []models.Tag
	for i := 1; i < len(parts); i++ {
		if n, ok := h.nodes[strings.Join(parts[:i], "/")]; ok {
			out = append(out, h.toTag(n))
		}
	}
	return out
}

// Descendants returns every tag strictly below name, sorted.
func (h *Hierarchy) Descendants(name string) []models.Tag {
	h.mu.RLock()
	defer h.mu.RUnlock()
	root, ok := h.nodes[parser.NormalizeTag(name)]
	if !ok {
		return nil
	}
	var out []models.Tag
	var walk func(n *node)
	walk = func(n *node) {
		for c := range n.children {
			if cn, ok := h.nodes[c]; ok {
				out = append(out, h.toTag(cn))
				walk(cn)
			}
		}
	}
	walk(root)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// MostUsed returns the n tags with the highest usage counts; ties break
// by name.
func (h *Hierarchy) MostUsed(n int) []models.Tag {
	all := h.All()
	sort.Slice(all, func(i, j int) bool {
		if all[i].UsageCount != all[j].UsageCount {
			return all[i].UsageCount > all[j].UsageCount
		}
		return all[i].Name < all[j].Name
	})
	if n > 0 && len(all) > n {
		all = all[:n]
	}
	return all
}

// Search returns tags whose name contains the query, case-insensitive.
func (h *Hierarchy) Search(query string) []models.Tag {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}
	var out []models.Tag
	for _, t := range h.All() {
		if strings.Contains(t.Name, q) {
			out = append(out, t)
		}
	}
	return out
}

// toTag converts a node; caller holds at least the read lock.
func (h *Hierarchy) toTag(n *node) models.Tag {
	children := make([]string, 0, len(n.children))
	for c := range n.children {
		children = append(children, c)
	}
	sort.Strings(children)
	return models.Tag{
		Name:       n.name,
		Parent:     n.parent,
		Level:      n.level,
		Children:   children,
		UsageCount: len(n.docs),
	}
}
