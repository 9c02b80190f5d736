package tags

import (
	"reflect"
	"testing"

	"github.com/starford/laguz/internal/models"
)

func TestExpand(t *testing.T) {
	got := Expand("Proj/Core/API")
	want := []string{"proj", "proj/core", "proj/core/api"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Expand = %v", got)
	}
	if Expand("") != nil {
		t.Error("empty tag should expand to nil")
	}
	if Expand("//") != nil {
		t.Error("separator-only tag should expand to nil")
	}
}

func TestExpandAll_Dedup(t *testing.T) {
	got := ExpandAll([]string{"proj/core", "proj/ui", "PROJ"})
	want := []string{"proj", "proj/core", "proj/ui"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ExpandAll = %v", got)
	}
}

func TestParseAndRegister_CreatesAncestors(t *testing.T) {
	h := NewHierarchy()

	got := h.ParseAndRegister([]string{"A/B/C"})
	want := []string{"a", "a/b", "a/b/c"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ParseAndRegister = %v, want %v", got, want)
	}

	// Registration alone makes the tags queryable, before any document
	// carries them.
	for _, name := range want {
		tag, ok := h.Get(name)
		if !ok {
			t.Errorf("Get(%q) missing after registration", name)
			continue
		}
		if tag.UsageCount != 0 {
			t.Errorf("%s usage = %d, want 0", name, tag.UsageCount)
		}
	}
	if all := h.All(); len(all) != 3 {
		t.Errorf("All = %+v", all)
	}
}

func TestRebuild_ExpandsAncestors(t *testing.T) {
	h := NewHierarchy()
	// Leaf-only pairs, as an external caller would supply them.
	h.Rebuild([]models.TagPair{
		{DocumentID: "a.md", Tag: "proj/core"},
		{DocumentID: "b.md", Tag: "proj/ui"},
	})

	proj, ok := h.Get("proj")
	if !ok {
		t.Fatal("proj missing after rebuild from leaf pairs")
	}
	if proj.UsageCount != 2 {
		t.Errorf("proj usage = %d, want 2", proj.UsageCount)
	}
	core, _ := h.Get("proj/core")
	if core.UsageCount != 1 {
		t.Errorf("proj/core usage = %d", core.UsageCount)
	}
}

func TestUsageCounts_AncestorCountsOncePerDocument(t *testing.T) {
	h := NewHierarchy()
	h.SetDocumentTags("a.md", ExpandAll([]string{"proj/core"}))
	h.SetDocumentTags("b.md", ExpandAll([]string{"proj/ui"}))

	proj, ok := h.Get("proj")
	if !ok {
		t.Fatal("proj missing")
	}
	if proj.UsageCount != 2 {
		t.Errorf("proj usage = %d, want 2", proj.UsageCount)
	}
	core, _ := h.Get("proj/core")
	if core.UsageCount != 1 {
		t.Errorf("proj/core usage = %d", core.UsageCount)
	}
}

func TestSetDocumentTags_Replaces(t *testing.T) {
	h := NewHierarchy()
	h.SetDocumentTags("a.md", ExpandAll([]string{"old"}))
	h.SetDocumentTags("a.md", ExpandAll([]string{"new"}))

	if old, _ := h.Get("old"); old.UsageCount != 0 {
		t.Errorf("old usage = %d", old.UsageCount)
	}
	if nw, ok := h.Get("new"); !ok || nw.UsageCount != 1 {
		t.Errorf("new = %+v ok=%v", nw, ok)
	}
}

func TestRemoveDocument(t *testing.T) {
	h := NewHierarchy()
	h.SetDocumentTags("a.md", ExpandAll([]string{"go"}))
	h.RemoveDocument("a.md")

	if tag, _ := h.Get("go"); tag.UsageCount != 0 {
		t.Errorf("usage after remove = %d", tag.UsageCount)
	}
	// Removing twice is a no-op.
	h.RemoveDocument("a.md")
}

func TestRebuild_MatchesIncremental(t *testing.T) {
	inc := NewHierarchy()
	inc.SetDocumentTags("a.md", ExpandAll([]string{"proj/core", "go"}))
	inc.SetDocumentTags("b.md", ExpandAll([]string{"proj"}))

	var pairs []models.TagPair
	for _, doc := range []struct {
		id   string
		tags []string
	}{
		{"a.md", ExpandAll([]string{"proj/core", "go"})},
		{"b.md", ExpandAll([]string{"proj"})},
	} {
		for _, tg := range doc.tags {
			pairs = append(pairs, models.TagPair{DocumentID: doc.id, Tag: tg})
		}
	}
	reb := NewHierarchy()
	reb.Rebuild(pairs)

	if !reflect.DeepEqual(inc.All(), reb.All()) {
		t.Errorf("incremental %+v != rebuilt %+v", inc.All(), reb.All())
	}
}

func TestChildrenAncestorsDescendants(t *testing.T) {
	h := NewHierarchy()
	h.SetDocumentTags("a.md", ExpandAll([]string{"proj/core/api", "proj/ui"}))

	children := h.Children("proj")
	if len(children) != 2 || children[0].Name != "proj/core" || children[1].Name != "proj/ui" {
		t.Errorf("children = %+v", children)
	}

	anc := h.Ancestors("proj/core/api")
	if len(anc) != 2 || anc[0].Name != "proj" || anc[1].Name != "proj/core" {
		t.Errorf("ancestors = %+v", anc)
	}

	desc := h.Descendants("proj")
	if len(desc) != 3 {
		t.Errorf("descendants = %+v", desc)
	}
}

func TestRoots(t *testing.T) {
	h := NewHierarchy()
	h.SetDocumentTags("a.md", ExpandAll([]string{"proj/core", "go"}))

	roots := h.Roots()
	if len(roots) != 2 || roots[0].Name != "go" || roots[1].Name != "proj" {
		t.Errorf("roots = %+v", roots)
	}
}

func TestMostUsed(t *testing.T) {
	h := NewHierarchy()
	h.SetDocumentTags("a.md", ExpandAll([]string{"go"}))
	h.SetDocumentTags("b.md", ExpandAll([]string{"go", "rust"}))

	top := h.MostUsed(1)
	if len(top) != 1 || top[0].Name != "go" || top[0].UsageCount != 2 {
		t.Errorf("top = %+v", top)
	}
}

func TestSearch(t *testing.T) {
	h := NewHierarchy()
	h.SetDocumentTags("a.md", ExpandAll([]string{"proj/core", "programming"}))

	got := h.Search("pro")
	if len(got) != 3 {
		t.Errorf("search = %+v", got)
	}
	if h.Search("") != nil {
		t.Error("empty query should return nil")
	}
}

func TestCleanupUnused_FixedPoint(t *testing.T) {
	h := NewHierarchy()
	h.SetDocumentTags("a.md", ExpandAll([]string{"deep/nested/leaf"}))
	h.RemoveDocument("a.md")

	removed := h.CleanupUnused()
	// leaf removal exposes nested, then deep; all three go in one call.
	want := []string{"deep", "deep/nested", "deep/nested/leaf"}
	if !reflect.DeepEqual(removed, want) {
		t.Errorf("removed = %v", removed)
	}
	if len(h.All()) != 0 {
		t.Errorf("remaining = %+v", h.All())
	}
}

func TestCleanupUnused_KeepsUsedAncestors(t *testing.T) {
	h := NewHierarchy()
	h.SetDocumentTags("a.md", ExpandAll([]string{"proj/core"}))
	h.SetDocumentTags("b.md", ExpandAll([]string{"proj"}))
	h.RemoveDocument("a.md")

	removed := h.CleanupUnused()
	if !reflect.DeepEqual(removed, []string{"proj/core"}) {
		t.Errorf("removed = %v", removed)
	}
	if _, ok := h.Get("proj"); !ok {
		t.Error("proj should survive, b.md still uses it")
	}
}
