package graph

import (
	"context"
	"math"
	"testing"
)

func TestResolver_ExactIDWinsOverBase(t *testing.T) {
	r := NewResolver([]Ref{
		{ID: "notes/go.md", Title: "Go Notes"},
		{ID: "go.md", Title: "Go"},
	}, nil)

	if got := r.Resolve("go.md"); got != "go.md" {
		t.Errorf("Resolve(go.md) = %q", got)
	}
}

func TestResolver_Stages(t *testing.T) {
	r := NewResolver([]Ref{
		{ID: "notes/alpha.md", Title: "The Alpha Note"},
	}, nil)

	cases := []struct{ raw, want string }{
		{"notes/alpha.md", "notes/alpha.md"}, // exact id
		{"notes/alpha", "notes/alpha.md"},    // id without extension
		{"alpha", "notes/alpha.md"},          // base filename
		{"the alpha note", "notes/alpha.md"}, // title
		{"The Alpha Note", "notes/alpha.md"}, // case-insensitive
		{"missing", ""},
	}
	for _, c := range cases {
		if got := r.Resolve(c.raw); got != c.want {
			t.Errorf("Resolve(%q) = %q, want %q", c.raw, got, c.want)
		}
	}
}

func TestResolver_AmbiguityPicksSmallestID(t *testing.T) {
	r := NewResolver([]Ref{
		{ID: "work/todo.md"},
		{ID: "home/todo.md"},
	}, nil)

	if got := r.Resolve("todo"); got != "home/todo.md" {
		t.Errorf("Resolve(todo) = %q, want home/todo.md", got)
	}
}

func TestResolver_EmptyAndWhitespace(t *testing.T) {
	r := NewResolver([]Ref{{ID: "a.md"}}, nil)
	if got := r.Resolve(""); got != "" {
		t.Errorf("Resolve(empty) = %q", got)
	}
	if got := r.Resolve("  a.md  "); got != "a.md" {
		t.Errorf("Resolve(padded) = %q", got)
	}
}

// fakeNeighborhood is an in-memory Neighborhood for similarity tests.
type fakeNeighborhood struct {
	targets map[string][]string
	tags    map[string][]string
}

func (f *fakeNeighborhood) ResolvedTargets(_ context.Context, id string) ([]string, error) {
	return f.targets[id], nil
}

func (f *fakeNeighborhood) DocumentTags(_ context.Context, id string) ([]string, error) {
	return f.tags[id], nil
}

func (f *fakeNeighborhood) SimilarityCandidates(_ context.Context, targets, tags []string, exclude string) ([]string, error) {
	tSet := map[string]struct{}{}
	for _, t := range targets {
		tSet[t] = struct{}{}
	}
	gSet := map[string]struct{}{}
	for _, g := range tags {
		gSet[g] = struct{}{}
	}
	seen := map[string]struct{}{exclude: {}}
	var out []string
	add := func(id string) {
		if _, dup := seen[id]; !dup {
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	for id, ts := range f.targets {
		for _, x := range ts {
			if _, ok := tSet[x]; ok {
				add(id)
			}
		}
	}
	for id, gs := range f.tags {
		for _, x := range gs {
			if _, ok := gSet[x]; ok {
				add(id)
			}
		}
	}
	return out, nil
}

func TestSimilar_ScoreAndOrder(t *testing.T) {
	nb := &fakeNeighborhood{
		targets: map[string][]string{
			"a.md": {"hub.md"},
			"b.md": {"hub.md"},
			"c.md": {},
		},
		tags: map[string][]string{
			"a.md": {"go"},
			"b.md": {"go"},
			"c.md": {"go", "rust"},
		},
	}

	got, err := Similar(context.Background(), nb, "a.md", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("got = %+v", got)
	}
	// b shares the link (jaccard 1) and the tag (jaccard 1): 0.6 + 0.4.
	if got[0].ID != "b.md" || math.Abs(got[0].Score-1.0) > 1e-9 {
		t.Errorf("top = %+v", got[0])
	}
	// c shares only the tag, jaccard 1/2: 0.4 * 0.5 = 0.2.
	if got[1].ID != "c.md" || math.Abs(got[1].Score-0.2) > 1e-9 {
		t.Errorf("second = %+v", got[1])
	}
	if len(got[0].SharedLinks) != 1 || got[0].SharedLinks[0] != "hub.md" {
		t.Errorf("shared links = %v", got[0].SharedLinks)
	}
}

func TestSimilar_NeverIncludesSelf(t *testing.T) {
	nb := &fakeNeighborhood{
		targets: map[string][]string{"a.md": {"hub.md"}},
		tags:    map[string][]string{"a.md": {"go"}},
	}
	got, err := Similar(context.Background(), nb, "a.md", 10)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range got {
		if e.ID == "a.md" {
			t.Error("self in result")
		}
	}
}

func TestSimilar_NoFeaturesNoResult(t *testing.T) {
	nb := &fakeNeighborhood{
		targets: map[string][]string{},
		tags:    map[string][]string{"other.md": {"go"}},
	}
	got, err := Similar(context.Background(), nb, "bare.md", 10)
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Errorf("got = %+v", got)
	}
}

func TestSimilar_TopN(t *testing.T) {
	nb := &fakeNeighborhood{
		targets: map[string][]string{},
		tags: map[string][]string{
			"a.md": {"go"},
			"b.md": {"go"},
			"c.md": {"go"},
			"d.md": {"go"},
		},
	}
	got, err := Similar(context.Background(), nb, "a.md", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Errorf("len = %d", len(got))
	}
}
