package graph

import (
	"context"
	"sort"

	"github.com/starford/laguz/internal/models"
)

const (
	linkWeight = 0.6
	tagWeight  = 0.4
)

// Neighborhood supplies the link and tag sets similarity scoring needs.
// *index.DB satisfies it.
type Neighborhood interface {
	ResolvedTargets(ctx context.Context, id string) ([]string, error)
	DocumentTags(ctx context.Context, id string) ([]string, error)
	SimilarityCandidates(ctx context.Context, targets, tags []string, exclude string) ([]string, error)
}

// Similar scores documents sharing links or tags with id and returns the
// top n by combined Jaccard similarity (0.6 links, 0.4 tags). The
// document itself is never in the result; zero-score candidates are
// dropped. Computed lazily per call, nothing is cached.
func Similar(ctx context.Context, nb Neighborhood, id string, n int) ([]models.SimilarEntry, error) {
	if n <= 0 {
		n = 10
	}
	targets, err := nb.ResolvedTargets(ctx, id)
	if err != nil {
		return nil, err
	}
	tags, err := nb.DocumentTags(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(targets) == 0 && len(tags) == 0 {
		return nil, nil
	}

	candidates, err := nb.SimilarityCandidates(ctx, targets, tags, id)
	if err != nil {
		return nil, err
	}

	targetSet := toSet(targets)
	tagSet := toSet(tags)

	var out []models.SimilarEntry
	for _, cand := range candidates {
		cTargets, err := nb.ResolvedTargets(ctx, cand)
		if err != nil {
			return nil, err
		}
		cTags, err := nb.DocumentTags(ctx, cand)
		if err != nil {
			return nil, err
		}
		sharedLinks := intersect(targetSet, cTargets)
		sharedTags := intersect(tagSet, cTags)
		score := linkWeight*jaccard(len(sharedLinks), len(targetSet), len(cTargets)) +
			tagWeight*jaccard(len(sharedTags), len(tagSet), len(cTags))
		if score <= 0 {
			continue
		}
		out = append(out, models.SimilarEntry{
			ID:          cand,
			Score:       score,
			SharedLinks: sharedLinks,
			SharedTags:  sharedTags,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > n {
		out = out[:n]
	}
	return out, nil
}

func jaccard(shared, a, b int) float64 {
	union := a + b - shared
	if union == 0 {
		return 0
	}
	return float64(shared) / float64(union)
}

func toSet(ss []string) map[string]struct{} {
	m := make(map[string]struct{}, len(ss))
	for _, s := range ss {
		m[s] = struct{}{}
	}
	return m
}

func intersect(set map[string]struct{}, ss []string) []string {
	var out []string
	for _, s := range ss {
		if _, ok := set[s]; ok {
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}
