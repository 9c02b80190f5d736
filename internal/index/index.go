package index

import (
	"context"

	"github.com/starford/laguz/internal/models"
)

// DocumentIndex is the read/write surface the engine and boundary
// adapters use. *DB is the only implementation; the interface exists so
// tests can substitute failures.
type DocumentIndex interface {
	UpsertDocument(ctx context.Context, d DocumentRow, body string, links []LinkRow, tags []string) error
	DeleteDocument(ctx context.Context, id string) error
	GetDocument(ctx context.Context, id string) (*DocumentRow, error)
	ListDocuments(ctx context.Context, f ListFilter) ([]DocumentRow, int, error)
	Search(ctx context.Context, query string, limit int) ([]SearchResult, error)

	Backlinks(ctx context.Context, id string) ([]models.BacklinkEntry, error)
	BrokenLinks(ctx context.Context) ([]models.BrokenLink, error)
	Orphaned(ctx context.Context) ([]string, error)
	ResolvedTargets(ctx context.Context, source string) ([]string, error)
	DocumentTags(ctx context.Context, id string) ([]string, error)
	SimilarityCandidates(ctx context.Context, targets, tags []string, exclude string) ([]string, error)

	GetChecksum(ctx context.Context, id string) (string, error)
	AllChecksums(ctx context.Context) (map[string]string, error)
	AllDocuments(ctx context.Context) ([]DocumentRef, error)
	DocumentTagPairs(ctx context.Context) ([]models.TagPair, error)

	Close() error
}

var _ DocumentIndex = (*DB)(nil)
