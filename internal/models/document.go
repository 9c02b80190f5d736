// Package models defines the domain types for Laguz.
package models

import "time"

// Frontmatter holds the parsed YAML frontmatter of a document: the
// recognized fields plus any additional user metadata in Extra.
type Frontmatter struct {
	Title  string         `json:"title,omitempty"`
	Date   string         `json:"date,omitempty"`
	Tags   []string       `json:"tags,omitempty"`
	Status string         `json:"status,omitempty"`
	Extra  map[string]any `json:"extra,omitempty"`
}

// DocumentMetadata is a lightweight representation returned by workspace
// list operations.
type DocumentMetadata struct {
	ID        string    `json:"id"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BacklinkEntry is one resolved incoming reference to a document.
type BacklinkEntry struct {
	Source      string `json:"source"`
	Anchor      string `json:"anchor,omitempty"`
	Occurrences int    `json:"occurrences"`
}

// BrokenLink is an explicit reference whose target resolves to no
// known document.
type BrokenLink struct {
	Source      string `json:"source"`
	Target      string `json:"target"`
	Anchor      string `json:"anchor,omitempty"`
	Occurrences int    `json:"occurrences"`
}

// SimilarEntry is a derived similarity edge. Score is in [0,1];
// SharedLinks and SharedTags name the overlapping targets and tags that
// produced it.
type SimilarEntry struct {
	ID          string   `json:"id"`
	Score       float64  `json:"score"`
	SharedLinks []string `json:"shared_links,omitempty"`
	SharedTags  []string `json:"shared_tags,omitempty"`
}

// Tag is one node of the hierarchical tag tree. Name encodes the full
// path (e.g. "project/backend"); Level is 0 for roots. UsageCount is the
// number of documents carrying the tag or any of its descendants.
type Tag struct {
	Name       string   `json:"name"`
	Parent     string   `json:"parent,omitempty"`
	Level      int      `json:"level"`
	Children   []string `json:"children,omitempty"`
	UsageCount int      `json:"usage_count"`
}

// TagPair associates one document with one tag name; slices of TagPair
// feed tag hierarchy rebuilds.
type TagPair struct {
	DocumentID string `json:"document_id"`
	Tag        string `json:"tag"`
}
