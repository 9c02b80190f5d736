// Package storage defines the read-only workspace file-system abstraction.
// The engine never writes user documents; the shell owns file edits.
package storage

import "github.com/starford/laguz/internal/models"

// Provider is the interface for workspace file access.
type Provider interface {
	// List returns metadata for every matching .md file under dir
	// (relative to the workspace root), honoring the configured
	// include/exclude rules.
	List(dir string) ([]models.DocumentMetadata, error)
	// Read returns the raw bytes of the file at path (relative to the
	// workspace root).
	Read(path string) ([]byte, error)
	// Tracks reports whether path (relative to the workspace root) is a
	// file this provider would index.
	Tracks(path string) bool
}
