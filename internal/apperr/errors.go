// Package apperr defines the error taxonomy shared across Laguz components.
package apperr

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates a query for an unknown document or tag.
// Boundary operations translate it into an empty/absent result.
var ErrNotFound = errors.New("not found")

// ParseError reports malformed document input. Parsing degrades to a
// best-effort partial parse wherever possible; a ParseError means the
// content could not be treated as text at all, and the document is
// indexed degraded instead of being dropped.
type ParseError struct {
	ID     string
	Reason string
}

func (e *ParseError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("parse: %s", e.Reason)
	}
	return fmt.Sprintf("parse %s: %s", e.ID, e.Reason)
}

// IsParseError reports whether err is (or wraps) a ParseError.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}

// StorageError reports an I/O or transaction failure in the persistent
// index. The failed transaction has been rolled back; previously
// committed state is intact.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Storage wraps err as a StorageError for operation op. Returns nil when
// err is nil so call sites can wrap unconditionally.
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}

// IsStorageError reports whether err is (or wraps) a StorageError.
func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}
