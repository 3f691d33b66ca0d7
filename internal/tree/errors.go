package tree

import "errors"

// Sentinel errors for use with errors.Is.
var (
	// ErrNotFound means a referenced node or parent does not exist or is deleted.
	ErrNotFound = errors.New("not found")
	// ErrInvalidStructural means the request would break a structural rule:
	// a url on a folder, a type change, touching the root, or a bad key.
	ErrInvalidStructural = errors.New("invalid structural change")
	// ErrQuotaExceeded means the change was applied in memory but the
	// snapshot could not be persisted.
	ErrQuotaExceeded = errors.New("snapshot not persisted")
)
