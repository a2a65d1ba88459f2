// Package sentinel holds the storage-level facts every store reports the same
// way. Stores return these, wrapped with context, and the tracking controller
// maps them onto domain error codes. Input validation uses pkg/domain-errors.
package sentinel

import "errors"

var (
	// ErrNotFound means no row or entry exists for the key.
	ErrNotFound = errors.New("not found")
	// ErrConflict means the write lost an optimistic version check or hit a
	// unique key such as a sample number or a timeline sequence.
	ErrConflict = errors.New("conflict")
	// ErrInvalidState means the write does not fit what is stored, such as a
	// timeline event that would leave a sequence gap.
	ErrInvalidState = errors.New("invalid state")
)
