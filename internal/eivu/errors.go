package eivu

import (
	"errors"
	"fmt"

	"eivu-go/internal/model"
)

var (
	// ErrInvalidTransition is returned when a file is asked to move out of a
	// state that does not permit the requested event. Re-fetch and retry.
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrDuplicateContent is returned when the content hash is already
	// present in the bucket. Treat as "already ingested".
	ErrDuplicateContent = errors.New("duplicate content")

	// ErrFolderConflict is returned when a concurrent folder creation on the
	// same (bucket, ancestry, name) could not be resolved. Retry the resolve.
	ErrFolderConflict = errors.New("folder conflict")

	// ErrRemoteGateway wraps every failure reported by the object store.
	ErrRemoteGateway = errors.New("remote gateway error")

	// ErrMissingRegion is returned for remote-key operations on a bucket
	// with no configured endpoint.
	ErrMissingRegion = errors.New("bucket has no region")

	// ErrCountDrift is returned when a decrement would take a folder's
	// cached files_count below zero. The count is clamped at zero and
	// Recount repairs it.
	ErrCountDrift = errors.New("folder count drift")

	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
)

// TransitionError describes a rejected lifecycle event.
type TransitionError struct {
	FileID string
	Event  Event
	From   model.FileState
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s file %s from state %q", e.Event, e.FileID, e.From)
}

func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}
