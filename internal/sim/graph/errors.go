package graph

import "errors"

var (
	// ErrStaleHandle is returned for any use of a freed or never-issued handle.
	ErrStaleHandle = errors.New("stale handle")

	// ErrInvariantViolation marks a structural request that would break the
	// graph invariants. Callers log it and treat the request as a no-op.
	ErrInvariantViolation = errors.New("invariant violation")

	// ErrEditInProgress is returned by Begin while another edit is open.
	ErrEditInProgress = errors.New("structural edit already in progress")

	// ErrEditClosed is returned when an edit is used after Commit.
	ErrEditClosed = errors.New("structural edit closed")
)
