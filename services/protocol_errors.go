package services

import "errors"

var (
	// ErrNotFound is returned when a protocol application does not exist.
	ErrNotFound = errors.New("protocol application not found")
	// ErrInvalidTransition signals an action that is not legal from the current status.
	ErrInvalidTransition = errors.New("invalid transition")
	// ErrMissingComment signals an absent or blank comment on an action that requires one.
	ErrMissingComment = errors.New("comment is required")
	// ErrUnknownReviewer signals a reviewer id outside the active reviewer pool.
	ErrUnknownReviewer = errors.New("unknown reviewer")
	// ErrDuplicateReviewer signals a secondary reviewer equal to the primary.
	ErrDuplicateReviewer = errors.New("duplicate reviewer")
	// ErrInvalidReviewType signals a review type outside the fixed set.
	ErrInvalidReviewType = errors.New("invalid review type")
	// ErrConcurrentModification signals a lost compare-and-set; re-read and retry.
	ErrConcurrentModification = errors.New("concurrent modification")
	// ErrActorNotPermitted signals an actor that may not perform the action.
	ErrActorNotPermitted = errors.New("actor not permitted")
	// ErrInvalidInput signals a malformed creation request.
	ErrInvalidInput = errors.New("invalid input")
)
