package workflow

import "errors"

var (
	// ErrConcurrentModification is returned when a concurrent action on the
	// same application wins the race. Safe to retry after re-reading state.
	ErrConcurrentModification = errors.New("concurrent modification")

	// ErrValidation is returned for malformed requests rejected before the
	// state machine is consulted, such as a rejection without a comment.
	ErrValidation = errors.New("validation failed")
)
