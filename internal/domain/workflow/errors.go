package workflow

import (
	"errors"
	"fmt"
)

var (
	// ErrIllegalTransition is returned when a (status, action) pair is not in the transition table
	ErrIllegalTransition = errors.New("illegal transition")

	// ErrInvalidStatus is returned when a status is not part of the catalog
	ErrInvalidStatus = errors.New("invalid status")

	// ErrGuardFailed is returned when every candidate transition's guard rejects the action
	ErrGuardFailed = errors.New("guard condition failed")
)

// IllegalTransitionError names the status an application was in and the action
// that was attempted against it.
type IllegalTransitionError struct {
	Status Status
	Action Action
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("illegal transition: action %s is not permitted in status %s", e.Action, e.Status)
}

// Unwrap lets callers match with errors.Is(err, ErrIllegalTransition)
func (e *IllegalTransitionError) Unwrap() error {
	return ErrIllegalTransition
}
