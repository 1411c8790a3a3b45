package workflow

import "context"

// StateMachine tracks the current status of one application and validates
// every attempted transition against the configured table.
type StateMachine interface {
	// Status returns the current status
	Status() Status

	// CanFire returns true if the action is permitted in the current status
	CanFire(action Action) bool

	// Fire attempts to execute the action, transitioning to the new status if allowed
	Fire(ctx context.Context, action Action) error

	// PermittedActions returns all actions that can be fired in the current status
	PermittedActions() []Action
}
