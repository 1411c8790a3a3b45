package assignment

import "errors"

var (
	// ErrNoEligibleOfficer is returned when the candidate pool is empty after
	// rule filtering
	ErrNoEligibleOfficer = errors.New("no eligible officer")

	// ErrInvalidAssignmentTarget is returned when a manual assignment names an
	// inactive or wrong-role officer
	ErrInvalidAssignmentTarget = errors.New("invalid assignment target")
)
