package utils

import (
	"fmt"
	"regexp"
)

var (
	userIDRegex       = regexp.MustCompile(`^[a-zA-Z0-9_\-]{3,64}$`)
	employeeCodeRegex = regexp.MustCompile(`^[A-Z]{2,4}-[0-9]{4,6}$`)
)

// ValidateUserID validates a portal user identifier
func ValidateUserID(userID string) error {
	if !userIDRegex.MatchString(userID) {
		return fmt.Errorf("invalid user id format: %s", userID)
	}
	return nil
}

// ValidateEmployeeCode validates an officer employee code, e.g. "ENG-10234"
func ValidateEmployeeCode(code string) error {
	if !employeeCodeRegex.MatchString(code) {
		return fmt.Errorf("invalid employee code format: %s", code)
	}
	return nil
}
