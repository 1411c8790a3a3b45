package entity

import "time"

// AssignmentHistory is one immutable row of the assignment ledger. Rows are
// appended on every assignment decision and flagged inactive when superseded,
// never mutated otherwise and never deleted. The ledger is the source of
// truth for officer workload.
type AssignmentHistory struct {
	ID            int64  `json:"id"`
	ApplicationID int64  `json:"application_id"`
	RoleSlot      string `json:"role_slot"`

	PreviousOfficerID   *int64 `json:"previous_officer_id,omitempty"`
	AssignedToOfficerID int64  `json:"assigned_to_officer_id"`
	AssignedByOfficerID *int64 `json:"assigned_by_officer_id,omitempty"`

	Action               string `json:"action"`
	StrategyUsed         string `json:"strategy_used"`
	WorkloadAtAssignment int    `json:"workload_at_assignment"`

	// Exactly one active row exists per (application, role slot)
	IsActive bool `json:"is_active"`

	AssignedAt              time.Time  `json:"assigned_at"`
	AcceptedAt              *time.Time `json:"accepted_at,omitempty"`
	InactivatedAt           *time.Time `json:"inactivated_at,omitempty"`
	AssignmentDurationHours *float64   `json:"assignment_duration_hours,omitempty"`
}

// AutoAssignmentRule configures officer routing for one (position type, role
// slot) pair. The round-robin cursor advances monotonically and wraps by
// modulo over the candidate list.
type AutoAssignmentRule struct {
	ID           int64  `json:"id"`
	PositionType string `json:"position_type"`
	RoleSlot     string `json:"role_slot"`
	TargetRole   string `json:"target_role"`
	Strategy     string `json:"strategy"`

	MinExperienceYears    int `json:"min_experience_years"`
	MaxWorkloadPerOfficer int `json:"max_workload_per_officer"`
	Priority              int `json:"priority"`

	IsActive    bool       `json:"is_active"`
	ActiveFrom  *time.Time `json:"active_from,omitempty"`
	ActiveUntil *time.Time `json:"active_until,omitempty"`

	LastRoundRobinIndex int `json:"last_round_robin_index"`

	EscalationTimeHours int    `json:"escalation_time_hours"`
	EscalationRole      string `json:"escalation_role,omitempty"`

	TimesApplied  int64      `json:"times_applied"`
	LastAppliedAt *time.Time `json:"last_applied_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// InWindow reports whether the rule is active at the given instant
func (r *AutoAssignmentRule) InWindow(now time.Time) bool {
	if !r.IsActive {
		return false
	}
	if r.ActiveFrom != nil && now.Before(*r.ActiveFrom) {
		return false
	}
	if r.ActiveUntil != nil && now.After(*r.ActiveUntil) {
		return false
	}
	return true
}
