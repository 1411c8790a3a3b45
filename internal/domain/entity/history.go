package entity

import "time"

// StatusHistory is the append-only audit trail of status changes. Together
// with AssignmentHistory it makes every workflow decision replayable.
type StatusHistory struct {
	ID             int64     `json:"id"`
	ApplicationID  int64     `json:"application_id"`
	PreviousStatus string    `json:"previous_status"`
	NewStatus      string    `json:"new_status"`
	Action         string    `json:"action"`
	ActorOfficerID *int64    `json:"actor_officer_id,omitempty"`
	Comment        string    `json:"comment,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}
