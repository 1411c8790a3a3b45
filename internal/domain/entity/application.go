package entity

import "time"

// StageDecision is the single per-stage outcome. Replacing the old
// approval/rejection boolean pair with one value makes the contradictory
// "both approved and rejected" row impossible to represent.
type StageDecision struct {
	Outcome   string     `json:"outcome"`
	Comment   string     `json:"comment,omitempty"`
	DecidedBy *int64     `json:"decided_by,omitempty"`
	DecidedAt *time.Time `json:"decided_at,omitempty"`
}

// Approved reports whether the stage was decided in the applicant's favor
func (d StageDecision) Approved() bool { return d.Outcome == DecisionApproved }

// Rejected reports whether the stage was decided against the applicant
func (d StageDecision) Rejected() bool { return d.Outcome == DecisionRejected }

// Application is the central aggregate of the licensing workflow. Officer
// assignments and relationships are held by id; related rows are resolved
// through repositories, never through an embedded object graph.
type Application struct {
	ID                int64  `json:"id"`
	ApplicationNumber string `json:"application_number"`
	ApplicantName     string `json:"applicant_name"`
	ApplicantUserID   string `json:"applicant_user_id"`
	PositionType      string `json:"position_type"`
	CurrentStatus     string `json:"current_status"`
	FeeAmount         float64 `json:"fee_amount"`

	// One assignment slot per officer role in the chain
	AssignedJuniorEngineerID    *int64 `json:"assigned_junior_engineer_id,omitempty"`
	AssignedAssistantEngineerID *int64 `json:"assigned_assistant_engineer_id,omitempty"`
	AssignedExecutiveEngineerID *int64 `json:"assigned_executive_engineer_id,omitempty"`
	AssignedCityEngineerID      *int64 `json:"assigned_city_engineer_id,omitempty"`
	AssignedClerkID             *int64 `json:"assigned_clerk_id,omitempty"`

	JuniorEngineerDecision    StageDecision `json:"junior_engineer_decision"`
	AssistantEngineerDecision StageDecision `json:"assistant_engineer_decision"`
	ExecutiveEngineerDecision StageDecision `json:"executive_engineer_decision"`
	CityEngineerDecision      StageDecision `json:"city_engineer_decision"`
	ClerkDecision             StageDecision `json:"clerk_decision"`

	// Version increments on every successful state-changing write and backs
	// the optimistic concurrency check.
	Version int64 `json:"version"`

	SubmittedAt *time.Time `json:"submitted_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// AssignedOfficerID returns the officer id currently filling the slot, if any
func (a *Application) AssignedOfficerID(slot string) *int64 {
	switch slot {
	case SlotJuniorEngineer:
		return a.AssignedJuniorEngineerID
	case SlotAssistantEngineer:
		return a.AssignedAssistantEngineerID
	case SlotExecutiveEngineer:
		return a.AssignedExecutiveEngineerID
	case SlotCityEngineer:
		return a.AssignedCityEngineerID
	case SlotClerk:
		return a.AssignedClerkID
	}
	return nil
}

// SetAssignedOfficer records the officer filling the slot
func (a *Application) SetAssignedOfficer(slot string, officerID *int64) {
	switch slot {
	case SlotJuniorEngineer:
		a.AssignedJuniorEngineerID = officerID
	case SlotAssistantEngineer:
		a.AssignedAssistantEngineerID = officerID
	case SlotExecutiveEngineer:
		a.AssignedExecutiveEngineerID = officerID
	case SlotCityEngineer:
		a.AssignedCityEngineerID = officerID
	case SlotClerk:
		a.AssignedClerkID = officerID
	}
}

// DecisionFor returns the stage decision for the slot
func (a *Application) DecisionFor(slot string) StageDecision {
	switch slot {
	case SlotJuniorEngineer:
		return a.JuniorEngineerDecision
	case SlotAssistantEngineer:
		return a.AssistantEngineerDecision
	case SlotExecutiveEngineer:
		return a.ExecutiveEngineerDecision
	case SlotCityEngineer:
		return a.CityEngineerDecision
	case SlotClerk:
		return a.ClerkDecision
	}
	return StageDecision{Outcome: DecisionNone}
}

// SetDecision records the stage decision for the slot
func (a *Application) SetDecision(slot string, d StageDecision) {
	switch slot {
	case SlotJuniorEngineer:
		a.JuniorEngineerDecision = d
	case SlotAssistantEngineer:
		a.AssistantEngineerDecision = d
	case SlotExecutiveEngineer:
		a.ExecutiveEngineerDecision = d
	case SlotCityEngineer:
		a.CityEngineerDecision = d
	case SlotClerk:
		a.ClerkDecision = d
	}
}
