package entity

// Officer role constants. Junior and assistant grades carry a specialization;
// the senior chain and the clerk do not.
const (
	RoleJuniorEngineerCivil      = "JE_CIVIL"
	RoleJuniorEngineerElectrical = "JE_ELECTRICAL"
	RoleJuniorEngineerStructural = "JE_STRUCTURAL"
	RoleJuniorEngineerFire       = "JE_FIRE"
	RoleJuniorEngineerPlumbing   = "JE_PLUMBING"

	RoleAssistantEngineerCivil      = "AE_CIVIL"
	RoleAssistantEngineerArchitect  = "AE_ARCHITECT"
	RoleAssistantEngineerElectrical = "AE_ELECTRICAL"
	RoleAssistantEngineerStructural = "AE_STRUCTURAL"

	RoleExecutiveEngineer = "EXECUTIVE_ENGINEER"
	RoleCityEngineer      = "CITY_ENGINEER"
	RoleClerk             = "CLERK"
	RoleAdmin             = "ADMIN"
)

// Role slot constants: one active assignment per slot per application
const (
	SlotJuniorEngineer    = "JE"
	SlotAssistantEngineer = "AE"
	SlotExecutiveEngineer = "EE"
	SlotCityEngineer      = "CE"
	SlotClerk             = "CLERK"
)

// AllSlots lists the role slots in chain order
var AllSlots = []string{
	SlotJuniorEngineer,
	SlotAssistantEngineer,
	SlotExecutiveEngineer,
	SlotCityEngineer,
	SlotClerk,
}

// Assignment strategy constants
const (
	StrategyRoundRobin    = "ROUND_ROBIN"
	StrategyWorkloadBased = "WORKLOAD_BASED"
	StrategyPriorityBased = "PRIORITY_BASED"
	StrategySkillBased    = "SKILL_BASED"
	StrategyManual        = "MANUAL"
)

// Assignment action constants
const (
	AssignmentAutoAssigned     = "AUTO_ASSIGNED"
	AssignmentManuallyAssigned = "MANUALLY_ASSIGNED"
	AssignmentReassigned       = "REASSIGNED"
	AssignmentUnassigned       = "UNASSIGNED"
	AssignmentTransferred      = "TRANSFERRED"
)

// Stage decision outcome constants. A stage holds exactly one outcome, so the
// approved-and-rejected-simultaneously state is unrepresentable.
const (
	DecisionNone     = "NONE"
	DecisionApproved = "APPROVED"
	DecisionRejected = "REJECTED"
)

// Document verification status constants
const (
	VerificationPending              = "PENDING"
	VerificationInProgress           = "IN_PROGRESS"
	VerificationApproved             = "APPROVED"
	VerificationRejected             = "REJECTED"
	VerificationRequiresResubmission = "REQUIRES_RESUBMISSION"
)

// Digital signature status constants
const (
	SignaturePending   = "PENDING"
	SignatureRequested = "REQUESTED"
	SignatureCompleted = "COMPLETED"
	SignatureFailed    = "FAILED"
)

// Appointment status constants
const (
	AppointmentScheduled = "SCHEDULED"
	AppointmentCompleted = "COMPLETED"
	AppointmentCancelled = "CANCELLED"
	AppointmentNoShow    = "NO_SHOW"
)

// Payment status constants
const (
	PaymentPending = "PENDING"
	PaymentSuccess = "SUCCESS"
	PaymentFailed  = "FAILED"
)

// Position type constants for license applications
const (
	PositionStructuralEngineer = "STRUCTURAL_ENGINEER"
	PositionArchitect          = "ARCHITECT"
	PositionLicensedSurveyor   = "LICENSED_SURVEYOR"
	PositionSiteSupervisor     = "SITE_SUPERVISOR"
	PositionPlumber            = "LICENSED_PLUMBER"
)

// rolesBySlot maps a role slot to the officer roles eligible for it
var rolesBySlot = map[string][]string{
	SlotJuniorEngineer: {
		RoleJuniorEngineerCivil,
		RoleJuniorEngineerElectrical,
		RoleJuniorEngineerStructural,
		RoleJuniorEngineerFire,
		RoleJuniorEngineerPlumbing,
	},
	SlotAssistantEngineer: {
		RoleAssistantEngineerCivil,
		RoleAssistantEngineerArchitect,
		RoleAssistantEngineerElectrical,
		RoleAssistantEngineerStructural,
	},
	SlotExecutiveEngineer: {RoleExecutiveEngineer},
	SlotCityEngineer:      {RoleCityEngineer},
	SlotClerk:             {RoleClerk},
}

// RolesForSlot returns the officer roles that may fill the given slot
func RolesForSlot(slot string) []string {
	return append([]string{}, rolesBySlot[slot]...)
}

// RoleEligibleForSlot reports whether an officer role may fill the slot
func RoleEligibleForSlot(role, slot string) bool {
	for _, r := range rolesBySlot[slot] {
		if r == role {
			return true
		}
	}
	return false
}

// ValidSlot reports whether the slot name is known
func ValidSlot(slot string) bool {
	_, ok := rolesBySlot[slot]
	return ok
}
