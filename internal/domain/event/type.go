package event

// Type identifies the type of domain event
type Type string

const (
	TypeApplicationCreated   Type = "application.created"
	TypeApplicationSubmitted Type = "application.submitted"
	TypeStatusChanged        Type = "application.status_changed"
	TypeApplicationApproved  Type = "application.approved"
	TypeApplicationRejected  Type = "application.rejected"
	TypeOfficerAssigned      Type = "assignment.officer_assigned"
	TypeAssignmentEscalated  Type = "assignment.escalated"
	TypeEscalationStalled    Type = "assignment.escalation_stalled"
	TypeCertificateIssued    Type = "certificate.issued"
)

// String returns the string representation of the event type
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	switch t {
	case TypeApplicationCreated,
		TypeApplicationSubmitted,
		TypeStatusChanged,
		TypeApplicationApproved,
		TypeApplicationRejected,
		TypeOfficerAssigned,
		TypeAssignmentEscalated,
		TypeEscalationStalled,
		TypeCertificateIssued:
		return true
	default:
		return false
	}
}
