package workflow

// Status represents an application status in the licensing approval lifecycle
type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusSubmitted Status = "SUBMITTED"

	StatusJuniorEngineerPending       Status = "JUNIOR_ENGINEER_PENDING"
	StatusJuniorEngineerReview        Status = "JUNIOR_ENGINEER_REVIEW"
	StatusAppointmentScheduled        Status = "APPOINTMENT_SCHEDULED"
	StatusAppointmentCompleted        Status = "APPOINTMENT_COMPLETED"
	StatusDocumentVerificationPending Status = "DOCUMENT_VERIFICATION_PENDING"
	StatusDocumentVerificationDone    Status = "DOCUMENT_VERIFICATION_COMPLETED"
	StatusJuniorEngineerApproved      Status = "JUNIOR_ENGINEER_APPROVED"
	StatusJuniorEngineerRejected      Status = "JUNIOR_ENGINEER_REJECTED"

	StatusAssistantEngineerPending  Status = "ASSISTANT_ENGINEER_PENDING"
	StatusAssistantEngineerReview   Status = "ASSISTANT_ENGINEER_REVIEW"
	StatusAssistantEngineerApproved Status = "ASSISTANT_ENGINEER_APPROVED"
	StatusAssistantEngineerRejected Status = "ASSISTANT_ENGINEER_REJECTED"

	StatusExecutiveEngineerPending          Status = "EXECUTIVE_ENGINEER_PENDING"
	StatusExecutiveEngineerReview           Status = "EXECUTIVE_ENGINEER_REVIEW"
	StatusExecutiveEngineerSignaturePending Status = "EXECUTIVE_ENGINEER_SIGNATURE_PENDING"
	StatusExecutiveEngineerSigned           Status = "EXECUTIVE_ENGINEER_SIGNED"
	StatusExecutiveEngineerApproved         Status = "EXECUTIVE_ENGINEER_APPROVED"
	StatusExecutiveEngineerRejected         Status = "EXECUTIVE_ENGINEER_REJECTED"

	StatusCityEngineerPending          Status = "CITY_ENGINEER_PENDING"
	StatusCityEngineerReview           Status = "CITY_ENGINEER_REVIEW"
	StatusCityEngineerSignaturePending Status = "CITY_ENGINEER_SIGNATURE_PENDING"
	StatusCityEngineerSigned           Status = "CITY_ENGINEER_SIGNED"
	StatusCityEngineerApproved         Status = "CITY_ENGINEER_APPROVED"
	StatusCityEngineerRejected         Status = "CITY_ENGINEER_REJECTED"

	StatusPaymentPending   Status = "PAYMENT_PENDING"
	StatusPaymentCompleted Status = "PAYMENT_COMPLETED"

	StatusClerkPending  Status = "CLERK_PENDING"
	StatusClerkReview   Status = "CLERK_REVIEW"
	StatusClerkApproved Status = "CLERK_APPROVED"
	StatusClerkRejected Status = "CLERK_REJECTED"

	StatusCertificatePending Status = "CERTIFICATE_PENDING"
	StatusCertificateIssued  Status = "CERTIFICATE_ISSUED"

	StatusResubmissionRequired Status = "RESUBMISSION_REQUIRED"
	StatusApproved             Status = "APPROVED"
	StatusRejected             Status = "REJECTED"
	StatusCompleted            Status = "COMPLETED"
)

var validStatuses = map[Status]bool{
	StatusDraft:                             true,
	StatusSubmitted:                         true,
	StatusJuniorEngineerPending:             true,
	StatusJuniorEngineerReview:              true,
	StatusAppointmentScheduled:              true,
	StatusAppointmentCompleted:              true,
	StatusDocumentVerificationPending:       true,
	StatusDocumentVerificationDone:          true,
	StatusJuniorEngineerApproved:            true,
	StatusJuniorEngineerRejected:            true,
	StatusAssistantEngineerPending:          true,
	StatusAssistantEngineerReview:           true,
	StatusAssistantEngineerApproved:         true,
	StatusAssistantEngineerRejected:         true,
	StatusExecutiveEngineerPending:          true,
	StatusExecutiveEngineerReview:           true,
	StatusExecutiveEngineerSignaturePending: true,
	StatusExecutiveEngineerSigned:           true,
	StatusExecutiveEngineerApproved:         true,
	StatusExecutiveEngineerRejected:         true,
	StatusCityEngineerPending:               true,
	StatusCityEngineerReview:                true,
	StatusCityEngineerSignaturePending:      true,
	StatusCityEngineerSigned:                true,
	StatusCityEngineerApproved:              true,
	StatusCityEngineerRejected:              true,
	StatusPaymentPending:                    true,
	StatusPaymentCompleted:                  true,
	StatusClerkPending:                      true,
	StatusClerkReview:                       true,
	StatusClerkApproved:                     true,
	StatusClerkRejected:                     true,
	StatusCertificatePending:                true,
	StatusCertificateIssued:                 true,
	StatusResubmissionRequired:              true,
	StatusApproved:                          true,
	StatusRejected:                          true,
	StatusCompleted:                         true,
}

var terminalStatuses = map[Status]bool{
	StatusRejected:  true,
	StatusCompleted: true,
}

// rejectionStatuses are the role-specific rejection stops. They are not
// terminal: a bounded resubmission loop leads back to SUBMITTED.
var rejectionStatuses = map[Status]bool{
	StatusJuniorEngineerRejected:    true,
	StatusAssistantEngineerRejected: true,
	StatusExecutiveEngineerRejected: true,
	StatusCityEngineerRejected:      true,
	StatusClerkRejected:             true,
}

// IsTerminal returns true if no further transitions are allowed from the status
func (s Status) IsTerminal() bool {
	return terminalStatuses[s]
}

// IsRejection returns true if the status is a role-specific rejection stop
func (s Status) IsRejection() bool {
	return rejectionStatuses[s]
}

// IsValid returns true if the status belongs to the catalog
func (s Status) IsValid() bool {
	return validStatuses[s]
}

// String returns the string representation of the status
func (s Status) String() string {
	return string(s)
}

// AllStatuses returns the full status catalog. The slice is a copy.
func AllStatuses() []Status {
	out := make([]Status, 0, len(validStatuses))
	for s := range validStatuses {
		out = append(out, s)
	}
	return out
}
