package workflow

// Action represents an operation that can drive a status transition
type Action string

const (
	ActionSubmit              Action = "SUBMIT"
	ActionAssignToRole        Action = "ASSIGN_TO_ROLE"
	ActionScheduleAppointment Action = "SCHEDULE_APPOINTMENT"
	ActionCompleteAppointment Action = "COMPLETE_APPOINTMENT"
	ActionVerifyDocument      Action = "VERIFY_DOCUMENT"
	ActionRejectDocument      Action = "REJECT_DOCUMENT"
	ActionRequestSignature    Action = "REQUEST_SIGNATURE"
	ActionCompleteSignature   Action = "COMPLETE_SIGNATURE"
	ActionApprove             Action = "APPROVE"
	ActionReject              Action = "REJECT"
	ActionRecordPayment       Action = "RECORD_PAYMENT"
	ActionForwardToNextRole   Action = "FORWARD_TO_NEXT_ROLE"
	ActionIssueCertificate    Action = "ISSUE_CERTIFICATE"
	ActionEscalate            Action = "ESCALATE"
	ActionResubmit            Action = "RESUBMIT"
	ActionComplete            Action = "COMPLETE"
)

var validActions = map[Action]bool{
	ActionSubmit:              true,
	ActionAssignToRole:        true,
	ActionScheduleAppointment: true,
	ActionCompleteAppointment: true,
	ActionVerifyDocument:      true,
	ActionRejectDocument:      true,
	ActionRequestSignature:    true,
	ActionCompleteSignature:   true,
	ActionApprove:             true,
	ActionReject:              true,
	ActionRecordPayment:       true,
	ActionForwardToNextRole:   true,
	ActionIssueCertificate:    true,
	ActionEscalate:            true,
	ActionResubmit:            true,
	ActionComplete:            true,
}

// IsValid returns true if the action belongs to the closed action set
func (a Action) IsValid() bool {
	return validActions[a]
}

// String returns the string representation of the action
func (a Action) String() string {
	return string(a)
}
