package workflow

import (
	"fmt"
)

// TransitionRule is one externally-loaded row of the transition table:
// firing Action while in From moves the application to To.
type TransitionRule struct {
	From   Status
	Action Action
	To     Status
}

// Table is a compiled transition table. It is immutable after construction
// and safe for concurrent use; machines built from it carry their own cursor.
type Table struct {
	rules []TransitionRule
	index map[Status]map[Action]Status
}

// NewTable validates and compiles a set of transition rules. Each
// (status, action) pair may have exactly one target, no rule may leave a
// terminal status, and every status and action must belong to the catalog.
func NewTable(rules []TransitionRule) (*Table, error) {
	index := make(map[Status]map[Action]Status)

	for _, r := range rules {
		if !r.From.IsValid() {
			return nil, fmt.Errorf("%w: unknown source status %q", ErrInvalidStatus, r.From)
		}
		if !r.To.IsValid() {
			return nil, fmt.Errorf("%w: unknown target status %q", ErrInvalidStatus, r.To)
		}
		if !r.Action.IsValid() {
			return nil, fmt.Errorf("unknown action %q in transition table", r.Action)
		}
		if r.From.IsTerminal() {
			return nil, fmt.Errorf("transition out of terminal status %s is not allowed", r.From)
		}

		byAction, ok := index[r.From]
		if !ok {
			byAction = make(map[Action]Status)
			index[r.From] = byAction
		}
		if existing, dup := byAction[r.Action]; dup {
			return nil, fmt.Errorf("duplicate rule (%s, %s): targets both %s and %s",
				r.From, r.Action, existing, r.To)
		}
		byAction[r.Action] = r.To
	}

	return &Table{
		rules: append([]TransitionRule{}, rules...),
		index: index,
	}, nil
}

// Target returns the target status for (from, action) if the pair is legal
func (t *Table) Target(from Status, action Action) (Status, bool) {
	byAction, ok := t.index[from]
	if !ok {
		return "", false
	}
	to, ok := byAction[action]
	return to, ok
}

// Rules returns a copy of the raw rules
func (t *Table) Rules() []TransitionRule {
	return append([]TransitionRule{}, t.rules...)
}

// Machine builds a state machine positioned at the given status
func (t *Table) Machine(current Status) (StateMachine, error) {
	if !current.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, current)
	}

	builder := NewBuilder()
	for _, r := range t.rules {
		builder.Configure(r.From).Permit(r.Action, r.To)
	}
	return builder.Build(current), nil
}

// DefaultRules returns the transition table the migrations seed. Operators
// adjust routing by editing the workflow_transitions rows, not this code.
func DefaultRules() []TransitionRule {
	return []TransitionRule{
		{StatusDraft, ActionSubmit, StatusSubmitted},
		{StatusSubmitted, ActionAssignToRole, StatusJuniorEngineerPending},

		// Junior Engineer stage: appointment, site visit, document verification
		{StatusJuniorEngineerPending, ActionScheduleAppointment, StatusAppointmentScheduled},
		{StatusJuniorEngineerPending, ActionAssignToRole, StatusJuniorEngineerReview},
		{StatusJuniorEngineerPending, ActionEscalate, StatusJuniorEngineerPending},
		{StatusJuniorEngineerPending, ActionReject, StatusJuniorEngineerRejected},
		{StatusJuniorEngineerReview, ActionScheduleAppointment, StatusAppointmentScheduled},
		{StatusJuniorEngineerReview, ActionReject, StatusJuniorEngineerRejected},
		{StatusAppointmentScheduled, ActionScheduleAppointment, StatusAppointmentScheduled},
		{StatusAppointmentScheduled, ActionCompleteAppointment, StatusAppointmentCompleted},
		{StatusAppointmentScheduled, ActionReject, StatusJuniorEngineerRejected},
		{StatusAppointmentCompleted, ActionVerifyDocument, StatusDocumentVerificationPending},
		{StatusAppointmentCompleted, ActionReject, StatusJuniorEngineerRejected},
		{StatusDocumentVerificationPending, ActionVerifyDocument, StatusDocumentVerificationDone},
		{StatusDocumentVerificationPending, ActionRejectDocument, StatusResubmissionRequired},
		{StatusDocumentVerificationPending, ActionForwardToNextRole, StatusAssistantEngineerPending},
		{StatusDocumentVerificationPending, ActionReject, StatusJuniorEngineerRejected},
		{StatusDocumentVerificationDone, ActionApprove, StatusJuniorEngineerApproved},
		{StatusDocumentVerificationDone, ActionForwardToNextRole, StatusAssistantEngineerPending},
		{StatusDocumentVerificationDone, ActionReject, StatusJuniorEngineerRejected},
		{StatusJuniorEngineerApproved, ActionForwardToNextRole, StatusAssistantEngineerPending},

		// Assistant Engineer stage
		{StatusAssistantEngineerPending, ActionAssignToRole, StatusAssistantEngineerReview},
		{StatusAssistantEngineerPending, ActionApprove, StatusAssistantEngineerApproved},
		{StatusAssistantEngineerPending, ActionReject, StatusAssistantEngineerRejected},
		{StatusAssistantEngineerPending, ActionEscalate, StatusAssistantEngineerPending},
		{StatusAssistantEngineerReview, ActionApprove, StatusAssistantEngineerApproved},
		{StatusAssistantEngineerReview, ActionReject, StatusAssistantEngineerRejected},
		{StatusAssistantEngineerApproved, ActionForwardToNextRole, StatusExecutiveEngineerPending},

		// Executive Engineer stage: review then digital signature
		{StatusExecutiveEngineerPending, ActionAssignToRole, StatusExecutiveEngineerReview},
		{StatusExecutiveEngineerPending, ActionReject, StatusExecutiveEngineerRejected},
		{StatusExecutiveEngineerPending, ActionEscalate, StatusExecutiveEngineerPending},
		{StatusExecutiveEngineerReview, ActionRequestSignature, StatusExecutiveEngineerSignaturePending},
		{StatusExecutiveEngineerReview, ActionReject, StatusExecutiveEngineerRejected},
		{StatusExecutiveEngineerSignaturePending, ActionCompleteSignature, StatusExecutiveEngineerSigned},
		{StatusExecutiveEngineerSignaturePending, ActionReject, StatusExecutiveEngineerRejected},
		{StatusExecutiveEngineerSigned, ActionApprove, StatusExecutiveEngineerApproved},
		{StatusExecutiveEngineerApproved, ActionForwardToNextRole, StatusCityEngineerPending},

		// City Engineer stage: review then digital signature
		{StatusCityEngineerPending, ActionAssignToRole, StatusCityEngineerReview},
		{StatusCityEngineerPending, ActionReject, StatusCityEngineerRejected},
		{StatusCityEngineerPending, ActionEscalate, StatusCityEngineerPending},
		{StatusCityEngineerReview, ActionRequestSignature, StatusCityEngineerSignaturePending},
		{StatusCityEngineerReview, ActionReject, StatusCityEngineerRejected},
		{StatusCityEngineerSignaturePending, ActionCompleteSignature, StatusCityEngineerSigned},
		{StatusCityEngineerSignaturePending, ActionReject, StatusCityEngineerRejected},
		{StatusCityEngineerSigned, ActionApprove, StatusCityEngineerApproved},
		{StatusCityEngineerApproved, ActionForwardToNextRole, StatusPaymentPending},

		// Payment precedes the Clerk stage
		{StatusPaymentPending, ActionRecordPayment, StatusPaymentCompleted},
		{StatusPaymentCompleted, ActionForwardToNextRole, StatusClerkPending},

		// Clerk stage and certificate issuance
		{StatusClerkPending, ActionAssignToRole, StatusClerkReview},
		{StatusClerkPending, ActionReject, StatusClerkRejected},
		{StatusClerkPending, ActionEscalate, StatusClerkPending},
		{StatusClerkReview, ActionApprove, StatusClerkApproved},
		{StatusClerkReview, ActionReject, StatusClerkRejected},
		{StatusClerkApproved, ActionApprove, StatusApproved},
		{StatusApproved, ActionForwardToNextRole, StatusCertificatePending},
		{StatusCertificatePending, ActionIssueCertificate, StatusCertificateIssued},
		{StatusCertificateIssued, ActionComplete, StatusCompleted},

		// Rejection / resubmission loop. A role rejection can be resubmitted
		// once corrected, or turned into a final rejection.
		{StatusJuniorEngineerRejected, ActionResubmit, StatusResubmissionRequired},
		{StatusJuniorEngineerRejected, ActionReject, StatusRejected},
		{StatusAssistantEngineerRejected, ActionResubmit, StatusResubmissionRequired},
		{StatusAssistantEngineerRejected, ActionReject, StatusRejected},
		{StatusExecutiveEngineerRejected, ActionResubmit, StatusResubmissionRequired},
		{StatusExecutiveEngineerRejected, ActionReject, StatusRejected},
		{StatusCityEngineerRejected, ActionResubmit, StatusResubmissionRequired},
		{StatusCityEngineerRejected, ActionReject, StatusRejected},
		{StatusClerkRejected, ActionResubmit, StatusResubmissionRequired},
		{StatusClerkRejected, ActionReject, StatusRejected},
		{StatusResubmissionRequired, ActionSubmit, StatusSubmitted},
	}
}
