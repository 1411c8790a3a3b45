package workflow

import (
	"github.com/civicgrid/licensing-portal/internal/domain/entity"
	domainwf "github.com/civicgrid/licensing-portal/internal/domain/workflow"
)

// stageSlots maps every stage status to the role slot whose officer owns it
var stageSlots = map[domainwf.Status]string{
	domainwf.StatusJuniorEngineerPending:       entity.SlotJuniorEngineer,
	domainwf.StatusJuniorEngineerReview:        entity.SlotJuniorEngineer,
	domainwf.StatusAppointmentScheduled:        entity.SlotJuniorEngineer,
	domainwf.StatusAppointmentCompleted:        entity.SlotJuniorEngineer,
	domainwf.StatusDocumentVerificationPending: entity.SlotJuniorEngineer,
	domainwf.StatusDocumentVerificationDone:    entity.SlotJuniorEngineer,
	domainwf.StatusJuniorEngineerApproved:      entity.SlotJuniorEngineer,
	domainwf.StatusJuniorEngineerRejected:      entity.SlotJuniorEngineer,

	domainwf.StatusAssistantEngineerPending:  entity.SlotAssistantEngineer,
	domainwf.StatusAssistantEngineerReview:   entity.SlotAssistantEngineer,
	domainwf.StatusAssistantEngineerApproved: entity.SlotAssistantEngineer,
	domainwf.StatusAssistantEngineerRejected: entity.SlotAssistantEngineer,

	domainwf.StatusExecutiveEngineerPending:          entity.SlotExecutiveEngineer,
	domainwf.StatusExecutiveEngineerReview:           entity.SlotExecutiveEngineer,
	domainwf.StatusExecutiveEngineerSignaturePending: entity.SlotExecutiveEngineer,
	domainwf.StatusExecutiveEngineerSigned:           entity.SlotExecutiveEngineer,
	domainwf.StatusExecutiveEngineerApproved:         entity.SlotExecutiveEngineer,
	domainwf.StatusExecutiveEngineerRejected:         entity.SlotExecutiveEngineer,

	domainwf.StatusCityEngineerPending:          entity.SlotCityEngineer,
	domainwf.StatusCityEngineerReview:           entity.SlotCityEngineer,
	domainwf.StatusCityEngineerSignaturePending: entity.SlotCityEngineer,
	domainwf.StatusCityEngineerSigned:           entity.SlotCityEngineer,
	domainwf.StatusCityEngineerApproved:         entity.SlotCityEngineer,
	domainwf.StatusCityEngineerRejected:         entity.SlotCityEngineer,

	domainwf.StatusClerkPending:  entity.SlotClerk,
	domainwf.StatusClerkReview:   entity.SlotClerk,
	domainwf.StatusClerkApproved: entity.SlotClerk,
	domainwf.StatusClerkRejected: entity.SlotClerk,
}

// entrySlots maps the statuses that open a stage to the slot that must be
// assigned before the status change lands.
var entrySlots = map[domainwf.Status]string{
	domainwf.StatusJuniorEngineerPending:    entity.SlotJuniorEngineer,
	domainwf.StatusAssistantEngineerPending: entity.SlotAssistantEngineer,
	domainwf.StatusExecutiveEngineerPending: entity.SlotExecutiveEngineer,
	domainwf.StatusCityEngineerPending:      entity.SlotCityEngineer,
	domainwf.StatusClerkPending:             entity.SlotClerk,
}

// slotOf returns the role slot owning a stage status, or "" for statuses
// outside the officer chain.
func slotOf(status domainwf.Status) string {
	return stageSlots[status]
}

// enteredSlot returns the slot a transition into status must assign
func enteredSlot(status domainwf.Status) string {
	return entrySlots[status]
}

// nextActionOrder ranks actions for the next-action hint: the usual forward
// path first, administrative moves last.
var nextActionOrder = []domainwf.Action{
	domainwf.ActionSubmit,
	domainwf.ActionScheduleAppointment,
	domainwf.ActionCompleteAppointment,
	domainwf.ActionVerifyDocument,
	domainwf.ActionRequestSignature,
	domainwf.ActionCompleteSignature,
	domainwf.ActionRecordPayment,
	domainwf.ActionApprove,
	domainwf.ActionForwardToNextRole,
	domainwf.ActionIssueCertificate,
	domainwf.ActionComplete,
	domainwf.ActionResubmit,
	domainwf.ActionAssignToRole,
	domainwf.ActionRejectDocument,
	domainwf.ActionReject,
	domainwf.ActionEscalate,
}

// nextActionHint picks the most likely follow-up action for a status
func nextActionHint(table *domainwf.Table, status domainwf.Status) domainwf.Action {
	for _, action := range nextActionOrder {
		if _, ok := table.Target(status, action); ok {
			return action
		}
	}
	return ""
}
