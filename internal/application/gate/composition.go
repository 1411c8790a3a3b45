package gate

import (
	"context"

	"github.com/civicgrid/licensing-portal/internal/domain/entity"
	"github.com/civicgrid/licensing-portal/internal/domain/workflow"
)

// Requirement names one gate a transition must pass. SignatureGate
// requirements carry the stage whose signature must be complete.
type Requirement struct {
	Gate     Type
	RoleSlot string
}

type transitionKey struct {
	from   workflow.Status
	action workflow.Action
}

// requirements maps (status, action) pairs to the gates they must pass.
// Pairs absent from the map require no gates.
var requirements = map[transitionKey][]Requirement{
	// Completing document verification and leaving the JE stage both require
	// every required document to be approved.
	{workflow.StatusDocumentVerificationPending, workflow.ActionVerifyDocument}: {
		{Gate: DocumentGate},
	},
	{workflow.StatusDocumentVerificationPending, workflow.ActionForwardToNextRole}: {
		{Gate: DocumentGate},
	},
	{workflow.StatusDocumentVerificationDone, workflow.ActionForwardToNextRole}: {
		{Gate: DocumentGate},
		{Gate: SignatureGate, RoleSlot: entity.SlotJuniorEngineer},
	},
	{workflow.StatusJuniorEngineerApproved, workflow.ActionForwardToNextRole}: {
		{Gate: DocumentGate},
	},

	// Senior stages sign before approving and forwarding
	{workflow.StatusExecutiveEngineerSigned, workflow.ActionApprove}: {
		{Gate: SignatureGate, RoleSlot: entity.SlotExecutiveEngineer},
	},
	{workflow.StatusExecutiveEngineerApproved, workflow.ActionForwardToNextRole}: {
		{Gate: SignatureGate, RoleSlot: entity.SlotExecutiveEngineer},
	},
	{workflow.StatusCityEngineerSigned, workflow.ActionApprove}: {
		{Gate: SignatureGate, RoleSlot: entity.SlotCityEngineer},
	},
	{workflow.StatusCityEngineerApproved, workflow.ActionForwardToNextRole}: {
		{Gate: SignatureGate, RoleSlot: entity.SlotCityEngineer},
	},

	// Payment must be settled before the clerk stage begins
	{workflow.StatusPaymentPending, workflow.ActionRecordPayment}: {
		{Gate: PaymentGate},
	},
	{workflow.StatusPaymentCompleted, workflow.ActionForwardToNextRole}: {
		{Gate: PaymentGate},
	},

	// Certificate issuance requires both senior signatures
	{workflow.StatusCertificatePending, workflow.ActionIssueCertificate}: {
		{Gate: SignatureGate, RoleSlot: entity.SlotExecutiveEngineer},
		{Gate: SignatureGate, RoleSlot: entity.SlotCityEngineer},
	},
}

// RequirementsFor returns the gates a transition must pass
func RequirementsFor(from workflow.Status, action workflow.Action) []Requirement {
	return requirements[transitionKey{from: from, action: action}]
}

// Check evaluates every gate the transition requires, returning the first
// failure.
func (e *Evaluator) Check(ctx context.Context, applicationID int64, from workflow.Status, action workflow.Action) error {
	for _, req := range RequirementsFor(from, action) {
		var err error
		switch req.Gate {
		case DocumentGate:
			err = e.Document(ctx, applicationID)
		case SignatureGate:
			err = e.Signature(ctx, applicationID, req.RoleSlot)
		case PaymentGate:
			err = e.Payment(ctx, applicationID)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
