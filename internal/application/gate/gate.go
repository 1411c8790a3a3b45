// Package gate implements the precondition checks the workflow runs before a
// transition: document verification, digital signature, and payment. Gates
// are pure predicates over persisted state and have no side effects.
package gate

import (
	"context"
	"errors"
	"fmt"

	"github.com/civicgrid/licensing-portal/internal/application/port"
	"github.com/civicgrid/licensing-portal/internal/domain/entity"
)

// Type identifies a gate
type Type string

const (
	DocumentGate  Type = "DOCUMENT"
	SignatureGate Type = "SIGNATURE"
	PaymentGate   Type = "PAYMENT"
)

// ErrGateNotSatisfied is the sentinel for all gate failures
var ErrGateNotSatisfied = errors.New("gate not satisfied")

// NotSatisfiedError carries the failing gate and an actionable reason
type NotSatisfiedError struct {
	Gate   Type
	Reason string
}

func (e *NotSatisfiedError) Error() string {
	return fmt.Sprintf("gate %s not satisfied: %s", e.Gate, e.Reason)
}

// Unwrap lets callers match with errors.Is(err, ErrGateNotSatisfied)
func (e *NotSatisfiedError) Unwrap() error {
	return ErrGateNotSatisfied
}

// Evaluator evaluates gates against the repositories
type Evaluator struct {
	verifications port.DocumentVerificationRepository
	signatures    port.SignatureRepository
	payments      port.PaymentRepository
}

// NewEvaluator creates a gate evaluator
func NewEvaluator(
	verifications port.DocumentVerificationRepository,
	signatures port.SignatureRepository,
	payments port.PaymentRepository,
) *Evaluator {
	return &Evaluator{
		verifications: verifications,
		signatures:    signatures,
		payments:      payments,
	}
}

// Document is satisfied when every required verification row for the
// application has status APPROVED. Applications with no required rows pass
// vacuously.
func (e *Evaluator) Document(ctx context.Context, applicationID int64) error {
	rows, err := e.verifications.ListByApplication(ctx, applicationID)
	if err != nil {
		return fmt.Errorf("failed to load document verifications: %w", err)
	}

	for _, row := range rows {
		if !row.Required {
			continue
		}
		if row.Status != entity.VerificationApproved {
			return &NotSatisfiedError{
				Gate:   DocumentGate,
				Reason: fmt.Sprintf("document %s is %s, approval required", row.DocumentType, row.Status),
			}
		}
	}

	return nil
}

// Signature is satisfied when the stage's signature row is COMPLETED and
// verified.
func (e *Evaluator) Signature(ctx context.Context, applicationID int64, roleSlot string) error {
	sig, err := e.signatures.GetByApplicationAndSlot(ctx, applicationID, roleSlot)
	if err != nil {
		if errors.Is(err, port.ErrNotFound) {
			return &NotSatisfiedError{
				Gate:   SignatureGate,
				Reason: fmt.Sprintf("no digital signature recorded for stage %s", roleSlot),
			}
		}
		return fmt.Errorf("failed to load signature for stage %s: %w", roleSlot, err)
	}

	if sig.Status != entity.SignatureCompleted {
		return &NotSatisfiedError{
			Gate:   SignatureGate,
			Reason: fmt.Sprintf("signature for stage %s is %s", roleSlot, sig.Status),
		}
	}
	if !sig.IsVerified {
		return &NotSatisfiedError{
			Gate:   SignatureGate,
			Reason: fmt.Sprintf("signature for stage %s is not verified", roleSlot),
		}
	}

	return nil
}

// Payment is satisfied when the latest payment record has status SUCCESS and
// covers the fee amount.
func (e *Evaluator) Payment(ctx context.Context, applicationID int64) error {
	payment, err := e.payments.GetLatestByApplication(ctx, applicationID)
	if err != nil {
		if errors.Is(err, port.ErrNotFound) {
			return &NotSatisfiedError{Gate: PaymentGate, Reason: "no payment recorded"}
		}
		return fmt.Errorf("failed to load payment: %w", err)
	}

	if payment.Status != entity.PaymentSuccess {
		return &NotSatisfiedError{
			Gate:   PaymentGate,
			Reason: fmt.Sprintf("latest payment %s is %s", payment.TransactionRef, payment.Status),
		}
	}
	if payment.AmountPaid < payment.FeeAmount {
		return &NotSatisfiedError{
			Gate: PaymentGate,
			Reason: fmt.Sprintf("amount paid %.2f is below fee %.2f",
				payment.AmountPaid, payment.FeeAmount),
		}
	}

	return nil
}
