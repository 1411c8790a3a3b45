package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/civicgrid/licensing-portal/internal/application/assignment"
	"github.com/civicgrid/licensing-portal/internal/application/dispatcher"
	"github.com/civicgrid/licensing-portal/internal/application/gate"
	"github.com/civicgrid/licensing-portal/internal/application/port"
	"github.com/civicgrid/licensing-portal/internal/domain/entity"
	"github.com/civicgrid/licensing-portal/internal/domain/event"
	domainwf "github.com/civicgrid/licensing-portal/internal/domain/workflow"
)

// Deps bundles the orchestrator's collaborators
type Deps struct {
	Table         *domainwf.Table
	Applications  port.ApplicationRepository
	StatusHistory port.StatusHistoryRepository
	Verifications port.DocumentVerificationRepository
	Signatures    port.SignatureRepository
	Appointments  port.AppointmentRepository
	Payments      port.PaymentRepository
	Rules         port.AssignmentRuleRepository
	Gates         *gate.Evaluator
	Assigner      *assignment.Engine
	DocStore      port.DocumentStore
	SignatureSvc  port.SignatureService
	PaymentGW     port.PaymentGateway
	Notifier      port.Notifier
	TxManager     port.TransactionManager
	Dispatcher    dispatcher.Dispatcher
	Logger        *zap.Logger
}

type orchestrator struct {
	Deps

	// Per-application locks. TryLock semantics: a concurrent caller loses
	// immediately with ErrConcurrentModification instead of queueing.
	mu    sync.Mutex
	locks map[int64]*sync.Mutex

	now func() time.Time
}

// NewOrchestrator creates the workflow orchestrator
func NewOrchestrator(deps Deps) Orchestrator {
	return &orchestrator{
		Deps:  deps,
		locks: make(map[int64]*sync.Mutex),
		now:   time.Now,
	}
}

func (o *orchestrator) lockFor(applicationID int64) *sync.Mutex {
	o.mu.Lock()
	defer o.mu.Unlock()

	lock, ok := o.locks[applicationID]
	if !ok {
		lock = &sync.Mutex{}
		o.locks[applicationID] = lock
	}
	return lock
}

func failResult(status domainwf.Status, err error) *ActionResult {
	return &ActionResult{
		Success:   false,
		NewStatus: status,
		Errors:    []string{err.Error()},
	}
}

func (o *orchestrator) ExecuteAction(ctx context.Context, req ActionRequest) (*ActionResult, error) {
	if !req.Action.IsValid() {
		err := fmt.Errorf("%w: unknown action %q", ErrValidation, req.Action)
		return failResult("", err), err
	}

	// Rejection comments are validated at the boundary, before the state
	// machine is ever consulted.
	if req.Action == domainwf.ActionReject || req.Action == domainwf.ActionRejectDocument {
		if strings.TrimSpace(req.Comment) == "" {
			err := fmt.Errorf("%w: action %s requires a non-empty comment", ErrValidation, req.Action)
			return failResult("", err), err
		}
	}

	lock := o.lockFor(req.ApplicationID)
	if !lock.TryLock() {
		err := fmt.Errorf("%w: application %d is being modified", ErrConcurrentModification, req.ApplicationID)
		return failResult("", err), err
	}
	defer lock.Unlock()

	app, err := o.Applications.GetByID(ctx, req.ApplicationID)
	if err != nil {
		return failResult("", err), err
	}

	current := domainwf.Status(app.CurrentStatus)
	target, ok := o.Table.Target(current, req.Action)
	if !ok {
		err := &domainwf.IllegalTransitionError{Status: current, Action: req.Action}
		return failResult(current, err), err
	}

	// The slot being (re)assigned keeps its pool lock for the whole
	// transaction: releasing before commit would let a concurrent assignment
	// on the same pool read a ledger missing the uncommitted append.
	lockSlot := enteredSlot(target)
	if req.Action == domainwf.ActionEscalate {
		lockSlot = slotOf(current)
	}
	if lockSlot != "" {
		lockedCtx, release, lockErr := o.Assigner.LockPool(ctx, lockSlot)
		if lockErr != nil {
			return failResult(current, lockErr), lockErr
		}
		defer release()
		ctx = lockedCtx
	}

	expectedVersion := app.Version
	var assignedRow *entity.AssignmentHistory

	err = o.TxManager.WithTransaction(ctx, func(txCtx context.Context) error {
		// Recording side effects first: signature polls and payment lookups
		// persist the rows the gates then read.
		if err := o.applyEffects(txCtx, app, current, req); err != nil {
			return err
		}

		if err := o.Gates.Check(txCtx, app.ID, current, req.Action); err != nil {
			return err
		}

		// Assignment is synchronous with the status change: the target
		// stage's officer is selected before the new status lands, so an
		// application is never forwarded but unassigned.
		if slot := enteredSlot(target); slot != "" {
			row, err := o.Assigner.Assign(txCtx, assignment.Request{
				ApplicationID:    app.ID,
				PositionType:     app.PositionType,
				RoleSlot:         slot,
				StrategyOverride: req.StrategyOverride,
				ManualOfficerID:  req.ManualOfficerID,
				AssignedBy:       req.ActorOfficerID,
			})
			if err != nil {
				return err
			}
			assignedRow = row
			app.SetAssignedOfficer(slot, &row.AssignedToOfficerID)
		}

		if req.Action == domainwf.ActionEscalate {
			row, err := o.escalate(txCtx, app, current, req)
			if err != nil {
				return err
			}
			assignedRow = row
		}

		app.CurrentStatus = target.String()
		if err := o.Applications.Update(txCtx, app, expectedVersion); err != nil {
			if errors.Is(err, port.ErrVersionConflict) {
				return fmt.Errorf("%w: application %d changed underneath this action", ErrConcurrentModification, app.ID)
			}
			return err
		}

		return o.StatusHistory.Append(txCtx, &entity.StatusHistory{
			ApplicationID:  app.ID,
			PreviousStatus: current.String(),
			NewStatus:      target.String(),
			Action:         req.Action.String(),
			ActorOfficerID: req.ActorOfficerID,
			Comment:        req.Comment,
			Timestamp:      o.now(),
		})
	})
	if err != nil {
		if errors.Is(err, port.ErrBusy) {
			err = fmt.Errorf("%w: storage write contention on application %d", ErrConcurrentModification, app.ID)
		}
		return failResult(current, err), err
	}

	o.emitEvents(ctx, app, current, target, req, assignedRow)
	o.notify(ctx, app, target)

	return &ActionResult{
		Success:    true,
		NewStatus:  target,
		NextAction: nextActionHint(o.Table, target),
	}, nil
}

func (o *orchestrator) CurrentStatus(ctx context.Context, applicationID int64) (domainwf.Status, error) {
	app, err := o.Applications.GetByID(ctx, applicationID)
	if err != nil {
		return "", err
	}
	return domainwf.Status(app.CurrentStatus), nil
}

func (o *orchestrator) PermittedActions(ctx context.Context, applicationID int64) ([]domainwf.Action, error) {
	status, err := o.CurrentStatus(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	machine, err := o.Table.Machine(status)
	if err != nil {
		return nil, err
	}
	return machine.PermittedActions(), nil
}

// applyEffects performs the per-action side effects that precede the gate
// check and status write. Everything runs inside the surrounding transaction.
func (o *orchestrator) applyEffects(ctx context.Context, app *entity.Application, current domainwf.Status, req ActionRequest) error {
	now := o.now()

	switch req.Action {
	case domainwf.ActionSubmit:
		if app.SubmittedAt == nil {
			app.SubmittedAt = &now
		}
		// Resubmission clears the rejecting stage's decision; approvals and
		// signatures from earlier stages stay intact.
		for _, slot := range entity.AllSlots {
			if app.DecisionFor(slot).Rejected() {
				app.SetDecision(slot, entity.StageDecision{Outcome: entity.DecisionNone})
			}
		}

	case domainwf.ActionAssignToRole:
		// Within a stage this is the officer picking the file up for review
		if enteredSlot(o.mustTarget(current, req.Action)) == "" && req.ActorOfficerID != nil {
			if slot := slotOf(current); slot != "" {
				if err := o.Assigner.Accept(ctx, app.ID, slot, *req.ActorOfficerID); err != nil {
					return err
				}
			}
		}

	case domainwf.ActionScheduleAppointment:
		return o.scheduleAppointment(ctx, app, req, now)

	case domainwf.ActionCompleteAppointment:
		return o.completeAppointment(ctx, app, now)

	case domainwf.ActionVerifyDocument:
		return o.verifyDocuments(ctx, app, req)

	case domainwf.ActionRejectDocument:
		return o.flagDocumentsForResubmission(ctx, app, req)

	case domainwf.ActionRequestSignature:
		return o.requestSignature(ctx, app, current, req, now)

	case domainwf.ActionCompleteSignature:
		return o.completeSignature(ctx, app, current, req, now)

	case domainwf.ActionRecordPayment:
		return o.recordPayment(ctx, app, now)

	case domainwf.ActionApprove:
		if slot := slotOf(current); slot != "" {
			app.SetDecision(slot, entity.StageDecision{
				Outcome:   entity.DecisionApproved,
				Comment:   req.Comment,
				DecidedBy: req.ActorOfficerID,
				DecidedAt: &now,
			})
		}

	case domainwf.ActionReject:
		if slot := slotOf(current); slot != "" {
			app.SetDecision(slot, entity.StageDecision{
				Outcome:   entity.DecisionRejected,
				Comment:   req.Comment,
				DecidedBy: req.ActorOfficerID,
				DecidedAt: &now,
			})
		}

	case domainwf.ActionComplete:
		app.CompletedAt = &now
	}

	return nil
}

// mustTarget re-resolves the target; callers already validated the pair
func (o *orchestrator) mustTarget(current domainwf.Status, action domainwf.Action) domainwf.Status {
	target, _ := o.Table.Target(current, action)
	return target
}

func (o *orchestrator) scheduleAppointment(ctx context.Context, app *entity.Application, req ActionRequest, now time.Time) error {
	if req.AppointmentAt == nil {
		return fmt.Errorf("%w: SCHEDULE_APPOINTMENT requires appointment_at", ErrValidation)
	}

	officerID := req.ActorOfficerID
	if officerID == nil {
		officerID = app.AssignedOfficerID(entity.SlotJuniorEngineer)
	}
	if officerID == nil {
		return fmt.Errorf("%w: no officer available to hold the appointment", ErrValidation)
	}

	appt := &entity.Appointment{
		ApplicationID: app.ID,
		OfficerID:     *officerID,
		ScheduledFor:  *req.AppointmentAt,
		Status:        entity.AppointmentScheduled,
		Notes:         req.Comment,
	}

	// A still-open slot becomes the reschedule source
	previous, err := o.latestAppointment(ctx, app.ID, entity.AppointmentScheduled)
	if err != nil {
		return err
	}
	if previous != nil {
		appt.RescheduledFromID = &previous.ID
	}

	if err := o.Appointments.Create(ctx, appt); err != nil {
		return fmt.Errorf("failed to create appointment: %w", err)
	}

	if previous != nil {
		if err := o.Appointments.UpdateStatus(ctx, previous.ID, entity.AppointmentCancelled, nil); err != nil {
			return fmt.Errorf("failed to cancel rescheduled appointment: %w", err)
		}
		if err := o.Appointments.LinkReschedule(ctx, previous.ID, appt.ID); err != nil {
			return fmt.Errorf("failed to link reschedule: %w", err)
		}
	}

	return nil
}

func (o *orchestrator) completeAppointment(ctx context.Context, app *entity.Application, now time.Time) error {
	appt, err := o.latestAppointment(ctx, app.ID, entity.AppointmentScheduled)
	if err != nil {
		return err
	}
	if appt == nil {
		return fmt.Errorf("%w: no scheduled appointment to complete", ErrValidation)
	}
	return o.Appointments.UpdateStatus(ctx, appt.ID, entity.AppointmentCompleted, &now)
}

func (o *orchestrator) latestAppointment(ctx context.Context, applicationID int64, status string) (*entity.Appointment, error) {
	appts, err := o.Appointments.ListByApplication(ctx, applicationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	for i := len(appts) - 1; i >= 0; i-- {
		if appts[i].Status == status {
			return appts[i], nil
		}
	}
	return nil, nil
}

// verifyDocuments polls the document store for every row not yet approved
// and persists the returned status. The document gate then reads the
// refreshed rows inside the same transaction, mirroring the signature poll.
func (o *orchestrator) verifyDocuments(ctx context.Context, app *entity.Application, req ActionRequest) error {
	rows, err := o.Verifications.ListByApplication(ctx, app.ID)
	if err != nil {
		return fmt.Errorf("failed to list document verifications: %w", err)
	}

	for _, row := range rows {
		if row.Status == entity.VerificationApproved || row.DocumentRef == "" {
			continue
		}
		status, err := o.DocStore.GetVerificationStatus(ctx, row.DocumentRef)
		if err != nil {
			return fmt.Errorf("document status poll failed: %w", err)
		}
		if status == row.Status {
			continue
		}
		if err := o.Verifications.UpdateStatus(ctx, row.ID, status, req.Comment, req.ActorOfficerID); err != nil {
			return fmt.Errorf("failed to update document %d: %w", row.ID, err)
		}
	}
	return nil
}

func (o *orchestrator) flagDocumentsForResubmission(ctx context.Context, app *entity.Application, req ActionRequest) error {
	rows, err := o.Verifications.ListByApplication(ctx, app.ID)
	if err != nil {
		return fmt.Errorf("failed to list document verifications: %w", err)
	}
	for _, row := range rows {
		if !row.Required || row.Status == entity.VerificationApproved {
			continue
		}
		if err := o.Verifications.UpdateStatus(ctx, row.ID, entity.VerificationRequiresResubmission, req.Comment, req.ActorOfficerID); err != nil {
			return fmt.Errorf("failed to flag document %d: %w", row.ID, err)
		}
	}
	return nil
}

func (o *orchestrator) requestSignature(ctx context.Context, app *entity.Application, current domainwf.Status, req ActionRequest, now time.Time) error {
	slot := slotOf(current)
	ack, err := o.SignatureSvc.RequestSignature(ctx, app.ID, slot, req.DocumentRef)
	if err != nil {
		return fmt.Errorf("signature service request failed: %w", err)
	}

	sig, err := o.Signatures.GetByApplicationAndSlot(ctx, app.ID, slot)
	if err != nil && !errors.Is(err, port.ErrNotFound) {
		return fmt.Errorf("failed to load signature record: %w", err)
	}
	if sig == nil {
		sig = &entity.DigitalSignature{
			ApplicationID: app.ID,
			RoleSlot:      slot,
		}
	}

	sig.SignatureRef = ack.SignatureID
	sig.DocumentRef = req.DocumentRef
	sig.Status = entity.SignatureRequested
	sig.RequestedAt = &now

	if sig.ID == 0 {
		return o.Signatures.Create(ctx, sig)
	}
	return o.Signatures.Update(ctx, sig)
}

func (o *orchestrator) completeSignature(ctx context.Context, app *entity.Application, current domainwf.Status, req ActionRequest, now time.Time) error {
	slot := slotOf(current)
	sig, err := o.Signatures.GetByApplicationAndSlot(ctx, app.ID, slot)
	if err != nil {
		if errors.Is(err, port.ErrNotFound) {
			return &gate.NotSatisfiedError{
				Gate:   gate.SignatureGate,
				Reason: fmt.Sprintf("no signature was requested for stage %s", slot),
			}
		}
		return fmt.Errorf("failed to load signature record: %w", err)
	}

	status, err := o.SignatureSvc.GetSignatureStatus(ctx, sig.SignatureRef)
	if err != nil {
		return fmt.Errorf("signature status poll failed: %w", err)
	}

	if status.Status != entity.SignatureCompleted || !status.IsVerified {
		return &gate.NotSatisfiedError{
			Gate:   gate.SignatureGate,
			Reason: fmt.Sprintf("HSM reports signature %s as %s (verified=%t)", sig.SignatureRef, status.Status, status.IsVerified),
		}
	}

	sig.Status = entity.SignatureCompleted
	sig.IsVerified = true
	sig.SignedBy = req.ActorOfficerID
	sig.SignedAt = &now
	return o.Signatures.Update(ctx, sig)
}

func (o *orchestrator) recordPayment(ctx context.Context, app *entity.Application, now time.Time) error {
	status, err := o.PaymentGW.GetPaymentStatus(ctx, app.ID)
	if err != nil {
		return fmt.Errorf("payment gateway query failed: %w", err)
	}

	record := &entity.PaymentRecord{
		ApplicationID:  app.ID,
		TransactionRef: "TXN-" + uuid.NewString(),
		AmountPaid:     status.AmountPaid,
		FeeAmount:      app.FeeAmount,
	}
	if status.IsComplete && status.AmountPaid >= app.FeeAmount {
		record.Status = entity.PaymentSuccess
		record.PaidAt = &now
	} else {
		record.Status = entity.PaymentPending
	}

	return o.Payments.Create(ctx, record)
}

// escalate reassigns the current stage's slot, relaxing the workload cap
// when the pool is empty. A pool that stays empty raises a standing alert
// and the escalation fails without touching the application.
func (o *orchestrator) escalate(ctx context.Context, app *entity.Application, current domainwf.Status, req ActionRequest) (*entity.AssignmentHistory, error) {
	slot := slotOf(current)
	if slot == "" {
		return nil, fmt.Errorf("%w: status %s has no stage to escalate", ErrValidation, current)
	}

	escalationRole := ""
	rule, err := o.Rules.GetByPositionAndSlot(ctx, app.PositionType, slot)
	if err == nil && rule.EscalationRole != "" {
		escalationRole = rule.EscalationRole
	} else if err != nil && !errors.Is(err, port.ErrNotFound) {
		return nil, fmt.Errorf("failed to load assignment rule: %w", err)
	}

	base := assignment.Request{
		ApplicationID:      app.ID,
		PositionType:       app.PositionType,
		RoleSlot:           slot,
		AssignedBy:         req.ActorOfficerID,
		Action:             entity.AssignmentReassigned,
		TargetRoleOverride: escalationRole,
	}

	row, err := o.Assigner.Assign(ctx, base)
	if errors.Is(err, assignment.ErrNoEligibleOfficer) {
		relaxed := base
		relaxed.RelaxWorkload = true
		row, err = o.Assigner.Assign(ctx, relaxed)
	}
	if err != nil {
		if errors.Is(err, assignment.ErrNoEligibleOfficer) && o.Dispatcher != nil {
			o.Dispatcher.DispatchAsync(ctx, event.NewEvent(event.TypeEscalationStalled, app.ID, map[string]interface{}{
				"role_slot": slot,
				"reason":    err.Error(),
			}))
		}
		return nil, err
	}

	app.SetAssignedOfficer(slot, &row.AssignedToOfficerID)
	return row, nil
}

func (o *orchestrator) emitEvents(ctx context.Context, app *entity.Application, previous, target domainwf.Status, req ActionRequest, assigned *entity.AssignmentHistory) {
	if o.Dispatcher == nil {
		return
	}

	statusEvt := event.NewEvent(event.TypeStatusChanged, app.ID, map[string]interface{}{
		"previous_status": previous.String(),
		"new_status":      target.String(),
		"action":          req.Action.String(),
	})
	o.Dispatcher.DispatchAsync(ctx, statusEvt)

	if assigned != nil {
		o.Dispatcher.DispatchAsync(ctx, event.NewEventWithCorrelation(event.TypeOfficerAssigned, app.ID, map[string]interface{}{
			"role_slot":  assigned.RoleSlot,
			"officer_id": assigned.AssignedToOfficerID,
			"strategy":   assigned.StrategyUsed,
			"action":     assigned.Action,
		}, statusEvt.CorrelationID))
	}

	switch {
	case req.Action == domainwf.ActionEscalate:
		o.Dispatcher.DispatchAsync(ctx, event.NewEventWithCorrelation(event.TypeAssignmentEscalated, app.ID, map[string]interface{}{
			"role_slot": slotOf(previous),
		}, statusEvt.CorrelationID))
	case target == domainwf.StatusApproved:
		o.Dispatcher.DispatchAsync(ctx, event.NewEventWithCorrelation(event.TypeApplicationApproved, app.ID, nil, statusEvt.CorrelationID))
	case target == domainwf.StatusRejected || target.IsRejection():
		o.Dispatcher.DispatchAsync(ctx, event.NewEventWithCorrelation(event.TypeApplicationRejected, app.ID, map[string]interface{}{
			"comment": req.Comment,
		}, statusEvt.CorrelationID))
	case target == domainwf.StatusCertificateIssued:
		o.Dispatcher.DispatchAsync(ctx, event.NewEventWithCorrelation(event.TypeCertificateIssued, app.ID, nil, statusEvt.CorrelationID))
	}
}

// notify is fire-and-forget: a delivery failure is logged and never rolls
// back the transition that triggered it.
func (o *orchestrator) notify(ctx context.Context, app *entity.Application, target domainwf.Status) {
	if o.Notifier == nil || app.ApplicantUserID == "" {
		return
	}

	if err := o.Notifier.Notify(ctx, app.ApplicantUserID, "status_changed", map[string]interface{}{
		"application_number": app.ApplicationNumber,
		"status":             target.String(),
	}); err != nil {
		o.Logger.Warn("Notification delivery failed",
			zap.Int64("application_id", app.ID),
			zap.Error(err))
	}
}
