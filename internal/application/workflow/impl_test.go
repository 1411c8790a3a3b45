package workflow

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/civicgrid/licensing-portal/internal/application/assignment"
	"github.com/civicgrid/licensing-portal/internal/application/gate"
	"github.com/civicgrid/licensing-portal/internal/application/port"
	"github.com/civicgrid/licensing-portal/internal/domain/entity"
	domainwf "github.com/civicgrid/licensing-portal/internal/domain/workflow"
)

type fakeApplicationRepo struct {
	apps      map[int64]*entity.Application
	updateErr error
	getHook   func()
}

func (f *fakeApplicationRepo) Create(ctx context.Context, app *entity.Application) error {
	f.apps[app.ID] = app
	return nil
}

func (f *fakeApplicationRepo) GetByID(ctx context.Context, id int64) (*entity.Application, error) {
	if f.getHook != nil {
		f.getHook()
	}
	app, ok := f.apps[id]
	if !ok {
		return nil, port.ErrNotFound
	}
	copied := *app
	return &copied, nil
}

func (f *fakeApplicationRepo) GetByNumber(ctx context.Context, number string) (*entity.Application, error) {
	for _, app := range f.apps {
		if app.ApplicationNumber == number {
			copied := *app
			return &copied, nil
		}
	}
	return nil, port.ErrNotFound
}

func (f *fakeApplicationRepo) List(ctx context.Context, limit, offset int) ([]*entity.Application, error) {
	var out []*entity.Application
	for _, app := range f.apps {
		out = append(out, app)
	}
	return out, nil
}

func (f *fakeApplicationRepo) ListByStatus(ctx context.Context, status string, limit int) ([]*entity.Application, error) {
	var out []*entity.Application
	for _, app := range f.apps {
		if app.CurrentStatus == status {
			out = append(out, app)
		}
	}
	return out, nil
}

func (f *fakeApplicationRepo) Update(ctx context.Context, app *entity.Application, expectedVersion int64) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	stored, ok := f.apps[app.ID]
	if !ok {
		return port.ErrNotFound
	}
	if stored.Version != expectedVersion {
		return port.ErrVersionConflict
	}
	copied := *app
	copied.Version = expectedVersion + 1
	f.apps[app.ID] = &copied
	app.Version = copied.Version
	return nil
}

type fakeStatusHistoryRepo struct {
	rows []*entity.StatusHistory
}

func (f *fakeStatusHistoryRepo) Append(ctx context.Context, row *entity.StatusHistory) error {
	row.ID = int64(len(f.rows) + 1)
	f.rows = append(f.rows, row)
	return nil
}

func (f *fakeStatusHistoryRepo) ListByApplication(ctx context.Context, applicationID int64) ([]*entity.StatusHistory, error) {
	var out []*entity.StatusHistory
	for _, r := range f.rows {
		if r.ApplicationID == applicationID {
			out = append(out, r)
		}
	}
	return out, nil
}

type fakeVerificationRepo struct {
	rows []*entity.DocumentVerification
}

func (f *fakeVerificationRepo) Create(ctx context.Context, dv *entity.DocumentVerification) error {
	dv.ID = int64(len(f.rows) + 1)
	f.rows = append(f.rows, dv)
	return nil
}

func (f *fakeVerificationRepo) GetByID(ctx context.Context, id int64) (*entity.DocumentVerification, error) {
	for _, r := range f.rows {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, port.ErrNotFound
}

func (f *fakeVerificationRepo) ListByApplication(ctx context.Context, applicationID int64) ([]*entity.DocumentVerification, error) {
	var out []*entity.DocumentVerification
	for _, r := range f.rows {
		if r.ApplicationID == applicationID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeVerificationRepo) UpdateStatus(ctx context.Context, id int64, status, remarks string, verifiedBy *int64) error {
	for _, r := range f.rows {
		if r.ID == id {
			r.Status = status
			r.Remarks = remarks
			r.VerifiedBy = verifiedBy
			return nil
		}
	}
	return port.ErrNotFound
}

type fakeSignatureRepo struct {
	rows []*entity.DigitalSignature
}

func (f *fakeSignatureRepo) Create(ctx context.Context, sig *entity.DigitalSignature) error {
	sig.ID = int64(len(f.rows) + 1)
	f.rows = append(f.rows, sig)
	return nil
}

func (f *fakeSignatureRepo) GetByApplicationAndSlot(ctx context.Context, applicationID int64, roleSlot string) (*entity.DigitalSignature, error) {
	for _, r := range f.rows {
		if r.ApplicationID == applicationID && r.RoleSlot == roleSlot {
			return r, nil
		}
	}
	return nil, port.ErrNotFound
}

func (f *fakeSignatureRepo) ListByApplication(ctx context.Context, applicationID int64) ([]*entity.DigitalSignature, error) {
	var out []*entity.DigitalSignature
	for _, r := range f.rows {
		if r.ApplicationID == applicationID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeSignatureRepo) Update(ctx context.Context, sig *entity.DigitalSignature) error {
	for i, r := range f.rows {
		if r.ID == sig.ID {
			f.rows[i] = sig
			return nil
		}
	}
	return port.ErrNotFound
}

type fakeAppointmentRepo struct {
	rows []*entity.Appointment
}

func (f *fakeAppointmentRepo) Create(ctx context.Context, appt *entity.Appointment) error {
	appt.ID = int64(len(f.rows) + 1)
	f.rows = append(f.rows, appt)
	return nil
}

func (f *fakeAppointmentRepo) GetByID(ctx context.Context, id int64) (*entity.Appointment, error) {
	for _, r := range f.rows {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, port.ErrNotFound
}

func (f *fakeAppointmentRepo) ListByApplication(ctx context.Context, applicationID int64) ([]*entity.Appointment, error) {
	var out []*entity.Appointment
	for _, r := range f.rows {
		if r.ApplicationID == applicationID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeAppointmentRepo) UpdateStatus(ctx context.Context, id int64, status string, completedAt *time.Time) error {
	for _, r := range f.rows {
		if r.ID == id {
			r.Status = status
			r.CompletedAt = completedAt
			return nil
		}
	}
	return port.ErrNotFound
}

func (f *fakeAppointmentRepo) LinkReschedule(ctx context.Context, fromID, toID int64) error {
	for _, r := range f.rows {
		if r.ID == fromID {
			r.RescheduledToID = &toID
		}
		if r.ID == toID {
			r.RescheduledFromID = &fromID
		}
	}
	return nil
}

type fakePaymentRepo struct {
	rows []*entity.PaymentRecord
}

func (f *fakePaymentRepo) Create(ctx context.Context, payment *entity.PaymentRecord) error {
	payment.ID = int64(len(f.rows) + 1)
	f.rows = append(f.rows, payment)
	return nil
}

func (f *fakePaymentRepo) GetLatestByApplication(ctx context.Context, applicationID int64) (*entity.PaymentRecord, error) {
	var latest *entity.PaymentRecord
	for _, r := range f.rows {
		if r.ApplicationID == applicationID {
			latest = r
		}
	}
	if latest == nil {
		return nil, port.ErrNotFound
	}
	return latest, nil
}

func (f *fakePaymentRepo) ListByApplication(ctx context.Context, applicationID int64) ([]*entity.PaymentRecord, error) {
	var out []*entity.PaymentRecord
	for _, r := range f.rows {
		if r.ApplicationID == applicationID {
			out = append(out, r)
		}
	}
	return out, nil
}

type fakeRuleRepo struct {
	rules map[string]*entity.AutoAssignmentRule
}

func (f *fakeRuleRepo) Create(ctx context.Context, rule *entity.AutoAssignmentRule) error {
	f.rules[rule.PositionType+"/"+rule.RoleSlot] = rule
	return nil
}

func (f *fakeRuleRepo) GetByPositionAndSlot(ctx context.Context, positionType, roleSlot string) (*entity.AutoAssignmentRule, error) {
	rule, ok := f.rules[positionType+"/"+roleSlot]
	if !ok {
		return nil, port.ErrNotFound
	}
	return rule, nil
}

func (f *fakeRuleRepo) List(ctx context.Context) ([]*entity.AutoAssignmentRule, error) {
	var out []*entity.AutoAssignmentRule
	for _, r := range f.rules {
		out = append(out, r)
	}
	return out, nil
}

func (f *fakeRuleRepo) RecordApplied(ctx context.Context, id int64, lastRoundRobinIndex int, appliedAt time.Time) error {
	for _, r := range f.rules {
		if r.ID == id {
			r.LastRoundRobinIndex = lastRoundRobinIndex
			r.TimesApplied++
			r.LastAppliedAt = &appliedAt
			return nil
		}
	}
	return port.ErrNotFound
}

type fakeOfficerRepo struct {
	officers map[int64]*entity.Officer
}

func (f *fakeOfficerRepo) Create(ctx context.Context, officer *entity.Officer) error {
	f.officers[officer.ID] = officer
	return nil
}

func (f *fakeOfficerRepo) GetByID(ctx context.Context, id int64) (*entity.Officer, error) {
	o, ok := f.officers[id]
	if !ok {
		return nil, port.ErrNotFound
	}
	return o, nil
}

func (f *fakeOfficerRepo) GetActiveByRoles(ctx context.Context, roles []string) ([]*entity.Officer, error) {
	wanted := make(map[string]bool, len(roles))
	for _, r := range roles {
		wanted[r] = true
	}
	var out []*entity.Officer
	for _, o := range f.officers {
		if o.IsActive && wanted[o.Role] {
			out = append(out, o)
		}
	}
	return out, nil
}

func (f *fakeOfficerRepo) Update(ctx context.Context, officer *entity.Officer) error {
	f.officers[officer.ID] = officer
	return nil
}

func (f *fakeOfficerRepo) SetActive(ctx context.Context, id int64, active bool) error {
	o, ok := f.officers[id]
	if !ok {
		return port.ErrNotFound
	}
	o.IsActive = active
	return nil
}

type fakeLedger struct {
	rows   []*entity.AssignmentHistory
	nextID int64
}

func (f *fakeLedger) Append(ctx context.Context, row *entity.AssignmentHistory) error {
	f.nextID++
	row.ID = f.nextID
	f.rows = append(f.rows, row)
	return nil
}

func (f *fakeLedger) GetByID(ctx context.Context, id int64) (*entity.AssignmentHistory, error) {
	for _, r := range f.rows {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, port.ErrNotFound
}

func (f *fakeLedger) GetActive(ctx context.Context, applicationID int64, roleSlot string) (*entity.AssignmentHistory, error) {
	for _, r := range f.rows {
		if r.ApplicationID == applicationID && r.RoleSlot == roleSlot && r.IsActive {
			return r, nil
		}
	}
	return nil, port.ErrNotFound
}

func (f *fakeLedger) ListByApplication(ctx context.Context, applicationID int64) ([]*entity.AssignmentHistory, error) {
	var out []*entity.AssignmentHistory
	for _, r := range f.rows {
		if r.ApplicationID == applicationID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeLedger) ListAll(ctx context.Context, limit, offset int) ([]*entity.AssignmentHistory, error) {
	return f.rows, nil
}

func (f *fakeLedger) Inactivate(ctx context.Context, id int64, at time.Time, durationHours float64) error {
	for _, r := range f.rows {
		if r.ID == id && r.IsActive {
			r.IsActive = false
			r.InactivatedAt = &at
			r.AssignmentDurationHours = &durationHours
			return nil
		}
	}
	return port.ErrNotFound
}

func (f *fakeLedger) MarkAccepted(ctx context.Context, id int64, at time.Time) error {
	for _, r := range f.rows {
		if r.ID == id {
			r.AcceptedAt = &at
			return nil
		}
	}
	return port.ErrNotFound
}

func (f *fakeLedger) CountActiveByOfficer(ctx context.Context, officerID int64) (int, error) {
	count := 0
	for _, r := range f.rows {
		if r.AssignedToOfficerID == officerID && r.IsActive {
			count++
		}
	}
	return count, nil
}

func (f *fakeLedger) CountActiveByOfficers(ctx context.Context, officerIDs []int64) (map[int64]int, error) {
	out := make(map[int64]int, len(officerIDs))
	for _, id := range officerIDs {
		n, _ := f.CountActiveByOfficer(ctx, id)
		out[id] = n
	}
	return out, nil
}

func (f *fakeLedger) ListStaleActive(ctx context.Context, before time.Time) ([]*entity.AssignmentHistory, error) {
	var out []*entity.AssignmentHistory
	for _, r := range f.rows {
		if r.IsActive && r.AcceptedAt == nil && r.AssignedAt.Before(before) {
			out = append(out, r)
		}
	}
	return out, nil
}

type fakeDocumentStore struct {
	statuses map[string]string
	err      error
}

func (f *fakeDocumentStore) GetVerificationStatus(ctx context.Context, documentRef string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if status, ok := f.statuses[documentRef]; ok {
		return status, nil
	}
	return entity.VerificationPending, nil
}

type fakeSignatureService struct {
	status *port.SignatureStatus
	err    error
}

func (f *fakeSignatureService) RequestSignature(ctx context.Context, applicationID int64, roleSlot, documentRef string) (*port.SignatureRequest, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &port.SignatureRequest{SignatureID: "SIG-1", Status: entity.SignatureRequested}, nil
}

func (f *fakeSignatureService) GetSignatureStatus(ctx context.Context, signatureID string) (*port.SignatureStatus, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.status == nil {
		return &port.SignatureStatus{Status: entity.SignatureRequested}, nil
	}
	return f.status, nil
}

type fakePaymentGateway struct {
	status *port.PaymentStatus
	err    error
}

func (f *fakePaymentGateway) GetPaymentStatus(ctx context.Context, applicationID int64) (*port.PaymentStatus, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.status == nil {
		return &port.PaymentStatus{}, nil
	}
	return f.status, nil
}

type fakeNotifier struct {
	delivered []string
}

func (f *fakeNotifier) Notify(ctx context.Context, userID, notificationType string, payload map[string]interface{}) error {
	f.delivered = append(f.delivered, notificationType)
	return nil
}

type passthroughTxManager struct {
	err error
}

func (f *passthroughTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if f.err != nil {
		return f.err
	}
	return fn(ctx)
}

type fixture struct {
	orchestrator  Orchestrator
	apps          *fakeApplicationRepo
	statusHistory *fakeStatusHistoryRepo
	verifications *fakeVerificationRepo
	signatures    *fakeSignatureRepo
	appointments  *fakeAppointmentRepo
	payments      *fakePaymentRepo
	rules         *fakeRuleRepo
	officers      *fakeOfficerRepo
	ledger        *fakeLedger
	docStore      *fakeDocumentStore
	signatureSvc  *fakeSignatureService
	paymentGW     *fakePaymentGateway
	notifier      *fakeNotifier
	engine        *assignment.Engine
	tx            *passthroughTxManager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	table, err := domainwf.NewTable(domainwf.DefaultRules())
	require.NoError(t, err)

	f := &fixture{
		apps:          &fakeApplicationRepo{apps: map[int64]*entity.Application{}},
		statusHistory: &fakeStatusHistoryRepo{},
		verifications: &fakeVerificationRepo{},
		signatures:    &fakeSignatureRepo{},
		appointments:  &fakeAppointmentRepo{},
		payments:      &fakePaymentRepo{},
		rules:         &fakeRuleRepo{rules: map[string]*entity.AutoAssignmentRule{}},
		officers:      &fakeOfficerRepo{officers: map[int64]*entity.Officer{}},
		ledger:        &fakeLedger{},
		docStore:      &fakeDocumentStore{statuses: map[string]string{}},
		signatureSvc:  &fakeSignatureService{},
		paymentGW:     &fakePaymentGateway{},
		notifier:      &fakeNotifier{},
		tx:            &passthroughTxManager{},
	}

	for _, o := range []*entity.Officer{
		{ID: 1, EmployeeCode: "ENG-10001", Role: entity.RoleJuniorEngineerCivil, ExperienceYears: 5, IsActive: true},
		{ID: 2, EmployeeCode: "ENG-10002", Role: entity.RoleJuniorEngineerCivil, ExperienceYears: 8, IsActive: true},
		{ID: 3, EmployeeCode: "ENG-20001", Role: entity.RoleAssistantEngineerCivil, ExperienceYears: 10, IsActive: true},
		{ID: 4, EmployeeCode: "ENG-30001", Role: entity.RoleExecutiveEngineer, ExperienceYears: 15, IsActive: true},
		{ID: 5, EmployeeCode: "ENG-40001", Role: entity.RoleCityEngineer, ExperienceYears: 20, IsActive: true},
		{ID: 6, EmployeeCode: "CLK-50001", Role: entity.RoleClerk, ExperienceYears: 4, IsActive: true},
	} {
		f.officers.officers[o.ID] = o
	}

	logger := zap.NewNop()

	f.engine = assignment.NewEngine(f.officers, f.ledger, f.rules, f.tx, logger)
	gates := gate.NewEvaluator(f.verifications, f.signatures, f.payments)

	f.orchestrator = NewOrchestrator(Deps{
		Table:         table,
		Applications:  f.apps,
		StatusHistory: f.statusHistory,
		Verifications: f.verifications,
		Signatures:    f.signatures,
		Appointments:  f.appointments,
		Payments:      f.payments,
		Rules:         f.rules,
		Gates:         gates,
		Assigner:      f.engine,
		DocStore:      f.docStore,
		SignatureSvc:  f.signatureSvc,
		PaymentGW:     f.paymentGW,
		Notifier:      f.notifier,
		TxManager:     f.tx,
		Logger:        logger,
	})

	return f
}

func (f *fixture) seedApplication(status domainwf.Status) *entity.Application {
	app := &entity.Application{
		ID:                1,
		ApplicationNumber: "LIC-2026-000001",
		ApplicantName:     "R. Deshmukh",
		ApplicantUserID:   "rdeshmukh_42",
		PositionType:      entity.PositionStructuralEngineer,
		CurrentStatus:     status.String(),
		FeeAmount:         500,
		Version:           3,
	}
	f.apps.apps[app.ID] = app
	return app
}

func TestOrchestrator_ExecuteAction_Submit(t *testing.T) {
	f := newFixture(t)
	f.seedApplication(domainwf.StatusDraft)

	result, err := f.orchestrator.ExecuteAction(context.Background(), ActionRequest{
		ApplicationID: 1,
		Action:        domainwf.ActionSubmit,
	})
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, domainwf.StatusSubmitted, result.NewStatus)
	assert.Equal(t, domainwf.ActionAssignToRole, result.NextAction)

	stored := f.apps.apps[1]
	assert.Equal(t, domainwf.StatusSubmitted.String(), stored.CurrentStatus)
	assert.Equal(t, int64(4), stored.Version)
	assert.NotNil(t, stored.SubmittedAt)

	require.Len(t, f.statusHistory.rows, 1)
	row := f.statusHistory.rows[0]
	assert.Equal(t, domainwf.StatusDraft.String(), row.PreviousStatus)
	assert.Equal(t, domainwf.StatusSubmitted.String(), row.NewStatus)
	assert.Equal(t, domainwf.ActionSubmit.String(), row.Action)

	assert.Equal(t, []string{"status_changed"}, f.notifier.delivered)
}

func TestOrchestrator_ExecuteAction_AssignsOnStageEntry(t *testing.T) {
	f := newFixture(t)
	f.seedApplication(domainwf.StatusSubmitted)

	result, err := f.orchestrator.ExecuteAction(context.Background(), ActionRequest{
		ApplicationID: 1,
		Action:        domainwf.ActionAssignToRole,
	})
	require.NoError(t, err)
	assert.Equal(t, domainwf.StatusJuniorEngineerPending, result.NewStatus)

	stored := f.apps.apps[1]
	require.NotNil(t, stored.AssignedJuniorEngineerID)

	active, err := f.ledger.GetActive(context.Background(), 1, entity.SlotJuniorEngineer)
	require.NoError(t, err)
	assert.Equal(t, *stored.AssignedJuniorEngineerID, active.AssignedToOfficerID)
	assert.Equal(t, entity.AssignmentAutoAssigned, active.Action)
}

func TestOrchestrator_ExecuteAction_RejectRequiresComment(t *testing.T) {
	f := newFixture(t)
	f.seedApplication(domainwf.StatusJuniorEngineerReview)

	result, err := f.orchestrator.ExecuteAction(context.Background(), ActionRequest{
		ApplicationID: 1,
		Action:        domainwf.ActionReject,
		Comment:       "   ",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidation)
	assert.False(t, result.Success)
	assert.NotEmpty(t, result.Errors)

	// Nothing was written
	assert.Equal(t, domainwf.StatusJuniorEngineerReview.String(), f.apps.apps[1].CurrentStatus)
	assert.Empty(t, f.statusHistory.rows)
}

func TestOrchestrator_ExecuteAction_RejectRecordsDecision(t *testing.T) {
	f := newFixture(t)
	f.seedApplication(domainwf.StatusJuniorEngineerReview)
	actor := int64(1)

	result, err := f.orchestrator.ExecuteAction(context.Background(), ActionRequest{
		ApplicationID:  1,
		Action:         domainwf.ActionReject,
		ActorOfficerID: &actor,
		Comment:        "structural drawings missing load calculations",
	})
	require.NoError(t, err)
	assert.Equal(t, domainwf.StatusJuniorEngineerRejected, result.NewStatus)

	stored := f.apps.apps[1]
	assert.True(t, stored.JuniorEngineerDecision.Rejected())
	assert.Equal(t, "structural drawings missing load calculations", stored.JuniorEngineerDecision.Comment)
	require.NotNil(t, stored.JuniorEngineerDecision.DecidedBy)
	assert.Equal(t, actor, *stored.JuniorEngineerDecision.DecidedBy)
}

func TestOrchestrator_ExecuteAction_ResubmitClearsRejectedDecision(t *testing.T) {
	f := newFixture(t)
	app := f.seedApplication(domainwf.StatusResubmissionRequired)
	decidedAt := time.Now()
	actor := int64(1)
	app.JuniorEngineerDecision = entity.StageDecision{
		Outcome:   entity.DecisionRejected,
		Comment:   "incomplete",
		DecidedBy: &actor,
		DecidedAt: &decidedAt,
	}
	app.AssistantEngineerDecision = entity.StageDecision{Outcome: entity.DecisionApproved}

	result, err := f.orchestrator.ExecuteAction(context.Background(), ActionRequest{
		ApplicationID: 1,
		Action:        domainwf.ActionSubmit,
	})
	require.NoError(t, err)
	assert.Equal(t, domainwf.StatusSubmitted, result.NewStatus)

	stored := f.apps.apps[1]
	assert.Equal(t, entity.DecisionNone, stored.JuniorEngineerDecision.Outcome)
	// Earlier approvals survive a resubmission
	assert.True(t, stored.AssistantEngineerDecision.Approved())
}

func TestOrchestrator_ExecuteAction_IllegalTransition(t *testing.T) {
	f := newFixture(t)
	f.seedApplication(domainwf.StatusDraft)

	result, err := f.orchestrator.ExecuteAction(context.Background(), ActionRequest{
		ApplicationID: 1,
		Action:        domainwf.ActionIssueCertificate,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domainwf.ErrIllegalTransition)
	assert.False(t, result.Success)
	assert.Equal(t, domainwf.StatusDraft, result.NewStatus)
	assert.Empty(t, f.statusHistory.rows)
}

func TestOrchestrator_ExecuteAction_GateBlocksForward(t *testing.T) {
	f := newFixture(t)
	f.seedApplication(domainwf.StatusPaymentCompleted)

	// No payment row exists, so the payment gate fails and the status is untouched
	result, err := f.orchestrator.ExecuteAction(context.Background(), ActionRequest{
		ApplicationID: 1,
		Action:        domainwf.ActionForwardToNextRole,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, gate.ErrGateNotSatisfied)
	assert.False(t, result.Success)
	assert.Equal(t, domainwf.StatusPaymentCompleted.String(), f.apps.apps[1].CurrentStatus)
	assert.Equal(t, int64(3), f.apps.apps[1].Version)
}

func TestOrchestrator_ExecuteAction_VersionConflict(t *testing.T) {
	f := newFixture(t)
	f.seedApplication(domainwf.StatusDraft)
	f.apps.updateErr = port.ErrVersionConflict

	_, err := f.orchestrator.ExecuteAction(context.Background(), ActionRequest{
		ApplicationID: 1,
		Action:        domainwf.ActionSubmit,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConcurrentModification)
}

func TestOrchestrator_ExecuteAction_ConcurrentCallerLoses(t *testing.T) {
	f := newFixture(t)
	f.seedApplication(domainwf.StatusDraft)

	entered := make(chan struct{})
	release := make(chan struct{})
	var once bool
	f.apps.getHook = func() {
		if !once {
			once = true
			close(entered)
			<-release
		}
	}

	firstDone := make(chan error, 1)
	go func() {
		_, err := f.orchestrator.ExecuteAction(context.Background(), ActionRequest{
			ApplicationID: 1,
			Action:        domainwf.ActionSubmit,
		})
		firstDone <- err
	}()

	<-entered

	// The second caller fails fast instead of queueing behind the lock
	_, err := f.orchestrator.ExecuteAction(context.Background(), ActionRequest{
		ApplicationID: 1,
		Action:        domainwf.ActionSubmit,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConcurrentModification)

	close(release)
	require.NoError(t, <-firstDone)
	assert.Equal(t, domainwf.StatusSubmitted.String(), f.apps.apps[1].CurrentStatus)
}

func TestOrchestrator_ExecuteAction_RecordPayment(t *testing.T) {
	f := newFixture(t)
	f.seedApplication(domainwf.StatusPaymentPending)
	f.paymentGW.status = &port.PaymentStatus{IsComplete: true, AmountPaid: 500}

	result, err := f.orchestrator.ExecuteAction(context.Background(), ActionRequest{
		ApplicationID: 1,
		Action:        domainwf.ActionRecordPayment,
	})
	require.NoError(t, err)
	assert.Equal(t, domainwf.StatusPaymentCompleted, result.NewStatus)

	require.Len(t, f.payments.rows, 1)
	record := f.payments.rows[0]
	assert.Equal(t, entity.PaymentSuccess, record.Status)
	assert.Equal(t, 500.0, record.AmountPaid)
	assert.NotNil(t, record.PaidAt)
}

func TestOrchestrator_ExecuteAction_RecordPayment_Incomplete(t *testing.T) {
	f := newFixture(t)
	f.seedApplication(domainwf.StatusPaymentPending)
	f.paymentGW.status = &port.PaymentStatus{IsComplete: false, AmountPaid: 0}

	// The gateway reports nothing settled: a PENDING row is written and the
	// payment gate blocks the transition.
	_, err := f.orchestrator.ExecuteAction(context.Background(), ActionRequest{
		ApplicationID: 1,
		Action:        domainwf.ActionRecordPayment,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, gate.ErrGateNotSatisfied)
	assert.Equal(t, domainwf.StatusPaymentPending.String(), f.apps.apps[1].CurrentStatus)
}

func TestOrchestrator_ExecuteAction_SignatureRoundTrip(t *testing.T) {
	f := newFixture(t)
	f.seedApplication(domainwf.StatusExecutiveEngineerReview)
	actor := int64(4)

	result, err := f.orchestrator.ExecuteAction(context.Background(), ActionRequest{
		ApplicationID:  1,
		Action:         domainwf.ActionRequestSignature,
		ActorOfficerID: &actor,
		DocumentRef:    "DOC-77",
	})
	require.NoError(t, err)
	assert.Equal(t, domainwf.StatusExecutiveEngineerSignaturePending, result.NewStatus)

	sig, err := f.signatures.GetByApplicationAndSlot(context.Background(), 1, entity.SlotExecutiveEngineer)
	require.NoError(t, err)
	assert.Equal(t, entity.SignatureRequested, sig.Status)
	assert.Equal(t, "SIG-1", sig.SignatureRef)

	// HSM still processing: completion is refused
	_, err = f.orchestrator.ExecuteAction(context.Background(), ActionRequest{
		ApplicationID:  1,
		Action:         domainwf.ActionCompleteSignature,
		ActorOfficerID: &actor,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, gate.ErrGateNotSatisfied)

	// HSM done: completion lands and the record is verified
	f.signatureSvc.status = &port.SignatureStatus{Status: entity.SignatureCompleted, IsVerified: true}
	result, err = f.orchestrator.ExecuteAction(context.Background(), ActionRequest{
		ApplicationID:  1,
		Action:         domainwf.ActionCompleteSignature,
		ActorOfficerID: &actor,
	})
	require.NoError(t, err)
	assert.Equal(t, domainwf.StatusExecutiveEngineerSigned, result.NewStatus)

	sig, err = f.signatures.GetByApplicationAndSlot(context.Background(), 1, entity.SlotExecutiveEngineer)
	require.NoError(t, err)
	assert.Equal(t, entity.SignatureCompleted, sig.Status)
	assert.True(t, sig.IsVerified)
	require.NotNil(t, sig.SignedBy)
	assert.Equal(t, actor, *sig.SignedBy)
}

func TestOrchestrator_ExecuteAction_ScheduleAndReschedule(t *testing.T) {
	f := newFixture(t)
	app := f.seedApplication(domainwf.StatusJuniorEngineerPending)
	officerID := int64(1)
	app.AssignedJuniorEngineerID = &officerID

	first := time.Now().Add(48 * time.Hour)
	result, err := f.orchestrator.ExecuteAction(context.Background(), ActionRequest{
		ApplicationID: 1,
		Action:        domainwf.ActionScheduleAppointment,
		AppointmentAt: &first,
	})
	require.NoError(t, err)
	assert.Equal(t, domainwf.StatusAppointmentScheduled, result.NewStatus)

	// Rescheduling cancels the open slot and links the two rows
	second := time.Now().Add(96 * time.Hour)
	_, err = f.orchestrator.ExecuteAction(context.Background(), ActionRequest{
		ApplicationID: 1,
		Action:        domainwf.ActionScheduleAppointment,
		AppointmentAt: &second,
	})
	require.NoError(t, err)

	require.Len(t, f.appointments.rows, 2)
	old, replacement := f.appointments.rows[0], f.appointments.rows[1]
	assert.Equal(t, entity.AppointmentCancelled, old.Status)
	require.NotNil(t, old.RescheduledToID)
	assert.Equal(t, replacement.ID, *old.RescheduledToID)
	require.NotNil(t, replacement.RescheduledFromID)
	assert.Equal(t, old.ID, *replacement.RescheduledFromID)
	assert.Equal(t, entity.AppointmentScheduled, replacement.Status)
}

func TestOrchestrator_ExecuteAction_ScheduleRequiresTime(t *testing.T) {
	f := newFixture(t)
	f.seedApplication(domainwf.StatusJuniorEngineerPending)

	_, err := f.orchestrator.ExecuteAction(context.Background(), ActionRequest{
		ApplicationID: 1,
		Action:        domainwf.ActionScheduleAppointment,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestOrchestrator_ExecuteAction_MissingApplication(t *testing.T) {
	f := newFixture(t)

	_, err := f.orchestrator.ExecuteAction(context.Background(), ActionRequest{
		ApplicationID: 404,
		Action:        domainwf.ActionSubmit,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, port.ErrNotFound)
}

func TestOrchestrator_ExecuteAction_Escalate(t *testing.T) {
	f := newFixture(t)
	f.seedApplication(domainwf.StatusJuniorEngineerPending)

	f.rules.rules[entity.PositionStructuralEngineer+"/"+entity.SlotJuniorEngineer] = &entity.AutoAssignmentRule{
		ID:                    1,
		PositionType:          entity.PositionStructuralEngineer,
		RoleSlot:              entity.SlotJuniorEngineer,
		Strategy:              entity.StrategyWorkloadBased,
		MaxWorkloadPerOfficer: 1,
		IsActive:              true,
	}

	// Both JE officers are saturated, so escalation must relax the cap
	now := time.Now()
	for i, officerID := range []int64{1, 2} {
		require.NoError(t, f.ledger.Append(context.Background(), &entity.AssignmentHistory{
			ApplicationID: int64(100 + i), RoleSlot: entity.SlotJuniorEngineer,
			AssignedToOfficerID: officerID, IsActive: true, AssignedAt: now,
		}))
	}

	result, err := f.orchestrator.ExecuteAction(context.Background(), ActionRequest{
		ApplicationID: 1,
		Action:        domainwf.ActionEscalate,
	})
	require.NoError(t, err)

	// ESCALATE is a self-loop; the stage does not move
	assert.Equal(t, domainwf.StatusJuniorEngineerPending, result.NewStatus)

	active, err := f.ledger.GetActive(context.Background(), 1, entity.SlotJuniorEngineer)
	require.NoError(t, err)
	assert.Equal(t, entity.AssignmentReassigned, active.Action)

	stored := f.apps.apps[1]
	require.NotNil(t, stored.AssignedJuniorEngineerID)
	assert.Equal(t, active.AssignedToOfficerID, *stored.AssignedJuniorEngineerID)
}

func TestOrchestrator_ExecuteAction_VerifyDocuments(t *testing.T) {
	f := newFixture(t)
	f.seedApplication(domainwf.StatusDocumentVerificationPending)
	actor := int64(1)

	for _, dv := range []*entity.DocumentVerification{
		{ApplicationID: 1, DocumentType: "DEGREE_CERTIFICATE", DocumentRef: "DOC-1", Status: entity.VerificationPending, Required: true},
		{ApplicationID: 1, DocumentType: "EXPERIENCE_LETTER", DocumentRef: "DOC-2", Status: entity.VerificationPending, Required: true},
	} {
		require.NoError(t, f.verifications.Create(context.Background(), dv))
	}

	// The store has only cleared the first document, so the gate refuses the
	// transition, but the poll result is still persisted.
	f.docStore.statuses["DOC-1"] = entity.VerificationApproved

	_, err := f.orchestrator.ExecuteAction(context.Background(), ActionRequest{
		ApplicationID:  1,
		Action:         domainwf.ActionVerifyDocument,
		ActorOfficerID: &actor,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, gate.ErrGateNotSatisfied)
	assert.Equal(t, domainwf.StatusDocumentVerificationPending.String(), f.apps.apps[1].CurrentStatus)
	assert.Equal(t, entity.VerificationApproved, f.verifications.rows[0].Status)
	assert.Equal(t, entity.VerificationPending, f.verifications.rows[1].Status)

	// Second document clears: the gate passes and the stage moves on
	f.docStore.statuses["DOC-2"] = entity.VerificationApproved

	result, err := f.orchestrator.ExecuteAction(context.Background(), ActionRequest{
		ApplicationID:  1,
		Action:         domainwf.ActionVerifyDocument,
		ActorOfficerID: &actor,
	})
	require.NoError(t, err)
	assert.Equal(t, domainwf.StatusDocumentVerificationDone, result.NewStatus)

	row := f.verifications.rows[1]
	assert.Equal(t, entity.VerificationApproved, row.Status)
	require.NotNil(t, row.VerifiedBy)
	assert.Equal(t, actor, *row.VerifiedBy)
}

func TestOrchestrator_ExecuteAction_HoldsPoolLockUntilDone(t *testing.T) {
	f := newFixture(t)
	f.seedApplication(domainwf.StatusSubmitted)

	_, release, err := f.engine.LockPool(context.Background(), entity.SlotJuniorEngineer)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := f.orchestrator.ExecuteAction(context.Background(), ActionRequest{
			ApplicationID: 1,
			Action:        domainwf.ActionAssignToRole,
		})
		done <- err
	}()

	// The action needs the JE pool and must wait for the holder
	select {
	case err := <-done:
		t.Fatalf("action completed while the pool lock was held: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	release()
	require.NoError(t, <-done)
	assert.Equal(t, domainwf.StatusJuniorEngineerPending.String(), f.apps.apps[1].CurrentStatus)
}

func TestOrchestrator_ExecuteAction_StorageContention(t *testing.T) {
	f := newFixture(t)
	f.seedApplication(domainwf.StatusDraft)
	f.tx.err = fmt.Errorf("failed to commit transaction: %w", port.ErrBusy)

	_, err := f.orchestrator.ExecuteAction(context.Background(), ActionRequest{
		ApplicationID: 1,
		Action:        domainwf.ActionSubmit,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConcurrentModification)
	assert.Equal(t, domainwf.StatusDraft.String(), f.apps.apps[1].CurrentStatus)
}

func TestOrchestrator_PermittedActions(t *testing.T) {
	f := newFixture(t)
	f.seedApplication(domainwf.StatusPaymentPending)

	actions, err := f.orchestrator.PermittedActions(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, []domainwf.Action{domainwf.ActionRecordPayment}, actions)

	status, err := f.orchestrator.CurrentStatus(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, domainwf.StatusPaymentPending, status)
}
