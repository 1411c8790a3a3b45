package port

import (
	"context"
	"errors"
	"time"

	"github.com/civicgrid/licensing-portal/internal/domain/entity"
	"github.com/civicgrid/licensing-portal/internal/domain/workflow"
)

var (
	// ErrNotFound is returned when a requested row does not exist
	ErrNotFound = errors.New("not found")

	// ErrVersionConflict is returned when an optimistic write loses the race
	ErrVersionConflict = errors.New("version conflict")

	// ErrBusy is returned when the store's write lock is held by another
	// writer. Safe to retry.
	ErrBusy = errors.New("database busy")
)

// ApplicationRepository defines persistence operations for Application
type ApplicationRepository interface {
	Create(ctx context.Context, app *entity.Application) error
	GetByID(ctx context.Context, id int64) (*entity.Application, error)
	GetByNumber(ctx context.Context, number string) (*entity.Application, error)
	List(ctx context.Context, limit, offset int) ([]*entity.Application, error)
	ListByStatus(ctx context.Context, status string, limit int) ([]*entity.Application, error)

	// Update writes the full aggregate guarded by the optimistic version
	// check: the row is only written when its stored version still equals
	// expectedVersion, and the version is incremented in the same statement.
	// A lost race yields ErrVersionConflict.
	Update(ctx context.Context, app *entity.Application, expectedVersion int64) error
}

// OfficerRepository defines persistence operations for Officer
type OfficerRepository interface {
	Create(ctx context.Context, officer *entity.Officer) error
	GetByID(ctx context.Context, id int64) (*entity.Officer, error)
	GetActiveByRoles(ctx context.Context, roles []string) ([]*entity.Officer, error)
	Update(ctx context.Context, officer *entity.Officer) error
	SetActive(ctx context.Context, id int64, active bool) error
}

// AssignmentHistoryRepository defines persistence operations for the
// append-only assignment ledger. Rows are appended and flagged inactive,
// never updated in place or deleted.
type AssignmentHistoryRepository interface {
	Append(ctx context.Context, row *entity.AssignmentHistory) error
	GetByID(ctx context.Context, id int64) (*entity.AssignmentHistory, error)
	GetActive(ctx context.Context, applicationID int64, roleSlot string) (*entity.AssignmentHistory, error)
	ListByApplication(ctx context.Context, applicationID int64) ([]*entity.AssignmentHistory, error)
	ListAll(ctx context.Context, limit, offset int) ([]*entity.AssignmentHistory, error)

	// Inactivate flags a row inactive and records the assignment duration
	Inactivate(ctx context.Context, id int64, at time.Time, durationHours float64) error

	// MarkAccepted records the officer's acceptance timestamp
	MarkAccepted(ctx context.Context, id int64, at time.Time) error

	// CountActiveByOfficer computes workload straight from the ledger
	CountActiveByOfficer(ctx context.Context, officerID int64) (int, error)

	// CountActiveByOfficers returns workloads for a candidate pool in one query
	CountActiveByOfficers(ctx context.Context, officerIDs []int64) (map[int64]int, error)

	// ListStaleActive returns active rows assigned before the cutoff whose
	// officer has not accepted, for the escalation sweep
	ListStaleActive(ctx context.Context, before time.Time) ([]*entity.AssignmentHistory, error)
}

// AssignmentRuleRepository defines persistence operations for AutoAssignmentRule
type AssignmentRuleRepository interface {
	Create(ctx context.Context, rule *entity.AutoAssignmentRule) error
	GetByPositionAndSlot(ctx context.Context, positionType, roleSlot string) (*entity.AutoAssignmentRule, error)
	List(ctx context.Context) ([]*entity.AutoAssignmentRule, error)

	// RecordApplied persists the advanced round-robin cursor together with
	// the TimesApplied counter and LastAppliedAt, atomically with the
	// surrounding assignment transaction.
	RecordApplied(ctx context.Context, id int64, lastRoundRobinIndex int, appliedAt time.Time) error
}

// DocumentVerificationRepository defines persistence operations for DocumentVerification
type DocumentVerificationRepository interface {
	Create(ctx context.Context, dv *entity.DocumentVerification) error
	GetByID(ctx context.Context, id int64) (*entity.DocumentVerification, error)
	ListByApplication(ctx context.Context, applicationID int64) ([]*entity.DocumentVerification, error)
	UpdateStatus(ctx context.Context, id int64, status, remarks string, verifiedBy *int64) error
}

// SignatureRepository defines persistence operations for DigitalSignature
type SignatureRepository interface {
	Create(ctx context.Context, sig *entity.DigitalSignature) error
	GetByApplicationAndSlot(ctx context.Context, applicationID int64, roleSlot string) (*entity.DigitalSignature, error)
	ListByApplication(ctx context.Context, applicationID int64) ([]*entity.DigitalSignature, error)
	Update(ctx context.Context, sig *entity.DigitalSignature) error
}

// AppointmentRepository defines persistence operations for Appointment
type AppointmentRepository interface {
	Create(ctx context.Context, appt *entity.Appointment) error
	GetByID(ctx context.Context, id int64) (*entity.Appointment, error)
	ListByApplication(ctx context.Context, applicationID int64) ([]*entity.Appointment, error)
	UpdateStatus(ctx context.Context, id int64, status string, completedAt *time.Time) error

	// LinkReschedule records the two-way id link between an appointment and
	// its replacement
	LinkReschedule(ctx context.Context, fromID, toID int64) error
}

// PaymentRepository defines persistence operations for PaymentRecord
type PaymentRepository interface {
	Create(ctx context.Context, payment *entity.PaymentRecord) error
	GetLatestByApplication(ctx context.Context, applicationID int64) (*entity.PaymentRecord, error)
	ListByApplication(ctx context.Context, applicationID int64) ([]*entity.PaymentRecord, error)
}

// StatusHistoryRepository defines persistence operations for the status audit trail
type StatusHistoryRepository interface {
	Append(ctx context.Context, row *entity.StatusHistory) error
	ListByApplication(ctx context.Context, applicationID int64) ([]*entity.StatusHistory, error)
}

// TransitionRepository loads the externally-seeded transition table
type TransitionRepository interface {
	LoadRules(ctx context.Context) ([]workflow.TransitionRule, error)
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
