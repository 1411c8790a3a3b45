package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/civicgrid/licensing-portal/internal/application/port"
	"github.com/civicgrid/licensing-portal/internal/domain/entity"
)

// ApplicationRepository implements port.ApplicationRepository
type ApplicationRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewApplicationRepository creates a new application repository
func NewApplicationRepository(db *sql.DB, logger *zap.Logger) port.ApplicationRepository {
	return &ApplicationRepository{
		db:     db,
		logger: logger,
	}
}

const applicationColumns = `
	id, application_number, applicant_name, applicant_user_id, position_type,
	current_status, fee_amount,
	assigned_junior_engineer_id, assigned_assistant_engineer_id,
	assigned_executive_engineer_id, assigned_city_engineer_id, assigned_clerk_id,
	je_decision, je_comment, je_decided_by, je_decided_at,
	ae_decision, ae_comment, ae_decided_by, ae_decided_at,
	ee_decision, ee_comment, ee_decided_by, ee_decided_at,
	ce_decision, ce_comment, ce_decided_by, ce_decided_at,
	clerk_decision, clerk_comment, clerk_decided_by, clerk_decided_at,
	version, submitted_at, completed_at, created_at, updated_at`

// Create inserts a new application at version zero
func (r *ApplicationRepository) Create(ctx context.Context, app *entity.Application) error {
	query := `
		INSERT INTO applications (
			application_number, applicant_name, applicant_user_id, position_type,
			current_status, fee_amount, version
		) VALUES (?, ?, ?, ?, ?, ?, 0)
	`

	result, err := getExecutor(ctx, r.db).ExecContext(ctx, query,
		app.ApplicationNumber,
		app.ApplicantName,
		app.ApplicantUserID,
		app.PositionType,
		app.CurrentStatus,
		app.FeeAmount,
	)
	if err != nil {
		r.logger.Error("Failed to create application",
			zap.String("application_number", app.ApplicationNumber),
			zap.Error(err))
		return fmt.Errorf("failed to create application: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	app.ID = id
	app.Version = 0
	return nil
}

// GetByID retrieves an application by ID
func (r *ApplicationRepository) GetByID(ctx context.Context, id int64) (*entity.Application, error) {
	query := `SELECT` + applicationColumns + ` FROM applications WHERE id = ?`
	return r.scanOne(getExecutor(ctx, r.db).QueryRowContext(ctx, query, id))
}

// GetByNumber retrieves an application by its public number
func (r *ApplicationRepository) GetByNumber(ctx context.Context, number string) (*entity.Application, error) {
	query := `SELECT` + applicationColumns + ` FROM applications WHERE application_number = ?`
	return r.scanOne(getExecutor(ctx, r.db).QueryRowContext(ctx, query, number))
}

// List returns applications ordered by newest first
func (r *ApplicationRepository) List(ctx context.Context, limit, offset int) ([]*entity.Application, error) {
	query := `SELECT` + applicationColumns + ` FROM applications ORDER BY id DESC LIMIT ? OFFSET ?`

	rows, err := getExecutor(ctx, r.db).QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list applications: %w", err)
	}
	defer rows.Close()

	return r.scanMany(rows)
}

// ListByStatus returns applications in a given workflow status
func (r *ApplicationRepository) ListByStatus(ctx context.Context, status string, limit int) ([]*entity.Application, error) {
	query := `SELECT` + applicationColumns + ` FROM applications WHERE current_status = ? ORDER BY id LIMIT ?`

	rows, err := getExecutor(ctx, r.db).QueryContext(ctx, query, status, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list applications by status: %w", err)
	}
	defer rows.Close()

	return r.scanMany(rows)
}

// Update writes the full aggregate guarded by the optimistic version check.
// The row is only written when its stored version still equals
// expectedVersion; a lost race yields port.ErrVersionConflict.
func (r *ApplicationRepository) Update(ctx context.Context, app *entity.Application, expectedVersion int64) error {
	query := `
		UPDATE applications SET
			applicant_name = ?, position_type = ?, current_status = ?, fee_amount = ?,
			assigned_junior_engineer_id = ?, assigned_assistant_engineer_id = ?,
			assigned_executive_engineer_id = ?, assigned_city_engineer_id = ?, assigned_clerk_id = ?,
			je_decision = ?, je_comment = ?, je_decided_by = ?, je_decided_at = ?,
			ae_decision = ?, ae_comment = ?, ae_decided_by = ?, ae_decided_at = ?,
			ee_decision = ?, ee_comment = ?, ee_decided_by = ?, ee_decided_at = ?,
			ce_decision = ?, ce_comment = ?, ce_decided_by = ?, ce_decided_at = ?,
			clerk_decision = ?, clerk_comment = ?, clerk_decided_by = ?, clerk_decided_at = ?,
			version = version + 1, submitted_at = ?, completed_at = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND version = ?
	`

	args := []interface{}{
		app.ApplicantName, app.PositionType, app.CurrentStatus, app.FeeAmount,
		nullInt64(app.AssignedJuniorEngineerID), nullInt64(app.AssignedAssistantEngineerID),
		nullInt64(app.AssignedExecutiveEngineerID), nullInt64(app.AssignedCityEngineerID),
		nullInt64(app.AssignedClerkID),
	}
	for _, d := range []entity.StageDecision{
		app.JuniorEngineerDecision, app.AssistantEngineerDecision,
		app.ExecutiveEngineerDecision, app.CityEngineerDecision, app.ClerkDecision,
	} {
		args = append(args, d.Outcome, nullString(d.Comment), nullInt64(d.DecidedBy), nullTime(d.DecidedAt))
	}
	args = append(args, nullTime(app.SubmittedAt), nullTime(app.CompletedAt), app.ID, expectedVersion)

	result, err := getExecutor(ctx, r.db).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to update application",
			zap.Int64("application_id", app.ID),
			zap.Error(err))
		return fmt.Errorf("failed to update application: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return port.ErrVersionConflict
	}

	app.Version = expectedVersion + 1
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *ApplicationRepository) scanOne(row rowScanner) (*entity.Application, error) {
	app, err := scanApplication(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, port.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan application: %w", err)
	}
	return app, nil
}

func (r *ApplicationRepository) scanMany(rows *sql.Rows) ([]*entity.Application, error) {
	var apps []*entity.Application
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan application: %w", err)
		}
		apps = append(apps, app)
	}
	return apps, rows.Err()
}

func scanApplication(row rowScanner) (*entity.Application, error) {
	var app entity.Application
	var jeID, aeID, eeID, ceID, clerkID sql.NullInt64
	var submittedAt, completedAt sql.NullTime

	decisions := make([]entity.StageDecision, 5)
	comments := make([]sql.NullString, 5)
	decidedBys := make([]sql.NullInt64, 5)
	decidedAts := make([]sql.NullTime, 5)

	dest := []interface{}{
		&app.ID, &app.ApplicationNumber, &app.ApplicantName, &app.ApplicantUserID,
		&app.PositionType, &app.CurrentStatus, &app.FeeAmount,
		&jeID, &aeID, &eeID, &ceID, &clerkID,
	}
	for i := range decisions {
		dest = append(dest, &decisions[i].Outcome, &comments[i], &decidedBys[i], &decidedAts[i])
	}
	dest = append(dest, &app.Version, &submittedAt, &completedAt, &app.CreatedAt, &app.UpdatedAt)

	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	app.AssignedJuniorEngineerID = int64Ptr(jeID)
	app.AssignedAssistantEngineerID = int64Ptr(aeID)
	app.AssignedExecutiveEngineerID = int64Ptr(eeID)
	app.AssignedCityEngineerID = int64Ptr(ceID)
	app.AssignedClerkID = int64Ptr(clerkID)
	app.SubmittedAt = timePtr(submittedAt)
	app.CompletedAt = timePtr(completedAt)

	for i := range decisions {
		decisions[i].Comment = comments[i].String
		decisions[i].DecidedBy = int64Ptr(decidedBys[i])
		decisions[i].DecidedAt = timePtr(decidedAts[i])
	}
	app.JuniorEngineerDecision = decisions[0]
	app.AssistantEngineerDecision = decisions[1]
	app.ExecutiveEngineerDecision = decisions[2]
	app.CityEngineerDecision = decisions[3]
	app.ClerkDecision = decisions[4]

	return &app, nil
}

// Verify interface compliance
var _ port.ApplicationRepository = (*ApplicationRepository)(nil)
