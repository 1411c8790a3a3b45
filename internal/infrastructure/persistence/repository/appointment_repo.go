package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/civicgrid/licensing-portal/internal/application/port"
	"github.com/civicgrid/licensing-portal/internal/domain/entity"
)

// AppointmentRepository implements port.AppointmentRepository
type AppointmentRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewAppointmentRepository creates a new appointment repository
func NewAppointmentRepository(db *sql.DB, logger *zap.Logger) port.AppointmentRepository {
	return &AppointmentRepository{
		db:     db,
		logger: logger,
	}
}

const appointmentColumns = `
	id, application_id, officer_id, scheduled_for, location, status, notes,
	rescheduled_from_id, rescheduled_to_id, completed_at, created_at, updated_at`

// Create inserts a new appointment
func (r *AppointmentRepository) Create(ctx context.Context, appt *entity.Appointment) error {
	query := `
		INSERT INTO appointments (
			application_id, officer_id, scheduled_for, location, status, notes,
			rescheduled_from_id
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	result, err := getExecutor(ctx, r.db).ExecContext(ctx, query,
		appt.ApplicationID,
		appt.OfficerID,
		appt.ScheduledFor,
		nullString(appt.Location),
		appt.Status,
		nullString(appt.Notes),
		nullInt64(appt.RescheduledFromID),
	)
	if err != nil {
		r.logger.Error("Failed to create appointment",
			zap.Int64("application_id", appt.ApplicationID),
			zap.Error(err))
		return fmt.Errorf("failed to create appointment: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	appt.ID = id
	return nil
}

// GetByID retrieves an appointment by ID
func (r *AppointmentRepository) GetByID(ctx context.Context, id int64) (*entity.Appointment, error) {
	query := `SELECT` + appointmentColumns + ` FROM appointments WHERE id = ?`

	appt, err := scanAppointment(getExecutor(ctx, r.db).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, port.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}
	return appt, nil
}

// ListByApplication returns all appointments for an application, oldest first
func (r *AppointmentRepository) ListByApplication(ctx context.Context, applicationID int64) ([]*entity.Appointment, error) {
	query := `SELECT` + appointmentColumns + ` FROM appointments WHERE application_id = ? ORDER BY id`

	rows, err := getExecutor(ctx, r.db).QueryContext(ctx, query, applicationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	defer rows.Close()

	var result []*entity.Appointment
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan appointment: %w", err)
		}
		result = append(result, appt)
	}
	return result, rows.Err()
}

// UpdateStatus moves an appointment through its lifecycle
func (r *AppointmentRepository) UpdateStatus(ctx context.Context, id int64, status string, completedAt *time.Time) error {
	query := `
		UPDATE appointments SET
			status = ?, completed_at = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`

	result, err := getExecutor(ctx, r.db).ExecContext(ctx, query, status, nullTime(completedAt), id)
	if err != nil {
		return fmt.Errorf("failed to update appointment status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return port.ErrNotFound
	}
	return nil
}

// LinkReschedule records the two-way id link between an appointment and its
// replacement
func (r *AppointmentRepository) LinkReschedule(ctx context.Context, fromID, toID int64) error {
	exec := getExecutor(ctx, r.db)

	if _, err := exec.ExecContext(ctx,
		`UPDATE appointments SET rescheduled_to_id = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		toID, fromID); err != nil {
		return fmt.Errorf("failed to link rescheduled appointment: %w", err)
	}
	if _, err := exec.ExecContext(ctx,
		`UPDATE appointments SET rescheduled_from_id = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		fromID, toID); err != nil {
		return fmt.Errorf("failed to link rescheduled appointment: %w", err)
	}
	return nil
}

func scanAppointment(row rowScanner) (*entity.Appointment, error) {
	var appt entity.Appointment
	var location, notes sql.NullString
	var rescheduledFromID, rescheduledToID sql.NullInt64
	var completedAt sql.NullTime

	err := row.Scan(
		&appt.ID,
		&appt.ApplicationID,
		&appt.OfficerID,
		&appt.ScheduledFor,
		&location,
		&appt.Status,
		&notes,
		&rescheduledFromID,
		&rescheduledToID,
		&completedAt,
		&appt.CreatedAt,
		&appt.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	appt.Location = location.String
	appt.Notes = notes.String
	appt.RescheduledFromID = int64Ptr(rescheduledFromID)
	appt.RescheduledToID = int64Ptr(rescheduledToID)
	appt.CompletedAt = timePtr(completedAt)
	return &appt, nil
}

// Verify interface compliance
var _ port.AppointmentRepository = (*AppointmentRepository)(nil)
