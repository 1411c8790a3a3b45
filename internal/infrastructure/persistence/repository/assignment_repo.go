package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/civicgrid/licensing-portal/internal/application/port"
	"github.com/civicgrid/licensing-portal/internal/domain/entity"
)

// AssignmentHistoryRepository implements port.AssignmentHistoryRepository.
// The backing table is append-only: rows are inserted and flagged inactive,
// never rewritten or deleted.
type AssignmentHistoryRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewAssignmentHistoryRepository creates a new assignment history repository
func NewAssignmentHistoryRepository(db *sql.DB, logger *zap.Logger) port.AssignmentHistoryRepository {
	return &AssignmentHistoryRepository{
		db:     db,
		logger: logger,
	}
}

const assignmentColumns = `
	id, application_id, role_slot, previous_officer_id, assigned_to_officer_id,
	assigned_by_officer_id, action, strategy_used, workload_at_assignment,
	is_active, assigned_at, accepted_at, inactivated_at, assignment_duration_hours`

// Append inserts a new ledger row
func (r *AssignmentHistoryRepository) Append(ctx context.Context, row *entity.AssignmentHistory) error {
	query := `
		INSERT INTO assignment_history (
			application_id, role_slot, previous_officer_id, assigned_to_officer_id,
			assigned_by_officer_id, action, strategy_used, workload_at_assignment,
			is_active, assigned_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := getExecutor(ctx, r.db).ExecContext(ctx, query,
		row.ApplicationID,
		row.RoleSlot,
		nullInt64(row.PreviousOfficerID),
		row.AssignedToOfficerID,
		nullInt64(row.AssignedByOfficerID),
		row.Action,
		row.StrategyUsed,
		row.WorkloadAtAssignment,
		row.IsActive,
		row.AssignedAt,
	)
	if err != nil {
		r.logger.Error("Failed to append assignment history",
			zap.Int64("application_id", row.ApplicationID),
			zap.String("role_slot", row.RoleSlot),
			zap.Error(err))
		return fmt.Errorf("failed to append assignment history: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	row.ID = id
	return nil
}

// GetByID retrieves a ledger row by ID
func (r *AssignmentHistoryRepository) GetByID(ctx context.Context, id int64) (*entity.AssignmentHistory, error) {
	query := `SELECT` + assignmentColumns + ` FROM assignment_history WHERE id = ?`

	row, err := scanAssignment(getExecutor(ctx, r.db).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, port.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get assignment history: %w", err)
	}
	return row, nil
}

// GetActive retrieves the single active row for an application's role slot
func (r *AssignmentHistoryRepository) GetActive(ctx context.Context, applicationID int64, roleSlot string) (*entity.AssignmentHistory, error) {
	query := `SELECT` + assignmentColumns + ` FROM assignment_history
		WHERE application_id = ? AND role_slot = ? AND is_active = 1`

	row, err := scanAssignment(getExecutor(ctx, r.db).QueryRowContext(ctx, query, applicationID, roleSlot))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, port.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get active assignment: %w", err)
	}
	return row, nil
}

// ListByApplication returns an application's full assignment trail, oldest first
func (r *AssignmentHistoryRepository) ListByApplication(ctx context.Context, applicationID int64) ([]*entity.AssignmentHistory, error) {
	query := `SELECT` + assignmentColumns + ` FROM assignment_history
		WHERE application_id = ? ORDER BY id`

	rows, err := getExecutor(ctx, r.db).QueryContext(ctx, query, applicationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list assignment history: %w", err)
	}
	defer rows.Close()

	return scanAssignments(rows)
}

// ListAll pages through the whole ledger, oldest first
func (r *AssignmentHistoryRepository) ListAll(ctx context.Context, limit, offset int) ([]*entity.AssignmentHistory, error) {
	query := `SELECT` + assignmentColumns + ` FROM assignment_history ORDER BY id LIMIT ? OFFSET ?`

	rows, err := getExecutor(ctx, r.db).QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list assignment history: %w", err)
	}
	defer rows.Close()

	return scanAssignments(rows)
}

// Inactivate flags a row inactive and records how long it was held
func (r *AssignmentHistoryRepository) Inactivate(ctx context.Context, id int64, at time.Time, durationHours float64) error {
	query := `
		UPDATE assignment_history SET
			is_active = 0, inactivated_at = ?, assignment_duration_hours = ?
		WHERE id = ? AND is_active = 1
	`

	result, err := getExecutor(ctx, r.db).ExecContext(ctx, query, at, durationHours, id)
	if err != nil {
		return fmt.Errorf("failed to inactivate assignment: %w", err)
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

// MarkAccepted records the officer's acceptance timestamp
func (r *AssignmentHistoryRepository) MarkAccepted(ctx context.Context, id int64, at time.Time) error {
	query := `UPDATE assignment_history SET accepted_at = ? WHERE id = ? AND is_active = 1`

	result, err := getExecutor(ctx, r.db).ExecContext(ctx, query, at, id)
	if err != nil {
		return fmt.Errorf("failed to mark assignment accepted: %w", err)
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

// CountActiveByOfficer computes one officer's workload from the ledger
func (r *AssignmentHistoryRepository) CountActiveByOfficer(ctx context.Context, officerID int64) (int, error) {
	query := `SELECT COUNT(*) FROM assignment_history WHERE assigned_to_officer_id = ? AND is_active = 1`

	var count int
	if err := getExecutor(ctx, r.db).QueryRowContext(ctx, query, officerID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count active assignments: %w", err)
	}
	return count, nil
}

// CountActiveByOfficers returns workloads for a candidate pool in one query.
// Officers without active rows appear with a zero count.
func (r *AssignmentHistoryRepository) CountActiveByOfficers(ctx context.Context, officerIDs []int64) (map[int64]int, error) {
	workloads := make(map[int64]int, len(officerIDs))
	if len(officerIDs) == 0 {
		return workloads, nil
	}
	for _, id := range officerIDs {
		workloads[id] = 0
	}

	placeholders := strings.Repeat("?,", len(officerIDs))
	query := `
		SELECT assigned_to_officer_id, COUNT(*)
		FROM assignment_history
		WHERE is_active = 1 AND assigned_to_officer_id IN (` + placeholders[:len(placeholders)-1] + `)
		GROUP BY assigned_to_officer_id
	`

	args := make([]interface{}, len(officerIDs))
	for i, id := range officerIDs {
		args[i] = id
	}

	rows, err := getExecutor(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to count active assignments: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var officerID int64
		var count int
		if err := rows.Scan(&officerID, &count); err != nil {
			return nil, fmt.Errorf("failed to scan workload row: %w", err)
		}
		workloads[officerID] = count
	}
	return workloads, rows.Err()
}

// ListStaleActive returns active rows assigned before the cutoff whose
// officer has not accepted yet
func (r *AssignmentHistoryRepository) ListStaleActive(ctx context.Context, before time.Time) ([]*entity.AssignmentHistory, error) {
	query := `SELECT` + assignmentColumns + ` FROM assignment_history
		WHERE is_active = 1 AND accepted_at IS NULL AND assigned_at < ?
		ORDER BY assigned_at`

	rows, err := getExecutor(ctx, r.db).QueryContext(ctx, query, before)
	if err != nil {
		return nil, fmt.Errorf("failed to list stale assignments: %w", err)
	}
	defer rows.Close()

	return scanAssignments(rows)
}

func scanAssignment(row rowScanner) (*entity.AssignmentHistory, error) {
	var h entity.AssignmentHistory
	var previousOfficerID, assignedByOfficerID sql.NullInt64
	var acceptedAt, inactivatedAt sql.NullTime
	var durationHours sql.NullFloat64

	err := row.Scan(
		&h.ID,
		&h.ApplicationID,
		&h.RoleSlot,
		&previousOfficerID,
		&h.AssignedToOfficerID,
		&assignedByOfficerID,
		&h.Action,
		&h.StrategyUsed,
		&h.WorkloadAtAssignment,
		&h.IsActive,
		&h.AssignedAt,
		&acceptedAt,
		&inactivatedAt,
		&durationHours,
	)
	if err != nil {
		return nil, err
	}

	h.PreviousOfficerID = int64Ptr(previousOfficerID)
	h.AssignedByOfficerID = int64Ptr(assignedByOfficerID)
	h.AcceptedAt = timePtr(acceptedAt)
	h.InactivatedAt = timePtr(inactivatedAt)
	h.AssignmentDurationHours = float64Ptr(durationHours)
	return &h, nil
}

func scanAssignments(rows *sql.Rows) ([]*entity.AssignmentHistory, error) {
	var result []*entity.AssignmentHistory
	for rows.Next() {
		h, err := scanAssignment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan assignment history: %w", err)
		}
		result = append(result, h)
	}
	return result, rows.Err()
}

// Verify interface compliance
var _ port.AssignmentHistoryRepository = (*AssignmentHistoryRepository)(nil)
