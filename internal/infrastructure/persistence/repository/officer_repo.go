package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/civicgrid/licensing-portal/internal/application/port"
	"github.com/civicgrid/licensing-portal/internal/domain/entity"
)

// OfficerRepository implements port.OfficerRepository
type OfficerRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewOfficerRepository creates a new officer repository
func NewOfficerRepository(db *sql.DB, logger *zap.Logger) port.OfficerRepository {
	return &OfficerRepository{
		db:     db,
		logger: logger,
	}
}

const officerColumns = `
	id, employee_code, full_name, role, specialization, experience_years,
	priority_rank, skill_score, is_active, created_at, updated_at`

// Create inserts a new officer
func (r *OfficerRepository) Create(ctx context.Context, officer *entity.Officer) error {
	query := `
		INSERT INTO officers (
			employee_code, full_name, role, specialization, experience_years,
			priority_rank, skill_score, is_active
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := getExecutor(ctx, r.db).ExecContext(ctx, query,
		officer.EmployeeCode,
		officer.FullName,
		officer.Role,
		nullString(officer.Specialization),
		officer.ExperienceYears,
		officer.PriorityRank,
		officer.SkillScore,
		officer.IsActive,
	)
	if err != nil {
		r.logger.Error("Failed to create officer",
			zap.String("employee_code", officer.EmployeeCode),
			zap.Error(err))
		return fmt.Errorf("failed to create officer: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	officer.ID = id
	return nil
}

// GetByID retrieves an officer by ID
func (r *OfficerRepository) GetByID(ctx context.Context, id int64) (*entity.Officer, error) {
	query := `SELECT` + officerColumns + ` FROM officers WHERE id = ?`

	officer, err := scanOfficer(getExecutor(ctx, r.db).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, port.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get officer: %w", err)
	}
	return officer, nil
}

// GetActiveByRoles retrieves active officers holding any of the given roles,
// ordered by id so candidate pools are deterministic
func (r *OfficerRepository) GetActiveByRoles(ctx context.Context, roles []string) ([]*entity.Officer, error) {
	if len(roles) == 0 {
		return nil, nil
	}

	placeholders := strings.Repeat("?,", len(roles))
	query := `SELECT` + officerColumns + ` FROM officers
		WHERE is_active = 1 AND role IN (` + placeholders[:len(placeholders)-1] + `)
		ORDER BY id`

	args := make([]interface{}, len(roles))
	for i, role := range roles {
		args[i] = role
	}

	rows, err := getExecutor(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list officers by roles: %w", err)
	}
	defer rows.Close()

	var officers []*entity.Officer
	for rows.Next() {
		officer, err := scanOfficer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan officer: %w", err)
		}
		officers = append(officers, officer)
	}
	return officers, rows.Err()
}

// Update rewrites an officer's mutable profile fields
func (r *OfficerRepository) Update(ctx context.Context, officer *entity.Officer) error {
	query := `
		UPDATE officers SET
			full_name = ?, role = ?, specialization = ?, experience_years = ?,
			priority_rank = ?, skill_score = ?, is_active = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`

	result, err := getExecutor(ctx, r.db).ExecContext(ctx, query,
		officer.FullName,
		officer.Role,
		nullString(officer.Specialization),
		officer.ExperienceYears,
		officer.PriorityRank,
		officer.SkillScore,
		officer.IsActive,
		officer.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update officer", zap.Int64("officer_id", officer.ID), zap.Error(err))
		return fmt.Errorf("failed to update officer: %w", err)
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

// SetActive toggles eligibility without touching the rest of the profile
func (r *OfficerRepository) SetActive(ctx context.Context, id int64, active bool) error {
	query := `UPDATE officers SET is_active = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`

	result, err := getExecutor(ctx, r.db).ExecContext(ctx, query, active, id)
	if err != nil {
		return fmt.Errorf("failed to set officer active flag: %w", err)
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

func scanOfficer(row rowScanner) (*entity.Officer, error) {
	var officer entity.Officer
	var specialization sql.NullString

	err := row.Scan(
		&officer.ID,
		&officer.EmployeeCode,
		&officer.FullName,
		&officer.Role,
		&specialization,
		&officer.ExperienceYears,
		&officer.PriorityRank,
		&officer.SkillScore,
		&officer.IsActive,
		&officer.CreatedAt,
		&officer.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	officer.Specialization = specialization.String
	return &officer, nil
}

// Verify interface compliance
var _ port.OfficerRepository = (*OfficerRepository)(nil)
