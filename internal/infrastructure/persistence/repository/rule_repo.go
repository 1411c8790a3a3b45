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

// AssignmentRuleRepository implements port.AssignmentRuleRepository
type AssignmentRuleRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewAssignmentRuleRepository creates a new assignment rule repository
func NewAssignmentRuleRepository(db *sql.DB, logger *zap.Logger) port.AssignmentRuleRepository {
	return &AssignmentRuleRepository{
		db:     db,
		logger: logger,
	}
}

const ruleColumns = `
	id, position_type, role_slot, target_role, strategy,
	min_experience_years, max_workload_per_officer, priority,
	is_active, active_from, active_until, last_round_robin_index,
	escalation_time_hours, escalation_role, times_applied, last_applied_at,
	created_at, updated_at`

// Create inserts a new assignment rule
func (r *AssignmentRuleRepository) Create(ctx context.Context, rule *entity.AutoAssignmentRule) error {
	query := `
		INSERT INTO auto_assignment_rules (
			position_type, role_slot, target_role, strategy,
			min_experience_years, max_workload_per_officer, priority,
			is_active, active_from, active_until, last_round_robin_index,
			escalation_time_hours, escalation_role
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := getExecutor(ctx, r.db).ExecContext(ctx, query,
		rule.PositionType,
		rule.RoleSlot,
		rule.TargetRole,
		rule.Strategy,
		rule.MinExperienceYears,
		rule.MaxWorkloadPerOfficer,
		rule.Priority,
		rule.IsActive,
		nullTime(rule.ActiveFrom),
		nullTime(rule.ActiveUntil),
		rule.LastRoundRobinIndex,
		rule.EscalationTimeHours,
		nullString(rule.EscalationRole),
	)
	if err != nil {
		r.logger.Error("Failed to create assignment rule",
			zap.String("position_type", rule.PositionType),
			zap.String("role_slot", rule.RoleSlot),
			zap.Error(err))
		return fmt.Errorf("failed to create assignment rule: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	rule.ID = id
	return nil
}

// GetByPositionAndSlot retrieves the highest-priority active rule for a
// (position type, role slot) pair
func (r *AssignmentRuleRepository) GetByPositionAndSlot(ctx context.Context, positionType, roleSlot string) (*entity.AutoAssignmentRule, error) {
	query := `SELECT` + ruleColumns + ` FROM auto_assignment_rules
		WHERE position_type = ? AND role_slot = ? AND is_active = 1
		ORDER BY priority DESC, id LIMIT 1`

	rule, err := scanRule(getExecutor(ctx, r.db).QueryRowContext(ctx, query, positionType, roleSlot))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, port.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get assignment rule: %w", err)
	}
	return rule, nil
}

// List returns all rules ordered by position type then slot
func (r *AssignmentRuleRepository) List(ctx context.Context) ([]*entity.AutoAssignmentRule, error) {
	query := `SELECT` + ruleColumns + ` FROM auto_assignment_rules ORDER BY position_type, role_slot, priority DESC`

	rows, err := getExecutor(ctx, r.db).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list assignment rules: %w", err)
	}
	defer rows.Close()

	var rules []*entity.AutoAssignmentRule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan assignment rule: %w", err)
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

// RecordApplied persists the advanced round-robin cursor together with the
// application counters, atomically with the surrounding transaction
func (r *AssignmentRuleRepository) RecordApplied(ctx context.Context, id int64, lastRoundRobinIndex int, appliedAt time.Time) error {
	query := `
		UPDATE auto_assignment_rules SET
			last_round_robin_index = ?, times_applied = times_applied + 1,
			last_applied_at = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`

	result, err := getExecutor(ctx, r.db).ExecContext(ctx, query, lastRoundRobinIndex, appliedAt, id)
	if err != nil {
		return fmt.Errorf("failed to record rule application: %w", err)
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

func scanRule(row rowScanner) (*entity.AutoAssignmentRule, error) {
	var rule entity.AutoAssignmentRule
	var activeFrom, activeUntil, lastAppliedAt sql.NullTime
	var escalationRole sql.NullString

	err := row.Scan(
		&rule.ID,
		&rule.PositionType,
		&rule.RoleSlot,
		&rule.TargetRole,
		&rule.Strategy,
		&rule.MinExperienceYears,
		&rule.MaxWorkloadPerOfficer,
		&rule.Priority,
		&rule.IsActive,
		&activeFrom,
		&activeUntil,
		&rule.LastRoundRobinIndex,
		&rule.EscalationTimeHours,
		&escalationRole,
		&rule.TimesApplied,
		&lastAppliedAt,
		&rule.CreatedAt,
		&rule.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	rule.ActiveFrom = timePtr(activeFrom)
	rule.ActiveUntil = timePtr(activeUntil)
	rule.LastAppliedAt = timePtr(lastAppliedAt)
	rule.EscalationRole = escalationRole.String
	return &rule, nil
}

// Verify interface compliance
var _ port.AssignmentRuleRepository = (*AssignmentRuleRepository)(nil)
