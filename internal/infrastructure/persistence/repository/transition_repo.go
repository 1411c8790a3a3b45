package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/civicgrid/licensing-portal/internal/application/port"
	"github.com/civicgrid/licensing-portal/internal/domain/workflow"
)

// TransitionRepository implements port.TransitionRepository. The transition
// table is seeded by migration and read once at startup; the compiled table
// validates it before any action runs.
type TransitionRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewTransitionRepository creates a new transition repository
func NewTransitionRepository(db *sql.DB, logger *zap.Logger) port.TransitionRepository {
	return &TransitionRepository{
		db:     db,
		logger: logger,
	}
}

// LoadRules reads the full transition table
func (r *TransitionRepository) LoadRules(ctx context.Context) ([]workflow.TransitionRule, error) {
	query := `SELECT from_status, action, to_status FROM workflow_transitions ORDER BY id`

	rows, err := getExecutor(ctx, r.db).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to load workflow transitions: %w", err)
	}
	defer rows.Close()

	var rules []workflow.TransitionRule
	for rows.Next() {
		var from, action, to string
		if err := rows.Scan(&from, &action, &to); err != nil {
			return nil, fmt.Errorf("failed to scan workflow transition: %w", err)
		}
		rules = append(rules, workflow.TransitionRule{
			From:   workflow.Status(from),
			Action: workflow.Action(action),
			To:     workflow.Status(to),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	r.logger.Info("Workflow transitions loaded", zap.Int("count", len(rules)))
	return rules, nil
}

// Verify interface compliance
var _ port.TransitionRepository = (*TransitionRepository)(nil)
