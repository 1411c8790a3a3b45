package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/civicgrid/licensing-portal/internal/application/port"
	"github.com/civicgrid/licensing-portal/internal/domain/entity"
)

// StatusHistoryRepository implements port.StatusHistoryRepository. The
// backing table is the append-only status audit trail.
type StatusHistoryRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewStatusHistoryRepository creates a new status history repository
func NewStatusHistoryRepository(db *sql.DB, logger *zap.Logger) port.StatusHistoryRepository {
	return &StatusHistoryRepository{
		db:     db,
		logger: logger,
	}
}

// Append inserts a new audit row
func (r *StatusHistoryRepository) Append(ctx context.Context, row *entity.StatusHistory) error {
	query := `
		INSERT INTO status_history (
			application_id, previous_status, new_status, action,
			actor_officer_id, comment, timestamp
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	result, err := getExecutor(ctx, r.db).ExecContext(ctx, query,
		row.ApplicationID,
		row.PreviousStatus,
		row.NewStatus,
		row.Action,
		nullInt64(row.ActorOfficerID),
		nullString(row.Comment),
		row.Timestamp,
	)
	if err != nil {
		r.logger.Error("Failed to append status history",
			zap.Int64("application_id", row.ApplicationID),
			zap.String("action", row.Action),
			zap.Error(err))
		return fmt.Errorf("failed to append status history: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	row.ID = id
	return nil
}

// ListByApplication returns an application's status trail, oldest first
func (r *StatusHistoryRepository) ListByApplication(ctx context.Context, applicationID int64) ([]*entity.StatusHistory, error) {
	query := `
		SELECT id, application_id, previous_status, new_status, action,
			actor_officer_id, comment, timestamp
		FROM status_history WHERE application_id = ? ORDER BY id
	`

	rows, err := getExecutor(ctx, r.db).QueryContext(ctx, query, applicationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list status history: %w", err)
	}
	defer rows.Close()

	var result []*entity.StatusHistory
	for rows.Next() {
		var h entity.StatusHistory
		var actorOfficerID sql.NullInt64
		var comment sql.NullString

		if err := rows.Scan(
			&h.ID,
			&h.ApplicationID,
			&h.PreviousStatus,
			&h.NewStatus,
			&h.Action,
			&actorOfficerID,
			&comment,
			&h.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("failed to scan status history: %w", err)
		}

		h.ActorOfficerID = int64Ptr(actorOfficerID)
		h.Comment = comment.String
		result = append(result, &h)
	}
	return result, rows.Err()
}

// Verify interface compliance
var _ port.StatusHistoryRepository = (*StatusHistoryRepository)(nil)
