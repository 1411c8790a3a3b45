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

// DocumentVerificationRepository implements port.DocumentVerificationRepository
type DocumentVerificationRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewDocumentVerificationRepository creates a new document verification repository
func NewDocumentVerificationRepository(db *sql.DB, logger *zap.Logger) port.DocumentVerificationRepository {
	return &DocumentVerificationRepository{
		db:     db,
		logger: logger,
	}
}

const verificationColumns = `
	id, application_id, document_type, document_ref, status, required,
	remarks, verified_by, verified_at, created_at, updated_at`

// Create inserts a new checklist entry
func (r *DocumentVerificationRepository) Create(ctx context.Context, dv *entity.DocumentVerification) error {
	query := `
		INSERT INTO document_verifications (
			application_id, document_type, document_ref, status, required, remarks
		) VALUES (?, ?, ?, ?, ?, ?)
	`

	result, err := getExecutor(ctx, r.db).ExecContext(ctx, query,
		dv.ApplicationID,
		dv.DocumentType,
		nullString(dv.DocumentRef),
		dv.Status,
		dv.Required,
		nullString(dv.Remarks),
	)
	if err != nil {
		r.logger.Error("Failed to create document verification",
			zap.Int64("application_id", dv.ApplicationID),
			zap.String("document_type", dv.DocumentType),
			zap.Error(err))
		return fmt.Errorf("failed to create document verification: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	dv.ID = id
	return nil
}

// GetByID retrieves a checklist entry by ID
func (r *DocumentVerificationRepository) GetByID(ctx context.Context, id int64) (*entity.DocumentVerification, error) {
	query := `SELECT` + verificationColumns + ` FROM document_verifications WHERE id = ?`

	dv, err := scanVerification(getExecutor(ctx, r.db).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, port.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get document verification: %w", err)
	}
	return dv, nil
}

// ListByApplication returns an application's document checklist
func (r *DocumentVerificationRepository) ListByApplication(ctx context.Context, applicationID int64) ([]*entity.DocumentVerification, error) {
	query := `SELECT` + verificationColumns + ` FROM document_verifications WHERE application_id = ? ORDER BY id`

	rows, err := getExecutor(ctx, r.db).QueryContext(ctx, query, applicationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list document verifications: %w", err)
	}
	defer rows.Close()

	var result []*entity.DocumentVerification
	for rows.Next() {
		dv, err := scanVerification(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document verification: %w", err)
		}
		result = append(result, dv)
	}
	return result, rows.Err()
}

// UpdateStatus moves a checklist entry through its own lifecycle
func (r *DocumentVerificationRepository) UpdateStatus(ctx context.Context, id int64, status, remarks string, verifiedBy *int64) error {
	query := `
		UPDATE document_verifications SET
			status = ?, remarks = ?, verified_by = ?,
			verified_at = CASE WHEN ? THEN CURRENT_TIMESTAMP ELSE verified_at END,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`

	decided := status == entity.VerificationApproved || status == entity.VerificationRejected
	result, err := getExecutor(ctx, r.db).ExecContext(ctx, query,
		status, nullString(remarks), nullInt64(verifiedBy), decided, id)
	if err != nil {
		return fmt.Errorf("failed to update document verification: %w", err)
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

func scanVerification(row rowScanner) (*entity.DocumentVerification, error) {
	var dv entity.DocumentVerification
	var documentRef, remarks sql.NullString
	var verifiedBy sql.NullInt64
	var verifiedAt sql.NullTime

	err := row.Scan(
		&dv.ID,
		&dv.ApplicationID,
		&dv.DocumentType,
		&documentRef,
		&dv.Status,
		&dv.Required,
		&remarks,
		&verifiedBy,
		&verifiedAt,
		&dv.CreatedAt,
		&dv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	dv.DocumentRef = documentRef.String
	dv.Remarks = remarks.String
	dv.VerifiedBy = int64Ptr(verifiedBy)
	dv.VerifiedAt = timePtr(verifiedAt)
	return &dv, nil
}

// Verify interface compliance
var _ port.DocumentVerificationRepository = (*DocumentVerificationRepository)(nil)
