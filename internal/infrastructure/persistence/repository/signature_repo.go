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

// SignatureRepository implements port.SignatureRepository
type SignatureRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSignatureRepository creates a new signature repository
func NewSignatureRepository(db *sql.DB, logger *zap.Logger) port.SignatureRepository {
	return &SignatureRepository{
		db:     db,
		logger: logger,
	}
}

const signatureColumns = `
	id, application_id, role_slot, signature_ref, document_ref, status,
	is_verified, signed_by, requested_at, signed_at, created_at, updated_at`

// Create inserts a new signature record
func (r *SignatureRepository) Create(ctx context.Context, sig *entity.DigitalSignature) error {
	query := `
		INSERT INTO digital_signatures (
			application_id, role_slot, signature_ref, document_ref, status,
			is_verified, signed_by, requested_at, signed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := getExecutor(ctx, r.db).ExecContext(ctx, query,
		sig.ApplicationID,
		sig.RoleSlot,
		nullString(sig.SignatureRef),
		nullString(sig.DocumentRef),
		sig.Status,
		sig.IsVerified,
		nullInt64(sig.SignedBy),
		nullTime(sig.RequestedAt),
		nullTime(sig.SignedAt),
	)
	if err != nil {
		r.logger.Error("Failed to create digital signature",
			zap.Int64("application_id", sig.ApplicationID),
			zap.String("role_slot", sig.RoleSlot),
			zap.Error(err))
		return fmt.Errorf("failed to create digital signature: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	sig.ID = id
	return nil
}

// GetByApplicationAndSlot retrieves the signature record for one stage of an
// application
func (r *SignatureRepository) GetByApplicationAndSlot(ctx context.Context, applicationID int64, roleSlot string) (*entity.DigitalSignature, error) {
	query := `SELECT` + signatureColumns + ` FROM digital_signatures
		WHERE application_id = ? AND role_slot = ?`

	sig, err := scanSignature(getExecutor(ctx, r.db).QueryRowContext(ctx, query, applicationID, roleSlot))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, port.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get digital signature: %w", err)
	}
	return sig, nil
}

// ListByApplication returns all signature records for an application
func (r *SignatureRepository) ListByApplication(ctx context.Context, applicationID int64) ([]*entity.DigitalSignature, error) {
	query := `SELECT` + signatureColumns + ` FROM digital_signatures WHERE application_id = ? ORDER BY id`

	rows, err := getExecutor(ctx, r.db).QueryContext(ctx, query, applicationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list digital signatures: %w", err)
	}
	defer rows.Close()

	var result []*entity.DigitalSignature
	for rows.Next() {
		sig, err := scanSignature(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan digital signature: %w", err)
		}
		result = append(result, sig)
	}
	return result, rows.Err()
}

// Update rewrites a signature record after an HSM round trip
func (r *SignatureRepository) Update(ctx context.Context, sig *entity.DigitalSignature) error {
	query := `
		UPDATE digital_signatures SET
			signature_ref = ?, document_ref = ?, status = ?, is_verified = ?,
			signed_by = ?, requested_at = ?, signed_at = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`

	result, err := getExecutor(ctx, r.db).ExecContext(ctx, query,
		nullString(sig.SignatureRef),
		nullString(sig.DocumentRef),
		sig.Status,
		sig.IsVerified,
		nullInt64(sig.SignedBy),
		nullTime(sig.RequestedAt),
		nullTime(sig.SignedAt),
		sig.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update digital signature",
			zap.Int64("signature_id", sig.ID),
			zap.Error(err))
		return fmt.Errorf("failed to update digital signature: %w", err)
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

func scanSignature(row rowScanner) (*entity.DigitalSignature, error) {
	var sig entity.DigitalSignature
	var signatureRef, documentRef sql.NullString
	var signedBy sql.NullInt64
	var requestedAt, signedAt sql.NullTime

	err := row.Scan(
		&sig.ID,
		&sig.ApplicationID,
		&sig.RoleSlot,
		&signatureRef,
		&documentRef,
		&sig.Status,
		&sig.IsVerified,
		&signedBy,
		&requestedAt,
		&signedAt,
		&sig.CreatedAt,
		&sig.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	sig.SignatureRef = signatureRef.String
	sig.DocumentRef = documentRef.String
	sig.SignedBy = int64Ptr(signedBy)
	sig.RequestedAt = timePtr(requestedAt)
	sig.SignedAt = timePtr(signedAt)
	return &sig, nil
}

// Verify interface compliance
var _ port.SignatureRepository = (*SignatureRepository)(nil)
