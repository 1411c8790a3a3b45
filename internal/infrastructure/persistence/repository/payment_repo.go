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

// PaymentRepository implements port.PaymentRepository
type PaymentRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewPaymentRepository creates a new payment repository
func NewPaymentRepository(db *sql.DB, logger *zap.Logger) port.PaymentRepository {
	return &PaymentRepository{
		db:     db,
		logger: logger,
	}
}

const paymentColumns = `
	id, application_id, transaction_ref, status, amount_paid, fee_amount,
	paid_at, created_at`

// Create inserts a new payment record
func (r *PaymentRepository) Create(ctx context.Context, payment *entity.PaymentRecord) error {
	query := `
		INSERT INTO payment_records (
			application_id, transaction_ref, status, amount_paid, fee_amount, paid_at
		) VALUES (?, ?, ?, ?, ?, ?)
	`

	result, err := getExecutor(ctx, r.db).ExecContext(ctx, query,
		payment.ApplicationID,
		payment.TransactionRef,
		payment.Status,
		payment.AmountPaid,
		payment.FeeAmount,
		nullTime(payment.PaidAt),
	)
	if err != nil {
		r.logger.Error("Failed to create payment record",
			zap.Int64("application_id", payment.ApplicationID),
			zap.Error(err))
		return fmt.Errorf("failed to create payment record: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	payment.ID = id
	return nil
}

// GetLatestByApplication retrieves the most recent payment attempt
func (r *PaymentRepository) GetLatestByApplication(ctx context.Context, applicationID int64) (*entity.PaymentRecord, error) {
	query := `SELECT` + paymentColumns + ` FROM payment_records
		WHERE application_id = ? ORDER BY id DESC LIMIT 1`

	payment, err := scanPayment(getExecutor(ctx, r.db).QueryRowContext(ctx, query, applicationID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, port.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get payment record: %w", err)
	}
	return payment, nil
}

// ListByApplication returns all payment attempts, oldest first
func (r *PaymentRepository) ListByApplication(ctx context.Context, applicationID int64) ([]*entity.PaymentRecord, error) {
	query := `SELECT` + paymentColumns + ` FROM payment_records WHERE application_id = ? ORDER BY id`

	rows, err := getExecutor(ctx, r.db).QueryContext(ctx, query, applicationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payment records: %w", err)
	}
	defer rows.Close()

	var result []*entity.PaymentRecord
	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payment record: %w", err)
		}
		result = append(result, payment)
	}
	return result, rows.Err()
}

func scanPayment(row rowScanner) (*entity.PaymentRecord, error) {
	var payment entity.PaymentRecord
	var paidAt sql.NullTime

	err := row.Scan(
		&payment.ID,
		&payment.ApplicationID,
		&payment.TransactionRef,
		&payment.Status,
		&payment.AmountPaid,
		&payment.FeeAmount,
		&paidAt,
		&payment.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	payment.PaidAt = timePtr(paidAt)
	return &payment, nil
}

// Verify interface compliance
var _ port.PaymentRepository = (*PaymentRepository)(nil)
