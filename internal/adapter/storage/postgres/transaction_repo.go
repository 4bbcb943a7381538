package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sadad-payment-service/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const txSelectColumns = `id, order_id, transaction_number, source_kind, booking_id, product_order_id, customer_id,
		amount, currency, payment_method, status, response_code, response_message, error_message, metadata,
		created_at, updated_at, payment_date, verified_at`

// TransactionRepo implements ports.TransactionRepository.
type TransactionRepo struct {
	pool Pool
}

// NewTransactionRepo creates a new TransactionRepo.
func NewTransactionRepo(pool Pool) *TransactionRepo {
	return &TransactionRepo{pool: pool}
}

// Create inserts a new transaction within a database transaction.
func (r *TransactionRepo) Create(ctx context.Context, tx pgx.Tx, t *domain.PaymentTransaction) error {
	query := `INSERT INTO payment_transactions (` + txSelectColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`

	_, err := tx.Exec(ctx, query,
		t.ID, t.OrderID, t.TransactionNumber, string(t.SourceKind), t.BookingID, t.ProductOrderID, t.CustomerID,
		t.Amount, t.Currency, t.PaymentMethod, string(t.Status), t.ResponseCode, t.ResponseMessage, t.ErrorMessage,
		t.Metadata, t.CreatedAt, t.UpdatedAt, t.PaymentDate, t.VerifiedAt,
	)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// GetByOrderID fetches a transaction by gateway order id.
func (r *TransactionRepo) GetByOrderID(ctx context.Context, orderID string) (*domain.PaymentTransaction, error) {
	query := `SELECT ` + txSelectColumns + ` FROM payment_transactions WHERE order_id = $1`

	return r.scanTransaction(r.pool.QueryRow(ctx, query, orderID))
}

// GetByOrderIDForUpdate fetches and row-locks a transaction inside tx.
// Concurrent callbacks for the same order serialize here.
func (r *TransactionRepo) GetByOrderIDForUpdate(ctx context.Context, tx pgx.Tx, orderID string) (*domain.PaymentTransaction, error) {
	query := `SELECT ` + txSelectColumns + ` FROM payment_transactions WHERE order_id = $1 FOR UPDATE`

	return r.scanTransaction(tx.QueryRow(ctx, query, orderID))
}

// ApplyUpdate writes a callback outcome. Transaction number, payment date and
// verification time are never cleared once set.
func (r *TransactionRepo) ApplyUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID, u domain.TransactionUpdate) error {
	query := `UPDATE payment_transactions SET
		status = $1,
		transaction_number = COALESCE($2, transaction_number),
		response_code = $3,
		response_message = $4,
		error_message = $5,
		metadata = $6,
		payment_date = COALESCE($7, payment_date),
		verified_at = COALESCE($8, verified_at),
		updated_at = $9
		WHERE id = $10`

	tag, err := tx.Exec(ctx, query,
		string(u.Status), u.TransactionNumber, u.ResponseCode, u.ResponseMessage, u.ErrorMessage,
		u.Metadata, u.PaymentDate, u.VerifiedAt, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("transaction not found: %s", id)
	}
	return nil
}

// scanTransaction is a helper to scan a single row into a PaymentTransaction.
func (r *TransactionRepo) scanTransaction(row pgx.Row) (*domain.PaymentTransaction, error) {
	t := &domain.PaymentTransaction{}
	var kind, status string
	err := row.Scan(
		&t.ID, &t.OrderID, &t.TransactionNumber, &kind, &t.BookingID, &t.ProductOrderID, &t.CustomerID,
		&t.Amount, &t.Currency, &t.PaymentMethod, &status, &t.ResponseCode, &t.ResponseMessage, &t.ErrorMessage,
		&t.Metadata, &t.CreatedAt, &t.UpdatedAt, &t.PaymentDate, &t.VerifiedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan transaction: %w", err)
	}
	t.SourceKind = domain.SourceKind(kind)
	t.Status = domain.TransactionStatus(status)
	return t, nil
}
