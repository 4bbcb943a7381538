package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"sadad-payment-service/internal/core/domain"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func anyArgs(n int) []any {
	args := make([]any, n)
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	return args
}

func newTestTransaction() *domain.PaymentTransaction {
	now := time.Now().UTC().Truncate(time.Microsecond)
	productOrderID := uuid.New()
	return &domain.PaymentTransaction{
		ID:             uuid.New(),
		OrderID:        "PROD-17723573000001234",
		SourceKind:     domain.SourceKindProductOrder,
		ProductOrderID: &productOrderID,
		CustomerID:     uuid.New(),
		Amount:         decimal.RequireFromString("120.50"),
		Currency:       "QAR",
		PaymentMethod:  domain.PaymentMethodSadad,
		Status:         domain.TransactionStatusPending,
		Metadata:       map[string]any{"order_type": "product_order"},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func txColumns() []string {
	return []string{"id", "order_id", "transaction_number", "source_kind", "booking_id", "product_order_id",
		"customer_id", "amount", "currency", "payment_method", "status", "response_code", "response_message",
		"error_message", "metadata", "created_at", "updated_at", "payment_date", "verified_at"}
}

func txRow(t *domain.PaymentTransaction) *pgxmock.Rows {
	return pgxmock.NewRows(txColumns()).AddRow(
		t.ID, t.OrderID, t.TransactionNumber, string(t.SourceKind), t.BookingID, t.ProductOrderID,
		t.CustomerID, t.Amount, t.Currency, t.PaymentMethod, string(t.Status), t.ResponseCode, t.ResponseMessage,
		t.ErrorMessage, t.Metadata, t.CreatedAt, t.UpdatedAt, t.PaymentDate, t.VerifiedAt,
	)
}

func TestTransactionRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)
	txn := newTestTransaction()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO payment_transactions").
		WithArgs(
			txn.ID, txn.OrderID, txn.TransactionNumber, string(txn.SourceKind), txn.BookingID, txn.ProductOrderID,
			txn.CustomerID, txn.Amount, txn.Currency, txn.PaymentMethod, string(txn.Status), txn.ResponseCode,
			txn.ResponseMessage, txn.ErrorMessage, txn.Metadata, txn.CreatedAt, txn.UpdatedAt,
			txn.PaymentDate, txn.VerifiedAt,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	dbTx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.Create(context.Background(), dbTx, txn)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepo_Create_DuplicateOrderID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO payment_transactions").
		WithArgs(anyArgs(19)...).
		WillReturnError(errors.New(`duplicate key value violates unique constraint "payment_transactions_order_id_key"`))

	dbTx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.Create(context.Background(), dbTx, newTestTransaction())
	assert.ErrorContains(t, err, "insert transaction")
}

func TestTransactionRepo_GetByOrderID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)
	txn := newTestTransaction()
	txn.TransactionNumber = strPtr("SD123")

	mock.ExpectQuery("SELECT .+ FROM payment_transactions WHERE order_id").
		WithArgs(txn.OrderID).
		WillReturnRows(txRow(txn))

	result, err := repo.GetByOrderID(context.Background(), txn.OrderID)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, txn.ID, result.ID)
	assert.Equal(t, domain.SourceKindProductOrder, result.SourceKind)
	assert.Equal(t, domain.TransactionStatusPending, result.Status)
	assert.True(t, txn.Amount.Equal(result.Amount))
	assert.Equal(t, "SD123", *result.TransactionNumber)
	assert.Equal(t, *txn.ProductOrderID, result.SourceID())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepo_GetByOrderID_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)

	mock.ExpectQuery("SELECT .+ FROM payment_transactions WHERE order_id").
		WithArgs(pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows(txColumns()))

	result, err := repo.GetByOrderID(context.Background(), "missing")
	assert.NoError(t, err)
	assert.Nil(t, result)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepo_GetByOrderIDForUpdate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)
	txn := newTestTransaction()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM payment_transactions WHERE order_id = .+ FOR UPDATE").
		WithArgs(txn.OrderID).
		WillReturnRows(txRow(txn))

	dbTx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	result, err := repo.GetByOrderIDForUpdate(context.Background(), dbTx, txn.OrderID)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, txn.OrderID, result.OrderID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepo_ApplyUpdate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)
	id := uuid.New()
	now := time.Now().UTC()
	update := domain.TransactionUpdate{
		Status:            domain.TransactionStatusCompleted,
		TransactionNumber: strPtr("SD123"),
		ResponseCode:      strPtr("1"),
		ResponseMessage:   strPtr("Transaction successful"),
		Metadata:          map[string]any{"checksum_verified": true},
		PaymentDate:       &now,
		VerifiedAt:        &now,
	}

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE payment_transactions SET").
		WithArgs(
			"completed", update.TransactionNumber, update.ResponseCode, update.ResponseMessage, update.ErrorMessage,
			update.Metadata, update.PaymentDate, update.VerifiedAt, pgxmock.AnyArg(), id,
		).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	dbTx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.ApplyUpdate(context.Background(), dbTx, id, update)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepo_ApplyUpdate_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE payment_transactions SET").
		WithArgs(anyArgs(10)...).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	dbTx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.ApplyUpdate(context.Background(), dbTx, uuid.New(), domain.TransactionUpdate{Status: domain.TransactionStatusFailed})
	assert.ErrorContains(t, err, "transaction not found")
}
