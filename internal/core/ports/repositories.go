package ports

import (
	"context"

	"sadad-payment-service/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// TransactionRepository defines persistence operations for payment transactions.
// Lookups return nil, nil when no row matches.
type TransactionRepository interface {
	Create(ctx context.Context, tx pgx.Tx, transaction *domain.PaymentTransaction) error
	GetByOrderID(ctx context.Context, orderID string) (*domain.PaymentTransaction, error)
	GetByOrderIDForUpdate(ctx context.Context, tx pgx.Tx, orderID string) (*domain.PaymentTransaction, error)
	ApplyUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID, update domain.TransactionUpdate) error
}

// SourceRepository reads and updates the payment fields of a booking or product order.
// One implementation exists per SourceKind.
type SourceRepository interface {
	Kind() domain.SourceKind
	Get(ctx context.Context, id uuid.UUID) (*domain.SourceRecord, error)
	GetForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.SourceRecord, error)
	UpdatePayment(ctx context.Context, tx pgx.Tx, update domain.SourcePaymentUpdate) error
}

// NotificationRepository inserts notification rows. Duplicates per
// (user, source, type) are skipped; the returned count is the number inserted.
type NotificationRepository interface {
	CreateMany(ctx context.Context, notifications []domain.Notification) (int, error)
}

// AuditRepository persists audit entries.
type AuditRepository interface {
	Create(ctx context.Context, log *domain.AuditLog) error
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
