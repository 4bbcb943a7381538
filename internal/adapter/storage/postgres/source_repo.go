package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sadad-payment-service/internal/core/domain"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// scanSource reads the columns shared by the booking and product order queries:
// id, customer_id, counterparty, total, status, payment_status, gateway_order_id,
// email, phone, name.
func scanSource(kind domain.SourceKind, row pgx.Row, extra ...any) (*domain.SourceRecord, error) {
	src := &domain.SourceRecord{Kind: kind}
	var gatewayOrderID, email, phone, name *string
	dest := []any{
		&src.ID, &src.CustomerID, &src.ArtistID, &src.TotalAmount, &src.Status, &src.PaymentStatus,
		&gatewayOrderID, &email, &phone, &name,
	}
	dest = append(dest, extra...)

	if err := row.Scan(dest...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan %s: %w", kind, err)
	}
	src.GatewayOrderID = deref(gatewayOrderID)
	src.CustomerEmail = deref(email)
	src.CustomerPhone = deref(phone)
	src.CustomerName = deref(name)
	return src, nil
}

// updateSourcePayment writes the payment columns of a booking or product order.
// An empty record status leaves the record status unchanged.
func updateSourcePayment(ctx context.Context, tx pgx.Tx, table string, u domain.SourcePaymentUpdate) error {
	query := fmt.Sprintf(`UPDATE %s SET
		payment_method = $1,
		payment_status = $2,
		status = COALESCE(NULLIF($3, ''), status),
		gateway_order_id = $4,
		transaction_number = COALESCE($5, transaction_number),
		updated_at = $6
		WHERE id = $7`, table)

	tag, err := tx.Exec(ctx, query,
		u.PaymentMethod, u.PaymentStatus, u.Status, u.GatewayOrderID, u.TransactionNumber, time.Now().UTC(), u.ID,
	)
	if err != nil {
		return fmt.Errorf("update %s payment: %w", table, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s not found: %s", table, u.ID)
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// lineItem is scanned with a nullable price so a missing catalog price falls back to the order total.
func lineItem(name string, price *decimal.Decimal, qty int) domain.LineItem {
	item := domain.LineItem{Name: name, Quantity: qty}
	if price != nil {
		item.UnitPrice = *price
	}
	if item.Quantity <= 0 {
		item.Quantity = 1
	}
	return item
}
