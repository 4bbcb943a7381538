package postgres

import (
	"context"
	"fmt"

	"sadad-payment-service/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const productOrderSelect = `SELECT o.id, o.customer_id, o.artist_id, o.total_amount, o.status, o.payment_status, o.gateway_order_id,
		p.email, p.phone, p.full_name
		FROM product_orders o
		JOIN profiles p ON p.id = o.customer_id
		WHERE o.id = $1`

const productOrderItemsSelect = `SELECT i.product_name, i.unit_price, i.quantity
		FROM product_order_items i
		WHERE i.order_id = $1
		ORDER BY i.created_at, i.id`

// ProductOrderRepo implements ports.SourceRepository for product orders.
type ProductOrderRepo struct {
	pool Pool
}

// NewProductOrderRepo creates a new ProductOrderRepo.
func NewProductOrderRepo(pool Pool) *ProductOrderRepo {
	return &ProductOrderRepo{pool: pool}
}

// Kind returns domain.SourceKindProductOrder.
func (r *ProductOrderRepo) Kind() domain.SourceKind {
	return domain.SourceKindProductOrder
}

// Get fetches a product order with its customer contact and line items.
func (r *ProductOrderRepo) Get(ctx context.Context, id uuid.UUID) (*domain.SourceRecord, error) {
	return r.get(ctx, r.pool, productOrderSelect, id)
}

// GetForUpdate fetches and row-locks a product order inside tx.
func (r *ProductOrderRepo) GetForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.SourceRecord, error) {
	return r.get(ctx, tx, productOrderSelect+` FOR UPDATE OF o`, id)
}

// UpdatePayment writes the payment state back onto the product order.
func (r *ProductOrderRepo) UpdatePayment(ctx context.Context, tx pgx.Tx, u domain.SourcePaymentUpdate) error {
	return updateSourcePayment(ctx, tx, "product_orders", u)
}

func (r *ProductOrderRepo) get(ctx context.Context, q querier, query string, id uuid.UUID) (*domain.SourceRecord, error) {
	src, err := scanSource(domain.SourceKindProductOrder, q.QueryRow(ctx, query, id))
	if err != nil || src == nil {
		return nil, err
	}

	rows, err := q.Query(ctx, productOrderItemsSelect, id)
	if err != nil {
		return nil, fmt.Errorf("list product order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			name  string
			price *decimal.Decimal
			qty   int
		)
		if err := rows.Scan(&name, &price, &qty); err != nil {
			return nil, fmt.Errorf("scan product order item: %w", err)
		}
		src.LineItems = append(src.LineItems, lineItem(name, price, qty))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product order items: %w", err)
	}
	return src, nil
}
