package postgres

import (
	"context"

	"sadad-payment-service/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const bookingSelect = `SELECT b.id, b.customer_id, b.artist_id, b.total_amount, b.status, b.payment_status, b.gateway_order_id,
		p.email, p.phone, p.full_name, s.name
		FROM bookings b
		JOIN profiles p ON p.id = b.customer_id
		LEFT JOIN services s ON s.id = b.service_id
		WHERE b.id = $1`

// BookingRepo implements ports.SourceRepository for bookings.
type BookingRepo struct {
	pool Pool
}

// NewBookingRepo creates a new BookingRepo.
func NewBookingRepo(pool Pool) *BookingRepo {
	return &BookingRepo{pool: pool}
}

// Kind returns domain.SourceKindBooking.
func (r *BookingRepo) Kind() domain.SourceKind {
	return domain.SourceKindBooking
}

// Get fetches a booking with its customer contact.
func (r *BookingRepo) Get(ctx context.Context, id uuid.UUID) (*domain.SourceRecord, error) {
	return r.get(ctx, r.pool, bookingSelect, id)
}

// GetForUpdate fetches and row-locks a booking inside tx.
func (r *BookingRepo) GetForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.SourceRecord, error) {
	return r.get(ctx, tx, bookingSelect+` FOR UPDATE OF b`, id)
}

// UpdatePayment writes the payment state back onto the booking.
func (r *BookingRepo) UpdatePayment(ctx context.Context, tx pgx.Tx, u domain.SourcePaymentUpdate) error {
	return updateSourcePayment(ctx, tx, "bookings", u)
}

// get maps the booked service to a single line item carrying the booking total.
func (r *BookingRepo) get(ctx context.Context, q querier, query string, id uuid.UUID) (*domain.SourceRecord, error) {
	var service *string
	src, err := scanSource(domain.SourceKindBooking, q.QueryRow(ctx, query, id), &service)
	if err != nil || src == nil {
		return nil, err
	}
	if service != nil && *service != "" {
		src.LineItems = []domain.LineItem{{Name: *service, UnitPrice: src.TotalAmount, Quantity: 1}}
	}
	return src, nil
}
