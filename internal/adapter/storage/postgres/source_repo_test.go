package postgres

import (
	"context"
	"testing"

	"sadad-payment-service/internal/core/domain"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sourceColumns = []string{"id", "customer_id", "artist_id", "total_amount", "status", "payment_status",
	"gateway_order_id", "email", "phone", "full_name"}

func decPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func TestBookingRepo_Get(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewBookingRepo(mock)
	id, customer, artist := uuid.New(), uuid.New(), uuid.New()

	mock.ExpectQuery("SELECT .+ FROM bookings b").
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows(append(sourceColumns, "name")).AddRow(
			id, customer, &artist, decimal.RequireFromString("250.00"), "pending", "pending", (*string)(nil),
			strPtr("layla@example.com"), strPtr("+97455551234"), strPtr("Layla"), strPtr("Bridal makeup"),
		))

	src, err := repo.Get(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, src)

	assert.Equal(t, domain.SourceKindBooking, src.Kind)
	assert.Equal(t, customer, src.CustomerID)
	assert.Equal(t, artist, *src.ArtistID)
	assert.Equal(t, "layla@example.com", src.CustomerEmail)
	assert.Equal(t, "Layla", src.CustomerName)
	require.Len(t, src.LineItems, 1)
	assert.Equal(t, "Bridal makeup", src.LineItems[0].Name)
	assert.Equal(t, "250.00", src.LineItems[0].Amount().StringFixed(2))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepo_Get_NullContactAndService(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewBookingRepo(mock)
	id := uuid.New()

	mock.ExpectQuery("SELECT .+ FROM bookings b").
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows(append(sourceColumns, "name")).AddRow(
			id, uuid.New(), (*uuid.UUID)(nil), decimal.RequireFromString("80"), "pending", "pending", (*string)(nil),
			(*string)(nil), (*string)(nil), (*string)(nil), (*string)(nil),
		))

	src, err := repo.Get(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, src)
	assert.Nil(t, src.ArtistID)
	assert.Empty(t, src.CustomerEmail)
	assert.Empty(t, src.LineItems)
}

func TestBookingRepo_Get_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewBookingRepo(mock)

	mock.ExpectQuery("SELECT .+ FROM bookings b").
		WithArgs(pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows(append(sourceColumns, "name")))

	src, err := repo.Get(context.Background(), uuid.New())
	assert.NoError(t, err)
	assert.Nil(t, src)
}

func TestBookingRepo_GetForUpdate_Locks(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewBookingRepo(mock)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM bookings b .+ FOR UPDATE OF b").
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows(append(sourceColumns, "name")).AddRow(
			id, uuid.New(), (*uuid.UUID)(nil), decimal.RequireFromString("80"), "pending", "processing", strPtr("17723573000001234"),
			(*string)(nil), (*string)(nil), (*string)(nil), (*string)(nil),
		))

	dbTx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	src, err := repo.GetForUpdate(context.Background(), dbTx, id)
	require.NoError(t, err)
	assert.Equal(t, "processing", src.PaymentStatus)
	assert.Equal(t, "17723573000001234", src.GatewayOrderID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepo_UpdatePayment(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewBookingRepo(mock)
	u := domain.SourcePaymentUpdate{
		Kind:              domain.SourceKindBooking,
		ID:                uuid.New(),
		PaymentMethod:     domain.PaymentMethodSadad,
		PaymentStatus:     domain.SourcePaymentPaid,
		Status:            domain.SourceStatusConfirmed,
		GatewayOrderID:    "17723573000001234",
		TransactionNumber: strPtr("SD1"),
	}

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE bookings SET").
		WithArgs("sadad", "paid", "confirmed", "17723573000001234", u.TransactionNumber, pgxmock.AnyArg(), u.ID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	dbTx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	assert.NoError(t, repo.UpdatePayment(context.Background(), dbTx, u))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductOrderRepo_Get_WithItems(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewProductOrderRepo(mock)
	id, seller := uuid.New(), uuid.New()

	mock.ExpectQuery("SELECT .+ FROM product_orders o").
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows(sourceColumns).AddRow(
			id, uuid.New(), &seller, decimal.RequireFromString("135.00"), "pending", "pending", (*string)(nil),
			strPtr("a@b.qa"), strPtr("55551234"), strPtr("Noor"),
		))
	mock.ExpectQuery("SELECT .+ FROM product_order_items").
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"product_name", "unit_price", "quantity"}).
			AddRow("Lipstick", decPtr("45.00"), 2).
			AddRow("Gift wrap", (*decimal.Decimal)(nil), 0))

	src, err := repo.Get(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, src)
	assert.Equal(t, domain.SourceKindProductOrder, src.Kind)
	require.Len(t, src.LineItems, 2)
	assert.Equal(t, "90.00", src.LineItems[0].Amount().StringFixed(2))
	assert.Equal(t, 1, src.LineItems[1].Quantity)
	assert.True(t, src.LineItems[1].UnitPrice.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductOrderRepo_Get_NotFoundSkipsItems(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewProductOrderRepo(mock)

	mock.ExpectQuery("SELECT .+ FROM product_orders o").
		WithArgs(pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows(sourceColumns))

	src, err := repo.Get(context.Background(), uuid.New())
	assert.NoError(t, err)
	assert.Nil(t, src)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductOrderRepo_UpdatePayment_KeepsStatusWhenEmpty(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewProductOrderRepo(mock)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE product_orders SET .+ status = COALESCE\(NULLIF`).
		WithArgs("sadad", "processing", "", "PROD-1", (*string)(nil), pgxmock.AnyArg(), id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	dbTx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.UpdatePayment(context.Background(), dbTx, domain.SourcePaymentUpdate{
		ID:             id,
		PaymentMethod:  domain.PaymentMethodSadad,
		PaymentStatus:  domain.SourcePaymentProcessing,
		GatewayOrderID: "PROD-1",
	})
	assert.ErrorContains(t, err, "product_orders not found")
}
