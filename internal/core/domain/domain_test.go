package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransactionStatus_IsTerminal(t *testing.T) {
	tests := []struct {
		name   string
		status TransactionStatus
		want   bool
	}{
		{"pending", TransactionStatusPending, false},
		{"processing", TransactionStatusProcessing, false},
		{"completed", TransactionStatusCompleted, true},
		{"failed", TransactionStatusFailed, true},
		{"cancelled", TransactionStatusCancelled, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := &PaymentTransaction{Status: tt.status}
			assert.Equal(t, tt.want, tx.IsTerminal())
		})
	}
}

func TestTransactionStatus_CanTransition(t *testing.T) {
	tests := []struct {
		name string
		from TransactionStatus
		to   TransactionStatus
		want bool
	}{
		{"pending to completed", TransactionStatusPending, TransactionStatusCompleted, true},
		{"pending to failed", TransactionStatusPending, TransactionStatusFailed, true},
		{"pending to cancelled", TransactionStatusPending, TransactionStatusCancelled, true},
		{"pending to processing", TransactionStatusPending, TransactionStatusProcessing, true},
		{"processing to completed", TransactionStatusProcessing, TransactionStatusCompleted, true},
		{"processing back to pending", TransactionStatusProcessing, TransactionStatusPending, false},
		{"pending to pending", TransactionStatusPending, TransactionStatusPending, false},
		{"completed never regresses", TransactionStatusCompleted, TransactionStatusPending, false},
		{"completed to failed", TransactionStatusCompleted, TransactionStatusFailed, false},
		{"completed replay", TransactionStatusCompleted, TransactionStatusCompleted, false},
		{"failed to completed", TransactionStatusFailed, TransactionStatusCompleted, false},
		{"cancelled to completed", TransactionStatusCancelled, TransactionStatusCompleted, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransition(tt.to))
		})
	}
}

func TestPaymentTransaction_SourceID(t *testing.T) {
	bookingID := uuid.New()
	orderID := uuid.New()

	booking := &PaymentTransaction{SourceKind: SourceKindBooking, BookingID: &bookingID}
	assert.Equal(t, bookingID, booking.SourceID())

	product := &PaymentTransaction{SourceKind: SourceKindProductOrder, ProductOrderID: &orderID}
	assert.Equal(t, orderID, product.SourceID())

	assert.Equal(t, uuid.Nil, (&PaymentTransaction{}).SourceID())
}

func TestLineItem_Amount(t *testing.T) {
	item := LineItem{Name: "Lipstick", UnitPrice: decimal.RequireFromString("40.50"), Quantity: 3}
	assert.Equal(t, "121.50", item.Amount().StringFixed(2))
}

func TestSourceUpdateFor(t *testing.T) {
	tests := []struct {
		status        TransactionStatus
		paymentStatus string
		recordStatus  string
	}{
		{TransactionStatusCompleted, SourcePaymentPaid, SourceStatusConfirmed},
		{TransactionStatusFailed, SourcePaymentFailed, ""},
		{TransactionStatusCancelled, SourcePaymentCancelled, ""},
		{TransactionStatusProcessing, SourcePaymentProcessing, ""},
		{TransactionStatusPending, SourcePaymentPending, ""},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			ps, rs := SourceUpdateFor(tt.status)
			assert.Equal(t, tt.paymentStatus, ps)
			assert.Equal(t, tt.recordStatus, rs)
		})
	}
}

func TestCompletionNotifications(t *testing.T) {
	artistID := uuid.New()
	src := &SourceRecord{
		Kind:       SourceKindBooking,
		ID:         uuid.New(),
		CustomerID: uuid.New(),
		ArtistID:   &artistID,
	}
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	notes := CompletionNotifications(src, decimal.RequireFromString("250"), "QAR", now)
	require.Len(t, notes, 2)

	assert.Equal(t, src.CustomerID, notes[0].UserID)
	assert.Equal(t, NotificationPaymentSuccessful, notes[0].Type)
	assert.Contains(t, notes[0].Message, "250.00 QAR")
	assert.Equal(t, src.ID, notes[0].SourceID)

	assert.Equal(t, artistID, notes[1].UserID)
	assert.Equal(t, NotificationPaymentReceived, notes[1].Type)
	assert.Equal(t, now, notes[1].CreatedAt)
}

func TestCompletionNotifications_NoArtist(t *testing.T) {
	src := &SourceRecord{Kind: SourceKindProductOrder, ID: uuid.New(), CustomerID: uuid.New()}
	notes := CompletionNotifications(src, decimal.NewFromInt(10), "QAR", time.Now())
	require.Len(t, notes, 1)
	assert.Contains(t, notes[0].Message, "order")
}

func TestGatewayCodeTable_MapResponseCode(t *testing.T) {
	table := DefaultGatewayCodes()

	tests := []struct {
		name       string
		code       string
		gatewayMsg string
		wantStatus TransactionStatus
		wantMsg    string
	}{
		{"success", "1", "", TransactionStatusCompleted, "Transaction successful"},
		{"success ignores gateway text", "1", "Txn Success", TransactionStatusCompleted, "Transaction successful"},
		{"pending", "400", "", TransactionStatusPending, "Transaction is pending"},
		{"bank confirmation", "402", "", TransactionStatusPending, "Pending confirmation from bank"},
		{"cancelled", "141", "", TransactionStatusCancelled, "Transaction cancelled by customer"},
		{"failed with gateway message", "810", "Card declined", TransactionStatusFailed, "Card declined"},
		{"failed terse code", "810", "", TransactionStatusFailed, "Transaction failed"},
		{"unknown fails closed", "9999", "whatever", TransactionStatusFailed, ServerErrorMessage},
		{"empty fails closed", "", "", TransactionStatusFailed, ServerErrorMessage},
		{"whitespace trimmed", " 1 ", "", TransactionStatusCompleted, "Transaction successful"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, msg := table.MapResponseCode(tt.code, tt.gatewayMsg)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantMsg, msg)
		})
	}
}

func TestGatewayCodeTable_MapBookingStatus(t *testing.T) {
	table := DefaultGatewayCodes()

	tests := []struct {
		name       string
		token      string
		errMsg     string
		wantStatus TransactionStatus
		wantMsg    string
	}{
		{"success word", "success", "", TransactionStatusCompleted, "Transaction successful"},
		{"case insensitive", "SUCCESS", "", TransactionStatusCompleted, "Transaction successful"},
		{"numeric code", "1", "", TransactionStatusCompleted, "Transaction successful"},
		{"failed with message", "failed", "Insufficient funds", TransactionStatusFailed, "Insufficient funds"},
		{"failed without message", "failed", "", TransactionStatusFailed, "Transaction failed"},
		{"cancelled", "cancelled", "", TransactionStatusCancelled, "Transaction cancelled"},
		{"unknown", "weird", "", TransactionStatusFailed, ServerErrorMessage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, msg := table.MapBookingStatus(tt.token, tt.errMsg)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantMsg, msg)
		})
	}
}

func TestCallbackFields(t *testing.T) {
	fields := CallbackFields{
		{Key: "ORDERID", Value: "PROD-1"},
		{Key: "RESPCODE", Value: "1"},
	}

	assert.Equal(t, "PROD-1", fields.Get("order_id", "ORDERID"))
	assert.Equal(t, "", fields.Get("missing"))
	assert.True(t, fields.Has("RESPCODE"))
	assert.False(t, fields.Has("checksumhash"))
	assert.Equal(t, map[string]any{"ORDERID": "PROD-1", "RESPCODE": "1"}, fields.ToMap())
}

func TestBuildCallbackReplayKey(t *testing.T) {
	key := BuildCallbackReplayKey(SourceKindProductOrder, "PROD-1", TransactionStatusCompleted, "TXN9")
	assert.Equal(t, "product_order:PROD-1:completed:TXN9", key)
}
