package domain

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SourceKind distinguishes the record a payment settles.
type SourceKind string

const (
	SourceKindBooking      SourceKind = "booking"
	SourceKindProductOrder SourceKind = "product_order"
)

// Source record payment_status values written by this service.
const (
	SourcePaymentProcessing = "processing"
	SourcePaymentPaid       = "paid"
	SourcePaymentPending    = "pending"
	SourcePaymentFailed     = "failed"
	SourcePaymentCancelled  = "cancelled"
)

// SourceStatusConfirmed is the record status set once the payment is completed.
const SourceStatusConfirmed = "confirmed"

// LineItem is one entry of the productdetail array sent to the gateway.
type LineItem struct {
	Name      string
	UnitPrice decimal.Decimal
	Quantity  int
}

// Amount returns unit price times quantity.
func (l LineItem) Amount() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// SourceRecord is the read model of a booking or product order owned by the app.
// Only the fields a payment needs are loaded.
type SourceRecord struct {
	Kind          SourceKind
	ID            uuid.UUID
	CustomerID    uuid.UUID
	ArtistID      *uuid.UUID
	CustomerEmail string
	CustomerPhone string
	CustomerName  string
	TotalAmount   decimal.Decimal
	Status        string
	PaymentStatus string
	// GatewayOrderID is the order id of the latest attempt written back by this service.
	GatewayOrderID string
	LineItems      []LineItem
}

// IsPaid reports whether a completed payment has already settled the record.
func (r *SourceRecord) IsPaid() bool {
	return r.PaymentStatus == SourcePaymentPaid
}

// SourcePaymentUpdate is written back onto the source record.
// An empty Status leaves the record status untouched.
type SourcePaymentUpdate struct {
	Kind              SourceKind
	ID                uuid.UUID
	PaymentMethod     string
	PaymentStatus     string
	Status            string
	GatewayOrderID    string
	TransactionNumber *string
}

// SourceUpdateFor derives the source record change implied by a transaction status.
func SourceUpdateFor(status TransactionStatus) (paymentStatus, recordStatus string) {
	switch status {
	case TransactionStatusCompleted:
		return SourcePaymentPaid, SourceStatusConfirmed
	case TransactionStatusFailed:
		return SourcePaymentFailed, ""
	case TransactionStatusCancelled:
		return SourcePaymentCancelled, ""
	case TransactionStatusProcessing:
		return SourcePaymentProcessing, ""
	default:
		return SourcePaymentPending, ""
	}
}
