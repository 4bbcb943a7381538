package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentMethodSadad tags transactions and source records paid through SADAD.
const PaymentMethodSadad = "sadad"

// TransactionStatus represents the lifecycle state of a payment attempt.
type TransactionStatus string

const (
	TransactionStatusPending    TransactionStatus = "pending"
	TransactionStatusProcessing TransactionStatus = "processing"
	TransactionStatusCompleted  TransactionStatus = "completed"
	TransactionStatusFailed     TransactionStatus = "failed"
	TransactionStatusCancelled  TransactionStatus = "cancelled"
)

// IsTerminal returns true if the status is final.
func (s TransactionStatus) IsTerminal() bool {
	return s == TransactionStatusCompleted ||
		s == TransactionStatusFailed ||
		s == TransactionStatusCancelled
}

func (s TransactionStatus) rank() int {
	switch s {
	case TransactionStatusPending:
		return 0
	case TransactionStatusProcessing:
		return 1
	default:
		return 2
	}
}

// CanTransition reports whether moving from s to next is a real, allowed change.
// Terminal states never change and non-terminal states never move backwards.
func (s TransactionStatus) CanTransition(next TransactionStatus) bool {
	if s == next || s.IsTerminal() {
		return false
	}
	return next.rank() >= s.rank()
}

// PaymentTransaction is one payment attempt at the gateway, keyed by the gateway order id.
// Created by initiation, mutated only by callbacks, never deleted.
type PaymentTransaction struct {
	ID                uuid.UUID         `json:"id"`
	OrderID           string            `json:"order_id"`
	TransactionNumber *string           `json:"transaction_number,omitempty"`
	SourceKind        SourceKind        `json:"source_kind"`
	BookingID         *uuid.UUID        `json:"booking_id,omitempty"`
	ProductOrderID    *uuid.UUID        `json:"product_order_id,omitempty"`
	CustomerID        uuid.UUID         `json:"customer_id"`
	Amount            decimal.Decimal   `json:"amount"`
	Currency          string            `json:"currency"`
	PaymentMethod     string            `json:"payment_method"`
	Status            TransactionStatus `json:"status"`
	ResponseCode      *string           `json:"response_code,omitempty"`
	ResponseMessage   *string           `json:"response_message,omitempty"`
	ErrorMessage      *string           `json:"error_message,omitempty"`
	Metadata          map[string]any    `json:"metadata,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
	PaymentDate       *time.Time        `json:"payment_date,omitempty"`
	VerifiedAt        *time.Time        `json:"verified_at,omitempty"`
}

// IsTerminal returns true if the transaction is in a final state.
func (t *PaymentTransaction) IsTerminal() bool {
	return t.Status.IsTerminal()
}

// SourceID returns the id of the linked booking or product order.
func (t *PaymentTransaction) SourceID() uuid.UUID {
	if t.SourceKind == SourceKindProductOrder && t.ProductOrderID != nil {
		return *t.ProductOrderID
	}
	if t.BookingID != nil {
		return *t.BookingID
	}
	return uuid.Nil
}

// TransactionUpdate is the set of fields a callback writes back onto a transaction.
type TransactionUpdate struct {
	Status            TransactionStatus
	TransactionNumber *string
	ResponseCode      *string
	ResponseMessage   *string
	ErrorMessage      *string
	Metadata          map[string]any
	PaymentDate       *time.Time
	VerifiedAt        *time.Time
}
