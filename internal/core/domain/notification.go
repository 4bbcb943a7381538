package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	NotificationPaymentSuccessful = "payment_successful"
	NotificationPaymentReceived   = "payment_received"
)

// Notification is a fire-and-forget row for the app's notification feed.
// At most one exists per (user, source record, type).
type Notification struct {
	ID         uuid.UUID       `json:"id"`
	UserID     uuid.UUID       `json:"user_id"`
	Type       string          `json:"type"`
	Title      string          `json:"title"`
	Message    string          `json:"message"`
	SourceKind SourceKind      `json:"source_kind"`
	SourceID   uuid.UUID       `json:"source_id"`
	Amount     decimal.Decimal `json:"amount"`
	CreatedAt  time.Time       `json:"created_at"`
}

// CompletionNotifications builds the customer and artist notifications for a completed payment.
// The artist entry is omitted when the source record has no counterparty.
func CompletionNotifications(src *SourceRecord, amount decimal.Decimal, currency string, now time.Time) []Notification {
	what := "booking"
	if src.Kind == SourceKindProductOrder {
		what = "order"
	}
	formatted := amount.StringFixed(2) + " " + currency

	out := []Notification{{
		ID:         uuid.New(),
		UserID:     src.CustomerID,
		Type:       NotificationPaymentSuccessful,
		Title:      "Payment successful",
		Message:    fmt.Sprintf("Your payment of %s for your %s was successful.", formatted, what),
		SourceKind: src.Kind,
		SourceID:   src.ID,
		Amount:     amount,
		CreatedAt:  now,
	}}

	if src.ArtistID != nil {
		out = append(out, Notification{
			ID:         uuid.New(),
			UserID:     *src.ArtistID,
			Type:       NotificationPaymentReceived,
			Title:      "Payment received",
			Message:    fmt.Sprintf("You received a payment of %s for a %s.", formatted, what),
			SourceKind: src.Kind,
			SourceID:   src.ID,
			Amount:     amount,
			CreatedAt:  now,
		})
	}

	return out
}
