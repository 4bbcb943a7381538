package dto

import (
	"time"

	"sadad-payment-service/internal/core/domain"
	"sadad-payment-service/internal/core/ports"
	"sadad-payment-service/pkg/phpjson"

	"github.com/google/uuid"
)

// InitiateBookingRequest is the request body for booking payment initiation.
type InitiateBookingRequest struct {
	BookingID     string `json:"booking_id"`
	CustomerEmail string `json:"customer_email" binding:"omitempty,email,max=255"`
	CustomerPhone string `json:"customer_phone" binding:"omitempty,max=32"`
	CustomerName  string `json:"customer_name" binding:"omitempty,max=255"`
	ReturnURL     string `json:"return_url" binding:"omitempty,safe_url" sanitize:"trim"`
}

// InitiateProductRequest is the request body for product order payment initiation.
type InitiateProductRequest struct {
	OrderID       string `json:"order_id"`
	CustomerEmail string `json:"customer_email" binding:"omitempty,email,max=255"`
	CustomerPhone string `json:"customer_phone" binding:"omitempty,max=32"`
	CustomerName  string `json:"customer_name" binding:"omitempty,max=255"`
	ReturnURL     string `json:"return_url" binding:"omitempty,safe_url" sanitize:"trim"`
}

// ToPort converts the request. An empty id maps to uuid.Nil so the service reports the missing field.
func (r InitiateBookingRequest) ToPort(clientIP string) (ports.InitiationRequest, error) {
	return toInitiation(r.BookingID, r.CustomerEmail, r.CustomerPhone, r.CustomerName, r.ReturnURL, clientIP)
}

// ToPort converts the request. An empty id maps to uuid.Nil so the service reports the missing field.
func (r InitiateProductRequest) ToPort(clientIP string) (ports.InitiationRequest, error) {
	return toInitiation(r.OrderID, r.CustomerEmail, r.CustomerPhone, r.CustomerName, r.ReturnURL, clientIP)
}

func toInitiation(id, email, phone, name, returnURL, clientIP string) (ports.InitiationRequest, error) {
	req := ports.InitiationRequest{
		CustomerEmail: email,
		CustomerPhone: phone,
		CustomerName:  name,
		ReturnURL:     returnURL,
		ClientIP:      clientIP,
	}
	if id == "" {
		return req, nil
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return req, err
	}
	req.SourceID = parsed
	return req, nil
}

// InitiationResponse flattens the signed payload together with its checksum,
// so the client can post every field to the checkout page unchanged.
func InitiationResponse(res *ports.InitiationResult) phpjson.Object {
	out := make(phpjson.Object, 0, len(res.Payload)+3)
	out = append(out, res.Payload...)
	out = append(out,
		phpjson.Field{Key: "checksumhash", Value: res.Checksum},
		phpjson.Field{Key: "transaction_id", Value: res.TransactionID.String()},
		phpjson.Field{Key: "payment_url", Value: res.PaymentURL},
	)
	return out
}

// CallbackResponse is the flat acknowledgement returned to the gateway.
func CallbackResponse(res *domain.CallbackResult) map[string]any {
	body := map[string]any{
		"success":  res.Success,
		"status":   res.Status,
		"order_id": res.OrderID,
	}
	if res.SourceID != "" {
		body[sourceKey(res.SourceKind)] = res.SourceID
	}
	if res.Message != "" {
		body["message"] = res.Message
	}
	return body
}

func sourceKey(kind domain.SourceKind) string {
	if kind == domain.SourceKindProductOrder {
		return "product_order_id"
	}
	return "booking_id"
}

// PaymentStatusResponse is the response body for a payment status lookup.
type PaymentStatusResponse struct {
	TransactionID     string  `json:"transaction_id"`
	OrderID           string  `json:"order_id"`
	Status            string  `json:"status"`
	SourceKind        string  `json:"source_kind"`
	SourceID          string  `json:"source_id"`
	Amount            string  `json:"amount"`
	Currency          string  `json:"currency"`
	TransactionNumber *string `json:"transaction_number,omitempty"`
	ResponseMessage   *string `json:"response_message,omitempty"`
	ErrorMessage      *string `json:"error_message,omitempty"`
	CreatedAt         string  `json:"created_at"`
	PaymentDate       *string `json:"payment_date,omitempty"`
}

// NewPaymentStatusResponse converts domain.PaymentTransaction to DTO.
func NewPaymentStatusResponse(t *domain.PaymentTransaction) PaymentStatusResponse {
	resp := PaymentStatusResponse{
		TransactionID:     t.ID.String(),
		OrderID:           t.OrderID,
		Status:            string(t.Status),
		SourceKind:        string(t.SourceKind),
		SourceID:          t.SourceID().String(),
		Amount:            t.Amount.StringFixed(2),
		Currency:          t.Currency,
		TransactionNumber: t.TransactionNumber,
		ResponseMessage:   t.ResponseMessage,
		ErrorMessage:      t.ErrorMessage,
		CreatedAt:         t.CreatedAt.UTC().Format(time.RFC3339),
	}
	if t.PaymentDate != nil {
		s := t.PaymentDate.UTC().Format(time.RFC3339)
		resp.PaymentDate = &s
	}
	return resp
}
