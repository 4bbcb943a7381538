package apperror

import (
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	Details    string `json:"details,omitempty"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetails returns a copy of the error carrying a client-safe detail string.
func (e *AppError) WithDetails(details string) *AppError {
	cp := *e
	cp.Details = details
	return &cp
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// ---- Configuration (CFG) ----

// ErrGatewayNotConfigured never names the missing value, only that one is missing.
func ErrGatewayNotConfigured() *AppError {
	return New("CFG_001", "Payment gateway is not configured", http.StatusInternalServerError)
}

// ---- Validation (VAL) ----

func ErrMissingSourceID(field string) *AppError {
	return New("VAL_001", fmt.Sprintf("%s is required", field), http.StatusBadRequest)
}

func ErrMissingOrderID() *AppError {
	return New("VAL_002", "order_id is required", http.StatusBadRequest)
}

func ErrPayloadTooLarge() *AppError {
	return New("VAL_003", "Request payload too large", http.StatusRequestEntityTooLarge)
}

// Validation returns a generic input validation error.
func Validation(message string) *AppError {
	return New("VAL_000", message, http.StatusBadRequest)
}

// ---- Not found (NF) ----

func ErrNotFound(entity string) *AppError {
	return New("NF_001", fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}

// ---- Security (SEC) ----

func ErrIPNotAllowed() *AppError {
	return New("SEC_001", "Request origin is not an allowed gateway address", http.StatusForbidden)
}

func ErrInvalidChecksum() *AppError {
	return New("SEC_002", "Invalid checksum", http.StatusForbidden)
}

func ErrInvalidToken() *AppError {
	return New("SEC_003", "Invalid or expired token", http.StatusUnauthorized)
}

// ---- Payment (PAY) ----

func ErrTransactionCreate(err error) *AppError {
	return Wrap("PAY_001", "Failed to create payment transaction", http.StatusInternalServerError, err)
}

func ErrPaymentInProgress() *AppError {
	return New("PAY_003", "A payment for this record is already being initiated", http.StatusConflict)
}

func ErrAlreadyPaid() *AppError {
	return New("PAY_004", "This record has already been paid", http.StatusConflict)
}

func ErrChecksumGeneration(err error) *AppError {
	return Wrap("PAY_002", "Failed to generate checksum", http.StatusInternalServerError, err)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New("RATE_001", "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

func ErrDatabaseError(err error) *AppError {
	return Wrap("SYS_001", "Internal database error", http.StatusInternalServerError, err)
}

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}
