package domain

import (
	"strconv"
	"strings"
)

// GatewayCode maps one gateway response code onto an internal status.
type GatewayCode struct {
	Status  TransactionStatus
	Message string
}

// GatewayCodeTable translates gateway response codes and booking status tokens.
// It is immutable after construction.
type GatewayCodeTable struct {
	codes       map[string]GatewayCode
	tokens      map[string]TransactionStatus
	serverError string
}

// ServerErrorMessage is the fallback for unrecognized codes.
const ServerErrorMessage = "Server error, please try again later"

// DefaultGatewayCodes returns the SADAD response code table.
func DefaultGatewayCodes() *GatewayCodeTable {
	return NewGatewayCodeTable(
		map[string]GatewayCode{
			"1":   {TransactionStatusCompleted, "Transaction successful"},
			"400": {TransactionStatusPending, "Transaction is pending"},
			"402": {TransactionStatusPending, "Pending confirmation from bank"},
			"141": {TransactionStatusCancelled, "Transaction cancelled by customer"},
			"810": {TransactionStatusFailed, "Transaction failed"},
			"501": {TransactionStatusFailed, "Checksum validation failed"},
			"502": {TransactionStatusFailed, "Transaction declined by bank"},
			"503": {TransactionStatusFailed, "Insufficient funds"},
			"504": {TransactionStatusFailed, "Card expired"},
			"505": {TransactionStatusFailed, "Transaction timed out"},
			"227": {TransactionStatusFailed, "Invalid card details"},
		},
		map[string]TransactionStatus{
			"success":   TransactionStatusCompleted,
			"completed": TransactionStatusCompleted,
			"paid":      TransactionStatusCompleted,
			"failed":    TransactionStatusFailed,
			"failure":   TransactionStatusFailed,
			"declined":  TransactionStatusFailed,
			"pending":   TransactionStatusPending,
			"cancelled": TransactionStatusCancelled,
			"canceled":  TransactionStatusCancelled,
		},
		ServerErrorMessage,
	)
}

// NewGatewayCodeTable copies the given maps into an immutable table.
func NewGatewayCodeTable(codes map[string]GatewayCode, tokens map[string]TransactionStatus, serverError string) *GatewayCodeTable {
	t := &GatewayCodeTable{
		codes:       make(map[string]GatewayCode, len(codes)),
		tokens:      make(map[string]TransactionStatus, len(tokens)),
		serverError: serverError,
	}
	for k, v := range codes {
		t.codes[k] = v
	}
	for k, v := range tokens {
		t.tokens[strings.ToLower(k)] = v
	}
	return t
}

// MapResponseCode maps a numeric response code. A gateway-supplied message wins over the
// table message for non-success outcomes. Unknown codes fail closed.
func (t *GatewayCodeTable) MapResponseCode(code, gatewayMsg string) (TransactionStatus, string) {
	gc, ok := t.codes[strings.TrimSpace(code)]
	if !ok {
		return TransactionStatusFailed, t.serverError
	}
	if gc.Status != TransactionStatusCompleted && gatewayMsg != "" {
		return gc.Status, gatewayMsg
	}
	return gc.Status, gc.Message
}

// MapBookingStatus maps the booking callback status field, which is either a word
// (success, failed, ...) or a numeric response code.
func (t *GatewayCodeTable) MapBookingStatus(token, errMsg string) (TransactionStatus, string) {
	token = strings.TrimSpace(token)
	if _, err := strconv.Atoi(token); err == nil {
		return t.MapResponseCode(token, errMsg)
	}
	status, ok := t.tokens[strings.ToLower(token)]
	if !ok {
		return TransactionStatusFailed, t.serverError
	}
	if status == TransactionStatusCompleted {
		return status, "Transaction successful"
	}
	if errMsg != "" {
		return status, errMsg
	}
	return status, "Transaction " + string(status)
}
