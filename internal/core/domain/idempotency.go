package domain

import "strings"

// CallbackReplay is the cached response of a callback that reached a terminal outcome.
type CallbackReplay struct {
	Key      string         `json:"key"` // Format: "flavour:order_id:status:transaction_number"
	Result   CallbackResult `json:"result"`
	SourceID string         `json:"source_id"`
}

// BuildCallbackReplayKey constructs the standard key format for a received callback.
func BuildCallbackReplayKey(flavour SourceKind, orderID string, status TransactionStatus, transactionNumber string) string {
	return strings.Join([]string{string(flavour), orderID, string(status), transactionNumber}, ":")
}
