package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuditAction represents the type of audited action.
type AuditAction string

const (
	AuditActionPaymentInitiated     AuditAction = "PAYMENT_INITIATED"
	AuditActionCallbackReceived     AuditAction = "CALLBACK_RECEIVED"
	AuditActionIPRejected           AuditAction = "IP_REJECTED"
	AuditActionIPCheckBypassed      AuditAction = "IP_CHECK_BYPASSED"
	AuditActionChecksumMismatch     AuditAction = "CHECKSUM_MISMATCH"
	AuditActionVerificationRejected AuditAction = "VERIFICATION_REJECTED"
	AuditActionVerificationFailed   AuditAction = "VERIFICATION_UNREACHABLE"
	AuditActionAccessDenied         AuditAction = "ACCESS_DENIED"
	AuditActionRateLimited          AuditAction = "RATE_LIMITED"
)

// AuditLog records a single audited action in the system.
type AuditLog struct {
	ID           uuid.UUID   `json:"id"`
	Action       AuditAction `json:"action"`
	ResourceType string      `json:"resource_type"`
	ResourceID   string      `json:"resource_id,omitempty"`
	Details      string      `json:"details,omitempty"` // JSON string
	IPAddress    string      `json:"ip_address"`
	CreatedAt    time.Time   `json:"created_at"`
}
