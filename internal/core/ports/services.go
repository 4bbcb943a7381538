package ports

import (
	"context"
	"time"

	"sadad-payment-service/internal/core/domain"
	"sadad-payment-service/pkg/phpjson"

	"github.com/google/uuid"
)

// ChecksumService implements the gateway's salted-hash-then-encrypt checksum.
type ChecksumService interface {
	Generate(jsonStr, key string) (string, error)
	Verify(jsonStr, key, checksum string) bool
	// SignPayload wraps payload with the URL-encoded secret and checksums the PHP JSON encoding.
	SignPayload(payload phpjson.Object) (string, error)
	// VerifyPayload reconstructs the signed wrapper from received fields and checks checksum.
	VerifyPayload(fields phpjson.Object, checksum string) bool
}

// GatewayVerifier performs the server-to-server transaction status check.
type GatewayVerifier interface {
	Verify(ctx context.Context, transactionNumber string) (*VerificationResult, error)
}

// VerificationResult is the gateway's answer about one transaction.
type VerificationResult struct {
	TransactionStatus int
	Raw               map[string]any
}

// IdempotencyCache is the Redis-layer callback replay check (fast path).
type IdempotencyCache interface {
	Get(ctx context.Context, key string) ([]byte, error) // Returns cached response JSON or nil
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// InitiationLock keeps two initiations for the same source record from racing.
type InitiationLock interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

// RateLimiter counts requests in fixed windows.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (*RateLimitResult, error)
}

// RateLimitResult holds the outcome of a rate limit check.
type RateLimitResult struct {
	Allowed   bool
	Limit     int64
	Remaining int64
	ResetAt   int64 // Unix timestamp
}

// TokenService validates access tokens issued by the auth provider.
type TokenService interface {
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed JWT claims.
type TokenClaims struct {
	UserID uuid.UUID
	Role   string
}

// --- Service Ports (Business Logic) ---

// InitiationService prepares a signed checkout payload for one source kind.
type InitiationService interface {
	Initiate(ctx context.Context, req InitiationRequest) (*InitiationResult, error)
}

// InitiationRequest holds validated input for payment initiation.
type InitiationRequest struct {
	SourceID      uuid.UUID
	CustomerEmail string
	CustomerPhone string
	CustomerName  string
	ReturnURL     string
	ClientIP      string
}

// InitiationResult is the payload the client posts to the hosted checkout page.
type InitiationResult struct {
	Payload       phpjson.Object
	Checksum      string
	TransactionID uuid.UUID
	PaymentURL    string
}

// CallbackService runs the callback state machine for one source kind.
type CallbackService interface {
	Handle(ctx context.Context, fields domain.CallbackFields, clientIP string) (*domain.CallbackResult, error)
}

// PaymentQueryService serves payment status lookups.
type PaymentQueryService interface {
	GetByOrderID(ctx context.Context, orderID string) (*domain.PaymentTransaction, error)
}

// AuditService records audit entries without blocking the caller.
type AuditService interface {
	Log(ctx context.Context, entry *domain.AuditLog)
}
