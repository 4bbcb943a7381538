package middleware

import (
	"fmt"
	"strconv"
	"time"

	"sadad-payment-service/config"
	"sadad-payment-service/internal/core/ports"
	"sadad-payment-service/pkg/apperror"
	"sadad-payment-service/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RateLimitRule defines a rate limit for an endpoint group.
type RateLimitRule struct {
	Limit  int64
	Window time.Duration
}

// DefaultRateLimitRules returns the limits per endpoint group. The initiation
// groups follow the configured budget; status lookups get a wider one because
// the return page polls.
func DefaultRateLimitRules(cfg config.RateLimitConfig) map[string]RateLimitRule {
	initiate := RateLimitRule{Limit: int64(cfg.Requests), Window: cfg.Window}
	return map[string]RateLimitRule{
		"initiate_booking": initiate,
		"initiate_product": initiate,
		"payment_status":   {Limit: initiate.Limit * 3, Window: initiate.Window},
	}
}

// RateLimiter creates a rate-limiting middleware for a given endpoint group.
func RateLimiter(store ports.RateLimiter, group string, rule RateLimitRule, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		identifier := extractIdentifier(c)
		key := fmt.Sprintf("%s:%s", identifier, group)

		result, err := store.Allow(c.Request.Context(), key, rule.Limit, rule.Window)
		if err != nil {
			log.Warn().Err(err).Str("group", group).Msg("rate limit check failed, allowing request (degraded mode)")
			c.Next()
			return
		}

		// Always set rate limit headers
		c.Header("X-RateLimit-Limit", strconv.FormatInt(result.Limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(result.Remaining, 10))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt, 10))

		if !result.Allowed {
			retryAfter := result.ResetAt - time.Now().Unix()
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.FormatInt(retryAfter, 10))
			response.Error(c, apperror.ErrRateLimitExceeded())
			c.Abort()
			return
		}

		c.Next()
	}
}

// extractIdentifier keys authenticated callers by user, everyone else by client IP.
func extractIdentifier(c *gin.Context) string {
	if uid, exists := c.Get(CtxUserID); exists {
		return fmt.Sprintf("user:%v", uid)
	}
	return "ip:" + c.ClientIP()
}
