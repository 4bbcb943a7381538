package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	"sadad-payment-service/internal/core/domain"
	"sadad-payment-service/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AuditLog creates an audit middleware that records requests rejected before
// reaching a payment service: bad bearer tokens and rate-limit hits. Gateway
// security events are audited by the callback service itself.
func AuditLog(auditSvc ports.AuditService) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		action := mapStatusToAction(c.Writer.Status())
		if action == "" {
			return
		}

		details, _ := json.Marshal(map[string]interface{}{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"request_id": c.GetString(CtxRequestID),
		})

		var resourceID string
		if uid, exists := c.Get(CtxUserID); exists {
			if id, ok := uid.(uuid.UUID); ok {
				resourceID = id.String()
			}
		}

		auditSvc.Log(c.Request.Context(), &domain.AuditLog{
			ID:           uuid.New(),
			Action:       action,
			ResourceType: "request",
			ResourceID:   resourceID,
			IPAddress:    c.ClientIP(),
			Details:      string(details),
			CreatedAt:    time.Now(),
		})
	}
}

func mapStatusToAction(status int) domain.AuditAction {
	switch status {
	case http.StatusUnauthorized:
		return domain.AuditActionAccessDenied
	case http.StatusTooManyRequests:
		return domain.AuditActionRateLimited
	}
	return ""
}
