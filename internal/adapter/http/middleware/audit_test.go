package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"sadad-payment-service/internal/core/domain"
	"sadad-payment-service/internal/core/ports/mocks"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"
)

func TestAuditLog_RecordsRejections(t *testing.T) {
	tests := []struct {
		name   string
		status int
		action domain.AuditAction
	}{
		{"unauthorized", http.StatusUnauthorized, domain.AuditActionAccessDenied},
		{"rate limited", http.StatusTooManyRequests, domain.AuditActionRateLimited},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()
			mockAudit := mocks.NewMockAuditService(ctrl)

			done := make(chan struct{})
			mockAudit.EXPECT().Log(gomock.Any(), gomock.Any()).DoAndReturn(
				func(_ context.Context, log *domain.AuditLog) {
					assert.Equal(t, tt.action, log.Action)
					assert.Equal(t, "request", log.ResourceType)
					assert.Contains(t, log.Details, "/api/v1/payments/sadad/booking/initiate")
					close(done)
				},
			)

			r := gin.New()
			r.Use(AuditLog(mockAudit))
			r.POST("/api/v1/payments/sadad/booking/initiate", func(c *gin.Context) {
				c.Status(tt.status)
			})

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/payments/sadad/booking/initiate", nil))
			assert.Equal(t, tt.status, w.Code)

			select {
			case <-done:
			case <-time.After(time.Second):
				t.Fatal("audit not called")
			}
		})
	}
}

func TestAuditLog_CarriesUserID(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	mockAudit := mocks.NewMockAuditService(ctrl)
	userID := uuid.New()

	mockAudit.EXPECT().Log(gomock.Any(), gomock.Any()).Do(func(_ context.Context, log *domain.AuditLog) {
		assert.Equal(t, userID.String(), log.ResourceID)
	})

	r := gin.New()
	r.Use(AuditLog(mockAudit))
	r.GET("/status", func(c *gin.Context) {
		c.Set(CtxUserID, userID)
		c.Status(http.StatusTooManyRequests)
	})
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/status", nil))
}

func TestAuditLog_IgnoresOtherStatuses(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	mockAudit := mocks.NewMockAuditService(ctrl)

	r := gin.New()
	r.Use(AuditLog(mockAudit))
	r.POST("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.POST("/bad", func(c *gin.Context) { c.Status(http.StatusBadRequest) })
	r.POST("/forbidden", func(c *gin.Context) { c.Status(http.StatusForbidden) })

	for _, path := range []string{"/ok", "/bad", "/forbidden"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, path, nil))
	}
}

func TestMapStatusToAction(t *testing.T) {
	assert.Equal(t, domain.AuditActionAccessDenied, mapStatusToAction(http.StatusUnauthorized))
	assert.Equal(t, domain.AuditActionRateLimited, mapStatusToAction(http.StatusTooManyRequests))
	assert.Equal(t, domain.AuditAction(""), mapStatusToAction(http.StatusInternalServerError))
}
