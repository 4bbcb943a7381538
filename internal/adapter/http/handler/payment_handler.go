package handler

import (
	"errors"
	"io"

	"sadad-payment-service/internal/adapter/http/dto"
	"sadad-payment-service/internal/core/ports"
	"sadad-payment-service/pkg/apperror"
	"sadad-payment-service/pkg/response"

	"github.com/gin-gonic/gin"
)

// PaymentHandler handles initiation and status endpoints.
type PaymentHandler struct {
	booking ports.InitiationService
	product ports.InitiationService
	query   ports.PaymentQueryService
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(booking, product ports.InitiationService, query ports.PaymentQueryService) *PaymentHandler {
	return &PaymentHandler{booking: booking, product: product, query: query}
}

// InitiateBooking handles POST /api/v1/payments/sadad/booking/initiate.
func (h *PaymentHandler) InitiateBooking(c *gin.Context) {
	var req dto.InitiateBookingRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	dto.SanitizeStruct(&req)

	in, err := req.ToPort(c.ClientIP())
	if err != nil {
		response.Error(c, apperror.Validation("booking_id must be a valid UUID"))
		return
	}
	h.initiate(c, h.booking, in)
}

// InitiateProduct handles POST /api/v1/payments/sadad/product/initiate.
func (h *PaymentHandler) InitiateProduct(c *gin.Context) {
	var req dto.InitiateProductRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	dto.SanitizeStruct(&req)

	in, err := req.ToPort(c.ClientIP())
	if err != nil {
		response.Error(c, apperror.Validation("order_id must be a valid UUID"))
		return
	}
	h.initiate(c, h.product, in)
}

func (h *PaymentHandler) initiate(c *gin.Context, svc ports.InitiationService, in ports.InitiationRequest) {
	result, err := svc.Initiate(c.Request.Context(), in)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.InitiationResponse(result))
}

// GetStatus handles GET /api/v1/payments/sadad/:order_id.
func (h *PaymentHandler) GetStatus(c *gin.Context) {
	txn, err := h.query.GetByOrderID(c.Request.Context(), c.Param("order_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.NewPaymentStatusResponse(txn))
}

// bindOptionalJSON binds the body when present. A missing body leaves req zero so the
// service can name the missing id field.
func bindOptionalJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil && !errors.Is(err, io.EOF) {
		response.Error(c, apperror.Validation(err.Error()))
		return false
	}
	return true
}
