package handler

import (
	"errors"
	"net/http"

	"sadad-payment-service/internal/adapter/http/dto"
	"sadad-payment-service/internal/core/ports"
	"sadad-payment-service/pkg/apperror"
	"sadad-payment-service/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// CallbackHandler receives gateway callbacks for one source kind.
type CallbackHandler struct {
	svc ports.CallbackService
	log zerolog.Logger
}

// NewCallbackHandler creates a new CallbackHandler.
func NewCallbackHandler(svc ports.CallbackService, log zerolog.Logger) *CallbackHandler {
	return &CallbackHandler{svc: svc, log: log}
}

// Handle serves both POST and GET callbacks.
func (h *CallbackHandler) Handle(c *gin.Context) {
	fields, err := dto.ParseCallbackFields(c.Request)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Error(c, apperror.ErrPayloadTooLarge())
			return
		}
		h.log.Warn().Err(err).Str("client_ip", c.ClientIP()).Msg("unreadable sadad callback")
		response.Error(c, apperror.Validation("Malformed callback payload"))
		return
	}

	result, err := h.svc.Handle(c.Request.Context(), fields, c.ClientIP())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Callback(c, http.StatusOK, dto.CallbackResponse(result))
}
