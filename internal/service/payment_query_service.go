package service

import (
	"context"
	"strings"

	"sadad-payment-service/internal/core/domain"
	"sadad-payment-service/internal/core/ports"
	"sadad-payment-service/pkg/apperror"
)

// paymentQueryService implements ports.PaymentQueryService.
type paymentQueryService struct {
	txRepo ports.TransactionRepository
}

// NewPaymentQueryService creates a new payment query service.
func NewPaymentQueryService(txRepo ports.TransactionRepository) ports.PaymentQueryService {
	return &paymentQueryService{txRepo: txRepo}
}

// GetByOrderID returns the transaction for a gateway order id.
func (s *paymentQueryService) GetByOrderID(ctx context.Context, orderID string) (*domain.PaymentTransaction, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, apperror.ErrMissingOrderID()
	}

	txn, err := s.txRepo.GetByOrderID(ctx, orderID)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	if txn == nil {
		return nil, apperror.ErrNotFound("Transaction")
	}
	return txn, nil
}
