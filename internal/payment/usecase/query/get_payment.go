package query

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/tair/appointment-payments/internal/payment/domain"
)

// GetPaymentQuery represents the query to get a tenant's payment
type GetPaymentQuery struct {
	TenantID uuid.UUID
	ID       uuid.UUID
}

// GetPaymentHandler handles get payment query
type GetPaymentHandler struct {
	repo domain.PaymentRepository
}

// NewGetPaymentHandler creates a new get payment handler
func NewGetPaymentHandler(repo domain.PaymentRepository) *GetPaymentHandler {
	return &GetPaymentHandler{repo: repo}
}

// Handle executes the get payment query
func (h *GetPaymentHandler) Handle(ctx context.Context, query GetPaymentQuery) (*domain.Payment, error) {
	if query.ID == uuid.Nil {
		return nil, fmt.Errorf("%w: id is required", domain.ErrInvalidRequest)
	}

	payment, err := h.repo.FindByID(ctx, query.TenantID, query.ID)
	if err != nil {
		return nil, err
	}

	return payment, nil
}
