package query

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/tair/appointment-payments/internal/payment/domain"
)

// ListEventsQuery asks for the ledger of one payment
type ListEventsQuery struct {
	TenantID  uuid.UUID
	PaymentID uuid.UUID
}

// ListEventsHandler handles list events query
type ListEventsHandler struct {
	repo domain.PaymentRepository
}

// NewListEventsHandler creates a new list events handler
func NewListEventsHandler(repo domain.PaymentRepository) *ListEventsHandler {
	return &ListEventsHandler{repo: repo}
}

// Handle returns the payment's events oldest first. The payment itself must
// belong to the tenant.
func (h *ListEventsHandler) Handle(ctx context.Context, query ListEventsQuery) ([]domain.PaymentEvent, error) {
	if query.PaymentID == uuid.Nil {
		return nil, fmt.Errorf("%w: payment id is required", domain.ErrInvalidRequest)
	}
	if _, err := h.repo.FindByID(ctx, query.TenantID, query.PaymentID); err != nil {
		return nil, err
	}
	return h.repo.ListEvents(ctx, query.TenantID, query.PaymentID)
}
