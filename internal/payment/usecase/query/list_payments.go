package query

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/tair/appointment-payments/internal/payment/domain"
)

// ListPaymentsQuery represents the query to list a tenant's payments
type ListPaymentsQuery struct {
	TenantID      uuid.UUID
	Status        string
	AppointmentID *uuid.UUID
	Limit         int
	Offset        int
}

// ListPaymentsHandler handles list payments query
type ListPaymentsHandler struct {
	repo domain.PaymentRepository
}

// NewListPaymentsHandler creates a new list payments handler
func NewListPaymentsHandler(repo domain.PaymentRepository) *ListPaymentsHandler {
	return &ListPaymentsHandler{repo: repo}
}

// Handle executes the list payments query
func (h *ListPaymentsHandler) Handle(ctx context.Context, query ListPaymentsQuery) ([]domain.Payment, error) {
	if query.Limit <= 0 {
		query.Limit = 10
	}

	if query.Limit > 100 {
		query.Limit = 100
	}

	if query.Offset < 0 {
		query.Offset = 0
	}

	filter := domain.PaymentFilter{
		AppointmentID: query.AppointmentID,
		Limit:         query.Limit,
		Offset:        query.Offset,
	}
	if query.Status != "" {
		status := domain.PaymentStatus(query.Status)
		if !status.Valid() {
			return nil, fmt.Errorf("%w: unknown status %q", domain.ErrInvalidRequest, query.Status)
		}
		filter.Status = status
	}

	payments, err := h.repo.List(ctx, query.TenantID, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}

	return payments, nil
}
