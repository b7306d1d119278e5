package command

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tair/appointment-payments/internal/payment/domain"
	"github.com/tair/appointment-payments/pkg/logger"
)

// RefundPaymentCommand represents an operator refund request. A nil Amount
// refunds in full.
type RefundPaymentCommand struct {
	TenantID  uuid.UUID
	Provider  domain.Provider
	PaymentID uuid.UUID
	Amount    *decimal.Decimal
}

// RefundPaymentResult carries the provider's refund response
type RefundPaymentResult struct {
	Payment *domain.Payment
	Refund  *domain.ProviderRefund
}

// RefundPaymentHandler handles refund payment command
type RefundPaymentHandler struct {
	repo     domain.PaymentRepository
	gateways domain.GatewayRegistry
}

// NewRefundPaymentHandler creates a new refund payment handler
func NewRefundPaymentHandler(repo domain.PaymentRepository, gateways domain.GatewayRegistry) *RefundPaymentHandler {
	return &RefundPaymentHandler{repo: repo, gateways: gateways}
}

// Handle executes the refund. The provider call runs while the payment row is
// locked so two operators cannot both refund the same payment.
func (h *RefundPaymentHandler) Handle(ctx context.Context, cmd RefundPaymentCommand) (*RefundPaymentResult, error) {
	if cmd.PaymentID == uuid.Nil {
		return nil, fmt.Errorf("%w: payment_id is required", domain.ErrInvalidRequest)
	}

	payment, err := h.repo.FindByID(ctx, cmd.TenantID, cmd.PaymentID)
	if err != nil {
		return nil, err
	}
	if err := checkRefundable(payment, cmd); err != nil {
		return nil, err
	}

	gw, err := h.gateways.Get(cmd.Provider)
	if err != nil {
		return nil, err
	}

	var refund *domain.ProviderRefund
	decide := func(ctx context.Context, current *domain.Payment) (domain.StatusChange, error) {
		if err := checkRefundable(current, cmd); err != nil {
			return domain.StatusChange{}, err
		}

		var minor *int64
		if cmd.Amount != nil {
			m := domain.ToMinorUnits(*cmd.Amount)
			minor = &m
		}
		r, err := gw.Refund(ctx, current.BoundPaymentID(), minor)
		if err != nil {
			return domain.StatusChange{}, err
		}
		refund = r

		return domain.StatusChange{
			Target: domain.StatusRefunded,
			Event: &domain.PaymentEvent{
				Provider:          current.Provider,
				EventType:         domain.EventRefundCreated,
				ProviderEventID:   domain.EventKey(r.ID),
				ProviderOrderID:   current.ProviderOrderID,
				ProviderPaymentID: current.BoundPaymentID(),
				Payload:           jsonPayload(r.Raw),
			},
		}, nil
	}

	updated, _, err := h.repo.Reconcile(ctx, payment.ID, decide)
	if err != nil && refund != nil {
		// Provider side is done; the ledger must be fixed by hand
		logger.Error(ctx).
			Err(err).
			Str("payment_id", payment.ID.String()).
			Str("tenant_id", cmd.TenantID.String()).
			Str("refund_id", refund.ID).
			Str("refund_status", refund.Status).
			Int64("amount_minor", refund.AmountMinor).
			Msg("Refund issued by provider but not recorded")
		return nil, err
	}
	if err != nil {
		logger.Error(ctx).
			Err(err).
			Str("payment_id", payment.ID.String()).
			Str("tenant_id", cmd.TenantID.String()).
			Msg("Refund failed")
		return nil, err
	}

	logger.Info(ctx).
		Str("payment_id", updated.ID.String()).
		Str("refund_id", refund.ID).
		Str("refund_status", refund.Status).
		Int64("amount_minor", refund.AmountMinor).
		Msg("Payment refunded")

	return &RefundPaymentResult{Payment: updated, Refund: refund}, nil
}

func checkRefundable(p *domain.Payment, cmd RefundPaymentCommand) error {
	if p.Provider != cmd.Provider {
		return fmt.Errorf("%w: payment belongs to %s", domain.ErrInvalidState, p.Provider)
	}
	if p.BoundPaymentID() == "" {
		return fmt.Errorf("%w: payment not captured", domain.ErrInvalidState)
	}
	if cmd.Amount != nil {
		if !cmd.Amount.IsPositive() {
			return fmt.Errorf("%w: refund amount must be greater than 0", domain.ErrInvalidState)
		}
		if cmd.Amount.GreaterThan(p.Amount) {
			return fmt.Errorf("%w: refund amount exceeds payment amount", domain.ErrInvalidState)
		}
	}
	if !p.Status.CanTransitionTo(domain.StatusRefunded) {
		return fmt.Errorf("%w: payment is %s", domain.ErrInvalidState, p.Status)
	}
	return nil
}
