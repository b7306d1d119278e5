package command

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/tair/appointment-payments/internal/payment/domain"
	"github.com/tair/appointment-payments/pkg/logger"
)

// VerifyCheckoutCommand carries the client's post-checkout callback
type VerifyCheckoutCommand struct {
	TenantID          uuid.UUID
	Provider          domain.Provider
	PaymentID         uuid.UUID
	ProviderOrderID   string
	ProviderPaymentID string
	Signature         string
}

// VerifyCheckoutResult reports the payment status after verification
type VerifyCheckoutResult struct {
	Payment    *domain.Payment
	Transition domain.TransitionResult
}

// VerifyCheckoutHandler handles the synchronous checkout verification
type VerifyCheckoutHandler struct {
	repo     domain.PaymentRepository
	gateways domain.GatewayRegistry
	receipts domain.ReceiptDispatcher
}

// NewVerifyCheckoutHandler creates a new verify checkout handler
func NewVerifyCheckoutHandler(repo domain.PaymentRepository, gateways domain.GatewayRegistry, receipts domain.ReceiptDispatcher) *VerifyCheckoutHandler {
	return &VerifyCheckoutHandler{repo: repo, gateways: gateways, receipts: receipts}
}

// Handle authenticates the client signature, then trusts only the status
// fetched from the provider.
func (h *VerifyCheckoutHandler) Handle(ctx context.Context, cmd VerifyCheckoutCommand) (*VerifyCheckoutResult, error) {
	cmd.ProviderOrderID = strings.TrimSpace(cmd.ProviderOrderID)
	cmd.ProviderPaymentID = strings.TrimSpace(cmd.ProviderPaymentID)
	if cmd.PaymentID == uuid.Nil || cmd.ProviderOrderID == "" || cmd.ProviderPaymentID == "" || cmd.Signature == "" {
		return nil, fmt.Errorf("%w: payment_id, provider_order_id, provider_payment_id and signature are required", domain.ErrInvalidRequest)
	}

	payment, err := h.repo.FindByID(ctx, cmd.TenantID, cmd.PaymentID)
	if err != nil {
		return nil, err
	}
	if payment.Provider != cmd.Provider {
		return nil, fmt.Errorf("%w: payment belongs to %s", domain.ErrInvalidState, payment.Provider)
	}
	if payment.ProviderOrderID != cmd.ProviderOrderID {
		return nil, fmt.Errorf("%w: provider order id does not match payment", domain.ErrInvalidState)
	}

	gw, err := h.gateways.Get(cmd.Provider)
	if err != nil {
		return nil, err
	}
	if !gw.VerifyCheckout(cmd.ProviderOrderID, cmd.ProviderPaymentID, cmd.Signature) {
		logger.Warn(ctx).
			Str("payment_id", payment.ID.String()).
			Str("provider_order_id", cmd.ProviderOrderID).
			Msg("Checkout signature rejected")
		return nil, fmt.Errorf("%w: invalid checkout signature", domain.ErrAuthentication)
	}

	fetched, err := gw.FetchPayment(ctx, cmd.ProviderPaymentID)
	if err != nil {
		return nil, err
	}
	if fetched.OrderID != "" && fetched.OrderID != payment.ProviderOrderID {
		return nil, fmt.Errorf("%w: provider payment belongs to another order", domain.ErrAuthentication)
	}

	target := checkoutTarget(fetched.Status)
	decide := func(_ context.Context, current *domain.Payment) (domain.StatusChange, error) {
		if bound := current.BoundPaymentID(); bound != "" && bound != cmd.ProviderPaymentID {
			return domain.StatusChange{}, fmt.Errorf("%w: payment already bound to %s", domain.ErrInvalidState, bound)
		}
		return domain.StatusChange{
			Target:            target,
			ProviderPaymentID: cmd.ProviderPaymentID,
			Event: &domain.PaymentEvent{
				Provider:          cmd.Provider,
				EventType:         domain.EventCheckoutVerified,
				ProviderOrderID:   cmd.ProviderOrderID,
				ProviderPaymentID: cmd.ProviderPaymentID,
				Payload:           jsonPayload(fetched.Raw),
			},
		}, nil
	}

	updated, transition, err := reconcileWithRetry(ctx, h.repo, payment.ID, decide)
	if err != nil {
		return nil, err
	}

	logger.Info(ctx).
		Str("payment_id", updated.ID.String()).
		Str("provider_payment_id", cmd.ProviderPaymentID).
		Str("provider_status", fetched.Status).
		Str("from", string(transition.From)).
		Str("to", string(transition.To)).
		Bool("applied", transition.Applied).
		Msg("Checkout verified")

	if transition.Captured() {
		h.receipts.Dispatch(ctx, *updated)
	}
	return &VerifyCheckoutResult{Payment: updated, Transition: transition}, nil
}

// checkoutTarget maps the subset of provider statuses a checkout may apply
func checkoutTarget(raw string) domain.PaymentStatus {
	status, ok := domain.StatusFromProvider(raw)
	if !ok || status == domain.StatusRefunded {
		return ""
	}
	return status
}
