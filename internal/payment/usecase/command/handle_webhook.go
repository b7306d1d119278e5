package command

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/tair/appointment-payments/internal/payment/domain"
	"github.com/tair/appointment-payments/internal/payment/webhook"
	"github.com/tair/appointment-payments/pkg/logger"
)

// WebhookOutcome describes what a delivery did. Every outcome is acknowledged
// to the provider with 200.
type WebhookOutcome string

const (
	OutcomeApplied      WebhookOutcome = "applied"
	OutcomeRecorded     WebhookOutcome = "recorded"
	OutcomeDuplicate    WebhookOutcome = "duplicate"
	OutcomeUncorrelated WebhookOutcome = "uncorrelated"
)

// HandleWebhookCommand carries one raw provider delivery
type HandleWebhookCommand struct {
	Provider domain.Provider
	Body     []byte
	Header   http.Header
}

// WebhookResult reports the outcome of a delivery
type WebhookResult struct {
	Outcome    WebhookOutcome
	EventType  string
	EventID    string
	PaymentID  *uuid.UUID
	Transition domain.TransitionResult
}

// WebhookParsers resolves the parser for a provider
type WebhookParsers interface {
	Get(provider domain.Provider) (webhook.Parser, error)
}

// HandleWebhookHandler reconciles provider webhooks into payment state
type HandleWebhookHandler struct {
	repo     domain.PaymentRepository
	parsers  WebhookParsers
	cache    domain.ProcessedEventCache
	receipts domain.ReceiptDispatcher
}

// NewHandleWebhookHandler creates a new webhook handler
func NewHandleWebhookHandler(repo domain.PaymentRepository, parsers WebhookParsers, cache domain.ProcessedEventCache, receipts domain.ReceiptDispatcher) *HandleWebhookHandler {
	return &HandleWebhookHandler{repo: repo, parsers: parsers, cache: cache, receipts: receipts}
}

// Handle authenticates, deduplicates and applies one webhook delivery
func (h *HandleWebhookHandler) Handle(ctx context.Context, cmd HandleWebhookCommand) (*WebhookResult, error) {
	parser, err := h.parsers.Get(cmd.Provider)
	if err != nil {
		return nil, err
	}

	sig := cmd.Header.Get(parser.SignatureHeader())
	if sig == "" {
		return nil, fmt.Errorf("%w: missing %s header", domain.ErrAuthentication, parser.SignatureHeader())
	}
	if err := parser.Authenticate(cmd.Body, sig); err != nil {
		logger.Warn(ctx).Err(err).Str("provider", string(cmd.Provider)).Msg("Webhook signature rejected")
		return nil, err
	}

	env, err := parser.Parse(cmd.Body, cmd.Header)
	if err != nil {
		return nil, err
	}
	result := &WebhookResult{EventType: env.EventType, EventID: env.EventID}

	payment, err := h.resolve(ctx, env)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		logger.Info(ctx).
			Str("provider", string(env.Provider)).
			Str("event_type", env.EventType).
			Str("provider_order_id", env.OrderID).
			Msg("Webhook does not match any payment, acknowledging")
		result.Outcome = OutcomeUncorrelated
		return result, nil
	}
	result.PaymentID = &payment.ID

	if env.EventID != "" {
		duplicate, err := h.alreadyProcessed(ctx, payment.TenantID, env.EventID)
		if err != nil {
			return nil, err
		}
		if duplicate {
			result.Outcome = OutcomeDuplicate
			return result, nil
		}
	}

	target, _ := domain.StatusFromProvider(env.Status)
	eventType := env.EventType
	if eventType == "" {
		eventType = "webhook"
	}
	decide := func(context.Context, *domain.Payment) (domain.StatusChange, error) {
		return domain.StatusChange{
			Target:            target,
			ProviderPaymentID: env.PaymentID,
			Event: &domain.PaymentEvent{
				Provider:          env.Provider,
				EventType:         eventType,
				ProviderEventID:   domain.EventKey(env.EventID),
				ProviderOrderID:   env.OrderID,
				ProviderPaymentID: env.PaymentID,
				Payload:           datatypes.JSON(env.Raw),
			},
		}, nil
	}

	updated, transition, err := reconcileWithRetry(ctx, h.repo, payment.ID, decide)
	if errors.Is(err, domain.ErrDuplicateEvent) {
		h.remember(ctx, payment.TenantID, env.EventID)
		result.Outcome = OutcomeDuplicate
		return result, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to reconcile webhook: %w", err)
	}
	h.remember(ctx, payment.TenantID, env.EventID)

	result.Transition = transition
	result.Outcome = OutcomeRecorded
	if transition.Applied {
		result.Outcome = OutcomeApplied
	}

	logger.Info(ctx).
		Str("payment_id", payment.ID.String()).
		Str("tenant_id", payment.TenantID.String()).
		Str("event_type", env.EventType).
		Str("event_id", env.EventID).
		Str("from", string(transition.From)).
		Str("to", string(transition.To)).
		Bool("applied", transition.Applied).
		Msg("Webhook reconciled")

	if transition.Captured() {
		h.receipts.Dispatch(ctx, *updated)
	}
	return result, nil
}

// resolve finds the payment by tenant hint first, then by order id alone.
// A nil payment with nil error is a correlation miss.
func (h *HandleWebhookHandler) resolve(ctx context.Context, env *webhook.Envelope) (*domain.Payment, error) {
	if env.OrderID == "" {
		return nil, nil
	}

	if tenantID, err := uuid.Parse(env.TenantHint); err == nil {
		p, err := h.repo.FindByProviderOrder(ctx, &tenantID, env.Provider, env.OrderID)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
	}

	p, err := h.repo.FindByProviderOrder(ctx, nil, env.Provider, env.OrderID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	return p, err
}

// alreadyProcessed consults the cache, then the ledger. Cache failures only
// cost the fast path.
func (h *HandleWebhookHandler) alreadyProcessed(ctx context.Context, tenantID uuid.UUID, eventID string) (bool, error) {
	seen, err := h.cache.Seen(ctx, tenantID, eventID)
	if err != nil {
		logger.Warn(ctx).Err(err).Str("event_id", eventID).Msg("Processed event cache unavailable")
	} else if seen {
		return true, nil
	}
	return h.repo.EventExists(ctx, tenantID, eventID)
}

func (h *HandleWebhookHandler) remember(ctx context.Context, tenantID uuid.UUID, eventID string) {
	if eventID == "" {
		return
	}
	if err := h.cache.Remember(ctx, tenantID, eventID); err != nil {
		logger.Warn(ctx).Err(err).Str("event_id", eventID).Msg("Failed to cache processed event")
	}
}
