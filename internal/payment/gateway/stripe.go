package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v75"
	"github.com/stripe/stripe-go/v75/client"

	"github.com/tair/appointment-payments/internal/payment/domain"
	"github.com/tair/appointment-payments/internal/payment/webhook"
)

// StripeConfig holds the API credentials for one Stripe account
type StripeConfig struct {
	SecretKey      string
	PublishableKey string
	Timeout        time.Duration
}

// StripeGateway maps orders onto PaymentIntents. Stripe has no client-side
// checkout signature, so VerifyCheckout always fails closed and capture is
// confirmed by webhook.
type StripeGateway struct {
	cfg StripeConfig
	api *client.API
}

// NewStripeGateway creates a new Stripe client with a bounded HTTP timeout
func NewStripeGateway(cfg StripeConfig) *StripeGateway {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	httpClient := &http.Client{Timeout: cfg.Timeout}
	return &StripeGateway{
		cfg: cfg,
		api: client.New(cfg.SecretKey, stripe.NewBackends(httpClient)),
	}
}

func (g *StripeGateway) Provider() domain.Provider { return domain.ProviderStripe }

func (g *StripeGateway) PublicKey() string { return g.cfg.PublishableKey }

func (g *StripeGateway) VerifyCheckout(string, string, string) bool { return false }

func (g *StripeGateway) CreateOrder(ctx context.Context, req domain.OrderRequest) (*domain.ProviderOrder, error) {
	params := &stripe.PaymentIntentParams{
		Amount:      stripe.Int64(req.AmountMinor),
		Currency:    stripe.String(strings.ToLower(req.Currency)),
		Description: stripe.String(req.Receipt),
	}
	params.Context = ctx
	for k, v := range req.Notes {
		params.AddMetadata(k, v)
	}

	pi, err := g.api.PaymentIntents.New(params)
	if err != nil {
		return nil, classifyStripeError(err)
	}
	return &domain.ProviderOrder{ID: pi.ID, Raw: toMap(pi)}, nil
}

func (g *StripeGateway) FetchPayment(ctx context.Context, providerPaymentID string) (*domain.ProviderPayment, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	pi, err := g.api.PaymentIntents.Get(providerPaymentID, params)
	if err != nil {
		return nil, classifyStripeError(err)
	}
	return &domain.ProviderPayment{
		ID:      pi.ID,
		OrderID: pi.ID,
		Status:  webhook.StripeIntentStatus(string(pi.Status)),
		Raw:     toMap(pi),
	}, nil
}

func (g *StripeGateway) Refund(ctx context.Context, providerPaymentID string, amountMinor *int64) (*domain.ProviderRefund, error) {
	params := &stripe.RefundParams{PaymentIntent: stripe.String(providerPaymentID)}
	params.Context = ctx
	if amountMinor != nil {
		params.Amount = stripe.Int64(*amountMinor)
	}

	r, err := g.api.Refunds.New(params)
	if err != nil {
		return nil, classifyStripeError(err)
	}
	return &domain.ProviderRefund{
		ID:          r.ID,
		PaymentID:   providerPaymentID,
		Status:      string(r.Status),
		AmountMinor: r.Amount,
		Raw:         toMap(r),
	}, nil
}

// classifyStripeError separates provider rejections from transport trouble
func classifyStripeError(err error) error {
	if err == nil {
		return nil
	}
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) && stripeErr.HTTPStatusCode >= 400 && stripeErr.HTTPStatusCode < 500 {
		return fmt.Errorf("%w: stripe %s: %s", domain.ErrProviderRejected, stripeErr.Code, stripeErr.Msg)
	}
	return fmt.Errorf("%w: stripe: %v", domain.ErrProviderUnavailable, err)
}

func toMap(v interface{}) map[string]interface{} {
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var m map[string]interface{}
	_ = json.Unmarshal(b, &m)
	return m
}
