package gateway

import (
	"context"

	"github.com/tair/appointment-payments/internal/payment/domain"
)

// guardedGateway routes every provider call through a circuit breaker
type guardedGateway struct {
	domain.Gateway
	breaker *CircuitBreaker
}

// WithCircuitBreaker wraps g so its network calls share cb
func WithCircuitBreaker(g domain.Gateway, cb *CircuitBreaker) domain.Gateway {
	if g == nil {
		return nil
	}
	return &guardedGateway{Gateway: g, breaker: cb}
}

func (g *guardedGateway) CreateOrder(ctx context.Context, req domain.OrderRequest) (*domain.ProviderOrder, error) {
	var out *domain.ProviderOrder
	err := g.breaker.Call(func() error {
		var err error
		out, err = g.Gateway.CreateOrder(ctx, req)
		return err
	})
	return out, err
}

func (g *guardedGateway) FetchPayment(ctx context.Context, providerPaymentID string) (*domain.ProviderPayment, error) {
	var out *domain.ProviderPayment
	err := g.breaker.Call(func() error {
		var err error
		out, err = g.Gateway.FetchPayment(ctx, providerPaymentID)
		return err
	})
	return out, err
}

func (g *guardedGateway) Refund(ctx context.Context, providerPaymentID string, amountMinor *int64) (*domain.ProviderRefund, error) {
	var out *domain.ProviderRefund
	err := g.breaker.Call(func() error {
		var err error
		out, err = g.Gateway.Refund(ctx, providerPaymentID, amountMinor)
		return err
	})
	return out, err
}
