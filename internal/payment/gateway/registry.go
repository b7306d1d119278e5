package gateway

import (
	"fmt"

	"github.com/tair/appointment-payments/internal/payment/domain"
)

// Registry resolves the outbound gateway for a provider
type Registry map[domain.Provider]domain.Gateway

// NewRegistry indexes gateways by provider, skipping nil entries
func NewRegistry(gateways ...domain.Gateway) Registry {
	r := make(Registry, len(gateways))
	for _, g := range gateways {
		if g != nil {
			r[g.Provider()] = g
		}
	}
	return r
}

// Get returns the gateway for provider or ErrNotFound
func (r Registry) Get(provider domain.Provider) (domain.Gateway, error) {
	g, ok := r[provider]
	if !ok {
		return nil, fmt.Errorf("%w: payment provider %s is not configured", domain.ErrNotFound, provider)
	}
	return g, nil
}
