package webhook

import (
	"fmt"
	"net/http"

	"github.com/tair/appointment-payments/internal/payment/domain"
)

// Envelope is the provider-neutral view of one webhook delivery
type Envelope struct {
	Provider   domain.Provider
	EventType  string
	// EventID is the idempotency key. Razorpay keys without an event id
	// header are qualified as "<entity id>:<event>".
	EventID    string
	OrderID    string
	PaymentID  string
	Status     string
	TenantHint string
	Raw        []byte
}

// Parser authenticates and decodes webhooks for one provider
type Parser interface {
	Provider() domain.Provider
	SignatureHeader() string
	Authenticate(body []byte, signature string) error
	Parse(body []byte, header http.Header) (*Envelope, error)
}

// Registry resolves the parser for a provider
type Registry map[domain.Provider]Parser

// NewRegistry indexes parsers by provider
func NewRegistry(parsers ...Parser) Registry {
	r := make(Registry, len(parsers))
	for _, p := range parsers {
		r[p.Provider()] = p
	}
	return r
}

// Get returns the parser for provider or ErrNotFound
func (r Registry) Get(provider domain.Provider) (Parser, error) {
	p, ok := r[provider]
	if !ok {
		return nil, fmt.Errorf("%w: no webhook parser for %s", domain.ErrNotFound, provider)
	}
	return p, nil
}

func malformed(provider domain.Provider, err error) error {
	return fmt.Errorf("%w: malformed %s webhook: %v", domain.ErrInvalidRequest, provider, err)
}
