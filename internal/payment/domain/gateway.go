package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

// OrderRequest is what the Order Gateway asks a provider to open
type OrderRequest struct {
	AmountMinor int64
	Currency    string
	Receipt     string
	Notes       map[string]string
}

// ProviderOrder is the provider's view of an opened order or intent
type ProviderOrder struct {
	ID  string
	Raw map[string]interface{}
}

// ProviderPayment is the canonical payment state fetched from a provider.
// Status is normalized to the lowercase vocabulary of StatusFromProvider.
type ProviderPayment struct {
	ID      string
	OrderID string
	Status  string
	Raw     map[string]interface{}
}

// ProviderRefund is the provider's response to a refund request
type ProviderRefund struct {
	ID          string
	PaymentID   string
	Status      string
	AmountMinor int64
	Raw         map[string]interface{}
}

// Gateway is the outbound contract to a payment provider. Implementations
// bound every network call with a timeout and report transport failures as
// ErrProviderUnavailable.
type Gateway interface {
	Provider() Provider
	PublicKey() string
	CreateOrder(ctx context.Context, req OrderRequest) (*ProviderOrder, error)
	FetchPayment(ctx context.Context, providerPaymentID string) (*ProviderPayment, error)
	Refund(ctx context.Context, providerPaymentID string, amountMinor *int64) (*ProviderRefund, error)
	VerifyCheckout(providerOrderID, providerPaymentID, signature string) bool
}

var hundred = decimal.NewFromInt(100)

// ToMinorUnits converts a major-unit amount to the provider's smallest unit
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(hundred).Round(0).IntPart()
}

// FromMinorUnits converts a provider amount back to major units
func FromMinorUnits(minor int64) decimal.Decimal {
	return decimal.NewFromInt(minor).Div(hundred)
}

// GatewayRegistry resolves the configured gateway for a provider
type GatewayRegistry interface {
	Get(provider Provider) (Gateway, error)
}
