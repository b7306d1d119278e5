package webhook

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/stripe/stripe-go/v75"
	stripewebhook "github.com/stripe/stripe-go/v75/webhook"

	"github.com/tair/appointment-payments/internal/payment/domain"
)

const StripeSignatureHeader = "Stripe-Signature"

// StripeParser handles Stripe webhooks using the SDK's timestamped signature scheme
type StripeParser struct {
	secret string
}

func NewStripeParser(webhookSecret string) *StripeParser {
	return &StripeParser{secret: webhookSecret}
}

func (p *StripeParser) Provider() domain.Provider { return domain.ProviderStripe }

func (p *StripeParser) SignatureHeader() string { return StripeSignatureHeader }

func (p *StripeParser) Authenticate(body []byte, sig string) error {
	if p.secret == "" {
		return fmt.Errorf("%w: stripe webhook secret not configured", domain.ErrAuthentication)
	}
	if err := stripewebhook.ValidatePayload(body, sig, p.secret); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrAuthentication, err)
	}
	return nil
}

// Parse decodes payment_intent.* and charge.* events. Other event types
// produce an envelope without correlation fields.
func (p *StripeParser) Parse(body []byte, _ http.Header) (*Envelope, error) {
	var event stripe.Event
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, malformed(domain.ProviderStripe, err)
	}

	eventType := string(event.Type)
	env := &Envelope{
		Provider:  domain.ProviderStripe,
		EventType: eventType,
		EventID:   event.ID,
		Raw:       body,
	}
	if event.Data == nil || len(event.Data.Raw) == 0 {
		return env, nil
	}

	switch {
	case strings.HasPrefix(eventType, "payment_intent."):
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			return nil, malformed(domain.ProviderStripe, err)
		}
		env.OrderID = pi.ID
		env.PaymentID = pi.ID
		env.Status = stripeIntentStatus(eventType, string(pi.Status))
		env.TenantHint = pi.Metadata["tenant_id"]

	case strings.HasPrefix(eventType, "charge."):
		var ch stripe.Charge
		if err := json.Unmarshal(event.Data.Raw, &ch); err != nil {
			return nil, malformed(domain.ProviderStripe, err)
		}
		if ch.PaymentIntent != nil {
			env.OrderID = ch.PaymentIntent.ID
			env.PaymentID = ch.PaymentIntent.ID
		}
		if eventType == "charge.refunded" && ch.Refunded {
			env.Status = "refunded"
		}
		env.TenantHint = ch.Metadata["tenant_id"]
	}
	return env, nil
}

// stripeIntentStatus maps intent events onto the shared status vocabulary
func stripeIntentStatus(eventType, intentStatus string) string {
	switch eventType {
	case "payment_intent.succeeded":
		return "captured"
	case "payment_intent.amount_capturable_updated":
		return "authorized"
	case "payment_intent.payment_failed", "payment_intent.canceled":
		return "failed"
	}
	return StripeIntentStatus(intentStatus)
}

// StripeIntentStatus maps a PaymentIntent status to the shared vocabulary
func StripeIntentStatus(status string) string {
	switch stripe.PaymentIntentStatus(status) {
	case stripe.PaymentIntentStatusSucceeded:
		return "captured"
	case stripe.PaymentIntentStatusRequiresCapture:
		return "authorized"
	case stripe.PaymentIntentStatusCanceled:
		return "failed"
	}
	return ""
}
