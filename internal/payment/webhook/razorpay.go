package webhook

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/tair/appointment-payments/internal/payment/domain"
	"github.com/tair/appointment-payments/internal/payment/signature"
)

const (
	RazorpaySignatureHeader = "X-Razorpay-Signature"
	RazorpayEventIDHeader   = "X-Razorpay-Event-Id"
)

// RazorpayParser handles Razorpay webhooks signed with the webhook secret
type RazorpayParser struct {
	secret string
}

func NewRazorpayParser(webhookSecret string) *RazorpayParser {
	return &RazorpayParser{secret: webhookSecret}
}

func (p *RazorpayParser) Provider() domain.Provider { return domain.ProviderRazorpay }

func (p *RazorpayParser) SignatureHeader() string { return RazorpaySignatureHeader }

func (p *RazorpayParser) Authenticate(body []byte, sig string) error {
	if !signature.VerifyWebhook(body, sig, p.secret) {
		return fmt.Errorf("%w: invalid razorpay webhook signature", domain.ErrAuthentication)
	}
	return nil
}

type razorpayEvent struct {
	Event   string `json:"event"`
	Payload struct {
		Payment *razorpayWrapper `json:"payment"`
		Order   *razorpayWrapper `json:"order"`
		Refund  *razorpayWrapper `json:"refund"`
	} `json:"payload"`
}

type razorpayWrapper struct {
	Entity razorpayEntity `json:"entity"`
}

// razorpayEntity covers the fields shared by payment, order and refund entities
type razorpayEntity struct {
	ID        string          `json:"id"`
	OrderID   string          `json:"order_id"`
	PaymentID string          `json:"payment_id"`
	Status    string          `json:"status"`
	Notes     json.RawMessage `json:"notes"`
}

// tenantHint reads notes.tenant_id. Razorpay sends notes as [] when empty.
func (e razorpayEntity) tenantHint() string {
	var notes map[string]interface{}
	if len(e.Notes) == 0 || json.Unmarshal(e.Notes, &notes) != nil {
		return ""
	}
	if v, ok := notes["tenant_id"].(string); ok {
		return v
	}
	return ""
}

// entityShape extracts correlation fields from one entity kind
type entityShape func(ev *razorpayEvent) (*Envelope, bool)

// razorpayShapes are tried in order; the first entity present wins
var razorpayShapes = []entityShape{
	razorpayPaymentShape,
	razorpayOrderShape,
	razorpayRefundShape,
}

func razorpayPaymentShape(ev *razorpayEvent) (*Envelope, bool) {
	if ev.Payload.Payment == nil {
		return nil, false
	}
	e := ev.Payload.Payment.Entity
	return &Envelope{
		EventID:    e.ID,
		OrderID:    e.OrderID,
		PaymentID:  e.ID,
		Status:     e.Status,
		TenantHint: e.tenantHint(),
	}, true
}

func razorpayOrderShape(ev *razorpayEvent) (*Envelope, bool) {
	if ev.Payload.Order == nil {
		return nil, false
	}
	e := ev.Payload.Order.Entity
	return &Envelope{
		EventID:    e.ID,
		OrderID:    e.ID,
		Status:     e.Status,
		TenantHint: e.tenantHint(),
	}, true
}

// razorpayRefundShape reports a processed refund as "refunded". A failed
// refund says nothing about the payment itself, so it maps to no status.
func razorpayRefundShape(ev *razorpayEvent) (*Envelope, bool) {
	if ev.Payload.Refund == nil {
		return nil, false
	}
	e := ev.Payload.Refund.Entity
	status := ""
	if strings.EqualFold(e.Status, "processed") {
		status = "refunded"
	}
	return &Envelope{
		EventID:    e.ID,
		OrderID:    e.OrderID,
		PaymentID:  e.PaymentID,
		Status:     status,
		TenantHint: e.tenantHint(),
	}, true
}

// Parse decodes a Razorpay webhook. The idempotency key is the delivery's
// X-Razorpay-Event-Id when present, otherwise "<entity id>:<event>" so that
// payment.authorized and payment.captured for one payment stay distinct.
func (p *RazorpayParser) Parse(body []byte, header http.Header) (*Envelope, error) {
	var ev razorpayEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return nil, malformed(domain.ProviderRazorpay, err)
	}

	env := &Envelope{}
	for _, shape := range razorpayShapes {
		if found, ok := shape(&ev); ok {
			env = found
			break
		}
	}

	env.Provider = domain.ProviderRazorpay
	env.EventType = ev.Event
	env.Raw = body

	if id := strings.TrimSpace(header.Get(RazorpayEventIDHeader)); id != "" {
		env.EventID = id
	} else if env.EventID != "" && ev.Event != "" {
		env.EventID = env.EventID + ":" + ev.Event
	}
	return env, nil
}
