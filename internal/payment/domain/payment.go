package domain

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Provider identifies the external payment provider a payment was created with
type Provider string

const (
	ProviderRazorpay Provider = "RAZORPAY"
	ProviderStripe   Provider = "STRIPE"
)

// ParseProvider maps a route segment such as "razorpay" to a Provider
func ParseProvider(raw string) (Provider, bool) {
	switch Provider(strings.ToUpper(strings.TrimSpace(raw))) {
	case ProviderRazorpay:
		return ProviderRazorpay, true
	case ProviderStripe:
		return ProviderStripe, true
	}
	return "", false
}

// Payment represents a provider-backed payment for an appointment
type Payment struct {
	ID                uuid.UUID       `json:"id" gorm:"type:uuid;primaryKey"`
	TenantID          uuid.UUID       `json:"tenant_id" gorm:"type:uuid;not null;index:ix_payments_tenant_appointment,priority:1;uniqueIndex:ux_payments_tenant_order,priority:1"`
	AppointmentID     uuid.UUID       `json:"appointment_id" gorm:"type:uuid;not null;index:ix_payments_tenant_appointment,priority:2"`
	CustomerID        *uuid.UUID      `json:"customer_id,omitempty" gorm:"type:uuid"`
	Provider          Provider        `json:"provider" gorm:"size:32;not null;default:'RAZORPAY'"`
	ProviderOrderID   string          `json:"provider_order_id" gorm:"size:255;not null;index;uniqueIndex:ux_payments_tenant_order,priority:2"`
	ProviderPaymentID *string         `json:"provider_payment_id,omitempty" gorm:"size:255"`
	Amount            decimal.Decimal `json:"amount" gorm:"type:numeric(10,2);not null"`
	Currency          string          `json:"currency" gorm:"size:8;not null;default:'INR'"`
	Status            PaymentStatus   `json:"status" gorm:"size:32;not null;default:'CREATED'"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// TableName specifies the table name
func (Payment) TableName() string {
	return "payments"
}

// BeforeCreate assigns a random id when none was set
func (p *Payment) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// BoundPaymentID returns the provider payment id or "" when none is bound yet
func (p *Payment) BoundPaymentID() string {
	if p.ProviderPaymentID == nil {
		return ""
	}
	return *p.ProviderPaymentID
}

// StatusChange describes what a reconciliation wants to do with a locked payment.
// Target may be empty, in which case only the event is recorded.
type StatusChange struct {
	Target            PaymentStatus
	ProviderPaymentID string
	Event             *PaymentEvent
}

// DecideFunc inspects the locked payment and returns the change to apply.
// Returning an error aborts the transaction without writing anything.
type DecideFunc func(ctx context.Context, current *Payment) (StatusChange, error)

// PaymentFilter narrows tenant payment listings
type PaymentFilter struct {
	Status        PaymentStatus
	AppointmentID *uuid.UUID
	Limit         int
	Offset        int
}

// NewOrder bundles the rows written atomically when an order is opened
type NewOrder struct {
	Appointment *Appointment
	Payment     *Payment
	Event       *PaymentEvent
}

// PaymentRepository defines the contract for payment data access.
// Every lookup except the webhook fallback is tenant scoped.
type PaymentRepository interface {
	CreateOrder(ctx context.Context, order NewOrder) error
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*Payment, error)
	FindByProviderOrder(ctx context.Context, tenantID *uuid.UUID, provider Provider, providerOrderID string) (*Payment, error)
	List(ctx context.Context, tenantID uuid.UUID, filter PaymentFilter) ([]Payment, error)
	EventExists(ctx context.Context, tenantID uuid.UUID, providerEventID string) (bool, error)
	ListEvents(ctx context.Context, tenantID, paymentID uuid.UUID) ([]PaymentEvent, error)
	Reconcile(ctx context.Context, paymentID uuid.UUID, decide DecideFunc) (*Payment, TransitionResult, error)

	FindAppointment(ctx context.Context, tenantID, id uuid.UUID) (*Appointment, error)
	FindCustomer(ctx context.Context, tenantID, id uuid.UUID) (*Customer, error)
}
