package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Ledger event types written by this service
const (
	EventOrderCreated     = "order.created"
	EventCheckoutVerified = "checkout.verified"
	EventRefundCreated    = "refund.created"
)

// PaymentEvent is an append-only record of a payment-affecting signal.
// (tenant_id, provider_event_id) is unique; rows with a NULL event id never collide.
type PaymentEvent struct {
	ID                uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	TenantID          uuid.UUID      `json:"tenant_id" gorm:"type:uuid;not null;uniqueIndex:ux_payment_events_tenant_event,priority:1"`
	PaymentID         *uuid.UUID     `json:"payment_id,omitempty" gorm:"type:uuid;index"`
	Provider          Provider       `json:"provider" gorm:"size:32;not null"`
	EventType         string         `json:"event_type" gorm:"size:128;not null"`
	ProviderEventID   *string        `json:"provider_event_id,omitempty" gorm:"size:255;uniqueIndex:ux_payment_events_tenant_event,priority:2"`
	ProviderOrderID   string         `json:"provider_order_id,omitempty" gorm:"size:255"`
	ProviderPaymentID string         `json:"provider_payment_id,omitempty" gorm:"size:255"`
	Payload           datatypes.JSON `json:"payload"`
	CreatedAt         time.Time      `json:"created_at"`
}

// TableName specifies the table name
func (PaymentEvent) TableName() string {
	return "payment_events"
}

// BeforeCreate assigns a random id when none was set
func (e *PaymentEvent) BeforeCreate(*gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// EventKey returns a pointer suitable for ProviderEventID, nil for ""
func EventKey(id string) *string {
	if id == "" {
		return nil
	}
	return &id
}

// ProcessedEventCache remembers recently applied provider event ids so replays
// can be acknowledged without a database round trip. The ledger's unique
// index stays authoritative; a cache miss only means "ask the database".
type ProcessedEventCache interface {
	Seen(ctx context.Context, tenantID uuid.UUID, providerEventID string) (bool, error)
	Remember(ctx context.Context, tenantID uuid.UUID, providerEventID string) error
}
