package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RetryPolicy travels with a task so the worker needs no out-of-band config
type RetryPolicy struct {
	MaxRetries          int           `json:"max_retries"`
	InitialInterval     time.Duration `json:"initial_interval"`
	MaxInterval         time.Duration `json:"max_interval"`
	Multiplier          float64       `json:"multiplier"`
	RandomizationFactor float64       `json:"randomization_factor"`
}

// DefaultRetryPolicy is exponential backoff with jitter, five retries
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:          5,
		InitialInterval:     2 * time.Second,
		MaxInterval:         5 * time.Minute,
		Multiplier:          2,
		RandomizationFactor: 0.5,
	}
}

// Attachment is a file sent along with a notification
type Attachment struct {
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	Content     []byte `json:"content"`
}

// Notification task kinds
const (
	TaskBookingReceipt = "notification.booking_receipt"
)

// NotificationTask is one unit of asynchronous outbound notification work
type NotificationTask struct {
	ID          uuid.UUID    `json:"id"`
	Kind        string       `json:"kind"`
	TenantID    uuid.UUID    `json:"tenant_id"`
	PaymentID   uuid.UUID    `json:"payment_id"`
	To          string       `json:"to"`
	Subject     string       `json:"subject"`
	Body        string       `json:"body"`
	Attachments []Attachment `json:"attachments,omitempty"`
	Retry       RetryPolicy  `json:"retry"`
	CreatedAt   time.Time    `json:"created_at"`
}

// TaskHandle identifies an enqueued task
type TaskHandle struct {
	TaskID    string
	Topic     string
	Partition int32
	Offset    int64
}

// TaskQueue accepts notification tasks for asynchronous execution
type TaskQueue interface {
	Enqueue(ctx context.Context, task NotificationTask) (TaskHandle, error)
}

// Receipt is the data printed on a payment receipt
type Receipt struct {
	Number            string
	CustomerName      string
	CustomerEmail     string
	Amount            decimal.Decimal
	Currency          string
	Provider          Provider
	ProviderPaymentID string
	PaidAt            time.Time
}

// ReceiptRenderer turns a receipt into a printable document
type ReceiptRenderer interface {
	Render(receipt Receipt) ([]byte, error)
}

// Email is an outbound message
type Email struct {
	To          string
	Subject     string
	Body        string
	Attachments []Attachment
}

// Mailer delivers email
type Mailer interface {
	Send(ctx context.Context, email Email) error
}

// ReceiptDispatcher hands a captured payment off for receipt delivery.
// Dispatch returns immediately and never reports failure to the caller.
type ReceiptDispatcher interface {
	Dispatch(ctx context.Context, payment Payment)
}
