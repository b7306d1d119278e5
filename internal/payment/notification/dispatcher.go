package notification

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tair/appointment-payments/internal/payment/domain"
	"github.com/tair/appointment-payments/pkg/logger"
)

// CustomerFinder looks up the customer a receipt is addressed to
type CustomerFinder interface {
	FindCustomer(ctx context.Context, tenantID, id uuid.UUID) (*domain.Customer, error)
}

// ReceiptDispatcher renders a receipt for a captured payment and enqueues the
// email. It runs in the background; failures are logged and counted only.
type ReceiptDispatcher struct {
	customers CustomerFinder
	renderer  domain.ReceiptRenderer
	queue     domain.TaskQueue
	metrics   *Metrics
	policy    domain.RetryPolicy
	wg        sync.WaitGroup
}

// NewReceiptDispatcher creates a receipt dispatcher
func NewReceiptDispatcher(customers CustomerFinder, renderer domain.ReceiptRenderer, queue domain.TaskQueue, metrics *Metrics) *ReceiptDispatcher {
	return &ReceiptDispatcher{
		customers: customers,
		renderer:  renderer,
		queue:     queue,
		metrics:   metrics,
		policy:    domain.DefaultRetryPolicy(),
	}
}

// SetMaxRetries overrides the retry budget stamped on enqueued tasks
func (d *ReceiptDispatcher) SetMaxRetries(n int) {
	if n >= 0 {
		d.policy.MaxRetries = n
	}
}

// Dispatch returns immediately. The request context's values are kept but its
// cancellation is not, so the work outlives the request.
func (d *ReceiptDispatcher) Dispatch(ctx context.Context, payment domain.Payment) {
	ctx = context.WithoutCancel(ctx)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if err := d.send(ctx, payment); err != nil {
			d.metrics.dispatch("failed")
			logger.Error(ctx).
				Err(err).
				Str("payment_id", payment.ID.String()).
				Str("tenant_id", payment.TenantID.String()).
				Msg("Receipt dispatch failed")
		}
	}()
}

// Wait blocks until in-flight dispatches finish
func (d *ReceiptDispatcher) Wait() {
	d.wg.Wait()
}

func (d *ReceiptDispatcher) send(ctx context.Context, payment domain.Payment) error {
	if payment.CustomerID == nil {
		d.metrics.dispatch("skipped")
		logger.Info(ctx).Str("payment_id", payment.ID.String()).Msg("No customer on payment, receipt skipped")
		return nil
	}
	customer, err := d.customers.FindCustomer(ctx, payment.TenantID, *payment.CustomerID)
	if err != nil {
		return fmt.Errorf("failed to load customer: %w", err)
	}
	if strings.TrimSpace(customer.Email) == "" {
		d.metrics.dispatch("skipped")
		logger.Info(ctx).Str("payment_id", payment.ID.String()).Msg("Customer has no email, receipt skipped")
		return nil
	}

	receipt := domain.Receipt{
		Number:            ReceiptNumber(payment),
		CustomerName:      customer.FullName,
		CustomerEmail:     customer.Email,
		Amount:            payment.Amount,
		Currency:          payment.Currency,
		Provider:          payment.Provider,
		ProviderPaymentID: payment.BoundPaymentID(),
		PaidAt:            payment.UpdatedAt,
	}

	task := domain.NotificationTask{
		ID:        uuid.New(),
		Kind:      domain.TaskBookingReceipt,
		TenantID:  payment.TenantID,
		PaymentID: payment.ID,
		To:        customer.Email,
		Subject:   fmt.Sprintf("Payment receipt %s", receipt.Number),
		Body:      receiptBody(receipt),
		Retry:     d.policy,
		CreatedAt: time.Now().UTC(),
	}

	// A receipt that fails to render still gets its confirmation email.
	if doc, err := d.renderer.Render(receipt); err != nil {
		logger.Warn(ctx).Err(err).Str("payment_id", payment.ID.String()).Msg("Receipt render failed, sending without attachment")
	} else {
		task.Attachments = []domain.Attachment{{
			Name:        "receipt.pdf",
			ContentType: "application/pdf",
			Content:     doc,
		}}
	}

	handle, err := d.queue.Enqueue(ctx, task)
	if err != nil {
		return err
	}
	d.metrics.dispatch("enqueued")
	logger.Info(ctx).
		Str("payment_id", payment.ID.String()).
		Str("task_id", handle.TaskID).
		Str("receipt", receipt.Number).
		Msg("Receipt notification enqueued")
	return nil
}

// ReceiptNumber derives a stable receipt number from the payment
func ReceiptNumber(p domain.Payment) string {
	hex := strings.ToUpper(strings.ReplaceAll(p.ID.String(), "-", ""))
	return fmt.Sprintf("RCPT-%s-%s", p.UpdatedAt.UTC().Format("20060102"), hex[:10])
}

func receiptBody(r domain.Receipt) string {
	name := r.CustomerName
	if name == "" {
		name = "there"
	}
	return fmt.Sprintf("Hi %s,\n\nWe received your payment of %s %s. Your receipt %s is attached.\n\nThank you.",
		name, r.Currency, r.Amount.StringFixed(2), r.Number)
}

var _ domain.ReceiptDispatcher = (*ReceiptDispatcher)(nil)
