package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/tair/appointment-payments/internal/payment/domain"
	"github.com/tair/appointment-payments/internal/payment/signature"
)

// RefundCall records one FakeGateway.Refund invocation
type RefundCall struct {
	ProviderPaymentID string
	AmountMinor       *int64
}

// FakeGateway is a scriptable domain.Gateway. Nil funcs fall back to
// successful canned responses.
type FakeGateway struct {
	mu sync.Mutex

	ProviderName   domain.Provider
	Key            string
	CheckoutSecret string

	CreateOrderFunc  func(ctx context.Context, req domain.OrderRequest) (*domain.ProviderOrder, error)
	FetchPaymentFunc func(ctx context.Context, id string) (*domain.ProviderPayment, error)
	RefundFunc       func(ctx context.Context, id string, amountMinor *int64) (*domain.ProviderRefund, error)

	OrderRequests []domain.OrderRequest
	FetchCalls    []string
	RefundCalls   []RefundCall
}

// NewFakeGateway returns a Razorpay-flavoured fake that signs checkouts with secret
func NewFakeGateway(secret string) *FakeGateway {
	return &FakeGateway{
		ProviderName:   domain.ProviderRazorpay,
		Key:            "rzp_test_key",
		CheckoutSecret: secret,
	}
}

func (g *FakeGateway) Provider() domain.Provider { return g.ProviderName }

func (g *FakeGateway) PublicKey() string { return g.Key }

func (g *FakeGateway) CreateOrder(ctx context.Context, req domain.OrderRequest) (*domain.ProviderOrder, error) {
	g.mu.Lock()
	g.OrderRequests = append(g.OrderRequests, req)
	n := len(g.OrderRequests)
	g.mu.Unlock()

	if g.CreateOrderFunc != nil {
		return g.CreateOrderFunc(ctx, req)
	}
	id := fmt.Sprintf("order_test_%d", n)
	return &domain.ProviderOrder{
		ID: id,
		Raw: map[string]interface{}{
			"id":       id,
			"amount":   req.AmountMinor,
			"currency": req.Currency,
			"receipt":  req.Receipt,
			"status":   "created",
		},
	}, nil
}

func (g *FakeGateway) FetchPayment(ctx context.Context, id string) (*domain.ProviderPayment, error) {
	g.mu.Lock()
	g.FetchCalls = append(g.FetchCalls, id)
	g.mu.Unlock()

	if g.FetchPaymentFunc != nil {
		return g.FetchPaymentFunc(ctx, id)
	}
	return &domain.ProviderPayment{
		ID:     id,
		Status: "captured",
		Raw:    map[string]interface{}{"id": id, "status": "captured"},
	}, nil
}

func (g *FakeGateway) Refund(ctx context.Context, id string, amountMinor *int64) (*domain.ProviderRefund, error) {
	g.mu.Lock()
	g.RefundCalls = append(g.RefundCalls, RefundCall{ProviderPaymentID: id, AmountMinor: amountMinor})
	g.mu.Unlock()

	if g.RefundFunc != nil {
		return g.RefundFunc(ctx, id, amountMinor)
	}
	var amount int64
	if amountMinor != nil {
		amount = *amountMinor
	}
	refundID := "rfnd_" + uuid.NewString()[:8]
	return &domain.ProviderRefund{
		ID:          refundID,
		PaymentID:   id,
		Status:      "processed",
		AmountMinor: amount,
		Raw: map[string]interface{}{
			"id":         refundID,
			"payment_id": id,
			"amount":     amount,
			"status":     "processed",
		},
	}, nil
}

func (g *FakeGateway) VerifyCheckout(orderID, paymentID, sig string) bool {
	return signature.VerifyCheckout(orderID, paymentID, sig, g.CheckoutSecret)
}

// RefundCallCount returns the number of refund calls made
func (g *FakeGateway) RefundCallCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.RefundCalls)
}

// FakeTaskQueue records enqueued tasks
type FakeTaskQueue struct {
	mu          sync.Mutex
	EnqueueFunc func(ctx context.Context, task domain.NotificationTask) (domain.TaskHandle, error)
	Tasks       []domain.NotificationTask
}

func (q *FakeTaskQueue) Enqueue(ctx context.Context, task domain.NotificationTask) (domain.TaskHandle, error) {
	if q.EnqueueFunc != nil {
		return q.EnqueueFunc(ctx, task)
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.Tasks = append(q.Tasks, task)
	return domain.TaskHandle{TaskID: task.ID.String(), Topic: "test"}, nil
}

// Enqueued returns a copy of the recorded tasks
func (q *FakeTaskQueue) Enqueued() []domain.NotificationTask {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]domain.NotificationTask(nil), q.Tasks...)
}

// RecordingDispatcher is a synchronous domain.ReceiptDispatcher
type RecordingDispatcher struct {
	mu       sync.Mutex
	Payments []domain.Payment
}

func (d *RecordingDispatcher) Dispatch(_ context.Context, payment domain.Payment) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Payments = append(d.Payments, payment)
}

// CallCount returns how many receipts were dispatched
func (d *RecordingDispatcher) CallCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.Payments)
}

// FakeMailer records sent emails and fails the first FailTimes sends
type FakeMailer struct {
	mu        sync.Mutex
	FailTimes int
	Attempts  int
	Sent      []domain.Email
}

func (m *FakeMailer) Send(_ context.Context, email domain.Email) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Attempts++
	if m.Attempts <= m.FailTimes {
		return fmt.Errorf("smtp unavailable (attempt %d)", m.Attempts)
	}
	m.Sent = append(m.Sent, email)
	return nil
}

// StubRenderer returns fixed bytes for any receipt
type StubRenderer struct {
	Err      error
	Receipts []domain.Receipt
	mu       sync.Mutex
}

func (r *StubRenderer) Render(receipt domain.Receipt) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Receipts = append(r.Receipts, receipt)
	if r.Err != nil {
		return nil, r.Err
	}
	return []byte("%PDF-1.3 stub"), nil
}
