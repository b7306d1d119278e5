package notification

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"

	"github.com/tair/appointment-payments/internal/payment/domain"
	"github.com/tair/appointment-payments/internal/payment/repository"
	"github.com/tair/appointment-payments/internal/payment/testutil"
)

func fastPolicy(retries int) domain.RetryPolicy {
	return domain.RetryPolicy{
		MaxRetries:      retries,
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
		Multiplier:      2,
	}
}

func TestPDFRenderer_Render(t *testing.T) {
	doc, err := NewPDFRenderer("Glow Salon").Render(domain.Receipt{
		Number:            "RCPT-20260101-ABCDEF0123",
		CustomerName:      "Asha Rao",
		CustomerEmail:     "asha@example.com",
		Amount:            decimal.RequireFromString("900"),
		Currency:          "INR",
		Provider:          domain.ProviderRazorpay,
		ProviderPaymentID: "pay_xyz",
		PaidAt:            time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !bytes.HasPrefix(doc, []byte("%PDF-")) {
		t.Errorf("output is not a PDF: %q", doc[:8])
	}
}

func TestReceiptDispatcher_EnqueuesReceipt(t *testing.T) {
	db := testutil.NewTestDB(t)
	fx := testutil.SeedAppointment(t, db)
	p := testutil.SeedPayment(t, db, fx, domain.StatusCaptured, "order_abc", "pay_xyz")

	queue := &testutil.FakeTaskQueue{}
	renderer := &testutil.StubRenderer{}
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	d := NewReceiptDispatcher(repository.NewGormPaymentRepository(db), renderer, queue, metrics)

	d.Dispatch(context.Background(), *p)
	d.Wait()

	tasks := queue.Enqueued()
	if len(tasks) != 1 {
		t.Fatalf("expected one task, got %d", len(tasks))
	}
	task := tasks[0]
	if task.Kind != domain.TaskBookingReceipt || task.To != "asha@example.com" || task.PaymentID != p.ID {
		t.Errorf("unexpected task %+v", task)
	}
	if len(task.Attachments) != 1 || task.Attachments[0].Name != "receipt.pdf" {
		t.Errorf("expected receipt attachment, got %+v", task.Attachments)
	}
	if task.Retry != domain.DefaultRetryPolicy() {
		t.Errorf("unexpected retry policy %+v", task.Retry)
	}
	if got := renderer.Receipts[0]; got.ProviderPaymentID != "pay_xyz" || got.CustomerName != "Asha Rao" {
		t.Errorf("unexpected receipt %+v", got)
	}
	if v := promtest.ToFloat64(metrics.dispatched.WithLabelValues("enqueued")); v != 1 {
		t.Errorf("enqueued counter = %v", v)
	}
}

func TestReceiptDispatcher_Failures(t *testing.T) {
	tests := []struct {
		name        string
		renderErr   error
		enqueueErr  error
		noCustomer  bool
		wantTasks   int
		wantOutcome string
	}{
		{
			name:        "Given render failure Then email still enqueued without attachment",
			renderErr:   errors.New("font missing"),
			wantTasks:   1,
			wantOutcome: "enqueued",
		},
		{
			name:        "Given queue failure Then counted as failed",
			enqueueErr:  errors.New("kafka down"),
			wantOutcome: "failed",
		},
		{
			name:        "Given payment without customer Then skipped",
			noCustomer:  true,
			wantOutcome: "skipped",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := testutil.NewTestDB(t)
			fx := testutil.SeedAppointment(t, db)
			p := testutil.SeedPayment(t, db, fx, domain.StatusCaptured, "order_abc", "pay_xyz")
			if tt.noCustomer {
				p.CustomerID = nil
			}

			queue := &testutil.FakeTaskQueue{}
			if tt.enqueueErr != nil {
				queue.EnqueueFunc = func(context.Context, domain.NotificationTask) (domain.TaskHandle, error) {
					return domain.TaskHandle{}, tt.enqueueErr
				}
			}
			metrics := NewMetrics(prometheus.NewRegistry())
			d := NewReceiptDispatcher(repository.NewGormPaymentRepository(db), &testutil.StubRenderer{Err: tt.renderErr}, queue, metrics)

			d.Dispatch(context.Background(), *p)
			d.Wait()

			tasks := queue.Enqueued()
			if len(tasks) != tt.wantTasks {
				t.Fatalf("expected %d tasks, got %d", tt.wantTasks, len(tasks))
			}
			if tt.wantTasks > 0 && len(tasks[0].Attachments) != 0 {
				t.Errorf("expected no attachment after render failure")
			}
			if v := promtest.ToFloat64(metrics.dispatched.WithLabelValues(tt.wantOutcome)); v != 1 {
				t.Errorf("%s counter = %v", tt.wantOutcome, v)
			}
		})
	}
}

func TestReceiptDispatcher_OutlivesRequestContext(t *testing.T) {
	db := testutil.NewTestDB(t)
	fx := testutil.SeedAppointment(t, db)
	p := testutil.SeedPayment(t, db, fx, domain.StatusCaptured, "order_abc", "pay_xyz")
	queue := &testutil.FakeTaskQueue{}
	d := NewReceiptDispatcher(repository.NewGormPaymentRepository(db), &testutil.StubRenderer{}, queue, nil)

	ctx, cancel := context.WithCancel(context.Background())
	d.Dispatch(ctx, *p)
	cancel()
	d.Wait()

	if len(queue.Enqueued()) != 1 {
		t.Fatal("cancelled request context must not abort receipt dispatch")
	}
}

func TestWorker_Handle(t *testing.T) {
	tests := []struct {
		name         string
		failTimes    int
		retries      int
		wantErr      bool
		wantAttempts int
	}{
		{"Given healthy mailer Then one attempt", 0, 3, false, 1},
		{"Given transient failures Then retried until sent", 2, 3, false, 3},
		{"Given persistent failure Then gives up after retries", 10, 2, true, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mailer := &testutil.FakeMailer{FailTimes: tt.failTimes}
			w := NewWorker(mailer, NewMetrics(prometheus.NewRegistry()))

			err := w.Handle(context.Background(), domain.NotificationTask{
				ID:          uuid.New(),
				Kind:        domain.TaskBookingReceipt,
				To:          "asha@example.com",
				Subject:     "Receipt",
				Attachments: []domain.Attachment{{Name: "receipt.pdf", ContentType: "application/pdf", Content: []byte("%PDF")}},
				Retry:       fastPolicy(tt.retries),
			})
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if mailer.Attempts != tt.wantAttempts {
				t.Errorf("attempts = %d, want %d", mailer.Attempts, tt.wantAttempts)
			}
			if !tt.wantErr && (len(mailer.Sent) != 1 || len(mailer.Sent[0].Attachments) != 1) {
				t.Errorf("unexpected sent mail %+v", mailer.Sent)
			}
		})
	}
}

func TestWorker_StopsOnCancelledContext(t *testing.T) {
	mailer := &testutil.FakeMailer{FailTimes: 100}
	w := NewWorker(mailer, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	policy := fastPolicy(50)
	policy.InitialInterval = time.Second

	if err := w.Handle(ctx, domain.NotificationTask{ID: uuid.New(), To: "a@example.com", Retry: policy}); err == nil {
		t.Fatal("expected error for cancelled context")
	}
	if mailer.Attempts > 1 {
		t.Errorf("cancelled context kept retrying: %d attempts", mailer.Attempts)
	}
}
