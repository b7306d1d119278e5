package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tair/appointment-payments/internal/payment/domain"
	"github.com/tair/appointment-payments/internal/payment/gateway"
	"github.com/tair/appointment-payments/internal/payment/repository"
	"github.com/tair/appointment-payments/internal/payment/signature"
	"github.com/tair/appointment-payments/internal/payment/testutil"
	"github.com/tair/appointment-payments/internal/payment/webhook"
	"github.com/tair/appointment-payments/pkg/logger"
)

const (
	webhookSecret  = "whsec_test"
	checkoutSecret = "rzp_key_secret"
)

type harness struct {
	db       *gorm.DB
	repo     *repository.GormPaymentRepository
	gw       *testutil.FakeGateway
	receipts *testutil.RecordingDispatcher

	createOrder *CreateOrderHandler
	webhook     *HandleWebhookHandler
	verify      *VerifyCheckoutHandler
	refund      *RefundPaymentHandler
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db := testutil.NewTestDB(t)
	repo := repository.NewGormPaymentRepository(db)
	gw := testutil.NewFakeGateway(checkoutSecret)
	gateways := gateway.NewRegistry(gw)
	receipts := &testutil.RecordingDispatcher{}

	return &harness{
		db:          db,
		repo:        repo,
		gw:          gw,
		receipts:    receipts,
		createOrder: NewCreateOrderHandler(repo, gateways),
		webhook:     NewHandleWebhookHandler(repo, webhook.NewRegistry(webhook.NewRazorpayParser(webhookSecret)), repository.NoopEventCache{}, receipts),
		verify:      NewVerifyCheckoutHandler(repo, gateways, receipts),
		refund:      NewRefundPaymentHandler(repo, gateways),
	}
}

func paymentWebhook(event, orderID, paymentID, status, tenant string) []byte {
	return []byte(fmt.Sprintf(`{"entity":"event","event":%q,"payload":{"payment":{"entity":{"id":%q,"order_id":%q,"status":%q,"notes":{"tenant_id":%q}}}}}`,
		event, paymentID, orderID, status, tenant))
}

func signedWebhook(body []byte) HandleWebhookCommand {
	return HandleWebhookCommand{
		Provider: domain.ProviderRazorpay,
		Body:     body,
		Header:   http.Header{webhook.RazorpaySignatureHeader: []string{signature.Sign(body, webhookSecret)}},
	}
}

func checkoutSig(orderID, paymentID string) string {
	return signature.Sign([]byte(orderID+"|"+paymentID), checkoutSecret)
}

func TestCreateOrder(t *testing.T) {
	h := newHarness(t)
	fx := testutil.SeedAppointment(t, h.db)

	res, err := h.createOrder.Handle(context.Background(), CreateOrderCommand{
		TenantID:      fx.TenantID,
		AppointmentID: fx.Appointment.ID,
		Provider:      domain.ProviderRazorpay,
		Amount:        decimal.RequireFromString("900.00"),
		Currency:      "inr",
	})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}

	if res.Payment.Status != domain.StatusCreated || res.Payment.ProviderOrderID != "order_test_1" {
		t.Errorf("unexpected payment %+v", res.Payment)
	}
	if res.PublicKey != "rzp_test_key" {
		t.Errorf("public key = %q", res.PublicKey)
	}
	if res.Customer.Email != "asha@example.com" || res.Customer.Name != "Asha Rao" {
		t.Errorf("unexpected customer %+v", res.Customer)
	}

	req := h.gw.OrderRequests[0]
	if req.AmountMinor != 90000 || req.Currency != "INR" || len(req.Receipt) > 40 {
		t.Errorf("unexpected order request %+v", req)
	}
	if req.Notes["tenant_id"] != fx.TenantID.String() {
		t.Errorf("tenant note missing: %+v", req.Notes)
	}

	if n := testutil.CountEvents(t, h.db, res.Payment.ID); n != 1 {
		t.Errorf("expected order.created event, got %d events", n)
	}
	appt := testutil.LoadAppointment(t, h.db, fx.Appointment.ID)
	if !appt.AmountDue.Equal(decimal.RequireFromString("900")) || appt.PaymentStatus != domain.AppointmentUnpaid {
		t.Errorf("appointment not stamped: %+v", appt)
	}
}

func TestCreateOrder_Rejections(t *testing.T) {
	h := newHarness(t)
	fx := testutil.SeedAppointment(t, h.db)
	other := testutil.SeedAppointment(t, h.db)

	tests := []struct {
		name string
		cmd  CreateOrderCommand
		want error
	}{
		{
			name: "Given zero amount Then invalid request",
			cmd:  CreateOrderCommand{TenantID: fx.TenantID, AppointmentID: fx.Appointment.ID, Provider: domain.ProviderRazorpay},
			want: domain.ErrInvalidRequest,
		},
		{
			name: "Given another tenant's appointment Then not found",
			cmd:  CreateOrderCommand{TenantID: fx.TenantID, AppointmentID: other.Appointment.ID, Provider: domain.ProviderRazorpay, Amount: decimal.NewFromInt(10)},
			want: domain.ErrNotFound,
		},
		{
			name: "Given unconfigured provider Then not found",
			cmd:  CreateOrderCommand{TenantID: fx.TenantID, AppointmentID: fx.Appointment.ID, Provider: domain.ProviderStripe, Amount: decimal.NewFromInt(10)},
			want: domain.ErrNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.createOrder.Handle(context.Background(), tt.cmd)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}

	if payments, events := testutil.CountAllRows(t, h.db); payments != 0 || events != 0 {
		t.Errorf("rejections wrote rows: payments=%d events=%d", payments, events)
	}
}

func TestCreateOrder_KeepsPaidAppointment(t *testing.T) {
	h := newHarness(t)
	fx := testutil.SeedAppointment(t, h.db)
	order := CreateOrderCommand{
		TenantID: fx.TenantID, AppointmentID: fx.Appointment.ID, Provider: domain.ProviderRazorpay, Amount: decimal.NewFromInt(900),
	}

	first, err := h.createOrder.Handle(context.Background(), order)
	if err != nil {
		t.Fatalf("first order: %v", err)
	}
	body := paymentWebhook("payment.captured", first.Payment.ProviderOrderID, "pay_first", "captured", fx.TenantID.String())
	if _, err := h.webhook.Handle(context.Background(), signedWebhook(body)); err != nil {
		t.Fatalf("capture: %v", err)
	}

	if _, err := h.createOrder.Handle(context.Background(), order); err != nil {
		t.Fatalf("second order: %v", err)
	}

	if appt := testutil.LoadAppointment(t, h.db, fx.Appointment.ID); appt.PaymentStatus != domain.AppointmentPaid {
		t.Errorf("appointment status = %s, want PAID", appt.PaymentStatus)
	}
	if got := testutil.LoadPayment(t, h.db, first.Payment.ID); got.Status != domain.StatusCaptured {
		t.Errorf("first payment status = %s", got.Status)
	}
}

func TestCreateOrder_ProviderFailureWritesNothing(t *testing.T) {
	h := newHarness(t)
	fx := testutil.SeedAppointment(t, h.db)
	h.gw.CreateOrderFunc = func(context.Context, domain.OrderRequest) (*domain.ProviderOrder, error) {
		return nil, fmt.Errorf("%w: timeout", domain.ErrProviderUnavailable)
	}

	_, err := h.createOrder.Handle(context.Background(), CreateOrderCommand{
		TenantID: fx.TenantID, AppointmentID: fx.Appointment.ID, Provider: domain.ProviderRazorpay, Amount: decimal.NewFromInt(900),
	})
	if !errors.Is(err, domain.ErrProviderUnavailable) {
		t.Fatalf("expected ErrProviderUnavailable, got %v", err)
	}
	if payments, events := testutil.CountAllRows(t, h.db); payments != 0 || events != 0 {
		t.Errorf("provider failure wrote rows: payments=%d events=%d", payments, events)
	}
}

func TestHandleWebhook_CapturesOnce(t *testing.T) {
	h := newHarness(t)
	fx := testutil.SeedAppointment(t, h.db)
	p := testutil.SeedPayment(t, h.db, fx, domain.StatusCreated, "order_abc", "")
	body := paymentWebhook("payment.captured", "order_abc", "pay_xyz", "captured", fx.TenantID.String())

	first, err := h.webhook.Handle(context.Background(), signedWebhook(body))
	if err != nil {
		t.Fatalf("first delivery: %v", err)
	}
	if first.Outcome != OutcomeApplied || !first.Transition.Captured() {
		t.Fatalf("unexpected first result %+v", first)
	}

	second, err := h.webhook.Handle(context.Background(), signedWebhook(body))
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if second.Outcome != OutcomeDuplicate {
		t.Errorf("replay outcome = %s", second.Outcome)
	}

	got := testutil.LoadPayment(t, h.db, p.ID)
	if got.Status != domain.StatusCaptured || got.BoundPaymentID() != "pay_xyz" {
		t.Errorf("unexpected payment %+v", got)
	}
	if n := testutil.CountEvents(t, h.db, p.ID); n != 1 {
		t.Errorf("expected one event, got %d", n)
	}
	if appt := testutil.LoadAppointment(t, h.db, fx.Appointment.ID); appt.PaymentStatus != domain.AppointmentPaid {
		t.Errorf("appointment status = %s", appt.PaymentStatus)
	}
	if h.receipts.CallCount() != 1 {
		t.Errorf("expected one receipt, got %d", h.receipts.CallCount())
	}
}

func TestHandleWebhook_OutOfOrderAuthorizedIsRecorded(t *testing.T) {
	h := newHarness(t)
	fx := testutil.SeedAppointment(t, h.db)
	p := testutil.SeedPayment(t, h.db, fx, domain.StatusCreated, "order_abc", "")
	tenant := fx.TenantID.String()

	if _, err := h.webhook.Handle(context.Background(), signedWebhook(paymentWebhook("payment.captured", "order_abc", "pay_xyz", "captured", tenant))); err != nil {
		t.Fatalf("captured: %v", err)
	}
	res, err := h.webhook.Handle(context.Background(), signedWebhook(paymentWebhook("payment.authorized", "order_abc", "pay_xyz", "authorized", tenant)))
	if err != nil {
		t.Fatalf("authorized: %v", err)
	}
	if res.Outcome != OutcomeRecorded {
		t.Errorf("late authorized outcome = %s", res.Outcome)
	}

	if got := testutil.LoadPayment(t, h.db, p.ID); got.Status != domain.StatusCaptured {
		t.Errorf("late authorized regressed status to %s", got.Status)
	}
	if n := testutil.CountEvents(t, h.db, p.ID); n != 2 {
		t.Errorf("expected both events in the ledger, got %d", n)
	}
}

func TestHandleWebhook_Rejections(t *testing.T) {
	h := newHarness(t)
	fx := testutil.SeedAppointment(t, h.db)
	p := testutil.SeedPayment(t, h.db, fx, domain.StatusCreated, "order_abc", "")
	body := paymentWebhook("payment.captured", "order_abc", "pay_xyz", "captured", fx.TenantID.String())

	tests := []struct {
		name string
		cmd  HandleWebhookCommand
		want error
	}{
		{
			name: "Given no signature header Then authentication failure",
			cmd:  HandleWebhookCommand{Provider: domain.ProviderRazorpay, Body: body, Header: http.Header{}},
			want: domain.ErrAuthentication,
		},
		{
			name: "Given forged signature Then authentication failure",
			cmd: HandleWebhookCommand{Provider: domain.ProviderRazorpay, Body: body, Header: http.Header{
				webhook.RazorpaySignatureHeader: []string{signature.Sign(body, "wrong")},
			}},
			want: domain.ErrAuthentication,
		},
		{
			name: "Given signed garbage Then invalid request",
			cmd:  signedWebhook([]byte("not json")),
			want: domain.ErrInvalidRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.webhook.Handle(context.Background(), tt.cmd)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}

	if got := testutil.LoadPayment(t, h.db, p.ID); got.Status != domain.StatusCreated {
		t.Errorf("rejected webhook mutated status to %s", got.Status)
	}
	if n := testutil.CountEvents(t, h.db, p.ID); n != 0 {
		t.Errorf("rejected webhook wrote %d events", n)
	}
}

func TestHandleWebhook_Uncorrelated(t *testing.T) {
	h := newHarness(t)
	fx := testutil.SeedAppointment(t, h.db)

	res, err := h.webhook.Handle(context.Background(), signedWebhook(paymentWebhook("payment.captured", "order_unknown", "pay_1", "captured", fx.TenantID.String())))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if res.Outcome != OutcomeUncorrelated {
		t.Errorf("outcome = %s", res.Outcome)
	}
	if payments, events := testutil.CountAllRows(t, h.db); payments != 0 || events != 0 {
		t.Errorf("uncorrelated webhook wrote rows: payments=%d events=%d", payments, events)
	}
}

func TestHandleWebhook_MissingTenantHintFallsBack(t *testing.T) {
	h := newHarness(t)
	fx := testutil.SeedAppointment(t, h.db)
	p := testutil.SeedPayment(t, h.db, fx, domain.StatusCreated, "order_abc", "")

	res, err := h.webhook.Handle(context.Background(), signedWebhook(paymentWebhook("payment.failed", "order_abc", "pay_xyz", "failed", "not-a-uuid")))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if res.Outcome != OutcomeApplied {
		t.Errorf("outcome = %s", res.Outcome)
	}
	if got := testutil.LoadPayment(t, h.db, p.ID); got.Status != domain.StatusFailed {
		t.Errorf("status = %s", got.Status)
	}
	if h.receipts.CallCount() != 0 {
		t.Error("failed payment must not send a receipt")
	}
}

func TestHandleWebhook_ConcurrentDuplicatesApplyOnce(t *testing.T) {
	h := newHarness(t)
	fx := testutil.SeedAppointment(t, h.db)
	p := testutil.SeedPayment(t, h.db, fx, domain.StatusCreated, "order_abc", "")
	cmd := signedWebhook(paymentWebhook("payment.captured", "order_abc", "pay_xyz", "captured", fx.TenantID.String()))

	const workers = 6
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		outcomes = map[WebhookOutcome]int{}
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := h.webhook.Handle(context.Background(), cmd)
			if err != nil {
				t.Errorf("Handle: %v", err)
				return
			}
			mu.Lock()
			outcomes[res.Outcome]++
			mu.Unlock()
		}()
	}
	wg.Wait()

	if outcomes[OutcomeApplied] != 1 || outcomes[OutcomeDuplicate] != workers-1 {
		t.Errorf("unexpected outcomes %v", outcomes)
	}
	if n := testutil.CountEvents(t, h.db, p.ID); n != 1 {
		t.Errorf("expected one event, got %d", n)
	}
	if h.receipts.CallCount() != 1 {
		t.Errorf("expected one receipt, got %d", h.receipts.CallCount())
	}
}

func TestVerifyCheckout(t *testing.T) {
	h := newHarness(t)
	fx := testutil.SeedAppointment(t, h.db)
	p := testutil.SeedPayment(t, h.db, fx, domain.StatusCreated, "order_abc", "")

	cmd := VerifyCheckoutCommand{
		TenantID:          fx.TenantID,
		Provider:          domain.ProviderRazorpay,
		PaymentID:         p.ID,
		ProviderOrderID:   "order_abc",
		ProviderPaymentID: "pay_xyz",
		Signature:         checkoutSig("order_abc", "pay_xyz"),
	}
	res, err := h.verify.Handle(context.Background(), cmd)
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if res.Payment.Status != domain.StatusCaptured || !res.Transition.Captured() {
		t.Fatalf("unexpected result %+v", res)
	}

	again, err := h.verify.Handle(context.Background(), cmd)
	if err != nil {
		t.Fatalf("repeat verify: %v", err)
	}
	if again.Transition.Applied || again.Payment.Status != domain.StatusCaptured {
		t.Errorf("repeat verify should observe CAPTURED without applying: %+v", again.Transition)
	}

	if h.receipts.CallCount() != 1 {
		t.Errorf("expected one receipt across repeated verifies, got %d", h.receipts.CallCount())
	}
	if n := testutil.CountEvents(t, h.db, p.ID); n != 2 {
		t.Errorf("expected a checkout.verified event per call, got %d", n)
	}
	if got := testutil.LoadPayment(t, h.db, p.ID); got.BoundPaymentID() != "pay_xyz" {
		t.Errorf("provider payment id not bound: %+v", got)
	}
}

func TestVerifyCheckout_ForgedSignatureNeverMutates(t *testing.T) {
	h := newHarness(t)
	fx := testutil.SeedAppointment(t, h.db)
	p := testutil.SeedPayment(t, h.db, fx, domain.StatusCreated, "order_abc", "")

	_, err := h.verify.Handle(context.Background(), VerifyCheckoutCommand{
		TenantID:          fx.TenantID,
		Provider:          domain.ProviderRazorpay,
		PaymentID:         p.ID,
		ProviderOrderID:   "order_abc",
		ProviderPaymentID: "pay_xyz",
		Signature:         signature.Sign([]byte("order_abc|pay_xyz"), "attacker"),
	})
	if !errors.Is(err, domain.ErrAuthentication) {
		t.Fatalf("expected ErrAuthentication, got %v", err)
	}
	if len(h.gw.FetchCalls) != 0 {
		t.Error("provider must not be queried for a forged signature")
	}
	if got := testutil.LoadPayment(t, h.db, p.ID); got.Status != domain.StatusCreated {
		t.Errorf("forged verify mutated status to %s", got.Status)
	}
	if n := testutil.CountEvents(t, h.db, p.ID); n != 0 {
		t.Errorf("forged verify wrote %d events", n)
	}
}

func TestVerifyCheckout_Rejections(t *testing.T) {
	h := newHarness(t)
	fx := testutil.SeedAppointment(t, h.db)
	p := testutil.SeedPayment(t, h.db, fx, domain.StatusCreated, "order_abc", "")
	bound := testutil.SeedPayment(t, h.db, fx, domain.StatusAuthorized, "order_def", "pay_first")
	other := testutil.SeedAppointment(t, h.db)

	tests := []struct {
		name  string
		cmd   VerifyCheckoutCommand
		fetch func(context.Context, string) (*domain.ProviderPayment, error)
		want  error
	}{
		{
			name: "Given other tenant Then not found",
			cmd:  VerifyCheckoutCommand{TenantID: other.TenantID, Provider: domain.ProviderRazorpay, PaymentID: p.ID, ProviderOrderID: "order_abc", ProviderPaymentID: "pay_xyz", Signature: checkoutSig("order_abc", "pay_xyz")},
			want: domain.ErrNotFound,
		},
		{
			name: "Given mismatched order id Then invalid state",
			cmd:  VerifyCheckoutCommand{TenantID: fx.TenantID, Provider: domain.ProviderRazorpay, PaymentID: p.ID, ProviderOrderID: "order_zzz", ProviderPaymentID: "pay_xyz", Signature: checkoutSig("order_zzz", "pay_xyz")},
			want: domain.ErrInvalidState,
		},
		{
			name: "Given fetched payment of another order Then authentication failure",
			cmd:  VerifyCheckoutCommand{TenantID: fx.TenantID, Provider: domain.ProviderRazorpay, PaymentID: p.ID, ProviderOrderID: "order_abc", ProviderPaymentID: "pay_xyz", Signature: checkoutSig("order_abc", "pay_xyz")},
			fetch: func(_ context.Context, id string) (*domain.ProviderPayment, error) {
				return &domain.ProviderPayment{ID: id, OrderID: "order_other", Status: "captured"}, nil
			},
			want: domain.ErrAuthentication,
		},
		{
			name: "Given provider down Then unavailable",
			cmd:  VerifyCheckoutCommand{TenantID: fx.TenantID, Provider: domain.ProviderRazorpay, PaymentID: p.ID, ProviderOrderID: "order_abc", ProviderPaymentID: "pay_xyz", Signature: checkoutSig("order_abc", "pay_xyz")},
			fetch: func(context.Context, string) (*domain.ProviderPayment, error) {
				return nil, domain.ErrProviderUnavailable
			},
			want: domain.ErrProviderUnavailable,
		},
		{
			name: "Given a different bound payment id Then invalid state",
			cmd:  VerifyCheckoutCommand{TenantID: fx.TenantID, Provider: domain.ProviderRazorpay, PaymentID: bound.ID, ProviderOrderID: "order_def", ProviderPaymentID: "pay_second", Signature: checkoutSig("order_def", "pay_second")},
			want: domain.ErrInvalidState,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h.gw.FetchPaymentFunc = tt.fetch
			_, err := h.verify.Handle(context.Background(), tt.cmd)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}

	if got := testutil.LoadPayment(t, h.db, p.ID); got.Status != domain.StatusCreated {
		t.Errorf("rejected verify mutated status to %s", got.Status)
	}
	if got := testutil.LoadPayment(t, h.db, bound.ID); got.Status != domain.StatusAuthorized || got.BoundPaymentID() != "pay_first" {
		t.Errorf("rebinding changed payment: %+v", got)
	}
	if h.receipts.CallCount() != 0 {
		t.Error("rejected verifies must not dispatch receipts")
	}
}

func TestVerifyAndWebhookRace_SingleReceipt(t *testing.T) {
	h := newHarness(t)
	fx := testutil.SeedAppointment(t, h.db)
	p := testutil.SeedPayment(t, h.db, fx, domain.StatusCreated, "order_abc", "")

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		if _, err := h.webhook.Handle(context.Background(), signedWebhook(paymentWebhook("payment.captured", "order_abc", "pay_xyz", "captured", fx.TenantID.String()))); err != nil {
			t.Errorf("webhook: %v", err)
		}
	}()
	go func() {
		defer wg.Done()
		if _, err := h.verify.Handle(context.Background(), VerifyCheckoutCommand{
			TenantID: fx.TenantID, Provider: domain.ProviderRazorpay, PaymentID: p.ID,
			ProviderOrderID: "order_abc", ProviderPaymentID: "pay_xyz", Signature: checkoutSig("order_abc", "pay_xyz"),
		}); err != nil {
			t.Errorf("verify: %v", err)
		}
	}()
	wg.Wait()

	if got := testutil.LoadPayment(t, h.db, p.ID); got.Status != domain.StatusCaptured {
		t.Errorf("status = %s", got.Status)
	}
	if h.receipts.CallCount() != 1 {
		t.Errorf("expected exactly one receipt, got %d", h.receipts.CallCount())
	}
	if n := testutil.CountEvents(t, h.db, p.ID); n != 2 {
		t.Errorf("expected webhook and verify events, got %d", n)
	}
}

func TestRefundPayment(t *testing.T) {
	h := newHarness(t)
	fx := testutil.SeedAppointment(t, h.db)
	p := testutil.SeedPayment(t, h.db, fx, domain.StatusCaptured, "order_abc", "pay_xyz")

	partial := decimal.RequireFromString("300.50")
	res, err := h.refund.Handle(context.Background(), RefundPaymentCommand{
		TenantID: fx.TenantID, Provider: domain.ProviderRazorpay, PaymentID: p.ID, Amount: &partial,
	})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if res.Payment.Status != domain.StatusRefunded || res.Refund.Status != "processed" {
		t.Errorf("unexpected result %+v", res)
	}

	call := h.gw.RefundCalls[0]
	if call.ProviderPaymentID != "pay_xyz" || call.AmountMinor == nil || *call.AmountMinor != 30050 {
		t.Errorf("unexpected refund call %+v", call)
	}
	if n := testutil.CountEvents(t, h.db, p.ID); n != 1 {
		t.Errorf("expected refund.created event, got %d", n)
	}
	if appt := testutil.LoadAppointment(t, h.db, fx.Appointment.ID); appt.PaymentStatus != domain.AppointmentRefunded {
		t.Errorf("appointment status = %s", appt.PaymentStatus)
	}

	_, err = h.refund.Handle(context.Background(), RefundPaymentCommand{TenantID: fx.TenantID, Provider: domain.ProviderRazorpay, PaymentID: p.ID})
	if !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("second refund: expected ErrInvalidState, got %v", err)
	}
	if h.gw.RefundCallCount() != 1 {
		t.Errorf("second refund reached the provider")
	}
}

func TestRefundPayment_Preconditions(t *testing.T) {
	h := newHarness(t)
	fx := testutil.SeedAppointment(t, h.db)
	created := testutil.SeedPayment(t, h.db, fx, domain.StatusCreated, "order_1", "")
	authorized := testutil.SeedPayment(t, h.db, fx, domain.StatusAuthorized, "order_2", "pay_2")
	captured := testutil.SeedPayment(t, h.db, fx, domain.StatusCaptured, "order_3", "pay_3")

	zero := decimal.Zero
	tooMuch := decimal.RequireFromString("900.01")

	tests := []struct {
		name    string
		payment *domain.Payment
		amount  *decimal.Decimal
	}{
		{"Given CREATED payment Then not captured", created, nil},
		{"Given AUTHORIZED payment Then not refundable", authorized, nil},
		{"Given zero amount Then invalid", captured, &zero},
		{"Given amount above payment Then invalid", captured, &tooMuch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.refund.Handle(context.Background(), RefundPaymentCommand{
				TenantID: fx.TenantID, Provider: domain.ProviderRazorpay, PaymentID: tt.payment.ID, Amount: tt.amount,
			})
			if !errors.Is(err, domain.ErrInvalidState) {
				t.Fatalf("expected ErrInvalidState, got %v", err)
			}
			if n := testutil.CountEvents(t, h.db, tt.payment.ID); n != 0 {
				t.Errorf("rejected refund wrote %d events", n)
			}
		})
	}

	if h.gw.RefundCallCount() != 0 {
		t.Errorf("preconditions must be checked before calling the provider, got %d calls", h.gw.RefundCallCount())
	}
}

func TestRefundPayment_ProviderFailureWritesNothing(t *testing.T) {
	h := newHarness(t)
	fx := testutil.SeedAppointment(t, h.db)
	p := testutil.SeedPayment(t, h.db, fx, domain.StatusCaptured, "order_abc", "pay_xyz")
	h.gw.RefundFunc = func(context.Context, string, *int64) (*domain.ProviderRefund, error) {
		return nil, fmt.Errorf("%w: insufficient balance", domain.ErrProviderRejected)
	}

	_, err := h.refund.Handle(context.Background(), RefundPaymentCommand{TenantID: fx.TenantID, Provider: domain.ProviderRazorpay, PaymentID: p.ID})
	if !errors.Is(err, domain.ErrProviderRejected) {
		t.Fatalf("expected ErrProviderRejected, got %v", err)
	}
	if got := testutil.LoadPayment(t, h.db, p.ID); got.Status != domain.StatusCaptured {
		t.Errorf("status = %s", got.Status)
	}
	if n := testutil.CountEvents(t, h.db, p.ID); n != 0 {
		t.Errorf("failed refund wrote %d events", n)
	}
}

func TestRefundPayment_ConcurrentRefundsCallProviderOnce(t *testing.T) {
	h := newHarness(t)
	fx := testutil.SeedAppointment(t, h.db)
	p := testutil.SeedPayment(t, h.db, fx, domain.StatusCaptured, "order_abc", "pay_xyz")

	const workers = 4
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.refund.Handle(context.Background(), RefundPaymentCommand{TenantID: fx.TenantID, Provider: domain.ProviderRazorpay, PaymentID: p.ID})
			if err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			} else if !errors.Is(err, domain.ErrInvalidState) {
				t.Errorf("unexpected error %v", err)
			}
		}()
	}
	wg.Wait()

	if successes != 1 || h.gw.RefundCallCount() != 1 {
		t.Errorf("successes=%d provider calls=%d", successes, h.gw.RefundCallCount())
	}
}

// ledgerFailingRepo lets decide run, then fails the write as a lost commit would
type ledgerFailingRepo struct {
	*repository.GormPaymentRepository
}

func (r ledgerFailingRepo) Reconcile(ctx context.Context, id uuid.UUID, decide domain.DecideFunc) (*domain.Payment, domain.TransitionResult, error) {
	return r.GormPaymentRepository.Reconcile(ctx, id, func(ctx context.Context, p *domain.Payment) (domain.StatusChange, error) {
		if _, err := decide(ctx, p); err != nil {
			return domain.StatusChange{}, err
		}
		return domain.StatusChange{}, errors.New("ledger write failed")
	})
}

func TestRefundPayment_UnrecordedRefundIsLogged(t *testing.T) {
	h := newHarness(t)
	fx := testutil.SeedAppointment(t, h.db)
	p := testutil.SeedPayment(t, h.db, fx, domain.StatusCaptured, "order_abc", "pay_xyz")
	h.gw.RefundFunc = func(_ context.Context, id string, _ *int64) (*domain.ProviderRefund, error) {
		return &domain.ProviderRefund{ID: "rfnd_lost", PaymentID: id, Status: "processed", AmountMinor: 90000}, nil
	}

	var buf bytes.Buffer
	saved := logger.Logger
	logger.Logger = zerolog.New(&buf)
	t.Cleanup(func() { logger.Logger = saved })

	refund := NewRefundPaymentHandler(ledgerFailingRepo{h.repo}, gateway.NewRegistry(h.gw))
	_, err := refund.Handle(context.Background(), RefundPaymentCommand{TenantID: fx.TenantID, Provider: domain.ProviderRazorpay, PaymentID: p.ID})
	if err == nil {
		t.Fatal("expected the failed write to surface")
	}

	out := buf.String()
	if !strings.Contains(out, `"refund_id":"rfnd_lost"`) || !strings.Contains(out, `"refund_status":"processed"`) || !strings.Contains(out, `"level":"error"`) {
		t.Errorf("refund not identifiable in log: %s", out)
	}
	if got := testutil.LoadPayment(t, h.db, p.ID); got.Status != domain.StatusCaptured {
		t.Errorf("payment status = %s", got.Status)
	}
}
