package query

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/tair/appointment-payments/internal/payment/domain"
	"github.com/tair/appointment-payments/internal/payment/repository"
	"github.com/tair/appointment-payments/internal/payment/testutil"
)

// filterRecorder captures the filter List receives
type filterRecorder struct {
	domain.PaymentRepository
	got domain.PaymentFilter
}

func (r *filterRecorder) List(_ context.Context, _ uuid.UUID, filter domain.PaymentFilter) ([]domain.Payment, error) {
	r.got = filter
	return nil, nil
}

func TestListPayments_Paging(t *testing.T) {
	tests := []struct {
		name       string
		query      ListPaymentsQuery
		wantLimit  int
		wantOffset int
		wantStatus domain.PaymentStatus
		wantErr    error
	}{
		{name: "Given no limit Then default of 10", query: ListPaymentsQuery{}, wantLimit: 10},
		{name: "Given a huge limit Then capped at 100", query: ListPaymentsQuery{Limit: 5000}, wantLimit: 100},
		{name: "Given a negative offset Then zero", query: ListPaymentsQuery{Limit: 5, Offset: -3}, wantLimit: 5},
		{name: "Given a valid status Then filtered", query: ListPaymentsQuery{Status: "REFUNDED"}, wantLimit: 10, wantStatus: domain.StatusRefunded},
		{name: "Given an unknown status Then invalid request", query: ListPaymentsQuery{Status: "PAID"}, wantErr: domain.ErrInvalidRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &filterRecorder{}
			_, err := NewListPaymentsHandler(repo).Handle(context.Background(), tt.query)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Handle: %v", err)
			}
			if repo.got.Limit != tt.wantLimit || repo.got.Offset != tt.wantOffset || repo.got.Status != tt.wantStatus {
				t.Errorf("filter = %+v", repo.got)
			}
		})
	}
}

func TestListEvents_IsTenantScoped(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := repository.NewGormPaymentRepository(db)
	fx := testutil.SeedAppointment(t, db)
	p := testutil.SeedPayment(t, db, fx, domain.StatusCreated, "order_q", "")
	h := NewListEventsHandler(repo)

	if _, err := h.Handle(context.Background(), ListEventsQuery{TenantID: uuid.New(), PaymentID: p.ID}); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("other tenant err = %v, want not found", err)
	}

	events, err := h.Handle(context.Background(), ListEventsQuery{TenantID: fx.TenantID, PaymentID: p.ID})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("expected an empty ledger, got %d events", len(events))
	}
}

func TestGetPayment_IsTenantScoped(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := repository.NewGormPaymentRepository(db)
	fx := testutil.SeedAppointment(t, db)
	p := testutil.SeedPayment(t, db, fx, domain.StatusCaptured, "order_g", "pay_g")
	h := NewGetPaymentHandler(repo)

	got, err := h.Handle(context.Background(), GetPaymentQuery{TenantID: fx.TenantID, ID: p.ID})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if got.Status != domain.StatusCaptured || got.BoundPaymentID() != "pay_g" {
		t.Errorf("unexpected payment %+v", got)
	}

	if _, err := h.Handle(context.Background(), GetPaymentQuery{TenantID: uuid.New(), ID: p.ID}); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("other tenant err = %v, want not found", err)
	}
}
