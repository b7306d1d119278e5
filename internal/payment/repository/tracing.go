package repository

import (
	"context"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tair/appointment-payments/internal/payment/domain"
)

var tracer = otel.Tracer("payment-repository")

// GormPaymentRepositoryWithTracing wraps GormPaymentRepository with tracing
type GormPaymentRepositoryWithTracing struct {
	*GormPaymentRepository
}

// NewGormPaymentRepositoryWithTracing creates a new repository with tracing
func NewGormPaymentRepositoryWithTracing(db *gorm.DB) *GormPaymentRepositoryWithTracing {
	return &GormPaymentRepositoryWithTracing{
		GormPaymentRepository: NewGormPaymentRepository(db),
	}
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// CreateOrder with tracing
func (r *GormPaymentRepositoryWithTracing) CreateOrder(ctx context.Context, order domain.NewOrder) (err error) {
	ctx, span := tracer.Start(ctx, "repository.CreateOrder",
		trace.WithAttributes(
			attribute.String("tenant.id", order.Payment.TenantID.String()),
			attribute.String("appointment.id", order.Appointment.ID.String()),
			attribute.String("payment.provider_order_id", order.Payment.ProviderOrderID),
		),
	)
	defer func() { endSpan(span, err) }()

	err = r.GormPaymentRepository.CreateOrder(ctx, order)
	if err == nil {
		span.SetAttributes(attribute.String("payment.id", order.Payment.ID.String()))
	}
	return err
}

// FindByID with tracing
func (r *GormPaymentRepositoryWithTracing) FindByID(ctx context.Context, tenantID, id uuid.UUID) (p *domain.Payment, err error) {
	ctx, span := tracer.Start(ctx, "repository.FindByID",
		trace.WithAttributes(
			attribute.String("tenant.id", tenantID.String()),
			attribute.String("payment.id", id.String()),
		),
	)
	defer func() { endSpan(span, err) }()

	return r.GormPaymentRepository.FindByID(ctx, tenantID, id)
}

// FindByProviderOrder with tracing
func (r *GormPaymentRepositoryWithTracing) FindByProviderOrder(ctx context.Context, tenantID *uuid.UUID, provider domain.Provider, providerOrderID string) (p *domain.Payment, err error) {
	ctx, span := tracer.Start(ctx, "repository.FindByProviderOrder",
		trace.WithAttributes(
			attribute.String("payment.provider", string(provider)),
			attribute.String("payment.provider_order_id", providerOrderID),
			attribute.Bool("tenant.scoped", tenantID != nil),
		),
	)
	defer func() { endSpan(span, err) }()

	return r.GormPaymentRepository.FindByProviderOrder(ctx, tenantID, provider, providerOrderID)
}

// EventExists with tracing
func (r *GormPaymentRepositoryWithTracing) EventExists(ctx context.Context, tenantID uuid.UUID, providerEventID string) (exists bool, err error) {
	ctx, span := tracer.Start(ctx, "repository.EventExists",
		trace.WithAttributes(
			attribute.String("tenant.id", tenantID.String()),
			attribute.String("event.provider_id", providerEventID),
		),
	)
	defer func() {
		span.SetAttributes(attribute.Bool("event.exists", exists))
		endSpan(span, err)
	}()

	return r.GormPaymentRepository.EventExists(ctx, tenantID, providerEventID)
}

// Reconcile with tracing
func (r *GormPaymentRepositoryWithTracing) Reconcile(ctx context.Context, paymentID uuid.UUID, decide domain.DecideFunc) (p *domain.Payment, result domain.TransitionResult, err error) {
	ctx, span := tracer.Start(ctx, "repository.Reconcile",
		trace.WithAttributes(attribute.String("payment.id", paymentID.String())),
	)
	defer func() {
		span.SetAttributes(
			attribute.String("payment.status.from", string(result.From)),
			attribute.String("payment.status.to", string(result.To)),
			attribute.Bool("payment.transition.applied", result.Applied),
		)
		endSpan(span, err)
	}()

	return r.GormPaymentRepository.Reconcile(ctx, paymentID, decide)
}
