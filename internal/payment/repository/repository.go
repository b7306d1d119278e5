package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tair/appointment-payments/internal/payment/domain"
)

type GormPaymentRepository struct {
	db *gorm.DB
}

func NewGormPaymentRepository(db *gorm.DB) *GormPaymentRepository {
	return &GormPaymentRepository{db: db}
}

// AutoMigrate creates the payment tables and the shared tables payments write to
func (r *GormPaymentRepository) AutoMigrate() error {
	return r.db.AutoMigrate(
		&domain.Payment{},
		&domain.PaymentEvent{},
		&domain.Appointment{},
		&domain.Customer{},
	)
}

func (r *GormPaymentRepository) CreateOrder(ctx context.Context, order domain.NewOrder) error {
	appt := order.Appointment
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&domain.Appointment{}).
			Where("id = ? AND tenant_id = ?", appt.ID, appt.TenantID).
			// payment_status only moves with a payment transition
			Updates(map[string]interface{}{
				"amount_due": appt.AmountDue,
				"currency":   appt.Currency,
			})
		if res.Error != nil {
			return fmt.Errorf("failed to stamp appointment: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: appointment %s", domain.ErrNotFound, appt.ID)
		}

		if err := tx.Create(order.Payment).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fmt.Errorf("%w: provider order %s already recorded", domain.ErrInvalidState, order.Payment.ProviderOrderID)
			}
			return fmt.Errorf("failed to create payment: %w", err)
		}

		if order.Event != nil {
			order.Event.PaymentID = &order.Payment.ID
			order.Event.TenantID = order.Payment.TenantID
			if err := tx.Create(order.Event).Error; err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					return domain.ErrDuplicateEvent
				}
				return fmt.Errorf("failed to append order event: %w", err)
			}
		}
		return nil
	})
}

func (r *GormPaymentRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*domain.Payment, error) {
	var payment domain.Payment
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&payment).Error
	if err != nil {
		return nil, notFound(err, "payment")
	}
	return &payment, nil
}

// FindByProviderOrder resolves a payment from a provider order id. A nil
// tenantID searches across tenants, which only the webhook fallback does.
func (r *GormPaymentRepository) FindByProviderOrder(ctx context.Context, tenantID *uuid.UUID, provider domain.Provider, providerOrderID string) (*domain.Payment, error) {
	q := r.db.WithContext(ctx).Where("provider = ? AND provider_order_id = ?", provider, providerOrderID)
	if tenantID != nil {
		q = q.Where("tenant_id = ?", *tenantID)
	}

	var payment domain.Payment
	if err := q.Order("created_at ASC").First(&payment).Error; err != nil {
		return nil, notFound(err, "payment")
	}
	return &payment, nil
}

func (r *GormPaymentRepository) List(ctx context.Context, tenantID uuid.UUID, filter domain.PaymentFilter) ([]domain.Payment, error) {
	q := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID)
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.AppointmentID != nil {
		q = q.Where("appointment_id = ?", *filter.AppointmentID)
	}

	var payments []domain.Payment
	err := q.Limit(filter.Limit).Offset(filter.Offset).
		Order("created_at DESC").
		Find(&payments).Error
	return payments, err
}

func (r *GormPaymentRepository) EventExists(ctx context.Context, tenantID uuid.UUID, providerEventID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.PaymentEvent{}).
		Where("tenant_id = ? AND provider_event_id = ?", tenantID, providerEventID).
		Count(&count).Error
	return count > 0, err
}

func (r *GormPaymentRepository) ListEvents(ctx context.Context, tenantID, paymentID uuid.UUID) ([]domain.PaymentEvent, error) {
	var events []domain.PaymentEvent
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND payment_id = ?", tenantID, paymentID).
		Order("created_at ASC").
		Find(&events).Error
	return events, err
}

// Reconcile locks the payment row, lets decide inspect it, then appends the
// ledger event and applies the proposed status in the same transaction. The
// status update is additionally guarded by the status that was read, so a
// database without row locks still cannot apply two transitions from one state.
func (r *GormPaymentRepository) Reconcile(ctx context.Context, paymentID uuid.UUID, decide domain.DecideFunc) (*domain.Payment, domain.TransitionResult, error) {
	var (
		out    domain.Payment
		result domain.TransitionResult
	)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current domain.Payment
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", paymentID).
			First(&current).Error; err != nil {
			return notFound(err, "payment")
		}

		snapshot := current
		change, err := decide(ctx, &snapshot)
		if err != nil {
			return err
		}

		if change.Event != nil {
			event := *change.Event
			event.ID = uuid.Nil
			event.TenantID = current.TenantID
			event.PaymentID = &current.ID
			if event.Provider == "" {
				event.Provider = current.Provider
			}
			if event.ProviderOrderID == "" {
				event.ProviderOrderID = current.ProviderOrderID
			}
			if err := tx.Create(&event).Error; err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					return domain.ErrDuplicateEvent
				}
				return fmt.Errorf("failed to append payment event: %w", err)
			}
		}

		result = current.Status.Apply(change.Target)

		updates := map[string]interface{}{}
		if result.Applied {
			updates["status"] = result.To
		}
		if change.ProviderPaymentID != "" && current.BoundPaymentID() == "" {
			updates["provider_payment_id"] = change.ProviderPaymentID
		}

		if len(updates) > 0 {
			res := tx.Model(&domain.Payment{}).
				Where("id = ? AND status = ?", current.ID, current.Status).
				Updates(updates)
			if res.Error != nil {
				return fmt.Errorf("failed to update payment: %w", res.Error)
			}
			if res.RowsAffected == 0 {
				return domain.ErrConcurrentUpdate
			}
		}

		if result.Applied {
			if mirror, ok := result.To.AppointmentStatus(); ok {
				if err := tx.Model(&domain.Appointment{}).
					Where("id = ? AND tenant_id = ?", current.AppointmentID, current.TenantID).
					Update("payment_status", mirror).Error; err != nil {
					return fmt.Errorf("failed to update appointment: %w", err)
				}
			}
		}

		return tx.Where("id = ?", current.ID).First(&out).Error
	})
	if err != nil {
		return nil, domain.TransitionResult{}, err
	}
	return &out, result, nil
}

func (r *GormPaymentRepository) FindAppointment(ctx context.Context, tenantID, id uuid.UUID) (*domain.Appointment, error) {
	var appt domain.Appointment
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&appt).Error
	if err != nil {
		return nil, notFound(err, "appointment")
	}
	return &appt, nil
}

func (r *GormPaymentRepository) FindCustomer(ctx context.Context, tenantID, id uuid.UUID) (*domain.Customer, error) {
	var customer domain.Customer
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&customer).Error
	if err != nil {
		return nil, notFound(err, "customer")
	}
	return &customer, nil
}

func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s", domain.ErrNotFound, what)
	}
	return err
}
