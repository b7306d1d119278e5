package testutil

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/tair/appointment-payments/internal/payment/domain"
)

// NewTestDB opens an isolated in-memory SQLite database with the payment
// schema migrated. The pool is pinned to one connection so the memory
// database lives as long as the test.
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := db.AutoMigrate(
		&domain.Payment{},
		&domain.PaymentEvent{},
		&domain.Appointment{},
		&domain.Customer{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// Fixture is one tenant with a customer and an unpaid appointment
type Fixture struct {
	TenantID    uuid.UUID
	Customer    domain.Customer
	Appointment domain.Appointment
}

// SeedAppointment inserts a tenant's customer and appointment
func SeedAppointment(t *testing.T, db *gorm.DB) Fixture {
	t.Helper()

	tenantID := uuid.New()
	customer := domain.Customer{
		ID:       uuid.New(),
		TenantID: tenantID,
		FullName: "Asha Rao",
		Email:    "asha@example.com",
		Phone:    "+919800000001",
	}
	if err := db.Create(&customer).Error; err != nil {
		t.Fatalf("seed customer: %v", err)
	}

	appt := domain.Appointment{
		ID:            uuid.New(),
		TenantID:      tenantID,
		CustomerID:    &customer.ID,
		AmountDue:     decimal.Zero,
		Currency:      "INR",
		PaymentStatus: domain.AppointmentUnpaid,
	}
	if err := db.Create(&appt).Error; err != nil {
		t.Fatalf("seed appointment: %v", err)
	}

	return Fixture{TenantID: tenantID, Customer: customer, Appointment: appt}
}

// SeedPayment inserts a payment in the given state for the fixture's appointment
func SeedPayment(t *testing.T, db *gorm.DB, fx Fixture, status domain.PaymentStatus, orderID, providerPaymentID string) *domain.Payment {
	t.Helper()

	p := &domain.Payment{
		TenantID:        fx.TenantID,
		AppointmentID:   fx.Appointment.ID,
		CustomerID:      fx.Appointment.CustomerID,
		Provider:        domain.ProviderRazorpay,
		ProviderOrderID: orderID,
		Amount:          decimal.RequireFromString("900.00"),
		Currency:        "INR",
		Status:          status,
	}
	if providerPaymentID != "" {
		p.ProviderPaymentID = &providerPaymentID
	}
	if err := db.Create(p).Error; err != nil {
		t.Fatalf("seed payment: %v", err)
	}
	return p
}

// LoadPayment reloads a payment by id
func LoadPayment(t *testing.T, db *gorm.DB, id uuid.UUID) domain.Payment {
	t.Helper()
	var p domain.Payment
	if err := db.First(&p, "id = ?", id).Error; err != nil {
		t.Fatalf("load payment: %v", err)
	}
	return p
}

// LoadAppointment reloads an appointment by id
func LoadAppointment(t *testing.T, db *gorm.DB, id uuid.UUID) domain.Appointment {
	t.Helper()
	var a domain.Appointment
	if err := db.First(&a, "id = ?", id).Error; err != nil {
		t.Fatalf("load appointment: %v", err)
	}
	return a
}

// CountEvents counts ledger rows for a payment
func CountEvents(t *testing.T, db *gorm.DB, paymentID uuid.UUID) int64 {
	t.Helper()
	var n int64
	if err := db.Model(&domain.PaymentEvent{}).Where("payment_id = ?", paymentID).Count(&n).Error; err != nil {
		t.Fatalf("count events: %v", err)
	}
	return n
}

// CountAllRows counts payments and events in the database
func CountAllRows(t *testing.T, db *gorm.DB) (payments, events int64) {
	t.Helper()
	if err := db.Model(&domain.Payment{}).Count(&payments).Error; err != nil {
		t.Fatalf("count payments: %v", err)
	}
	if err := db.Model(&domain.PaymentEvent{}).Count(&events).Error; err != nil {
		t.Fatalf("count events: %v", err)
	}
	return payments, events
}
