package domain

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AppointmentPaymentStatus mirrors the payment outcome on the appointment
type AppointmentPaymentStatus string

const (
	AppointmentUnpaid   AppointmentPaymentStatus = "UNPAID"
	AppointmentPaid     AppointmentPaymentStatus = "PAID"
	AppointmentFailed   AppointmentPaymentStatus = "FAILED"
	AppointmentRefunded AppointmentPaymentStatus = "REFUNDED"
)

// Appointment is owned by the booking side. Payments only touch the due
// amount and payment_status columns.
type Appointment struct {
	ID            uuid.UUID                `json:"id" gorm:"type:uuid;primaryKey"`
	TenantID      uuid.UUID                `json:"tenant_id" gorm:"type:uuid;not null;index"`
	CustomerID    *uuid.UUID               `json:"customer_id,omitempty" gorm:"type:uuid"`
	AmountDue     decimal.Decimal          `json:"amount_due" gorm:"type:numeric(10,2)"`
	Currency      string                   `json:"currency" gorm:"size:8"`
	PaymentStatus AppointmentPaymentStatus `json:"payment_status" gorm:"size:32;default:'UNPAID'"`
}

// TableName specifies the table name
func (Appointment) TableName() string {
	return "appointments"
}

// Customer is read for checkout prefill and receipt addressing
type Customer struct {
	ID       uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	TenantID uuid.UUID `json:"tenant_id" gorm:"type:uuid;not null;index"`
	FullName string    `json:"full_name"`
	Email    string    `json:"email"`
	Phone    string    `json:"phone"`
}

// TableName specifies the table name
func (Customer) TableName() string {
	return "customers"
}
