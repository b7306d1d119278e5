package command

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"github.com/tair/appointment-payments/internal/payment/domain"
	"github.com/tair/appointment-payments/pkg/logger"
)

// CreateOrderCommand represents the command to open a provider order for an appointment
type CreateOrderCommand struct {
	TenantID      uuid.UUID
	AppointmentID uuid.UUID
	Provider      domain.Provider
	Amount        decimal.Decimal
	Currency      string
}

// CustomerContact is the checkout prefill returned to the client
type CustomerContact struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// CreateOrderResult is what the client needs to open the provider checkout
type CreateOrderResult struct {
	Payment   *domain.Payment
	PublicKey string
	Customer  CustomerContact
}

// CreateOrderHandler handles create order command
type CreateOrderHandler struct {
	repo     domain.PaymentRepository
	gateways domain.GatewayRegistry
}

// NewCreateOrderHandler creates a new create order handler
func NewCreateOrderHandler(repo domain.PaymentRepository, gateways domain.GatewayRegistry) *CreateOrderHandler {
	return &CreateOrderHandler{repo: repo, gateways: gateways}
}

// Handle executes the create order command
func (h *CreateOrderHandler) Handle(ctx context.Context, cmd CreateOrderCommand) (*CreateOrderResult, error) {
	if cmd.AppointmentID == uuid.Nil {
		return nil, fmt.Errorf("%w: appointment_id is required", domain.ErrInvalidRequest)
	}
	if !cmd.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be greater than 0", domain.ErrInvalidRequest)
	}
	cmd.Currency = strings.ToUpper(strings.TrimSpace(cmd.Currency))
	if cmd.Currency == "" {
		cmd.Currency = "INR"
	}

	gw, err := h.gateways.Get(cmd.Provider)
	if err != nil {
		return nil, err
	}

	appt, err := h.repo.FindAppointment(ctx, cmd.TenantID, cmd.AppointmentID)
	if err != nil {
		return nil, err
	}

	order, err := gw.CreateOrder(ctx, domain.OrderRequest{
		AmountMinor: domain.ToMinorUnits(cmd.Amount),
		Currency:    cmd.Currency,
		Receipt:     receiptRef(appt.ID),
		Notes: map[string]string{
			"tenant_id":      cmd.TenantID.String(),
			"appointment_id": appt.ID.String(),
		},
	})
	if err != nil {
		logger.Error(ctx).
			Err(err).
			Str("tenant_id", cmd.TenantID.String()).
			Str("appointment_id", appt.ID.String()).
			Str("provider", string(cmd.Provider)).
			Msg("Provider order creation failed")
		return nil, err
	}

	stamped := *appt
	stamped.AmountDue = cmd.Amount
	stamped.Currency = cmd.Currency

	payment := &domain.Payment{
		TenantID:        cmd.TenantID,
		AppointmentID:   appt.ID,
		CustomerID:      appt.CustomerID,
		Provider:        cmd.Provider,
		ProviderOrderID: order.ID,
		Amount:          cmd.Amount,
		Currency:        cmd.Currency,
		Status:          domain.StatusCreated,
	}
	event := &domain.PaymentEvent{
		Provider:        cmd.Provider,
		EventType:       domain.EventOrderCreated,
		ProviderEventID: domain.EventKey(order.ID),
		ProviderOrderID: order.ID,
		Payload:         jsonPayload(order.Raw),
	}

	if err := h.repo.CreateOrder(ctx, domain.NewOrder{Appointment: &stamped, Payment: payment, Event: event}); err != nil {
		return nil, fmt.Errorf("failed to record order: %w", err)
	}

	logger.Info(ctx).
		Str("tenant_id", cmd.TenantID.String()).
		Str("payment_id", payment.ID.String()).
		Str("provider_order_id", order.ID).
		Str("amount", cmd.Amount.StringFixed(2)).
		Str("currency", cmd.Currency).
		Msg("Payment order created")

	return &CreateOrderResult{
		Payment:   payment,
		PublicKey: gw.PublicKey(),
		Customer:  h.customerContact(ctx, appt),
	}, nil
}

// customerContact is best effort: an unknown customer yields empty fields
func (h *CreateOrderHandler) customerContact(ctx context.Context, appt *domain.Appointment) CustomerContact {
	if appt.CustomerID == nil {
		return CustomerContact{}
	}
	c, err := h.repo.FindCustomer(ctx, appt.TenantID, *appt.CustomerID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			logger.Warn(ctx).Err(err).Str("customer_id", appt.CustomerID.String()).Msg("Customer lookup failed")
		}
		return CustomerContact{}
	}
	return CustomerContact{Name: c.FullName, Email: c.Email, Phone: c.Phone}
}

// receiptRef stays within Razorpay's 40 character receipt limit
func receiptRef(appointmentID uuid.UUID) string {
	return "appt_" + strings.ReplaceAll(appointmentID.String(), "-", "")
}

func jsonPayload(v interface{}) datatypes.JSON {
	if v == nil {
		return datatypes.JSON("{}")
	}
	b, err := json.Marshal(v)
	if err != nil {
		return datatypes.JSON("{}")
	}
	return datatypes.JSON(b)
}
