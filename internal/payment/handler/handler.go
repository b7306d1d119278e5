package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/tair/appointment-payments/internal/payment/domain"
	"github.com/tair/appointment-payments/internal/payment/usecase/command"
	"github.com/tair/appointment-payments/internal/payment/usecase/query"
	"github.com/tair/appointment-payments/pkg/logger"
)

const maxWebhookBody = 1 << 20

// Pinger reports database reachability for the health check
type Pinger interface {
	PingContext(ctx context.Context) error
}

// PaymentHandler handles HTTP requests for payments using CQRS pattern
type PaymentHandler struct {
	// Command handlers
	createOrderHandler *command.CreateOrderHandler
	webhookHandler     *command.HandleWebhookHandler
	verifyHandler      *command.VerifyCheckoutHandler
	refundHandler      *command.RefundPaymentHandler

	// Query handlers
	getHandler    *query.GetPaymentHandler
	listHandler   *query.ListPaymentsHandler
	eventsHandler *query.ListEventsHandler

	metrics *Metrics
	config  MiddlewareConfig
}

// NewPaymentHandlerWithDI creates a new payment handler using dependency injection
func NewPaymentHandlerWithDI(
	createOrderHandler *command.CreateOrderHandler,
	webhookHandler *command.HandleWebhookHandler,
	verifyHandler *command.VerifyCheckoutHandler,
	refundHandler *command.RefundPaymentHandler,
	getHandler *query.GetPaymentHandler,
	listHandler *query.ListPaymentsHandler,
	eventsHandler *query.ListEventsHandler,
	metrics *Metrics,
	config MiddlewareConfig,
) *PaymentHandler {
	return &PaymentHandler{
		createOrderHandler: createOrderHandler,
		webhookHandler:     webhookHandler,
		verifyHandler:      verifyHandler,
		refundHandler:      refundHandler,
		getHandler:         getHandler,
		listHandler:        listHandler,
		eventsHandler:      eventsHandler,
		metrics:            metrics,
		config:             config,
	}
}

type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// CreateOrder handles POST /api/payments/{provider}/order
func (h *PaymentHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	provider, ok := providerFrom(w, r)
	if !ok {
		return
	}
	identity, _ := identityFrom(r.Context())

	var req struct {
		AppointmentID uuid.UUID       `json:"appointment_id"`
		Amount        decimal.Decimal `json:"amount"`
		Currency      string          `json:"currency"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	res, err := h.createOrderHandler.Handle(r.Context(), command.CreateOrderCommand{
		TenantID:      identity.TenantID,
		AppointmentID: req.AppointmentID,
		Provider:      provider,
		Amount:        req.Amount,
		Currency:      req.Currency,
	})
	if err != nil {
		writeError(w, r, err, http.StatusUnauthorized)
		return
	}

	respondJSON(w, http.StatusCreated, Response{
		Success: true,
		Message: "Payment order created",
		Data: map[string]interface{}{
			"payment_id":          res.Payment.ID,
			"provider":            res.Payment.Provider,
			"provider_order_id":   res.Payment.ProviderOrderID,
			"amount":              res.Payment.Amount.StringFixed(2),
			"amount_minor":        domain.ToMinorUnits(res.Payment.Amount),
			"currency":            res.Payment.Currency,
			"provider_public_key": res.PublicKey,
			"customer":            res.Customer,
		},
	})
}

// Webhook handles POST /api/payments/{provider}/webhook. Authenticated
// deliveries are acknowledged with 200 whatever their outcome.
func (h *PaymentHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	provider, ok := providerFrom(w, r)
	if !ok {
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Unreadable request body")
		return
	}

	res, err := h.webhookHandler.Handle(r.Context(), command.HandleWebhookCommand{
		Provider: provider,
		Body:     body,
		Header:   r.Header,
	})
	if err != nil {
		h.metrics.webhook(string(provider), "rejected")
		writeError(w, r, err, http.StatusBadRequest)
		return
	}

	h.metrics.webhook(string(provider), string(res.Outcome))
	if res.Transition.Applied {
		h.metrics.transition("webhook", string(res.Transition.From), string(res.Transition.To))
	}

	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    map[string]interface{}{"outcome": res.Outcome},
	})
}

type verifyResponse struct {
	Success       bool                 `json:"success"`
	PaymentStatus domain.PaymentStatus `json:"payment_status"`
}

// VerifyCheckout handles POST /api/payments/{provider}/verify
func (h *PaymentHandler) VerifyCheckout(w http.ResponseWriter, r *http.Request) {
	provider, ok := providerFrom(w, r)
	if !ok {
		return
	}
	identity, _ := identityFrom(r.Context())

	var req struct {
		PaymentID         uuid.UUID `json:"payment_id"`
		ProviderOrderID   string    `json:"provider_order_id"`
		ProviderPaymentID string    `json:"provider_payment_id"`
		Signature         string    `json:"signature"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	res, err := h.verifyHandler.Handle(r.Context(), command.VerifyCheckoutCommand{
		TenantID:          identity.TenantID,
		Provider:          provider,
		PaymentID:         req.PaymentID,
		ProviderOrderID:   req.ProviderOrderID,
		ProviderPaymentID: req.ProviderPaymentID,
		Signature:         req.Signature,
	})
	if err != nil {
		writeError(w, r, err, http.StatusUnauthorized)
		return
	}
	if res.Transition.Applied {
		h.metrics.transition("verify", string(res.Transition.From), string(res.Transition.To))
	}

	respondJSON(w, http.StatusOK, verifyResponse{Success: true, PaymentStatus: res.Payment.Status})
}

// RefundPayment handles POST /api/payments/{provider}/refund
func (h *PaymentHandler) RefundPayment(w http.ResponseWriter, r *http.Request) {
	provider, ok := providerFrom(w, r)
	if !ok {
		return
	}
	identity, _ := identityFrom(r.Context())

	var req struct {
		PaymentID uuid.UUID        `json:"payment_id"`
		Amount    *decimal.Decimal `json:"amount,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	res, err := h.refundHandler.Handle(r.Context(), command.RefundPaymentCommand{
		TenantID:  identity.TenantID,
		Provider:  provider,
		PaymentID: req.PaymentID,
		Amount:    req.Amount,
	})
	if err != nil {
		writeError(w, r, err, http.StatusUnauthorized)
		return
	}
	h.metrics.transition("refund", string(domain.StatusCaptured), string(res.Payment.Status))

	logger.Info(r.Context()).
		Str("payment_id", res.Payment.ID.String()).
		Str("refunded_by", identity.UserID).
		Msg("Refund issued")

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"refund":  res.Refund.Raw,
	})
}

// GetPayment handles GET /api/payments/{id}
func (h *PaymentHandler) GetPayment(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid payment ID")
		return
	}
	identity, _ := identityFrom(r.Context())

	payment, err := h.getHandler.Handle(r.Context(), query.GetPaymentQuery{TenantID: identity.TenantID, ID: id})
	if err != nil {
		writeError(w, r, err, http.StatusUnauthorized)
		return
	}

	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    payment,
	})
}

// ListPayments handles GET /api/payments
func (h *PaymentHandler) ListPayments(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFrom(r.Context())
	params := r.URL.Query()
	limit, _ := strconv.Atoi(params.Get("limit"))
	offset, _ := strconv.Atoi(params.Get("offset"))

	q := query.ListPaymentsQuery{
		TenantID: identity.TenantID,
		Status:   params.Get("status"),
		Limit:    limit,
		Offset:   offset,
	}
	if raw := params.Get("appointment_id"); raw != "" {
		apptID, err := uuid.Parse(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid appointment ID")
			return
		}
		q.AppointmentID = &apptID
	}

	payments, err := h.listHandler.Handle(r.Context(), q)
	if err != nil {
		writeError(w, r, err, http.StatusUnauthorized)
		return
	}

	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Data: map[string]interface{}{
			"payments": payments,
			"total":    len(payments),
		},
	})
}

// ListEvents handles GET /api/payments/{id}/events
func (h *PaymentHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid payment ID")
		return
	}
	identity, _ := identityFrom(r.Context())

	events, err := h.eventsHandler.Handle(r.Context(), query.ListEventsQuery{TenantID: identity.TenantID, PaymentID: id})
	if err != nil {
		writeError(w, r, err, http.StatusUnauthorized)
		return
	}

	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Data: map[string]interface{}{
			"events": events,
			"total":  len(events),
		},
	})
}

// GetMiddlewareConfig returns middleware configuration
func (h *PaymentHandler) GetMiddlewareConfig() MiddlewareConfig {
	return h.config
}

// RegisterRoutes registers all payment routes
func (h *PaymentHandler) RegisterRoutes(router *mux.Router) {
	cfg := h.config
	authed := func(endpoint string, next http.HandlerFunc) http.HandlerFunc {
		return h.metrics.metricsMiddleware(endpoint, cfg.GetAuthMiddleware()(cfg.limit(next)))
	}
	admin := func(endpoint string, next http.HandlerFunc) http.HandlerFunc {
		return h.metrics.metricsMiddleware(endpoint, cfg.GetAdminMiddleware()(cfg.limit(next)))
	}

	// Provider callbacks authenticate by signature, not by token
	router.HandleFunc("/api/payments/{provider}/webhook", h.metrics.metricsMiddleware("/api/payments/{provider}/webhook", h.Webhook)).Methods("POST")

	router.HandleFunc("/api/payments/{provider}/order", authed("/api/payments/{provider}/order", h.CreateOrder)).Methods("POST")
	router.HandleFunc("/api/payments/{provider}/verify", authed("/api/payments/{provider}/verify", h.VerifyCheckout)).Methods("POST")
	router.HandleFunc("/api/payments", authed("/api/payments", h.ListPayments)).Methods("GET")
	router.HandleFunc("/api/payments/{id}", authed("/api/payments/{id}", h.GetPayment)).Methods("GET")
	router.HandleFunc("/api/payments/{id}/events", authed("/api/payments/{id}/events", h.ListEvents)).Methods("GET")

	// Operator routes
	router.HandleFunc("/api/payments/{provider}/refund", admin("/api/payments/{provider}/refund", h.RefundPayment)).Methods("POST")
}

// RegisterHealthCheck registers health check endpoint
func (h *PaymentHandler) RegisterHealthCheck(router *mux.Router, db Pinger) {
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			respondJSON(w, http.StatusServiceUnavailable, Response{
				Success: false,
				Error:   "Database unavailable",
			})
			return
		}

		respondJSON(w, http.StatusOK, Response{
			Success: true,
			Message: "Payment service is healthy",
		})
	}).Methods("GET")
}

func providerFrom(w http.ResponseWriter, r *http.Request) (domain.Provider, bool) {
	provider, ok := domain.ParseProvider(mux.Vars(r)["provider"])
	if !ok {
		respondError(w, http.StatusNotFound, "Unknown payment provider")
	}
	return provider, ok
}

// writeError maps domain errors to HTTP statuses. Authentication failures
// use authStatus because webhooks and client calls report them differently.
func writeError(w http.ResponseWriter, r *http.Request, err error, authStatus int) {
	status, message := http.StatusInternalServerError, "Internal server error"
	switch {
	case errors.Is(err, domain.ErrAuthentication):
		status, message = authStatus, err.Error()
	case errors.Is(err, domain.ErrInvalidRequest), errors.Is(err, domain.ErrInvalidState):
		status, message = http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrNotFound):
		status, message = http.StatusNotFound, err.Error()
	case errors.Is(err, domain.ErrForbidden):
		status, message = http.StatusForbidden, err.Error()
	case errors.Is(err, domain.ErrProviderUnavailable):
		status, message = http.StatusServiceUnavailable, "Payment provider unavailable, please retry"
	case errors.Is(err, domain.ErrProviderRejected):
		status, message = http.StatusBadGateway, err.Error()
	case errors.Is(err, domain.ErrConcurrentUpdate):
		status, message = http.StatusConflict, "Payment is being updated, please retry"
	}

	event := logger.Warn(r.Context())
	if status >= http.StatusInternalServerError {
		event = logger.Error(r.Context())
	}
	event.Err(err).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Int("status", status).
		Msg("Request failed")

	respondError(w, status, message)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, Response{
		Success: false,
		Error:   message,
	})
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}
