package handler

import (
	"net/http"

	"github.com/gorilla/mux"
)

// RegisterSwaggerDocs registers Swagger documentation routes
// @Summary Swagger documentation
// @Description Swagger API documentation
// @Tags Swagger
// @Success 200 {string} string "Swagger UI"
// @Router /swagger/ [get]
func RegisterSwaggerDocs(router *mux.Router, swaggerHandler http.Handler) {
	router.PathPrefix("/swagger/").Handler(swaggerHandler)
}

// CreateOrder godoc
// @Summary Create a provider order
// @Description Open a Razorpay order or Stripe PaymentIntent for an appointment
// @Tags Payments
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param provider path string true "Payment provider (razorpay/stripe)"
// @Param request body object{appointment_id=string,amount=string,currency=string} true "Order data"
// @Success 201 {object} object{success=bool,message=string,data=object{payment_id=string,provider_order_id=string,amount=string,amount_minor=int,currency=string,provider_public_key=string}}
// @Failure 400 {object} object{success=bool,error=string}
// @Failure 401 {object} object{success=bool,error=string}
// @Failure 404 {object} object{success=bool,error=string}
// @Failure 502 {object} object{success=bool,error=string}
// @Failure 503 {object} object{success=bool,error=string}
// @Router /api/payments/{provider}/order [post]
func (h *PaymentHandler) CreateOrderDoc() {}

// Webhook godoc
// @Summary Receive a provider webhook
// @Description Signature-authenticated provider callback. Duplicate and unmatched deliveries are acknowledged.
// @Tags Webhooks
// @Accept json
// @Produce json
// @Param provider path string true "Payment provider (razorpay/stripe)"
// @Param X-Razorpay-Signature header string false "Razorpay body signature"
// @Param Stripe-Signature header string false "Stripe signature header"
// @Success 200 {object} object{success=bool,data=object{outcome=string}}
// @Failure 400 {object} object{success=bool,error=string}
// @Failure 500 {object} object{success=bool,error=string}
// @Router /api/payments/{provider}/webhook [post]
func (h *PaymentHandler) WebhookDoc() {}

// VerifyCheckout godoc
// @Summary Verify a completed checkout
// @Description Verify the checkout signature and apply the provider's fetched payment status
// @Tags Payments
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param provider path string true "Payment provider (razorpay/stripe)"
// @Param request body object{payment_id=string,provider_order_id=string,provider_payment_id=string,signature=string} true "Checkout data"
// @Success 200 {object} object{success=bool,payment_status=string}
// @Failure 400 {object} object{success=bool,error=string}
// @Failure 401 {object} object{success=bool,error=string}
// @Failure 404 {object} object{success=bool,error=string}
// @Failure 409 {object} object{success=bool,error=string}
// @Router /api/payments/{provider}/verify [post]
func (h *PaymentHandler) VerifyCheckoutDoc() {}

// RefundPayment godoc
// @Summary Refund a captured payment
// @Description Issue a full or partial refund (Admin only)
// @Tags Payments
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param provider path string true "Payment provider (razorpay/stripe)"
// @Param request body object{payment_id=string,amount=string} true "Refund data, omit amount for a full refund"
// @Success 200 {object} object{success=bool,refund=object}
// @Failure 400 {object} object{success=bool,error=string}
// @Failure 403 {object} object{success=bool,error=string}
// @Failure 404 {object} object{success=bool,error=string}
// @Failure 502 {object} object{success=bool,error=string}
// @Router /api/payments/{provider}/refund [post]
func (h *PaymentHandler) RefundPaymentDoc() {}

// GetPayment godoc
// @Summary Get payment by ID
// @Description Get a payment belonging to the caller's tenant
// @Tags Payments
// @Security BearerAuth
// @Produce json
// @Param id path string true "Payment ID"
// @Success 200 {object} object{success=bool,data=object}
// @Failure 400 {object} object{success=bool,error=string}
// @Failure 404 {object} object{success=bool,error=string}
// @Router /api/payments/{id} [get]
func (h *PaymentHandler) GetPaymentDoc() {}

// ListPayments godoc
// @Summary List payments
// @Description List the tenant's payments with optional filters
// @Tags Payments
// @Security BearerAuth
// @Produce json
// @Param status query string false "Status (CREATED/AUTHORIZED/CAPTURED/FAILED/REFUNDED)"
// @Param appointment_id query string false "Appointment ID"
// @Param limit query int false "Limit"
// @Param offset query int false "Offset"
// @Success 200 {object} object{success=bool,data=object{payments=array,total=int}}
// @Failure 400 {object} object{success=bool,error=string}
// @Failure 500 {object} object{success=bool,error=string}
// @Router /api/payments [get]
func (h *PaymentHandler) ListPaymentsDoc() {}

// ListEvents godoc
// @Summary List payment events
// @Description Get the event ledger of a payment in arrival order
// @Tags Payments
// @Security BearerAuth
// @Produce json
// @Param id path string true "Payment ID"
// @Success 200 {object} object{success=bool,data=object{events=array,total=int}}
// @Failure 400 {object} object{success=bool,error=string}
// @Failure 404 {object} object{success=bool,error=string}
// @Router /api/payments/{id}/events [get]
func (h *PaymentHandler) ListEventsDoc() {}

// HealthCheck godoc
// @Summary Health check
// @Description Check service health and database connectivity
// @Tags Health
// @Produce json
// @Success 200 {object} object{success=bool,message=string}
// @Failure 503 {object} object{success=bool,error=string}
// @Router /health [get]
func (h *PaymentHandler) HealthCheckDoc() {}
