package gateway

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/tair/appointment-payments/internal/payment/domain"
	"github.com/tair/appointment-payments/internal/payment/signature"
	"github.com/tair/appointment-payments/pkg/logger"
)

const DefaultRazorpayBaseURL = "https://api.razorpay.com"

// RazorpayConfig holds the API credentials for one Razorpay account
type RazorpayConfig struct {
	KeyID     string
	KeySecret string
	BaseURL   string
	Timeout   time.Duration
}

// RazorpayGateway talks to the Razorpay REST API
type RazorpayGateway struct {
	cfg    RazorpayConfig
	auth   string
	client *fasthttp.Client
}

// NewRazorpayGateway creates a new Razorpay client
func NewRazorpayGateway(cfg RazorpayConfig) *RazorpayGateway {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultRazorpayBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &RazorpayGateway{
		cfg:  cfg,
		auth: "Basic " + base64.StdEncoding.EncodeToString([]byte(cfg.KeyID+":"+cfg.KeySecret)),
		client: &fasthttp.Client{
			Name:                "appointment-payments",
			ReadTimeout:         cfg.Timeout,
			WriteTimeout:        cfg.Timeout,
			MaxIdleConnDuration: time.Minute,
		},
	}
}

func (g *RazorpayGateway) Provider() domain.Provider { return domain.ProviderRazorpay }

func (g *RazorpayGateway) PublicKey() string { return g.cfg.KeyID }

func (g *RazorpayGateway) VerifyCheckout(orderID, paymentID, sig string) bool {
	return signature.VerifyCheckout(orderID, paymentID, sig, g.cfg.KeySecret)
}

func (g *RazorpayGateway) CreateOrder(ctx context.Context, req domain.OrderRequest) (*domain.ProviderOrder, error) {
	body := map[string]interface{}{
		"amount":   req.AmountMinor,
		"currency": req.Currency,
		"receipt":  req.Receipt,
		"notes":    req.Notes,
	}

	raw, err := g.do(ctx, fasthttp.MethodPost, "/v1/orders", body)
	if err != nil {
		return nil, err
	}
	id, _ := raw["id"].(string)
	if id == "" {
		return nil, fmt.Errorf("%w: razorpay order response has no id", domain.ErrProviderUnavailable)
	}
	return &domain.ProviderOrder{ID: id, Raw: raw}, nil
}

func (g *RazorpayGateway) FetchPayment(ctx context.Context, providerPaymentID string) (*domain.ProviderPayment, error) {
	raw, err := g.do(ctx, fasthttp.MethodGet, "/v1/payments/"+providerPaymentID, nil)
	if err != nil {
		return nil, err
	}
	p := &domain.ProviderPayment{Raw: raw}
	p.ID, _ = raw["id"].(string)
	p.OrderID, _ = raw["order_id"].(string)
	p.Status, _ = raw["status"].(string)
	return p, nil
}

func (g *RazorpayGateway) Refund(ctx context.Context, providerPaymentID string, amountMinor *int64) (*domain.ProviderRefund, error) {
	body := map[string]interface{}{}
	if amountMinor != nil {
		body["amount"] = *amountMinor
	}

	raw, err := g.do(ctx, fasthttp.MethodPost, "/v1/payments/"+providerPaymentID+"/refund", body)
	if err != nil {
		return nil, err
	}
	r := &domain.ProviderRefund{Raw: raw}
	r.ID, _ = raw["id"].(string)
	r.PaymentID, _ = raw["payment_id"].(string)
	r.Status, _ = raw["status"].(string)
	if amount, ok := raw["amount"].(float64); ok {
		r.AmountMinor = int64(amount)
	}
	return r, nil
}

type razorpayError struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

// do sends one JSON request. Transport errors and 5xx answers are
// ErrProviderUnavailable; 4xx answers are ErrProviderRejected.
func (g *RazorpayGateway) do(ctx context.Context, method, path string, body interface{}) (map[string]interface{}, error) {
	var result map[string]interface{}

	err := func() error {
		req := fasthttp.AcquireRequest()
		resp := fasthttp.AcquireResponse()
		defer fasthttp.ReleaseRequest(req)
		defer fasthttp.ReleaseResponse(resp)

		req.SetRequestURI(g.cfg.BaseURL + path)
		req.Header.SetMethod(method)
		req.Header.Set("Authorization", g.auth)
		if body != nil {
			payload, err := json.Marshal(body)
			if err != nil {
				return fmt.Errorf("failed to marshal razorpay request: %w", err)
			}
			req.Header.SetContentType("application/json")
			req.SetBody(payload)
		}

		timeout := g.cfg.Timeout
		if deadline, ok := ctx.Deadline(); ok {
			if left := time.Until(deadline); left < timeout {
				timeout = left
			}
		}
		if timeout <= 0 {
			return fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, context.DeadlineExceeded)
		}

		start := time.Now()
		if err := g.client.DoTimeout(req, resp, timeout); err != nil {
			logger.Warn(ctx).
				Err(err).
				Str("method", method).
				Str("path", path).
				Dur("duration", time.Since(start)).
				Msg("Razorpay request failed")
			return fmt.Errorf("%w: razorpay %s %s: %v", domain.ErrProviderUnavailable, method, path, err)
		}

		status := resp.StatusCode()
		respBody := append([]byte(nil), resp.Body()...)

		logger.Debug(ctx).
			Str("method", method).
			Str("path", path).
			Int("status", status).
			Dur("duration", time.Since(start)).
			Msg("Razorpay request completed")

		if status >= 500 {
			return fmt.Errorf("%w: razorpay answered %d", domain.ErrProviderUnavailable, status)
		}
		if status >= 400 {
			var apiErr razorpayError
			_ = json.Unmarshal(respBody, &apiErr)
			return fmt.Errorf("%w: razorpay %d %s: %s", domain.ErrProviderRejected, status, apiErr.Error.Code, apiErr.Error.Description)
		}

		if err := json.Unmarshal(respBody, &result); err != nil {
			return fmt.Errorf("%w: undecodable razorpay response: %v", domain.ErrProviderUnavailable, err)
		}
		return nil
	}()
	return result, err
}
