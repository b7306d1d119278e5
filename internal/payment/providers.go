package payment

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/tair/appointment-payments/internal/config"
	"github.com/tair/appointment-payments/internal/payment/domain"
	"github.com/tair/appointment-payments/internal/payment/gateway"
	"github.com/tair/appointment-payments/internal/payment/handler"
	"github.com/tair/appointment-payments/internal/payment/notification"
	"github.com/tair/appointment-payments/internal/payment/repository"
	"github.com/tair/appointment-payments/internal/payment/usecase/command"
	"github.com/tair/appointment-payments/internal/payment/webhook"
)

const processedEventTTL = 7 * 24 * time.Hour

// Service is the assembled HTTP surface plus the background receipt
// dispatcher that must be drained on shutdown
type Service struct {
	Handler  *handler.PaymentHandler
	Receipts *notification.ReceiptDispatcher
}

// ProvidePaymentRepository provides the traced payment repository
func ProvidePaymentRepository(db *gorm.DB) domain.PaymentRepository {
	return repository.NewGormPaymentRepositoryWithTracing(db)
}

func ProvideCustomerFinder(repo domain.PaymentRepository) notification.CustomerFinder {
	return repo
}

// ProvideGatewayRegistry registers a breaker-guarded gateway for every
// provider that has credentials
func ProvideGatewayRegistry(cfg *config.Config) domain.GatewayRegistry {
	var gateways []domain.Gateway
	if cfg.Razorpay.KeyID != "" {
		gateways = append(gateways, gateway.WithCircuitBreaker(
			gateway.NewRazorpayGateway(gateway.RazorpayConfig{
				KeyID:     cfg.Razorpay.KeyID,
				KeySecret: cfg.Razorpay.KeySecret,
				BaseURL:   cfg.Razorpay.BaseURL,
				Timeout:   cfg.ProviderTimeout,
			}),
			gateway.NewCircuitBreaker("razorpay", cfg.BreakerMaxFailures, cfg.BreakerOpenTimeout),
		))
	}
	if cfg.Stripe.SecretKey != "" {
		gateways = append(gateways, gateway.WithCircuitBreaker(
			gateway.NewStripeGateway(gateway.StripeConfig{
				SecretKey:      cfg.Stripe.SecretKey,
				PublishableKey: cfg.Stripe.PublishableKey,
				Timeout:        cfg.ProviderTimeout,
			}),
			gateway.NewCircuitBreaker("stripe", cfg.BreakerMaxFailures, cfg.BreakerOpenTimeout),
		))
	}
	return gateway.NewRegistry(gateways...)
}

// ProvideWebhookParsers registers a parser for every provider with a webhook secret
func ProvideWebhookParsers(cfg *config.Config) command.WebhookParsers {
	var parsers []webhook.Parser
	if cfg.Razorpay.WebhookSecret != "" {
		parsers = append(parsers, webhook.NewRazorpayParser(cfg.Razorpay.WebhookSecret))
	}
	if cfg.Stripe.WebhookSecret != "" {
		parsers = append(parsers, webhook.NewStripeParser(cfg.Stripe.WebhookSecret))
	}
	return webhook.NewRegistry(parsers...)
}

func ProvideEventCache(redisClient *redis.Client) domain.ProcessedEventCache {
	if redisClient == nil {
		return repository.NoopEventCache{}
	}
	return repository.NewRedisEventCache(redisClient, processedEventTTL)
}

func ProvideRateLimiter(cfg *config.Config, redisClient *redis.Client) *handler.RateLimiter {
	if redisClient == nil || cfg.RateLimit.Max <= 0 {
		return nil
	}
	return handler.NewRateLimiter(redisClient, cfg.RateLimit.Max, cfg.RateLimit.Window)
}

func ProvideMiddlewareConfig(cfg *config.Config, limiter *handler.RateLimiter) handler.MiddlewareConfig {
	return handler.DefaultMiddlewareConfig(cfg.JWTSecret, limiter)
}

func ProvideReceiptRenderer(cfg *config.Config) domain.ReceiptRenderer {
	return notification.NewPDFRenderer(cfg.BusinessName)
}

func ProvideReceiptDispatcher(
	customers notification.CustomerFinder,
	renderer domain.ReceiptRenderer,
	queue domain.TaskQueue,
	metrics *notification.Metrics,
	cfg *config.Config,
) *notification.ReceiptDispatcher {
	d := notification.NewReceiptDispatcher(customers, renderer, queue, metrics)
	d.SetMaxRetries(cfg.NotificationMaxRetries)
	return d
}

func ProvideHandlerMetrics(reg prometheus.Registerer) *handler.Metrics {
	return handler.NewMetrics(reg)
}

func ProvideNotificationMetrics(reg prometheus.Registerer) *notification.Metrics {
	return notification.NewMetrics(reg)
}
