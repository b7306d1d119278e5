//go:build wireinject
// +build wireinject

package payment

import (
	"github.com/google/wire"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/tair/appointment-payments/internal/config"
	"github.com/tair/appointment-payments/internal/payment/domain"
	"github.com/tair/appointment-payments/internal/payment/handler"
	"github.com/tair/appointment-payments/internal/payment/notification"
	"github.com/tair/appointment-payments/internal/payment/usecase/command"
	"github.com/tair/appointment-payments/internal/payment/usecase/query"
)

// Wire sets
var RepositorySet = wire.NewSet(
	ProvidePaymentRepository,
	ProvideCustomerFinder,
	ProvideEventCache,
)

var ProviderSet = wire.NewSet(
	ProvideGatewayRegistry,
	ProvideWebhookParsers,
)

var NotificationSet = wire.NewSet(
	ProvideNotificationMetrics,
	ProvideReceiptRenderer,
	ProvideReceiptDispatcher,
	wire.Bind(new(domain.ReceiptDispatcher), new(*notification.ReceiptDispatcher)),
)

var CommandHandlerSet = wire.NewSet(
	command.NewCreateOrderHandler,
	command.NewHandleWebhookHandler,
	command.NewVerifyCheckoutHandler,
	command.NewRefundPaymentHandler,
)

var QueryHandlerSet = wire.NewSet(
	query.NewGetPaymentHandler,
	query.NewListPaymentsHandler,
	query.NewListEventsHandler,
)

var HTTPSet = wire.NewSet(
	ProvideHandlerMetrics,
	ProvideRateLimiter,
	ProvideMiddlewareConfig,
	handler.NewPaymentHandlerWithDI,
)

var AllHandlersSet = wire.NewSet(
	RepositorySet,
	ProviderSet,
	NotificationSet,
	CommandHandlerSet,
	QueryHandlerSet,
	HTTPSet,
)

// InitializeService initializes the payment service with all dependencies
func InitializeService(db *gorm.DB, cfg *config.Config, redisClient *redis.Client, queue domain.TaskQueue, reg prometheus.Registerer) (*Service, error) {
	wire.Build(
		AllHandlersSet,
		wire.Struct(new(Service), "*"),
	)
	return nil, nil
}
