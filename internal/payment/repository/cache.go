package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/tair/appointment-payments/internal/payment/domain"
	"github.com/tair/appointment-payments/pkg/logger"
)

// DefaultProcessedEventTTL covers the retry window of the supported providers
const DefaultProcessedEventTTL = 72 * time.Hour

// RedisEventCache implements domain.ProcessedEventCache with Redis keys
type RedisEventCache struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewRedisEventCache creates a new processed event cache
func NewRedisEventCache(redisClient *redis.Client, ttl time.Duration) *RedisEventCache {
	if ttl <= 0 {
		ttl = DefaultProcessedEventTTL
	}
	return &RedisEventCache{redis: redisClient, ttl: ttl}
}

func eventCacheKey(tenantID uuid.UUID, providerEventID string) string {
	return fmt.Sprintf("payment-event:%s:%s", tenantID, providerEventID)
}

func (c *RedisEventCache) Seen(ctx context.Context, tenantID uuid.UUID, providerEventID string) (bool, error) {
	n, err := c.redis.Exists(ctx, eventCacheKey(tenantID, providerEventID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (c *RedisEventCache) Remember(ctx context.Context, tenantID uuid.UUID, providerEventID string) error {
	key := eventCacheKey(tenantID, providerEventID)
	if err := c.redis.Set(ctx, key, 1, c.ttl).Err(); err != nil {
		return err
	}
	logger.Debug(ctx).
		Str("cache_key", key).
		Dur("ttl", c.ttl).
		Msg("Processed event cached")
	return nil
}

// NoopEventCache is used when Redis is not configured
type NoopEventCache struct{}

func (NoopEventCache) Seen(context.Context, uuid.UUID, string) (bool, error) { return false, nil }

func (NoopEventCache) Remember(context.Context, uuid.UUID, string) error { return nil }

var (
	_ domain.ProcessedEventCache = (*RedisEventCache)(nil)
	_ domain.ProcessedEventCache = NoopEventCache{}
	_ domain.PaymentRepository   = (*GormPaymentRepository)(nil)
	_ domain.PaymentRepository   = (*GormPaymentRepositoryWithTracing)(nil)
)
