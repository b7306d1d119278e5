package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

func TestRedisEventCache_RememberThenSeen(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	cache := NewRedisEventCache(client, time.Hour)
	ctx := context.Background()
	tenant := uuid.New()

	seen, err := cache.Seen(ctx, tenant, "evt_1")
	if err != nil || seen {
		t.Fatalf("fresh key: seen=%v err=%v", seen, err)
	}

	if err := cache.Remember(ctx, tenant, "evt_1"); err != nil {
		t.Fatalf("Remember: %v", err)
	}
	seen, err = cache.Seen(ctx, tenant, "evt_1")
	if err != nil || !seen {
		t.Fatalf("after Remember: seen=%v err=%v", seen, err)
	}

	if seen, _ := cache.Seen(ctx, uuid.New(), "evt_1"); seen {
		t.Error("keys must be tenant scoped")
	}

	mr.FastForward(2 * time.Hour)
	if seen, _ := cache.Seen(ctx, tenant, "evt_1"); seen {
		t.Error("key should expire after ttl")
	}
}

func TestRedisEventCache_ReportsRedisErrors(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	cache := NewRedisEventCache(client, 0)

	mr.SetError("LOADING")
	if _, err := cache.Seen(context.Background(), uuid.New(), "evt"); err == nil {
		t.Error("expected redis error to surface")
	}
}
