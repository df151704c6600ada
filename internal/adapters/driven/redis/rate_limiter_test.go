package redis

import (
	"context"
	"testing"
	"time"
)

func TestRateLimiter_Allow(t *testing.T) {
	mr, client := setupTestRedis(t)
	ctx := context.Background()
	limiter := NewRateLimiter(client, 3, time.Minute)

	for i := 1; i <= 3; i++ {
		ok, err := limiter.Allow(ctx, "connect:tenant-a")
		if err != nil {
			t.Fatalf("hit %d: %v", i, err)
		}
		if !ok {
			t.Fatalf("hit %d: expected allowed", i)
		}
	}

	ok, err := limiter.Allow(ctx, "connect:tenant-a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("expected 4th hit to be limited")
	}

	// Other tenants have their own budget
	if ok, _ := limiter.Allow(ctx, "connect:tenant-b"); !ok {
		t.Error("expected separate key to be allowed")
	}

	if ttl := mr.TTL(rateLimitPrefix + "connect:tenant-a"); ttl <= 0 || ttl > time.Minute {
		t.Errorf("window ttl: got %v", ttl)
	}

	mr.FastForward(61 * time.Second)
	if ok, _ := limiter.Allow(ctx, "connect:tenant-a"); !ok {
		t.Error("expected new window to allow")
	}
}

func TestRateLimiter_Disabled(t *testing.T) {
	_, client := setupTestRedis(t)
	limiter := NewRateLimiter(client, 0, time.Minute)

	for i := 0; i < 100; i++ {
		if ok, err := limiter.Allow(context.Background(), "k"); err != nil || !ok {
			t.Fatalf("disabled limiter refused hit %d: %v", i, err)
		}
	}
}

func TestRateLimiter_BackendDown(t *testing.T) {
	mr, client := setupTestRedis(t)
	limiter := NewRateLimiter(client, 5, time.Minute)
	mr.Close()

	if _, err := limiter.Allow(context.Background(), "k"); err == nil {
		t.Error("expected error when redis is down")
	}
}
