package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/intakeline/intakeline-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.RateLimiter = (*RateLimiter)(nil)

const rateLimitPrefix = keyPrefix + "ratelimit:"

// RateLimiter is a fixed-window counter: INCR, with the window TTL set on the first hit.
type RateLimiter struct {
	client *redis.Client
	limit  int64
	window time.Duration
}

// NewRateLimiter allows limit hits per key per window.
func NewRateLimiter(client *redis.Client, limit int, window time.Duration) *RateLimiter {
	if window <= 0 {
		window = time.Minute
	}
	return &RateLimiter{
		client: client,
		limit:  int64(limit),
		window: window,
	}
}

// Allow counts one hit and reports whether key is still within its budget.
// A non-positive limit disables limiting.
func (r *RateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	if r.limit <= 0 {
		return true, nil
	}

	n, err := hitScript.Run(ctx, r.client, []string{rateLimitPrefix + key}, r.window.Milliseconds()).Int64()
	if err != nil {
		return false, fmt.Errorf("rate limit %s: %w", key, err)
	}
	return n <= r.limit, nil
}

var hitScript = redis.NewScript(`
	local n = redis.call("incr", KEYS[1])
	if n == 1 then
		redis.call("pexpire", KEYS[1], ARGV[1])
	end
	return n
`)
