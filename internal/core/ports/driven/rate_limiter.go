package driven

import "context"

// RateLimiter bounds how often a key may perform an action.
type RateLimiter interface {
	// Allow records one hit for key and reports whether it is within budget.
	Allow(ctx context.Context, key string) (bool, error)
}
