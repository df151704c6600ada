package driven

import (
	"context"
	"time"
)

// StateReplayGuard enforces single use of OAuth state tokens.
type StateReplayGuard interface {
	// Consume marks the state as used for ttl.
	// Returns false if it was already consumed.
	Consume(ctx context.Context, state string, ttl time.Duration) (bool, error)
}
