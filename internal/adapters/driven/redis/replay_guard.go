package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/intakeline/intakeline-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.StateReplayGuard = (*StateReplayGuard)(nil)

const statePrefix = keyPrefix + "oauth-state:"

// StateReplayGuard remembers consumed OAuth state tokens until they would have expired anyway.
// Only a SHA-256 digest of the token is stored.
type StateReplayGuard struct {
	client *redis.Client
}

// NewStateReplayGuard creates a Redis-backed replay guard.
func NewStateReplayGuard(client *redis.Client) *StateReplayGuard {
	return &StateReplayGuard{client: client}
}

// Consume returns true the first time a state is seen within ttl.
func (g *StateReplayGuard) Consume(ctx context.Context, state string, ttl time.Duration) (bool, error) {
	sum := sha256.Sum256([]byte(state))
	ok, err := g.client.SetNX(ctx, statePrefix+hex.EncodeToString(sum[:]), 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("consume oauth state: %w", err)
	}
	return ok, nil
}
