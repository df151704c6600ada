package postgres

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/intakeline/intakeline-core/internal/core/ports/driven"
)

// Ensure StateReplayGuard implements the interface.
var _ driven.StateReplayGuard = (*StateReplayGuard)(nil)

// StateReplayGuard records consumed OAuth state tokens in PostgreSQL.
// Used for single-use state when Redis is not configured.
// Rows are keyed by the SHA-256 of the token and live until the token would have expired.
type StateReplayGuard struct {
	db *DB
}

// NewStateReplayGuard creates a PostgreSQL-backed replay guard.
func NewStateReplayGuard(db *DB) *StateReplayGuard {
	return &StateReplayGuard{db: db}
}

// Consume returns true the first time a state is seen within ttl.
// An expired row for the same digest is reclaimed in the same statement.
func (g *StateReplayGuard) Consume(ctx context.Context, state string, ttl time.Duration) (bool, error) {
	sum := sha256.Sum256([]byte(state))

	query := `
		INSERT INTO consumed_oauth_states (state_hash, expires_at)
		VALUES ($1, $2)
		ON CONFLICT (state_hash) DO UPDATE SET expires_at = EXCLUDED.expires_at
		WHERE consumed_oauth_states.expires_at <= NOW()
	`

	result, err := g.db.ExecContext(ctx, query, hex.EncodeToString(sum[:]), time.Now().Add(ttl))
	if err != nil {
		return false, fmt.Errorf("consume oauth state: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("consume oauth state: %w", err)
	}
	return n == 1, nil
}

// Cleanup removes expired entries.
func (g *StateReplayGuard) Cleanup(ctx context.Context) (int64, error) {
	result, err := g.db.ExecContext(ctx, `DELETE FROM consumed_oauth_states WHERE expires_at <= NOW()`)
	if err != nil {
		return 0, fmt.Errorf("cleanup oauth states: %w", err)
	}
	return result.RowsAffected()
}
