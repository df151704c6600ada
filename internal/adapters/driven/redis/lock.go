package redis

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/intakeline/intakeline-core/internal/core/ports/driven"
)

var _ driven.DistributedLock = (*Lock)(nil)

// Refresh leases live at intakeline:lease:integration-refresh:{tenant}:{provider}.
const leasePrefix = keyPrefix + "lease:"

// Lock hands out refresh leases. A lease value is this replica's owner token;
// only that owner may release or extend it, and it expires after its TTL.
type Lock struct {
	client  *redis.Client
	ownerID string
}

func NewLock(client *redis.Client) *Lock {
	return &Lock{client: client, ownerID: newOwnerID()}
}

// newOwnerID looks like "api-7f9c/4211/1a2b3c4d5e6f7a8b" (host/pid/nonce).
func newOwnerID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "unknown"
	}
	nonce := make([]byte, 8)
	_, _ = rand.Read(nonce)
	return host + "/" + strconv.Itoa(os.Getpid()) + "/" + hex.EncodeToString(nonce)
}

func leaseKey(name string) string {
	return leasePrefix + name
}

// Acquire takes the lease if nobody holds it, this replica included.
func (l *Lock) Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	err := l.client.SetArgs(ctx, leaseKey(name), l.ownerID, redis.SetArgs{Mode: "NX", TTL: ttl}).Err()
	switch {
	case errors.Is(err, redis.Nil):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("acquire lease %s: %w", name, err)
	}
	return true, nil
}

// ownedLease runs only when the lease still carries our owner token.
// ARGV[2] is a new TTL in ms, or 0 to delete the lease.
var ownedLease = redis.NewScript(`
	if redis.call("get", KEYS[1]) ~= ARGV[1] then
		return 0
	end
	if ARGV[2] == "0" then
		return redis.call("del", KEYS[1])
	end
	return redis.call("pexpire", KEYS[1], ARGV[2])
`)

func (l *Lock) onOwnedLease(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	n, err := ownedLease.Run(ctx, l.client, []string{leaseKey(name)}, l.ownerID, ttl.Milliseconds()).Int64()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Release drops the lease if this replica still owns it.
func (l *Lock) Release(ctx context.Context, name string) error {
	if _, err := l.onOwnedLease(ctx, name, 0); err != nil {
		return fmt.Errorf("release lease %s: %w", name, err)
	}
	return nil
}

// Extend renews a lease this replica owns. A lost lease is an error.
func (l *Lock) Extend(ctx context.Context, name string, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("extend lease %s: ttl must be positive", name)
	}
	owned, err := l.onOwnedLease(ctx, name, ttl)
	if err != nil {
		return fmt.Errorf("extend lease %s: %w", name, err)
	}
	if !owned {
		return fmt.Errorf("lease %s not held by %s", name, l.ownerID)
	}
	return nil
}

func (l *Lock) Ping(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}

// OwnerID is the token this replica writes into its leases.
func (l *Lock) OwnerID() string {
	return l.ownerID
}
