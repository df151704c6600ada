package driven

import (
	"context"
	"time"
)

// DistributedLock serializes credential refreshes across replicas.
// Names look like "integration-refresh:{tenant}:{provider}".
type DistributedLock interface {
	// Acquire takes the named lock for ttl. It returns false, nil when
	// another holder already owns it; it never blocks waiting.
	Acquire(ctx context.Context, name string, ttl time.Duration) (acquired bool, err error)

	// Release drops a lock held by this instance. Releasing an expired
	// or foreign lock is a no-op.
	Release(ctx context.Context, name string) error

	// Extend pushes out the TTL of a lock this instance still holds and
	// errors once the lock was lost. Refreshes call it every half TTL.
	Extend(ctx context.Context, name string, ttl time.Duration) error

	Ping(ctx context.Context) error
}
