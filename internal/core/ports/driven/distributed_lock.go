package driven

import (
	"context"
	"time"
)

// DistributedLock coordinates work across instances. Ingestion holds a
// per-document lock so no two ingestions of the same document run
// concurrently, which the index-coverage invariant depends on.
type DistributedLock interface {
	// Acquire attempts to acquire a named lock with the given TTL.
	// Returns true if acquired, false if already held by another holder.
	Acquire(ctx context.Context, name string, ttl time.Duration) (acquired bool, err error)

	// Release releases a named lock. Best-effort; safe to call even if
	// the lock is not held or has expired.
	Release(ctx context.Context, name string) error

	// Ping checks if the lock backend is healthy
	Ping(ctx context.Context) error
}
