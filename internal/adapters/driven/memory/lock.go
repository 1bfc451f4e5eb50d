package memory

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/ragcore/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.DistributedLock = (*Lock)(nil)

// Lock is a process-local implementation of driven.DistributedLock.
// Locks expire after their TTL so a crashed holder cannot wedge a
// document forever.
type Lock struct {
	mu    sync.Mutex
	locks map[string]time.Time // name -> expiry
}

// NewLock creates an empty lock table.
func NewLock() *Lock {
	return &Lock{locks: make(map[string]time.Time)}
}

// Acquire attempts to take the named lock. Returns false when the lock
// is held and not yet expired.
func (l *Lock) Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := time.Now()
	if expiry, held := l.locks[name]; held && expiry.After(now) {
		return false, nil
	}
	l.locks[name] = now.Add(ttl)
	return true, nil
}

// Release frees the named lock. Releasing an unheld lock is a no-op.
func (l *Lock) Release(ctx context.Context, name string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.locks, name)
	return nil
}

// Ping always succeeds for the in-process lock.
func (l *Lock) Ping(ctx context.Context) error {
	return nil
}
