package memory

import (
	"context"
	"testing"
	"time"
)

func TestLock_AcquireIsExclusive(t *testing.T) {
	l := NewLock()
	ctx := context.Background()

	ok, err := l.Acquire(ctx, "ingest:doc-1", time.Minute)
	if err != nil || !ok {
		t.Fatalf("first Acquire() = %v, %v; want true", ok, err)
	}

	ok, err = l.Acquire(ctx, "ingest:doc-1", time.Minute)
	if err != nil {
		t.Fatalf("second Acquire() error = %v", err)
	}
	if ok {
		t.Error("second Acquire() succeeded on held lock")
	}

	// A different name is independent.
	ok, err = l.Acquire(ctx, "ingest:doc-2", time.Minute)
	if err != nil || !ok {
		t.Errorf("Acquire(doc-2) = %v, %v; want true", ok, err)
	}
}

func TestLock_ReleaseAllowsReacquire(t *testing.T) {
	l := NewLock()
	ctx := context.Background()

	if ok, _ := l.Acquire(ctx, "ingest:doc-1", time.Minute); !ok {
		t.Fatal("Acquire() failed on fresh lock")
	}
	if err := l.Release(ctx, "ingest:doc-1"); err != nil {
		t.Fatalf("Release() error = %v", err)
	}
	if ok, _ := l.Acquire(ctx, "ingest:doc-1", time.Minute); !ok {
		t.Error("Acquire() failed after Release()")
	}
}

func TestLock_ExpiredLockIsReacquirable(t *testing.T) {
	l := NewLock()
	ctx := context.Background()

	if ok, _ := l.Acquire(ctx, "ingest:doc-1", 10*time.Millisecond); !ok {
		t.Fatal("Acquire() failed on fresh lock")
	}
	time.Sleep(20 * time.Millisecond)
	if ok, _ := l.Acquire(ctx, "ingest:doc-1", time.Minute); !ok {
		t.Error("Acquire() failed after TTL expiry")
	}
}
