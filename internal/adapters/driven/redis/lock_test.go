package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client, mr
}

func TestLock_AcquireIsExclusive(t *testing.T) {
	client, _ := setupTestRedis(t)
	ctx := context.Background()

	lock1 := NewLock(client)
	lock2 := NewLock(client)

	acquired, err := lock1.Acquire(ctx, "ingest:doc-1", 10*time.Second)
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if !acquired {
		t.Fatal("first Acquire() failed")
	}

	acquired, err = lock2.Acquire(ctx, "ingest:doc-1", 10*time.Second)
	if err != nil {
		t.Fatalf("second Acquire() error = %v", err)
	}
	if acquired {
		t.Error("second instance acquired a held lock")
	}
}

func TestLock_ReleaseOnlyByOwner(t *testing.T) {
	client, _ := setupTestRedis(t)
	ctx := context.Background()

	owner := NewLock(client)
	other := NewLock(client)

	if ok, _ := owner.Acquire(ctx, "ingest:doc-1", 10*time.Second); !ok {
		t.Fatal("Acquire() failed")
	}

	// A non-owner release is a no-op.
	if err := other.Release(ctx, "ingest:doc-1"); err != nil {
		t.Fatalf("non-owner Release() error = %v", err)
	}
	if ok, _ := other.Acquire(ctx, "ingest:doc-1", 10*time.Second); ok {
		t.Error("lock was released by a non-owner")
	}

	// The owner's release frees it.
	if err := owner.Release(ctx, "ingest:doc-1"); err != nil {
		t.Fatalf("owner Release() error = %v", err)
	}
	if ok, _ := other.Acquire(ctx, "ingest:doc-1", 10*time.Second); !ok {
		t.Error("lock not acquirable after owner release")
	}
}

func TestLock_ExpiresWithTTL(t *testing.T) {
	client, mr := setupTestRedis(t)
	ctx := context.Background()

	lock1 := NewLock(client)
	lock2 := NewLock(client)

	if ok, _ := lock1.Acquire(ctx, "ingest:doc-1", time.Second); !ok {
		t.Fatal("Acquire() failed")
	}

	mr.FastForward(2 * time.Second)

	if ok, _ := lock2.Acquire(ctx, "ingest:doc-1", time.Second); !ok {
		t.Error("lock not acquirable after TTL expiry")
	}
}

func TestLock_Ping(t *testing.T) {
	client, _ := setupTestRedis(t)
	lock := NewLock(client)
	if err := lock.Ping(context.Background()); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
}
