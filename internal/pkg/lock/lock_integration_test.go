package lock

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

type counterID struct{ n int }

func (c *counterID) Generate() string {
	c.n++
	return fmt.Sprintf("token-%d", c.n)
}

func newTestLocker(t *testing.T) *RedisLocker {
	t.Helper()

	if os.Getenv("DEALREADY_INTEGRATION") == "" {
		t.Skip("set DEALREADY_INTEGRATION to run container-backed tests")
	}

	ctx := context.Background()

	ctr, err := tcredis.Run(ctx, "redis:7-alpine")
	if err != nil {
		t.Fatalf("start redis container: %v", err)
	}
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(ctr); err != nil {
			t.Logf("terminate redis container: %v", err)
		}
	})

	uri, err := ctr.ConnectionString(ctx)
	if err != nil {
		t.Fatalf("connection string: %v", err)
	}

	opt, err := goredis.ParseURL(uri)
	if err != nil {
		t.Fatalf("parse redis url: %v", err)
	}

	client := goredis.NewClient(opt)
	t.Cleanup(func() { _ = client.Close() })

	return New(client, &counterID{})
}

func TestAcquireIsExclusive(t *testing.T) {
	locker := newTestLocker(t)
	ctx := context.Background()

	h, err := locker.Acquire(ctx, "mfa_enroll:user-1", time.Minute)
	if err != nil {
		t.Fatalf("first acquire: %v", err)
	}

	if _, err := locker.Acquire(ctx, "mfa_enroll:user-1", time.Minute); !errors.Is(err, ErrAlreadyHeld) {
		t.Fatalf("second acquire: got %v, want ErrAlreadyHeld", err)
	}

	// A different name is an independent lock.
	if _, err := locker.Acquire(ctx, "mfa_enroll:user-2", time.Minute); err != nil {
		t.Fatalf("acquire other name: %v", err)
	}

	if err := h.Release(ctx); err != nil {
		t.Fatalf("release: %v", err)
	}
	if _, err := locker.Acquire(ctx, "mfa_enroll:user-1", time.Minute); err != nil {
		t.Fatalf("reacquire after release: %v", err)
	}
}

func TestReleaseRequiresOwnership(t *testing.T) {
	locker := newTestLocker(t)
	ctx := context.Background()

	first, err := locker.Acquire(ctx, "job", 50*time.Millisecond)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}

	// Let the lock expire and be taken by someone else.
	time.Sleep(100 * time.Millisecond)
	if _, err := locker.Acquire(ctx, "job", time.Minute); err != nil {
		t.Fatalf("acquire after expiry: %v", err)
	}

	// The stale handle's token no longer matches, so its release must
	// not free the new holder's lock.
	if err := first.Release(ctx); err != nil {
		t.Fatalf("stale release: %v", err)
	}
	if _, err := locker.Acquire(ctx, "job", time.Minute); !errors.Is(err, ErrAlreadyHeld) {
		t.Fatalf("lock should still be held: got %v", err)
	}
}

func TestForceReleaseDropsAnyHolder(t *testing.T) {
	locker := newTestLocker(t)
	ctx := context.Background()

	if _, err := locker.Acquire(ctx, "mfa_enroll:user-9", time.Minute); err != nil {
		t.Fatalf("acquire: %v", err)
	}

	if err := locker.ForceRelease(ctx, "mfa_enroll:user-9"); err != nil {
		t.Fatalf("force release: %v", err)
	}

	if _, err := locker.Acquire(ctx, "mfa_enroll:user-9", time.Minute); err != nil {
		t.Fatalf("acquire after force release: %v", err)
	}
}

func TestDoReleasesOnReturn(t *testing.T) {
	locker := newTestLocker(t)
	ctx := context.Background()

	ran := false
	err := locker.Do(ctx, "batch", time.Minute, func(context.Context) error {
		ran = true
		_, err := locker.Acquire(ctx, "batch", time.Minute)
		if !errors.Is(err, ErrAlreadyHeld) {
			t.Fatalf("lock not held inside Do: %v", err)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	if !ran {
		t.Fatal("fn did not run")
	}

	if _, err := locker.Acquire(ctx, "batch", time.Minute); err != nil {
		t.Fatalf("acquire after Do: %v", err)
	}
}
