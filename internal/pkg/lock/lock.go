// Package lock provides a small redis-backed mutual exclusion helper.
//
// It is used to serialize operations that must not run concurrently for the
// same user, such as starting two TOTP enrollments at once.
package lock

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrAlreadyHeld is returned when the lock is held by another caller.
var ErrAlreadyHeld = errors.New("lock: already held")

// releaseScript deletes the key only when the stored token matches, so a
// caller can never release a lock it no longer owns.
const releaseScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`

// Locker acquires and releases named locks.
type Locker interface {
	Acquire(ctx context.Context, name string, ttl time.Duration) (Handle, error)
	Do(ctx context.Context, name string, ttl time.Duration, fn func(context.Context) error) error
	ForceRelease(ctx context.Context, name string) error
}

// Handle represents a held lock.
type Handle interface {
	Release(ctx context.Context) error
}

type generator interface {
	Generate() string
}

// RedisLocker implements Locker with SET NX and a token-checked release.
type RedisLocker struct {
	client  *redis.Client
	uuid    generator
	prefix  string
	release *redis.Script
}

// New creates a RedisLocker.
func New(client *redis.Client, uuid generator) *RedisLocker {
	return &RedisLocker{
		client:  client,
		uuid:    uuid,
		prefix:  "lock:",
		release: redis.NewScript(releaseScript),
	}
}

type handle struct {
	locker *RedisLocker
	key    string
	token  string
}

// Release frees the lock if this handle still owns it.
func (h *handle) Release(ctx context.Context) error {
	return h.locker.release.Run(ctx, h.locker.client, []string{h.key}, h.token).Err()
}

// Acquire takes the named lock for at most ttl.
//
// ErrAlreadyHeld is returned when another caller holds the lock.
func (l *RedisLocker) Acquire(ctx context.Context, name string, ttl time.Duration) (Handle, error) {
	token := l.uuid.Generate()
	key := l.prefix + name

	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrAlreadyHeld
	}

	return &handle{locker: l, key: key, token: token}, nil
}

// ForceRelease drops the named lock regardless of who holds it.
//
// It exists for flows where the acquiring request and the releasing request
// are different HTTP calls, so no Handle survives between them. Callers must
// only force-release locks scoped to their own identity.
func (l *RedisLocker) ForceRelease(ctx context.Context, name string) error {
	return l.client.Del(ctx, l.prefix+name).Err()
}

// Do runs fn while holding the named lock.
//
// The lock is released on return; expiry bounds the hold time if the process
// dies mid-operation.
func (l *RedisLocker) Do(ctx context.Context, name string, ttl time.Duration, fn func(context.Context) error) error {
	h, err := l.Acquire(ctx, name, ttl)
	if err != nil {
		return err
	}
	defer func() {
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		_ = h.Release(releaseCtx)
	}()

	return fn(ctx)
}
