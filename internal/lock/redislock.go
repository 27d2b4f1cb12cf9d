package lock

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrNotConfigured is returned when the locker has no Redis client.
var ErrNotConfigured = errors.New("lock: redis client not configured")

// compareAndDelete drops KEYS[1] only while it still holds our token, so an
// expired lock taken over by another instance is left alone.
var compareAndDelete = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

const (
	defaultTTL   = 30 * time.Second
	defaultRetry = 50 * time.Millisecond
)

// Locker is a Redis mutex shared by every API instance. Rate-plan cache fills
// run under it so a cold cache costs one database load.
type Locker struct {
	R            *redis.Client
	Prefix       string
	RetryBackoff time.Duration
}

// WithLock runs fn while holding key. The lock is dropped when fn returns.
// Waiting ends with ctx.Err() when ctx is done first.
func (l Locker) WithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error {
	if l.R == nil {
		return ErrNotConfigured
	}
	if fn == nil {
		return errors.New("lock: nil callback")
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	name, token := l.name(key), uuid.NewString()
	if err := l.acquire(ctx, name, token, ttl); err != nil {
		return err
	}
	defer l.release(name, token)
	return fn(ctx)
}

func (l Locker) acquire(ctx context.Context, name, token string, ttl time.Duration) error {
	every := l.RetryBackoff
	if every <= 0 {
		every = defaultRetry
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		ok, err := l.R.SetNX(ctx, name, token, ttl).Result()
		switch {
		case err != nil:
			return err
		case ok:
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// release runs on a fresh context so a cancelled caller still frees the key.
func (l Locker) release(name, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = compareAndDelete.Run(ctx, l.R, []string{name}, token).Err()
}

func (l Locker) name(key string) string {
	if l.Prefix == "" {
		return "lock:" + key
	}
	return l.Prefix + ":lock:" + key
}
