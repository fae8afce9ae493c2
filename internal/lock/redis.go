package lock

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/oggyb/anonchat/internal/cache"
	"github.com/oggyb/anonchat/internal/matchmaking"
)

// RedisLocker is a matchmaking.Locker shared by every engine instance that
// talks to the same Redis. Each lock is a SET NX PX key with a random token.
//
// Behavior:
//   - Lock polls until the key is free or ctx is done.
//   - The TTL bounds how long a crashed holder can block others.
//   - Unlock only deletes the key while it still carries our token.
type RedisLocker struct {
	cache *cache.RedisCache
	ttl   time.Duration
	retry time.Duration
	log   *slog.Logger
}

func NewRedisLocker(c *cache.RedisCache, ttl time.Duration, log *slog.Logger) *RedisLocker {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	return &RedisLocker{cache: c, ttl: ttl, retry: 10 * time.Millisecond, log: log}
}

var _ matchmaking.Locker = (*RedisLocker)(nil)

func (l *RedisLocker) Lock(ctx context.Context, id int64) (func(), error) {
	key := l.cache.KeyForUserLock(id)
	token := uuid.NewString()

	for {
		err := l.cache.AcquireLock(ctx, key, token, l.ttl)
		if err == nil {
			break
		}
		if !errors.Is(err, cache.ErrLockHeld) {
			return nil, err
		}
		t := time.NewTimer(l.retry)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		case <-t.C:
		}
	}

	return func() {
		// the caller's ctx may already be done; release on a fresh one
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		ok, err := l.cache.ReleaseLock(ctx, key, token)
		if err != nil {
			l.log.Warn("release user lock failed", "user_id", id, "err", err)
			return
		}
		if !ok {
			l.log.Warn("user lock expired before release", "user_id", id, "ttl", l.ttl)
		}
	}, nil
}
