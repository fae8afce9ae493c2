package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/oggyb/anonchat/internal/config"
	"github.com/oggyb/anonchat/internal/matchmaking"
)

// ErrLockHeld is returned by AcquireLock when another owner holds the key.
var ErrLockHeld = errors.New("cache: lock held")

type RedisCache struct {
	Client   *redis.Client
	StatsTTL time.Duration
}

// NewRedisCache initializes Redis client from config.
// Only Addr is mandatory, Password/DB are optional.
func NewRedisCache(cfg *config.Config) *RedisCache {
	opts := &redis.Options{
		Addr: cfg.Redis.Addr,
	}
	if cfg.Redis.Password != "" {
		opts.Password = cfg.Redis.Password
	}
	if cfg.Redis.DB != 0 {
		opts.DB = cfg.Redis.DB
	}
	ttl := cfg.Redis.StatsTTL
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	return &RedisCache{Client: redis.NewClient(opts), StatsTTL: ttl}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.Client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.Client.Close()
}

// KeyForStats is the key of the cached engine counters.
func (c *RedisCache) KeyForStats() string {
	return "stats:engine"
}

// KeyForUserLock generates the Redis key guarding one user's state.
func (c *RedisCache) KeyForUserLock(userID int64) string {
	return fmt.Sprintf("lock:user:%d", userID)
}

// SetStats stores a stats snapshot for StatsTTL.
func (c *RedisCache) SetStats(ctx context.Context, s matchmaking.Stats) error {
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return c.Client.Set(ctx, c.KeyForStats(), b, c.StatsTTL).Err()
}

// GetStats returns the cached snapshot. ok is false on a cache miss.
func (c *RedisCache) GetStats(ctx context.Context) (matchmaking.Stats, bool, error) {
	val, err := c.Client.Get(ctx, c.KeyForStats()).Bytes()
	if errors.Is(err, redis.Nil) {
		return matchmaking.Stats{}, false, nil // cache miss
	} else if err != nil {
		return matchmaking.Stats{}, false, err
	}
	var s matchmaking.Stats
	if err := json.Unmarshal(val, &s); err != nil {
		return matchmaking.Stats{}, false, err
	}
	return s, true, nil
}

// releaseScript deletes the key only if it still carries our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// AcquireLock sets key to token if absent, expiring after ttl.
// Returns ErrLockHeld if someone else owns it.
func (c *RedisCache) AcquireLock(ctx context.Context, key, token string, ttl time.Duration) error {
	ok, err := c.Client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return ErrLockHeld
	}
	return nil
}

// ReleaseLock removes key if token still owns it. Returns false when the
// lock had already expired or changed hands.
func (c *RedisCache) ReleaseLock(ctx context.Context, key, token string) (bool, error) {
	n, err := releaseScript.Run(ctx, c.Client, []string{key}, token).Int64()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
