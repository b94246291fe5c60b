package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	rd "github.com/redis/go-redis/v9"
)

// luaReleaseIfMatch deletes the lock only while it still carries our token,
// so an expired lock taken over by another instance is left alone
const luaReleaseIfMatch = `
local lockKey = KEYS[1]
local token = ARGV[1]
if redis.call('GET', lockKey) == token then
  return redis.call('DEL', lockKey)
end
return 0
`

const (
	// DefaultTTL bounds how long a crashed holder can block an order
	DefaultTTL = 30 * time.Second

	// DefaultRetryInterval is the pause between SET NX attempts
	DefaultRetryInterval = 25 * time.Millisecond
)

// RedisLocker is a Locker shared by every instance pointing at the same
// Redis. It uses SET NX PX with a random token and a compare-and-delete
// release.
type RedisLocker struct {
	rdb           *rd.Client
	prefix        string
	ttl           time.Duration
	retryInterval time.Duration
}

// NewRedisLocker creates a RedisLocker. Keys are stored as
// <prefix>:order:lock:<id>.
func NewRedisLocker(rdb *rd.Client, prefix string, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if prefix == "" {
		prefix = "roomservice"
	}
	return &RedisLocker{rdb: rdb, prefix: prefix, ttl: ttl, retryInterval: DefaultRetryInterval}
}

// OrderLockKey is the Redis key guarding one order
func (r *RedisLocker) OrderLockKey(orderID string) string {
	return fmt.Sprintf("%s:order:lock:%s", r.prefix, orderID)
}

// Acquire implements Locker
func (r *RedisLocker) Acquire(ctx context.Context, key string) (func(), error) {
	lockKey := r.OrderLockKey(key)
	token := uuid.NewString()

	ticker := time.NewTicker(r.retryInterval)
	defer ticker.Stop()

	for {
		ok, err := r.rdb.SetNX(ctx, lockKey, token, r.ttl).Result()
		if err != nil && ctx.Err() == nil {
			return nil, fmt.Errorf("redis lock %s: %w", lockKey, err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ErrTimeout
		case <-ticker.C:
		}
	}

	return func() {
		// The caller's context may already be done; release on a fresh one.
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_, _ = r.rdb.Eval(releaseCtx, luaReleaseIfMatch, []string{lockKey}, token).Int()
	}, nil
}
