package ratelimit

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrLimitExceeded signals that the counter for a key passed its limit. It is
// a policy decision, distinguishable from connectivity errors which trigger
// the fail-open/fail-closed policy instead.
var ErrLimitExceeded = errors.New("ratelimit: limit exceeded")

// CounterStore is the shared external counter used by the service. Consume
// atomically increments the counter for key and returns the consumed count
// plus the time until the window resets. When the count passes limit it
// returns ErrLimitExceeded together with the remaining window TTL.
type CounterStore interface {
	Consume(ctx context.Context, key string, limit int, window time.Duration) (count int64, ttl time.Duration, err error)
	Close() error
}

type redisCounterStore struct {
	client *redis.Client
}

// NewRedisCounterStore wraps a Redis client as a CounterStore. Increments are
// atomic at the store level; no cross-key coordination is needed.
func NewRedisCounterStore(client *redis.Client) CounterStore {
	return &redisCounterStore{client: client}
}

func (s *redisCounterStore) Consume(ctx context.Context, key string, limit int, window time.Duration) (int64, time.Duration, error) {
	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	// NX keeps the window anchored at the first hit instead of sliding the
	// expiry on every request.
	pipe.ExpireNX(ctx, key, window)
	pttl := pipe.PTTL(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, 0, err
	}

	count := incr.Val()
	ttl := pttl.Val()
	if ttl < 0 {
		ttl = window
	}
	if count > int64(limit) {
		return count, ttl, ErrLimitExceeded
	}
	return count, ttl, nil
}

func (s *redisCounterStore) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}
