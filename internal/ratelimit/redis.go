package ratelimit

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is a Limiter backed by a shared Redis instance, for deployments
// running more than one replica behind a balancer. Each attempt writes a
// per-player key with TTL equal to the interval; a live key means the
// previous attempt was too recent. The write refreshes the TTL, keeping
// the window sliding.
type Redis struct {
	rdb      *redis.Client
	interval time.Duration
}

// NewRedis creates and pings a Redis-backed limiter.
func NewRedis(ctx context.Context, addr, password string, interval time.Duration) (*Redis, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return &Redis{rdb: rdb, interval: interval}, nil
}

// NewRedisWithClient wraps an existing client (for testing).
func NewRedisWithClient(rdb *redis.Client, interval time.Duration) *Redis {
	return &Redis{rdb: rdb, interval: interval}
}

var _ Limiter = (*Redis)(nil)

func (r *Redis) Allow(ctx context.Context, playerID string) (bool, error) {
	// SET with GET returns the previous value atomically; redis.Nil means
	// no key existed, so the attempt is allowed.
	err := r.rdb.SetArgs(ctx, "ratelimit:"+playerID, "1", redis.SetArgs{
		TTL: r.interval,
		Get: true,
	}).Err()
	if errors.Is(err, redis.Nil) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return false, nil
}

// Close closes the underlying client.
func (r *Redis) Close() error {
	return r.rdb.Close()
}
