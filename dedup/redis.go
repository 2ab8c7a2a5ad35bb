package dedup

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "opsflare:dedup:"

// Redis suppresses across a fleet of warm containers sharing one Redis. The
// check-and-record is a single SET NX with the window as TTL, so
// per-fingerprint atomicity comes from Redis itself.
//
// Any Redis failure fails open: better a duplicate notification than a
// silently dropped one.
type Redis struct {
	client *redis.Client
}

// NewRedis wraps an existing client. The caller owns the client's lifecycle.
func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

// ShouldSend implements Store.
func (r *Redis) ShouldSend(ctx context.Context, fp string, window time.Duration) (bool, error) {
	if window <= 0 {
		return true, nil
	}
	if r == nil || r.client == nil {
		return true, nil
	}

	ok, err := r.client.SetNX(ctx, redisKeyPrefix+fp, 1, window).Result()
	if err != nil {
		return true, err
	}
	return ok, nil
}
