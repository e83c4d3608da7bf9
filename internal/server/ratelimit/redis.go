package ratelimit

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter shares counters between service instances. The first hit in a
// window creates the key and sets its expiry; the key vanishing ends the
// window.
type RedisLimiter struct {
	client *redis.Client
	prefix string
	rule   Rule
}

var _ Limiter = (*RedisLimiter)(nil)

func NewRedisLimiter(client *redis.Client, prefix string, rule Rule) *RedisLimiter {
	return &RedisLimiter{client: client, prefix: prefix, rule: rule}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	if !l.rule.Enabled() {
		return true, nil
	}

	k := l.prefix + ":" + key

	count, err := l.client.Incr(ctx, k).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if count == 1 {
		if err := l.client.Expire(ctx, k, l.rule.Window).Err(); err != nil {
			return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
	}

	return count <= int64(l.rule.Limit), nil
}
