package database

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const KeyPrefixRateLimit = "ratelimit:"

func NewRedisClient(redisURL string) (*redis.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Info().Str("addr", opts.Addr).Msg("Connected to Redis")

	return client, nil
}

// RateCounter counts hits per key in fixed windows.
type RateCounter struct {
	client *redis.Client
}

func NewRateCounter(client *redis.Client) *RateCounter {
	return &RateCounter{client: client}
}

// Increment bumps the counter for key and returns the count inside the current
// window. The expiry is only set when the key has none, so the window ends a
// fixed time after the first hit even while the caller keeps retrying.
func (c *RateCounter) Increment(ctx context.Context, key string, window time.Duration) (int64, error) {
	fullKey := KeyPrefixRateLimit + key
	pipe := c.client.Pipeline()
	incr := pipe.Incr(ctx, fullKey)
	ttl := pipe.TTL(ctx, fullKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}

	if needsExpiry(incr.Val(), ttl.Val()) {
		if err := c.client.Expire(ctx, fullKey, window).Err(); err != nil {
			return 0, err
		}
	}
	return incr.Val(), nil
}

// needsExpiry reports whether a counter must have its window started: on the
// first hit, or when a previous expiry was lost and the key has no TTL (-1).
func needsExpiry(count int64, ttl time.Duration) bool {
	return count == 1 || ttl < 0
}
