// Package redisclient wires a go-redis client from configuration, used to
// back the travel-time cache's optional persistence mirror.
package redisclient

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/barkbox/walkmarket/config"
)

// New creates a Redis client from cfg's RedisURL. Returns an error if the
// URL cannot be parsed.
func New(cfg *config.Config) (*redis.Client, error) {
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("redisclient: invalid REDIS_URL: %w", err)
	}
	return redis.NewClient(opt), nil
}

// Ping verifies connectivity with a short deadline, used at start-up to
// decide whether to degrade to the in-process-only travel-time cache.
func Ping(client *redis.Client) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return client.Ping(ctx).Err()
}
