// Package cache opens the Redis connection shared by the websocket relay
// and the rate limiter.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/flexbase/flexbase/internal/logger"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const connectTimeout = 5 * time.Second

// Connect parses a redis:// URL, applies pool settings and pings the server.
// An empty URL means Redis is not configured and returns (nil, nil).
func Connect(ctx context.Context, redisURL string) (*redis.Client, error) {
	if redisURL == "" {
		return nil, nil
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	applyPoolDefaults(opts)

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", opts.Addr, err)
	}

	logger.Log.Info("Redis client connected",
		zap.String("address", opts.Addr),
		zap.Int("db", opts.DB),
		zap.Int("pool_size", opts.PoolSize))
	return client, nil
}

// applyPoolDefaults fills settings the URL did not set
func applyPoolDefaults(opts *redis.Options) {
	if opts.MaxRetries == 0 {
		opts.MaxRetries = 3
	}
	if opts.PoolSize == 0 {
		opts.PoolSize = 10
	}
	if opts.MinIdleConns == 0 {
		opts.MinIdleConns = 2
	}
	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = 3 * time.Second
	}
	if opts.WriteTimeout == 0 {
		opts.WriteTimeout = 3 * time.Second
	}
	if opts.DialTimeout == 0 {
		opts.DialTimeout = connectTimeout
	}
}

// Close shuts the client down. A nil client is ignored.
func Close(client *redis.Client) error {
	if client == nil {
		return nil
	}
	return client.Close()
}
