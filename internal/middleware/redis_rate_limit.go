package middleware

import (
	"context"
	"time"

	"github.com/flexbase/flexbase/internal/logger"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const rateLimitKeyPrefix = "flexbase:ratelimit:"

// RedisRateLimiter counts requests per key in a fixed Redis window so the
// limit holds across server instances. When Redis fails the in-memory
// limiter decides instead.
func RedisRateLimiter(rdb *redis.Client, config RateLimitConfig) gin.HandlerFunc {
	config = config.withDefaults()
	fallback := newRateLimiter(config)

	return func(c *gin.Context) {
		key := config.KeyFunc(c)
		if config.Scope != "" {
			key = config.Scope + ":" + key
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 500*time.Millisecond)
		count, ttl, err := incrementWindow(ctx, rdb, rateLimitKeyPrefix+key, config.Window)
		cancel()

		if err != nil {
			logger.Log.Warn("Redis rate limiter unavailable, using local limiter",
				logger.WithIP(c.ClientIP()),
				zap.Error(err))
			allowed, retryAfter := fallback.Allow(key)
			if !allowed {
				rejectRateLimited(c, config.Limit, retryAfter)
				return
			}
			c.Next()
			return
		}

		if count > int64(config.Limit) {
			retryAfter := int(ttl.Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			rejectRateLimited(c, config.Limit, retryAfter)
			return
		}
		c.Next()
	}
}

// incrementWindow bumps the counter for key and returns it with the time
// left in the window. The expiry is set when the window opens.
func incrementWindow(ctx context.Context, rdb *redis.Client, key string, window time.Duration) (int64, time.Duration, error) {
	count, err := rdb.Incr(ctx, key).Result()
	if err != nil {
		return 0, 0, err
	}
	if count == 1 {
		if err := rdb.PExpire(ctx, key, window).Err(); err != nil {
			return 0, 0, err
		}
		return count, window, nil
	}

	ttl, err := rdb.PTTL(ctx, key).Result()
	if err != nil {
		return 0, 0, err
	}
	if ttl < 0 {
		// Counter lost its expiry; start a fresh window
		if err := rdb.PExpire(ctx, key, window).Err(); err != nil {
			return 0, 0, err
		}
		ttl = window
	}
	return count, ttl, nil
}
