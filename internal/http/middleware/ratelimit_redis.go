package middleware

import (
	"context"
	"strconv"
	"time"

	"plantaton/internal/logger"

	"github.com/gin-gonic/gin"
	redis "github.com/redis/go-redis/v9"
)

var redisClient *redis.Client

// InitRedisRateLimiter connects the shared Redis client used by the
// limiters and returns it. When addr is empty or Redis does not answer,
// it returns nil and the limiters fall back to in-process buckets.
func InitRedisRateLimiter(addr, password string, db int) *redis.Client {
	if addr == "" {
		redisClient = nil
		return nil
	}
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unavailable, using local rate limits", "addr", addr, "error", err)
		_ = client.Close()
		redisClient = nil
		return nil
	}
	redisClient = client
	return client
}

// incrWindow bumps a fixed-window counter and returns its new value.
func incrWindow(ctx context.Context, key string, window time.Duration) (int64, error) {
	val, err := redisClient.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if val == 1 {
		// first hit in this window
		if err := redisClient.Expire(ctx, key, window).Err(); err != nil {
			return 0, err
		}
	}
	return val, nil
}

// redisRateKey builds rl:<scope>:<window_seconds>:<ip>|<route>. The scope
// keeps stacked limiters on one route from counting into the same key.
func redisRateKey(scope string, window time.Duration, key string) string {
	return "rl:" + scope + ":" + strconv.FormatInt(int64(window.Seconds()), 10) + ":" + key
}

// RedisRateLimit is a fixed-window limiter keyed by client IP and route,
// shared between instances through Redis INCR/EXPIRE.
func RedisRateLimit(scope string, maxRequests int, window time.Duration) gin.HandlerFunc {
	local := newLocalLimiter(maxRequests, window)
	return func(c *gin.Context) {
		key := routeKey(c)
		if redisClient == nil {
			if !local.allow(key, time.Now()) {
				tooManyRequests(c, c.FullPath(), window)
				return
			}
			RLRequests.WithLabelValues(c.FullPath()).Inc()
			c.Next()
			return
		}

		val, err := incrWindow(c.Request.Context(), redisRateKey(scope, window, key), window)
		if err != nil {
			c.Header("X-RateLimit-Error", "redis-error")
			if !local.allow(key, time.Now()) {
				tooManyRequests(c, c.FullPath(), window)
				return
			}
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(maxRequests))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(max(0, int64(maxRequests)-val), 10))
		if val > int64(maxRequests) {
			tooManyRequests(c, c.FullPath(), window)
			return
		}

		RLRequests.WithLabelValues(c.FullPath()).Inc()
		c.Next()
	}
}
