package cachestore

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/linkmint/linkmint/internal/config"
)

var (
	ErrRateLimiterInternal = errors.New("internal error")
	ErrRateLimiterExceeded = errors.New("rate limit exceeded")
)

// Lua script for atomic token bucket operations
const script = `
	local key = KEYS[1]
	local capacity = tonumber(ARGV[1])
	local refill_rate = tonumber(ARGV[2])
	local refill_period = tonumber(ARGV[3])
	local now = tonumber(ARGV[4])

	-- Get current state
	local bucket = redis.call('HMGET', key, 'tokens', 'last_refill')
	local tokens = tonumber(bucket[1]) or capacity
	local last_refill = tonumber(bucket[2]) or now

	-- Calculate tokens to add
	local elapsed = now - last_refill
	local periods = math.floor(elapsed / refill_period)

	if periods > 0 then
		tokens = math.min(capacity, tokens + (periods * refill_rate))
		last_refill = last_refill + (periods * refill_period)
	end

	-- Try to consume one token
	local allowed = tokens > 0
	if allowed then
		tokens = tokens - 1
	end

	-- Update state
	redis.call('HMSET', key, 'tokens', tokens, 'last_refill', last_refill)
	redis.call('EXPIRE', key, refill_period * 2)

	return allowed and 1 or 0
`

// RateLimiter implements a Redis-based token bucket rate limiter.
type RateLimiter struct {
	logger *slog.Logger
	client *redis.Client
	cfg    config.RateLimiter
}

// NewRateLimiter creates a new rate limiter backed by the cache's redis client.
func NewRateLimiter(logger *slog.Logger, cache *Cache, cfg config.RateLimiter) RateLimiter {
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "ratelimit:"
	}

	return RateLimiter{
		logger: logger,
		client: cache.rdb,
		cfg:    cfg,
	}
}

// Allow checks if a request is allowed for the given key.
func (rl RateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	redisKey := rl.cfg.KeyPrefix + key
	now := time.Now().Unix()

	result, err := rl.client.Eval(ctx, script, []string{redisKey},
		rl.cfg.Capacity,
		rl.cfg.RefillRate,
		int(rl.cfg.RefillPeriod.Seconds()),
		now,
	).Result()

	if err != nil {
		rl.logger.Error("redis eval failed", "error", err)
		return false, ErrRateLimiterInternal
	}

	return result.(int64) == 1, nil
}

// Middleware applies per-client rate limiting to a gin route group.
func (rl RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()
		if key == "" {
			key = "global"
		}

		allowed, err := rl.Allow(c.Request.Context(), key)
		if err != nil {
			rl.logger.Error("rate limiter internal error", "error", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": ErrRateLimiterInternal.Error()})
			return
		}

		if !allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"message": ErrRateLimiterExceeded.Error()})
			return
		}

		c.Next()
	}
}
