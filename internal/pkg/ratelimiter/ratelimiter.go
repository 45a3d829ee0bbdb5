package ratelimiter

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const keyPrefix = "ratelimit:"

// KeyFunc picks the bucket a request is charged to. An empty key skips limiting.
type KeyFunc func(c *fiber.Ctx) string

// RateLimiter keeps one token bucket per key in memory and mirrors the
// remaining burst to redis so a restarted instance does not hand out a
// fresh bucket. A nil redis client keeps state in-process only.
type RateLimiter struct {
	client   *redis.Client
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
	ttl      time.Duration
	log      *zap.Logger
}

// New creates a limiter allowing rps sustained requests and burst at once
func New(client *redis.Client, rps float64, burst int, ttl time.Duration, log *zap.Logger) *RateLimiter {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		client:   client,
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Limit(rps),
		burst:    burst,
		ttl:      ttl,
		log:      log,
	}
}

// Allow charges one request to key
func (rl *RateLimiter) Allow(ctx context.Context, key string) bool {
	limiter := rl.getLimiter(ctx, key)
	allowed := limiter.Allow()
	rl.persist(key, limiter)
	return allowed
}

func (rl *RateLimiter) getLimiter(ctx context.Context, key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if limiter, ok := rl.limiters[key]; ok {
		return limiter
	}

	limiter := rate.NewLimiter(rl.limit, rl.burst)

	if rl.client != nil {
		remaining, err := rl.client.Get(ctx, keyPrefix+key).Int()
		switch {
		case err == nil:
			// spend what the previous instance already used
			if used := rl.burst - remaining; used > 0 {
				limiter.AllowN(time.Now(), used)
			}
		case !errors.Is(err, redis.Nil):
			rl.log.Warn("failed to load rate limit state", zap.String("key", key), zap.Error(err))
		}
	}

	rl.limiters[key] = limiter

	time.AfterFunc(rl.ttl, func() {
		rl.mu.Lock()
		defer rl.mu.Unlock()
		delete(rl.limiters, key)
	})

	return limiter
}

func (rl *RateLimiter) persist(key string, limiter *rate.Limiter) {
	if rl.client == nil {
		return
	}
	remaining := int(limiter.Tokens())
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := rl.client.Set(ctx, keyPrefix+key, remaining, rl.ttl).Err(); err != nil {
			rl.log.Warn("failed to store rate limit state", zap.String("key", key), zap.Error(err))
		}
	}()
}

// Middleware rejects requests over the limit with 429
func (rl *RateLimiter) Middleware(keyFn KeyFunc) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := keyFn(c)
		if key == "" {
			return c.Next()
		}

		if !rl.Allow(c.UserContext(), key) {
			rl.log.Warn("rate limit exceeded", zap.String("key", key), zap.String("path", c.Path()))
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"success": false,
				"error":   "Too many requests, please try again later.",
			})
		}

		return c.Next()
	}
}
