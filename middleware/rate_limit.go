package middleware

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RateLimiter counts requests per key in fixed Redis windows.
type RateLimiter struct {
	redis *redis.Client
}

func NewRateLimiter(redisURL string) (*RateLimiter, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RateLimiter{redis: client}, nil
}

// Limit allows maxRequests per window for each actor (or client IP when the request
// is anonymous). Requests pass through when Redis is unavailable.
func (rl *RateLimiter) Limit(maxRequests int, window time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		subject := "ip:" + c.IP()
		if actor := CurrentActor(c); actor.ID != uuid.Nil {
			subject = "user:" + actor.ID.String()
		}
		key := fmt.Sprintf("rate_limit:%s:%s", c.Route().Path, subject)
		ctx := c.UserContext()

		count, ttl, err := rl.hit(ctx, key, window)
		if err != nil {
			log.Printf("⚠️ Rate limiter error: %v", err)
			return c.Next()
		}

		if count > int64(maxRequests) {
			c.Set(fiber.HeaderRetryAfter, fmt.Sprintf("%d", int(ttl.Seconds())))
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests. Please try again later.",
				"code":  "RATE_LIMITED",
			})
		}

		c.Set("X-RateLimit-Limit", fmt.Sprintf("%d", maxRequests))
		c.Set("X-RateLimit-Remaining", fmt.Sprintf("%d", maxRequests-int(count)))
		return c.Next()
	}
}

// hit counts one request against key and returns the count and the time left in the
// window. A key left without an expiry, for example after a failed EXPIRE, gets one
// on the next hit so it cannot block its subject forever.
func (rl *RateLimiter) hit(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	var incr *redis.IntCmd
	var ttl *redis.DurationCmd
	_, err := rl.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		ttl = pipe.TTL(ctx, key)
		return nil
	})
	if err != nil {
		return 0, 0, err
	}

	left := ttl.Val()
	if left < 0 {
		if err := rl.redis.Expire(ctx, key, window).Err(); err != nil {
			return 0, 0, fmt.Errorf("set window on %s: %w", key, err)
		}
		left = window
	}
	return incr.Val(), left, nil
}

func (rl *RateLimiter) Close() error {
	return rl.redis.Close()
}
