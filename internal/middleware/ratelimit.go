package middleware

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"bountyboard/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

// RateLimitConfig holds rate limiting settings
type RateLimitConfig struct {
	// Global limits (per IP)
	GlobalAPIMax        int
	GlobalAPIExpiration time.Duration

	// Authenticated endpoint limits (per user ID)
	AuthenticatedMax        int
	AuthenticatedExpiration time.Duration

	// Acceptance endpoint limits (per user ID). Acceptance runs a
	// multi-step workflow; hammering it multiplies backend load.
	AcceptMax        int
	AcceptExpiration time.Duration
}

// DefaultRateLimitConfig returns production-safe defaults
func DefaultRateLimitConfig() *RateLimitConfig {
	return &RateLimitConfig{
		GlobalAPIMax:        200,
		GlobalAPIExpiration: 1 * time.Minute,

		AuthenticatedMax:        60,
		AuthenticatedExpiration: 1 * time.Minute,

		AcceptMax:        10,
		AcceptExpiration: 1 * time.Minute,
	}
}

// LoadRateLimitConfig loads config from environment variables with defaults
func LoadRateLimitConfig() *RateLimitConfig {
	config := DefaultRateLimitConfig()

	if v := os.Getenv("RATE_LIMIT_GLOBAL_API"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			config.GlobalAPIMax = n
		}
	}
	if v := os.Getenv("RATE_LIMIT_AUTHENTICATED"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			config.AuthenticatedMax = n
		}
	}
	if v := os.Getenv("RATE_LIMIT_ACCEPT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			config.AcceptMax = n
		}
	}
	return config
}

// GlobalLimiter is the per-IP backstop for the whole API surface.
func GlobalLimiter(config *RateLimitConfig) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        config.GlobalAPIMax,
		Expiration: config.GlobalAPIExpiration,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, slow down",
			})
		},
	})
}

// UserLimiter limits per authenticated user through Redis so the count
// holds across instances. A nil redis falls back to allowing the
// request; the global per-IP limiter still applies.
func UserLimiter(redis *services.RedisService, scope string, max int, window time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if redis == nil {
			return c.Next()
		}

		userID, _ := c.Locals("user_id").(string)
		if userID == "" {
			return c.Next()
		}

		key := fmt.Sprintf("ratelimit:%s:%s", scope, userID)
		_, exceeded, err := redis.CheckRateLimit(c.Context(), key, int64(max), window)
		if err != nil {
			// Redis trouble must not take the API down
			log.Printf("⚠️  [RATELIMIT] Check failed for %s: %v", key, err)
			return c.Next()
		}
		if exceeded {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Rate limit exceeded, try again shortly",
			})
		}
		return c.Next()
	}
}
