package ratelimit

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/storage/redis"

	"github.com/mochoudhry5/WeddingServices-sub001/internal/pkg/cache"
	"github.com/mochoudhry5/WeddingServices-sub001/internal/pkg/env"
	"github.com/mochoudhry5/WeddingServices-sub001/internal/pkg/usercontext"
)

// storageDatabase keeps limiter counters apart from cached summaries
// (CACHE_DB, 0 by default).
const storageDatabase = 1

// Config controls the per-caller request budget of the API.
type Config struct {
	Max        int
	Expiration time.Duration
	// Storage holds the counters. Nil keeps them in process memory.
	Storage fiber.Storage
}

// LoadConfig reads API_RATE_LIMIT (requests) and API_RATE_WINDOW (seconds).
func LoadConfig() Config {
	return Config{
		Max:        env.GetEnvInt("API_RATE_LIMIT", 60),
		Expiration: time.Duration(env.GetEnvInt("API_RATE_WINDOW", 60)) * time.Second,
	}
}

// NewStorage creates Redis storage for limiter counters on the server the
// cache client points at.
func NewStorage() (fiber.Storage, error) {
	if err := cache.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("redis not reachable for rate limit storage: %w", err)
	}

	opts := cache.GetClient().Options()
	host, rawPort, err := net.SplitHostPort(opts.Addr)
	if err != nil {
		return nil, fmt.Errorf("invalid cache address %q: %w", opts.Addr, err)
	}
	port, err := strconv.Atoi(rawPort)
	if err != nil {
		return nil, fmt.Errorf("invalid cache port %q: %w", rawPort, err)
	}

	return redis.New(redis.Config{
		Host:     host,
		Port:     port,
		Password: opts.Password,
		Database: storageDatabase,
		Reset:    false,
	}), nil
}

// Middleware limits requests per authenticated user, falling back to the
// client IP for anonymous callers.
func Middleware(cfg Config) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:          cfg.Max,
		Expiration:   cfg.Expiration,
		KeyGenerator: callerKey,
		Storage:      cfg.Storage,
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error":   "too_many_requests",
				"message": "Rate limit exceeded",
			})
		},
	})
}

func callerKey(c *fiber.Ctx) string {
	if id := usercontext.GetUserID(c); id != "" {
		return "ratelimit:user:" + id
	}
	return "ratelimit:ip:" + c.IP()
}
