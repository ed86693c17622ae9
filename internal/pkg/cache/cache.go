package cache

import (
	"context"
	"net"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/redis/go-redis/v9"

	"github.com/mochoudhry5/WeddingServices-sub001/internal/pkg/env"
)

const pingTimeout = 2 * time.Second

var client *redis.Client

// Options builds the client options from CACHE_HOST, CACHE_PORT,
// CACHE_PASSWORD and CACHE_DB.
func Options() *redis.Options {
	return &redis.Options{
		Addr:         net.JoinHostPort(env.GetEnv("CACHE_HOST", "localhost"), env.GetEnv("CACHE_PORT", "6379")),
		Password:     env.GetEnv("CACHE_PASSWORD", ""),
		DB:           env.GetEnvInt("CACHE_DB", 0),
		DialTimeout:  pingTimeout,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	}
}

// SetupCache connects the shared Redis client. An unreachable server is only
// logged: cached summaries are an optimisation and every caller falls back
// to the database.
func SetupCache() {
	client = redis.NewClient(Options())

	if err := Ping(context.Background()); err != nil {
		log.Warnf("[Cache] Redis at %s not reachable: %v", client.Options().Addr, err)
		return
	}
	log.Infof("[Cache] Connected to Redis at %s", client.Options().Addr)
}

// Ping checks the shared client with a short timeout.
func Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return GetClient().Ping(ctx).Err()
}

// GetClient returns the Redis client instance
func GetClient() *redis.Client {
	if client == nil {
		SetupCache()
	}
	return client
}
