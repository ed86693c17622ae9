package ratelimit

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mochoudhry5/WeddingServices-sub001/internal/pkg/env"
	"github.com/mochoudhry5/WeddingServices-sub001/internal/pkg/usercontext"
)

func TestMiddlewareLimitsPerUser(t *testing.T) {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		if id := c.Get("X-Test-User"); id != "" {
			usercontext.SetUserContext(c, usercontext.UserContext{UserID: id, IsLoggedIn: true})
		}
		return c.Next()
	})
	app.Use(Middleware(Config{Max: 2, Expiration: time.Minute}))
	app.Get("/", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	call := func(user string) int {
		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set("X-Test-User", user)
		resp, err := app.Test(req)
		require.NoError(t, err)
		return resp.StatusCode
	}

	assert.Equal(t, fiber.StatusOK, call("u1"))
	assert.Equal(t, fiber.StatusOK, call("u1"))
	assert.Equal(t, fiber.StatusTooManyRequests, call("u1"))
	assert.Equal(t, fiber.StatusOK, call("u2"))
}

func TestLoadConfig(t *testing.T) {
	prev := env.Env
	env.Env = map[string]string{"API_RATE_LIMIT": "10", "API_RATE_WINDOW": "30"}
	t.Cleanup(func() { env.Env = prev })

	cfg := LoadConfig()
	assert.Equal(t, 10, cfg.Max)
	assert.Equal(t, 30*time.Second, cfg.Expiration)
	assert.Nil(t, cfg.Storage)
}
