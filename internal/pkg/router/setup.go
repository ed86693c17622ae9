package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/mochoudhry5/WeddingServices-sub001/internal/pkg/middleware"
	"github.com/mochoudhry5/WeddingServices-sub001/internal/pkg/ratelimit"
)

// Router installs one group of routes.
type Router interface {
	InstallRouter(app *fiber.App)
}

// Config carries the settings the routers need.
type Config struct {
	Auth      middleware.BearerAuthConfig
	RateLimit ratelimit.Config
	Metrics   MetricsConfig
}

func InstallRouter(app *fiber.App, cfg Config) {
	// Webhooks first: they carry no bearer token and must not hit the API
	// limiter.
	setup(app, NewWebhookRouter(), NewApiRouter(cfg.Auth, cfg.RateLimit), NewMetricsRouter(cfg.Metrics))
}

func setup(app *fiber.App, router ...Router) {
	for _, r := range router {
		r.InstallRouter(app)
	}
}
