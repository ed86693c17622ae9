package router

import (
	"crypto/subtle"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/crypto/bcrypt"

	"github.com/mochoudhry5/WeddingServices-sub001/internal/pkg/constants"
	"github.com/mochoudhry5/WeddingServices-sub001/internal/pkg/env"
)

// MetricsConfig protects /metrics with basic auth. PasswordHash is a bcrypt
// hash; /metrics is not mounted without one.
type MetricsConfig struct {
	User         string
	PasswordHash string
}

func LoadMetricsConfig() MetricsConfig {
	return MetricsConfig{
		User:         strings.TrimSpace(env.GetEnv("METRICS_USER", "metrics")),
		PasswordHash: strings.TrimSpace(env.GetEnv("METRICS_PASSWORD_HASH", "")),
	}
}

type MetricsRouter struct {
	cfg MetricsConfig
}

func (h MetricsRouter) InstallRouter(app *fiber.App) {
	if h.cfg.PasswordHash == "" {
		log.Warn("[Metrics] METRICS_PASSWORD_HASH not set, /metrics disabled")
		return
	}

	app.Get(constants.MetricsRoute, basicauth.New(basicauth.Config{
		Authorizer: h.authorize,
	}), adaptor.HTTPHandler(promhttp.Handler()))
}

func (h MetricsRouter) authorize(user, pass string) bool {
	if subtle.ConstantTimeCompare([]byte(user), []byte(h.cfg.User)) != 1 {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(h.cfg.PasswordHash), []byte(pass)) == nil
}

func NewMetricsRouter(cfg MetricsConfig) *MetricsRouter {
	return &MetricsRouter{cfg: cfg}
}
