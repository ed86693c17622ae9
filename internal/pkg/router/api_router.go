package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/mochoudhry5/WeddingServices-sub001/app/controllers"
	"github.com/mochoudhry5/WeddingServices-sub001/internal/pkg/constants"
	"github.com/mochoudhry5/WeddingServices-sub001/internal/pkg/middleware"
	"github.com/mochoudhry5/WeddingServices-sub001/internal/pkg/ratelimit"
)

type ApiRouter struct {
	auth      middleware.BearerAuthConfig
	rateLimit ratelimit.Config
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	// auth runs before the limiter so budgets are counted per user
	api := app.Group(constants.APIPrefix, middleware.BearerAuthMiddleware(h.auth), middleware.RequireUser, ratelimit.Middleware(h.rateLimit))

	v1 := api.Group(constants.APIVersionPrefix)
	v1.Get(constants.BillingRoute, controllers.HandleBillingSummary)
	v1.Post(constants.BillingCheckoutRoute, controllers.HandleBillingCheckout)
	v1.Post(constants.BillingSetupIntentRoute, controllers.HandleBillingSetupIntent)
}

func NewApiRouter(auth middleware.BearerAuthConfig, rateLimit ratelimit.Config) *ApiRouter {
	return &ApiRouter{auth: auth, rateLimit: rateLimit}
}
