package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/mochoudhry5/WeddingServices-sub001/app/controllers"
	"github.com/mochoudhry5/WeddingServices-sub001/internal/pkg/constants"
)

type WebhookRouter struct {
}

func (h WebhookRouter) InstallRouter(app *fiber.App) {
	app.Get(constants.HealthRoute, func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "ok"})
	})

	// Billing provider webhooks (signature-verified in controller)
	app.Post(constants.StripeWebhookRoute, controllers.HandleStripeWebhook)
}

func NewWebhookRouter() *WebhookRouter {
	return &WebhookRouter{}
}
