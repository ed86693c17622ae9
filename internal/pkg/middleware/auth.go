package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/mochoudhry5/WeddingServices-sub001/internal/pkg/usercontext"
)

// RequireUser rejects requests that reached it without an authenticated
// caller and returns JSON 401.
func RequireUser(c *fiber.Ctx) error {
	if !usercontext.IsLoggedIn(c) || usercontext.GetUserID(c) == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error":   "unauthorized",
			"message": "login required",
		})
	}
	return c.Next()
}
