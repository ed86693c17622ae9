package middleware

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/golang-jwt/jwt/v5"

	"github.com/mochoudhry5/WeddingServices-sub001/internal/pkg/env"
	"github.com/mochoudhry5/WeddingServices-sub001/internal/pkg/usercontext"
)

// BearerAuthConfig describes the access tokens issued by the hosted auth
// service. Tokens are HS256 with a shared secret.
type BearerAuthConfig struct {
	Secret   []byte
	Issuer   string
	Audience string
	Leeway   time.Duration
}

// LoadBearerAuthConfig reads AUTH_JWT_* settings.
func LoadBearerAuthConfig() BearerAuthConfig {
	return BearerAuthConfig{
		Secret:   []byte(strings.TrimSpace(env.GetEnv("AUTH_JWT_SECRET", ""))),
		Issuer:   strings.TrimSpace(env.GetEnv("AUTH_JWT_ISSUER", "")),
		Audience: strings.TrimSpace(env.GetEnv("AUTH_JWT_AUDIENCE", "authenticated")),
		Leeway:   30 * time.Second,
	}
}

type accessClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// BearerAuthMiddleware authenticates requests carrying an
// "Authorization: Bearer <jwt>" header. The token subject becomes the user id.
func BearerAuthMiddleware(cfg BearerAuthConfig) fiber.Handler {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(cfg.Leeway),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}
	parser := jwt.NewParser(opts...)

	return func(c *fiber.Ctx) error {
		if len(cfg.Secret) == 0 {
			log.Error("[Auth] AUTH_JWT_SECRET is not configured")
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Authentication unavailable"})
		}

		raw := extractBearerToken(c)
		if raw == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Missing bearer token"})
		}

		var claims accessClaims
		_, err := parser.ParseWithClaims(raw, &claims, func(token *jwt.Token) (interface{}, error) {
			return cfg.Secret, nil
		})
		if err != nil {
			msg := "Invalid bearer token"
			if errors.Is(err, jwt.ErrTokenExpired) {
				msg = "Bearer token expired"
			}
			log.Debugf("[Auth] Rejected bearer token: %v", err)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": msg})
		}

		subject := strings.TrimSpace(claims.Subject)
		if subject == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Token has no subject"})
		}

		usercontext.SetUserContext(c, usercontext.UserContext{
			UserID:     subject,
			Email:      strings.TrimSpace(claims.Email),
			Role:       claims.Role,
			IsLoggedIn: true,
		})
		return c.Next()
	}
}

func extractBearerToken(c *fiber.Ctx) string {
	header := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}
