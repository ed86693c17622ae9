package middleware

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mochoudhry5/WeddingServices-sub001/internal/pkg/usercontext"
)

var testAuthConfig = BearerAuthConfig{
	Secret:   []byte("test-jwt-secret"),
	Audience: "authenticated",
}

func signToken(t *testing.T, method jwt.SigningMethod, key interface{}, claims jwt.Claims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return s
}

func validClaims(subject string) accessClaims {
	now := time.Now()
	return accessClaims{
		Email: "couple@example.test",
		Role:  "authenticated",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Audience:  jwt.ClaimStrings{"authenticated"},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	}
}

func newAuthApp(cfg BearerAuthConfig) *fiber.App {
	app := fiber.New()
	app.Get("/me", BearerAuthMiddleware(cfg), RequireUser, func(c *fiber.Ctx) error {
		u := usercontext.GetUserContext(c)
		return c.SendString(u.UserID + "|" + u.Email)
	})
	return app
}

func TestBearerAuthMiddlewareAcceptsValidToken(t *testing.T) {
	app := newAuthApp(testAuthConfig)
	req := httptest.NewRequest("GET", "/me", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, jwt.SigningMethodHS256, testAuthConfig.Secret, validClaims("u1")))

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "u1|couple@example.test", string(body))
}

func TestBearerAuthMiddlewareRejections(t *testing.T) {
	expired := validClaims("u1")
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))
	noExpiry := validClaims("u1")
	noExpiry.ExpiresAt = nil
	wrongAudience := validClaims("u1")
	wrongAudience.Audience = jwt.ClaimStrings{"service_role"}

	tests := []struct {
		name   string
		header string
	}{
		{name: "missing header", header: ""},
		{name: "basic scheme", header: "Basic dXNlcjpwYXNz"},
		{name: "wrong secret", header: "Bearer " + signToken(t, jwt.SigningMethodHS256, []byte("other"), validClaims("u1"))},
		{name: "expired", header: "Bearer " + signToken(t, jwt.SigningMethodHS256, testAuthConfig.Secret, expired)},
		{name: "no expiry", header: "Bearer " + signToken(t, jwt.SigningMethodHS256, testAuthConfig.Secret, noExpiry)},
		{name: "wrong audience", header: "Bearer " + signToken(t, jwt.SigningMethodHS256, testAuthConfig.Secret, wrongAudience)},
		{name: "hs512", header: "Bearer " + signToken(t, jwt.SigningMethodHS512, testAuthConfig.Secret, validClaims("u1"))},
		{name: "empty subject", header: "Bearer " + signToken(t, jwt.SigningMethodHS256, testAuthConfig.Secret, validClaims(""))},
		{name: "garbage", header: "Bearer not.a.jwt"},
	}

	app := newAuthApp(testAuthConfig)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
		})
	}
}

func TestBearerAuthMiddlewareWithoutSecret(t *testing.T) {
	app := newAuthApp(BearerAuthConfig{})
	req := httptest.NewRequest("GET", "/me", nil)
	req.Header.Set("Authorization", "Bearer x.y.z")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
}

func TestRequireUserWithoutMiddleware(t *testing.T) {
	app := fiber.New()
	app.Get("/me", RequireUser, func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	resp, err := app.Test(httptest.NewRequest("GET", "/me", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}
