package middleware_test

import (
	"net/http/httptest"
	"testing"

	"perpus-loan/internal/adapters/http/middleware"
	"perpus-loan/internal/core/domain"
	"perpus-loan/internal/pkg/jwt"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "middleware-test-secret"

func callerApp(t *testing.T) (*fiber.App, *domain.Caller, *string) {
	t.Helper()
	var got domain.Caller
	var key string

	app := fiber.New()
	app.Get("/me", middleware.AuthMiddleware(secret), func(c *fiber.Ctx) error {
		got, _ = middleware.CurrentCaller(c)
		key = middleware.UserKey(c)
		return c.SendStatus(fiber.StatusNoContent)
	})
	app.Get("/admin", middleware.AuthMiddleware(secret), middleware.AdminOnly(), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})
	return app, &got, &key
}

func TestAuthMiddleware_BearerAndCookie(t *testing.T) {
	token, err := jwt.GenerateAccessToken(42, "2024042", "Budi", string(domain.RoleUser), secret, 5)
	require.NoError(t, err)

	app, got, key := callerApp(t)

	req := httptest.NewRequest("GET", "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	assert.Equal(t, domain.Caller{UserID: 42, Role: domain.RoleUser}, *got)
	assert.Equal(t, "user:42", *key)

	req = httptest.NewRequest("GET", "/me", nil)
	req.Header.Set("Cookie", "access_token="+token)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
}

func TestAuthMiddleware_Rejects(t *testing.T) {
	wrong, err := jwt.GenerateAccessToken(42, "2024042", "Budi", string(domain.RoleUser), "other-secret", 5)
	require.NoError(t, err)

	app, _, _ := callerApp(t)

	for name, header := range map[string]string{
		"missing":      "",
		"malformed":    "Bearer not-a-token",
		"wrong secret": "Bearer " + wrong,
		"no scheme":    wrong,
	} {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/me", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
		})
	}
}

func TestAdminOnly(t *testing.T) {
	user, err := jwt.GenerateAccessToken(7, "2024001", "Siti", string(domain.RoleUser), secret, 5)
	require.NoError(t, err)
	admin, err := jwt.GenerateAccessToken(1, "ADMIN001", "Pustakawan", string(domain.RoleAdmin), secret, 5)
	require.NoError(t, err)

	app, _, _ := callerApp(t)

	req := httptest.NewRequest("GET", "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+user)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	req = httptest.NewRequest("GET", "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+admin)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
}
