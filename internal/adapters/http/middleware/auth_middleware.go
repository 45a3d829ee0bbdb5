package middleware

import (
	"errors"
	"strconv"
	"strings"

	"perpus-loan/internal/core/domain"
	"perpus-loan/internal/pkg/jwt"
	"perpus-loan/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// Locals keys set by AuthMiddleware
const (
	LocalUserID = "userID"
	LocalNIPD   = "nipd"
	LocalName   = "nama"
	LocalRole   = "role"
)

// AuthMiddleware creates authentication middleware
func AuthMiddleware(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		// 1. Try to get token from cookie first
		accessToken := c.Cookies("access_token")

		// 2. If not in cookie, try Authorization header
		if accessToken == "" {
			authHeader := c.Get(fiber.HeaderAuthorization)
			if strings.HasPrefix(authHeader, "Bearer ") {
				accessToken = strings.TrimPrefix(authHeader, "Bearer ")
			}
		}

		if accessToken == "" {
			return response.Unauthorized(c, "Access token required")
		}

		claims, err := jwt.ValidateAccessToken(accessToken, secret)
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				return response.Unauthorized(c, "Access token expired")
			}
			return response.Unauthorized(c, "Invalid access token")
		}

		c.Locals(LocalUserID, claims.UserID)
		c.Locals(LocalNIPD, claims.NIPD)
		c.Locals(LocalName, claims.Name)
		c.Locals(LocalRole, claims.Role)

		return c.Next()
	}
}

// RoleMiddleware creates role-based authorization middleware
func RoleMiddleware(allowedRoles ...domain.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		role, ok := c.Locals(LocalRole).(string)
		if !ok {
			return response.Unauthorized(c, "Unauthorized")
		}

		for _, allowedRole := range allowedRoles {
			if domain.Role(role) == allowedRole {
				return c.Next()
			}
		}

		return response.Forbidden(c, "You don't have permission to access this resource")
	}
}

// AdminOnly middleware allows only the librarian role
func AdminOnly() fiber.Handler {
	return RoleMiddleware(domain.RoleAdmin)
}

// CurrentCaller returns the authenticated caller, ok is false on public routes
func CurrentCaller(c *fiber.Ctx) (domain.Caller, bool) {
	userID, ok := c.Locals(LocalUserID).(uint)
	if !ok || userID == 0 {
		return domain.Caller{}, false
	}
	role, _ := c.Locals(LocalRole).(string)
	return domain.Caller{UserID: userID, Role: domain.Role(role)}, true
}

// UserKey keys per-user rate limits on the authenticated user
func UserKey(c *fiber.Ctx) string {
	caller, ok := CurrentCaller(c)
	if !ok {
		return ""
	}
	return "user:" + strconv.FormatUint(uint64(caller.UserID), 10)
}
