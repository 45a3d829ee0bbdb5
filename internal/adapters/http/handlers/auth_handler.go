package handlers

import (
	"errors"
	"strings"
	"time"

	"perpus-loan/internal/adapters/http/middleware"
	"perpus-loan/internal/config"
	"perpus-loan/internal/core/domain"
	"perpus-loan/internal/core/services"
	"perpus-loan/internal/pkg/response"
	"perpus-loan/internal/pkg/validator"

	"github.com/gofiber/fiber/v2"
)

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	auth   services.Authenticator
	cookie config.CookieConfig
	ttl    time.Duration
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(auth services.Authenticator, cfg *config.Config) *AuthHandler {
	return &AuthHandler{
		auth:   auth,
		cookie: cfg.Cookie,
		ttl:    time.Duration(cfg.JWT.AccessTokenMins) * time.Minute,
	}
}

// Login handles user login
// @Summary Login
// @Description Exchange NIPD and password for an access token. The token is also set as an HttpOnly cookie.
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body services.LoginInput true "Credentials"
// @Success 200 {object} response.Response{data=services.AuthResponse}
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 429 {object} response.Response
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var input services.LoginInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	input.NIPD = strings.TrimSpace(input.NIPD)
	if err := validator.Struct(&input); err != nil {
		return response.BadRequest(c, err.Error())
	}

	result, err := h.auth.Login(c.UserContext(), &input)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			return response.Unauthorized(c, "NIPD atau password salah")
		}
		return response.InternalServerError(c, "Login failed")
	}

	c.Cookie(&fiber.Cookie{
		Name:     "access_token",
		Value:    result.AccessToken,
		Path:     "/",
		Domain:   h.cookie.Domain,
		Expires:  time.Now().Add(h.ttl),
		Secure:   h.cookie.Secure,
		HTTPOnly: true,
		SameSite: h.cookie.SameSite,
	})

	return response.Success(c, "Login berhasil", result)
}

// Logout clears the auth cookie
// @Summary Logout
// @Tags Auth
// @Produce json
// @Success 200 {object} response.Response
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	c.Cookie(&fiber.Cookie{
		Name:     "access_token",
		Value:    "",
		Path:     "/",
		Domain:   h.cookie.Domain,
		Expires:  time.Now().Add(-time.Hour),
		Secure:   h.cookie.Secure,
		HTTPOnly: true,
		SameSite: h.cookie.SameSite,
	})
	return response.Success(c, "Logout berhasil", nil)
}

// Me returns the current user
// @Summary Current user
// @Tags Auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response{data=models.UserResponse}
// @Failure 401 {object} response.Response
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	who, ok := middleware.CurrentCaller(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	user, err := h.auth.Me(c.UserContext(), who.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return response.NotFound(c, "User not found")
		}
		return response.InternalServerError(c, "Failed to load user")
	}

	return response.Success(c, "", user)
}
