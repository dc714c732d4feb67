package auth

import (
	"strings"

	"ppe-backend/internal/config"
	"ppe-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

const (
	CtxUserIDKey   = "user_id"
	CtxUserRoleKey = "user_role"
)

// JWTMiddleware accepts a bearer token or the session cookie.
func JWTMiddleware(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenStr := c.Cookies(cfg.SessionCookieName)

		if authHeader := c.Get("Authorization"); authHeader != "" {
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				return fiber.NewError(fiber.StatusUnauthorized, "Authorization header must be 'Bearer <token>'")
			}
			tokenStr = parts[1]
		}

		if tokenStr == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing credentials")
		}

		claims, err := ParseToken(cfg.JWTSecret, tokenStr)
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid or expired token")
		}

		c.Locals(CtxUserIDKey, claims.UserID)
		c.Locals(CtxUserRoleKey, claims.Role)

		return c.Next()
	}
}

// RequirePermission rejects callers whose role lacks p.
func RequirePermission(p models.Permission) fiber.Handler {
	return func(c *fiber.Ctx) error {
		role, err := CurrentRole(c)
		if err != nil {
			return err
		}
		if !role.Can(p) {
			return fiber.NewError(fiber.StatusForbidden, "you are not allowed to perform this action")
		}
		return c.Next()
	}
}

func CurrentUserID(c *fiber.Ctx) (uint, error) {
	id, ok := c.Locals(CtxUserIDKey).(uint)
	if !ok || id == 0 {
		return 0, fiber.NewError(fiber.StatusForbidden, "user information unavailable")
	}
	return id, nil
}

func CurrentRole(c *fiber.Ctx) (models.Role, error) {
	role, ok := c.Locals(CtxUserRoleKey).(models.Role)
	if !ok {
		return "", fiber.NewError(fiber.StatusForbidden, "role information unavailable")
	}
	return role, nil
}
