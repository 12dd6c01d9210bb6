package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/freelancehub/api/internal/models"
	"github.com/freelancehub/api/internal/utils"
)

// AttachJWTLocals exposes the caller as Locals "userId" (uuid.UUID) and "role" (models.Role).
func AttachJWTLocals() fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, ok := c.Locals(claimsKey).(*utils.Claims)
		if !ok || claims == nil {
			return fiber.ErrUnauthorized
		}

		uid, err := claims.UserUUID()
		if err != nil || uid == uuid.Nil {
			return fiber.ErrUnauthorized
		}
		role, err := models.ParseRole(claims.Role)
		if err != nil {
			return fiber.ErrUnauthorized
		}

		c.Locals("userId", uid)
		c.Locals("role", role)

		return c.Next()
	}
}
