package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/freelancehub/api/internal/services/session"
	"github.com/freelancehub/api/internal/utils"
)

const claimsKey = "claims"

type SessionReader interface {
	Current(c *fiber.Ctx) (*utils.Claims, error)
}

// JWTFromCookie rejects requests without a live session cookie and stores the
// verified claims in Locals.
func JWTFromCookie(sessions SessionReader) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, err := sessions.Current(c)
		if errors.Is(err, session.ErrNoSession) {
			return fiber.ErrUnauthorized
		}
		if err != nil {
			return err
		}

		c.Locals(claimsKey, claims)
		return c.Next()
	}
}
