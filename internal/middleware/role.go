package middleware

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/freelancehub/api/internal/models"
	"github.com/freelancehub/api/internal/store"
)

type UserLookup interface {
	UserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// RequireRoles loads the caller from the store, so a deleted account or a changed
// role takes effect before the token expires. The user is stored in Locals "user".
func RequireRoles(users UserLookup, allowed ...models.Role) fiber.Handler {
	var client, freelancer bool
	for _, r := range allowed {
		switch r {
		case models.RoleClient:
			client = true
		case models.RoleFreelancer:
			freelancer = true
		}
	}

	return func(c *fiber.Ctx) error {
		uid, ok := c.Locals("userId").(uuid.UUID)
		if !ok {
			return fiber.ErrUnauthorized
		}

		u, err := users.UserByID(c.UserContext(), uid)
		if errors.Is(err, store.ErrNotFound) {
			return fiber.ErrUnauthorized
		}
		if err != nil {
			return err
		}

		var permitted bool
		switch u.Role {
		case models.RoleClient:
			permitted = client
		case models.RoleFreelancer:
			permitted = freelancer
		}
		if !permitted {
			return fiber.NewError(fiber.StatusForbidden, "forbidden: insufficient role")
		}

		c.Locals("user", u)
		c.Locals("role", u.Role)
		return c.Next()
	}
}
