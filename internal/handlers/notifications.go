package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"

	"github.com/freelancehub/api/internal/realtime"
)

type NotificationHandler struct {
	Hub *realtime.Hub
}

// Upgrade must run after the session middleware; the user id travels into the
// websocket through Locals.
func (h *NotificationHandler) Upgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	if _, err := getUserUUID(c); err != nil {
		return err
	}
	return c.Next()
}

func (h *NotificationHandler) Stream() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		uid, ok := conn.Locals("userId").(uuid.UUID)
		if !ok {
			_ = conn.Close()
			return
		}
		h.Hub.Serve(conn, uid)
	})
}
