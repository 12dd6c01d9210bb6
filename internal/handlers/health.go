package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/freelancehub/api/internal/logger"
)

// HealthHandler pings each named dependency.
type HealthHandler struct {
	Checks  map[string]func(ctx context.Context) error
	Timeout time.Duration
}

func (h *HealthHandler) Health(c *fiber.Ctx) error {
	timeout := h.Timeout
	if timeout == 0 {
		timeout = 2 * time.Second
	}
	ctx, cancel := context.WithTimeout(c.UserContext(), timeout)
	defer cancel()

	status := fiber.StatusOK
	report := fiber.Map{}
	for name, check := range h.Checks {
		if err := check(ctx); err != nil {
			logger.FromCtx(c).Warn("health check failed", zap.String("dependency", name), zap.Error(err))
			report[name] = "unavailable"
			status = fiber.StatusServiceUnavailable
			continue
		}
		report[name] = "ok"
	}

	return c.Status(status).JSON(fiber.Map{
		"success": status == fiber.StatusOK,
		"message": "health",
		"data":    report,
	})
}
