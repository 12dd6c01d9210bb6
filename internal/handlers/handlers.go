package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/freelancehub/api/internal/logger"
	"github.com/freelancehub/api/internal/models"
	"github.com/freelancehub/api/internal/realtime"
	"github.com/freelancehub/api/internal/store"
	"github.com/freelancehub/api/internal/utils"
	"github.com/freelancehub/api/pkg/catalog"
)

type UserStore interface {
	CreateUser(ctx context.Context, u *models.User) error
	UserByEmail(ctx context.Context, email string) (*models.User, error)
	UserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type ProjectStore interface {
	CreateProject(ctx context.Context, p *models.Project) error
	ProjectByID(ctx context.Context, id uuid.UUID) (*models.Project, error)
	ListProjects(ctx context.Context, f catalog.Filter, now time.Time) ([]models.Project, error)
	ProjectsByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Project, error)
	UpdateProject(ctx context.Context, id uuid.UUID, patch store.ProjectPatch) (*models.Project, error)
	DeleteProject(ctx context.Context, id uuid.UUID) ([]models.Bid, error)
}

type BidStore interface {
	CreateBid(ctx context.Context, b *models.Bid) error
	BidByID(ctx context.Context, id uuid.UUID) (*models.Bid, error)
	BidsByFreelancer(ctx context.Context, freelancerID uuid.UUID) ([]models.Bid, error)
	BidsByProject(ctx context.Context, projectID uuid.UUID) ([]models.Bid, error)
	SetBidStatus(ctx context.Context, bidID uuid.UUID, to models.BidStatus) (*store.StatusChange, error)
}

type Sessions interface {
	Start(c *fiber.Ctx, u *models.User) error
	Current(c *fiber.Ctx) (*utils.Claims, error)
	End(c *fiber.Ctx) error
}

type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, ev realtime.Event)
}

type noopNotifier struct{}

func (noopNotifier) Notify(context.Context, uuid.UUID, realtime.Event) {}

type FieldErrors map[string][]string

func (e FieldErrors) Add(field, msg string) {
	e[field] = append(e[field], msg)
}

func validationFail(c *fiber.Ctx, errs FieldErrors) error {
	return fail(c, fiber.StatusBadRequest, "Validation error", errs)
}

func fail(c *fiber.Ctx, status int, message string, errs FieldErrors) error {
	body := fiber.Map{
		"success": false,
		"message": message,
	}
	if len(errs) > 0 {
		body["errors"] = errs
	}
	return c.Status(status).JSON(body)
}

func respond(c *fiber.Ctx, status int, message string, data interface{}) error {
	return c.Status(status).JSON(fiber.Map{
		"success": true,
		"message": message,
		"data":    data,
	})
}

// ErrorHandler renders every error that escapes a handler as the JSON envelope.
// Only *fiber.Error messages reach the client; anything else is logged and
// reported as a generic 500.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		message = fe.Message
	} else {
		logger.FromCtx(c).Error("request failed",
			zap.Error(err),
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
		)
	}

	return c.Status(code).JSON(fiber.Map{
		"success": false,
		"message": message,
	})
}

// storeErr turns store.ErrNotFound into a 404 with msg and passes anything else through.
func storeErr(err error, msg string) error {
	if errors.Is(err, store.ErrNotFound) {
		return fiber.NewError(fiber.StatusNotFound, msg)
	}
	return err
}

func getUserUUID(c *fiber.Ctx) (uuid.UUID, error) {
	switch v := c.Locals("userId").(type) {
	case uuid.UUID:
		return v, nil
	case string:
		id, err := uuid.Parse(v)
		if err != nil {
			return uuid.Nil, fiber.ErrUnauthorized
		}
		return id, nil
	default:
		return uuid.Nil, fiber.ErrUnauthorized
	}
}

func paramUUID(c *fiber.Ctx, name, what string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusBadRequest, "invalid "+what+" id")
	}
	return id, nil
}
