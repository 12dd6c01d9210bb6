package handlers

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/freelancehub/api/internal/logger"
	"github.com/freelancehub/api/internal/metrics"
	"github.com/freelancehub/api/internal/models"
	"github.com/freelancehub/api/internal/realtime"
	"github.com/freelancehub/api/internal/store"
	"github.com/freelancehub/api/pkg/catalog"
)

type ProjectHandler struct {
	Projects         ProjectStore
	Notifier         Notifier
	EnforceOwnership bool
	// report awarded projects as no longer accepting bids
	CloseOnAward bool
	Now          func() time.Time
}

func (h *ProjectHandler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

func (h *ProjectHandler) notifier() Notifier {
	if h.Notifier != nil {
		return h.Notifier
	}
	return noopNotifier{}
}

type ProjectReq struct {
	Title       *string  `json:"title"`
	Description *string  `json:"description"`
	Budget      *float64 `json:"budget"`
	Category    *string  `json:"category"`
	Deadline    *string  `json:"deadline"`
}

func parseDeadline(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if d, err := time.Parse(catalog.DateLayout, s); err == nil {
		return d, true
	}
	if d, err := time.Parse(time.RFC3339, s); err == nil {
		return models.DateOnly(d), true
	}
	return time.Time{}, false
}

// patch validates the fields present in req. With requireAll every field must be present.
func (req ProjectReq) patch(requireAll bool) (store.ProjectPatch, FieldErrors) {
	var p store.ProjectPatch
	errs := FieldErrors{}

	text := func(field string, v *string, dst **string) {
		if v == nil {
			if requireAll {
				errs.Add(field, "This field is required")
			}
			return
		}
		t := strings.TrimSpace(*v)
		if t == "" {
			errs.Add(field, "This field must not be empty")
			return
		}
		*dst = &t
	}
	text("title", req.Title, &p.Title)
	text("description", req.Description, &p.Description)
	text("category", req.Category, &p.Category)

	switch {
	case req.Budget == nil:
		if requireAll {
			errs.Add("budget", "This field is required")
		}
	case *req.Budget <= 0:
		errs.Add("budget", "Budget must be greater than zero")
	default:
		p.Budget = req.Budget
	}

	switch {
	case req.Deadline == nil:
		if requireAll {
			errs.Add("deadline", "This field is required")
		}
	default:
		d, ok := parseDeadline(*req.Deadline)
		if !ok {
			errs.Add("deadline", "Deadline must be a date (YYYY-MM-DD)")
		} else {
			p.Deadline = &d
		}
	}

	if p.Title != nil && len(*p.Title) > 200 {
		errs.Add("title", "Title is too long")
	}
	if p.Category != nil && len(*p.Category) > 80 {
		errs.Add("category", "Category is too long")
	}
	return p, errs
}

func (h *ProjectHandler) Create(c *fiber.Ctx) error {
	uid, err := getUserUUID(c)
	if err != nil {
		return err
	}

	var req ProjectReq
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid body")
	}
	patch, errs := req.patch(true)
	if len(errs) > 0 {
		return validationFail(c, errs)
	}

	p := models.Project{
		Title:       *patch.Title,
		Description: *patch.Description,
		Budget:      *patch.Budget,
		Category:    *patch.Category,
		Deadline:    datatypes.Date(*patch.Deadline),
		OwnerID:     uid,
	}
	if err := h.Projects.CreateProject(c.UserContext(), &p); err != nil {
		return err
	}
	metrics.ProjectsCreated.Inc()

	if u, ok := c.Locals("user").(*models.User); ok {
		p.Owner = u
	}
	return respond(c, fiber.StatusCreated, "Project created", toProject(&p, h.now(), h.CloseOnAward))
}

func (h *ProjectHandler) List(c *fiber.Ctx) error {
	f, err := catalog.ParseQuery(func(k string) string { return c.Query(k) })
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	now := h.now()
	ps, err := h.Projects.ListProjects(c.UserContext(), f, now)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "Projects", toProjects(ps, now, h.CloseOnAward))
}

func (h *ProjectHandler) Get(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id", "project")
	if err != nil {
		return err
	}
	p, err := h.Projects.ProjectByID(c.UserContext(), id)
	if err != nil {
		return storeErr(err, "Project not found")
	}
	return respond(c, fiber.StatusOK, "Project", toProject(p, h.now(), h.CloseOnAward))
}

// Mine lists the caller's own projects. Anonymous callers never reach it.
func (h *ProjectHandler) Mine(c *fiber.Ctx) error {
	uid, err := getUserUUID(c)
	if err != nil {
		return err
	}
	ps, err := h.Projects.ProjectsByOwner(c.UserContext(), uid)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "My projects", toProjects(ps, h.now(), h.CloseOnAward))
}

// owned loads the :id project and checks that the caller may change it.
func (h *ProjectHandler) owned(c *fiber.Ctx) (*models.Project, error) {
	uid, err := getUserUUID(c)
	if err != nil {
		return nil, err
	}
	id, err := paramUUID(c, "id", "project")
	if err != nil {
		return nil, err
	}
	p, err := h.Projects.ProjectByID(c.UserContext(), id)
	if err != nil {
		return nil, storeErr(err, "Project not found")
	}
	if h.EnforceOwnership && p.OwnerID != uid {
		return nil, fiber.NewError(fiber.StatusForbidden, "forbidden: not the project owner")
	}
	return p, nil
}

func (h *ProjectHandler) Update(c *fiber.Ctx) error {
	p, err := h.owned(c)
	if err != nil {
		return err
	}

	var req ProjectReq
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid body")
	}
	patch, errs := req.patch(false)
	if len(errs) > 0 {
		return validationFail(c, errs)
	}

	updated, err := h.Projects.UpdateProject(c.UserContext(), p.ID, patch)
	if err != nil {
		return storeErr(err, "Project not found")
	}
	return respond(c, fiber.StatusOK, "Project updated", toProject(updated, h.now(), h.CloseOnAward))
}

func (h *ProjectHandler) Delete(c *fiber.Ctx) error {
	p, err := h.owned(c)
	if err != nil {
		return err
	}

	removed, err := h.Projects.DeleteProject(c.UserContext(), p.ID)
	if err != nil {
		return storeErr(err, "Project not found")
	}
	metrics.ProjectsDeleted.Inc()

	logger.FromCtx(c).Info("project deleted",
		zap.Stringer("project_id", p.ID),
		zap.Int("deleted_bids", len(removed)),
	)

	notified := map[uuid.UUID]bool{}
	at := h.now()
	for _, b := range removed {
		if notified[b.FreelancerID] {
			continue
		}
		notified[b.FreelancerID] = true
		h.notifier().Notify(c.UserContext(), b.FreelancerID, realtime.Event{
			Type:      realtime.EventProjectDeleted,
			ProjectID: p.ID,
			At:        at,
		})
	}

	return respond(c, fiber.StatusOK, "Project deleted", fiber.Map{"deleted_bids": len(removed)})
}
