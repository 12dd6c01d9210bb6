package handlers

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/freelancehub/api/internal/logger"
	"github.com/freelancehub/api/internal/metrics"
	"github.com/freelancehub/api/internal/models"
	"github.com/freelancehub/api/internal/realtime"
	"github.com/freelancehub/api/internal/store"
)

type BidHandler struct {
	Projects ProjectStore
	Bids     BidStore
	Notifier Notifier
	// fraction of the budget a bid may reach, 0 for no ceiling
	MaxBidRatio      float64
	EnforceOwnership bool
	// an awarded project takes no new bids
	CloseOnAward bool
	Now          func() time.Time
}

func (h *BidHandler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

func (h *BidHandler) notifier() Notifier {
	if h.Notifier != nil {
		return h.Notifier
	}
	return noopNotifier{}
}

var errProjectAwarded = fiber.NewError(fiber.StatusConflict, "Project has already been awarded")

type BidReq struct {
	Amount  *float64 `json:"amount"`
	Message string   `json:"message"`
}

func (h *BidHandler) Create(c *fiber.Ctx) error {
	uid, err := getUserUUID(c)
	if err != nil {
		return err
	}
	projectID, err := paramUUID(c, "id", "project")
	if err != nil {
		return err
	}

	var req BidReq
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid body")
	}
	message := strings.TrimSpace(req.Message)

	errs := FieldErrors{}
	if req.Amount == nil {
		errs.Add("amount", "Amount is required")
	} else if *req.Amount <= 0 {
		errs.Add("amount", "Amount must be greater than zero")
	}
	if message == "" {
		errs.Add("message", "Message is required")
	}
	if len(errs) > 0 {
		return validationFail(c, errs)
	}

	project, err := h.Projects.ProjectByID(c.UserContext(), projectID)
	if err != nil {
		return storeErr(err, "Project not found")
	}
	if !project.AcceptingBids(h.now()) {
		return fiber.NewError(fiber.StatusConflict, "Project is closed for bidding")
	}
	if h.CloseOnAward && project.AwardedBidID != nil {
		return errProjectAwarded
	}
	if h.MaxBidRatio > 0 {
		ceiling := h.MaxBidRatio * project.Budget
		if *req.Amount > ceiling+1e-9 {
			errs.Add("amount", fmt.Sprintf("Amount must not exceed %s", strconv.FormatFloat(ceiling, 'f', 2, 64)))
			return validationFail(c, errs)
		}
	}

	bid := models.Bid{
		Amount:       *req.Amount,
		Message:      message,
		FreelancerID: uid,
		ProjectID:    project.ID,
		Status:       models.BidPending,
	}
	if err := h.Bids.CreateBid(c.UserContext(), &bid); err != nil {
		switch {
		case errors.Is(err, store.ErrDuplicateBid):
			return fiber.NewError(fiber.StatusConflict, "You have already bid on this project")
		case errors.Is(err, store.ErrNotFound):
			return fiber.NewError(fiber.StatusNotFound, "Project not found")
		case errors.Is(err, store.ErrProjectAwarded):
			return errProjectAwarded
		}
		return err
	}
	metrics.BidsPlaced.Inc()

	bidID := bid.ID
	h.notifier().Notify(c.UserContext(), project.OwnerID, realtime.Event{
		Type:      realtime.EventBidCreated,
		ProjectID: project.ID,
		BidID:     &bidID,
		Status:    string(bid.Status),
		At:        h.now(),
	})

	bid.Project = project
	if u, ok := c.Locals("user").(*models.User); ok {
		bid.Freelancer = u
	}
	return respond(c, fiber.StatusCreated, "Bid submitted", toBid(&bid))
}

func (h *BidHandler) Mine(c *fiber.Ctx) error {
	uid, err := getUserUUID(c)
	if err != nil {
		return err
	}
	bids, err := h.Bids.BidsByFreelancer(c.UserContext(), uid)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "My bids", toBids(bids))
}

func (h *BidHandler) ForProject(c *fiber.Ctx) error {
	projectID, err := paramUUID(c, "id", "project")
	if err != nil {
		return err
	}
	project, err := h.Projects.ProjectByID(c.UserContext(), projectID)
	if err != nil {
		return storeErr(err, "Project not found")
	}
	bids, err := h.Bids.BidsByProject(c.UserContext(), project.ID)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "Bids", fiber.Map{
		"project_title": project.Title,
		"bids":          toBids(bids),
	})
}

// Get shows a bid to its freelancer and to the owner of its project.
func (h *BidHandler) Get(c *fiber.Ctx) error {
	uid, err := getUserUUID(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id", "bid")
	if err != nil {
		return err
	}
	bid, err := h.Bids.BidByID(c.UserContext(), id)
	if err != nil {
		return storeErr(err, "Bid not found")
	}
	if bid.FreelancerID != uid && (bid.Project == nil || bid.Project.OwnerID != uid) {
		return fiber.NewError(fiber.StatusForbidden, "forbidden: not your bid")
	}
	return respond(c, fiber.StatusOK, "Bid", toBid(bid))
}

type BidStatusReq struct {
	Status string `json:"status"`
}

func (h *BidHandler) UpdateStatus(c *fiber.Ctx) error {
	uid, err := getUserUUID(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id", "bid")
	if err != nil {
		return err
	}

	var req BidStatusReq
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid body")
	}
	to, err := models.ParseBidStatus(req.Status)
	if err != nil || to == models.BidPending {
		errs := FieldErrors{}
		errs.Add("status", "Status must be won or lost")
		return validationFail(c, errs)
	}

	bid, err := h.Bids.BidByID(c.UserContext(), id)
	if err != nil {
		return storeErr(err, "Bid not found")
	}
	if h.EnforceOwnership && (bid.Project == nil || bid.Project.OwnerID != uid) {
		return fiber.NewError(fiber.StatusForbidden, "forbidden: not the project owner")
	}

	change, err := h.Bids.SetBidStatus(c.UserContext(), bid.ID, to)
	if err != nil {
		if errors.Is(err, store.ErrInvalidTransition) {
			return fiber.NewError(fiber.StatusBadRequest, "Bid cannot move to "+string(to))
		}
		return storeErr(err, "Bid not found")
	}

	demoted := make([]string, 0, len(change.Demoted))
	for _, d := range change.Demoted {
		demoted = append(demoted, d.ID.String())
	}

	if change.Changed {
		metrics.BidStatusChanges.WithLabelValues(string(to)).Inc()
		logger.FromCtx(c).Info("bid status changed",
			zap.Stringer("bid_id", bid.ID),
			zap.String("status", string(to)),
			zap.Int("demoted", len(change.Demoted)),
		)
		at := h.now()
		h.notifyStatus(c, change.Bid, at)
		for i := range change.Demoted {
			metrics.BidStatusChanges.WithLabelValues(string(models.BidLost)).Inc()
			h.notifyStatus(c, &change.Demoted[i], at)
		}
	}

	if change.Bid.Freelancer == nil {
		change.Bid.Freelancer = bid.Freelancer
	}
	return respond(c, fiber.StatusOK, "Bid status updated", fiber.Map{
		"bid":     toBid(change.Bid),
		"demoted": demoted,
		"changed": change.Changed,
	})
}

func (h *BidHandler) notifyStatus(c *fiber.Ctx, b *models.Bid, at time.Time) {
	bidID := b.ID
	h.notifier().Notify(c.UserContext(), b.FreelancerID, realtime.Event{
		Type:      realtime.EventBidStatusChanged,
		ProjectID: b.ProjectID,
		BidID:     &bidID,
		Status:    string(b.Status),
		At:        at,
	})
}
