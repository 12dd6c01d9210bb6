package handlers

import (
	"time"

	"github.com/google/uuid"

	"github.com/freelancehub/api/internal/models"
	"github.com/freelancehub/api/pkg/catalog"
)

type UserResponse struct {
	ID        uuid.UUID   `json:"id"`
	Email     string      `json:"email"`
	Username  string      `json:"username"`
	Role      models.Role `json:"role"`
	CreatedAt time.Time   `json:"created_at"`
}

func toUser(u *models.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Email:     u.Email,
		Username:  u.Username,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}

type UserMini struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
}

func toUserMini(u *models.User) *UserMini {
	if u == nil {
		return nil
	}
	return &UserMini{ID: u.ID, Username: u.Username}
}

type ProjectResponse struct {
	ID            uuid.UUID   `json:"id"`
	Title         string      `json:"title"`
	Description   string      `json:"description"`
	Budget        float64     `json:"budget"`
	Category      string      `json:"category"`
	Deadline      string      `json:"deadline"`
	OwnerID       uuid.UUID   `json:"owner_id"`
	Owner         *UserMini   `json:"owner,omitempty"`
	AwardedBidID  *uuid.UUID  `json:"awarded_bid_id"`
	Bids          []uuid.UUID `json:"bids"`
	AcceptingBids bool        `json:"accepting_bids"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// toProject renders p. With closeOnAward an awarded project reports accepting_bids false.
func toProject(p *models.Project, now time.Time, closeOnAward bool) ProjectResponse {
	won := []uuid.UUID{}
	if p.AwardedBidID != nil {
		won = append(won, *p.AwardedBidID)
	}
	return ProjectResponse{
		ID:            p.ID,
		Title:         p.Title,
		Description:   p.Description,
		Budget:        p.Budget,
		Category:      p.Category,
		Deadline:      p.DeadlineTime().Format(catalog.DateLayout),
		OwnerID:       p.OwnerID,
		Owner:         toUserMini(p.Owner),
		AwardedBidID:  p.AwardedBidID,
		Bids:          won,
		AcceptingBids: p.AcceptingBids(now) && !(closeOnAward && p.AwardedBidID != nil),
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

func toProjects(ps []models.Project, now time.Time, closeOnAward bool) []ProjectResponse {
	out := make([]ProjectResponse, 0, len(ps))
	for i := range ps {
		out = append(out, toProject(&ps[i], now, closeOnAward))
	}
	return out
}

type ProjectSummary struct {
	ID       uuid.UUID `json:"id"`
	Title    string    `json:"title"`
	Budget   float64   `json:"budget"`
	Category string    `json:"category"`
	Deadline string    `json:"deadline"`
	OwnerID  uuid.UUID `json:"owner_id"`
}

type BidResponse struct {
	ID           uuid.UUID        `json:"id"`
	Amount       float64          `json:"amount"`
	Message      string           `json:"message"`
	Status       models.BidStatus `json:"status"`
	ProjectID    uuid.UUID        `json:"project_id"`
	FreelancerID uuid.UUID        `json:"freelancer_id"`
	Freelancer   *UserMini        `json:"freelancer,omitempty"`
	Project      *ProjectSummary  `json:"project,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

func toBid(b *models.Bid) BidResponse {
	out := BidResponse{
		ID:           b.ID,
		Amount:       b.Amount,
		Message:      b.Message,
		Status:       b.Status,
		ProjectID:    b.ProjectID,
		FreelancerID: b.FreelancerID,
		CreatedAt:    b.CreatedAt,
		UpdatedAt:    b.UpdatedAt,
	}
	out.Freelancer = toUserMini(b.Freelancer)
	if p := b.Project; p != nil {
		out.Project = &ProjectSummary{
			ID:       p.ID,
			Title:    p.Title,
			Budget:   p.Budget,
			Category: p.Category,
			Deadline: p.DeadlineTime().Format(catalog.DateLayout),
			OwnerID:  p.OwnerID,
		}
	}
	return out
}

func toBids(bs []models.Bid) []BidResponse {
	out := make([]BidResponse, 0, len(bs))
	for i := range bs {
		out = append(out, toBid(&bs[i]))
	}
	return out
}
