// internal/models/bid.go
package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BidStatus string

const (
	BidPending BidStatus = "pending" // waiting for the client
	BidWon     BidStatus = "won"
	BidLost    BidStatus = "lost"
)

func ParseBidStatus(s string) (BidStatus, error) {
	switch st := BidStatus(strings.ToLower(strings.TrimSpace(s))); st {
	case BidPending, BidWon, BidLost:
		return st, nil
	default:
		return "", fmt.Errorf("unknown bid status %q", s)
	}
}

// CanTransition reports whether a bid in status from may be moved to status to.
// Re-applying the current status is allowed and is a no-op for callers.
func (from BidStatus) CanTransition(to BidStatus) bool {
	switch to {
	case BidWon, BidLost:
		return from == BidPending || from == BidWon || from == BidLost
	case BidPending:
		return from == BidPending
	default:
		return false
	}
}

type Bid struct {
	ID      uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Amount  float64   `gorm:"not null" json:"amount"`
	Message string    `gorm:"type:text;not null" json:"message"`

	FreelancerID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_bids_freelancer_project" json:"freelancer_id"`
	ProjectID    uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:idx_bids_freelancer_project" json:"project_id"`

	Status BidStatus `gorm:"type:varchar(10);not null;default:pending;index" json:"status"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Freelancer *User    `gorm:"foreignKey:FreelancerID" json:"freelancer,omitempty"`
	Project    *Project `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
}

func (b *Bid) BeforeCreate(tx *gorm.DB) (err error) {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	if b.Status == "" {
		b.Status = BidPending
	}
	return
}
