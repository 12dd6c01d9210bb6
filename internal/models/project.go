package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Project struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Title       string    `gorm:"type:varchar(200);not null" json:"title"`
	Description string    `gorm:"type:text;not null" json:"description"`
	Budget      float64   `gorm:"not null;check:budget >= 0" json:"budget"`
	Category    string    `gorm:"type:varchar(80);not null;index" json:"category"`

	// calendar date, bids are accepted through the whole deadline day (UTC)
	Deadline datatypes.Date `gorm:"not null;index" json:"deadline"`

	OwnerID uuid.UUID `gorm:"type:uuid;not null;index" json:"owner_id"`

	// the single bid in status "won", maintained together with that bid's status
	AwardedBidID *uuid.UUID `gorm:"type:uuid" json:"awarded_bid_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Owner *User `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`
}

func (p *Project) BeforeCreate(tx *gorm.DB) (err error) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return
}

// DeadlineTime returns the deadline as midnight UTC.
func (p *Project) DeadlineTime() time.Time {
	return DateOnly(time.Time(p.Deadline))
}

// AcceptingBids reports whether now falls on or before the deadline date.
func (p *Project) AcceptingBids(now time.Time) bool {
	return !DateOnly(now).After(p.DeadlineTime())
}

// DateOnly truncates t to midnight of its UTC calendar day.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
