package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"gorm.io/datatypes"
)

func TestParseRole(t *testing.T) {
	r, err := ParseRole(" Freelancer ")
	assert.NoError(t, err)
	assert.Equal(t, RoleFreelancer, r)

	r, err = ParseRole("client")
	assert.NoError(t, err)
	assert.Equal(t, RoleClient, r)

	_, err = ParseRole("admin")
	assert.Error(t, err)
	_, err = ParseRole("")
	assert.Error(t, err)

	assert.False(t, Role("Client").Valid())
	assert.True(t, RoleClient.Valid())
}

func TestBidStatusTransitions(t *testing.T) {
	assert.True(t, BidPending.CanTransition(BidWon))
	assert.True(t, BidPending.CanTransition(BidLost))
	assert.True(t, BidWon.CanTransition(BidLost))
	assert.True(t, BidLost.CanTransition(BidWon))
	assert.True(t, BidWon.CanTransition(BidWon))

	assert.False(t, BidWon.CanTransition(BidPending))
	assert.False(t, BidLost.CanTransition(BidPending))
	assert.False(t, BidPending.CanTransition(BidStatus("cancelled")))

	_, err := ParseBidStatus("WON")
	assert.NoError(t, err)
	_, err = ParseBidStatus("accepted")
	assert.Error(t, err)
}

func TestProjectAcceptingBids(t *testing.T) {
	deadline := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	p := Project{Deadline: datatypes.Date(deadline)}

	assert.True(t, p.AcceptingBids(deadline.Add(-48*time.Hour)))
	assert.True(t, p.AcceptingBids(deadline.Add(23*time.Hour+59*time.Minute)))
	assert.False(t, p.AcceptingBids(deadline.Add(24*time.Hour)))
}
