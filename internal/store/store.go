// Package store is the Postgres persistence layer for users, projects and bids.
package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

var (
	ErrNotFound          = errors.New("record not found")
	ErrEmailTaken        = errors.New("email already registered")
	ErrDuplicateBid      = errors.New("freelancer already bid on this project")
	ErrInvalidTransition = errors.New("invalid bid status transition")
	ErrProjectAwarded    = errors.New("project already awarded")
)

// AwardPolicy decides what happens to the other pending bids of a project when one bid wins.
type AwardPolicy string

const (
	AwardRejectOthers AwardPolicy = "reject_others"
	AwardKeepPending  AwardPolicy = "keep_pending"
)

func ParseAwardPolicy(s string) (AwardPolicy, error) {
	switch p := AwardPolicy(s); p {
	case AwardRejectOthers, AwardKeepPending:
		return p, nil
	default:
		return "", fmt.Errorf("unknown award policy %q", s)
	}
}

type Store struct {
	DB     *gorm.DB
	Policy AwardPolicy
}

func New(db *gorm.DB, policy AwardPolicy) *Store {
	return &Store{DB: db, Policy: policy}
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
