package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/freelancehub/api/internal/models"
)

// StatusChange is the outcome of SetBidStatus.
type StatusChange struct {
	Bid *models.Bid
	// other bids moved to lost by the award
	Demoted []models.Bid
	Changed bool
}

// CreateBid inserts b under a lock on its project row, the same lock SetBidStatus
// takes, so a bid cannot slip in beside an award. Under AwardRejectOthers an
// awarded project takes no new bids.
func (s *Store) CreateBid(ctx context.Context, b *models.Bid) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var project models.Project
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&project, "id = ?", b.ProjectID).Error
		if err != nil {
			return notFound(err)
		}
		if project.AwardedBidID != nil && s.Policy != AwardKeepPending {
			return ErrProjectAwarded
		}

		err = tx.Create(b).Error
		switch {
		case errors.Is(err, gorm.ErrDuplicatedKey):
			return ErrDuplicateBid
		case errors.Is(err, gorm.ErrForeignKeyViolated):
			return ErrNotFound
		}
		return err
	})
}

func (s *Store) BidByID(ctx context.Context, id uuid.UUID) (*models.Bid, error) {
	var b models.Bid
	err := s.DB.WithContext(ctx).
		Preload("Project").
		Preload("Freelancer").
		First(&b, "id = ?", id).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &b, nil
}

func (s *Store) BidsByFreelancer(ctx context.Context, freelancerID uuid.UUID) ([]models.Bid, error) {
	var out []models.Bid
	err := s.DB.WithContext(ctx).
		Preload("Project").
		Where("freelancer_id = ?", freelancerID).
		Order("created_at DESC").
		Find(&out).Error
	return out, err
}

func (s *Store) BidsByProject(ctx context.Context, projectID uuid.UUID) ([]models.Bid, error) {
	var out []models.Bid
	err := s.DB.WithContext(ctx).
		Preload("Freelancer").
		Where("project_id = ?", projectID).
		Order("created_at ASC").
		Find(&out).Error
	return out, err
}

// SetBidStatus moves a bid to status to. The project row is locked for the whole
// transaction, so concurrent awards on one project are serialized and the project
// never ends up with two won bids. Awarding a bid demotes any previous winner and,
// under AwardRejectOthers, every pending bid; the project's awarded bid follows.
func (s *Store) SetBidStatus(ctx context.Context, bidID uuid.UUID, to models.BidStatus) (*StatusChange, error) {
	if to != models.BidWon && to != models.BidLost {
		return nil, ErrInvalidTransition
	}

	out := &StatusChange{}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var project models.Project
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = (?)", tx.Model(&models.Bid{}).Select("project_id").Where("id = ?", bidID)).
			First(&project).Error
		if err != nil {
			return notFound(err)
		}

		var bid models.Bid
		if err := tx.First(&bid, "id = ?", bidID).Error; err != nil {
			return notFound(err)
		}
		if !bid.Status.CanTransition(to) {
			return ErrInvalidTransition
		}
		out.Bid = &bid
		defer func() { bid.Project = &project }()
		if bid.Status == to {
			return nil
		}

		if err := tx.Model(&models.Bid{}).Where("id = ?", bid.ID).Update("status", to).Error; err != nil {
			return err
		}
		bid.Status = to
		out.Changed = true

		switch to {
		case models.BidWon:
			demote := []models.BidStatus{models.BidWon}
			if s.Policy != AwardKeepPending {
				demote = append(demote, models.BidPending)
			}
			if err := tx.Where("project_id = ? AND id <> ? AND status IN ?", project.ID, bid.ID, demote).
				Find(&out.Demoted).Error; err != nil {
				return err
			}
			if len(out.Demoted) > 0 {
				ids := make([]uuid.UUID, 0, len(out.Demoted))
				for i := range out.Demoted {
					ids = append(ids, out.Demoted[i].ID)
					out.Demoted[i].Status = models.BidLost
				}
				if err := tx.Model(&models.Bid{}).Where("id IN ?", ids).Update("status", models.BidLost).Error; err != nil {
					return err
				}
			}
			if err := tx.Model(&models.Project{}).Where("id = ?", project.ID).Update("awarded_bid_id", bid.ID).Error; err != nil {
				return err
			}
			project.AwardedBidID = &bid.ID

		case models.BidLost:
			if project.AwardedBidID != nil && *project.AwardedBidID == bid.ID {
				if err := tx.Model(&models.Project{}).Where("id = ?", project.ID).Update("awarded_bid_id", gorm.Expr("NULL")).Error; err != nil {
					return err
				}
				project.AwardedBidID = nil
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
