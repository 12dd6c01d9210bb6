package store

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/freelancehub/api/internal/models"
	"github.com/freelancehub/api/pkg/catalog"
)

// ProjectPatch carries the fields of an edit; nil fields are left untouched.
type ProjectPatch struct {
	Title       *string
	Description *string
	Budget      *float64
	Category    *string
	Deadline    *time.Time
}

func (p ProjectPatch) columns() map[string]interface{} {
	m := map[string]interface{}{}
	if p.Title != nil {
		m["title"] = *p.Title
	}
	if p.Description != nil {
		m["description"] = *p.Description
	}
	if p.Budget != nil {
		m["budget"] = *p.Budget
	}
	if p.Category != nil {
		m["category"] = *p.Category
	}
	if p.Deadline != nil {
		m["deadline"] = datatypes.Date(models.DateOnly(*p.Deadline))
	}
	return m
}

func (s *Store) CreateProject(ctx context.Context, p *models.Project) error {
	return s.DB.WithContext(ctx).Create(p).Error
}

func (s *Store) ProjectByID(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	var p models.Project
	if err := s.DB.WithContext(ctx).Preload("Owner").First(&p, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

// ListProjects returns every project matching f, owners preloaded.
func (s *Store) ListProjects(ctx context.Context, f catalog.Filter, now time.Time) ([]models.Project, error) {
	q := s.DB.WithContext(ctx).Model(&models.Project{}).Preload("Owner")

	if f.Search != "" {
		q = q.Where("title ILIKE ?", "%"+escapeLike(f.Search)+"%")
	}
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if f.MinBudget != nil {
		q = q.Where("budget >= ?", *f.MinBudget)
	}
	if f.MaxBudget != nil {
		q = q.Where("budget <= ?", *f.MaxBudget)
	}
	if f.DeadlineBefore != nil {
		q = q.Where("deadline <= ?", datatypes.Date(catalog.Today(*f.DeadlineBefore)))
	}
	today := datatypes.Date(catalog.Today(now))
	switch f.State {
	case catalog.StateActive:
		q = q.Where("deadline >= ?", today)
	case catalog.StateExpired:
		q = q.Where("deadline < ?", today)
	}

	var out []models.Project
	err := q.Order(orderFor(f.Sort)).Find(&out).Error
	return out, err
}

func orderFor(s catalog.Sort) string {
	switch s {
	case catalog.SortBudgetAsc:
		return "budget ASC, created_at DESC"
	case catalog.SortBudgetDesc:
		return "budget DESC, created_at DESC"
	case catalog.SortDeadlineAsc:
		return "deadline ASC, created_at DESC"
	case catalog.SortDeadlineDesc:
		return "deadline DESC, created_at DESC"
	default:
		return "created_at DESC"
	}
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func (s *Store) ProjectsByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Project, error) {
	var out []models.Project
	err := s.DB.WithContext(ctx).
		Preload("Owner").
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Find(&out).Error
	return out, err
}

// UpdateProject applies patch and returns the stored project.
func (s *Store) UpdateProject(ctx context.Context, id uuid.UUID, patch ProjectPatch) (*models.Project, error) {
	if cols := patch.columns(); len(cols) > 0 {
		res := s.DB.WithContext(ctx).Model(&models.Project{}).Where("id = ?", id).Updates(cols)
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			return nil, ErrNotFound
		}
	}
	return s.ProjectByID(ctx, id)
}

// DeleteProject removes the project and all of its bids in one transaction and
// returns the removed bids.
func (s *Store) DeleteProject(ctx context.Context, id uuid.UUID) ([]models.Bid, error) {
	var removed []models.Bid
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("project_id = ?", id).Find(&removed).Error; err != nil {
			return err
		}
		if err := tx.Where("project_id = ?", id).Delete(&models.Bid{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&models.Project{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return removed, nil
}
