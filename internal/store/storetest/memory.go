// Package storetest provides an in-memory stand-in for store.Store with the same
// error contract, for handler and client tests that do not need Postgres.
package storetest

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/freelancehub/api/internal/models"
	"github.com/freelancehub/api/internal/store"
	"github.com/freelancehub/api/pkg/catalog"
)

type Memory struct {
	Policy store.AwardPolicy

	mu       sync.Mutex
	tick     time.Time
	users    map[uuid.UUID]models.User
	projects map[uuid.UUID]models.Project
	bids     map[uuid.UUID]models.Bid
}

func New(policy store.AwardPolicy) *Memory {
	return &Memory{
		Policy:   policy,
		tick:     time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		users:    map[uuid.UUID]models.User{},
		projects: map[uuid.UUID]models.Project{},
		bids:     map[uuid.UUID]models.Bid{},
	}
}

// now returns strictly increasing timestamps so "newest" ordering is stable.
func (m *Memory) now() time.Time {
	m.tick = m.tick.Add(time.Second)
	return m.tick
}

func (m *Memory) Ping(context.Context) error { return nil }

func (m *Memory) CreateUser(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return store.ErrEmailTaken
		}
	}
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	u.CreatedAt = m.now()
	u.UpdatedAt = u.CreatedAt
	m.users[u.ID] = *u
	return nil
}

func (m *Memory) UserByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range m.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *Memory) UserByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &u, nil
}

func (m *Memory) CreateProject(_ context.Context, p *models.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[p.OwnerID]; !ok {
		return store.ErrNotFound
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.CreatedAt = m.now()
	p.UpdatedAt = p.CreatedAt
	stored := *p
	stored.Owner = nil
	m.projects[p.ID] = stored
	return nil
}

func (m *Memory) withOwner(p models.Project) models.Project {
	if u, ok := m.users[p.OwnerID]; ok {
		p.Owner = &u
	}
	return p
}

func (m *Memory) ProjectByID(_ context.Context, id uuid.UUID) (*models.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.projects[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	p = m.withOwner(p)
	return &p, nil
}

func projectItem(p models.Project) catalog.Item {
	return catalog.Item{
		Title:     p.Title,
		Category:  p.Category,
		Budget:    p.Budget,
		Deadline:  p.DeadlineTime(),
		CreatedAt: p.CreatedAt,
	}
}

func (m *Memory) ListProjects(_ context.Context, f catalog.Filter, now time.Time) ([]models.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	all := make([]models.Project, 0, len(m.projects))
	for _, p := range m.projects {
		all = append(all, m.withOwner(p))
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	return catalog.Apply(all, projectItem, f, now), nil
}

func (m *Memory) ProjectsByOwner(_ context.Context, ownerID uuid.UUID) ([]models.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := []models.Project{}
	for _, p := range m.projects {
		if p.OwnerID == ownerID {
			out = append(out, m.withOwner(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) UpdateProject(ctx context.Context, id uuid.UUID, patch store.ProjectPatch) (*models.Project, error) {
	m.mu.Lock()
	p, ok := m.projects[id]
	if !ok {
		m.mu.Unlock()
		return nil, store.ErrNotFound
	}
	if patch.Title != nil {
		p.Title = *patch.Title
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	if patch.Budget != nil {
		p.Budget = *patch.Budget
	}
	if patch.Category != nil {
		p.Category = *patch.Category
	}
	if patch.Deadline != nil {
		p.Deadline = datatypes.Date(models.DateOnly(*patch.Deadline))
	}
	p.UpdatedAt = m.now()
	m.projects[id] = p
	m.mu.Unlock()

	return m.ProjectByID(ctx, id)
}

func (m *Memory) DeleteProject(_ context.Context, id uuid.UUID) ([]models.Bid, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.projects[id]; !ok {
		return nil, store.ErrNotFound
	}
	removed := []models.Bid{}
	for bid, b := range m.bids {
		if b.ProjectID == id {
			removed = append(removed, b)
			delete(m.bids, bid)
		}
	}
	delete(m.projects, id)
	return removed, nil
}

func (m *Memory) CreateBid(_ context.Context, b *models.Bid) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	project, ok := m.projects[b.ProjectID]
	if !ok {
		return store.ErrNotFound
	}
	if project.AwardedBidID != nil && m.Policy != store.AwardKeepPending {
		return store.ErrProjectAwarded
	}
	if _, ok := m.users[b.FreelancerID]; !ok {
		return store.ErrNotFound
	}
	for _, existing := range m.bids {
		if existing.ProjectID == b.ProjectID && existing.FreelancerID == b.FreelancerID {
			return store.ErrDuplicateBid
		}
	}
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	if b.Status == "" {
		b.Status = models.BidPending
	}
	b.CreatedAt = m.now()
	b.UpdatedAt = b.CreatedAt
	stored := *b
	stored.Freelancer, stored.Project = nil, nil
	m.bids[b.ID] = stored
	return nil
}

func (m *Memory) joined(b models.Bid) models.Bid {
	if u, ok := m.users[b.FreelancerID]; ok {
		b.Freelancer = &u
	}
	if p, ok := m.projects[b.ProjectID]; ok {
		b.Project = &p
	}
	return b
}

func (m *Memory) BidByID(_ context.Context, id uuid.UUID) (*models.Bid, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.bids[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	b = m.joined(b)
	return &b, nil
}

func (m *Memory) bidsWhere(match func(models.Bid) bool, newestFirst bool) []models.Bid {
	out := []models.Bid{}
	for _, b := range m.bids {
		if match(b) {
			out = append(out, m.joined(b))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if newestFirst {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (m *Memory) BidsByFreelancer(_ context.Context, freelancerID uuid.UUID) ([]models.Bid, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bidsWhere(func(b models.Bid) bool { return b.FreelancerID == freelancerID }, true), nil
}

func (m *Memory) BidsByProject(_ context.Context, projectID uuid.UUID) ([]models.Bid, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bidsWhere(func(b models.Bid) bool { return b.ProjectID == projectID }, false), nil
}

func (m *Memory) SetBidStatus(_ context.Context, bidID uuid.UUID, to models.BidStatus) (*store.StatusChange, error) {
	if to != models.BidWon && to != models.BidLost {
		return nil, store.ErrInvalidTransition
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	bid, ok := m.bids[bidID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if !bid.Status.CanTransition(to) {
		return nil, store.ErrInvalidTransition
	}
	out := &store.StatusChange{}
	if bid.Status == to {
		b := m.joined(bid)
		out.Bid = &b
		return out, nil
	}

	now := m.now()
	bid.Status, bid.UpdatedAt = to, now
	m.bids[bid.ID] = bid
	out.Changed = true

	project := m.projects[bid.ProjectID]
	switch to {
	case models.BidWon:
		for id, other := range m.bids {
			if other.ProjectID != project.ID || id == bid.ID {
				continue
			}
			demote := other.Status == models.BidWon ||
				(other.Status == models.BidPending && m.Policy != store.AwardKeepPending)
			if !demote {
				continue
			}
			other.Status, other.UpdatedAt = models.BidLost, now
			m.bids[id] = other
			out.Demoted = append(out.Demoted, other)
		}
		awarded := bid.ID
		project.AwardedBidID = &awarded
	case models.BidLost:
		if project.AwardedBidID != nil && *project.AwardedBidID == bid.ID {
			project.AwardedBidID = nil
		}
	}
	m.projects[project.ID] = project

	b := m.joined(bid)
	out.Bid = &b
	return out, nil
}
