//go:build integration
// +build integration

package store_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm/logger"

	"github.com/freelancehub/api/internal/config"
	"github.com/freelancehub/api/internal/db"
	"github.com/freelancehub/api/internal/models"
	"github.com/freelancehub/api/internal/store"
	"github.com/freelancehub/api/pkg/catalog"
)

func setupStore(t *testing.T, policy store.AwardPolicy) *store.Store {
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:alpine",
		postgres.WithDatabase("freelancehub"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate container: %v", err)
		}
	})

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	gdb, err := db.Connect(config.Config{
		DBDSN:             dsn,
		DBLogLevel:        logger.Silent,
		DBMaxIdleConns:    2,
		DBMaxOpenConns:    10,
		DBConnMaxLifetime: time.Minute,
	})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb, zap.NewNop()))

	return store.New(gdb, policy)
}

func seed(t *testing.T, s *store.Store) (client models.User, freelancers []models.User, project models.Project) {
	ctx := context.Background()
	client = models.User{Email: "client@example.com", Username: "client", Password: "x", Role: models.RoleClient}
	require.NoError(t, s.CreateUser(ctx, &client))

	for _, name := range []string{"f1", "f2", "f3"} {
		f := models.User{Email: name + "@example.com", Username: name, Password: "x", Role: models.RoleFreelancer}
		require.NoError(t, s.CreateUser(ctx, &f))
		freelancers = append(freelancers, f)
	}

	project = models.Project{
		Title:       "Logo",
		Description: "A logo for a bakery",
		Budget:      100,
		Category:    "Design",
		Deadline:    datatypes.Date(time.Now().AddDate(0, 0, 7)),
		OwnerID:     client.ID,
	}
	require.NoError(t, s.CreateProject(ctx, &project))
	return client, freelancers, project
}

func TestStoreAgainstPostgres(t *testing.T) {
	s := setupStore(t, store.AwardRejectOthers)
	ctx := context.Background()
	client, fs, project := seed(t, s)

	dup := models.User{Email: "CLIENT@example.com", Username: "again", Password: "x", Role: models.RoleClient}
	assert.ErrorIs(t, s.CreateUser(ctx, &dup), store.ErrEmailTaken)

	var bids []models.Bid
	for _, f := range fs {
		b := models.Bid{Amount: 80, Message: "hire me", FreelancerID: f.ID, ProjectID: project.ID}
		require.NoError(t, s.CreateBid(ctx, &b))
		bids = append(bids, b)
	}
	again := models.Bid{Amount: 70, Message: "again", FreelancerID: fs[0].ID, ProjectID: project.ID}
	assert.ErrorIs(t, s.CreateBid(ctx, &again), store.ErrDuplicateBid)

	// concurrent awards on one project leave exactly one winner
	var wg sync.WaitGroup
	for _, b := range bids[:2] {
		wg.Add(1)
		go func(id models.Bid) {
			defer wg.Done()
			_, err := s.SetBidStatus(ctx, id.ID, models.BidWon)
			assert.NoError(t, err)
		}(b)
	}
	wg.Wait()

	current, err := s.BidsByProject(ctx, project.ID)
	require.NoError(t, err)
	won := 0
	var winner models.Bid
	for _, b := range current {
		require.NotNil(t, b.Freelancer)
		if b.Status == models.BidWon {
			won++
			winner = b
		}
	}
	assert.Equal(t, 1, won)

	stored, err := s.ProjectByID(ctx, project.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.AwardedBidID)
	assert.Equal(t, winner.ID, *stored.AwardedBidID)
	assert.Equal(t, client.ID, stored.Owner.ID)

	late := models.User{Email: "late@example.com", Username: "late", Password: "x", Role: models.RoleFreelancer}
	require.NoError(t, s.CreateUser(ctx, &late))
	lateBid := models.Bid{Amount: 50, Message: "still open?", FreelancerID: late.ID, ProjectID: project.ID}
	assert.ErrorIs(t, s.CreateBid(ctx, &lateBid), store.ErrProjectAwarded)

	active, err := s.ListProjects(ctx, catalog.Filter{Search: "LOGO", State: catalog.StateActive}, time.Now())
	require.NoError(t, err)
	assert.Len(t, active, 1)
	expired, err := s.ListProjects(ctx, catalog.Filter{State: catalog.StateExpired}, time.Now())
	require.NoError(t, err)
	assert.Empty(t, expired)

	removed, err := s.DeleteProject(ctx, project.ID)
	require.NoError(t, err)
	assert.Len(t, removed, 3)

	_, err = s.ProjectByID(ctx, project.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	mine, err := s.BidsByFreelancer(ctx, fs[0].ID)
	require.NoError(t, err)
	assert.Empty(t, mine)
}

func TestKeepPendingPolicyAgainstPostgres(t *testing.T) {
	s := setupStore(t, store.AwardKeepPending)
	ctx := context.Background()
	_, fs, project := seed(t, s)

	b1 := models.Bid{Amount: 60, Message: "one", FreelancerID: fs[0].ID, ProjectID: project.ID}
	b2 := models.Bid{Amount: 70, Message: "two", FreelancerID: fs[1].ID, ProjectID: project.ID}
	require.NoError(t, s.CreateBid(ctx, &b1))
	require.NoError(t, s.CreateBid(ctx, &b2))

	change, err := s.SetBidStatus(ctx, b1.ID, models.BidWon)
	require.NoError(t, err)
	assert.Empty(t, change.Demoted)

	got, err := s.BidByID(ctx, b2.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BidPending, got.Status)

	b3 := models.Bid{Amount: 65, Message: "three", FreelancerID: fs[2].ID, ProjectID: project.ID}
	require.NoError(t, s.CreateBid(ctx, &b3))
	assert.Equal(t, models.BidPending, b3.Status)
}
