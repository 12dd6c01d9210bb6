package client_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/freelancehub/api/internal/config"
	"github.com/freelancehub/api/internal/router"
	"github.com/freelancehub/api/internal/services/session"
	"github.com/freelancehub/api/internal/store"
	"github.com/freelancehub/api/internal/store/storetest"
	"github.com/freelancehub/api/pkg/catalog"
	"github.com/freelancehub/api/pkg/client"
)

func newServer(t *testing.T) string {
	t.Helper()
	cfg := config.Config{
		JWTSecret:        "client_test_secret_long_enough_123456",
		JWTExpiresMin:    60,
		Cookie:           config.CookieConfig{Name: "token", SameSite: fiber.CookieSameSiteLaxMode},
		CORSOrigins:      "http://localhost:5173",
		MaxBidRatio:      0.95,
		BidAwardPolicy:   string(store.AwardRejectOthers),
		EnforceOwnership: true,
	}
	app := router.New(router.Deps{
		Config:   cfg,
		Log:      zap.NewNop(),
		Repo:     storetest.New(store.AwardRejectOthers),
		Sessions: session.NewManager(cfg, nil),
	})
	srv := httptest.NewServer(adaptor.FiberApp(app))
	t.Cleanup(srv.Close)
	return srv.URL
}

func newClient(t *testing.T, url string) *client.Client {
	t.Helper()
	c, err := client.New(url)
	require.NoError(t, err)
	return c
}

func str(s string) *string   { return &s }
func num(f float64) *float64 { return &f }

func date(days int) *string {
	return str(time.Now().UTC().AddDate(0, 0, days).Format(catalog.DateLayout))
}

func apiStatus(err error) int {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

func TestSessionLifecycle(t *testing.T) {
	ctx := context.Background()
	url := newServer(t)
	c := newClient(t, url)

	s := client.Pending()
	assert.Equal(t, client.GateWait, s.Gate(client.RoleClient))

	s, err := c.Revalidate(ctx)
	require.NoError(t, err)
	assert.False(t, s.IsAuthenticated)
	assert.Equal(t, client.GateLogin, s.Gate(client.RoleClient))

	s, user, err := c.Signup(ctx, client.SignupInput{
		Email: "dana@example.com", Password: "secret123", Username: "dana", Role: client.RoleClient,
	})
	require.NoError(t, err)
	assert.Equal(t, "dana@example.com", user.Email)
	assert.Equal(t, client.GateAllow, s.Gate(client.RoleClient))
	assert.Equal(t, client.GateHome, s.Gate(client.RoleFreelancer))

	s, err = c.Revalidate(ctx)
	require.NoError(t, err)
	assert.Equal(t, client.Session{Role: client.RoleClient, Username: "dana", IsAuthenticated: true}, s)

	s, err = c.Logout(ctx)
	require.NoError(t, err)
	assert.False(t, s.IsAuthenticated)
	s, err = c.Revalidate(ctx)
	require.NoError(t, err)
	assert.False(t, s.IsAuthenticated)

	_, err = c.Login(ctx, "dana@example.com", "wrong-password")
	assert.Equal(t, 401, apiStatus(err))

	s, err = c.Login(ctx, "DANA@example.com", "secret123")
	require.NoError(t, err)
	assert.Equal(t, client.RoleClient, s.Role)
	assert.Equal(t, "dana", s.Username)
}

func TestMarketplaceRoundTrip(t *testing.T) {
	ctx := context.Background()
	url := newServer(t)

	owner := newClient(t, url)
	_, _, err := owner.Signup(ctx, client.SignupInput{Email: "eve@example.com", Password: "secret123", Username: "eve", Role: client.RoleClient})
	require.NoError(t, err)

	f1 := newClient(t, url)
	_, _, err = f1.Signup(ctx, client.SignupInput{Email: "fay@example.com", Password: "secret123", Username: "fay", Role: client.RoleFreelancer})
	require.NoError(t, err)
	f2 := newClient(t, url)
	_, _, err = f2.Signup(ctx, client.SignupInput{Email: "gus@example.com", Password: "secret123", Username: "gus", Role: client.RoleFreelancer})
	require.NoError(t, err)

	_, err = owner.CreateProject(ctx, client.ProjectInput{Title: str("Missing fields")})
	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 400, apiErr.Status)
	assert.Contains(t, apiErr.Fields, "budget")

	p, err := owner.CreateProject(ctx, client.ProjectInput{
		Title: str("Brand refresh"), Description: str("New palette"), Budget: num(100), Category: str("Design"), Deadline: date(5),
	})
	require.NoError(t, err)
	_, err = owner.CreateProject(ctx, client.ProjectInput{
		Title: str("Data import"), Description: str("CSV to Postgres"), Budget: num(40), Category: str("Data"), Deadline: date(2),
	})
	require.NoError(t, err)

	_, err = f1.CreateProject(ctx, client.ProjectInput{})
	assert.Equal(t, 403, apiStatus(err))

	b1, err := f1.PlaceBid(ctx, p.ID, 90, "Can start today")
	require.NoError(t, err)
	b2, err := f2.PlaceBid(ctx, p.ID, 95, "Portfolio attached")
	require.NoError(t, err)
	_, err = f2.PlaceBid(ctx, p.ID, 80, "Again")
	assert.Equal(t, 409, apiStatus(err))

	res, err := owner.SetBidStatus(ctx, b1.ID, "won")
	require.NoError(t, err)
	assert.Equal(t, "won", res.Bid.Status)
	assert.Equal(t, []uuid.UUID{b2.ID}, res.Demoted)

	title, bids, err := owner.ProjectBids(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Brand refresh", title)
	require.Len(t, bids, 2)
	assert.Equal(t, "won", bids[0].Status)
	assert.Equal(t, "lost", bids[1].Status)

	mine, err := f2.MyBids(ctx)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "lost", mine[0].Status)

	_, err = f2.Bid(ctx, b1.ID)
	assert.Equal(t, 403, apiStatus(err))

	// the server-side filter and the client-side derivation agree
	f := catalog.Filter{MinBudget: num(50), Sort: catalog.SortBudgetAsc}
	server, err := f1.Projects(ctx, f)
	require.NoError(t, err)
	all, err := f1.Projects(ctx, catalog.Filter{})
	require.NoError(t, err)
	local := catalog.Apply(all, client.Project.Item, f, time.Now())
	require.Len(t, server, 1)
	require.Len(t, local, 1)
	assert.Equal(t, server[0].ID, local[0].ID)
	assert.Equal(t, p.ID, server[0].ID)

	n, err := owner.DeleteProject(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	_, err = owner.Project(ctx, p.ID)
	assert.Equal(t, 404, apiStatus(err))
}

func TestGate(t *testing.T) {
	client1 := client.Session{Role: client.RoleClient, Username: "c", IsAuthenticated: true}

	assert.Equal(t, client.GateWait, client.Session{Loading: true, IsAuthenticated: true}.Gate())
	assert.Equal(t, client.GateLogin, client.Session{}.Gate(client.RoleClient))
	assert.Equal(t, client.GateAllow, client1.Gate())
	assert.Equal(t, client.GateAllow, client1.Gate(client.RoleFreelancer, client.RoleClient))
	assert.Equal(t, client.GateHome, client1.Gate(client.RoleFreelancer))
	assert.Equal(t, "home", client.GateHome.String())
}
