package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddlewareCountsByRoute(t *testing.T) {
	app := fiber.New()
	app.Use(Middleware())
	app.Get("/projects/:id", func(c *fiber.Ctx) error { return c.SendString(c.Params("id")) })
	app.Get("/fail", func(c *fiber.Ctx) error { return fiber.NewError(fiber.StatusConflict, "nope") })
	app.Get("/metrics", Handler())

	ok := RequestCounter.WithLabelValues("GET", "/projects/:id", "200")
	conflict := RequestCounter.WithLabelValues("GET", "/fail", "409")
	beforeOK := testutil.ToFloat64(ok)
	beforeConflict := testutil.ToFloat64(conflict)

	for _, id := range []string{"a", "b"} {
		resp, err := app.Test(httptest.NewRequest("GET", "/projects/"+id, nil), -1)
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
	}
	resp, err := app.Test(httptest.NewRequest("GET", "/fail", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, 409, resp.StatusCode)

	assert.Equal(t, beforeOK+2, testutil.ToFloat64(ok))
	assert.Equal(t, beforeConflict+1, testutil.ToFloat64(conflict))
	assert.Zero(t, testutil.ToFloat64(ActiveRequests))

	resp, err = app.Test(httptest.NewRequest("GET", "/metrics", nil), -1)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	assert.True(t, strings.Contains(string(body), "freelancehub_http_requests_total"))
}

func TestDomainCounters(t *testing.T) {
	before := testutil.ToFloat64(BidStatusChanges.WithLabelValues("won"))
	BidStatusChanges.WithLabelValues("won").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(BidStatusChanges.WithLabelValues("won")))
}
