package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/freelancehub/api/internal/config"
	"github.com/freelancehub/api/internal/models"
	"github.com/freelancehub/api/internal/services/session"
	"github.com/freelancehub/api/internal/store"
	"github.com/freelancehub/api/internal/store/storetest"
)

type fakeGoogle struct {
	verified bool
	email    string
	name     string
}

func (g *fakeGoogle) displayName() string {
	if g.name == "" {
		return "Gina G"
	}
	return g.name
}

func (g *fakeGoogle) server(t *testing.T) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		if r.Form.Get("code") != "good-code" {
			http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token": "access-123",
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer access-123" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(googleUserInfo{Email: g.email, VerifiedEmail: g.verified, Name: g.displayName()})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func googleApp(t *testing.T, g *fakeGoogle) (*fiber.App, *storetest.Memory) {
	srv := g.server(t)
	cfg := config.Config{
		JWTSecret:     "google_test_secret_that_is_long_enough",
		JWTExpiresMin: 30,
		Cookie:        config.CookieConfig{Name: "token", SameSite: fiber.CookieSameSiteLaxMode},
	}
	users := storetest.New(store.AwardRejectOthers)
	h := &GoogleOAuthHandler{
		Users:    users,
		Sessions: session.NewManager(cfg, nil),
		OAuth: &oauth2.Config{
			ClientID:     "client-id",
			ClientSecret: "client-secret",
			RedirectURL:  "http://api.test/api/auth/google/callback",
			Endpoint: oauth2.Endpoint{
				AuthURL:   srv.URL + "/auth",
				TokenURL:  srv.URL + "/token",
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		UserInfoURL:     srv.URL + "/userinfo",
		FrontendBaseURL: "http://front.test",
		Cookie:          cfg.Cookie,
	}

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	app.Get("/start", h.GoogleStart)
	app.Get("/callback", h.GoogleCallback)
	return app, users
}

func cookiesByName(resp *http.Response) map[string]*http.Cookie {
	out := map[string]*http.Cookie{}
	for _, ck := range resp.Cookies() {
		out[ck.Name] = ck
	}
	return out
}

func startGoogle(t *testing.T, app *fiber.App, query string) (state string, cookies map[string]*http.Cookie) {
	resp, err := app.Test(httptest.NewRequest("GET", "/start?"+query, nil), -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusTemporaryRedirect, resp.StatusCode)

	loc, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "/auth", loc.Path)
	assert.Equal(t, "client-id", loc.Query().Get("client_id"))

	cookies = cookiesByName(resp)
	require.Contains(t, cookies, "oauth_state")
	assert.Equal(t, cookies["oauth_state"].Value, loc.Query().Get("state"))
	return loc.Query().Get("state"), cookies
}

func callback(t *testing.T, app *fiber.App, code, state string, cookies map[string]*http.Cookie) *http.Response {
	q := url.Values{"code": {code}, "state": {state}}
	req := httptest.NewRequest("GET", "/callback?"+q.Encode(), nil)
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func TestGoogleLoginCreatesAccount(t *testing.T) {
	app, users := googleApp(t, &fakeGoogle{verified: true, email: "Gina@Example.com"})

	state, cookies := startGoogle(t, app, "role=freelancer&next=/dashboard")
	assert.Equal(t, "/dashboard", cookies["oauth_next"].Value)
	assert.Equal(t, "freelancer", cookies["oauth_role"].Value)

	resp := callback(t, app, "good-code", state, cookies)
	require.Equal(t, http.StatusTemporaryRedirect, resp.StatusCode)
	assert.Equal(t, "http://front.test/dashboard", resp.Header.Get("Location"))

	set := cookiesByName(resp)
	require.Contains(t, set, "token")
	assert.NotEmpty(t, set["token"].Value)
	assert.Empty(t, set["oauth_state"].Value)

	u, err := users.UserByEmail(context.Background(), "gina@example.com")
	require.NoError(t, err)
	assert.Equal(t, models.RoleFreelancer, u.Role)
	assert.Equal(t, "Gina G", u.Username)

	// a second login reuses the account and keeps its role
	state, cookies = startGoogle(t, app, "role=client")
	resp = callback(t, app, "good-code", state, cookies)
	require.Equal(t, http.StatusTemporaryRedirect, resp.StatusCode)
	again, err := users.UserByEmail(context.Background(), "gina@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, again.ID)
	assert.Equal(t, models.RoleFreelancer, again.Role)
}

func TestGoogleCallbackRejects(t *testing.T) {
	app, _ := googleApp(t, &fakeGoogle{verified: true, email: "gina@example.com"})

	resp, err := app.Test(httptest.NewRequest("GET", "/start?role=admin", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	state, cookies := startGoogle(t, app, "")
	assert.Equal(t, http.StatusBadRequest, callback(t, app, "good-code", "forged", cookies).StatusCode)
	assert.Equal(t, http.StatusBadRequest, callback(t, app, "good-code", state, nil).StatusCode)
	assert.Equal(t, http.StatusBadRequest, callback(t, app, "bad-code", state, cookies).StatusCode)

	unverified, _ := googleApp(t, &fakeGoogle{verified: false, email: "gina@example.com"})
	state, cookies = startGoogle(t, unverified, "")
	resp = callback(t, unverified, "good-code", state, cookies)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.NotContains(t, cookiesByName(resp), "token")
}

func TestGoogleLongDisplayNameIsTruncated(t *testing.T) {
	long := strings.Repeat("é", maxUsernameLen+40)
	app, users := googleApp(t, &fakeGoogle{verified: true, email: "long@example.com", name: long})

	state, cookies := startGoogle(t, app, "")
	resp := callback(t, app, "good-code", state, cookies)
	require.Equal(t, http.StatusTemporaryRedirect, resp.StatusCode)

	u, err := users.UserByEmail(context.Background(), "long@example.com")
	require.NoError(t, err)
	assert.Equal(t, maxUsernameLen, utf8.RuneCountInString(u.Username))
	assert.Equal(t, "abc", truncateRunes("abc", 5))
}

func TestSafeNext(t *testing.T) {
	assert.Equal(t, "/projects/1", safeNext("/projects/1"))
	assert.Equal(t, "/", safeNext("https://evil.test"))
	assert.Equal(t, "/", safeNext("//evil.test"))
	assert.Equal(t, "/", safeNext(`/\evil.test`))
	assert.Equal(t, "/", safeNext(""))
}
