package handlers

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/freelancehub/api/internal/config"
	"github.com/freelancehub/api/internal/logger"
	"github.com/freelancehub/api/internal/models"
	"github.com/freelancehub/api/internal/store"
	"github.com/freelancehub/api/internal/utils"
)

const (
	googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"
	oauthCookieMaxAge = 10 * 60
)

type GoogleOAuthHandler struct {
	Users           UserStore
	Sessions        Sessions
	OAuth           *oauth2.Config
	UserInfoURL     string
	FrontendBaseURL string
	Cookie          config.CookieConfig
}

func NewGoogleOAuthHandler(cfg config.Config, users UserStore, sessions Sessions) *GoogleOAuthHandler {
	return &GoogleOAuthHandler{
		Users:    users,
		Sessions: sessions,
		OAuth: &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleSecret,
			RedirectURL:  cfg.GoogleRedirect,
			Endpoint:     google.Endpoint,
			Scopes:       []string{"openid", "email", "profile"},
		},
		UserInfoURL:     googleUserInfoURL,
		FrontendBaseURL: strings.TrimRight(cfg.FrontendBaseURL, "/"),
		Cookie:          cfg.Cookie,
	}
}

func randomState(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}

// safeNext keeps post-login redirects on the front-end's own origin.
func safeNext(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.Contains(next, `\`) {
		return "/"
	}
	return next
}

func (h *GoogleOAuthHandler) tempCookie(name, value string, maxAge int) *fiber.Cookie {
	ck := &fiber.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HTTPOnly: true,
		Secure:   h.Cookie.Secure,
		SameSite: fiber.CookieSameSiteLaxMode,
		MaxAge:   maxAge,
	}
	if maxAge < 0 {
		ck.Expires = time.Unix(0, 0)
	}
	return ck
}

// GoogleStart redirects to Google. role picks the role of an account created by
// this login and defaults to client.
func (h *GoogleOAuthHandler) GoogleStart(c *fiber.Ctx) error {
	role := models.RoleClient
	if r := c.Query("role"); r != "" {
		parsed, err := models.ParseRole(r)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "role must be client or freelancer")
		}
		role = parsed
	}
	st := randomState(32)

	c.Cookie(h.tempCookie("oauth_state", st, oauthCookieMaxAge))
	c.Cookie(h.tempCookie("oauth_next", safeNext(c.Query("next", "/")), oauthCookieMaxAge))
	c.Cookie(h.tempCookie("oauth_role", string(role), oauthCookieMaxAge))

	return c.Redirect(h.OAuth.AuthCodeURL(st), http.StatusTemporaryRedirect)
}

type googleUserInfo struct {
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
}

func (h *GoogleOAuthHandler) GoogleCallback(c *fiber.Ctx) error {
	code := c.Query("code")
	state := c.Query("state")
	if code == "" || state == "" {
		return fiber.NewError(fiber.StatusBadRequest, "missing code or state")
	}
	if st := c.Cookies("oauth_state"); st == "" || st != state {
		return fiber.NewError(fiber.StatusBadRequest, "invalid state")
	}
	next := safeNext(c.Cookies("oauth_next", "/"))
	role, err := models.ParseRole(c.Cookies("oauth_role", string(models.RoleClient)))
	if err != nil {
		role = models.RoleClient
	}

	log := logger.FromCtx(c)
	tok, err := h.OAuth.Exchange(c.UserContext(), code)
	if err != nil {
		log.Warn("google code exchange failed", zap.Error(err))
		return fiber.NewError(fiber.StatusBadRequest, "failed to exchange code")
	}

	gu, err := h.fetchUserInfo(c, tok)
	if err != nil {
		log.Warn("google userinfo failed", zap.Error(err))
		return fiber.NewError(fiber.StatusBadRequest, "failed to fetch user info")
	}
	email := strings.ToLower(strings.TrimSpace(gu.Email))
	if email == "" || !gu.VerifiedEmail {
		return fiber.NewError(fiber.StatusBadRequest, "Google account has no verified email")
	}

	u, err := h.Users.UserByEmail(c.UserContext(), email)
	if errors.Is(err, store.ErrNotFound) {
		u, err = h.createUser(c, email, gu.Name, role)
	}
	if err != nil {
		return err
	}

	if err := h.Sessions.Start(c, u); err != nil {
		return err
	}

	c.Cookie(h.tempCookie("oauth_state", "", -1))
	c.Cookie(h.tempCookie("oauth_next", "", -1))
	c.Cookie(h.tempCookie("oauth_role", "", -1))

	return c.Redirect(h.FrontendBaseURL+next, http.StatusTemporaryRedirect)
}

func (h *GoogleOAuthHandler) fetchUserInfo(c *fiber.Ctx, tok *oauth2.Token) (*googleUserInfo, error) {
	client := h.OAuth.Client(c.UserContext(), tok)
	resp, err := client.Get(h.UserInfoURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, errors.New("userinfo status " + resp.Status)
	}

	var gu googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&gu); err != nil {
		return nil, err
	}
	return &gu, nil
}

// createUser registers a Google account. The password is random and unusable
// for email login.
func (h *GoogleOAuthHandler) createUser(c *fiber.Ctx, email, name string, role models.Role) (*models.User, error) {
	username := strings.TrimSpace(name)
	if username == "" {
		username, _, _ = strings.Cut(email, "@")
	}
	username = truncateRunes(username, maxUsernameLen)
	hashed, err := utils.HashPassword(randomState(24))
	if err != nil {
		return nil, err
	}

	u := &models.User{
		Email:    email,
		Username: username,
		Password: hashed,
		Role:     role,
	}
	if err := h.Users.CreateUser(c.UserContext(), u); err != nil {
		if errors.Is(err, store.ErrEmailTaken) {
			return h.Users.UserByEmail(c.UserContext(), email)
		}
		return nil, err
	}
	logger.FromCtx(c).Info("user signed up with google", zap.Stringer("user_id", u.ID))
	return u, nil
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return strings.TrimSpace(string([]rune(s)[:n]))
}
