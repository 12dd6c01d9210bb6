package handlers

import (
	"errors"
	"net/mail"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/freelancehub/api/internal/logger"
	"github.com/freelancehub/api/internal/models"
	"github.com/freelancehub/api/internal/services/session"
	"github.com/freelancehub/api/internal/store"
	"github.com/freelancehub/api/internal/utils"
)

const (
	minPasswordLen = 6
	maxUsernameLen = 80
	loginFailed    = "Incorrect email or password"
)

type AuthHandler struct {
	Users    UserStore
	Sessions Sessions
}

type SignupReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

func (h *AuthHandler) Signup(c *fiber.Ctx) error {
	var req SignupReq
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid body")
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	username := strings.TrimSpace(req.Username)

	errs := FieldErrors{}
	if email == "" {
		errs.Add("email", "Email is required")
	} else if !validEmail(email) {
		errs.Add("email", "Email is not valid")
	}
	if req.Password == "" {
		errs.Add("password", "Password is required")
	} else if utf8.RuneCountInString(req.Password) < minPasswordLen {
		errs.Add("password", "Password must be at least 6 characters")
	}
	if username == "" {
		errs.Add("username", "Username is required")
	} else if utf8.RuneCountInString(username) > maxUsernameLen {
		errs.Add("username", "Username is too long")
	}
	role, err := models.ParseRole(req.Role)
	if err != nil {
		errs.Add("role", "Role must be client or freelancer")
	}
	if len(errs) > 0 {
		return validationFail(c, errs)
	}

	if _, err := h.Users.UserByEmail(c.UserContext(), email); err == nil {
		return emailTaken(c)
	} else if !errors.Is(err, store.ErrNotFound) {
		return err
	}

	pw, err := utils.HashPassword(req.Password)
	if err != nil {
		return err
	}

	u := models.User{
		Email:    email,
		Username: username,
		Password: pw,
		Role:     role,
	}
	if err := h.Users.CreateUser(c.UserContext(), &u); err != nil {
		if errors.Is(err, store.ErrEmailTaken) {
			return emailTaken(c)
		}
		return err
	}

	if err := h.Sessions.Start(c, &u); err != nil {
		return err
	}

	logger.FromCtx(c).Info("user signed up", zap.Stringer("user_id", u.ID), zap.String("role", string(u.Role)))
	return respond(c, fiber.StatusCreated, "Signup successful", fiber.Map{
		"user": toUser(&u),
	})
}

// validEmail accepts a bare address only, not "Name <addr>" or "<addr>".
func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Name == "" && addr.Address == email
}

func emailTaken(c *fiber.Ctx) error {
	errs := FieldErrors{}
	errs.Add("email", "Email is already registered")
	return fail(c, fiber.StatusConflict, "Email is already registered", errs)
}

type LoginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

var (
	dummyHashOnce sync.Once
	dummyHash     string
)

// burnPasswordCheck spends the same bcrypt time as a real check, so unknown
// emails cannot be told apart by latency.
func burnPasswordCheck(password string) {
	dummyHashOnce.Do(func() {
		dummyHash, _ = utils.HashPassword("freelancehub-unknown-account")
	})
	_ = utils.CheckPassword(dummyHash, password)
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req LoginReq
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid body")
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))

	errs := FieldErrors{}
	if email == "" {
		errs.Add("email", "Email is required")
	}
	if req.Password == "" {
		errs.Add("password", "Password is required")
	}
	if len(errs) > 0 {
		return validationFail(c, errs)
	}

	u, err := h.Users.UserByEmail(c.UserContext(), email)
	if errors.Is(err, store.ErrNotFound) {
		burnPasswordCheck(req.Password)
		return fiber.NewError(fiber.StatusUnauthorized, loginFailed)
	}
	if err != nil {
		return err
	}
	if !utils.CheckPassword(u.Password, req.Password) {
		return fiber.NewError(fiber.StatusUnauthorized, loginFailed)
	}

	if err := h.Sessions.Start(c, u); err != nil {
		return err
	}

	return respond(c, fiber.StatusOK, "Login successful", fiber.Map{
		"role":     u.Role,
		"username": u.Username,
		"user":     toUser(u),
	})
}

// Check reports the caller's identity. A missing, expired or revoked cookie is
// an ordinary "not authenticated" answer, not an error.
func (h *AuthHandler) Check(c *fiber.Ctx) error {
	anonymous := func() error {
		return respond(c, fiber.StatusOK, "Not authenticated", fiber.Map{"authenticated": false})
	}

	claims, err := h.Sessions.Current(c)
	if errors.Is(err, session.ErrNoSession) {
		return anonymous()
	}
	if err != nil {
		return err
	}

	uid, err := claims.UserUUID()
	if err != nil {
		return anonymous()
	}
	u, err := h.Users.UserByID(c.UserContext(), uid)
	if errors.Is(err, store.ErrNotFound) {
		return anonymous()
	}
	if err != nil {
		return err
	}

	return respond(c, fiber.StatusOK, "Authenticated", fiber.Map{
		"authenticated": true,
		"role":          u.Role,
		"username":      u.Username,
		"user":          toUser(u),
	})
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	if err := h.Sessions.End(c); err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "Logout successful", nil)
}
