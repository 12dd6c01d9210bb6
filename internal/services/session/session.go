// Package session issues, reads and revokes the HTTP-only cookie that carries a user's JWT.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/freelancehub/api/internal/config"
	"github.com/freelancehub/api/internal/models"
	"github.com/freelancehub/api/internal/utils"
)

// ErrNoSession means the request carries no usable token: missing, malformed,
// expired, forged or revoked.
var ErrNoSession = errors.New("no active session")

type Revocations interface {
	Revoke(ctx context.Context, jti string, until time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

type Manager struct {
	Secret     string
	ExpiresMin int
	Cookie     config.CookieConfig
	// nil disables server-side logout
	Revocations Revocations
}

func NewManager(cfg config.Config, rev Revocations) *Manager {
	return &Manager{
		Secret:      cfg.JWTSecret,
		ExpiresMin:  cfg.JWTExpiresMin,
		Cookie:      cfg.Cookie,
		Revocations: rev,
	}
}

// Start signs a token for u and sets it as the session cookie.
func (m *Manager) Start(c *fiber.Ctx, u *models.User) error {
	token, err := utils.SignJWT(m.Secret, u.ID.String(), string(u.Role), m.ExpiresMin)
	if err != nil {
		return fmt.Errorf("sign token: %w", err)
	}
	c.Cookie(m.cookie(token, m.ExpiresMin*60))
	return nil
}

// Current returns the claims of the request's session.
func (m *Manager) Current(c *fiber.Ctx) (*utils.Claims, error) {
	raw := c.Cookies(m.Cookie.Name)
	if raw == "" {
		return nil, ErrNoSession
	}
	claims, err := utils.ParseJWT(m.Secret, raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoSession, err)
	}
	if m.Revocations != nil {
		revoked, err := m.Revocations.IsRevoked(c.UserContext(), claims.ID)
		if err != nil {
			return nil, fmt.Errorf("check revocation: %w", err)
		}
		if revoked {
			return nil, fmt.Errorf("%w: token revoked", ErrNoSession)
		}
	}
	return claims, nil
}

// End clears the cookie and revokes the presented token until it would have expired.
// It succeeds without a valid session.
func (m *Manager) End(c *fiber.Ctx) error {
	raw := c.Cookies(m.Cookie.Name)
	c.Cookie(m.cookie("", -1))

	if raw == "" || m.Revocations == nil {
		return nil
	}
	claims, err := utils.ParseJWT(m.Secret, raw)
	if err != nil {
		return nil
	}
	return m.Revocations.Revoke(c.UserContext(), claims.ID, claims.ExpiresAt.Time)
}

func (m *Manager) cookie(value string, maxAge int) *fiber.Cookie {
	ck := &fiber.Cookie{
		Name:     m.Cookie.Name,
		Value:    value,
		Path:     "/",
		Domain:   m.Cookie.Domain,
		HTTPOnly: true,
		Secure:   m.Cookie.Secure,
		SameSite: m.Cookie.SameSite,
		MaxAge:   maxAge,
	}
	if maxAge < 0 {
		ck.Expires = time.Unix(0, 0)
	}
	return ck
}

// RedisRevocations keeps revoked token ids in Redis until the token's own expiry.
type RedisRevocations struct {
	RDB    *redis.Client
	Prefix string
}

func NewRedisRevocations(rdb *redis.Client) *RedisRevocations {
	return &RedisRevocations{RDB: rdb, Prefix: "session:revoked:"}
}

func (r *RedisRevocations) Revoke(ctx context.Context, jti string, until time.Time) error {
	ttl := time.Until(until)
	if ttl <= 0 {
		return nil
	}
	return r.RDB.Set(ctx, r.Prefix+jti, 1, ttl).Err()
}

func (r *RedisRevocations) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := r.RDB.Exists(ctx, r.Prefix+jti).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
