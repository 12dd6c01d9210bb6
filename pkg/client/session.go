package client

import (
	"context"
	"errors"
	"net/http"
)

const (
	RoleClient     = "client"
	RoleFreelancer = "freelancer"
)

// Session is what a front-end knows about the signed-in user. Values are passed
// around explicitly; a zero Session is anonymous and settled.
type Session struct {
	Role            string
	Username        string
	IsAuthenticated bool
	Loading         bool
}

// Pending is the session before the first Revalidate returns.
func Pending() Session {
	return Session{Loading: true}
}

type Gate int

const (
	GateWait Gate = iota
	GateLogin
	GateHome
	GateAllow
)

func (g Gate) String() string {
	switch g {
	case GateWait:
		return "wait"
	case GateLogin:
		return "login"
	case GateHome:
		return "home"
	case GateAllow:
		return "allow"
	}
	return "unknown"
}

// Gate decides what a protected page does for s. With no roles listed any
// signed-in user is allowed.
func (s Session) Gate(allowed ...string) Gate {
	switch {
	case s.Loading:
		return GateWait
	case !s.IsAuthenticated:
		return GateLogin
	case len(allowed) == 0:
		return GateAllow
	}
	for _, r := range allowed {
		if r == s.Role {
			return GateAllow
		}
	}
	return GateHome
}

type sessionData struct {
	Authenticated *bool  `json:"authenticated"`
	Role          string `json:"role"`
	Username      string `json:"username"`
	User          *User  `json:"user"`
}

func (d sessionData) session() Session {
	authed := d.Role != ""
	if d.Authenticated != nil {
		authed = *d.Authenticated
	}
	if !authed {
		return Session{}
	}
	return Session{Role: d.Role, Username: d.Username, IsAuthenticated: true}
}

// Revalidate asks the server who the cookie belongs to. On error the returned
// session is anonymous.
func (c *Client) Revalidate(ctx context.Context) (Session, error) {
	var d sessionData
	if err := c.do(ctx, http.MethodGet, "/api/auth/check", nil, &d); err != nil {
		return Session{}, err
	}
	return d.session(), nil
}

func (c *Client) Login(ctx context.Context, email, password string) (Session, error) {
	in := map[string]string{"email": email, "password": password}
	var d sessionData
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", in, &d); err != nil {
		return Session{}, err
	}
	return d.session(), nil
}

type SignupInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// Signup registers and signs in.
func (c *Client) Signup(ctx context.Context, in SignupInput) (Session, *User, error) {
	var d sessionData
	if err := c.do(ctx, http.MethodPost, "/api/auth/signup", in, &d); err != nil {
		return Session{}, nil, err
	}
	if d.User == nil {
		return Session{}, nil, errors.New("freelancehub: signup response has no user")
	}
	return Session{Role: d.User.Role, Username: d.User.Username, IsAuthenticated: true}, d.User, nil
}

// Logout ends the server session. The returned session is anonymous even when
// the call fails.
func (c *Client) Logout(ctx context.Context) (Session, error) {
	return Session{}, c.do(ctx, http.MethodPost, "/api/auth/logout", nil, nil)
}
