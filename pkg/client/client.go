// Package client is a typed HTTP client for the FreelanceHub API. It keeps the
// session cookie in a jar, so one Client is one signed-in browser.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/freelancehub/api/pkg/catalog"
)

type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

func New(baseURL string) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: 10 * time.Second, Jar: jar},
	}, nil
}

// APIError is a non-2xx answer from the API.
type APIError struct {
	Status  int
	Message string
	Fields  map[string][]string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("freelancehub: %d %s", e.Status, e.Message)
}

type envelope struct {
	Success bool                `json:"success"`
	Message string              `json:"message"`
	Data    json.RawMessage     `json:"data"`
	Errors  map[string][]string `json:"errors"`
}

func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("freelancehub: %d %s: unexpected body", resp.StatusCode, method+" "+path)
	}
	if resp.StatusCode >= 300 {
		return &APIError{Status: resp.StatusCode, Message: env.Message, Fields: env.Errors}
	}
	if out != nil && len(env.Data) > 0 {
		return json.Unmarshal(env.Data, out)
	}
	return nil
}

type User struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

type UserRef struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
}

type Project struct {
	ID            uuid.UUID   `json:"id"`
	Title         string      `json:"title"`
	Description   string      `json:"description"`
	Budget        float64     `json:"budget"`
	Category      string      `json:"category"`
	Deadline      string      `json:"deadline"`
	OwnerID       uuid.UUID   `json:"owner_id"`
	Owner         *UserRef    `json:"owner"`
	AwardedBidID  *uuid.UUID  `json:"awarded_bid_id"`
	Bids          []uuid.UUID `json:"bids"`
	AcceptingBids bool        `json:"accepting_bids"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// Item lets an already fetched list be filtered with catalog.Apply.
func (p Project) Item() catalog.Item {
	d, _ := time.Parse(catalog.DateLayout, p.Deadline)
	return catalog.Item{
		Title:     p.Title,
		Category:  p.Category,
		Budget:    p.Budget,
		Deadline:  d,
		CreatedAt: p.CreatedAt,
	}
}

type BidProject struct {
	ID       uuid.UUID `json:"id"`
	Title    string    `json:"title"`
	Budget   float64   `json:"budget"`
	Category string    `json:"category"`
	Deadline string    `json:"deadline"`
	OwnerID  uuid.UUID `json:"owner_id"`
}

type Bid struct {
	ID           uuid.UUID   `json:"id"`
	Amount       float64     `json:"amount"`
	Message      string      `json:"message"`
	Status       string      `json:"status"`
	ProjectID    uuid.UUID   `json:"project_id"`
	FreelancerID uuid.UUID   `json:"freelancer_id"`
	Freelancer   *UserRef    `json:"freelancer"`
	Project      *BidProject `json:"project"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// ProjectInput is the body of create and update. Nil fields are left unchanged on update.
type ProjectInput struct {
	Title       *string  `json:"title,omitempty"`
	Description *string  `json:"description,omitempty"`
	Budget      *float64 `json:"budget,omitempty"`
	Category    *string  `json:"category,omitempty"`
	Deadline    *string  `json:"deadline,omitempty"`
}

func (c *Client) Projects(ctx context.Context, f catalog.Filter) ([]Project, error) {
	path := "/api/projects"
	if q := f.Query().Encode(); q != "" {
		path += "?" + q
	}
	var out []Project
	return out, c.do(ctx, http.MethodGet, path, nil, &out)
}

func (c *Client) Project(ctx context.Context, id uuid.UUID) (*Project, error) {
	var out Project
	if err := c.do(ctx, http.MethodGet, "/api/projects/"+id.String(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) MyProjects(ctx context.Context) ([]Project, error) {
	var out []Project
	return out, c.do(ctx, http.MethodGet, "/api/me/projects", nil, &out)
}

func (c *Client) CreateProject(ctx context.Context, in ProjectInput) (*Project, error) {
	var out Project
	if err := c.do(ctx, http.MethodPost, "/api/projects", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateProject(ctx context.Context, id uuid.UUID, in ProjectInput) (*Project, error) {
	var out Project
	if err := c.do(ctx, http.MethodPut, "/api/projects/"+id.String(), in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteProject returns how many bids went with the project.
func (c *Client) DeleteProject(ctx context.Context, id uuid.UUID) (int, error) {
	var out struct {
		DeletedBids int `json:"deleted_bids"`
	}
	err := c.do(ctx, http.MethodDelete, "/api/projects/"+id.String(), nil, &out)
	return out.DeletedBids, err
}

func (c *Client) PlaceBid(ctx context.Context, projectID uuid.UUID, amount float64, message string) (*Bid, error) {
	in := map[string]interface{}{"amount": amount, "message": message}
	var out Bid
	if err := c.do(ctx, http.MethodPost, "/api/projects/"+projectID.String()+"/bids", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) MyBids(ctx context.Context) ([]Bid, error) {
	var out []Bid
	return out, c.do(ctx, http.MethodGet, "/api/me/bids", nil, &out)
}

func (c *Client) Bid(ctx context.Context, id uuid.UUID) (*Bid, error) {
	var out Bid
	if err := c.do(ctx, http.MethodGet, "/api/bids/"+id.String(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ProjectBids returns the project's title with its bids, oldest first.
func (c *Client) ProjectBids(ctx context.Context, projectID uuid.UUID) (string, []Bid, error) {
	var out struct {
		ProjectTitle string `json:"project_title"`
		Bids         []Bid  `json:"bids"`
	}
	err := c.do(ctx, http.MethodGet, "/api/projects/"+projectID.String()+"/bids", nil, &out)
	return out.ProjectTitle, out.Bids, err
}

type StatusResult struct {
	Bid     Bid         `json:"bid"`
	Demoted []uuid.UUID `json:"demoted"`
	Changed bool        `json:"changed"`
}

// SetBidStatus moves a bid to "won" or "lost".
func (c *Client) SetBidStatus(ctx context.Context, bidID uuid.UUID, status string) (*StatusResult, error) {
	var out StatusResult
	in := map[string]string{"status": status}
	if err := c.do(ctx, http.MethodPatch, "/api/bids/"+bidID.String()+"/status", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
