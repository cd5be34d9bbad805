package rpssdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Client is a minimal rps HTTP API client.
type Client struct {
	BaseURL string
	// BasePath is the API prefix the server was started with.
	BasePath    string
	BearerToken string
	// ActorID is sent as X-Actor-Id when the server runs without auth.
	ActorID    string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL:  baseURL,
		BasePath: "/api",
		Timeout:  10 * time.Second,
	}
}

type Agent struct {
	ID          int64  `json:"id"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Email       string `json:"email,omitempty"`
	PhoneNumber string `json:"phone_number,omitempty"`
	Active      bool   `json:"active"`
	CreatedAt   string `json:"created_at,omitempty"`
	UpdatedAt   string `json:"updated_at,omitempty"`
}

// Pair is two agents scheduled together.
type Pair struct {
	Agent1ID int64 `json:"agent1_id"`
	Agent2ID int64 `json:"agent2_id"`
}

// Schedule is one week's pairing, keyed by the Monday in Date.
type Schedule struct {
	ID            string  `json:"id"`
	Date          string  `json:"date"`
	CreatedAt     string  `json:"created_at"`
	Pairs         []Pair  `json:"pairs"`
	Unpaired      []int64 `json:"unpaired"`
	Generated     bool    `json:"generated"`
	Bye           *int64  `json:"bye,omitempty"`
	EligibleEdges *int    `json:"eligible_edges,omitempty"`
}

type BlacklistEntry struct {
	AgentA    int64  `json:"agent_a"`
	AgentB    int64  `json:"agent_b"`
	CreatedAt string `json:"created_at,omitempty"`
	Created   bool   `json:"created"`
}

// Event represents a log entry.
type Event struct {
	ID         int64          `json:"id"`
	TS         string         `json:"ts"`
	Type       string         `json:"type"`
	EntityKind string         `json:"entity_kind"`
	EntityID   string         `json:"entity_id"`
	ActorID    string         `json:"actor_id"`
	Payload    map[string]any `json:"payload"`
}

// PaginatedEvents wraps list responses with cursors.
type PaginatedEvents struct {
	Items      []Event `json:"items"`
	NextCursor string  `json:"next_cursor"`
}

// APIError wraps non-2xx responses. Code and Message come from the error
// envelope when the body carries one.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Body       string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api error: status=%d code=%s message=%s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// CreateAgent adds an active agent to the roster.
func (c *Client) CreateAgent(ctx context.Context, firstName, lastName, email string) (Agent, error) {
	body := map[string]any{
		"first_name": firstName,
		"last_name":  lastName,
	}
	if email != "" {
		body["email"] = email
	}
	var resp Agent
	err := c.do(ctx, http.MethodPost, "agents", body, &resp)
	return resp, err
}

func (c *Client) GetAgent(ctx context.Context, id int64) (Agent, error) {
	var resp Agent
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("agents/%d", id), nil, &resp)
	return resp, err
}

// ListAgents returns agents matching search; an empty search lists everyone.
func (c *Client) ListAgents(ctx context.Context, search string) ([]Agent, error) {
	endpoint := "agents"
	if search != "" {
		endpoint += "?search=" + url.QueryEscape(search)
	}
	var resp []Agent
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

func (c *Client) DeleteAgent(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("agents/%d", id), nil, nil)
}

// SetWeekday sets the weekly availability of an agent; weekday 0 is Monday.
func (c *Client) SetWeekday(ctx context.Context, agentID int64, weekday int, available bool) error {
	endpoint := fmt.Sprintf("agents/%d/availability/weekly/%d", agentID, weekday)
	return c.do(ctx, http.MethodPut, endpoint, map[string]any{"available": available}, nil)
}

// SetDate overrides the availability of an agent on one date (YYYY-MM-DD).
func (c *Client) SetDate(ctx context.Context, agentID int64, date string, available bool) error {
	endpoint := fmt.Sprintf("agents/%d/availability/dates/%s", agentID, url.PathEscape(date))
	return c.do(ctx, http.MethodPut, endpoint, map[string]any{"available": available}, nil)
}

// AddBlacklist forbids a and b from being paired. Adding an existing pair is
// not an error; Created reports whether it was new.
func (c *Client) AddBlacklist(ctx context.Context, a, b int64) (BlacklistEntry, error) {
	var resp BlacklistEntry
	err := c.do(ctx, http.MethodPost, "blacklist", map[string]any{"agent_a": a, "agent_b": b}, &resp)
	return resp, err
}

func (c *Client) RemoveBlacklist(ctx context.Context, a, b int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("blacklist/%d/%d", a, b), nil, nil)
}

// GetSchedule returns the schedule of the week containing date, generating it
// server side when none is stored.
func (c *Client) GetSchedule(ctx context.Context, date string) (Schedule, error) {
	var resp Schedule
	err := c.do(ctx, http.MethodGet, "schedules/"+url.PathEscape(date), nil, &resp)
	return resp, err
}

// GenerateSchedule regenerates the schedule of the week containing date.
func (c *Client) GenerateSchedule(ctx context.Context, date string) (Schedule, error) {
	var resp Schedule
	err := c.do(ctx, http.MethodPost, "schedules/"+url.PathEscape(date)+"/generate", nil, &resp)
	return resp, err
}

// SetSchedule stores a manual schedule for the week containing date.
func (c *Client) SetSchedule(ctx context.Context, date string, pairs []Pair, unpaired []int64) (Schedule, error) {
	if pairs == nil {
		pairs = []Pair{}
	}
	if unpaired == nil {
		unpaired = []int64{}
	}
	var resp Schedule
	body := map[string]any{"pairs": pairs, "unpaired": unpaired}
	err := c.do(ctx, http.MethodPut, "schedules/"+url.PathEscape(date), body, &resp)
	return resp, err
}

// Events returns recent events.
func (c *Client) Events(ctx context.Context, limit int) ([]Event, error) {
	page, err := c.EventsPage(ctx, limit, "")
	return page.Items, err
}

// EventsPage returns a paginated event listing, newest first.
func (c *Client) EventsPage(ctx context.Context, limit int, cursor string) (PaginatedEvents, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	endpoint := "events"
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}
	var resp PaginatedEvents
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	}
	if c.ActorID != "" {
		req.Header.Set("X-Actor-Id", c.ActorID)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: string(b)}
		var env struct {
			Error struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		if json.Unmarshal(b, &env) == nil {
			apiErr.Code = env.Error.Code
			apiErr.Message = env.Error.Message
		}
		return apiErr
	}
	if out != nil && resp.StatusCode != http.StatusNoContent {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) base() string {
	base := strings.TrimRight(c.BaseURL, "/")
	if p := strings.Trim(c.BasePath, "/"); p != "" {
		base += "/" + p
	}
	return base
}
