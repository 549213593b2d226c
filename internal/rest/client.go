// Package rest is the typed client for the remote Corkboard API. Every
// create and update call returns the canonical server entity, including the
// server-assigned ID, so the pending-sync queue can reconcile by identity.
// Calls go through a circuit breaker; a tripped breaker or any transport or
// non-2xx failure surfaces as a *NetworkError.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/finleyb/corkboard/internal/pending"
	"github.com/finleyb/corkboard/internal/session"
	"github.com/finleyb/corkboard/pkg/board"
)

// Workspace is a top-level container of projects.
type Workspace struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Project is one project inside a workspace. Each project has one board.
type Project struct {
	ID          string `json:"id"`
	WorkspaceID string `json:"workspace_id"`
	Name        string `json:"name"`
}

// ChatMessage is one message in a project's chat stream.
type ChatMessage struct {
	ID          string `json:"id"`
	AuthorID    string `json:"author_id"`
	Body        string `json:"body"`
	CreatedAtMs int64  `json:"created_at_ms"`
}

// ActivityEntry is one row of a project's activity feed.
type ActivityEntry struct {
	ID          string `json:"id"`
	ActorID     string `json:"actor_id"`
	Action      string `json:"action"`
	EntityID    string `json:"entity_id"`
	CreatedAtMs int64  `json:"created_at_ms"`
}

// Client is the REST client for one API deployment.
// Thread-safe; one instance is shared across the process.
type Client struct {
	baseURL string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
	sess    *session.Session
	log     *logrus.Entry
}

// NewClient creates a REST client rooted at baseURL. The session supplies
// the bearer token once the user logs in.
func NewClient(baseURL string, sess *session.Session, logger *logrus.Logger) *Client {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	log := logger.WithField("component", "rest")

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "corkboard-api",
		MaxRequests: 1,
		Timeout:     5 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Infof("circuit breaker %s changed from %s to %s", name, from.String(), to.String())
		},
	})

	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
		breaker: breaker,
		sess:    sess,
		log:     log,
	}
}

// loginResponse is the wire shape of a successful login or signup.
type loginResponse struct {
	User  board.Member `json:"user"`
	Token string       `json:"token"`
}

// Login authenticates and begins the session.
func (c *Client) Login(ctx context.Context, email, password string) (*board.Member, error) {
	var resp loginResponse
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", body, &resp); err != nil {
		return nil, err
	}
	c.sess.Begin(resp.User, resp.Token)
	return &resp.User, nil
}

// Signup registers a new account and begins the session.
func (c *Client) Signup(ctx context.Context, name, email, password string) (*board.Member, error) {
	var resp loginResponse
	body := map[string]string{"name": name, "email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/api/auth/signup", body, &resp); err != nil {
		return nil, err
	}
	c.sess.Begin(resp.User, resp.Token)
	return &resp.User, nil
}

// Logout invalidates the server-side token and ends the session. The local
// session ends even when the server call fails.
func (c *Client) Logout(ctx context.Context) error {
	err := c.do(ctx, http.MethodPost, "/api/auth/logout", nil, nil)
	c.sess.End()
	return err
}

// CurrentUser fetches the authenticated user from the server.
func (c *Client) CurrentUser(ctx context.Context) (*board.Member, error) {
	var user board.Member
	if err := c.do(ctx, http.MethodGet, "/api/auth/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Workspaces lists the workspaces visible to the current user.
func (c *Client) Workspaces(ctx context.Context) ([]Workspace, error) {
	var out []Workspace
	if err := c.do(ctx, http.MethodGet, "/api/workspaces", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateWorkspace creates a workspace and returns the server entity.
func (c *Client) CreateWorkspace(ctx context.Context, name string) (*Workspace, error) {
	var out Workspace
	if err := c.do(ctx, http.MethodPost, "/api/workspaces", map[string]string{"name": name}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Projects lists the projects in a workspace.
func (c *Client) Projects(ctx context.Context, workspaceID string) ([]Project, error) {
	var out []Project
	path := fmt.Sprintf("/api/workspaces/%s/projects", workspaceID)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateProject creates a project and returns the server entity.
func (c *Client) CreateProject(ctx context.Context, workspaceID, name string) (*Project, error) {
	var out Project
	path := fmt.Sprintf("/api/workspaces/%s/projects", workspaceID)
	if err := c.do(ctx, http.MethodPost, path, map[string]string{"name": name}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// FetchBoard fetches the full board snapshot for a project: tasks, groups,
// connections, and members in one round trip. Used on board open and after
// every socket reconnect.
func (c *Client) FetchBoard(ctx context.Context, projectID string) (*board.Snapshot, error) {
	var snap board.Snapshot
	path := fmt.Sprintf("/api/projects/%s/board", projectID)
	if err := c.do(ctx, http.MethodGet, path, nil, &snap); err != nil {
		return nil, err
	}
	snap.ProjectID = projectID
	return &snap, nil
}

// CreateTask creates a task and returns the canonical server entity.
func (c *Client) CreateTask(ctx context.Context, projectID string, t *board.Task) (*board.Task, error) {
	var out board.Task
	path := fmt.Sprintf("/api/projects/%s/tasks", projectID)
	if err := c.do(ctx, http.MethodPost, path, t, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateTask updates a task and returns the canonical server entity.
func (c *Client) UpdateTask(ctx context.Context, projectID string, t *board.Task) (*board.Task, error) {
	var out board.Task
	path := fmt.Sprintf("/api/projects/%s/tasks/%s", projectID, t.ID)
	if err := c.do(ctx, http.MethodPut, path, t, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteTask deletes a task.
func (c *Client) DeleteTask(ctx context.Context, projectID, taskID string) error {
	path := fmt.Sprintf("/api/projects/%s/tasks/%s", projectID, taskID)
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

// CreateGroup creates a group and returns the canonical server entity.
func (c *Client) CreateGroup(ctx context.Context, projectID string, g *board.Group) (*board.Group, error) {
	var out board.Group
	path := fmt.Sprintf("/api/projects/%s/groups", projectID)
	if err := c.do(ctx, http.MethodPost, path, g, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateGroup updates a group and returns the canonical server entity.
func (c *Client) UpdateGroup(ctx context.Context, projectID string, g *board.Group) (*board.Group, error) {
	var out board.Group
	path := fmt.Sprintf("/api/projects/%s/groups/%s", projectID, g.ID)
	if err := c.do(ctx, http.MethodPut, path, g, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteGroup deletes a group. Tasks inside it become ungrouped server-side.
func (c *Client) DeleteGroup(ctx context.Context, projectID, groupID string) error {
	path := fmt.Sprintf("/api/projects/%s/groups/%s", projectID, groupID)
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

// CreateConnection creates a connection and returns the canonical server
// entity.
func (c *Client) CreateConnection(ctx context.Context, projectID string, conn *board.Connection) (*board.Connection, error) {
	var out board.Connection
	path := fmt.Sprintf("/api/projects/%s/connections", projectID)
	if err := c.do(ctx, http.MethodPost, path, conn, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteConnection deletes a connection.
func (c *Client) DeleteConnection(ctx context.Context, projectID, connectionID string) error {
	path := fmt.Sprintf("/api/projects/%s/connections/%s", projectID, connectionID)
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

// AddComment appends a comment to a task and returns the server entity.
func (c *Client) AddComment(ctx context.Context, projectID, taskID, body string) (*board.Comment, error) {
	var out board.Comment
	path := fmt.Sprintf("/api/projects/%s/tasks/%s/comments", projectID, taskID)
	if err := c.do(ctx, http.MethodPost, path, map[string]string{"body": body}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Attachments fetches a task's attachment metadata. The file bodies are
// served at each attachment's URL, outside this client.
func (c *Client) Attachments(ctx context.Context, projectID, taskID string) ([]board.Attachment, error) {
	var out []board.Attachment
	path := fmt.Sprintf("/api/projects/%s/tasks/%s/attachments", projectID, taskID)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ChatMessages fetches a project's chat history.
func (c *Client) ChatMessages(ctx context.Context, projectID string) ([]ChatMessage, error) {
	var out []ChatMessage
	path := fmt.Sprintf("/api/projects/%s/chat", projectID)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SendChatMessage posts a chat message and returns the server entity.
func (c *Client) SendChatMessage(ctx context.Context, projectID, body string) (*ChatMessage, error) {
	var out ChatMessage
	path := fmt.Sprintf("/api/projects/%s/chat", projectID)
	if err := c.do(ctx, http.MethodPost, path, map[string]string{"body": body}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Activity fetches a project's activity feed, newest first.
func (c *Client) Activity(ctx context.Context, projectID string) ([]ActivityEntry, error) {
	var out []ActivityEntry
	path := fmt.Sprintf("/api/projects/%s/activity", projectID)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// do runs one request through the circuit breaker and decodes the response
// into out (ignored when out is nil). Any failure becomes a *NetworkError.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	op := method + " " + path

	_, err := c.breaker.Execute(func() (any, error) {
		var reqBody io.Reader
		if in != nil {
			data, err := json.Marshal(in)
			if err != nil {
				return nil, fmt.Errorf("failed to marshal request body: %w", err)
			}
			reqBody = bytes.NewReader(data)
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
		if err != nil {
			return nil, fmt.Errorf("failed to build request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		if in != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if token := c.sess.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		// The server echoes this token in the mutation's socket event so
		// every subscriber, this client included, can correlate the echo.
		if token := pending.TokenFromContext(ctx); token != "" {
			req.Header.Set("X-Client-Token", token)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return nil, &NetworkError{
				Op:         op,
				StatusCode: resp.StatusCode,
				Body:       string(snippet),
			}
		}

		if out != nil {
			if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
				return nil, fmt.Errorf("failed to decode response: %w", err)
			}
		}
		return nil, nil
	})

	if err != nil {
		c.log.WithField("op", op).Warnf("request failed: %v", err)
		return wrapNetworkError(op, err)
	}
	return nil
}
