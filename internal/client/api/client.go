// Package api implements the HTTP transport to the notes server: the
// auth flow, the health probe, the batch sync calls and the websocket
// push listener.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/avoronova/notekeeper/internal/common"
	"github.com/avoronova/notekeeper/internal/logging"
	"github.com/avoronova/notekeeper/internal/wire"
)

const requestTimeout = 30 * time.Second

// Client talks to the notes server over JSON HTTP. It holds the current
// token pair and transparently refreshes the access token once when a
// request comes back 401; if the refresh fails too, the caller gets
// common.ErrUnauthorized and must log in again.
type Client struct {
	baseURL  string
	http     *http.Client
	log      logging.Logger
	clientID string

	mu           sync.RWMutex
	accessToken  string
	refreshToken string
}

func NewClient(baseURL string, log logging.Logger) *Client {
	id, err := common.MakeRandHexString(8)
	if err != nil {
		id = fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return &Client{
		baseURL:  baseURL,
		http:     &http.Client{Timeout: requestTimeout},
		log:      log,
		clientID: id,
	}
}

// ClientID identifies this session on requests and on the push channel,
// so the server does not echo our own changes back to us.
func (c *Client) ClientID() string { return c.clientID }

// IsAuthenticated reports whether a token pair is held.
func (c *Client) IsAuthenticated() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.accessToken != ""
}

// Register creates an account and logs in with the returned tokens.
func (c *Client) Register(ctx context.Context, email, password string) error {
	var tokens wire.TokenResponse
	err := c.doJSON(ctx, http.MethodPost, "/api/auth/register",
		wire.RegisterRequest{Email: email, Password: password}, &tokens, false)
	if err != nil {
		return err
	}
	c.setTokens(tokens)
	return nil
}

// Login authenticates and stores the token pair.
func (c *Client) Login(ctx context.Context, email, password string) error {
	var tokens wire.TokenResponse
	err := c.doJSON(ctx, http.MethodPost, "/api/auth/login",
		wire.LoginRequest{Email: email, Password: password}, &tokens, false)
	if errors.Is(err, common.ErrUnauthorized) {
		return common.ErrInvalidCredentials
	}
	if err != nil {
		return err
	}
	c.setTokens(tokens)
	return nil
}

// Logout drops the held tokens. Local-only; the server keeps no session
// state beyond the refresh token row, which simply goes unused.
func (c *Client) Logout() {
	c.mu.Lock()
	c.accessToken = ""
	c.refreshToken = ""
	c.mu.Unlock()
}

// Refresh exchanges the refresh token for a new pair.
func (c *Client) Refresh(ctx context.Context) error {
	c.mu.RLock()
	rt := c.refreshToken
	c.mu.RUnlock()
	if rt == "" {
		return common.ErrUnauthorized
	}

	var tokens wire.TokenResponse
	err := c.doJSON(ctx, http.MethodPost, "/api/auth/refresh",
		wire.RefreshRequest{RefreshToken: rt}, &tokens, false)
	if err != nil {
		return err
	}
	c.setTokens(tokens)
	return nil
}

// Ping probes server availability. Unauthenticated.
func (c *Client) Ping(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodGet, "/api/health", nil, nil, false)
}

// GetAllNotes pulls the full server state for reconciliation.
func (c *Client) GetAllNotes(ctx context.Context) ([]wire.NotePayload, error) {
	var resp wire.NotesResponse
	if err := c.doJSON(ctx, http.MethodGet, "/api/notes", nil, &resp, true); err != nil {
		return nil, err
	}
	return resp.Notes, nil
}

func (c *Client) BatchCreateNotes(ctx context.Context, req wire.BatchCreateRequest) (*wire.BatchResponse, error) {
	var resp wire.BatchResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/notes/batch-create", req, &resp, true); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) BatchUpdateNotes(ctx context.Context, req wire.BatchUpdateRequest) (*wire.BatchResponse, error) {
	var resp wire.BatchResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/notes/batch-update", req, &resp, true); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) BatchDeleteNotes(ctx context.Context, req wire.BatchDeleteRequest) (*wire.BatchResponse, error) {
	var resp wire.BatchResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/notes/batch-delete", req, &resp, true); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) setTokens(t wire.TokenResponse) {
	c.mu.Lock()
	c.accessToken = t.AccessToken
	c.refreshToken = t.RefreshToken
	c.mu.Unlock()
}

// doJSON performs one request with JSON encoding both ways. When authed
// is set, the access token goes on the request and a 401 triggers a
// single refresh-and-retry.
func (c *Client) doJSON(ctx context.Context, method, path string, body, out any, authed bool) error {
	status, err := c.once(ctx, method, path, body, out, authed)
	if err != nil {
		return err
	}
	if status == http.StatusUnauthorized && authed {
		if err := c.Refresh(ctx); err != nil {
			c.Logout()
			return common.ErrUnauthorized
		}
		status, err = c.once(ctx, method, path, body, out, authed)
		if err != nil {
			return err
		}
	}
	return statusError(status)
}

func (c *Client) once(ctx context.Context, method, path string, body, out any, authed bool) (int, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(common.ClientIDHeader, c.clientID)
	if authed {
		c.mu.RLock()
		token := c.accessToken
		c.mu.RUnlock()
		req.Header.Set(common.AuthorizationHeader, "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 && out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("decoding %s response: %w", path, err)
		}
	}
	return resp.StatusCode, nil
}

// statusError maps HTTP statuses to the client's sentinel errors.
func statusError(status int) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusUnauthorized:
		return common.ErrUnauthorized
	case status == http.StatusConflict:
		return common.ErrEmailAlreadyExists
	case status == http.StatusNotFound:
		return common.ErrNotFound
	case status >= 500:
		return fmt.Errorf("%w: server returned %d", common.ErrInternal, status)
	default:
		return fmt.Errorf("unexpected status %d", status)
	}
}
