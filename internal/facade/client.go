// Package facade is the client side of the server: a REST client for the
// lobby and a WebSocket connection for live games.
package facade

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/park285/cheese-chess-server/pkg/chessdto"
	"github.com/valyala/fasthttp"
)

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("chess api error: status=%d message=%s", e.Status, e.Message)
}

// ErrNotLoggedIn is returned by calls that need a token before Register or Login.
var ErrNotLoggedIn = errors.New("not logged in")

type Client struct {
	baseURL string
	http    *fasthttp.Client

	defaultTimeout time.Duration
	retryMax       int

	mu    sync.RWMutex
	token string
	user  string
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.defaultTimeout = d }
}

func WithMaxConnsPerHost(n int) Option {
	return func(c *Client) { c.http.MaxConnsPerHost = n }
}

// WithRetry sets the attempt count for idempotent calls.
func WithRetry(max int) Option {
	return func(c *Client) { c.retryMax = max }
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		http:           &fasthttp.Client{ReadTimeout: 10 * time.Second, WriteTimeout: 10 * time.Second, MaxConnsPerHost: 64},
		defaultTimeout: 10 * time.Second,
		retryMax:       3,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Token is the current auth token, empty when logged out.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) Username() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.user
}

func (c *Client) setAuth(resp chessdto.AuthResponse) {
	c.mu.Lock()
	c.token, c.user = resp.AuthToken, resp.Username
	c.mu.Unlock()
}

func (c *Client) Register(ctx context.Context, username, password, email string) error {
	var resp chessdto.AuthResponse
	req := chessdto.RegisterRequest{Username: username, Password: password, Email: email}
	if err := c.doJSON(ctx, fasthttp.MethodPost, "/user", "", req, &resp, false); err != nil {
		return err
	}
	c.setAuth(resp)
	return nil
}

func (c *Client) Login(ctx context.Context, username, password string) error {
	var resp chessdto.AuthResponse
	req := chessdto.LoginRequest{Username: username, Password: password}
	if err := c.doJSON(ctx, fasthttp.MethodPost, "/session", "", req, &resp, false); err != nil {
		return err
	}
	c.setAuth(resp)
	return nil
}

func (c *Client) Logout(ctx context.Context) error {
	token, err := c.requireToken()
	if err != nil {
		return err
	}
	if err := c.doJSON(ctx, fasthttp.MethodDelete, "/session", token, nil, nil, false); err != nil {
		return err
	}
	c.setAuth(chessdto.AuthResponse{})
	return nil
}

func (c *Client) CreateGame(ctx context.Context, name string) (int, error) {
	token, err := c.requireToken()
	if err != nil {
		return 0, err
	}
	var resp chessdto.CreateGameResponse
	if err := c.doJSON(ctx, fasthttp.MethodPost, "/game", token, chessdto.CreateGameRequest{GameName: name}, &resp, false); err != nil {
		return 0, err
	}
	return resp.GameID, nil
}

func (c *Client) ListGames(ctx context.Context) ([]chessdto.GameSummary, error) {
	token, err := c.requireToken()
	if err != nil {
		return nil, err
	}
	var resp chessdto.ListGamesResponse
	if err := c.doJSON(ctx, fasthttp.MethodGet, "/game", token, nil, &resp, true); err != nil {
		return nil, err
	}
	return resp.Games, nil
}

// JoinGame claims color ("WHITE"/"BLACK"); an empty color observes.
func (c *Client) JoinGame(ctx context.Context, gameID int, color string) error {
	token, err := c.requireToken()
	if err != nil {
		return err
	}
	req := chessdto.JoinGameRequest{PlayerColor: color, GameID: gameID}
	return c.doJSON(ctx, fasthttp.MethodPut, "/game", token, req, nil, true)
}

func (c *Client) Clear(ctx context.Context) error {
	return c.doJSON(ctx, fasthttp.MethodDelete, "/db", "", nil, nil, true)
}

// BoardPNG fetches the rendered board of gameID.
func (c *Client) BoardPNG(ctx context.Context, gameID int, perspective string) ([]byte, error) {
	token, err := c.requireToken()
	if err != nil {
		return nil, err
	}
	path := "/game/" + strconv.Itoa(gameID) + "/board.png"
	if perspective != "" {
		path += "?perspective=" + perspective
	}
	var out []byte
	err = c.do(ctx, fasthttp.MethodGet, path, token, nil, true, func(resp *fasthttp.Response) error {
		out = append([]byte(nil), resp.Body()...)
		return nil
	})
	return out, err
}

func (c *Client) requireToken() (string, error) {
	token := c.Token()
	if token == "" {
		return "", ErrNotLoggedIn
	}
	return token, nil
}

func (c *Client) doJSON(ctx context.Context, method, path, token string, in, out any, retry bool) error {
	var body []byte
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = payload
	}
	return c.do(ctx, method, path, token, body, retry, func(resp *fasthttp.Response) error {
		if out == nil {
			return nil
		}
		if err := json.Unmarshal(resp.Body(), out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	})
}

func (c *Client) do(ctx context.Context, method, path, token string, body []byte, retry bool, onOK func(*fasthttp.Response) error) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(method)
	req.SetRequestURI(c.baseURL + path)
	req.Header.SetContentType("application/json")
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	if body != nil {
		req.SetBody(body)
	}

	attempts := 1
	if retry && c.retryMax > 1 {
		attempts = c.retryMax
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := c.http.DoDeadline(req, resp, c.computeDeadline(ctx)); err != nil {
			lastErr = fmt.Errorf("request failed: %w", err)
		} else if status := resp.StatusCode(); status < 200 || status >= 300 {
			lastErr = apiError(status, resp.Body())
			if !shouldRetryStatus(status) {
				return lastErr
			}
		} else {
			return onOK(resp)
		}
		if attempt == attempts {
			break
		}
		if err := sleepWithContext(ctx, backoffDuration(attempt)); err != nil {
			return lastErr
		}
	}
	return lastErr
}

func apiError(status int, body []byte) error {
	var er chessdto.ErrorResponse
	if err := json.Unmarshal(body, &er); err != nil || er.Message == "" {
		er.Message = truncate(string(body), 512)
	}
	return &APIError{Status: status, Message: er.Message}
}

func (c *Client) computeDeadline(ctx context.Context) time.Time {
	clientDL := time.Now().Add(c.defaultTimeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(clientDL) {
		return dl
	}
	return clientDL
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// backoffDuration doubles from 100ms and caps at the sixth attempt.
func backoffDuration(attempt int) time.Duration {
	attempt = min(max(attempt, 1), 6)
	return time.Duration(1<<uint(attempt-1)) * 100 * time.Millisecond
}

func shouldRetryStatus(code int) bool {
	switch code {
	case 500, 502, 503, 504:
		return true
	}
	return false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
