package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"sync"
	"time"

	"tasks-serverless/internal/task"
)

const (
	refreshPath      = "/api/auth/refresh-token"
	requestTimeout   = 10 * time.Second
	maxResponseBytes = 4 << 20
)

// ErrSessionExpired is returned when a renewal attempt fails: the cached token
// is gone and the caller has to log in again.
var ErrSessionExpired = errors.New("session expired")

// APIError carries a server-provided message verbatim.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return e.Message
}

type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Client talks to the task API and owns the token lifecycle on the caller's
// side. The refresh token lives in the cookie jar; the access token is cached
// in memory and attached as a bearer header.
//
// Renewal is a two-state machine guarded by mu: idle and refreshing. The first
// request to observe a 401 starts the one renewal call; every request that
// fails while it is in flight parks on a waiter channel and is resolved, in
// arrival order, with the outcome of that single call.
type Client struct {
	baseURL string
	http    *http.Client

	mu          sync.Mutex
	accessToken string
	refreshing  bool
	waiters     []chan refreshResult
	onExpired   func()
}

type refreshResult struct {
	token string
	err   error
}

func NewClient(baseURL string) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}

	return &Client{
		baseURL: baseURL,
		http: &http.Client{
			Jar:     jar,
			Timeout: requestTimeout,
		},
	}, nil
}

// OnSessionExpired registers the callback fired when a renewal attempt fails.
// The UI uses it to fall back to the login screen.
func (c *Client) OnSessionExpired(fn func()) {
	c.mu.Lock()
	c.onExpired = fn
	c.mu.Unlock()
}

func (c *Client) AccessToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.accessToken
}

func (c *Client) setAccessToken(token string) {
	c.mu.Lock()
	c.accessToken = token
	c.mu.Unlock()
}

type sessionResponse struct {
	Message     string `json:"message"`
	User        User   `json:"user"`
	AccessToken string `json:"accessToken"`
}

func (c *Client) Signup(ctx context.Context, username, email, password string) (User, error) {
	var resp sessionResponse
	err := c.doPublic(ctx, http.MethodPost, "/api/auth/signup", map[string]string{
		"username": username,
		"email":    email,
		"password": password,
	}, &resp)
	if err != nil {
		return User{}, err
	}

	c.setAccessToken(resp.AccessToken)
	return resp.User, nil
}

func (c *Client) Login(ctx context.Context, email, password string) (User, error) {
	var resp sessionResponse
	err := c.doPublic(ctx, http.MethodPost, "/api/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, &resp)
	if err != nil {
		return User{}, err
	}

	c.setAccessToken(resp.AccessToken)
	return resp.User, nil
}

func (c *Client) Logout(ctx context.Context) error {
	err := c.do(ctx, http.MethodPost, "/api/auth/logout", nil, nil)
	c.setAccessToken("")
	return err
}

func (c *Client) Me(ctx context.Context) (User, error) {
	var resp struct {
		User User `json:"user"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/auth/me", nil, &resp); err != nil {
		return User{}, err
	}
	return resp.User, nil
}

func (c *Client) Profile(ctx context.Context) (User, error) {
	var user User
	if err := c.do(ctx, http.MethodGet, "/api/profile", nil, &user); err != nil {
		return User{}, err
	}
	return user, nil
}

func (c *Client) UpdateProfile(ctx context.Context, username string) (User, error) {
	var user User
	err := c.do(ctx, http.MethodPut, "/api/profile", map[string]string{"username": username}, &user)
	if err != nil {
		return User{}, err
	}
	return user, nil
}

func (c *Client) ListTasks(ctx context.Context, query string, completed *bool) ([]task.Task, error) {
	values := url.Values{}
	if query != "" {
		values.Set("q", query)
	}
	if completed != nil {
		values.Set("completed", strconv.FormatBool(*completed))
	}

	path := "/api/tasks"
	if encoded := values.Encode(); encoded != "" {
		path += "?" + encoded
	}

	var tasks []task.Task
	if err := c.do(ctx, http.MethodGet, path, nil, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

func (c *Client) CreateTask(ctx context.Context, input task.CreateInput) (task.Task, error) {
	var created task.Task
	if err := c.do(ctx, http.MethodPost, "/api/tasks", input, &created); err != nil {
		return task.Task{}, err
	}
	return created, nil
}

func (c *Client) UpdateTask(ctx context.Context, id string, input task.UpdateInput) (task.Task, error) {
	var updated task.Task
	if err := c.do(ctx, http.MethodPut, "/api/tasks/"+id, input, &updated); err != nil {
		return task.Task{}, err
	}
	return updated, nil
}

func (c *Client) DeleteTask(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/tasks/"+id, nil, nil)
}

// do performs a protected round-trip. On a 401 it obtains a fresh access token
// through the single-flight renewal and replays the request exactly once; a
// request that 401s after its replay fails without triggering another renewal.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	status, data, err := c.roundTrip(ctx, method, path, body, c.AccessToken())
	if err != nil {
		return err
	}

	if status == http.StatusUnauthorized {
		token, refreshErr := c.refreshAccessToken(ctx)
		if refreshErr != nil {
			return refreshErr
		}
		status, data, err = c.roundTrip(ctx, method, path, body, token)
		if err != nil {
			return err
		}
	}

	return decode(status, data, out)
}

// doPublic skips the renewal path: a 401 from login or signup is a final answer.
func (c *Client) doPublic(ctx context.Context, method, path string, body, out any) error {
	status, data, err := c.roundTrip(ctx, method, path, body, "")
	if err != nil {
		return err
	}
	return decode(status, data, out)
}

// refreshAccessToken guarantees at most one renewal call is in flight. Callers
// arriving while one is pending park on a buffered channel and are settled in
// FIFO order once it returns.
func (c *Client) refreshAccessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.refreshing {
		waiter := make(chan refreshResult, 1)
		c.waiters = append(c.waiters, waiter)
		c.mu.Unlock()

		select {
		case result := <-waiter:
			return result.token, result.err
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	c.refreshing = true
	c.mu.Unlock()

	token, err := c.callRefresh(ctx)

	c.mu.Lock()
	c.refreshing = false
	waiters := c.waiters
	c.waiters = nil
	if err != nil {
		c.accessToken = ""
	} else {
		c.accessToken = token
	}
	onExpired := c.onExpired
	c.mu.Unlock()

	for _, waiter := range waiters {
		waiter <- refreshResult{token: token, err: err}
	}

	if err != nil && onExpired != nil {
		onExpired()
	}

	return token, err
}

func (c *Client) callRefresh(ctx context.Context) (string, error) {
	status, data, err := c.roundTrip(ctx, http.MethodPost, refreshPath, nil, "")
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSessionExpired, err)
	}
	if status != http.StatusOK {
		return "", ErrSessionExpired
	}

	var resp struct {
		AccessToken string `json:"accessToken"`
	}
	if err := json.Unmarshal(data, &resp); err != nil || resp.AccessToken == "" {
		return "", ErrSessionExpired
	}

	return resp.AccessToken, nil
}

func (c *Client) roundTrip(ctx context.Context, method, path string, body any, token string) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return 0, nil, fmt.Errorf("read response: %w", err)
	}

	return resp.StatusCode, data, nil
}

func decode(status int, data []byte, out any) error {
	if status >= 400 {
		return apiErrorFrom(status, data)
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func apiErrorFrom(status int, data []byte) error {
	var body struct {
		Message string `json:"message"`
	}
	_ = json.Unmarshal(data, &body)
	if body.Message == "" {
		body.Message = "something went wrong"
	}
	return &APIError{StatusCode: status, Message: body.Message}
}
