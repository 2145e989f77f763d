// Package client is a typed HTTP client for the taskdeck API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/geocoder89/taskdeck/internal/client/session"
	"github.com/geocoder89/taskdeck/internal/domain/task"
)

// ErrUnauthorized is returned when the API rejects the stored token,
// which is how an expired session surfaces.
var ErrUnauthorized = errors.New("unauthorized: session expired or invalid")

type Config struct {
	APIURL         string `env:"TASKDECK_API_URL" envDefault:"http://localhost:8080"`
	GitHubClientID string `env:"TASKDECK_GITHUB_CLIENT_ID"`
	GitHubRedirect string `env:"TASKDECK_GITHUB_REDIRECT_URI"`
	SessionFile    string `env:"TASKDECK_SESSION_FILE"`
}

func LoadConfig() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, err
	}
	if cfg.SessionFile == "" {
		cfg.SessionFile = session.DefaultPath()
	}
	return cfg, nil
}

// APIError carries the server's error envelope.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s (%d %s)", e.Message, e.Status, e.Code)
	}
	return fmt.Sprintf("%s (%d)", e.Message, e.Status)
}

type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// WithToken returns a copy that sends the bearer token.
func (c *Client) WithToken(token string) *Client {
	cp := *c
	cp.token = token
	return &cp
}

type AuthResponse struct {
	Token string       `json:"token"`
	User  session.User `json:"user"`
}

// Session converts an auth response into what the session store keeps.
func (r AuthResponse) Session() session.Session {
	return session.Session{Token: r.Token, User: r.User}
}

type Me struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Provider  string    `json:"provider"`
	CreatedAt time.Time `json:"createdAt"`
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (c *Client) SignUp(ctx context.Context, email, password string) (AuthResponse, error) {
	var out AuthResponse
	err := c.do(ctx, http.MethodPost, "/api/auth/signup", nil, credentials{email, password}, &out)
	return out, err
}

func (c *Client) Login(ctx context.Context, email, password string) (AuthResponse, error) {
	var out AuthResponse
	err := c.do(ctx, http.MethodPost, "/api/auth/login", nil, credentials{email, password}, &out)
	return out, err
}

func (c *Client) Me(ctx context.Context) (Me, error) {
	var out struct {
		User Me `json:"user"`
	}
	err := c.do(ctx, http.MethodGet, "/api/auth/me", nil, nil, &out)
	return out.User, err
}

type ListOptions struct {
	Status   []string
	Priority []string
	Type     string
	Query    string
	Favorite *bool
	Sort     string
	Order    string
	Page     int
	PageSize int
}

func (o ListOptions) values() url.Values {
	v := url.Values{}
	for _, s := range o.Status {
		v.Add("status", s)
	}
	for _, p := range o.Priority {
		v.Add("priority", p)
	}
	if o.Type != "" {
		v.Set("type", o.Type)
	}
	if o.Query != "" {
		v.Set("q", o.Query)
	}
	if o.Favorite != nil {
		v.Set("favorite", strconv.FormatBool(*o.Favorite))
	}
	if o.Sort != "" {
		v.Set("sort", o.Sort)
	}
	if o.Order != "" {
		v.Set("order", o.Order)
	}
	if o.Page > 0 {
		v.Set("page", strconv.Itoa(o.Page))
	}
	if o.PageSize > 0 {
		v.Set("pageSize", strconv.Itoa(o.PageSize))
	}
	return v
}

func (c *Client) ListTasks(ctx context.Context, opts ListOptions) (task.Page, error) {
	var out task.Page
	err := c.do(ctx, http.MethodGet, "/api/tasks", opts.values(), nil, &out)
	return out, err
}

func (c *Client) CreateTask(ctx context.Context, req task.CreateTaskRequest) (task.Task, error) {
	var out task.Task
	err := c.do(ctx, http.MethodPost, "/api/tasks", nil, req, &out)
	return out, err
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rdr = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, rdr)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return err
	}

	// Only bearer-authenticated calls map 401 to an expired session; a
	// failed login also answers 401 and must keep its message.
	if resp.StatusCode == http.StatusUnauthorized && c.token != "" {
		return ErrUnauthorized
	}
	if resp.StatusCode >= 400 {
		return decodeError(resp.StatusCode, raw)
	}

	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func decodeError(status int, raw []byte) error {
	var env struct {
		Message string `json:"message"`
		Error   struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	apiErr := &APIError{Status: status}
	if json.Unmarshal(raw, &env) == nil {
		apiErr.Code = env.Error.Code
		apiErr.Message = env.Message
		if apiErr.Message == "" {
			apiErr.Message = env.Error.Message
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(status)
	}
	return apiErr
}
