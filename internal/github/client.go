package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/geocoder89/taskdeck/internal/config"
	"github.com/geocoder89/taskdeck/internal/observability"
	"golang.org/x/oauth2"
)

var ErrNoAccessToken = errors.New("failed to get access token from GitHub")

// Scopes requested on the authorize redirect.
var Scopes = []string{"read:user", "user:email"}

// Identity is what the callback needs to find or create a local user.
type Identity struct {
	ProviderUserID string
	Login          string
	Email          string
}

type profile struct {
	ID    int64  `json:"id"`
	Login string `json:"login"`
	Email string `json:"email"`
}

type emailEntry struct {
	Email    string `json:"email"`
	Primary  bool   `json:"primary"`
	Verified bool   `json:"verified"`
}

type Client struct {
	oauth      *oauth2.Config
	apiURL     string
	httpClient *http.Client
	breaker    *Breaker
	prom       *observability.Prom
}

type Option func(*Client)

// WithHTTPClient sets the base client used for the token exchange and API calls.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithBreaker(b *Breaker) Option {
	return func(c *Client) { c.breaker = b }
}

func WithMetrics(p *observability.Prom) Option {
	return func(c *Client) { c.prom = p }
}

func NewClient(cfg config.GitHubConfig, opts ...Option) *Client {
	c := &Client{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.AuthURL,
				TokenURL:  cfg.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		apiURL:     strings.TrimRight(cfg.APIURL, "/"),
		httpClient: http.DefaultClient,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.breaker == nil {
		c.breaker = NewBreaker(BreakerConfig{Timeout: cfg.Timeout})
	}

	return c
}

// AuthCodeURL is the provider consent page the browser is sent to.
func (c *Client) AuthCodeURL(state string) string {
	return c.oauth.AuthCodeURL(state)
}

func (c *Client) withHTTPClient(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
}

// Exchange trades an authorization code for an access token.
func (c *Client) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	var tok *oauth2.Token

	err := c.call(ctx, "token", func(ctx context.Context) error {
		var err error
		tok, err = c.oauth.Exchange(c.withHTTPClient(ctx), code)
		return err
	})

	if err != nil {
		var rErr *oauth2.RetrieveError
		if errors.As(err, &rErr) && rErr.ErrorCode != "" {
			msg := rErr.ErrorCode
			if rErr.ErrorDescription != "" {
				msg = rErr.ErrorDescription
			}
			return nil, fmt.Errorf("%w: %s", ErrNoAccessToken, msg)
		}
		// x/oauth2 reports a 200 response without access_token as an
		// untyped error, so it never reaches the token check below.
		if strings.Contains(err.Error(), "missing access_token") {
			return nil, ErrNoAccessToken
		}
		return nil, fmt.Errorf("token exchange: %w", err)
	}

	if tok == nil || tok.AccessToken == "" {
		return nil, ErrNoAccessToken
	}
	return tok, nil
}

// Resolve runs the whole provider side of the callback: code exchange,
// profile lookup and email resolution.
func (c *Client) Resolve(ctx context.Context, code string) (Identity, error) {
	tok, err := c.Exchange(ctx, code)
	if err != nil {
		return Identity{}, err
	}
	return c.FetchIdentity(ctx, tok)
}

// FetchIdentity reads the profile and falls back to the primary address from
// the emails endpoint, then to {login}@github.com.
func (c *Client) FetchIdentity(ctx context.Context, tok *oauth2.Token) (Identity, error) {
	var p profile
	if err := c.getJSON(ctx, tok, "user", "/user", &p); err != nil {
		return Identity{}, err
	}

	id := Identity{
		ProviderUserID: strconv.FormatInt(p.ID, 10),
		Login:          p.Login,
		Email:          strings.TrimSpace(p.Email),
	}
	if id.Email != "" {
		return id, nil
	}

	var emails []emailEntry
	if err := c.getJSON(ctx, tok, "emails", "/user/emails", &emails); err != nil {
		return Identity{}, err
	}

	id.Email = PrimaryEmail(emails, p.Login)
	return id, nil
}

// PrimaryEmail picks the primary address or synthesizes one from the login.
func PrimaryEmail(emails []emailEntry, login string) string {
	for _, e := range emails {
		if e.Primary && e.Email != "" {
			return e.Email
		}
	}
	return login + "@github.com"
}

func (c *Client) getJSON(ctx context.Context, tok *oauth2.Token, step, path string, dst any) error {
	return c.call(ctx, step, func(ctx context.Context) error {
		hc := c.oauth.Client(c.withHTTPClient(ctx), tok)

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL+path, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "application/vnd.github+json")
		req.Header.Set("User-Agent", "taskdeck")

		resp, err := hc.Do(req)
		if err != nil {
			return fmt.Errorf("github %s: %w", path, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			var body struct {
				Message string `json:"message"`
			}
			_ = json.NewDecoder(resp.Body).Decode(&body)
			return &APIError{Path: path, Status: resp.StatusCode, Message: body.Message}
		}

		if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
			return fmt.Errorf("github %s: decode: %w", path, err)
		}
		return nil
	})
}

// call runs fn through the breaker. Only outages count against the circuit:
// a rejected code or a 4xx answer means GitHub is up and reports success to
// the breaker while the error still reaches the caller.
func (c *Client) call(ctx context.Context, step string, fn func(ctx context.Context) error) error {
	return c.prom.ObserveProvider(step, func() error {
		var rejected error

		err := c.breaker.Do(ctx, func(ctx context.Context) error {
			err := fn(ctx)
			if err != nil && !isOutage(err) {
				rejected = err
				return nil
			}
			return err
		})
		if rejected != nil {
			return rejected
		}
		return err
	})
}

// APIError is a non-2xx answer from the GitHub REST API.
type APIError struct {
	Path    string
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("github %s: %s", e.Path, e.Message)
	}
	return fmt.Sprintf("github %s: status %d", e.Path, e.Status)
}

// isOutage is true for transport failures, timeouts and 5xx answers.
func isOutage(err error) bool {
	var rErr *oauth2.RetrieveError
	if errors.As(err, &rErr) {
		if rErr.ErrorCode != "" {
			return false
		}
		return rErr.Response == nil || rErr.Response.StatusCode >= 500
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status >= 500
	}

	return true
}
