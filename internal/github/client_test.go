package github

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/geocoder89/taskdeck/internal/config"
)

type fakeProvider struct {
	tokenBody  string
	userBody   string
	emailsBody string
	emailCalls int
}

func (f *fakeProvider) server(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/login/oauth/access_token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(f.tokenBody))
	})
	mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer gho_test" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(f.userBody))
	})
	mux.HandleFunc("/user/emails", func(w http.ResponseWriter, r *http.Request) {
		f.emailCalls++
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(f.emailsBody))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(srv *httptest.Server) *Client {
	return NewClient(config.GitHubConfig{
		ClientID:     "id",
		ClientSecret: "secret",
		AuthURL:      srv.URL + "/login/oauth/authorize",
		TokenURL:     srv.URL + "/login/oauth/access_token",
		APIURL:       srv.URL,
		Timeout:      2 * time.Second,
	}, WithHTTPClient(srv.Client()))
}

func TestResolveEmailFallbacks(t *testing.T) {
	tests := []struct {
		name           string
		userBody       string
		emailsBody     string
		wantEmail      string
		wantEmailCalls int
	}{
		{
			name:           "public profile email",
			userBody:       `{"id":1,"login":"bob","email":"bob@public.dev"}`,
			emailsBody:     `[]`,
			wantEmail:      "bob@public.dev",
			wantEmailCalls: 0,
		},
		{
			name:           "primary from emails endpoint",
			userBody:       `{"id":1,"login":"bob","email":null}`,
			emailsBody:     `[{"email":"other@x.com","primary":false},{"email":"b@x.com","primary":true}]`,
			wantEmail:      "b@x.com",
			wantEmailCalls: 1,
		},
		{
			name:           "synthesized from login",
			userBody:       `{"id":1,"login":"bob"}`,
			emailsBody:     `[]`,
			wantEmail:      "bob@github.com",
			wantEmailCalls: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fp := &fakeProvider{
				tokenBody:  `{"access_token":"gho_test","token_type":"bearer","scope":"read:user"}`,
				userBody:   tt.userBody,
				emailsBody: tt.emailsBody,
			}
			c := newTestClient(fp.server(t))

			id, err := c.Resolve(context.Background(), "code-1")
			if err != nil {
				t.Fatalf("resolve: %v", err)
			}
			if id.Email != tt.wantEmail {
				t.Fatalf("email = %q, want %q", id.Email, tt.wantEmail)
			}
			if id.ProviderUserID != "1" || id.Login != "bob" {
				t.Fatalf("unexpected identity: %+v", id)
			}
			if fp.emailCalls != tt.wantEmailCalls {
				t.Fatalf("emails endpoint called %d times, want %d", fp.emailCalls, tt.wantEmailCalls)
			}
		})
	}
}

func TestExchangeWithoutAccessToken(t *testing.T) {
	tests := []struct {
		name      string
		tokenBody string
	}{
		{name: "empty object", tokenBody: `{}`},
		{name: "provider error", tokenBody: `{"error":"bad_verification_code","error_description":"The code passed is incorrect or expired."}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fp := &fakeProvider{tokenBody: tt.tokenBody}
			c := newTestClient(fp.server(t))

			_, err := c.Resolve(context.Background(), "bad")
			if !errors.Is(err, ErrNoAccessToken) {
				t.Fatalf("expected ErrNoAccessToken, got %v", err)
			}
		})
	}
}

func TestAuthCodeURL(t *testing.T) {
	fp := &fakeProvider{}
	c := newTestClient(fp.server(t))

	u := c.AuthCodeURL("state-1")
	for _, want := range []string{"client_id=id", "scope=read%3Auser+user%3Aemail", "state=state-1"} {
		if !strings.Contains(u, want) {
			t.Fatalf("authorize url %q missing %q", u, want)
		}
	}
}

func TestRejectedCodesKeepBreakerClosed(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/login/oauth/access_token", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		w.Header().Set("Content-Type", "application/json")
		if r.PostForm.Get("code") != "good" {
			_, _ = w.Write([]byte(`{"error":"bad_verification_code","error_description":"The code passed is incorrect or expired."}`))
			return
		}
		_, _ = w.Write([]byte(`{"access_token":"gho_test","token_type":"bearer"}`))
	})
	mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":7,"login":"ann","email":"ann@x.com"}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	b := NewBreaker(BreakerConfig{FailureThreshold: 2, Cooldown: time.Minute, Timeout: 2 * time.Second})
	c := NewClient(config.GitHubConfig{
		ClientID:     "id",
		ClientSecret: "secret",
		TokenURL:     srv.URL + "/login/oauth/access_token",
		APIURL:       srv.URL,
	}, WithHTTPClient(srv.Client()), WithBreaker(b))

	for i := 0; i < 5; i++ {
		if _, err := c.Resolve(context.Background(), "stale-code"); !errors.Is(err, ErrNoAccessToken) {
			t.Fatalf("call %d: expected ErrNoAccessToken, got %v", i, err)
		}
	}
	if b.State() != stateClosed {
		t.Fatalf("state = %s after rejected codes, want closed", b.State())
	}

	id, err := c.Resolve(context.Background(), "good")
	if err != nil || id.Email != "ann@x.com" {
		t.Fatalf("valid code after rejected ones: id=%+v err=%v", id, err)
	}
}

func TestProviderOutageOpensBreaker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	b := NewBreaker(BreakerConfig{FailureThreshold: 2, Cooldown: time.Minute, Timeout: 2 * time.Second})
	c := NewClient(config.GitHubConfig{
		ClientID:     "id",
		ClientSecret: "secret",
		TokenURL:     srv.URL + "/login/oauth/access_token",
		APIURL:       srv.URL,
	}, WithHTTPClient(srv.Client()), WithBreaker(b))

	for i := 0; i < 2; i++ {
		_, _ = c.Resolve(context.Background(), "any")
	}
	if b.State() != stateOpen {
		t.Fatalf("state = %s after 5xx answers, want open", b.State())
	}
	if _, err := c.Resolve(context.Background(), "any"); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
}

func TestIsOutage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "transport", err: errors.New("dial tcp: connection refused"), want: true},
		{name: "api 401", err: &APIError{Path: "/user", Status: http.StatusUnauthorized}, want: false},
		{name: "api 503", err: &APIError{Path: "/user", Status: http.StatusServiceUnavailable}, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isOutage(tt.err); got != tt.want {
				t.Fatalf("isOutage(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
