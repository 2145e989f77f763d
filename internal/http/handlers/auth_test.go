package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/geocoder89/taskdeck/internal/auth"
	"github.com/geocoder89/taskdeck/internal/domain/user"
	"github.com/geocoder89/taskdeck/internal/http/handlers"
	"github.com/geocoder89/taskdeck/internal/repo/memory"
	"github.com/gin-gonic/gin"
)

const testSecret = "test-secret"

func authEngine(users handlers.UserStore) (*gin.Engine, *auth.Manager) {
	jwtManager := auth.NewManager(testSecret, 24*time.Hour)
	h := handlers.NewAuthHandler(users, jwtManager, nil)

	r := gin.New()
	r.POST("/api/auth/signup", h.SignUp)
	r.POST("/api/auth/login", h.Login)
	return r, jwtManager
}

type sessionBody struct {
	Token string `json:"token"`
	User  struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
}

func TestSignUpThenLogin(t *testing.T) {
	r, jwtManager := authEngine(memory.NewUsersRepo())

	w := doJSON(r, http.MethodPost, "/api/auth/signup", `{"email":"a@x.com","password":"secret1"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("signup got %d body=%s", w.Code, w.Body.String())
	}

	var signed sessionBody
	if err := json.Unmarshal(w.Body.Bytes(), &signed); err != nil {
		t.Fatalf("decode signup: %v", err)
	}
	if signed.User.Email != "a@x.com" || signed.User.ID == "" {
		t.Fatalf("unexpected user: %+v", signed.User)
	}

	w = doJSON(r, http.MethodPost, "/api/auth/login", `{"email":"A@x.com","password":"secret1"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("login got %d body=%s", w.Code, w.Body.String())
	}

	var logged sessionBody
	if err := json.Unmarshal(w.Body.Bytes(), &logged); err != nil {
		t.Fatalf("decode login: %v", err)
	}

	claims, err := jwtManager.VerifyAccessToken(logged.Token)
	if err != nil {
		t.Fatalf("token does not verify: %v", err)
	}
	if claims.Subject != signed.User.ID || claims.Email != "a@x.com" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestSignUpValidationAndConflict(t *testing.T) {
	r, _ := authEngine(memory.NewUsersRepo())

	tests := []struct {
		name string
		body string
		want int
	}{
		{name: "bad email", body: `{"email":"nope","password":"secret1"}`, want: http.StatusBadRequest},
		{name: "short password", body: `{"email":"b@x.com","password":"123"}`, want: http.StatusBadRequest},
		{name: "missing fields", body: `{}`, want: http.StatusBadRequest},
		{name: "password over bcrypt limit", body: `{"email":"b@x.com","password":"` + strings.Repeat("p", 80) + `"}`, want: http.StatusBadRequest},
		{name: "multibyte password over bcrypt limit", body: `{"email":"b@x.com","password":"` + strings.Repeat("é", 40) + `"}`, want: http.StatusBadRequest},
		{name: "created", body: `{"email":"b@x.com","password":"secret1"}`, want: http.StatusCreated},
		{name: "duplicate", body: `{"email":"B@x.com","password":"secret2"}`, want: http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(r, http.MethodPost, "/api/auth/signup", tt.body)
			if w.Code != tt.want {
				t.Fatalf("got %d, want %d, body=%s", w.Code, tt.want, w.Body.String())
			}
		})
	}
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	users := memory.NewUsersRepo()
	r, _ := authEngine(users)

	if w := doJSON(r, http.MethodPost, "/api/auth/signup", `{"email":"c@x.com","password":"secret1"}`); w.Code != http.StatusCreated {
		t.Fatalf("signup got %d", w.Code)
	}
	if _, err := users.Create(context.Background(), user.NewExternal("gh@x.com", user.ProviderGitHub, "7")); err != nil {
		t.Fatalf("seed github user: %v", err)
	}

	bodies := []string{
		`{"email":"c@x.com","password":"wrong-pass"}`,
		`{"email":"nobody@x.com","password":"wrong-pass"}`,
		`{"email":"gh@x.com","password":"wrong-pass"}`,
	}

	var first string
	for i, body := range bodies {
		w := doJSON(r, http.MethodPost, "/api/auth/login", body)
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("case %d: got %d body=%s", i, w.Code, w.Body.String())
		}

		var resp struct {
			Message string `json:"message"`
			Error   struct {
				Code string `json:"code"`
			} `json:"error"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if resp.Message != "Invalid email or password" || resp.Error.Code != "invalid_credentials" {
			t.Fatalf("case %d: unexpected body %s", i, w.Body.String())
		}

		got := resp.Message + "|" + resp.Error.Code
		if first == "" {
			first = got
		} else if got != first {
			t.Fatalf("case %d differs: %q vs %q", i, got, first)
		}
	}
}

type failingUsers struct {
	handlers.UserStore
}

func (failingUsers) GetByEmail(context.Context, string) (user.User, error) {
	return user.User{}, errors.New("db down")
}

func TestLoginStoreFailureIsNotReportedAsBadCredentials(t *testing.T) {
	r, _ := authEngine(failingUsers{})

	w := doJSON(r, http.MethodPost, "/api/auth/login", `{"email":"c@x.com","password":"secret1"}`)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("got %d, want 500", w.Code)
	}
}

func TestMe(t *testing.T) {
	users := memory.NewUsersRepo()
	u, _ := users.Create(context.Background(), user.NewLocal("me@x.com", "hash"))
	h := handlers.NewAuthHandler(users, auth.NewManager(testSecret, time.Hour), nil)

	w := doJSON(setupRouter(http.MethodGet, "/me", h.Me, withUser(u.ID)), http.MethodGet, "/me", "")
	if w.Code != http.StatusOK {
		t.Fatalf("got %d body=%s", w.Code, w.Body.String())
	}

	w = doJSON(setupRouter(http.MethodGet, "/me", h.Me, withUser("gone")), http.MethodGet, "/me", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("vanished user: got %d", w.Code)
	}
}
