package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/geocoder89/taskdeck/internal/config"
	"github.com/geocoder89/taskdeck/internal/domain/user"
	"github.com/geocoder89/taskdeck/internal/github"
	"github.com/geocoder89/taskdeck/internal/observability"
	"github.com/gin-gonic/gin"
)

type IdentityResolver interface {
	AuthCodeURL(state string) string
	Resolve(ctx context.Context, code string) (github.Identity, error)
}

type ExternalUserStore interface {
	FindOrCreate(ctx context.Context, u user.User) (user.User, bool, error)
}

type GitHubAuthHandler struct {
	provider IdentityResolver
	users    ExternalUserStore
	jwt      TokenIssuer
	cfg      config.Config
	prom     *observability.Prom
}

func NewGitHubAuthHandler(provider IdentityResolver, users ExternalUserStore, jwtManager TokenIssuer, cfg config.Config, prom *observability.Prom) *GitHubAuthHandler {
	return &GitHubAuthHandler{
		provider: provider,
		users:    users,
		jwt:      jwtManager,
		cfg:      cfg,
		prom:     prom,
	}
}

func presence(v string) string {
	if v == "" {
		return "Missing"
	}
	return "Present"
}

func (h *GitHubAuthHandler) respondMisconfigured(ctx *gin.Context) {
	slog.ErrorContext(ctx.Request.Context(), "github oauth not configured",
		"client_id", presence(h.cfg.GitHub.ClientID),
		"client_secret", presence(h.cfg.GitHub.ClientSecret),
	)

	RespondError(ctx, http.StatusInternalServerError, "oauth_not_configured", "GitHub OAuth configuration is missing", gin.H{
		"clientId":     presence(h.cfg.GitHub.ClientID),
		"clientSecret": presence(h.cfg.GitHub.ClientSecret),
	})
}

// Login sends the browser to the GitHub consent page.
func (h *GitHubAuthHandler) Login(ctx *gin.Context) {
	if h.cfg.GitHub.ClientID == "" {
		h.respondMisconfigured(ctx)
		return
	}

	ctx.Redirect(http.StatusFound, h.provider.AuthCodeURL(""))
}

// Callback finishes the code flow. Input and configuration problems answer
// with JSON; everything after that ends in a redirect back to the frontend.
func (h *GitHubAuthHandler) Callback(ctx *gin.Context) {
	code := ctx.Query("code")
	if code == "" {
		RespondError(ctx, http.StatusBadRequest, "invalid_request", "Authorization code is required", nil)
		return
	}

	if !h.cfg.GitHubConfigured() {
		h.respondMisconfigured(ctx)
		return
	}

	redirect, err := h.complete(ctx.Request.Context(), code)
	if err != nil {
		slog.ErrorContext(ctx.Request.Context(), "github auth error", "err", err)
		h.prom.AuthResult("github", "error")
		ctx.Redirect(http.StatusFound, h.frontendAuthURL(url.Values{"error": {callbackMessage(err)}}))
		return
	}

	h.prom.AuthResult("github", "ok")
	ctx.Redirect(http.StatusFound, redirect)
}

func (h *GitHubAuthHandler) complete(ctx context.Context, code string) (string, error) {
	identity, err := h.provider.Resolve(ctx, code)
	if err != nil {
		return "", err
	}

	u, created, err := h.users.FindOrCreate(ctx, user.NewExternal(identity.Email, user.ProviderGitHub, identity.ProviderUserID))
	if err != nil {
		return "", err
	}
	if created {
		slog.InfoContext(ctx, "github user created", "user_id", u.ID, "login", identity.Login)
	}

	token, err := h.jwt.GenerateAccessToken(u.ID, u.Email)
	if err != nil {
		return "", err
	}

	payload, err := json.Marshal(u.Public())
	if err != nil {
		return "", err
	}

	return h.frontendAuthURL(url.Values{
		"token": {token},
		"user":  {string(payload)},
	}), nil
}

func (h *GitHubAuthHandler) frontendAuthURL(q url.Values) string {
	return h.cfg.FrontendURL + "/auth?" + q.Encode()
}

func callbackMessage(err error) string {
	switch {
	case errors.Is(err, github.ErrCircuitOpen):
		return "GitHub is temporarily unavailable. Please try again shortly."
	case errors.Is(err, context.DeadlineExceeded):
		return "GitHub did not respond in time"
	default:
		return err.Error()
	}
}
