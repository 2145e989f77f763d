package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/geocoder89/taskdeck/internal/domain/user"
	"github.com/geocoder89/taskdeck/internal/http/middlewares"
	"github.com/geocoder89/taskdeck/internal/observability"
	"github.com/geocoder89/taskdeck/internal/security"
	"github.com/gin-gonic/gin"
)

const invalidCredentials = "Invalid email or password"

type UserStore interface {
	GetByEmail(ctx context.Context, email string) (user.User, error)
	GetByID(ctx context.Context, id string) (user.User, error)
	Create(ctx context.Context, u user.User) (user.User, error)
}

type TokenIssuer interface {
	GenerateAccessToken(userID, email string) (string, error)
}

type AuthHandler struct {
	users UserStore
	jwt   TokenIssuer
	prom  *observability.Prom
}

func NewAuthHandler(users UserStore, jwtManager TokenIssuer, prom *observability.Prom) *AuthHandler {
	return &AuthHandler{
		users: users,
		jwt:   jwtManager,
		prom:  prom,
	}
}

type CredentialsRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6,bcrypt_len"`
}

type SessionResponse struct {
	Token string      `json:"token"`
	User  user.Public `json:"user"`
}

func (h *AuthHandler) SignUp(ctx *gin.Context) {
	var req CredentialsRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	hash, err := security.HashPassword(req.Password)
	if err != nil {
		RespondInternal(ctx, "Could not create user")
		return
	}

	u, err := h.users.Create(cctx, user.NewLocal(req.Email, hash))
	if err != nil {
		if errors.Is(err, user.ErrEmailTaken) {
			h.prom.AuthResult("signup", "conflict")
			RespondConflict(ctx, "email_taken", "User already exists")
			return
		}

		slog.ErrorContext(ctx.Request.Context(), "signup failed", "err", err)
		RespondInternal(ctx, "Could not create user")
		return
	}

	token, err := h.jwt.GenerateAccessToken(u.ID, u.Email)
	if err != nil {
		RespondInternal(ctx, "Could not generate access token")
		return
	}

	h.prom.AuthResult("signup", "ok")
	ctx.JSON(http.StatusCreated, SessionResponse{Token: token, User: u.Public()})
}

// Login answers unknown emails, password-less accounts and wrong passwords
// with the same 401, and spends a bcrypt comparison on each of them.
func (h *AuthHandler) Login(ctx *gin.Context) {
	var req CredentialsRequest

	if !BindJSON(ctx, &req) {
		return
	}

	// short timeout for DB lookup
	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	found, err := h.users.GetByEmail(cctx, req.Email)
	if err != nil {
		if !errors.Is(err, user.ErrNotFound) {
			slog.ErrorContext(ctx.Request.Context(), "login lookup failed", "err", err)
			RespondInternal(ctx, "Could not log in")
			return
		}
		_ = security.CheckAgainstDummy(req.Password)
		h.fail(ctx)
		return
	}

	if !found.HasPassword() {
		_ = security.CheckAgainstDummy(req.Password)
		h.fail(ctx)
		return
	}

	if err := security.CheckPassword(found.PasswordHash, req.Password); err != nil {
		h.fail(ctx)
		return
	}

	token, err := h.jwt.GenerateAccessToken(found.ID, found.Email)
	if err != nil {
		RespondInternal(ctx, "Could not generate access token")
		return
	}

	h.prom.AuthResult("password", "ok")
	ctx.JSON(http.StatusOK, SessionResponse{Token: token, User: found.Public()})
}

func (h *AuthHandler) fail(ctx *gin.Context) {
	h.prom.AuthResult("password", "invalid")
	RespondUnAuthorized(ctx, "invalid_credentials", invalidCredentials)
}

func (h *AuthHandler) Me(ctx *gin.Context) {
	userID, ok := middlewares.UserIDFromContext(ctx)
	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity context")
		return
	}

	u, err := h.users.GetByID(ctx.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondNotFound(ctx, "User not found")
			return
		}
		RespondInternal(ctx, "Could not load user")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"user": u})
}
