package user

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	ProviderLocal  = "local"
	ProviderGitHub = "github"
)

var (
	ErrNotFound   = errors.New("user not found")
	ErrEmailTaken = errors.New("email already in use")
)

type User struct {
	ID             string    `json:"id"`
	Email          string    `json:"email"`
	PasswordHash   string    `json:"-"` // never expose hash in JSON
	Provider       string    `json:"provider"`
	ProviderUserID string    `json:"-"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// HasPassword is false for accounts created through an OAuth provider.
// Those accounts can never pass a password login.
func (u User) HasPassword() bool {
	return u.PasswordHash != ""
}

// Public is the shape handed to clients next to a session token.
type Public struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

func (u User) Public() Public {
	return Public{ID: u.ID, Email: u.Email}
}

// NormalizeEmail trims and lower-cases an address so lookups and the unique
// index agree.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func NewLocal(email, passwordHash string) User {
	now := time.Now().UTC()

	return User{
		ID:           uuid.NewString(),
		Email:        NormalizeEmail(email),
		PasswordHash: passwordHash,
		Provider:     ProviderLocal,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func NewExternal(email, provider, providerUserID string) User {
	now := time.Now().UTC()

	return User{
		ID:             uuid.NewString(),
		Email:          NormalizeEmail(email),
		Provider:       provider,
		ProviderUserID: providerUserID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}
