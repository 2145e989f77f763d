package db

import (
	"context"
	"errors"
	"log/slog"

	"github.com/geocoder89/taskdeck/internal/config"
	"github.com/geocoder89/taskdeck/internal/domain/user"
	"github.com/geocoder89/taskdeck/internal/security"
)

type SeedUserStore interface {
	GetByEmail(ctx context.Context, email string) (user.User, error)
	Create(ctx context.Context, u user.User) (user.User, error)
}

// EnsureSeedUser creates the SEED_EMAIL account with a local password on
// first boot. It is a no-op when unset or when the account already exists.
func EnsureSeedUser(ctx context.Context, users SeedUserStore, cfg config.Config) error {
	if cfg.SeedEmail == "" || cfg.SeedPassword == "" {
		return nil
	}

	// check if the user exists
	_, err := users.GetByEmail(ctx, user.NormalizeEmail(cfg.SeedEmail))

	if err == nil {
		return nil
	}

	if !errors.Is(err, user.ErrNotFound) {
		return err
	}

	hash, err := security.HashPassword(cfg.SeedPassword)

	if err != nil {
		return err
	}

	u, err := users.Create(ctx, user.NewLocal(cfg.SeedEmail, hash))

	if errors.Is(err, user.ErrEmailTaken) {
		return nil
	}
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "seed user created", "user_id", u.ID, "email", u.Email)
	return nil
}
