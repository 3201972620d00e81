package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/accounts/internal/accounts/domain"
	"github.com/aussiebroadwan/accounts/internal/accounts/store"
	"github.com/aussiebroadwan/accounts/pkg/cryptox"
	"github.com/aussiebroadwan/accounts/pkg/idx"
	"github.com/aussiebroadwan/accounts/pkg/slogx"
)

var ErrSeedIncomplete = errors.New("seed admin requires a username")

// SeedAdmin describes the first account created on an empty database.
type SeedAdmin struct {
	Name     string
	Username string
	Email    string
	Password string // generated when empty, see SeedResult
}

// BootstrapService creates the first administrator so a fresh install can
// log in at all.
type BootstrapService struct {
	Store  store.Store
	Hasher CredentialHasher
}

// SeedResult reports what SeedAdmin did. GeneratedPassword is only set when
// the password was generated, and is not logged.
type SeedResult struct {
	Created           bool
	UserID            string
	GeneratedPassword string
}

// SeedAdmin creates admin when no users exist yet. Created is false when
// the database already had users.
func (s *BootstrapService) SeedAdmin(ctx context.Context, admin SeedAdmin) (SeedResult, error) {
	l := slogx.FromContext(ctx)

	if admin.Username == "" {
		return SeedResult{}, ErrSeedIncomplete
	}

	empty, err := s.Store.Users().IsEmpty(ctx)
	if err != nil {
		return SeedResult{}, err
	}
	if !empty {
		l.Debug("users exist, skipping admin seed")
		return SeedResult{}, nil
	}

	generated := false
	if admin.Password == "" {
		admin.Password, err = cryptox.GeneratePassword()
		if err != nil {
			return SeedResult{}, err
		}
		generated = true
	}
	if admin.Name == "" {
		admin.Name = admin.Username
	}
	if admin.Email == "" {
		admin.Email = admin.Username + "@localhost"
	}

	hash, err := s.Hasher.Hash(admin.Password)
	if err != nil {
		l.Error("failed to hash admin password", slog.Any("error", err))
		return SeedResult{}, err
	}

	now := time.Now().UTC()
	user := domain.User{
		ID:           idx.New().String(),
		Name:         admin.Name,
		Username:     admin.Username,
		Email:        admin.Email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		return tx.Users().CreateUser(ctx, user)
	})
	if err != nil {
		l.Error("failed to create admin user", slog.Any("error", err))
		return SeedResult{}, err
	}

	l.Warn("seeded admin user",
		slog.String("user_id", user.ID),
		slog.String("username", user.Username),
		slog.Bool("generated_password", generated))

	res := SeedResult{Created: true, UserID: user.ID}
	if generated {
		res.GeneratedPassword = admin.Password
	}
	return res, nil
}
