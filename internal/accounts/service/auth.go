package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/aussiebroadwan/accounts/internal/accounts/domain"
	"github.com/aussiebroadwan/accounts/internal/accounts/store"
	"github.com/aussiebroadwan/accounts/internal/accounts/tokens"
	"github.com/aussiebroadwan/accounts/pkg/idx"
	"github.com/aussiebroadwan/accounts/pkg/slogx"
)

// AuthService registers users and manages their bearer tokens.
type AuthService struct {
	Store  store.Store
	Hasher CredentialHasher
	Tokens tokens.Issuer
	Now    func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

func NewAuthService(s store.Store, hasher CredentialHasher, issuer tokens.Issuer) *AuthService {
	return &AuthService{Store: s, Hasher: hasher, Tokens: issuer, Now: time.Now}
}

func (s *AuthService) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

// LoginResult is returned by a successful login. Token is shown once.
type LoginResult struct {
	Token     string
	User      domain.User
	ExpiresAt time.Time
}

// Register creates a user. No token is issued; the caller logs in next.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (domain.User, error) {
	l := slogx.FromContext(ctx)

	req.normalise()
	if err := req.validate(usersTaken(ctx, s.Store.Users(), "")); err != nil {
		return domain.User{}, fromValidation(err, MsgInvalidInput, MsgFailedToRegister)
	}

	hash, err := s.Hasher.Hash(req.Password.String())
	if err != nil {
		l.Error("failed to hash password", slog.Any("error", err))
		return domain.User{}, internal(MsgFailedToRegister, err)
	}

	now := s.now()
	user := domain.User{
		ID:           idx.New().String(),
		Name:         req.Name.String(),
		Username:     req.Username.String(),
		Email:        req.Email.String(),
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		return tx.Users().CreateUser(ctx, user)
	})
	if err != nil {
		if ie, ok := conflictAsInvalid(err, MsgInvalidInput, registerMessages); ok {
			return domain.User{}, ie
		}
		l.Error("failed to create user", slog.Any("error", err))
		return domain.User{}, internal(MsgFailedToRegister, err)
	}

	l.Info("user registered", slog.String("user_id", user.ID))
	return user, nil
}

// Login verifies credentials and issues a token. An unknown username and a
// wrong password are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (LoginResult, error) {
	l := slogx.FromContext(ctx)

	if err := req.Validate(); err != nil {
		return LoginResult{}, fromValidation(err, MsgInvalidInput, MsgFailedToLogin)
	}

	user, err := s.Store.Users().GetUserByUsername(ctx, req.Username.String())
	switch {
	case errors.Is(err, store.ErrNotFound):
		s.burnVerify(req.Password.String())
		l.Info("login failed", slog.String("reason", "unknown_username"))
		return LoginResult{}, unauthorized(MsgIncorrectCredentials)
	case err != nil:
		l.Error("failed to load user for login", slog.Any("error", err))
		return LoginResult{}, internal(MsgFailedToLogin, err)
	}

	ok, err := s.Hasher.Verify(req.Password.String(), user.PasswordHash)
	if err != nil {
		l.Warn("stored password hash could not be checked",
			slog.String("user_id", user.ID), slog.Any("error", err))
	}
	if !ok {
		l.Info("login failed", slog.String("user_id", user.ID), slog.String("reason", "bad_password"))
		return LoginResult{}, unauthorized(MsgIncorrectCredentials)
	}

	s.upgradeHash(ctx, user, req.Password.String())

	tok, err := s.Tokens.Issue(ctx, user.ID)
	if err != nil {
		l.Error("failed to issue token", slog.String("user_id", user.ID), slog.Any("error", err))
		return LoginResult{}, internal(MsgFailedToLogin, err)
	}

	l.Info("user logged in", slog.String("user_id", user.ID))
	return LoginResult{Token: tok.Value, User: user, ExpiresAt: tok.ExpiresAt}, nil
}

// burnVerify spends the same hashing work a real verify would, so response
// time does not reveal whether the username exists.
func (s *AuthService) burnVerify(password string) {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = s.Hasher.Hash("not-a-real-password")
	})
	if s.dummyHash != "" {
		_, _ = s.Hasher.Verify(password, s.dummyHash)
	}
}

// upgradeHash rewrites legacy or outdated hashes after a successful login.
// Failure only costs the upgrade.
func (s *AuthService) upgradeHash(ctx context.Context, user domain.User, password string) {
	rh, ok := s.Hasher.(rehasher)
	if !ok || !rh.NeedsRehash(user.PasswordHash) {
		return
	}

	l := slogx.FromContext(ctx)
	hash, err := s.Hasher.Hash(password)
	if err == nil {
		err = s.Store.Users().UpdatePasswordHash(ctx, user.ID, hash, s.now())
	}
	if err != nil {
		l.Warn("failed to upgrade password hash", slog.String("user_id", user.ID), slog.Any("error", err))
		return
	}
	l.Info("password hash upgraded", slog.String("user_id", user.ID))
}

// Logout revokes exactly the presented token.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if err := s.Tokens.Revoke(ctx, token); err != nil {
		slogx.FromContext(ctx).Error("failed to revoke token", slog.Any("error", err))
		return internal(MsgFailedToLogout, err)
	}
	return nil
}

// Authenticate resolves a bearer token to its user. Unknown, expired, and
// revoked tokens, and tokens of deleted users, are Unauthorized.
func (s *AuthService) Authenticate(ctx context.Context, token string) (domain.User, error) {
	userID, err := s.Tokens.Resolve(ctx, token)
	switch {
	case errors.Is(err, tokens.ErrInvalidToken):
		return domain.User{}, unauthorized(MsgUnauthenticated)
	case err != nil:
		return domain.User{}, internal(MsgFailedToAuthenticate, err)
	}

	user, err := s.Store.Users().GetUserByID(ctx, userID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return domain.User{}, unauthorized(MsgUnauthenticated)
	case err != nil:
		return domain.User{}, internal(MsgFailedToAuthenticate, err)
	}

	return user, nil
}
