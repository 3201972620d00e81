package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aussiebroadwan/accounts/internal/accounts/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// ConflictError reports a unique constraint violation on Field ("username"
// or "email"). It matches ErrAlreadyExists with errors.Is.
type ConflictError struct {
	Field string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("store: %s already exists", e.Field)
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrAlreadyExists
}

// Store is the root data access interface. Concrete drivers (sqlite, postgres)
// implement this. Repositories hang off it so the same code runs inside and
// outside a transaction.
type Store interface {
	Users() Users
	AccessTokens() AccessTokens

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx runs fn in a transaction, committing when fn returns nil and
	// rolling back otherwise. Inside fn only use tx: with SQLite the outer
	// store shares the single connection and would block.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

// ListQuery selects one page of users.
type ListQuery struct {
	// Search is matched case-insensitively as a substring of name, username,
	// or email. Empty matches everything.
	Search string
	Limit  int
	Offset int
}

type Users interface {
	GetUserByID(ctx context.Context, id string) (domain.User, error)
	GetUserByUsername(ctx context.Context, username string) (domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	// CreateUser inserts u as given; the caller assigns ID and timestamps.
	// Unique violations come back as *ConflictError.
	CreateUser(ctx context.Context, u domain.User) error

	// UpdateUser writes name, username, email, password_hash, and updated_at.
	UpdateUser(ctx context.Context, u domain.User) error

	UpdatePasswordHash(ctx context.Context, userID, hash string, at time.Time) error

	// DeleteUser cascades to access_tokens (per schema). ErrNotFound when
	// no row matched.
	DeleteUser(ctx context.Context, userID string) error

	// ListUsers returns the page ordered by id ascending, and the total
	// number of matching rows.
	ListUsers(ctx context.Context, q ListQuery) ([]domain.User, int64, error)

	IsEmpty(ctx context.Context) (bool, error)
}

type AccessTokens interface {
	CreateAccessToken(ctx context.Context, t domain.AccessToken) error

	// GetAccessTokenByHash returns the token regardless of expiry.
	GetAccessTokenByHash(ctx context.Context, hash string) (domain.AccessToken, error)

	// TouchAccessToken sets last_used_at.
	TouchAccessToken(ctx context.Context, id string, at time.Time) error

	// DeleteAccessTokenByHash revokes one token. ErrNotFound when absent.
	DeleteAccessTokenByHash(ctx context.Context, hash string) error

	// DeleteUserAccessTokens revokes every token of a user.
	DeleteUserAccessTokens(ctx context.Context, userID string) (int64, error)

	// DeleteExpiredAccessTokens is housekeeping.
	DeleteExpiredAccessTokens(ctx context.Context, now time.Time) (int64, error)
}

// EscapeLike escapes the LIKE wildcards in s using backslash, for queries
// declared with ESCAPE '\'.
func EscapeLike(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		switch r {
		case '\\', '%', '_':
			out = append(out, '\\')
		}
		out = append(out, r)
	}
	return string(out)
}
