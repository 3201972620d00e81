package postgres

import (
	"errors"
	"fmt"

	"github.com/aussiebroadwan/accounts/internal/accounts/store"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

// mapConstraint turns unique_violation into *store.ConflictError keyed by
// the constraint that fired.
func mapConstraint(err error) error {
	var pge *pgconn.PgError
	if !errors.As(err, &pge) || pge.Code != uniqueViolation {
		return fmt.Errorf("db error: %w", err)
	}

	switch pge.ConstraintName {
	case "users_username_unique":
		return &store.ConflictError{Field: "username"}
	case "users_email_unique":
		return &store.ConflictError{Field: "email"}
	case "access_tokens_token_hash_unique":
		return &store.ConflictError{Field: "token_hash"}
	}
	return store.ErrAlreadyExists
}
