package sqlite

import (
	"errors"
	"strings"

	"github.com/aussiebroadwan/accounts/internal/accounts/store"
	modernc "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// mapConstraint turns a UNIQUE violation into *store.ConflictError. SQLite
// reports the column as "UNIQUE constraint failed: users.email".
func mapConstraint(err error) error {
	var se *modernc.Error
	if !errors.As(err, &se) {
		return err
	}
	if se.Code() != sqlite3.SQLITE_CONSTRAINT_UNIQUE && se.Code()&0xff != sqlite3.SQLITE_CONSTRAINT {
		return err
	}

	msg := se.Error()
	if !strings.Contains(msg, "UNIQUE") {
		return err
	}

	switch {
	case strings.Contains(msg, "users.username"):
		return &store.ConflictError{Field: "username"}
	case strings.Contains(msg, "users.email"):
		return &store.ConflictError{Field: "email"}
	case strings.Contains(msg, "access_tokens.token_hash"):
		return &store.ConflictError{Field: "token_hash"}
	}
	return store.ErrAlreadyExists
}
