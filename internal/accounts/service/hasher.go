package service

import (
	"errors"

	"github.com/aussiebroadwan/accounts/pkg/cryptox"
)

// CredentialHasher hashes and verifies passwords.
type CredentialHasher interface {
	Hash(password string) (string, error)

	// Verify reports whether password matches hash. A mismatch is
	// (false, nil); err is reserved for hashes that cannot be checked.
	Verify(password, hash string) (bool, error)
}

// PasswordHasher is the production CredentialHasher: Argon2id with the
// server pepper, accepting legacy bcrypt hashes on verify.
type PasswordHasher struct{}

func (PasswordHasher) Hash(password string) (string, error) {
	return cryptox.HashPassword(password)
}

func (PasswordHasher) Verify(password, hash string) (bool, error) {
	err := cryptox.VerifyPassword(password, hash)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, cryptox.ErrPasswordMismatch):
		return false, nil
	default:
		return false, err
	}
}

// NeedsRehash reports whether hash should be upgraded after a successful
// login.
func (PasswordHasher) NeedsRehash(hash string) bool {
	return cryptox.NeedsRehash(hash)
}

type rehasher interface {
	NeedsRehash(hash string) bool
}
