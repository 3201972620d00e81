package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/aussiebroadwan/accounts/internal/accounts/domain"
	"github.com/aussiebroadwan/accounts/internal/accounts/store"
	"github.com/aussiebroadwan/accounts/pkg/idx"
	"github.com/aussiebroadwan/accounts/pkg/validate"
)

// usersTaken looks up username and email uniqueness, ignoring exceptID so
// an update can keep its own values.
func usersTaken(ctx context.Context, users store.Users, exceptID string) takenFunc {
	return func(field, value string) (bool, error) {
		var (
			u   domain.User
			err error
		)
		switch field {
		case "username":
			u, err = users.GetUserByUsername(ctx, value)
		case "email":
			u, err = users.GetUserByEmail(ctx, value)
		default:
			return false, fmt.Errorf("no uniqueness lookup for %q", field)
		}

		if errors.Is(err, store.ErrNotFound) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		return u.ID != exceptID, nil
	}
}

// conflictAsInvalid reports a unique violation raised by the database as the
// same field-keyed message the pre-check would have produced.
func conflictAsInvalid(err error, msg string, msgs validate.Messages) (*Error, bool) {
	var ce *store.ConflictError
	if !errors.As(err, &ce) {
		return nil, false
	}
	fields := validate.Errors{}
	fields.Add(ce.Field, msgs.Taken(ce.Field))
	return invalidInput(msg, fields), true
}

// findUser loads a user by id. Unparseable or unknown ids are NotFound.
func findUser(ctx context.Context, users store.Users, id string) (domain.User, error) {
	parsed, err := idx.Parse(id)
	if err != nil {
		return domain.User{}, notFound(MsgUserNotFound)
	}

	u, err := users.GetUserByID(ctx, parsed.String())
	if errors.Is(err, store.ErrNotFound) {
		return domain.User{}, notFound(MsgUserNotFound)
	}
	if err != nil {
		return domain.User{}, internal(MsgFailedToRetrieveUser, err)
	}
	return u, nil
}
