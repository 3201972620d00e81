package service

import (
	"errors"

	"github.com/aussiebroadwan/accounts/pkg/validate"
)

// Kind classifies a service failure. The HTTP layer picks the status code
// per route from it.
type Kind int

const (
	KindInvalidInput Kind = iota + 1
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid_input"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// Error is returned by every service operation that fails in a way the
// caller should see. Message is client-facing. Err is the internal cause
// and is only set for KindInternal.
type Error struct {
	Kind    Kind
	Message string
	Fields  validate.Errors
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the Kind of err, or 0 when err is not a *Error.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return 0
}

const (
	MsgIncorrectCredentials = "The username or password is incorrect."
	MsgUserNotFound         = "User not found."
	MsgCannotDeleteSelf     = "You cannot delete your own account."
	MsgConfirmPasswordWrong = "The confirm password does not match."
	MsgUnauthenticated      = "Unauthenticated."
	MsgInvalidInput         = "Invalid input."
	MsgInvalidInputCreate   = "Invalid Input."
	MsgValidationFailed     = "Validation failed."
	MsgFailedToCreateUser   = "Failed to create user."
	MsgFailedToUpdateUser   = "Failed to update user."
	MsgFailedToUpdatePass   = "Failed to update password."
	MsgFailedToDeleteUser   = "Failed to delete user."
	MsgFailedToRegister     = "Failed to register user."
	MsgFailedToLogin        = "Failed to login."
	MsgFailedToLogout       = "Failed to logout."
	MsgFailedToListUsers    = "Failed to retrieve users."
	MsgFailedToRetrieveUser = "Failed to retrieve user."
	MsgFailedToAuthenticate = "Failed to authenticate."
)

func invalidInput(msg string, fields validate.Errors) *Error {
	return &Error{Kind: KindInvalidInput, Message: msg, Fields: fields}
}

func notFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Message: msg}
}

func forbidden(msg string) *Error {
	return &Error{Kind: KindForbidden, Message: msg}
}

func unauthorized(msg string) *Error {
	return &Error{Kind: KindUnauthorized, Message: msg}
}

func internal(msg string, err error) *Error {
	return &Error{Kind: KindInternal, Message: msg, Err: err}
}

// fromValidation turns a ValidateStruct result into InvalidInput, or into
// an internal error when a rule itself failed (a uniqueness lookup, say).
func fromValidation(err error, invalidMsg, internalMsg string) error {
	if err == nil {
		return nil
	}
	if fields, ok := validate.From(err); ok {
		return invalidInput(invalidMsg, fields)
	}
	return internal(internalMsg, validate.Cause(err))
}
