package service

import (
	"strconv"

	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/aussiebroadwan/accounts/pkg/validate"
)

// takenFunc reports whether value is already used for field by another user.
type takenFunc func(field, value string) (bool, error)

var noop = validation.By(func(interface{}) error { return nil })

func (f takenFunc) rule(msgs validate.Messages, field string) validation.Rule {
	if f == nil {
		return noop
	}
	return msgs.Unique(field, func(v string) (bool, error) { return f(field, v) })
}

// Field messages the API has always returned, per endpoint.
var (
	registerMessages = validate.Messages{
		"name.required":     "Name is required.",
		"name.string":       "Name must be a string.",
		"name.max":          "Name must not exceed 255 characters.",
		"username.required": "Username is required.",
		"username.string":   "Username must be a string.",
		"username.max":      "Username must not exceed 255 characters.",
		"username.unique":   "Username is already taken.",
		"email.required":    "Email is required.",
		"email.string":      "Email must be a string.",
		"email.max":         "Email must not exceed 255 characters.",
		"email.unique":      "This email is already registered.",
		"password.required": "Password is required.",
		"password.string":   "Password must be a string.",
		"password.min":      "Password must be at least 8 characters long.",
	}

	loginMessages = validate.Messages{
		"username.required": "Username is required.",
		"username.string":   "Username must be a string.",
		"password.required": "Password is required.",
		"password.string":   "Password must be a string.",
		"password.min":      "Password must be at least 8 characters long.",
	}

	listMessages = validate.Messages{
		"search.string":    "The search field must be a string.",
		"search.max":       "The search field may not be greater than 255 characters.",
		"per_page.integer": "The per page field must be an integer.",
		"page.integer":     "The page field must be an integer.",
	}

	createMessages = validate.Messages{
		"name.required":             "Name is required.",
		"name.string":               "Name must be a valid string.",
		"name.max":                  "Name cannot exceed 255 characters.",
		"username.required":         "Username is required.",
		"username.string":           "Username must be a valid string.",
		"username.max":              "Username cannot exceed 255 characters.",
		"username.unique":           "Username already exists.",
		"email.required":            "Email is required.",
		"email.string":              "Email must be a string.",
		"email.email":               "Email format is invalid.",
		"email.max":                 "Email cannot exceed 255 characters.",
		"email.unique":              "This email is already registered.",
		"password.required":         "Password is required.",
		"password.string":           "Password must be a string.",
		"password.min":              "Password must be at least 8 characters.",
		"confirm_password.required": "Confirm password is required.",
		"confirm_password.string":   "Confirm password must be a string.",
		"confirm_password.min":      "Confirm password must be at least 8 characters.",
		"confirm_password.same":     "Confirm password must match the password.",
	}

	updateMessages = validate.Messages{
		"name.required":     "Name is required when provided.",
		"name.string":       "Name must be a valid string.",
		"name.min":          "Name must be at least 4 characters.",
		"name.max":          "Name may not be greater than 100 characters.",
		"username.required": "Username is required.",
		"username.string":   "Username must be a string.",
		"username.min":      "Username must be at least 4 characters.",
		"username.max":      "Username cannot exceed 100 characters.",
		"username.unique":   "Username already exists.",
		"email.string":      "Email must be a string.",
		"email.email":       "Email format is invalid.",
		"email.max":         "Email cannot exceed 255 characters.",
		"email.unique":      "This email is already registered.",
		"password.string":   "Password must be a string.",
		"password.min":      "Password must be at least 8 characters.",
	}

	passwordMessages = validate.Messages{
		"password.required":         "Password is required.",
		"password.string":           "Password must be a string.",
		"password.min":              "Password must be at least 8 characters.",
		"password.max":              "Password may not be greater than 100 characters.",
		"confirm_password.required": "Confirm password is required.",
		"confirm_password.string":   "Confirm password must be a string.",
		"confirm_password.min":      "Confirm password must be at least 8 characters.",
		"confirm_password.max":      "Confirm password may not be greater than 100 characters.",
		"confirm_password.same":     "Confirm password must match the password.",
	}

	deleteMessages = validate.Messages{
		"confirm_password.required": "Confirm password is required.",
		"confirm_password.string":   "Confirm password must be a string.",
		"confirm_password.min":      "Confirm password must be at least 8 characters.",
		"confirm_password.max":      "Confirm password may not be greater than 100 characters.",
	}
)

type RegisterRequest struct {
	Name     validate.Text `json:"name"`
	Username validate.Text `json:"username"`
	Email    validate.Text `json:"email"`
	Password validate.Text `json:"password"`
}

func (r *RegisterRequest) normalise() {
	r.Name = r.Name.Trimmed()
	r.Username = r.Username.Trimmed()
	r.Email = r.Email.Trimmed()
}

// Validate checks the request shape without uniqueness.
func (r RegisterRequest) Validate() error { return r.validate(nil) }

func (r RegisterRequest) validate(taken takenFunc) error {
	m := registerMessages
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name,
			m.Required("name"), m.String("name"), m.Max("name", 255)),
		validation.Field(&r.Username,
			m.Required("username"), m.String("username"), m.Max("username", 255),
			taken.rule(m, "username")),
		validation.Field(&r.Email,
			m.Required("email"), m.String("email"),
			m.Max("email", 255), taken.rule(m, "email")),
		validation.Field(&r.Password,
			m.Required("password"), m.String("password"), m.Min("password", 8)),
	)
}

type LoginRequest struct {
	Username validate.Text `json:"username"`
	Password validate.Text `json:"password"`
}

func (r LoginRequest) Validate() error {
	m := loginMessages
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, m.Required("username"), m.String("username")),
		validation.Field(&r.Password,
			m.Required("password"), m.String("password"), m.Min("password", 8)),
	)
}

const (
	DefaultPerPage = 10
	MaxPerPage     = 100
)

// ListUsersRequest carries the raw query parameters of a listing.
type ListUsersRequest struct {
	Search  validate.Text `json:"search"`
	PerPage validate.Text `json:"per_page"`
	Page    validate.Text `json:"page"`
}

func (r ListUsersRequest) Validate() error {
	m := listMessages
	return validation.ValidateStruct(&r,
		validation.Field(&r.Search, m.String("search"), m.Max("search", 255)),
		validation.Field(&r.PerPage, m.Integer("per_page", 1, MaxPerPage)),
		validation.Field(&r.Page, m.Integer("page", 1, 0)),
	)
}

// intOr parses a validated integer field, falling back to def when blank.
func intOr(t validate.Text, def int) int {
	n, err := strconv.Atoi(t.Trimmed().String())
	if err != nil {
		return def
	}
	return n
}

type CreateUserRequest struct {
	Name            validate.Text `json:"name"`
	Username        validate.Text `json:"username"`
	Email           validate.Text `json:"email"`
	Password        validate.Text `json:"password"`
	ConfirmPassword validate.Text `json:"confirm_password"`
}

func (r *CreateUserRequest) normalise() {
	r.Name = r.Name.Trimmed()
	r.Username = r.Username.Trimmed()
	r.Email = r.Email.Trimmed()
}

func (r CreateUserRequest) Validate() error { return r.validate(nil) }

func (r CreateUserRequest) validate(taken takenFunc) error {
	m := createMessages
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name,
			m.Required("name"), m.String("name"), m.Max("name", 255)),
		validation.Field(&r.Username,
			m.Required("username"), m.String("username"), m.Max("username", 255),
			taken.rule(m, "username")),
		validation.Field(&r.Email,
			m.Required("email"), m.String("email"), m.Email("email"),
			m.Max("email", 255), taken.rule(m, "email")),
		validation.Field(&r.Password,
			m.Required("password"), m.String("password"), m.Min("password", 8)),
		validation.Field(&r.ConfirmPassword,
			m.Required("confirm_password"), m.String("confirm_password"),
			m.Min("confirm_password", 8), m.Same("confirm_password", "password", r.Password)),
	)
}

// UpdateUserRequest replaces name and username. Email and password are
// only changed when a non-empty value is sent.
type UpdateUserRequest struct {
	Name     validate.Text `json:"name"`
	Username validate.Text `json:"username"`
	Email    validate.Text `json:"email"`
	Password validate.Text `json:"password"`
}

func (r *UpdateUserRequest) normalise() {
	r.Name = r.Name.Trimmed()
	r.Username = r.Username.Trimmed()
	r.Email = r.Email.Trimmed()
}

func (r UpdateUserRequest) Validate() error { return r.validate(nil) }

func (r UpdateUserRequest) validate(taken takenFunc) error {
	m := updateMessages
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name,
			m.Required("name"), m.String("name"),
			m.Min("name", 4), m.Max("name", 100)),
		validation.Field(&r.Username,
			m.Required("username"), m.String("username"),
			m.Min("username", 4), m.Max("username", 100), taken.rule(m, "username")),
		validation.Field(&r.Email,
			m.String("email"), m.Email("email"), m.Max("email", 255),
			taken.rule(m, "email")),
		validation.Field(&r.Password, m.String("password"), m.Min("password", 8)),
	)
}

type UpdatePasswordRequest struct {
	Password        validate.Text `json:"password"`
	ConfirmPassword validate.Text `json:"confirm_password"`
}

func (r UpdatePasswordRequest) Validate() error {
	m := passwordMessages
	return validation.ValidateStruct(&r,
		validation.Field(&r.Password,
			m.Required("password"), m.String("password"),
			m.Min("password", 8), m.Max("password", 100)),
		validation.Field(&r.ConfirmPassword,
			m.Required("confirm_password"), m.String("confirm_password"),
			m.Min("confirm_password", 8), m.Max("confirm_password", 100),
			m.Same("confirm_password", "password", r.Password)),
	)
}

type DeleteUserRequest struct {
	ConfirmPassword validate.Text `json:"confirm_password"`
}

func (r DeleteUserRequest) Validate() error {
	m := deleteMessages
	return validation.ValidateStruct(&r,
		validation.Field(&r.ConfirmPassword,
			m.Required("confirm_password"), m.String("confirm_password"),
			m.Min("confirm_password", 8), m.Max("confirm_password", 100)),
	)
}
