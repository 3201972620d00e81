package accountsdk

import (
	"time"

	"github.com/aussiebroadwan/accounts/pkg/jwtx"
)

// User is the public projection of an account. It never carries the
// password hash.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MessageResponse is the body of every acknowledgement.
type MessageResponse struct {
	Message string `json:"message"`
}

// LoginData is the data block of a successful login.
type LoginData struct {
	Token string `json:"token"`
	User  User   `json:"user"`
	// ExpiredAt is UTC, formatted with ExpiredAtLayout.
	ExpiredAt string `json:"expired_at"`
}

// ExpiredAtLayout is the layout of LoginData.ExpiredAt.
const ExpiredAtLayout = "2006-01-02 15:04:05"

// ExpiresAt parses ExpiredAt.
func (d LoginData) ExpiresAt() (time.Time, error) {
	return time.ParseInLocation(ExpiredAtLayout, d.ExpiredAt, time.UTC)
}

// LoginResponse is the body of POST /login.
type LoginResponse struct {
	Message string    `json:"message"`
	Data    LoginData `json:"data"`
}

// UserResponse wraps a single user.
type UserResponse struct {
	Message string `json:"message"`
	Data    User   `json:"data"`
}

// Meta describes one page of a listing.
type Meta struct {
	CurrentPage int   `json:"current_page"`
	PerPage     int   `json:"per_page"`
	Total       int64 `json:"total"`
	LastPage    int   `json:"last_page"`
}

// UserListResponse is the body of GET /users.
type UserListResponse struct {
	Message string `json:"message"`
	Data    []User `json:"data"`
	Meta    Meta   `json:"meta"`
}

// HealthResponse is returned by /livez and /readyz.
type HealthResponse struct {
	Status  string            `json:"status"`
	Uptime  string            `json:"uptime,omitempty"`
	Version string            `json:"version,omitempty"`
	Checks  map[string]string `json:"checks,omitempty"`
}

// RegisterRequest is the body of POST /register.
type RegisterRequest struct {
	Name     string `json:"name"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest is the body of POST /login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// CreateUserRequest is the body of POST /users.
type CreateUserRequest struct {
	Name            string `json:"name"`
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

// UpdateUserRequest is the body of PUT/PATCH /users/{id}. Empty Email or
// Password keep the stored value.
type UpdateUserRequest struct {
	Name     string `json:"name"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	Password string `json:"password,omitempty"`
}

// UpdatePasswordRequest is the body of PATCH /users/{id}/password.
type UpdatePasswordRequest struct {
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

// DeleteUserRequest is the body of DELETE /users/{id}.
type DeleteUserRequest struct {
	ConfirmPassword string `json:"confirm_password"`
}

// ListUsersParams are the query parameters of GET /users. Zero values are
// omitted so the server defaults apply.
type ListUsersParams struct {
	Search  string
	PerPage int
	Page    int
}

// FieldErrorsResponse is a validation failure keyed under "errors"
// (register, update password, delete).
type FieldErrorsResponse struct {
	Message string              `json:"message"`
	Errors  map[string][]string `json:"errors"`
}

// ValidationResponse is a validation failure keyed under "validation"
// (login, list, create, update).
type ValidationResponse struct {
	Message    string              `json:"message"`
	Validation map[string][]string `json:"validation"`
}

// InternalErrorResponse is a failed write. Errors carries the cause when
// the server exposes internal errors.
type InternalErrorResponse struct {
	Message string `json:"message"`
	Errors  string `json:"errors,omitempty"`
}

// JWKSResponse is the body of GET /.well-known/jwks.json. The endpoint only
// exists when the service issues JWTs.
type JWKSResponse jwtx.JWKS
