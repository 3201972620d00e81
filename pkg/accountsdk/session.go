package accountsdk

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Session is an authenticated handle holding one bearer token.
type Session struct {
	client    *SDKClient
	token     string
	expiresAt time.Time
}

// Token returns the bearer token.
func (s *Session) Token() string { return s.token }

// ExpiresAt returns when the token expires, or the zero time if unknown.
func (s *Session) ExpiresAt() time.Time { return s.expiresAt }

// Logout revokes this session's token. The Session is unusable afterwards.
func (s *Session) Logout(ctx context.Context) error {
	resp, err := s.client.doRequest(ctx, http.MethodPost, "/logout", s.token, nil)
	if err != nil {
		return err
	}
	return decodeJSON(resp, nil, http.StatusOK)
}

// ListUsers returns one page of users.
func (s *Session) ListUsers(ctx context.Context, params ListUsersParams) (*UserListResponse, error) {
	q := url.Values{}
	if params.Search != "" {
		q.Set("search", params.Search)
	}
	if params.PerPage > 0 {
		q.Set("per_page", strconv.Itoa(params.PerPage))
	}
	if params.Page > 0 {
		q.Set("page", strconv.Itoa(params.Page))
	}

	path := "/users"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	resp, err := s.client.doRequest(ctx, http.MethodGet, path, s.token, nil)
	if err != nil {
		return nil, err
	}

	var out UserListResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetUser fetches a user by ID.
func (s *Session) GetUser(ctx context.Context, id string) (*User, error) {
	return s.userCall(ctx, http.MethodGet, "/users/"+url.PathEscape(id), nil, http.StatusOK)
}

// CreateUser creates a user.
func (s *Session) CreateUser(ctx context.Context, req CreateUserRequest) (*User, error) {
	return s.userCall(ctx, http.MethodPost, "/users", req, http.StatusCreated)
}

// UpdateUser replaces a user's profile with PUT.
func (s *Session) UpdateUser(ctx context.Context, id string, req UpdateUserRequest) (*User, error) {
	return s.userCall(ctx, http.MethodPut, "/users/"+url.PathEscape(id), req, http.StatusOK)
}

// PatchUser is UpdateUser sent with PATCH.
func (s *Session) PatchUser(ctx context.Context, id string, req UpdateUserRequest) (*User, error) {
	return s.userCall(ctx, http.MethodPatch, "/users/"+url.PathEscape(id), req, http.StatusOK)
}

// UpdatePassword sets a user's password.
func (s *Session) UpdatePassword(ctx context.Context, id, password, confirm string) error {
	resp, err := s.client.doRequest(ctx, http.MethodPatch, "/users/"+url.PathEscape(id)+"/password", s.token,
		UpdatePasswordRequest{Password: password, ConfirmPassword: confirm})
	if err != nil {
		return err
	}
	return decodeJSON(resp, nil, http.StatusOK)
}

// DeleteUser deletes a user. confirmPassword is the caller's own password.
func (s *Session) DeleteUser(ctx context.Context, id, confirmPassword string) error {
	resp, err := s.client.doRequest(ctx, http.MethodDelete, "/users/"+url.PathEscape(id), s.token,
		DeleteUserRequest{ConfirmPassword: confirmPassword})
	if err != nil {
		return err
	}
	return decodeJSON(resp, nil, http.StatusOK)
}

func (s *Session) userCall(ctx context.Context, method, path string, body any, expected int) (*User, error) {
	resp, err := s.client.doRequest(ctx, method, path, s.token, body)
	if err != nil {
		return nil, err
	}

	var out UserResponse
	if err := decodeJSON(resp, &out, expected); err != nil {
		return nil, err
	}
	return &out.Data, nil
}
