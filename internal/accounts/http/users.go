package http

import (
	"net/http"

	"github.com/aussiebroadwan/accounts/internal/accounts/service"
	"github.com/aussiebroadwan/accounts/pkg/accountsdk"
	"github.com/aussiebroadwan/accounts/pkg/httpx"
)

type UsersHandler struct {
	UserAdminService *service.UserAdminService
	errs             *errorWriter
}

// HandleList lists users.
//
//	@Summary		List users
//	@Description	Paginated listing ordered by id. search matches name, username, or email, case-insensitively.
//	@Tags			Users
//	@Produce		json
//	@Param			search		query		string							false	"Substring to match"
//	@Param			per_page	query		int								false	"Page size (1-100, default 10)"
//	@Param			page		query		int								false	"Page number (default 1)"
//	@Success		200			{object}	accountsdk.UserListResponse		"Users and page metadata"
//	@Failure		400			{object}	accountsdk.ValidationResponse	"Invalid input"
//	@Failure		401			{object}	accountsdk.MessageResponse		"Unauthenticated."
//	@Security		BearerAuth
//	@Router			/users [get].
func (h *UsersHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	var req service.ListUsersRequest
	bindValues(r.URL.Query(), &req, false)

	res, err := h.UserAdminService.List(r.Context(), httpx.UserIDFromContext(r.Context()), req)
	if err != nil {
		h.errs.write(w, r, listInvalid, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, accountsdk.UserListResponse{
		Message: "Users retrieved successfully.",
		Data:    toUsers(res.Users),
		Meta: accountsdk.Meta{
			CurrentPage: res.Page,
			PerPage:     res.PerPage,
			Total:       res.Total,
			LastPage:    res.LastPage,
		},
	})
}

// HandleShow returns one user.
//
//	@Summary		Show user
//	@Tags			Users
//	@Produce		json
//	@Param			id	path		string						true	"User ID"
//	@Success		200	{object}	accountsdk.UserResponse		"The user"
//	@Failure		401	{object}	accountsdk.MessageResponse	"Unauthenticated."
//	@Failure		404	{object}	accountsdk.MessageResponse	"User not found."
//	@Security		BearerAuth
//	@Router			/users/{id} [get].
func (h *UsersHandler) HandleShow(w http.ResponseWriter, r *http.Request) {
	user, err := h.UserAdminService.Show(r.Context(), httpx.UserIDFromContext(r.Context()), r.PathValue("id"))
	if err != nil {
		h.errs.write(w, r, invalidShape{}, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, accountsdk.UserResponse{
		Message: "User retrieved successfully.",
		Data:    toUser(user),
	})
}

// HandleCreate creates a user.
//
//	@Summary		Create user
//	@Tags			Users
//	@Accept			json
//	@Produce		json
//	@Param			request	body		accountsdk.CreateUserRequest		true	"New user"
//	@Success		201		{object}	accountsdk.UserResponse				"Created"
//	@Failure		400		{object}	accountsdk.ValidationResponse		"Invalid Input."
//	@Failure		401		{object}	accountsdk.MessageResponse			"Unauthenticated."
//	@Failure		500		{object}	accountsdk.InternalErrorResponse	"Failed to create user."
//	@Security		BearerAuth
//	@Router			/users [post].
func (h *UsersHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req service.CreateUserRequest
	if !h.errs.bind(w, r, createInvalid, &req) {
		return
	}

	user, err := h.UserAdminService.Create(r.Context(), httpx.UserIDFromContext(r.Context()), req)
	if err != nil {
		h.errs.write(w, r, createInvalid, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, accountsdk.UserResponse{
		Message: "User are successfully saved.",
		Data:    toUser(user),
	})
}

// HandleUpdate replaces a user's name and username, and optionally email
// and password.
//
//	@Summary		Update user
//	@Description	name and username are always required. An absent or empty email or password keeps the stored value.
//	@Tags			Users
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string								true	"User ID"
//	@Param			request	body		accountsdk.UpdateUserRequest		true	"Changes"
//	@Success		200		{object}	accountsdk.UserResponse				"Updated"
//	@Failure		400		{object}	accountsdk.ValidationResponse		"Invalid input"
//	@Failure		401		{object}	accountsdk.MessageResponse			"Unauthenticated."
//	@Failure		404		{object}	accountsdk.MessageResponse			"User not found."
//	@Failure		500		{object}	accountsdk.InternalErrorResponse	"Failed to update user."
//	@Security		BearerAuth
//	@Router			/users/{id} [put]
//	@Router			/users/{id} [patch].
func (h *UsersHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req service.UpdateUserRequest
	if !h.errs.bind(w, r, updateInvalid, &req) {
		return
	}

	user, err := h.UserAdminService.Update(r.Context(), httpx.UserIDFromContext(r.Context()), r.PathValue("id"), req)
	if err != nil {
		h.errs.write(w, r, updateInvalid, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, accountsdk.UserResponse{
		Message: "User are successfully updated.",
		Data:    toUser(user),
	})
}

// HandleUpdatePassword sets a user's password.
//
//	@Summary		Update user password
//	@Tags			Users
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string								true	"User ID"
//	@Param			request	body		accountsdk.UpdatePasswordRequest	true	"New password"
//	@Success		200		{object}	accountsdk.MessageResponse			"Updated"
//	@Failure		401		{object}	accountsdk.MessageResponse			"Unauthenticated."
//	@Failure		404		{object}	accountsdk.MessageResponse			"User not found."
//	@Failure		422		{object}	accountsdk.FieldErrorsResponse		"Validation failed."
//	@Failure		500		{object}	accountsdk.InternalErrorResponse	"Failed to update password."
//	@Security		BearerAuth
//	@Router			/users/{id}/password [patch].
func (h *UsersHandler) HandleUpdatePassword(w http.ResponseWriter, r *http.Request) {
	var req service.UpdatePasswordRequest
	if !h.errs.bind(w, r, passwordInvalid, &req) {
		return
	}

	err := h.UserAdminService.UpdatePassword(r.Context(), httpx.UserIDFromContext(r.Context()), r.PathValue("id"), req)
	if err != nil {
		h.errs.write(w, r, passwordInvalid, err)
		return
	}

	httpx.WriteMessage(w, http.StatusOK, "User password are successfully updated.")
}

// HandleDestroy deletes a user after the caller confirms their own password.
//
//	@Summary		Delete user
//	@Description	confirm_password is the caller's password. It is read from the body, or from the query string when the body has none.
//	@Tags			Users
//	@Accept			json
//	@Produce		json
//	@Param			id					path		string								true	"User ID"
//	@Param			request				body		accountsdk.DeleteUserRequest		false	"Caller's password"
//	@Param			confirm_password	query		string								false	"Caller's password"
//	@Success		200					{object}	accountsdk.MessageResponse			"Deleted"
//	@Failure		401					{object}	accountsdk.MessageResponse			"Unauthenticated."
//	@Failure		403					{object}	accountsdk.MessageResponse			"Self-delete or wrong confirm password"
//	@Failure		404					{object}	accountsdk.MessageResponse			"User not found."
//	@Failure		422					{object}	accountsdk.FieldErrorsResponse		"Validation failed."
//	@Failure		500					{object}	accountsdk.InternalErrorResponse	"Failed to delete user."
//	@Security		BearerAuth
//	@Router			/users/{id} [delete].
func (h *UsersHandler) HandleDestroy(w http.ResponseWriter, r *http.Request) {
	var req service.DeleteUserRequest
	if !h.errs.bind(w, r, deleteInvalid, &req) {
		return
	}
	bindValues(r.URL.Query(), &req, true)

	err := h.UserAdminService.Destroy(r.Context(), httpx.UserIDFromContext(r.Context()), r.PathValue("id"), req)
	if err != nil {
		h.errs.write(w, r, deleteInvalid, err)
		return
	}

	httpx.WriteMessage(w, http.StatusOK, "User are successfully deleted.")
}
