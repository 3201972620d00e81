package http

import (
	"net/http"

	"github.com/aussiebroadwan/accounts/internal/accounts/service"
	"github.com/aussiebroadwan/accounts/pkg/accountsdk"
	"github.com/aussiebroadwan/accounts/pkg/httpx"
)

type AuthHandler struct {
	AuthService *service.AuthService
	errs        *errorWriter
}

// HandleRegister handles user registration.
//
//	@Summary		Register a user
//	@Description	Creates an account. No token is issued; log in afterwards.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		accountsdk.RegisterRequest			true	"New account"
//	@Success		200		{object}	accountsdk.MessageResponse			"Registered"
//	@Failure		422		{object}	accountsdk.FieldErrorsResponse		"Invalid input"
//	@Failure		429		{object}	accountsdk.MessageResponse			"Too many attempts"
//	@Router			/register [post].
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterRequest
	if !h.errs.bind(w, r, registerInvalid, &req) {
		return
	}

	if _, err := h.AuthService.Register(r.Context(), req); err != nil {
		h.errs.write(w, r, registerInvalid, err)
		return
	}

	httpx.WriteMessage(w, http.StatusOK, "Register successfully. You can login now.")
}

// HandleLogin exchanges credentials for a bearer token.
//
//	@Summary		Log in
//	@Description	Verifies the username and password and issues a bearer token.
//	@Description	expired_at is UTC in "2006-01-02 15:04:05" form.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		accountsdk.LoginRequest			true	"Credentials"
//	@Success		200		{object}	accountsdk.LoginResponse		"Token, user, and expiry"
//	@Failure		401		{object}	accountsdk.MessageResponse		"The username or password is incorrect."
//	@Failure		422		{object}	accountsdk.ValidationResponse	"Invalid input"
//	@Failure		429		{object}	accountsdk.MessageResponse		"Too many attempts"
//	@Router			/login [post].
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req service.LoginRequest
	if !h.errs.bind(w, r, loginInvalid, &req) {
		return
	}

	res, err := h.AuthService.Login(r.Context(), req)
	if err != nil {
		h.errs.write(w, r, loginInvalid, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, accountsdk.LoginResponse{
		Message: "Login successfully.",
		Data: accountsdk.LoginData{
			Token:     res.Token,
			User:      toUser(res.User),
			ExpiredAt: res.ExpiresAt.UTC().Format(accountsdk.ExpiredAtLayout),
		},
	})
}

// HandleLogout revokes the token used for this request.
//
//	@Summary		Log out
//	@Description	Revokes the presented token. Other tokens of the same user stay valid.
//	@Tags			Auth
//	@Produce		json
//	@Success		200	{object}	accountsdk.MessageResponse	"Logged out"
//	@Failure		401	{object}	accountsdk.MessageResponse	"Unauthenticated."
//	@Security		BearerAuth
//	@Router			/logout [post].
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.AuthService.Logout(r.Context(), httpx.TokenFromContext(r.Context())); err != nil {
		h.errs.write(w, r, invalidShape{}, err)
		return
	}

	httpx.WriteMessage(w, http.StatusOK, "Logged out successfully.")
}
