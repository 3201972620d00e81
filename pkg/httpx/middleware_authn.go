package httpx

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/aussiebroadwan/accounts/pkg/slogx"
)

// ErrInvalidToken is returned by an Authenticator when the token is unknown,
// expired, revoked or no longer bound to a user.
var ErrInvalidToken = errors.New("httpx: invalid bearer token")

// Authenticator resolves a bearer token to the ID of the user it was issued to.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (string, error)
}

// AuthenticatorFunc adapts a function to Authenticator.
type AuthenticatorFunc func(ctx context.Context, token string) (string, error)

func (f AuthenticatorFunc) Authenticate(ctx context.Context, token string) (string, error) {
	return f(ctx, token)
}

// AuthnMiddleware rejects requests without a valid bearer token before the
// wrapped handler runs. On success the user ID and raw token are available
// through UserIDFromContext and TokenFromContext.
func AuthnMiddleware(a Authenticator) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			raw, ok := BearerToken(r)
			if !ok {
				writeUnauthenticated(w, "missing bearer token")
				return
			}

			userID, err := a.Authenticate(ctx, raw)
			switch {
			case errors.Is(err, ErrInvalidToken):
				writeUnauthenticated(w, "invalid or expired token")
				return
			case err != nil:
				log.Error("bearer token resolution failed", "error", err)
				WriteMessage(w, http.StatusInternalServerError, "Server Error")
				return
			}

			ctx = ContextWithActor(ctx, userID, raw)
			ctx = slogx.WithContext(ctx, slogx.FromContext(ctx).With("actor_id", userID))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// BearerToken extracts the token from an "Authorization: Bearer <token>"
// header. The scheme is matched case-insensitively.
func BearerToken(r *http.Request) (string, bool) {
	authz := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(authz, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}

	token = strings.TrimSpace(token)
	return token, token != ""
}

// RFC 6750 challenge plus the JSON body API clients expect.
func writeUnauthenticated(w http.ResponseWriter, desc string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token", error_description="`+desc+`"`)
	WriteMessage(w, http.StatusUnauthorized, "Unauthenticated.")
}
