package httpx

import "context"

type ctxKey string

const (
	CtxKeyUserID ctxKey = "user_id"
	CtxKeyToken  ctxKey = "token" // raw bearer token of the current request
)

// ContextWithActor records the authenticated user and the token they
// presented.
func ContextWithActor(ctx context.Context, userID, token string) context.Context {
	ctx = context.WithValue(ctx, CtxKeyUserID, userID)
	return context.WithValue(ctx, CtxKeyToken, token)
}

// UserIDFromContext returns the authenticated user's ID or "".
func UserIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(CtxKeyUserID).(string)
	return id
}

// TokenFromContext returns the bearer token used for the request or "".
func TokenFromContext(ctx context.Context) string {
	tok, _ := ctx.Value(CtxKeyToken).(string)
	return tok
}
