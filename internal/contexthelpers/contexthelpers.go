package contexthelpers

import (
	"context"
	"net/http"
)

type contextKey string

const IsAuthenticatedContextKey = contextKey("isAuthenticated")
const AuthenticatedUserIDContextKey = contextKey("authenticatedUserID")

func IsAuthenticated(ctx context.Context) bool {
	isAuthenticated, ok := ctx.Value(IsAuthenticatedContextKey).(bool)
	if !ok {
		return false
	}

	return isAuthenticated
}

// AuthenticatedUserID returns the user placed in the context by the session middleware or 0 when unauthenticated.
func AuthenticatedUserID(ctx context.Context) int {
	userID, ok := ctx.Value(AuthenticatedUserIDContextKey).(int)
	if !ok {
		return 0
	}

	return userID
}

// WithUser returns a copy of ctx authenticated as userID.
func WithUser(ctx context.Context, userID int) context.Context {
	ctx = context.WithValue(ctx, IsAuthenticatedContextKey, true)
	return context.WithValue(ctx, AuthenticatedUserIDContextKey, userID)
}

func AuthenticateContext(r *http.Request, userID int) *http.Request {
	return r.WithContext(WithUser(r.Context(), userID))
}
