// ABOUTME: Request-context plumbing for the authenticated user id
// ABOUTME: WithUser/UserFromContext mirror the middleware on both HTTP and websocket paths

package auth

import "context"

type contextKey string

const userContextKey contextKey = "auth.user_id"

// WithUser returns a context carrying the authenticated user id.
func WithUser(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userContextKey, userID)
}

// UserFromContext extracts the authenticated user id set by the middleware.
// The second return is false when the request was not authenticated.
func UserFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userContextKey).(string)
	return id, ok && id != ""
}
