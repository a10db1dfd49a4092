package interceptors

import "context"

type contextKey struct{ name string }

var (
	userIDKey    = contextKey{"user_id"}
	sessionIDKey = contextKey{"session_id"}
	isAdminKey   = contextKey{"is_admin"}
)

// WithIdentity returns a context with user_id, session_id, and is_admin set.
// Handlers and the auth service can read these via GetUserID, GetSessionID,
// GetIsAdmin.
func WithIdentity(ctx context.Context, userID, sessionID string, isAdmin bool) context.Context {
	ctx = context.WithValue(ctx, userIDKey, userID)
	ctx = context.WithValue(ctx, sessionIDKey, sessionID)
	ctx = context.WithValue(ctx, isAdminKey, isAdmin)
	return ctx
}

// GetUserID returns the user_id from context and true if set; otherwise "", false.
func GetUserID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(userIDKey).(string)
	return v, ok
}

// GetSessionID returns the session_id from context and true if set; otherwise "", false.
func GetSessionID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(sessionIDKey).(string)
	return v, ok
}

// GetIsAdmin returns the is_admin flag from context and true if set; otherwise false, false.
func GetIsAdmin(ctx context.Context) (bool, bool) {
	v, ok := ctx.Value(isAdminKey).(bool)
	return v, ok
}
