package httpapi

import (
	"context"

	sessiondomain "account-platform/backend/internal/session/domain"
)

type sessionKey struct{}

// withSession stores the resolved session in the request context.
func withSession(ctx context.Context, sess *sessiondomain.Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, sess)
}

// sessionFrom returns the resolved session from the request context, or nil.
func sessionFrom(ctx context.Context) *sessiondomain.Session {
	sess, _ := ctx.Value(sessionKey{}).(*sessiondomain.Session)
	return sess
}
