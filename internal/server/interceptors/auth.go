package interceptors

import (
	"context"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	sessiondomain "account-platform/backend/internal/session/domain"
)

const bearerPrefix = "bearer "

// TokenResolver resolves a bearer token to its live session. It returns
// (nil, nil) when the token names a session that no longer exists, and an
// error when the token itself cannot be decrypted.
type TokenResolver interface {
	ResolveByToken(ctx context.Context, token string) (*sessiondomain.Session, error)
}

// AuthUnary returns a unary server interceptor that resolves the Bearer token
// from gRPC metadata to a live session and sets user_id, session_id, and
// is_admin in context for protected RPCs. publicMethods is the set of full
// method names that do not require a Bearer token (e.g. Register, Login,
// health checks). All failures collapse to the same Unauthenticated status.
func AuthUnary(resolver TokenResolver, publicMethods map[string]bool) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		token := extractBearer(ctx)
		public := publicMethods[info.FullMethod]

		if token == "" {
			if public {
				return handler(ctx, req)
			}
			return nil, status.Error(codes.Unauthenticated, "missing or invalid authorization")
		}

		sess, err := resolver.ResolveByToken(ctx, token)
		if err != nil || sess == nil {
			if public {
				return handler(ctx, req)
			}
			return nil, status.Error(codes.Unauthenticated, "missing or invalid authorization")
		}

		ctx = WithIdentity(ctx, sess.UserID, sess.ID, sess.IsAdmin)
		return handler(ctx, req)
	}
}

// extractBearer returns the Bearer token from ctx metadata, or "" if missing or malformed.
func extractBearer(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	vals := md.Get("authorization")
	if len(vals) == 0 {
		return ""
	}
	v := strings.TrimSpace(vals[0])
	if len(v) < len(bearerPrefix) {
		return ""
	}
	if !strings.EqualFold(v[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(v[len(bearerPrefix):])
}
