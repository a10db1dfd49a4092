// Package audit maps RPC method names to audit actions and records audit
// log entries.
package audit

import "strings"

// ActionResource holds action and resource derived from a gRPC full method name.
type ActionResource struct {
	Action   string
	Resource string
}

// Auth method overrides: audit as login, logout, sessions_destroyed on resource "session".
const (
	authLogin      = "/accountplatform.auth.v1.AuthService/Login"
	authLogout     = "/accountplatform.auth.v1.AuthService/Logout"
	authDestroyAll = "/accountplatform.auth.v1.AuthService/DestroyAllSessions"
)

// ParseFullMethod returns action and resource for a gRPC full method (e.g.
// /accountplatform.auth.v1.AuthService/Login). Action is a verb: get, list,
// create, update, delete, or a lowercase method name for others. Resource is
// derived from the service name (e.g. AuthService -> auth). Login, Logout,
// and DestroyAllSessions are mapped to login, logout, sessions_destroyed on
// resource "session".
func ParseFullMethod(fullMethod string) ActionResource {
	switch fullMethod {
	case authLogin:
		return ActionResource{Action: "login", Resource: "session"}
	case authLogout:
		return ActionResource{Action: "logout", Resource: "session"}
	case authDestroyAll:
		return ActionResource{Action: "sessions_destroyed", Resource: "session"}
	}
	// fullMethod format: /accountplatform.package.v1.ServiceName/MethodName
	slash := strings.LastIndex(fullMethod, "/")
	if slash < 0 {
		return ActionResource{Action: "unknown", Resource: "unknown"}
	}
	method := fullMethod[slash+1:]
	beforeSlash := fullMethod[:slash]
	dot := strings.LastIndex(beforeSlash, ".")
	if dot < 0 {
		return ActionResource{Action: strings.ToLower(method), Resource: "unknown"}
	}
	serviceName := beforeSlash[dot+1:]
	resource := serviceToResource(serviceName)
	action := methodToAction(method)
	return ActionResource{Action: action, Resource: resource}
}

func serviceToResource(serviceName string) string {
	// AuthService -> auth, SessionService -> session
	s := strings.TrimSuffix(serviceName, "Service")
	if s == "" {
		return "unknown"
	}
	return strings.ToLower(s[0:1]) + s[1:]
}

func methodToAction(method string) string {
	switch {
	case strings.HasPrefix(method, "Get") && method != "Get":
		return "get"
	case strings.HasPrefix(method, "List"):
		return "list"
	case strings.HasPrefix(method, "Create"):
		return "create"
	case strings.HasPrefix(method, "Update"):
		return "update"
	case strings.HasPrefix(method, "Delete"), strings.HasPrefix(method, "Destroy"):
		return "delete"
	case strings.HasPrefix(method, "Register"):
		return "register"
	case strings.HasPrefix(method, "Validate"):
		return "validate"
	case strings.HasPrefix(method, "Revoke"):
		return "revoke"
	default:
		return strings.ToLower(method)
	}
}
