// Package httpapi exposes the auth entry points as a JSON HTTP API.
package httpapi

import (
	"encoding/json"
	"errors"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	authservice "account-platform/backend/internal/auth/service"
	"account-platform/backend/internal/server/interceptors"
	sessionservice "account-platform/backend/internal/session/service"
)

// Handler serves the /v1 auth routes.
type Handler struct {
	auth *authservice.AuthService
}

// NewHandler returns a Handler backed by the auth service.
func NewHandler(auth *authservice.AuthService) *Handler {
	return &Handler{auth: auth}
}

// Routes returns the HTTP routes for the auth API.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/auth/register", h.handleRegister)
	mux.HandleFunc("POST /v1/auth/login", h.handleLogin)
	mux.HandleFunc("GET /v1/auth/session", h.requireSession(h.handleSession))
	mux.HandleFunc("POST /v1/auth/logout", h.requireSession(h.handleLogout))
	mux.HandleFunc("POST /v1/admin/sessions/destroy", h.requireSession(h.handleDestroyAllSessions))
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	UserID    string    `json:"userId"`
}

type sessionResponse struct {
	SessionID string    `json:"sessionId"`
	UserID    string    `json:"userId"`
	ExpiresAt time.Time `json:"expiresAt"`
	IPAddress string    `json:"ipAddress,omitempty"`
	IsAdmin   bool      `json:"isAdmin"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	result, err := h.auth.Register(r.Context(), req.Email, req.Password, req.Name, ClientIP(r))
	if err != nil {
		if errors.Is(err, authservice.ErrEmailAlreadyRegistered) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		var ve *authservice.ValidationError
		if errors.As(err, &ve) {
			writeError(w, http.StatusBadRequest, ve.Error())
			return
		}
		writeInternalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, authResponse{
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
		UserID:    result.UserID,
	})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	result, err := h.auth.Login(r.Context(), req.Email, req.Password, ClientIP(r))
	if err != nil {
		if errors.Is(err, authservice.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		if errors.Is(err, sessionservice.ErrExpired) {
			// Session was expired and removed; the client retries the login.
			writeError(w, http.StatusUnauthorized, "session expired")
			return
		}
		writeInternalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, authResponse{
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
		UserID:    result.UserID,
	})
}

func (h *Handler) handleSession(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	if sess == nil {
		writeUnauthorized(w)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{
		SessionID: sess.ID,
		UserID:    sess.UserID,
		ExpiresAt: sess.ExpiresAt,
		IPAddress: sess.IPAddress,
		IsAdmin:   sess.IsAdmin,
	})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.Logout(r.Context()); err != nil {
		writeInternalError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleDestroyAllSessions(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.DestroyAllSessions(r.Context()); err != nil {
		if errors.Is(err, authservice.ErrPermissionDenied) {
			writeError(w, http.StatusForbidden, "permission denied")
			return
		}
		writeInternalError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// requireSession resolves the Bearer token to a live session and stores the
// identity and session in the request context. All failures collapse to the
// same 401 response.
func (h *Handler) requireSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeUnauthorized(w)
			return
		}
		sess, err := h.auth.ValidateSession(r.Context(), token)
		if err != nil || sess == nil {
			writeUnauthorized(w)
			return
		}
		ctx := interceptors.WithIdentity(r.Context(), sess.UserID, sess.ID, sess.IsAdmin)
		ctx = withSession(ctx, sess)
		next(w, r.WithContext(ctx))
	}
}

// bearerToken returns the Bearer token from the Authorization header, or "".
func bearerToken(r *http.Request) string {
	v := strings.TrimSpace(r.Header.Get("Authorization"))
	const prefix = "bearer "
	if len(v) < len(prefix) || !strings.EqualFold(v[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(v[len(prefix):])
}

// ClientIP returns the client IP from X-Forwarded-For, X-Real-IP, or the
// connection's remote address.
func ClientIP(r *http.Request) string {
	if s := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); s != "" {
		if i := strings.Index(s, ","); i > 0 {
			s = strings.TrimSpace(s[:i])
		}
		return s
	}
	if s := strings.TrimSpace(r.Header.Get("X-Real-IP")); s != "" {
		return s
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("httpapi: encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeUnauthorized(w http.ResponseWriter) {
	writeError(w, http.StatusUnauthorized, "missing or invalid authorization")
}

func writeInternalError(w http.ResponseWriter, r *http.Request, err error) {
	log.Printf("httpapi: %s %s: %v", r.Method, r.URL.Path, err)
	writeError(w, http.StatusInternalServerError, "internal error")
}
