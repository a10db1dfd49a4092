// Package service implements the authentication service: register, login,
// session validation, logout, and global session destruction.
package service

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"account-platform/backend/internal/security"
	"account-platform/backend/internal/server/interceptors"
	sessiondomain "account-platform/backend/internal/session/domain"
	"account-platform/backend/internal/telemetry"
	telemetrydomain "account-platform/backend/internal/telemetry/domain"
	userdomain "account-platform/backend/internal/user/domain"
)

// Sentinel errors for the auth service; handlers map them to status codes.
var (
	ErrEmailAlreadyRegistered = errors.New("email already registered")
	ErrInvalidCredentials     = errors.New("invalid credentials")
	ErrPermissionDenied       = errors.New("permission denied")
)

// ValidationError marks a rejected request argument. Handlers map it to a
// bad-request status.
type ValidationError struct{ msg string }

func (e *ValidationError) Error() string { return e.msg }

// AuthResult holds the outcome of Register or Login: the bearer token, its
// expiry, and the authenticated user.
type AuthResult struct {
	Token     string
	ExpiresAt time.Time
	UserID    string
	SessionID string
}

// UserRepo is the minimal user repository needed by the auth service.
type UserRepo interface {
	GetByEmail(ctx context.Context, email string) (*userdomain.User, error)
	Create(ctx context.Context, u *userdomain.User) error
}

// SessionStore is the session lifecycle surface needed by the auth service.
type SessionStore interface {
	ResolveByIdentity(ctx context.Context, userID, ipAddress string) (*sessiondomain.Session, error)
	ResolveByToken(ctx context.Context, token string) (*sessiondomain.Session, error)
	Logout(ctx context.Context, sessionID string) error
	DestroyAll(ctx context.Context) error
}

// AuthService implements password register, login, validation, and logout on
// top of the session store.
type AuthService struct {
	users    UserRepo
	sessions SessionStore
	hasher   *security.Hasher
	cipher   *security.TokenCipher
	emitter  telemetry.EventEmitter
}

// NewAuthService returns an AuthService with the given dependencies. emitter
// may be nil to disable telemetry events.
func NewAuthService(users UserRepo, sessions SessionStore, hasher *security.Hasher, cipher *security.TokenCipher, emitter telemetry.EventEmitter) *AuthService {
	return &AuthService{
		users:    users,
		sessions: sessions,
		hasher:   hasher,
		cipher:   cipher,
		emitter:  emitter,
	}
}

// Register creates a user with the given email and password, opens a session
// from ipAddress, and returns the bearer token.
func (s *AuthService) Register(ctx context.Context, email, password, name, ipAddress string) (*AuthResult, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}
	existing, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailAlreadyRegistered
	}
	hashed, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	user := &userdomain.User{
		ID:           uuid.New().String(),
		Email:        email,
		Name:         strings.TrimSpace(name),
		PasswordHash: hashed,
		Status:       userdomain.UserStatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := user.Validate(); err != nil {
		return nil, err
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	result, err := s.openSession(ctx, user.ID, ipAddress)
	if err != nil {
		return nil, err
	}
	s.emit(ctx, user.ID, result.SessionID, "user_registered")
	return result, nil
}

// Login authenticates with email/password and resolves the user's session for
// ipAddress. User-missing, disabled, and wrong-password all collapse to
// ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, email, password, ipAddress string) (*AuthResult, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil || user.Status != userdomain.UserStatusActive || user.PasswordHash == "" {
		return nil, ErrInvalidCredentials
	}
	ok, err := s.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}
	result, err := s.openSession(ctx, user.ID, ipAddress)
	if err != nil {
		return nil, err
	}
	s.emit(ctx, user.ID, result.SessionID, "user_login")
	return result, nil
}

// ValidateSession resolves the bearer token to its live session, renewing it.
// Returns (nil, nil) when the token is well-formed but the session is gone or
// expired; decryption failures propagate as security.ErrDecryption.
func (s *AuthService) ValidateSession(ctx context.Context, token string) (*sessiondomain.Session, error) {
	return s.sessions.ResolveByToken(ctx, token)
}

// Logout destroys the session identified by the authenticated context. No-op
// when the context carries no session.
func (s *AuthService) Logout(ctx context.Context) error {
	sessionID, ok := interceptors.GetSessionID(ctx)
	if !ok || sessionID == "" {
		return nil
	}
	if err := s.sessions.Logout(ctx, sessionID); err != nil {
		return err
	}
	userID, _ := interceptors.GetUserID(ctx)
	s.emit(ctx, userID, sessionID, "user_logout")
	return nil
}

// DestroyAllSessions deletes every session. Requires an admin session in
// context; otherwise returns ErrPermissionDenied.
func (s *AuthService) DestroyAllSessions(ctx context.Context) error {
	isAdmin, ok := interceptors.GetIsAdmin(ctx)
	if !ok || !isAdmin {
		return ErrPermissionDenied
	}
	if err := s.sessions.DestroyAll(ctx); err != nil {
		return err
	}
	userID, _ := interceptors.GetUserID(ctx)
	s.emit(ctx, userID, "", "sessions_destroyed")
	return nil
}

// openSession resolves the user's session for the origin address and wraps it
// with a fresh bearer token.
func (s *AuthService) openSession(ctx context.Context, userID, ipAddress string) (*AuthResult, error) {
	sess, err := s.sessions.ResolveByIdentity(ctx, userID, ipAddress)
	if err != nil {
		return nil, err
	}
	token, err := s.cipher.EncryptIdentity(userID)
	if err != nil {
		return nil, err
	}
	return &AuthResult{
		Token:     token,
		ExpiresAt: sess.ExpiresAt,
		UserID:    userID,
		SessionID: sess.ID,
	}, nil
}

func (s *AuthService) emit(ctx context.Context, userID, sessionID, eventType string) {
	telemetry.EmitAsync(s.emitter, ctx, &telemetrydomain.Event{
		UserID:    userID,
		SessionID: sessionID,
		EventType: eventType,
		Source:    "auth_service",
		CreatedAt: time.Now().UTC(),
	})
}

func validateEmail(email string) error {
	if email == "" {
		return &ValidationError{msg: "email is required"}
	}
	const simpleEmail = `^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`
	ok, _ := regexp.MatchString(simpleEmail, email)
	if !ok {
		return &ValidationError{msg: "invalid email format"}
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < 12 {
		return &ValidationError{msg: "password must be at least 12 characters"}
	}
	var hasUpper, hasLower, hasNumber, hasSymbol bool
	for _, r := range password {
		switch {
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		case r >= 'a' && r <= 'z':
			hasLower = true
		case r >= '0' && r <= '9':
			hasNumber = true
		case r < '0' || (r > '9' && r < 'A') || (r > 'Z' && r < 'a') || r > 'z':
			hasSymbol = true
		}
	}
	if !hasUpper {
		return &ValidationError{msg: "password must contain at least one uppercase letter"}
	}
	if !hasLower {
		return &ValidationError{msg: "password must contain at least one lowercase letter"}
	}
	if !hasNumber {
		return &ValidationError{msg: "password must contain at least one number"}
	}
	if !hasSymbol {
		return &ValidationError{msg: "password must contain at least one symbol"}
	}
	return nil
}
