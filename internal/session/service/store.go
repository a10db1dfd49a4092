package service

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"account-platform/backend/internal/security"
	"account-platform/backend/internal/session/domain"
	userdomain "account-platform/backend/internal/user/domain"
)

// DefaultTTL is the fixed renewal window: every successful resolution pushes
// expiry to now + DefaultTTL, regardless of how much time remained.
const DefaultTTL = 48 * time.Hour

// Sentinel errors for the session store; transport layers map them to codes.
var (
	// ErrExpired means a session was found but is past its expiry. The record
	// is deleted as a side effect; the caller must re-authenticate.
	ErrExpired = errors.New("session expired")
	// ErrNotCreated means storage accepted the write but returned no row.
	ErrNotCreated = errors.New("session not created")
	// ErrNotFound means no matching user record exists.
	ErrNotFound = errors.New("not found")
)

// SessionRepo is the minimal session repository needed by the store.
type SessionRepo interface {
	Create(ctx context.Context, s *domain.Session) (*domain.Session, error)
	GetByID(ctx context.Context, id string) (*domain.Session, error)
	GetByUserID(ctx context.Context, userID string) (*domain.Session, error)
	UpdateExpiresAt(ctx context.Context, id string, at time.Time) error
	Delete(ctx context.Context, id string) error
	DeleteAll(ctx context.Context) error
}

// UserLookup resolves a user id to its record, used only to find the contact
// address for origin-change notifications.
type UserLookup interface {
	GetByID(ctx context.Context, id string) (*userdomain.User, error)
}

// Notifier delivers best-effort "new connection" notifications. Failures are
// logged by the store and never propagated into session operations.
type Notifier interface {
	NotifyNewConnection(ctx context.Context, email, ipAddress string, at time.Time) error
}

// Store orchestrates session creation, lookup, renewal, lazy expiry, and
// origin-change replacement on top of the session repository.
type Store struct {
	sessions SessionRepo
	users    UserLookup
	cipher   *security.TokenCipher
	notifier Notifier
	ttl      time.Duration
	locks    keyedMutex
}

// NewStore returns a Store with the given dependencies. users and notifier
// may be nil, which disables origin-change notifications. A non-positive ttl
// falls back to DefaultTTL.
func NewStore(sessions SessionRepo, users UserLookup, cipher *security.TokenCipher, notifier Notifier, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{
		sessions: sessions,
		users:    users,
		cipher:   cipher,
		notifier: notifier,
		ttl:      ttl,
	}
}

// Create inserts a new session for the user with expiry now + ttl and a fresh
// random session key. Returns ErrNotCreated if storage returns no row.
func (s *Store) Create(ctx context.Context, userID string, isAdmin bool, ipAddress string) (*domain.Session, error) {
	key, err := security.NewSessionKey()
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	stored, err := s.sessions.Create(ctx, &domain.Session{
		ID:         uuid.New().String(),
		SessionKey: key,
		UserID:     userID,
		ExpiresAt:  now.Add(s.ttl),
		IPAddress:  ipAddress,
		IsAdmin:    isAdmin,
		CreatedAt:  now,
	})
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, ErrNotCreated
	}
	return stored, nil
}

// ResolveByIdentity finds the user's session for a login from ipAddress.
//
//   - No session: creates one (non-admin by default for first-time sessions).
//   - Expired session: deletes it and returns ErrExpired; the caller must
//     re-authenticate.
//   - Live session, same origin: renews and returns it.
//   - Live session, different origin: notifies the user's contact address
//     (best effort), deletes the old record, and creates a replacement
//     carrying the old privilege flag and the new origin address.
//
// Calls for the same user are serialized so concurrent logins cannot
// interleave the delete-then-create replacement.
func (s *Store) ResolveByIdentity(ctx context.Context, userID, ipAddress string) (*domain.Session, error) {
	unlock := s.locks.lock(userID)
	defer unlock()

	existing, err := s.sessions.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return s.Create(ctx, userID, false, ipAddress)
	}

	now := time.Now().UTC()
	if existing.IsExpired(now) {
		if err := s.sessions.Delete(ctx, existing.ID); err != nil {
			return nil, err
		}
		return nil, ErrExpired
	}

	if existing.IPAddress != ipAddress {
		s.notifyNewConnection(ctx, userID, ipAddress, now)
		if err := s.sessions.Delete(ctx, existing.ID); err != nil {
			return nil, err
		}
		return s.Create(ctx, userID, existing.IsAdmin, ipAddress)
	}

	expiresAt := now.Add(s.ttl)
	if err := s.sessions.UpdateExpiresAt(ctx, existing.ID, expiresAt); err != nil {
		return nil, err
	}
	existing.ExpiresAt = expiresAt
	return existing, nil
}

// ResolveByToken decrypts the bearer token and resolves the live session for
// the identity it names. Returns (nil, nil) when the token is well-formed but
// the session is gone or lazily expired; decryption failures propagate
// verbatim as security.ErrDecryption.
func (s *Store) ResolveByToken(ctx context.Context, token string) (*domain.Session, error) {
	userID, err := s.cipher.DecryptIdentity(token)
	if err != nil {
		return nil, err
	}

	sess, err := s.sessions.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, nil
	}

	now := time.Now().UTC()
	if sess.IsExpired(now) {
		if err := s.sessions.Delete(ctx, sess.ID); err != nil {
			return nil, err
		}
		return nil, nil
	}

	expiresAt := now.Add(s.ttl)
	if err := s.sessions.UpdateExpiresAt(ctx, sess.ID, expiresAt); err != nil {
		return nil, err
	}
	sess.ExpiresAt = expiresAt
	return sess, nil
}

// Logout deletes the session. Idempotent: deleting an absent session is not
// an error.
func (s *Store) Logout(ctx context.Context, sessionID string) error {
	return s.sessions.Delete(ctx, sessionID)
}

// DestroyAll deletes every session. Used for global credential revocation,
// e.g. after a key rotation.
func (s *Store) DestroyAll(ctx context.Context) error {
	return s.sessions.DeleteAll(ctx)
}

// GenerateRefreshToken returns a fresh random session key and the encrypted
// bearer token for the user. The session key is the record's lookup key; the
// token is what clients present.
func (s *Store) GenerateRefreshToken(userID string) (sessionKey, token string, err error) {
	sessionKey, err = security.NewSessionKey()
	if err != nil {
		return "", "", err
	}
	token, err = s.cipher.EncryptIdentity(userID)
	if err != nil {
		return "", "", err
	}
	return sessionKey, token, nil
}

// TTL returns the fixed renewal window.
func (s *Store) TTL() time.Duration {
	return s.ttl
}

// notifyNewConnection sends a best-effort notification that the user logged
// in from a new address. A failed notification must never block a login, so
// failures are logged and dropped.
func (s *Store) notifyNewConnection(ctx context.Context, userID, ipAddress string, at time.Time) {
	if s.notifier == nil || s.users == nil {
		return
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil || user == nil {
		log.Printf("session: new connection notification skipped for %s: %v", userID, err)
		return
	}
	if err := s.notifier.NotifyNewConnection(ctx, user.Email, ipAddress, at); err != nil {
		log.Printf("session: new connection notification failed for %s: %v", userID, err)
	}
}
