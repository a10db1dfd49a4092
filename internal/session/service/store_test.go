package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"account-platform/backend/internal/security"
	"account-platform/backend/internal/session/domain"
	userdomain "account-platform/backend/internal/user/domain"
)

type memSessionRepo struct {
	mu         sync.Mutex
	m          map[string]*domain.Session
	createNone bool // simulate storage accepting the write but returning no row
	deletes    int
}

func newMemSessionRepo() *memSessionRepo {
	return &memSessionRepo{m: make(map[string]*domain.Session)}
}

func (r *memSessionRepo) Create(ctx context.Context, s *domain.Session) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createNone {
		return nil, nil
	}
	s2 := *s
	r.m[s.ID] = &s2
	out := s2
	return &out, nil
}

func (r *memSessionRepo) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.m[id]; ok {
		out := *s
		return &out, nil
	}
	return nil, nil
}

func (r *memSessionRepo) GetByUserID(ctx context.Context, userID string) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var first *domain.Session
	for _, s := range r.m {
		if s.UserID != userID {
			continue
		}
		if first == nil || s.CreatedAt.Before(first.CreatedAt) {
			first = s
		}
	}
	if first == nil {
		return nil, nil
	}
	out := *first
	return &out, nil
}

func (r *memSessionRepo) UpdateExpiresAt(ctx context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.m[id]; ok {
		s.ExpiresAt = at
	}
	return nil
}

func (r *memSessionRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.m, id)
	r.deletes++
	return nil
}

func (r *memSessionRepo) DeleteAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.m = make(map[string]*domain.Session)
	return nil
}

func (r *memSessionRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.m)
}

type memUserLookup struct {
	m map[string]*userdomain.User
}

func (r *memUserLookup) GetByID(ctx context.Context, id string) (*userdomain.User, error) {
	return r.m[id], nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	emails []string
	ips    []string
	err    error
}

func (n *recordingNotifier) NotifyNewConnection(ctx context.Context, email, ip string, at time.Time) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.emails = append(n.emails, email)
	n.ips = append(n.ips, ip)
	return n.err
}

func (n *recordingNotifier) calls() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.emails)
}

func newTestStore(t *testing.T, repo SessionRepo, users UserLookup, notifier Notifier) *Store {
	t.Helper()
	key, err := security.NewEphemeralKey()
	if err != nil {
		t.Fatalf("NewEphemeralKey: %v", err)
	}
	cipher, err := security.NewTokenCipher(key)
	if err != nil {
		t.Fatalf("NewTokenCipher: %v", err)
	}
	return NewStore(repo, users, cipher, notifier, DefaultTTL)
}

func TestStore_Create(t *testing.T) {
	repo := newMemSessionRepo()
	store := newTestStore(t, repo, nil, nil)

	before := time.Now().UTC()
	sess, err := store.Create(context.Background(), "u1", true, "1.2.3.4")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if sess.UserID != "u1" || !sess.IsAdmin || sess.IPAddress != "1.2.3.4" {
		t.Errorf("unexpected session: %+v", sess)
	}
	if len(sess.SessionKey) != security.SessionKeyLength {
		t.Errorf("session key length = %d, want %d", len(sess.SessionKey), security.SessionKeyLength)
	}
	min := before.Add(DefaultTTL - time.Minute)
	max := time.Now().UTC().Add(DefaultTTL + time.Minute)
	if sess.ExpiresAt.Before(min) || sess.ExpiresAt.After(max) {
		t.Errorf("ExpiresAt = %v, want about now + %v", sess.ExpiresAt, DefaultTTL)
	}
}

func TestStore_CreateNoRowReturned(t *testing.T) {
	repo := newMemSessionRepo()
	repo.createNone = true
	store := newTestStore(t, repo, nil, nil)

	if _, err := store.Create(context.Background(), "u1", false, ""); !errors.Is(err, ErrNotCreated) {
		t.Errorf("Create with silent no-op storage: want ErrNotCreated, got %v", err)
	}
}

func TestStore_ResolveByIdentity_FreshLogin(t *testing.T) {
	repo := newMemSessionRepo()
	store := newTestStore(t, repo, nil, nil)

	sess, err := store.ResolveByIdentity(context.Background(), "u1", "1.2.3.4")
	if err != nil {
		t.Fatalf("ResolveByIdentity: %v", err)
	}
	if sess.UserID != "u1" {
		t.Errorf("UserID = %q, want u1", sess.UserID)
	}
	if sess.IsAdmin {
		t.Error("first-time sessions default to non-admin")
	}
	if sess.IPAddress != "1.2.3.4" {
		t.Errorf("IPAddress = %q, want 1.2.3.4", sess.IPAddress)
	}
	if repo.count() != 1 {
		t.Errorf("session count = %d, want 1", repo.count())
	}
}

func TestStore_ResolveByIdentity_SameOriginRenewal(t *testing.T) {
	repo := newMemSessionRepo()
	store := newTestStore(t, repo, nil, nil)
	ctx := context.Background()

	first, err := store.Create(ctx, "u1", false, "1.2.3.4")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	// Age the record so the renewal is observable.
	staleExpiry := time.Now().UTC().Add(time.Hour)
	if err := repo.UpdateExpiresAt(ctx, first.ID, staleExpiry); err != nil {
		t.Fatalf("UpdateExpiresAt: %v", err)
	}

	renewed, err := store.ResolveByIdentity(ctx, "u1", "1.2.3.4")
	if err != nil {
		t.Fatalf("ResolveByIdentity: %v", err)
	}
	if renewed.ID != first.ID {
		t.Errorf("renewal should keep the same record: got %q, want %q", renewed.ID, first.ID)
	}
	if !renewed.ExpiresAt.After(staleExpiry) {
		t.Errorf("ExpiresAt = %v should be pushed past %v", renewed.ExpiresAt, staleExpiry)
	}
}

func TestStore_ResolveByIdentity_OriginChange(t *testing.T) {
	repo := newMemSessionRepo()
	users := &memUserLookup{m: map[string]*userdomain.User{
		"u1": {ID: "u1", Email: "u1@example.com"},
	}}
	notifier := &recordingNotifier{}
	store := newTestStore(t, repo, users, notifier)
	ctx := context.Background()

	old, err := store.Create(ctx, "u1", true, "1.2.3.4")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	replacement, err := store.ResolveByIdentity(ctx, "u1", "9.9.9.9")
	if err != nil {
		t.Fatalf("ResolveByIdentity: %v", err)
	}
	if replacement.ID == old.ID {
		t.Error("origin change should delete and recreate, not renew in place")
	}
	if replacement.IPAddress != "9.9.9.9" {
		t.Errorf("IPAddress = %q, want 9.9.9.9", replacement.IPAddress)
	}
	if !replacement.IsAdmin {
		t.Error("replacement should carry the old record's privilege flag")
	}
	if got, err := repo.GetByID(ctx, old.ID); err != nil || got != nil {
		t.Errorf("old record should be deleted, got %+v err %v", got, err)
	}
	if notifier.calls() != 1 {
		t.Fatalf("notifier calls = %d, want 1", notifier.calls())
	}
	if notifier.emails[0] != "u1@example.com" || notifier.ips[0] != "9.9.9.9" {
		t.Errorf("notified %q about %q", notifier.emails[0], notifier.ips[0])
	}
}

func TestStore_ResolveByIdentity_NotificationFailureDoesNotBlockLogin(t *testing.T) {
	repo := newMemSessionRepo()
	users := &memUserLookup{m: map[string]*userdomain.User{
		"u1": {ID: "u1", Email: "u1@example.com"},
	}}
	notifier := &recordingNotifier{err: errors.New("smtp down")}
	store := newTestStore(t, repo, users, notifier)
	ctx := context.Background()

	if _, err := store.Create(ctx, "u1", false, "1.2.3.4"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	sess, err := store.ResolveByIdentity(ctx, "u1", "9.9.9.9")
	if err != nil {
		t.Fatalf("ResolveByIdentity should not propagate notification failure: %v", err)
	}
	if sess.IPAddress != "9.9.9.9" {
		t.Errorf("IPAddress = %q, want 9.9.9.9", sess.IPAddress)
	}
}

func TestStore_ResolveByIdentity_Expired(t *testing.T) {
	repo := newMemSessionRepo()
	store := newTestStore(t, repo, nil, nil)
	ctx := context.Background()

	sess, err := store.Create(ctx, "u1", false, "1.2.3.4")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := repo.UpdateExpiresAt(ctx, sess.ID, time.Now().UTC().Add(-time.Second)); err != nil {
		t.Fatalf("UpdateExpiresAt: %v", err)
	}

	if _, err := store.ResolveByIdentity(ctx, "u1", "1.2.3.4"); !errors.Is(err, ErrExpired) {
		t.Fatalf("want ErrExpired, got %v", err)
	}
	if repo.count() != 0 {
		t.Error("expired record should be deleted as a side effect")
	}
}

func TestStore_ResolveByToken(t *testing.T) {
	repo := newMemSessionRepo()
	store := newTestStore(t, repo, nil, nil)
	ctx := context.Background()

	if _, err := store.Create(ctx, "u1", false, "1.2.3.4"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	_, token, err := store.GenerateRefreshToken("u1")
	if err != nil {
		t.Fatalf("GenerateRefreshToken: %v", err)
	}

	sess, err := store.ResolveByToken(ctx, token)
	if err != nil {
		t.Fatalf("ResolveByToken: %v", err)
	}
	if sess == nil || sess.UserID != "u1" {
		t.Fatalf("resolved session = %+v, want session for u1", sess)
	}
}

func TestStore_ResolveByToken_SessionGone(t *testing.T) {
	repo := newMemSessionRepo()
	store := newTestStore(t, repo, nil, nil)

	_, token, err := store.GenerateRefreshToken("u1")
	if err != nil {
		t.Fatalf("GenerateRefreshToken: %v", err)
	}

	// Well-formed token, no session: (nil, nil) distinguishes this from a
	// malformed token.
	sess, err := store.ResolveByToken(context.Background(), token)
	if err != nil {
		t.Fatalf("ResolveByToken: %v", err)
	}
	if sess != nil {
		t.Errorf("session = %+v, want nil", sess)
	}
}

func TestStore_ResolveByToken_Expired(t *testing.T) {
	repo := newMemSessionRepo()
	store := newTestStore(t, repo, nil, nil)
	ctx := context.Background()

	created, err := store.Create(ctx, "u1", false, "1.2.3.4")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := repo.UpdateExpiresAt(ctx, created.ID, time.Now().UTC().Add(-time.Second)); err != nil {
		t.Fatalf("UpdateExpiresAt: %v", err)
	}
	_, token, err := store.GenerateRefreshToken("u1")
	if err != nil {
		t.Fatalf("GenerateRefreshToken: %v", err)
	}

	sess, err := store.ResolveByToken(ctx, token)
	if err != nil {
		t.Fatalf("ResolveByToken: %v", err)
	}
	if sess != nil {
		t.Errorf("expired session should resolve to nil, got %+v", sess)
	}
	if repo.count() != 0 {
		t.Error("expired record should be deleted as a side effect")
	}
}

func TestStore_ResolveByToken_Malformed(t *testing.T) {
	repo := newMemSessionRepo()
	store := newTestStore(t, repo, nil, nil)

	if _, err := store.ResolveByToken(context.Background(), "not-a-token"); !errors.Is(err, security.ErrDecryption) {
		t.Errorf("want security.ErrDecryption, got %v", err)
	}
}

func TestStore_LogoutIdempotent(t *testing.T) {
	repo := newMemSessionRepo()
	store := newTestStore(t, repo, nil, nil)
	ctx := context.Background()

	sess, err := store.Create(ctx, "u1", false, "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := store.Logout(ctx, sess.ID); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if err := store.Logout(ctx, sess.ID); err != nil {
		t.Errorf("second Logout should not error: %v", err)
	}
}

func TestStore_DestroyAll(t *testing.T) {
	repo := newMemSessionRepo()
	store := newTestStore(t, repo, nil, nil)
	ctx := context.Background()

	for _, uid := range []string{"u1", "u2", "u3"} {
		if _, err := store.Create(ctx, uid, false, ""); err != nil {
			t.Fatalf("Create(%s): %v", uid, err)
		}
	}
	if err := store.DestroyAll(ctx); err != nil {
		t.Fatalf("DestroyAll: %v", err)
	}
	if repo.count() != 0 {
		t.Errorf("session count = %d, want 0", repo.count())
	}
}

func TestStore_GenerateRefreshToken(t *testing.T) {
	repo := newMemSessionRepo()
	store := newTestStore(t, repo, nil, nil)

	key, token, err := store.GenerateRefreshToken("u1")
	if err != nil {
		t.Fatalf("GenerateRefreshToken: %v", err)
	}
	if len(key) != security.SessionKeyLength {
		t.Errorf("session key length = %d, want %d", len(key), security.SessionKeyLength)
	}
	if token == "" {
		t.Error("token should not be empty")
	}

	_, token2, err := store.GenerateRefreshToken("u1")
	if err != nil {
		t.Fatalf("GenerateRefreshToken: %v", err)
	}
	if token == token2 {
		t.Error("tokens for the same identity should not be linkable")
	}
}

func TestStore_ConcurrentResolveByIdentity(t *testing.T) {
	repo := newMemSessionRepo()
	store := newTestStore(t, repo, nil, nil)
	ctx := context.Background()

	// Concurrent logins from different origins must not leave more than one
	// session for the identity.
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		ip := "10.0.0.1"
		if i%2 == 0 {
			ip = "10.0.0.2"
		}
		wg.Add(1)
		go func(ip string) {
			defer wg.Done()
			if _, err := store.ResolveByIdentity(ctx, "u1", ip); err != nil {
				t.Errorf("ResolveByIdentity: %v", err)
			}
		}(ip)
	}
	wg.Wait()

	if repo.count() != 1 {
		t.Errorf("session count = %d, want exactly 1", repo.count())
	}
}
