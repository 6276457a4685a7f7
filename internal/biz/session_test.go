package biz

import (
	"context"
	"errors"
	"testing"
	"time"
)

func (f *fakeStore) CreateSession(_ context.Context, session *Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.sessions[session.ID]; ok {
		return ErrDuplicate
	}
	cp := *session
	f.sessions[session.ID] = &cp
	return nil
}

func (f *fakeStore) GetSession(_ context.Context, id string) (*Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.sessions[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeStore) ExtendSessionIdle(_ context.Context, id string, now, idleExpiresAt time.Time) (*Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok || !s.ExpiresAt.After(now) || !s.IdleExpiresAt.After(now) {
		return nil, nil
	}
	s.IdleExpiresAt = idleExpiresAt
	cp := *s
	return &cp, nil
}

func (f *fakeStore) DeleteSession(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sessions, id)
	return nil
}

func (f *fakeStore) DeleteSessionsByUser(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, s := range f.sessions {
		if s.UserID == userID {
			delete(f.sessions, id)
		}
	}
	return nil
}

func (f *fakeStore) DeleteExpiredSessions(_ context.Context, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for id, s := range f.sessions {
		if s.ExpiresAt.Before(now) || s.IdleExpiresAt.Before(now) {
			delete(f.sessions, id)
			n++
		}
	}
	return n, nil
}

func TestCreateSessionExpiries(t *testing.T) {
	store := newFakeStore()
	uc := NewSessionUsecase(store, testLogger())

	before := time.Now().UTC()
	session, err := uc.Create(context.Background(), "u1")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	after := time.Now().UTC()

	if session.UserID != "u1" || session.ID == "" {
		t.Fatalf("unexpected session: %+v", session)
	}
	if session.ExpiresAt.Before(before.Add(14*24*time.Hour)) || session.ExpiresAt.After(after.Add(14*24*time.Hour)) {
		t.Errorf("absolute expiry %v not 14 days out", session.ExpiresAt)
	}
	if session.IdleExpiresAt.Before(before.Add(2*24*time.Hour)) || session.IdleExpiresAt.After(after.Add(2*24*time.Hour)) {
		t.Errorf("idle expiry %v not 2 days out", session.IdleExpiresAt)
	}
}

func TestValidateSessionExtendsIdle(t *testing.T) {
	store := newFakeStore()
	uc := NewSessionUsecase(store, testLogger())

	session, err := uc.Create(context.Background(), "u1")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	// Age the idle expiry, then validate.
	store.sessions[session.ID].IdleExpiresAt = time.Now().UTC().Add(time.Hour)

	validated, err := uc.Validate(context.Background(), session.ID)
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if validated == nil {
		t.Fatal("live session reported as expired")
	}
	if !validated.IdleExpiresAt.After(time.Now().UTC().Add(47 * time.Hour)) {
		t.Errorf("idle expiry %v was not extended to ~2 days", validated.IdleExpiresAt)
	}
}

func TestValidateSessionEmptyID(t *testing.T) {
	uc := NewSessionUsecase(newFakeStore(), testLogger())
	if _, err := uc.Validate(context.Background(), ""); !errors.Is(err, ErrInvalidSessionID) {
		t.Fatalf("got %v, want ErrInvalidSessionID", err)
	}
}

func TestValidateSessionNotFound(t *testing.T) {
	uc := NewSessionUsecase(newFakeStore(), testLogger())
	if _, err := uc.Validate(context.Background(), "missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("got %v, want ErrSessionNotFound", err)
	}
}

func TestValidateSessionIdleExpired(t *testing.T) {
	store := newFakeStore()
	uc := NewSessionUsecase(store, testLogger())

	session, _ := uc.Create(context.Background(), "u1")
	// Absolute expiry far in the future, idle expiry in the past.
	store.sessions[session.ID].IdleExpiresAt = time.Now().UTC().Add(-time.Minute)

	validated, err := uc.Validate(context.Background(), session.ID)
	if err != nil {
		t.Fatalf("expired session must not be an error: %v", err)
	}
	if validated != nil {
		t.Fatal("idle-expired session validated")
	}
}

func TestValidateSessionAbsoluteExpired(t *testing.T) {
	store := newFakeStore()
	uc := NewSessionUsecase(store, testLogger())

	session, _ := uc.Create(context.Background(), "u1")
	store.sessions[session.ID].ExpiresAt = time.Now().UTC().Add(-time.Minute)

	validated, err := uc.Validate(context.Background(), session.ID)
	if err != nil {
		t.Fatalf("expired session must not be an error: %v", err)
	}
	if validated != nil {
		t.Fatal("absolutely-expired session validated")
	}
}

func TestRevokeSession(t *testing.T) {
	store := newFakeStore()
	uc := NewSessionUsecase(store, testLogger())

	session, _ := uc.Create(context.Background(), "u1")
	if err := uc.Revoke(context.Background(), session.ID); err != nil {
		t.Fatalf("revoke failed: %v", err)
	}
	if _, err := uc.Validate(context.Background(), session.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("got %v, want ErrSessionNotFound after revoke", err)
	}
}

func TestRevokeAllSessionsForUser(t *testing.T) {
	store := newFakeStore()
	uc := NewSessionUsecase(store, testLogger())

	s1, _ := uc.Create(context.Background(), "u1")
	s2, _ := uc.Create(context.Background(), "u1")
	other, _ := uc.Create(context.Background(), "u2")

	if err := uc.RevokeAllForUser(context.Background(), "u1"); err != nil {
		t.Fatalf("revoke all failed: %v", err)
	}

	for _, id := range []string{s1.ID, s2.ID} {
		if _, err := uc.Validate(context.Background(), id); !errors.Is(err, ErrSessionNotFound) {
			t.Fatalf("session %s survived revoke-all", id)
		}
	}
	if validated, err := uc.Validate(context.Background(), other.ID); err != nil || validated == nil {
		t.Fatal("unrelated user's session was revoked")
	}
}

func TestCleanupExpiredSessions(t *testing.T) {
	store := newFakeStore()
	uc := NewSessionUsecase(store, testLogger())

	live, _ := uc.Create(context.Background(), "u1")
	idleDead, _ := uc.Create(context.Background(), "u1")
	absDead, _ := uc.Create(context.Background(), "u1")
	store.sessions[idleDead.ID].IdleExpiresAt = time.Now().UTC().Add(-time.Minute)
	store.sessions[absDead.ID].ExpiresAt = time.Now().UTC().Add(-time.Minute)

	n, err := uc.Cleanup(context.Background())
	if err != nil {
		t.Fatalf("cleanup failed: %v", err)
	}
	if n != 2 {
		t.Fatalf("cleanup removed %d sessions, want 2", n)
	}
	if _, ok := store.sessions[live.ID]; !ok {
		t.Fatal("cleanup removed a live session")
	}
}
