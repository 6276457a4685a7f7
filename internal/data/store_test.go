package data

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"auth-backend/internal/biz"

	"github.com/google/uuid"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "auth.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func makeUser(email string) (*biz.User, *biz.ProviderAccount) {
	user := &biz.User{
		ID:    uuid.NewString(),
		Email: email,
		Name:  "Ada Lovelace",
		Role:  biz.RoleUser,
	}
	account := &biz.ProviderAccount{
		ID:                uuid.NewString(),
		Provider:          "https://idp.example",
		ProviderAccountID: uuid.NewString(),
		UserID:            user.ID,
	}
	return user, account
}

func TestUserRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	user, account := makeUser("ada@example.com")
	if err := store.CreateUserWithAccount(ctx, user, account); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	byID, err := store.GetUserByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("get by id failed: %v", err)
	}
	if byID == nil || byID.Email != user.Email || byID.Name != user.Name || byID.Role != biz.RoleUser {
		t.Fatalf("unexpected user: %+v", byID)
	}

	byEmail, err := store.GetUserByEmail(ctx, "ada@example.com")
	if err != nil {
		t.Fatalf("get by email failed: %v", err)
	}
	if byEmail == nil || byEmail.ID != user.ID {
		t.Fatalf("unexpected user by email: %+v", byEmail)
	}

	if missing, err := store.GetUserByID(ctx, "nope"); err != nil || missing != nil {
		t.Fatalf("missing user should be (nil, nil), got (%+v, %v)", missing, err)
	}
}

func TestCreateUserWithAccountIsAtomic(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	user, account := makeUser("ada@example.com")
	if err := store.CreateUserWithAccount(ctx, user, account); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	// Second user with a fresh email but the same provider account must fail
	// without leaving the user row behind.
	user2, account2 := makeUser("grace@example.com")
	account2.Provider = account.Provider
	account2.ProviderAccountID = account.ProviderAccountID
	account2.UserID = user2.ID

	err := store.CreateUserWithAccount(ctx, user2, account2)
	if !errors.Is(err, biz.ErrDuplicate) {
		t.Fatalf("got %v, want ErrDuplicate", err)
	}
	if orphan, _ := store.GetUserByEmail(ctx, "grace@example.com"); orphan != nil {
		t.Fatal("user row survived a failed transaction")
	}
}

func TestUniqueConstraints(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	user, account := makeUser("ada@example.com")
	if err := store.CreateUserWithAccount(ctx, user, account); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	dupEmail, dupEmailAccount := makeUser("ada@example.com")
	if err := store.CreateUserWithAccount(ctx, dupEmail, dupEmailAccount); !errors.Is(err, biz.ErrDuplicate) {
		t.Fatalf("duplicate email: got %v, want ErrDuplicate", err)
	}

	if err := store.CreateProviderAccount(ctx, &biz.ProviderAccount{
		ID:                uuid.NewString(),
		Provider:          account.Provider,
		ProviderAccountID: account.ProviderAccountID,
		UserID:            user.ID,
	}); !errors.Is(err, biz.ErrDuplicate) {
		t.Fatalf("duplicate provider account: got %v, want ErrDuplicate", err)
	}
}

func TestConcurrentCreateSameAccount(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	const attempts = 8
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			user := &biz.User{ID: uuid.NewString(), Email: "ada@example.com", Role: biz.RoleUser}
			account := &biz.ProviderAccount{
				ID:                uuid.NewString(),
				Provider:          "https://idp.example",
				ProviderAccountID: "sub-1",
				UserID:            user.ID,
			}
			errs[i] = store.CreateUserWithAccount(ctx, user, account)
		}(i)
	}
	wg.Wait()

	var created, duplicates int
	for _, err := range errs {
		switch {
		case err == nil:
			created++
		case errors.Is(err, biz.ErrDuplicate):
			duplicates++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if created != 1 || duplicates != attempts-1 {
		t.Fatalf("created=%d duplicates=%d, want exactly one winner", created, duplicates)
	}

	account, err := store.GetProviderAccount(ctx, "https://idp.example", "sub-1")
	if err != nil || account == nil {
		t.Fatalf("winner's account missing: %v", err)
	}
	winner, err := store.GetUserByID(ctx, account.UserID)
	if err != nil || winner == nil {
		t.Fatalf("winner's user missing: %v", err)
	}
}

func TestProviderAccountsOfUser(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	user, account := makeUser("ada@example.com")
	if err := store.CreateUserWithAccount(ctx, user, account); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	second := &biz.ProviderAccount{
		ID:                uuid.NewString(),
		Provider:          "https://other-idp.example",
		ProviderAccountID: "other-sub",
		UserID:            user.ID,
	}
	if err := store.CreateProviderAccount(ctx, second); err != nil {
		t.Fatalf("create second account failed: %v", err)
	}

	accounts, err := store.GetProviderAccountsOfUser(ctx, user.ID)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(accounts) != 2 {
		t.Fatalf("got %d accounts, want 2", len(accounts))
	}
}

func createTestSession(t *testing.T, store *Store, userID string, expiresAt, idleExpiresAt time.Time) *biz.Session {
	t.Helper()
	session := &biz.Session{
		ID:            uuid.NewString(),
		UserID:        userID,
		ExpiresAt:     expiresAt,
		IdleExpiresAt: idleExpiresAt,
		CreatedAt:     time.Now().UTC(),
	}
	if err := store.CreateSession(context.Background(), session); err != nil {
		t.Fatalf("create session failed: %v", err)
	}
	return session
}

func TestSessionLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	user, account := makeUser("ada@example.com")
	if err := store.CreateUserWithAccount(ctx, user, account); err != nil {
		t.Fatalf("create user failed: %v", err)
	}

	now := time.Now().UTC()
	session := createTestSession(t, store, user.ID, now.Add(14*24*time.Hour), now.Add(48*time.Hour))

	got, err := store.GetSession(ctx, session.ID)
	if err != nil {
		t.Fatalf("get session failed: %v", err)
	}
	if got == nil || got.UserID != user.ID {
		t.Fatalf("unexpected session: %+v", got)
	}

	newIdle := now.Add(72 * time.Hour)
	extended, err := store.ExtendSessionIdle(ctx, session.ID, now, newIdle)
	if err != nil {
		t.Fatalf("extend failed: %v", err)
	}
	if extended == nil {
		t.Fatal("live session not extended")
	}
	if d := extended.IdleExpiresAt.Sub(newIdle); d < -time.Second || d > time.Second {
		t.Fatalf("idle expiry = %v, want %v", extended.IdleExpiresAt, newIdle)
	}

	if err := store.DeleteSession(ctx, session.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if got, _ := store.GetSession(ctx, session.ID); got != nil {
		t.Fatal("session survived delete")
	}
}

func TestExtendSessionIdleSkipsDeadSessions(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	user, account := makeUser("ada@example.com")
	if err := store.CreateUserWithAccount(ctx, user, account); err != nil {
		t.Fatalf("create user failed: %v", err)
	}

	now := time.Now().UTC()
	idleDead := createTestSession(t, store, user.ID, now.Add(time.Hour), now.Add(-time.Minute))
	absDead := createTestSession(t, store, user.ID, now.Add(-time.Minute), now.Add(time.Hour))

	for _, s := range []*biz.Session{idleDead, absDead} {
		extended, err := store.ExtendSessionIdle(ctx, s.ID, now, now.Add(48*time.Hour))
		if err != nil {
			t.Fatalf("extend failed: %v", err)
		}
		if extended != nil {
			t.Fatalf("dead session %s was extended", s.ID)
		}
	}

	if extended, _ := store.ExtendSessionIdle(ctx, "missing", now, now.Add(48*time.Hour)); extended != nil {
		t.Fatal("missing session was extended")
	}
}

func TestDeleteSessionsByUserAndExpired(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	user1, account1 := makeUser("ada@example.com")
	if err := store.CreateUserWithAccount(ctx, user1, account1); err != nil {
		t.Fatalf("create user failed: %v", err)
	}
	user2, account2 := makeUser("grace@example.com")
	if err := store.CreateUserWithAccount(ctx, user2, account2); err != nil {
		t.Fatalf("create user failed: %v", err)
	}

	now := time.Now().UTC()
	s1 := createTestSession(t, store, user1.ID, now.Add(time.Hour), now.Add(time.Hour))
	s2 := createTestSession(t, store, user1.ID, now.Add(time.Hour), now.Add(time.Hour))
	other := createTestSession(t, store, user2.ID, now.Add(time.Hour), now.Add(time.Hour))

	if err := store.DeleteSessionsByUser(ctx, user1.ID); err != nil {
		t.Fatalf("delete by user failed: %v", err)
	}
	for _, id := range []string{s1.ID, s2.ID} {
		if got, _ := store.GetSession(ctx, id); got != nil {
			t.Fatalf("session %s survived delete-by-user", id)
		}
	}
	if got, _ := store.GetSession(ctx, other.ID); got == nil {
		t.Fatal("unrelated session deleted")
	}

	expired := createTestSession(t, store, user2.ID, now.Add(-time.Minute), now.Add(time.Hour))
	n, err := store.DeleteExpiredSessions(ctx, now)
	if err != nil {
		t.Fatalf("delete expired failed: %v", err)
	}
	if n != 1 {
		t.Fatalf("deleted %d sessions, want 1", n)
	}
	if got, _ := store.GetSession(ctx, expired.ID); got != nil {
		t.Fatal("expired session survived cleanup")
	}
	if got, _ := store.GetSession(ctx, other.ID); got == nil {
		t.Fatal("live session removed by cleanup")
	}
}
