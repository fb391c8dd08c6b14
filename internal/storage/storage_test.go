package storage

import (
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "kasupel_test.db")
	store, err := NewStore(path, true)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if err := store.InitDB(); err != nil {
		t.Fatalf("init schema: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestCreateUserRejectsDuplicateUsername(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.CreateUser("alice", "hash", "alice@example.com", "TOKEN1"); err != nil {
		t.Fatalf("create user: %v", err)
	}
	if _, err := s.CreateUser("Alice", "hash", "other@example.com", "TOKEN2"); err == nil {
		t.Fatal("expected duplicate username (case-insensitive) to be rejected")
	}
}

func TestCreateUserRejectsDuplicateEmail(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.CreateUser("alice", "hash", "shared@example.com", "TOKEN1"); err != nil {
		t.Fatalf("create user: %v", err)
	}
	if _, err := s.CreateUser("bob", "hash", "shared@example.com", "TOKEN2"); err == nil {
		t.Fatal("expected duplicate email to be rejected")
	}
}

func TestUserByUsernameIsCaseInsensitive(t *testing.T) {
	s := newTestStore(t)

	id, err := s.CreateUser("alice", "hash", "alice@example.com", "TOKEN1")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	u, err := s.UserByUsername("ALICE")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if u.ID != id {
		t.Fatalf("got id %d, want %d", u.ID, id)
	}
}

func TestVerifyEmailConsumesToken(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.CreateUser("alice", "hash", "alice@example.com", "TOKEN1"); err != nil {
		t.Fatalf("create user: %v", err)
	}
	if err := s.VerifyEmail("alice", "TOKEN1"); err != nil {
		t.Fatalf("verify: %v", err)
	}
	if err := s.VerifyEmail("alice", "TOKEN1"); err == nil {
		t.Fatal("expected verification token to be single-use")
	}

	u, err := s.UserByUsername("alice")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if !u.EmailVerified {
		t.Fatal("expected email to be marked verified")
	}
}

func TestSessionLifecycle(t *testing.T) {
	s := newTestStore(t)

	id, err := s.CreateUser("alice", "hash", "alice@example.com", "TOKEN1")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	sessionID, err := s.CreateSession(id, "hashed-token", time.Now().UTC().Add(time.Hour))
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	rec, err := s.Session(sessionID)
	if err != nil {
		t.Fatalf("lookup session: %v", err)
	}
	if rec.UserID != id {
		t.Fatalf("got user %d, want %d", rec.UserID, id)
	}
	if err := s.DeleteSession(sessionID); err != nil {
		t.Fatalf("delete session: %v", err)
	}
	if _, err := s.Session(sessionID); err == nil {
		t.Fatal("expected session to be gone after delete")
	}
}

func TestDeleteExpiredSessionsOnlyRemovesExpired(t *testing.T) {
	s := newTestStore(t)

	id, err := s.CreateUser("alice", "hash", "alice@example.com", "TOKEN1")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	expired, err := s.CreateSession(id, "expired", time.Now().UTC().Add(-time.Hour))
	if err != nil {
		t.Fatalf("create expired session: %v", err)
	}
	live, err := s.CreateSession(id, "live", time.Now().UTC().Add(time.Hour))
	if err != nil {
		t.Fatalf("create live session: %v", err)
	}

	n, err := s.DeleteExpiredSessions()
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if n != 1 {
		t.Fatalf("got %d deleted, want 1", n)
	}
	if _, err := s.Session(expired); err == nil {
		t.Fatal("expected expired session to be gone")
	}
	if _, err := s.Session(live); err != nil {
		t.Fatal("expected live session to survive the sweep")
	}
}

func TestLeaderboardOrdersByEloDescending(t *testing.T) {
	s := newTestStore(t)

	low, err := s.CreateUser("low", "hash", "low@example.com", "T1")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	high, err := s.CreateUser("high", "hash", "high@example.com", "T2")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if err := s.SetElo(low, 900); err != nil {
		t.Fatalf("set elo: %v", err)
	}
	if err := s.SetElo(high, 1500); err != nil {
		t.Fatalf("set elo: %v", err)
	}
	// SetElo is queued through the async write path; give it a beat.
	time.Sleep(50 * time.Millisecond)

	users, total, err := s.Leaderboard(0, 100)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if total != 2 {
		t.Fatalf("got %d total, want 2", total)
	}
	if len(users) != 2 || users[0].ID != high || users[1].ID != low {
		t.Fatalf("got %+v, want high before low", users)
	}
}

func TestInsertAndAckNotification(t *testing.T) {
	s := newTestStore(t)

	id, err := s.CreateUser("alice", "hash", "alice@example.com", "T1")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if err := s.InsertNotification(id, "games.win.time", nil); err != nil {
		t.Fatalf("insert: %v", err)
	}
	time.Sleep(50 * time.Millisecond)

	n, err := s.UnreadNotificationCount(id)
	if err != nil {
		t.Fatalf("unread count: %v", err)
	}
	if n != 1 {
		t.Fatalf("got %d, want 1", n)
	}

	notifications, err := s.NotificationsFor(id, 0, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(notifications) != 1 {
		t.Fatalf("got %d notifications, want 1", len(notifications))
	}
	if err := s.AckNotification(id, notifications[0].ID); err != nil {
		t.Fatalf("ack: %v", err)
	}
	n, err = s.UnreadNotificationCount(id)
	if err != nil {
		t.Fatalf("unread count: %v", err)
	}
	if n != 0 {
		t.Fatalf("got %d, want 0", n)
	}
}
