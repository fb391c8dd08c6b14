package session

import (
	"testing"
	"time"

	"github.com/kasupel/server/internal/core"
)

type memStore struct {
	next     int64
	sessions map[int64]*Record
}

func newMemStore() *memStore {
	return &memStore{sessions: make(map[int64]*Record)}
}

func (s *memStore) CreateSession(userID int64, tokenHash string, expiresAt time.Time) (int64, error) {
	s.next++
	s.sessions[s.next] = &Record{ID: s.next, UserID: userID, TokenHash: tokenHash, ExpiresAt: expiresAt}
	return s.next, nil
}

func (s *memStore) Session(id int64) (*Record, error) {
	rec, ok := s.sessions[id]
	if !ok {
		return nil, core.NewError(core.CodeSessionNotFound, "session not found")
	}
	return rec, nil
}

func (s *memStore) DeleteSession(id int64) error {
	delete(s.sessions, id)
	return nil
}

func TestCreateWithTokenThenAuthenticate(t *testing.T) {
	store := newMemStore()
	m := New(store)

	token, err := GenerateToken()
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	id, err := m.CreateWithToken(42, token)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	userID, err := m.Authenticate(id, token)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if userID != 42 {
		t.Fatalf("got user %d, want 42", userID)
	}
}

func TestAuthenticateRejectsWrongToken(t *testing.T) {
	store := newMemStore()
	m := New(store)

	token, _ := GenerateToken()
	id, err := m.CreateWithToken(1, token)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	other, _ := GenerateToken()
	if _, err := m.Authenticate(id, other); err == nil {
		t.Fatal("expected authentication failure for mismatched token")
	}
}

func TestAuthenticateRejectsExpiredSession(t *testing.T) {
	store := newMemStore()
	m := New(store)

	token, _ := GenerateToken()
	id, err := store.CreateSession(1, "", time.Now().UTC().Add(-time.Minute))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	store.sessions[id].TokenHash = ""

	if _, err := m.Authenticate(id, token); err == nil {
		t.Fatal("expected expired session to be rejected")
	}
}

func TestDestroyEvictsCacheAndStore(t *testing.T) {
	store := newMemStore()
	m := New(store)

	token, _ := GenerateToken()
	id, err := m.CreateWithToken(7, token)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := m.Authenticate(id, token); err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if err := m.Destroy(id); err != nil {
		t.Fatalf("destroy: %v", err)
	}
	if _, err := m.Authenticate(id, token); err == nil {
		t.Fatal("expected authentication to fail after destroy")
	}
}
