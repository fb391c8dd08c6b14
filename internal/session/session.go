// Package session implements the session store of spec §3/§4: sessions
// are keyed by integer id, carry a hash of a 32-byte client-generated
// secret, and expire 30 days after creation. The store is read-heavy
// (spec §5) so lookups are cached in memory; writes go straight to
// storage since login/logout are rare relative to the socket and HTTP
// traffic that re-validates a session on every request.
package session

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"sync"
	"time"

	"github.com/kasupel/server/internal/core"
	"github.com/kasupel/server/internal/storage"
)

// TTL is the lifetime of a session from creation, per spec §3.
const TTL = 30 * 24 * time.Hour

// Record is a session, as stored. Re-exported from internal/storage
// rather than duplicated, same reasoning as account.User.
type Record = storage.SessionRecord

// Store is the persistence boundary, backed by internal/storage.
type Store interface {
	CreateSession(userID int64, tokenHash string, expiresAt time.Time) (int64, error)
	Session(id int64) (*Record, error)
	DeleteSession(id int64) error
}

// Manager is the read-through cache in front of Store.
type Manager struct {
	store Store

	mu    sync.RWMutex
	cache map[int64]*Record
}

func New(store Store) *Manager {
	return &Manager{store: store, cache: make(map[int64]*Record)}
}

// hashToken derives the storage-side hash of a client secret. The raw
// secret itself is never persisted, only this hash — the same
// discipline as a password hash, for the same reason: a leaked database
// should not hand out live sessions.
func hashToken(token []byte) string {
	sum := sha256.Sum256(token)
	return base64.StdEncoding.EncodeToString(sum[:])
}

// GenerateToken returns a fresh 32-byte client secret (spec §6's login
// response is the session_id; the token itself is generated by the
// client on POST /accounts/login). Create uses it for a session the
// server itself originates.
func GenerateToken() ([]byte, error) {
	token := make([]byte, 32)
	if _, err := rand.Read(token); err != nil {
		return nil, err
	}
	return token, nil
}

// Create opens a new session for userID and returns its id alongside
// the raw token the client must echo on every subsequent request.
func (m *Manager) Create(userID int64) (sessionID int64, token []byte, err error) {
	token, err = GenerateToken()
	if err != nil {
		return 0, nil, err
	}
	sessionID, err = m.CreateWithToken(userID, token)
	return sessionID, token, err
}

// CreateWithToken opens a new session for userID against a
// client-generated token, the shape POST /accounts/login [E] actually
// uses per spec §6 (the client, not the server, generates the 32-byte
// secret at login; GenerateToken/Create back the rarer case of a
// server-originated session).
func (m *Manager) CreateWithToken(userID int64, token []byte) (sessionID int64, err error) {
	expiresAt := time.Now().UTC().Add(TTL)
	return m.store.CreateSession(userID, hashToken(token), expiresAt)
}

// Authenticate validates a (session_id, token) pair taken from the
// `Authorization: SessionKey <id>|<base64 token>` header, which both
// [A] HTTP endpoints and the socket handshake read; session_id and
// session_token fields in a request body are not read.
func (m *Manager) Authenticate(sessionID int64, token []byte) (int64, error) {
	rec, err := m.get(sessionID)
	if err != nil {
		return 0, err
	}
	if time.Now().UTC().After(rec.ExpiresAt) {
		m.evict(sessionID)
		return 0, core.NewError(core.CodeSessionExpired, "session expired")
	}
	want, err := base64.StdEncoding.DecodeString(rec.TokenHash)
	if err != nil {
		return 0, err
	}
	got := sha256.Sum256(token)
	if subtle.ConstantTimeCompare(want, got[:]) != 1 {
		return 0, core.NewError(core.CodeBadCredentials, "session token mismatch")
	}
	return rec.UserID, nil
}

func (m *Manager) get(sessionID int64) (*Record, error) {
	m.mu.RLock()
	rec, ok := m.cache[sessionID]
	m.mu.RUnlock()
	if ok {
		return rec, nil
	}

	rec, err := m.store.Session(sessionID)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.cache[sessionID] = rec
	m.mu.Unlock()
	return rec, nil
}

func (m *Manager) evict(sessionID int64) {
	m.mu.Lock()
	delete(m.cache, sessionID)
	m.mu.Unlock()
}

// Destroy implements logout: evicts the cache entry and deletes the row.
func (m *Manager) Destroy(sessionID int64) error {
	m.evict(sessionID)
	return m.store.DeleteSession(sessionID)
}
