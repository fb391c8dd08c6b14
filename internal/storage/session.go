package storage

import (
	"database/sql"
	"time"

	"github.com/kasupel/server/internal/core"
)

// SessionRecord is a row of the sessions table, per spec §3's Session
// entity. Unlike the teacher's one-session-per-user CreateSession,
// Kasupel logins do not invalidate a user's other sessions — the spec's
// data model has no single-session constraint, so multiple concurrent
// devices are allowed to hold independent sessions (see DESIGN.md).
type SessionRecord struct {
	ID        int64
	UserID    int64
	TokenHash string
	ExpiresAt time.Time
}

// CreateSession inserts a new session and returns its id.
func (s *Store) CreateSession(userID int64, tokenHash string, expiresAt time.Time) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO sessions (user_id, token_hash, expires_at) VALUES (?, ?, ?)`,
		userID, tokenHash, expiresAt,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *Store) Session(id int64) (*SessionRecord, error) {
	var sess SessionRecord
	err := s.db.QueryRow(
		`SELECT id, user_id, token_hash, expires_at FROM sessions WHERE id = ?`, id,
	).Scan(&sess.ID, &sess.UserID, &sess.TokenHash, &sess.ExpiresAt)
	if err == sql.ErrNoRows {
		return nil, core.NewError(core.CodeSessionNotFound, "session not found")
	}
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

func (s *Store) DeleteSession(id int64) error {
	_, err := s.db.Exec(`DELETE FROM sessions WHERE id = ?`, id)
	return err
}

// DeleteExpiredSessions deletes every session whose expiry has passed.
// Nothing in cmd/kasupel-server calls it; expired sessions are rejected
// at authentication time by session.Manager.Authenticate.
func (s *Store) DeleteExpiredSessions() (int64, error) {
	res, err := s.db.Exec(`DELETE FROM sessions WHERE expires_at < ?`, time.Now().UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
