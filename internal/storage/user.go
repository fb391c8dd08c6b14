package storage

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/kasupel/server/internal/core"
)

// UserRecord is a row of the users table, per spec §3's User entity.
type UserRecord struct {
	ID                 int64
	Username           string
	PasswordHash       string
	Email              string
	EmailVerified      bool
	VerificationToken  string
	AvatarBlobID       *string
	Elo                int
	CreatedAt          time.Time
}

// CreateUser inserts a new user under a uniqueness check, the same
// transaction-isolated pattern the teacher's CreateUser uses to avoid a
// check-then-insert race between two concurrent signups for the same
// username.
func (s *Store) CreateUser(username, passwordHash, email, verificationToken string) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var count int
	if err := tx.QueryRow(
		`SELECT COUNT(*) FROM users WHERE username = ? COLLATE NOCASE`, username,
	).Scan(&count); err != nil {
		return 0, err
	}
	if count > 0 {
		return 0, core.NewError(core.CodeUsernameTaken, "username already taken")
	}
	if err := tx.QueryRow(
		`SELECT COUNT(*) FROM users WHERE email = ? COLLATE NOCASE`, email,
	).Scan(&count); err != nil {
		return 0, err
	}
	if count > 0 {
		return 0, core.NewError(core.CodeEmailTaken, "email already registered")
	}

	res, err := tx.Exec(
		`INSERT INTO users (username, password_hash, email, verification_token) VALUES (?, ?, ?, ?)`,
		username, passwordHash, email, verificationToken,
	)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return id, tx.Commit()
}

func scanUser(row *sql.Row) (*UserRecord, error) {
	var u UserRecord
	var verified int
	var token sql.NullString
	if err := row.Scan(
		&u.ID, &u.Username, &u.PasswordHash, &u.Email, &verified,
		&token, &u.AvatarBlobID, &u.Elo, &u.CreatedAt,
	); err != nil {
		if err == sql.ErrNoRows {
			return nil, core.NewError(core.CodeAccountNotFound, "account not found")
		}
		return nil, err
	}
	u.VerificationToken = token.String
	u.EmailVerified = verified != 0
	return &u, nil
}

const userColumns = `id, username, password_hash, email, email_verified, verification_token, avatar_blob_id, elo, created_at`

func (s *Store) UserByID(id int64) (*UserRecord, error) {
	return scanUser(s.db.QueryRow(`SELECT `+userColumns+` FROM users WHERE id = ?`, id))
}

func (s *Store) UserByUsername(username string) (*UserRecord, error) {
	return scanUser(s.db.QueryRow(`SELECT `+userColumns+` FROM users WHERE username = ? COLLATE NOCASE`, username))
}

// UserIDByUsername implements matchmaker.UsernameResolver.
func (s *Store) UserIDByUsername(username string) (int64, error) {
	u, err := s.UserByUsername(username)
	if err != nil {
		return 0, err
	}
	return u.ID, nil
}

// ResolveUser implements core.UserResolver, the boundary the engine and
// httpapi packages use to turn a bare user id into wire-safe fields.
func (s *Store) ResolveUser(id int64) (core.PublicUser, error) {
	u, err := s.UserByID(id)
	if err != nil {
		return core.PublicUser{}, err
	}
	return core.PublicUser{ID: u.ID, Username: u.Username, Elo: u.Elo}, nil
}

func (s *Store) SetPasswordHash(userID int64, hash string) error {
	_, err := s.db.Exec(`UPDATE users SET password_hash = ? WHERE id = ?`, hash, userID)
	return err
}

func (s *Store) SetEmail(userID int64, email string) error {
	_, err := s.db.Exec(`UPDATE users SET email = ?, email_verified = 0 WHERE id = ?`, email, userID)
	return err
}

func (s *Store) SetAvatarBlobID(userID int64, blobID string) error {
	_, err := s.db.Exec(`UPDATE users SET avatar_blob_id = ? WHERE id = ?`, blobID, userID)
	return err
}

func (s *Store) SetVerificationToken(userID int64, token string) error {
	_, err := s.db.Exec(`UPDATE users SET verification_token = ? WHERE id = ?`, token, userID)
	return err
}

// VerifyEmail marks an account verified if token matches, consuming the
// token (it is single-use per spec §3).
func (s *Store) VerifyEmail(username, token string) error {
	res, err := s.db.Exec(
		`UPDATE users SET email_verified = 1, verification_token = NULL
		 WHERE username = ? COLLATE NOCASE AND verification_token = ?`,
		username, token,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return core.NewError(core.CodeVerificationInvalid, "verification token invalid")
	}
	return nil
}

// SetElo is queued through the async write path: rating settlement
// happens at the tail of an engine command, and the caller (the hub) is
// expected to move on to the next command without waiting for it to
// land on disk, per spec §5.
func (s *Store) SetElo(userID int64, elo int) error {
	if !s.healthStatus.Load() {
		return nil
	}
	select {
	case s.writeChan <- func(tx *sql.Tx) error {
		_, err := tx.Exec(`UPDATE users SET elo = ? WHERE id = ?`, elo, userID)
		return err
	}:
		return nil
	default:
		log.Printf("storage: write queue full, dropping elo update for user %d", userID)
		return nil
	}
}

func (s *Store) DeleteUser(userID int64) error {
	_, err := s.db.Exec(`DELETE FROM users WHERE id = ?`, userID)
	return err
}

// Leaderboard returns one page (spec's fixed page size of 100) of users
// sorted by elo descending, for GET /accounts/accounts.
func (s *Store) Leaderboard(page, pageSize int) ([]UserRecord, int, error) {
	var total int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := s.db.Query(
		`SELECT `+userColumns+` FROM users ORDER BY elo DESC, id ASC LIMIT ? OFFSET ?`,
		pageSize, page*pageSize,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var users []UserRecord
	for rows.Next() {
		var u UserRecord
		var verified int
		if err := rows.Scan(
			&u.ID, &u.Username, &u.PasswordHash, &u.Email, &verified,
			&u.VerificationToken, &u.AvatarBlobID, &u.Elo, &u.CreatedAt,
		); err != nil {
			return nil, 0, err
		}
		u.EmailVerified = verified != 0
		users = append(users, u)
	}
	return users, total, rows.Err()
}
