package storage

import (
	"database/sql"
	"log"
	"time"

	"github.com/kasupel/server/internal/core"
)

// NotificationRecord is a row of the notifications table, per spec §3's
// Notification entity.
type NotificationRecord struct {
	ID       int64
	UserID   int64
	SentAt   time.Time
	TypeCode core.NotificationType
	GameID   *int64
	Read     bool
}

// InsertNotification is queued through the async write path, same as a
// game save: the notification queue's Enqueue call returns as soon as
// the write is handed to the queue, not once it is durable.
func (s *Store) InsertNotification(userID int64, typ core.NotificationType, gameID *int64) error {
	if !s.healthStatus.Load() {
		return nil
	}
	select {
	case s.writeChan <- func(tx *sql.Tx) error {
		_, err := tx.Exec(
			`INSERT INTO notifications (user_id, type_code, game_id) VALUES (?, ?, ?)`,
			userID, string(typ), gameID,
		)
		return err
	}:
		return nil
	default:
		log.Printf("storage: write queue full, dropping notification for user %d", userID)
		return nil
	}
}

func (s *Store) NotificationsFor(userID int64, page, pageSize int) ([]NotificationRecord, error) {
	rows, err := s.db.Query(
		`SELECT id, user_id, sent_at, type_code, game_id, read FROM notifications
		 WHERE user_id = ? ORDER BY sent_at DESC LIMIT ? OFFSET ?`,
		userID, pageSize, page*pageSize,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []NotificationRecord
	for rows.Next() {
		var n NotificationRecord
		var typeCode string
		var gameID sql.NullInt64
		var read int
		if err := rows.Scan(&n.ID, &n.UserID, &n.SentAt, &typeCode, &gameID, &read); err != nil {
			return nil, err
		}
		n.TypeCode = core.NotificationType(typeCode)
		n.Read = read != 0
		if gameID.Valid {
			v := gameID.Int64
			n.GameID = &v
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (s *Store) UnreadNotificationCount(userID int64) (int64, error) {
	var n int64
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM notifications WHERE user_id = ? AND read = 0`, userID,
	).Scan(&n)
	return n, err
}

// AckNotification marks a notification read. It only succeeds for the
// notification's own owner — callers must pass the authenticated
// user's id, not trust the request body alone.
func (s *Store) AckNotification(userID, notificationID int64) error {
	res, err := s.db.Exec(
		`UPDATE notifications SET read = 1 WHERE id = ? AND user_id = ?`,
		notificationID, userID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return core.NewError(core.CodeNotificationNotFound, "notification not found")
	}
	return nil
}
