// Package notify implements the per-user notification queue of spec
// §4.6: a durable FIFO with an O(1) unread counter, delivered over
// socket immediately when the target has an open connection.
package notify

import (
	"sync"

	"github.com/kasupel/server/internal/core"
)

// Store is the persistence boundary, backed by internal/storage.
type Store interface {
	InsertNotification(userID int64, typ core.NotificationType, gameID *int64) error
	UnreadNotificationCount(userID int64) (int64, error)
	AckNotification(userID, notificationID int64) error
}

// Socket delivers a live "notification" event to a connected user, if
// any; internal/hub's connection registry implements it. Enqueue never
// blocks waiting on this — the registry either has a ready channel for
// the user or it doesn't.
type Socket interface {
	DeliverNotification(userID int64, typ core.NotificationType, gameID *int64)
}

// Queue is the notification subsystem. Unread counts are cached
// per-user so GET /accounts/notifications/unread_count never touches
// the database on the hot path; the cache is refilled lazily from
// storage the first time a user is seen.
type Queue struct {
	store  Store
	socket Socket

	mu      sync.Mutex
	unread  map[int64]*unreadCounter
}

type unreadCounter struct {
	mu sync.Mutex
	n  int64
}

func New(store Store, socket Socket) *Queue {
	return &Queue{
		store:  store,
		socket: socket,
		unread: make(map[int64]*unreadCounter),
	}
}

// SetSocket binds the live-delivery path after construction. It exists
// because the socket side (internal/hub's Registry) itself needs a
// Notifier at construction time — the two are mutually dependent, so
// one direction has to be wired post-hoc; main.go does it immediately
// after building both.
func (q *Queue) SetSocket(socket Socket) {
	q.socket = socket
}

func (q *Queue) counterFor(userID int64) (*unreadCounter, error) {
	q.mu.Lock()
	c, ok := q.unread[userID]
	q.mu.Unlock()
	if ok {
		return c, nil
	}

	n, err := q.store.UnreadNotificationCount(userID)
	if err != nil {
		return nil, err
	}
	c = &unreadCounter{n: n}

	q.mu.Lock()
	if existing, ok := q.unread[userID]; ok {
		c = existing
	} else {
		q.unread[userID] = c
	}
	q.mu.Unlock()
	return c, nil
}

// Enqueue persists a notification and, if userID has an open socket,
// delivers it immediately too, per spec §4.6.
func (q *Queue) Enqueue(userID int64, typ core.NotificationType, gameID *int64) error {
	if err := q.store.InsertNotification(userID, typ, gameID); err != nil {
		return err
	}
	c, err := q.counterFor(userID)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.n++
	c.mu.Unlock()

	if q.socket != nil {
		q.socket.DeliverNotification(userID, typ, gameID)
	}
	return nil
}

// UnreadCount returns the O(1) cached unread count for userID.
func (q *Queue) UnreadCount(userID int64) (int64, error) {
	c, err := q.counterFor(userID)
	if err != nil {
		return 0, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n, nil
}

// ResultNotification maps a finished game's outcome, from perspective's
// point of view, onto the closed notification type set of spec §4.6.
func ResultNotification(perspective core.Side, winner core.Winner, conclusion core.Conclusion) core.NotificationType {
	if winner == core.WinnerDraw {
		switch conclusion {
		case core.ConclusionStalemate:
			return core.NotifyGamesDrawStalemate
		case core.ConclusionThreefoldRepetition:
			return core.NotifyGamesDrawThreefoldRepetition
		case core.ConclusionFiftyMoveRule:
			return core.NotifyGamesDrawFiftyMoveRule
		default:
			return core.NotifyGamesDrawAgreed
		}
	}
	won := (winner == core.WinnerHost && perspective == core.Host) ||
		(winner == core.WinnerAway && perspective == core.Away)
	if won {
		if conclusion == core.ConclusionResignation {
			return core.NotifyGamesWinResign
		}
		// The closed notification set only distinguishes win.resign from
		// win.time — a checkmate win has no dedicated code, so it is
		// folded into win.time as the catch-all favourable conclusion.
		return core.NotifyGamesWinTime
	}
	if conclusion == core.ConclusionOutOfTime {
		return core.NotifyGamesLossTime
	}
	return core.NotifyGamesLossCheckmate
}

// Ack marks one notification read and decrements the unread counter.
func (q *Queue) Ack(userID, notificationID int64) error {
	if err := q.store.AckNotification(userID, notificationID); err != nil {
		return err
	}
	c, err := q.counterFor(userID)
	if err != nil {
		return err
	}
	c.mu.Lock()
	if c.n > 0 {
		c.n--
	}
	c.mu.Unlock()
	return nil
}
