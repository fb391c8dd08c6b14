// Package matchmaker implements spec §4.4: the find-or-join rendezvous
// that pairs two users requesting identical time controls, plus the
// invitation flow. It mirrors the teacher's processor.Command dispatch
// shape — one exported operation per verb — but the concurrency model is
// spec'd explicitly (§5): a single mutex around the small pending-match
// index, since that index is the only state two unrelated Find calls
// can race on.
package matchmaker

import (
	"sync"
	"time"

	"github.com/kasupel/server/internal/core"
	"github.com/kasupel/server/internal/engine"
)

// GameStore is the persistence boundary the matchmaker needs: it creates
// and looks up games, but owns none of the storage mechanics. Backed by
// internal/storage in production, a map in tests.
type GameStore interface {
	NextGameID() (int64, error)
	SaveGame(*engine.Game) error
	Game(id int64) (*engine.Game, error)
	DeleteGame(id int64) error
}

// UsernameResolver looks a username up to an id, for SendInvitation.
type UsernameResolver interface {
	UserIDByUsername(username string) (int64, error)
}

// Notifier delivers the notifications the matchmaker enqueues as it
// pairs and invites players; internal/notify implements it.
type Notifier interface {
	Enqueue(userID int64, typ core.NotificationType, gameID *int64) error
}

// HubNotifier tells the game hub layer that a game it may or may not
// have a live hub for has just started, so it can emit game_start to
// any already-connected socket. Matchmaking itself never touches
// sockets directly.
type HubNotifier interface {
	NotifyGameStarted(gameID int64)
	NotifyGameDeleted(gameID int64, reason string)
}

// Matchmaker holds the pending-match index described in spec §4.4.
type Matchmaker struct {
	store    GameStore
	users    UsernameResolver
	notify   Notifier
	hubs     HubNotifier

	mu              sync.Mutex
	pendingByProfile map[core.TimeControl]int64
}

func New(store GameStore, users UsernameResolver, notify Notifier, hubs HubNotifier) *Matchmaker {
	return &Matchmaker{
		store:            store,
		users:            users,
		notify:           notify,
		hubs:             hubs,
		pendingByProfile: make(map[core.TimeControl]int64),
	}
}

// Find implements spec §4.4's Find: look up the pending game for this
// exact time-control profile. If one exists and was opened by someone
// else, it is atomically removed from the index and paired; otherwise a
// new Searching game is created and indexed. A second Find by the same
// host that opened the pending entry is idempotent.
func (m *Matchmaker) Find(userID int64, tc core.TimeControl, wallTime time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if pendingID, ok := m.pendingByProfile[tc]; ok {
		pending, err := m.store.Game(pendingID)
		if err != nil {
			return 0, err
		}
		if pending.HostID == userID {
			return pendingID, nil
		}
		delete(m.pendingByProfile, tc)
		pending.Start(userID, wallTime)
		if err := m.store.SaveGame(pending); err != nil {
			return 0, err
		}
		if err := m.notify.Enqueue(pending.HostID, core.NotifyMatchmakingMatchFound, &pendingID); err != nil {
			return 0, err
		}
		m.hubs.NotifyGameStarted(pendingID)
		return pendingID, nil
	}

	id, err := m.store.NextGameID()
	if err != nil {
		return 0, err
	}
	g := engine.NewSearchingGame(id, userID, tc, wallTime)
	if err := m.store.SaveGame(g); err != nil {
		return 0, err
	}
	m.pendingByProfile[tc] = id
	return id, nil
}

// SendInvitation implements spec §4.4's SendInvitation.
func (m *Matchmaker) SendInvitation(inviterID int64, inviteeUsername string, tc core.TimeControl, wallTime time.Time) (int64, error) {
	inviteeID, err := m.users.UserIDByUsername(inviteeUsername)
	if err != nil {
		return 0, err
	}
	if inviteeID == inviterID {
		return 0, core.NewError(core.CodeCannotInviteSelf, "cannot invite yourself")
	}

	id, err := m.store.NextGameID()
	if err != nil {
		return 0, err
	}
	g := engine.NewInvitedGame(id, inviterID, inviteeID, tc, wallTime)
	if err := m.store.SaveGame(g); err != nil {
		return 0, err
	}
	if err := m.notify.Enqueue(inviteeID, core.NotifyMatchmakingInviteReceived, &id); err != nil {
		return 0, err
	}
	return id, nil
}

// AcceptInvitation implements spec §4.4's AcceptInvitation.
func (m *Matchmaker) AcceptInvitation(userID, gameID int64, wallTime time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	g, err := m.store.Game(gameID)
	if err != nil {
		return err
	}
	if !g.IsInvited() || *g.InvitedID != userID {
		return core.NewError(core.CodeNotInvited, "not invited to this game")
	}
	g.Start(userID, wallTime)
	if err := m.store.SaveGame(g); err != nil {
		return err
	}
	if err := m.notify.Enqueue(g.HostID, core.NotifyMatchmakingInviteAccepted, &gameID); err != nil {
		return err
	}
	m.hubs.NotifyGameStarted(gameID)
	return nil
}

// DeclineInvitation implements spec §4.4's DeclineInvitation.
func (m *Matchmaker) DeclineInvitation(userID, gameID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	g, err := m.store.Game(gameID)
	if err != nil {
		return err
	}
	if !g.IsInvited() || *g.InvitedID != userID {
		return core.NewError(core.CodeNotInvited, "not invited to this game")
	}
	hostID := g.HostID
	if err := m.store.DeleteGame(gameID); err != nil {
		return err
	}
	m.hubs.NotifyGameDeleted(gameID, "InviteDeclined")
	return m.notify.Enqueue(hostID, core.NotifyMatchmakingInviteDeclined, &gameID)
}

// Snapshot lists the ids currently indexed as pending searches, for the
// GET /games/searches listing endpoint.
func (m *Matchmaker) Snapshot() []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]int64, 0, len(m.pendingByProfile))
	for _, id := range m.pendingByProfile {
		ids = append(ids, id)
	}
	return ids
}
