package matchmaker

import (
	"sync"
	"testing"
	"time"

	"github.com/kasupel/server/internal/core"
	"github.com/kasupel/server/internal/engine"
)

type memStore struct {
	mu     sync.Mutex
	nextID int64
	games  map[int64]*engine.Game
}

func newMemStore() *memStore { return &memStore{games: make(map[int64]*engine.Game)} }

func (s *memStore) NextGameID() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	return s.nextID, nil
}

func (s *memStore) SaveGame(g *engine.Game) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.games[g.ID] = g
	return nil
}

func (s *memStore) Game(id int64) (*engine.Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.games[id]
	if !ok {
		return nil, core.NewError(core.CodeGameNotFound, "no such game")
	}
	return g, nil
}

func (s *memStore) DeleteGame(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.games, id)
	return nil
}

type memUsers map[string]int64

func (m memUsers) UserIDByUsername(name string) (int64, error) {
	id, ok := m[name]
	if !ok {
		return 0, core.NewError(core.CodeAccountNotFound, "no such user")
	}
	return id, nil
}

type recordingNotifier struct {
	mu    sync.Mutex
	sent  []core.NotificationType
}

func (n *recordingNotifier) Enqueue(userID int64, typ core.NotificationType, gameID *int64) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, typ)
	return nil
}

type noopHubs struct{}

func (noopHubs) NotifyGameStarted(int64)          {}
func (noopHubs) NotifyGameDeleted(int64, string) {}

func newTestMatchmaker() (*Matchmaker, *memStore, *recordingNotifier) {
	store := newMemStore()
	notifier := &recordingNotifier{}
	mm := New(store, memUsers{"bob": 2, "alice": 1}, notifier, noopHubs{})
	return mm, store, notifier
}

var testTC = core.TimeControl{MainThinkingTime: 600, FixedExtraTime: 0, TimeIncrementPerTurn: 5, Mode: core.ChessMode}

// Two finds with the same time control, one after the other, pair into
// one started game, per spec §8.
func TestFindPairsTwoWaitingUsers(t *testing.T) {
	mm, store, notifier := newTestMatchmaker()
	now := time.Unix(1000, 0)

	gidX, err := mm.Find(1, testTC, now)
	if err != nil {
		t.Fatalf("X find: %v", err)
	}
	if len(mm.Snapshot()) != 1 {
		t.Fatalf("expected one pending entry, got %d", len(mm.Snapshot()))
	}

	gidY, err := mm.Find(2, testTC, now)
	if err != nil {
		t.Fatalf("Y find: %v", err)
	}
	if gidY != gidX {
		t.Fatalf("Y should be paired into X's game, got %d vs %d", gidY, gidX)
	}
	if len(mm.Snapshot()) != 0 {
		t.Fatal("expected zero pending entries after pairing")
	}

	g, err := store.Game(gidX)
	if err != nil {
		t.Fatal(err)
	}
	if !g.IsStarted() {
		t.Fatal("expected game to be started after pairing")
	}
	if g.AwayID == nil || *g.AwayID != 2 {
		t.Fatalf("expected away_id=2, got %v", g.AwayID)
	}
	if len(notifier.sent) != 1 || notifier.sent[0] != core.NotifyMatchmakingMatchFound {
		t.Fatalf("expected a single match_found notification, got %+v", notifier.sent)
	}
}

func TestFindIsIdempotentForSameHost(t *testing.T) {
	mm, _, _ := newTestMatchmaker()
	now := time.Unix(0, 0)
	first, err := mm.Find(1, testTC, now)
	if err != nil {
		t.Fatal(err)
	}
	second, err := mm.Find(1, testTC, now)
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Fatalf("re-find by same host should be idempotent, got %d and %d", first, second)
	}
	if len(mm.Snapshot()) != 1 {
		t.Fatalf("expected exactly one pending entry, got %d", len(mm.Snapshot()))
	}
}

func TestSendAndAcceptInvitation(t *testing.T) {
	mm, store, notifier := newTestMatchmaker()
	now := time.Unix(0, 0)

	gid, err := mm.SendInvitation(1, "bob", testTC, now)
	if err != nil {
		t.Fatalf("SendInvitation: %v", err)
	}
	g, _ := store.Game(gid)
	if !g.IsInvited() {
		t.Fatal("expected game to be in Invited state")
	}

	if err := mm.AcceptInvitation(2, gid, now); err != nil {
		t.Fatalf("AcceptInvitation: %v", err)
	}
	g, _ = store.Game(gid)
	if !g.IsStarted() {
		t.Fatal("expected game to be started after accept")
	}
	if len(notifier.sent) != 2 {
		t.Fatalf("expected invite_received then invite_accepted, got %+v", notifier.sent)
	}
}

func TestCannotInviteSelf(t *testing.T) {
	mm, _, _ := newTestMatchmaker()
	if _, err := mm.SendInvitation(1, "alice", testTC, time.Unix(0, 0)); err == nil {
		t.Fatal("expected CannotInviteSelf")
	}
}

func TestDeclineInvitationDeletesGame(t *testing.T) {
	mm, store, notifier := newTestMatchmaker()
	now := time.Unix(0, 0)
	gid, err := mm.SendInvitation(1, "bob", testTC, now)
	if err != nil {
		t.Fatal(err)
	}
	if err := mm.DeclineInvitation(2, gid); err != nil {
		t.Fatalf("DeclineInvitation: %v", err)
	}
	if _, err := store.Game(gid); err == nil {
		t.Fatal("expected game to be deleted")
	}
	if len(notifier.sent) != 2 || notifier.sent[1] != core.NotifyMatchmakingInviteDeclined {
		t.Fatalf("expected invite_received then invite_declined, got %+v", notifier.sent)
	}
}
