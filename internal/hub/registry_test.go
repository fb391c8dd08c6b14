package hub

import (
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kasupel/server/internal/core"
	"github.com/kasupel/server/internal/engine"
)

type fakeLoader struct {
	games map[int64]*engine.Game
	saved int
}

func (f *fakeLoader) Game(id int64) (*engine.Game, error) {
	g, ok := f.games[id]
	if !ok {
		return nil, core.NewError(core.CodeGameNotFound, "game not found")
	}
	return g, nil
}

func (f *fakeLoader) SaveGame(*engine.Game) error {
	f.saved++
	return nil
}

type fakeResolver struct{}

func (fakeResolver) ResolveUser(id int64) (core.PublicUser, error) {
	return core.PublicUser{ID: id}, nil
}

type fakeElo struct{}

func (fakeElo) ApplyEloDelta(userID int64, newElo int) error { return nil }

type fakeNotifier struct{ notified int }

func (f *fakeNotifier) Enqueue(userID int64, typ core.NotificationType, gameID *int64) error {
	f.notified++
	return nil
}

func newTestRegistry(g *engine.Game) *Registry {
	loader := &fakeLoader{games: map[int64]*engine.Game{g.ID: g}}
	return NewRegistry(loader, fakeResolver{}, fakeElo{}, &fakeNotifier{}, zap.NewNop())
}

func startedGame(id int64) *engine.Game {
	tc := core.TimeControl{MainThinkingTime: 600, Mode: core.ChessMode}
	g := engine.NewSearchingGame(id, 1, tc, time.Unix(0, 0))
	g.Start(2, time.Unix(0, 0))
	return g
}

func TestNotifyGameStartedSpawnsHub(t *testing.T) {
	g := startedGame(10)
	r := newTestRegistry(g)

	r.NotifyGameStarted(10)

	r.mu.Lock()
	_, ok := r.hubs[10]
	r.mu.Unlock()
	if !ok {
		t.Fatal("expected a hub to be spawned for the started game")
	}
}

func TestNotifyGameStartedOnUnstartedGameLogsAndSkips(t *testing.T) {
	tc := core.TimeControl{MainThinkingTime: 600, Mode: core.ChessMode}
	g := engine.NewSearchingGame(11, 1, tc, time.Unix(0, 0))
	r := newTestRegistry(g)

	r.NotifyGameStarted(11)

	r.mu.Lock()
	_, ok := r.hubs[11]
	r.mu.Unlock()
	if ok {
		t.Fatal("expected no hub for a game that has not started")
	}
}

func TestSweepTimeoutsIsNoopWithoutExpiredClocks(t *testing.T) {
	tc := core.TimeControl{MainThinkingTime: 600, Mode: core.ChessMode}
	now := time.Now().UTC()
	g := engine.NewSearchingGame(12, 1, tc, now)
	g.Start(2, now)
	r := newTestRegistry(g)
	r.NotifyGameStarted(12)

	r.SweepTimeouts()

	r.mu.Lock()
	_, ok := r.hubs[12]
	r.mu.Unlock()
	if !ok {
		t.Fatal("expected hub to survive a sweep when no clock has expired")
	}
}

func TestNotifyGameDeletedTearsDownHub(t *testing.T) {
	g := startedGame(13)
	r := newTestRegistry(g)
	r.NotifyGameStarted(13)

	r.NotifyGameDeleted(13, "declined")

	r.mu.Lock()
	_, ok := r.hubs[13]
	r.mu.Unlock()
	if ok {
		t.Fatal("expected hub to be removed after NotifyGameDeleted")
	}
}
