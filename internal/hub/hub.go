// Package hub implements the per-game realtime fan-out layer of spec
// §4.5: one Hub per live game, a single command-processing goroutine
// per Hub (so the engine never needs its own locks, per spec §5), and a
// websocket connection registry enforcing one socket per (game, user).
//
// The command loop is the same shape as the teacher's
// processor.EngineQueue worker pool — a buffered channel drained by a
// dedicated goroutine — narrowed from N workers sharing one UCI engine
// down to exactly one worker owning exactly one game, which is what
// spec §5's "per-game operations are serialised" requires.
package hub

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kasupel/server/internal/chessrules"
	"github.com/kasupel/server/internal/core"
	"github.com/kasupel/server/internal/engine"
)

// GameStore is the persistence boundary a Hub needs to survive its own
// process restarting.
type GameStore interface {
	SaveGame(*engine.Game) error
}

// EloApplier persists the ELO settlement an engine command's Outcome
// carries, keyed by user id.
type EloApplier interface {
	ApplyEloDelta(userID int64, newElo int) error
}

// Notifier enqueues the result notification spec §4.3 requires at
// end-of-game, and the matchmaking notifications hubs never actually
// send (those are the matchmaker's job) — Hub only needs the
// end-of-game half.
type Notifier interface {
	Enqueue(userID int64, typ core.NotificationType, gameID *int64) error
}

type inboundCommand struct {
	kind     commandKind
	side     core.Side
	userID   int64
	move     chessrules.Move
	reason   core.DrawReason
	wallTime time.Time
	result   chan cmdResult
}

type cmdResult struct {
	ack interface{}
	err error
}

type commandKind int

const (
	cmdGameState commandKind = iota
	cmdAllowedMoves
	cmdMove
	cmdOfferDraw
	cmdClaimDraw
	cmdResign
	cmdTimeout
	cmdAnnounceStart
)

// Hub owns one live Game: the engine state, the two participants'
// sockets, and the single goroutine that linearises commands against
// both.
type Hub struct {
	game     *engine.Game
	resolver core.UserResolver
	store    GameStore
	elo      EloApplier
	notify   Notifier
	log      *zap.Logger

	cmds chan inboundCommand

	mu      sync.Mutex
	sockets map[core.Side]*Conn

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	onRetire func(gameID int64)
}

func newHub(g *engine.Game, resolver core.UserResolver, store GameStore, elo EloApplier, notify Notifier, log *zap.Logger, onRetire func(int64)) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	h := &Hub{
		game:     g,
		resolver: resolver,
		store:    store,
		elo:      elo,
		notify:   notify,
		log:      log,
		cmds:     make(chan inboundCommand, 64),
		sockets:  make(map[core.Side]*Conn),
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
		onRetire: onRetire,
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	defer close(h.done)
	for {
		select {
		case cmd := <-h.cmds:
			ack, err := h.dispatch(cmd)
			select {
			case cmd.result <- cmdResult{ack: ack, err: err}:
			case <-time.After(time.Second):
				// Caller gave up; nothing more to do with the result.
			}
		case <-h.ctx.Done():
			return
		}
	}
}

// submit enqueues cmd and blocks until its result arrives or the hub
// shuts down. There is no per-call deadline: sweep and socket commands
// wait the same way.
func (h *Hub) submit(cmd inboundCommand) (interface{}, error) {
	cmd.result = make(chan cmdResult, 1)
	select {
	case h.cmds <- cmd:
	case <-h.ctx.Done():
		return nil, core.NewError(core.CodeNotInProgress, "game hub is shutting down")
	}
	select {
	case r := <-cmd.result:
		return r.ack, r.err
	case <-h.ctx.Done():
		return nil, core.NewError(core.CodeNotInProgress, "game hub is shutting down")
	}
}

func (h *Hub) close() {
	h.cancel()
	<-h.done
}

// announceStart emits game_start to whichever side(s) are already
// connected when the matchmaker reports this game as just having
// started. Routed through submit like every other mutation so it never
// races the command loop's own reads of h.game.
func (h *Hub) announceStart() {
	_, err := h.submit(inboundCommand{kind: cmdAnnounceStart})
	if err != nil {
		h.log.Error("announce game start failed", zap.Int64("game_id", h.game.ID), zap.Error(err))
	}
}

// Game exposes the fields that are only ever set once, before the hub
// starts processing commands (HostID, AwayID, InvitedID, TimeControl) —
// safe to read from outside the command loop because nothing races
// their single write. Anything that changes turn by turn (board state,
// clocks, conclusion) must go through a submitted command instead, so
// reads are serialised the same way mutations are.
func (h *Hub) Game() *engine.Game {
	return h.game
}
