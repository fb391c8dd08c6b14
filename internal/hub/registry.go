package hub

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"

	"github.com/kasupel/server/internal/chessrules"
	"github.com/kasupel/server/internal/core"
	"github.com/kasupel/server/internal/engine"
)

// GameLoader is the subset of storage the registry needs to spin up a
// Hub on demand: a started game's full state, keyed by id.
type GameLoader interface {
	GameStore
	Game(id int64) (*engine.Game, error)
}

// Registry is the connection-membership layer of spec §4.5/§6: it owns
// one Hub per live game, enforces one socket per (game, account), and
// fans live notifications out to whichever sockets a user currently
// has open, across every game.
type Registry struct {
	loader   GameLoader
	resolver core.UserResolver
	elo      EloApplier
	notify   Notifier
	log      *zap.Logger

	mu   sync.Mutex
	hubs map[int64]*Hub

	users map[int64]map[*Conn]struct{}
}

func NewRegistry(loader GameLoader, resolver core.UserResolver, elo EloApplier, notify Notifier, log *zap.Logger) *Registry {
	return &Registry{
		loader:   loader,
		resolver: resolver,
		elo:      elo,
		notify:   notify,
		log:      log,
		hubs:     make(map[int64]*Hub),
		users:    make(map[int64]map[*Conn]struct{}),
	}
}

func (r *Registry) hubFor(gameID int64) (*Hub, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if h, ok := r.hubs[gameID]; ok {
		return h, nil
	}
	g, err := r.loader.Game(gameID)
	if err != nil {
		return nil, err
	}
	if !g.IsStarted() {
		return nil, core.NewError(core.CodeNotInProgress, "game has not started")
	}
	h := newHub(g, r.resolver, r.loader, r.elo, r.notify, r.log, r.retire)
	r.hubs[gameID] = h
	return h, nil
}

// retire drops the finished game's hub from the registry and cancels
// its command loop. It runs inside fanOut, i.e. on the hub's own
// command-processing goroutine — it must only signal cancellation, not
// wait for the loop to exit, or the goroutine would block on itself.
func (r *Registry) retire(gameID int64) {
	r.mu.Lock()
	h, ok := r.hubs[gameID]
	if ok {
		delete(r.hubs, gameID)
	}
	r.mu.Unlock()
	if ok {
		h.cancel()
	}
}

// NotifyGameStarted implements matchmaker.HubNotifier: a game the
// matchmaker just started may already have a waiting socket for its
// host, so spin the hub up eagerly and announce game_start to anyone
// connected rather than waiting for the first command to arrive.
func (r *Registry) NotifyGameStarted(gameID int64) {
	h, err := r.hubFor(gameID)
	if err != nil {
		r.log.Error("spawn hub on game start failed", zap.Int64("game_id", gameID), zap.Error(err))
		return
	}
	h.announceStart()
}

// NotifyGameDeleted implements matchmaker.HubNotifier for the decline
// path: a game that never started has no hub to tear down, but a
// waiting socket (if any) is told why its connection just went away.
func (r *Registry) NotifyGameDeleted(gameID int64, reason string) {
	r.mu.Lock()
	h, ok := r.hubs[gameID]
	delete(r.hubs, gameID)
	r.mu.Unlock()
	if ok {
		h.disconnectBoth(reason)
		h.close()
	}
}

// DeliverNotification implements notify.Socket: spec §4.6 delivers to
// "any open socket", not just one tied to the notification's own game,
// so the registry's user index (populated across all hubs) is what
// this walks.
func (r *Registry) DeliverNotification(userID int64, typ core.NotificationType, gameID *int64) {
	r.mu.Lock()
	conns := make([]*Conn, 0, len(r.users[userID]))
	for c := range r.users[userID] {
		conns = append(conns, c)
	}
	r.mu.Unlock()

	payload := map[string]interface{}{"type": typ, "game_id": gameID}
	for _, c := range conns {
		c.send("notification", payload)
	}
}

func (r *Registry) trackUserConn(userID int64, c *Conn) {
	r.mu.Lock()
	set, ok := r.users[userID]
	if !ok {
		set = make(map[*Conn]struct{})
		r.users[userID] = set
	}
	set[c] = struct{}{}
	r.mu.Unlock()
}

func (r *Registry) untrackUserConn(userID int64, c *Conn) {
	r.mu.Lock()
	if set, ok := r.users[userID]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(r.users, userID)
		}
	}
	r.mu.Unlock()
}

// Connect upgrades ws into a registered socket for (gameID, userID),
// displacing any prior connection for the same side, then blocks
// reading client events until the socket closes or the game ends.
func (r *Registry) Connect(ctx context.Context, gameID, userID int64, ws *websocket.Conn) error {
	h, err := r.hubFor(gameID)
	if err != nil {
		return err
	}
	side, ok := h.Game().ParticipantSide(userID)
	if !ok {
		return core.NewError(core.CodeSocketNotParticipant, "not a participant in this game")
	}
	if h.Game().IsFinished() {
		return core.NewError(core.CodeSocketGameEnded, "game has already ended")
	}

	conn := newConn(ws, userID, side, r.log)
	h.attach(side, conn)
	r.trackUserConn(userID, conn)
	defer func() {
		h.detach(side, conn)
		r.untrackUserConn(userID, conn)
	}()

	// Spec §4.5: a successful connect to an already-started game gets an
	// immediate game_state; game_start itself only ever comes from
	// announceStart, once, at the moment both sides first become live.
	if snap, err := h.submit(inboundCommand{kind: cmdGameState, side: side, userID: userID}); err == nil {
		conn.send("game_state", snap)
	}

	for {
		event, raw, err := conn.readCommand(ctx)
		if err != nil {
			return nil
		}
		ack, cmdErr := r.handleEvent(ctx, h, userID, side, event, raw)
		if cmdErr != nil {
			conn.send(event, map[string]interface{}{"error": core.AsCoded(cmdErr)})
			continue
		}
		if ack != nil {
			conn.send(event, ack)
		}
	}
}

func (r *Registry) handleEvent(ctx context.Context, h *Hub, userID int64, side core.Side, event string, raw json.RawMessage) (interface{}, error) {
	now := time.Now().UTC()
	switch event {
	case "game_state":
		return h.submit(inboundCommand{kind: cmdGameState, side: side, userID: userID})
	case "allowed_moves":
		return h.submit(inboundCommand{kind: cmdAllowedMoves, side: side, userID: userID})
	case "move":
		var move chessrules.Move
		if err := json.Unmarshal(raw, &move); err != nil {
			return nil, core.NewError(core.CodeWrongParams, "malformed move payload")
		}
		return h.submit(inboundCommand{kind: cmdMove, side: side, userID: userID, move: move, wallTime: now})
	case "offer_draw":
		return h.submit(inboundCommand{kind: cmdOfferDraw, side: side, userID: userID})
	case "claim_draw":
		var body struct {
			Reason string `json:"reason"`
		}
		if err := json.Unmarshal(raw, &body); err != nil {
			return nil, core.NewError(core.CodeWrongParams, "malformed claim_draw payload")
		}
		reason, err := core.ParseDrawReason(body.Reason)
		if err != nil {
			return nil, err
		}
		return h.submit(inboundCommand{kind: cmdClaimDraw, side: side, userID: userID, reason: reason, wallTime: now})
	case "resign":
		return h.submit(inboundCommand{kind: cmdResign, side: side, userID: userID, wallTime: now})
	case "timeout":
		return h.submit(inboundCommand{kind: cmdTimeout, side: side, userID: userID, wallTime: now})
	default:
		return nil, core.NewError(core.CodeWrongParams, "unknown socket event")
	}
}

// SweepTimeouts is the background process of spec §5: it walks every
// live hub roughly once a second and asserts a timeout against it,
// which is a no-op unless a clock has actually run out. Call this from
// a ticker loop in cmd/kasupel-server.
func (r *Registry) SweepTimeouts() {
	r.mu.Lock()
	hubs := make([]*Hub, 0, len(r.hubs))
	for _, h := range r.hubs {
		hubs = append(hubs, h)
	}
	r.mu.Unlock()

	now := time.Now().UTC()
	for _, h := range hubs {
		_, _ = h.submit(inboundCommand{kind: cmdTimeout, wallTime: now})
	}
}
