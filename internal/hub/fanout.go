package hub

import (
	"go.uber.org/zap"

	"github.com/kasupel/server/internal/core"
	"github.com/kasupel/server/internal/engine"
	"github.com/kasupel/server/internal/notify"
)

// fanOut turns one command's Outcome into the side effects spec §4.5
// lists: a durable save, an ELO settlement, result notifications for
// both participants, and the actual socket sends. issuer is the side
// whose command produced outcome — AudienceOpponent events go to
// issuer's opposite side only.
func (h *Hub) fanOut(issuer core.Side, outcome *engine.Outcome) {
	if err := h.store.SaveGame(h.game); err != nil {
		h.log.Error("save game failed", zap.Int64("game_id", h.game.ID), zap.Error(err))
	}

	if outcome.EloChange != nil {
		h.settleElo(outcome.EloChange)
	}

	for _, ev := range outcome.Events {
		h.deliver(issuer, ev)
		if ev.Type == engine.EventGameEnd {
			h.notifyResult(ev.Payload.(engine.GameEndPayload))
			h.disconnectBoth("GameOver")
			if h.onRetire != nil {
				h.onRetire(h.game.ID)
			}
		}
	}
}

func (h *Hub) settleElo(delta *engine.EloChange) {
	if err := h.elo.ApplyEloDelta(h.game.HostID, delta.HostElo); err != nil {
		h.log.Error("apply elo delta failed", zap.Int64("user_id", h.game.HostID), zap.Error(err))
	}
	if h.game.AwayID != nil {
		if err := h.elo.ApplyEloDelta(*h.game.AwayID, delta.AwayElo); err != nil {
			h.log.Error("apply elo delta failed", zap.Int64("user_id", *h.game.AwayID), zap.Error(err))
		}
	}
}

func (h *Hub) notifyResult(end engine.GameEndPayload) {
	gameID := h.game.ID
	hostTyp := notify.ResultNotification(core.Host, end.Winner, end.Conclusion)
	awayTyp := notify.ResultNotification(core.Away, end.Winner, end.Conclusion)
	if err := h.notify.Enqueue(h.game.HostID, hostTyp, &gameID); err != nil {
		h.log.Error("enqueue result notification failed", zap.Int64("user_id", h.game.HostID), zap.Error(err))
	}
	if h.game.AwayID != nil {
		if err := h.notify.Enqueue(*h.game.AwayID, awayTyp, &gameID); err != nil {
			h.log.Error("enqueue result notification failed", zap.Int64("user_id", *h.game.AwayID), zap.Error(err))
		}
	}
}

// deliver routes one event to the connected socket(s) its Audience
// names. A missing socket (participant not connected right now) is not
// an error — the notifications notify.Queue persists at game end cover
// offline participants separately.
func (h *Hub) deliver(issuer core.Side, ev engine.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	switch ev.To {
	case engine.AudienceOpponent:
		if c, ok := h.sockets[issuer.Opposite()]; ok {
			c.send(ev.Type, ev.Payload)
		}
	case engine.AudienceBoth:
		for _, c := range h.sockets {
			c.send(ev.Type, ev.Payload)
		}
	}
}

// disconnectBoth sends game_disconnect to whichever sockets are still
// open and clears the registry, per spec §4.5's end-of-game teardown.
func (h *Hub) disconnectBoth(reason string) {
	h.mu.Lock()
	conns := make([]*Conn, 0, len(h.sockets))
	for side, c := range h.sockets {
		conns = append(conns, c)
		delete(h.sockets, side)
	}
	h.mu.Unlock()

	for _, c := range conns {
		c.disconnect(reason)
	}
}

// attach registers a socket for side, displacing any prior connection
// for the same side with reason NewConnectionSameAccount per spec §6.
func (h *Hub) attach(side core.Side, c *Conn) {
	h.mu.Lock()
	old, ok := h.sockets[side]
	h.sockets[side] = c
	h.mu.Unlock()

	if ok {
		old.disconnect("NewConnectionSameAccount")
	}
}

// detach removes c from the registry if it is still the current socket
// for side; a displaced socket calling detach after the fact is a no-op.
func (h *Hub) detach(side core.Side, c *Conn) {
	h.mu.Lock()
	if h.sockets[side] == c {
		delete(h.sockets, side)
	}
	h.mu.Unlock()
}
