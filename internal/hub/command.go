package hub

import (
	"github.com/kasupel/server/internal/chessrules"
	"github.com/kasupel/server/internal/core"
	"github.com/kasupel/server/internal/engine"
)

// dispatch runs on the hub's single command-processing goroutine. It is
// the only place that ever mutates h.game.
func (h *Hub) dispatch(cmd inboundCommand) (interface{}, error) {
	switch cmd.kind {
	case cmdGameState:
		return h.game.Snapshot()

	case cmdAllowedMoves:
		moves, err := chessrules.LegalMoves(h.game.Board, cmd.side)
		if err != nil {
			return nil, err
		}
		resp := engine.AllowedMoves{Moves: moves}
		if reason := h.availableDrawClaim(cmd.side); reason != nil {
			resp.DrawClaim = reason
		}
		return resp, nil

	case cmdMove:
		outcome, err := h.game.Move(cmd.side, cmd.move, cmd.wallTime, h.resolver)
		if err != nil {
			return nil, err
		}
		h.fanOut(cmd.side, outcome)
		return outcome.Ack, nil

	case cmdOfferDraw:
		outcome, err := h.game.OfferDraw(cmd.side)
		if err != nil {
			return nil, err
		}
		h.fanOut(cmd.side, outcome)
		return nil, nil

	case cmdClaimDraw:
		outcome, err := h.game.ClaimDraw(cmd.side, cmd.reason, cmd.wallTime, h.resolver)
		if err != nil {
			return nil, err
		}
		h.fanOut(cmd.side, outcome)
		return nil, nil

	case cmdResign:
		outcome, err := h.game.Resign(cmd.side, cmd.wallTime, h.resolver)
		if err != nil {
			return nil, err
		}
		h.fanOut(cmd.side, outcome)
		return nil, nil

	case cmdTimeout:
		outcome, err := h.game.AssertTimeout(cmd.wallTime, h.resolver)
		if err != nil {
			return nil, err
		}
		h.fanOut(cmd.side, outcome)
		return nil, nil

	case cmdAnnounceStart:
		snap, err := h.game.Snapshot()
		if err != nil {
			return nil, err
		}
		h.fanOut(core.Host, &engine.Outcome{
			Events: []engine.Event{{
				Type:    engine.EventGameStart,
				To:      engine.AudienceBoth,
				Payload: engine.GameStartPayload{GameState: snap},
			}},
		})
		return nil, nil

	default:
		return nil, core.NewError(core.CodeWrongParams, "unknown command")
	}
}

// availableDrawClaim reports a draw reason cmd.side could presently
// claim, for the informational draw_claim hint in an allowed_moves
// response. It is advisory only — ClaimDraw re-validates from scratch.
func (h *Hub) availableDrawClaim(side core.Side) *core.DrawReason {
	if h.game.HalfmoveClock >= 100 {
		r := core.DrawReasonFiftyMoveRule
		return &r
	}
	fp := chessrules.Fingerprint(h.game.Board)
	count := 0
	for _, f := range h.game.PositionHistory {
		if f == fp {
			count++
		}
	}
	if count >= 3 {
		r := core.DrawReasonThreefoldRepetition
		return &r
	}
	if h.game.CurrentTurn == side.Opposite() && h.offeringDraw(side.Opposite()) {
		r := core.DrawReasonAgreed
		return &r
	}
	return nil
}

func (h *Hub) offeringDraw(side core.Side) bool {
	if side == core.Host {
		return h.game.HostOfferingDraw
	}
	return h.game.AwayOfferingDraw
}
