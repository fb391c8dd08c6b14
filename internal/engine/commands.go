package engine

import (
	"time"

	"github.com/kasupel/server/internal/chessrules"
	"github.com/kasupel/server/internal/clock"
	"github.com/kasupel/server/internal/core"
)

// checkTimeout evaluates whether the side to move has exhausted its
// clock as of wallTime, per spec §4.2/§4.3: elapsed seconds since
// last_turn are deducted from that side's remaining time, and a
// negative result is a loss on time. It does not mutate g; callers that
// decide to honour the timeout call endGame themselves with the
// returned instant.
func (g *Game) checkTimeout(wallTime time.Time) (timedOut bool, instant time.Time) {
	elapsed := int(wallTime.Sub(*g.LastTurn).Seconds())
	remaining := clock.Deduct(g.timeFor(g.CurrentTurn), elapsed)
	if !clock.TimedOut(remaining) {
		return false, time.Time{}
	}
	// Pin the end instant to the moment the clock actually reached zero,
	// not to wallTime, so a slow AssertTimeout doesn't inflate ended_at.
	instant = g.LastTurn.Add(time.Duration(g.timeFor(g.CurrentTurn)) * time.Second)
	return true, instant
}

// endGame finalises the game: stamps winner/conclusion/ended_at, settles
// ELO when a resolver is given, and returns the game_end event both
// sides receive.
func (g *Game) endGame(winner core.Winner, conclusion core.Conclusion, endedAt time.Time, resolver core.UserResolver) (*EloChange, Event, error) {
	g.Winner = winner
	g.Conclusion = conclusion
	g.EndedAt = &endedAt

	snap, err := g.Snapshot()
	if err != nil {
		return nil, Event{}, err
	}
	endEvent := Event{
		Type: EventGameEnd,
		To:   AudienceBoth,
		Payload: GameEndPayload{
			GameState:  snap,
			Winner:     winner,
			Conclusion: conclusion,
		},
	}

	if resolver == nil {
		return nil, endEvent, nil
	}
	host, err := resolver.ResolveUser(g.HostID)
	if err != nil {
		return nil, Event{}, err
	}
	away, err := resolver.ResolveUser(*g.AwayID)
	if err != nil {
		return nil, Event{}, err
	}
	return settleElo(host.Elo, away.Elo, winner), endEvent, nil
}

// Move implements spec §4.3's Move command.
func (g *Game) Move(side core.Side, move chessrules.Move, wallTime time.Time, resolver core.UserResolver) (*Outcome, error) {
	if !g.IsStarted() {
		return nil, core.NewError(core.CodeNotInProgress, "game is not in progress")
	}
	if side != g.CurrentTurn {
		return nil, core.NewError(core.CodeNotYourTurn, "not this side's turn")
	}

	if timedOut, instant := g.checkTimeout(wallTime); timedOut {
		elo, endEvent, err := g.endGame(core.WinnerFromSide(side.Opposite()), core.ConclusionOutOfTime, instant, resolver)
		if err != nil {
			return nil, err
		}
		return &Outcome{Events: []Event{endEvent}, EloChange: elo}, nil
	}

	legal, err := chessrules.LegalMoves(g.Board, side)
	if err != nil {
		return nil, err
	}
	found := false
	for _, m := range legal {
		if m == move {
			found = true
			break
		}
	}
	if !found {
		return nil, core.NewError(core.CodeInvalidMove, "move is not legal")
	}

	reversible, err := chessrules.IsReversible(g.Board, side, move)
	if err != nil {
		return nil, err
	}
	newBoard, err := chessrules.Apply(g.Board, side, move)
	if err != nil {
		return nil, err
	}

	elapsed := int(wallTime.Sub(*g.LastTurn).Seconds())
	remaining := clock.Deduct(g.timeFor(side), elapsed)
	remaining = clock.CreditIncrement(remaining, g.TimeControl.TimeIncrementPerTurn)

	g.Board = newBoard
	g.PositionHistory = append(g.PositionHistory, chessrules.Fingerprint(newBoard))
	if reversible {
		g.HalfmoveClock++
	} else {
		g.HalfmoveClock = 0
	}
	g.setTimeFor(side, remaining)
	g.clearDrawOffers()
	g.TurnNumber++
	g.CurrentTurn = side.Opposite()
	g.LastTurn = &wallTime

	outcome := &Outcome{}

	terminal, err := chessrules.Terminal(g.Board, g.CurrentTurn)
	if err != nil {
		return nil, err
	}
	switch terminal {
	case chessrules.TerminalCheckmate:
		elo, endEvent, err := g.endGame(core.WinnerFromSide(side), core.ConclusionCheckmate, wallTime, resolver)
		if err != nil {
			return nil, err
		}
		outcome.Events = append(outcome.Events, endEvent)
		outcome.EloChange = elo
	case chessrules.TerminalStalemate:
		elo, endEvent, err := g.endGame(core.WinnerDraw, core.ConclusionStalemate, wallTime, resolver)
		if err != nil {
			return nil, err
		}
		outcome.Events = append(outcome.Events, endEvent)
		outcome.EloChange = elo
	}

	snap, err := g.Snapshot()
	if err != nil {
		return nil, err
	}
	opponentMoves, err := chessrules.LegalMoves(g.Board, g.CurrentTurn)
	if err != nil {
		return nil, err
	}
	movePayload := MovePayload{
		Move:         move,
		GameState:    snap,
		AllowedMoves: AllowedMoves{Moves: opponentMoves},
	}
	outcome.Ack = movePayload
	outcome.Events = append(outcome.Events, Event{Type: EventMove, To: AudienceOpponent, Payload: movePayload})
	return outcome, nil
}

// OfferDraw implements spec §4.3's OfferDraw command.
func (g *Game) OfferDraw(side core.Side) (*Outcome, error) {
	if !g.IsStarted() {
		return nil, core.NewError(core.CodeNotInProgress, "game is not in progress")
	}
	if g.offeringDraw(side) {
		return nil, core.NewError(core.CodeDrawNotAvailable, "draw already offered by this side")
	}
	g.setOfferingDraw(side, true)
	return &Outcome{
		Events: []Event{{Type: EventDrawOffer, To: AudienceOpponent, Payload: struct{}{}}},
	}, nil
}

// ClaimDraw implements spec §4.3's ClaimDraw command.
func (g *Game) ClaimDraw(side core.Side, reason core.DrawReason, wallTime time.Time, resolver core.UserResolver) (*Outcome, error) {
	if !g.IsStarted() {
		return nil, core.NewError(core.CodeNotInProgress, "game is not in progress")
	}

	if timedOut, instant := g.checkTimeout(wallTime); timedOut {
		elo, endEvent, err := g.endGame(core.WinnerFromSide(g.CurrentTurn.Opposite()), core.ConclusionOutOfTime, instant, resolver)
		if err != nil {
			return nil, err
		}
		return &Outcome{Events: []Event{endEvent}, EloChange: elo}, nil
	}

	switch reason {
	case core.DrawReasonAgreed:
		if !g.offeringDraw(side.Opposite()) {
			return nil, core.NewError(core.CodeDrawNotAvailable, "opponent is not offering a draw")
		}
		elo, endEvent, err := g.endGame(core.WinnerDraw, core.ConclusionAgreedDraw, wallTime, resolver)
		if err != nil {
			return nil, err
		}
		return &Outcome{Events: []Event{endEvent}, EloChange: elo}, nil

	case core.DrawReasonThreefoldRepetition:
		if g.occurrences(chessrules.Fingerprint(g.Board)) < 3 {
			return nil, core.NewError(core.CodeDrawNotAvailable, "current position has not repeated three times")
		}
		elo, endEvent, err := g.endGame(core.WinnerDraw, core.ConclusionThreefoldRepetition, wallTime, resolver)
		if err != nil {
			return nil, err
		}
		return &Outcome{Events: []Event{endEvent}, EloChange: elo}, nil

	case core.DrawReasonFiftyMoveRule:
		if g.HalfmoveClock < 100 {
			return nil, core.NewError(core.CodeDrawNotAvailable, "fifty-move rule threshold not reached")
		}
		elo, endEvent, err := g.endGame(core.WinnerDraw, core.ConclusionFiftyMoveRule, wallTime, resolver)
		if err != nil {
			return nil, err
		}
		return &Outcome{Events: []Event{endEvent}, EloChange: elo}, nil

	default:
		return nil, core.NewError(core.CodeNotADrawReason, "unknown draw reason")
	}
}

func (g *Game) occurrences(fp [16]byte) int {
	n := 0
	for _, f := range g.PositionHistory {
		if f == fp {
			n++
		}
	}
	return n
}

// Resign implements spec §4.3's Resign command.
func (g *Game) Resign(side core.Side, wallTime time.Time, resolver core.UserResolver) (*Outcome, error) {
	if !g.IsStarted() {
		return nil, core.NewError(core.CodeNotInProgress, "game is not in progress")
	}
	elo, endEvent, err := g.endGame(core.WinnerFromSide(side.Opposite()), core.ConclusionResignation, wallTime, resolver)
	if err != nil {
		return nil, err
	}
	return &Outcome{Events: []Event{endEvent}, EloChange: elo}, nil
}

// AssertTimeout implements spec §4.3's AssertTimeout command. It is
// issued either by a client's `timeout` event or by the background
// sweep described in spec §5; either way the asserter's identity is not
// otherwise checked, only whether the clock has actually run out.
func (g *Game) AssertTimeout(wallTime time.Time, resolver core.UserResolver) (*Outcome, error) {
	if !g.IsStarted() {
		return nil, core.NewError(core.CodeNotInProgress, "game is not in progress")
	}
	timedOut, instant := g.checkTimeout(wallTime)
	if !timedOut {
		return nil, core.NewError(core.CodeOpponentNotTimedOut, "opponent has not timed out")
	}
	elo, endEvent, err := g.endGame(core.WinnerFromSide(g.CurrentTurn.Opposite()), core.ConclusionOutOfTime, instant, resolver)
	if err != nil {
		return nil, err
	}
	return &Outcome{Events: []Event{endEvent}, EloChange: elo}, nil
}
