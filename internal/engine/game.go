// Package engine owns the per-game state machine described in spec §4.3:
// turn alternation, move validation, clock accounting, draw evaluation,
// resignation, timeout and end-of-game ELO settlement. A Game is never
// shared between goroutines directly — its hub (internal/hub) is the
// single owner that serialises commands against it, mirroring the
// teacher's processor.EngineQueue single-worker-per-resource pattern but
// scoped to one game instead of one shared UCI binary.
package engine

import (
	"time"

	"github.com/kasupel/server/internal/chessrules"
	"github.com/kasupel/server/internal/clock"
	"github.com/kasupel/server/internal/core"
)

// Game is the full data model of spec §3. Every field is exported so the
// hub and httpapi packages can read it directly; only the engine package
// is allowed to mutate it, and only through the command methods below.
type Game struct {
	ID          int64
	Mode        core.GameMode
	HostID      int64
	AwayID      *int64
	InvitedID   *int64
	TimeControl core.TimeControl

	HostTime         int
	AwayTime         int
	HostOfferingDraw bool
	AwayOfferingDraw bool

	CurrentTurn core.Side
	TurnNumber  int

	Board           chessrules.Position
	PositionHistory [][16]byte
	HalfmoveClock   int

	Winner     core.Winner
	Conclusion core.Conclusion

	OpenedAt  time.Time
	StartedAt *time.Time
	LastTurn  *time.Time
	EndedAt   *time.Time
}

// NewSearchingGame creates a game in the Searching lifecycle state: no
// away_id, no invited_id, not yet started. Matchmaker.Find uses this.
func NewSearchingGame(id, hostID int64, tc core.TimeControl, openedAt time.Time) *Game {
	return &Game{
		ID:          id,
		Mode:        tc.Mode,
		HostID:      hostID,
		TimeControl: tc,
		HostTime:    clock.NewAllowance(tc.MainThinkingTime, tc.FixedExtraTime),
		AwayTime:    clock.NewAllowance(tc.MainThinkingTime, tc.FixedExtraTime),
		CurrentTurn: core.Host,
		Board:       chessrules.StartingPosition(),
		PositionHistory: [][16]byte{
			chessrules.Fingerprint(chessrules.StartingPosition()),
		},
		OpenedAt: openedAt,
	}
}

// NewInvitedGame creates a game in the Invited lifecycle state.
func NewInvitedGame(id, hostID, invitedID int64, tc core.TimeControl, openedAt time.Time) *Game {
	g := NewSearchingGame(id, hostID, tc, openedAt)
	g.InvitedID = &invitedID
	return g
}

// Start transitions a Searching or Invited game into Started: binds the
// away side and stamps started_at/last_turn. Called by the matchmaker,
// never by the engine commands themselves.
func (g *Game) Start(awayID int64, wallTime time.Time) {
	g.AwayID = &awayID
	g.InvitedID = nil
	g.StartedAt = &wallTime
	g.LastTurn = &wallTime
}

// Lifecycle states, derived from fields per spec §3 — never stored
// directly.

func (g *Game) IsSearching() bool { return g.AwayID == nil && g.InvitedID == nil }
func (g *Game) IsInvited() bool   { return g.InvitedID != nil }
func (g *Game) IsStarted() bool   { return g.AwayID != nil && g.StartedAt != nil && g.EndedAt == nil }
func (g *Game) IsFinished() bool  { return g.EndedAt != nil }

// ParticipantSide reports which side userID plays, if any.
func (g *Game) ParticipantSide(userID int64) (core.Side, bool) {
	if userID == g.HostID {
		return core.Host, true
	}
	if g.AwayID != nil && userID == *g.AwayID {
		return core.Away, true
	}
	return core.Host, false
}

// timeFor returns (side)'s clock remaining, unmutated.
func (g *Game) timeFor(side core.Side) int {
	if side == core.Host {
		return g.HostTime
	}
	return g.AwayTime
}

func (g *Game) setTimeFor(side core.Side, remaining int) {
	if side == core.Host {
		g.HostTime = remaining
	} else {
		g.AwayTime = remaining
	}
}

func (g *Game) offeringDraw(side core.Side) bool {
	if side == core.Host {
		return g.HostOfferingDraw
	}
	return g.AwayOfferingDraw
}

func (g *Game) setOfferingDraw(side core.Side, v bool) {
	if side == core.Host {
		g.HostOfferingDraw = v
	} else {
		g.AwayOfferingDraw = v
	}
}

func (g *Game) clearDrawOffers() {
	g.HostOfferingDraw = false
	g.AwayOfferingDraw = false
}

// State is the wire-level game_state payload of spec §6. Board is the
// sparse "<rank>,<file>": [piece, side] map spec §7's wire
// representations section specifies; empty squares are simply absent.
type State struct {
	Board       map[string][2]int `json:"board"`
	HostTime    int               `json:"host_time"`
	AwayTime    int               `json:"away_time"`
	LastTurn    *int64            `json:"last_turn"`
	CurrentTurn core.Side         `json:"current_turn"`
	TurnNumber  int               `json:"turn_number"`
}

// Snapshot builds the wire game_state payload for the game's current
// position.
func (g *Game) Snapshot() (State, error) {
	squares, err := chessrules.Squares(g.Board)
	if err != nil {
		return State{}, err
	}
	board := boardWire(squares)
	var lastTurn *int64
	if g.LastTurn != nil {
		t := g.LastTurn.Unix()
		lastTurn = &t
	}
	return State{
		Board:       board,
		HostTime:    g.HostTime,
		AwayTime:    g.AwayTime,
		LastTurn:    lastTurn,
		CurrentTurn: g.CurrentTurn,
		TurnNumber:  g.TurnNumber,
	}, nil
}

// AllowedMoves is the wire-level allowed_moves payload of spec §6.
type AllowedMoves struct {
	Moves     []chessrules.Move `json:"moves"`
	DrawClaim *core.DrawReason  `json:"draw_claim,omitempty"`
}
