package engine

import (
	"github.com/kasupel/server/internal/chessrules"
	"github.com/kasupel/server/internal/core"
)

// Audience identifies who an emitted Event should be fanned out to; the
// hub (internal/hub) is the thing that actually owns sockets and turns
// this into concrete sends.
type Audience int

const (
	AudienceOpponent Audience = iota // everyone but the command's issuer
	AudienceBoth
)

// Event is one of the server events of spec §6: move, draw_offer,
// game_start, game_end. The issuer of the command that produced it gets
// its own Ack return value instead, synchronously.
type Event struct {
	Type    string
	To      Audience
	Payload interface{}
}

const (
	EventMove      = "move"
	EventDrawOffer = "draw_offer"
	EventGameStart = "game_start"
	EventGameEnd   = "game_end"
)

// MovePayload is both the mover's ack and the opponent's move event body.
type MovePayload struct {
	Move         chessrules.Move `json:"move"`
	GameState    State           `json:"game_state"`
	AllowedMoves AllowedMoves    `json:"allowed_moves"`
}

// GameStartPayload accompanies game_start.
type GameStartPayload struct {
	GameState State `json:"game_state"`
}

// GameEndPayload accompanies game_end.
type GameEndPayload struct {
	GameState  State           `json:"game_state"`
	Winner     core.Winner     `json:"winner"`
	Conclusion core.Conclusion `json:"conclusion"`
}

// EloChange is the pairwise rating delta computed at end-of-game. The
// engine computes it but never persists it — the caller (hub/service)
// is responsible for writing the new ratings back through the account
// store, keeping the engine free of any storage dependency.
type EloChange struct {
	HostElo, AwayElo       int
	HostEloDelta, AwayEloDelta int
}

// Outcome is the result of any engine command: a direct acknowledgement
// for the issuer plus zero or more events to fan out to other sockets.
type Outcome struct {
	Ack       interface{}
	Events    []Event
	EloChange *EloChange
}
