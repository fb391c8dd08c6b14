// Package chessrules provides the pure-function chess primitives the game
// engine is built on: legal move generation, move application, check and
// terminal-state detection, and position fingerprinting. Every function
// takes an immutable Position and returns a new one — no shared mutable
// board state survives a call.
//
// Move legality and application are delegated to corentings/chess/v2, the
// same move-generation library dustywusty-tinychess and the Cheese bot use.
// The library is always crossed at the FEN boundary, never through its
// internal board/square types, so this package's public contract is the
// tuple shape spec'd for Move: (start_rank, start_file, end_rank,
// end_file, promotion?).
package chessrules

import (
	"crypto/sha256"
	"fmt"
	"strings"

	libchess "github.com/corentings/chess/v2"

	"github.com/kasupel/server/internal/core"
)

// StartingFEN is the initial position of a standard chess game.
const StartingFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// Position is an immutable chess position, represented as FEN. FEN
// already carries everything the spec requires to live "inside the
// position structure, not the Game row": castling rights and the
// en-passant target.
type Position struct {
	fen string
}

// NewPosition validates fen and wraps it.
func NewPosition(fen string) (Position, error) {
	if _, err := loadGame(fen); err != nil {
		return Position{}, core.NewError(core.CodeWrongParams, fmt.Sprintf("invalid position: %v", err))
	}
	return Position{fen: fen}, nil
}

// StartingPosition returns the standard chess starting position.
func StartingPosition() Position {
	return Position{fen: StartingFEN}
}

// FEN returns the FEN representation of the position.
func (p Position) FEN() string { return p.fen }

// Turn returns which side is to move in this position.
func (p Position) Turn() (core.Side, error) {
	g, err := loadGame(p.fen)
	if err != nil {
		return core.Host, err
	}
	if g.Position().Turn() == libchess.White {
		return core.Host, nil
	}
	return core.Away, nil
}

func loadGame(fen string) (*libchess.Game, error) {
	opt, err := libchess.FEN(fen)
	if err != nil {
		return nil, err
	}
	return libchess.NewGame(opt), nil
}

// sideToColor maps the spec's Host/Away onto the library's White/Black.
// Host always moves first, matching the FEN's initial "w" turn field.
func sideToColor(s core.Side) libchess.Color {
	if s == core.Host {
		return libchess.White
	}
	return libchess.Black
}

// Fingerprint computes the spec's 128-bit opaque position fingerprint:
// equal for two positions with the same piece placement, side to move,
// castling rights, and en-passant target.
//
// corentings/chess/v2 does not export its internal Zobrist hash, so the
// fingerprint is derived independently from the first four
// space-separated FEN fields (board, turn, castling, en passant — the
// fifth and sixth fields, halfmove/fullmove counters, are deliberately
// excluded since they do not affect position equivalence) hashed with
// crypto/sha256 and truncated to 16 bytes.
func Fingerprint(p Position) [16]byte {
	fields := strings.Fields(p.fen)
	canonical := strings.Join(fields[:min(4, len(fields))], " ")
	sum := sha256.Sum256([]byte(canonical))
	var out [16]byte
	copy(out[:], sum[:16])
	return out
}
