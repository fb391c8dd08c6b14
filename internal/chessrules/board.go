package chessrules

import (
	libchess "github.com/corentings/chess/v2"

	"github.com/kasupel/server/internal/core"
)

// PieceType is the wire-level piece enum from spec §6: pawn=1 through
// king=6, matching the "enums as integers" wire rule.
type PieceType int

const (
	Pawn PieceType = iota + 1
	Knight
	Bishop
	Rook
	Queen
	King
)

var pieceTypeFromLib = map[libchess.PieceType]PieceType{
	libchess.Pawn:   Pawn,
	libchess.Knight: Knight,
	libchess.Bishop: Bishop,
	libchess.Rook:   Rook,
	libchess.Queen:  Queen,
	libchess.King:   King,
}

// Square is one occupied square of a board: its piece and which side it
// belongs to.
type Square struct {
	Rank, File int
	Piece      PieceType
	Side       core.Side
}

// Squares returns every occupied square of p, for wire encoding as
// spec §6's `{"<rank>,<file>": [piece, side], ...}` sparse board map.
// Empty squares are simply absent from the result.
func Squares(p Position) ([]Square, error) {
	g, err := loadGame(p.fen)
	if err != nil {
		return nil, err
	}
	board := g.Position().Board()
	var out []Square
	for rank := 0; rank < 8; rank++ {
		for file := 0; file < 8; file++ {
			sq := squareOf(rank, file)
			piece := board.Piece(sq)
			if piece.Type() == libchess.NoPieceType {
				continue
			}
			side := core.Host
			if piece.Color() == libchess.Black {
				side = core.Away
			}
			out = append(out, Square{
				Rank:   rank,
				File:   file,
				Piece:  pieceTypeFromLib[piece.Type()],
				Side:   side,
			})
		}
	}
	return out, nil
}
