package chessrules

import (
	"encoding/json"
	"fmt"
	"strings"

	libchess "github.com/corentings/chess/v2"

	"github.com/kasupel/server/internal/core"
)

// Move is (start_rank, start_file, end_rank, end_file, promotion?), 0-7
// coordinates, exactly as spec §4.1 defines it. Promotion is required
// iff a pawn reaches the last rank.
type Move struct {
	StartRank, StartFile int
	EndRank, EndFile     int
	Promotion            libchess.PieceType // libchess.NoPieceType when absent
}

// moveWire is the JSON shape clients send and receive: the tuple named
// in full, with promotion as an absent-or-single-letter field rather
// than libchess's internal piece-type constant.
type moveWire struct {
	StartRank int     `json:"start_rank"`
	StartFile int     `json:"start_file"`
	EndRank   int     `json:"end_rank"`
	EndFile   int     `json:"end_file"`
	Promotion *string `json:"promotion,omitempty"`
}

func (m Move) MarshalJSON() ([]byte, error) {
	w := moveWire{StartRank: m.StartRank, StartFile: m.StartFile, EndRank: m.EndRank, EndFile: m.EndFile}
	if letter, ok := promoLetters[m.Promotion]; ok {
		s := string(letter)
		w.Promotion = &s
	}
	return json.Marshal(w)
}

func (m *Move) UnmarshalJSON(data []byte) error {
	var w moveWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*m = Move{StartRank: w.StartRank, StartFile: w.StartFile, EndRank: w.EndRank, EndFile: w.EndFile}
	if w.Promotion != nil {
		if len(*w.Promotion) != 1 {
			return core.NewError(core.CodeInvalidMove, "malformed promotion")
		}
		pt, ok := promoFromLetter[(*w.Promotion)[0]]
		if !ok {
			return core.NewError(core.CodeInvalidMove, "malformed promotion")
		}
		m.Promotion = pt
	}
	return nil
}

var promoLetters = map[libchess.PieceType]byte{
	libchess.Queen:  'q',
	libchess.Rook:   'r',
	libchess.Bishop: 'b',
	libchess.Knight: 'n',
}

var promoFromLetter = map[byte]libchess.PieceType{
	'q': libchess.Queen,
	'r': libchess.Rook,
	'b': libchess.Bishop,
	'n': libchess.Knight,
}

// String renders the move in UCI notation, e.g. "e2e4" or "a7a8q".
func (m Move) String() string {
	s := fmt.Sprintf("%c%d%c%d",
		'a'+m.StartFile, m.StartRank+1,
		'a'+m.EndFile, m.EndRank+1)
	if letter, ok := promoLetters[m.Promotion]; ok {
		s += string(letter)
	}
	return s
}

// ParseMove decodes a UCI move string as produced by the wire protocol.
func ParseMove(s string) (Move, error) {
	if len(s) != 4 && len(s) != 5 {
		return Move{}, core.NewError(core.CodeInvalidMove, fmt.Sprintf("malformed move %q", s))
	}
	valid := func(file, rank byte) bool {
		return file >= 'a' && file <= 'h' && rank >= '1' && rank <= '8'
	}
	if !valid(s[0], s[1]) || !valid(s[2], s[3]) {
		return Move{}, core.NewError(core.CodeInvalidMove, fmt.Sprintf("malformed move %q", s))
	}
	m := Move{
		StartFile: int(s[0] - 'a'),
		StartRank: int(s[1] - '1'),
		EndFile:   int(s[2] - 'a'),
		EndRank:   int(s[3] - '1'),
	}
	if len(s) == 5 {
		pt, ok := promoFromLetter[s[4]]
		if !ok {
			return Move{}, core.NewError(core.CodeInvalidMove, fmt.Sprintf("malformed promotion in %q", s))
		}
		m.Promotion = pt
	}
	return m, nil
}

func squareOf(rank, file int) libchess.Square {
	return libchess.NewSquare(libchess.File(file), libchess.Rank(rank))
}

func moveFromLib(lm libchess.Move) Move {
	s1, s2 := lm.S1(), lm.S2()
	return Move{
		StartRank: int(s1.Rank()),
		StartFile: int(s1.File()),
		EndRank:   int(s2.Rank()),
		EndFile:   int(s2.File()),
		Promotion: lm.Promo(),
	}
}

// LegalMoves returns every legal move for side in position. The caller
// is expected to only ever query the side actually to move; moves for
// the other side are always empty.
func LegalMoves(p Position, side core.Side) ([]Move, error) {
	g, err := loadGame(p.fen)
	if err != nil {
		return nil, err
	}
	if g.Position().Turn() != sideToColor(side) {
		return nil, nil
	}
	libMoves := g.ValidMoves()
	moves := make([]Move, 0, len(libMoves))
	for _, lm := range libMoves {
		moves = append(moves, moveFromLib(lm))
	}
	return moves, nil
}

// isLegal reports whether move is present in LegalMoves(p, side).
func isLegal(p Position, side core.Side, move Move) (*libchess.Move, error) {
	g, err := loadGame(p.fen)
	if err != nil {
		return nil, err
	}
	if g.Position().Turn() != sideToColor(side) {
		return nil, core.NewError(core.CodeInvalidMove, "not this side's turn")
	}
	for _, lm := range g.ValidMoves() {
		if moveFromLib(lm) == move {
			return &lm, nil
		}
	}
	return nil, core.NewError(core.CodeInvalidMove, fmt.Sprintf("%s is not a legal move", move))
}

// Apply plays move (which must be in LegalMoves(p, side)) and returns
// the resulting position.
func Apply(p Position, side core.Side, move Move) (Position, error) {
	g, err := loadGame(p.fen)
	if err != nil {
		return Position{}, err
	}
	lm, err := isLegal(p, side, move)
	if err != nil {
		return Position{}, err
	}
	if err := g.Move(lm, nil); err != nil {
		return Position{}, core.NewError(core.CodeInvalidMove, err.Error())
	}
	return Position{fen: g.Position().String()}, nil
}

// IsCheck reports whether side's king is currently attacked in p, given
// that side has no legal moves (the only case this package needs:
// distinguishing checkmate from stalemate in Terminal). The library
// exposes no direct in-check query, only Status(), which conflates
// check with the absence of legal moves; callers with legal moves
// available cannot use this to detect check.
func IsCheck(p Position, side core.Side) (bool, error) {
	g, err := loadGame(p.fen)
	if err != nil {
		return false, err
	}
	if g.Position().Turn() != sideToColor(side) {
		// Status only answers for the side to move; flip the turn field
		// in the FEN (board, castling and en-passant are unaffected by
		// whose turn it is) to ask about the other side.
		flipped, ferr := flipTurn(p.fen)
		if ferr != nil {
			return false, ferr
		}
		g, err = loadGame(flipped)
		if err != nil {
			return false, err
		}
	}
	return g.Position().Status() == libchess.Checkmate, nil
}

func flipTurn(fen string) (string, error) {
	fields := strings.Fields(fen)
	if len(fields) != 6 {
		return "", core.NewError(core.CodeWrongParams, "invalid FEN")
	}
	if fields[1] == "w" {
		fields[1] = "b"
	} else {
		fields[1] = "w"
	}
	return strings.Join(fields, " "), nil
}

// TerminalResult is the outcome of Terminal.
type TerminalResult int

const (
	NotTerminal TerminalResult = iota
	TerminalCheckmate
	TerminalStalemate
)

// Terminal reports whether sideToMove has no legal moves in p, and if
// so whether that is checkmate or stalemate.
func Terminal(p Position, sideToMove core.Side) (TerminalResult, error) {
	moves, err := LegalMoves(p, sideToMove)
	if err != nil {
		return NotTerminal, err
	}
	if len(moves) > 0 {
		return NotTerminal, nil
	}
	inCheck, err := IsCheck(p, sideToMove)
	if err != nil {
		return NotTerminal, err
	}
	if inCheck {
		return TerminalCheckmate, nil
	}
	return TerminalStalemate, nil
}

// IsReversible reports whether move is reversible for the 50-move rule:
// a pawn advance or a capture is irreversible (false) and resets the
// halfmove clock, every other move is reversible (true) and increments it.
func IsReversible(p Position, side core.Side, move Move) (bool, error) {
	g, err := loadGame(p.fen)
	if err != nil {
		return false, err
	}
	lm, err := isLegal(p, side, move)
	if err != nil {
		return false, err
	}
	if lm.HasTag(libchess.Capture) || lm.HasTag(libchess.EnPassant) {
		return false, nil
	}
	piece := g.Position().Board().Piece(lm.S1())
	if piece.Type() == libchess.Pawn {
		return false, nil
	}
	return true, nil
}
