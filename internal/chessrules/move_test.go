package chessrules

import (
	"testing"

	"github.com/kasupel/server/internal/core"
)

func TestParseMoveRoundTripsUCI(t *testing.T) {
	m, err := ParseMove("e2e4")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got := m.String(); got != "e2e4" {
		t.Fatalf("got %q, want e2e4", got)
	}
}

func TestParseMoveRejectsMalformed(t *testing.T) {
	if _, err := ParseMove("z9z9"); err == nil {
		t.Fatal("expected error for malformed move")
	}
	if _, err := ParseMove("e2"); err == nil {
		t.Fatal("expected error for short move")
	}
}

func TestApplyStartingPawnPush(t *testing.T) {
	p := StartingPosition()
	m, err := ParseMove("e2e4")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	next, err := Apply(p, core.Host, m)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	turn, err := next.Turn()
	if err != nil {
		t.Fatalf("turn: %v", err)
	}
	if turn != core.Away {
		t.Fatalf("got turn %v, want away", turn)
	}
}

func TestApplyRejectsIllegalMove(t *testing.T) {
	p := StartingPosition()
	m, err := ParseMove("e2e5")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if _, err := Apply(p, core.Host, m); err == nil {
		t.Fatal("expected illegal move to be rejected")
	}
}

func TestLegalMovesFromStartingPosition(t *testing.T) {
	p := StartingPosition()
	moves, err := LegalMoves(p, core.Host)
	if err != nil {
		t.Fatalf("legal moves: %v", err)
	}
	if len(moves) != 20 {
		t.Fatalf("got %d legal moves, want 20", len(moves))
	}
}

func TestTerminalDetectsCheckmate(t *testing.T) {
	// Fool's mate: host on the white side, away on black.
	p := StartingPosition()
	moves := []struct {
		side core.Side
		uci  string
	}{
		{core.Host, "f2f3"},
		{core.Away, "e7e5"},
		{core.Host, "g2g4"},
		{core.Away, "d8h4"},
	}
	for _, mv := range moves {
		m, err := ParseMove(mv.uci)
		if err != nil {
			t.Fatalf("parse %s: %v", mv.uci, err)
		}
		p, err = Apply(p, mv.side, m)
		if err != nil {
			t.Fatalf("apply %s: %v", mv.uci, err)
		}
	}
	result, err := Terminal(p, core.Host)
	if err != nil {
		t.Fatalf("terminal: %v", err)
	}
	if result != TerminalCheckmate {
		t.Fatalf("got %v, want checkmate", result)
	}
}
