package engine

import (
	"testing"
	"time"

	"github.com/kasupel/server/internal/chessrules"
	"github.com/kasupel/server/internal/core"
)

type fakeResolver map[int64]core.PublicUser

func (f fakeResolver) ResolveUser(id int64) (core.PublicUser, error) {
	u, ok := f[id]
	if !ok {
		return core.PublicUser{}, core.NewError(core.CodeAccountNotFound, "no such user")
	}
	return u, nil
}

func newStartedGame(t *testing.T, tc core.TimeControl) *Game {
	t.Helper()
	g := NewSearchingGame(1, 100, tc, time.Unix(0, 0))
	g.Start(200, time.Unix(0, 0))
	return g
}

func mustMove(t *testing.T, g *Game, side core.Side, uci string, at time.Time) *Outcome {
	t.Helper()
	m, err := chessrules.ParseMove(uci)
	if err != nil {
		t.Fatalf("parse %s: %v", uci, err)
	}
	out, err := g.Move(side, m, at, nil)
	if err != nil {
		t.Fatalf("move %s: %v", uci, err)
	}
	return out
}

// Scholar's mate: spec §8 scenario 1.
func TestScholarsMate(t *testing.T) {
	tc := core.TimeControl{MainThinkingTime: 600, Mode: core.ChessMode}
	g := newStartedGame(t, tc)
	resolver := fakeResolver{100: {ID: 100, Elo: 1000}, 200: {ID: 200, Elo: 1000}}

	base := time.Unix(0, 0)
	mustMove(t, g, core.Host, "e2e4", base)
	mustMove(t, g, core.Away, "e7e5", base)
	mustMove(t, g, core.Host, "f1c4", base)
	mustMove(t, g, core.Away, "b8c6", base)
	mustMove(t, g, core.Host, "d1h5", base)
	mustMove(t, g, core.Away, "g8f6", base)

	m, err := chessrules.ParseMove("h5f7")
	if err != nil {
		t.Fatal(err)
	}
	out, err := g.Move(core.Host, m, base, resolver)
	if err != nil {
		t.Fatalf("checkmating move rejected: %v", err)
	}
	if g.Winner != core.WinnerHost || g.Conclusion != core.ConclusionCheckmate {
		t.Fatalf("expected host checkmate win, got winner=%v conclusion=%v", g.Winner, g.Conclusion)
	}
	if !g.IsFinished() {
		t.Fatal("game should be finished")
	}
	if out.EloChange == nil || out.EloChange.HostEloDelta <= 0 || out.EloChange.AwayEloDelta >= 0 {
		t.Fatalf("expected a positive host delta and negative away delta, got %+v", out.EloChange)
	}
	if out.EloChange.HostEloDelta != -out.EloChange.AwayEloDelta {
		t.Fatalf("elo deltas should be equal and opposite, got %+v", out.EloChange)
	}

	if _, err := g.OfferDraw(core.Away); err == nil {
		t.Fatal("expected NotInProgress after game end")
	}
}

// Timeout: spec §8 scenario 2.
func TestTimeout(t *testing.T) {
	tc := core.TimeControl{MainThinkingTime: 60, Mode: core.ChessMode}
	g := newStartedGame(t, tc)

	base := time.Unix(0, 0)
	mustMove(t, g, core.Host, "e2e4", base)
	// Away never moves; the sweep asserts timeout at t=61.
	out, err := g.AssertTimeout(base.Add(61*time.Second), nil)
	if err != nil {
		t.Fatalf("AssertTimeout: %v", err)
	}
	if g.Winner != core.WinnerHost || g.Conclusion != core.ConclusionOutOfTime {
		t.Fatalf("expected host win on time, got winner=%v conclusion=%v", g.Winner, g.Conclusion)
	}
	if len(out.Events) != 1 || out.Events[0].Type != EventGameEnd {
		t.Fatalf("expected a single game_end event, got %+v", out.Events)
	}
}

func TestAssertTimeoutBeforeExpiry(t *testing.T) {
	tc := core.TimeControl{MainThinkingTime: 60, Mode: core.ChessMode}
	g := newStartedGame(t, tc)
	base := time.Unix(0, 0)
	if _, err := g.AssertTimeout(base.Add(10*time.Second), nil); err == nil {
		t.Fatal("expected OpponentNotTimedOut")
	}
}

// Threefold repetition: spec §8 scenario 3.
func TestThreefoldRepetitionClaim(t *testing.T) {
	tc := core.TimeControl{MainThinkingTime: 600, Mode: core.ChessMode}
	g := newStartedGame(t, tc)
	base := time.Unix(0, 0)

	shuffle := [][2]string{{"g1f3", "g8f6"}, {"f3g1", "f6g8"}}
	for i := 0; i < 2; i++ {
		mustMove(t, g, core.Host, shuffle[i%2][0], base)
		mustMove(t, g, core.Away, shuffle[i%2][1], base)
	}

	// Only two occurrences of the starting position so far (initial +
	// after one full round trip); claiming now must fail.
	if _, err := g.ClaimDraw(core.Host, core.DrawReasonThreefoldRepetition, base, nil); err == nil {
		t.Fatal("expected DrawNotAvailable with only two occurrences")
	}

	for i := 0; i < 2; i++ {
		mustMove(t, g, core.Host, shuffle[i%2][0], base)
		mustMove(t, g, core.Away, shuffle[i%2][1], base)
	}

	out, err := g.ClaimDraw(core.Host, core.DrawReasonThreefoldRepetition, base, nil)
	if err != nil {
		t.Fatalf("expected third occurrence to be claimable: %v", err)
	}
	if g.Winner != core.WinnerDraw || g.Conclusion != core.ConclusionThreefoldRepetition {
		t.Fatalf("expected draw by repetition, got winner=%v conclusion=%v", g.Winner, g.Conclusion)
	}
	_ = out
}

// Draw agreed: spec §8 scenario 5.
func TestAgreedDraw(t *testing.T) {
	tc := core.TimeControl{MainThinkingTime: 600, Mode: core.ChessMode}
	g := newStartedGame(t, tc)

	if _, err := g.OfferDraw(core.Host); err != nil {
		t.Fatalf("OfferDraw: %v", err)
	}
	if !g.HostOfferingDraw {
		t.Fatal("expected host_offering_draw to be set")
	}

	if _, err := g.ClaimDraw(core.Away, core.DrawReasonAgreed, time.Unix(0, 0), nil); err != nil {
		t.Fatalf("ClaimDraw AgreedDraw: %v", err)
	}
	if g.Winner != core.WinnerDraw || g.Conclusion != core.ConclusionAgreedDraw {
		t.Fatalf("expected agreed draw, got winner=%v conclusion=%v", g.Winner, g.Conclusion)
	}
}

func TestAgreedDrawWithoutOffer(t *testing.T) {
	tc := core.TimeControl{MainThinkingTime: 600, Mode: core.ChessMode}
	g := newStartedGame(t, tc)
	if _, err := g.ClaimDraw(core.Away, core.DrawReasonAgreed, time.Unix(0, 0), nil); err == nil {
		t.Fatal("expected DrawNotAvailable without a prior offer")
	}
}

func TestMoveClearsDrawOffers(t *testing.T) {
	tc := core.TimeControl{MainThinkingTime: 600, Mode: core.ChessMode}
	g := newStartedGame(t, tc)
	if _, err := g.OfferDraw(core.Host); err != nil {
		t.Fatal(err)
	}
	mustMove(t, g, core.Host, "e2e4", time.Unix(0, 0))
	if g.HostOfferingDraw {
		t.Fatal("a move should clear the mover's own pending draw offer")
	}
}

func TestResignation(t *testing.T) {
	tc := core.TimeControl{MainThinkingTime: 600, Mode: core.ChessMode}
	g := newStartedGame(t, tc)
	out, err := g.Resign(core.Host, time.Unix(0, 0), nil)
	if err != nil {
		t.Fatalf("Resign: %v", err)
	}
	if g.Winner != core.WinnerAway || g.Conclusion != core.ConclusionResignation {
		t.Fatalf("expected away win on resignation, got winner=%v conclusion=%v", g.Winner, g.Conclusion)
	}
	if len(out.Events) != 1 || out.Events[0].Type != EventGameEnd {
		t.Fatalf("expected a single game_end event, got %+v", out.Events)
	}
}

func TestNotYourTurn(t *testing.T) {
	tc := core.TimeControl{MainThinkingTime: 600, Mode: core.ChessMode}
	g := newStartedGame(t, tc)
	m, _ := chessrules.ParseMove("e7e5")
	if _, err := g.Move(core.Away, m, time.Unix(0, 0), nil); err == nil {
		t.Fatal("expected NotYourTurn")
	}
}

func TestTurnNumberAndClockInvariant(t *testing.T) {
	tc := core.TimeControl{MainThinkingTime: 600, TimeIncrementPerTurn: 5, Mode: core.ChessMode}
	g := newStartedGame(t, tc)
	startHost, startAway := g.HostTime, g.AwayTime

	mustMove(t, g, core.Host, "e2e4", time.Unix(10, 0))
	if g.TurnNumber != 1 || g.CurrentTurn != core.Away {
		t.Fatalf("expected turn_number=1, current_turn=away, got %d/%v", g.TurnNumber, g.CurrentTurn)
	}
	if g.AwayTime != startAway {
		t.Fatalf("away's clock must be untouched by host's move, got %d want %d", g.AwayTime, startAway)
	}
	wantHost := startHost - 10 + 5
	if g.HostTime != wantHost {
		t.Fatalf("host_time = %d, want %d", g.HostTime, wantHost)
	}
}
