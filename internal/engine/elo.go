package engine

import (
	"math"

	"github.com/kasupel/server/internal/core"
)

// eloK is the rating update's k-factor. Spec §4.3 suggests 32 and leaves
// the exact value to the implementer.
const eloK = 32

// expectedScore is the standard logistic Elo expectation of self against
// other.
func expectedScore(self, other int) float64 {
	return 1 / (1 + math.Pow(10, float64(other-self)/400))
}

// actualScore returns host's score (1, 0.5 or 0) given the outcome from
// host's perspective.
func actualScore(winner core.Winner) float64 {
	switch winner {
	case core.WinnerHost:
		return 1
	case core.WinnerDraw:
		return 0.5
	default:
		return 0
	}
}

// settleElo applies a pairwise zero-sum Elo update. Resignation and
// timeout losses are scored identically to a natural checkmate loss —
// the spec only withholds ELO from a game that never reached a
// conclusion at all, which settleElo's callers already guard against by
// only calling it once winner/conclusion are final.
func settleElo(hostElo, awayElo int, winner core.Winner) *EloChange {
	hostExpected := expectedScore(hostElo, awayElo)
	awayExpected := 1 - hostExpected
	hostActual := actualScore(winner)
	awayActual := 1 - hostActual

	newHost := int(math.Round(float64(hostElo) + eloK*(hostActual-hostExpected)))
	newAway := int(math.Round(float64(awayElo) + eloK*(awayActual-awayExpected)))

	return &EloChange{
		HostElo:      newHost,
		AwayElo:      newAway,
		HostEloDelta: newHost - hostElo,
		AwayEloDelta: newAway - awayElo,
	}
}
