// Package clock implements the Fischer-with-delay-and-increment clock
// accounting described in spec §4.2. All quantities are whole seconds;
// fixed_extra_time is not tracked separately — it is folded into the
// side's initial allowance once, at game start.
package clock

// NewAllowance returns the initial remaining time for a side: the main
// thinking time plus the fixed extra time, baked together since
// fixed_extra_time is never tracked as a separate bucket at runtime.
func NewAllowance(mainThinkingTime, fixedExtraTime int) int {
	return mainThinkingTime + fixedExtraTime
}

// Deduct subtracts elapsed seconds since the side's last turn from its
// remaining time. The result may be negative — a negative result means
// the side has run out of time; the caller (the engine) is responsible
// for turning that into an OutOfTime conclusion rather than clamping it.
func Deduct(remaining, elapsedSeconds int) int {
	return remaining - elapsedSeconds
}

// CreditIncrement adds the per-turn increment back to a side's clock
// after it completes a legal move.
func CreditIncrement(remaining, increment int) int {
	return remaining + increment
}

// TimedOut reports whether remaining seconds, after Deduct, means the
// side has lost on time.
func TimedOut(remaining int) bool {
	return remaining < 0
}
