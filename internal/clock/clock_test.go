package clock

import "testing"

func TestNewAllowanceSumsMainAndExtra(t *testing.T) {
	if got := NewAllowance(600, 30); got != 630 {
		t.Fatalf("got %d, want 630", got)
	}
}

func TestDeductCanGoNegative(t *testing.T) {
	if got := Deduct(5, 12); got != -7 {
		t.Fatalf("got %d, want -7", got)
	}
}

func TestCreditIncrement(t *testing.T) {
	if got := CreditIncrement(10, 5); got != 15 {
		t.Fatalf("got %d, want 15", got)
	}
}

func TestTimedOut(t *testing.T) {
	if TimedOut(0) {
		t.Fatal("zero remaining is not timed out")
	}
	if !TimedOut(-1) {
		t.Fatal("negative remaining is timed out")
	}
}
