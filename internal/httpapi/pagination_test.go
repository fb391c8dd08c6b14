package httpapi

import "testing"

func TestNewPagePageZeroOfEmptyList(t *testing.T) {
	p, err := NewPage[int](nil, 0, 0)
	if err != nil {
		t.Fatalf("page 0 of empty list should succeed: %v", err)
	}
	if len(p.Items) != 0 || p.Pages != 0 {
		t.Fatalf("got %+v, want empty page", p)
	}
}

func TestNewPageOutOfRange(t *testing.T) {
	items := make([]int, PageSize)
	if _, err := NewPage(items, 5, PageSize); err == nil {
		t.Fatal("expected out-of-range error for page beyond total")
	}
}

func TestNewPageWithinRange(t *testing.T) {
	items := make([]int, PageSize)
	p, err := NewPage(items, 0, PageSize*3)
	if err != nil {
		t.Fatalf("page within range: %v", err)
	}
	if p.Pages != 3 {
		t.Fatalf("got %d pages, want 3", p.Pages)
	}
}
