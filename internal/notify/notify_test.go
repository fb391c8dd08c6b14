package notify

import (
	"testing"

	"github.com/kasupel/server/internal/core"
)

type memStore struct {
	inserted []core.NotificationType
	acked    map[int64]bool
}

func newMemStore() *memStore {
	return &memStore{acked: make(map[int64]bool)}
}

func (s *memStore) InsertNotification(userID int64, typ core.NotificationType, gameID *int64) error {
	s.inserted = append(s.inserted, typ)
	return nil
}

func (s *memStore) UnreadNotificationCount(userID int64) (int64, error) {
	return 0, nil
}

func (s *memStore) AckNotification(userID, notificationID int64) error {
	s.acked[notificationID] = true
	return nil
}

type recordingSocket struct {
	delivered int
}

func (r *recordingSocket) DeliverNotification(userID int64, typ core.NotificationType, gameID *int64) {
	r.delivered++
}

func TestEnqueueIncrementsUnreadAndDelivers(t *testing.T) {
	store := newMemStore()
	socket := &recordingSocket{}
	q := New(store, socket)

	if err := q.Enqueue(1, core.NotifyGamesWinTime, nil); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	n, err := q.UnreadCount(1)
	if err != nil {
		t.Fatalf("unread count: %v", err)
	}
	if n != 1 {
		t.Fatalf("got %d, want 1", n)
	}
	if socket.delivered != 1 {
		t.Fatalf("got %d deliveries, want 1", socket.delivered)
	}
}

func TestEnqueueWithoutSocketStillPersists(t *testing.T) {
	store := newMemStore()
	q := New(store, nil)

	if err := q.Enqueue(1, core.NotifyGamesLossTime, nil); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if len(store.inserted) != 1 {
		t.Fatalf("got %d inserts, want 1", len(store.inserted))
	}
}

func TestSetSocketBindsAfterConstruction(t *testing.T) {
	store := newMemStore()
	q := New(store, nil)
	socket := &recordingSocket{}
	q.SetSocket(socket)

	if err := q.Enqueue(1, core.NotifyGamesWinResign, nil); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if socket.delivered != 1 {
		t.Fatalf("got %d deliveries, want 1", socket.delivered)
	}
}

func TestAckDecrementsUnreadCount(t *testing.T) {
	store := newMemStore()
	q := New(store, nil)

	q.Enqueue(1, core.NotifyGamesWinTime, nil)
	q.Enqueue(1, core.NotifyGamesLossTime, nil)
	if err := q.Ack(1, 99); err != nil {
		t.Fatalf("ack: %v", err)
	}
	n, err := q.UnreadCount(1)
	if err != nil {
		t.Fatalf("unread count: %v", err)
	}
	if n != 1 {
		t.Fatalf("got %d, want 1", n)
	}
	if !store.acked[99] {
		t.Fatal("expected notification 99 to be acked in storage")
	}
}

func TestResultNotificationMapsOutcomes(t *testing.T) {
	cases := []struct {
		perspective core.Side
		winner      core.Winner
		conclusion  core.Conclusion
		want        core.NotificationType
	}{
		{core.Host, core.WinnerHost, core.ConclusionResignation, core.NotifyGamesWinResign},
		{core.Host, core.WinnerHost, core.ConclusionCheckmate, core.NotifyGamesWinTime},
		{core.Away, core.WinnerHost, core.ConclusionOutOfTime, core.NotifyGamesLossTime},
		{core.Away, core.WinnerHost, core.ConclusionCheckmate, core.NotifyGamesLossCheckmate},
		{core.Host, core.WinnerDraw, core.ConclusionStalemate, core.NotifyGamesDrawStalemate},
		{core.Host, core.WinnerDraw, core.ConclusionThreefoldRepetition, core.NotifyGamesDrawThreefoldRepetition},
		{core.Host, core.WinnerDraw, core.ConclusionFiftyMoveRule, core.NotifyGamesDrawFiftyMoveRule},
		{core.Host, core.WinnerDraw, core.ConclusionAgreedDraw, core.NotifyGamesDrawAgreed},
	}
	for _, c := range cases {
		if got := ResultNotification(c.perspective, c.winner, c.conclusion); got != c.want {
			t.Errorf("ResultNotification(%v,%v,%v) = %v, want %v", c.perspective, c.winner, c.conclusion, got, c.want)
		}
	}
}
