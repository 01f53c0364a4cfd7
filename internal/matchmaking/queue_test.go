package matchmaking

import (
	"testing"
	"time"

	"go.uber.org/zap"
)

func newTestQueue() *Queue {
	return New(zap.NewNop())
}

// Alice(1100,t0), Bob(1300,t1), Carol(1200,t2) calls findMatch.
// Expected: Carol pairs with Alice (diff 100 vs 100 — tie — Alice joined earlier).
func TestFindMatch_TieBrokenByEarliestJoin(t *testing.T) {
	q := newTestQueue()
	t0 := time.Now()

	alice := QueuedPlayer{UserID: "alice", Rating: 1100, JoinedAt: t0}
	bob := QueuedPlayer{UserID: "bob", Rating: 1300, JoinedAt: t0.Add(time.Second)}
	q.Add(alice)
	q.Add(bob)

	carol := QueuedPlayer{UserID: "carol", Rating: 1200, JoinedAt: t0.Add(2 * time.Second)}
	match, found := q.FindMatch(carol)
	if !found {
		t.Fatal("expected a match for carol")
	}
	if match.UserID != "alice" {
		t.Errorf("expected carol to pair with alice, got %s", match.UserID)
	}
}

func TestFindMatch_RespectsRatingWindow(t *testing.T) {
	q := newTestQueue()
	q.Add(QueuedPlayer{UserID: "far", Rating: 1000, JoinedAt: time.Now()})

	_, found := q.FindMatch(QueuedPlayer{UserID: "seeker", Rating: 1500})
	if found {
		t.Error("expected no match outside the rating window")
	}
}

func TestFindMatch_ExcludesSelf(t *testing.T) {
	q := newTestQueue()
	q.Add(QueuedPlayer{UserID: "solo", Rating: 1000, JoinedAt: time.Now()})

	_, found := q.FindMatch(QueuedPlayer{UserID: "solo", Rating: 1000})
	if found {
		t.Error("expected findMatch to never return the querying player itself")
	}
}

func TestAdd_ReplacesExistingEntry(t *testing.T) {
	q := newTestQueue()
	q.Add(QueuedPlayer{UserID: "x", Rating: 1000, JoinedAt: time.Now()})
	q.Add(QueuedPlayer{UserID: "x", Rating: 1400, JoinedAt: time.Now()})

	if q.Size() != 1 {
		t.Fatalf("expected queue uniqueness, got size %d", q.Size())
	}
	p, _ := q.Get("x")
	if p.Rating != 1400 {
		t.Errorf("expected replaced entry to win, got rating %d", p.Rating)
	}
}

func TestRemove_UnknownUserIsNoop(t *testing.T) {
	q := newTestQueue()
	_, ok := q.Remove("ghost")
	if ok {
		t.Error("expected Remove of an absent user to report false")
	}
}

func TestPair_RemovesOnlyOpponent(t *testing.T) {
	q := newTestQueue()
	t0 := time.Now()
	q.Add(QueuedPlayer{UserID: "a", Rating: 1000, JoinedAt: t0})
	q.Add(QueuedPlayer{UserID: "b", Rating: 1050, JoinedAt: t0.Add(time.Second)})

	opponent, found := q.Pair(QueuedPlayer{UserID: "c", Rating: 1020, JoinedAt: t0.Add(2 * time.Second)})
	if !found {
		t.Fatal("expected a pairing")
	}
	if q.Has(opponent.UserID) {
		t.Error("expected Pair to remove the matched opponent")
	}
	if !q.Has("a") && opponent.UserID != "a" {
		t.Error("expected the non-matched player to remain queued")
	}
	if q.Has("c") {
		t.Error("Pair must never add the seeking player itself")
	}
}

func TestHas(t *testing.T) {
	q := newTestQueue()
	if q.Has("nobody") {
		t.Error("expected Has to report false for an empty queue")
	}
	q.Add(QueuedPlayer{UserID: "present", Rating: 1000, JoinedAt: time.Now()})
	if !q.Has("present") {
		t.Error("expected Has to report true after Add")
	}
}
