// Package matchmaking implements the in-memory, rating-indexed waiting set
// that pairs two connected players of comparable skill under a bounded
// wait deadline. It is intentionally single-process; sharding it across
// processes is out of scope.
package matchmaking

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// MatchmakingTimeoutMs is the wait deadline before a queued player is
// evicted and notified with a timeout event.
const MatchmakingTimeoutMs = 30_000

// RatingWindow bounds how far apart two ratings may be and still match.
// Fixed at 200 in v1; a permitted future extension widens this over wait
// time, not implemented here.
const RatingWindow = 200

// Notifier is the queue's back-channel to a waiting player's connection.
// The session gateway implements this over its websocket client.
type Notifier interface {
	NotifyMatchmakingTimeout()
}

// QueuedPlayer is one waiting participant. A user appears at most once in
// the queue at any time.
type QueuedPlayer struct {
	UserID   string
	Username string
	Rating   int
	Session  Notifier
	JoinedAt time.Time
}

var queueSize = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "duelcore_matchmaking_queue_size",
	Help: "Current number of players waiting in the matchmaking queue.",
})

// Queue is the process-wide matchmaking waiting set. It owns its own mutex
// and deadline table; callers never reach into its internals directly.
type Queue struct {
	mu       sync.Mutex
	players  map[string]QueuedPlayer
	deadline *DeadlineTable
	logger   *zap.Logger
}

// New constructs an empty queue.
func New(logger *zap.Logger) *Queue {
	return &Queue{
		players:  make(map[string]QueuedPlayer),
		deadline: NewDeadlineTable(),
		logger:   logger,
	}
}

// Add inserts p into the queue, replacing and cancelling any prior entry
// for the same userID, then arms a fresh matchmaking deadline.
func (q *Queue) Add(p QueuedPlayer) {
	q.mu.Lock()
	q.players[p.UserID] = p
	q.mu.Unlock()

	q.arm(p.UserID)
	queueSize.Set(float64(q.Size()))
}

func (q *Queue) arm(userID string) {
	q.deadline.Schedule(userID, MatchmakingTimeoutMs*time.Millisecond, func() {
		evicted, ok := q.Remove(userID)
		if !ok {
			return
		}
		q.logger.Info("matchmaking deadline fired",
			zap.String("user_id", evicted.UserID),
			zap.Duration("waited", time.Since(evicted.JoinedAt)),
		)
		if evicted.Session != nil {
			evicted.Session.NotifyMatchmakingTimeout()
		}
	})
}

// Remove cancels the deadline and deletes userID from the queue, returning
// the removed entry if present.
func (q *Queue) Remove(userID string) (QueuedPlayer, bool) {
	q.deadline.Cancel(userID)

	q.mu.Lock()
	p, ok := q.players[userID]
	if ok {
		delete(q.players, userID)
	}
	q.mu.Unlock()

	queueSize.Set(float64(q.Size()))
	return p, ok
}

// findMatch scans the queue for the best opponent for p: the entry with the
// smallest rating difference within RatingWindow, breaking ties by earliest
// JoinedAt. Must be called with q.mu held.
func (q *Queue) findMatch(p QueuedPlayer) (QueuedPlayer, bool) {
	var best QueuedPlayer
	bestDiff := -1
	found := false

	for _, c := range q.players {
		if c.UserID == p.UserID {
			continue
		}
		diff := abs(c.Rating - p.Rating)
		if diff > RatingWindow {
			continue
		}
		if !found || diff < bestDiff || (diff == bestDiff && c.JoinedAt.Before(best.JoinedAt)) {
			best = c
			bestDiff = diff
			found = true
		}
	}

	return best, found
}

// FindMatch is findMatch's external, non-mutating read: it reports the
// candidate Pair would select, without removing anything. Exposed for
// status queries and tests; the pairing protocol itself should call Pair.
func (q *Queue) FindMatch(p QueuedPlayer) (QueuedPlayer, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.findMatch(p)
}

// Pair atomically finds and removes the best opponent for p, holding the
// queue mutex across both steps so no other caller observes a torn state. p itself is
// never added by Pair — on a miss, the caller is responsible for calling
// Add.
func (q *Queue) Pair(p QueuedPlayer) (QueuedPlayer, bool) {
	q.mu.Lock()
	opponent, found := q.findMatch(p)
	if found {
		q.deadline.Cancel(opponent.UserID)
		delete(q.players, opponent.UserID)
	}
	q.mu.Unlock()

	if found {
		queueSize.Set(float64(q.Size()))
	}
	return opponent, found
}

// Size reports the number of players currently queued.
func (q *Queue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.players)
}

// Has reports whether userID is currently queued.
func (q *Queue) Has(userID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	_, ok := q.players[userID]
	return ok
}

// Get returns the queued entry for userID, if present.
func (q *Queue) Get(userID string) (QueuedPlayer, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	p, ok := q.players[userID]
	return p, ok
}

// Shutdown cancels every outstanding deadline. Call once, at process exit.
func (q *Queue) Shutdown() {
	q.deadline.CancelAll()
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
