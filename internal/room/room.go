// Package room implements the duel state machine: a room
// progresses from Live through submission, forfeit, or timeout into a
// single terminal settlement. Each operation follows a "validate, mutate,
// persist, publish" shape, with Manager following an owned-mutex-plus-maps
// lifecycle type pattern.
package room

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Divy1030/duelcore/internal/apperr"
	"github.com/Divy1030/duelcore/internal/domain"
	"github.com/Divy1030/duelcore/internal/rating"
	"github.com/Divy1030/duelcore/internal/store"
)

// MatchDuration is how long a duel stays Live before an unfinished room is
// force-settled by timeout.
const MatchDuration = 30 * time.Minute

// Broadcaster is the set of events a Room emits over its lifetime. Manager
// implements it over the pubsub Bus, and the session gateway subscribes to
// the room's channel to fan events out to the connected websocket clients,
// so the room engine never depends on the transport layer directly.
type Broadcaster interface {
	Broadcast(ctx context.Context, roomID string, event string, payload any)
}

// Room is one duel's live state plus the collaborators its operations need.
// Every exported method that reads or changes mutable room state acquires
// mu (ID and EndsAt read fields fixed at creation), so a Room is safe to call concurrently
// from multiple goroutines (a submission racing a timer firing, for
// instance).
type Room struct {
	mu sync.Mutex

	state     domain.Room
	problem   *domain.Problem
	startedAt time.Time
	endsAt    time.Time
	settled   bool

	evaluator Evaluator
	store     store.Store
	broadcast Broadcaster
	logger    *zap.Logger

	cancelTimer func()
}

// Snapshot is the read-only view returned by Status and Rejoin.
type Snapshot struct {
	RoomID        string
	ProblemID     string
	RoomStatus    domain.RoomStatus
	Users         [2]domain.RoomUser
	IsActive      bool
	RemainingTime time.Duration
}

// IsMember reports whether userID is one of the snapshot's two users.
func (s Snapshot) IsMember(userID string) bool {
	for _, u := range s.Users {
		if u.UserID == userID {
			return true
		}
	}
	return false
}

func newRoom(roomID string, problem *domain.Problem, a, b domain.RoomUser, st store.Store, ev Evaluator, bc Broadcaster, logger *zap.Logger) *Room {
	now := time.Now()
	r := &Room{
		state: domain.Room{
			RoomID:     roomID,
			ProblemID:  problem.ID,
			Users:      [2]domain.RoomUser{a, b},
			RoomStatus: domain.RoomLive,
			IsActive:   true,
			CreatedAt:  now,
		},
		problem:   problem,
		startedAt: now,
		endsAt:    now.Add(MatchDuration),
		evaluator: ev,
		store:     st,
		broadcast: bc,
		logger:    logger,
	}
	return r
}

// NewRoomID allocates an opaque room identifier.
func NewRoomID() string {
	return uuid.NewString()
}

// SetTimeoutCanceller wires the function that stops the room's scheduled
// timeout timer. Manager calls this right after arming the timer, so
// settlement can cancel it from any trigger path (submission, forfeit, or
// the timer itself firing).
func (r *Room) SetTimeoutCanceller(fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancelTimer = fn
}

// ID returns the room's identifier.
func (r *Room) ID() string {
	return r.state.RoomID
}

// EndsAt returns the scheduled match end time.
func (r *Room) EndsAt() time.Time {
	return r.endsAt
}

// Submit records userID's solution. Preconditions: room Live, userID is a
// member, their submissionStatus is still pending, language is supported.
func (r *Room) Submit(ctx context.Context, userID, code string, language domain.SupportedLanguage) error {
	if !language.IsValid() {
		return fmt.Errorf("unsupported language %q: %w", language, apperr.ErrBadInput)
	}

	r.mu.Lock()
	if r.state.RoomStatus != domain.RoomLive {
		r.mu.Unlock()
		return fmt.Errorf("room %s is not live: %w", r.state.RoomID, apperr.ErrConflict)
	}
	idx := r.state.IndexOf(userID)
	if idx == -1 {
		r.mu.Unlock()
		return fmt.Errorf("user %s is not a member of room %s: %w", userID, r.state.RoomID, apperr.ErrForbidden)
	}
	if r.state.Users[idx].SubmissionStatus != domain.SubmissionPending {
		r.mu.Unlock()
		return fmt.Errorf("user %s already submitted: %w", userID, apperr.ErrConflict)
	}
	roomID := r.state.RoomID
	r.mu.Unlock()

	r.broadcast.Broadcast(ctx, roomID, "userSubmitting", map[string]any{
		"userId":   userID,
		"language": language,
	})

	score, passed := r.evaluator.Evaluate(r.problem, code, language)

	r.mu.Lock()
	if r.state.RoomStatus != domain.RoomLive {
		r.mu.Unlock()
		return fmt.Errorf("room %s is not live: %w", r.state.RoomID, apperr.ErrConflict)
	}
	if r.state.Users[idx].SubmissionStatus != domain.SubmissionPending {
		r.mu.Unlock()
		return fmt.Errorf("user %s already submitted: %w", userID, apperr.ErrConflict)
	}
	now := time.Now()
	r.state.Users[idx].Score = score
	r.state.Users[idx].SubmissionStatus = domain.SubmissionSubmitted
	r.state.Users[idx].SubmissionTime = &now

	allDone := r.allSettled()
	snapshot := r.state
	r.mu.Unlock()

	if err := r.store.SaveRoom(ctx, &snapshot); err != nil {
		r.logger.Warn("room: save after submit failed", zap.String("room_id", roomID), zap.Error(err))
	}

	r.broadcast.Broadcast(ctx, roomID, "scoreUpdate", snapshot.Users)
	r.broadcast.Broadcast(ctx, roomID, "submissionUpdate", map[string]any{
		"userId": userID,
		"score":  score,
		"passed": passed,
	})

	if allDone {
		r.settle(ctx, domain.ReasonAllSubmitted)
	}
	return nil
}

// Forfeit marks userID as forfeited with a zero score. If at most one
// non-forfeited member remains, settlement fires with reason forfeit.
func (r *Room) Forfeit(ctx context.Context, userID string) error {
	r.mu.Lock()
	if r.state.RoomStatus != domain.RoomLive {
		r.mu.Unlock()
		return nil
	}
	idx := r.state.IndexOf(userID)
	if idx == -1 {
		r.mu.Unlock()
		return fmt.Errorf("user %s is not a member of room %s: %w", userID, r.state.RoomID, apperr.ErrForbidden)
	}
	if r.state.Users[idx].SubmissionStatus == domain.SubmissionPending {
		r.state.Users[idx].Score = 0
		r.state.Users[idx].SubmissionStatus = domain.SubmissionForfeited
	}

	remaining := 0
	for _, u := range r.state.Users {
		if u.SubmissionStatus != domain.SubmissionForfeited {
			remaining++
		}
	}
	roomID := r.state.RoomID
	r.mu.Unlock()

	r.broadcast.Broadcast(ctx, roomID, "opponentLeft", map[string]any{
		"userId": userID,
	})

	if remaining <= 1 {
		r.settle(ctx, domain.ReasonForfeit)
	}
	return nil
}

// Timeout fires from the scheduled 30-minute timer. It is idempotent: a
// room already completed ignores the call.
func (r *Room) Timeout(ctx context.Context) {
	r.settle(ctx, domain.ReasonTimeout)
}

// allSettled reports whether every member is submitted or forfeited. Caller
// must hold r.mu.
func (r *Room) allSettled() bool {
	for _, u := range r.state.Users {
		if u.SubmissionStatus == domain.SubmissionPending {
			return false
		}
	}
	return true
}

// Rejoin reattaches a disconnected member and reports the room's current
// state, provided the room is still active and userID is a member.
func (r *Room) Rejoin(userID string) (Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.state.IsActive {
		return Snapshot{}, fmt.Errorf("room %s is not active: %w", r.state.RoomID, apperr.ErrConflict)
	}
	if r.state.IndexOf(userID) == -1 {
		return Snapshot{}, fmt.Errorf("user %s is not a member of room %s: %w", userID, r.state.RoomID, apperr.ErrForbidden)
	}
	return r.snapshotLocked(), nil
}

// Status returns the room's current state regardless of membership.
func (r *Room) Status() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

func (r *Room) snapshotLocked() Snapshot {
	remaining := time.Until(r.endsAt)
	if remaining < 0 {
		remaining = 0
	}
	return Snapshot{
		RoomID:        r.state.RoomID,
		ProblemID:     r.state.ProblemID,
		RoomStatus:    r.state.RoomStatus,
		Users:         r.state.Users,
		IsActive:      r.state.IsActive,
		RemainingTime: remaining,
	}
}

// settle runs the seven-step settlement procedure exactly once per room; a
// concurrent caller that loses the race observes settled==true and returns.
func (r *Room) settle(ctx context.Context, reason domain.SettlementReason) {
	r.mu.Lock()
	if r.settled || r.state.RoomStatus == domain.RoomCompleted {
		r.mu.Unlock()
		return
	}
	r.settled = true

	if r.cancelTimer != nil {
		r.cancelTimer()
	}

	users := r.state.Users
	sort.SliceStable(users[:], func(i, j int) bool {
		if users[i].Score != users[j].Score {
			return users[i].Score > users[j].Score
		}
		ti, tj := users[i].SubmissionTime, users[j].SubmissionTime
		if ti == nil && tj == nil {
			return false
		}
		if ti == nil {
			return false
		}
		if tj == nil {
			return true
		}
		return ti.Before(*tj)
	})

	isDraw := users[0].Score == users[1].Score
	winner := 0
	if isDraw {
		winner = -1
	}
	if reason == domain.ReasonForfeit {
		// The remaining (non-forfeited) player is always treated as the
		// winner, independent of the zero scores a forfeit leaves behind.
		if users[0].SubmissionStatus == domain.SubmissionForfeited {
			winner = 1
		} else {
			winner = 0
		}
		isDraw = false
	}

	outcomeA, outcomeB := rating.DuelOutcome(winner)
	deltaA := rating.DuelDelta(users[0].Rating, r.gamesPlayed(ctx, users[0].UserID), users[1].Rating, outcomeA)
	deltaB := rating.DuelDelta(users[1].Rating, r.gamesPlayed(ctx, users[1].UserID), users[0].Rating, outcomeB)
	newA := rating.NewRating(users[0].Rating, deltaA)
	newB := rating.NewRating(users[1].Rating, deltaB)

	r.state.Users = users
	r.state.RoomStatus = domain.RoomCompleted
	r.state.IsActive = false
	roomID := r.state.RoomID
	snapshot := r.state
	r.mu.Unlock()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := r.store.UpdateUserRating(ctx, users[0].UserID, newA); err != nil {
			r.logger.Warn("room: rating update failed", zap.String("user_id", users[0].UserID), zap.Error(err))
		}
		_ = r.store.IncrementGamesPlayed(ctx, users[0].UserID)
	}()
	go func() {
		defer wg.Done()
		if err := r.store.UpdateUserRating(ctx, users[1].UserID, newB); err != nil {
			r.logger.Warn("room: rating update failed", zap.String("user_id", users[1].UserID), zap.Error(err))
		}
		_ = r.store.IncrementGamesPlayed(ctx, users[1].UserID)
	}()
	wg.Wait()

	if err := r.store.SaveRoom(ctx, &snapshot); err != nil {
		r.logger.Warn("room: save on settlement failed", zap.String("room_id", roomID), zap.Error(err))
	}

	ratingChanges := map[string]domain.RatingChange{
		users[0].UserID: {OldRating: users[0].Rating, NewRating: newA, RatingChange: deltaA},
		users[1].UserID: {OldRating: users[1].Rating, NewRating: newB, RatingChange: deltaB},
	}
	var winnerID any
	if !isDraw && winner >= 0 {
		winnerID = users[winner].UserID
	}

	payload := map[string]any{
		"reason":        reason,
		"users":         users,
		"winner":        winnerID,
		"ratingChanges": ratingChanges,
	}
	r.broadcast.Broadcast(ctx, roomID, "matchFinished", payload)
	r.logger.Info("room: settled",
		zap.String("room_id", roomID),
		zap.String("reason", string(reason)),
		zap.Bool("is_draw", isDraw),
	)
}

// gamesPlayed looks up userID's games-played count for the K-factor math. A
// lookup failure falls back to 30 (the threshold past which K stops being
// the new-player value of 40), so a transient store error never silently
// overweights a veteran's rating swing.
func (r *Room) gamesPlayed(ctx context.Context, userID string) int {
	u, err := r.store.GetUser(ctx, userID)
	if err != nil {
		r.logger.Warn("room: games-played lookup failed, using fallback", zap.String("user_id", userID), zap.Error(err))
		return 30
	}
	return u.GamesPlayed
}
