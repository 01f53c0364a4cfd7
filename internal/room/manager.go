package room

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Divy1030/duelcore/internal/apperr"
	"github.com/Divy1030/duelcore/internal/domain"
	"github.com/Divy1030/duelcore/internal/pubsub"
	"github.com/Divy1030/duelcore/internal/store"
)

// Manager owns every live room plus its timeout timer: one exported
// lifecycle type with its own mutex-guarded maps and a Stop path that
// drains them. The match-start bookkeeping is folded into each Room's
// own startedAt field rather than duplicated here.
type Manager struct {
	mu     sync.Mutex
	rooms  map[string]*Room
	timers map[string]*time.Timer

	store     store.Store
	evaluator Evaluator
	bus       *pubsub.Bus
	logger    *zap.Logger
}

// NewManager constructs an empty room manager.
func NewManager(st store.Store, evaluator Evaluator, bus *pubsub.Bus, logger *zap.Logger) *Manager {
	return &Manager{
		rooms:     make(map[string]*Room),
		timers:    make(map[string]*time.Timer),
		store:     st,
		evaluator: evaluator,
		bus:       bus,
		logger:    logger,
	}
}

// Broadcast publishes event/payload on the room's channel via the pubsub
// bus, satisfying the Broadcaster collaborator every Room holds.
func (m *Manager) Broadcast(ctx context.Context, roomID string, event string, payload any) {
	body, err := json.Marshal(map[string]any{"event": event, "data": payload})
	if err != nil {
		m.logger.Warn("room manager: marshal broadcast failed", zap.String("room_id", roomID), zap.Error(err))
		return
	}
	if _, err := m.bus.Publish(ctx, pubsub.RoomChannel(roomID), body, map[string]string{"event": event}); err != nil {
		m.logger.Warn("room manager: publish failed", zap.String("room_id", roomID), zap.Error(err))
	}
}

// Create pairs player1 and player2 into a new Live room: a uniformly random
// problem is drawn via Store.RandomProblem, a timeout timer is armed for
// MatchDuration, and the room is registered for lookup by Get.
func (m *Manager) Create(ctx context.Context, player1, player2 domain.RoomUser) (*Room, *domain.Problem, error) {
	return m.CreateWithID(ctx, NewRoomID(), player1, player2)
}

// CreateWithID is Create with an externally allocated room ID. The session
// gateway uses this to subscribe both connections to the room's broadcast
// channel before the room exists, so Create's own matchFound publish does
// not fire into an empty channel.
func (m *Manager) CreateWithID(ctx context.Context, roomID string, player1, player2 domain.RoomUser) (*Room, *domain.Problem, error) {
	problem, err := m.store.RandomProblem(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("room manager: create: %w", err)
	}

	player1.SubmissionStatus = domain.SubmissionPending
	player2.SubmissionStatus = domain.SubmissionPending
	r := newRoom(roomID, problem, player1, player2, m.store, m.evaluator, m, m.logger)

	if err := m.store.SaveRoom(ctx, &r.state); err != nil {
		return nil, nil, fmt.Errorf("room manager: persist new room: %w", err)
	}

	m.mu.Lock()
	m.rooms[roomID] = r
	timer := time.AfterFunc(MatchDuration, func() {
		r.Timeout(context.Background())
		m.forget(roomID)
	})
	m.timers[roomID] = timer
	m.mu.Unlock()

	r.SetTimeoutCanceller(func() {
		m.mu.Lock()
		if t, ok := m.timers[roomID]; ok {
			t.Stop()
			delete(m.timers, roomID)
		}
		m.mu.Unlock()
	})

	m.Broadcast(ctx, roomID, "matchFound", map[string]any{
		"roomId":    roomID,
		"problem":   problem,
		"startedAt": r.startedAt,
		"endsAt":    r.endsAt,
	})

	m.logger.Info("room manager: room created",
		zap.String("room_id", roomID),
		zap.String("problem_id", problem.ID),
		zap.String("player1", player1.UserID),
		zap.String("player2", player2.UserID),
	)
	return r, problem, nil
}

// Get returns the live room for roomID, if it is still held in memory.
// Completed rooms are forgotten after settlement; callers that need a
// completed room's final state should read it back through Store instead.
func (m *Manager) Get(roomID string) (*Room, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rooms[roomID]
	return r, ok
}

// Submit delegates to the named room's Submit, returning apperr.ErrNotFound
// if roomID is unknown.
func (m *Manager) Submit(ctx context.Context, roomID, userID, code string, language domain.SupportedLanguage) error {
	r, ok := m.Get(roomID)
	if !ok {
		return fmt.Errorf("room %s: %w", roomID, apperr.ErrNotFound)
	}
	err := r.Submit(ctx, userID, code, language)
	if r.Status().RoomStatus == domain.RoomCompleted {
		m.forget(roomID)
	}
	return err
}

// Forfeit delegates to the named room's Forfeit.
func (m *Manager) Forfeit(ctx context.Context, roomID, userID string) error {
	r, ok := m.Get(roomID)
	if !ok {
		return fmt.Errorf("room %s: %w", roomID, apperr.ErrNotFound)
	}
	err := r.Forfeit(ctx, userID)
	if r.Status().RoomStatus == domain.RoomCompleted {
		m.forget(roomID)
	}
	return err
}

// Rejoin delegates to the named room's Rejoin. A room already forgotten from
// memory has settled, so it is reported as an inactive room read back from
// Store rather than a not-found.
func (m *Manager) Rejoin(ctx context.Context, roomID, userID string) (Snapshot, error) {
	r, ok := m.Get(roomID)
	if !ok {
		return m.rejoinFromStore(ctx, roomID, userID)
	}
	return r.Rejoin(userID)
}

// Status delegates to the named room's Status if it is still live in memory,
// falling back to Store.GetRoom once a completed room has been forgotten so
// a late getRoomStatus poll still sees the final outcome instead of
// ErrNotFound.
func (m *Manager) Status(ctx context.Context, roomID string) (Snapshot, error) {
	if r, ok := m.Get(roomID); ok {
		return r.Status(), nil
	}
	return m.snapshotFromStore(ctx, roomID)
}

func (m *Manager) snapshotFromStore(ctx context.Context, roomID string) (Snapshot, error) {
	rec, err := m.store.GetRoom(ctx, roomID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("room %s: %w", roomID, apperr.ErrNotFound)
	}
	return Snapshot{
		RoomID:     rec.RoomID,
		ProblemID:  rec.ProblemID,
		RoomStatus: rec.RoomStatus,
		Users:      rec.Users,
		IsActive:   rec.IsActive,
	}, nil
}

func (m *Manager) rejoinFromStore(ctx context.Context, roomID, userID string) (Snapshot, error) {
	snap, err := m.snapshotFromStore(ctx, roomID)
	if err != nil {
		return Snapshot{}, err
	}
	if !snap.IsActive {
		return Snapshot{}, fmt.Errorf("room %s is not active: %w", roomID, apperr.ErrConflict)
	}
	if !snap.IsMember(userID) {
		return Snapshot{}, fmt.Errorf("user %s is not a member of room %s: %w", userID, roomID, apperr.ErrForbidden)
	}
	return snap, nil
}

// ActiveRoomsFor lists the snapshots of every live room userID belongs to.
// In practice a user is a member of at most one live room at a time, but
// the call stays O(n) over all rooms rather than assuming that invariant.
func (m *Manager) ActiveRoomsFor(userID string) []Snapshot {
	m.mu.Lock()
	rooms := make([]*Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		rooms = append(rooms, r)
	}
	m.mu.Unlock()

	var out []Snapshot
	for _, r := range rooms {
		snap := r.Status()
		if snap.RoomStatus == domain.RoomLive {
			for _, u := range snap.Users {
				if u.UserID == userID {
					out = append(out, snap)
					break
				}
			}
		}
	}
	return out
}

// forget drops roomID from the in-memory tables once it has settled.
func (m *Manager) forget(roomID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rooms, roomID)
	if t, ok := m.timers[roomID]; ok {
		t.Stop()
		delete(m.timers, roomID)
	}
}

// Shutdown stops every outstanding timer without settling the rooms they
// belong to, for use at process exit.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, t := range m.timers {
		t.Stop()
		delete(m.timers, id)
	}
}
