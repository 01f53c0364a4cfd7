// Package memory is an in-memory Store used by tests: a mutex-guarded map
// per aggregate plus hook functions for injecting errors.
package memory

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/Divy1030/duelcore/internal/apperr"
	"github.com/Divy1030/duelcore/internal/domain"
	"github.com/Divy1030/duelcore/internal/store"
)

var _ store.Store = (*Store)(nil)

// Store is a goroutine-safe, in-memory implementation of store.Store.
type Store struct {
	mu        sync.RWMutex
	users     map[string]*domain.User
	problems  map[string]*domain.Problem
	solutions map[string]*domain.Solution
	rooms     map[string]*domain.Room
	contests  map[string]*domain.Contest

	// UpdateUserRatingFunc, when set, replaces UpdateUserRating for error
	// injection in settlement best-effort tests.
	UpdateUserRatingFunc func(ctx context.Context, userID string, newRating int) error
}

// New constructs an empty in-memory store.
func New() *Store {
	return &Store{
		users:     make(map[string]*domain.User),
		problems:  make(map[string]*domain.Problem),
		solutions: make(map[string]*domain.Solution),
		rooms:     make(map[string]*domain.Room),
		contests:  make(map[string]*domain.Contest),
	}
}

// SeedUser inserts or replaces a user directly, bypassing the Store
// interface (test setup helper).
func (s *Store) SeedUser(u *domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
}

// SeedProblem inserts or replaces a problem directly (test setup helper).
func (s *Store) SeedProblem(p *domain.Problem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.problems[p.ID] = p
}

// SeedContest inserts or replaces a contest directly (test setup helper).
func (s *Store) SeedContest(c *domain.Contest) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contests[c.ID] = c
}

func (s *Store) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[userID]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", userID, apperr.ErrNotFound)
	}
	return u, nil
}

func (s *Store) UpdateUserRating(ctx context.Context, userID string, newRating int) error {
	if s.UpdateUserRatingFunc != nil {
		return s.UpdateUserRatingFunc(ctx, userID, newRating)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return fmt.Errorf("user %s: %w", userID, apperr.ErrNotFound)
	}
	u.Rating = newRating
	return nil
}

func (s *Store) IncrementGamesPlayed(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return fmt.Errorf("user %s: %w", userID, apperr.ErrNotFound)
	}
	u.GamesPlayed++
	return nil
}

func (s *Store) MarkProblemSolved(ctx context.Context, userID, problemID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return fmt.Errorf("user %s: %w", userID, apperr.ErrNotFound)
	}
	if u.HasSolved(problemID) {
		return nil
	}
	u.SolvedProblems = append(u.SolvedProblems, domain.SolvedProblem{ProblemID: problemID, SolvedAt: time.Now()})
	return nil
}

func (s *Store) UpsertContestProblemScore(ctx context.Context, userID, contestID, problemID string, score int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return fmt.Errorf("user %s: %w", userID, apperr.ErrNotFound)
	}

	entry := u.ContestEntry(contestID)
	if entry == nil {
		u.ContestsParticipated = append(u.ContestsParticipated, domain.ContestParticipation{ContestID: contestID})
		entry = u.ContestEntry(contestID)
	}

	found := false
	for i := range entry.ContestProblems {
		if entry.ContestProblems[i].ProblemID == problemID {
			if score > entry.ContestProblems[i].Score {
				entry.ContestProblems[i].Score = score
			}
			found = true
			break
		}
	}
	if !found {
		entry.ContestProblems = append(entry.ContestProblems, domain.ContestProblemEntry{ProblemID: problemID, Score: score})
	}

	sum := 0
	for _, cp := range entry.ContestProblems {
		sum += cp.Score
	}
	entry.Score = sum
	return nil
}

func (s *Store) RandomProblem(ctx context.Context) (*domain.Problem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.problems) == 0 {
		return nil, fmt.Errorf("no problems available: %w", apperr.ErrNotFound)
	}
	ids := make([]string, 0, len(s.problems))
	for id := range s.problems {
		ids = append(ids, id)
	}
	return s.problems[ids[rand.Intn(len(ids))]], nil
}

func (s *Store) GetProblem(ctx context.Context, problemID string) (*domain.Problem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.problems[problemID]
	if !ok {
		return nil, fmt.Errorf("problem %s: %w", problemID, apperr.ErrNotFound)
	}
	return p, nil
}

func (s *Store) ListProblems(ctx context.Context) ([]*domain.Problem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.Problem, 0, len(s.problems))
	for _, p := range s.problems {
		out = append(out, p)
	}
	return out, nil
}

func (s *Store) CreateSolution(ctx context.Context, sol *domain.Solution) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sol.ID == "" {
		sol.ID = fmt.Sprintf("sol-%d", len(s.solutions)+1)
	}
	s.solutions[sol.ID] = sol
	return nil
}

func (s *Store) LatestSolution(ctx context.Context, userID, problemID, contestID string) (*domain.Solution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var latest *domain.Solution
	for _, sol := range s.solutions {
		if sol.UserID != userID || sol.ProblemID != problemID || sol.ContestID != contestID {
			continue
		}
		if latest == nil || sol.CreatedAt.After(latest.CreatedAt) {
			latest = sol
		}
	}
	if latest == nil {
		return nil, fmt.Errorf("solution: %w", apperr.ErrNotFound)
	}
	return latest, nil
}

func (s *Store) GetSolution(ctx context.Context, solutionID string) (*domain.Solution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sol, ok := s.solutions[solutionID]
	if !ok {
		return nil, fmt.Errorf("solution %s: %w", solutionID, apperr.ErrNotFound)
	}
	return sol, nil
}

func (s *Store) SaveRoom(ctx context.Context, r *domain.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *r
	s.rooms[r.RoomID] = &cp
	return nil
}

func (s *Store) GetRoom(ctx context.Context, roomID string) (*domain.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rooms[roomID]
	if !ok {
		return nil, fmt.Errorf("room %s: %w", roomID, apperr.ErrNotFound)
	}
	cp := *r
	return &cp, nil
}

func (s *Store) GetContest(ctx context.Context, contestID string) (*domain.Contest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.contests[contestID]
	if !ok {
		return nil, fmt.Errorf("contest %s: %w", contestID, apperr.ErrNotFound)
	}
	return c, nil
}

func (s *Store) AppendContestSubmission(ctx context.Context, contestID, solutionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.contests[contestID]
	if !ok {
		return fmt.Errorf("contest %s: %w", contestID, apperr.ErrNotFound)
	}
	c.Submissions = append(c.Submissions, solutionID)
	return nil
}

func (s *Store) ListContestParticipants(ctx context.Context, contestID string) ([]*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.contests[contestID]
	if !ok {
		return nil, fmt.Errorf("contest %s: %w", contestID, apperr.ErrNotFound)
	}
	out := make([]*domain.User, 0, len(c.ParticipantIDs))
	for _, id := range c.ParticipantIDs {
		if u, ok := s.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}
