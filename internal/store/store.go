// Package store defines the persistence boundary the core consumes: the
// core only ever depends on this interface, never on a concrete database
// driver. Concrete implementations live in subpackages (postgres for
// production, memory for tests).
package store

import (
	"context"

	"github.com/Divy1030/duelcore/internal/domain"
)

// Store is every persistence operation the coordination core needs: user
// ratings, problems, solutions, rooms, and contests.
type Store interface {
	// Users
	GetUser(ctx context.Context, userID string) (*domain.User, error)
	UpdateUserRating(ctx context.Context, userID string, newRating int) error
	IncrementGamesPlayed(ctx context.Context, userID string) error
	MarkProblemSolved(ctx context.Context, userID, problemID string) error
	UpsertContestProblemScore(ctx context.Context, userID, contestID, problemID string, score int) error

	// Problems
	RandomProblem(ctx context.Context) (*domain.Problem, error)
	GetProblem(ctx context.Context, problemID string) (*domain.Problem, error)
	ListProblems(ctx context.Context) ([]*domain.Problem, error)

	// Solutions
	CreateSolution(ctx context.Context, s *domain.Solution) error
	LatestSolution(ctx context.Context, userID, problemID, contestID string) (*domain.Solution, error)
	GetSolution(ctx context.Context, solutionID string) (*domain.Solution, error)

	// Rooms
	SaveRoom(ctx context.Context, r *domain.Room) error
	GetRoom(ctx context.Context, roomID string) (*domain.Room, error)

	// Contests
	GetContest(ctx context.Context, contestID string) (*domain.Contest, error)
	AppendContestSubmission(ctx context.Context, contestID, solutionID string) error
	ListContestParticipants(ctx context.Context, contestID string) ([]*domain.User, error)
}
