// Package postgres is the production Store implementation: a thin
// pgxpool.Pool wrapper, one method per operation, errors wrapped with
// fmt.Errorf("postgres: ...: %w").
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Divy1030/duelcore/internal/apperr"
	"github.com/Divy1030/duelcore/internal/domain"
	"github.com/Divy1030/duelcore/internal/store"
)

var _ store.Store = (*Store)(nil)

// Store is the pgx-backed implementation of store.Store.
type Store struct {
	pool *pgxpool.Pool
}

// New wraps an existing connection pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	const q = `
		SELECT id, username, rating, games_played, solved_problems, contests_participated
		FROM users WHERE id = $1`

	var u domain.User
	var solved, contests []byte
	err := s.pool.QueryRow(ctx, q, userID).Scan(&u.ID, &u.Username, &u.Rating, &u.GamesPlayed, &solved, &contests)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("postgres: user %s: %w", userID, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("postgres: get user: %w", err)
	}
	_ = json.Unmarshal(solved, &u.SolvedProblems)
	_ = json.Unmarshal(contests, &u.ContestsParticipated)
	return &u, nil
}

func (s *Store) UpdateUserRating(ctx context.Context, userID string, newRating int) error {
	const q = `UPDATE users SET rating = $1 WHERE id = $2`
	tag, err := s.pool.Exec(ctx, q, newRating, userID)
	if err != nil {
		return fmt.Errorf("postgres: update user rating: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres: user %s: %w", userID, apperr.ErrNotFound)
	}
	return nil
}

func (s *Store) IncrementGamesPlayed(ctx context.Context, userID string) error {
	const q = `UPDATE users SET games_played = games_played + 1 WHERE id = $1`
	tag, err := s.pool.Exec(ctx, q, userID)
	if err != nil {
		return fmt.Errorf("postgres: increment games played: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres: user %s: %w", userID, apperr.ErrNotFound)
	}
	return nil
}

func (s *Store) MarkProblemSolved(ctx context.Context, userID, problemID string) error {
	const q = `
		UPDATE users
		SET solved_problems = solved_problems || jsonb_build_array(jsonb_build_object(
			'problemId', $2::text, 'solvedAt', now()))
		WHERE id = $1
		  AND NOT EXISTS (
		    SELECT 1 FROM jsonb_array_elements(solved_problems) e
		    WHERE e->>'problemId' = $2
		  )`
	_, err := s.pool.Exec(ctx, q, userID, problemID)
	if err != nil {
		return fmt.Errorf("postgres: mark problem solved: %w", err)
	}
	return nil
}

func (s *Store) UpsertContestProblemScore(ctx context.Context, userID, contestID, problemID string, score int) error {
	u, err := s.GetUser(ctx, userID)
	if err != nil {
		return err
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

	encoded, err := json.Marshal(u.ContestsParticipated)
	if err != nil {
		return fmt.Errorf("postgres: marshal contests participated: %w", err)
	}

	const q = `UPDATE users SET contests_participated = $1 WHERE id = $2`
	_, err = s.pool.Exec(ctx, q, encoded, userID)
	if err != nil {
		return fmt.Errorf("postgres: upsert contest problem score: %w", err)
	}
	return nil
}

func (s *Store) RandomProblem(ctx context.Context) (*domain.Problem, error) {
	const q = `
		SELECT id, title, description, difficulty, examples, constraints, test_cases, max_score,
		       coalesce(canonical_solution_id, '')
		FROM problems OFFSET floor(random() * (SELECT count(*) FROM problems)) LIMIT 1`

	p, err := s.scanProblem(s.pool.QueryRow(ctx, q))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("postgres: no problems available: %w", apperr.ErrNotFound)
		}
		return nil, err
	}
	return p, nil
}

func (s *Store) GetProblem(ctx context.Context, problemID string) (*domain.Problem, error) {
	const q = `
		SELECT id, title, description, difficulty, examples, constraints, test_cases, max_score,
		       coalesce(canonical_solution_id, '')
		FROM problems WHERE id = $1`

	p, err := s.scanProblem(s.pool.QueryRow(ctx, q, problemID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("postgres: problem %s: %w", problemID, apperr.ErrNotFound)
		}
		return nil, err
	}
	return p, nil
}

func (s *Store) scanProblem(row pgx.Row) (*domain.Problem, error) {
	var p domain.Problem
	var examples, constraints, testCases []byte
	err := row.Scan(&p.ID, &p.Title, &p.Description, &p.Difficulty, &examples, &constraints, &testCases, &p.MaxScoreRaw, &p.CanonicalSolutionID)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan problem: %w", err)
	}
	_ = json.Unmarshal(examples, &p.Examples)
	_ = json.Unmarshal(constraints, &p.Constraints)
	_ = json.Unmarshal(testCases, &p.TestCases)
	return &p, nil
}

func (s *Store) ListProblems(ctx context.Context) ([]*domain.Problem, error) {
	const q = `
		SELECT id, title, description, difficulty, examples, constraints, test_cases, max_score,
		       coalesce(canonical_solution_id, '')
		FROM problems`
	rows, err := s.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("postgres: list problems: %w", err)
	}
	defer rows.Close()

	var out []*domain.Problem
	for rows.Next() {
		p, err := s.scanProblem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) CreateSolution(ctx context.Context, sol *domain.Solution) error {
	const q = `
		INSERT INTO solutions (id, user_id, contest_id, problem_id, solution_code, language_used,
		                        score, max_score, test_cases, created_at)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7, $8, $9, now())
		RETURNING created_at`

	if sol.ID == "" {
		sol.ID = fmt.Sprintf("sol-%d-%d", rand.Int63(), rand.Int63())
	}
	testCases, err := json.Marshal(sol.TestCases)
	if err != nil {
		return fmt.Errorf("postgres: marshal test cases: %w", err)
	}

	err = s.pool.QueryRow(ctx, q, sol.ID, sol.UserID, sol.ContestID, sol.ProblemID, sol.SolutionCode,
		sol.LanguageUsed, sol.Score, sol.MaxScore, testCases).Scan(&sol.CreatedAt)
	if err != nil {
		return fmt.Errorf("postgres: create solution: %w", err)
	}
	return nil
}

func (s *Store) LatestSolution(ctx context.Context, userID, problemID, contestID string) (*domain.Solution, error) {
	const q = `
		SELECT id, user_id, coalesce(contest_id, ''), problem_id, solution_code, language_used,
		       score, max_score, test_cases, created_at
		FROM solutions
		WHERE user_id = $1 AND problem_id = $2 AND coalesce(contest_id, '') = $3
		ORDER BY created_at DESC LIMIT 1`

	var sol domain.Solution
	var testCases []byte
	err := s.pool.QueryRow(ctx, q, userID, problemID, contestID).Scan(
		&sol.ID, &sol.UserID, &sol.ContestID, &sol.ProblemID, &sol.SolutionCode, &sol.LanguageUsed,
		&sol.Score, &sol.MaxScore, &testCases, &sol.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("postgres: solution: %w", apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("postgres: latest solution: %w", err)
	}
	_ = json.Unmarshal(testCases, &sol.TestCases)
	return &sol, nil
}

func (s *Store) GetSolution(ctx context.Context, solutionID string) (*domain.Solution, error) {
	const q = `
		SELECT id, user_id, coalesce(contest_id, ''), problem_id, solution_code, language_used,
		       score, max_score, test_cases, created_at
		FROM solutions WHERE id = $1`

	var sol domain.Solution
	var testCases []byte
	err := s.pool.QueryRow(ctx, q, solutionID).Scan(
		&sol.ID, &sol.UserID, &sol.ContestID, &sol.ProblemID, &sol.SolutionCode, &sol.LanguageUsed,
		&sol.Score, &sol.MaxScore, &testCases, &sol.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("postgres: solution %s: %w", solutionID, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("postgres: get solution: %w", err)
	}
	_ = json.Unmarshal(testCases, &sol.TestCases)
	return &sol, nil
}

func (s *Store) SaveRoom(ctx context.Context, r *domain.Room) error {
	users, err := json.Marshal(r.Users)
	if err != nil {
		return fmt.Errorf("postgres: marshal room users: %w", err)
	}

	const q = `
		INSERT INTO rooms (room_id, problem_id, users, room_status, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (room_id) DO UPDATE SET
			users = excluded.users, room_status = excluded.room_status, is_active = excluded.is_active`
	_, err = s.pool.Exec(ctx, q, r.RoomID, r.ProblemID, users, r.RoomStatus, r.IsActive, r.CreatedAt)
	if err != nil {
		return fmt.Errorf("postgres: save room: %w", err)
	}
	return nil
}

func (s *Store) GetRoom(ctx context.Context, roomID string) (*domain.Room, error) {
	const q = `SELECT room_id, problem_id, users, room_status, is_active, created_at FROM rooms WHERE room_id = $1`

	var r domain.Room
	var users []byte
	err := s.pool.QueryRow(ctx, q, roomID).Scan(&r.RoomID, &r.ProblemID, &users, &r.RoomStatus, &r.IsActive, &r.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("postgres: room %s: %w", roomID, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("postgres: get room: %w", err)
	}
	_ = json.Unmarshal(users, &r.Users)
	return &r, nil
}

func (s *Store) GetContest(ctx context.Context, contestID string) (*domain.Contest, error) {
	const q = `SELECT id, title, problem_ids, starts_at, ends_at, participant_ids, submissions FROM contests WHERE id = $1`

	var c domain.Contest
	var problemIDs, participantIDs, submissions []byte
	err := s.pool.QueryRow(ctx, q, contestID).Scan(&c.ID, &c.Title, &problemIDs, &c.StartsAt, &c.EndsAt, &participantIDs, &submissions)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("postgres: contest %s: %w", contestID, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("postgres: get contest: %w", err)
	}
	_ = json.Unmarshal(problemIDs, &c.ProblemIDs)
	_ = json.Unmarshal(participantIDs, &c.ParticipantIDs)
	_ = json.Unmarshal(submissions, &c.Submissions)
	return &c, nil
}

func (s *Store) AppendContestSubmission(ctx context.Context, contestID, solutionID string) error {
	const q = `UPDATE contests SET submissions = submissions || to_jsonb($2::text) WHERE id = $1`
	tag, err := s.pool.Exec(ctx, q, contestID, solutionID)
	if err != nil {
		return fmt.Errorf("postgres: append contest submission: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres: contest %s: %w", contestID, apperr.ErrNotFound)
	}
	return nil
}

func (s *Store) ListContestParticipants(ctx context.Context, contestID string) ([]*domain.User, error) {
	const q = `
		SELECT u.id, u.username, u.rating, u.games_played, u.solved_problems, u.contests_participated
		FROM contests c
		CROSS JOIN LATERAL jsonb_array_elements_text(c.participant_ids) WITH ORDINALITY AS p(id, ord)
		JOIN users u ON u.id::text = p.id
		WHERE c.id = $1
		ORDER BY p.ord`

	rows, err := s.pool.Query(ctx, q, contestID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list contest participants: %w", err)
	}
	defer rows.Close()

	var out []*domain.User
	for rows.Next() {
		var u domain.User
		var solved, contests []byte
		if err := rows.Scan(&u.ID, &u.Username, &u.Rating, &u.GamesPlayed, &solved, &contests); err != nil {
			return nil, fmt.Errorf("postgres: scan user: %w", err)
		}
		_ = json.Unmarshal(solved, &u.SolvedProblems)
		_ = json.Unmarshal(contests, &u.ContestsParticipated)
		out = append(out, &u)
	}
	return out, rows.Err()
}
