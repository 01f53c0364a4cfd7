// Package rating implements the pure Elo and contest rating math consumed
// by the room engine's settlement step and the batch contest-settlement
// path. Every function here is deterministic and side-effect free.
package rating

import (
	"math"

	"github.com/Divy1030/duelcore/internal/domain"
)

// Outcome is a duel's actual score from the perspective of one player.
type Outcome float64

const (
	OutcomeLoss Outcome = 0
	OutcomeDraw Outcome = 0.5
	OutcomeWin  Outcome = 1
)

// ExpectedScore returns the Elo win probability of a player rated ratingA
// against an opponent rated ratingB.
func ExpectedScore(ratingA, ratingB int) float64 {
	return 1 / (1 + math.Pow(10, float64(ratingB-ratingA)/400))
}

// KFactorDuel picks the duel K-factor: 40 for new/low-rated players, 10 for
// high-rated players, 20 otherwise.
func KFactorDuel(gamesPlayed, rating int) int {
	switch {
	case gamesPlayed < 30 || rating < 1200:
		return 40
	case rating >= 2000:
		return 10
	default:
		return 20
	}
}

// DuelDelta returns the rating change for a player rated `rating`, having
// played `gamesPlayed` prior games, against an opponent rated
// `opponentRating`, given the actual outcome. The delta is clamped to ±50.
func DuelDelta(rating, gamesPlayed, opponentRating int, outcome Outcome) int {
	k := KFactorDuel(gamesPlayed, rating)
	expected := ExpectedScore(rating, opponentRating)
	delta := int(math.Round(float64(k) * (float64(outcome) - expected)))
	return clamp(delta, -50, 50)
}

// NewRating applies a delta to a rating and clamps the result to the
// system-wide [domain.MinRating, domain.MaxRating] bound.
func NewRating(rating, delta int) int {
	return domain.ClampRating(rating + delta)
}

// DuelOutcome reports each side's actual score given a winner index: 0 for
// player A, 1 for player B, -1 for a draw.
func DuelOutcome(winner int) (a, b Outcome) {
	switch winner {
	case 0:
		return OutcomeWin, OutcomeLoss
	case 1:
		return OutcomeLoss, OutcomeWin
	default:
		return OutcomeDraw, OutcomeDraw
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
