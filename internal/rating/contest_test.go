package rating

import (
	"math"
	"testing"
)

func TestExpectedRank_Symmetric(t *testing.T) {
	ratings := []int{1500, 1500, 1500}
	for i := range ratings {
		got := ExpectedRank(ratings, i)
		if math.Abs(got-2.0) > 1e-9 {
			t.Errorf("expected rank 2.0 for equal field, got %v at index %d", got, i)
		}
	}
}

// Each term is i's Elo expected score against one opponent, so the
// 2000-rated player collects nearly 1 per opponent (≈2.994) while a
// 1000-rated one collects ≈0.003 + 0.5 (≈1.503).
func TestExpectedRank_StrongerHasLargerSum(t *testing.T) {
	ratings := []int{2000, 1000, 1000}
	strong := ExpectedRank(ratings, 0)
	weak := ExpectedRank(ratings, 1)
	if strong <= weak {
		t.Errorf("expected stronger player to have the larger expected-rank sum: strong=%v weak=%v", strong, weak)
	}
}

func TestKFactorContest(t *testing.T) {
	cases := []struct {
		games, rating, want int
	}{
		{games: 2, rating: 2500, want: 40},
		{games: 10, rating: 1300, want: 32},
		{games: 10, rating: 1700, want: 24},
		{games: 10, rating: 2100, want: 16},
		{games: 10, rating: 2300, want: 8},
	}
	for _, c := range cases {
		if got := KFactorContest(c.games, c.rating); got != c.want {
			t.Errorf("KFactorContest(%d,%d) = %d, want %d", c.games, c.rating, got, c.want)
		}
	}
}

func TestContestDelta_NewUserBonus(t *testing.T) {
	// Outperforming expectation with < 6 games applies the 1.2x bonus.
	withBonus := ContestDelta(1200, 2, 1, 3.0)
	withoutBonus := ContestDelta(1200, 10, 1, 3.0)
	if withBonus <= withoutBonus {
		t.Errorf("expected new-user bonus to increase positive delta: with=%d without=%d", withBonus, withoutBonus)
	}
}

func TestContestDelta_ClampedToHundred(t *testing.T) {
	d := ContestDelta(1000, 50, 1, 1000.0)
	if d != 100 {
		t.Errorf("expected clamp at 100, got %d", d)
	}
}

func TestNewContestRating_ClampsToBounds(t *testing.T) {
	if got := NewContestRating(50, -100); got != 0 {
		t.Errorf("expected clamp to 0, got %d", got)
	}
	if got := NewContestRating(3950, 100); got != 4000 {
		t.Errorf("expected clamp to 4000, got %d", got)
	}
}
