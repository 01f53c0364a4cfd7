package rating

import "testing"

func TestExpectedScore_EqualRatings(t *testing.T) {
	e := ExpectedScore(1000, 1000)
	if e != 0.5 {
		t.Errorf("expected 0.5 for equal ratings, got %v", e)
	}
}

func TestKFactorDuel(t *testing.T) {
	cases := []struct {
		games, rating, want int
	}{
		{games: 10, rating: 1500, want: 40},
		{games: 50, rating: 1100, want: 40},
		{games: 50, rating: 2100, want: 10},
		{games: 50, rating: 1500, want: 20},
	}
	for _, c := range cases {
		if got := KFactorDuel(c.games, c.rating); got != c.want {
			t.Errorf("KFactorDuel(%d,%d) = %d, want %d", c.games, c.rating, got, c.want)
		}
	}
}

// X(1000) vs Y(1000), X forfeits. Both <1200 so K=40. Y wins => +20, X loses => -20.
func TestDuelDelta_Forfeit(t *testing.T) {
	dY := DuelDelta(1000, 50, 1000, OutcomeWin)
	dX := DuelDelta(1000, 50, 1000, OutcomeLoss)
	if dY != 20 {
		t.Errorf("expected winner delta +20, got %d", dY)
	}
	if dX != -20 {
		t.Errorf("expected loser delta -20, got %d", dX)
	}
}

// Elo conservation: with equal K-factors, ΔR_A + ΔR_B == 0 absent clamping.
func TestDuelDelta_Conservation(t *testing.T) {
	ratingA, ratingB := 1500, 1520
	dA := DuelDelta(ratingA, 50, ratingB, OutcomeWin)
	dB := DuelDelta(ratingB, 50, ratingA, OutcomeLoss)
	if dA+dB != 0 {
		t.Errorf("expected conservation, got dA=%d dB=%d sum=%d", dA, dB, dA+dB)
	}
}

func TestDuelDelta_SurpriseWinBoundedByK(t *testing.T) {
	// A huge rating gap with a surprise win: K=40 (rating<1200) and the
	// expected score is ~0, so the delta is +40. K never exceeds 40, so a
	// duel delta stays inside the ±50 clamp.
	d := DuelDelta(100, 100, 4000, OutcomeWin)
	if d != 40 {
		t.Errorf("expected +40 for a maximal upset win, got %d", d)
	}
}

func TestNewRating_ClampsToBounds(t *testing.T) {
	if got := NewRating(120, -100); got != 100 {
		t.Errorf("expected clamp to 100, got %d", got)
	}
	if got := NewRating(3980, 100); got != 4000 {
		t.Errorf("expected clamp to 4000, got %d", got)
	}
}

func TestDuelOutcome(t *testing.T) {
	a, b := DuelOutcome(0)
	if a != OutcomeWin || b != OutcomeLoss {
		t.Errorf("winner=0: got a=%v b=%v", a, b)
	}
	a, b = DuelOutcome(1)
	if a != OutcomeLoss || b != OutcomeWin {
		t.Errorf("winner=1: got a=%v b=%v", a, b)
	}
	a, b = DuelOutcome(-1)
	if a != OutcomeDraw || b != OutcomeDraw {
		t.Errorf("draw: got a=%v b=%v", a, b)
	}
}

// Equal-rated draw yields ~0 net change.
func TestDuelDelta_DrawNearZero(t *testing.T) {
	d := DuelDelta(1000, 50, 1000, OutcomeDraw)
	if d != 0 {
		t.Errorf("expected 0 delta for equal-rated draw, got %d", d)
	}
}
