package rating

import "math"

// ContestParticipant is the minimal shape the contest rating pass needs for
// one participant: their pre-contest rating and games played so far. The
// participant's rank is derived by the caller; ExpectedRank takes ratings
// directly.
type ContestParticipant struct {
	UserID      string
	Rating      int
	GamesPlayed int
}

// ExpectedRank computes participant i's expected rank among the full field,
// per 4.A: 1 + sum over opponents j of 1/(1+10^((R_j-R_i)/400)), which is
// i's Elo expected score against j. The value therefore grows with i's
// rating relative to the field.
func ExpectedRank(ratings []int, i int) float64 {
	expected := 1.0
	for j, rj := range ratings {
		if j == i {
			continue
		}
		expected += 1 / (1 + math.Pow(10, float64(rj-ratings[i])/400))
	}
	return expected
}

// KFactorContest picks the contest K-factor by games played and rating.
func KFactorContest(gamesPlayed, rating int) int {
	switch {
	case gamesPlayed < 6:
		return 40
	case rating < 1400:
		return 32
	case rating < 1800:
		return 24
	case rating < 2200:
		return 16
	default:
		return 8
	}
}

// ContestDelta computes the rating change for a participant who actually
// placed `actualRank` (1-based, lower is better) against an expected rank
// `expectedRank`, clamped to ±100. New users (gamesPlayed<6) with a
// positive delta get a 1.2x bonus. The caller still clamps the resulting
// new rating to [0, 4000].
func ContestDelta(rating, gamesPlayed, actualRank int, expectedRank float64) int {
	k := KFactorContest(gamesPlayed, rating)
	factor := (expectedRank - float64(actualRank)) / expectedRank
	delta := float64(k) * factor

	if gamesPlayed < 6 && delta > 0 {
		delta *= 1.2
	}

	rounded := int(math.Round(delta))
	return clamp(rounded, -100, 100)
}

// NewContestRating applies a contest delta and clamps to [0, 4000], per
// 4.A's separate (wider) contest clamp.
func NewContestRating(rating, delta int) int {
	r := rating + delta
	if r < 0 {
		return 0
	}
	if r > 4000 {
		return 4000
	}
	return r
}
