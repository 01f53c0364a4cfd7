package httpapi

import (
	"sort"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Divy1030/duelcore/internal/domain"
	"github.com/Divy1030/duelcore/internal/store"
)

// LeaderboardHandler aggregates per-contest standings.
type LeaderboardHandler struct {
	store  store.Store
	logger *zap.Logger
}

// NewLeaderboardHandler constructs a LeaderboardHandler.
func NewLeaderboardHandler(st store.Store, logger *zap.Logger) *LeaderboardHandler {
	return &LeaderboardHandler{store: st, logger: logger}
}

// GetLeaderboard handles GET /get-leaderboard/:contestId: every
// participant's contestsParticipated entry for this contest is reduced to
// (score, problemsSolved), sorted score desc, and assigned ranks 1..n with
// ties broken stably by insertion order (each row gets its sequential
// position, not a shared rank). problemsSolved counts this contest's
// problems that also appear in the participant's solvedProblems, since a
// contest-scoped "correct" status is not otherwise tracked once scoring is
// full-marks-or-partial.
func (h *LeaderboardHandler) GetLeaderboard(c *gin.Context) {
	contestID := c.Param("contestId")
	ctx := c.Request.Context()

	contest, err := h.store.GetContest(ctx, contestID)
	if err != nil {
		respondError(c, err)
		return
	}
	participants, err := h.store.ListContestParticipants(ctx, contestID)
	if err != nil {
		respondError(c, err)
		return
	}

	contestProblems := make(map[string]bool, len(contest.ProblemIDs))
	for _, id := range contest.ProblemIDs {
		contestProblems[id] = true
	}

	entries := make([]domain.LeaderboardEntry, 0, len(participants))
	for _, u := range participants {
		entry := u.ContestEntry(contestID)
		if entry == nil {
			continue
		}
		solved := 0
		for _, sp := range u.SolvedProblems {
			if contestProblems[sp.ProblemID] {
				solved++
			}
		}
		entries = append(entries, domain.LeaderboardEntry{
			UserID:         u.ID,
			Username:       u.Username,
			Score:          entry.Score,
			ProblemsSolved: solved,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Score > entries[j].Score
	})

	for i := range entries {
		entries[i].Rank = i + 1
	}

	respond(c, 200, entries, "")
}
