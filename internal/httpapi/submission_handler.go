package httpapi

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Divy1030/duelcore/internal/domain"
	"github.com/Divy1030/duelcore/internal/store"
)

// solvedProblemRatingBonus is the flat rating gain awarded the first time a
// contest participant reaches full score on a problem. Separate from, and
// much smaller than, the duel Elo delta computed by internal/rating.
const solvedProblemRatingBonus = 10

// SubmissionHandler accepts graded contest submissions.
type SubmissionHandler struct {
	store  store.Store
	logger *zap.Logger
}

// NewSubmissionHandler constructs a SubmissionHandler.
func NewSubmissionHandler(st store.Store, logger *zap.Logger) *SubmissionHandler {
	return &SubmissionHandler{store: st, logger: logger}
}

type submitSolutionBody struct {
	Score        int                      `json:"score"`
	SolutionCode string                   `json:"solutionCode"`
	LanguageUsed domain.SupportedLanguage `json:"languageUsed"`
}

// Submit handles POST /submit-solution/:contestId/:problemId.
func (h *SubmissionHandler) Submit(c *gin.Context) {
	contestID := c.Param("contestId")
	problemID := c.Param("problemId")

	uid, err := requireParticipant(c, h.store, contestID)
	if err != nil {
		respondError(c, err)
		return
	}

	var body submitSolutionBody
	if err := c.ShouldBindJSON(&body); err != nil {
		respondValidation(c, err.Error())
		return
	}
	if body.SolutionCode == "" {
		respondValidation(c, "solutionCode is required")
		return
	}
	if !body.LanguageUsed.IsValid() {
		respondValidation(c, "languageUsed is not a supported language")
		return
	}

	ctx := c.Request.Context()
	problem, err := h.store.GetProblem(ctx, problemID)
	if err != nil {
		respondError(c, err)
		return
	}
	actualMaxScore := problem.MaxScore()

	sol := &domain.Solution{
		UserID:       uid,
		ContestID:    contestID,
		ProblemID:    problemID,
		SolutionCode: body.SolutionCode,
		LanguageUsed: body.LanguageUsed,
		Score:        body.Score,
		MaxScore:     actualMaxScore,
		CreatedAt:    time.Now(),
	}
	if err := h.store.CreateSolution(ctx, sol); err != nil {
		respondError(c, err)
		return
	}
	if err := h.store.AppendContestSubmission(ctx, contestID, sol.ID); err != nil {
		h.logger.Warn("submission handler: append contest submission failed", zap.Error(err))
	}
	if err := h.store.UpsertContestProblemScore(ctx, uid, contestID, problemID, body.Score); err != nil {
		respondError(c, err)
		return
	}

	if body.Score >= actualMaxScore {
		h.awardSolve(ctx, uid, problemID)
	}

	respond(c, 201, sol, "solution recorded")
}

// awardSolve marks problemID solved for userID and grants the flat rating
// bonus, skipping both if the problem was already solved.
func (h *SubmissionHandler) awardSolve(ctx context.Context, userID, problemID string) {
	user, err := h.store.GetUser(ctx, userID)
	if err != nil {
		h.logger.Warn("submission handler: load user for solve bonus failed", zap.Error(err))
		return
	}
	if user.HasSolved(problemID) {
		return
	}
	if err := h.store.MarkProblemSolved(ctx, userID, problemID); err != nil {
		h.logger.Warn("submission handler: mark problem solved failed", zap.Error(err))
		return
	}
	if err := h.store.UpdateUserRating(ctx, userID, domain.ClampRating(user.Rating+solvedProblemRatingBonus)); err != nil {
		h.logger.Warn("submission handler: solve bonus rating update failed", zap.Error(err))
	}
}
