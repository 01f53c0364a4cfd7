package httpapi

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Divy1030/duelcore/internal/apperr"
	"github.com/Divy1030/duelcore/internal/domain"
	"github.com/Divy1030/duelcore/internal/store"
)

// ProblemHandler serves problem reads, both standalone and contest-scoped.
type ProblemHandler struct {
	store  store.Store
	logger *zap.Logger
}

// NewProblemHandler constructs a ProblemHandler.
func NewProblemHandler(st store.Store, logger *zap.Logger) *ProblemHandler {
	return &ProblemHandler{store: st, logger: logger}
}

// problemWithSolution is the payload for the two single-problem endpoints:
// the problem, the caller's most recent Solution against it (if any), and
// the problem's canonical reference solution (if one is configured).
type problemWithSolution struct {
	Problem           any `json:"problem"`
	Solution          any `json:"solution,omitempty"`
	CanonicalSolution any `json:"canonicalSolution,omitempty"`
}

// attachCanonicalSolution looks up problem's canonical solution, when one is
// configured, and attaches it to resp. A missing or unconfigured canonical
// solution is not an error: most problems simply don't have one set.
func (h *ProblemHandler) attachCanonicalSolution(ctx context.Context, problem *domain.Problem, resp *problemWithSolution) {
	if problem.CanonicalSolutionID == "" {
		return
	}
	sol, err := h.store.GetSolution(ctx, problem.CanonicalSolutionID)
	if err != nil {
		if !errors.Is(err, apperr.ErrNotFound) {
			h.logger.Warn("problem handler: canonical solution lookup failed", zap.Error(err))
		}
		return
	}
	resp.CanonicalSolution = sol
}

// GetContestProblem handles GET /get-problem/:contestId/:problemId.
func (h *ProblemHandler) GetContestProblem(c *gin.Context) {
	contestID := c.Param("contestId")
	problemID := c.Param("problemId")

	uid, err := requireParticipant(c, h.store, contestID)
	if err != nil {
		respondError(c, err)
		return
	}

	problem, err := h.store.GetProblem(c.Request.Context(), problemID)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := problemWithSolution{Problem: problem}
	sol, err := h.store.LatestSolution(c.Request.Context(), uid, problemID, contestID)
	if err == nil {
		resp.Solution = sol
	} else if !errors.Is(err, apperr.ErrNotFound) {
		h.logger.Warn("problem handler: latest solution lookup failed", zap.Error(err))
	}
	h.attachCanonicalSolution(c.Request.Context(), problem, &resp)

	respond(c, 200, resp, "")
}

// GetProblem handles GET /get-problem/:problemId: the problem plus its
// canonical solution when one is configured, and the caller's own latest
// solution, outside a contest, when authenticated.
func (h *ProblemHandler) GetProblem(c *gin.Context) {
	problemID := c.Param("problemId")

	problem, err := h.store.GetProblem(c.Request.Context(), problemID)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := problemWithSolution{Problem: problem}
	if uid, ok := userID(c); ok {
		sol, err := h.store.LatestSolution(c.Request.Context(), uid, problemID, "")
		if err == nil {
			resp.Solution = sol
		} else if !errors.Is(err, apperr.ErrNotFound) {
			h.logger.Warn("problem handler: latest solution lookup failed", zap.Error(err))
		}
	}
	h.attachCanonicalSolution(c.Request.Context(), problem, &resp)

	respond(c, 200, resp, "")
}

// GetAllProblems handles GET /get-all-problems.
func (h *ProblemHandler) GetAllProblems(c *gin.Context) {
	problems, err := h.store.ListProblems(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, 200, problems, "")
}
