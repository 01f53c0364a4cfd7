package httpapi

import (
	"github.com/gin-gonic/gin"

	"github.com/Divy1030/duelcore/internal/domain"
	"github.com/Divy1030/duelcore/internal/judge"
)

// JudgeHandler exposes the scratch-run/submit enqueue-and-poll surface over
// internal/judge.Client.
type JudgeHandler struct {
	judge *judge.Client
}

// NewJudgeHandler constructs a JudgeHandler.
func NewJudgeHandler(j *judge.Client) *JudgeHandler {
	return &JudgeHandler{judge: j}
}

type enqueueBody struct {
	Language  domain.JudgeLanguage `json:"language"`
	Code      string               `json:"code"`
	ProblemID string               `json:"problemId,omitempty"`
	TestCases []domain.TestCase    `json:"testCases,omitempty"`
}

// Run handles POST /code/run: a scratch execution with no grading.
func (h *JudgeHandler) Run(c *gin.Context) {
	h.enqueue(c, domain.JobModeRun)
}

// Submit handles POST /code/submit: a graded execution persisted on completion.
func (h *JudgeHandler) Submit(c *gin.Context) {
	h.enqueue(c, domain.JobModeSubmit)
}

func (h *JudgeHandler) enqueue(c *gin.Context, mode domain.JobMode) {
	var body enqueueBody
	if err := c.ShouldBindJSON(&body); err != nil {
		respondValidation(c, err.Error())
		return
	}

	uid, _ := userID(c)
	jobID, err := h.judge.Enqueue(c.Request.Context(), judge.EnqueueInput{
		Mode:      mode,
		Language:  body.Language,
		Code:      body.Code,
		UserID:    uid,
		ProblemID: body.ProblemID,
		TestCases: body.TestCases,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, 202, gin.H{"jobId": jobID}, "job enqueued")
}

// Result handles GET /code/result/:jobId.
func (h *JudgeHandler) Result(c *gin.Context) {
	jobID := c.Param("jobId")
	job, err := h.judge.Poll(c.Request.Context(), jobID)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, 200, gin.H{
		"status":  job.Status,
		"mode":    job.Mode,
		"score":   job.Score,
		"passed":  job.Passed,
		"total":   job.Total,
		"results": job.Results,
	}, "")
}
