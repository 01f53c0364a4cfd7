// Package judge is the coordination core's client for the out-of-process,
// per-language judge workers. It only enqueues jobs and polls their result;
// it never executes code itself. Exactly-once persistence of a completed
// submit-mode job is guarded by a CAS-style Lua script against the job
// hash's persisted flag.
package judge

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Divy1030/duelcore/internal/apperr"
	"github.com/Divy1030/duelcore/internal/domain"
	"github.com/Divy1030/duelcore/internal/store"
)

// JobKey is the Redis hash key holding jobID's state.
func JobKey(jobID string) string { return "job:" + jobID }

// QueueKey is the per-language, per-mode Redis list a worker pool BLPops
// from.
func QueueKey(language domain.JudgeLanguage, mode domain.JobMode) string {
	return fmt.Sprintf("code_jobs:%s:%s", language, mode)
}

// casMarkPersisted atomically flips persisted to "true" only if it is
// currently anything else: compare-then-mutate inside one EVAL so two
// concurrent pollers can never both observe "not yet persisted".
var casMarkPersisted = redis.NewScript(`
	if redis.call("hget", KEYS[1], "persisted") ~= "true" then
		redis.call("hset", KEYS[1], "persisted", "true")
		return 1
	else
		return 0
	end
`)

// Client wraps a Redis connection with the job-hash and per-language-queue
// protocol the judge workers speak.
type Client struct {
	rdb       *redis.Client
	store     store.Store
	logger    *zap.Logger
	runTTL    time.Duration
	submitTTL time.Duration
}

// New wraps an existing Redis client. st persists completed submit-mode
// jobs exactly once; it may be nil for a judge client used only to enqueue.
// runTTL and submitTTL bound how long a queued or running job's hash
// survives between polls before Redis reclaims it.
func New(rdb *redis.Client, st store.Store, logger *zap.Logger, runTTL, submitTTL time.Duration) *Client {
	return &Client{rdb: rdb, store: st, logger: logger, runTTL: runTTL, submitTTL: submitTTL}
}

// EnqueueInput is the validated request to grade or run a piece of code.
type EnqueueInput struct {
	Mode      domain.JobMode
	Language  domain.JudgeLanguage
	Code      string
	UserID    string
	ProblemID string
	TestCases []domain.TestCase
}

// Enqueue validates language/code/testCases, writes the job hash, and
// pushes the job descriptor onto the per-language, per-mode FIFO list the
// matching worker pool consumes from.
func (c *Client) Enqueue(ctx context.Context, in EnqueueInput) (string, error) {
	if !in.Language.IsValid() {
		return "", fmt.Errorf("unsupported judge language %q: %w", in.Language, apperr.ErrBadInput)
	}
	if in.Code == "" {
		return "", fmt.Errorf("empty code: %w", apperr.ErrBadInput)
	}
	if in.Mode == domain.JobModeSubmit && len(in.TestCases) == 0 {
		return "", fmt.Errorf("submit mode requires test cases: %w", apperr.ErrBadInput)
	}
	if in.Mode == domain.JobModeSubmit && in.ProblemID == "" {
		return "", fmt.Errorf("submit mode requires a problem id: %w", apperr.ErrBadInput)
	}
	if in.Mode == domain.JobModeSubmit && in.UserID == "" {
		return "", fmt.Errorf("submit mode requires an authenticated user: %w", apperr.ErrUnauthorized)
	}

	job := domain.Job{
		JobID:     uuid.NewString(),
		Mode:      in.Mode,
		Language:  in.Language,
		Code:      in.Code,
		UserID:    in.UserID,
		ProblemID: in.ProblemID,
		TestCases: in.TestCases,
		Status:    domain.JobQueued,
	}

	fields, err := EncodeJob(job)
	if err != nil {
		return "", fmt.Errorf("judge: encode job: %w", err)
	}

	key := JobKey(job.JobID)
	pipe := c.rdb.TxPipeline()
	pipe.HSet(ctx, key, fields)
	pipe.Expire(ctx, key, c.ttlFor(in.Mode))
	pipe.RPush(ctx, QueueKey(in.Language, in.Mode), job.JobID)
	if _, err := pipe.Exec(ctx); err != nil {
		return "", fmt.Errorf("judge: enqueue: %w", err)
	}

	c.logger.Info("judge: enqueued",
		zap.String("job_id", job.JobID),
		zap.String("mode", string(in.Mode)),
		zap.String("language", string(in.Language)),
	)
	return job.JobID, nil
}

// Poll reads the job hash for jobID. When it has just finished a submit-mode
// job, the result is persisted as a Solution exactly once (guarded by the
// CAS persisted flag) before the TTL is refreshed.
func (c *Client) Poll(ctx context.Context, jobID string) (domain.Job, error) {
	key := JobKey(jobID)
	raw, err := c.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return domain.Job{}, fmt.Errorf("judge: poll: %w", err)
	}
	if len(raw) == 0 {
		return domain.Job{}, fmt.Errorf("job %s: %w", jobID, apperr.ErrNotFound)
	}

	job, err := DecodeJob(raw)
	if err != nil {
		return domain.Job{}, fmt.Errorf("judge: decode job %s: %w", jobID, err)
	}

	if job.Status == domain.JobCompleted && job.Mode == domain.JobModeSubmit && !job.Persisted {
		claimed, casErr := casMarkPersisted.Run(ctx, c.rdb, []string{key}).Int()
		if casErr != nil {
			c.logger.Warn("judge: persisted CAS failed", zap.String("job_id", jobID), zap.Error(casErr))
		} else if claimed == 1 {
			job.Persisted = true
			if err := c.persist(ctx, job); err != nil {
				c.logger.Warn("judge: persist solution failed", zap.String("job_id", jobID), zap.Error(err))
			}
		}
	}

	if err := c.rdb.Expire(ctx, key, c.ttlFor(job.Mode)).Err(); err != nil {
		c.logger.Warn("judge: ttl refresh failed", zap.String("job_id", jobID), zap.Error(err))
	}
	return job, nil
}

func (c *Client) persist(ctx context.Context, job domain.Job) error {
	if c.store == nil {
		return nil
	}
	testCases := make([]domain.SolutionTestCase, len(job.Results))
	for i, r := range job.Results {
		testCases[i] = domain.SolutionTestCase{
			Input:          r.Input,
			ExpectedOutput: r.ExpectedOutput,
			ActualOutput:   r.ActualOutput,
			Status:         r.Status,
		}
	}
	sol := &domain.Solution{
		UserID:       job.UserID,
		ProblemID:    job.ProblemID,
		LanguageUsed: domain.SupportedLanguage(job.Language),
		Score:        job.Score,
		MaxScore:     job.Total * 100,
		TestCases:    testCases,
		CreatedAt:    time.Now(),
	}
	return c.store.CreateSolution(ctx, sol)
}

func (c *Client) ttlFor(mode domain.JobMode) time.Duration {
	if mode == domain.JobModeSubmit {
		return c.submitTTL
	}
	return c.runTTL
}
