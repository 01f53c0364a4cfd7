package mockworker

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Divy1030/duelcore/internal/domain"
	"github.com/Divy1030/duelcore/internal/judge"
)

const (
	blpopTimeout       = 5 * time.Second
	maxReconnectDelay  = 30 * time.Second
	baseReconnectDelay = 1 * time.Second
)

var judgeLanguages = []domain.JudgeLanguage{
	domain.JudgeLangPython, domain.JudgeLangCpp, domain.JudgeLangJava, domain.JudgeLangJavaScript,
}

// judgeModes is ordered submit-before-run: BLPOP serves the first non-empty
// key in argument order, and allQueueKeys groups keys by language, so within
// each language a waiting submit-mode job is always dequeued before a
// run-mode one.
var judgeModes = []domain.JobMode{domain.JobModeSubmit, domain.JobModeRun}

func allQueueKeys() []string {
	keys := make([]string, 0, len(judgeLanguages)*len(judgeModes))
	for _, lang := range judgeLanguages {
		for _, mode := range judgeModes {
			keys = append(keys, judge.QueueKey(lang, mode))
		}
	}
	return keys
}

// Consumer BLPops job IDs off every per-language, per-mode queue and
// dispatches them to a channel the worker pool drains.
type Consumer struct {
	rdb    *redis.Client
	jobs   chan<- string
	logger *zap.Logger
}

// NewConsumer constructs a Consumer writing dequeued job IDs onto jobs.
func NewConsumer(rdb *redis.Client, jobs chan<- string, logger *zap.Logger) *Consumer {
	return &Consumer{rdb: rdb, jobs: jobs, logger: logger}
}

// Start BLPops in a loop until ctx is cancelled, reconnecting with
// exponential backoff on any Redis error other than the expected BLPOP
// timeout.
func (c *Consumer) Start(ctx context.Context) {
	keys := allQueueKeys()
	attempt := 0
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		result, err := c.rdb.BLPop(ctx, blpopTimeout, keys...).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) || errors.Is(err, context.Canceled) {
				attempt = 0
				continue
			}
			delay := time.Duration(math.Min(
				float64(baseReconnectDelay)*math.Pow(2, float64(attempt)),
				float64(maxReconnectDelay),
			))
			c.logger.Warn("mockworker: blpop failed, backing off", zap.Error(err), zap.Duration("delay", delay))
			attempt++
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return
			}
			continue
		}
		attempt = 0

		// result is [key, value]; value is the job ID pushed by judge.Client.Enqueue.
		if len(result) != 2 {
			continue
		}
		select {
		case c.jobs <- result[1]:
		case <-ctx.Done():
			return
		}
	}
}
