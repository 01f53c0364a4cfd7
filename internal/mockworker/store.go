package mockworker

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Divy1030/duelcore/internal/domain"
	"github.com/Divy1030/duelcore/internal/judge"
)

// JobStore is the persistence seam WorkerPool grades through: load a job,
// then write its updated state back with a fresh TTL. Separating this from
// *redis.Client lets the pool's dispatch logic run under test without Redis.
type JobStore interface {
	Load(ctx context.Context, jobID string) (domain.Job, error)
	Save(ctx context.Context, job domain.Job) error
}

// RedisJobStore is the production JobStore backing onto the same Redis
// instance internal/judge.Client enqueues against.
type RedisJobStore struct {
	rdb       *redis.Client
	runTTL    time.Duration
	submitTTL time.Duration
}

// NewRedisJobStore constructs a RedisJobStore.
func NewRedisJobStore(rdb *redis.Client, runTTL, submitTTL time.Duration) *RedisJobStore {
	return &RedisJobStore{rdb: rdb, runTTL: runTTL, submitTTL: submitTTL}
}

// Load reads and decodes the job hash for jobID.
func (s *RedisJobStore) Load(ctx context.Context, jobID string) (domain.Job, error) {
	raw, err := s.rdb.HGetAll(ctx, judge.JobKey(jobID)).Result()
	if err != nil {
		return domain.Job{}, err
	}
	if len(raw) == 0 {
		return domain.Job{}, redis.Nil
	}
	return judge.DecodeJob(raw)
}

// Save encodes job and writes it back with the TTL appropriate to its mode.
func (s *RedisJobStore) Save(ctx context.Context, job domain.Job) error {
	fields, err := judge.EncodeJob(job)
	if err != nil {
		return err
	}
	key := judge.JobKey(job.JobID)
	pipe := s.rdb.TxPipeline()
	pipe.HSet(ctx, key, fields)
	pipe.Expire(ctx, key, s.ttlFor(job.Mode))
	_, err = pipe.Exec(ctx)
	return err
}

func (s *RedisJobStore) ttlFor(mode domain.JobMode) time.Duration {
	if mode == domain.JobModeSubmit {
		return s.submitTTL
	}
	return s.runTTL
}
