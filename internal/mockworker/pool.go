package mockworker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Divy1030/duelcore/internal/domain"
)

// WorkerPool manages a fixed-size pool of goroutines that grade jobs popped
// off the judge queues.
type WorkerPool struct {
	size     int
	jobs     <-chan string
	store    JobStore
	executor Executor
	logger   *zap.Logger
	wg       sync.WaitGroup
}

// NewWorkerPool constructs a WorkerPool of size goroutines draining jobs.
func NewWorkerPool(size int, jobs <-chan string, store JobStore, executor Executor, logger *zap.Logger) *WorkerPool {
	return &WorkerPool{
		size:     size,
		jobs:     jobs,
		store:    store,
		executor: executor,
		logger:   logger,
	}
}

// Start launches all worker goroutines. Call Stop to wait for them to exit.
func (p *WorkerPool) Start(ctx context.Context) {
	p.logger.Info("mockworker: starting pool", zap.Int("pool_size", p.size))
	for i := 0; i < p.size; i++ {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}
}

// Stop waits for all workers to finish their current job and exit.
func (p *WorkerPool) Stop() {
	p.wg.Wait()
	p.logger.Info("mockworker: pool stopped")
}

func (p *WorkerPool) worker(ctx context.Context, id int) {
	defer p.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("mockworker: worker panic recovered", zap.Int("worker_id", id), zap.Any("panic", r))
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case jobID, ok := <-p.jobs:
			if !ok {
				return
			}
			p.process(ctx, id, jobID)
		}
	}
}

func (p *WorkerPool) process(ctx context.Context, workerID int, jobID string) {
	workersActive.Inc()
	defer workersActive.Dec()
	start := time.Now()

	job, err := p.store.Load(ctx, jobID)
	if err != nil {
		p.logger.Warn("mockworker: load job failed", zap.String("job_id", jobID), zap.Int("worker_id", workerID), zap.Error(err))
		return
	}

	job.Status = domain.JobRunning
	if err := p.store.Save(ctx, job); err != nil {
		p.logger.Error("mockworker: mark running failed", zap.String("job_id", jobID), zap.Error(err))
		return
	}

	job = p.executor.Execute(ctx, job)

	if err := p.store.Save(ctx, job); err != nil {
		p.logger.Error("mockworker: write result failed", zap.String("job_id", jobID), zap.Error(err))
		return
	}

	elapsed := time.Since(start)
	jobsTotal.WithLabelValues(string(job.Language), string(job.Mode), string(job.Status)).Inc()
	jobDuration.WithLabelValues(string(job.Language)).Observe(elapsed.Seconds())

	p.logger.Info("mockworker: job graded",
		zap.String("job_id", jobID),
		zap.Int("worker_id", workerID),
		zap.String("status", string(job.Status)),
		zap.Int("score", job.Score),
	)
}
