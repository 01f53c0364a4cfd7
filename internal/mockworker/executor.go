// Package mockworker is the dev/test stand-in for the real per-language
// judge sandboxes: it speaks the same Redis job-hash and FIFO-list protocol
// internal/judge.Client enqueues onto, but grades by direct output
// comparison instead of compiling and running arbitrary submissions in an
// isolated sandbox.
package mockworker

import (
	"context"
	"strings"
	"time"

	"github.com/Divy1030/duelcore/internal/domain"
)

// Executor grades one job's code against its test cases (if any) and
// returns the fields a worker writes back to the job hash.
type Executor interface {
	Execute(ctx context.Context, job domain.Job) domain.Job
}

// OutputMatchExecutor grades a submission by comparing the submitted code,
// read line by line from the start (line i for test case i), against each
// test case's expected output. It stands in for a real interpreter/compiler sandbox:
// the request's Code field is treated as the program's own recorded
// stdout rather than source to compile and run.
type OutputMatchExecutor struct {
	// ExecDelay simulates sandbox latency for load and timeout-path testing.
	// Zero means no delay.
	ExecDelay time.Duration
}

// NewOutputMatchExecutor constructs an OutputMatchExecutor.
func NewOutputMatchExecutor(execDelay time.Duration) *OutputMatchExecutor {
	return &OutputMatchExecutor{ExecDelay: execDelay}
}

// Execute grades job in place and returns the updated copy.
func (e *OutputMatchExecutor) Execute(ctx context.Context, job domain.Job) domain.Job {
	if e.ExecDelay > 0 {
		select {
		case <-time.After(e.ExecDelay):
		case <-ctx.Done():
			job.Status = domain.JobFailed
			return job
		}
	}

	if job.Mode == domain.JobModeRun || len(job.TestCases) == 0 {
		job.Status = domain.JobCompleted
		job.Total = 0
		job.Passed = 0
		job.Score = 0
		job.Results = []domain.JobTestCaseResult{{
			Input:        "",
			ActualOutput: job.Code,
			Status:       domain.TestCasePassed,
		}}
		return job
	}

	outputLines := strings.Split(strings.TrimRight(job.Code, "\n"), "\n")
	results := make([]domain.JobTestCaseResult, len(job.TestCases))
	passed := 0
	for i, tc := range job.TestCases {
		actual := ""
		if i < len(outputLines) {
			actual = outputLines[i]
		}
		status := domain.TestCaseFailed
		if strings.TrimSpace(actual) == strings.TrimSpace(tc.ExpectedOutput) {
			status = domain.TestCasePassed
			passed++
		}
		results[i] = domain.JobTestCaseResult{
			Input:          tc.Input,
			ExpectedOutput: tc.ExpectedOutput,
			ActualOutput:   actual,
			Status:         status,
		}
	}

	job.Total = len(job.TestCases)
	job.Passed = passed
	job.Score = passed * 100
	job.Results = results
	job.Status = domain.JobCompleted
	return job
}
