package mockworker_test

import (
	"context"
	"testing"
	"time"

	"github.com/Divy1030/duelcore/internal/domain"
	"github.com/Divy1030/duelcore/internal/mockworker"
)

func TestOutputMatchExecutor_AllPass(t *testing.T) {
	exec := mockworker.NewOutputMatchExecutor(0)
	job := domain.Job{
		Mode: domain.JobModeSubmit,
		Code: "4\n9\n",
		TestCases: []domain.TestCase{
			{ExpectedOutput: "4"},
			{ExpectedOutput: "9"},
		},
	}

	got := exec.Execute(context.Background(), job)

	if got.Status != domain.JobCompleted {
		t.Fatalf("expected completed, got %s", got.Status)
	}
	if got.Passed != 2 || got.Score != 200 {
		t.Errorf("expected passed=2 score=200, got passed=%d score=%d", got.Passed, got.Score)
	}
	for i, r := range got.Results {
		if r.Status != domain.TestCasePassed {
			t.Errorf("expected result %d to pass, got %s", i, r.Status)
		}
	}
}

func TestOutputMatchExecutor_MissingLineFails(t *testing.T) {
	exec := mockworker.NewOutputMatchExecutor(0)
	job := domain.Job{
		Mode: domain.JobModeSubmit,
		Code: "4\n",
		TestCases: []domain.TestCase{
			{ExpectedOutput: "4"},
			{ExpectedOutput: "9"},
		},
	}

	got := exec.Execute(context.Background(), job)

	if got.Passed != 1 {
		t.Errorf("expected only the first test case to pass, got passed=%d", got.Passed)
	}
	if got.Results[1].Status != domain.TestCaseFailed {
		t.Errorf("expected the second test case to fail when no output line exists, got %s", got.Results[1].Status)
	}
}

func TestOutputMatchExecutor_RunModeIgnoresTestCases(t *testing.T) {
	exec := mockworker.NewOutputMatchExecutor(0)
	job := domain.Job{Mode: domain.JobModeRun, Code: "hello world"}

	got := exec.Execute(context.Background(), job)

	if got.Status != domain.JobCompleted {
		t.Fatalf("expected completed, got %s", got.Status)
	}
	if len(got.Results) != 1 || got.Results[0].ActualOutput != "hello world" {
		t.Errorf("expected run mode to echo code as the single result's output, got %+v", got.Results)
	}
}

func TestOutputMatchExecutor_ContextCancelledDuringDelayFails(t *testing.T) {
	exec := mockworker.NewOutputMatchExecutor(50 * time.Millisecond)
	job := domain.Job{Mode: domain.JobModeSubmit, TestCases: []domain.TestCase{{ExpectedOutput: "x"}}}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()

	got := exec.Execute(ctx, job)
	if got.Status != domain.JobFailed {
		t.Errorf("expected a cancelled context to fail the job, got %s", got.Status)
	}
}
