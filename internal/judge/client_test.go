package judge

import (
	"context"
	"errors"
	"testing"

	"github.com/Divy1030/duelcore/internal/apperr"
	"github.com/Divy1030/duelcore/internal/domain"
)

func TestEnqueue_RejectsUnsupportedLanguage(t *testing.T) {
	c := &Client{}
	_, err := c.Enqueue(context.Background(), EnqueueInput{
		Mode: domain.JobModeRun, Language: "cobol", Code: "hi",
	})
	if !errors.Is(err, apperr.ErrBadInput) {
		t.Fatalf("expected ErrBadInput, got %v", err)
	}
}

func TestEnqueue_RejectsEmptyCode(t *testing.T) {
	c := &Client{}
	_, err := c.Enqueue(context.Background(), EnqueueInput{
		Mode: domain.JobModeRun, Language: domain.JudgeLangPython,
	})
	if !errors.Is(err, apperr.ErrBadInput) {
		t.Fatalf("expected ErrBadInput, got %v", err)
	}
}

func TestEnqueue_RejectsSubmitModeWithoutTestCases(t *testing.T) {
	c := &Client{}
	_, err := c.Enqueue(context.Background(), EnqueueInput{
		Mode: domain.JobModeSubmit, Language: domain.JudgeLangPython, Code: "print(1)", ProblemID: "p1",
	})
	if !errors.Is(err, apperr.ErrBadInput) {
		t.Fatalf("expected ErrBadInput, got %v", err)
	}
}

func TestEnqueue_RejectsSubmitModeWithoutProblemID(t *testing.T) {
	c := &Client{}
	_, err := c.Enqueue(context.Background(), EnqueueInput{
		Mode:      domain.JobModeSubmit,
		Language:  domain.JudgeLangPython,
		Code:      "print(1)",
		TestCases: []domain.TestCase{{Input: "1", ExpectedOutput: "1"}},
	})
	if !errors.Is(err, apperr.ErrBadInput) {
		t.Fatalf("expected ErrBadInput for a missing problem id, got %v", err)
	}
}

func TestEnqueue_RejectsAnonymousSubmitMode(t *testing.T) {
	c := &Client{}
	_, err := c.Enqueue(context.Background(), EnqueueInput{
		Mode:      domain.JobModeSubmit,
		Language:  domain.JudgeLangPython,
		Code:      "print(1)",
		ProblemID: "p1",
		TestCases: []domain.TestCase{{Input: "1", ExpectedOutput: "1"}},
	})
	if !errors.Is(err, apperr.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for an anonymous submit, got %v", err)
	}
}
