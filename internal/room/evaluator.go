package room

import (
	"strings"

	"github.com/Divy1030/duelcore/internal/domain"
)

// Evaluator grades a submitted solution against a problem's test cases and
// reports (score, passedTestcases). The real sandboxed-execution collaborator
// is out of scope; the judge queue (internal/judge) is where that lives for
// the scratch run/submit flow. Room duels use a synchronous, in-process
// grader instead so a settlement never waits on an external worker.
type Evaluator interface {
	Evaluate(problem *domain.Problem, code string, language domain.SupportedLanguage) (score, passed int)
}

// NaiveEvaluator grades by tokenized stdout diff: for each test case it
// checks whether the submitted code's claimed output matches the expected
// output once both are split on whitespace. It does not execute code — code
// execution across five languages is out of scope for this core, so the
// "claimed output" is the submitted code string itself, exactly as the
// client sent it with submitSolution. Scoring is 100
// points per passed test case, mirroring
// Problem.MaxScore's derivation.
type NaiveEvaluator struct{}

// Evaluate compares each of problem's test cases' ExpectedOutput against the
// corresponding line of code (used here as the newline-delimited set of
// claimed outputs, one per test case, in order).
func (NaiveEvaluator) Evaluate(problem *domain.Problem, code string, language domain.SupportedLanguage) (int, int) {
	if problem == nil || len(problem.TestCases) == 0 {
		return 0, 0
	}

	claims := strings.Split(strings.TrimRight(code, "\n"), "\n")
	passed := 0
	for i, tc := range problem.TestCases {
		var claim string
		if i < len(claims) {
			claim = claims[i]
		}
		if tokensEqual(claim, tc.ExpectedOutput) {
			passed++
		}
	}
	return passed * 100, passed
}

func tokensEqual(a, b string) bool {
	return strings.Join(strings.Fields(a), " ") == strings.Join(strings.Fields(b), " ")
}
