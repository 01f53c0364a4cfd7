package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Divy1030/duelcore/internal/domain"
	"github.com/Divy1030/duelcore/internal/security"
	"github.com/Divy1030/duelcore/internal/store/memory"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func setupTestRouter(t *testing.T) (*gin.Engine, *memory.Store, *security.TokenService) {
	t.Helper()
	st := memory.New()
	tokens := security.NewTokenService("test-secret")
	logger := zap.NewNop()

	router := gin.New()
	problems := NewProblemHandler(st, logger)
	submissions := NewSubmissionHandler(st, logger)
	leaderboard := NewLeaderboardHandler(st, logger)

	auth := RequireAuth(tokens)
	optionalAuth := OptionalAuth(tokens)

	router.GET("/get-all-problems", problems.GetAllProblems)
	router.GET("/get-problem/:problemId", optionalAuth, problems.GetProblem)
	router.GET("/get-problem/:contestId/:problemId", auth, problems.GetContestProblem)
	router.POST("/submit-solution/:contestId/:problemId", auth, submissions.Submit)
	router.GET("/get-leaderboard/:contestId", leaderboard.GetLeaderboard)

	return router, st, tokens
}

func bearerRequest(t *testing.T, tokens *security.TokenService, method, path, userID string, body any) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		token, err := tokens.Issue(userID, userID)
		if err != nil {
			t.Fatalf("issue token: %v", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func TestGetAllProblems_ReturnsSeededProblems(t *testing.T) {
	router, st, _ := setupTestRouter(t)
	st.SeedProblem(&domain.Problem{ID: "p1", Title: "Two Sum"})

	req := httptest.NewRequest(http.MethodGet, "/get-all-problems", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
}

func TestSubmitSolution_RejectsNonParticipant(t *testing.T) {
	router, st, tokens := setupTestRouter(t)
	st.SeedUser(&domain.User{ID: "x", Rating: 1000})
	st.SeedContest(&domain.Contest{ID: "c1", ProblemIDs: []string{"p1"}})
	st.SeedProblem(&domain.Problem{ID: "p1", MaxScoreRaw: 100})

	req := bearerRequest(t, tokens, http.MethodPost, "/submit-solution/c1/p1", "x", submitSolutionBody{
		Score:        100,
		SolutionCode: "print('x')",
		LanguageUsed: domain.LangPython,
	})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for a non-participant, got %d: %s", w.Code, w.Body.String())
	}
}

func TestSubmitSolution_FullScoreAwardsSolveBonus(t *testing.T) {
	router, st, tokens := setupTestRouter(t)
	st.SeedUser(&domain.User{ID: "x", Rating: 1000})
	st.SeedContest(&domain.Contest{ID: "c1", ProblemIDs: []string{"p1"}, ParticipantIDs: []string{"x"}})
	st.SeedProblem(&domain.Problem{ID: "p1", MaxScoreRaw: 100})

	req := bearerRequest(t, tokens, http.MethodPost, "/submit-solution/c1/p1", "x", submitSolutionBody{
		Score:        100,
		SolutionCode: "print('x')",
		LanguageUsed: domain.LangPython,
	})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	user, err := st.GetUser(req.Context(), "x")
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if user.Rating != 1010 {
		t.Errorf("expected a +10 solve bonus, got rating %d", user.Rating)
	}
	if !user.HasSolved("p1") {
		t.Error("expected p1 to be recorded as solved")
	}

	entry := user.ContestEntry("c1")
	if entry == nil || entry.Score != 100 {
		t.Fatalf("expected contest entry score 100, got %+v", entry)
	}
}

func TestSubmitSolution_PartialScoreSkipsSolveBonus(t *testing.T) {
	router, st, tokens := setupTestRouter(t)
	st.SeedUser(&domain.User{ID: "x", Rating: 1000})
	st.SeedContest(&domain.Contest{ID: "c1", ProblemIDs: []string{"p1"}, ParticipantIDs: []string{"x"}})
	st.SeedProblem(&domain.Problem{ID: "p1", MaxScoreRaw: 100})

	req := bearerRequest(t, tokens, http.MethodPost, "/submit-solution/c1/p1", "x", submitSolutionBody{
		Score:        40,
		SolutionCode: "print('x')",
		LanguageUsed: domain.LangPython,
	})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	user, _ := st.GetUser(req.Context(), "x")
	if user.Rating != 1000 {
		t.Errorf("expected no solve bonus for a partial score, got rating %d", user.Rating)
	}
}

func TestGetLeaderboard_SortsAndBreaksTiesStably(t *testing.T) {
	router, st, _ := setupTestRouter(t)
	st.SeedContest(&domain.Contest{ID: "c1", ProblemIDs: []string{"p1", "p2"}, ParticipantIDs: []string{"a", "b", "c"}})
	st.SeedUser(&domain.User{ID: "a", Username: "A", ContestsParticipated: []domain.ContestParticipation{{ContestID: "c1", Score: 200}}})
	st.SeedUser(&domain.User{ID: "b", Username: "B", ContestsParticipated: []domain.ContestParticipation{{ContestID: "c1", Score: 200}}})
	st.SeedUser(&domain.User{ID: "c", Username: "C", ContestsParticipated: []domain.ContestParticipation{{ContestID: "c1", Score: 100}}})

	req := httptest.NewRequest(http.MethodGet, "/get-leaderboard/c1", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp successEnvelope
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	entriesRaw, _ := json.Marshal(resp.Data)
	var entries []domain.LeaderboardEntry
	if err := json.Unmarshal(entriesRaw, &entries); err != nil {
		t.Fatalf("decode entries: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if entries[0].Rank != 1 || entries[1].Rank != 2 || entries[2].Rank != 3 {
		t.Errorf("expected sequential ranks 1,2,3 with the top tie broken by insertion order, got %d,%d,%d", entries[0].Rank, entries[1].Rank, entries[2].Rank)
	}
	if entries[0].UserID != "a" || entries[1].UserID != "b" {
		t.Errorf("expected the tie between a and b to break stably in insertion order, got %s,%s", entries[0].UserID, entries[1].UserID)
	}
}

func TestGetProblem_AttachesCanonicalSolution(t *testing.T) {
	router, st, _ := setupTestRouter(t)
	st.SeedProblem(&domain.Problem{ID: "p1", Title: "Two Sum", CanonicalSolutionID: "sol-canonical"})
	if err := st.CreateSolution(context.Background(), &domain.Solution{ID: "sol-canonical", ProblemID: "p1", SolutionCode: "return a+b"}); err != nil {
		t.Fatalf("seed canonical solution: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/get-problem/p1", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp successEnvelope
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	payload, _ := json.Marshal(resp.Data)
	var got problemWithSolution
	if err := json.Unmarshal(payload, &got); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if got.CanonicalSolution == nil {
		t.Fatal("expected a canonical solution to be attached")
	}
}

func TestRequireAuth_RejectsMissingToken(t *testing.T) {
	router, st, _ := setupTestRouter(t)
	st.SeedContest(&domain.Contest{ID: "c1"})

	req := httptest.NewRequest(http.MethodGet, "/get-problem/c1/p1", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d: %s", w.Code, w.Body.String())
	}
}
