package httpapi

import (
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Divy1030/duelcore/internal/httpapi/middleware"
	"github.com/Divy1030/duelcore/internal/judge"
	"github.com/Divy1030/duelcore/internal/security"
	"github.com/Divy1030/duelcore/internal/session"
	"github.com/Divy1030/duelcore/internal/store"
)

// RouterDeps bundles every collaborator the HTTP surface wires handlers
// against, so NewRouter stays a single call from cmd/server.
type RouterDeps struct {
	Store       store.Store
	Judge       *judge.Client
	Tokens      *security.TokenService
	Session     session.Deps
	DB          *pgxpool.Pool
	Redis       *redis.Client
	Logger      *zap.Logger
	CORSOrigin  string
	RateLimit   int
	MaxBodyByte int64
}

// NewRouter builds the gin.Engine serving the contest HTTP surface, the
// scratch judge enqueue/poll endpoints, and the ambient ops surface
// (/metrics, /health).
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.CORS(deps.CORSOrigin))
	router.Use(middleware.Logger(deps.Logger))
	router.Use(middleware.BodySizeLimit(deps.MaxBodyByte))
	router.Use(middleware.RateLimiter(deps.RateLimit))

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	health := NewHealthHandler(deps.DB, deps.Redis, deps.Logger)
	router.GET("/health", health.Health)

	auth := RequireAuth(deps.Tokens)
	optionalAuth := OptionalAuth(deps.Tokens)

	problems := NewProblemHandler(deps.Store, deps.Logger)
	submissions := NewSubmissionHandler(deps.Store, deps.Logger)
	leaderboard := NewLeaderboardHandler(deps.Store, deps.Logger)

	router.GET("/get-all-problems", problems.GetAllProblems)
	router.GET("/get-problem/:problemId", optionalAuth, problems.GetProblem)
	router.GET("/get-problem/:contestId/:problemId", auth, problems.GetContestProblem)
	router.POST("/submit-solution/:contestId/:problemId", auth, submissions.Submit)
	router.GET("/get-leaderboard/:contestId", leaderboard.GetLeaderboard)

	if deps.Judge != nil {
		judgeHandler := NewJudgeHandler(deps.Judge)
		router.POST("/code/run", optionalAuth, judgeHandler.Run)
		router.POST("/code/submit", optionalAuth, judgeHandler.Submit)
		router.GET("/code/result/:jobId", judgeHandler.Result)
	}

	if deps.Session.Hub != nil {
		sessionHandler := NewSessionHandler(deps.Store, deps.Session, deps.Logger)
		router.GET("/ws", auth, sessionHandler.Connect)
	}

	return router
}
