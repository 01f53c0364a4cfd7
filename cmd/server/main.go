package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Divy1030/duelcore/internal/config"
	"github.com/Divy1030/duelcore/internal/httpapi"
	"github.com/Divy1030/duelcore/internal/judge"
	"github.com/Divy1030/duelcore/internal/matchmaking"
	"github.com/Divy1030/duelcore/internal/pubsub"
	"github.com/Divy1030/duelcore/internal/room"
	"github.com/Divy1030/duelcore/internal/security"
	"github.com/Divy1030/duelcore/internal/session"
	"github.com/Divy1030/duelcore/internal/store/postgres"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	logger.Info("Starting duelcore coordination server")

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	gin.SetMode(cfg.Server.GinMode)

	ctx := context.Background()

	dbPool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		logger.Fatal("Failed to connect to PostgreSQL", zap.Error(err))
	}
	defer dbPool.Close()
	if err := dbPool.Ping(ctx); err != nil {
		logger.Fatal("Failed to ping PostgreSQL", zap.Error(err))
	}
	logger.Info("Connected to PostgreSQL")

	redisOpts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		logger.Fatal("Failed to parse Redis URL", zap.Error(err))
	}
	rdb := redis.NewClient(redisOpts)
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Fatal("Failed to ping Redis", zap.Error(err))
	}
	logger.Info("Connected to Redis")

	st := postgres.New(dbPool)

	var bus *pubsub.Bus
	switch cfg.PubSub.Backend {
	case "rabbitmq":
		backend, err := pubsub.NewRabbitMQ(cfg.RabbitMQ.URL, logger)
		if err != nil {
			logger.Fatal("Failed to connect pubsub to RabbitMQ", zap.Error(err))
		}
		defer backend.Close()
		bus = pubsub.New(backend)
		logger.Info("Connected pubsub to RabbitMQ")
	default:
		bus = pubsub.New(pubsub.NewInProcess())
		logger.Info("Using in-process pubsub backend")
	}

	matchQueue := matchmaking.New(logger)
	roomManager := room.NewManager(st, room.NaiveEvaluator{}, bus, logger)
	judgeClient := judge.New(rdb, st, logger, cfg.Judge.RunTTL, cfg.Judge.SubmitTTL)
	tokens := security.NewTokenService(cfg.Auth.AccessTokenSecret)
	hub := session.NewHub(logger)

	sessionDeps := session.Deps{
		Hub:    hub,
		Queue:  matchQueue,
		Rooms:  roomManager,
		Bus:    bus,
		Logger: logger,
	}

	router := httpapi.NewRouter(httpapi.RouterDeps{
		Store:       st,
		Judge:       judgeClient,
		Tokens:      tokens,
		Session:     sessionDeps,
		DB:          dbPool,
		Redis:       rdb,
		Logger:      logger,
		CORSOrigin:  cfg.Server.CORSOrigin,
		RateLimit:   cfg.Server.RateLimit,
		MaxBodyByte: cfg.Server.MaxBodyBytes,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("duelcore server listening", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down duelcore server...")

	matchQueue.Shutdown()
	roomManager.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("duelcore server stopped")
}
