package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Divy1030/duelcore/internal/config"
	"github.com/Divy1030/duelcore/internal/mockworker"
)

const (
	poolSize    = 4
	metricsAddr = ":9091"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	logger.Info("Starting duelcore judge worker")

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

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

	jobStore := mockworker.NewRedisJobStore(rdb, cfg.Judge.RunTTL, cfg.Judge.SubmitTTL)
	executor := mockworker.NewOutputMatchExecutor(0)

	jobsChan := make(chan string, poolSize*2)

	consumer := mockworker.NewConsumer(rdb, jobsChan, logger)
	pool := mockworker.NewWorkerPool(poolSize, jobsChan, jobStore, executor, logger)
	pool.Start(ctx)

	go consumer.Start(ctx)

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		logger.Info("Metrics server listening", zap.String("addr", metricsAddr))
		if err := http.ListenAndServe(metricsAddr, mux); err != nil {
			logger.Error("Metrics server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down judge worker...")
	cancel()
	pool.Stop()

	logger.Info("Judge worker stopped")
}
