package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const healthCheckTimeout = 2 * time.Second

// HealthHandler reports liveness plus each ambient dependency's reachability.
type HealthHandler struct {
	db     *pgxpool.Pool
	redis  *redis.Client
	logger *zap.Logger
}

// NewHealthHandler constructs a HealthHandler.
func NewHealthHandler(db *pgxpool.Pool, rdb *redis.Client, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{db: db, redis: rdb, logger: logger}
}

// Health handles GET /health.
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	services := gin.H{
		"postgres": h.checkPostgres(ctx),
		"redis":    h.checkRedis(ctx),
	}

	status := http.StatusOK
	for _, v := range services {
		if v != "ok" {
			status = http.StatusServiceUnavailable
		}
	}

	c.JSON(status, gin.H{"status": "ok", "services": services})
}

func (h *HealthHandler) checkPostgres(ctx context.Context) string {
	if err := h.db.Ping(ctx); err != nil {
		h.logger.Warn("health: postgres ping failed", zap.Error(err))
		return "unreachable"
	}
	return "ok"
}

func (h *HealthHandler) checkRedis(ctx context.Context) string {
	if err := h.redis.Ping(ctx).Err(); err != nil {
		h.logger.Warn("health: redis ping failed", zap.Error(err))
		return "unreachable"
	}
	return "ok"
}
