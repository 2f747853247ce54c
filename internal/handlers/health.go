package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/chirpsocial/backend/internal/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// HealthCheck reports database and Redis reachability. Redis is optional,
// so only a database failure makes the check fail.
// GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := gin.H{"database": "ok"}

	if sqlDB, err := h.db.DB(); err != nil || sqlDB.PingContext(ctx) != nil {
		logger.Log.Warn("Health check: database unreachable", zap.Error(err))
		checks["database"] = "unavailable"
		status = http.StatusServiceUnavailable
	}

	switch {
	case h.cache == nil:
		checks["redis"] = "disabled"
	case h.cache.Ping(ctx) != nil:
		checks["redis"] = "unavailable"
	default:
		checks["redis"] = "ok"
	}

	overall := "healthy"
	if status != http.StatusOK {
		overall = "unhealthy"
	}
	c.JSON(status, gin.H{
		"status":    overall,
		"checks":    checks,
		"timestamp": time.Now().UTC(),
	})
}
