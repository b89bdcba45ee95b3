package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/flexbase/flexbase/internal/logger"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Health reports whether the store answers. Realtime counts are included
// when a hub is attached.
// GET /health
func (h *Handlers) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status, code := "ok", http.StatusOK
	database := "up"
	if err := h.store.Ping(ctx); err != nil {
		logger.Log.Warn("Health check: database unreachable", zap.Error(err))
		status, code, database = "degraded", http.StatusServiceUnavailable, "down"
	}

	body := gin.H{
		"status":    status,
		"service":   "flexbase",
		"database":  database,
		"timestamp": time.Now().UTC(),
		"uptime":    time.Since(h.startedAt).Round(time.Second).String(),
	}
	if h.hub != nil {
		body["websocket"] = h.hub.GetMetrics()
	}
	c.JSON(code, body)
}

// Metrics exposes the Prometheus registry
// GET /metrics
func Metrics() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
