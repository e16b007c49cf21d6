package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/projectklase/comunika-nexus-64-78-sub004/internal/service"
)

const readinessTimeout = 2 * time.Second

type pinger interface {
	PingContext(ctx context.Context) error
}

type schedulerStatus interface {
	Running() bool
}

// MetricsHandler exposes observability and probe endpoints.
type MetricsHandler struct {
	metrics   *service.MetricsService
	db        pinger
	scheduler schedulerStatus
}

// NewMetricsHandler constructs a metrics handler. db and scheduler may be nil.
func NewMetricsHandler(metrics *service.MetricsService, db pinger, scheduler schedulerStatus) *MetricsHandler {
	return &MetricsHandler{metrics: metrics, db: db, scheduler: scheduler}
}

// Prometheus serves the Prometheus metrics endpoint.
func (h *MetricsHandler) Prometheus(c *gin.Context) {
	if h.metrics == nil {
		c.Status(http.StatusServiceUnavailable)
		return
	}
	h.metrics.Handler().ServeHTTP(c.Writer, c.Request)
}

// Health is the liveness probe.
func (h *MetricsHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Ready reports whether the post store answers and whether the scheduler loop
// is running. Only the store decides readiness.
func (h *MetricsHandler) Ready(c *gin.Context) {
	body := gin.H{"status": "ready"}
	if h.scheduler != nil {
		body["scheduler"] = h.scheduler.Running()
	}
	if h.db != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), readinessTimeout)
		defer cancel()
		if err := h.db.PingContext(ctx); err != nil {
			body["status"] = "unavailable"
			body["database"] = err.Error()
			c.JSON(http.StatusServiceUnavailable, body)
			return
		}
	}
	c.JSON(http.StatusOK, body)
}
