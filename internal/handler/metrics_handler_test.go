package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/projectklase/comunika-nexus-64-78-sub004/internal/middleware"
	"github.com/projectklase/comunika-nexus-64-78-sub004/internal/service"
)

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) PingContext(ctx context.Context) error { return f(ctx) }

type runningFlag bool

func (r runningFlag) Running() bool { return bool(r) }

func TestMetricsHandlerReady(t *testing.T) {
	gin.SetMode(gin.TestMode)

	up := NewMetricsHandler(nil, pingerFunc(func(context.Context) error { return nil }), runningFlag(true))
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/ready", nil)
	up.Ready(c)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ready","scheduler":true}`, w.Body.String())

	down := NewMetricsHandler(nil, pingerFunc(func(context.Context) error { return errors.New("refused") }), nil)
	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/ready", nil)
	down.Ready(c)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestMetricsEndpointExposesPostCounters(t *testing.T) {
	gin.SetMode(gin.TestMode)
	metrics := service.NewMetricsService()
	metrics.RecordPostMutation("create")

	router := gin.New()
	router.Use(middleware.Metrics(metrics))
	router.GET("/metrics", NewMetricsHandler(metrics, nil, nil).Prometheus)
	router.GET("/health", NewMetricsHandler(metrics, nil, nil).Health)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `post_mutations_total{operation="create"} 1`)
	assert.Contains(t, w.Body.String(), `path="/health"`)
}
