// Package http wires the gin route tree and the HTTP server for the
// insight API.
package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/geoinsight/geoinsight/internal/config"
	"github.com/geoinsight/geoinsight/internal/infrastructure/monitoring/logging"
	"github.com/geoinsight/geoinsight/internal/infrastructure/monitoring/prometheus"
	"github.com/geoinsight/geoinsight/internal/interfaces/http/handlers"
	"github.com/geoinsight/geoinsight/internal/interfaces/http/middleware"
)

// RouterConfig aggregates the handlers and middleware dependencies the
// route tree needs.
type RouterConfig struct {
	InsightHandler   *handlers.InsightHandler
	AssistantHandler *handlers.AssistantHandler
	AdminHandler     *handlers.AdminHandler
	HealthHandler    *handlers.HealthHandler

	Logger           logging.Logger
	Metrics          *prometheus.AppMetrics
	MetricsCollector prometheus.MetricsCollector
	RateLimiter      middleware.RateLimiter

	Mode string
}

// NewRouter constructs the complete route tree.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Mode != "" {
		gin.SetMode(cfg.Mode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	if cfg.Logger != nil {
		r.Use(middleware.RequestLogging(cfg.Logger, middleware.DefaultLoggingConfig()))
	}
	if cfg.Metrics != nil {
		r.Use(middleware.Metrics(cfg.Metrics))
	}

	// Probes and metrics stay outside the rate-limited API group.
	if cfg.HealthHandler != nil {
		r.GET("/healthz", cfg.HealthHandler.Liveness)
		r.GET("/readyz", cfg.HealthHandler.Readiness)
	}
	if cfg.MetricsCollector != nil {
		r.GET("/metrics", gin.WrapH(cfg.MetricsCollector.Handler()))
	}

	api := r.Group("/api/v1")
	if cfg.RateLimiter != nil {
		api.Use(middleware.RateLimit(cfg.RateLimiter))
	}

	if cfg.InsightHandler != nil {
		insights := api.Group("/insights")
		{
			insights.GET("/compare", cfg.InsightHandler.Compare)
			insights.GET("/rankings", cfg.InsightHandler.Rankings)
			insights.GET("/anomalies", cfg.InsightHandler.Anomalies)
			insights.GET("/advanced", cfg.InsightHandler.Advanced)
		}
	}
	if cfg.AssistantHandler != nil {
		api.POST("/assistant/query", cfg.AssistantHandler.Query)
	}
	if cfg.AdminHandler != nil {
		api.POST("/admin/refresh", cfg.AdminHandler.Refresh)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"code": "COMMON_003", "message": "route not found"})
	})

	return r
}

// NewRateLimiter builds the default per-IP limiter from server config.
// Returns nil when rate limiting is disabled.
func NewRateLimiter(cfg config.ServerConfig) middleware.RateLimiter {
	if cfg.RateLimitRPS <= 0 {
		return nil
	}
	return middleware.NewTokenBucketLimiter(float64(cfg.RateLimitRPS), cfg.RateLimitRPS*2, 5*time.Minute)
}
