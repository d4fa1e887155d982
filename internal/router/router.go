package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ProstoyVadila/ml-service/internal/handler"
	"github.com/ProstoyVadila/ml-service/internal/logger"
	"github.com/ProstoyVadila/ml-service/internal/middleware"
)

// Options holds router-wide middleware settings.
type Options struct {
	Logger         *zap.Logger
	Throttler      *middleware.Throttler
	AllowedOrigins []string
}

// Setup configures the Gin engine with all routes and middleware.
func Setup(opts Options, healthH *handler.HealthHandler, extractH *handler.ExtractionHandler) *gin.Engine {
	l := logger.OrNop(opts.Logger)
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(l))
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(l))
	r.Use(middleware.CORS(opts.AllowedOrigins))

	// Probes and metrics are never throttled
	r.GET("/", healthH.Root)
	r.GET("/healthz", healthH.Liveness)
	r.GET("/healthcheck", healthH.Liveness)
	r.GET("/readyz", healthH.Readiness)
	r.GET("/ready", healthH.Readiness)
	r.GET("/startup", healthH.Startup)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/api/v1")
	if opts.Throttler != nil {
		v1.Use(middleware.Throttling(opts.Throttler))
	}

	extract := v1.Group("/extract")
	extract.POST("/text", extractH.ExtractText)
	extract.POST("/image", extractH.ExtractImage)

	return r
}
