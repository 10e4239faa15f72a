// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"csafcms/internal/infrastructure/http/v1/handlers"
	"csafcms/internal/infrastructure/http/v1/middleware"
	"csafcms/pkg/logger"
)

// RouterConfig holds router dependencies.
type RouterConfig struct {
	// Logger for request logging
	Logger *logger.Logger

	// Store answers the health endpoints
	Store handlers.StoreProbe

	// Advisories serves the advisory endpoints
	Advisories handlers.AdvisoryService

	// Documents serves raw stored documents
	Documents handlers.DocumentReader

	// AppVersion is reported by /health/info
	AppVersion string
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	if cfg.Logger == nil {
		cfg.Logger = logger.NewNop()
	}

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.Metrics())
	router.Use(middleware.ErrorHandler())

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	healthHandler := handlers.NewHealthHandler(cfg.Store, cfg.AppVersion)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
	}

	v1 := router.Group("/api/v1")
	{
		advisoryHandler := handlers.NewAdvisoryHandler(handlers.NewBaseHandler(), cfg.Advisories)
		RegisterAdvisoryRoutes(v1.Group("/advisories"), advisoryHandler)

		documentHandler := handlers.NewDocumentHandler(handlers.NewBaseHandler(), cfg.Documents)
		v1.GET("/documents/:id", documentHandler.Get)
	}

	return router
}
