// Package handlers provides HTTP request handlers.
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
)

// StoreProbe is the part of the document store the health endpoints query.
type StoreProbe interface {
	Ping(ctx context.Context) error
	ServerVersion(ctx context.Context) (string, error)
	DocumentCount(ctx context.Context) (int64, error)
}

// HealthHandler provides health check endpoints.
type HealthHandler struct {
	store      StoreProbe
	appVersion string
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(store StoreProbe, appVersion string) *HealthHandler {
	return &HealthHandler{store: store, appVersion: appVersion}
}

// Live handles liveness probe (is the process alive?).
// GET /health/live
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// Ready handles readiness probe (is the service ready to accept traffic?).
// GET /health/ready
func (h *HealthHandler) Ready(c *gin.Context) {
	if err := h.store.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "error",
			"checks": map[string]string{
				"couchdb": "unhealthy: " + err.Error(),
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"checks": map[string]string{
			"couchdb": "healthy",
		},
	})
}

// Info returns application and store information. Version and document
// count are queried concurrently; a failing probe is reported, not fatal.
// GET /health/info
func (h *HealthHandler) Info(c *gin.Context) {
	var (
		version    string
		count      int64
		versionErr error
		countErr   error
	)

	g, ctx := errgroup.WithContext(c.Request.Context())
	g.Go(func() error {
		version, versionErr = h.store.ServerVersion(ctx)
		return nil
	})
	g.Go(func() error {
		count, countErr = h.store.DocumentCount(ctx)
		return nil
	})
	_ = g.Wait()

	database := map[string]any{}
	if versionErr == nil {
		database["version"] = version
	} else {
		database["error"] = versionErr.Error()
	}
	if countErr == nil {
		database["documents"] = count
	} else {
		database["error"] = countErr.Error()
	}

	c.JSON(http.StatusOK, gin.H{
		"app":     "csafcms",
		"version": h.appVersion,
		"couchdb": database,
	})
}
