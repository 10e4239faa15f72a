package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"csafcms/internal/infrastructure/metrics"
)

// Metrics middleware records request count and latency per route template,
// so path parameters do not create new label values.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.HTTPRequestsTotal.WithLabelValues(c.Request.Method, route, metrics.StatusLabel(c.Writer.Status())).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}
