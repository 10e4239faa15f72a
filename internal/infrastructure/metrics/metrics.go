// Package metrics holds the Prometheus collectors of the service.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequestsTotal counts API requests by method, route and status.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "csafcms_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)
	// HTTPRequestDuration is the latency of API requests.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "csafcms_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	// StoreRequestsTotal counts CouchDB round trips by operation and status;
	// transport failures have status "error".
	StoreRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "csafcms_couchdb_requests_total",
			Help: "Total number of CouchDB requests",
		},
		[]string{"operation", "status"},
	)
	// StoreRequestDuration is the latency of CouchDB round trips.
	StoreRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "csafcms_couchdb_request_duration_seconds",
			Help:    "CouchDB request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)
)

// StatusLabel renders an HTTP status for a status label; 0 means no answer.
func StatusLabel(status int) string {
	if status == 0 {
		return "error"
	}
	return strconv.Itoa(status)
}
