package api

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for the API server on a
// dedicated registry.
type Metrics struct {
	Registry        *prometheus.Registry
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	CatalogSize     prometheus.Gauge
}

// NewMetrics constructs and registers all API metrics.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	requests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total HTTP requests served by the catalog API.",
		},
		[]string{"method", "path", "status"},
	)
	duration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "HTTP request latency for the catalog API.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
	catalogSize := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_catalog_books",
			Help: "Number of books in the currently loaded snapshot.",
		},
	)

	registry.MustRegister(requests, duration, catalogSize)

	return &Metrics{
		Registry:        registry,
		RequestsTotal:   requests,
		RequestDuration: duration,
		CatalogSize:     catalogSize,
	}
}

// Handler returns a gin middleware recording request counts and
// latencies. The route template is used as the path label so ids don't
// explode cardinality.
func (m *Metrics) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		m.RequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		m.RequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

// SetCatalogSize records the size of the current snapshot.
func (m *Metrics) SetCatalogSize(n int) {
	if m == nil {
		return
	}
	m.CatalogSize.Set(float64(n))
}
