// Package metrics provides Prometheus metrics for catalog operations.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TranslationsTotal counts translation calls by target language and result.
	TranslationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "faultcat_translations_total",
			Help: "Total number of translation calls",
		},
		[]string{"target", "result"},
	)

	// TranslationDuration tracks translation latency.
	TranslationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "faultcat_translation_duration_seconds",
			Help:    "Translation call duration in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
	)

	// CacheOperationsTotal tracks translation cache lookups.
	CacheOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "faultcat_cache_operations_total",
			Help: "Total number of translation cache lookups",
		},
		[]string{"result"},
	)

	// FilesWrittenTotal counts catalog files written by operation.
	FilesWrittenTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "faultcat_files_written_total",
			Help: "Total number of catalog files written",
		},
		[]string{"operation"},
	)

	// EntriesTotal counts reconciled entries by outcome.
	EntriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "faultcat_entries_total",
			Help: "Total number of entries processed by sync, by outcome",
		},
		[]string{"outcome"},
	)

	// CoherenceIssues reports the issues found by the last check, by severity.
	CoherenceIssues = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "faultcat_coherence_issues",
			Help: "Issues found by the last coherence check",
		},
		[]string{"severity"},
	)

	// HTTPRequestDuration tracks API request duration by method, path, and status code.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "faultcat_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status_code"},
	)
)

// PrometheusMiddleware returns a Gin middleware that collects HTTP metrics.
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			path,
			strconv.Itoa(c.Writer.Status()),
		).Observe(time.Since(start).Seconds())
	}
}

// WriteTextfile dumps the default registry to path in the node-exporter
// textfile format. Batch commands call it on exit.
func WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
