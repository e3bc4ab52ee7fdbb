package metrics

import (
	"strconv"
	"time"

	"mercator-hq/cascade/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// RequestMetrics tracks requests served by the HTTP compile service.
//
// Metrics:
//   - cascade_compiler_http_requests_total: Request count by handler and code
//   - cascade_compiler_http_request_duration_seconds: Request duration histogram
//   - cascade_compiler_http_request_size_bytes: Request body size
type RequestMetrics struct {
	// Total request count
	requestsTotal *prometheus.CounterVec

	// Request duration histogram
	requestDuration *prometheus.HistogramVec

	// Request body size in bytes
	sizeBytes *prometheus.HistogramVec
}

// NewRequestMetrics creates and registers request metrics with the provided registry.
func NewRequestMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *RequestMetrics {
	rm := &RequestMetrics{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests served",
			},
			[]string{"handler", "code"},
		),

		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "http_request_duration_seconds",
				Help:      "Duration of HTTP requests in seconds",
				Buckets:   cfg.CompileDurationBuckets,
			},
			[]string{"handler"},
		),

		sizeBytes: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "http_request_size_bytes",
				Help:      "Size of HTTP request bodies in bytes",
				Buckets:   prometheus.ExponentialBuckets(256, 4, 8), // 256B to 4MB
			},
			[]string{"handler"},
		),
	}

	// Register all metrics
	registry.MustRegister(
		rm.requestsTotal,
		rm.requestDuration,
		rm.sizeBytes,
	)

	return rm
}

// RecordRequest records metrics for a completed request.
func (rm *RequestMetrics) RecordRequest(handler string, code int, duration time.Duration, bodyBytes int64) {
	rm.requestsTotal.WithLabelValues(handler, strconv.Itoa(code)).Inc()
	rm.requestDuration.WithLabelValues(handler).Observe(duration.Seconds())
	if bodyBytes > 0 {
		rm.sizeBytes.WithLabelValues(handler).Observe(float64(bodyBytes))
	}
}
