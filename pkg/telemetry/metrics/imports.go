package metrics

import (
	"time"

	"mercator-hq/cascade/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// ImportCacheName is the cache label used for the parsed import cache.
const ImportCacheName = "imports"

// ImportMetrics tracks the import loader.
//
// Metrics:
//   - cascade_compiler_import_loads_total: File loads by cache result
//   - cascade_compiler_import_load_duration_seconds: Load duration histogram
//   - cascade_compiler_import_errors_total: Failed loads by reason
type ImportMetrics struct {
	loadsTotal   *prometheus.CounterVec
	loadDuration *prometheus.HistogramVec
	errorsTotal  *prometheus.CounterVec
}

// NewImportMetrics creates and registers import metrics with the provided registry.
func NewImportMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *ImportMetrics {
	im := &ImportMetrics{
		loadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "import_loads_total",
				Help:      "Total number of import file loads",
			},
			[]string{"cached"},
		),

		loadDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "import_load_duration_seconds",
				Help:      "Duration of import file loads in seconds",
				Buckets:   cfg.CompileDurationBuckets,
			},
			[]string{"cached"},
		),

		errorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "import_errors_total",
				Help:      "Total number of imports that could not be loaded",
			},
			[]string{"reason"},
		),
	}

	// Register all metrics
	registry.MustRegister(
		im.loadsTotal,
		im.loadDuration,
		im.errorsTotal,
	)

	return im
}

// RecordLoad records one import load.
func (im *ImportMetrics) RecordLoad(cached bool, duration time.Duration) {
	label := "false"
	if cached {
		label = "true"
	}
	im.loadsTotal.WithLabelValues(label).Inc()
	im.loadDuration.WithLabelValues(label).Observe(duration.Seconds())
}

// RecordError records a failed import load.
func (im *ImportMetrics) RecordError(reason string) {
	im.errorsTotal.WithLabelValues(reason).Inc()
}
