package metrics

import (
	"time"

	"mercator-hq/cascade/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// CompileMetrics tracks stylesheet compilations.
//
// Metrics:
//   - cascade_compiler_compiles_total: Compilations by entry file and status
//   - cascade_compiler_compile_duration_seconds: Compile duration histogram
//   - cascade_compiler_output_bytes: Generated CSS size
//   - cascade_compiler_mixin_calls_total: Mixin calls expanded
//   - cascade_compiler_function_calls_total: Built-in function calls
//   - cascade_compiler_imports_inlined_total: Imports inlined into output trees
type CompileMetrics struct {
	compilesTotal   *prometheus.CounterVec
	compileDuration *prometheus.HistogramVec
	outputBytes     prometheus.Histogram
	mixinCalls      prometheus.Counter
	functionCalls   prometheus.Counter
	importsInlined  prometheus.Counter
}

// NewCompileMetrics creates and registers compile metrics with the provided registry.
func NewCompileMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *CompileMetrics {
	cm := &CompileMetrics{
		compilesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "compiles_total",
				Help:      "Total number of stylesheet compilations",
			},
			[]string{"entry", "status"},
		),

		compileDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "compile_duration_seconds",
				Help:      "Duration of stylesheet compilations in seconds",
				Buckets:   cfg.CompileDurationBuckets,
			},
			[]string{"status"},
		),

		outputBytes: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "output_bytes",
				Help:      "Size of generated CSS in bytes",
				Buckets:   prometheus.ExponentialBuckets(256, 4, 8), // 256B to 4MB
			},
		),

		mixinCalls: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "mixin_calls_total",
				Help:      "Total number of mixin calls expanded",
			},
		),

		functionCalls: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "function_calls_total",
				Help:      "Total number of built-in function calls evaluated",
			},
		),

		importsInlined: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "imports_inlined_total",
				Help:      "Total number of imports inlined into output trees",
			},
		),
	}

	// Register all metrics
	registry.MustRegister(
		cm.compilesTotal,
		cm.compileDuration,
		cm.outputBytes,
		cm.mixinCalls,
		cm.functionCalls,
		cm.importsInlined,
	)

	return cm
}

// RecordCompile records one finished compilation. Output size is only
// observed for successful compilations.
func (cm *CompileMetrics) RecordCompile(entry, status string, duration time.Duration, outputBytes int) {
	cm.compilesTotal.WithLabelValues(entry, status).Inc()
	cm.compileDuration.WithLabelValues(status).Observe(duration.Seconds())
	if status == StatusSuccess {
		cm.outputBytes.Observe(float64(outputBytes))
	}
}

// RecordEvalStats adds the evaluator counters of one compilation.
func (cm *CompileMetrics) RecordEvalStats(mixinCalls, functionCalls, imports int) {
	if mixinCalls > 0 {
		cm.mixinCalls.Add(float64(mixinCalls))
	}
	if functionCalls > 0 {
		cm.functionCalls.Add(float64(functionCalls))
	}
	if imports > 0 {
		cm.importsInlined.Add(float64(imports))
	}
}
