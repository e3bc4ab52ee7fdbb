// Package metrics provides Prometheus metrics collection for cascade.
//
// # Metrics Categories
//
//   - Compile Metrics: compile count by entry and status, duration, output size
//     and evaluator work counters (mixin calls, function calls, imports)
//   - Import Metrics: import file loads, load duration and load failures
//   - Cache Metrics: hits, misses, entries and evictions of the parsed import cache
//   - Request Metrics: requests served by the HTTP compile service
//
// All metric names start with the configured namespace and subsystem,
// "cascade_compiler_" by default.
//
// # Usage
//
//	collector := metrics.NewCollector(&cfg.Metrics, nil)
//
//	collector.RecordCompile("site.yaml", metrics.StatusSuccess, took, len(css))
//	collector.RecordImport(cached, took)
//
//	mux.Handle(cfg.Metrics.Path, collector.Handler())
//
// # Cardinality
//
// Entry file labels are capped by a CardinalityLimiter; once the cap is hit
// new entries are recorded as "other".
//
// A nil *Collector and a collector built from a disabled config both accept
// every Record call and do nothing.
package metrics
