// Package telemetry groups the observability packages of cascade.
//
// # Components
//
//   - logging: Structured logging on log/slog with per-render context fields
//   - metrics: Prometheus metrics for compiles, imports, caches and HTTP requests
//   - tracing: OpenTelemetry spans for renders and compile requests
//   - health: Liveness and readiness endpoints for the compile service
//
// # Usage
//
//	logger, _ := logging.New(logging.FromConfig(cfg.Logging))
//	collector := metrics.NewCollector(&cfg.Metrics, nil)
//
//	comp, _ := compiler.New(cfg, compiler.Options{
//	    Logger:  logger.Slog(),
//	    Metrics: collector,
//	})
package telemetry
