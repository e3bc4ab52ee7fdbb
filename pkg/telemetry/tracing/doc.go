// Package tracing provides OpenTelemetry tracing for renders and HTTP
// requests.
//
// A render produces a "cascade.render" span with one child span per phase:
// preload, eval, visitors, emit and, when enabled, minify. The compile
// service wraps each request in a server span whose parent is taken from
// the incoming W3C traceparent header, so renders appear inside the
// caller's trace.
//
// # Configuration
//
//	tracing:
//	  enabled: true
//	  sampler: ratio
//	  sample_ratio: 0.1
//	  endpoint: localhost:4317
//	  insecure: true
//
// Spans are exported over OTLP/gRPC. When tracing is disabled New returns
// a no-op Tracer, and a nil *Tracer behaves the same way.
//
// # Usage
//
//	tracer, err := tracing.New(&cfg.Tracing, version)
//	if err != nil {
//	    return err
//	}
//	defer tracer.Shutdown(context.Background())
//
//	comp, err := compiler.NewFromConfig(cfg, compiler.Options{Tracer: tracer})
package tracing
