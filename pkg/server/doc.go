// Package server provides the HTTP compile service.
//
// # Routes
//
//   - POST /compile - Render the YAML tree document in the request body
//   - GET /health - Liveness check (always returns 200)
//   - GET /ready - Readiness check (runs the registered checks)
//   - GET /version - Build information
//   - GET /metrics - Prometheus metrics, when a collector is configured
//
// Compiling a document with a variable override:
//
//	curl -X POST --data-binary @site.yaml \
//	    'http://127.0.0.1:8080/compile?var=primary=%23336699'
//
// Compile errors are returned as 422 with a JSON body carrying the error
// type, position and code frame.
//
// # Middleware Chain
//
// Requests pass through the following middleware (outermost first):
//  1. Recovery: turns panics into 500 responses
//  2. RequestID: reuses or generates X-Request-ID and adds it to the log context
//  3. Logging: logs method, path, status and latency
//  4. Metrics: per-route request counters and latency (compile route only)
//
// # Graceful Shutdown
//
// Start serves until its context is canceled, then stops accepting
// connections and waits up to the shutdown timeout for active requests.
package server
