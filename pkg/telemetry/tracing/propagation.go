package tracing

import (
	"context"
	"net/http"

	"go.opentelemetry.io/otel/propagation"
)

// TraceIDHeader returns the trace ID of a request to the client.
const TraceIDHeader = "X-Trace-ID"

// Extract returns ctx with the W3C trace context (traceparent, tracestate)
// and baggage found in headers. ctx is returned unchanged when the headers
// carry none or t is nil.
func (t *Tracer) Extract(ctx context.Context, headers http.Header) context.Context {
	if t == nil {
		return ctx
	}
	return t.propagator.Extract(ctx, propagation.HeaderCarrier(headers))
}

// Inject writes the trace context of ctx into headers.
func (t *Tracer) Inject(ctx context.Context, headers http.Header) {
	if t == nil {
		return
	}
	t.propagator.Inject(ctx, propagation.HeaderCarrier(headers))
}
