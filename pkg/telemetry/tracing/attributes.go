package tracing

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys. Render attributes use the "cascade." namespace; HTTP
// attributes follow the OpenTelemetry semantic conventions.
const (
	AttrRenderID = "cascade.render_id"
	AttrFile     = "cascade.file"
	AttrImports  = "cascade.imports"
	AttrBytes    = "cascade.output_bytes"

	AttrMixinCalls    = "cascade.eval.mixin_calls"
	AttrFunctionCalls = "cascade.eval.function_calls"

	AttrHTTPMethod     = "http.request.method"
	AttrHTTPRoute      = "http.route"
	AttrHTTPStatusCode = "http.response.status_code"
	AttrRequestID      = "cascade.request_id"
)

// Render phases, used as span names below cascade.render.
const (
	PhasePreload  = "preload"
	PhaseEval     = "eval"
	PhaseVisitors = "visitors"
	PhaseEmit     = "emit"
	PhaseMinify   = "minify"
)

// SetRenderAttributes sets the render id and entry file on a span.
func SetRenderAttributes(span trace.Span, renderID, file string) {
	span.SetAttributes(
		attribute.String(AttrRenderID, renderID),
		attribute.String(AttrFile, file),
	)
}

// SetResultAttributes records the size of a finished render.
func SetResultAttributes(span trace.Span, outputBytes, imports, mixinCalls, functionCalls int) {
	span.SetAttributes(
		attribute.Int(AttrBytes, outputBytes),
		attribute.Int(AttrImports, imports),
		attribute.Int(AttrMixinCalls, mixinCalls),
		attribute.Int(AttrFunctionCalls, functionCalls),
	)
}

// SetHTTPAttributes sets the request attributes of a server span.
func SetHTTPAttributes(span trace.Span, method, route, requestID string) {
	attrs := []attribute.KeyValue{
		attribute.String(AttrHTTPMethod, method),
		attribute.String(AttrHTTPRoute, route),
	}
	if requestID != "" {
		attrs = append(attrs, attribute.String(AttrRequestID, requestID))
	}
	span.SetAttributes(attrs...)
}
