package logging

import (
	"context"
)

// Context keys for common log fields.
type contextKey string

const (
	// RequestIDKey is the context key for HTTP request IDs.
	RequestIDKey contextKey = "request_id"

	// RenderIDKey is the context key for the id of one compilation.
	RenderIDKey contextKey = "render_id"

	// FileKey is the context key for the entry file being compiled.
	FileKey contextKey = "file"
)

// WithRequestID adds a request ID to the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetRequestID retrieves the request ID from the context.
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// WithRenderID adds a render ID to the context.
func WithRenderID(ctx context.Context, renderID string) context.Context {
	return context.WithValue(ctx, RenderIDKey, renderID)
}

// GetRenderID retrieves the render ID from the context.
func GetRenderID(ctx context.Context) string {
	if renderID, ok := ctx.Value(RenderIDKey).(string); ok {
		return renderID
	}
	return ""
}

// WithFile adds the entry file name to the context.
func WithFile(ctx context.Context, file string) context.Context {
	return context.WithValue(ctx, FileKey, file)
}

// GetFile retrieves the entry file name from the context.
func GetFile(ctx context.Context) string {
	if file, ok := ctx.Value(FileKey).(string); ok {
		return file
	}
	return ""
}

// extractContextFields extracts common fields from context for logging.
// Returns a slice of key-value pairs suitable for logger.With().
func extractContextFields(ctx context.Context) []any {
	var fields []any

	if requestID := GetRequestID(ctx); requestID != "" {
		fields = append(fields, string(RequestIDKey), requestID)
	}
	if renderID := GetRenderID(ctx); renderID != "" {
		fields = append(fields, string(RenderIDKey), renderID)
	}
	if file := GetFile(ctx); file != "" {
		fields = append(fields, string(FileKey), file)
	}

	return fields
}
