package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"mercator-hq/cascade/pkg/config"
	"mercator-hq/cascade/pkg/less/compiler"
	"mercator-hq/cascade/pkg/telemetry/health"
	"mercator-hq/cascade/pkg/telemetry/logging"
	"mercator-hq/cascade/pkg/telemetry/metrics"
	"mercator-hq/cascade/pkg/telemetry/tracing"
)

const themeDoc = `rules:
  - var: primary
    value: red
  - ruleset: .button
    rules:
      - decl: color
        value: "@primary"
`

func newTestServer(t *testing.T, collector *metrics.Collector) *Server {
	t.Helper()
	comp, err := compiler.New(nil, compiler.Options{Metrics: collector})
	if err != nil {
		t.Fatalf("compiler.New() failed: %v", err)
	}
	srv, err := New(&config.ServerConfig{
		ListenAddress:   "127.0.0.1:0",
		ShutdownTimeout: time.Second,
		MaxBodyBytes:    1024,
	}, Options{
		Compiler: comp,
		Metrics:  collector,
		Version:  health.NewVersionInfo("1.2.3", "abc", "now"),
	})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	return srv
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(nil, Options{}); err == nil {
		t.Error("New(nil config) error = nil, want error")
	}
	if _, err := New(&config.ServerConfig{}, Options{}); err == nil {
		t.Error("New(no compiler) error = nil, want error")
	}
}

func TestCompileHandler(t *testing.T) {
	handler := newTestServer(t, nil).Handler()

	tests := []struct {
		name        string
		method      string
		target      string
		body        string
		accept      string
		wantCode    int
		wantBody    string
		contentType string
	}{
		{
			name:        "css",
			method:      http.MethodPost,
			target:      "/compile",
			body:        themeDoc,
			wantCode:    http.StatusOK,
			wantBody:    ".button {\n  color: red;\n}\n",
			contentType: "text/css; charset=utf-8",
		},
		{
			name:        "variable override",
			method:      http.MethodPost,
			target:      "/compile?var=primary=blue",
			body:        themeDoc,
			wantCode:    http.StatusOK,
			wantBody:    ".button {\n  color: blue;\n}\n",
			contentType: "text/css; charset=utf-8",
		},
		{
			name:     "method not allowed",
			method:   http.MethodGet,
			target:   "/compile",
			wantCode: http.StatusMethodNotAllowed,
		},
		{
			name:     "empty body",
			method:   http.MethodPost,
			target:   "/compile",
			body:     "  \n",
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "malformed variable",
			method:   http.MethodPost,
			target:   "/compile?var=primary",
			body:     themeDoc,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "body too large",
			method:   http.MethodPost,
			target:   "/compile",
			body:     "rules: []\n# " + strings.Repeat("x", 2048),
			wantCode: http.StatusRequestEntityTooLarge,
		},
		{
			name:     "parse error",
			method:   http.MethodPost,
			target:   "/compile",
			body:     "rules: [\n",
			wantCode: http.StatusUnprocessableEntity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.target, strings.NewReader(tt.body))
			if tt.accept != "" {
				req.Header.Set("Accept", tt.accept)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			if w.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d (body %q)", w.Code, tt.wantCode, w.Body.String())
			}
			if tt.wantBody != "" && w.Body.String() != tt.wantBody {
				t.Errorf("body = %q, want %q", w.Body.String(), tt.wantBody)
			}
			if tt.contentType != "" && w.Header().Get("Content-Type") != tt.contentType {
				t.Errorf("Content-Type = %q, want %q", w.Header().Get("Content-Type"), tt.contentType)
			}
			if w.Header().Get(RequestIDHeader) == "" {
				t.Error("response has no request id")
			}
		})
	}
}

func TestCompileHandler_JSON(t *testing.T) {
	handler := newTestServer(t, nil).Handler()

	req := httptest.NewRequest(http.MethodPost, "/compile?format=json", strings.NewReader(themeDoc))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var resp compileResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	if resp.CSS != ".button {\n  color: red;\n}\n" {
		t.Errorf("CSS = %q", resp.CSS)
	}
	if resp.RenderID == "" || resp.RenderID != w.Header().Get("X-Render-ID") {
		t.Errorf("RenderID = %q, header %q", resp.RenderID, w.Header().Get("X-Render-ID"))
	}
}

func TestCompileHandler_CompileError(t *testing.T) {
	handler := newTestServer(t, nil).Handler()
	doc := `rules:
  - ruleset: .a
    rules:
      - decl: color
        value: "@missing"
`
	req := httptest.NewRequest(http.MethodPost, "/compile", strings.NewReader(doc))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", w.Code)
	}
	var resp errorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	if resp.Error.Type != "Name" {
		t.Errorf("Type = %q, want Name", resp.Error.Type)
	}
	if resp.Error.File != requestFile || resp.Error.Line != 5 {
		t.Errorf("position = %s:%d, want %s:5", resp.Error.File, resp.Error.Line, requestFile)
	}
	if resp.Error.Context == "" {
		t.Error("Context is empty")
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	var seen string
	handler := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = logging.GetRequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "client-id")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if got := w.Header().Get(RequestIDHeader); got != "client-id" {
		t.Errorf("response id = %q, want client-id", got)
	}
	if seen != "client-id" {
		t.Errorf("context request id = %q, want client-id", seen)
	}

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Header().Get(RequestIDHeader) == "" || seen != w.Header().Get(RequestIDHeader) {
		t.Errorf("generated id = %q, context id %q", w.Header().Get(RequestIDHeader), seen)
	}
}

func TestTracing(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	defer tp.Shutdown(context.Background())
	tracer := tracing.NewWithProvider(tp)

	comp, err := compiler.New(nil, compiler.Options{Tracer: tracer})
	if err != nil {
		t.Fatalf("compiler.New() failed: %v", err)
	}
	srv, err := New(&config.ServerConfig{MaxBodyBytes: 1024}, Options{
		Compiler: comp,
		Tracer:   tracer,
		Logger:   slogDiscard(),
	})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	const traceID = "4bf92f3577b34da6a3ce929d0e0e4736"
	req := httptest.NewRequest(http.MethodPost, "/compile", strings.NewReader(themeDoc))
	req.Header.Set("traceparent", "00-"+traceID+"-00f067aa0ba902b7-01")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("POST /compile = %d, want 200: %s", w.Code, w.Body.String())
	}
	if got := w.Header().Get(tracing.TraceIDHeader); got != traceID {
		t.Errorf("%s = %q, want %q", tracing.TraceIDHeader, got, traceID)
	}

	spans := rec.Ended()
	byName := map[string]int{}
	for i, s := range spans {
		byName[s.Name()] = i
		if got := s.SpanContext().TraceID().String(); got != traceID {
			t.Errorf("%s trace id = %s, want %s", s.Name(), got, traceID)
		}
	}
	serverIdx, ok := byName["POST /compile"]
	if !ok {
		t.Fatalf("no server span in %d spans", len(spans))
	}
	server := spans[serverIdx]
	if server.SpanKind() != trace.SpanKindServer {
		t.Errorf("server span kind = %v, want server", server.SpanKind())
	}
	renderIdx, ok := byName["cascade.render"]
	if !ok {
		t.Fatal("no render span recorded")
	}
	if spans[renderIdx].Parent().SpanID() != server.SpanContext().SpanID() {
		t.Error("render span is not a child of the server span")
	}

	var status string
	for _, kv := range server.Attributes() {
		if string(kv.Key) == tracing.AttrHTTPStatusCode {
			status = kv.Value.Emit()
		}
	}
	if status != "200" {
		t.Errorf("%s = %q, want 200", tracing.AttrHTTPStatusCode, status)
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	handler := RecoveryMiddleware(slogDiscard())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
	if strings.Contains(w.Body.String(), "boom") {
		t.Error("panic value leaked to the client")
	}
}

func TestHealthRoutes(t *testing.T) {
	handler := newTestServer(t, nil).Handler()

	for _, path := range []string{"/health", "/ready", "/version"} {
		t.Run(path, func(t *testing.T) {
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
			if w.Code != http.StatusOK {
				t.Errorf("GET %s = %d, want 200", path, w.Code)
			}
		})
	}
}

func TestMetrics(t *testing.T) {
	collector := metrics.NewCollector(&config.MetricsConfig{
		Enabled:   true,
		Namespace: "test",
		Subsystem: "server",
	}, prometheus.NewRegistry())
	handler := newTestServer(t, collector).Handler()

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/compile", strings.NewReader(themeDoc)))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/compile", strings.NewReader("rules: [\n")))

	count, err := testutil.GatherAndCount(collector.Registry(), "test_server_http_requests_total")
	if err != nil {
		t.Fatalf("GatherAndCount() failed: %v", err)
	}
	if count != 2 {
		t.Errorf("http_requests_total series = %d, want 2", count)
	}

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("GET /metrics = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), "test_server_http_requests_total") {
		t.Error("metrics output missing http_requests_total")
	}
}

func TestServer_StartShutdown(t *testing.T) {
	srv := newTestServer(t, nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- srv.Start(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for !srv.IsRunning() {
		if time.Now().After(deadline) {
			t.Fatal("server did not start")
		}
		time.Sleep(10 * time.Millisecond)
	}

	resp, err := http.Get("http://" + srv.Addr().String() + "/health")
	if err != nil {
		t.Fatalf("GET /health failed: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("GET /health = %d, want 200", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Start() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server did not shut down")
	}
	if srv.IsRunning() {
		t.Error("IsRunning() = true after shutdown")
	}
}
