package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"mercator-hq/cascade/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// Helper function to create test config
func testConfig() *config.MetricsConfig {
	return &config.MetricsConfig{
		Enabled:                true,
		Namespace:              "test",
		Subsystem:              "metrics",
		CompileDurationBuckets: []float64{0.001, 0.01, 0.1, 1},
	}
}

func TestCollector_NewCollector(t *testing.T) {
	cfg := testConfig()
	registry := prometheus.NewRegistry()

	collector := NewCollector(cfg, registry)

	if collector == nil {
		t.Fatal("Expected non-nil collector")
	}
	if collector.config != cfg {
		t.Error("Collector config not set correctly")
	}
	if collector.Registry() != registry {
		t.Error("Collector registry not set correctly")
	}
}

func TestCollector_Defaults(t *testing.T) {
	cfg := &config.MetricsConfig{Enabled: true}
	collector := NewCollector(cfg, nil)

	if collector.Registry() == nil {
		t.Fatal("Registry() = nil, want a fresh registry")
	}
	if cfg.Namespace != "cascade" || cfg.Subsystem != "compiler" {
		t.Errorf("names = %q/%q, want cascade/compiler", cfg.Namespace, cfg.Subsystem)
	}
	if len(cfg.CompileDurationBuckets) == 0 {
		t.Error("CompileDurationBuckets not defaulted")
	}
}

func TestCollector_RecordCompile(t *testing.T) {
	collector := NewCollector(testConfig(), prometheus.NewRegistry())

	collector.RecordCompile("site.yaml", StatusSuccess, 2*time.Millisecond, 1024)
	collector.RecordCompile("site.yaml", StatusSuccess, 3*time.Millisecond, 2048)
	collector.RecordCompile("site.yaml", StatusError, time.Millisecond, 0)

	cm := collector.compileMetrics
	if got := testutil.ToFloat64(cm.compilesTotal.WithLabelValues("site.yaml", StatusSuccess)); got != 2 {
		t.Errorf("compiles_total{success} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(cm.compilesTotal.WithLabelValues("site.yaml", StatusError)); got != 1 {
		t.Errorf("compiles_total{error} = %v, want 1", got)
	}
	if got := testutil.CollectAndCount(cm.compileDuration); got != 2 {
		t.Errorf("compile_duration_seconds series = %d, want 2", got)
	}
}

func TestCollector_RecordEvalStats(t *testing.T) {
	collector := NewCollector(testConfig(), prometheus.NewRegistry())

	collector.RecordEvalStats(5, 3, 0)
	collector.RecordEvalStats(1, 0, 2)

	cm := collector.compileMetrics
	tests := []struct {
		name   string
		metric prometheus.Counter
		want   float64
	}{
		{"mixin calls", cm.mixinCalls, 6},
		{"function calls", cm.functionCalls, 3},
		{"imports", cm.importsInlined, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := testutil.ToFloat64(tt.metric); got != tt.want {
				t.Errorf("counter = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCollector_RecordImport(t *testing.T) {
	collector := NewCollector(testConfig(), prometheus.NewRegistry())

	collector.RecordImport(false, time.Millisecond)
	collector.RecordImport(true, time.Microsecond)
	collector.RecordImport(true, time.Microsecond)
	collector.RecordImportError("missing")

	im := collector.importMetrics
	if got := testutil.ToFloat64(im.loadsTotal.WithLabelValues("true")); got != 2 {
		t.Errorf("import_loads_total{cached=true} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(im.loadsTotal.WithLabelValues("false")); got != 1 {
		t.Errorf("import_loads_total{cached=false} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(im.errorsTotal.WithLabelValues("missing")); got != 1 {
		t.Errorf("import_errors_total{missing} = %v, want 1", got)
	}

	cm := collector.cacheMetrics
	if got := testutil.ToFloat64(cm.hitsTotal.WithLabelValues(ImportCacheName)); got != 2 {
		t.Errorf("cache_hits_total = %v, want 2", got)
	}
	if got := testutil.ToFloat64(cm.missesTotal.WithLabelValues(ImportCacheName)); got != 1 {
		t.Errorf("cache_misses_total = %v, want 1", got)
	}
}

func TestCollector_Cache(t *testing.T) {
	collector := NewCollector(testConfig(), prometheus.NewRegistry())

	collector.RecordCacheHit("templates")
	collector.RecordCacheMiss("templates")
	collector.UpdateCacheSize("templates", 42)
	collector.cacheMetrics.RecordEviction("templates")

	cm := collector.cacheMetrics
	if got := testutil.ToFloat64(cm.entries.WithLabelValues("templates")); got != 42 {
		t.Errorf("cache_entries = %v, want 42", got)
	}
	if got := testutil.ToFloat64(cm.evictionsTotal.WithLabelValues("templates")); got != 1 {
		t.Errorf("cache_evictions_total = %v, want 1", got)
	}
}

func TestCollector_RecordRequest(t *testing.T) {
	collector := NewCollector(testConfig(), prometheus.NewRegistry())

	collector.RecordRequest("compile", http.StatusOK, 5*time.Millisecond, 512)
	collector.RecordRequest("compile", http.StatusUnprocessableEntity, time.Millisecond, 64)

	rm := collector.requestMetrics
	if got := testutil.ToFloat64(rm.requestsTotal.WithLabelValues("compile", "200")); got != 1 {
		t.Errorf("http_requests_total{200} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(rm.requestsTotal.WithLabelValues("compile", "422")); got != 1 {
		t.Errorf("http_requests_total{422} = %v, want 1", got)
	}
}

func TestCollector_RecordCacheEviction(t *testing.T) {
	collector := NewCollector(testConfig(), prometheus.NewRegistry())

	collector.RecordCacheEviction(ImportCacheName)
	collector.RecordCacheEviction(ImportCacheName)

	if got := testutil.ToFloat64(collector.cacheMetrics.evictionsTotal.WithLabelValues(ImportCacheName)); got != 2 {
		t.Errorf("cache_evictions_total = %v, want 2", got)
	}
}

func TestCollector_Disabled(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false
	collector := NewCollector(cfg, prometheus.NewRegistry())

	collector.RecordCompile("site.yaml", StatusSuccess, time.Millisecond, 10)
	collector.RecordImport(true, time.Millisecond)

	if got := testutil.ToFloat64(collector.compileMetrics.compilesTotal.WithLabelValues("site.yaml", StatusSuccess)); got != 0 {
		t.Errorf("compiles_total = %v, want 0 when disabled", got)
	}
	if got := testutil.ToFloat64(collector.cacheMetrics.hitsTotal.WithLabelValues(ImportCacheName)); got != 0 {
		t.Errorf("cache_hits_total = %v, want 0 when disabled", got)
	}
}

func TestCollector_NilSafe(t *testing.T) {
	var collector *Collector

	collector.RecordCompile("a", StatusSuccess, time.Millisecond, 1)
	collector.RecordEvalStats(1, 1, 1)
	collector.RecordImport(false, time.Millisecond)
	collector.RecordImportError("parse")
	collector.RecordCacheEviction(ImportCacheName)
	collector.RecordCacheHit("imports")
	collector.RecordCacheMiss("imports")
	collector.UpdateCacheSize("imports", 1)
	collector.RecordRequest("compile", 200, time.Millisecond, 1)
}

func TestCollector_EntryCardinality(t *testing.T) {
	collector := NewCollector(testConfig(), prometheus.NewRegistry())
	collector.cardinalityLimiter = NewCardinalityLimiter(2)

	collector.RecordCompile("a.yaml", StatusSuccess, time.Millisecond, 1)
	collector.RecordCompile("b.yaml", StatusSuccess, time.Millisecond, 1)
	collector.RecordCompile("c.yaml", StatusSuccess, time.Millisecond, 1)
	collector.RecordCompile("a.yaml", StatusSuccess, time.Millisecond, 1)

	cm := collector.compileMetrics
	if got := testutil.ToFloat64(cm.compilesTotal.WithLabelValues("a.yaml", StatusSuccess)); got != 2 {
		t.Errorf("compiles_total{a.yaml} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(cm.compilesTotal.WithLabelValues(otherEntry, StatusSuccess)); got != 1 {
		t.Errorf("compiles_total{other} = %v, want 1", got)
	}
}

func TestCardinalityLimiter(t *testing.T) {
	limiter := NewCardinalityLimiter(2)

	if !limiter.Allow("a") || !limiter.Allow("b") {
		t.Fatal("Allow() = false below the limit")
	}
	if !limiter.Allow("a") {
		t.Error("Allow(existing) = false, want true")
	}
	if limiter.Allow("c") {
		t.Error("Allow(c) = true, want false above the limit")
	}
	if got := limiter.Count(); got != 2 {
		t.Errorf("Count() = %d, want 2", got)
	}
}

func TestCollector_Handler(t *testing.T) {
	collector := NewCollector(testConfig(), prometheus.NewRegistry())
	collector.RecordCompile("site.yaml", StatusSuccess, time.Millisecond, 100)

	server := httptest.NewServer(collector.Handler())
	defer server.Close()

	resp, err := http.Get(server.URL)
	if err != nil {
		t.Fatalf("GET /metrics failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("reading body failed: %v", err)
	}
	if !strings.Contains(string(body), "test_metrics_compiles_total") {
		t.Errorf("body missing test_metrics_compiles_total:\n%s", body)
	}
}
