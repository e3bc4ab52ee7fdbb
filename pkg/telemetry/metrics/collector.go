package metrics

import (
	"fmt"
	"sync"
	"time"

	"mercator-hq/cascade/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// Compile status label values.
const (
	StatusSuccess  = "success"
	StatusError    = "error"
	StatusCanceled = "canceled"
)

// otherEntry replaces entry file labels once the cardinality limit is reached.
const otherEntry = "other"

// Collector is the main orchestrator for all Prometheus metrics in cascade.
// It manages metric registration and provides a single interface for
// recording metrics from the compiler, the import loader and the HTTP
// service.
//
// All Record methods are safe on a nil *Collector, so components can take an
// optional collector without checking for it.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	// Compile metrics
	compileMetrics *CompileMetrics

	// Import loader metrics
	importMetrics *ImportMetrics

	// Cache metrics
	cacheMetrics *CacheMetrics

	// HTTP request metrics
	requestMetrics *RequestMetrics

	// Cardinality tracking for entry file labels
	cardinalityLimiter *CardinalityLimiter
}

// NewCollector creates a new metrics collector with the specified configuration
// and Prometheus registry. If registry is nil, a fresh registry is used.
//
// Example:
//
//	cfg := &config.MetricsConfig{
//		Enabled:   true,
//		Namespace: "cascade",
//		Subsystem: "compiler",
//	}
//	collector := metrics.NewCollector(cfg, nil)
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	// Set defaults if not specified
	if cfg.Namespace == "" {
		cfg.Namespace = config.DefaultMetricsNamespace
	}
	if cfg.Subsystem == "" {
		cfg.Subsystem = config.DefaultMetricsSubsystem
	}
	if len(cfg.CompileDurationBuckets) == 0 {
		cfg.CompileDurationBuckets = append([]float64(nil), config.DefaultCompileDurationBuckets...)
	}

	c := &Collector{
		config:             cfg,
		registry:           registry,
		cardinalityLimiter: NewCardinalityLimiter(1000), // Max 1K distinct entry files
	}

	// Initialize metric subsystems
	c.compileMetrics = NewCompileMetrics(cfg, registry)
	c.importMetrics = NewImportMetrics(cfg, registry)
	c.cacheMetrics = NewCacheMetrics(cfg, registry)
	c.requestMetrics = NewRequestMetrics(cfg, registry)

	return c
}

func (c *Collector) enabled() bool {
	return c != nil && c.config.Enabled
}

// RecordCompile records metrics for a finished compilation.
//
// Parameters:
//   - entry: Entry file name ("stdin" or "request" for sources without one)
//   - status: StatusSuccess, StatusError or StatusCanceled
//   - duration: Total compile duration
//   - outputBytes: Size of the generated CSS
//
// Example:
//
//	collector.RecordCompile("site.yaml", metrics.StatusSuccess, 3*time.Millisecond, 2048)
func (c *Collector) RecordCompile(entry, status string, duration time.Duration, outputBytes int) {
	if !c.enabled() {
		return
	}

	// Check cardinality limit
	if !c.cardinalityLimiter.Allow(fmt.Sprintf("compile:%s", entry)) {
		// Aggregate into "other" to prevent cardinality explosion
		entry = otherEntry
	}

	c.compileMetrics.RecordCompile(entry, status, duration, outputBytes)
}

// RecordEvalStats records evaluator work counters for one compilation.
//
// Parameters:
//   - mixinCalls: Number of mixin calls expanded
//   - functionCalls: Number of built-in function calls evaluated
//   - imports: Number of imports inlined
func (c *Collector) RecordEvalStats(mixinCalls, functionCalls, imports int) {
	if !c.enabled() {
		return
	}

	c.compileMetrics.RecordEvalStats(mixinCalls, functionCalls, imports)
}

// RecordImport records one import file load.
//
// Parameters:
//   - cached: true when the parsed tree came from the cache
//   - duration: Time spent resolving, reading and parsing the file
//
// Cache lookups are also counted as hits or misses of the "imports" cache.
func (c *Collector) RecordImport(cached bool, duration time.Duration) {
	if !c.enabled() {
		return
	}

	c.importMetrics.RecordLoad(cached, duration)
	if cached {
		c.RecordCacheHit(ImportCacheName)
	} else {
		c.RecordCacheMiss(ImportCacheName)
	}
}

// RecordImportError records an import that could not be loaded.
//
// Parameters:
//   - reason: Short failure class ("missing", "too_large", "encoding", "parse")
func (c *Collector) RecordImportError(reason string) {
	if !c.enabled() {
		return
	}

	c.importMetrics.RecordError(reason)
}

// RecordCacheHit records a cache hit.
//
// Parameters:
//   - cacheName: Name of the cache (e.g., "imports", "templates")
func (c *Collector) RecordCacheHit(cacheName string) {
	if !c.enabled() {
		return
	}

	c.cacheMetrics.RecordHit(cacheName)
}

// RecordCacheMiss records a cache miss.
//
// Parameters:
//   - cacheName: Name of the cache
func (c *Collector) RecordCacheMiss(cacheName string) {
	if !c.enabled() {
		return
	}

	c.cacheMetrics.RecordMiss(cacheName)
}

// UpdateCacheSize updates the current size of a cache.
//
// Parameters:
//   - cacheName: Name of the cache
//   - size: Current number of entries in the cache
func (c *Collector) UpdateCacheSize(cacheName string, size int) {
	if !c.enabled() {
		return
	}

	c.cacheMetrics.UpdateSize(cacheName, size)
}

// RecordCacheEviction records an entry dropped from a full cache.
func (c *Collector) RecordCacheEviction(cacheName string) {
	if !c.enabled() {
		return
	}

	c.cacheMetrics.RecordEviction(cacheName)
}

// RecordRequest records metrics for a completed HTTP request.
//
// Parameters:
//   - handler: Route name (e.g., "compile", "health")
//   - code: HTTP status code
//   - duration: Time spent serving the request
//   - bodyBytes: Request body size
func (c *Collector) RecordRequest(handler string, code int, duration time.Duration, bodyBytes int64) {
	if !c.enabled() {
		return
	}

	c.requestMetrics.RecordRequest(handler, code, duration, bodyBytes)
}

// Registry returns the Prometheus registry used by this collector.
// This can be used to create an HTTP handler for the /metrics endpoint:
//
//	http.Handle("/metrics", promhttp.HandlerFor(
//		collector.Registry(),
//		promhttp.HandlerOpts{},
//	))
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// CardinalityLimiter prevents metric cardinality explosion by limiting
// the number of unique label combinations per metric.
type CardinalityLimiter struct {
	maxCardinality int
	current        map[string]struct{}
	mu             sync.RWMutex
}

// NewCardinalityLimiter creates a new cardinality limiter with the specified
// maximum cardinality.
func NewCardinalityLimiter(maxCardinality int) *CardinalityLimiter {
	return &CardinalityLimiter{
		maxCardinality: maxCardinality,
		current:        make(map[string]struct{}),
	}
}

// Allow checks if a label set is allowed. Returns true if the label set
// already exists or if we haven't reached the cardinality limit yet.
// Returns false if adding this label set would exceed the limit.
func (cl *CardinalityLimiter) Allow(labelSet string) bool {
	cl.mu.RLock()
	if _, exists := cl.current[labelSet]; exists {
		cl.mu.RUnlock()
		return true
	}
	cl.mu.RUnlock()

	cl.mu.Lock()
	defer cl.mu.Unlock()

	// Double-check after acquiring write lock
	if _, exists := cl.current[labelSet]; exists {
		return true
	}

	if len(cl.current) >= cl.maxCardinality {
		return false
	}

	cl.current[labelSet] = struct{}{}
	return true
}

// Count returns the current cardinality.
func (cl *CardinalityLimiter) Count() int {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	return len(cl.current)
}
