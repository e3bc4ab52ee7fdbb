package config

import "time"

// Default values for configuration fields.
const (
	// Compiler defaults
	DefaultMath          = "parens-division"
	DefaultNumPrecision  = 8
	DefaultMaxMixinDepth = 256
	DefaultTimeout       = 30 * time.Second

	// Import defaults
	DefaultImportCacheSize   = 256
	DefaultImportMaxFileSize = int64(10 * 1024 * 1024) // 10MB
	DefaultImportConcurrency = 8

	// Logging defaults
	DefaultLoggingLevel  = "info"
	DefaultLoggingFormat = "text"

	// Metrics defaults
	DefaultMetricsEnabled   = true
	DefaultMetricsPath      = "/metrics"
	DefaultMetricsNamespace = "cascade"
	DefaultMetricsSubsystem = "compiler"

	// Tracing defaults
	DefaultTracingSampler     = "ratio"
	DefaultTracingSampleRatio = 0.1
	DefaultTracingEndpoint    = "localhost:4317"
	DefaultTracingService     = "cascade"
	DefaultTracingTimeout     = 10 * time.Second

	// Watch defaults
	DefaultWatchDebounce = 100 * time.Millisecond

	// Server defaults
	DefaultListenAddress   = "127.0.0.1:8080"
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultMaxBodyBytes    = int64(1024 * 1024) // 1MB
)

// DefaultImportExtensions are tried for import paths without an extension.
var DefaultImportExtensions = []string{".less", ".yaml", ".yml"}

// DefaultCompileDurationBuckets cover renders from 100µs to 5s.
var DefaultCompileDurationBuckets = []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5}

// NewDefaultConfig returns a configuration with every default applied.
// It is used when no configuration file is given.
func NewDefaultConfig() *Config {
	cfg := &Config{
		Metrics: MetricsConfig{Enabled: DefaultMetricsEnabled},
	}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills every unset field with its default value.
// Boolean fields keep their zero value, except metrics which are enabled
// by NewDefaultConfig and by LoadConfig when the section is absent.
func ApplyDefaults(cfg *Config) {
	// Compiler defaults
	if cfg.Compiler.Math == "" {
		cfg.Compiler.Math = DefaultMath
	}
	if cfg.Compiler.NumPrecision == 0 {
		cfg.Compiler.NumPrecision = DefaultNumPrecision
	}
	if cfg.Compiler.MaxMixinDepth == 0 {
		cfg.Compiler.MaxMixinDepth = DefaultMaxMixinDepth
	}
	if cfg.Compiler.Timeout == 0 {
		cfg.Compiler.Timeout = DefaultTimeout
	}

	// Import defaults
	if len(cfg.Imports.Extensions) == 0 {
		cfg.Imports.Extensions = append([]string(nil), DefaultImportExtensions...)
	}
	if cfg.Imports.CacheSize == 0 {
		cfg.Imports.CacheSize = DefaultImportCacheSize
	}
	if cfg.Imports.MaxFileSize == 0 {
		cfg.Imports.MaxFileSize = DefaultImportMaxFileSize
	}
	if cfg.Imports.Concurrency == 0 {
		cfg.Imports.Concurrency = DefaultImportConcurrency
	}

	// Logging defaults
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = DefaultLoggingFormat
	}

	// Metrics defaults
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = DefaultMetricsPath
	}
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Metrics.Subsystem == "" {
		cfg.Metrics.Subsystem = DefaultMetricsSubsystem
	}
	if len(cfg.Metrics.CompileDurationBuckets) == 0 {
		cfg.Metrics.CompileDurationBuckets = append([]float64(nil), DefaultCompileDurationBuckets...)
	}

	// Tracing defaults
	if cfg.Tracing.Sampler == "" {
		cfg.Tracing.Sampler = DefaultTracingSampler
		if cfg.Tracing.SampleRatio == 0 {
			cfg.Tracing.SampleRatio = DefaultTracingSampleRatio
		}
	}
	if cfg.Tracing.Endpoint == "" {
		cfg.Tracing.Endpoint = DefaultTracingEndpoint
	}
	if cfg.Tracing.ServiceName == "" {
		cfg.Tracing.ServiceName = DefaultTracingService
	}
	if cfg.Tracing.Timeout == 0 {
		cfg.Tracing.Timeout = DefaultTracingTimeout
	}

	// Watch defaults
	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = DefaultWatchDebounce
	}

	// Server defaults
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultListenAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Server.MaxBodyBytes == 0 {
		cfg.Server.MaxBodyBytes = DefaultMaxBodyBytes
	}
}
