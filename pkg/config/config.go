package config

import "time"

// Config represents the complete cascade configuration.
// It contains all settings for the compiler, import resolution, logging,
// metrics, tracing, the file watcher and the HTTP compile service.
type Config struct {
	// Compiler contains evaluation and output settings.
	Compiler CompilerConfig `yaml:"compiler"`

	// Imports contains settings for resolving and caching @import files.
	Imports ImportsConfig `yaml:"imports"`

	// Logging contains structured logging settings.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains Prometheus metrics settings.
	Metrics MetricsConfig `yaml:"metrics"`

	// Tracing contains OpenTelemetry tracing settings.
	Tracing TracingConfig `yaml:"tracing"`

	// Watch contains settings for the watch command.
	Watch WatchConfig `yaml:"watch"`

	// Server contains settings for the HTTP compile service.
	Server ServerConfig `yaml:"server"`
}

// CompilerConfig contains settings that control how stylesheets are
// evaluated and printed.
type CompilerConfig struct {
	// Math selects when arithmetic is evaluated: "always", "parens-division"
	// (division only inside parentheses) or "parens".
	// Default: "parens-division"
	Math string `yaml:"math"`

	// StrictUnits turns operations on incompatible units into errors.
	// Default: false
	StrictUnits bool `yaml:"strict_units"`

	// Compress removes whitespace from the output.
	// Default: false
	Compress bool `yaml:"compress"`

	// Minify runs the output through the esbuild CSS minifier.
	// Default: false
	Minify bool `yaml:"minify"`

	// SourceMap records the source position of every output chunk.
	// Default: false
	SourceMap bool `yaml:"source_map"`

	// NumPrecision is the number of decimals kept when printing numbers.
	// Default: 8
	NumPrecision int `yaml:"num_precision"`

	// MaxMixinDepth bounds nested mixin and detached ruleset calls.
	// Default: 256
	MaxMixinDepth int `yaml:"max_mixin_depth"`

	// Timeout bounds a single render. Zero disables the limit.
	// Default: 30s
	Timeout time.Duration `yaml:"timeout"`

	// GlobalVars are defined before the stylesheet, which can override them.
	// Values use the stylesheet value syntax, for example "#ff0000" or "10px".
	GlobalVars map[string]string `yaml:"global_vars"`

	// ModifyVars are defined after the stylesheet and override its variables.
	ModifyVars map[string]string `yaml:"modify_vars"`
}

// ImportsConfig contains settings for loading imported files.
type ImportsConfig struct {
	// IncludePaths are searched after the directory of the importing file.
	IncludePaths []string `yaml:"include_paths"`

	// Extensions are tried, in order, for import paths without one.
	// Default: [".less", ".yaml", ".yml"]
	Extensions []string `yaml:"extensions"`

	// CacheSize is the number of parsed files kept in memory.
	// Default: 256
	CacheSize int `yaml:"cache_size"`

	// MaxFileSize is the largest file, in bytes, that will be imported.
	// Default: 10485760 (10MB)
	MaxFileSize int64 `yaml:"max_file_size"`

	// Concurrency is the number of files read in parallel ahead of a render.
	// Default: 8
	Concurrency int `yaml:"concurrency"`
}

// LoggingConfig contains structured logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	// Default: "info"
	Level string `yaml:"level"`

	// Format is the log output format: "json", "text" or "console".
	// Default: "text"
	Format string `yaml:"format"`

	// AddSource includes source file and line in log entries.
	// Default: false
	AddSource bool `yaml:"add_source"`
}

// MetricsConfig contains Prometheus metrics configuration.
type MetricsConfig struct {
	// Enabled determines whether metrics are collected.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the HTTP path the metrics are served on.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace is the metric name prefix.
	// Default: "cascade"
	Namespace string `yaml:"namespace"`

	// Subsystem is the second part of the metric name.
	// Default: "compiler"
	Subsystem string `yaml:"subsystem"`

	// CompileDurationBuckets are the histogram buckets, in seconds, for
	// render durations.
	CompileDurationBuckets []float64 `yaml:"compile_duration_buckets"`
}

// TracingConfig contains OpenTelemetry tracing configuration.
// Spans are exported over OTLP/gRPC.
type TracingConfig struct {
	// Enabled controls whether spans are recorded and exported.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Sampler determines the sampling strategy.
	// Options: "always", "never", "ratio"
	// Default: "ratio"
	Sampler string `yaml:"sampler"`

	// SampleRatio is the fraction of traces to sample (0.0 to 1.0).
	// Only used when Sampler is "ratio".
	// Default: 0.1
	SampleRatio float64 `yaml:"sample_ratio"`

	// Endpoint is the OTLP collector address.
	// Default: "localhost:4317"
	Endpoint string `yaml:"endpoint"`

	// ServiceName is the service name in traces.
	// Default: "cascade"
	ServiceName string `yaml:"service_name"`

	// Insecure disables TLS towards the collector.
	// Default: false
	Insecure bool `yaml:"insecure"`

	// Timeout bounds a single export.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`
}

// WatchConfig contains settings for recompiling on file changes.
type WatchConfig struct {
	// Debounce is how long to wait after the last change before compiling.
	// Default: 100ms
	Debounce time.Duration `yaml:"debounce"`

	// ClearScreen clears the terminal before each compilation report.
	// Default: false
	ClearScreen bool `yaml:"clear_screen"`
}

// ServerConfig contains settings for the HTTP compile service.
type ServerConfig struct {
	// ListenAddress is the address the server listens on.
	// Default: "127.0.0.1:8080"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading a request.
	// Default: 30s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration for writing a response.
	// Default: 30s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is how long keep-alive connections stay open.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout bounds graceful shutdown.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// MaxBodyBytes is the largest accepted request body.
	// Default: 1048576 (1MB)
	MaxBodyBytes int64 `yaml:"max_body_bytes"`
}
