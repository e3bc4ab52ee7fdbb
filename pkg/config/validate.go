package config

import (
	"fmt"
	"net"
	"strings"

	"mercator-hq/cascade/pkg/less/eval"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "server.listen_address").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
// It implements the error interface and provides access to all field errors.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. It returns nil if the configuration is valid.
// All validation errors are collected and returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateCompiler(&cfg.Compiler)...)
	errs = append(errs, validateImports(&cfg.Imports)...)
	errs = append(errs, validateLogging(&cfg.Logging)...)
	errs = append(errs, validateMetrics(&cfg.Metrics)...)
	errs = append(errs, validateTracing(&cfg.Tracing)...)
	errs = append(errs, validateWatch(&cfg.Watch)...)
	errs = append(errs, validateServer(&cfg.Server)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}

func validateCompiler(cfg *CompilerConfig) []FieldError {
	var errs []FieldError

	if _, err := eval.ParseMathMode(cfg.Math); err != nil {
		errs = append(errs, FieldError{
			Field:   "compiler.math",
			Message: "must be one of: always, parens-division, parens",
		})
	}
	if cfg.NumPrecision < 0 || cfg.NumPrecision > 20 {
		errs = append(errs, FieldError{
			Field:   "compiler.num_precision",
			Message: "must be between 0 and 20",
		})
	}
	if cfg.MaxMixinDepth < 0 {
		errs = append(errs, FieldError{
			Field:   "compiler.max_mixin_depth",
			Message: "must be non-negative",
		})
	}
	if cfg.Minify && cfg.SourceMap {
		errs = append(errs, FieldError{
			Field:   "compiler.source_map",
			Message: "cannot be combined with minify",
		})
	}
	if cfg.Timeout < 0 {
		errs = append(errs, FieldError{
			Field:   "compiler.timeout",
			Message: "must be non-negative",
		})
	}
	for name := range cfg.GlobalVars {
		if !validVariableName(name) {
			errs = append(errs, FieldError{
				Field:   "compiler.global_vars." + name,
				Message: "invalid variable name",
			})
		}
	}
	for name := range cfg.ModifyVars {
		if !validVariableName(name) {
			errs = append(errs, FieldError{
				Field:   "compiler.modify_vars." + name,
				Message: "invalid variable name",
			})
		}
	}

	return errs
}

// validVariableName accepts names with or without the leading "@".
func validVariableName(name string) bool {
	name = strings.TrimPrefix(name, "@")
	if name == "" {
		return false
	}
	for _, r := range name {
		if !(r == '-' || r == '_' || r >= '0' && r <= '9' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r > 127) {
			return false
		}
	}
	return true
}

func validateImports(cfg *ImportsConfig) []FieldError {
	var errs []FieldError

	for i, ext := range cfg.Extensions {
		if !strings.HasPrefix(ext, ".") {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("imports.extensions[%d]", i),
				Message: fmt.Sprintf("extension %q must start with a dot", ext),
			})
		}
	}
	if cfg.CacheSize < 0 {
		errs = append(errs, FieldError{
			Field:   "imports.cache_size",
			Message: "must be non-negative",
		})
	}
	if cfg.MaxFileSize < 0 {
		errs = append(errs, FieldError{
			Field:   "imports.max_file_size",
			Message: "must be non-negative",
		})
	}
	if cfg.Concurrency < 0 || cfg.Concurrency > 256 {
		errs = append(errs, FieldError{
			Field:   "imports.concurrency",
			Message: "must be between 0 and 256",
		})
	}

	return errs
}

func validateLogging(cfg *LoggingConfig) []FieldError {
	var errs []FieldError

	switch strings.ToLower(cfg.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, FieldError{
			Field:   "logging.level",
			Message: "must be one of: debug, info, warn, error",
		})
	}
	switch strings.ToLower(cfg.Format) {
	case "json", "text", "console":
	default:
		errs = append(errs, FieldError{
			Field:   "logging.format",
			Message: "must be one of: json, text, console",
		})
	}

	return errs
}

func validateMetrics(cfg *MetricsConfig) []FieldError {
	var errs []FieldError

	if cfg.Enabled && !strings.HasPrefix(cfg.Path, "/") {
		errs = append(errs, FieldError{
			Field:   "metrics.path",
			Message: "must start with /",
		})
	}
	for i := 1; i < len(cfg.CompileDurationBuckets); i++ {
		if cfg.CompileDurationBuckets[i] <= cfg.CompileDurationBuckets[i-1] {
			errs = append(errs, FieldError{
				Field:   "metrics.compile_duration_buckets",
				Message: "buckets must be strictly increasing",
			})
			break
		}
	}

	return errs
}

func validateTracing(cfg *TracingConfig) []FieldError {
	var errs []FieldError

	switch cfg.Sampler {
	case "always", "never", "ratio":
	default:
		errs = append(errs, FieldError{
			Field:   "tracing.sampler",
			Message: "must be one of: always, never, ratio",
		})
	}
	if cfg.SampleRatio < 0 || cfg.SampleRatio > 1 {
		errs = append(errs, FieldError{
			Field:   "tracing.sample_ratio",
			Message: "must be between 0.0 and 1.0",
		})
	}
	if cfg.Enabled && cfg.Endpoint == "" {
		errs = append(errs, FieldError{
			Field:   "tracing.endpoint",
			Message: "endpoint is required when tracing is enabled",
		})
	}
	if cfg.Timeout < 0 {
		errs = append(errs, FieldError{
			Field:   "tracing.timeout",
			Message: "must be non-negative",
		})
	}

	return errs
}

func validateWatch(cfg *WatchConfig) []FieldError {
	var errs []FieldError

	if cfg.Debounce < 0 {
		errs = append(errs, FieldError{
			Field:   "watch.debounce",
			Message: "must be non-negative",
		})
	}

	return errs
}

func validateServer(cfg *ServerConfig) []FieldError {
	var errs []FieldError

	if cfg.ListenAddress == "" {
		errs = append(errs, FieldError{
			Field:   "server.listen_address",
			Message: "listen address is required",
		})
	} else if _, _, err := net.SplitHostPort(cfg.ListenAddress); err != nil {
		errs = append(errs, FieldError{
			Field:   "server.listen_address",
			Message: fmt.Sprintf("invalid address: %v", err),
		})
	}

	if cfg.ReadTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "server.read_timeout",
			Message: "read timeout must be positive",
		})
	}
	if cfg.WriteTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "server.write_timeout",
			Message: "write timeout must be positive",
		})
	}
	if cfg.IdleTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "server.idle_timeout",
			Message: "idle timeout must be positive",
		})
	}
	if cfg.MaxBodyBytes < 0 {
		errs = append(errs, FieldError{
			Field:   "server.max_body_bytes",
			Message: "max body bytes must be non-negative",
		})
	}

	return errs
}
