package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of environment variable overrides.
const EnvPrefix = "CASCADE_"

// LoadConfig loads configuration from a YAML file at the specified path.
// It applies default values, validates the configuration, and returns any errors.
// The configuration is not modified by environment variables; use LoadConfigWithEnvOverrides
// for that functionality.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg, err := parseConfig(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// parseConfig decodes YAML over the boolean defaults and applies the rest.
// An absent metrics.enabled keeps metrics on, an explicit false turns them off.
func parseConfig(data []byte) (*Config, error) {
	cfg := &Config{
		Metrics: MetricsConfig{Enabled: DefaultMetricsEnabled},
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	ApplyDefaults(cfg)
	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Environment variables follow the naming
// convention CASCADE_SECTION_FIELD (e.g., CASCADE_SERVER_LISTEN_ADDRESS).
// Environment variables always take precedence over file-based configuration.
//
// The loading sequence is:
// 1. Load YAML from file
// 2. Apply default values
// 3. Apply environment variable overrides
// 4. Validate final configuration
//
// An empty path starts from the defaults.
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	var cfg *Config
	if path == "" {
		cfg = NewDefaultConfig()
	} else {
		var err error
		cfg, err = LoadConfig(path)
		if err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}
	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables use the format CASCADE_SECTION_FIELD.
func applyEnvOverrides(cfg *Config) {
	// Compiler overrides
	envString("COMPILER_MATH", &cfg.Compiler.Math)
	envBool("COMPILER_STRICT_UNITS", &cfg.Compiler.StrictUnits)
	envBool("COMPILER_COMPRESS", &cfg.Compiler.Compress)
	envBool("COMPILER_MINIFY", &cfg.Compiler.Minify)
	envBool("COMPILER_SOURCE_MAP", &cfg.Compiler.SourceMap)
	envInt("COMPILER_NUM_PRECISION", &cfg.Compiler.NumPrecision)
	envInt("COMPILER_MAX_MIXIN_DEPTH", &cfg.Compiler.MaxMixinDepth)
	envDuration("COMPILER_TIMEOUT", &cfg.Compiler.Timeout)

	// Import overrides
	if val := os.Getenv(EnvPrefix + "IMPORTS_INCLUDE_PATHS"); val != "" {
		cfg.Imports.IncludePaths = splitList(val)
	}
	envInt("IMPORTS_CACHE_SIZE", &cfg.Imports.CacheSize)
	envInt("IMPORTS_CONCURRENCY", &cfg.Imports.Concurrency)
	if val := os.Getenv(EnvPrefix + "IMPORTS_MAX_FILE_SIZE"); val != "" {
		if i, err := strconv.ParseInt(val, 10, 64); err == nil {
			cfg.Imports.MaxFileSize = i
		}
	}

	// Logging overrides
	envString("LOGGING_LEVEL", &cfg.Logging.Level)
	envString("LOGGING_FORMAT", &cfg.Logging.Format)
	envBool("LOGGING_ADD_SOURCE", &cfg.Logging.AddSource)

	// Metrics overrides
	envBool("METRICS_ENABLED", &cfg.Metrics.Enabled)
	envString("METRICS_PATH", &cfg.Metrics.Path)
	envString("METRICS_NAMESPACE", &cfg.Metrics.Namespace)

	// Tracing overrides
	envBool("TRACING_ENABLED", &cfg.Tracing.Enabled)
	envString("TRACING_SAMPLER", &cfg.Tracing.Sampler)
	if val := os.Getenv(EnvPrefix + "TRACING_SAMPLE_RATIO"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Tracing.SampleRatio = f
		}
	}
	envString("TRACING_ENDPOINT", &cfg.Tracing.Endpoint)
	envString("TRACING_SERVICE_NAME", &cfg.Tracing.ServiceName)
	envBool("TRACING_INSECURE", &cfg.Tracing.Insecure)

	// Watch overrides
	envDuration("WATCH_DEBOUNCE", &cfg.Watch.Debounce)
	envBool("WATCH_CLEAR_SCREEN", &cfg.Watch.ClearScreen)

	// Server overrides
	envString("SERVER_LISTEN_ADDRESS", &cfg.Server.ListenAddress)
	envDuration("SERVER_READ_TIMEOUT", &cfg.Server.ReadTimeout)
	envDuration("SERVER_WRITE_TIMEOUT", &cfg.Server.WriteTimeout)
	envDuration("SERVER_IDLE_TIMEOUT", &cfg.Server.IdleTimeout)
	envDuration("SERVER_SHUTDOWN_TIMEOUT", &cfg.Server.ShutdownTimeout)
	if val := os.Getenv(EnvPrefix + "SERVER_MAX_BODY_BYTES"); val != "" {
		if i, err := strconv.ParseInt(val, 10, 64); err == nil {
			cfg.Server.MaxBodyBytes = i
		}
	}
}

// Malformed values are ignored and leave the field unchanged; Validate
// reports fields that end up out of range.

func envString(name string, dst *string) {
	if val := os.Getenv(EnvPrefix + name); val != "" {
		*dst = val
	}
}

func envBool(name string, dst *bool) {
	if val := os.Getenv(EnvPrefix + name); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			*dst = b
		}
	}
}

func envInt(name string, dst *int) {
	if val := os.Getenv(EnvPrefix + name); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			*dst = i
		}
	}
}

func envDuration(name string, dst *time.Duration) {
	if val := os.Getenv(EnvPrefix + name); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			*dst = d
		}
	}
}

// splitList splits a path list on the OS list separator or commas.
func splitList(val string) []string {
	var out []string
	for _, part := range strings.FieldsFunc(val, func(r rune) bool {
		return r == ',' || r == os.PathListSeparator
	}) {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
