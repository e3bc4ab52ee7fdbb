package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cascade.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestLoadConfig_ValidFile(t *testing.T) {
	path := writeConfig(t, `
compiler:
  math: always
  strict_units: true
  timeout: "5s"
  global_vars:
    primary: "#336699"
  modify_vars:
    "@gutter": 20px

imports:
  include_paths: ["vendor", "shared"]
  cache_size: 64

logging:
  level: debug
  format: json

server:
  listen_address: "0.0.0.0:9090"
  read_timeout: "60s"
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v, want nil", err)
	}

	if cfg.Compiler.Math != "always" {
		t.Errorf("Compiler.Math = %q, want %q", cfg.Compiler.Math, "always")
	}
	if !cfg.Compiler.StrictUnits {
		t.Error("Compiler.StrictUnits = false, want true")
	}
	if cfg.Compiler.Timeout != 5*time.Second {
		t.Errorf("Compiler.Timeout = %v, want 5s", cfg.Compiler.Timeout)
	}
	if got := cfg.Compiler.GlobalVars["primary"]; got != "#336699" {
		t.Errorf("GlobalVars[primary] = %q, want %q", got, "#336699")
	}
	if got := cfg.Compiler.ModifyVars["@gutter"]; got != "20px" {
		t.Errorf("ModifyVars[@gutter] = %q, want %q", got, "20px")
	}
	if len(cfg.Imports.IncludePaths) != 2 {
		t.Errorf("len(Imports.IncludePaths) = %d, want 2", len(cfg.Imports.IncludePaths))
	}
	if cfg.Imports.CacheSize != 64 {
		t.Errorf("Imports.CacheSize = %d, want 64", cfg.Imports.CacheSize)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "debug")
	}
	if cfg.Server.ListenAddress != "0.0.0.0:9090" {
		t.Errorf("Server.ListenAddress = %q, want %q", cfg.Server.ListenAddress, "0.0.0.0:9090")
	}
	if cfg.Server.ReadTimeout != 60*time.Second {
		t.Errorf("Server.ReadTimeout = %v, want 60s", cfg.Server.ReadTimeout)
	}

	// Unset fields get defaults
	if cfg.Server.WriteTimeout != DefaultWriteTimeout {
		t.Errorf("Server.WriteTimeout = %v, want %v", cfg.Server.WriteTimeout, DefaultWriteTimeout)
	}
	if cfg.Compiler.MaxMixinDepth != DefaultMaxMixinDepth {
		t.Errorf("Compiler.MaxMixinDepth = %d, want %d", cfg.Compiler.MaxMixinDepth, DefaultMaxMixinDepth)
	}
	if !cfg.Metrics.Enabled {
		t.Error("Metrics.Enabled = false, want true when the section is absent")
	}
}

func TestLoadConfig_MetricsDisabled(t *testing.T) {
	path := writeConfig(t, "metrics:\n  enabled: false\n")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v, want nil", err)
	}
	if cfg.Metrics.Enabled {
		t.Error("Metrics.Enabled = true, want false")
	}
	if cfg.Metrics.Namespace != DefaultMetricsNamespace {
		t.Errorf("Metrics.Namespace = %q, want %q", cfg.Metrics.Namespace, DefaultMetricsNamespace)
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "invalid yaml",
			content: "compiler: [math",
			wantErr: "failed to parse",
		},
		{
			name:    "invalid math",
			content: "compiler:\n  math: sometimes\n",
			wantErr: "compiler.math",
		},
		{
			name:    "invalid logging",
			content: "logging:\n  level: loud\n  format: xml\n",
			wantErr: "2 errors",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.content))
			if err == nil {
				t.Fatal("LoadConfig() error = nil, want error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("LoadConfig() error = %v, want to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("LoadConfig() error = %v, want os.ErrNotExist", err)
	}
}

func TestLoadConfigWithEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
compiler:
  math: always
server:
  listen_address: "127.0.0.1:8080"
`)

	t.Setenv("CASCADE_COMPILER_MATH", "parens")
	t.Setenv("CASCADE_COMPILER_COMPRESS", "true")
	t.Setenv("CASCADE_COMPILER_TIMEOUT", "2s")
	t.Setenv("CASCADE_IMPORTS_INCLUDE_PATHS", "a, b")
	t.Setenv("CASCADE_SERVER_LISTEN_ADDRESS", "0.0.0.0:7070")
	t.Setenv("CASCADE_METRICS_ENABLED", "false")
	t.Setenv("CASCADE_IMPORTS_CACHE_SIZE", "not-a-number")

	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		t.Fatalf("LoadConfigWithEnvOverrides() error = %v, want nil", err)
	}

	if cfg.Compiler.Math != "parens" {
		t.Errorf("Compiler.Math = %q, want %q", cfg.Compiler.Math, "parens")
	}
	if !cfg.Compiler.Compress {
		t.Error("Compiler.Compress = false, want true")
	}
	if cfg.Compiler.Timeout != 2*time.Second {
		t.Errorf("Compiler.Timeout = %v, want 2s", cfg.Compiler.Timeout)
	}
	if got := strings.Join(cfg.Imports.IncludePaths, "|"); got != "a|b" {
		t.Errorf("Imports.IncludePaths = %q, want %q", got, "a|b")
	}
	if cfg.Server.ListenAddress != "0.0.0.0:7070" {
		t.Errorf("Server.ListenAddress = %q, want %q", cfg.Server.ListenAddress, "0.0.0.0:7070")
	}
	if cfg.Metrics.Enabled {
		t.Error("Metrics.Enabled = true, want false")
	}
	if cfg.Imports.CacheSize != DefaultImportCacheSize {
		t.Errorf("Imports.CacheSize = %d, want %d for a malformed override", cfg.Imports.CacheSize, DefaultImportCacheSize)
	}
}

func TestLoadConfigWithEnvOverrides_NoFile(t *testing.T) {
	t.Setenv("CASCADE_LOGGING_LEVEL", "warn")

	cfg, err := LoadConfigWithEnvOverrides("")
	if err != nil {
		t.Fatalf("LoadConfigWithEnvOverrides() error = %v, want nil", err)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "warn")
	}
	if cfg.Server.ListenAddress != DefaultListenAddress {
		t.Errorf("Server.ListenAddress = %q, want %q", cfg.Server.ListenAddress, DefaultListenAddress)
	}
}

func TestLoadConfigWithEnvOverrides_InvalidOverride(t *testing.T) {
	t.Setenv("CASCADE_LOGGING_FORMAT", "xml")

	_, err := LoadConfigWithEnvOverrides("")
	if err == nil {
		t.Fatal("LoadConfigWithEnvOverrides() error = nil, want error")
	}
	if !strings.Contains(err.Error(), "after environment overrides") {
		t.Errorf("error = %v, want to mention environment overrides", err)
	}
}
