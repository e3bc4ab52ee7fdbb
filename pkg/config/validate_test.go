package config

import (
	"errors"
	"testing"
)

func TestValidate_Defaults(t *testing.T) {
	if err := Validate(NewDefaultConfig()); err != nil {
		t.Errorf("Validate(NewDefaultConfig()) = %v, want nil", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		modify    func(*Config)
		wantField string
	}{
		{
			name:      "unknown math mode",
			modify:    func(c *Config) { c.Compiler.Math = "sometimes" },
			wantField: "compiler.math",
		},
		{
			name:      "precision out of range",
			modify:    func(c *Config) { c.Compiler.NumPrecision = 40 },
			wantField: "compiler.num_precision",
		},
		{
			name:      "negative mixin depth",
			modify:    func(c *Config) { c.Compiler.MaxMixinDepth = -1 },
			wantField: "compiler.max_mixin_depth",
		},
		{
			name:      "minify with source map",
			modify:    func(c *Config) { c.Compiler.Minify, c.Compiler.SourceMap = true, true },
			wantField: "compiler.source_map",
		},
		{
			name:      "bad global variable",
			modify:    func(c *Config) { c.Compiler.GlobalVars = map[string]string{"bad name": "1"} },
			wantField: "compiler.global_vars.bad name",
		},
		{
			name:      "bad modify variable",
			modify:    func(c *Config) { c.Compiler.ModifyVars = map[string]string{"@": "1"} },
			wantField: "compiler.modify_vars.@",
		},
		{
			name:      "unknown sampler",
			modify:    func(c *Config) { c.Tracing.Sampler = "sometimes" },
			wantField: "tracing.sampler",
		},
		{
			name:      "sample ratio above one",
			modify:    func(c *Config) { c.Tracing.SampleRatio = 1.5 },
			wantField: "tracing.sample_ratio",
		},
		{
			name:      "enabled tracing without endpoint",
			modify:    func(c *Config) { c.Tracing.Enabled, c.Tracing.Endpoint = true, "" },
			wantField: "tracing.endpoint",
		},
		{
			name:      "extension without dot",
			modify:    func(c *Config) { c.Imports.Extensions = []string{"less"} },
			wantField: "imports.extensions[0]",
		},
		{
			name:      "too much concurrency",
			modify:    func(c *Config) { c.Imports.Concurrency = 1000 },
			wantField: "imports.concurrency",
		},
		{
			name:      "unknown log level",
			modify:    func(c *Config) { c.Logging.Level = "trace" },
			wantField: "logging.level",
		},
		{
			name:      "relative metrics path",
			modify:    func(c *Config) { c.Metrics.Path = "metrics" },
			wantField: "metrics.path",
		},
		{
			name:      "unsorted buckets",
			modify:    func(c *Config) { c.Metrics.CompileDurationBuckets = []float64{1, 0.5} },
			wantField: "metrics.compile_duration_buckets",
		},
		{
			name:      "negative debounce",
			modify:    func(c *Config) { c.Watch.Debounce = -1 },
			wantField: "watch.debounce",
		},
		{
			name:      "address without port",
			modify:    func(c *Config) { c.Server.ListenAddress = "localhost" },
			wantField: "server.listen_address",
		},
		{
			name:      "negative body limit",
			modify:    func(c *Config) { c.Server.MaxBodyBytes = -1 },
			wantField: "server.max_body_bytes",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.modify(cfg)

			err := Validate(cfg)
			if err == nil {
				t.Fatal("Validate() error = nil, want error")
			}
			var verr ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Validate() error type = %T, want ValidationError", err)
			}
			if len(verr.Errors) != 1 {
				t.Fatalf("len(Errors) = %d, want 1: %v", len(verr.Errors), verr)
			}
			if verr.Errors[0].Field != tt.wantField {
				t.Errorf("Field = %q, want %q", verr.Errors[0].Field, tt.wantField)
			}
		})
	}
}

func TestValidate_MetricsPathIgnoredWhenDisabled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Metrics.Enabled = false
	cfg.Metrics.Path = "metrics"
	if err := Validate(cfg); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}
}

func TestValidationError_Error(t *testing.T) {
	tests := []struct {
		name string
		errs []FieldError
		want string
	}{
		{"empty", nil, "configuration validation failed"},
		{
			"single",
			[]FieldError{{Field: "logging.level", Message: "bad"}},
			"configuration validation failed: logging.level: bad",
		},
		{
			"multiple",
			[]FieldError{{Field: "a", Message: "x"}, {Field: "b", Message: "y"}},
			"configuration validation failed with 2 errors:\n  - a: x\n  - b: y\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := (ValidationError{Errors: tt.errs}).Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestValidVariableName(t *testing.T) {
	for name, want := range map[string]bool{
		"primary":   true,
		"@primary":  true,
		"grid-cols": true,
		"_x1":       true,
		"":          false,
		"@":         false,
		"a b":       false,
		"a.b":       false,
	} {
		if got := validVariableName(name); got != want {
			t.Errorf("validVariableName(%q) = %v, want %v", name, got, want)
		}
	}
}
