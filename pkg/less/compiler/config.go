package compiler

import (
	"fmt"
	"time"

	"mercator-hq/cascade/pkg/config"
	"mercator-hq/cascade/pkg/less/ast"
	"mercator-hq/cascade/pkg/less/eval"
)

// Config contains the settings of a Compiler.
type Config struct {
	// Math selects when operations are evaluated.
	// Default: eval.MathParensDivision.
	Math eval.MathMode

	// StrictUnits turns operations on incompatible units into errors.
	StrictUnits bool

	// Compress removes whitespace from the generated CSS.
	Compress bool

	// Minify runs the generated CSS through the esbuild minifier.
	// Cannot be combined with SourceMap.
	Minify bool

	// SourceMap records the source position of each output chunk in
	// Result.Segments.
	SourceMap bool

	// NumPrecision is the number of decimals kept when printing numbers.
	// Default: 8.
	NumPrecision int

	// MaxMixinDepth bounds nested mixin and detached ruleset calls.
	// Default: 256.
	MaxMixinDepth int

	// Timeout bounds a single render. Zero disables the limit.
	Timeout time.Duration

	// GlobalVars are defined before the stylesheet. Keys may omit the @.
	GlobalVars map[string]string

	// ModifyVars are defined after the stylesheet and override it.
	ModifyVars map[string]string

	// ContextLines is the number of source lines shown around an error.
	// Default: 2.
	ContextLines int
}

// DefaultConfig returns the default compiler configuration.
func DefaultConfig() *Config {
	return &Config{
		Math:          eval.MathParensDivision,
		NumPrecision:  ast.DefaultNumPrecision,
		MaxMixinDepth: eval.DefaultMaxMixinDepth,
		Timeout:       config.DefaultTimeout,
		ContextLines:  2,
	}
}

// FromConfig converts the compiler section of the application configuration.
func FromConfig(cfg config.CompilerConfig) (*Config, error) {
	math, err := eval.ParseMathMode(cfg.Math)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	c := DefaultConfig()
	c.Math = math
	c.StrictUnits = cfg.StrictUnits
	c.Compress = cfg.Compress
	c.Minify = cfg.Minify
	c.SourceMap = cfg.SourceMap
	if cfg.NumPrecision > 0 {
		c.NumPrecision = cfg.NumPrecision
	}
	if cfg.MaxMixinDepth > 0 {
		c.MaxMixinDepth = cfg.MaxMixinDepth
	}
	c.Timeout = cfg.Timeout
	c.GlobalVars = cfg.GlobalVars
	c.ModifyVars = cfg.ModifyVars
	return c, c.Validate()
}

// Validate validates the compiler configuration.
func (c *Config) Validate() error {
	switch c.Math {
	case eval.MathAlways, eval.MathParensDivision, eval.MathParens:
		// Valid
	default:
		return fmt.Errorf("%w: invalid math mode %v", ErrInvalidConfig, c.Math)
	}

	if c.Minify && c.SourceMap {
		return fmt.Errorf("%w: minify cannot be combined with source maps", ErrInvalidConfig)
	}
	if c.NumPrecision < 0 || c.NumPrecision > 20 {
		return fmt.Errorf("%w: numeric precision must be between 0 and 20", ErrInvalidConfig)
	}
	if c.MaxMixinDepth < 0 {
		return fmt.Errorf("%w: max mixin depth must be non-negative", ErrInvalidConfig)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("%w: timeout must be non-negative", ErrInvalidConfig)
	}
	if c.ContextLines < 0 {
		return fmt.Errorf("%w: context lines must be non-negative", ErrInvalidConfig)
	}

	return nil
}
