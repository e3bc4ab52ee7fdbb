package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/cascade/pkg/cli"
	"mercator-hq/cascade/pkg/config"
	"mercator-hq/cascade/pkg/less/ast"
	"mercator-hq/cascade/pkg/less/compiler"
)

var compileFlags struct {
	output    string
	vars      []string
	compress  bool
	minify    bool
	sourceMap string
	timeout   time.Duration
}

var compileCmd = &cobra.Command{
	Use:   "compile <file>",
	Short: "Compile a stylesheet to CSS",
	Long: `Compile a stylesheet template to CSS.

The CSS is written to stdout unless --output is given. Errors are printed
with the file position and the surrounding source lines.

Examples:
  # Compile to stdout
  cascade compile site.yaml

  # Override variables defined by the stylesheet
  cascade compile site.yaml --var primary=#336699 --var radius=4px

  # Minified output written to a file
  cascade compile site.yaml --minify -o site.min.css

  # Record output positions for tooling
  cascade compile site.yaml -o site.css --source-map site.segments.json`,
	Args: cobra.ExactArgs(1),
	RunE: runCompile,
}

func init() {
	rootCmd.AddCommand(compileCmd)

	compileCmd.Flags().StringVarP(&compileFlags.output, "output", "o", "", "output file (default stdout)")
	compileCmd.Flags().StringArrayVar(&compileFlags.vars, "var", nil, "override a variable, as name=value (repeatable)")
	compileCmd.Flags().BoolVar(&compileFlags.compress, "compress", false, "remove whitespace from the output")
	compileCmd.Flags().BoolVar(&compileFlags.minify, "minify", false, "minify the output with esbuild")
	compileCmd.Flags().StringVar(&compileFlags.sourceMap, "source-map", "", "write output segments as JSON to this file")
	compileCmd.Flags().DurationVar(&compileFlags.timeout, "timeout", 0, "override the render timeout")
}

func runCompile(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	vars, err := parseVarFlags(compileFlags.vars)
	if err != nil {
		return err
	}
	applyCompileFlags(&cfg.Compiler)

	comp, err := newCompiler(cfg)
	if err != nil {
		return err
	}

	ctx, stop := cli.SetupSignalHandler()
	defer stop()

	res, err := compileWithVars(ctx, comp, args[0], vars)
	if err != nil {
		return err
	}

	if err := writeOutput(cmd.OutOrStdout(), compileFlags.output, res.CSS); err != nil {
		return err
	}
	if compileFlags.sourceMap != "" {
		if err := writeSegments(compileFlags.sourceMap, res.Segments); err != nil {
			return err
		}
	}
	return nil
}

// applyCompileFlags overlays the compile flags on the compiler section.
func applyCompileFlags(cfg *config.CompilerConfig) {
	if compileFlags.compress {
		cfg.Compress = true
	}
	if compileFlags.minify {
		cfg.Minify = true
	}
	if compileFlags.sourceMap != "" {
		cfg.SourceMap = true
	}
	if compileFlags.timeout > 0 {
		cfg.Timeout = compileFlags.timeout
	}
}

// newCompiler creates a compiler logging through the configured logger.
func newCompiler(cfg *config.Config) (*compiler.Compiler, error) {
	logger, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}
	comp, err := compiler.NewFromConfig(cfg, compiler.Options{Logger: logger.Slog()})
	if err != nil {
		return nil, cli.NewConfigError("compiler", err.Error())
	}
	return comp, nil
}

// compileWithVars compiles path, rendering with vars when any are given.
func compileWithVars(ctx context.Context, comp *compiler.Compiler, path string, vars map[string]string) (*compiler.Result, error) {
	if len(vars) == 0 {
		return comp.Compile(ctx, path)
	}
	tree, err := comp.Parse(path)
	if err != nil {
		return nil, err
	}
	return comp.Render(ctx, tree, vars)
}

// writeOutput writes css to path, or to stdout when path is empty.
func writeOutput(stdout io.Writer, path, css string) error {
	if path == "" {
		_, err := io.WriteString(stdout, css)
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(css), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

type segmentJSON struct {
	GenLine   int    `json:"gen_line"`
	GenColumn int    `json:"gen_column"`
	File      string `json:"file"`
	Index     int    `json:"index"`
	Text      string `json:"text"`
}

func writeSegments(path string, segments []ast.Segment) error {
	out := make([]segmentJSON, len(segments))
	for i, s := range segments {
		out[i] = segmentJSON{
			GenLine:   s.GenLine,
			GenColumn: s.GenColumn,
			File:      s.File,
			Index:     s.Index,
			Text:      s.Text,
		}
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
