package compiler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/google/uuid"

	"mercator-hq/cascade/pkg/config"
	"mercator-hq/cascade/pkg/less/ast"
	lesserrors "mercator-hq/cascade/pkg/less/errors"
	"mercator-hq/cascade/pkg/less/eval"
	"mercator-hq/cascade/pkg/less/functions"
	"mercator-hq/cascade/pkg/less/imports"
	"mercator-hq/cascade/pkg/less/parser"
	"mercator-hq/cascade/pkg/less/visitors"
	"mercator-hq/cascade/pkg/telemetry/logging"
	"mercator-hq/cascade/pkg/telemetry/metrics"
	"mercator-hq/cascade/pkg/telemetry/tracing"
)

// Pseudo file names used in positions of configured variables.
const (
	globalVarsFile = "<global-vars>"
	modifyVarsFile = "<modify-vars>"
)

// Options are the collaborators of a Compiler. Every field is optional.
type Options struct {
	// Importer resolves @import rules. A FileManager with the default
	// configuration is created when nil.
	Importer eval.Importer

	// Functions is the function registry. Builtins are used when nil.
	Functions *functions.Registry

	// Logger receives compile diagnostics. slog.Default() is used when nil.
	Logger *slog.Logger

	// Metrics records compile metrics. Nothing is recorded when nil.
	Metrics *metrics.Collector

	// Tracer creates a span per render and per render phase. Nothing is
	// traced when nil.
	Tracer *tracing.Tracer
}

// Result is the output of one render.
type Result struct {
	// CSS is the generated stylesheet
	CSS string

	// Imports lists the resolved paths of the imported files, sorted
	Imports []string

	// RenderID identifies the render in logs
	RenderID string

	// Segments maps output chunks to source positions when source maps are
	// enabled
	Segments []ast.Segment

	// Stats counts the evaluator work
	Stats eval.Stats

	// Duration is the wall time of the render
	Duration time.Duration
}

// preloader is implemented by importers that can read imports ahead of
// evaluation.
type preloader interface {
	Preload(ctx context.Context, root *ast.Ruleset) error
}

// sourceLoader is implemented by importers that can return raw file text,
// used to print code frames for errors in imported files.
type sourceLoader interface {
	LoadSync(path, baseDir string) (*imports.LoadedFile, error)
}

// cacheReporter is implemented by importers that cache parsed documents.
type cacheReporter interface {
	Stats() imports.Stats
}

// Compiler turns stylesheet templates into CSS. A Compiler is safe for
// concurrent use: each render gets its own evaluator, and templates are
// never modified, so one parsed tree can be rendered by many goroutines.
type Compiler struct {
	config   *Config
	importer eval.Importer
	registry *functions.Registry
	logger   *slog.Logger
	metrics  *metrics.Collector
	tracer   *tracing.Tracer
	parser   *parser.Parser
}

// New creates a compiler.
func New(cfg *Config, opts Options) (*Compiler, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	// Configured variables are checked once up front so a typo fails at
	// startup rather than on the first render.
	if _, err := parseVariables(cfg.GlobalVars, globalVarsFile); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if _, err := parseVariables(cfg.ModifyVars, modifyVarsFile); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	importer := opts.Importer
	if importer == nil {
		fm, err := imports.NewFileManager(NewImportConfig(config.ImportsConfig{}, opts.Metrics), logger)
		if err != nil {
			return nil, err
		}
		importer = fm
	}

	registry := opts.Functions
	if registry == nil {
		registry = functions.NewBuiltinRegistry()
	}

	contextLines := cfg.ContextLines
	return &Compiler{
		config:   cfg,
		importer: importer,
		registry: registry,
		logger:   logger.With("component", "compiler"),
		metrics:  opts.Metrics,
		tracer:   opts.Tracer,
		parser:   parser.NewParser().WithContextLines(contextLines),
	}, nil
}

// NewFromConfig creates a compiler and its import loader from the
// application configuration. opts.Importer is replaced by a FileManager
// built from cfg.Imports.
func NewFromConfig(cfg *config.Config, opts Options) (*Compiler, error) {
	compilerCfg, err := FromConfig(cfg.Compiler)
	if err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	fm, err := imports.NewFileManager(NewImportConfig(cfg.Imports, opts.Metrics), logger)
	if err != nil {
		return nil, err
	}
	opts.Importer = fm
	return New(compilerCfg, opts)
}

// NewImportConfig converts the imports configuration and reports every load
// to collector.
func NewImportConfig(cfg config.ImportsConfig, collector *metrics.Collector) *imports.Config {
	ic := imports.FromConfig(cfg)
	if collector != nil {
		ic.OnLoad = func(_ string, cached bool, took time.Duration) {
			collector.RecordImport(cached, took)
		}
		ic.OnError = func(_ string, reason string) {
			collector.RecordImportError(reason)
		}
		ic.OnEvict = func(string) {
			collector.RecordCacheEviction(metrics.ImportCacheName)
		}
	}
	return ic
}

// Config returns the compiler configuration.
func (c *Compiler) Config() *Config {
	return c.config
}

// Importer returns the importer used to resolve @import rules.
func (c *Compiler) Importer() eval.Importer {
	return c.importer
}

// Parse loads a template from disk. The result can be rendered any number
// of times, concurrently, with Render.
func (c *Compiler) Parse(path string) (*ast.Ruleset, error) {
	return c.parser.Parse(path)
}

// ParseBytes loads a template held in memory.
func (c *Compiler) ParseBytes(src []byte, filename string) (*ast.Ruleset, error) {
	return c.parser.ParseBytes(src, filename)
}

// Compile parses and renders the file at path.
func (c *Compiler) Compile(ctx context.Context, path string) (*Result, error) {
	start := time.Now()
	tree, err := c.parser.Parse(path)
	if err != nil {
		c.record(path, start, nil, err)
		return nil, err
	}
	return c.render(ctx, tree, nil, start)
}

// CompileBytes parses and renders an in-memory document. filename is used in
// positions and as the base for relative imports.
func (c *Compiler) CompileBytes(ctx context.Context, src []byte, filename string) (*Result, error) {
	start := time.Now()
	tree, err := c.parser.ParseBytes(src, filename)
	if err != nil {
		c.record(filename, start, nil, err)
		return nil, err
	}
	return c.render(ctx, tree, nil, start)
}

// Render evaluates a parsed template. vars are modify variables applied on
// top of the configured ones; the template itself is left untouched.
func (c *Compiler) Render(ctx context.Context, tree *ast.Ruleset, vars map[string]string) (*Result, error) {
	return c.render(ctx, tree, vars, time.Now())
}

func (c *Compiler) render(ctx context.Context, tree *ast.Ruleset, vars map[string]string, start time.Time) (*Result, error) {
	if tree == nil {
		err := lesserrors.Wrap(lesserrors.ErrorTypeRuntime, lesserrors.ErrNoRoot, lesserrors.ErrNoRoot.Error())
		c.record("", start, nil, err)
		return nil, err
	}
	entry := tree.Filename()

	renderID := uuid.NewString()
	ctx = logging.WithRenderID(ctx, renderID)
	ctx = logging.WithFile(ctx, entry)
	logger := c.logger.With("render_id", renderID)

	ctx, span := c.tracer.Start(ctx, "cascade.render")
	defer span.End()
	tracing.SetRenderAttributes(span, renderID, entry)

	if c.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.Timeout)
		defer cancel()
	}

	result, err := c.run(ctx, tree, vars, logger)
	if err != nil {
		err = c.annotate(ctx, entry, tree, err)
		c.record(entry, start, nil, err)
		tracing.SetStatus(span, err)
		logger.DebugContext(ctx, "render failed", "error", err)
		return nil, err
	}

	result.RenderID = renderID
	result.Duration = time.Since(start)
	c.record(entry, start, result, nil)
	tracing.SetResultAttributes(span, len(result.CSS), len(result.Imports), result.Stats.MixinCalls, result.Stats.FunctionCalls)
	tracing.SetStatus(span, nil)
	logger.InfoContext(ctx, "rendered stylesheet",
		"bytes", len(result.CSS),
		"imports", len(result.Imports),
		"duration", result.Duration,
	)
	return result, nil
}

func (c *Compiler) run(ctx context.Context, tree *ast.Ruleset, vars map[string]string, logger *slog.Logger) (*Result, error) {
	global, err := parseVariables(c.config.GlobalVars, globalVarsFile)
	if err != nil {
		return nil, err
	}
	modify, err := parseVariables(mergeVars(c.config.ModifyVars, vars), modifyVarsFile)
	if err != nil {
		return nil, err
	}

	if p, ok := c.importer.(preloader); ok {
		err := c.phase(ctx, tracing.PhasePreload, func(ctx context.Context) error {
			return p.Preload(ctx, tree)
		})
		if err != nil {
			return nil, err
		}
	}

	ev := eval.New(eval.Options{
		Math:          c.config.Math,
		StrictUnits:   c.config.StrictUnits,
		Compress:      c.config.Compress,
		MaxMixinDepth: c.config.MaxMixinDepth,
		Functions:     c.registry,
		Importer:      c.importer,
		Logger:        logger,
	})
	var evaluated *ast.Ruleset
	err = c.phase(ctx, tracing.PhaseEval, func(ctx context.Context) error {
		var err error
		evaluated, err = ev.Eval(ctx, eval.WithVariables(tree, global, modify))
		return err
	})
	if err != nil {
		return nil, err
	}

	genCtx := &ast.GenContext{
		Compress:     c.config.Compress,
		StrictUnits:  c.config.StrictUnits,
		NumPrecision: c.config.NumPrecision,
	}
	var out *ast.Ruleset
	err = c.phase(ctx, tracing.PhaseVisitors, func(context.Context) error {
		var err error
		out, err = visitors.Run(evaluated, genCtx, visitors.Options{
			NextExtendID: ev.NextExtendID,
			Logger:       logger,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	result := &Result{Imports: ev.Imports(), Stats: ev.Stats()}
	err = c.phase(ctx, tracing.PhaseEmit, func(context.Context) error {
		if c.config.SourceMap {
			var buf ast.MappingBuffer
			out.GenCSS(genCtx, &buf)
			if err := genCtx.Err(); err != nil {
				return err
			}
			result.CSS = buf.String()
			result.Segments = buf.Segments
			return nil
		}
		css, err := ast.ToCSS(out, genCtx)
		if err != nil {
			return err
		}
		result.CSS = css
		return nil
	})
	if err != nil {
		return nil, err
	}

	if c.config.Minify {
		err = c.phase(ctx, tracing.PhaseMinify, func(context.Context) error {
			css, err := minify(result.CSS, logger)
			if err != nil {
				return err
			}
			result.CSS = css
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return result, nil
}

// phase runs fn inside a child span of the render span.
func (c *Compiler) phase(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	ctx, span := c.tracer.Start(ctx, name)
	err := fn(ctx)
	tracing.End(span, err)
	return err
}

// annotate attaches a code frame to positioned errors and converts deadline
// errors into a TimeoutError.
func (c *Compiler) annotate(ctx context.Context, entry string, tree *ast.Ruleset, err error) error {
	if c.config.Timeout > 0 && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &TimeoutError{File: entry, Timeout: c.config.Timeout, Cause: err}
	}

	var ce *lesserrors.Error
	if !lesserrors.As(err, &ce) || ce.Context != "" || !ce.HasPosition() {
		return err
	}
	var src []byte
	if ce.Location.File == entry && tree.File != nil {
		src = tree.File.Source
	} else if loader, ok := c.importer.(sourceLoader); ok {
		if file, loadErr := loader.LoadSync(ce.Location.File, ""); loadErr == nil {
			src = file.Contents
		}
	}
	if src != nil {
		lesserrors.WithContext(ce, src, c.config.ContextLines)
	}
	return err
}

func (c *Compiler) record(entry string, start time.Time, result *Result, err error) {
	if c.metrics == nil {
		return
	}
	if entry == "" {
		entry = "unknown"
	}
	status := metrics.StatusSuccess
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status = metrics.StatusCanceled
	case err != nil:
		status = metrics.StatusError
	}

	size := 0
	if result != nil {
		size = len(result.CSS)
		c.metrics.RecordEvalStats(result.Stats.MixinCalls, result.Stats.FunctionCalls, result.Stats.Imports)
	}
	if cr, ok := c.importer.(cacheReporter); ok {
		c.metrics.UpdateCacheSize(metrics.ImportCacheName, cr.Stats().Size)
	}
	c.metrics.RecordCompile(entry, status, time.Since(start), size)
}

// minify runs css through the esbuild CSS minifier.
func minify(css string, logger *slog.Logger) (string, error) {
	res := api.Transform(css, api.TransformOptions{
		Loader:           api.LoaderCSS,
		MinifyWhitespace: true,
		MinifySyntax:     true,
	})
	for _, w := range res.Warnings {
		logger.Debug("minifier warning", "message", w.Text)
	}
	if len(res.Errors) > 0 {
		return "", fmt.Errorf("%w: %s", ErrMinify, res.Errors[0].Text)
	}
	return string(res.Code), nil
}
