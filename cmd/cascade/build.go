package main

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"mercator-hq/cascade/pkg/cli"
	"mercator-hq/cascade/pkg/less/compiler"
)

var buildFlags struct {
	outDir   string
	jobs     int
	format   string
	compress bool
	minify   bool
	progress bool
}

var buildCmd = &cobra.Command{
	Use:   "build <file|dir>...",
	Short: "Compile many stylesheets in parallel",
	Long: `Compile stylesheet templates in parallel.

Directories are searched recursively for .yaml and .yml files. Files whose
name starts with an underscore are partials meant to be imported and are
skipped. Each output is written next to its source with a .css extension,
or under --out-dir keeping the relative layout.

All files share one import cache, so common imports are parsed once.

Examples:
  # Compile a directory into dist/
  cascade build styles/ --out-dir dist/

  # Limit parallelism and report as JSON for CI
  cascade build styles/ --jobs 2 --format json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runBuild,
}

func init() {
	rootCmd.AddCommand(buildCmd)

	buildCmd.Flags().StringVar(&buildFlags.outDir, "out-dir", "", "output directory (default next to each source)")
	buildCmd.Flags().IntVarP(&buildFlags.jobs, "jobs", "j", runtime.NumCPU(), "number of files compiled in parallel")
	buildCmd.Flags().StringVar(&buildFlags.format, "format", "text", "output format: text, json")
	buildCmd.Flags().BoolVar(&buildFlags.compress, "compress", false, "remove whitespace from the output")
	buildCmd.Flags().BoolVar(&buildFlags.minify, "minify", false, "minify the output with esbuild")
	buildCmd.Flags().BoolVar(&buildFlags.progress, "progress", true, "show a progress bar on stderr")
}

// buildResult is the outcome for one file.
type buildResult struct {
	File       string  `json:"file"`
	Output     string  `json:"output,omitempty"`
	Bytes      int     `json:"bytes"`
	DurationMS float64 `json:"duration_ms"`
	Error      string  `json:"error,omitempty"`
}

// buildSummary is the report of a build.
type buildSummary struct {
	Results   []buildResult `json:"results"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
}

func (s buildSummary) String() string {
	var sb strings.Builder
	for _, r := range s.Results {
		if r.Error != "" {
			fmt.Fprintf(&sb, "✗ %s\n%s\n", r.File, r.Error)
			continue
		}
		fmt.Fprintf(&sb, "✓ %s -> %s (%d bytes, %.1fms)\n", r.File, r.Output, r.Bytes, r.DurationMS)
	}
	fmt.Fprintf(&sb, "\n%d succeeded, %d failed", s.Succeeded, s.Failed)
	return sb.String()
}

func runBuild(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseOutputFormat(buildFlags.format)
	if err != nil {
		return err
	}
	if buildFlags.jobs < 1 {
		return cli.NewConfigError("jobs", "must be at least 1")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if buildFlags.compress {
		cfg.Compiler.Compress = true
	}
	if buildFlags.minify {
		cfg.Compiler.Minify = true
	}
	comp, err := newCompiler(cfg)
	if err != nil {
		return err
	}

	files, err := collectSources(args)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return cli.NewConfigError("args", "no stylesheet files found")
	}

	ctx, stop := cli.SetupSignalHandler()
	defer stop()

	var progress cli.ProgressReporter
	if buildFlags.progress && format == cli.FormatText && len(files) > 1 {
		progress = cli.NewProgressReporter(cmd.ErrOrStderr())
		progress.Start(int64(len(files)))
	}

	summary := buildAll(ctx, comp, files, buildFlags.outDir, buildFlags.jobs, progress)
	if progress != nil {
		progress.Finish()
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), summary); err != nil {
		return err
	}
	if summary.Failed > 0 {
		return cli.NewCommandError("build", fmt.Errorf("%d of %d files failed", summary.Failed, len(files)))
	}
	return nil
}

// buildAll compiles files with at most jobs renders in flight. A failing
// file does not stop the others.
func buildAll(ctx context.Context, comp *compiler.Compiler, files []source, outDir string, jobs int, progress cli.ProgressReporter) buildSummary {
	results := make([]buildResult, len(files))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for i, src := range files {
		g.Go(func() error {
			results[i] = buildOne(ctx, comp, src, outDir)
			if progress != nil {
				progress.Increment()
			}
			return nil
		})
	}
	_ = g.Wait()

	summary := buildSummary{Results: results}
	for _, r := range results {
		if r.Error != "" {
			summary.Failed++
		} else {
			summary.Succeeded++
		}
	}
	return summary
}

func buildOne(ctx context.Context, comp *compiler.Compiler, src source, outDir string) buildResult {
	start := time.Now()
	result := buildResult{File: src.path}

	res, err := comp.Compile(ctx, src.path)
	if err == nil {
		result.Output = outputPath(src, outDir)
		err = writeOutput(nil, result.Output, res.CSS)
		result.Bytes = len(res.CSS)
	}
	if err != nil {
		result.Output = ""
		result.Error = err.Error()
	}
	result.DurationMS = float64(time.Since(start).Microseconds()) / 1000
	return result
}

// source is a file to build. rel is its path relative to the argument it
// was found under, used to lay out --out-dir.
type source struct {
	path string
	rel  string
}

func outputPath(src source, outDir string) string {
	if outDir == "" {
		return strings.TrimSuffix(src.path, filepath.Ext(src.path)) + ".css"
	}
	rel := strings.TrimSuffix(src.rel, filepath.Ext(src.rel)) + ".css"
	return filepath.Join(outDir, rel)
}

// collectSources expands directory arguments into the stylesheet files
// they contain, sorted.
func collectSources(args []string) ([]source, error) {
	var files []source
	seen := make(map[string]bool)
	add := func(path, rel string) {
		if !seen[path] {
			seen[path] = true
			files = append(files, source{path: path, rel: rel})
		}
	}

	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, cli.NewConfigError("args", err.Error())
		}
		if !info.IsDir() {
			add(arg, filepath.Base(arg))
			continue
		}
		err = filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			name := d.Name()
			if d.IsDir() {
				if path != arg && strings.HasPrefix(name, ".") {
					return filepath.SkipDir
				}
				return nil
			}
			if strings.HasPrefix(name, "_") || strings.HasPrefix(name, ".") {
				return nil
			}
			switch strings.ToLower(filepath.Ext(name)) {
			case ".yaml", ".yml":
				rel, err := filepath.Rel(arg, path)
				if err != nil {
					return err
				}
				add(path, rel)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list %s: %w", arg, err)
		}
	}

	sort.Slice(files, func(i, j int) bool { return files[i].path < files[j].path })
	return files, nil
}
