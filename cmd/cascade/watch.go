package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/cascade/pkg/cli"
	"mercator-hq/cascade/pkg/watch"
)

var watchFlags struct {
	output   string
	vars     []string
	debounce time.Duration
}

var watchCmd = &cobra.Command{
	Use:   "watch <file>",
	Short: "Recompile a stylesheet when it or its imports change",
	Long: `Compile a stylesheet and compile it again whenever the file or any file it
imports changes. The set of watched files follows the imports of the latest
successful compile.

Examples:
  # Rebuild site.css on every change
  cascade watch site.yaml -o site.css

  # Print each rebuild to stdout
  cascade watch site.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().StringVarP(&watchFlags.output, "output", "o", "", "output file (default stdout)")
	watchCmd.Flags().StringArrayVar(&watchFlags.vars, "var", nil, "override a variable, as name=value (repeatable)")
	watchCmd.Flags().DurationVar(&watchFlags.debounce, "debounce", 0, "override the debounce interval")
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	vars, err := parseVarFlags(watchFlags.vars)
	if err != nil {
		return err
	}
	if len(vars) > 0 {
		merged := make(map[string]string, len(cfg.Compiler.ModifyVars)+len(vars))
		for k, v := range cfg.Compiler.ModifyVars {
			merged[k] = v
		}
		for k, v := range vars {
			merged[k] = v
		}
		cfg.Compiler.ModifyVars = merged
	}
	if watchFlags.debounce > 0 {
		cfg.Watch.Debounce = watchFlags.debounce
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	comp, err := newCompiler(cfg)
	if err != nil {
		return err
	}
	w, err := watch.New(watch.FromConfig(cfg.Watch), logger.Slog())
	if err != nil {
		return cli.NewCommandError("watch", err)
	}
	defer func() { _ = w.Stop() }()

	ctx, stop := cli.SetupSignalHandler()
	defer stop()

	report := cmd.ErrOrStderr()
	stdout := cmd.OutOrStdout()
	r := watch.NewRebuilder(comp, w, args[0], func(ev watch.Event) {
		if cfg.Watch.ClearScreen {
			fmt.Fprint(report, "\033[H\033[2J")
		}
		if ev.Err == nil {
			ev.Err = writeOutput(stdout, watchFlags.output, ev.Result.CSS)
		}
		printWatchEvent(report, ev, watchFlags.output)
	}, logger.Slog())

	fmt.Fprintf(report, "Watching %s (Ctrl+C to stop)\n", args[0])
	if err := r.Run(ctx); err != nil {
		return cli.NewCommandError("watch", err)
	}
	return nil
}

func printWatchEvent(w io.Writer, ev watch.Event, output string) {
	stamp := time.Now().Format("15:04:05")
	if ev.Err != nil {
		fmt.Fprintf(w, "[%s] ✗ build %d failed\n%v\n", stamp, ev.Build, ev.Err)
		return
	}
	target := output
	if target == "" {
		target = "stdout"
	}
	fmt.Fprintf(w, "[%s] ✓ build %d -> %s (%d bytes, %s)", stamp, ev.Build, target, len(ev.Result.CSS), ev.Duration.Round(time.Microsecond))
	if len(ev.Changed) > 0 {
		fmt.Fprintf(w, " changed: %v", ev.Changed)
	}
	fmt.Fprintln(w)
}
