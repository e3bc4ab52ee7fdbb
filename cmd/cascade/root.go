package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"mercator-hq/cascade/pkg/cli"
	"mercator-hq/cascade/pkg/config"
	"mercator-hq/cascade/pkg/telemetry/logging"
)

var (
	// Global flags
	cfgFile   string
	logLevel  string
	logFormat string
)

var rootCmd = &cobra.Command{
	Use:   "cascade",
	Short: "Cascade - stylesheet template compiler",
	Long: `Cascade compiles stylesheet templates written as YAML trees into CSS.

The stylesheet language extends CSS with:
  - Variables, including lazy evaluation and variable interpolation
  - Nested rulesets and parent selector references
  - Mixins with parameters, pattern matching and guards
  - Arithmetic on numbers, units and colors
  - :extend, imports and detached rulesets
  - A library of color, math, string and list functions`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	err := rootCmd.Execute()
	if err != nil {
		var mismatch *cli.MismatchError
		if !errors.As(err, &mismatch) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
	}
	return cli.ExitCode(err)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (defaults apply when empty)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "override log format (text, json, console)")
}

// loadConfig loads the configuration file and returns a copy with the
// global flag overrides applied. Commands may change the copy freely.
func loadConfig() (*config.Config, error) {
	if err := config.Initialize(cfgFile); err != nil {
		return nil, cli.NewConfigError("config", err.Error())
	}
	cfg := *config.MustGetConfig()
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if logFormat != "" {
		cfg.Logging.Format = logFormat
	}
	return &cfg, nil
}

// newLogger creates the process logger. Logs go to stderr.
func newLogger(cfg *config.Config) (*logging.Logger, error) {
	logger, err := logging.New(logging.FromConfig(cfg.Logging))
	if err != nil {
		return nil, cli.NewConfigError("logging", err.Error())
	}
	return logger, nil
}

// parseVarFlags parses repeated --var name=value flags.
func parseVarFlags(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	vars := make(map[string]string, len(pairs))
	for _, p := range pairs {
		name, value, ok := strings.Cut(p, "=")
		name = strings.TrimPrefix(strings.TrimSpace(name), "@")
		if !ok || name == "" {
			return nil, cli.NewConfigError("var", fmt.Sprintf("malformed variable %q, want name=value", p))
		}
		vars[name] = value
	}
	return vars, nil
}
