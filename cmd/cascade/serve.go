package main

import (
	"context"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"mercator-hq/cascade/pkg/cli"
	"mercator-hq/cascade/pkg/config"
	"mercator-hq/cascade/pkg/less/compiler"
	"mercator-hq/cascade/pkg/server"
	"mercator-hq/cascade/pkg/telemetry/health"
	"mercator-hq/cascade/pkg/telemetry/logging"
	"mercator-hq/cascade/pkg/telemetry/metrics"
	"mercator-hq/cascade/pkg/telemetry/tracing"
)

var serveFlags struct {
	listenAddress string
	dryRun        bool
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP compile service",
	Long: `Start the HTTP compile service.

The service renders YAML tree documents posted to /compile and exposes
/health, /ready, /version and Prometheus metrics. SIGHUP reloads the
configuration file; the new log level applies immediately, other settings
on restart.

Examples:
  # Start with the defaults
  cascade serve

  # Start with a config file and override the listen address
  cascade serve --config cascade.yaml --listen 0.0.0.0:8080

  # Validate the configuration without starting
  cascade serve --dry-run`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVarP(&serveFlags.listenAddress, "listen", "l", "", "override listen address")
	serveCmd.Flags().BoolVar(&serveFlags.dryRun, "dry-run", false, "validate config without starting the server")
}

// readyDoc is rendered by the readiness check.
const readyDoc = "rules:\n  - ruleset: .ready\n    rules:\n      - decl: width\n        value: 1px\n"

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serveFlags.listenAddress != "" {
		cfg.Server.ListenAddress = serveFlags.listenAddress
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}

	var collector *metrics.Collector
	if cfg.Metrics.Enabled {
		collector = metrics.NewCollector(&cfg.Metrics, prometheus.NewRegistry())
	}
	tracer, err := tracing.New(&cfg.Tracing, Version)
	if err != nil {
		return cli.NewConfigError("tracing", err.Error())
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Tracing.Timeout)
		defer cancel()
		if err := tracer.Shutdown(ctx); err != nil {
			logger.Slog().Warn("failed to flush traces", "error", err)
		}
	}()

	comp, err := compiler.NewFromConfig(cfg, compiler.Options{
		Logger:  logger.Slog(),
		Metrics: collector,
		Tracer:  tracer,
	})
	if err != nil {
		return cli.NewConfigError("compiler", err.Error())
	}

	checker := health.New(health.DefaultCheckTimeout)
	checker.RegisterCheck("include_paths", health.IncludePathsCheck(cfg.Imports.IncludePaths))
	checker.RegisterCheck("compile", health.CompileCheck(func(ctx context.Context) error {
		_, err := comp.CompileBytes(ctx, []byte(readyDoc), "ready.yaml")
		return err
	}))

	srv, err := server.New(&cfg.Server, server.Options{
		Compiler:    comp,
		Checker:     checker,
		Metrics:     collector,
		MetricsPath: cfg.Metrics.Path,
		Tracer:      tracer,
		Version:     versionInfo(),
		Logger:      logger.Slog(),
	})
	if err != nil {
		return cli.NewConfigError("server", err.Error())
	}

	if serveFlags.dryRun {
		fmt.Fprintln(cmd.OutOrStdout(), "✓ Configuration valid")
		return nil
	}

	ctx, stop := cli.SetupSignalHandler()
	defer stop()

	reload, stopReload := cli.NotifyReload()
	defer stopReload()
	go watchReload(ctx, reload, logger)

	fmt.Fprintf(cmd.ErrOrStderr(), "Cascade v%s listening on %s\n", Version, cfg.Server.ListenAddress)
	if err := srv.Start(ctx); err != nil {
		return cli.NewCommandError("serve", err)
	}
	return nil
}

// watchReload reloads the configuration on every signal from reload until
// ctx is done.
func watchReload(ctx context.Context, reload <-chan os.Signal, logger *logging.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-reload:
			if err := config.ReloadConfig(cfgFile); err != nil {
				logger.Error("configuration reload failed", "error", err)
				continue
			}
			level := config.MustGetConfig().Logging.Level
			if logLevel != "" {
				level = logLevel
			}
			if err := logger.SetLevel(level); err != nil {
				logger.Error("invalid log level after reload", "error", err)
				continue
			}
			logger.Info("configuration reloaded", "log_level", level)
		}
	}
}
