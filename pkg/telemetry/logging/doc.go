// Package logging provides structured logging for cascade.
//
// # Overview
//
// The logging package wraps Go's standard log/slog package to provide:
//   - JSON, text and console output
//   - Context fields (request id, render id, entry file) added to every
//     record logged with a context, including records logged by library
//     packages through Slog()
//   - A level that can be changed at runtime
//
// # Usage
//
//	logger, err := logging.New(logging.Config{
//	    Level:  "info",
//	    Format: "json",
//	})
//
//	ctx = logging.WithRenderID(ctx, id)
//	logger.InfoContext(ctx, "compiled", "duration", took)
//
//	// Library packages take a plain *slog.Logger
//	compiler.New(cfg, compiler.Options{Logger: logger.Slog()})
//
// Logs go to stderr by default so that CSS written to stdout stays clean.
package logging
