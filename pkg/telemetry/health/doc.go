// Package health provides health check endpoints for the cascade compile
// service.
//
// # Endpoints
//
//   - /health: Liveness check, 200 while the process is running
//   - /ready: Readiness check, runs every registered component check and
//     returns 503 when any of them fails
//   - /version: Build information
//
// # Usage
//
//	checker := health.New(2 * time.Second)
//	checker.RegisterCheck("include_paths", health.IncludePathsCheck(cfg.Imports.IncludePaths))
//	checker.RegisterCheck("compiler", health.CompileCheck(func(ctx context.Context) error {
//	    _, err := comp.CompileBytes(ctx, doc, "ready.yaml")
//	    return err
//	}))
//
//	health.Register(mux, checker, health.NewVersionInfo(version, commit, buildTime))
//
// Component checks run concurrently, each bounded by the checker timeout.
package health
