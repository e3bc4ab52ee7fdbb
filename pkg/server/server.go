package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"mercator-hq/cascade/pkg/config"
	"mercator-hq/cascade/pkg/less/compiler"
	"mercator-hq/cascade/pkg/telemetry/health"
	"mercator-hq/cascade/pkg/telemetry/metrics"
	"mercator-hq/cascade/pkg/telemetry/tracing"
)

// Options are the collaborators of a Server.
type Options struct {
	// Compiler renders request bodies. Required.
	Compiler *compiler.Compiler

	// Checker serves /health and /ready. A checker without component
	// checks is created when nil.
	Checker *health.Checker

	// Metrics records request metrics and serves MetricsPath. Nothing is
	// recorded when nil.
	Metrics *metrics.Collector

	// MetricsPath is where metrics are served. Default: "/metrics".
	MetricsPath string

	// Tracer wraps compile requests in server spans. Nothing is traced
	// when nil.
	Tracer *tracing.Tracer

	// Version is reported by /version.
	Version health.VersionInfo

	// Logger receives request logs. slog.Default() is used when nil.
	Logger *slog.Logger
}

// Server is the HTTP compile service.
type Server struct {
	config     *config.ServerConfig
	opts       Options
	logger     *slog.Logger
	httpServer *http.Server

	shutdownOnce sync.Once
	mu           sync.RWMutex
	isRunning    bool
	addr         net.Addr
}

// New creates a server.
func New(cfg *config.ServerConfig, opts Options) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("server config is required")
	}
	if opts.Compiler == nil {
		return nil, errors.New("compiler is required")
	}
	if opts.Checker == nil {
		opts.Checker = health.New(health.DefaultCheckTimeout)
	}
	if opts.MetricsPath == "" {
		opts.MetricsPath = "/metrics"
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		config: cfg,
		opts:   opts,
		logger: logger.With("component", "server"),
	}, nil
}

// Start listens on the configured address and serves until ctx is canceled,
// then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}

	ln, err := net.Listen("tcp", s.config.ListenAddress)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to listen on %s: %w", s.config.ListenAddress, err)
	}
	s.httpServer = &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}
	s.addr = ln.Addr()
	s.isRunning = true
	s.mu.Unlock()

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("starting compile server", "address", ln.Addr().String())
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("context canceled, initiating shutdown")
		return s.Shutdown(context.Background())
	case err := <-errChan:
		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()
		return err
	}
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.mu.Lock()
		if !s.isRunning {
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()

		s.logger.Info("initiating graceful shutdown", "timeout", s.config.ShutdownTimeout.String())

		shutdownCtx := ctx
		if s.config.ShutdownTimeout > 0 {
			var cancel context.CancelFunc
			shutdownCtx, cancel = context.WithTimeout(ctx, s.config.ShutdownTimeout)
			defer cancel()
		}

		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("error during server shutdown", "error", err)
			shutdownErr = fmt.Errorf("server shutdown error: %w", err)
		}

		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()

		s.logger.Info("compile server stopped")
	})

	return shutdownErr
}

// Handler returns the routes wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.Handle("/compile", s.instrument("compile", s.compileHandler()))
	health.Register(mux, s.opts.Checker, s.opts.Version)
	if s.opts.Metrics != nil {
		mux.Handle(s.opts.MetricsPath, s.opts.Metrics.Handler())
	}

	var handler http.Handler = mux
	handler = LoggingMiddleware(s.logger)(handler)
	handler = RequestIDMiddleware(handler)
	// Recovery is outermost so panics in the other middleware are caught.
	handler = RecoveryMiddleware(s.logger)(handler)
	return handler
}

// instrument records request metrics and traces for one route.
func (s *Server) instrument(name string, next http.Handler) http.Handler {
	if s.opts.Tracer.Enabled() {
		next = TracingMiddleware(s.opts.Tracer, "/"+name)(next)
	}
	if s.opts.Metrics == nil {
		return next
	}
	return MetricsMiddleware(s.opts.Metrics, name)(next)
}

// IsRunning returns true if the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Addr returns the address the server listens on, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.addr
}
