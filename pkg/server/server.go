// Package server provides the HTTP surface of chordserve: routing, request
// validation, auth middleware wiring, metrics, and artifact streaming around
// the conversion core.
package server

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/chordserve/chordserve/pkg/auth"
	"github.com/chordserve/chordserve/pkg/converter"
)

// OpenPaths are the routes served without a credential: documentation,
// health check, and metrics.
var OpenPaths = []string{"/", "/health", "/metrics"}

// Server is the chordserve HTTP server.
type Server struct {
	config    *Config
	logger    *slog.Logger
	metrics   *Metrics
	processor *converter.Processor
	guard     *auth.Guard

	httpServer *http.Server
}

// New assembles a Server from configuration and the immutable access policy.
func New(cfg *Config, policy *auth.Policy, logger *slog.Logger) *Server {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}

	metrics := NewMetrics()
	processor := converter.NewProcessor(converter.Config{
		Binary:  cfg.RendererBinary,
		TempDir: cfg.TempDir,
		Timeout: cfg.RenderTimeout,
		Logger:  logger,
	})

	return &Server{
		config:    cfg,
		logger:    logger,
		metrics:   metrics,
		processor: processor,
		guard:     auth.NewGuard(policy, OpenPaths, logger),
	}
}

// Processor exposes the conversion processor, mainly for startup probes.
func (s *Server) Processor() *converter.Processor {
	return s.processor
}

// Handler builds the full middleware-wrapped route tree.
func (s *Server) Handler() http.Handler {
	handlers := NewHandlers(s.processor, s.logger, s.metrics)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", handlers.handleIndex)
	mux.HandleFunc("GET /health", handlers.handleHealth)
	mux.HandleFunc("POST /convert", handlers.handleConvert)
	mux.HandleFunc("GET /formats", handlers.handleFormats)
	mux.HandleFunc("GET /options", handlers.handleOptions)
	mux.Handle("GET /metrics", s.metrics.Handler())

	chained := Chain(mux,
		SecurityHeaders(),
		RequestID(),
		Recover(s.logger),
		AccessLog(s.logger, s.metrics),
		s.guard.Wrap,
	)

	return otelhttp.NewHandler(chained, "chordserve.http")
}

// Start binds the listener and serves until the context is canceled or the
// server fails.
func (s *Server) Start(ctx context.Context) error {
	s.httpServer = &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	listener, err := net.Listen("tcp", s.config.ListenAddr)
	if err != nil {
		return err
	}
	s.logger.Info("server listening", "addr", listener.Addr().String())

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	}
}

// Shutdown drains in-flight requests within the configured timeout.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}
