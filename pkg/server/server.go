package server

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"sync"

	"mercator-hq/ganymede/pkg/config"
	"mercator-hq/ganymede/pkg/gateway"
	"mercator-hq/ganymede/pkg/telemetry/health"
	"mercator-hq/ganymede/pkg/telemetry/metrics"
)

// Options configures a Server. Config is required; the rest is optional.
type Options struct {
	// Config supplies the listen address, timeouts, TLS settings, and the
	// paths the endpoints mount at.
	Config *config.Config

	// Gateway serves the WebSocket endpoint. Nil leaves it unmounted.
	Gateway *gateway.Gateway

	// Checker backs /healthz and /readyz. Nil gets a checker with no
	// registered checks, which always reports ready.
	Checker *health.Checker

	// Metrics backs the scrape endpoint when metrics are enabled.
	Metrics *metrics.Collector

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Server is the gateway's HTTP front door. It mounts the WebSocket
// endpoint, the health probes, and the metrics scrape path, and owns
// the listener lifecycle including graceful drain.
type Server struct {
	cfg     *config.Config
	gateway *gateway.Gateway
	checker *health.Checker
	metrics *metrics.Collector
	logger  *slog.Logger

	httpServer *http.Server

	mu       sync.Mutex
	addr     net.Addr
	running  bool
	stopOnce sync.Once
}

// New creates a Server from opts.
func New(opts Options) *Server {
	checker := opts.Checker
	if checker == nil {
		checker = health.New(0)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default().With("component", "server")
	}
	return &Server{
		cfg:     opts.Config,
		gateway: opts.Gateway,
		checker: checker,
		metrics: opts.Metrics,
		logger:  logger,
	}
}

// Handler returns the full route tree with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	if s.gateway != nil {
		mux.Handle(s.cfg.Gateway.Path, s.gateway)
	}

	mux.HandleFunc("/healthz", s.checker.LivenessHandler())
	mux.HandleFunc("/readyz", s.checker.ReadinessHandler())

	if s.cfg.Telemetry.Metrics.Enabled {
		mux.Handle(s.cfg.Telemetry.Metrics.Path, s.metrics.Handler())
	}

	var handler http.Handler = mux
	handler = accessLog(s.logger, handler)
	handler = recoverPanics(s.logger, handler)
	return handler
}

// Start binds the listener, launches the gateway loops, and serves until
// ctx is cancelled or the listener fails. On cancellation it drains
// gracefully and returns nil.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("server already running")
	}
	s.running = true
	s.mu.Unlock()

	srv := &http.Server{
		Addr:           s.cfg.Server.ListenAddress,
		Handler:        s.Handler(),
		ReadTimeout:    s.cfg.Server.ReadTimeout,
		WriteTimeout:   s.cfg.Server.WriteTimeout,
		IdleTimeout:    s.cfg.Server.IdleTimeout,
		MaxHeaderBytes: s.cfg.Server.MaxHeaderBytes,
	}

	if s.cfg.Server.TLS.Enabled {
		tlsConfig, err := s.tlsConfig()
		if err != nil {
			return fmt.Errorf("failed to configure TLS: %w", err)
		}
		srv.TLSConfig = tlsConfig
	}

	ln, err := net.Listen("tcp", s.cfg.Server.ListenAddress)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Server.ListenAddress, err)
	}

	s.mu.Lock()
	s.httpServer = srv
	s.addr = ln.Addr()
	s.mu.Unlock()

	if s.gateway != nil {
		s.gateway.Start()
	}

	s.logger.Info("server listening",
		"address", ln.Addr().String(),
		"ws_path", s.cfg.Gateway.Path,
		"tls", s.cfg.Server.TLS.Enabled,
	)

	errChan := make(chan error, 1)
	go func() {
		var serveErr error
		if s.cfg.Server.TLS.Enabled {
			serveErr = srv.ServeTLS(ln, s.cfg.Server.TLS.CertFile, s.cfg.Server.TLS.KeyFile)
		} else {
			serveErr = srv.Serve(ln)
		}
		if serveErr != nil && serveErr != http.ErrServerClosed {
			errChan <- serveErr
		}
		close(errChan)
	}()

	select {
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	case serveErr, ok := <-errChan:
		if ok && serveErr != nil {
			return fmt.Errorf("server error: %w", serveErr)
		}
		return nil
	}
}

// Shutdown drains the gateway first, so WebSocket sessions receive a
// 1001 close frame instead of a dropped TCP connection, then shuts the
// HTTP listener down. Both phases share the configured shutdown timeout.
// Safe to call more than once.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.stopOnce.Do(func() {
		s.logger.Info("shutting down", "timeout", s.cfg.Server.ShutdownTimeout.String())

		shutdownCtx, cancel := context.WithTimeout(ctx, s.cfg.Server.ShutdownTimeout)
		defer cancel()

		// Hijacked WebSocket connections are invisible to
		// http.Server.Shutdown, so the gateway must drain first.
		if s.gateway != nil {
			if err := s.gateway.Shutdown(shutdownCtx); err != nil {
				s.logger.Error("gateway drain incomplete", "error", err)
				shutdownErr = fmt.Errorf("gateway drain: %w", err)
			}
		}

		s.mu.Lock()
		srv := s.httpServer
		s.running = false
		s.mu.Unlock()

		if srv != nil {
			if err := srv.Shutdown(shutdownCtx); err != nil {
				s.logger.Error("listener shutdown incomplete", "error", err)
				if shutdownErr == nil {
					shutdownErr = fmt.Errorf("server shutdown: %w", err)
				}
			}
		}

		s.logger.Info("server stopped")
	})
	return shutdownErr
}

// Addr returns the bound listener address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// tlsConfig builds the TLS settings. Certificates load lazily in
// ServeTLS; this only verifies the files exist so misconfiguration
// surfaces at startup instead of on the first handshake.
func (s *Server) tlsConfig() (*tls.Config, error) {
	certFile := s.cfg.Server.TLS.CertFile
	keyFile := s.cfg.Server.TLS.KeyFile

	if certFile == "" {
		return nil, fmt.Errorf("TLS cert file not specified")
	}
	if keyFile == "" {
		return nil, fmt.Errorf("TLS key file not specified")
	}
	if _, err := os.Stat(certFile); err != nil {
		return nil, fmt.Errorf("TLS cert file not readable: %w", err)
	}
	if _, err := os.Stat(keyFile); err != nil {
		return nil, fmt.Errorf("TLS key file not readable: %w", err)
	}

	return &tls.Config{
		MinVersion: tls.VersionTLS12,
	}, nil
}
