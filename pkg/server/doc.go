// Package server is the HTTP front door for the gateway.
//
// It mounts four things on one listener: the WebSocket endpoint at the
// configured gateway path, the liveness probe at /healthz, the
// readiness probe at /readyz, and the Prometheus scrape handler at the
// configured metrics path when metrics are enabled.
//
// # Usage
//
//	srv := server.New(server.Options{
//	    Config:  cfg,
//	    Gateway: gw,
//	    Checker: checker,
//	    Metrics: collector,
//	    Logger:  logger,
//	})
//	if err := srv.Start(ctx); err != nil {
//	    logger.Error("server failed", "error", err)
//	}
//
// Start blocks until ctx is cancelled or the listener fails. Wire ctx
// to signal.NotifyContext so SIGINT and SIGTERM drain gracefully.
//
// # Shutdown order
//
// WebSocket connections are hijacked from the HTTP server, so
// http.Server.Shutdown never waits for them. Shutdown therefore drains
// the gateway first: every session receives a 1001 close frame, then
// the listener shuts down. Both phases share the configured shutdown
// timeout.
//
// # TLS
//
// With server.tls.enabled the listener serves TLS 1.2 or newer from the
// configured certificate and key files. Missing files fail Start rather
// than the first handshake.
package server
