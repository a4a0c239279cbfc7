// Package telemetry groups the gateway's observability subpackages.
//
// # Components
//
//   - logging: structured slog logging with secret redaction
//   - metrics: Prometheus collectors and the /metrics handler
//   - health: liveness and readiness probes for /healthz and /readyz
//
// # Usage
//
//	logger := logging.Setup(cfg.Telemetry.Logging)
//	logger.Info("provider refreshed", "provider_id", "openai")
//
//	collector := metrics.NewCollector(nil)
//	collector.RecordProviderRequest("openai", "gpt-4o")
//
//	checker := health.New(5 * time.Second)
//	mux.HandleFunc("/healthz", checker.LivenessHandler())
//
// Secret redaction is on by default: API keys and bearer tokens are
// masked before a record reaches the handler, so a mislogged header
// shows up as "sk-***" rather than the key itself.
package telemetry
