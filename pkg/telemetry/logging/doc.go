// Package logging configures the process-wide slog logger.
//
// The package is a thin layer over log/slog: Setup builds a JSON or text
// handler at the configured level, installs it as the slog default, and
// returns it. Components receive a *slog.Logger and namespace themselves
// with logger.With("component", "...").
//
//	logger := logging.Setup(cfg.Telemetry.Logging)
//	gw := gateway.New(gateway.Options{Logger: logger})
//
// # Secret redaction
//
// With redact_secrets enabled (the default), the handler masks credential
// material before it reaches the output:
//
//   - provider API keys: sk-abc123xyz → sk-***
//   - bearer tokens: Bearer eyJhbGciOi... → Bearer ***
//   - values of credential-named attributes (api_key, token, password,
//     secret, authorization): hunter2xyz → hunt***
//
// Redaction applies to record messages, per-call attributes, and attributes
// attached with Logger.With.
package logging
