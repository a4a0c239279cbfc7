package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/robfig/cron/v3"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "server.listen_address").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
// It implements the error interface and provides access to all field errors.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. It returns nil if the configuration is valid.
// All validation errors are collected and returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateServer(&cfg.Server)...)
	errs = append(errs, validateGateway(&cfg.Gateway)...)
	errs = append(errs, validateProviders(&cfg.Providers)...)
	errs = append(errs, validateRouting(&cfg.Routing)...)
	errs = append(errs, validateFallback(&cfg.Fallback)...)
	errs = append(errs, validateTokenStore(&cfg.TokenStore)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}

	return nil
}

// validateServer validates the HTTP server configuration.
func validateServer(cfg *ServerConfig) []FieldError {
	var errs []FieldError

	if cfg.ListenAddress == "" {
		errs = append(errs, FieldError{
			Field:   "server.listen_address",
			Message: "listen address is required",
		})
	}

	if cfg.ReadTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "server.read_timeout",
			Message: "read timeout must be positive",
		})
	}
	if cfg.WriteTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "server.write_timeout",
			Message: "write timeout must be positive",
		})
	}
	if cfg.IdleTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "server.idle_timeout",
			Message: "idle timeout must be positive",
		})
	}
	if cfg.ShutdownTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "server.shutdown_timeout",
			Message: "shutdown timeout must be positive",
		})
	}

	if cfg.MaxHeaderBytes < 0 {
		errs = append(errs, FieldError{
			Field:   "server.max_header_bytes",
			Message: "max header bytes must be non-negative",
		})
	}
	if cfg.MaxHeaderBytes > 10*1024*1024 { // 10MB is excessive
		errs = append(errs, FieldError{
			Field:   "server.max_header_bytes",
			Message: "max header bytes exceeds reasonable limit (10MB)",
		})
	}

	if cfg.TLS.Enabled {
		if cfg.TLS.CertFile == "" {
			errs = append(errs, FieldError{
				Field:   "server.tls.cert_file",
				Message: "TLS certificate file is required when TLS is enabled",
			})
		}
		if cfg.TLS.KeyFile == "" {
			errs = append(errs, FieldError{
				Field:   "server.tls.key_file",
				Message: "TLS key file is required when TLS is enabled",
			})
		}
	}

	return errs
}

// validateGateway validates the WebSocket session layer configuration.
func validateGateway(cfg *GatewayConfig) []FieldError {
	var errs []FieldError

	if cfg.Path == "" {
		errs = append(errs, FieldError{
			Field:   "gateway.path",
			Message: "path is required",
		})
	} else if cfg.Path[0] != '/' {
		errs = append(errs, FieldError{
			Field:   "gateway.path",
			Message: "path must start with /",
		})
	}

	if cfg.MaxConnections < 0 {
		errs = append(errs, FieldError{
			Field:   "gateway.max_connections",
			Message: "max connections must be non-negative",
		})
	}
	if cfg.SessionTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "gateway.session_timeout",
			Message: "session timeout must be positive",
		})
	}
	if cfg.HeartbeatInterval < 0 {
		errs = append(errs, FieldError{
			Field:   "gateway.heartbeat_interval",
			Message: "heartbeat interval must be positive",
		})
	}

	// Origins are matched exactly against the Origin header, so each entry
	// must be a full scheme://host value.
	for i, origin := range cfg.AllowedOrigins {
		u, err := url.Parse(origin)
		if err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("gateway.allowed_origins[%d]", i),
				Message: fmt.Sprintf("invalid origin %q: must include scheme and host", origin),
			})
		}
	}

	if cfg.RateLimit.Burst < 0 {
		errs = append(errs, FieldError{
			Field:   "gateway.rate_limit.burst",
			Message: "burst must be non-negative",
		})
	}
	if cfg.RateLimit.RefillPerSecond < 0 {
		errs = append(errs, FieldError{
			Field:   "gateway.rate_limit.refill_per_second",
			Message: "refill per second must be non-negative",
		})
	}

	return errs
}

// validateProviders validates the provider registry configuration.
func validateProviders(cfg *ProvidersConfig) []FieldError {
	var errs []FieldError

	if cfg.Dir == "" {
		errs = append(errs, FieldError{
			Field:   "providers.dir",
			Message: "provider directory is required",
		})
	}

	if cfg.RefreshSchedule != "" {
		if _, err := cron.ParseStandard(cfg.RefreshSchedule); err != nil {
			errs = append(errs, FieldError{
				Field:   "providers.refresh_schedule",
				Message: fmt.Sprintf("invalid cron spec %q: %v", cfg.RefreshSchedule, err),
			})
		}
	}

	if cfg.RequestTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "providers.request_timeout",
			Message: "request timeout must be positive",
		})
	}

	return errs
}

// validateRouting validates the model selection configuration.
func validateRouting(cfg *RoutingConfig) []FieldError {
	var errs []FieldError

	validStrategies := map[string]bool{"balanced": true, "cheapest": true, "fastest": true, "smartest": true}
	if cfg.DefaultStrategy == "" {
		errs = append(errs, FieldError{
			Field:   "routing.default_strategy",
			Message: "default strategy is required",
		})
	} else if !validStrategies[cfg.DefaultStrategy] {
		errs = append(errs, FieldError{
			Field:   "routing.default_strategy",
			Message: fmt.Sprintf("invalid strategy %q: must be 'balanced', 'cheapest', 'fastest', or 'smartest'", cfg.DefaultStrategy),
		})
	}

	if cfg.MaxRetries < 0 {
		errs = append(errs, FieldError{
			Field:   "routing.max_retries",
			Message: "max retries must be non-negative",
		})
	}
	if cfg.MaxRetries > 10 {
		errs = append(errs, FieldError{
			Field:   "routing.max_retries",
			Message: "max retries exceeds reasonable limit (10)",
		})
	}

	return errs
}

// validateFallback validates the fallback and circuit breaker configuration.
func validateFallback(cfg *FallbackConfig) []FieldError {
	var errs []FieldError

	if cfg.FailureThreshold < 0 {
		errs = append(errs, FieldError{
			Field:   "fallback.failure_threshold",
			Message: "failure threshold must be non-negative",
		})
	}
	if cfg.Cooldown < 0 {
		errs = append(errs, FieldError{
			Field:   "fallback.cooldown",
			Message: "cooldown must be positive",
		})
	}

	return errs
}

// validateTokenStore validates the UI-session token store configuration.
func validateTokenStore(cfg *TokenStoreConfig) []FieldError {
	var errs []FieldError

	validBackends := map[string]bool{"memory": true, "sqlite": true}
	if cfg.Backend == "" {
		errs = append(errs, FieldError{
			Field:   "token_store.backend",
			Message: "backend is required",
		})
	} else if !validBackends[cfg.Backend] {
		errs = append(errs, FieldError{
			Field:   "token_store.backend",
			Message: fmt.Sprintf("invalid backend %q: must be 'memory' or 'sqlite'", cfg.Backend),
		})
	}

	if cfg.PurgeSchedule != "" {
		if _, err := cron.ParseStandard(cfg.PurgeSchedule); err != nil {
			errs = append(errs, FieldError{
				Field:   "token_store.purge_schedule",
				Message: fmt.Sprintf("invalid cron spec %q: %v", cfg.PurgeSchedule, err),
			})
		}
	}

	if cfg.Backend == "sqlite" {
		validDrivers := map[string]bool{"sqlite3": true, "sqlite": true}
		if !validDrivers[cfg.SQLite.Driver] {
			errs = append(errs, FieldError{
				Field:   "token_store.sqlite.driver",
				Message: fmt.Sprintf("invalid driver %q: must be 'sqlite3' or 'sqlite'", cfg.SQLite.Driver),
			})
		}
		if cfg.SQLite.Path == "" {
			errs = append(errs, FieldError{
				Field:   "token_store.sqlite.path",
				Message: "SQLite path is required when backend is 'sqlite'",
			})
		}
	}

	return errs
}

// validateTelemetry validates telemetry configuration.
func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if cfg.Logging.Level == "" {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: "logging level is required",
		})
	} else if !validLevels[cfg.Logging.Level] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("invalid logging level %q: must be 'debug', 'info', 'warn', or 'error'", cfg.Logging.Level),
		})
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if cfg.Logging.Format == "" {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: "logging format is required",
		})
	} else if !validFormats[cfg.Logging.Format] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("invalid logging format %q: must be 'json' or 'text'", cfg.Logging.Format),
		})
	}

	if cfg.Metrics.Enabled {
		if cfg.Metrics.Path == "" {
			errs = append(errs, FieldError{
				Field:   "telemetry.metrics.path",
				Message: "metrics path is required when metrics are enabled",
			})
		} else if cfg.Metrics.Path[0] != '/' {
			errs = append(errs, FieldError{
				Field:   "telemetry.metrics.path",
				Message: "metrics path must start with /",
			})
		}
	}

	return errs
}
