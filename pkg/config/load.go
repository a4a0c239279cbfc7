package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from a YAML file at the specified path.
// Parsing starts from Default(), so keys absent from the file keep their
// default values, including booleans whose default is true. The result is
// validated before it is returned. Environment variables are not consulted;
// use LoadConfigWithEnvOverrides for that.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	// Backstop for fields explicitly set to their zero value in the file.
	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Environment variables follow the naming
// convention GANYMEDE_SECTION_FIELD (e.g., GANYMEDE_SERVER_LISTEN_ADDRESS).
// Environment variables always take precedence over file-based configuration.
//
// The loading sequence is:
//  1. Start from default values
//  2. Unmarshal YAML from file
//  3. Apply environment variable overrides
//  4. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	// Re-validate after overrides
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the
// configuration. Variables use the format GANYMEDE_SECTION_FIELD. Malformed
// values (a duration that does not parse, a non-numeric integer) are
// ignored and the existing value stands.
func applyEnvOverrides(cfg *Config) {
	// Server overrides
	if val := os.Getenv("GANYMEDE_SERVER_LISTEN_ADDRESS"); val != "" {
		cfg.Server.ListenAddress = val
	}
	if val := os.Getenv("GANYMEDE_SERVER_READ_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Server.ReadTimeout = d
		}
	}
	if val := os.Getenv("GANYMEDE_SERVER_WRITE_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Server.WriteTimeout = d
		}
	}
	if val := os.Getenv("GANYMEDE_SERVER_IDLE_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Server.IdleTimeout = d
		}
	}
	if val := os.Getenv("GANYMEDE_SERVER_SHUTDOWN_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Server.ShutdownTimeout = d
		}
	}
	if val := os.Getenv("GANYMEDE_SERVER_MAX_HEADER_BYTES"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Server.MaxHeaderBytes = i
		}
	}
	if val := os.Getenv("GANYMEDE_SERVER_TLS_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Server.TLS.Enabled = b
		}
	}
	if val := os.Getenv("GANYMEDE_SERVER_TLS_CERT_FILE"); val != "" {
		cfg.Server.TLS.CertFile = val
	}
	if val := os.Getenv("GANYMEDE_SERVER_TLS_KEY_FILE"); val != "" {
		cfg.Server.TLS.KeyFile = val
	}

	// Gateway overrides
	if val := os.Getenv("GANYMEDE_GATEWAY_PATH"); val != "" {
		cfg.Gateway.Path = val
	}
	if val := os.Getenv("GANYMEDE_GATEWAY_MAX_CONNECTIONS"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Gateway.MaxConnections = i
		}
	}
	if val := os.Getenv("GANYMEDE_GATEWAY_SESSION_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Gateway.SessionTimeout = d
		}
	}
	if val := os.Getenv("GANYMEDE_GATEWAY_HEARTBEAT_INTERVAL"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Gateway.HeartbeatInterval = d
		}
	}
	if val := os.Getenv("GANYMEDE_GATEWAY_ALLOWED_ORIGINS"); val != "" {
		cfg.Gateway.AllowedOrigins = splitList(val)
	}
	if val := os.Getenv("GANYMEDE_GATEWAY_AUTH_API_KEYS"); val != "" {
		cfg.Gateway.Auth.APIKeys = splitList(val)
	}
	if val := os.Getenv("GANYMEDE_GATEWAY_AUTH_UI_PASSWORD"); val != "" {
		cfg.Gateway.Auth.UIPassword = val
	}
	if val := os.Getenv("GANYMEDE_GATEWAY_RATE_LIMIT_BURST"); val != "" {
		if i, err := strconv.ParseInt(val, 10, 64); err == nil {
			cfg.Gateway.RateLimit.Burst = i
		}
	}
	if val := os.Getenv("GANYMEDE_GATEWAY_RATE_LIMIT_REFILL_PER_SECOND"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Gateway.RateLimit.RefillPerSecond = f
		}
	}

	// Provider registry overrides
	if val := os.Getenv("GANYMEDE_PROVIDERS_DIR"); val != "" {
		cfg.Providers.Dir = val
	}
	if val := os.Getenv("GANYMEDE_PROVIDERS_WATCH"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Providers.Watch = b
		}
	}
	if val := os.Getenv("GANYMEDE_PROVIDERS_REFRESH_SCHEDULE"); val != "" {
		cfg.Providers.RefreshSchedule = val
	}
	if val := os.Getenv("GANYMEDE_PROVIDERS_REQUEST_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Providers.RequestTimeout = d
		}
	}

	// Routing overrides
	if val := os.Getenv("GANYMEDE_ROUTING_DEFAULT_STRATEGY"); val != "" {
		cfg.Routing.DefaultStrategy = val
	}
	if val := os.Getenv("GANYMEDE_ROUTING_MAX_RETRIES"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Routing.MaxRetries = i
		}
	}
	if val := os.Getenv("GANYMEDE_ROUTING_REQUIRED_CAPABILITIES"); val != "" {
		cfg.Routing.RequiredCapabilities = splitList(val)
	}

	// Fallback overrides
	if val := os.Getenv("GANYMEDE_FALLBACK_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Fallback.Enabled = b
		}
	}
	if val := os.Getenv("GANYMEDE_FALLBACK_FAILURE_THRESHOLD"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Fallback.FailureThreshold = i
		}
	}
	if val := os.Getenv("GANYMEDE_FALLBACK_COOLDOWN"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Fallback.Cooldown = d
		}
	}

	// Token store overrides
	if val := os.Getenv("GANYMEDE_TOKEN_STORE_BACKEND"); val != "" {
		cfg.TokenStore.Backend = val
	}
	if val := os.Getenv("GANYMEDE_TOKEN_STORE_PURGE_SCHEDULE"); val != "" {
		cfg.TokenStore.PurgeSchedule = val
	}
	if val := os.Getenv("GANYMEDE_TOKEN_STORE_SQLITE_DRIVER"); val != "" {
		cfg.TokenStore.SQLite.Driver = val
	}
	if val := os.Getenv("GANYMEDE_TOKEN_STORE_SQLITE_PATH"); val != "" {
		cfg.TokenStore.SQLite.Path = val
	}

	// Telemetry overrides
	if val := os.Getenv("GANYMEDE_TELEMETRY_LOGGING_LEVEL"); val != "" {
		cfg.Telemetry.Logging.Level = val
	}
	if val := os.Getenv("GANYMEDE_TELEMETRY_LOGGING_FORMAT"); val != "" {
		cfg.Telemetry.Logging.Format = val
	}
	if val := os.Getenv("GANYMEDE_TELEMETRY_LOGGING_ADD_SOURCE"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Telemetry.Logging.AddSource = b
		}
	}
	if val := os.Getenv("GANYMEDE_TELEMETRY_LOGGING_REDACT_SECRETS"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Telemetry.Logging.RedactSecrets = b
		}
	}
	if val := os.Getenv("GANYMEDE_TELEMETRY_METRICS_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Telemetry.Metrics.Enabled = b
		}
	}
	if val := os.Getenv("GANYMEDE_TELEMETRY_METRICS_PATH"); val != "" {
		cfg.Telemetry.Metrics.Path = val
	}
}

// splitList splits a comma-separated environment value into a slice,
// trimming whitespace and dropping empty entries.
func splitList(val string) []string {
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
