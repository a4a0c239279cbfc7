package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

// writeConfigFile writes content to a config.yaml under a fresh temp dir and
// returns its path.
func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestLoadConfig_ValidFile(t *testing.T) {
	configPath := writeConfigFile(t, `
server:
  listen_address: "0.0.0.0:9000"
  read_timeout: "60s"
  shutdown_timeout: "5s"

gateway:
  path: "/gateway/ws"
  max_connections: 50
  session_timeout: "5m"
  allowed_origins:
    - "https://app.example.com"
  auth:
    api_keys: ["key-one", "key-two"]
    ui_password: "hunter2"
  rate_limit:
    burst: 40
    refill_per_second: 2.5

providers:
  dir: "./catalog"
  refresh_schedule: "@every 1m"
  request_timeout: "45s"

routing:
  default_strategy: "cheapest"
  max_retries: 2
  required_capabilities: ["streaming"]

fallback:
  failure_threshold: 3
  cooldown: "30s"

token_store:
  backend: "sqlite"
  sqlite:
    driver: "sqlite"
    path: "./tokens.db"

telemetry:
  logging:
    level: "debug"
    format: "text"
  metrics:
    path: "/internal/metrics"
`)

	cfg, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Server.ListenAddress != "0.0.0.0:9000" {
		t.Errorf("expected listen address %q, got %q", "0.0.0.0:9000", cfg.Server.ListenAddress)
	}
	if cfg.Server.ReadTimeout != 60*time.Second {
		t.Errorf("expected read timeout %v, got %v", 60*time.Second, cfg.Server.ReadTimeout)
	}
	if cfg.Server.ShutdownTimeout != 5*time.Second {
		t.Errorf("expected shutdown timeout %v, got %v", 5*time.Second, cfg.Server.ShutdownTimeout)
	}
	if cfg.Gateway.Path != "/gateway/ws" {
		t.Errorf("expected gateway path %q, got %q", "/gateway/ws", cfg.Gateway.Path)
	}
	if cfg.Gateway.MaxConnections != 50 {
		t.Errorf("expected max connections 50, got %d", cfg.Gateway.MaxConnections)
	}
	if cfg.Gateway.SessionTimeout != 5*time.Minute {
		t.Errorf("expected session timeout %v, got %v", 5*time.Minute, cfg.Gateway.SessionTimeout)
	}
	if want := []string{"https://app.example.com"}; !reflect.DeepEqual(cfg.Gateway.AllowedOrigins, want) {
		t.Errorf("expected origins %v, got %v", want, cfg.Gateway.AllowedOrigins)
	}
	if want := []string{"key-one", "key-two"}; !reflect.DeepEqual(cfg.Gateway.Auth.APIKeys, want) {
		t.Errorf("expected api keys %v, got %v", want, cfg.Gateway.Auth.APIKeys)
	}
	if cfg.Gateway.Auth.UIPassword != "hunter2" {
		t.Errorf("expected ui password %q, got %q", "hunter2", cfg.Gateway.Auth.UIPassword)
	}
	if cfg.Gateway.RateLimit.Burst != 40 {
		t.Errorf("expected burst 40, got %d", cfg.Gateway.RateLimit.Burst)
	}
	if cfg.Gateway.RateLimit.RefillPerSecond != 2.5 {
		t.Errorf("expected refill 2.5, got %v", cfg.Gateway.RateLimit.RefillPerSecond)
	}
	if cfg.Providers.Dir != "./catalog" {
		t.Errorf("expected providers dir %q, got %q", "./catalog", cfg.Providers.Dir)
	}
	if cfg.Providers.RefreshSchedule != "@every 1m" {
		t.Errorf("expected refresh schedule %q, got %q", "@every 1m", cfg.Providers.RefreshSchedule)
	}
	if cfg.Routing.DefaultStrategy != "cheapest" {
		t.Errorf("expected strategy %q, got %q", "cheapest", cfg.Routing.DefaultStrategy)
	}
	if cfg.Routing.MaxRetries != 2 {
		t.Errorf("expected max retries 2, got %d", cfg.Routing.MaxRetries)
	}
	if cfg.Fallback.FailureThreshold != 3 {
		t.Errorf("expected failure threshold 3, got %d", cfg.Fallback.FailureThreshold)
	}
	if cfg.Fallback.Cooldown != 30*time.Second {
		t.Errorf("expected cooldown %v, got %v", 30*time.Second, cfg.Fallback.Cooldown)
	}
	if cfg.TokenStore.Backend != "sqlite" {
		t.Errorf("expected token store backend %q, got %q", "sqlite", cfg.TokenStore.Backend)
	}
	if cfg.TokenStore.SQLite.Driver != "sqlite" {
		t.Errorf("expected sqlite driver %q, got %q", "sqlite", cfg.TokenStore.SQLite.Driver)
	}
	if cfg.Telemetry.Logging.Level != "debug" {
		t.Errorf("expected logging level %q, got %q", "debug", cfg.Telemetry.Logging.Level)
	}
	if cfg.Telemetry.Logging.Format != "text" {
		t.Errorf("expected logging format %q, got %q", "text", cfg.Telemetry.Logging.Format)
	}
	if cfg.Telemetry.Metrics.Path != "/internal/metrics" {
		t.Errorf("expected metrics path %q, got %q", "/internal/metrics", cfg.Telemetry.Metrics.Path)
	}
}

func TestLoadConfig_DefaultsForAbsentKeys(t *testing.T) {
	// A minimal file: everything not named keeps its default, including
	// booleans whose default is true.
	configPath := writeConfigFile(t, `
server:
  listen_address: "127.0.0.1:8421"
`)

	cfg, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Gateway.Path != DefaultGatewayPath {
		t.Errorf("expected default gateway path %q, got %q", DefaultGatewayPath, cfg.Gateway.Path)
	}
	if cfg.Gateway.SessionTimeout != DefaultSessionTimeout {
		t.Errorf("expected default session timeout %v, got %v", DefaultSessionTimeout, cfg.Gateway.SessionTimeout)
	}
	if !cfg.Providers.Watch {
		t.Error("providers.watch should default to true")
	}
	if !cfg.Fallback.Enabled {
		t.Error("fallback.enabled should default to true")
	}
	if !cfg.Telemetry.Metrics.Enabled {
		t.Error("telemetry.metrics.enabled should default to true")
	}
	if !cfg.Telemetry.Logging.RedactSecrets {
		t.Error("telemetry.logging.redact_secrets should default to true")
	}
}

func TestLoadConfig_ExplicitFalseSurvives(t *testing.T) {
	// Booleans that default to true must honor an explicit false.
	configPath := writeConfigFile(t, `
providers:
  watch: false

fallback:
  enabled: false

telemetry:
  metrics:
    enabled: false
`)

	cfg, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Providers.Watch {
		t.Error("explicit providers.watch=false was overwritten")
	}
	if cfg.Fallback.Enabled {
		t.Error("explicit fallback.enabled=false was overwritten")
	}
	if cfg.Telemetry.Metrics.Enabled {
		t.Error("explicit telemetry.metrics.enabled=false was overwritten")
	}
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !strings.Contains(err.Error(), "failed to read configuration file") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	configPath := writeConfigFile(t, "server: [not: valid: yaml")

	_, err := LoadConfig(configPath)
	if err == nil {
		t.Fatal("expected error for invalid YAML")
	}
	if !strings.Contains(err.Error(), "failed to parse configuration file") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoadConfig_ValidationFailure(t *testing.T) {
	configPath := writeConfigFile(t, `
routing:
  default_strategy: "speediest"
`)

	_, err := LoadConfig(configPath)
	if err == nil {
		t.Fatal("expected validation error")
	}

	var verr ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %T: %v", err, err)
	}
	if len(verr.Errors) != 1 {
		t.Fatalf("expected 1 field error, got %d: %v", len(verr.Errors), verr)
	}
	if verr.Errors[0].Field != "routing.default_strategy" {
		t.Errorf("unexpected field: %q", verr.Errors[0].Field)
	}
}

func TestLoadConfigWithEnvOverrides(t *testing.T) {
	configPath := writeConfigFile(t, `
server:
  listen_address: "127.0.0.1:8421"

gateway:
  session_timeout: "10m"
`)

	t.Setenv("GANYMEDE_SERVER_LISTEN_ADDRESS", "0.0.0.0:9999")
	t.Setenv("GANYMEDE_GATEWAY_SESSION_TIMEOUT", "90s")
	t.Setenv("GANYMEDE_GATEWAY_MAX_CONNECTIONS", "7")
	t.Setenv("GANYMEDE_GATEWAY_ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com")
	t.Setenv("GANYMEDE_GATEWAY_AUTH_API_KEYS", "env-key")
	t.Setenv("GANYMEDE_GATEWAY_RATE_LIMIT_REFILL_PER_SECOND", "0.5")
	t.Setenv("GANYMEDE_PROVIDERS_WATCH", "false")
	t.Setenv("GANYMEDE_ROUTING_DEFAULT_STRATEGY", "smartest")
	t.Setenv("GANYMEDE_TOKEN_STORE_BACKEND", "sqlite")
	t.Setenv("GANYMEDE_TELEMETRY_LOGGING_LEVEL", "warn")

	cfg, err := LoadConfigWithEnvOverrides(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Server.ListenAddress != "0.0.0.0:9999" {
		t.Errorf("env override for listen address not applied, got %q", cfg.Server.ListenAddress)
	}
	if cfg.Gateway.SessionTimeout != 90*time.Second {
		t.Errorf("env override for session timeout not applied, got %v", cfg.Gateway.SessionTimeout)
	}
	if cfg.Gateway.MaxConnections != 7 {
		t.Errorf("env override for max connections not applied, got %d", cfg.Gateway.MaxConnections)
	}
	if want := []string{"https://a.example.com", "https://b.example.com"}; !reflect.DeepEqual(cfg.Gateway.AllowedOrigins, want) {
		t.Errorf("expected origins %v, got %v", want, cfg.Gateway.AllowedOrigins)
	}
	if want := []string{"env-key"}; !reflect.DeepEqual(cfg.Gateway.Auth.APIKeys, want) {
		t.Errorf("expected api keys %v, got %v", want, cfg.Gateway.Auth.APIKeys)
	}
	if cfg.Gateway.RateLimit.RefillPerSecond != 0.5 {
		t.Errorf("env override for refill not applied, got %v", cfg.Gateway.RateLimit.RefillPerSecond)
	}
	if cfg.Providers.Watch {
		t.Error("env override for providers.watch not applied")
	}
	if cfg.Routing.DefaultStrategy != "smartest" {
		t.Errorf("env override for strategy not applied, got %q", cfg.Routing.DefaultStrategy)
	}
	if cfg.TokenStore.Backend != "sqlite" {
		t.Errorf("env override for token store backend not applied, got %q", cfg.TokenStore.Backend)
	}
	if cfg.Telemetry.Logging.Level != "warn" {
		t.Errorf("env override for logging level not applied, got %q", cfg.Telemetry.Logging.Level)
	}
}

func TestLoadConfigWithEnvOverrides_MalformedValuesIgnored(t *testing.T) {
	configPath := writeConfigFile(t, `
gateway:
  session_timeout: "10m"
  max_connections: 25
`)

	t.Setenv("GANYMEDE_GATEWAY_SESSION_TIMEOUT", "not-a-duration")
	t.Setenv("GANYMEDE_GATEWAY_MAX_CONNECTIONS", "lots")
	t.Setenv("GANYMEDE_PROVIDERS_WATCH", "yes-please")

	cfg, err := LoadConfigWithEnvOverrides(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Gateway.SessionTimeout != 10*time.Minute {
		t.Errorf("malformed duration should be ignored, got %v", cfg.Gateway.SessionTimeout)
	}
	if cfg.Gateway.MaxConnections != 25 {
		t.Errorf("malformed int should be ignored, got %d", cfg.Gateway.MaxConnections)
	}
	if !cfg.Providers.Watch {
		t.Error("malformed bool should be ignored")
	}
}

func TestLoadConfigWithEnvOverrides_RevalidatesAfterOverride(t *testing.T) {
	configPath := writeConfigFile(t, `
routing:
  default_strategy: "balanced"
`)

	t.Setenv("GANYMEDE_ROUTING_DEFAULT_STRATEGY", "speediest")

	_, err := LoadConfigWithEnvOverrides(configPath)
	if err == nil {
		t.Fatal("expected validation error after override")
	}
	if !strings.Contains(err.Error(), "after environment overrides") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestSplitList(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{name: "single value", in: "a", want: []string{"a"}},
		{name: "comma separated", in: "a,b,c", want: []string{"a", "b", "c"}},
		{name: "whitespace trimmed", in: " a , b ", want: []string{"a", "b"}},
		{name: "empty entries dropped", in: "a,,b,", want: []string{"a", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := splitList(tt.in); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("splitList(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
