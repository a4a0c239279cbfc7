package config

import "time"

// Config is the root configuration for the Ganymede gateway. It covers the
// HTTP server, the WebSocket session layer, the provider registry, routing,
// fallback, the UI-session token store, and telemetry.
type Config struct {
	// Server contains the HTTP server configuration: listen address,
	// timeouts, and TLS.
	Server ServerConfig `yaml:"server"`

	// Gateway contains the WebSocket session layer configuration:
	// endpoint path, auth, origins, capacity, heartbeats, and per-session
	// rate limits.
	Gateway GatewayConfig `yaml:"gateway"`

	// Providers contains the provider registry configuration: the JSON
	// directory, hot reload, and refresh scheduling.
	Providers ProvidersConfig `yaml:"providers"`

	// Routing contains the model selection configuration.
	Routing RoutingConfig `yaml:"routing"`

	// Fallback contains the provider fallback and circuit breaker
	// configuration.
	Fallback FallbackConfig `yaml:"fallback"`

	// TokenStore contains the UI-session token store configuration.
	TokenStore TokenStoreConfig `yaml:"token_store"`

	// Telemetry contains logging and metrics configuration.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig contains the HTTP server configuration.
type ServerConfig struct {
	// ListenAddress is the address and port to listen on.
	// Format: "host:port" (e.g., "127.0.0.1:8421", "0.0.0.0:8421").
	// Default: "127.0.0.1:8421"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading an entire request.
	// Default: 30s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out a response
	// write. WebSocket connections are exempt once hijacked.
	// Default: 30s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the keep-alive idle limit.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout bounds graceful shutdown; connections still open
	// after it are dropped.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// MaxHeaderBytes caps request header size.
	// Default: 1048576 (1MB)
	MaxHeaderBytes int `yaml:"max_header_bytes"`

	// TLS contains the TLS listener configuration.
	TLS TLSConfig `yaml:"tls"`
}

// TLSConfig contains the TLS listener configuration. The minimum accepted
// version is TLS 1.2.
type TLSConfig struct {
	// Enabled turns on TLS for the listener.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// CertFile is the path to the PEM certificate.
	CertFile string `yaml:"cert_file"`

	// KeyFile is the path to the PEM private key.
	KeyFile string `yaml:"key_file"`
}

// GatewayConfig contains the WebSocket session layer configuration.
type GatewayConfig struct {
	// Path is the WebSocket endpoint path.
	// Default: "/ws"
	Path string `yaml:"path"`

	// MaxConnections caps concurrent sessions; upgrades beyond it are
	// closed with 1013.
	// Default: 1000
	MaxConnections int `yaml:"max_connections"`

	// SessionTimeout is the idle limit after which the sweeper closes a
	// session.
	// Default: 10m
	SessionTimeout time.Duration `yaml:"session_timeout"`

	// HeartbeatInterval is how often open sockets are pinged.
	// Default: 30s
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`

	// AllowedOrigins is the exact-match Origin allow-list. Empty disables
	// the origin check.
	AllowedOrigins []string `yaml:"allowed_origins"`

	// Auth contains the upgrade authentication configuration.
	Auth AuthConfig `yaml:"auth"`

	// RateLimit contains the per-session message rate limit.
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// AuthConfig controls WebSocket upgrade authentication. With API keys
// configured, a presented token must match one (constant-time) or validate
// as a UI-session token. With only a UI password configured, UI-session
// tokens are the sole accepted credential. With neither, upgrades are open.
type AuthConfig struct {
	// APIKeys is the list of accepted API keys.
	APIKeys []string `yaml:"api_keys"`

	// UIPassword guards the browser login flow that mints UI-session
	// tokens.
	UIPassword string `yaml:"ui_password"`
}

// RateLimitConfig is a token-bucket shape: Burst tokens available
// immediately, refilling at RefillPerSecond.
type RateLimitConfig struct {
	// Burst is the bucket capacity.
	// Default: 20
	Burst int64 `yaml:"burst"`

	// RefillPerSecond is the sustained message rate.
	// Default: 1.0 (60 messages per minute)
	RefillPerSecond float64 `yaml:"refill_per_second"`
}

// ProvidersConfig contains the provider registry configuration.
type ProvidersConfig struct {
	// Dir is the directory of provider JSON files.
	// Default: "./providers"
	Dir string `yaml:"dir"`

	// Watch enables fsnotify hot reload of the provider directory.
	// Default: true
	Watch bool `yaml:"watch"`

	// RefreshSchedule is the cron spec for periodic registry refresh
	// (robfig/cron syntax, descriptors allowed).
	// Default: "@every 5m"
	RefreshSchedule string `yaml:"refresh_schedule"`

	// RequestTimeout is the per-call deadline applied to upstream
	// provider requests.
	// Default: 120s
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// RoutingConfig contains the model selection configuration.
type RoutingConfig struct {
	// DefaultStrategy is used when a request names none. One of:
	// balanced, cheapest, fastest, smartest.
	// Default: "balanced"
	DefaultStrategy string `yaml:"default_strategy"`

	// MaxRetries caps fallback candidates per routed request.
	// Default: 3
	MaxRetries int `yaml:"max_retries"`

	// RequiredCapabilities are merged into every selection.
	RequiredCapabilities []string `yaml:"required_capabilities"`
}

// FallbackConfig contains provider fallback and circuit breaker settings.
type FallbackConfig struct {
	// Enabled toggles iteration over fallback providers.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// FailureThreshold is the consecutive-failure count that opens a
	// provider's circuit.
	// Default: 5
	FailureThreshold int `yaml:"failure_threshold"`

	// Cooldown is how long an open circuit blocks its provider.
	// Default: 60s
	Cooldown time.Duration `yaml:"cooldown"`
}

// TokenStoreConfig contains the UI-session token store configuration.
type TokenStoreConfig struct {
	// Backend selects the implementation: "memory" or "sqlite".
	// Default: "memory"
	Backend string `yaml:"backend"`

	// PurgeSchedule is the cron spec for expired-token purges.
	// Default: "@every 10m"
	PurgeSchedule string `yaml:"purge_schedule"`

	// SQLite configures the sqlite backend.
	SQLite SQLiteStoreConfig `yaml:"sqlite"`
}

// SQLiteStoreConfig contains the sqlite token store configuration.
type SQLiteStoreConfig struct {
	// Driver is the database/sql driver: "sqlite3" (mattn, cgo) or
	// "sqlite" (modernc, pure Go).
	// Default: "sqlite3"
	Driver string `yaml:"driver"`

	// Path is the database file path.
	// Default: "data/tokens.db"
	Path string `yaml:"path"`
}

// TelemetryConfig contains observability configuration.
type TelemetryConfig struct {
	// Logging contains structured logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains Prometheus metrics configuration.
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig contains structured logging configuration.
type LoggingConfig struct {
	// Level is the minimum level: debug, info, warn, or error.
	// Default: "info"
	Level string `yaml:"level"`

	// Format is the handler format: "json" or "text".
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes source file and line in records.
	// Default: false
	AddSource bool `yaml:"add_source"`

	// RedactSecrets masks API keys and bearer tokens in log output.
	// Default: true
	RedactSecrets bool `yaml:"redact_secrets"`
}

// MetricsConfig contains Prometheus metrics configuration.
type MetricsConfig struct {
	// Enabled mounts the metrics endpoint.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the metrics endpoint path.
	// Default: "/metrics"
	Path string `yaml:"path"`
}
