package config

import "time"

// Default values for configuration fields.
const (
	// Server defaults
	DefaultListenAddress   = "127.0.0.1:8421"
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultMaxHeaderBytes  = 1048576 // 1MB

	// Gateway defaults
	DefaultGatewayPath       = "/ws"
	DefaultMaxConnections    = 1000
	DefaultSessionTimeout    = 10 * time.Minute
	DefaultHeartbeatInterval = 30 * time.Second

	// Rate limit defaults: burst of 20, sustained 60 messages per minute.
	DefaultRateLimitBurst     = int64(20)
	DefaultRateLimitRefillSec = 1.0

	// Provider registry defaults
	DefaultProvidersDir    = "./providers"
	DefaultProvidersWatch  = true
	DefaultRefreshSchedule = "@every 5m"
	DefaultRequestTimeout  = 120 * time.Second

	// Routing defaults
	DefaultRoutingStrategy   = "balanced"
	DefaultRoutingMaxRetries = 3

	// Fallback defaults
	DefaultFallbackEnabled  = true
	DefaultFailureThreshold = 5
	DefaultFallbackCooldown = 60 * time.Second

	// Token store defaults
	DefaultTokenStoreBackend = "memory"
	DefaultPurgeSchedule     = "@every 10m"
	DefaultSQLiteDriver      = "sqlite3"
	DefaultSQLitePath        = "data/tokens.db"

	// Telemetry defaults
	DefaultLoggingLevel   = "info"
	DefaultLoggingFormat  = "json"
	DefaultRedactSecrets  = true
	DefaultMetricsEnabled = true
	DefaultMetricsPath    = "/metrics"
)

// Default returns a fully-populated configuration. LoadConfig unmarshals
// the YAML file over this value, so booleans whose default is true survive
// an absent key and still honor an explicit false.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			ListenAddress:   DefaultListenAddress,
			ReadTimeout:     DefaultReadTimeout,
			WriteTimeout:    DefaultWriteTimeout,
			IdleTimeout:     DefaultIdleTimeout,
			ShutdownTimeout: DefaultShutdownTimeout,
			MaxHeaderBytes:  DefaultMaxHeaderBytes,
		},
		Gateway: GatewayConfig{
			Path:              DefaultGatewayPath,
			MaxConnections:    DefaultMaxConnections,
			SessionTimeout:    DefaultSessionTimeout,
			HeartbeatInterval: DefaultHeartbeatInterval,
			RateLimit: RateLimitConfig{
				Burst:           DefaultRateLimitBurst,
				RefillPerSecond: DefaultRateLimitRefillSec,
			},
		},
		Providers: ProvidersConfig{
			Dir:             DefaultProvidersDir,
			Watch:           DefaultProvidersWatch,
			RefreshSchedule: DefaultRefreshSchedule,
			RequestTimeout:  DefaultRequestTimeout,
		},
		Routing: RoutingConfig{
			DefaultStrategy: DefaultRoutingStrategy,
			MaxRetries:      DefaultRoutingMaxRetries,
		},
		Fallback: FallbackConfig{
			Enabled:          DefaultFallbackEnabled,
			FailureThreshold: DefaultFailureThreshold,
			Cooldown:         DefaultFallbackCooldown,
		},
		TokenStore: TokenStoreConfig{
			Backend:       DefaultTokenStoreBackend,
			PurgeSchedule: DefaultPurgeSchedule,
			SQLite: SQLiteStoreConfig{
				Driver: DefaultSQLiteDriver,
				Path:   DefaultSQLitePath,
			},
		},
		Telemetry: TelemetryConfig{
			Logging: LoggingConfig{
				Level:         DefaultLoggingLevel,
				Format:        DefaultLoggingFormat,
				RedactSecrets: DefaultRedactSecrets,
			},
			Metrics: MetricsConfig{
				Enabled: DefaultMetricsEnabled,
				Path:    DefaultMetricsPath,
			},
		},
	}
}

// ApplyDefaults fills zero-valued fields with their defaults. It backstops
// configs built by hand or partially zeroed by explicit empty YAML values.
// Boolean defaults are carried by Default(), not here: a false boolean is
// indistinguishable from an unset one.
func ApplyDefaults(cfg *Config) {
	// Server defaults
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultListenAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Server.MaxHeaderBytes == 0 {
		cfg.Server.MaxHeaderBytes = DefaultMaxHeaderBytes
	}

	// Gateway defaults
	if cfg.Gateway.Path == "" {
		cfg.Gateway.Path = DefaultGatewayPath
	}
	if cfg.Gateway.MaxConnections == 0 {
		cfg.Gateway.MaxConnections = DefaultMaxConnections
	}
	if cfg.Gateway.SessionTimeout == 0 {
		cfg.Gateway.SessionTimeout = DefaultSessionTimeout
	}
	if cfg.Gateway.HeartbeatInterval == 0 {
		cfg.Gateway.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if cfg.Gateway.RateLimit.Burst == 0 {
		cfg.Gateway.RateLimit.Burst = DefaultRateLimitBurst
	}
	if cfg.Gateway.RateLimit.RefillPerSecond == 0 {
		cfg.Gateway.RateLimit.RefillPerSecond = DefaultRateLimitRefillSec
	}

	// Provider registry defaults
	if cfg.Providers.Dir == "" {
		cfg.Providers.Dir = DefaultProvidersDir
	}
	if cfg.Providers.RefreshSchedule == "" {
		cfg.Providers.RefreshSchedule = DefaultRefreshSchedule
	}
	if cfg.Providers.RequestTimeout == 0 {
		cfg.Providers.RequestTimeout = DefaultRequestTimeout
	}

	// Routing defaults
	if cfg.Routing.DefaultStrategy == "" {
		cfg.Routing.DefaultStrategy = DefaultRoutingStrategy
	}
	if cfg.Routing.MaxRetries == 0 {
		cfg.Routing.MaxRetries = DefaultRoutingMaxRetries
	}

	// Fallback defaults
	if cfg.Fallback.FailureThreshold == 0 {
		cfg.Fallback.FailureThreshold = DefaultFailureThreshold
	}
	if cfg.Fallback.Cooldown == 0 {
		cfg.Fallback.Cooldown = DefaultFallbackCooldown
	}

	// Token store defaults
	if cfg.TokenStore.Backend == "" {
		cfg.TokenStore.Backend = DefaultTokenStoreBackend
	}
	if cfg.TokenStore.PurgeSchedule == "" {
		cfg.TokenStore.PurgeSchedule = DefaultPurgeSchedule
	}
	if cfg.TokenStore.SQLite.Driver == "" {
		cfg.TokenStore.SQLite.Driver = DefaultSQLiteDriver
	}
	if cfg.TokenStore.SQLite.Path == "" {
		cfg.TokenStore.SQLite.Path = DefaultSQLitePath
	}

	// Telemetry defaults
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultMetricsPath
	}
}
