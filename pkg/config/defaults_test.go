package config

import (
	"reflect"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Server.ListenAddress != DefaultListenAddress {
		t.Errorf("expected listen address %q, got %q", DefaultListenAddress, cfg.Server.ListenAddress)
	}
	if cfg.Gateway.Path != DefaultGatewayPath {
		t.Errorf("expected gateway path %q, got %q", DefaultGatewayPath, cfg.Gateway.Path)
	}
	if cfg.Gateway.RateLimit.Burst != DefaultRateLimitBurst {
		t.Errorf("expected burst %d, got %d", DefaultRateLimitBurst, cfg.Gateway.RateLimit.Burst)
	}
	if !cfg.Providers.Watch {
		t.Error("expected provider watch to default on")
	}
	if !cfg.Fallback.Enabled {
		t.Error("expected fallback to default on")
	}
	if !cfg.Telemetry.Metrics.Enabled {
		t.Error("expected metrics to default on")
	}
	if !cfg.Telemetry.Logging.RedactSecrets {
		t.Error("expected secret redaction to default on")
	}

	// The default configuration must validate as-is.
	if err := Validate(cfg); err != nil {
		t.Fatalf("default config failed validation: %v", err)
	}
}

func TestApplyDefaults(t *testing.T) {
	tests := []struct {
		name  string
		input Config
		check func(*testing.T, *Config)
	}{
		{
			name:  "empty config gets all defaults",
			input: Config{},
			check: func(t *testing.T, cfg *Config) {
				if cfg.Server.ListenAddress != DefaultListenAddress {
					t.Errorf("expected listen address %q, got %q", DefaultListenAddress, cfg.Server.ListenAddress)
				}
				if cfg.Server.ReadTimeout != DefaultReadTimeout {
					t.Errorf("expected read timeout %v, got %v", DefaultReadTimeout, cfg.Server.ReadTimeout)
				}
				if cfg.Server.ShutdownTimeout != DefaultShutdownTimeout {
					t.Errorf("expected shutdown timeout %v, got %v", DefaultShutdownTimeout, cfg.Server.ShutdownTimeout)
				}
				if cfg.Server.MaxHeaderBytes != DefaultMaxHeaderBytes {
					t.Errorf("expected max header bytes %d, got %d", DefaultMaxHeaderBytes, cfg.Server.MaxHeaderBytes)
				}
				if cfg.Gateway.Path != DefaultGatewayPath {
					t.Errorf("expected gateway path %q, got %q", DefaultGatewayPath, cfg.Gateway.Path)
				}
				if cfg.Gateway.MaxConnections != DefaultMaxConnections {
					t.Errorf("expected max connections %d, got %d", DefaultMaxConnections, cfg.Gateway.MaxConnections)
				}
				if cfg.Gateway.SessionTimeout != DefaultSessionTimeout {
					t.Errorf("expected session timeout %v, got %v", DefaultSessionTimeout, cfg.Gateway.SessionTimeout)
				}
				if cfg.Gateway.RateLimit.Burst != DefaultRateLimitBurst {
					t.Errorf("expected burst %d, got %d", DefaultRateLimitBurst, cfg.Gateway.RateLimit.Burst)
				}
				if cfg.Gateway.RateLimit.RefillPerSecond != DefaultRateLimitRefillSec {
					t.Errorf("expected refill %v, got %v", DefaultRateLimitRefillSec, cfg.Gateway.RateLimit.RefillPerSecond)
				}
				if cfg.Providers.Dir != DefaultProvidersDir {
					t.Errorf("expected providers dir %q, got %q", DefaultProvidersDir, cfg.Providers.Dir)
				}
				if cfg.Providers.RefreshSchedule != DefaultRefreshSchedule {
					t.Errorf("expected refresh schedule %q, got %q", DefaultRefreshSchedule, cfg.Providers.RefreshSchedule)
				}
				if cfg.Routing.DefaultStrategy != DefaultRoutingStrategy {
					t.Errorf("expected strategy %q, got %q", DefaultRoutingStrategy, cfg.Routing.DefaultStrategy)
				}
				if cfg.Fallback.FailureThreshold != DefaultFailureThreshold {
					t.Errorf("expected failure threshold %d, got %d", DefaultFailureThreshold, cfg.Fallback.FailureThreshold)
				}
				if cfg.TokenStore.Backend != DefaultTokenStoreBackend {
					t.Errorf("expected token store backend %q, got %q", DefaultTokenStoreBackend, cfg.TokenStore.Backend)
				}
				if cfg.TokenStore.SQLite.Driver != DefaultSQLiteDriver {
					t.Errorf("expected sqlite driver %q, got %q", DefaultSQLiteDriver, cfg.TokenStore.SQLite.Driver)
				}
				if cfg.Telemetry.Logging.Level != DefaultLoggingLevel {
					t.Errorf("expected logging level %q, got %q", DefaultLoggingLevel, cfg.Telemetry.Logging.Level)
				}
				if cfg.Telemetry.Logging.Format != DefaultLoggingFormat {
					t.Errorf("expected logging format %q, got %q", DefaultLoggingFormat, cfg.Telemetry.Logging.Format)
				}
				if cfg.Telemetry.Metrics.Path != DefaultMetricsPath {
					t.Errorf("expected metrics path %q, got %q", DefaultMetricsPath, cfg.Telemetry.Metrics.Path)
				}
			},
		},
		{
			name: "existing values are preserved",
			input: Config{
				Server: ServerConfig{
					ListenAddress:  "192.168.1.1:9090",
					ReadTimeout:    60 * time.Second,
					MaxHeaderBytes: 2097152,
				},
				Gateway: GatewayConfig{
					SessionTimeout: 2 * time.Minute,
				},
			},
			check: func(t *testing.T, cfg *Config) {
				if cfg.Server.ListenAddress != "192.168.1.1:9090" {
					t.Error("existing listen address was overwritten")
				}
				if cfg.Server.ReadTimeout != 60*time.Second {
					t.Error("existing read timeout was overwritten")
				}
				if cfg.Server.MaxHeaderBytes != 2097152 {
					t.Error("existing max header bytes was overwritten")
				}
				if cfg.Gateway.SessionTimeout != 2*time.Minute {
					t.Error("existing session timeout was overwritten")
				}
				// Check that unset values got defaults
				if cfg.Server.WriteTimeout != DefaultWriteTimeout {
					t.Error("write timeout should get default when not set")
				}
				if cfg.Gateway.HeartbeatInterval != DefaultHeartbeatInterval {
					t.Error("heartbeat interval should get default when not set")
				}
			},
		},
		{
			name: "sqlite store defaults applied",
			input: Config{
				TokenStore: TokenStoreConfig{
					Backend: "sqlite",
					// Driver and Path not set
				},
			},
			check: func(t *testing.T, cfg *Config) {
				if cfg.TokenStore.SQLite.Driver != DefaultSQLiteDriver {
					t.Errorf("expected sqlite driver %q, got %q", DefaultSQLiteDriver, cfg.TokenStore.SQLite.Driver)
				}
				if cfg.TokenStore.SQLite.Path != DefaultSQLitePath {
					t.Errorf("expected sqlite path %q, got %q", DefaultSQLitePath, cfg.TokenStore.SQLite.Path)
				}
				if cfg.TokenStore.Backend != "sqlite" {
					t.Error("existing backend was overwritten")
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.input
			ApplyDefaults(&cfg)
			tt.check(t, &cfg)
		})
	}
}

func TestApplyDefaults_Idempotent(t *testing.T) {
	var cfg Config

	// Apply defaults twice
	ApplyDefaults(&cfg)
	firstPass := cfg

	ApplyDefaults(&cfg)

	if !reflect.DeepEqual(cfg, firstPass) {
		t.Error("ApplyDefaults should be idempotent")
	}
}
