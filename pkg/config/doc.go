// Package config provides configuration management for the Ganymede gateway.
//
// This package handles loading, validating, and managing configuration from
// YAML files with environment variable overrides. It covers the HTTP server,
// the WebSocket session layer, the provider registry, routing and fallback,
// the UI-session token store, and telemetry. Provider catalog entries are
// NOT part of this file; they live as JSON documents in the directory named
// by providers.dir and are loaded by pkg/registry.
//
// # Configuration Loading
//
// Configuration can be loaded in two ways:
//
//  1. From a YAML file only:
//     cfg, err := config.LoadConfig("config.yaml")
//
//  2. From a YAML file with environment variable overrides:
//     cfg, err := config.LoadConfigWithEnvOverrides("config.yaml")
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention GANYMEDE_SECTION_FIELD.
// For example:
//
//   - GANYMEDE_SERVER_LISTEN_ADDRESS overrides server.listen_address
//   - GANYMEDE_GATEWAY_AUTH_UI_PASSWORD overrides gateway.auth.ui_password
//   - GANYMEDE_TELEMETRY_LOGGING_LEVEL overrides telemetry.logging.level
//
// List-valued fields (gateway.allowed_origins, gateway.auth.api_keys,
// routing.required_capabilities) take comma-separated values. Environment
// variables always take precedence over file-based configuration.
//
// # Configuration Precedence
//
// Configuration values are applied in the following order (later overrides earlier):
//
//  1. Default values (defined in defaults.go)
//  2. Values from YAML file
//  3. Environment variable overrides
//  4. Validation (fails fast if invalid)
//
// # Singleton Pattern
//
// For application-wide configuration access, use the singleton:
//
//	// At application startup
//	cfg, err := config.Load("config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Anywhere in the application
//	cfg := config.Get()
//	fmt.Println(cfg.Server.ListenAddress)
//
// For testing, prefer dependency injection with explicit Config instances;
// tests that do touch the singleton call Reset to isolate state.
//
// # Validation
//
// All configuration is validated automatically during loading. Validation includes:
//
//   - Required field checks (e.g., listen address, provider directory)
//   - Allowed value checks (e.g., routing strategy, token store backend)
//   - Format validation (e.g., origins must carry scheme and host, cron specs must parse)
//   - Logical validation (e.g., TLS requires cert and key files)
//
// Validation errors include field paths and helpful messages:
//
//	configuration validation failed with 2 errors:
//	  - routing.default_strategy: invalid strategy "speediest": must be 'balanced', 'cheapest', 'fastest', or 'smartest'
//	  - server.tls.cert_file: TLS certificate file is required when TLS is enabled
//
// # Example Configuration
//
// Here is a minimal configuration file:
//
//	server:
//	  listen_address: "127.0.0.1:8421"
//
//	gateway:
//	  path: "/ws"
//	  allowed_origins: ["https://app.example.com"]
//
//	providers:
//	  dir: "./providers"
//	  watch: true
//
//	routing:
//	  default_strategy: "balanced"
//
//	telemetry:
//	  logging:
//	    level: "info"
//	    format: "json"
//
// # Thread Safety
//
// All configuration access is thread-safe. The singleton uses read-write
// locks to allow concurrent reads while protecting against replacement.
package config
