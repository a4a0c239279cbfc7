package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"mercator-hq/ganymede/pkg/bus"
	"mercator-hq/ganymede/pkg/config"
	"mercator-hq/ganymede/pkg/gateway"
	"mercator-hq/ganymede/pkg/providers"
	"mercator-hq/ganymede/pkg/registry"
	"mercator-hq/ganymede/pkg/routing"
	"mercator-hq/ganymede/pkg/server"
	"mercator-hq/ganymede/pkg/telemetry/health"
	"mercator-hq/ganymede/pkg/telemetry/logging"
	"mercator-hq/ganymede/pkg/telemetry/metrics"
	"mercator-hq/ganymede/pkg/tokenstore"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the Ganymede gateway server",
	Long: `Start the Ganymede gateway server with the specified configuration.

The server listens on the configured address, mounts the WebSocket session
endpoint, and routes chat requests across the configured providers with
fallback. Health and metrics endpoints are mounted alongside.

Examples:
  # Start with default config
  ganymede run

  # Start with custom config
  ganymede run --config /etc/ganymede/config.yaml

  # Override listen address
  ganymede run --listen 0.0.0.0:8421

  # Validate config without starting the server
  ganymede run --dry-run`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting the server")
}

func runServer(cmd *cobra.Command, args []string) error {
	// Load configuration
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Apply flag overrides
	if runFlags.listenAddress != "" {
		cfg.Server.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}

	logger := logging.Setup(cfg.Telemetry.Logging)

	if runFlags.dryRun {
		fmt.Println("✓ Configuration valid")
		return nil
	}

	fmt.Printf("Ganymede v%s\n", Version)
	fmt.Printf("Loading configuration from: %s\n", cfgFile)
	fmt.Println("✓ Configuration loaded")

	// Metrics are recorded only when the endpoint is mounted; every
	// consumer below tolerates a nil collector.
	var collector *metrics.Collector
	if cfg.Telemetry.Metrics.Enabled {
		collector = metrics.NewCollector(nil)
	}

	// Event bus with a firehose tap counting events per category.
	eventBus := bus.New(bus.Options{})
	eventBus.OnAll(func(e bus.Event) error {
		collector.RecordBusEvent(e.Category)
		return nil
	})

	// Provider registry. The router is created below; reloads triggered by
	// the watcher or the cron refresh drop its adapter cache so rebuilt
	// adapters pick up changed base URLs and keys.
	var router *routing.Router
	reg := registry.New(registry.Options{
		Dir: cfg.Providers.Dir,
		OnReload: func() {
			if router != nil {
				router.ClearCache()
			}
		},
	})
	if err := reg.Load(); err != nil {
		slog.Warn("provider catalog load failed, starting with an empty catalog", "error", err)
	}
	configured := len(reg.Configured())
	fmt.Printf("✓ Provider catalog loaded (%d providers, %d configured)\n", len(reg.All()), configured)
	if configured == 0 {
		slog.Warn("no provider has an API key, chat runs in demo mode")
	}

	// Token store for UI-session credentials.
	tokens, err := newTokenStore(cfg)
	if err != nil {
		return fmt.Errorf("failed to open token store: %w", err)
	}
	defer tokens.Close()
	fmt.Printf("✓ Token store initialized (%s)\n", cfg.TokenStore.Backend)

	// Router over the registry. With fallback disabled each routed request
	// gets exactly one candidate.
	maxRetries := cfg.Routing.MaxRetries
	if !cfg.Fallback.Enabled {
		maxRetries = 1
	}
	router = routing.New(reg, routing.Config{
		DefaultStrategy:      cfg.Routing.DefaultStrategy,
		MaxRetries:           maxRetries,
		RequiredCapabilities: cfg.Routing.RequiredCapabilities,
		Instrument: func(p providers.Provider) providers.Provider {
			return metrics.InstrumentProvider(p, collector)
		},
	})
	defer router.Close()

	agent := gateway.NewRouterAgent(router, cfg.Routing.DefaultStrategy, "")

	gw := gateway.New(gateway.Options{
		Config:  cfg.Gateway,
		Bus:     eventBus,
		Agent:   agent,
		Tokens:  tokens,
		Metrics: collector,
		Logger:  logger.With("component", "gateway"),
	})

	checker := health.New(0)
	checker.RegisterCheck("providers", func(ctx context.Context) error {
		if len(reg.Configured()) == 0 {
			return errors.New("no provider configured")
		}
		return nil
	})

	srv := server.New(server.Options{
		Config:  cfg,
		Gateway: gw,
		Checker: checker,
		Metrics: collector,
		Logger:  logger.With("component", "server"),
	})

	// Scheduled maintenance: registry refresh and token purge share one cron.
	jobs := cron.New()
	if cfg.Providers.RefreshSchedule != "" {
		if _, err := jobs.AddFunc(cfg.Providers.RefreshSchedule, reg.Refresh); err != nil {
			return fmt.Errorf("failed to schedule registry refresh: %w", err)
		}
	}
	if cfg.TokenStore.PurgeSchedule != "" {
		if _, err := jobs.AddFunc(cfg.TokenStore.PurgeSchedule, func() {
			purgeExpiredTokens(tokens)
		}); err != nil {
			return fmt.Errorf("failed to schedule token purge: %w", err)
		}
	}
	jobs.Start()
	defer jobs.Stop()
	fmt.Println("✓ Scheduled jobs started")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Providers.Watch {
		go func() {
			if err := reg.Watch(ctx); err != nil {
				slog.Error("provider watcher stopped", "error", err)
			}
		}()
	}

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start(ctx)
	}()

	// Block until the listener is bound so the printed endpoints are live.
	deadline := time.Now().Add(5 * time.Second)
	for srv.Addr() == nil {
		select {
		case err := <-errChan:
			if err != nil {
				return fmt.Errorf("server failed to start: %w", err)
			}
			return nil
		case <-time.After(10 * time.Millisecond):
			if time.Now().After(deadline) {
				return fmt.Errorf("server did not start listening within 5s")
			}
		}
	}

	printEndpoints(cfg, srv.Addr().String())

	if err := <-errChan; err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	fmt.Println("✓ Server stopped")
	return nil
}

// newTokenStore builds the configured token store backend.
func newTokenStore(cfg *config.Config) (tokenstore.Store, error) {
	switch cfg.TokenStore.Backend {
	case "sqlite":
		return tokenstore.NewSQLiteStore(&tokenstore.SQLiteConfig{
			Driver:  cfg.TokenStore.SQLite.Driver,
			Path:    cfg.TokenStore.SQLite.Path,
			WALMode: true,
		})
	default:
		return tokenstore.NewMemoryStore(nil), nil
	}
}

// purgeExpiredTokens is the cron job body for the token store sweep.
func purgeExpiredTokens(tokens tokenstore.Store) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	n, err := tokens.PurgeExpired(ctx)
	if err != nil {
		slog.Error("token purge failed", "error", err)
		return
	}
	if n > 0 {
		slog.Debug("expired tokens purged", "count", n)
	}
}

func printEndpoints(cfg *config.Config, addr string) {
	wsScheme, httpScheme := "ws", "http"
	if cfg.Server.TLS.Enabled {
		wsScheme, httpScheme = "wss", "https"
	}

	fmt.Println()
	fmt.Printf("✓ Server listening on %s\n", addr)
	fmt.Printf("✓ WebSocket endpoint: %s://%s%s\n", wsScheme, addr, cfg.Gateway.Path)
	fmt.Printf("✓ Health endpoint: %s://%s/healthz\n", httpScheme, addr)
	if cfg.Telemetry.Metrics.Enabled {
		fmt.Printf("✓ Metrics endpoint: %s://%s%s\n", httpScheme, addr, cfg.Telemetry.Metrics.Path)
	}
	fmt.Println("\nPress Ctrl+C to stop")
}
