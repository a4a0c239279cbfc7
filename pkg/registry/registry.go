package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Options configures a Registry.
type Options struct {
	// Dir is the directory holding provider JSON files.
	Dir string

	// Lookup resolves API-key environment variables. Nil means
	// os.LookupEnv; tests inject a map-backed lookup.
	Lookup func(key string) (string, bool)

	// DebounceInterval delays reloads after file events so editor write
	// bursts collapse into one. Zero means 100ms.
	DebounceInterval time.Duration

	// OnReload runs after every successful load, including the first.
	// The server wiring clears the routing adapter cache here. Nil skips.
	OnReload func()
}

// Registry holds the provider catalog loaded from a JSON directory.
// The readable snapshot is replaced wholesale on every load, so pointers
// handed out by Get and the selectors stay valid across reloads.
type Registry struct {
	dir      string
	lookup   func(string) (string, bool)
	debounce time.Duration
	onReload func()

	mu        sync.RWMutex
	providers []*ProviderConfig
	byID      map[string]*ProviderConfig
}

// New creates an empty registry. Call Load to read the directory.
func New(opts Options) *Registry {
	lookup := opts.Lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}
	debounce := opts.DebounceInterval
	if debounce == 0 {
		debounce = 100 * time.Millisecond
	}
	return &Registry{
		dir:      opts.Dir,
		lookup:   lookup,
		debounce: debounce,
		onReload: opts.OnReload,
		byID:     make(map[string]*ProviderConfig),
	}
}

// Load reads every *.json file in the directory in filename order, applies
// canonical overrides, resolves API keys, and swaps the snapshot. Malformed
// files are skipped with a warning so one bad file cannot empty the catalog.
func (r *Registry) Load() error {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return fmt.Errorf("failed to read provider directory %s: %w", r.dir, err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	var providers []*ProviderConfig
	byID := make(map[string]*ProviderConfig, len(names))

	for _, name := range names {
		path := filepath.Join(r.dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			slog.Warn("skipping unreadable provider file", "path", path, "error", err)
			continue
		}

		cfg := &ProviderConfig{}
		if err := json.Unmarshal(data, cfg); err != nil {
			slog.Warn("skipping malformed provider file", "path", path, "error", err)
			continue
		}
		if cfg.ID == "" {
			slog.Warn("skipping provider file without id", "path", path)
			continue
		}

		applyCanonicalOverride(cfg)
		if key, ok := r.lookup(cfg.APIKeyEnv); ok {
			cfg.APIKey = key
		}
		enforceSingleDefault(cfg)

		if existing, ok := byID[cfg.ID]; ok {
			// Later file replaces the earlier one in place, keeping the
			// original position for tie-break stability.
			slog.Warn("duplicate provider id, later file wins", "id", cfg.ID, "path", path)
			*existing = *cfg
			continue
		}
		byID[cfg.ID] = cfg
		providers = append(providers, cfg)
	}

	r.mu.Lock()
	r.providers = providers
	r.byID = byID
	r.mu.Unlock()

	slog.Info("provider registry loaded",
		"dir", r.dir,
		"providers", len(providers),
		"configured", len(r.Configured()),
	)

	if r.onReload != nil {
		r.onReload()
	}
	return nil
}

// Reload re-reads the directory. Alias of Load for call-site clarity.
func (r *Registry) Reload() error {
	return r.Load()
}

// Refresh re-reads the directory, logging instead of failing on error.
// Suitable as a cron job body.
func (r *Registry) Refresh() {
	if err := r.Load(); err != nil {
		slog.Error("provider registry refresh failed", "error", err)
	}
}

// enforceSingleDefault clears duplicate default flags: the first flagged
// model in declared order wins.
func enforceSingleDefault(cfg *ProviderConfig) {
	seen := false
	for i := range cfg.Models {
		if !cfg.Models[i].Default {
			continue
		}
		if seen {
			cfg.Models[i].Default = false
			continue
		}
		seen = true
	}
}

// Get returns the provider with the given id. The returned pointer is part
// of the current snapshot; treat it as read-only.
func (r *Registry) Get(id string) (*ProviderConfig, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cfg, ok := r.byID[id]
	return cfg, ok
}

// All returns every loaded provider in load order.
func (r *Registry) All() []*ProviderConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*ProviderConfig, len(r.providers))
	copy(out, r.providers)
	return out
}

// Configured returns the providers whose API key resolved, in load order.
func (r *Registry) Configured() []*ProviderConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*ProviderConfig
	for _, cfg := range r.providers {
		if cfg.Configured() {
			out = append(out, cfg)
		}
	}
	return out
}

// DefaultModelID returns the provider's default model id: the flagged
// default, else the first model in declared order.
func (r *Registry) DefaultModelID(providerID string) (string, bool) {
	cfg, ok := r.Get(providerID)
	if !ok {
		return "", false
	}
	model := cfg.DefaultModel()
	if model == nil {
		return "", false
	}
	return model.ID, true
}

// ClearCache drops the loaded snapshot. Tests use it to force a reload.
func (r *Registry) ClearCache() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers = nil
	r.byID = make(map[string]*ProviderConfig)
}

// Watch blocks, reloading the registry when *.json files in the directory
// are created, written, renamed or removed. Events are debounced. Returns
// when the context is cancelled.
func (r *Registry) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(r.dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", r.dir, err)
	}

	slog.Info("provider registry watcher started", "dir", r.dir)

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			slog.Info("provider registry watcher stopped")
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			if !strings.HasSuffix(event.Name, ".json") {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			slog.Debug("provider file event", "path", event.Name, "op", event.Op.String())

			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(r.debounce, func() {
				if err := r.Load(); err != nil {
					slog.Error("provider registry reload failed", "error", err)
				}
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			slog.Error("provider registry watcher error", "error", err)
		}
	}
}
