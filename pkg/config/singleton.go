package config

import "sync"

var (
	// globalMu protects globalCfg and globalErr.
	globalMu sync.RWMutex

	// globalCfg holds the singleton configuration instance.
	globalCfg *Config

	// globalErr holds the error from a failed Load, so later calls see it.
	globalErr error

	// loadOnce ensures the file is loaded only once per Reset.
	loadOnce *sync.Once = new(sync.Once)
)

// Load loads configuration from the specified path with environment variable
// overrides and installs it as the global singleton. Only the first call
// loads the file; subsequent calls return the already-installed
// configuration (or the first call's error). Call Reset to make Load run
// again.
func Load(path string) (*Config, error) {
	globalMu.RLock()
	once := loadOnce
	globalMu.RUnlock()

	once.Do(func() {
		cfg, err := LoadConfigWithEnvOverrides(path)
		globalMu.Lock()
		defer globalMu.Unlock()
		if err != nil {
			globalErr = err
			return
		}
		globalCfg = cfg
	})

	globalMu.RLock()
	defer globalMu.RUnlock()
	if globalErr != nil {
		return nil, globalErr
	}
	return globalCfg, nil
}

// Get returns the global configuration instance. It returns nil if Load has
// not been called successfully. Prefer passing *Config explicitly; the
// singleton exists for wiring code that has no better channel.
func Get() *Config {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalCfg
}

// Set installs cfg as the global configuration, replacing any previous
// value. It is intended for tests and for wiring code that builds its
// configuration by hand rather than from a file.
func Set(cfg *Config) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalCfg = cfg
	globalErr = nil
}

// Reset clears the singleton so the next Load runs again. Tests use it to
// isolate configuration state.
func Reset() {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalCfg = nil
	globalErr = nil
	loadOnce = new(sync.Once)
}
