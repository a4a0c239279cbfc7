package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"mercator-hq/ganymede/pkg/config"
	"mercator-hq/ganymede/pkg/registry"
)

var validateFlags struct {
	providersOnly bool
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration and the provider catalog",
	Long: `Validate the YAML configuration file and every provider JSON file
in the configured provider directory.

Configuration checks mirror what 'ganymede run' enforces: field ranges,
cron schedules, strategy and backend names. Provider catalog checks cover
JSON syntax, required fields, known provider types, and model definitions.
Unresolved API keys are reported as warnings because unkeyed providers
load fine and are simply skipped by selection.

Examples:
  # Validate the default config and its provider directory
  ganymede validate

  # Validate a specific config
  ganymede validate --config /etc/ganymede/config.yaml

  # Only check the provider catalog
  ganymede validate --providers-only`,
	RunE: validateAll,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().BoolVar(&validateFlags.providersOnly, "providers-only", false, "skip config checks, validate the provider directory only")
}

func validateAll(cmd *cobra.Command, args []string) error {
	totalErrors := 0
	totalWarnings := 0

	var cfg *config.Config
	if validateFlags.providersOnly {
		// The provider directory still comes from the config file; fall
		// back to defaults when the file is absent or broken.
		loaded, err := config.LoadConfig(cfgFile)
		if err != nil {
			loaded = config.Default()
		}
		cfg = loaded
	} else {
		fmt.Printf("Validating %s...\n", cfgFile)
		loaded, errs := validateConfigFile(cfgFile)
		if len(errs) == 0 {
			fmt.Println("✓ Configuration valid")
		}
		for _, msg := range errs {
			fmt.Printf("✗ Error: %s\n", msg)
			totalErrors++
		}
		if loaded == nil {
			fmt.Println()
			return fmt.Errorf("validation failed: %d error(s)", totalErrors)
		}
		cfg = loaded
		fmt.Println()
	}

	fmt.Printf("Validating provider directory %s...\n", cfg.Providers.Dir)
	errs, warns := validateProviderDir(cfg.Providers.Dir)
	if len(errs) == 0 && len(warns) == 0 {
		fmt.Println("✓ Provider catalog valid")
	}
	for _, msg := range errs {
		fmt.Printf("✗ Error: %s\n", msg)
		totalErrors++
	}
	for _, msg := range warns {
		fmt.Printf("⚠ Warning: %s\n", msg)
		totalWarnings++
	}

	fmt.Println()
	if totalErrors > 0 {
		return fmt.Errorf("validation failed: %d error(s), %d warning(s)", totalErrors, totalWarnings)
	}
	if totalWarnings > 0 {
		fmt.Printf("✓ Validation passed with %d warning(s)\n", totalWarnings)
		return nil
	}
	fmt.Println("✓ Validation passed")
	return nil
}

// validateConfigFile loads and validates the config, returning one message
// per field error. A nil config means the file is unusable.
func validateConfigFile(path string) (*config.Config, []string) {
	cfg, err := config.LoadConfig(path)
	if err == nil {
		return cfg, nil
	}

	var verr config.ValidationError
	if errors.As(err, &verr) {
		msgs := make([]string, 0, len(verr.Errors))
		for _, fe := range verr.Errors {
			msgs = append(msgs, fmt.Sprintf("%s: %s", fe.Field, fe.Message))
		}
		return nil, msgs
	}
	return nil, []string{err.Error()}
}

var knownProviderTypes = map[string]bool{
	"openai":            true,
	"anthropic":         true,
	"google":            true,
	"openai-compatible": true,
}

// validateProviderDir checks every *.json file in dir. Errors block a file
// from loading; warnings describe providers that load but cannot serve.
func validateProviderDir(dir string) (errs, warns []string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return []string{fmt.Sprintf("cannot read provider directory: %v", err)}, nil
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	if len(names) == 0 {
		return nil, []string{fmt.Sprintf("no provider files found in %s", dir)}
	}

	seen := map[string]string{} // provider id -> first file
	for _, name := range names {
		fileErrs, fileWarns := validateProviderFile(filepath.Join(dir, name), seen)
		errs = append(errs, fileErrs...)
		warns = append(warns, fileWarns...)
	}
	return errs, warns
}

func validateProviderFile(path string, seen map[string]string) (errs, warns []string) {
	data, err := os.ReadFile(path)
	if err != nil {
		return []string{fmt.Sprintf("%s: unreadable: %v", path, err)}, nil
	}

	var cfg registry.ProviderConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return []string{fmt.Sprintf("%s: invalid JSON: %v", path, err)}, nil
	}

	if cfg.ID == "" {
		errs = append(errs, fmt.Sprintf("%s: missing provider id", path))
	} else if first, dup := seen[cfg.ID]; dup {
		warns = append(warns, fmt.Sprintf("%s: duplicate provider id %q (also in %s); the later file wins", path, cfg.ID, first))
	} else {
		seen[cfg.ID] = path
	}

	if cfg.Type == "" {
		errs = append(errs, fmt.Sprintf("%s: missing provider type", path))
	} else if !knownProviderTypes[cfg.Type] {
		errs = append(errs, fmt.Sprintf("%s: unknown provider type %q (want openai, anthropic, google, or openai-compatible)", path, cfg.Type))
	}

	if cfg.BaseURL == "" {
		warns = append(warns, fmt.Sprintf("%s: no baseUrl, the adapter default applies", path))
	}
	if cfg.APIKeyEnv == "" {
		warns = append(warns, fmt.Sprintf("%s: no apiKeyEnv, provider can never become ready", path))
	} else if _, ok := os.LookupEnv(cfg.APIKeyEnv); !ok {
		warns = append(warns, fmt.Sprintf("%s: %s is unset, provider will be skipped by selection", path, cfg.APIKeyEnv))
	}

	if len(cfg.Models) == 0 {
		warns = append(warns, fmt.Sprintf("%s: no models declared, provider will never be selected", path))
	}
	defaults := 0
	for i, m := range cfg.Models {
		if m.ID == "" {
			errs = append(errs, fmt.Sprintf("%s: model %d has no id", path, i))
		}
		if m.Default {
			defaults++
		}
	}
	if defaults > 1 {
		warns = append(warns, fmt.Sprintf("%s: %d models flagged default, the first in declared order wins", path, defaults))
	}

	return errs, warns
}
