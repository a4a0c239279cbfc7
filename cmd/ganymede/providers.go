package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"mercator-hq/ganymede/pkg/config"
	"mercator-hq/ganymede/pkg/registry"
)

var providersFlags struct {
	format string
}

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "Print the resolved provider catalog",
	Long: `Print the provider catalog as the gateway would load it: canonical
overrides applied, API keys resolved from the environment, and per-model
pricing and capabilities.

API key values are never printed; only whether one resolved.

Examples:
  # Print the catalog for the default config
  ganymede providers

  # Print as JSON for scripting
  ganymede providers --format json`,
	RunE: printProviders,
}

func init() {
	rootCmd.AddCommand(providersCmd)

	providersCmd.Flags().StringVar(&providersFlags.format, "format", "text", "output format: text, json")
}

func printProviders(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	reg := registry.New(registry.Options{Dir: cfg.Providers.Dir})
	if err := reg.Load(); err != nil {
		return fmt.Errorf("failed to load provider catalog: %w", err)
	}

	all := reg.All()
	if providersFlags.format == "json" {
		// ProviderConfig never serializes the resolved key; annotate
		// readiness separately.
		type jsonProvider struct {
			*registry.ProviderConfig
			Ready bool `json:"ready"`
		}
		out := make([]jsonProvider, 0, len(all))
		for _, p := range all {
			out = append(out, jsonProvider{ProviderConfig: p, Ready: p.Configured()})
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	fmt.Printf("Provider catalog: %s (%d providers, %d configured)\n",
		cfg.Providers.Dir, len(all), len(reg.Configured()))

	for _, p := range all {
		fmt.Println()
		fmt.Printf("%s (%s)\n", p.ID, p.Name)
		fmt.Printf("  Type: %s\n", p.Type)
		fmt.Printf("  Base URL: %s\n", p.BaseURL)
		if p.Configured() {
			fmt.Printf("  API Key: ✓ resolved from %s\n", p.APIKeyEnv)
		} else if p.APIKeyEnv != "" {
			fmt.Printf("  API Key: ✗ %s unset\n", p.APIKeyEnv)
		} else {
			fmt.Println("  API Key: ✗ no apiKeyEnv declared")
		}

		if len(p.Models) == 0 {
			fmt.Println("  Models: none")
			continue
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "  MODEL\tCONTEXT\tMAX OUT\t$/M IN\t$/M OUT\tCAPABILITIES\t")
		for _, m := range p.Models {
			marker := ""
			if m.Default {
				marker = " (default)"
			}
			if m.Deprecated {
				marker += " (deprecated)"
			}
			fmt.Fprintf(w, "  %s%s\t%d\t%d\t%.2f\t%.2f\t%s\t\n",
				m.ID, marker, m.ContextWindow, m.MaxOutputTokens,
				m.InputPrice, m.OutputPrice, strings.Join(m.Capabilities, ","))
		}
		w.Flush()
	}
	return nil
}
