// Package registry loads the provider catalog from a directory of JSON
// files and answers model-selection queries over it.
//
// Each file declares one provider: id, wire type, base URL, the name of
// the environment variable carrying its API key, a feature matrix, and an
// ordered model list with prices and capabilities. Known provider ids are
// corrected against a hardcoded canonical table on every load so a stale
// or mistyped file cannot point a known provider at the wrong wire format.
//
// The catalog is an immutable snapshot swapped atomically on load; Watch
// reloads it when files change, Refresh fits a cron schedule.
//
// Selection filters configured, non-deprecated models by capability, price
// and context window, then ranks them with an integer score that favors
// capability matches, preferred providers, task affinity and cheap tokens.
// Cheapest, Fastest and Smartest wrap common strategies.
//
// Example:
//
//	reg := registry.New(registry.Options{Dir: "./providers"})
//	if err := reg.Load(); err != nil {
//		log.Fatal(err)
//	}
//
//	best, err := reg.SelectBestModel(registry.SelectionCriteria{
//		Capabilities: []string{registry.CapChat, registry.CapStreaming},
//		TaskType:     registry.TaskCode,
//	})
package registry
