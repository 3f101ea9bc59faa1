// Package config provides configuration management for relay.
//
// Configuration is read from a YAML file, completed with defaults, overlaid
// with environment variables and validated before use.
//
// # Configuration Loading
//
//	cfg, err := config.LoadConfig("relay.yaml")
//	cfg, err := config.LoadConfigWithEnvOverrides("relay.yaml")
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention RELAY_SECTION_FIELD:
//
//   - RELAY_HEALTH_INTERVAL overrides health.interval
//   - RELAY_ROUTING_FALLBACK_CHAIN overrides routing.fallback_chain (comma separated)
//   - RELAY_PROVIDERS_OPENAI_API_KEY overrides the api_key of provider "openai"
//   - RELAY_TELEMETRY_LOGGING_LEVEL overrides telemetry.logging.level
//
// Provider IDs are upper-cased with dashes and dots turned into underscores.
//
// # Configuration Precedence
//
//  1. Values from YAML file
//  2. Default values (defaults.go) for anything left unset
//  3. Environment variable overrides
//  4. Validation (fails fast if invalid)
//
// # Hot Reload
//
// Watcher observes the configuration file with fsnotify and hands every
// valid reloaded Config to a callback:
//
//	w, _ := config.NewWatcher("relay.yaml")
//	go w.Watch(ctx, func(cfg *config.Config) { router.SetFallbackChain(cfg.Routing.FallbackChain) })
//
// # Example Configuration
//
//	providers:
//	  - id: openai
//	    model: gpt-4o
//	    base_url: "https://api.openai.com/v1"
//	    priority: 10
//	    rate_limit:
//	      requests_per_minute: 500
//	      concurrent_requests: 20
//	  - id: google
//	    model: gemini-1.5-pro
//	    alt_credential: true
//
//	routing:
//	  fallback_chain: [openai, google]
//
//	recovery:
//	  max_retries: 3
//	  base_delay: 1s
//	  max_delay: 30s
//
//	health:
//	  enabled: true
//	  interval: 30s
//
//	limits:
//	  storage:
//	    backend: sqlite
//	    sqlite_path: data/quota.db
//
// # Thread Safety
//
// The singleton (Initialize, GetConfig, ReloadConfig) is guarded by a
// read-write lock. Config values themselves are not synchronized; treat
// a loaded Config as read-only.
package config
