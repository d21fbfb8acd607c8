// Package config provides 12-factor configuration for the gateway.
//
// Configuration is loaded from environment variables with defaults.
// CLI flags in cmd/server override the server and logging settings.
//
// Configuration Sections:
//   - Server: HTTP listener and graceful shutdown
//   - Logging: log level and output format
//   - RateLimit: per-IP rate limiting
//   - Dispatch: handler timeout and error-detail exposure
//   - Health: cron schedule for backend health probes
//   - LocalTools: optional YAML/TOML catalog of extra local tools
//   - Postgres, Memory, Cloud, GitHub, N8N, ObjectStore: backend settings,
//     passed opaquely to each integration's constructor
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	fmt.Printf("Gateway listening on %s:%s\n", cfg.Server.Host, cfg.Server.Port)
package config
