// Package providers holds the server-side integrations behind the gateway.
//
// Each subpackage exposes a service.Handler. All of them validate their
// arguments before touching a backend; the network-backed ones also
// implement health checks and shutdown hooks.
//
// Available Providers:
//   - database: SQL over database/sql (pgx or SQLite)
//   - memory: tagged notes in Redis
//   - cloud: cloud infrastructure REST API
//   - github: GitHub REST API
//   - workflow: n8n workflow automation
//   - objectstore: S3-compatible storage through minio-go
//   - restclient: shared REST client with retries, rate limiting and a
//     circuit breaker
//
// Example Usage:
//
//	h, err := database.Open(ctx, database.Config{Driver: "pgx", DSN: dsn}, logger)
//	result, err := h.Execute(ctx, types.Params{Service: "postgres", Operation: "listTables"})
package providers
