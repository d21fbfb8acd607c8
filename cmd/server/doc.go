// Package main is the entry point for the capgate gateway.
//
// The gateway exposes a registry of capability services over REST and
// JSON-RPC. Server-side integrations (postgres, memory, cloud, github, n8n,
// storage) run here; local tools (playwright, puppeteer, git, docker and any
// from LOCAL_TOOLS_FILE) are answered with instructions for the caller to
// run on its own machine.
//
// Configuration:
//   - Environment variables (12-factor), see internal/infrastructure/config
//   - CLI flags override the listener and log mode
//
// Usage:
//
//	# Production mode
//	./server -port 8000 -host 0.0.0.0
//
//	# Development mode (colored logs, debug level)
//	./server -dev
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main
