// Package http exposes the registry over HTTP with gin.
//
// Endpoints:
//   - POST /execute: compact command string, JSON-RPC shaped reply
//   - POST /rpc: JSON-RPC 2.0 (mcp.execute, mcp.listServices,
//     mcp.getCapabilities, mcp.getStatistics)
//   - GET /catalog, GET /service/:name, POST /test/:service
//   - GET /, GET /health, GET /metrics, GET /metrics/json
//
// Handlers never render errors themselves. They attach them with c.Error
// and ErrorTranslator renders them once, as REST or JSON-RPC errors.
package http
