// Package monitoring provides Prometheus metrics for the gateway.
//
// Metrics live on a private registry (not the global default) so several
// gateways, or several tests, can coexist in one process.
//
// Metric families:
//   - gateway_http_*: request counts, latency and sizes per route
//   - gateway_dispatch_*: dispatch counts, latency, error codes, tokens, cost
//   - gateway_services: registered services by status and location
//   - gateway_health_checks_total: health probe outcomes
//
// Example Usage:
//
//	metrics := monitoring.NewMetrics()
//	router.Use(monitoring.Middleware(metrics))
//	router.GET("/metrics", gin.WrapH(metrics.Handler()))
package monitoring
