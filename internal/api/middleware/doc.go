// Package middleware provides the gateway's gin middleware: CORS, per-IP
// rate limiting and request logging.
package middleware
