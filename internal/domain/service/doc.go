// Package service holds the gateway's registry of services and the dispatch
// engine that routes one request to a local instruction template or to a
// registered server-side handler.
//
// Registration is expected to finish before traffic is served, but the
// registry is safe for concurrent use: reads take a shared lock and no lock
// is held while a handler runs.
package service
