// Package server assembles the gateway.
//
// Server Lifecycle:
//  1. Initialize logger, metrics and tracer from configuration
//  2. Create the service registry
//  3. Bootstrap local tools (built-in plus LOCAL_TOOLS_FILE) and every
//     server integration; integrations that fail to start are registered
//     with status error
//  4. Start the cron health monitor
//  5. Mount the HTTP adapters behind the middleware stack
//  6. Serve until Shutdown, then drain HTTP, stop the monitor, run every
//     handler's shutdown hook and flush the tracer
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	srv, err := server.NewServer(ctx, cfg)
//	go srv.Run()
//	<-ctx.Done()
//	srv.Shutdown(context.Background())
package server
