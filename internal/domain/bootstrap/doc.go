// Package bootstrap populates the service registry at process start.
//
// Local tools are registered first as reference entries. Each server-side
// integration is then built by its Factory inside its own failure boundary:
// a factory that errors or panics leaves its descriptor registered with
// status "error" and does not stop the others.
//
// Example:
//
//	boot := bootstrap.NewInitializer(registry, logger).
//		WithLocalTools(bootstrap.DefaultLocalTools()...)
//	boot.Add(bootstrap.Factory{Descriptor: desc, New: newPostgres})
//	report := boot.Run(ctx)
package bootstrap
