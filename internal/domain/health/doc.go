// Package health periodically probes server-side services and moves them
// between the active and error states. Services marked inactive are left
// alone, as are services whose handler has no health probe.
package health
