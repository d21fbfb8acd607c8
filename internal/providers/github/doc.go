// Package github implements the source-hosting service against the
// GitHub REST API.
package github
