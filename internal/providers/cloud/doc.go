// Package cloud implements the cloud infrastructure service against a
// REST API exposing /instances and /regions.
package cloud
