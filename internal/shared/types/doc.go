// Package types defines the data model shared by the gateway core, the
// protocol adapters and the backend integrations.
//
// Components:
//   - ServiceDescriptor: registry record of one integration
//   - Capability: a named operation a handler supports
//   - Params: a service/operation request with insertion-ordered args
//   - Result/Metadata: uniform cost and latency envelope
//   - Error: fixed error taxonomy with stable codes
package types
